package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	forgeshifthttp "github.com/Strob0t/ForgeShift/internal/adapter/http"
	"github.com/Strob0t/ForgeShift/internal/adapter/otel"
	"github.com/Strob0t/ForgeShift/internal/adapter/ws"
	"github.com/Strob0t/ForgeShift/internal/config"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/logger"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
	"github.com/Strob0t/ForgeShift/internal/port/source"
	"github.com/Strob0t/ForgeShift/internal/secrets"
	"github.com/Strob0t/ForgeShift/internal/service"

	// Forge adapters register their factories on import.
	_ "github.com/Strob0t/ForgeShift/internal/adapter/github"
	_ "github.com/Strob0t/ForgeShift/internal/adapter/gitlab"
)

// app carries the infrastructure every subcommand wires up the same
// way: configuration, logging, and telemetry.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *otel.Metrics

	closers []func(context.Context)
}

// setup loads configuration and stands up logging and telemetry. The
// returned app must be closed so buffered logs and telemetry flush.
func setup(ctx context.Context) (*app, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigFile
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) { logCloser.Close() })

	if cfg.Otel.Endpoint != "" {
		shutdown, err := otel.Init(ctx, cfg.Otel, cfg.Logging.Service, version)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("otel: %w", err)
		}
		a.closers = append(a.closers, func(ctx context.Context) { _ = shutdown(ctx) })
	}

	// Instruments bind to the global meter provider, which is a no-op
	// when no OTLP endpoint is configured.
	m, err := otel.NewMetrics()
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.metrics = m

	return a, nil
}

// close tears the app down in reverse construction order.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}

// tracking builds the progress tracker for a run, serving it over the
// status endpoint when one is configured. The returned stop function
// shuts the status server down.
func (a *app) tracking(runID string) (*service.Tracker, func(context.Context)) {
	if a.cfg.Status.Addr == "" {
		return service.NewTracker(runID, nil), func(context.Context) {}
	}

	hub := ws.NewHub(a.log)
	tracker := service.NewTracker(runID, hub)

	var use []func(http.Handler) http.Handler
	if a.cfg.Otel.Endpoint != "" {
		use = append(use, otel.HTTPMiddleware(a.cfg.Logging.Service))
	}

	srv := forgeshifthttp.NewServer(forgeshifthttp.Options{
		Addr:     a.cfg.Status.Addr,
		Version:  version,
		Snapshot: func() any { return tracker.Snapshot() },
		WS:       hub.HandleWS,
		Logger:   a.log,
		Use:      use,
	})
	srv.Start()

	return tracker, func(ctx context.Context) { _ = srv.Shutdown(ctx) }
}

// sourceProvider builds a read-only GitLab provider over the given
// budget. The token is prompted for when neither config nor
// environment supplies one.
func (a *app) sourceProvider(budget *forgehttp.Budget) (source.Provider, error) {
	if a.cfg.GitLab.BaseURL == "" {
		return nil, fmt.Errorf("gitlab.base_url is not configured")
	}
	token, err := a.requireToken(&a.cfg.GitLab.Token, "GitLab token: ")
	if err != nil {
		return nil, err
	}

	client := forgehttp.New(forgehttp.Options{
		BaseURL:              a.cfg.GitLab.BaseURL,
		Token:                token,
		Auth:                 forgehttp.AuthPrivateToken,
		Timeout:              time.Duration(a.cfg.GitLab.TimeoutSeconds) * time.Second,
		InsecureSkipVerify:   !a.cfg.GitLab.VerifySSL,
		MaxRequestsPerMinute: a.cfg.GitLab.MaxRequestsPerMinute,
		ReadOnly:             true,
		Budget:               budget,
		Logger:               a.log,
	})
	return source.New("gitlab", client)
}

// destProvider builds a GitHub provider. Release asset uploads go to
// the separate upload host when one is configured.
func (a *app) destProvider() (dest.Provider, error) {
	token, err := a.requireToken(&a.cfg.GitHub.Token, "GitHub token: ")
	if err != nil {
		return nil, err
	}

	opts := forgehttp.Options{
		BaseURL:              a.cfg.GitHub.BaseURL,
		Token:                token,
		Auth:                 forgehttp.AuthBearer,
		Timeout:              time.Duration(a.cfg.GitHub.TimeoutSeconds) * time.Second,
		MaxRequestsPerMinute: a.cfg.GitHub.MaxRequestsPerMinute,
		Logger:               a.log,
	}
	provider, err := dest.New("github", forgehttp.New(opts))
	if err != nil {
		return nil, err
	}

	if a.cfg.GitHub.UploadURL != "" {
		if up, ok := provider.(interface{ SetUploadClient(*forgehttp.Client) }); ok {
			uploadOpts := opts
			uploadOpts.BaseURL = a.cfg.GitHub.UploadURL
			up.SetUploadClient(forgehttp.New(uploadOpts))
		}
	}
	return provider, nil
}

// requireToken returns the configured token, prompting on the terminal
// when it is empty. The prompted value is written back so later
// lookups in the same run see it.
func (a *app) requireToken(field *string, prompt string) (string, error) {
	if *field != "" {
		return *field, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("no token configured and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("empty token")
	}
	*field = tok
	return tok, nil
}

// vault builds the run's secret vault: staged secret and variable
// values from the environment plus the forge tokens, so every
// surfaced error can be scrubbed against them.
func (a *app) vault() (*secrets.Vault, error) {
	cfg := a.cfg
	return secrets.NewVault(func() (map[string]string, error) {
		vals := map[string]string{}
		for _, kv := range os.Environ() {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || v == "" {
				continue
			}
			if strings.HasPrefix(k, "FORGESHIFT_SECRET_") || strings.HasPrefix(k, "FORGESHIFT_VARIABLE_") {
				vals[k] = v
			}
		}
		if cfg.GitLab.Token != "" {
			vals["gitlab_token"] = cfg.GitLab.Token
		}
		if cfg.GitHub.Token != "" {
			vals["github_token"] = cfg.GitHub.Token
		}
		return vals, nil
	})
}

// githubPushURL renders an authenticated push URL for a destination
// repository. github.com pushes go to the web host, not the API host.
func (a *app) githubPushURL() func(owner, repo string) string {
	host := githubHost(a.cfg.GitHub.BaseURL)
	token := a.cfg.GitHub.Token
	return func(owner, repo string) string {
		return fmt.Sprintf("https://x-access-token:%s@%s/%s/%s.git", token, host, owner, repo)
	}
}

func githubHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "github.com"
	}
	if u.Host == "api.github.com" {
		return "github.com"
	}
	return u.Host
}

// gitlabSourceURL rewrites a source clone URL with read credentials.
func (a *app) gitlabSourceURL() func(raw string) string {
	token := a.cfg.GitLab.Token
	return func(raw string) string {
		if token == "" {
			return raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return raw
		}
		u.User = url.UserPassword("oauth2", token)
		return u.String()
	}
}

// stringFlag overlays a flag value onto a config field when the flag
// was set on the command line.
func stringFlag(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		*dst = v
	}
}

func intFlag(cmd *cobra.Command, name string, dst *int) {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt(name)
		*dst = v
	}
}

func boolFlag(cmd *cobra.Command, name string, dst *bool) {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetBool(name)
		*dst = v
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
