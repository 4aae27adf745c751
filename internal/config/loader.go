package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "forgeshift.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < .env <
// ENV. Both files are optional.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < .env < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	// .env values become process env vars without displacing already
	// exported ones, so the overlay below sees both.
	_ = godotenv.Load()

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config. The plain
// GITLAB_TOKEN / GITHUB_TOKEN names are accepted, with the prefixed
// forms taking precedence.
func loadEnv(cfg *Config) {
	setString(&cfg.GitLab.BaseURL, "FORGESHIFT_GITLAB_URL")
	setString(&cfg.GitLab.Token, "GITLAB_TOKEN")
	setString(&cfg.GitLab.Token, "FORGESHIFT_GITLAB_TOKEN")
	setInt(&cfg.GitLab.TimeoutSeconds, "FORGESHIFT_GITLAB_TIMEOUT")
	setBool(&cfg.GitLab.VerifySSL, "FORGESHIFT_GITLAB_VERIFY_SSL")
	setInt(&cfg.GitLab.MaxRequestsPerMinute, "FORGESHIFT_GITLAB_RPM")

	setString(&cfg.GitHub.BaseURL, "FORGESHIFT_GITHUB_URL")
	setString(&cfg.GitHub.UploadURL, "FORGESHIFT_GITHUB_UPLOAD_URL")
	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	setString(&cfg.GitHub.Token, "FORGESHIFT_GITHUB_TOKEN")
	setString(&cfg.GitHub.Org, "FORGESHIFT_GITHUB_ORG")
	setInt(&cfg.GitHub.TimeoutSeconds, "FORGESHIFT_GITHUB_TIMEOUT")
	setInt(&cfg.GitHub.MaxRequestsPerMinute, "FORGESHIFT_GITHUB_RPM")

	setString(&cfg.Run.RootGroup, "FORGESHIFT_ROOT_GROUP")
	setString(&cfg.Run.ProjectPath, "FORGESHIFT_PROJECT_PATH")
	setString(&cfg.Run.OutputDir, "FORGESHIFT_OUTPUT_DIR")

	setInt(&cfg.Budget.MaxAPICalls, "FORGESHIFT_MAX_API_CALLS")
	setInt(&cfg.Budget.MaxPerProjectCalls, "FORGESHIFT_MAX_PER_PROJECT_CALLS")

	setBool(&cfg.Deep.Enabled, "FORGESHIFT_DEEP")
	setInt(&cfg.Deep.TopN, "FORGESHIFT_DEEP_TOP_N")
	setInt(&cfg.Deep.ParallelWorkers, "FORGESHIFT_PARALLEL_WORKERS")

	setBool(&cfg.AI.Enabled, "FORGESHIFT_AI_ENABLED")
	setString(&cfg.AI.Endpoint, "FORGESHIFT_AI_ENDPOINT")
	setString(&cfg.AI.APIKey, "FORGESHIFT_AI_API_KEY")
	setString(&cfg.AI.Deployment, "FORGESHIFT_AI_DEPLOYMENT")
	setString(&cfg.AI.APIVersion, "FORGESHIFT_AI_API_VERSION")

	setInt(&cfg.Git.MaxConcurrent, "FORGESHIFT_GIT_MAX_CONCURRENT")

	setString(&cfg.Status.Addr, "FORGESHIFT_STATUS_ADDR")

	setString(&cfg.Otel.Endpoint, "FORGESHIFT_OTEL_ENDPOINT")
	setBool(&cfg.Otel.Insecure, "FORGESHIFT_OTEL_INSECURE")

	setString(&cfg.Logging.Level, "FORGESHIFT_LOG_LEVEL")
	setString(&cfg.Logging.Format, "FORGESHIFT_LOG_FORMAT")
	setString(&cfg.Logging.Service, "FORGESHIFT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "FORGESHIFT_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "FORGESHIFT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Cooldown, "FORGESHIFT_BREAKER_COOLDOWN")

	setInt64(&cfg.Cache.MaxSizeMB, "FORGESHIFT_CACHE_SIZE_MB")
}

// validate checks internal consistency. Presence of forge credentials
// is checked by the commands that need them, so local-only commands
// work without tokens.
func validate(cfg *Config) error {
	if cfg.Run.RootGroup != "" && cfg.Run.ProjectPath != "" {
		return errors.New("run.root_group and run.project_path are mutually exclusive")
	}
	if cfg.Budget.MaxAPICalls < 1 {
		return errors.New("budget.max_api_calls must be >= 1")
	}
	if cfg.Budget.MaxPerProjectCalls < 1 {
		return errors.New("budget.max_per_project_calls must be >= 1")
	}
	if cfg.GitLab.TimeoutSeconds < 1 {
		return errors.New("gitlab.timeout must be >= 1")
	}
	if cfg.Deep.ParallelWorkers < 1 {
		return errors.New("deep.parallel_workers must be >= 1")
	}
	if cfg.Git.MaxConcurrent < 1 {
		return errors.New("git.max_concurrent must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if f := cfg.Logging.Format; f != "json" && f != "text" {
		return fmt.Errorf("logging.format must be json or text, got %q", f)
	}
	if cfg.AI.Enabled {
		if cfg.AI.Endpoint == "" || cfg.AI.Deployment == "" {
			return errors.New("ai.endpoint and ai.deployment are required when ai.enabled")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
