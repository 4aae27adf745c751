// Package config provides hierarchical configuration loading for
// ForgeShift. Precedence: defaults < YAML file < .env file <
// environment variables. CLI flags override last, in the command
// layer.
package config

import "time"

// Config holds all runtime configuration for a migration run.
type Config struct {
	GitLab  GitLab  `yaml:"gitlab"`
	GitHub  GitHub  `yaml:"github"`
	Run     Run     `yaml:"run"`
	Budget  Budget  `yaml:"budget"`
	Deep    Deep    `yaml:"deep"`
	AI      AI      `yaml:"ai"`
	Git     Git     `yaml:"git"`
	Status  Status  `yaml:"status"`
	Otel    Otel    `yaml:"otel"`
	Logging Logging `yaml:"logging"`
	Breaker Breaker `yaml:"breaker"`
	Cache   Cache   `yaml:"cache"`
}

// GitLab holds source forge connection configuration. Discovery and
// export only ever read from it.
type GitLab struct {
	BaseURL              string `yaml:"base_url"`
	Token                string `yaml:"token"`
	TimeoutSeconds       int    `yaml:"timeout"`
	VerifySSL            bool   `yaml:"verify_ssl"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
}

// GitHub holds destination forge connection configuration. UploadURL
// is only needed against github.com, whose asset uploads live on a
// separate host.
type GitHub struct {
	BaseURL              string `yaml:"base_url"`
	UploadURL            string `yaml:"upload_url"`
	Token                string `yaml:"token"`
	Org                  string `yaml:"org"`
	TimeoutSeconds       int    `yaml:"timeout"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
}

// Run selects what to scan and where outputs land. RootGroup and
// ProjectPath are mutually exclusive; with both empty, discovery walks
// every visible top-level group.
type Run struct {
	RootGroup   string `yaml:"root_group"`
	ProjectPath string `yaml:"project_path"`
	OutputDir   string `yaml:"output_dir"`
}

// Budget bounds forge API usage.
type Budget struct {
	MaxAPICalls        int `yaml:"max_api_calls"`
	MaxPerProjectCalls int `yaml:"max_per_project_calls"`
}

// Deep holds deep-analysis configuration.
type Deep struct {
	Enabled         bool `yaml:"enabled"`
	TopN            int  `yaml:"top_n"`
	ParallelWorkers int  `yaml:"parallel_workers"`
}

// AI holds the optional LLM augmentation endpoint. Disabled unless
// Enabled and Endpoint are both set.
type AI struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// Git bounds concurrent git subprocesses.
type Git struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Status configures the read-only status server. An empty Addr
// disables it.
type Status struct {
	Addr string `yaml:"addr"`
}

// Otel configures the OTLP gRPC exporter. An empty Endpoint disables
// telemetry.
type Otel struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // "json" or "text"
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for the LLM endpoint.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// Cache bounds the analyzer's in-process response cache.
type Cache struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// Defaults returns a Config with the documented default values.
func Defaults() Config {
	return Config{
		GitLab: GitLab{
			TimeoutSeconds: 30,
			VerifySSL:      true,
		},
		GitHub: GitHub{
			BaseURL:        "https://api.github.com",
			TimeoutSeconds: 30,
		},
		Run: Run{
			OutputDir: "forgeshift-out",
		},
		Budget: Budget{
			MaxAPICalls:        5000,
			MaxPerProjectCalls: 200,
		},
		Deep: Deep{
			TopN:            10,
			ParallelWorkers: 4,
		},
		Git: Git{
			MaxConcurrent: 4,
		},
		Logging: Logging{
			Level:   "info",
			Format:  "json",
			Service: "forgeshift",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB: 64,
		},
	}
}
