package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadFromFullHierarchy exercises all four layers at once:
// defaults, YAML, .env, and exported environment variables, with each
// later layer winning.
func TestLoadFromFullHierarchy(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yamlPath := filepath.Join(dir, "forgeshift.yaml")
	yamlData := []byte(`gitlab:
  base_url: https://yaml.example.com
  token: yaml-token
github:
  org: yaml-org
budget:
  max_api_calls: 100
`)
	if err := os.WriteFile(yamlPath, yamlData, 0o600); err != nil {
		t.Fatal(err)
	}

	envData := []byte("FORGESHIFT_GITLAB_TOKEN=dotenv-token\nFORGESHIFT_GITHUB_ORG=dotenv-org\n")
	if err := os.WriteFile(filepath.Join(dir, ".env"), envData, 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv mutates the process environment without cleanup.
	t.Cleanup(func() { os.Unsetenv("FORGESHIFT_GITLAB_TOKEN") })

	t.Setenv("FORGESHIFT_GITHUB_ORG", "env-org")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	// YAML over defaults.
	if cfg.GitLab.BaseURL != "https://yaml.example.com" {
		t.Errorf("base_url = %q", cfg.GitLab.BaseURL)
	}
	if cfg.Budget.MaxAPICalls != 100 {
		t.Errorf("max_api_calls = %d", cfg.Budget.MaxAPICalls)
	}
	// .env over YAML.
	if cfg.GitLab.Token != "dotenv-token" {
		t.Errorf("gitlab token = %q, want .env to beat yaml", cfg.GitLab.Token)
	}
	// Exported env over .env.
	if cfg.GitHub.Org != "env-org" {
		t.Errorf("github org = %q, want exported env to beat .env", cfg.GitHub.Org)
	}
	// Untouched keys keep defaults through every layer.
	if cfg.Budget.MaxPerProjectCalls != 200 {
		t.Errorf("max_per_project_calls = %d, want default", cfg.Budget.MaxPerProjectCalls)
	}
}

func TestLoadFromValidates(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yamlPath := filepath.Join(dir, "forgeshift.yaml")
	yamlData := []byte(`run:
  root_group: platform
  project_path: platform/api
`)
	if err := os.WriteFile(yamlPath, yamlData, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(yamlPath); err == nil {
		t.Fatal("conflicting run targets should fail LoadFrom")
	}
}

func TestLoadFromMissingEverything(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadFrom(filepath.Join(dir, "forgeshift.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom with no files should fall back to defaults: %v", err)
	}
	if cfg.Run.OutputDir != "forgeshift-out" {
		t.Errorf("output_dir = %q", cfg.Run.OutputDir)
	}
}
