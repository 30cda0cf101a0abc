// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points HOME at an empty directory so no user config is found.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"GITHUB_API_ENDPOINT", "GITHUB_GRAPHQL_ENDPOINT",
		"ISSUE_ETL_DB_PATH", "ISSUE_ETL_PAGE_SIZE", "ISSUE_ETL_FETCH_ALL",
		"ISSUE_ETL_ON_CONFLICT", "ISSUE_ETL_METADATA_DIR",
		"ISSUE_ETL_PUSHGATEWAY_URL", "ISSUE_ETL_METRICS_TEXTFILE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "ISSUE_ETL_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
	return home
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GitHub.APIEndpoint != "https://api.github.com" {
		t.Errorf("APIEndpoint = %s, want https://api.github.com", cfg.GitHub.APIEndpoint)
	}
	if cfg.GitHub.GraphQLEndpoint != "https://api.github.com/graphql" {
		t.Errorf("GraphQLEndpoint = %s, want https://api.github.com/graphql", cfg.GitHub.GraphQLEndpoint)
	}
	if cfg.GitHub.TokenEnv != "GITHUB_TOKEN" {
		t.Errorf("TokenEnv = %s, want GITHUB_TOKEN", cfg.GitHub.TokenEnv)
	}
	if cfg.Defaults.DBPath != "github_data.db" {
		t.Errorf("DBPath = %s, want github_data.db", cfg.Defaults.DBPath)
	}
	if cfg.Defaults.PageSize != 0 {
		t.Errorf("PageSize = %d, want 0 (API default)", cfg.Defaults.PageSize)
	}
	if cfg.Defaults.FetchAll {
		t.Error("FetchAll = true, want false")
	}
	if cfg.Defaults.OnConflict != "fail" {
		t.Errorf("OnConflict = %s, want fail", cfg.Defaults.OnConflict)
	}
	if cfg.Metrics.JobName != "issue_etl" {
		t.Errorf("JobName = %s, want issue_etl", cfg.Metrics.JobName)
	}
	if cfg.Tracing.Endpoint != "" {
		t.Errorf("Tracing endpoint = %s, want empty", cfg.Tracing.Endpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
github:
  api_endpoint: https://github.enterprise.com/api/v3
  graphql_endpoint: https://github.enterprise.com/api/graphql
  token_env: GHE_TOKEN

defaults:
  db_path: /data/issues.db
  page_size: 100
  fetch_all: true
  on_conflict: ignore
  metadata_dir: /var/lib/issue-etl

repositories:
  "org/repo":
    page_size: 10
    db_path: /data/org-repo.db

metrics:
  pushgateway_url: http://pushgateway:9091
  job_name: nightly_issues

tracing:
  endpoint: otel-collector:4318

logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.GitHub.APIEndpoint != "https://github.enterprise.com/api/v3" {
		t.Errorf("APIEndpoint = %s", cfg.GitHub.APIEndpoint)
	}
	if cfg.GitHub.TokenEnv != "GHE_TOKEN" {
		t.Errorf("TokenEnv = %s, want GHE_TOKEN", cfg.GitHub.TokenEnv)
	}
	if cfg.Defaults.DBPath != "/data/issues.db" {
		t.Errorf("DBPath = %s", cfg.Defaults.DBPath)
	}
	if cfg.Defaults.PageSize != 100 || !cfg.Defaults.FetchAll {
		t.Errorf("PageSize/FetchAll = %d/%v", cfg.Defaults.PageSize, cfg.Defaults.FetchAll)
	}
	if cfg.Defaults.OnConflict != "ignore" {
		t.Errorf("OnConflict = %s, want ignore", cfg.Defaults.OnConflict)
	}
	if rc, ok := cfg.Repositories["org/repo"]; !ok {
		t.Error("Repository org/repo not found")
	} else if rc.PageSize != 10 {
		t.Errorf("Repository PageSize = %d, want 10", rc.PageSize)
	}
	if cfg.Metrics.PushgatewayURL != "http://pushgateway:9091" || cfg.Metrics.JobName != "nightly_issues" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Tracing.Endpoint != "otel-collector:4318" {
		t.Errorf("Tracing.Endpoint = %s", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.ServiceName != "issue-etl" {
		t.Errorf("Tracing.ServiceName = %s, want default issue-etl", cfg.Tracing.ServiceName)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s", cfg.Logging.Level)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("defaults: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_HomeLocation(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".issue-etl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("defaults:\n  db_path: ~/issues.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if want := filepath.Join(home, "issues.db"); cfg.Defaults.DBPath != want {
		t.Errorf("DBPath = %s, want %s", cfg.Defaults.DBPath, want)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_API_ENDPOINT", "https://custom.api.com")
	t.Setenv("GITHUB_GRAPHQL_ENDPOINT", "https://custom.graphql.com")
	t.Setenv("ISSUE_ETL_DB_PATH", "/env/issues.db")
	t.Setenv("ISSUE_ETL_PAGE_SIZE", "75")
	t.Setenv("ISSUE_ETL_FETCH_ALL", "yes")
	t.Setenv("ISSUE_ETL_ON_CONFLICT", "replace")
	t.Setenv("ISSUE_ETL_PUSHGATEWAY_URL", "http://gw:9091")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("ISSUE_ETL_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.GitHub.APIEndpoint != "https://custom.api.com" {
		t.Errorf("APIEndpoint = %s", cfg.GitHub.APIEndpoint)
	}
	if cfg.GitHub.GraphQLEndpoint != "https://custom.graphql.com" {
		t.Errorf("GraphQLEndpoint = %s", cfg.GitHub.GraphQLEndpoint)
	}
	if cfg.Defaults.DBPath != "/env/issues.db" {
		t.Errorf("DBPath = %s", cfg.Defaults.DBPath)
	}
	if cfg.Defaults.PageSize != 75 {
		t.Errorf("PageSize = %d, want 75", cfg.Defaults.PageSize)
	}
	if !cfg.Defaults.FetchAll {
		t.Error("FetchAll = false, want true")
	}
	if cfg.Defaults.OnConflict != "replace" {
		t.Errorf("OnConflict = %s", cfg.Defaults.OnConflict)
	}
	if cfg.Metrics.PushgatewayURL != "http://gw:9091" {
		t.Errorf("PushgatewayURL = %s", cfg.Metrics.PushgatewayURL)
	}
	if cfg.Tracing.Endpoint != "http://collector:4318" {
		t.Errorf("Tracing.Endpoint = %s", cfg.Tracing.Endpoint)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s", cfg.Logging.Level)
	}
}

func TestEnvironmentOverrides_InvalidPageSizeIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("ISSUE_ETL_PAGE_SIZE", "lots")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Defaults.PageSize != 0 {
		t.Errorf("PageSize = %d, want 0", cfg.Defaults.PageSize)
	}
}

func TestLoadConfigForRepo(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
defaults:
  db_path: /data/all.db
  page_size: 50
repositories:
  "Octocat/Hello-World":
    db_path: /data/hello.db
    page_size: 20
    on_conflict: replace
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigForRepo(path, "octocat/hello-world")
	if err != nil {
		t.Fatalf("LoadConfigForRepo failed: %v", err)
	}
	if cfg.Defaults.DBPath != "/data/hello.db" || cfg.Defaults.PageSize != 20 || cfg.Defaults.OnConflict != "replace" {
		t.Errorf("overrides not applied: %+v", cfg.Defaults)
	}

	t.Setenv("ISSUE_ETL_PAGE_SIZE", "5")
	cfg, err = LoadConfigForRepo(path, "octocat/hello-world")
	if err != nil {
		t.Fatalf("LoadConfigForRepo failed: %v", err)
	}
	if cfg.Defaults.PageSize != 5 {
		t.Errorf("env should win over repository section, PageSize = %d", cfg.Defaults.PageSize)
	}

	cfg, err = LoadConfigForRepo(path, "other/repo")
	if err != nil {
		t.Fatalf("LoadConfigForRepo failed: %v", err)
	}
	if cfg.Defaults.DBPath != "/data/all.db" {
		t.Errorf("DBPath = %s, want /data/all.db", cfg.Defaults.DBPath)
	}
}

func TestGetPageSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.PageSize = 30
	cfg.Repositories["org/small"] = RepoConfig{PageSize: 10}

	tests := []struct {
		repo string
		want int
	}{
		{"org/small", 10},
		{"ORG/Small", 10},
		{"org/other", 30},
	}
	for _, tt := range tests {
		if got := cfg.GetPageSize(tt.repo); got != tt.want {
			t.Errorf("GetPageSize(%s) = %d, want %d", tt.repo, got, tt.want)
		}
	}
}

func TestToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GitHub.TokenEnv = "ISSUE_ETL_TEST_TOKEN"

	t.Setenv("ISSUE_ETL_TEST_TOKEN", "ghp_abc")
	if got := cfg.Token(); got != "ghp_abc" {
		t.Errorf("Token() = %q, want ghp_abc", got)
	}

	cfg.GitHub.TokenEnv = ""
	if got := cfg.Token(); got != "" {
		t.Errorf("Token() = %q, want empty", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"page size too large", func(c *Config) { c.Defaults.PageSize = 101 }, "exceeds GitHub API limit"},
		{"negative page size", func(c *Config) { c.Defaults.PageSize = -1 }, "must not be negative"},
		{"negative max pages", func(c *Config) { c.Defaults.MaxPages = -1 }, "max pages"},
		{"empty db path", func(c *Config) { c.Defaults.DBPath = "" }, "database path"},
		{"bad conflict policy", func(c *Config) { c.Defaults.OnConflict = "upsert" }, "invalid on_conflict"},
		{"upper case policy", func(c *Config) { c.Defaults.OnConflict = "IGNORE" }, ""},
		{"bad repo policy", func(c *Config) { c.Repositories["o/r"] = RepoConfig{OnConflict: "merge"} }, "repository o/r"},
		{"bad repo page size", func(c *Config) { c.Repositories["o/r"] = RepoConfig{PageSize: 500} }, "out of range"},
		{"empty API endpoint", func(c *Config) { c.GitHub.APIEndpoint = "" }, "API endpoint"},
		{"empty GraphQL endpoint", func(c *Config) { c.GitHub.GraphQLEndpoint = "" }, "GraphQL endpoint"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("ISSUE_ETL_TEST_DIR", "/srv")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~/data/issues.db", "/home/tester/data/issues.db"},
		{"$ISSUE_ETL_TEST_DIR/issues.db", "/srv/issues.db"},
		{"relative.db", "relative.db"},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "YES", " 1 ", "on"} {
		if !parseBool(s) {
			t.Errorf("parseBool(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"false", "no", "0", "", "maybe"} {
		if parseBool(s) {
			t.Errorf("parseBool(%q) = true, want false", s)
		}
	}
}

func TestParsePositiveInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"50", 50, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePositiveInt(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePositiveInt(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parsePositiveInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
