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

// Package config loads issue-etl configuration from several sources with a
// fixed precedence order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags (applied by the caller)
//  2. Environment variables
//  3. Repository-specific configuration
//  4. Configuration file
//  5. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration. If configPath is empty it searches:
//   - .issue-etl.yaml (current directory)
//   - .issue-etl.yml (current directory)
//   - ~/.issue-etl/config.yaml
//   - ~/.issue-etl/config.yml
//
// Finding no file is not an error. Environment overrides are applied after
// the file, then ~ and $VARS are expanded in paths.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		home := homeDir()
		defaultPaths := []string{
			".issue-etl.yaml",
			".issue-etl.yml",
			filepath.Join(home, ".issue-etl", "config.yaml"),
			filepath.Join(home, ".issue-etl", "config.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.Defaults.DBPath = expandPath(cfg.Defaults.DBPath)
	cfg.Defaults.MetadataDir = expandPath(cfg.Defaults.MetadataDir)
	cfg.Metrics.TextfilePath = expandPath(cfg.Metrics.TextfilePath)

	return cfg, nil
}

// LoadConfigForRepo loads configuration and folds the overrides for repo
// ("owner/repo") into Defaults. Environment variables still win over the
// repository section.
func LoadConfigForRepo(configPath, repo string) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if rc, ok := cfg.lookupRepo(repo); ok {
		if rc.DBPath != "" && os.Getenv("ISSUE_ETL_DB_PATH") == "" {
			cfg.Defaults.DBPath = expandPath(rc.DBPath)
		}
		if rc.PageSize > 0 && os.Getenv("ISSUE_ETL_PAGE_SIZE") == "" {
			cfg.Defaults.PageSize = rc.PageSize
		}
		if rc.OnConflict != "" && os.Getenv("ISSUE_ETL_ON_CONFLICT") == "" {
			cfg.Defaults.OnConflict = rc.OnConflict
		}
	}

	return cfg, nil
}

func (c *Config) lookupRepo(repo string) (RepoConfig, bool) {
	if rc, ok := c.Repositories[repo]; ok {
		return rc, true
	}
	for name, rc := range c.Repositories {
		if strings.EqualFold(name, repo) {
			return rc, true
		}
	}
	return RepoConfig{}, false
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if endpoint := os.Getenv("GITHUB_API_ENDPOINT"); endpoint != "" {
		cfg.GitHub.APIEndpoint = endpoint
	}
	if endpoint := os.Getenv("GITHUB_GRAPHQL_ENDPOINT"); endpoint != "" {
		cfg.GitHub.GraphQLEndpoint = endpoint
	}

	if path := os.Getenv("ISSUE_ETL_DB_PATH"); path != "" {
		cfg.Defaults.DBPath = path
	}
	if pageSize := os.Getenv("ISSUE_ETL_PAGE_SIZE"); pageSize != "" {
		if size, err := parsePositiveInt(pageSize); err == nil {
			cfg.Defaults.PageSize = size
		}
	}
	if all := os.Getenv("ISSUE_ETL_FETCH_ALL"); all != "" {
		cfg.Defaults.FetchAll = parseBool(all)
	}
	if policy := os.Getenv("ISSUE_ETL_ON_CONFLICT"); policy != "" {
		cfg.Defaults.OnConflict = policy
	}
	if dir := os.Getenv("ISSUE_ETL_METADATA_DIR"); dir != "" {
		cfg.Defaults.MetadataDir = dir
	}

	if url := os.Getenv("ISSUE_ETL_PUSHGATEWAY_URL"); url != "" {
		cfg.Metrics.PushgatewayURL = url
	}
	if path := os.Getenv("ISSUE_ETL_METRICS_TEXTFILE"); path != "" {
		cfg.Metrics.TextfilePath = path
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		cfg.Tracing.ServiceName = name
	}

	if level := os.Getenv("ISSUE_ETL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE") // Windows
	}
	return home
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(homeDir(), path[2:])
	}
	return os.ExpandEnv(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// parseBool parses various boolean representations
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// Token returns the API token from the environment variable named by
// github.token_env, or "" for anonymous access.
func (c *Config) Token() string {
	if c.GitHub.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.GitHub.TokenEnv)
}

// GetPageSize returns the effective page size for repo, honoring a
// repository override.
func (c *Config) GetPageSize(repo string) int {
	if rc, ok := c.lookupRepo(repo); ok && rc.PageSize > 0 {
		return rc.PageSize
	}
	return c.Defaults.PageSize
}

var validConflictPolicies = map[string]bool{"fail": true, "ignore": true, "replace": true}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks value ranges and required settings.
func (c *Config) Validate() error {
	if c.Defaults.PageSize < 0 {
		return fmt.Errorf("page size must not be negative, got: %d", c.Defaults.PageSize)
	}
	if c.Defaults.PageSize > 100 {
		return fmt.Errorf("page size %d exceeds GitHub API limit of 100", c.Defaults.PageSize)
	}
	if c.Defaults.MaxPages < 0 {
		return fmt.Errorf("max pages must not be negative, got: %d", c.Defaults.MaxPages)
	}
	if c.Defaults.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if !validConflictPolicies[strings.ToLower(c.Defaults.OnConflict)] {
		return fmt.Errorf("invalid on_conflict %q: must be fail, ignore or replace", c.Defaults.OnConflict)
	}
	for name, rc := range c.Repositories {
		if rc.PageSize < 0 || rc.PageSize > 100 {
			return fmt.Errorf("repository %s: page size %d out of range 1-100", name, rc.PageSize)
		}
		if rc.OnConflict != "" && !validConflictPolicies[strings.ToLower(rc.OnConflict)] {
			return fmt.Errorf("repository %s: invalid on_conflict %q", name, rc.OnConflict)
		}
	}
	if c.GitHub.APIEndpoint == "" {
		return fmt.Errorf("GitHub API endpoint cannot be empty")
	}
	if c.GitHub.GraphQLEndpoint == "" {
		return fmt.Errorf("GitHub GraphQL endpoint cannot be empty")
	}
	if c.Logging.Level != "" && !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	return nil
}
