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

// Package config types define the settings of an issue-etl run as they
// appear in the YAML configuration file.
package config

// Config is the complete configuration.
type Config struct {
	GitHub       GitHubConfig          `yaml:"github"`
	Defaults     DefaultsConfig        `yaml:"defaults"`
	Repositories map[string]RepoConfig `yaml:"repositories"`
	Metrics      MetricsConfig         `yaml:"metrics"`
	Tracing      TracingConfig         `yaml:"tracing"`
	Logging      LoggingConfig         `yaml:"logging"`
}

// GitHubConfig holds API endpoints and the name of the environment
// variable carrying the token. Custom endpoints target GitHub Enterprise.
type GitHubConfig struct {
	APIEndpoint     string `yaml:"api_endpoint"`
	GraphQLEndpoint string `yaml:"graphql_endpoint"`
	TokenEnv        string `yaml:"token_env"`
}

// DefaultsConfig applies to every repository unless overridden.
type DefaultsConfig struct {
	DBPath      string `yaml:"db_path"`
	PageSize    int    `yaml:"page_size"`
	FetchAll    bool   `yaml:"fetch_all"`
	MaxPages    int    `yaml:"max_pages"`
	OnConflict  string `yaml:"on_conflict"`
	MetadataDir string `yaml:"metadata_dir"`
}

// RepoConfig overrides defaults for one "owner/repo".
type RepoConfig struct {
	DBPath     string `yaml:"db_path"`
	PageSize   int    `yaml:"page_size"`
	OnConflict string `yaml:"on_conflict"`
}

// MetricsConfig selects where run metrics are delivered. Both targets are
// optional and may be combined.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	TextfilePath   string `yaml:"textfile_path"`
	JobName        string `yaml:"job_name"`
}

// TracingConfig selects the OTLP/HTTP collector. An empty endpoint
// disables tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// LoggingConfig sets the diagnostic log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in configuration: public GitHub, the
// github_data.db file in the working directory, first page only, and fail
// on duplicate ids.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIEndpoint:     "https://api.github.com",
			GraphQLEndpoint: "https://api.github.com/graphql",
			TokenEnv:        "GITHUB_TOKEN",
		},
		Defaults: DefaultsConfig{
			DBPath:     "github_data.db",
			OnConflict: "fail",
		},
		Repositories: make(map[string]RepoConfig),
		Metrics: MetricsConfig{
			JobName: "issue_etl",
		},
		Tracing: TracingConfig{
			ServiceName: "issue-etl",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
