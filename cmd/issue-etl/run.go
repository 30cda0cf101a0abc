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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirseerhq/issue-etl/internal/config"
	etlerrors "github.com/sirseerhq/issue-etl/internal/errors"
	"github.com/sirseerhq/issue-etl/internal/giterror"
	"github.com/sirseerhq/issue-etl/internal/github"
	"github.com/sirseerhq/issue-etl/internal/logging"
	"github.com/sirseerhq/issue-etl/internal/metadata"
	"github.com/sirseerhq/issue-etl/internal/metrics"
	"github.com/sirseerhq/issue-etl/internal/output"
	"github.com/sirseerhq/issue-etl/internal/pipeline"
	"github.com/sirseerhq/issue-etl/internal/store"
	"github.com/sirseerhq/issue-etl/internal/tracing"
	"github.com/sirseerhq/issue-etl/pkg/version"
)

// defaultRepository is used when no repository argument is given.
const defaultRepository = "octocat/Hello-World"

// runFlags holds the values of the run command's flags.
type runFlags struct {
	token       string
	dbPath      string
	configPath  string
	fetchAll    bool
	pageSize    int
	maxPages    int
	onConflict  string
	exportPath  string
	metadataDir string
	verbose     bool
}

// runDeps are the collaborators a run needs beyond its flags.
type runDeps struct {
	stdout     io.Writer
	newClient  func(cfg *config.Config) pipeline.ClientFactory
	newCounter func(cfg *config.Config) pipeline.CounterFactory
	newLogger  func(level string) (*zap.Logger, error)
}

func defaultRunDeps() runDeps {
	return runDeps{
		stdout: os.Stdout,
		newClient: func(cfg *config.Config) pipeline.ClientFactory {
			return func(token string) github.Client {
				return github.NewRESTClient(github.RESTConfig{APIEndpoint: cfg.GitHub.APIEndpoint, Token: token})
			}
		},
		newCounter: func(cfg *config.Config) pipeline.CounterFactory {
			return func(token string) github.IssueCounter {
				return github.NewGraphQLCounter(token, cfg.GitHub.GraphQLEndpoint)
			}
		},
		newLogger: logging.New,
	}
}

func newRunCommand(deps runDeps) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [<owner>/<repo>]",
		Short: "Extract issues from a GitHub repository into SQLite",
		Long: `Extract the issue list of a GitHub repository, project each issue onto
the stored columns and append the rows to the issues table.

The repository defaults to ` + defaultRepository + `. Only the first page of
issues is fetched unless --all is given.

Authentication is optional:
  - Use --token flag to provide token directly
  - Or set GITHUB_TOKEN (or the variable named by github.token_env)

Re-running against the same database fails on duplicate issue ids unless
--on-conflict is ignore or replace.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoArg := defaultRepository
			if len(args) == 1 {
				repoArg = args[0]
			}
			return runETL(cmd.Context(), repoArg, flags, cmd.Flags().Changed, deps)
		},
	}

	cmd.Flags().StringVar(&flags.token, "token", "", "GitHub personal access token (overrides GITHUB_TOKEN env var)")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "SQLite database file (default: github_data.db)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Configuration file (default: .issue-etl.yaml or ~/.issue-etl/config.yaml)")
	cmd.Flags().BoolVar(&flags.fetchAll, "all", false, "Fetch every page of issues instead of the first page only")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "Issues per API page, 1-100 (default: API default)")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "Stop an --all fetch after this many pages (0: no limit)")
	cmd.Flags().StringVar(&flags.onConflict, "on-conflict", "", "What to do with an issue id that is already stored: fail, ignore or replace (default: fail)")
	cmd.Flags().StringVar(&flags.exportPath, "export", "", "Also write the projected issues to this NDJSON file")
	cmd.Flags().StringVar(&flags.metadataDir, "metadata-dir", "", "Directory for run metadata records (default: disabled)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	return cmd
}

// runETL executes one pipeline run.
func runETL(ctx context.Context, repoArg string, flags runFlags, changed func(string) bool, deps runDeps) (err error) {
	owner, repo, err := parseRepository(repoArg)
	if err != nil {
		return err
	}
	fullName := owner + "/" + repo

	cfg, err := config.LoadConfigForRepo(flags.configPath, fullName)
	if err != nil {
		return err
	}
	applyFlags(cfg, flags, changed)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	policy, err := store.ParseConflictPolicy(cfg.Defaults.OnConflict)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if flags.verbose {
		level = "debug"
	}
	logger, err := deps.newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tracer, shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := shutdownTracing(shutdownCtx); serr != nil {
			logger.Warn("failed to flush traces", zap.Error(serr))
		}
	}()

	recorder := metrics.NewRecorder(fullName)
	tracker := metadata.New()
	logger = logger.With(zap.String("run_id", tracker.RunID()))

	opts := []pipeline.Option{
		pipeline.WithProgress(deps.stdout),
		pipeline.WithLogger(logger),
		pipeline.WithTracer(tracer),
		pipeline.WithMetrics(recorder),
		pipeline.WithTracker(tracker),
	}

	var exporter *output.Writer
	if flags.exportPath != "" {
		exporter, err = output.Create(flags.exportPath)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithExporter(exporter))
	}

	fetcher := pipeline.NewGitHubFetcher(
		deps.newClient(cfg),
		pipeline.FetchSettings{
			All:      cfg.Defaults.FetchAll,
			PageSize: cfg.Defaults.PageSize,
			MaxPages: cfg.Defaults.MaxPages,
		},
		pipeline.WithCounter(deps.newCounter(cfg)),
		pipeline.WithFetchLogger(logger),
	)
	loader := store.NewLoader(cfg.Defaults.DBPath, policy)

	token := getToken(flags.token, cfg)
	logger.Debug("starting run",
		zap.String("repository", fullName),
		zap.String("database", loader.Target()),
		zap.String("on_conflict", string(policy)),
		zap.Bool("fetch_all", cfg.Defaults.FetchAll),
		zap.Bool("authenticated", token != ""))

	res, runErr := pipeline.New(fetcher, loader, opts...).Run(ctx, pipeline.Request{
		Owner: owner,
		Repo:  repo,
		Token: token,
	})

	if exporter != nil {
		if runErr != nil {
			exporter.Abort()
		} else if cerr := exporter.Close(); cerr != nil {
			runErr = cerr
		}
	}

	if cfg.Defaults.MetadataDir != "" {
		params := metadata.RunParams{
			Owner:          owner,
			Repository:     repo,
			FetchAll:       cfg.Defaults.FetchAll,
			PageSize:       cfg.Defaults.PageSize,
			Database:       loader.Target(),
			ConflictPolicy: string(policy),
			Authenticated:  token != "",
		}
		saveMetadata(logger, cfg.Defaults.MetadataDir, tracker, params, res, runErr)
	}

	deliverMetrics(ctx, logger, cfg.Metrics, recorder)

	if runErr != nil {
		return giterror.Annotate(giterror.NewInspector(), runErr, owner, repo)
	}
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config, flags runFlags, changed func(string) bool) {
	if changed("db") {
		cfg.Defaults.DBPath = flags.dbPath
	}
	if changed("all") {
		cfg.Defaults.FetchAll = flags.fetchAll
	}
	if changed("page-size") {
		cfg.Defaults.PageSize = flags.pageSize
	}
	if changed("max-pages") {
		cfg.Defaults.MaxPages = flags.maxPages
	}
	if changed("on-conflict") {
		cfg.Defaults.OnConflict = flags.onConflict
	}
	if changed("metadata-dir") {
		cfg.Defaults.MetadataDir = flags.metadataDir
	}
}

func saveMetadata(logger *zap.Logger, dir string, tracker *metadata.Tracker, params metadata.RunParams, res *pipeline.Result, runErr error) {
	var previous *metadata.RunRef
	if last, err := metadata.LoadLatestMetadata(dir, params.FullName()); err != nil {
		logger.Warn("failed to read previous run metadata", zap.Error(err))
	} else if last != nil {
		previous = last.Ref()
	}

	failedStage := ""
	if runErr != nil && res != nil && res.Stage == pipeline.Failed {
		failedStage = res.FailedStage.Step()
	}

	record := tracker.Generate(version.Version, params, runErr, failedStage, previous)
	path, err := metadata.SaveMetadata(record, dir)
	if err != nil {
		logger.Warn("failed to save run metadata", zap.Error(err))
		return
	}
	logger.Debug("saved run metadata", zap.String("path", path))
}

func deliverMetrics(ctx context.Context, logger *zap.Logger, cfg config.MetricsConfig, recorder *metrics.Recorder) {
	if cfg.TextfilePath != "" {
		if err := recorder.WriteTextfile(cfg.TextfilePath); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := recorder.Push(pushCtx, cfg.PushgatewayURL, cfg.JobName); err != nil {
			logger.Warn("failed to push metrics", zap.Error(err))
		}
	}
}

// parseRepository parses an owner/repo string into its components
func parseRepository(repoArg string) (owner, repo string, err error) {
	parts := strings.Split(repoArg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	return owner, repo, nil
}

// getToken returns the token from the flag, else from the environment
// variable named in the configuration. An empty result means anonymous.
func getToken(flagToken string, cfg *config.Config) string {
	if flagToken != "" {
		return flagToken
	}
	return cfg.Token()
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, etlerrors.ErrInvalidToken) ||
		errors.Is(err, etlerrors.ErrRepoNotFound) ||
		errors.Is(err, etlerrors.ErrRateLimit) {
		return 2 // Authentication/authorization errors
	}

	if errors.Is(err, etlerrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	if errors.Is(err, etlerrors.ErrStorage) {
		return 4 // Database errors
	}

	return 1 // General error
}
