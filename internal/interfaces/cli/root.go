// Package cli implements the molgraph command line: local featurization and
// de-featurization, dataset shards in object storage and schema migrations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph-Codec/internal/application/dataset"
	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/internal/config"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/postgres"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/redis"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/storage/minio"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	OutputText = "text"
	OutputJSON = "json"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// CLIContext carries initialised dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration
	Deps         Dependencies
}

// Migrator is the schema migration surface the migrate commands drive.
type Migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

// Dependencies opens the infrastructure a command needs.  Commands call them
// lazily so featurize and defeaturize work without any backing service.
type Dependencies struct {
	OpenShardStore func(ctx context.Context, cfg *config.Config, log logging.Logger) (dataset.ShardStore, error)
	OpenLocker     func(cfg *config.Config, log logging.Logger) (dataset.Locker, func() error, error)
	OpenMigrator   func(cfg *config.Config, log logging.Logger) (Migrator, error)
}

// DefaultDependencies connects to MinIO, Redis and PostgreSQL as configured.
func DefaultDependencies() Dependencies {
	return Dependencies{
		OpenShardStore: func(ctx context.Context, cfg *config.Config, log logging.Logger) (dataset.ShardStore, error) {
			client, err := minio.NewClient(ctx, cfg.MinIO, log)
			if err != nil {
				return nil, err
			}
			return minio.NewShardRepository(client, log), nil
		},
		OpenLocker: func(cfg *config.Config, log logging.Logger) (dataset.Locker, func() error, error) {
			client, err := redis.NewClient(redis.ClientConfigFrom(cfg.Redis), log)
			if err != nil {
				return nil, nil, err
			}
			return redis.NewLockFactory(client, cfg.Redis.KeyPrefix, log), client.Close, nil
		},
		OpenMigrator: func(cfg *config.Config, log logging.Logger) (Migrator, error) {
			m, err := postgres.NewMigrator(cfg.Database, log)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	}
}

// NewRootCommand creates the molgraph command tree.
func NewRootCommand(deps Dependencies) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "molgraph",
		Short: "Molecule graph codec for generative models",
		Long: "molgraph converts molecules into fixed-size node/edge matrices for a\n" +
			"graph GAN and converts generator output back into molecules.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: MOLGRAPH_* environment)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "overall operation timeout")

	cmd.AddCommand(
		newFeaturizeCmd(),
		newDefeaturizeCmd(),
		newDecodeCmd(),
		newDatasetCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, deps Dependencies) error {
	switch opts.OutputFormat {
	case OutputText, OutputJSON:
	default:
		return errors.InvalidParam("unsupported output format").WithDetailf("output=%s", opts.OutputFormat)
	}

	cfg, err := config.LoadOrEnv(opts.ConfigPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "config initialization failed").WithDetail(err.Error())
	}

	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "logger initialization failed").WithDetail(err.Error())
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Timeout:      opts.Timeout,
		Deps:         deps,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Validation("context", "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Validation("context", "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// operationContext bounds a command by the --timeout flag.
func (c *CLIContext) operationContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), c.Timeout)
}

// codecService builds an in-process featurization service from the codec
// section.  Nothing is cached or persisted.
func (c *CLIContext) codecService() featurization.Service {
	codec := c.Config.Codec
	return featurization.NewService(featurization.Config{
		MaxLength:         codec.MaxLength,
		Pad:               codec.Pad,
		StrictDefeaturize: codec.StrictDefeaturize,
		Concurrency:       codec.Concurrency,
	}, nil, c.Logger)
}

// Execute runs the root command with the default dependencies.
func Execute() error {
	rootCmd := NewRootCommand(DefaultDependencies())
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult writes data as JSON when requested, otherwise through text.
func PrintResult(cmd *cobra.Command, data interface{}, text func(w io.Writer) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == OutputJSON || text == nil {
		return printJSON(cmd.OutOrStdout(), data)
	}
	return text(cmd.OutOrStdout())
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes err to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			sb.WriteString(padRight(val, widths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

//Personal.AI order the ending
