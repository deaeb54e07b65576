// Command explorer runs the AI Content Explorer API gateway.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/infra/config"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
	"github.com/matiasleandrokruk/explorer/internal/server"
	"github.com/matiasleandrokruk/explorer/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the CLI and returns the process exit code.
func run(args []string, out io.Writer) int {
	root := rootCmd(out)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(out, "Error:", err) //nolint:errcheck
		return 1
	}
	return 0
}

func rootCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explorer",
		Short: "AI Content Explorer API gateway",
		Long: `AI Content Explorer: authenticated web search and image generation
backed by remote MCP tool providers, with a synthetic fallback.

Configuration comes from built-in defaults, the YAML file named by
EXPLORER_CONFIG, a .env file and the environment (JWT_SECRET is required).

Examples:
  explorer                 # same as 'explorer serve'
  explorer migrate         # apply database migrations and exit
  explorer version`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.SetVersionTemplate(version.String() + "\n")

	cmd.AddCommand(serveCmd(), migrateCmd(out), versionCmd(out))
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := ensureDataDir(cfg.Database.Path); err != nil {
				return err
			}
			db, err := sqlite.NewDB(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := contextOrBackground(cmd.Context())
			if err := sqlite.MigrateUp(ctx, db); err != nil {
				return err
			}
			v, err := sqlite.MigrationVersion(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "database %s at schema version %d\n", cfg.Database.Path, v) //nolint:errcheck
			return nil
		},
	}
}

func versionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(out, version.String()) //nolint:errcheck
		},
	}
}

// serve loads and validates configuration, then runs the server until SIGINT or SIGTERM.
func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ensureDataDir(cfg.Database.Path); err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(contextOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	return srv.Run(ctx)
}

// ensureDataDir creates the parent directory of a file database.
func ensureDataDir(path string) error {
	if path == sqlite.MemoryPath {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
