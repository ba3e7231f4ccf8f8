package commands

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rongwang/ledgerbook/internal/config"
	"github.com/rongwang/ledgerbook/internal/metrics"
	"github.com/rongwang/ledgerbook/internal/repository"
	"github.com/rongwang/ledgerbook/internal/service"
	"github.com/rongwang/ledgerbook/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
// Running it without a subcommand starts the server.
func NewRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "ledgerbook",
		Short: "Double-entry bookkeeping API server",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	serveCmd := newServeCommand()
	rootCmd.RunE = serveCmd.RunE

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newReconcileCommand())

	return rootCmd
}

// app bundles the dependencies every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sqlx.DB
	metrics *metrics.Metrics
	svc     service.Service
}

func newApp() (*app, error) {
	cfg := config.LoadConfig()
	logger := utils.NewLogger(cfg.Server.LogLevel)

	db, err := config.SetupDatabase(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("setting up database: %w", err)
	}

	m := metrics.New()
	repo := repository.NewPostgresRepository(db)
	svc := service.NewDefaultService(repo, logger, m, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		metrics: m,
		svc:     svc,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
	a.logger.Sync()
}
