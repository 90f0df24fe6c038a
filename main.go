package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/example/studyquest/internal/calendar"
	"github.com/example/studyquest/internal/config"
	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/notify"
	"github.com/example/studyquest/internal/progress"
	"github.com/example/studyquest/internal/ratelimit"
	"github.com/example/studyquest/internal/scheduler"
	"github.com/example/studyquest/internal/server"
)

const shutdownTimeout = 10 * time.Second

// limiters idle longer than this are dropped by the sweep job
const limiterTTL = 30 * time.Minute

var (
	envFile  string
	httpAddr string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "studyquest",
		Short:        "Progress and reward engine for family study sessions",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default ./.env when present)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "listen address, overrides STUDYQUEST_HTTP_ADDR")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed quest and achievement definitions",
		RunE:  runMigrate,
	})
	rootCmd.AddCommand(newExportLedgerCmd())
	rootCmd.AddCommand(newCreateProfileCmd())
	rootCmd.AddCommand(newLinkTelegramCmd())
	rootCmd.AddCommand(newIssueTokenCmd())
	return rootCmd
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openDatabase(cfg *config.Config, logger *slog.Logger) (*database.Database, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	logger.Info("database ready", "driver", cfg.DBDriver)
	return db, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	return db.Close()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if err := cfg.RequireServe(); err != nil {
		return err
	}

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := progress.New(db,
		progress.WithCalendar(calendar.New(cfg.Location())),
		progress.WithLogger(logger),
	)
	limiter := ratelimit.New(cfg.SyncRatePerSecond, cfg.SyncBurst, limiterTTL)
	api := server.New(svc, server.NewAuthenticator(cfg.JWTSecret), limiter, logger)

	jobOpts := []scheduler.Option{scheduler.WithSweeper(limiter), scheduler.WithLogger(logger)}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, logger)
		if err != nil {
			// reminders are optional; the API still serves
			logger.Warn("telegram reminders disabled", "error", err)
		} else {
			jobOpts = append(jobOpts, scheduler.WithNotifier(tg))
		}
	}
	jobs := scheduler.New(db, scheduler.Config{
		ReminderStartHour:  cfg.ReminderStartHour,
		ReminderEndHour:    cfg.ReminderEndHour,
		SyncBatchRetention: cfg.SyncBatchRetention,
		Location:           cfg.Location(),
	}, jobOpts...)
	if err := jobs.Start(ctx); err != nil {
		return err
	}
	defer jobs.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- api.Start(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
