package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/muamalati/internal/mailer"
	mailerPostgres "github.com/frahmantamala/muamalati/internal/mailer/postgres"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers such as the email outbox poller.`,
}

var mailWorkerCmd = &cobra.Command{
	Use:   "mail",
	Short: "Start the email outbox worker",
	Long:  `Poll the email outbox and deliver pending messages through the worker pool`,
	Run: func(cmd *cobra.Command, args []string) {
		startMailWorker()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	pollInterval time.Duration
)

func startMailWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.Configure(logger.Options{
		Env:    config.App.Env,
		Level:  config.Observability.Logging.Level,
		Format: config.Observability.Logging.Format,
	})

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gdb, err := initGorm(db, config.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orm: %v\n", err)
		os.Exit(1)
	}

	// Use command line flags if provided, otherwise use config values
	mailCfg := config.Mail
	mailCfg.MaxWorkers = getIntFlag(maxWorkers, mailCfg.MaxWorkers)
	mailCfg.QueueSize = getIntFlag(jobQueueSize, mailCfg.QueueSize)
	interval := getDurationFlag(pollInterval, mailCfg.PollInterval)

	lg.Info("starting mail worker",
		"max_workers", mailCfg.MaxWorkers,
		"queue_size", mailCfg.QueueSize,
		"poll_interval", interval,
		"smtp_enabled", mailCfg.Enabled)

	client := newMailClient(mailCfg, gdb, lg)
	poller := mailer.NewPoller(mailerPostgres.NewOutboxRepository(gdb), client, interval, lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("mail worker is running. Press Ctrl+C to stop.")
	poller.Run(ctx)

	lg.Info("received signal, shutting down mail worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		client.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("mail worker pool shutdown complete")
	case <-shutdownCtx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	mailWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	mailWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	mailWorkerCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Outbox poll interval (overrides config)")

	workerCmd.AddCommand(mailWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
