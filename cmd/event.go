package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/muamalati/internal/core/events"
	"github.com/frahmantamala/muamalati/internal/notification"
	notificationPostgres "github.com/frahmantamala/muamalati/internal/notification/postgres"
	"github.com/frahmantamala/muamalati/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish portal events by hand, e.g. to resend a welcome email`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish an event through the notification dispatcher",
	Long:  `Publish an event to the event bus with the notification dispatcher subscribed. Supported: user.registered`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishEvent(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	},
}

var eventUserID string

func publishEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if eventType != events.EventTypeUserRegistered {
		return fmt.Errorf("unsupported event type %q", eventType)
	}
	if eventUserID == "" {
		return fmt.Errorf("--user is required")
	}

	config, err := loadConfig(".")
	if err != nil {
		return err
	}
	lg := logger.Configure(logger.Options{Env: config.App.Env, Level: config.Observability.Logging.Level})

	db, err := initDB(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gdb, err := initGorm(db, config.App)
	if err != nil {
		return err
	}

	directory := notificationPostgres.NewDirectory(gdb)
	contact, err := directory.Contact(ctx, eventUserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	mail := newMailClient(config.Mail, gdb, lg)
	defer mail.Shutdown()

	bus := events.NewEventBus(lg)
	notification.NewDispatcher(notificationPostgres.NewNotificationRepository(gdb), directory, mail, lg).
		RegisterEventHandlers(bus)

	event := events.NewUserRegisteredEvent(eventUserID, contact.Email, contact.FullName)
	lg.Info("publishing event", "event_type", eventType, "event_id", event.EventID())

	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	lg.Info("event published", "event_id", event.EventID())
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventUserID, "user", "", "User id the event refers to")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
