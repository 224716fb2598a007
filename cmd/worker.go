package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/globaltrotters/apiserver/config"
	"github.com/globaltrotters/apiserver/internal/mq"
	"github.com/globaltrotters/apiserver/internal/notify"
	"github.com/globaltrotters/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Sends notification emails for domain events",
	Long: `Consumes user.registered and trip.planned events from the configured
broker and sends the matching emails over SMTP. Usage:

	globaltrotters worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWorker(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(ctx context.Context, cfg config.Config) error {
	mailer, err := notify.NewMailer(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		return fmt.Errorf("mq: %w", err)
	}
	if broker == nil {
		return errors.New("MQ_BACKEND is required for the worker")
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Printf("worker: close mq: %v", err)
		}
	}()

	notifier := notify.NewNotifier(mailer)
	subscriptions := map[string]mq.Handler{
		types.ChannelUserRegistered: notifier.HandleUserRegistered,
		types.ChannelTripPlanned:    notifier.HandleTripPlanned,
		types.ChannelPostCreated:    notifier.HandlePostCreated,
	}

	g, ctx := errgroup.WithContext(ctx)
	for channel, handler := range subscriptions {
		g.Go(func() error {
			log.Printf("worker: subscribed to %s", channel)
			if err := broker.Subscribe(ctx, channel, handler); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("subscribe %s: %w", channel, err)
			}
			return nil
		})
	}
	return g.Wait()
}
