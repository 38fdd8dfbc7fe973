package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tair/fundwatch/kafka"
	"github.com/tair/fundwatch/pkg/logger"
)

func eventsCmd() *cobra.Command {
	var (
		groupID    string
		fromOldest bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail favorite toggle events from Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.KafkaBrokers) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is not configured")
			}

			consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, groupID, []string{kafka.TopicFavoriteToggled}, fromOldest)
			if err != nil {
				return err
			}
			defer consumer.Close()

			consumer.RegisterHandler(kafka.EventTypeFavoriteToggled, func(ctx context.Context, e kafka.FavoriteToggledEvent) error {
				logger.Info(ctx).
					Str("event_id", e.EventID).
					Str("user_key", e.UserKey).
					Str("fund_code", e.FundCode).
					Bool("is_favorite", e.IsFavorite).
					Str("source", e.Source).
					Str("outcome", e.Outcome).
					Time("timestamp", e.Timestamp).
					Msg("Favorite toggled")
				return nil
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return consumer.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "fundwatch-events-tail", "Consumer group ID")
	cmd.Flags().BoolVar(&fromOldest, "from-beginning", false, "Replay the topic from the oldest offset")

	return cmd
}
