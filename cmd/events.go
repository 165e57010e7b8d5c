/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scholarhub/apiserver/config"
	"github.com/scholarhub/apiserver/internal/logging"
	"github.com/scholarhub/apiserver/internal/mq"
	"github.com/scholarhub/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect application lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log application events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := mq.FromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if events == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer func() { _ = events.Close() }()

		logger.Info("tailing application events", zap.String("channel", cfg.MQ.Channel))
		err = events.Subscribe(ctx, cfg.MQ.Channel, logEvent(logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe %s: %w", cfg.MQ.Channel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}

// logEvent acknowledges every message. Undecodable payloads are logged and
// dropped so they are not redelivered forever.
func logEvent(logger *zap.Logger) mq.Handler {
	return func(_ context.Context, msg mq.Message) error {
		var event types.ApplicationEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("undecodable event", zap.String("id", msg.ID), zap.Error(err))
			return nil
		}
		logger.Info("application event",
			zap.String("id", msg.ID),
			zap.String("type", event.Type),
			zap.String("application_id", event.ApplicationID.String()),
			zap.String("status", string(event.Status)),
			zap.String("actor", event.Actor),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
