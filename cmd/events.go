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

	"github.com/jjudge-oj/catalog/config"
	"github.com/jjudge-oj/catalog/internal/mq"
	"github.com/jjudge-oj/catalog/internal/services"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect problem lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print problem events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("no message broker configured, set MQ_BACKEND")
		}
		defer broker.Close()

		enc := json.NewEncoder(os.Stdout)
		err = broker.Subscribe(ctx, cfg.MQ.ProblemEventsChannel, func(ctx context.Context, msg mq.Message) error {
			var event services.ProblemEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// Undecodable payloads are dropped rather than redelivered forever.
				fmt.Fprintf(os.Stderr, "skipping message %s: %v\n", msg.ID, err)
				return nil
			}
			return enc.Encode(event)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
