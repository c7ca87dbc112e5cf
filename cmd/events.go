/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/messagely/apiserver/config"
	"github.com/messagely/apiserver/internal/events"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume message lifecycle events from the configured broker",
	Long: `Consume message lifecycle events from the configured broker and log
each one. Intended as the skeleton for notification workers. Usage:

	EVENTS_BACKEND=rabbitmq messagely events
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		backend, err := events.NewBackend(cmd.Context(), cfg.Events)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to broker: %v\n", err)
			os.Exit(1)
		}
		defer backend.Close()

		err = backend.Subscribe(cmd.Context(), events.Channel, func(ctx context.Context, msg events.Message) error {
			var event events.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Printf("events: skip malformed delivery %s: %v", msg.ID, err)
				return nil
			}
			log.Printf("events: %s message=%d from=%s to=%s at=%s",
				event.Type, event.MessageID, event.FromUsername, event.ToUsername, event.OccurredAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		})
		if err != nil && cmd.Context().Err() == nil {
			fmt.Fprintf(os.Stderr, "subscriber error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
