package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Freeeeeet/slotswap/internal/events"
)

var (
	eventsNATSURL string
	eventsTopic   string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print swap events published to NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsNATSURL == "" {
			return fmt.Errorf("--nats-url or NATS_URL is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return events.Tail(ctx, eventsNATSURL, eventsTopic, func(msg events.Message) {
			fmt.Fprintf(out, "%s %s\n", msg.Topic, msg.Data)
		})
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsNATSURL, "nats-url", os.Getenv("NATS_URL"), "NATS server URL")
	eventsCmd.Flags().StringVar(&eventsTopic, "topic", events.TopicAll, "subject to subscribe to")
}
