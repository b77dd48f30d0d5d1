package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/internal/rabbitmq"
	"github.com/glimte/paperless-go/messaging"
	"github.com/spf13/cobra"
)

func newTopologyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Declare the exchange, queues and bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			client, err := connect(cmd.Context(), cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer client.Close()

			printRoutes(cmd.OutOrStdout(), contracts.Routes())
			return nil
		},
	}
}

func newQueuesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "Show depth and consumer count of every paperless queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := connect(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer client.Close()

			queues, err := messaging.InspectQueues(ctx, client.Topology())
			if err != nil {
				return fmt.Errorf("failed to inspect queues: %w", err)
			}
			printQueues(cmd.OutOrStdout(), queues)
			return nil
		},
	}
}

// Output formatting functions

func printRoutes(w io.Writer, routes []contracts.Route) {
	fmt.Fprintf(w, "Exchange %s (%s)\n", contracts.Exchange, contracts.ExchangeKind)
	fmt.Fprintf(w, "%-20s %-20s %-15s\n", "Queue", "Routing Key", "Message")
	fmt.Fprintln(w, strings.Repeat("-", 57))

	for _, r := range routes {
		fmt.Fprintf(w, "%-20s %-20s %-15s\n", r.Queue, r.RoutingKey, r.Type)
	}
}

func printQueues(w io.Writer, queues []rabbitmq.QueueInfo) {
	if len(queues) == 0 {
		fmt.Fprintln(w, "No queues found")
		return
	}

	fmt.Fprintf(w, "%-40s %-10s %-10s\n", "Name", "Messages", "Consumers")
	fmt.Fprintln(w, strings.Repeat("-", 62))

	for _, q := range queues {
		fmt.Fprintf(w, "%-40s %-10d %-10d\n", truncate(q.Name, 40), q.Messages, q.Consumers)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
