package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/pool-admin/devbackend"
	"github.com/jrsteele09/pool-admin/realtime"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var events []string

	cmd := &cobra.Command{
		Use:   "watch <namespace>",
		Short: "Stream realtime events from a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, a *app) error {
				if err := checkFeature(a.cfg.RealtimeEnabled(), "ENABLE_REALTIME"); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				connector := realtime.NewConnector(a.cfg.GetAPIURL(), a.api.TokenSource(ctx),
					realtime.WithLogger(a.log),
				)
				connector.On(realtime.EventConnect, func(context.Context, json.RawMessage) {
					fmt.Fprintf(out, "connected to %s\n", args[0])
				})
				for _, event := range events {
					connector.On(event, func(_ context.Context, data json.RawMessage) {
						fmt.Fprintf(out, "%s %s %s\n", time.Now().Format(time.TimeOnly), event, data)
					})
				}
				return connector.Connect(ctx, args[0])
			})
		},
	}
	cmd.Flags().StringSliceVar(&events, "event", []string{devbackend.EventBookingAssigned}, "events to print, repeatable")
	return cmd
}
