package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <game>",
		Short: "Follow the provisioning state of a game until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, cleanup, err := a.manager.Watch(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					now := time.Now().Format(time.TimeOnly)
					if ev.Err != nil {
						fmt.Fprintf(a.stderr, "%s error: %v\n", now, ev.Err)
						continue
					}
					if ev.Marker != nil {
						fmt.Fprintf(a.stdout, "%s %s (%s, %d files, %s)\n",
							now, ev.State, ev.Marker.DownloadStatus, ev.Marker.FileCount, ev.Marker.TotalSize)
						continue
					}
					fmt.Fprintf(a.stdout, "%s %s\n", now, ev.State)
				}
			}
		},
	}
}
