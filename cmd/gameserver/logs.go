package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newLogsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <game> [-- journalctl args...]",
		Short: "Show a game server's journal",
		Long: `Show a game server's journal. Without extra arguments the last 50
lines are printed; anything after -- is passed to journalctl, e.g.
"gameserver logs valheim -- -f".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			extra := args[1:]
			if len(extra) > 0 && extra[0] == "--" {
				extra = extra[1:]
			}
			return a.manager.Logs(ctx, cfg, extra, a.stdout)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
