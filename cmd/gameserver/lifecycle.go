package main

import (
	"fmt"
	"time"

	gamesvc "github.com/axondata/go-gamesvc"
	"github.com/spf13/cobra"
)

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start <game>",
		Short: "Start a game server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}
			if err := a.manager.Start(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Started %s (unit %s)\n", cfg.Name, cfg.UnitName)
			return nil
		},
	}
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <game>",
		Short: "Stop a game server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}
			if err := a.manager.Stop(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Stopped %s\n", cfg.Name)
			return nil
		},
	}
}

func newRestartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restart <game>",
		Short: "Restart a game server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}
			if err := a.manager.Restart(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Restarted %s (unit %s)\n", cfg.Name, cfg.UnitName)
			return nil
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update <game>",
		Short: "Download or update a game's files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}
			res, err := a.manager.Update(cmd.Context(), cfg, force)
			if err != nil {
				return err
			}

			switch res.Outcome {
			case gamesvc.UpdateNotConfigured:
				fmt.Fprintf(a.stdout, "%s has no download source configured\n", cfg.Name)
			case gamesvc.UpdateUpToDate:
				fmt.Fprintf(a.stdout, "%s is already up to date (last updated: %s)\n", cfg.Name, formatTime(res.LastUpdated))
				fmt.Fprintln(a.stdout, "Use --force to download again")
			case gamesvc.UpdateProvisioned:
				fmt.Fprintf(a.stdout, "%s updated successfully\n", cfg.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download even if files are up to date")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(time.DateTime)
}
