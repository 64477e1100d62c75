package main

import (
	"fmt"

	gamesvc "github.com/axondata/go-gamesvc"
	"github.com/spf13/cobra"
)

func newCleanCmd(a *app) *cobra.Command {
	var (
		userData bool
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "clean <game>",
		Short: "Stop a game server and remove its files",
		Long: `Stop a game server and remove its installed files. With --user-data
the configured user-data paths (saves, settings) are offered for removal
too. Every removal asks for confirmation unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}

			report, err := a.manager.Clean(cmd.Context(), cfg, gamesvc.CleanOptions{UserData: userData || all})
			for _, p := range report.Removed {
				fmt.Fprintf(a.stdout, "Removed %s\n", p)
			}
			for _, p := range report.Declined {
				fmt.Fprintf(a.stdout, "Kept %s\n", p)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&userData, "user-data", false, "Also remove user data paths")
	cmd.Flags().BoolVar(&all, "all", false, "Remove game files and user data")
	cmd.Flags().BoolVarP(&a.assumeYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
