package main

import (
	"fmt"

	gamesvc "github.com/axondata/go-gamesvc"
	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v := gamesvc.GetVersion()
			fmt.Fprintf(a.stdout, "gameserver %s\n", v.Version)
			fmt.Fprintf(a.stdout, "  supervisor:    %s\n", v.Supervisor)
			fmt.Fprintf(a.stdout, "  marker format: %s\n", v.MarkerFormat)
		},
	}
}
