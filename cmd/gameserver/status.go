package main

import (
	"fmt"
	"strings"
	"time"

	gamesvc "github.com/axondata/go-gamesvc"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [game...]",
		Short: "Show service and download status of games",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs := a.catalog.List()
			if len(args) > 0 {
				cfgs = cfgs[:0]
				for _, id := range args {
					cfg, err := a.game(id)
					if err != nil {
						return err
					}
					cfgs = append(cfgs, cfg)
				}
			}

			if len(cfgs) == 0 {
				fmt.Fprintf(a.stdout, "No games configured in %s.\n", a.settings.ServicesDir)
				return nil
			}

			reports, err := a.manager.ReportAll(cmd.Context(), cfgs)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%-20s %-30s %-10s %-16s %s\n", "ID", "NAME", "STATUS", "DOWNLOAD", "LAST UPDATED")
			fmt.Fprintln(a.stdout, strings.Repeat("-", 100))
			for _, r := range reports {
				updated := "-"
				if r.Marker != nil {
					updated = r.Marker.LastUpdated.Local().Format(time.DateTime)
				}
				fmt.Fprintf(a.stdout, "%-20s %-30s %-10s %-16s %s\n",
					r.ID, truncate(r.Name, 30), r.Status, r.Download, updated)
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs := a.catalog.List()
			if len(cfgs) == 0 {
				fmt.Fprintf(a.stdout, "No games configured in %s.\n", a.settings.ServicesDir)
				return nil
			}
			fmt.Fprintf(a.stdout, "%-20s %-30s %-8s %s\n", "ID", "NAME", "SOURCE", "UNIT")
			fmt.Fprintln(a.stdout, strings.Repeat("-", 80))
			for _, cfg := range cfgs {
				fmt.Fprintf(a.stdout, "%-20s %-30s %-8s %s\n",
					cfg.ID, truncate(cfg.Name, 30), cfg.Source.Type, cfg.UnitName)
			}
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <game>",
		Short: "Show configuration and installation details of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.game(args[0])
			if err != nil {
				return err
			}
			r := a.manager.Report(cmd.Context(), cfg)

			w := a.stdout
			fmt.Fprintf(w, "%s (%s)\n", cfg.Name, cfg.ID)
			if cfg.Description != "" {
				fmt.Fprintf(w, "  %s\n", cfg.Description)
			}
			fmt.Fprintf(w, "Unit:          %s\n", cfg.UnitName)
			fmt.Fprintf(w, "Status:        %s\n", r.Status)
			fmt.Fprintf(w, "Run as:        %s:%s\n", cfg.User, cfg.RunGroup())
			fmt.Fprintf(w, "Source:        %s %s\n", cfg.Source.Type, cfg.Source.SourceID)
			if b := cfg.Source.Meta(gamesvc.MetaBetaBranch); b != "" {
				fmt.Fprintf(w, "Beta branch:   %s\n", b)
			}
			fmt.Fprintf(w, "Game dir:      %s\n", cfg.GameDir)
			fmt.Fprintf(w, "Executable:    %s\n", cfg.Executable)
			if len(cfg.Args) > 0 {
				fmt.Fprintf(w, "Args:          %s\n", strings.Join(cfg.Args, " "))
			}
			if len(cfg.Ports) > 0 {
				ports := make([]string, len(cfg.Ports))
				for i, p := range cfg.Ports {
					ports[i] = fmt.Sprint(p)
				}
				fmt.Fprintf(w, "Ports:         %s\n", strings.Join(ports, ", "))
			}
			if cfg.ConfigFile != "" {
				fmt.Fprintf(w, "Config file:   %s\n", cfg.ConfigFile)
			}
			if cfg.LogDir != "" {
				fmt.Fprintf(w, "Log dir:       %s\n", cfg.LogDir)
			}
			fmt.Fprintf(w, "Provisioning:  %s\n", r.State)
			if m := r.Marker; m != nil {
				fmt.Fprintf(w, "Download:      %s, %d files, %s\n", m.DownloadStatus, m.FileCount, m.TotalSize)
				fmt.Fprintf(w, "Last updated:  %s\n", m.LastUpdated.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
