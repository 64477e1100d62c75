// Package main is the entry point for the gameserver CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gamesvc "github.com/axondata/go-gamesvc"
	"github.com/axondata/go-gamesvc/internal/catalog"
	"github.com/axondata/go-gamesvc/internal/logger"
	"github.com/axondata/go-gamesvc/internal/runner"
	"github.com/axondata/go-gamesvc/internal/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries everything a command needs. It is populated by the root
// command's PersistentPreRunE.
type app struct {
	stdin  io.Reader
	input  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	runner runner.Runner

	// assumeYes answers every clean prompt with yes
	assumeYes bool
	logLevel  string

	settings settings.Settings
	log      *zap.Logger
	catalog  *catalog.Catalog
	manager  *gamesvc.Manager
}

func newApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		runner: runner.Exec{},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gameserver",
		Short: "Provision and run game servers as transient systemd units",
		Long: `gameserver downloads game server files with steamcmd, records the
outcome in a completion marker inside each game directory, and runs the
servers as transient systemd units.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newVersionCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newInfoCmd(a))
	root.AddCommand(newStartCmd(a))
	root.AddCommand(newStopCmd(a))
	root.AddCommand(newRestartCmd(a))
	root.AddCommand(newUpdateCmd(a))
	root.AddCommand(newLogsCmd(a))
	root.AddCommand(newCleanCmd(a))
	root.AddCommand(newWatchCmd(a))

	return root
}

// init loads settings and the catalog and wires the manager
func (a *app) init() error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	a.settings = s

	level := s.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	log, err := logger.New(level, s.PrettyLog)
	if err != nil {
		return err
	}
	a.log = log

	cat, err := catalog.Load(s.ServicesDir, log.Named("catalog"))
	if err != nil {
		return err
	}
	a.catalog = cat

	markers := gamesvc.NewMarkerStore(gamesvc.WithMarkerLogger(log.Named("marker")))

	steam := gamesvc.NewSteamProvisioner(markers,
		gamesvc.WithSteamCMDPath(s.SteamCMDPath),
		gamesvc.WithInterpreterRepair(s.RepairInterpreter, s.ReferenceBinary, s.PatchelfPath),
		gamesvc.WithSteamRunner(a.runner),
		gamesvc.WithSteamLogger(log.Named("steam")),
		gamesvc.WithSteamOutput(a.stdout, a.stderr),
	)
	registry, err := gamesvc.NewRegistry(steam)
	if err != nil {
		return err
	}

	supervisor := gamesvc.NewSystemd().
		WithSudo(s.Sudo(), s.SudoCommand).
		WithPaths(s.SystemctlPath, s.SystemdRun, s.Journalctl).
		WithSettleInterval(s.SettleInterval).
		WithRunner(a.runner).
		WithLogger(log.Named("systemd")).
		WithStderr(a.stderr)

	confirm := a.prompt
	if a.assumeYes {
		confirm = gamesvc.AlwaysConfirm
	}

	a.manager = gamesvc.NewManager(registry, supervisor, markers,
		gamesvc.WithConcurrency(s.Concurrency),
		gamesvc.WithConfirmer(confirm),
		gamesvc.WithManagerLogger(log.Named("manager")),
	)
	return nil
}

// prompt asks a yes/no question on stdin; anything but y or yes is no
func (a *app) prompt(question string) bool {
	fmt.Fprintf(a.stdout, "%s [y/N] ", question)
	if a.input == nil {
		a.input = bufio.NewReader(a.stdin)
	}
	line, err := a.input.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(a.stdout)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// game looks up the configuration for id
func (a *app) game(id string) (gamesvc.ServiceConfig, error) {
	return a.catalog.Get(id)
}

func (a *app) sync() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// printError writes err and its suggestion, if any
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var merr *gamesvc.MultiError
	if errors.As(err, &merr) && len(merr.Errors) > 1 {
		for _, e := range merr.Errors {
			fmt.Fprintf(w, "  - %v\n", e)
		}
	}
	if s := gamesvc.Suggestion(err); s != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", s)
	}
}

func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	defer a.sync()

	if err := root.ExecuteContext(ctx); err != nil {
		printError(a.stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(context.Background(), newApp(), os.Args[1:]))
}
