// Package gamesvc manages the lifecycle and installed files of game servers
// that run as transient systemd units.
//
// Every game is described by a ServiceConfig. Its files come from a Source
// (a Steam app id, for example) and are fetched by a Provisioner, which
// records the outcome in a completion marker inside the game directory:
//
//	markers := gamesvc.NewMarkerStore()
//	steam := gamesvc.NewSteamProvisioner(markers)
//	registry, err := gamesvc.NewRegistry(steam)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	manager := gamesvc.NewManager(registry, gamesvc.NewSystemd(), markers)
//
//	// Download the files unless the marker says they are current
//	res, err := manager.Update(ctx, cfg, false)
//
//	// Start the server; fails with ErrFilesNotReady until Update succeeded
//	err = manager.Start(ctx, cfg)
//
// # Completion Marker
//
// The marker is the single source of truth connecting files on disk to the
// configuration. It is removed before a provisioning run touches any file
// and written again, atomically, only after the run succeeded. A missing,
// unreadable, failed, or stale marker (one recorded for a different source)
// means the files must be provisioned again.
//
// Provisioning also holds an advisory lock on the game directory so two
// updates cannot run at once. Starting a server does not take the lock; a
// start racing an update sees the absent marker and fails with
// ErrFilesNotReady.
//
// # Supervisor
//
// The Systemd adapter starts servers with systemd-run --collect, so units
// disappear once the process exits. Stopping a unit systemd has never seen
// succeeds without doing anything, while starting an active unit fails with
// ErrAlreadyRunning.
//
// # Errors
//
// Errors wrap one of the package's sentinel errors in an *OpError, which
// also carries the operation, the game, any external exit code, and often
// a Suggestion for the operator. Nothing is retried automatically.
package gamesvc
