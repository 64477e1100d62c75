package gamesvc

import (
	"time"
)

// File names kept inside a game's install directory
const (
	// MarkerFile is the completion marker written after a successful provisioning run
	MarkerFile = ".steamcmd-completed"

	// LockFile guards the install directory while a provisioning run is active
	LockFile = ".gameserver.lock"
)

// Defaults for external tools and timings
const (
	// DefaultSteamCMDPath is the default path to the steamcmd binary
	DefaultSteamCMDPath = "steamcmd"

	// DefaultPatchelfPath is the default path to the patchelf binary
	DefaultPatchelfPath = "patchelf"

	// DefaultReferenceBinary is the binary whose ELF interpreter is copied
	// onto downloaded executables during interpreter repair
	DefaultReferenceBinary = "/bin/sh"

	// DefaultSystemctlPath is the default path to systemctl
	DefaultSystemctlPath = "systemctl"

	// DefaultSystemdRunPath is the default path to systemd-run
	DefaultSystemdRunPath = "systemd-run"

	// DefaultJournalctlPath is the default path to journalctl
	DefaultJournalctlPath = "journalctl"

	// DefaultSudoCommand is the command used to elevate supervisor calls
	DefaultSudoCommand = "sudo"

	// DefaultSettleInterval is the pause between stop and start during a restart,
	// long enough for the previous transient unit to release its ports
	DefaultSettleInterval = 2 * time.Second

	// DefaultWatchDebounce coalesces bursts of marker file events
	DefaultWatchDebounce = 25 * time.Millisecond

	// DefaultConcurrency bounds concurrent status queries in bulk reports
	DefaultConcurrency = 4

	// DefaultLogLines is the number of journal lines shown by Logs without args
	DefaultLogLines = 50
)

// File modes
const (
	// DirMode is the mode for created install directories
	DirMode = 0o755

	// FileMode is the mode for written marker files
	FileMode = 0o644
)

// Operation identifies the lifecycle operation an error came from
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpLoad looks up or loads a configuration
	OpLoad
	// OpStart starts the game's transient unit
	OpStart
	// OpStop stops the game's unit
	OpStop
	// OpRestart stops then starts the unit
	OpRestart
	// OpUpdate brings the installed files up to date
	OpUpdate
	// OpProvision runs a provisioner
	OpProvision
	// OpValidate checks installed files
	OpValidate
	// OpMarker reads or writes the completion marker
	OpMarker
	// OpClean stops the game and removes its files
	OpClean
	// OpLogs streams the unit's journal
	OpLogs
	// OpStatus queries the supervisor
	OpStatus
)

// Operation string constants
const (
	opUnknownStr   = "unknown"
	opLoadStr      = "load"
	opStartStr     = "start"
	opStopStr      = "stop"
	opRestartStr   = "restart"
	opUpdateStr    = "update"
	opProvisionStr = "provision"
	opValidateStr  = "validate"
	opMarkerStr    = "marker"
	opCleanStr     = "clean"
	opLogsStr      = "logs"
	opStatusStr    = "status"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpLoad:
		return opLoadStr
	case OpStart:
		return opStartStr
	case OpStop:
		return opStopStr
	case OpRestart:
		return opRestartStr
	case OpUpdate:
		return opUpdateStr
	case OpProvision:
		return opProvisionStr
	case OpValidate:
		return opValidateStr
	case OpMarker:
		return opMarkerStr
	case OpClean:
		return opCleanStr
	case OpLogs:
		return opLogsStr
	case OpStatus:
		return opStatusStr
	default:
		return opUnknownStr
	}
}
