package gamesvc

// MarkerEvent reports the provisioning state of an install directory after
// its marker or lock changed
type MarkerEvent struct {
	State  ProvisionState
	Marker *Marker
	Err    error
}

// WatchCleanupFunc stops a watch and waits for its goroutines to exit
type WatchCleanupFunc func() error
