//go:build !linux && !darwin

package gamesvc

import (
	"context"
	"errors"
)

// Watch is not supported on this platform
func (s *MarkerStore) Watch(ctx context.Context, dir string, src Source) (<-chan MarkerEvent, WatchCleanupFunc, error) {
	return nil, nil, &OpError{Op: OpMarker, Path: dir, Err: errors.New("watch not supported on this platform")}
}
