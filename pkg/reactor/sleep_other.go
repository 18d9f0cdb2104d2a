//go:build !linux

package reactor

import "time"

// nanosleep falls back to time.Sleep on platforms without a
// nanosleep binding. Pacing is coarser than on Linux but still
// correct: the pulse driver only requires that it not return early.
func nanosleep(d time.Duration) error {
	time.Sleep(d)
	return nil
}
