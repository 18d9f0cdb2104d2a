//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// nanosleep blocks for d using the nanosleep syscall, giving the pulse driver
// sub-millisecond pacing without busy-spinning (spec §9 "Pulse period
// choice"). Restarts on EINTR with the kernel-reported remainder.
func nanosleep(d time.Duration) error {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		var rem unix.Timespec
		err := unix.Nanosleep(&ts, &rem)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			ts = rem
			continue
		}
		return err
	}
}
