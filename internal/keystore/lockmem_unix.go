//go:build !windows

package keystore

import "golang.org/x/sys/unix"

// lockMemory pins b in RAM so it is never swapped. It returns nil when the
// kernel refuses, typically because RLIMIT_MEMLOCK is exhausted.
func lockMemory(b []byte) (unlock func()) {
	if len(b) == 0 || unix.Mlock(b) != nil {
		return nil
	}
	return func() { _ = unix.Munlock(b) }
}
