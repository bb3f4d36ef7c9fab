//go:build windows

package keystore

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// lockMemory pins b in the working set. It returns nil when Windows refuses.
func lockMemory(b []byte) (unlock func()) {
	if len(b) == 0 {
		return nil
	}
	addr, size := uintptr(unsafe.Pointer(&b[0])), uintptr(len(b))
	if windows.VirtualLock(addr, size) != nil {
		return nil
	}
	return func() { _ = windows.VirtualUnlock(addr, size) }
}
