// Package keystore holds the local signing key: an age-encrypted private key
// on disk, decrypted into locked memory only while it is in use.
package keystore

import (
	"runtime"
	"sync"
)

// lockedBuf is the memory behind a SecureBytes. It is kept apart from the
// wrapper so the garbage collector cleanup can wipe it without holding the
// wrapper alive.
type lockedBuf struct {
	b      []byte
	unlock func()
}

func (l *lockedBuf) wipe() {
	clear(l.b)
	if l.unlock != nil {
		l.unlock()
		l.unlock = nil
	}
	l.b = nil
}

// SecureBytes holds secret bytes in pinned memory and zeroes them on Destroy,
// or when the value is collected without being destroyed.
type SecureBytes struct {
	mu      sync.Mutex
	buf     *lockedBuf
	cleanup runtime.Cleanup
}

// NewSecureBytes allocates size zeroed bytes, pinned when the platform allows.
func NewSecureBytes(size int) *SecureBytes {
	buf := &lockedBuf{b: make([]byte, size)}
	buf.unlock = lockMemory(buf.b)

	sb := &SecureBytes{buf: buf}
	sb.cleanup = runtime.AddCleanup(sb, (*lockedBuf).wipe, buf)
	return sb
}

// SecureBytesFrom moves data into secure memory, zeroing the source.
func SecureBytesFrom(data []byte) *SecureBytes {
	sb := NewSecureBytes(len(data))
	copy(sb.buf.b, data)
	clear(data)
	return sb
}

// Bytes returns the secret, or nil after Destroy.
func (s *SecureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return nil
	}
	return s.buf.b
}

// IsLocked reports whether the secret is pinned in memory.
func (s *SecureBytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf != nil && s.buf.unlock != nil
}

// Destroy zeroes and releases the secret. Later calls do nothing.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return
	}
	s.cleanup.Stop()
	s.buf.wipe()
	s.buf = nil
}
