// Package jobserver bounds the number of compiler invocations running
// at once. Real Cargo inherits or starts a POSIX jobserver (a pipe
// pre-loaded with N tokens, shared with any recursive `make`
// sub-processes via the MAKEFLAGS/CARGO_MAKEFLAGS convention) so every
// concurrent tool in a build tree honors one global job count. A
// pipe-based fd-inheritance protocol isn't something Go's exec.Cmd
// exposes portably across platforms, so this package keeps the
// contract (acquire a token before running a job, release it after)
// and implements it in-process with a weighted semaphore instead of
// reproducing the GNU make wire protocol.
package jobserver

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Server hands out job tokens up to its configured capacity.
type Server struct {
	sem      *semaphore.Weighted
	capacity int64
}

// NewServer creates a Server allowing up to capacity concurrent jobs.
// capacity must be at least 1.
func NewServer(capacity int64) *Server {
	if capacity < 1 {
		capacity = 1
	}
	return &Server{sem: semaphore.NewWeighted(capacity), capacity: capacity}
}

// Capacity returns the server's configured concurrency limit.
func (s *Server) Capacity() int64 { return s.capacity }

// Acquire blocks until a token is available or ctx is done, returning
// a Token that must be released exactly once.
func (s *Server) Acquire(ctx context.Context) (*Token, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Token{sem: s.sem}, nil
}

// TryAcquire returns a Token immediately if one is available without
// blocking, or (nil, false) if the server is at capacity.
func (s *Server) TryAcquire() (*Token, bool) {
	if !s.sem.TryAcquire(1) {
		return nil, false
	}
	return &Token{sem: s.sem}, true
}

// Token represents one held job slot.
type Token struct {
	sem      *semaphore.Weighted
	released bool
}

// Release returns the token to its Server. Releasing an already
// released token is a no-op, so deferred Release calls are safe
// alongside an earlier explicit one.
func (t *Token) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	t.sem.Release(1)
}
