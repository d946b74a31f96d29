package background

import (
	"context"
	"sync"
	"time"
)

// Scope - cancellable group of goroutines sharing one context.
// Once stopped, the scope takes no new members, so waiting never races with Go.
type Scope struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	scope   sync.WaitGroup
}

// NewScope - builds scope derived from parent, returned cancel stops the scope and waits all members.
func NewScope(parent context.Context) (scope *Scope, cancel func()) {
	ctx, cancelFunc := context.WithCancel(parent)
	s := &Scope{
		ctx:       ctx,
		ctxCancel: cancelFunc,
	}
	return s,
		func() {
			s.Stop()
			s.scope.Wait()
		}
}

// Context - returns scope context, it is done once the scope is cancelled.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go - runs f as scope member. Returns false and does not run f when the scope is already stopped.
// A member started after the parent context is done still runs, but gets done context.
func (s *Scope) Go(f func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.scope.Add(1)
	go func() {
		defer s.scope.Done()
		f(s.ctx)
	}()
	return true
}

// Stop - cancels scope context and refuses new members, does not wait for running ones.
func (s *Scope) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.ctxCancel()
}

// WaitTimeout - stops the scope and waits members up to timeout, returns false on timeout.
func (s *Scope) WaitTimeout(timeout time.Duration) bool {
	s.Stop()
	done := make(chan struct{})
	go func() {
		s.scope.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
