package server

import (
	"sync"
)

// Registry tracks every live session. Admission and registration are a
// single atomic step under one mutex, and ShutdownAll force-closes sessions
// under that same mutex, so a session can never slip in after the close
// pass has started.
//
// maxSessions > 0 bounds the number of concurrent sessions (the accept loop
// backs off while the table is full, leaving further clients in the listen
// backlog); 0 admits every connection.
type Registry struct {
	mu          sync.Mutex
	maxSessions int
	live        map[*Session]struct{}
	draining    bool
	wg          sync.WaitGroup
}

func NewRegistry(maxSessions int) *Registry {
	return &Registry{
		maxSessions: maxSessions,
		live:        map[*Session]struct{}{},
	}
}

// CanAdmit is an advisory capacity check for the accept loop. The binding
// decision is made by Register.
func (r *Registry) CanAdmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.draining && (r.maxSessions == 0 || len(r.live) < r.maxSessions)
}

// Register admits s if there is capacity and shutdown has not started.
// It reports whether s was admitted; a refused session owns its conn and
// must close it.
func (r *Registry) Register(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.draining {
		return false
	}
	if r.maxSessions > 0 && len(r.live) >= r.maxSessions {
		return false
	}
	r.live[s] = struct{}{}
	r.wg.Add(1)
	return true
}

// Deregister removes s. Safe to call for a session that was never admitted
// or was already removed.
func (r *Registry) Deregister(s *Session) {
	r.mu.Lock()
	_, ok := r.live[s]
	if ok {
		delete(r.live, s)
	}
	r.mu.Unlock()

	if ok {
		r.wg.Done()
	}
}

// Live reports the number of currently registered sessions.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// ShutdownAll stops admission and force-closes the socket of every live
// session, which unblocks any session parked in a read. Sessions then run
// their normal exit path and deregister themselves.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draining = true
	for s := range r.live {
		s.forceClose()
	}
}

// Wait blocks until every admitted session has exited and deregistered.
// Idempotent; called once during server teardown.
func (r *Registry) Wait() {
	r.wg.Wait()
}
