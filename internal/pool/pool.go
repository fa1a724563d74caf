// Package pool manages live SSH sessions keyed by connection identity.
// It owns the connect/reconnect/close lifecycle: at most one session exists
// per identity, connecting again under the same identity replaces (and
// closes) the previous session, and disconnects are best-effort.
package pool

import (
	"sync"
	"time"

	"github.com/jholliman/vantage/internal/logger"
	"github.com/jholliman/vantage/internal/profile"
	"github.com/jholliman/vantage/pkg/sshutil"
)

// DialFunc establishes an authenticated session for a profile.
// Injected so tests can run the pool against mock sessions.
type DialFunc func(profile.Profile) (sshutil.Session, error)

// closeGrace bounds how long a disconnect waits for the transport to close
// before proceeding with local cleanup anyway.
const closeGrace = 3 * time.Second

// ProfileSaver receives the profile of every successful connect.
// Satisfied by *profile.Store.
type ProfileSaver interface {
	Save(profile.Profile) error
}

// Entry describes one pooled session.
type Entry struct {
	Session        sshutil.Session
	Identity       profile.Identity
	ConnectedSince time.Time
}

// Pool is a keyed registry of live sessions.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*Entry
	dial     DialFunc
	profiles ProfileSaver
	log      logger.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithDialer replaces the default SSH dialer.
func WithDialer(dial DialFunc) Option {
	return func(p *Pool) { p.dial = dial }
}

// WithProfileSaver records every successfully connected profile, so a
// connection that has ever succeeded reappears in future profile listings.
func WithProfileSaver(s ProfileSaver) Option {
	return func(p *Pool) { p.profiles = s }
}

// WithLogger sets the pool's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// New creates an empty pool. By default it dials real SSH connections
// with the package timeouts.
func New(opts ...Option) *Pool {
	p := &Pool{
		sessions: make(map[string]*Entry),
		log:      logger.NewEnvLogger("[pool]"),
		dial: func(prof profile.Profile) (sshutil.Session, error) {
			return sshutil.Dial(prof, sshutil.DialOptions{})
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect authenticates against the profile's host and stores the session
// under its identity, replacing and closing any prior session with the
// same key. On failure the pool is left untouched and the error carries
// one of the AUTH/PROTOCOL/NETWORK/TIMEOUT codes from sshutil.
func (p *Pool) Connect(prof profile.Profile) (profile.Identity, error) {
	prof = prof.Normalize()
	id := prof.Identity()

	session, err := p.dial(prof)
	if err != nil {
		return profile.Identity{}, err
	}

	p.mu.Lock()
	old := p.sessions[id.Key()]
	p.sessions[id.Key()] = &Entry{
		Session:        session,
		Identity:       id,
		ConnectedSince: time.Now(),
	}
	p.mu.Unlock()

	// Close the replaced session outside the lock; last write wins.
	if old != nil {
		p.closeEntry(old)
	}

	if p.profiles != nil {
		if err := p.profiles.Save(prof); err != nil {
			p.log.Warn("couldn't save profile for %s: %v", id, err)
		}
	}

	p.log.Debug("connected %s", id)
	return id, nil
}

// Get returns the live session for an identity. Absence means "not
// connected", not an error.
func (p *Pool) Get(id profile.Identity) (*Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.sessions[id.Key()]
	return entry, ok
}

// Disconnect closes the session for an identity and removes it from the
// pool. Idempotent; close errors are logged, not propagated.
func (p *Pool) Disconnect(id profile.Identity) {
	p.mu.Lock()
	entry, ok := p.sessions[id.Key()]
	delete(p.sessions, id.Key())
	p.mu.Unlock()

	if ok {
		p.closeEntry(entry)
		p.log.Debug("disconnected %s", id)
	}
}

// Switch disconnects oldID (when given and connected) before connecting the
// new profile, so the caller's active slot never has two live sessions.
// The old session's close is waited for, best-effort, before dialing.
func (p *Pool) Switch(oldID *profile.Identity, newProf profile.Profile) (profile.Identity, error) {
	if oldID != nil {
		p.Disconnect(*oldID)
	}
	return p.Connect(newProf)
}

// Size returns the number of live sessions.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Identities returns the identities of all pooled sessions.
func (p *Pool) Identities() []profile.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]profile.Identity, 0, len(p.sessions))
	for _, e := range p.sessions {
		ids = append(ids, e.Identity)
	}
	return ids
}

// Close disconnects everything. Called on shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	entries := make([]*Entry, 0, len(p.sessions))
	for k, e := range p.sessions {
		entries = append(entries, e)
		delete(p.sessions, k)
	}
	p.mu.Unlock()

	for _, e := range entries {
		p.closeEntry(e)
	}
}

// closeEntry closes a session with a grace timeout. A transport that
// refuses to close within the grace period is abandoned; local state has
// already been cleaned up by the caller.
func (p *Pool) closeEntry(e *Entry) {
	done := make(chan error, 1)
	go func() {
		done <- e.Session.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			p.log.Warn("closing session for %s: %v", e.Identity, err)
		}
	case <-time.After(closeGrace):
		p.log.Warn("session for %s didn't close within %s, abandoning", e.Identity, closeGrace)
	}
}
