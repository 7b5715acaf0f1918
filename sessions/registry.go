// Package sessions tracks the live editor sessions opened by signed-in
// shoppers and discards the ones left idle.
package sessions

import (
	"fmt"
	"sync"
	"time"

	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Entry is one open editor bound to its owner and product.
type Entry struct {
	ID        string
	UserID    string
	Product   core.Product
	Session   *editor.Session
	CreatedAt time.Time

	unsubscribe func()
}

// RenderListener is told about every committed change in any session.
type RenderListener func(sessionID string, ev editor.Rendered)

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	renderer    *editor.Renderer
	idleTimeout time.Duration
	now         func() time.Time

	listenersMu sync.RWMutex
	listeners   []RenderListener

	cron *cron.Cron
}

type Option func(*Registry)

// WithClock replaces the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(renderer *editor.Renderer, idleTimeout time.Duration, opts ...Option) *Registry {
	r := &Registry{
		entries:     make(map[string]*Entry),
		renderer:    renderer,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnRender registers a listener for render events from every session.
func (r *Registry) OnRender(fn RenderListener) {
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenersMu.Unlock()
}

func (r *Registry) notify(id string, ev editor.Rendered) {
	metrics.RecordRender()

	r.listenersMu.RLock()
	listeners := make([]RenderListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(id, ev)
	}
}

// Open starts an empty editor for product on behalf of userID.
func (r *Registry) Open(userID string, product core.Product) *Entry {
	e := &Entry{
		ID:        "session-" + ulid.Make().String(),
		UserID:    userID,
		Product:   product,
		CreatedAt: r.now(),
		Session:   editor.NewSession(r.renderer, product.Colors, editor.WithSessionClock(r.now)),
	}
	id := e.ID
	e.unsubscribe = e.Session.Subscribe(func(ev editor.Rendered) {
		r.notify(id, ev)
	})

	r.mu.Lock()
	r.entries[e.ID] = e
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetOpenSessions(n)

	logrus.WithFields(logrus.Fields{
		"session_id": e.ID,
		"user_id":    userID,
		"product_id": product.ID,
		"open":       n,
	}).Info("Editor session opened")
	return e
}

// Get returns a session owned by userID. Sessions belonging to someone else
// are reported as not found.
func (r *Registry) Get(userID, id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok || e.UserID != userID {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

// Close discards a session owned by userID.
func (r *Registry) Close(userID, id string) error {
	e, err := r.Take(userID, id)
	if err != nil {
		return err
	}
	r.Retire(e)
	return nil
}

// Take removes a session owned by userID from the registry and hands it to
// the caller, so at most one caller can claim it. The entry keeps its render
// subscription until Retire; Restore puts it back.
func (r *Registry) Take(userID, id string) (*Entry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.UserID != userID {
		r.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	delete(r.entries, id)
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetOpenSessions(n)
	return e, nil
}

// Restore re-registers an entry previously claimed with Take.
func (r *Registry) Restore(e *Entry) {
	r.mu.Lock()
	r.entries[e.ID] = e
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetOpenSessions(n)
}

// Retire ends a claimed entry for good.
func (r *Registry) Retire(e *Entry) {
	e.unsubscribe()
	logrus.WithFields(logrus.Fields{"session_id": e.ID, "user_id": e.UserID}).Info("Editor session closed")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reap drops every session idle for longer than the idle timeout and returns
// how many were removed.
func (r *Registry) Reap() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var stale []*Entry
	for id, e := range r.entries {
		if e.Session.LastActive().Before(cutoff) {
			stale = append(stale, e)
			delete(r.entries, id)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetOpenSessions(n)

	for _, e := range stale {
		e.unsubscribe()
		logrus.WithFields(logrus.Fields{"session_id": e.ID, "user_id": e.UserID}).Debug("Reaped idle editor session")
	}
	if len(stale) > 0 {
		logrus.WithField("count", len(stale)).Info("Reaped idle editor sessions")
	}
	return len(stale)
}

// StartReaper runs Reap on a cron schedule such as "@every 1m".
func (r *Registry) StartReaper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { r.Reap() }); err != nil {
		return fmt.Errorf("schedule session reaper: %w", err)
	}
	c.Start()
	r.cron = c
	logrus.WithField("schedule", schedule).Info("Session reaper started")
	return nil
}

// Stop halts the reaper, if running.
func (r *Registry) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
