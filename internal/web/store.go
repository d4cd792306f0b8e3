package web

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	tempmail "github.com/tempmailkit/tempmail-go"
	"github.com/tempmailkit/tempmail-go/internal/monitoring"
)

const maxPendingNotices = 50

// entry is one browser session.
type entry struct {
	session  *tempmail.Session
	notifier *sessionNotifier
	lastSeen time.Time
}

// sessionNotifier buffers notices until the next API reply and pushes them,
// together with a fresh snapshot, to websocket listeners.
type sessionNotifier struct {
	id  string
	hub *Hub

	mu       sync.Mutex
	pending  []tempmail.Notice
	snapshot func() tempmail.Snapshot
}

// Notify implements tempmail.Notifier. The session calls it without holding
// its lock, so reading a snapshot here is safe.
func (n *sessionNotifier) Notify(notice tempmail.Notice) {
	n.mu.Lock()
	n.pending = append(n.pending, notice)
	if len(n.pending) > maxPendingNotices {
		n.pending = n.pending[len(n.pending)-maxPendingNotices:]
	}
	snapshot := n.snapshot
	n.mu.Unlock()

	n.hub.Publish(n.id, Event{Type: EventNotice, Notice: &notice})
	if snapshot != nil {
		snap := snapshot()
		n.hub.Publish(n.id, Event{Type: EventSnapshot, Session: &snap})
	}
}

// drain returns and clears the buffered notices.
func (n *sessionNotifier) drain() []tempmail.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	if out == nil {
		out = []tempmail.Notice{}
	}
	return out
}

// Store keeps one tempmail.Session per browser session and evicts idle ones.
type Store struct {
	client  *tempmail.Client
	opts    []tempmail.SessionOption
	hub     *Hub
	idle    time.Duration
	now     func() time.Time
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewStore creates an empty store. opts are applied to every new session.
func NewStore(client *tempmail.Client, hub *Hub, idle time.Duration, logger *zap.Logger, opts ...tempmail.SessionOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:   client,
		opts:     opts,
		hub:      hub,
		idle:     idle,
		now:      time.Now,
		metrics:  client.Metrics(),
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// Get returns the live session with id and marks it as used.
func (st *Store) Get(id string) (*entry, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.sessions[id]
	if ok {
		e.lastSeen = st.now()
	}
	return e, ok
}

// Create starts a new session.
func (st *Store) Create() *entry {
	notifier := &sessionNotifier{hub: st.hub}
	opts := append([]tempmail.SessionOption{}, st.opts...)
	opts = append(opts, tempmail.WithNotifier(notifier), tempmail.WithSessionLogger(st.logger))
	session := tempmail.NewSession(st.client, opts...)

	notifier.mu.Lock()
	notifier.id = session.ID()
	notifier.snapshot = session.Snapshot
	notifier.mu.Unlock()

	e := &entry{session: session, notifier: notifier, lastSeen: st.now()}

	st.mu.Lock()
	st.sessions[session.ID()] = e
	count := len(st.sessions)
	st.mu.Unlock()

	st.setGauge(count)
	st.logger.Debug("session created", zap.String("session", session.ID()))
	return e
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep tears down sessions idle for longer than the idle window and
// returns how many were removed.
func (st *Store) Sweep() int {
	if st.idle <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.idle)

	st.mu.Lock()
	var expired []*entry
	for id, e := range st.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(st.sessions, id)
		}
	}
	count := len(st.sessions)
	st.mu.Unlock()

	for _, e := range expired {
		st.teardown(e)
	}
	if len(expired) > 0 {
		st.setGauge(count)
		st.logger.Info("evicted idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunJanitor sweeps every interval until ctx is done.
func (st *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close tears down every session.
func (st *Store) Close() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*entry)
	st.mu.Unlock()

	for _, e := range all {
		st.teardown(e)
	}
	st.setGauge(0)
}

func (st *Store) teardown(e *entry) {
	e.session.Close()
	st.hub.Drop(e.session.ID())
}

func (st *Store) setGauge(n int) {
	if st.metrics != nil {
		st.metrics.ActiveSessions.Set(float64(n))
	}
}
