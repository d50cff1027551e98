package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/picochat/pkg/auth"
	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/history"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/metrics"
	"github.com/sipeed/picochat/pkg/sidebar"
	"github.com/sipeed/picochat/pkg/transcript"
)

type Options struct {
	Welcome   string
	Responder chat.Responder
	TTL       time.Duration
}

type entry struct {
	session *Session
	expires time.Time
}

// Registry maps session tokens to live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	store    transcript.Store
	opts     Options
	now      func() time.Time
}

func NewRegistry(store transcript.Store, opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Registry{
		sessions: make(map[string]*entry),
		store:    store,
		opts:     opts,
		now:      time.Now,
	}
}

// Create starts a fresh session and returns its token.
func (r *Registry) Create() (string, *Session, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	part := transcript.NewPartition(r.store, id)
	sess := &Session{
		ID:      id,
		Surface: chat.NewSurface(r.opts.Welcome, r.opts.Responder),
		Sidebar: sidebar.New(),
		History: history.NewManager(part),
		store:   part,
	}

	r.mu.Lock()
	r.sessions[token] = &entry{session: sess, expires: r.now().Add(r.opts.TTL)}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	logger.InfoCF("session", "Session created", map[string]interface{}{"session": id})
	return token, sess, nil
}

// Get returns the live session for token.
func (r *Registry) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	r.mu.RLock()
	e, ok := r.sessions[token]
	r.mu.RUnlock()
	if !ok || !r.now().Before(e.expires) {
		return nil, false
	}
	return e.session, true
}

// Destroy ends a session and clears its transcripts.
func (r *Registry) Destroy(ctx context.Context, token string) error {
	r.mu.Lock()
	e, ok := r.sessions[token]
	delete(r.sessions, token)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	metrics.ActiveSessions.Set(float64(n))
	logger.InfoCF("session", "Session ended", map[string]interface{}{"session": e.session.ID})
	return e.session.close(ctx)
}

// Sweep destroys expired sessions and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	now := r.now()

	r.mu.Lock()
	var expired []*entry
	for token, e := range r.sessions {
		if !now.Before(e.expires) {
			expired = append(expired, e)
			delete(r.sessions, token)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))

	var errs []error
	for _, e := range expired {
		if err := e.session.close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(expired) > 0 {
		logger.DebugCF("session", "Expired sessions swept", map[string]interface{}{"count": len(expired)})
	}
	return len(expired), errors.Join(errs...)
}

// Run sweeps expired sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				logger.WarnCF("session", "Sweep failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close ends every session.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(0)

	var errs []error
	for _, e := range all {
		if err := e.session.close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
