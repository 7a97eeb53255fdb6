package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/harvesta/companion/pkg/errors"
	"github.com/harvesta/companion/pkg/util"
)

const defaultIdleTimeout = 30 * time.Minute

// Registry creates, resolves and evicts sessions.
type Registry struct {
	cfg    Config
	deps   Dependencies
	tokens *TokenIssuer
	now    util.Clock
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	retired  []*Session
}

// NewRegistry builds an empty registry.
func NewRegistry(cfg Config, deps Dependencies) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Clock.OrDefault()
	return &Registry{
		cfg:      cfg,
		deps:     deps,
		tokens:   NewTokenIssuer(cfg.Secret, cfg.TokenTTL, now),
		now:      now,
		logger:   logger.With("component", "session.registry"),
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session and returns it with its token.
func (r *Registry) Create(_ context.Context) (*Session, Token, error) {
	id := uuid.NewString()
	token, err := r.tokens.Issue(id)
	if err != nil {
		return nil, Token{}, err
	}
	sess := newSession(id, r.deps, r.cfg.InboxSize, r.now())

	r.mu.Lock()
	r.sessions[id] = sess
	active := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session created", "session", id, "active", active)
	return sess, token, nil
}

// Resolve verifies token and returns the live session it names.
func (r *Registry) Resolve(token string) (*Session, error) {
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	sess, ok := r.sessions[claims.SessionID]
	r.mu.Unlock()
	if !ok {
		return nil, apperrors.Wrap(apperrors.CodeInvalidToken, "session closed or expired", nil)
	}
	sess.touch(r.now())
	return sess, nil
}

// Close ends a session. Fetches still in flight complete into controllers
// nobody reads.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.retired = append(r.retired, sess)
	}
	r.mu.Unlock()
	if !ok {
		return apperrors.Wrap(apperrors.CodeNotFound, "session not found", nil)
	}
	r.logger.Info("session closed", "session", id)
	return nil
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the idle timeout and returns
// how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)
	r.mu.Lock()
	var evicted []string
	for id, sess := range r.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			r.retired = append(r.retired, sess)
			evicted = append(evicted, id)
		}
	}
	r.pruneRetiredLocked()
	r.mu.Unlock()
	for _, id := range evicted {
		r.logger.Info("session evicted", "session", id, "idle_timeout", r.cfg.IdleTimeout.String())
	}
	return len(evicted)
}

// pruneRetiredLocked forgets closed sessions with no fetch left to wait for.
func (r *Registry) pruneRetiredLocked() {
	kept := r.retired[:0]
	for _, sess := range r.retired {
		if sess.Busy() {
			kept = append(kept, sess)
		}
	}
	clear(r.retired[len(kept):])
	r.retired = kept
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Wait blocks until background fetches of every session, live or closed,
// have settled.
func (r *Registry) Wait() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions)+len(r.retired))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	all = append(all, r.retired...)
	r.retired = nil
	r.mu.Unlock()
	for _, sess := range all {
		sess.Wait()
	}
}
