package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

const (
	DefaultSlidingWindow = 60 * time.Minute
	DefaultMaxLifetime   = 12 * time.Hour
)

// Options configures a Manager.
type Options struct {
	// SlidingWindow is the initial lifetime and the renewal step.
	SlidingWindow time.Duration

	// MaxLifetime is the default cap from creation when Open is called with
	// a non-positive maxLifetime.
	MaxLifetime time.Duration

	// Now overrides the clock used by Open and Sweep.
	Now func() time.Time

	Logger *zap.Logger
}

// Ticket is returned by Open. Reference goes into the cookie and nowhere else.
type Ticket struct {
	Reference string
	ID        string
	ExpiresAt time.Time
}

// Manager is the session store adapter.
type Manager struct {
	backend Backend
	window  time.Duration
	maxLife time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewManager validates opts and returns a Manager over backend.
func NewManager(backend Backend, opts Options) (*Manager, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: session backend is required", auth.ErrConfiguration)
	}
	if opts.SlidingWindow == 0 {
		opts.SlidingWindow = DefaultSlidingWindow
	}
	if opts.MaxLifetime == 0 {
		opts.MaxLifetime = DefaultMaxLifetime
	}
	if opts.SlidingWindow < 0 || opts.SlidingWindow >= opts.MaxLifetime {
		return nil, fmt.Errorf("%w: sliding window %s must be positive and shorter than max lifetime %s",
			auth.ErrConfiguration, opts.SlidingWindow, opts.MaxLifetime)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		backend: backend,
		window:  opts.SlidingWindow,
		maxLife: opts.MaxLifetime,
		now:     opts.Now,
		logger:  opts.Logger,
	}, nil
}

// SlidingWindow returns the configured renewal step.
func (m *Manager) SlidingWindow() time.Duration { return m.window }

// Open allocates a session for cs. The reference is random and unrelated to
// the claims. A non-positive maxLifetime uses the configured default.
func (m *Manager) Open(ctx context.Context, cs claims.ClaimSet, maxLifetime time.Duration) (Ticket, error) {
	if err := cs.Validate(); err != nil {
		return Ticket{}, err
	}
	if maxLifetime <= 0 {
		maxLifetime = m.maxLife
	}

	ref, key, err := auth.GenerateReference()
	if err != nil {
		return Ticket{}, err
	}
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return Ticket{}, fmt.Errorf("generate session id: %w", err)
	}

	now := m.now()
	initial := m.window
	if initial > maxLifetime {
		initial = maxLifetime
	}
	rec := &Record{
		ID:           id.String(),
		Key:          key,
		Claims:       cs,
		CreatedAt:    now,
		ExpiresAt:    now.Add(initial),
		MaxExpiresAt: now.Add(maxLifetime),
	}
	if err := m.backend.Create(ctx, rec); err != nil {
		return Ticket{}, fmt.Errorf("create session: %w", err)
	}

	m.logger.Debug("session opened",
		zap.String("session_id", rec.ID),
		zap.String("subject", cs.Subject()),
		zap.Time("expires_at", rec.ExpiresAt),
	)
	return Ticket{Reference: ref, ID: rec.ID, ExpiresAt: rec.ExpiresAt}, nil
}

// Resolve returns the claims behind reference and slides its expiry.
// Rejections are auth.ErrSessionNotFound and auth.ErrSessionExpired.
func (m *Manager) Resolve(ctx context.Context, reference string, now time.Time) (claims.ClaimSet, error) {
	rec, err := m.Lookup(ctx, reference, now)
	if err != nil {
		return claims.ClaimSet{}, err
	}
	return rec.Claims, nil
}

// Lookup is Resolve returning the whole record.
func (m *Manager) Lookup(ctx context.Context, reference string, now time.Time) (*Record, error) {
	if reference == "" {
		return nil, auth.ErrSessionNotFound
	}
	rec, err := m.backend.Touch(ctx, auth.HashToken(reference), now, m.window)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Close deletes the session. Closing an unknown or already closed reference
// succeeds.
func (m *Manager) Close(ctx context.Context, reference string) error {
	if reference == "" {
		return nil
	}
	if err := m.backend.Delete(ctx, auth.HashToken(reference)); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// Sweep deletes expired records.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.backend.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	if n > 0 {
		m.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}

// RunJanitor calls Sweep every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Warn("session sweep failed", zap.Error(err))
			}
		case <-ctx.Done():
			return nil
		}
	}
}
