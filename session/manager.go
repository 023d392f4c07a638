package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"matchain-gc/models"
	"matchain-gc/utils"
)

var (
	// ErrNoSession means the portal yielded no usable cookies/CSRF token.
	ErrNoSession = errors.New("session: no authenticated session available")
	// ErrNoSubmissionToken means the landing page carried no submission token.
	ErrNoSubmissionToken = errors.New("session: no submission token available")
	// ErrRefreshFailed wraps any failure of the refresh capability.
	ErrRefreshFailed = errors.New("session: token refresh failed")
)

// State of the token lifecycle.
type State int

const (
	StateAuthenticated State = iota
	StateInvalidated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateInvalidated:
		return "invalidated"
	case StateRefreshing:
		return "refreshing"
	}
	return "unknown"
}

// Store persists refreshed session material. FileCache satisfies it.
type Store interface {
	Save(m models.SessionMaterial) error
}

// RefreshRecorder receives refresh results; the metrics collector satisfies it.
type RefreshRecorder interface {
	RecordTokenRefresh(ok bool)
}

// Manager holds the current session material and is its only writer.
type Manager struct {
	auth    Authenticator
	store   Store
	logger  *utils.Logger
	metrics RefreshRecorder

	mu       sync.RWMutex
	material models.SessionMaterial
	state    State
}

// Options configures a Manager. Store and Metrics may be nil.
type Options struct {
	Authenticator Authenticator
	Store         Store
	Logger        *utils.Logger
	Metrics       RefreshRecorder
}

// NewManager starts in StateAuthenticated with the given initial material.
func NewManager(opts Options, initial models.SessionMaterial) (*Manager, error) {
	if opts.Authenticator == nil {
		return nil, errors.New("session: authenticator is required")
	}
	if err := checkMaterial(&initial); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Manager{
		auth:     opts.Authenticator,
		store:    opts.Store,
		logger:   logger,
		metrics:  opts.Metrics,
		material: initial.Copy(),
		state:    StateAuthenticated,
	}, nil
}

// Current returns a copy of the held material.
func (m *Manager) Current() models.SessionMaterial {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.material.Copy()
}

// CurrentToken returns the most recently issued submission token.
func (m *Manager) CurrentToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.material.SubmissionToken
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Invalidated reports whether the last refresh failed and no valid token is held.
func (m *Manager) Invalidated() bool { return m.State() == StateInvalidated }

// Rotate replaces the submission token only; cookies and CSRF are untouched.
func (m *Manager) Rotate(newToken string) error {
	if newToken == "" {
		return ErrNoSubmissionToken
	}
	m.mu.Lock()
	m.material.SubmissionToken = newToken
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.logger.Debug("[session] Token rotated: %s", models.ShortToken(newToken))
	return nil
}

// Invalidate records that the server rejected the current token.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.state = StateInvalidated
	m.mu.Unlock()
}

// Refresh asks the Authenticator for fresh material, reusing the held
// cookies. On success the material is replaced atomically and persisted.
func (m *Manager) Refresh(ctx context.Context) (models.SessionMaterial, error) {
	m.mu.Lock()
	cookies := append([]models.Cookie(nil), m.material.Cookies...)
	m.state = StateRefreshing
	m.mu.Unlock()

	m.logger.Warn("[session] Refreshing session and submission token...")
	fresh, err := m.auth.RefreshSession(ctx, cookies)
	if err == nil {
		err = checkMaterial(fresh)
	}
	if err != nil {
		m.mu.Lock()
		m.state = StateInvalidated
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.RecordTokenRefresh(false)
		}
		m.logger.Error("[session] Refresh failed: %v", err)
		return models.SessionMaterial{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	m.mu.Lock()
	m.material = fresh.Copy()
	m.state = StateAuthenticated
	current := m.material.Copy()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(true)
	}
	m.persist(current)
	m.logger.Info("[session] Session refreshed, new token %s", models.ShortToken(current.SubmissionToken))
	return current, nil
}

func (m *Manager) persist(material models.SessionMaterial) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(material); err != nil {
		m.logger.Error("[session] Could not persist session cache: %v", err)
		return
	}
	m.logger.Debug("[session] Session cache updated")
}

// Bootstrap obtains the initial material. With a cache it refreshes from the
// cached cookies; otherwise (or when nothing is cached) it performs a full
// login. A nil cache disables reading and writing the cache file.
func Bootstrap(ctx context.Context, auth Authenticator, cache *FileCache, logger *utils.Logger) (models.SessionMaterial, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	var (
		fresh *models.SessionMaterial
		err   error
	)

	var cached *CachedSession
	if cache != nil {
		cached, err = cache.Load()
		if err != nil {
			logger.Warn("[session] Ignoring unreadable session cache: %v", err)
			cached = nil
		}
	}

	if cached != nil {
		logger.Info("[session] Session loaded from %s, fetching initial submission token...", cache.Path)
		fresh, err = auth.RefreshSession(ctx, cached.Cookies)
	} else {
		logger.Info("[session] Starting a new login")
		fresh, err = auth.ObtainInitialSession(ctx)
	}
	if err != nil {
		return models.SessionMaterial{}, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if err := checkMaterial(fresh); err != nil {
		return models.SessionMaterial{}, err
	}

	if cache != nil {
		if err := cache.Save(*fresh); err != nil {
			logger.Error("[session] Could not persist session cache: %v", err)
		} else {
			logger.Info("[session] Session saved to %s", cache.Path)
		}
	}
	return fresh.Copy(), nil
}

func checkMaterial(m *models.SessionMaterial) error {
	if m == nil || m.CSRFToken == "" {
		return ErrNoSession
	}
	if m.SubmissionToken == "" {
		return ErrNoSubmissionToken
	}
	return nil
}
