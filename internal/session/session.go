// Package session owns the client's authentication state: the persisted
// bearer token, the current user and the transitions between them. It is an
// injected service with an explicit lifecycle, not ambient global state;
// reactive layers subscribe for change notification.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"neuroscan/internal/api"
	"neuroscan/internal/authclient"
	"neuroscan/internal/store"
	"neuroscan/pkg/domain"
)

// State is the session lifecycle position.
type State int

const (
	StateUnauthenticated State = iota
	StateVerifying
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Outcome is the uniform result of the auth request/response pairs, shaped
// so callers can branch on specific HTTP statuses (a 404 on a reset step
// sends the user back to the request-code step).
type Outcome struct {
	Success              bool
	Err                  string
	StatusCode           int
	RequiresVerification bool
}

func successOutcome() Outcome {
	return Outcome{Success: true}
}

func failedOutcome(err error, fallback string) Outcome {
	out := Outcome{Err: fallback}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			out.Err = apiErr.Message
		}
		out.StatusCode = apiErr.StatusCode
	} else if errors.Is(err, api.ErrConnectivity) {
		out.Err = "network error"
	}
	return out
}

// Manager drives the session state machine. All methods are safe for
// concurrent use; subscribers are notified outside the lock.
type Manager struct {
	auth  *authclient.Client
	store store.Store
	now   func() time.Time

	mu    sync.Mutex
	state State
	token string
	user  *domain.User
	subs  []func(State)
}

// New builds a Manager over the auth client and durable store.
func New(auth *authclient.Client, st store.Store) *Manager {
	return &Manager{
		auth:  auth,
		store: st,
		now:   time.Now,
		state: StateUnauthenticated,
	}
}

// Init restores a persisted token and re-validates it against the backend.
// A token that is already expired by its own claims is cleared without a
// network call. Verification failure clears the token.
func (m *Manager) Init(ctx context.Context) {
	m.mu.Lock()
	raw, ok, err := m.store.Get(store.KeyToken)
	if err != nil || !ok || len(raw) == 0 {
		m.mu.Unlock()
		return
	}
	token := string(raw)
	if m.tokenExpiredLocally(token) {
		_ = m.store.Delete(store.KeyToken)
		m.mu.Unlock()
		slog.Debug("persisted token already expired, skipping verification")
		return
	}
	m.token = token
	m.setStateLocked(StateVerifying)
	m.mu.Unlock()
	m.notify(StateVerifying)

	user, err := m.auth.VerifyToken(ctx)
	if err != nil {
		slog.Warn("token verification failed", "err", err)
		m.Logout()
		return
	}
	m.mu.Lock()
	m.user = &user
	m.setStateLocked(StateAuthenticated)
	m.mu.Unlock()
	m.notify(StateAuthenticated)
}

// tokenExpiredLocally inspects the token's exp claim without verifying the
// signature; only the backend can actually validate the token.
func (m *Manager) tokenExpiredLocally(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(m.now())
}

// TokenExpiry reports the token's own expiry claim, if present.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Login exchanges credentials for a token, then fetches the profile. Both
// must succeed for the caller to be told success.
func (m *Manager) Login(ctx context.Context, email, password string) Outcome {
	token, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return failedOutcome(err, "login failed")
	}
	return m.adoptToken(ctx, token)
}

// adoptToken persists a freshly issued token and resolves its user.
func (m *Manager) adoptToken(ctx context.Context, token string) Outcome {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	if err := m.store.Set(store.KeyToken, []byte(token)); err != nil {
		slog.Warn("persist token failed", "err", err)
	}

	user, err := m.auth.Me(ctx)
	if err != nil {
		m.Logout()
		return failedOutcome(err, "could not load profile")
	}
	m.mu.Lock()
	m.user = &user
	m.setStateLocked(StateAuthenticated)
	m.mu.Unlock()
	m.notify(StateAuthenticated)
	return successOutcome()
}

// Register creates an account. Verification continues through VerifyOTP.
func (m *Manager) Register(ctx context.Context, fullName, email, password string) Outcome {
	resp, err := m.auth.Register(ctx, fullName, email, password)
	if err != nil {
		return failedOutcome(err, "registration failed")
	}
	return Outcome{Success: true, RequiresVerification: resp.RequiresVerification}
}

// VerifyOTP confirms the signup code; on success the issued token is
// adopted like a login.
func (m *Manager) VerifyOTP(ctx context.Context, email, code string) Outcome {
	token, err := m.auth.VerifyOTP(ctx, email, code)
	if err != nil {
		return failedOutcome(err, "OTP verification failed")
	}
	return m.adoptToken(ctx, token)
}

// ResendOTP re-sends the signup verification code.
func (m *Manager) ResendOTP(ctx context.Context, email string) Outcome {
	if err := m.auth.ResendOTP(ctx, email); err != nil {
		return failedOutcome(err, "failed to resend OTP")
	}
	return successOutcome()
}

// ForgotPassword starts the four-step reset flow.
func (m *Manager) ForgotPassword(ctx context.Context, email string) Outcome {
	if err := m.auth.ForgotPassword(ctx, email); err != nil {
		return failedOutcome(err, "failed to send reset code")
	}
	return successOutcome()
}

// VerifyResetOTP checks the reset code.
func (m *Manager) VerifyResetOTP(ctx context.Context, email, code string) Outcome {
	if err := m.auth.VerifyResetOTP(ctx, email, code); err != nil {
		return failedOutcome(err, "invalid verification code")
	}
	return successOutcome()
}

// ResetPassword submits the new password with the reset code.
func (m *Manager) ResetPassword(ctx context.Context, email, code, newPassword string) Outcome {
	if err := m.auth.ResetPassword(ctx, email, code, newPassword); err != nil {
		return failedOutcome(err, "password reset failed")
	}
	return successOutcome()
}

// ResendResetOTP re-sends the reset code.
func (m *Manager) ResendResetOTP(ctx context.Context, email string) Outcome {
	if err := m.auth.ResendResetOTP(ctx, email); err != nil {
		return failedOutcome(err, "failed to resend reset code")
	}
	return successOutcome()
}

// ChangePassword rotates the signed-in account's password.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) Outcome {
	if err := m.auth.ChangePassword(ctx, current, next); err != nil {
		return failedOutcome(err, "password change failed")
	}
	return successOutcome()
}

// UpdateProfile edits the signed-in account and refreshes the cached user.
func (m *Manager) UpdateProfile(ctx context.Context, fullName, email string) Outcome {
	user, err := m.auth.UpdateProfile(ctx, fullName, email)
	if err != nil {
		return failedOutcome(err, "profile update failed")
	}
	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return successOutcome()
}

// Logout clears the token and user locally. No server call is made.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	changed := m.state != StateUnauthenticated
	m.setStateLocked(StateUnauthenticated)
	m.mu.Unlock()
	_ = m.store.Delete(store.KeyToken)
	if changed {
		m.notify(StateUnauthenticated)
	}
}

// HandleAuthError forces a logout when a request failed with a 401.
// Returns true when the error was consumed as an auth failure.
func (m *Manager) HandleAuthError(err error) bool {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.IsAuth() {
		slog.Info("session expired, logging out")
		m.Logout()
		return true
	}
	return false
}

// State reports the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the current user, if authenticated.
func (m *Manager) User() (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return domain.User{}, false
	}
	return *m.user, true
}

// Token returns the current bearer token; shaped to serve as api.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Authenticated reports whether a verified user is present.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.user != nil
}

// Subscribe registers a state-change listener.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
}

func (m *Manager) notify(s State) {
	m.mu.Lock()
	subs := make([]func(State), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}
