package financas

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/ryan4rodrigues/financas-pessoais/internal/auth"
	"github.com/ryan4rodrigues/financas-pessoais/internal/events"
	internalTypes "github.com/ryan4rodrigues/financas-pessoais/internal/types"
)

// sessionManager implements the SessionManager interface. Every identity
// change bumps the generation; store responses tagged with an older
// generation are discarded.
type sessionManager struct {
	client *Client

	mu       sync.RWMutex
	session  *Session
	gen      uint64
	inflight int
	err      string
}

func newSessionManager(client *Client) *sessionManager {
	return &sessionManager{client: client}
}

// Login performs authentication
func (s *sessionManager) Login(ctx context.Context, email, password string) (*User, error) {
	end := s.begin()
	defer end()

	session, err := s.client.auth.Login(ctx, email, password)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.establish(ctx, session, SessionLogin, true)
	return copyUser(session.User), nil
}

// Register creates a user and signs in
func (s *sessionManager) Register(ctx context.Context, params *RegisterParams) (*User, error) {
	if params == nil {
		err := validationError("registration profile is required")
		s.fail(err)
		return nil, err
	}

	end := s.begin()
	defer end()

	session, err := s.client.auth.Register(ctx, &auth.RegisterRequest{
		Name:            params.Name,
		Email:           params.Email,
		Password:        params.Password,
		ConfirmPassword: params.ConfirmPassword,
		Phone:           params.Phone,
	})
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.establish(ctx, session, SessionRegister, true)
	return copyUser(session.User), nil
}

// ResetPassword requests a password reset email
func (s *sessionManager) ResetPassword(ctx context.Context, email string) error {
	end := s.begin()
	defer end()

	if err := s.client.auth.ResetPassword(ctx, email); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
	return nil
}

// Logout revokes the stored credential. State is reset and every store is
// cleared before Logout returns, even if storage could not be cleaned.
func (s *sessionManager) Logout(ctx context.Context) error {
	storageErr := s.client.auth.ClearSession(ctx)

	s.mu.Lock()
	s.client.transport.SetSession(nil)
	s.session = nil
	s.gen++
	s.err = ""
	s.mu.Unlock()

	s.client.logDebug("Logged out")
	s.publish(ctx, nil, SessionLogout)

	if storageErr != nil {
		return errors.Wrap(storageErr, "failed to clear stored session")
	}
	return nil
}

// Restore reloads the persisted credential. A missing credential is not an error.
func (s *sessionManager) Restore(ctx context.Context) error {
	end := s.begin()
	defer end()

	session, err := s.client.auth.LoadSession(ctx)
	if errors.Is(err, ErrNotAuthenticated) {
		return nil
	}
	if err != nil {
		s.fail(err)
		return err
	}

	s.establish(ctx, session, SessionRestore, false)
	return nil
}

// User returns the signed-in user or nil
func (s *sessionManager) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	return copyUser(s.session.User)
}

// State returns a snapshot of the session state
func (s *sessionManager) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := SessionState{
		IsLoading: s.inflight > 0,
		Error:     s.err,
	}
	if s.session != nil {
		state.User = copyUser(s.session.User)
		state.IsAuthenticated = true
	}
	return state
}

// ClearError resets the error field
func (s *sessionManager) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// Subscribe registers a handler for session changes
func (s *sessionManager) Subscribe(fn func(ctx context.Context, evt SessionEvent)) func() {
	return s.client.bus.Subscribe(events.SessionChanged, func(ctx context.Context, evt events.Event) {
		if payload, ok := evt.Payload.(SessionEvent); ok {
			fn(ctx, payload)
		}
	})
}

// establish installs a new session and waits for every subscriber to react
func (s *sessionManager) establish(ctx context.Context, session *Session, reason SessionChangeReason, persist bool) {
	if persist {
		if err := s.client.auth.SaveSession(ctx, session); err != nil {
			s.client.logWarn("Failed to persist session", "error", err)
		}
	}

	s.mu.Lock()
	s.client.transport.SetSession(session)
	s.session = session
	s.gen++
	s.err = ""
	s.mu.Unlock()

	s.publish(ctx, copyUser(session.User), reason)
}

// invalidate ends the session generation gen after the backend rejected its
// credential. Later generations are left alone.
func (s *sessionManager) invalidate(ctx context.Context, gen uint64, cause error) {
	s.mu.Lock()
	if gen != s.gen || s.session == nil {
		s.mu.Unlock()
		return
	}
	s.client.transport.SetSession(nil)
	s.session = nil
	s.gen++
	s.err = ErrorMessage(cause)
	s.mu.Unlock()

	if err := s.client.auth.ClearSession(ctx); err != nil {
		s.client.logWarn("Failed to clear rejected credential", "error", err)
	}
	s.client.logWarn("Session invalidated by backend", "reason", ErrorMessage(cause))

	s.publish(ctx, nil, SessionInvalidated)
}

func (s *sessionManager) publish(ctx context.Context, user *User, reason SessionChangeReason) {
	evt := events.Event{
		Topic:   events.SessionChanged,
		Payload: SessionEvent{User: user, Reason: reason},
	}
	if user != nil {
		evt.UserID = user.ID
	}
	s.client.bus.PublishAndWait(ctx, evt)
}

func (s *sessionManager) begin() func() {
	s.mu.Lock()
	s.inflight++
	s.err = ""
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}
}

func (s *sessionManager) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ErrorMessage(err)
}

func (s *sessionManager) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *sessionManager) authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

// userIDFor returns the user of generation gen, or "" if it is no longer current
func (s *sessionManager) userIDFor(gen uint64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if gen != s.gen || s.session == nil {
		return ""
	}
	return s.session.UserID()
}

func copyUser(u *internalTypes.User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
