// Package auth talks to the backend's public authentication endpoints and
// persists the resulting credential in client storage.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/ryan4rodrigues/financas-pessoais/internal/storage"
	"github.com/ryan4rodrigues/financas-pessoais/internal/types"
)

const (
	loginEndpoint         = "/auth/login"
	registerEndpoint      = "/auth/register"
	resetPasswordEndpoint = "/auth/reset-password"

	deviceStorageKey = "financas_device"
)

// Requester sends unauthenticated requests; satisfied by the REST transport
type Requester interface {
	DoPublic(ctx context.Context, method, path string, body interface{}, result interface{}) error
}

// RegisterRequest is the profile sent to /auth/register
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	Phone           string `json:"phone,omitempty"`
}

// Service handles authentication operations
type Service struct {
	requester Requester
	store     storage.Store
	logger    types.Logger
}

// NewService creates a new auth service
func NewService(requester Requester, store storage.Store, logger types.Logger) *Service {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Service{
		requester: requester,
		store:     store,
		logger:    logger,
	}
}

// Login exchanges credentials for a session
func (s *Service) Login(ctx context.Context, email, password string) (*types.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	if s.logger != nil {
		s.logger.Debug("Login request", "email", email)
	}

	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.requester.DoPublic(ctx, http.MethodPost, loginEndpoint, body, &resp); err != nil {
		return nil, errors.Wrap(err, "login failed")
	}

	session, err := s.newSession(ctx, &resp)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("Login successful", "email", email, "user_id", session.UserID())
	}
	return session, nil
}

// Register creates an account and returns its session
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*types.Session, error) {
	if req == nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, invalid("email and password are required")
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return nil, invalid("passwords do not match")
	}

	var resp authResponse
	if err := s.requester.DoPublic(ctx, http.MethodPost, registerEndpoint, req, &resp); err != nil {
		return nil, errors.Wrap(err, "registration failed")
	}

	session, err := s.newSession(ctx, &resp)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("Registration successful", "email", req.Email, "user_id", session.UserID())
	}
	return session, nil
}

// ResetPassword asks the backend to send a password reset to email
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}
	body := map[string]string{"email": email}
	if err := s.requester.DoPublic(ctx, http.MethodPost, resetPasswordEndpoint, body, nil); err != nil {
		return errors.Wrap(err, "password reset failed")
	}
	return nil
}

// SaveSession persists the token and the user profile under the global keys
func (s *Service) SaveSession(ctx context.Context, session *types.Session) error {
	if session == nil || session.Token == "" {
		return types.ErrNotAuthenticated
	}

	if err := storage.SetJSON(ctx, s.store, types.UserStorageKey, session.User); err != nil {
		return errors.Wrap(err, "failed to save user")
	}
	if err := s.store.Set(ctx, types.TokenStorageKey, []byte(session.Token)); err != nil {
		return errors.Wrap(err, "failed to save token")
	}

	if s.logger != nil {
		s.logger.Debug("Session saved", "user_id", session.UserID())
	}
	return nil
}

// LoadSession restores a previously saved session. Both keys must be present.
func (s *Service) LoadSession(ctx context.Context) (*types.Session, error) {
	token, err := s.store.Get(ctx, types.TokenStorageKey)
	if err == storage.ErrNotFound {
		return nil, types.ErrNotAuthenticated
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token")
	}

	var user types.User
	if err := storage.GetJSON(ctx, s.store, types.UserStorageKey, &user); err != nil {
		if err == storage.ErrNotFound {
			return nil, types.ErrNotAuthenticated
		}
		return nil, errors.Wrap(err, "failed to read user")
	}

	if len(token) == 0 || user.ID == "" {
		return nil, types.ErrNotAuthenticated
	}

	if s.logger != nil {
		s.logger.Info("Session loaded", "user_id", user.ID, "email", user.Email)
	}

	return &types.Session{
		Token:      string(token),
		User:       &user,
		CreatedAt:  time.Now(),
		DeviceUUID: s.deviceUUID(ctx),
	}, nil
}

// ClearSession removes both persisted keys
func (s *Service) ClearSession(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{types.UserStorageKey, types.TokenStorageKey} {
		if err := s.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to delete %s", key)
		}
	}
	return firstErr
}

func (s *Service) newSession(ctx context.Context, resp *authResponse) (*types.Session, error) {
	if resp.Token == "" {
		return nil, errors.New("no token in auth response")
	}
	if resp.User == nil {
		return nil, errors.New("no user in auth response")
	}
	return &types.Session{
		Token:      resp.Token,
		User:       resp.User,
		CreatedAt:  time.Now(),
		DeviceUUID: s.deviceUUID(ctx),
	}, nil
}

// deviceUUID returns this installation's stable device id, creating it once
func (s *Service) deviceUUID(ctx context.Context) string {
	if id, err := s.store.Get(ctx, deviceStorageKey); err == nil && len(id) > 0 {
		return string(id)
	}
	id := uuid.New().String()
	if err := s.store.Set(ctx, deviceStorageKey, []byte(id)); err != nil && s.logger != nil {
		s.logger.Warn("Failed to persist device id", "error", err)
	}
	return id
}

func invalid(msg string) error {
	return &types.Error{
		Code:    "BAD_REQUEST",
		Message: msg,
		Err:     types.ErrInvalidRequest,
	}
}

// authResponse is the payload of login and register
type authResponse struct {
	User  *types.User `json:"user"`
	Token string      `json:"token"`
}
