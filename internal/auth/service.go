package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/semmy-space/shelf/internal/api"
	"github.com/semmy-space/shelf/internal/pipeline"
	"github.com/semmy-space/shelf/internal/state"
)

// ErrNotAuthenticated means no usable session exists: either no credential
// is stored or the server refused it.
var ErrNotAuthenticated = errors.New("not authenticated")

// Service runs the account flows: login, registration, the signed-in user
// gate and profile updates.
type Service struct {
	creds *CredentialSource
	user  *state.Value[*api.UserResponse]
	log   hclog.Logger

	logins *pipeline.Pipeline[api.LoginResponse]
	users  *pipeline.Pipeline[api.UserResponse]
}

// NewService wires the flows to clients at baseURL.
func NewService(creds *CredentialSource, user *state.Value[*api.UserResponse], clients pipeline.ClientSource, baseURL string, log hclog.Logger, opts ...pipeline.Option) *Service {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Service{
		creds:  creds,
		user:   user,
		log:    log,
		logins: pipeline.New[api.LoginResponse](clients, baseURL, opts...),
		users:  pipeline.New[api.UserResponse](clients, baseURL, opts...),
	}
}

// Close cancels any flow still in flight.
func (s *Service) Close() {
	s.logins.Close()
	s.users.Close()
}

// Login exchanges credentials for a token and stores it. The cached user is
// dropped so the next gate check fetches the new account.
func (s *Service) Login(ctx context.Context, req api.LoginRequest) error {
	if err := api.Check(req); err != nil {
		return err
	}

	st := s.logins.Do(ctx, api.Login(req))
	if err := st.Err(); err != nil {
		return err
	}

	if err := s.creds.Save(st.Data.Data.Token); err != nil {
		return err
	}
	if err := s.user.Clear(); err != nil {
		s.log.Warn("failed to drop cached user", "error", err)
	}
	return nil
}

// Register creates an account. It does not sign in.
func (s *Service) Register(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	if err := api.Check(req); err != nil {
		return nil, err
	}

	st := s.users.Do(ctx, api.Register(req))
	if err := st.Err(); err != nil {
		return nil, err
	}
	return &st.Data.Data, nil
}

// Logout removes the stored token and the cached user.
func (s *Service) Logout() error {
	if err := s.creds.Clear(); err != nil {
		return err
	}
	if err := s.user.Clear(); err != nil {
		return fmt.Errorf("failed to clear cached user: %w", err)
	}
	return nil
}

// Authenticated reports whether a credential is stored.
func (s *Service) Authenticated() bool {
	return s.creds.Present()
}

// CachedUser returns the signed-in user kept from an earlier fetch.
func (s *Service) CachedUser() (*api.User, bool) {
	cached, ok := s.user.Get()
	if !ok || cached == nil {
		return nil, false
	}
	return &cached.Data, true
}

// EnsureUser is the gate in front of authenticated commands. A cached user
// passes immediately; otherwise a stored token is checked against /user and
// the result cached. No token, or a failed check, yields ErrNotAuthenticated.
func (s *Service) EnsureUser(ctx context.Context) (*api.User, error) {
	if u, ok := s.CachedUser(); ok {
		return u, nil
	}
	return s.FetchUser(ctx)
}

// FetchUser always asks the server for the current user and caches it.
func (s *Service) FetchUser(ctx context.Context) (*api.User, error) {
	if !s.creds.Present() {
		return nil, ErrNotAuthenticated
	}

	st := s.users.Do(ctx, api.CurrentUser())
	if err := st.Err(); err != nil {
		if errors.Is(err, pipeline.ErrIncomplete) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}

	if err := s.user.Set(st.Data); err != nil {
		return nil, err
	}
	return &st.Data.Data, nil
}

// UpdateProfile changes the signed-in account and refreshes the cached user.
func (s *Service) UpdateProfile(ctx context.Context, req api.UpdateUserRequest) (*api.User, error) {
	if err := api.Check(req); err != nil {
		return nil, err
	}
	if !s.creds.Present() {
		return nil, ErrNotAuthenticated
	}

	st := s.users.Do(ctx, api.UpdateUser(req))
	if err := st.Err(); err != nil {
		return nil, err
	}

	if err := s.user.Set(st.Data); err != nil {
		return nil, err
	}
	return &st.Data.Data, nil
}
