// Package services contains application services for the DocScrib client.
// This file defines the session manager: the single owner of "who is
// logged in", reconciling the cached profile, the access token and server
// responses into one AuthState.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/docscrib/docscrib-cli/internal/client/client"
	"github.com/docscrib/docscrib-cli/internal/client/guard"
	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/tokens"
	"github.com/docscrib/docscrib-cli/internal/logging"
)

// ErrSessionChanged is returned by a profile operation whose session ended
// (logout, expiry) or was replaced (new login) while it was in flight. Its
// result is discarded.
var ErrSessionChanged = errors.New("session changed during request")

// AuthService defines the session operations used by the shell.
//
// Contract:
//   - CheckAuthStatus/Refresh: reconcile token and cached profile; never fail,
//     always finish with IsLoading=false.
//   - Login/Register/GoogleCallback: take the raw server response, normalize,
//     then persist tokens and profile and authenticate. Nothing is written
//     when the response is rejected or unrecognized.
//   - Logout: best-effort server call, then unconditional local teardown and
//     navigation to the login page.
//   - UpdateUser/UploadProfileImage/CompleteOnboarding: replace the profile
//     and keep the authentication flag.
//   - State/Subscribe: read-only views of the session.
//   - Close: release subscribers and the API client.
//
// All methods are safe for concurrent use. When profile writes overlap, the
// one that resolves last is the one applied, both in memory and on disk.
type AuthService interface {
	CheckAuthStatus(ctx context.Context) models.AuthState
	Refresh(ctx context.Context) models.AuthState
	Login(ctx context.Context, resp json.RawMessage) (*models.User, error)
	Register(ctx context.Context, resp json.RawMessage) (*models.User, error)
	GoogleCallback(ctx context.Context, resp json.RawMessage) (*models.User, error)
	Logout(ctx context.Context)
	UpdateUser(ctx context.Context, resp json.RawMessage) (*models.User, error)
	UploadProfileImage(ctx context.Context, filename string, r io.Reader) (string, error)
	CompleteOnboarding(ctx context.Context, data models.OnboardingData) (*models.User, error)
	State() models.AuthState
	Subscribe() (<-chan models.AuthState, func())
	Close() error
}

type authService struct {
	client client.Client
	tokens tokens.Store
	users  *UserStore
	nav    guard.Navigator
	log    logging.Logger

	mu       sync.Mutex
	state    models.AuthState
	inflight int
	// epoch changes whenever the session identity changes: login,
	// logout, demotion. Profile writes started in an older epoch are dropped.
	epoch   uint64
	subs    map[int]chan models.AuthState
	nextSub int
	closed  bool
}

type Option func(*authService)

// WithNavigator sets where Logout sends the user.
func WithNavigator(nav guard.Navigator) Option {
	return func(s *authService) { s.nav = nav }
}

func WithLogger(l logging.Logger) Option {
	return func(s *authService) { s.log = l }
}

// NewAuthService builds a session manager in the Unknown phase. Call
// CheckAuthStatus once on start.
func NewAuthService(c client.Client, ts tokens.Store, users *UserStore, opts ...Option) AuthService {
	s := &authService{
		client: c,
		tokens: ts,
		users:  users,
		nav:    guard.NavigatorFunc(func(string) {}),
		log:    logging.NewNop(),
		subs:   make(map[int]chan models.AuthState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "services.auth")
	return s
}

// CheckAuthStatus decides the session from local data. A valid token with a
// cached profile authenticates. A valid token without a profile fetches it
// from the server. A missing or expired token clears the cached profile.
// Unexpected failures clear tokens and profile. Network and server failures
// while fetching the profile leave tokens in place for the next check.
func (s *authService) CheckAuthStatus(ctx context.Context) models.AuthState {
	s.mu.Lock()
	s.inflight++
	if s.state.Phase == models.PhaseUnknown {
		s.state.Phase = models.PhaseChecking
	}
	epoch := s.epoch
	s.publishLocked()
	s.mu.Unlock()

	s.reconcile(ctx, epoch)

	s.end()
	return s.State()
}

// Refresh re-runs the status check on demand.
func (s *authService) Refresh(ctx context.Context) models.AuthState {
	return s.CheckAuthStatus(ctx)
}

func (s *authService) reconcile(ctx context.Context, epoch uint64) {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.demote(ctx, epoch, true, fmt.Errorf("read access token: %w", err))
		return
	}
	if token == "" || s.tokens.IsTokenExpired(token) {
		s.demote(ctx, epoch, false, nil)
		return
	}

	user, err := s.users.GetUserData(ctx)
	if err != nil {
		s.demote(ctx, epoch, true, err)
		return
	}

	fetched := false
	if user == nil {
		user, err = s.fetchProfile(ctx)
		if err != nil {
			s.demote(ctx, epoch, !isTransient(err), err)
			return
		}
		fetched = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	if fetched {
		if err := s.users.StoreUserData(context.WithoutCancel(ctx), user); err != nil {
			s.log.Warn(ctx, "cache fetched profile", "error", err)
		}
	}
	s.state.IsAuthenticated = true
	s.state.User = user
	s.state.Phase = models.PhaseAuthenticated
	s.publishLocked()
}

func (s *authService) fetchProfile(ctx context.Context) (*models.User, error) {
	raw, err := s.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	u, err := models.NormalizeUser(raw)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return u, nil
}

// demote moves the session to Unauthenticated unless a newer operation has
// already decided it.
func (s *authService) demote(ctx context.Context, epoch uint64, clearTokens bool, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	if cause != nil {
		s.log.Warn(ctx, "session check failed", "error", cause, "clear_tokens", clearTokens)
	}

	ctx = context.WithoutCancel(ctx)
	if clearTokens {
		if err := s.tokens.ClearTokens(ctx); err != nil {
			s.log.Error(ctx, "clear tokens", "error", err)
		}
	}
	if err := s.users.ClearUserData(ctx); err != nil {
		s.log.Error(ctx, "clear cached user", "error", err)
	}
	s.resetLocked()
}

func (s *authService) Login(ctx context.Context, resp json.RawMessage) (*models.User, error) {
	return s.authenticate(ctx, "login", resp)
}

func (s *authService) Register(ctx context.Context, resp json.RawMessage) (*models.User, error) {
	return s.authenticate(ctx, "register", resp)
}

func (s *authService) GoogleCallback(ctx context.Context, resp json.RawMessage) (*models.User, error) {
	return s.authenticate(ctx, "google callback", resp)
}

// authenticate starts a new session from a login-type response. Tokens and
// profile are committed only after the response normalizes; a response that
// does not leaves the stored session and the authentication flag as they were.
func (s *authService) authenticate(ctx context.Context, op string, resp json.RawMessage) (*models.User, error) {
	s.begin()
	defer s.end()

	parsed, err := models.ParseLoginResponse(resp)
	if err == nil {
		var u *models.User
		if u, err = models.Normalize(parsed); err == nil {
			return s.commit(ctx, op, u, parsed.Tokens())
		}
	}
	s.log.Warn(ctx, op+" response not accepted", "error", err)
	return nil, fmt.Errorf("%s: %w", op, err)
}

func (s *authService) commit(ctx context.Context, op string, u *models.User, t models.Tokens) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := t.AccessToken != ""
	if saved {
		if err := s.tokens.SetTokens(ctx, t); err != nil {
			return nil, fmt.Errorf("%s: save tokens: %w", op, err)
		}
	}
	if err := s.users.StoreUserData(ctx, u); err != nil {
		if saved {
			if cerr := s.tokens.ClearTokens(context.WithoutCancel(ctx)); cerr != nil {
				s.log.Error(ctx, "clear tokens", "error", cerr)
			}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.epoch++
	s.state.IsAuthenticated = true
	s.state.User = u
	s.state.Phase = models.PhaseAuthenticated
	s.publishLocked()

	s.log.Info(ctx, op+" succeeded", "user_id", u.ID, "provider", u.AuthProvider)
	return u.Clone(), nil
}

// Logout never fails: the local session is torn down even when the server
// cannot be reached.
func (s *authService) Logout(ctx context.Context) {
	s.begin()

	if err := s.client.Logout(ctx); err != nil {
		s.log.Warn(ctx, "server logout failed", "error", err)
	}

	local := context.WithoutCancel(ctx)
	s.mu.Lock()
	if err := s.tokens.ClearTokens(local); err != nil {
		s.log.Error(ctx, "clear tokens", "error", err)
	}
	if err := s.users.ClearUserData(local); err != nil {
		s.log.Error(ctx, "clear cached user", "error", err)
	}
	s.resetLocked()
	s.mu.Unlock()

	s.end()
	s.nav.Navigate(guard.LoginPath)
	s.log.Info(ctx, "logged out")
}

func (s *authService) UpdateUser(ctx context.Context, resp json.RawMessage) (*models.User, error) {
	epoch := s.begin()
	defer s.end()
	return s.applyProfile(ctx, "update user", epoch, resp)
}

// UploadProfileImage sends the image and returns the resulting image
// reference.
func (s *authService) UploadProfileImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	epoch := s.begin()
	defer s.end()

	resp, err := s.client.UploadProfileImage(ctx, filename, r)
	if err != nil {
		return "", fmt.Errorf("upload profile image: %w", err)
	}
	u, err := s.applyProfile(ctx, "upload profile image", epoch, resp)
	if err != nil {
		return "", err
	}
	return u.ImageRef(), nil
}

func (s *authService) CompleteOnboarding(ctx context.Context, data models.OnboardingData) (*models.User, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}

	epoch := s.begin()
	defer s.end()

	resp, err := s.client.CompleteOnboarding(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}
	return s.applyProfile(ctx, "complete onboarding", epoch, resp)
}

// applyProfile replaces the profile in storage and memory as one step.
func (s *authService) applyProfile(ctx context.Context, op string, epoch uint64, resp json.RawMessage) (*models.User, error) {
	u, err := models.NormalizeUser(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionChanged)
	}
	if err := s.users.StoreUserData(ctx, u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.state.User = u
	s.publishLocked()
	return u.Clone(), nil
}

func (s *authService) State() models.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives the current state immediately
// and every later change. Slow readers only see the latest state. The
// returned function unsubscribes and closes the channel.
func (s *authService) Subscribe() (<-chan models.AuthState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.AuthState, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close closes every subscription and the API client. Further state
// changes are no longer published.
func (s *authService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	return s.client.Close()
}

func (s *authService) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.publishLocked()
	return s.epoch
}

func (s *authService) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	s.publishLocked()
}

func (s *authService) resetLocked() {
	s.epoch++
	s.state.IsAuthenticated = false
	s.state.User = nil
	s.state.Phase = models.PhaseUnauthenticated
	s.publishLocked()
}

func (s *authService) snapshotLocked() models.AuthState {
	st := s.state.Clone()
	st.IsLoading = s.inflight > 0
	return st
}

func (s *authService) publishLocked() {
	s.state.Version++
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.snapshotLocked()
	}
}

// isTransient reports failures that say nothing about the token itself.
func isTransient(err error) bool {
	return errors.Is(err, client.ErrUnavailable) ||
		errors.Is(err, client.ErrServer) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
