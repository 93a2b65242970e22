package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/docscrib/docscrib-cli/internal/client/client"
	"github.com/docscrib/docscrib-cli/internal/client/guard"
	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/repositories/metadata"
	"github.com/docscrib/docscrib-cli/internal/client/tokens"
	"github.com/docscrib/docscrib-cli/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

type env struct {
	db     *sql.DB
	tokens *tokens.MetadataStore
	users  *UserStore
	client *fakeClient
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &env{
		db:     db,
		tokens: tokens.NewMetadataStore(db, 0),
		users:  NewUserStore(metadata.NewSQLiteRepository(db)),
		client: &fakeClient{},
	}
}

func (e *env) service(opts ...Option) AuthService {
	return NewAuthService(e.client, e.tokens, e.users, opts...)
}

func token(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func (e *env) login(t *testing.T) {
	t.Helper()
	require.NoError(t, e.tokens.SetTokens(context.Background(), models.Tokens{
		AccessToken:  token(t, time.Hour),
		RefreshToken: "refresh",
	}))
}

func (e *env) cache(t *testing.T, u *models.User) {
	t.Helper()
	require.NoError(t, e.users.StoreUserData(context.Background(), u))
}

func (e *env) cached(t *testing.T) *models.User {
	t.Helper()
	u, err := e.users.GetUserData(context.Background())
	require.NoError(t, err)
	return u
}

func (e *env) accessToken(t *testing.T) string {
	t.Helper()
	v, err := e.tokens.AccessToken(context.Background())
	require.NoError(t, err)
	return v
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

const annNewEnvelope = `{"success":true,"data":{"user":{"id":1,"email":"ann@clinic.org","first_name":"Ann","last_name":"Lee","organisation_name":"Clinic"}}}`

// ---- fake client ----

type fakeClient struct {
	mu sync.Mutex

	MeFn         func(ctx context.Context) (json.RawMessage, error)
	UploadFn     func(ctx context.Context, filename string, r io.Reader) (json.RawMessage, error)
	OnboardingFn func(ctx context.Context, data models.OnboardingData) (json.RawMessage, error)
	LogoutErr    error
	CloseErr     error

	MeCalls         int
	LogoutCalls     int
	OnboardingCalls int
	Closed          bool
}

func (f *fakeClient) Login(context.Context, models.Credentials) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeClient) Register(context.Context, models.Registration) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeClient) GoogleCallback(context.Context, models.GoogleCallback) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeClient) Me(ctx context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	f.MeCalls++
	fn := f.MeFn
	f.mu.Unlock()
	if fn == nil {
		return nil, client.ErrUnavailable
	}
	return fn(ctx)
}

func (f *fakeClient) UpdateMe(context.Context, models.ProfileUpdate) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeClient) CompleteOnboarding(ctx context.Context, data models.OnboardingData) (json.RawMessage, error) {
	f.mu.Lock()
	f.OnboardingCalls++
	fn := f.OnboardingFn
	f.mu.Unlock()
	return fn(ctx, data)
}

func (f *fakeClient) UploadProfileImage(ctx context.Context, filename string, r io.Reader) (json.RawMessage, error) {
	return f.UploadFn(ctx, filename, r)
}

func (f *fakeClient) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	return f.LogoutErr
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return f.CloseErr
}

// ---- CheckAuthStatus ----

func TestCheckAuthStatus_ValidTokenWithCachedProfile(t *testing.T) {
	e := setup(t)
	e.login(t)
	cached := &models.User{ID: 1, Email: "ann@clinic.org", FirstName: "Ann", FirstNameAlias: "Ann", Name: "Ann"}
	e.cache(t, cached)

	svc := e.service()
	assert.Equal(t, models.PhaseUnknown, svc.State().Phase)

	st := svc.CheckAuthStatus(context.Background())

	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Equal(t, models.PhaseAuthenticated, st.Phase)
	if diff := cmp.Diff(cached, st.User); diff != "" {
		t.Fatalf("user mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, e.client.MeCalls)
}

func TestCheckAuthStatus_NoTokenClearsCache(t *testing.T) {
	e := setup(t)
	e.cache(t, &models.User{ID: 1, Email: "ann@clinic.org"})

	st := e.service().CheckAuthStatus(context.Background())

	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.User)
	assert.Equal(t, models.PhaseUnauthenticated, st.Phase)
	assert.Nil(t, e.cached(t))
}

func TestCheckAuthStatus_ExpiredTokenClearsCache(t *testing.T) {
	e := setup(t)
	require.NoError(t, e.tokens.SetTokens(context.Background(), models.Tokens{AccessToken: token(t, -time.Minute)}))
	e.cache(t, &models.User{ID: 1, Email: "ann@clinic.org"})

	st := e.service().CheckAuthStatus(context.Background())

	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.Nil(t, e.cached(t))
	assert.Zero(t, e.client.MeCalls)
}

func TestCheckAuthStatus_TokenWithoutExpiryClearsCache(t *testing.T) {
	e := setup(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, e.tokens.SetTokens(context.Background(), models.Tokens{AccessToken: tok}))
	e.cache(t, &models.User{ID: 1, Email: "ann@clinic.org"})

	st := e.service().CheckAuthStatus(context.Background())

	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, e.cached(t))
}

func TestCheckAuthStatus_FetchesMissingProfile(t *testing.T) {
	e := setup(t)
	e.login(t)
	e.client.MeFn = func(context.Context) (json.RawMessage, error) {
		return raw(`{"id":3,"email":"bo@clinic.org","first_name":"Bo"}`), nil
	}

	st := e.service().CheckAuthStatus(context.Background())

	require.True(t, st.IsAuthenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "Bo", st.User.FirstNameAlias)
	assert.Equal(t, 1, e.client.MeCalls)

	cached := e.cached(t)
	require.NotNil(t, cached)
	assert.Equal(t, int64(3), cached.ID)
}

func TestCheckAuthStatus_ProfileRejectedClearsTokens(t *testing.T) {
	e := setup(t)
	e.login(t)
	e.client.MeFn = func(context.Context) (json.RawMessage, error) {
		return nil, &client.APIError{Status: 401, Message: "expired"}
	}

	st := e.service().CheckAuthStatus(context.Background())

	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, e.accessToken(t))
}

func TestCheckAuthStatus_ProfileUnavailableKeepsTokens(t *testing.T) {
	e := setup(t)
	e.login(t)
	e.client.MeFn = func(context.Context) (json.RawMessage, error) {
		return nil, client.ErrUnavailable
	}

	st := e.service().CheckAuthStatus(context.Background())

	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.NotEmpty(t, e.accessToken(t))
}

func TestCheckAuthStatus_CorruptCacheClearsEverything(t *testing.T) {
	e := setup(t)
	e.login(t)
	repo := metadata.NewSQLiteRepository(e.db)
	require.NoError(t, repo.Set(context.Background(), common.UserDataKey, []byte("{not json")))

	st := e.service().CheckAuthStatus(context.Background())

	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, e.accessToken(t))
	assert.Nil(t, e.cached(t))
}

func TestRefresh_DetectsExpiry(t *testing.T) {
	e := setup(t)
	e.login(t)
	e.cache(t, &models.User{ID: 1, Email: "ann@clinic.org"})

	svc := e.service()
	require.True(t, svc.CheckAuthStatus(context.Background()).IsAuthenticated)

	require.NoError(t, e.tokens.SetTokens(context.Background(), models.Tokens{AccessToken: token(t, -time.Second)}))
	st := svc.Refresh(context.Background())

	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, models.PhaseUnauthenticated, st.Phase)
}

// ---- Login / Register ----

func TestLogin_NewEnvelopeFillsAliases(t *testing.T) {
	e := setup(t)
	svc := e.service()

	u, err := svc.Login(context.Background(), raw(annNewEnvelope))
	require.NoError(t, err)

	assert.Equal(t, "Ann", u.FirstName)
	assert.Equal(t, "Ann", u.FirstNameAlias)
	assert.Equal(t, "Lee", u.LastNameAlias)
	assert.Equal(t, "Clinic", u.Organisation)

	st := svc.State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Equal(t, models.PhaseAuthenticated, st.Phase)
}

func TestLogin_LegacyEnvelopeKeepsCamelCase(t *testing.T) {
	e := setup(t)

	u, err := e.service().Login(context.Background(), raw(`{"user":{"id":2,"email":"ann@clinic.org","firstName":"Ann"}}`))
	require.NoError(t, err)

	assert.Equal(t, "Ann", u.FirstNameAlias)
	assert.Equal(t, "Ann", u.FirstName)
}

func TestRegister_BareUser(t *testing.T) {
	e := setup(t)

	u, err := e.service().Register(context.Background(), raw(`{"id":5,"email":"new@clinic.org"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.ID)
	assert.Equal(t, int64(5), e.cached(t).ID)
}

func TestLogin_FailuresLeaveAuthenticationFlag(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"rejected envelope", `{"success":false,"message":"Invalid credentials"}`, models.ErrRejected},
		{"unrecognized payload", `{"status":"ok"}`, models.ErrUnrecognizedPayload},
		{"not an object", `[1,2]`, models.ErrUnrecognizedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			svc := e.service()

			_, err := svc.Login(context.Background(), raw(tt.body))
			require.ErrorIs(t, err, tt.wantErr)

			st := svc.State()
			assert.False(t, st.IsAuthenticated)
			assert.False(t, st.IsLoading)
			assert.Nil(t, e.cached(t))
		})
	}
}

func TestLogin_RejectedMessageReachesCaller(t *testing.T) {
	e := setup(t)

	_, err := e.service().Login(context.Background(), raw(`{"success":false,"message":"Invalid credentials"}`))

	var rej *models.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Invalid credentials", rej.Message)
}

func TestLogin_TokensCommittedOnlyWhenUserNormalizes(t *testing.T) {
	tok := token(t, time.Hour)
	tests := []struct {
		name     string
		body     string
		wantErr  error
		wantAuth bool
	}{
		{"accepted", `{"success":true,"data":{"user":{"id":1,"email":"ann@clinic.org"},"access_token":"` + tok + `","refresh_token":"r1"}}`, nil, true},
		{"rejected with tokens", `{"success":false,"message":"Account locked","data":{"access_token":"` + tok + `"}}`, models.ErrRejected, false},
		{"user without identity", `{"user":{"firstName":"Ann"},"token":"` + tok + `"}`, models.ErrUnrecognizedPayload, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			svc := e.service()

			_, err := svc.Login(context.Background(), raw(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, e.accessToken(t))
				assert.Nil(t, e.cached(t))

				st := svc.CheckAuthStatus(context.Background())
				assert.False(t, st.IsAuthenticated)
				assert.Zero(t, e.client.MeCalls)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tok, e.accessToken(t))
			refresh, err := e.tokens.RefreshToken(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "r1", refresh)
			assert.Equal(t, tt.wantAuth, svc.State().IsAuthenticated)
		})
	}
}

func TestLogin_FailedLoginKeepsPreviousTokens(t *testing.T) {
	e := setup(t)
	e.login(t)
	before := e.accessToken(t)

	_, err := e.service().Login(context.Background(), raw(`{"success":false,"data":{"access_token":"`+token(t, time.Hour)+`"}}`))
	require.ErrorIs(t, err, models.ErrRejected)

	assert.Equal(t, before, e.accessToken(t))
}

type failingTokens struct {
	tokens.Store
	err error
}

func (f failingTokens) SetTokens(context.Context, models.Tokens) error { return f.err }

func TestLogin_TokenWriteFailureDoesNotAuthenticate(t *testing.T) {
	e := setup(t)
	boom := errors.New("disk full")
	svc := NewAuthService(e.client, failingTokens{Store: e.tokens, err: boom}, e.users)

	_, err := svc.Login(context.Background(), raw(`{"user":{"id":1,"email":"ann@clinic.org"},"token":"`+token(t, time.Hour)+`"}`))
	require.ErrorIs(t, err, boom)

	assert.False(t, svc.State().IsAuthenticated)
	assert.Nil(t, e.cached(t))
}

func TestLogin_SurvivesReload(t *testing.T) {
	e := setup(t)
	e.login(t)

	first := e.service()
	want, err := first.Login(context.Background(), raw(annNewEnvelope))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	st := e.service().CheckAuthStatus(context.Background())

	require.True(t, st.IsAuthenticated)
	if diff := cmp.Diff(want, st.User); diff != "" {
		t.Fatalf("user after reload (-want +got):\n%s", diff)
	}
}

// ---- Logout ----

func TestLogout_ServerFailureStillTearsDown(t *testing.T) {
	e := setup(t)
	e.login(t)
	e.client.LogoutErr = client.ErrUnavailable

	var navigated []string
	svc := e.service(WithNavigator(guard.NavigatorFunc(func(p string) { navigated = append(navigated, p) })))
	_, err := svc.Login(context.Background(), raw(annNewEnvelope))
	require.NoError(t, err)

	svc.Logout(context.Background())

	st := svc.State()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.User)
	assert.Equal(t, 1, e.client.LogoutCalls)
	assert.Empty(t, e.accessToken(t))
	assert.Nil(t, e.cached(t))
	assert.Equal(t, []string{guard.LoginPath}, navigated)
}

func TestLogout_CanceledContextStillClearsLocalData(t *testing.T) {
	e := setup(t)
	e.login(t)
	svc := e.service()
	_, err := svc.Login(context.Background(), raw(annNewEnvelope))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Logout(ctx)

	assert.Empty(t, e.accessToken(t))
	assert.Nil(t, e.cached(t))
}

// ---- profile writes ----

func TestUpdateUser_KeepsAuthenticationFlag(t *testing.T) {
	e := setup(t)
	svc := e.service()

	u, err := svc.UpdateUser(context.Background(), raw(`{"id":1,"email":"ann@clinic.org","title":"Dr"}`))
	require.NoError(t, err)
	assert.Equal(t, "Dr", u.Title)

	st := svc.State()
	assert.False(t, st.IsAuthenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "Dr", st.User.Title)

	_, err = svc.Login(context.Background(), raw(annNewEnvelope))
	require.NoError(t, err)
	_, err = svc.UpdateUser(context.Background(), raw(`{"data":{"id":1,"email":"ann@clinic.org","title":"Prof"}}`))
	require.NoError(t, err)

	st = svc.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "Prof", st.User.Title)
	assert.Equal(t, "Prof", e.cached(t).Title)
}

func TestUploadProfileImage_ReturnsImageRef(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"profile image url", `{"id":1,"email":"a@b.co","profile_image_url":"https://cdn/a.png"}`, "https://cdn/a.png"},
		{"legacy picture alias", `{"user":{"id":1,"email":"a@b.co","picture":"https://cdn/p.png"}}`, "https://cdn/p.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			var gotName, gotData string
			e.client.UploadFn = func(_ context.Context, filename string, r io.Reader) (json.RawMessage, error) {
				b, _ := io.ReadAll(r)
				gotName, gotData = filename, string(b)
				return raw(tt.body), nil
			}

			ref, err := e.service().UploadProfileImage(context.Background(), "me.png", stringsReader("IMG"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
			assert.Equal(t, "me.png", gotName)
			assert.Equal(t, "IMG", gotData)
			assert.Equal(t, tt.want, e.cached(t).ImageRef())
		})
	}
}

func TestUploadProfileImage_ErrorResetsLoading(t *testing.T) {
	e := setup(t)
	e.client.UploadFn = func(context.Context, string, io.Reader) (json.RawMessage, error) {
		return nil, &client.APIError{Status: 500, Message: "boom"}
	}
	svc := e.service()

	_, err := svc.UploadProfileImage(context.Background(), "me.png", stringsReader("IMG"))
	require.ErrorIs(t, err, client.ErrServer)
	assert.False(t, svc.State().IsLoading)
}

func TestCompleteOnboarding(t *testing.T) {
	e := setup(t)
	var sent models.OnboardingData
	e.client.OnboardingFn = func(_ context.Context, d models.OnboardingData) (json.RawMessage, error) {
		sent = d
		return raw(`{"success":true,"data":{"user":{"id":1,"email":"a@b.co","specialization":"GP","organisation_name":"Clinic","company_size":"1-10","country":"NL","role":"doctor"}}}`), nil
	}
	svc := e.service()
	_, err := svc.Login(context.Background(), raw(`{"id":1,"email":"a@b.co"}`))
	require.NoError(t, err)
	require.True(t, svc.State().User.NeedsOnboarding())

	data := models.OnboardingData{Specialization: "GP", OrganisationName: "Clinic", CompanySize: "1-10", Country: "NL", Role: "doctor"}
	u, err := svc.CompleteOnboarding(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, data, sent)
	assert.False(t, u.NeedsOnboarding())
	assert.False(t, svc.State().User.NeedsOnboarding())
	assert.True(t, svc.State().IsAuthenticated)
}

func TestCompleteOnboarding_InvalidInputSkipsServer(t *testing.T) {
	e := setup(t)
	svc := e.service()

	_, err := svc.CompleteOnboarding(context.Background(), models.OnboardingData{Specialization: "GP"})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, e.client.OnboardingCalls)
	assert.False(t, svc.State().IsLoading)
}

// blockingUpload returns an UploadFn that signals when it starts and
// resolves with body once release is closed.
func blockingUpload(body string) (fn func(context.Context, string, io.Reader) (json.RawMessage, error), started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	fn = func(context.Context, string, io.Reader) (json.RawMessage, error) {
		close(started)
		<-release
		return raw(body), nil
	}
	return fn, started, release
}

func TestConcurrentWrites_LastResolvedWins(t *testing.T) {
	const uploadBody = `{"id":1,"email":"a@b.co","title":"Upload","profile_image_url":"https://cdn/u.png"}`
	const updateBody = `{"id":1,"email":"a@b.co","title":"Update"}`

	t.Run("upload resolves last", func(t *testing.T) {
		e := setup(t)
		fn, started, release := blockingUpload(uploadBody)
		e.client.UploadFn = fn
		svc := e.service()
		_, err := svc.Login(context.Background(), raw(`{"id":1,"email":"a@b.co"}`))
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			_, err := svc.UploadProfileImage(context.Background(), "a.png", stringsReader("x"))
			done <- err
		}()
		<-started
		assert.True(t, svc.State().IsLoading)

		_, err = svc.UpdateUser(context.Background(), raw(updateBody))
		require.NoError(t, err)
		assert.Equal(t, "Update", svc.State().User.Title)

		close(release)
		require.NoError(t, <-done)

		st := svc.State()
		assert.False(t, st.IsLoading)
		assert.Equal(t, "Upload", st.User.Title)
		assert.Equal(t, "https://cdn/u.png", st.User.ProfileImageURL)
		if diff := cmp.Diff(st.User, e.cached(t)); diff != "" {
			t.Fatalf("memory and storage diverged (-mem +disk):\n%s", diff)
		}
	})

	t.Run("update resolves last", func(t *testing.T) {
		e := setup(t)
		e.client.UploadFn = func(context.Context, string, io.Reader) (json.RawMessage, error) {
			return raw(uploadBody), nil
		}
		svc := e.service()

		_, err := svc.UploadProfileImage(context.Background(), "a.png", stringsReader("x"))
		require.NoError(t, err)
		_, err = svc.UpdateUser(context.Background(), raw(updateBody))
		require.NoError(t, err)

		st := svc.State()
		assert.Equal(t, "Update", st.User.Title)
		assert.Empty(t, st.User.ProfileImageURL)
		if diff := cmp.Diff(st.User, e.cached(t)); diff != "" {
			t.Fatalf("memory and storage diverged (-mem +disk):\n%s", diff)
		}
	})
}

func TestProfileWriteDroppedAfterLogout(t *testing.T) {
	e := setup(t)
	e.login(t)
	fn, started, release := blockingUpload(`{"id":1,"email":"a@b.co","profile_image_url":"https://cdn/u.png"}`)
	e.client.UploadFn = fn
	svc := e.service()
	_, err := svc.Login(context.Background(), raw(annNewEnvelope))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.UploadProfileImage(context.Background(), "a.png", stringsReader("x"))
		done <- err
	}()
	<-started
	svc.Logout(context.Background())
	close(release)

	require.ErrorIs(t, <-done, ErrSessionChanged)
	st := svc.State()
	assert.Nil(t, st.User)
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Nil(t, e.cached(t))
}

// ---- observers ----

func TestSubscribe(t *testing.T) {
	e := setup(t)
	svc := e.service()

	ch, cancel := svc.Subscribe()
	first := <-ch
	assert.Equal(t, models.PhaseUnknown, first.Phase)

	_, err := svc.Login(context.Background(), raw(annNewEnvelope))
	require.NoError(t, err)

	latest := <-ch
	assert.True(t, latest.IsAuthenticated)
	assert.False(t, latest.IsLoading)
	assert.Greater(t, latest.Version, first.Version)

	latest.User.FirstName = "mutated"
	assert.Equal(t, "Ann", svc.State().User.FirstName)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()
}

func TestClose(t *testing.T) {
	e := setup(t)
	e.client.CloseErr = errors.New("close failed")
	svc := e.service()
	ch, _ := svc.Subscribe()
	<-ch

	require.EqualError(t, svc.Close(), "close failed")
	assert.True(t, e.client.Closed)

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := svc.Subscribe()
	_, ok = <-late
	assert.False(t, ok)

	require.NoError(t, svc.Close())
}

// ---- end to end with guards ----

func TestScenario_LoginAndLogoutWithGuards(t *testing.T) {
	e := setup(t)
	loc := guard.NewLocation("/")
	svc := e.service(WithNavigator(loc))
	ctx := context.Background()

	st := svc.CheckAuthStatus(ctx)
	assert.False(t, guard.Enforce(guard.Protected(st), loc))
	assert.Equal(t, guard.LoginPath, loc.Path())
	assert.True(t, guard.Enforce(guard.Guest(st), loc))

	e.login(t)
	_, err := svc.Login(ctx, raw(annNewEnvelope))
	require.NoError(t, err)
	st = svc.State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, guard.Enforce(guard.Guest(st), loc))
	assert.Equal(t, guard.DashboardPath, loc.Path())
	assert.True(t, guard.Enforce(guard.Protected(st), loc))

	svc.Logout(ctx)
	assert.False(t, svc.State().IsAuthenticated)
	assert.Equal(t, guard.LoginPath, loc.Path())
	assert.Equal(t, []string{guard.LoginPath, guard.DashboardPath, guard.LoginPath}, loc.History())
}
