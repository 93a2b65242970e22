package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docscrib/docscrib-cli/internal/client/client"
	"github.com/docscrib/docscrib-cli/internal/client/guard"
	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/oauth"
	"github.com/docscrib/docscrib-cli/internal/client/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool
	loading  bool
	stuck    bool // loading survives settle
	waits    int
	loc      *guard.Location

	calls []string
	arg   string
	err   error
}

func newFakeExec() *fakeExec {
	return &fakeExec{loc: guard.NewLocation("/")}
}

func (f *fakeExec) state() models.AuthState {
	return models.AuthState{IsAuthenticated: f.loggedIn, IsLoading: f.loading}
}

func (f *fakeExec) settle(context.Context) models.AuthState {
	f.waits++
	if !f.stuck {
		f.loading = false
	}
	return f.state()
}

func (f *fakeExec) navigator() guard.Navigator { return f.loc }

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeExec) Register(context.Context) error { return f.record("register") }

func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}

func (f *fakeExec) Google(context.Context) error     { return f.record("google") }
func (f *fakeExec) Profile(context.Context) error    { return f.record("profile") }
func (f *fakeExec) Update(context.Context) error     { return f.record("update") }
func (f *fakeExec) Onboarding(context.Context) error { return f.record("onboarding") }
func (f *fakeExec) Refresh(context.Context) error    { return f.record("refresh") }

func (f *fakeExec) Avatar(_ context.Context, path string) error {
	f.arg = path
	return f.record("avatar")
}

func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}

func runLines(t *testing.T, f *fakeExec, lines ...string) string {
	t.Helper()
	out := capturePrintln(t)
	runREPL(context.Background(), f, func() string { return "" }, rdr(strings.Join(lines, "\n")+"\n"))
	return out.String()
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	f := newFakeExec()

	out := runLines(t, f,
		"profile",
		"login",
		"avatar /tmp/me.png",
		"update",
		"onboarding",
		"refresh",
		"logout",
		"exit",
		"profile",
	)

	assert.Equal(t, []string{"login", "avatar", "update", "onboarding", "refresh", "logout"}, f.calls)
	assert.Equal(t, "/tmp/me.png", f.arg)
	assert.Contains(t, out, "Please log in first.")
	assert.Contains(t, out, "Bye!")
	assert.Equal(t, []string{guard.LoginPath}, f.loc.History())
}

func TestRunREPL_GuestCommandsRedirectWhenLoggedIn(t *testing.T) {
	f := newFakeExec()
	f.loggedIn = true

	out := runLines(t, f, "register", "google", "login", "profile", "quit")

	assert.Equal(t, []string{"profile"}, f.calls)
	assert.Equal(t, 3, strings.Count(out, "You are already logged in."))
	assert.Equal(t, guard.DashboardPath, f.loc.Path())
}

func TestRunREPL_StuckCheckRefusesProtectedCommands(t *testing.T) {
	f := newFakeExec()
	f.loading = true
	f.stuck = true

	out := runLines(t, f, "profile", "login")

	assert.Equal(t, []string{"login"}, f.calls)
	assert.Equal(t, 1, f.waits)
	assert.Contains(t, out, "Session check in progress")
	assert.Equal(t, "/", f.loc.Path())
}

func TestRunREPL_ProtectedCommandWaitsForRefresh(t *testing.T) {
	f := newFakeExec()
	f.loggedIn = true
	f.loading = true

	out := runLines(t, f, "profile", "update")

	assert.Equal(t, []string{"profile", "update"}, f.calls)
	assert.Equal(t, 1, f.waits)
	assert.NotContains(t, out, "Session check in progress")
}

func TestRunREPL_RefreshEndingSessionRedirects(t *testing.T) {
	f := newFakeExec()
	f.loading = true

	out := runLines(t, f, "profile")

	assert.Empty(t, f.calls)
	assert.Contains(t, out, "Please log in first.")
	assert.Equal(t, guard.LoginPath, f.loc.Path())
}

func TestRunREPL_HelpDependsOnSession(t *testing.T) {
	f := newFakeExec()
	out := runLines(t, f, "help", "login", "help")

	assert.Contains(t, out, guestHelp)
	assert.Contains(t, out, protectedHelp)
	assert.Less(t, strings.Index(out, guestHelp), strings.Index(out, protectedHelp))
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	f := newFakeExec()
	f.loggedIn = true
	f.err = &client.APIError{Status: 500, Message: "boom"}

	out := runLines(t, f, "profile", "refresh")

	assert.Equal(t, []string{"profile", "refresh"}, f.calls)
	assert.Equal(t, 2, strings.Count(out, "Error: boom"))
}

func TestRunREPL_UnknownAndBlankLines(t *testing.T) {
	f := newFakeExec()
	out := runLines(t, f, "", "   ", "frobnicate now")

	assert.Empty(t, f.calls)
	assert.Contains(t, out, "Unknown command: frobnicate")
}

func TestRunREPL_PartialLineAtEOF(t *testing.T) {
	f := newFakeExec()
	capturePrintln(t)

	runREPL(context.Background(), f, func() string { return "" }, bufio.NewReader(strings.NewReader("login")))

	assert.Equal(t, []string{"login"}, f.calls)
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	f := newFakeExec()
	out := capturePrintln(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runREPL(ctx, f, func() string { return "x" }, rdr("login\n"))

	assert.Empty(t, f.calls)
	assert.Empty(t, out.String())
}

func TestRunREPL_PromptShowsStatus(t *testing.T) {
	f := newFakeExec()
	out := capturePrintln(t)

	runREPL(context.Background(), f, func() string { return "(/v2/login)" }, rdr("exit\n"))

	assert.Contains(t, out.String(), "docscrib (/v2/login)> ")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "validation", err: &models.ValidationError{Fields: map[string]string{"email": "email_required"}}, want: "validation error (email: email_required)"},
		{name: "api", err: &client.APIError{Status: 400, Message: "Email already registered"}, want: "Email already registered"},
		{name: "rejected", err: &models.RejectedError{Message: "Nope"}, want: "Nope"},
		{name: "rejected silent", err: &models.RejectedError{}, want: "the server rejected the request"},
		{name: "provider", err: &oauth.ProviderError{Code: "access_denied"}, want: (&oauth.ProviderError{Code: "access_denied"}).Error()},
		{name: "unavailable", err: client.ErrUnavailable, want: "the server is unavailable, try again later"},
		{name: "payload", err: models.ErrUnrecognizedPayload, want: "unexpected response from the server"},
		{name: "session changed", err: services.ErrSessionChanged, want: "your session changed while the request was running"},
		{name: "other", err: errors.New("disk full"), want: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, describeError(tt.err))
		})
	}
}
