package cli

import (
	"context"
	"fmt"

	"github.com/docscrib/docscrib-cli/internal/client/guard"
	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/oauth"
	"github.com/docscrib/docscrib-cli/internal/common"
)

// getSimpleText, getPassword and confirm are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	confirm       = Confirm
)

// Register prompts for the account fields, creates the account and starts
// a session with the returned profile. Input is validated before anything
// is sent. The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	firstName, err := getSimpleText(a.reader, "Enter first name", a.out)
	if err != nil {
		return err
	}
	lastName, err := getSimpleText(a.reader, "Enter last name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	reg := models.Registration{Email: email, Password: string(password), FirstName: firstName, LastName: lastName}
	if err := reg.Validate(); err != nil {
		return err
	}

	resp, err := a.api.Register(ctx, reg)
	if err != nil {
		return err
	}
	u, err := a.auth.Register(ctx, resp)
	if err != nil {
		return err
	}

	a.welcome(u)
	return nil
}

// Login prompts for credentials and signs in. A rejected login leaves the
// session untouched and returns the server's message.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	creds := models.Credentials{Email: email, Password: string(password)}
	if err := creds.Validate(); err != nil {
		return err
	}

	resp, err := a.api.Login(ctx, creds)
	if err != nil {
		return err
	}
	u, err := a.auth.Login(ctx, resp)
	if err != nil {
		return err
	}

	a.welcome(u)
	return nil
}

// Google runs the external-identity login: the user opens the consent URL,
// then pastes back the address the browser was redirected to.
func (a *App) Google(ctx context.Context) error {
	if a.google == nil {
		return oauth.ErrNotConfigured
	}

	state, authURL, err := a.google.Start()
	if err != nil {
		return err
	}
	a.println("Open this URL in your browser and sign in:")
	a.println(authURL)

	redirect, err := getSimpleText(a.reader, "Paste the address you were redirected to", a.out)
	if err != nil {
		return err
	}
	cb, err := a.google.ParseRedirect(redirect, state)
	if err != nil {
		return err
	}

	resp, err := a.api.GoogleCallback(ctx, cb)
	if err != nil {
		return err
	}
	u, err := a.auth.GoogleCallback(ctx, resp)
	if err != nil {
		return err
	}

	a.welcome(u)
	return nil
}

// Logout asks for confirmation, then ends the session. The local session
// is always cleared, even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	ok, err := confirm(a.reader, "Log out? [y/N]", a.out)
	if err != nil {
		return err
	}
	if !ok {
		a.println("Cancelled.")
		return nil
	}

	a.auth.Logout(ctx)
	a.println("Logged out.")
	return nil
}

func (a *App) welcome(u *models.User) {
	a.println(fmt.Sprintf("Welcome, %s!", u.DisplayName()))
	guard.Enforce(guard.Guest(a.auth.State()), a.location)
	if u.NeedsOnboarding() {
		a.println("Your profile is incomplete. Run 'onboarding' to finish it.")
	}
}
