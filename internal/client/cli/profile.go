package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docscrib/docscrib-cli/internal/client/models"
)

// imageExtensions lists the profile image formats the API accepts.
var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
}

// Profile prints the cached profile of the signed-in user.
func (a *App) Profile(ctx context.Context) error {
	u := a.auth.State().User
	if u == nil {
		a.println("No profile loaded. Try 'refresh'.")
		return nil
	}

	rows := []struct{ label, value string }{
		{"Name", u.DisplayName()},
		{"Email", u.Email},
		{"Title", u.Title},
		{"Specialization", u.Specialization},
		{"Organisation", u.OrganisationName},
		{"Company size", u.CompanySize},
		{"Country", u.Country},
		{"Role", u.Role},
		{"Image", u.ImageRef()},
		{"Provider", u.AuthProvider},
		{"Subscription", u.SubscriptionStatus},
		{"Trial ends", formatTime(u.TrialExpiresAt)},
	}
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		a.println(fmt.Sprintf("%-15s %s", r.label+":", r.value))
	}
	if u.NeedsOnboarding() {
		a.println("Onboarding is not complete.")
	}
	return nil
}

// Update edits profile fields. An empty answer keeps the current value.
func (a *App) Update(ctx context.Context) error {
	var upd models.ProfileUpdate
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"First name", &upd.FirstName},
		{"Last name", &upd.LastName},
		{"Title", &upd.Title},
		{"Specialization", &upd.Specialization},
		{"Organisation", &upd.OrganisationName},
		{"Company size", &upd.CompanySize},
		{"Country", &upd.Country},
		{"Role", &upd.Role},
	}
	for _, f := range fields {
		v, err := getSimpleText(a.reader, f.prompt+" (empty to keep)", a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if upd.IsEmpty() {
		a.println("Nothing to update.")
		return nil
	}

	resp, err := a.api.UpdateMe(ctx, upd)
	if err != nil {
		return err
	}
	if _, err := a.auth.UpdateUser(ctx, resp); err != nil {
		return err
	}
	a.println("Profile updated.")
	return nil
}

// Avatar uploads the image at path as the profile picture. Without a path
// the user is prompted for one.
func (a *App) Avatar(ctx context.Context, path string) error {
	if path == "" {
		var err error
		if path, err = getSimpleText(a.reader, "Path to image", a.out); err != nil {
			return err
		}
	}
	if _, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return fmt.Errorf("%s: not a supported image (png, jpg, gif, webp)", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ref, err := a.auth.UploadProfileImage(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	a.println("Profile image updated: " + ref)
	return nil
}

// Onboarding collects the mandatory profile fields after the first login.
func (a *App) Onboarding(ctx context.Context) error {
	var data models.OnboardingData
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Specialization", &data.Specialization},
		{"Organisation name", &data.OrganisationName},
		{"Company size", &data.CompanySize},
		{"Country", &data.Country},
		{"Role", &data.Role},
	}
	for _, f := range fields {
		v, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if _, err := a.auth.CompleteOnboarding(ctx, data); err != nil {
		return err
	}
	a.println("Onboarding complete.")
	return nil
}

// Refresh re-checks the session on demand.
func (a *App) Refresh(ctx context.Context) error {
	st := a.auth.Refresh(ctx)
	a.land(st)
	if st.IsAuthenticated {
		a.println("Session is active.")
	} else {
		a.println("Session has ended. Please log in again.")
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
