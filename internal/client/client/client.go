package client

import (
	"context"
	"encoding/json"
	"io"

	"github.com/docscrib/docscrib-cli/internal/client/models"
)

// Client is the DocScrib auth API. User-bearing calls return the raw JSON
// body; the auth service owns normalization so it happens in one place.
type Client interface {
	Login(ctx context.Context, creds models.Credentials) (json.RawMessage, error)
	Register(ctx context.Context, reg models.Registration) (json.RawMessage, error)
	GoogleCallback(ctx context.Context, cb models.GoogleCallback) (json.RawMessage, error)
	Me(ctx context.Context) (json.RawMessage, error)
	UpdateMe(ctx context.Context, upd models.ProfileUpdate) (json.RawMessage, error)
	CompleteOnboarding(ctx context.Context, data models.OnboardingData) (json.RawMessage, error)
	UploadProfileImage(ctx context.Context, filename string, r io.Reader) (json.RawMessage, error)
	Logout(ctx context.Context) error
	Close() error
}
