// Package tokens keeps the access/refresh token pair and answers whether
// the access token is still usable.
package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/repositories/metadata"
	"github.com/docscrib/docscrib-cli/internal/common"
	"github.com/docscrib/docscrib-cli/internal/dbx"
	"github.com/golang-jwt/jwt/v5"
)

// Store is the token capability the HTTP client and the auth service
// depend on. An absent token is returned as "" with a nil error.
type Store interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, t models.Tokens) error
	IsTokenExpired(token string) bool
	ClearTokens(ctx context.Context) error
}

// MetadataStore persists tokens in the metadata table next to the cached
// user profile.
type MetadataStore struct {
	db     *sql.DB
	leeway time.Duration
	now    func() time.Time
}

var _ Store = (*MetadataStore)(nil)

// NewMetadataStore builds a Store over db. A token is considered expired
// leeway before its exp claim.
func NewMetadataStore(db *sql.DB, leeway time.Duration) *MetadataStore {
	return &MetadataStore{db: db, leeway: leeway, now: time.Now}
}

func (s *MetadataStore) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

func (s *MetadataStore) AccessToken(ctx context.Context) (string, error) {
	v, err := s.repo().Get(ctx, common.AccessTokenKey)
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	return string(v), nil
}

func (s *MetadataStore) RefreshToken(ctx context.Context) (string, error) {
	v, err := s.repo().Get(ctx, common.RefreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	return string(v), nil
}

// SetTokens replaces both tokens atomically. An empty refresh token removes
// the stored one so a stale refresh token never outlives its pair.
func (s *MetadataStore) SetTokens(ctx context.Context, t models.Tokens) error {
	if t.AccessToken == "" {
		return fmt.Errorf("set tokens: %w", common.ErrInvalidToken)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.AccessTokenKey, []byte(t.AccessToken)); err != nil {
			return err
		}
		if t.RefreshToken == "" {
			return repo.Delete(ctx, common.RefreshTokenKey)
		}
		return repo.Set(ctx, common.RefreshTokenKey, []byte(t.RefreshToken))
	})
}

func (s *MetadataStore) ClearTokens(ctx context.Context) error {
	if err := s.repo().Delete(ctx, common.AccessTokenKey, common.RefreshTokenKey); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// IsTokenExpired reports whether token is unusable. The signature is not
// verified here (the server does that); only the exp claim is read. An
// empty, malformed or exp-less token counts as expired.
func (s *MetadataStore) IsTokenExpired(token string) bool {
	exp, err := ExpiresAt(token)
	if err != nil || exp.IsZero() {
		return true
	}
	return !s.now().Add(s.leeway).Before(exp)
}

// ExpiresAt returns the exp claim of a JWT without verifying it. The zero
// time means the token carries no exp.
func ExpiresAt(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, common.ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
