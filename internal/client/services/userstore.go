package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/repositories/metadata"
	"github.com/docscrib/docscrib-cli/internal/common"
)

// UserStore persists the canonical user profile under a single metadata
// key. A UserStore without a repository does nothing, which is how the
// client runs when no local storage is available.
type UserStore struct {
	repo metadata.Repository
}

func NewUserStore(repo metadata.Repository) *UserStore {
	return &UserStore{repo: repo}
}

func (s *UserStore) available() bool {
	return s != nil && s.repo != nil
}

// StoreUserData replaces the stored profile with u. A nil user clears it,
// so the stored value is either a complete profile or absent.
func (s *UserStore) StoreUserData(ctx context.Context, u *models.User) error {
	if !s.available() {
		return nil
	}
	if u == nil {
		return s.ClearUserData(ctx)
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.repo.Set(ctx, common.UserDataKey, b); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

// GetUserData returns the stored profile, or nil when there is none.
func (s *UserStore) GetUserData(ctx context.Context) (*models.User, error) {
	if !s.available() {
		return nil, nil
	}
	b, err := s.repo.Get(ctx, common.UserDataKey)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) ClearUserData(ctx context.Context) error {
	if !s.available() {
		return nil
	}
	if err := s.repo.Delete(ctx, common.UserDataKey); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	return nil
}
