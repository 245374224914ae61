package localstore

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// Seed bulk-populates an empty store. Idempotent: a store that already holds
// users is left untouched, so calling it on every startup is safe.
func (s *Store) Seed(ctx context.Context, users []user.User, schools []core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.Users) > 0 {
		return nil
	}

	now := time.Now().UTC()
	seeded := make([]user.User, 0, len(users))
	for _, usr := range users {
		if usr.ID == "" {
			id, _ := s.GenerateID(ctx)
			usr.ID = id
		}
		if usr.IsStudent() {
			usr.PasswordHash = nil
			usr.CredentialState = user.CredentialNone
		}
		if usr.CreatedAt.IsZero() {
			usr.CreatedAt = now
		}
		if usr.UpdatedAt.IsZero() {
			usr.UpdatedAt = now
		}
		seeded = append(seeded, usr)
	}
	s.data.Users = seeded
	if schools != nil {
		s.data.Schools = schools
	}
	return s.persist()
}
