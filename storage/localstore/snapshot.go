package localstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/user"
)

const snapshotVersion = "1"

// Snapshot is the self-describing on-device backup format. Collection fields
// are pointers so an import can tell an absent key from an empty one: present
// keys fully replace their collection, absent keys leave it untouched.
//
// Users keep their password material here: this is an operator backup, never
// exposed to regular UI flows.
type Snapshot struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	Schools    *[]core.Document `json:"schools,omitempty"`
	Logs       *[]audit.Record  `json:"logs,omitempty"`
	Lesson     *core.Document   `json:"lesson,omitempty"`
	Questions  *[]core.Document `json:"questions,omitempty"`
	Users      *[]user.User     `json:"users,omitempty"`
}

// ExportData serializes every collection into a versioned, timestamped
// snapshot.
func (s *Store) ExportData(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Version:    snapshotVersion,
		ExportedAt: time.Now().UTC(),
		Schools:    &s.data.Schools,
		Logs:       &s.data.Logs,
		Questions:  &s.data.Questions,
		Users:      &s.data.Users,
	}
	if s.data.Lesson != nil {
		snap.Lesson = &s.data.Lesson
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding snapshot")
	}
	return raw, nil
}

// ImportData merges a snapshot by presence: each top-level key present fully
// replaces the corresponding collection. One persist covers the whole merge.
func (s *Store) ImportData(_ context.Context, raw []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return errors.Wrap(err, "parsing snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Schools != nil {
		s.data.Schools = *snap.Schools
	}
	if snap.Logs != nil {
		logs := *snap.Logs
		if len(logs) > maxLogRecords {
			logs = logs[:maxLogRecords]
		}
		s.data.Logs = logs
	}
	if snap.Lesson != nil {
		s.data.Lesson = *snap.Lesson
	}
	if snap.Questions != nil {
		s.data.Questions = *snap.Questions
	}
	if snap.Users != nil {
		users := *snap.Users
		for i := range users {
			if users[i].IsStudent() {
				users[i].PasswordHash = nil
				users[i].CredentialState = user.CredentialNone
			}
		}
		s.data.Users = users
	}
	return s.persist()
}

// ResetData drops every collection, unconditionally. Confirmation belongs to
// the UI, not here.
func (s *Store) ResetData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = tables{}
	return s.persist()
}
