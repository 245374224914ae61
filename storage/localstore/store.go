// Package localstore implements the storage contract against a single
// on-device JSON file. Single-user, synchronous: every mutation is persisted
// before the call returns.
package localstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/gommon/random"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/user"
)

const (
	dataFileName = "darasa.json"

	// maxLogRecords bounds the retained audit history. Oldest records beyond
	// the cap are silently dropped, never the newest.
	maxLogRecords = 100

	idLen     = 16
	idCharset = random.Lowercase + random.Numeric // base-36
)

// tables is the whole on-device dataset, kept in memory and mirrored to disk.
type tables struct {
	Users     []user.User     `json:"users"`
	Schools   []core.Document `json:"schools"`
	Lesson    core.Document   `json:"lesson,omitempty"`
	Questions []core.Document `json:"questions"`
	Logs      []audit.Record  `json:"logs"`
}

type Store struct {
	mu   sync.RWMutex
	path string
	log  core.Logger
	data tables
}

// Open loads (or initializes) the data file under conf.Local.DataDir.
func Open(conf *core.Config, log core.Logger) (*Store, error) {
	if conf.Local.DataDir == "" {
		return nil, core.NewConfigError("local backend: dataDir is required")
	}
	if err := os.MkdirAll(conf.Local.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating data dir")
	}

	s := &Store{
		path: filepath.Join(conf.Local.DataDir, dataFileName),
		log:  log,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil // fresh store
	}
	if err != nil {
		return errors.Wrap(err, "reading data file")
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// refusing to start beats silently resetting someone's data
		return errors.Wrapf(err, "parsing data file %s", s.path)
	}
	return nil
}

// persist writes the whole dataset atomically: temp file then rename, so a
// crash leaves either the old file or the new one, never a torn write.
// Callers must hold mu.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding data")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrap(err, "writing data file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "replacing data file")
	}
	return nil
}

// GenerateID returns a random base-36 identifier.
func (s *Store) GenerateID(_ context.Context) (string, error) {
	return random.String(idLen, idCharset), nil
}

func (s *Store) LoadUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]user.User(nil), s.data.Users...), nil
}

func (s *Store) SaveUsers(_ context.Context, users []user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users = append([]user.User(nil), users...)
	for i := range users {
		// students never carry credential material
		if users[i].IsStudent() {
			users[i].PasswordHash = nil
			users[i].CredentialState = user.CredentialNone
		}
	}
	s.data.Users = users
	return s.persist()
}

// Login resolves the identity record for email and checks password against
// it. Students authenticate by email alone. A successful login stamps
// LastLogin; a failed one mutates nothing.
func (s *Store) Login(_ context.Context, email, password string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = core.CleanString(email, true /* lower */)
	idx := -1
	for i := range s.data.Users {
		if s.data.Users[i].Email == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return user.User{}, user.ErrUnknownUser
	}

	usr := &s.data.Users[idx]
	if !usr.IsStudent() {
		if password == "" {
			return user.User{}, user.ErrPasswordRequired
		}
		if err := usr.CheckPassword(password); err != nil {
			return user.User{}, user.ErrInvalidCredentials
		}
	}

	usr.LastLogin = time.Now().UTC()
	if err := s.persist(); err != nil {
		return user.User{}, err
	}
	return *usr, nil
}

// ChangePassword sets a new password for the user and confirms their
// credential.
func (s *Store) ChangePassword(_ context.Context, userID, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Users {
		usr := &s.data.Users[i]
		if usr.ID != userID {
			continue
		}
		if err := usr.SetPassword(newPassword); err != nil {
			return err
		}
		usr.CredentialState = user.CredentialConfirmed
		usr.UpdatedAt = time.Now().UTC()
		return s.persist()
	}
	return user.ErrNotFound
}

func (s *Store) LoadSchools(_ context.Context) ([]core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Document(nil), s.data.Schools...), nil
}

func (s *Store) SaveSchools(_ context.Context, schools []core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Schools = append([]core.Document(nil), schools...)
	return s.persist()
}

func (s *Store) LoadLesson(_ context.Context) (core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Lesson, nil
}

func (s *Store) SaveLesson(_ context.Context, lesson core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Lesson = lesson
	return s.persist()
}

func (s *Store) LoadQuestions(_ context.Context) ([]core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Document(nil), s.data.Questions...), nil
}

// SaveQuestion upserts one question job by its id, assigning one if missing.
func (s *Store) SaveQuestion(ctx context.Context, question core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if question.ID() == "" {
		id, _ := s.GenerateID(ctx)
		question.SetID(id)
	}
	for i, q := range s.data.Questions {
		if q.ID() == question.ID() {
			s.data.Questions[i] = question
			return s.persist()
		}
	}
	s.data.Questions = append(s.data.Questions, question)
	return s.persist()
}

func (s *Store) LoadLogs(_ context.Context) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Record(nil), s.data.Logs...), nil
}

// AddLog prepends rec (most-recent-first) and enforces the retention cap,
// synchronously: the record is on disk before this returns.
func (s *Store) AddLog(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]audit.Record, 0, len(s.data.Logs)+1)
	logs = append(logs, rec)
	logs = append(logs, s.data.Logs...)
	if len(logs) > maxLogRecords {
		logs = logs[:maxLogRecords]
	}
	s.data.Logs = logs
	return s.persist()
}
