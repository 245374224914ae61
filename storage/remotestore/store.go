// Package remotestore implements the storage contract against the shared,
// network-accessible backend. Multi-user; consistency is the backend's
// concern, this client adds none of its own.
package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/user"
)

// document collections
const (
	collectionSchools   = "schools"
	collectionLesson    = "lesson"
	collectionQuestions = "questions"
)

type Store struct {
	db  *sqlx.DB
	log core.Logger
}

// Open connects to the shared backend. Missing connection params fail here
// with a configuration error, before any data call can run.
func Open(conf *core.Config, log core.Logger) (*Store, error) {
	if conf.Remote.Host == "" || conf.Remote.Name == "" || conf.Remote.User == "" {
		return nil, core.NewConfigError("remote backend: host, name and user are required")
	}

	sslMode := "require"
	if conf.Remote.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Remote.Engine,
		User:     url.UserPassword(conf.Remote.User, conf.Remote.Password),
		Host:     conf.Remote.Address(),
		Path:     conf.Remote.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Connect("postgres", u.String())
	if err != nil {
		return nil, core.WrapBackendUnavailable(err, "connecting to remote backend")
	}
	if conf.Remote.AutoMigrate {
		if err := Migrate(db.DB); err != nil {
			return nil, err
		}
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// GenerateID returns a backend-style document id.
func (s *Store) GenerateID(_ context.Context) (string, error) {
	return uuid.New().String(), nil
}

func (s *Store) LoadUsers(ctx context.Context) ([]user.User, error) {
	var users []user.User
	err := s.db.SelectContext(ctx, &users,
		`SELECT id, name, role, email, credential_state, password_hash, created_at, updated_at, last_login
		 FROM users ORDER BY created_at`)
	if err != nil {
		return nil, core.WrapBackendUnavailable(err, "loading users")
	}
	return users, nil
}

// SaveUsers replaces the whole collection: last-write-wins, as for every
// aggregate routed through this layer.
func (s *Store) SaveUsers(ctx context.Context, users []user.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.WrapBackendUnavailable(err, "saving users")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return core.WrapBackendUnavailable(err, "saving users")
	}
	for _, usr := range users {
		if usr.IsStudent() {
			usr.PasswordHash = nil
			usr.CredentialState = user.CredentialNone
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO users (id, name, role, email, credential_state, password_hash, created_at, updated_at, last_login)
			 VALUES (:id, :name, :role, :email, :credential_state, :password_hash, :created_at, :updated_at, :last_login)`,
			usr)
		if err != nil {
			return core.WrapBackendUnavailable(err, "saving user %s", usr.ID)
		}
	}
	if err = tx.Commit(); err != nil {
		return core.WrapBackendUnavailable(err, "saving users")
	}
	return nil
}

func (s *Store) getUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	err := s.db.GetContext(ctx, &usr,
		`SELECT id, name, role, email, credential_state, password_hash, created_at, updated_at, last_login
		 FROM users WHERE email = $1`, email)
	return usr, err
}

// Login resolves the identity record for email and checks password against
// it. Students authenticate by email alone.
func (s *Store) Login(ctx context.Context, email, password string) (user.User, error) {
	email = core.CleanString(email, true /* lower */)

	usr, err := s.getUserByEmail(ctx, email)
	if errors.Cause(err) == sql.ErrNoRows {
		return user.User{}, user.ErrUnknownUser
	}
	if err != nil {
		return user.User{}, core.WrapBackendUnavailable(err, "resolving user")
	}

	if !usr.IsStudent() {
		if password == "" {
			return user.User{}, user.ErrPasswordRequired
		}
		if err := usr.CheckPassword(password); err != nil {
			return user.User{}, user.ErrInvalidCredentials
		}
	}

	usr.LastLogin = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, usr.LastLogin, usr.ID)
	if err != nil {
		return user.User{}, core.WrapBackendUnavailable(err, "stamping last login")
	}
	return usr, nil
}

// ChangePassword sets a new password for the user and confirms their
// credential.
func (s *Store) ChangePassword(ctx context.Context, userID, newPassword string) error {
	var usr user.User
	err := s.db.GetContext(ctx, &usr,
		`SELECT id, name, role, email, credential_state, password_hash, created_at, updated_at, last_login
		 FROM users WHERE id = $1`, userID)
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	if err != nil {
		return core.WrapBackendUnavailable(err, "resolving user")
	}

	if err := usr.SetPassword(newPassword); err != nil {
		return err
	}
	usr.CredentialState = user.CredentialConfirmed
	usr.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, credential_state = $2, updated_at = $3 WHERE id = $4`,
		usr.PasswordHash, usr.CredentialState, usr.UpdatedAt, usr.ID)
	if err != nil {
		return core.WrapBackendUnavailable(err, "changing password")
	}
	return nil
}

func (s *Store) loadCollection(ctx context.Context, collection string) ([]core.Document, error) {
	var raws [][]byte
	err := s.db.SelectContext(ctx, &raws,
		`SELECT doc FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, core.WrapBackendUnavailable(err, "loading %s", collection)
	}

	docs := make([]core.Document, 0, len(raws))
	for _, raw := range raws {
		var doc core.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Wrapf(err, "parsing %s document", collection)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) saveCollection(ctx context.Context, collection string, docs []core.Document) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.WrapBackendUnavailable(err, "saving %s", collection)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1`, collection); err != nil {
		return core.WrapBackendUnavailable(err, "saving %s", collection)
	}
	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.ID() == "" {
			doc.SetID(uuid.New().String())
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrapf(err, "encoding %s document", collection)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, doc, updated_at) VALUES ($1, $2, $3, $4)`,
			collection, doc.ID(), raw, now)
		if err != nil {
			return core.WrapBackendUnavailable(err, "saving %s document %s", collection, doc.ID())
		}
	}
	if err = tx.Commit(); err != nil {
		return core.WrapBackendUnavailable(err, "saving %s", collection)
	}
	return nil
}

func (s *Store) LoadSchools(ctx context.Context) ([]core.Document, error) {
	return s.loadCollection(ctx, collectionSchools)
}

func (s *Store) SaveSchools(ctx context.Context, schools []core.Document) error {
	return s.saveCollection(ctx, collectionSchools, schools)
}

func (s *Store) LoadLesson(ctx context.Context) (core.Document, error) {
	docs, err := s.loadCollection(ctx, collectionLesson)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (s *Store) SaveLesson(ctx context.Context, lesson core.Document) error {
	if lesson == nil {
		return s.saveCollection(ctx, collectionLesson, nil)
	}
	return s.saveCollection(ctx, collectionLesson, []core.Document{lesson})
}

func (s *Store) LoadQuestions(ctx context.Context) ([]core.Document, error) {
	return s.loadCollection(ctx, collectionQuestions)
}

// SaveQuestion upserts one question job by its id, assigning one if missing.
func (s *Store) SaveQuestion(ctx context.Context, question core.Document) error {
	if question.ID() == "" {
		question.SetID(uuid.New().String())
	}
	raw, err := json.Marshal(question)
	if err != nil {
		return errors.Wrap(err, "encoding question document")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, doc, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		collectionQuestions, question.ID(), raw, time.Now().UTC())
	if err != nil {
		return core.WrapBackendUnavailable(err, "saving question %s", question.ID())
	}
	return nil
}

// LoadLogs returns the full history, newest first. The backend keeps
// unbounded history; the 100-record cap is an on-device policy only.
func (s *Store) LoadLogs(ctx context.Context) ([]audit.Record, error) {
	var logs []audit.Record
	err := s.db.SelectContext(ctx, &logs,
		`SELECT id, ts, actor_id, actor_name, actor_role, action, summary FROM audit_logs ORDER BY ts DESC`)
	if err != nil {
		return nil, core.WrapBackendUnavailable(err, "loading logs")
	}
	return logs, nil
}

func (s *Store) AddLog(ctx context.Context, rec audit.Record) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO audit_logs (id, ts, actor_id, actor_name, actor_role, action, summary)
		 VALUES (:id, :ts, :actor_id, :actor_name, :actor_role, :action, :summary)`, rec)
	if err != nil {
		return core.WrapBackendUnavailable(err, "adding log")
	}
	return nil
}

// Snapshots are an on-device concern; running them against the shared
// backend from a client would be a data hazard, so they fail loudly instead
// of no-opping.

func (s *Store) ExportData(_ context.Context) ([]byte, error) {
	return nil, errors.Wrap(core.ErrNotSupported, "exportData")
}

func (s *Store) ImportData(_ context.Context, _ []byte) error {
	return errors.Wrap(core.ErrNotSupported, "importData")
}

func (s *Store) ResetData(_ context.Context) error {
	return errors.Wrap(core.ErrNotSupported, "resetData")
}
