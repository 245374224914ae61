package remotestore

import (
	"context"
	"database/sql"
	"io"
	"log"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
)

const selectUserByEmail = `SELECT id, name, role, email, credential_state, password_hash, created_at, updated_at, last_login
		 FROM users WHERE email = $1`

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &Store{
		db:  sqlx.NewDb(db, "sqlmock"),
		log: logsvc.NewConsoleLogger(log.New(io.Discard, "", 0)),
	}, mock
}

func userRow(usr user.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "role", "email", "credential_state", "password_hash", "created_at", "updated_at", "last_login",
	}).AddRow(
		usr.ID, usr.Name, usr.Role, usr.Email, string(usr.CredentialState), usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
}

func TestOpen_missingParams(t *testing.T) {
	conf := &core.Config{Backend: core.BackendRemote}
	_, err := Open(conf, logsvc.NewConsoleLogger(log.New(io.Discard, "", 0)))
	if !core.IsConfig(err) {
		t.Errorf("Open() error = %v, want config error", err)
	}
}

func TestStore_Login(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tutor := user.User{ID: "u1", Name: "Tutor", Role: user.RoleTutor, Email: "tutor@test.cd",
		CredentialState: user.CredentialConfirmed, CreatedAt: now, UpdatedAt: now}
	if err := tutor.SetPassword("w3lc0me"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	student := user.User{ID: "u2", Name: "Kid", Role: user.RoleStudent, Email: "kid@test.cd",
		CreatedAt: now, UpdatedAt: now}

	t.Run("unknown user", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
			WithArgs("nobody@test.cd").
			WillReturnError(sql.ErrNoRows)

		if _, err := store.Login(ctx, "nobody@test.cd", "x"); err != user.ErrUnknownUser {
			t.Errorf("Login() error = %v, want %v", err, user.ErrUnknownUser)
		}
	})

	t.Run("empty password for non-student", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
			WithArgs(tutor.Email).
			WillReturnRows(userRow(tutor))

		if _, err := store.Login(ctx, tutor.Email, ""); err != user.ErrPasswordRequired {
			t.Errorf("Login() error = %v, want %v", err, user.ErrPasswordRequired)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
			WithArgs(tutor.Email).
			WillReturnRows(userRow(tutor))

		if _, err := store.Login(ctx, tutor.Email, "nope"); err != user.ErrInvalidCredentials {
			t.Errorf("Login() error = %v, want %v", err, user.ErrInvalidCredentials)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unexpected calls: %v", err)
		}
	})

	t.Run("correct password stamps last login", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
			WithArgs(tutor.Email).
			WillReturnRows(userRow(tutor))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login = $1 WHERE id = $2`)).
			WithArgs(sqlmock.AnyArg(), tutor.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		usr, err := store.Login(ctx, tutor.Email, "w3lc0me")
		if err != nil {
			t.Fatalf("Login() failed: %v", err)
		}
		if usr.ID != tutor.ID {
			t.Errorf("Login() ID = %q, want %q", usr.ID, tutor.ID)
		}
		if usr.LastLogin.IsZero() {
			t.Error("Login() did not stamp LastLogin")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("student by email alone", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
			WithArgs(student.Email).
			WillReturnRows(userRow(student))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login = $1 WHERE id = $2`)).
			WithArgs(sqlmock.AnyArg(), student.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		usr, err := store.Login(ctx, student.Email, "")
		if err != nil {
			t.Fatalf("Login() failed: %v", err)
		}
		if usr.ID != student.ID {
			t.Errorf("Login() ID = %q, want %q", usr.ID, student.ID)
		}
	})

	t.Run("backend failure is distinguishable", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
			WithArgs(tutor.Email).
			WillReturnError(errors.New("connection refused"))

		_, err := store.Login(ctx, tutor.Email, "w3lc0me")
		if !core.IsBackendUnavailable(err) {
			t.Errorf("Login() error = %v, want backend-unavailable", err)
		}
	})
}

func TestStore_ChangePassword(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tutor := user.User{ID: "u1", Name: "Tutor", Role: user.RoleTutor, Email: "tutor@test.cd",
		CredentialState: user.CredentialInitial, CreatedAt: now, UpdatedAt: now}
	if err := tutor.SetPassword("0ldpwd"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}

	selectByID := regexp.QuoteMeta(`SELECT id, name, role, email, credential_state, password_hash, created_at, updated_at, last_login
		 FROM users WHERE id = $1`)

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(selectByID).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		if err := store.ChangePassword(ctx, "missing", "n3wpwd"); err != user.ErrNotFound {
			t.Errorf("ChangePassword() error = %v, want %v", err, user.ErrNotFound)
		}
	})

	t.Run("confirms the credential", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(selectByID).WithArgs(tutor.ID).WillReturnRows(userRow(tutor))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1, credential_state = $2, updated_at = $3 WHERE id = $4`)).
			WithArgs(sqlmock.AnyArg(), string(user.CredentialConfirmed), sqlmock.AnyArg(), tutor.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := store.ChangePassword(ctx, tutor.ID, "n3wpwd"); err != nil {
			t.Fatalf("ChangePassword() failed: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestStore_documents(t *testing.T) {
	ctx := context.Background()

	t.Run("load schools", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"id":"sch-1","name":"Hilltop Primary"}`)).
			AddRow([]byte(`{"id":"sch-2","name":"Riverside College"}`))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM documents WHERE collection = $1 ORDER BY id`)).
			WithArgs("schools").
			WillReturnRows(rows)

		schools, err := store.LoadSchools(ctx)
		if err != nil {
			t.Fatalf("LoadSchools() failed: %v", err)
		}
		if len(schools) != 2 || schools[0].ID() != "sch-1" {
			t.Errorf("LoadSchools() = %+v", schools)
		}
	})

	t.Run("save question upserts", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents (collection, id, doc, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`)).
			WithArgs("questions", "q-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := store.SaveQuestion(ctx, core.Document{"id": "q-1", "question": "What is 2+2?"}); err != nil {
			t.Fatalf("SaveQuestion() failed: %v", err)
		}
	})

	t.Run("save question assigns missing id", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO documents").
			WithArgs("questions", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		doc := core.Document{"question": "Why is the sky blue?"}
		if err := store.SaveQuestion(ctx, doc); err != nil {
			t.Fatalf("SaveQuestion() failed: %v", err)
		}
		if doc.ID() == "" {
			t.Error("SaveQuestion() did not assign an id")
		}
	})
}

func TestStore_AddLog(t *testing.T) {
	store, mock := newMockStore(t)
	rec := audit.Record{ID: "rec-1", Timestamp: time.Now().UTC(), ActorID: "u1",
		ActorName: "Tutor", ActorRole: user.RoleTutor, Action: "lesson.save", Summary: "saved"}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(rec.ID, rec.Timestamp, rec.ActorID, rec.ActorName, rec.ActorRole, rec.Action, rec.Summary).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.AddLog(context.Background(), rec); err != nil {
		t.Fatalf("AddLog() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// Snapshots are on-device operations; the remote backend refuses them loudly.
func TestStore_snapshotsNotSupported(t *testing.T) {
	ctx := context.Background()
	store, _ := newMockStore(t)

	if _, err := store.ExportData(ctx); errors.Cause(err) != core.ErrNotSupported {
		t.Errorf("ExportData() error = %v, want %v", err, core.ErrNotSupported)
	}
	if err := store.ImportData(ctx, nil); errors.Cause(err) != core.ErrNotSupported {
		t.Errorf("ImportData() error = %v, want %v", err, core.ErrNotSupported)
	}
	if err := store.ResetData(ctx); errors.Cause(err) != core.ErrNotSupported {
		t.Errorf("ResetData() error = %v, want %v", err, core.ErrNotSupported)
	}
}
