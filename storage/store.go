// Package storage is the single call surface for persisted data. The active
// backend is resolved once per process from configuration; callers only ever
// see the Store contract and never learn which backend is behind it.
package storage

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/localstore"
	"github.com/trezcool/darasa/storage/remotestore"
)

// Store is the storage contract, uniform across backends. All operations may
// suspend (the remote backend does network round-trips); the local backend
// completes synchronously but satisfies the same contract so callers stay
// backend-agnostic.
//
// Save* operations are last-write-wins on the whole aggregate; partial-field
// updates are the caller's job to construct first.
type Store interface {
	// GenerateID returns a new opaque identifier.
	GenerateID(ctx context.Context) (string, error)

	LoadUsers(ctx context.Context) ([]user.User, error)
	SaveUsers(ctx context.Context, users []user.User) error
	Login(ctx context.Context, email, password string) (user.User, error)
	ChangePassword(ctx context.Context, userID, newPassword string) error

	LoadSchools(ctx context.Context) ([]core.Document, error)
	SaveSchools(ctx context.Context, schools []core.Document) error
	LoadLesson(ctx context.Context) (core.Document, error)
	SaveLesson(ctx context.Context, lesson core.Document) error
	LoadQuestions(ctx context.Context) ([]core.Document, error)
	SaveQuestion(ctx context.Context, question core.Document) error

	LoadLogs(ctx context.Context) ([]audit.Record, error)
	AddLog(ctx context.Context, rec audit.Record) error

	ExportData(ctx context.Context) ([]byte, error)
	ImportData(ctx context.Context, snapshot []byte) error
	ResetData(ctx context.Context) error

	Close() error
}

// interface compliance checks
var (
	_ Store = (*localstore.Store)(nil)
	_ Store = (*remotestore.Store)(nil)

	_ user.Store  = (Store)(nil)
	_ audit.Store = (Store)(nil)
)

// Open resolves the active backend from conf.Backend and returns it behind
// the Store contract. The choice is fixed for the process lifetime; there is
// no auto-detection and no cross-backend merging.
func Open(conf *core.Config, log core.Logger) (Store, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	switch conf.Backend {
	case core.BackendLocal:
		return localstore.Open(conf, log)
	case core.BackendRemote:
		return remotestore.Open(conf, log)
	}
	return nil, core.NewConfigError("unknown backend %q", conf.Backend)
}
