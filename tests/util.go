package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/localstore"
)

// Logger returns a silent core.Logger for tests.
func Logger() core.Logger {
	return logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
}

// OpenStore opens a throwaway local store under a temp dir.
func OpenStore(t *testing.T) *localstore.Store {
	t.Helper()
	conf := &core.Config{Backend: core.BackendLocal}
	conf.Local.DataDir = t.TempDir()
	store, err := localstore.Open(conf, Logger())
	if err != nil {
		t.Fatalf("localstore.Open() failed: %v", err)
	}
	return store
}

func CreateUser(
	t *testing.T,
	store user.Store,
	name, email, role, pwd string,
	state user.CredentialState,
) user.User {
	t.Helper()
	ctx := context.Background()

	id, err := store.GenerateID(ctx)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	now := time.Now().UTC()
	usr := user.User{
		ID:              id,
		Name:            name,
		Role:            role,
		Email:           email,
		CredentialState: state,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}

	users, err := store.LoadUsers(ctx)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if err := store.SaveUsers(ctx, append(users, usr)); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
