package audit

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type (
	// Store is the slice of the storage contract the writer needs.
	// The active backend (storage.Store) satisfies it.
	Store interface {
		GenerateID(ctx context.Context) (string, error)
		AddLog(ctx context.Context, rec Record) error
	}

	// Writer appends audit records through the active backend.
	Writer struct {
		store Store
		log   core.Logger
	}
)

func NewWriter(store Store, log core.Logger) *Writer {
	return &Writer{store: store, log: log}
}

// Log records an action. Fire-and-forget: failures are reported to the
// logger, never to the caller, so audit writes can never break a UI flow.
func (w *Writer) Log(ctx context.Context, actor user.User, action, summary string) {
	id, err := w.store.GenerateID(ctx)
	if err != nil {
		w.log.Error("audit: generating record id", err)
		return
	}
	rec := Record{
		ID:        id,
		Timestamp: time.Now().UTC(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    action,
		Summary:   summary,
	}
	if err := w.store.AddLog(ctx, rec); err != nil {
		w.log.Error("audit: adding log", err, actor)
	}
}
