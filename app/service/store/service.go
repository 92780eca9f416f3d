package store

import (
	"context"
	"errors"
	"fmt"

	"wingman/app/config"
	"wingman/app/model"

	"github.com/samber/do"
)

// ErrUnavailable marks failures of the persistence medium itself. A call that
// hits it must fail rather than continue on unpersisted state.
var ErrUnavailable = errors.New("conversation store unavailable")

var (
	_ do.Shutdownable = (*FileStore)(nil)
	_ do.Shutdownable = (*PostgresStore)(nil)
)

// Store persists one record per match id. Save is an idempotent upsert: the
// profile snapshot and readiness fields are refreshed on every call and only
// messages beyond the already-persisted count are appended.
type Store interface {
	LoadAll(ctx context.Context) (map[string]*model.ConversationState, error)
	Save(ctx context.Context, state *model.ConversationState) error
	Close() error
}

func New(di *do.Injector) (Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.Store.Driver {
	case "postgres":
		return NewPostgresStore(cfg)
	default:
		return NewFileStore(cfg.Store.Path)
	}
}

func unavailable(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, action, err)
}

// mergeMessages keeps the persisted history append-only: whatever is already
// stored stays, and only the tail of the incoming state past the stored count
// is added.
func mergeMessages(stored, incoming []model.Message) []model.Message {
	if len(incoming) <= len(stored) {
		return stored
	}

	return append(stored, incoming[len(stored):]...)
}
