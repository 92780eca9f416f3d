package store

import (
	"context"
	"database/sql"
	"time"

	"wingman/app/config"
	"wingman/app/model"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type conversationRow struct {
	bun.BaseModel `bun:"table:conversations"`

	MatchID            string             `bun:"match_id,pk"`
	Profile            model.MatchProfile `bun:"profile,type:jsonb"`
	LastInteraction    time.Time          `bun:"last_interaction"`
	ReadyToMeet        bool               `bun:"ready_to_meet"`
	ReadinessTimestamp *time.Time         `bun:"readiness_timestamp"`
}

type messageRow struct {
	bun.BaseModel `bun:"table:messages"`

	ID         string    `bun:"id,pk"`
	MatchID    string    `bun:"match_id"`
	Seq        int       `bun:"seq"`
	Text       string    `bun:"text"`
	IsReceived bool      `bun:"is_received"`
	Timestamp  time.Time `bun:"timestamp"`
}

// PostgresStore persists conversations in two tables: one row per match plus
// an ordered message log keyed by (match_id, seq).
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg *config.Config) (*PostgresStore, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithAddr(cfg.DB.Host),
		pgdriver.WithUser(cfg.DB.User),
		pgdriver.WithPassword(cfg.DB.Pass),
		pgdriver.WithDatabase(cfg.DB.Database),
		pgdriver.WithInsecure(true),
	)

	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, unavailable("connect to postgres", err)
	}

	for _, table := range []any{(*conversationRow)(nil), (*messageRow)(nil)} {
		if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			return nil, unavailable("create tables", err)
		}
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) (map[string]*model.ConversationState, error) {
	var conversations []conversationRow
	if err := s.db.NewSelect().Model(&conversations).Scan(ctx); err != nil {
		return nil, unavailable("load conversations", err)
	}

	var messages []messageRow
	if err := s.db.NewSelect().Model(&messages).Order("match_id", "seq").Scan(ctx); err != nil {
		return nil, unavailable("load messages", err)
	}

	result := make(map[string]*model.ConversationState, len(conversations))

	for _, row := range conversations {
		result[row.MatchID] = &model.ConversationState{
			MatchID:            row.MatchID,
			Profile:            row.Profile,
			LastInteraction:    row.LastInteraction,
			ReadyToMeet:        row.ReadyToMeet,
			ReadinessTimestamp: row.ReadinessTimestamp,
		}
	}

	for _, row := range messages {
		state, ok := result[row.MatchID]
		if !ok {
			continue
		}

		state.Messages = append(state.Messages, model.Message{
			Text:       row.Text,
			IsReceived: row.IsReceived,
			Timestamp:  row.Timestamp,
		})
	}

	return result, nil
}

func (s *PostgresStore) Save(ctx context.Context, state *model.ConversationState) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		profile := state.Profile
		profile.LastMessages = nil

		row := &conversationRow{
			MatchID:            state.MatchID,
			Profile:            profile,
			LastInteraction:    state.LastInteraction,
			ReadyToMeet:        state.ReadyToMeet,
			ReadinessTimestamp: state.ReadinessTimestamp,
		}

		_, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (match_id) DO UPDATE").
			Set("profile = EXCLUDED.profile").
			Set("last_interaction = EXCLUDED.last_interaction").
			Set("ready_to_meet = EXCLUDED.ready_to_meet").
			Set("readiness_timestamp = EXCLUDED.readiness_timestamp").
			Exec(ctx)
		if err != nil {
			return err
		}

		stored, err := tx.NewSelect().
			Model((*messageRow)(nil)).
			Where("match_id = ?", state.MatchID).
			Count(ctx)
		if err != nil {
			return err
		}

		if stored >= len(state.Messages) {
			return nil
		}

		tail := make([]messageRow, 0, len(state.Messages)-stored)
		for i := stored; i < len(state.Messages); i++ {
			msg := state.Messages[i]
			tail = append(tail, messageRow{
				ID:         uuid.NewString(),
				MatchID:    state.MatchID,
				Seq:        i,
				Text:       msg.Text,
				IsReceived: msg.IsReceived,
				Timestamp:  msg.Timestamp,
			})
		}

		_, err = tx.NewInsert().Model(&tail).Exec(ctx)

		return err
	})
	if err != nil {
		return unavailable("save conversation", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Shutdown() error {
	return s.Close()
}
