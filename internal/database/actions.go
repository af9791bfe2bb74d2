// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/feliskatz/ratatat/internal/journal"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveActionBatch persists one batch of journal records in a single
// transaction. Each record upserts its match row, and a round_ended record
// additionally finalizes the round, so the historian can be the only
// Postgres writer in deployments where the room service journals to Redis
// only.
//
// Expected table, alongside the ones in results.go:
//
//	match_actions (match_id uuid, seq bigint, actor_id uuid, action text,
//	               payload jsonb, error_code text, recorded_at timestamptz)
//
// Seq repeats within a turn (drawing and replacing share one sequence
// number), so rows are plain inserts with no conflict key.
func SaveActionBatch(ctx context.Context, records []journal.ActionRecord) error {
	if DB == nil {
		return fmt.Errorf("no database pool connected")
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if e := insertActionTx(ctx, tx, rec); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert action batch: %w", err)
	}
	return nil
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec journal.ActionRecord) error {
	upsertMatch := `
		INSERT INTO matches (id, status)
		VALUES ($1, 'in_progress')
		ON CONFLICT (id) DO UPDATE SET status = 'in_progress'
	`
	if _, err := tx.Exec(ctx, upsertMatch, rec.RoomID); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	insertAction := `
		INSERT INTO match_actions (match_id, seq, actor_id, action, payload, error_code, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, to_timestamp($7 / 1000.0))
	`
	if _, err := tx.Exec(ctx, insertAction,
		rec.RoomID, rec.Seq, rec.ActorID, rec.Action, payload, rec.ErrorCode, rec.Timestamp,
	); err != nil {
		return err
	}

	if rec.Action == "round_ended" {
		finalize := `
			UPDATE matches
			SET status = 'round_complete', last_round_at = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalize, rec.RoomID); err != nil {
			return err
		}
	}
	return nil
}

// MarkMatchAbandoned flags a match whose room went quiet without a clean
// finish.
func MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) error {
	if DB == nil {
		return fmt.Errorf("no database pool connected")
	}
	q := `
		UPDATE matches
		SET status = 'abandoned'
		WHERE id = $1 AND status IN ('in_progress', 'round_complete')
	`
	if _, err := DB.Exec(ctx, q, matchID); err != nil {
		return fmt.Errorf("mark match %v abandoned: %w", matchID, err)
	}
	return nil
}
