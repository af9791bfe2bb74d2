// internal/database/results.go
package database

import (
	"context"
	"fmt"

	"github.com/feliskatz/ratatat/internal/game"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveRoundResults persists one finished round: the match row is upserted
// and each player's line lands in round_results. seq is the match turn
// sequence at round end and keys the round within the match, so a retried
// write stays idempotent.
//
// Expected tables:
//
//	matches (id uuid primary key, status text, last_round_at timestamptz)
//	round_results (match_id uuid, seq bigint, player_id uuid, name text,
//	               score int, total_score int, knocked bool,
//	               primary key (match_id, seq, player_id))
func SaveRoundResults(ctx context.Context, matchID uuid.UUID, seq int64, results []game.RoundResult) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, status, last_round_at)
			VALUES ($1, 'round_complete', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'round_complete', last_round_at = NOW()
		`
		if _, e := tx.Exec(ctx, upsertMatch, matchID); e != nil {
			return e
		}

		for _, r := range results {
			q := `
				INSERT INTO round_results (match_id, seq, player_id, name, score, total_score, knocked)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (match_id, seq, player_id)
				DO UPDATE SET score=$5, total_score=$6, knocked=$7
			`
			if _, e2 := tx.Exec(ctx, q, matchID, seq, r.PlayerID, r.Name, r.RoundScore, r.TotalScore, r.Knocked); e2 != nil {
				return e2
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert match or round results: %w", err)
	}
	return nil
}
