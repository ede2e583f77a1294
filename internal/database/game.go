package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rondo-game/rondo/internal/game"
)

// RecordGameResults persists the frozen final standings of a finished game:
// one games row marked completed plus one game_results row per team.
func RecordGameResults(ctx context.Context, gameID, lobbyID uuid.UUID, ranking []game.FinalRankingEntry) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, lobby_id, status)
			VALUES ($1, $2, 'completed')
			ON CONFLICT (id) DO UPDATE SET status = 'completed'
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID, lobbyID); e != nil {
			return e
		}

		q := `
			INSERT INTO game_results (game_id, team_number, score, rank)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (game_id, team_number)
			DO UPDATE SET score=$3, rank=$4
		`
		for _, entry := range ranking {
			if _, e := tx.Exec(ctx, q, gameID, entry.TeamNumber, entry.Score, entry.Rank); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}
