package history

import (
	"context"
	"fmt"
	"time"

	"flip_bot/internal/models"
	"flip_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

type PgStore struct {
	db *db.PgTxManager
}

func NewPgStore(m *db.PgTxManager) *PgStore {
	return &PgStore{db: m}
}

func (p *PgStore) Append(ctx context.Context, echo models.MemoryEcho) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.EchoAppend: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO memory_echoes
			   (inst_id, pattern, success, profit_ratio, entry_score, entry_volatility, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			echo.InstID, echo.Pattern, echo.Success, echo.ProfitRatio,
			echo.EntryScore, echo.EntryVolatility, echo.CompletedAt,
		)
		return err
	})
}

func (p *PgStore) Query(ctx context.Context, instID, pattern string, lookback time.Duration) (out []models.MemoryEcho, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.EchoQuery: %w", err)
		}
	}()
	cutoff := time.Now().Add(-lookback)
	err = p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx,
			`SELECT inst_id, pattern, success, profit_ratio, entry_score, entry_volatility, completed_at
			   FROM memory_echoes
			  WHERE completed_at >= $1 AND (inst_id = $2 OR pattern = $3)
			  ORDER BY completed_at`,
			cutoff, instID, pattern,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e models.MemoryEcho
			if err := rows.Scan(&e.InstID, &e.Pattern, &e.Success, &e.ProfitRatio,
				&e.EntryScore, &e.EntryVolatility, &e.CompletedAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}
