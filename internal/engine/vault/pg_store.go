package vault

import (
	"context"
	"fmt"
	"time"

	"flip_bot/internal/models"
	"flip_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// PgLedger пишет леджер в postgres через tx manager.
type PgLedger struct {
	db *db.PgTxManager
}

func NewPgLedger(m *db.PgTxManager) *PgLedger {
	return &PgLedger{db: m}
}

func (p *PgLedger) Insert(ctx context.Context, e models.VaultLedgerEntry) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.VaultInsert: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO vault_ledger
			   (cycle_id, gross_profit, reserve, working_retained, transferred, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.CycleID, e.GrossProfit, e.Reserve, e.WorkingRetained, e.Transferred, e.CreatedAt,
		)
		return err
	})
}

func (p *PgLedger) MarkTransferred(ctx context.Context, upTo time.Time) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.VaultMarkTransferred: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`UPDATE vault_ledger SET transferred = TRUE
			  WHERE transferred = FALSE AND created_at <= $1`,
			upTo,
		)
		return err
	})
}
