package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"

	trading "aster_bot/internal/modules/trading/service"
	"aster_bot/pkg/db"
	"aster_bot/pkg/logger"
)

// Journal persists executed decisions to Postgres. Optional: with a nil
// TxManager every method is a no-op. A write failure is logged and swallowed,
// it must never affect the order that already went out.
type Journal struct {
	tx db.TxManager
}

func NewJournal(tx db.TxManager) *Journal {
	return &Journal{tx: tx}
}

const insertExecution = `
INSERT INTO executions (created_at, source, symbol, action, side, quantity, order_ids, outcome, err_kind, detail)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (j *Journal) Record(ctx context.Context, rec trading.Execution) {
	if j == nil || j.tx == nil {
		return
	}

	orderIDs, err := sonic.MarshalString(rec.OrderIDs)
	if err != nil {
		orderIDs = "[]"
	}

	err = j.tx.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, insertExecution,
			time.Now().UTC(),
			rec.Source,
			rec.Symbol,
			string(rec.Action),
			string(rec.Side),
			rec.Quantity.String(),
			orderIDs,
			rec.Outcome,
			rec.ErrKind,
			rec.Detail,
		)
		return err
	})
	if err != nil {
		logger.Error("journal insert failed: %v", err)
	}
}

// Entry is one journaled row as read back for the admin surface.
type Entry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Side      string    `json:"side"`
	Quantity  string    `json:"quantity"`
	OrderIDs  string    `json:"order_ids"`
	Outcome   string    `json:"outcome"`
	ErrKind   string    `json:"err_kind,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

const selectRecent = `
SELECT id, created_at, source, symbol, action, side, quantity, order_ids, outcome, err_kind, detail
FROM executions ORDER BY id DESC LIMIT $1`

// Recent returns the latest journal entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.tx == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var entries []Entry
	err := j.tx.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		rows, err := tx.Query(ctx, selectRecent, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e Entry
			if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Source, &e.Symbol, &e.Action,
				&e.Side, &e.Quantity, &e.OrderIDs, &e.Outcome, &e.ErrKind, &e.Detail); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
