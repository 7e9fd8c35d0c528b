package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerloft/treasuryd/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const defaultListLimit = 50

func queryRecordActivity(ctx context.Context, db executor, act *store.Activity) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO activity (
			id, topic, action, entity_id, actor, message, amount, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`,
		act.ID,
		act.Topic,
		act.Action,
		act.EntityID,
		act.Actor,
		act.Message,
		nullDecimal(act.Amount),
		act.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func queryListActivity(ctx context.Context, db executor, filter store.ActivityFilter) ([]*store.Activity, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	where := "TRUE"
	args := []any{}
	if filter.Topic != "" {
		args = append(args, filter.Topic)
		where += fmt.Sprintf(" AND topic = $%d", len(args))
	}
	if filter.Actor != "" {
		args = append(args, filter.Actor)
		where += fmt.Sprintf(" AND actor = $%d", len(args))
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT COUNT(*) OVER() AS total_count,
			id, topic, action, entity_id, actor, message, amount, created_at
		FROM activity
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var (
		entries []*store.Activity
		total   int
	)
	for rows.Next() {
		act, t, err := scanActivityWithTotal(rows)
		if err != nil {
			return nil, 0, err
		}
		total = t
		entries = append(entries, act)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activity rows: %w", err)
	}
	return entries, total, nil
}

func scanActivityWithTotal(rows *sql.Rows) (*store.Activity, int, error) {
	var (
		act    store.Activity
		total  int
		amount sql.NullString
	)
	if err := rows.Scan(
		&total,
		&act.ID,
		&act.Topic,
		&act.Action,
		&act.EntityID,
		&act.Actor,
		&act.Message,
		&amount,
		&act.CreatedAt,
	); err != nil {
		return nil, 0, fmt.Errorf("scan activity: %w", err)
	}
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, 0, fmt.Errorf("parse activity amount %q: %w", amount.String, err)
		}
		act.Amount = &d
	}
	return &act, total, nil
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
