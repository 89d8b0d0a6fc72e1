package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
)

// toggleRow deletes the row identified by match when present, inserting it otherwise,
// and returns whether the row exists afterwards. A concurrent insert that wins the
// unique index race leaves the row present, which is what the caller asked for.
func toggleRow(ctx context.Context, pool db.Pool, op, deleteSQL, insertSQL string, deleteArgs, insertArgs []any) (bool, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var present bool
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		var removed string
		err := tx.QueryRow(ctx, deleteSQL, deleteArgs...).Scan(&removed)
		switch {
		case err == nil:
			present = false
			return nil
		case !errors.Is(err, pgx.ErrNoRows):
			return classify(err, op+": delete")
		}

		if _, err := tx.Exec(ctx, insertSQL, insertArgs...); err != nil {
			return classify(err, op+": insert")
		}
		present = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

// count runs a single-value COUNT statement.
func count(ctx context.Context, pool db.Pool, op, sql string, args ...any) (int64, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var n int64
	if err := conn.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, classify(err, op)
	}
	return n, nil
}
