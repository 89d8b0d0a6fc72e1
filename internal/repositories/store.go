package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/query"
)

// queryOne runs sql and maps the single returned row onto T.
func queryOne[T any](ctx context.Context, pool db.Pool, op, sql string, args ...any) (T, error) {
	var zero T
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return zero, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return zero, classify(err, op)
	}
	record, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		return zero, classify(err, op)
	}
	return record, nil
}

// execOne runs sql and reports ErrNotFound when no row was affected.
func execOne(ctx context.Context, pool db.Pool, op, sql string, args ...any) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		return classify(err, op)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// viewOne fetches one enriched record of view for actor.
func viewOne[T any](ctx context.Context, pool db.Pool, view query.View, actor, id, op string) (T, error) {
	var zero T
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return zero, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	record, err := query.FetchOne[T](ctx, conn, view, actor, query.Filter{}.Eq("id", id))
	if err != nil {
		return zero, classify(err, op)
	}
	return record, nil
}

// fetchPage lists one labelled page of view.
func fetchPage[T any](ctx context.Context, pool db.Pool, view query.View, req query.Request, items, total, op string) (query.Page[T], error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return query.Page[T]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	page, err := query.Fetch[T](ctx, conn, view, req)
	if err != nil {
		return query.Page[T]{}, classify(err, op)
	}
	return page.WithLabels(items, total), nil
}
