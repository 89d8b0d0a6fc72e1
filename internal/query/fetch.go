package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/logging"
)

// Beginner opens transactions. *pgxpool.Conn and *pgxpool.Pool satisfy it.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Querier runs queries. *pgxpool.Conn, *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Request bundles the caller-controlled parts of a listing.
type Request struct {
	Actor  string
	Filter Filter
	Sort   Sort
	Window Window
}

// Fetch counts and windows a View inside one read-only snapshot so the total
// and the items observe the same rows. Rows are mapped onto T by db tags.
func Fetch[T any](ctx context.Context, db Beginner, view View, req Request) (_ Page[T], err error) {
	ctx, span := logging.StartSpan(ctx, "query.fetch")
	defer func() {
		span.Fail(err)
		span.End()
	}()

	window := req.Window.normalized()

	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Page[T]{}, fmt.Errorf("begin listing snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	count := view.Count(req.Filter)
	var total int64
	if err := tx.QueryRow(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return Page[T]{}, fmt.Errorf("count listing: %w", err)
	}

	var items []T
	if int64(window.Offset()) < total {
		list := view.List(req.Actor, req.Filter, req.Sort, window)
		rows, qerr := tx.Query(ctx, list.SQL, list.Args...)
		if qerr != nil {
			return Page[T]{}, fmt.Errorf("query listing: %w", qerr)
		}
		items, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
		if err != nil {
			return Page[T]{}, fmt.Errorf("collect listing: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Page[T]{}, fmt.Errorf("commit listing snapshot: %w", err)
	}

	logging.FromContext(ctx).Debug("listing fetched", "total", total, "page", window.Page, "limit", window.Limit)

	return Paginate(items, total, window), nil
}

// FetchOne returns the single enriched row matching filter, or pgx.ErrNoRows.
func FetchOne[T any](ctx context.Context, q Querier, view View, actor string, filter Filter) (T, error) {
	stmt := view.List(actor, filter, Sort{}, Window{Page: 1, Limit: 1})
	rows, err := q.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("query record: %w", err)
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
}
