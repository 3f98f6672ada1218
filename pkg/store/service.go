// Package store persists the local mirror of the remote catalog and
// implements the write protocol used by reconciliation passes.
//
// Every exported method runs in its own transaction. Reads never fail
// because nothing matched: they return an empty slice or a nil pointer.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/database"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// batchSize bounds the rows per INSERT and the ids per IN (...) list.
const batchSize = 500

// Page selects a window of an ordered listing. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(q *bun.SelectQuery) *bun.SelectQuery {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		if p.Limit <= 0 {
			// SQLite needs a LIMIT before OFFSET.
			q = q.Limit(-1)
		}
		q = q.Offset(p.Offset)
	}
	return q
}

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// DB exposes the handle for collaborators that build their own reads.
func (svc *Service) DB() *bun.DB {
	return svc.db
}

func (svc *Service) runInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// wrap attaches a stack to driver errors and surfaces corruption as a typed
// error. Typed errors pass through as-is.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(database.Classify(err))
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		items, chunks = items[size:], append(chunks, items[:size:size])
	}
	return append(chunks, items)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// upsertSet adds "col = EXCLUDED.col" for each column to an ON CONFLICT
// insert.
func upsertSet(q *bun.InsertQuery, columns []string) *bun.InsertQuery {
	for _, c := range columns {
		q = q.Set("? = EXCLUDED.?", bun.Ident(c), bun.Ident(c))
	}
	return q
}

var syncColumns = []string{"sync_run_id", "last_seen_run_id", "last_seen_at"}

// conflictColumns returns the columns an upsert should overwrite. Writes
// outside a pass keep whatever sync stamp the row already had.
func conflictColumns(data []string, stamped bool) []string {
	if !stamped {
		return data
	}
	cols := make([]string, 0, len(data)+len(syncColumns))
	cols = append(cols, data...)
	return append(cols, syncColumns...)
}
