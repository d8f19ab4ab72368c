// pkg/store/store.go
package store

import (
	"context"

	"github.com/skydata/staging-ingress/pkg/model"
)

// Result is the single response shape every store operation is normalized
// into before it reaches pipeline logic. Count is the number of rows the
// operation returned or affected.
type Result struct {
	Rows  []model.Row
	Count int
}

// StagingStore is the warehouse-side collaborator the pipeline loads into.
// Implementations classify their own failures (see Error); callers never
// inspect error message text.
type StagingStore interface {
	// Ping verifies connectivity within the context deadline.
	Ping(ctx context.Context) error

	// Exists reports whether the named staging table is present.
	Exists(ctx context.Context, table string) (bool, error)

	// Select reads the given columns from a table. A limit of 0 means no
	// limit.
	Select(ctx context.Context, table string, columns []string, limit int) (*Result, error)

	// Upsert writes one record, idempotent by the given conflict columns.
	Upsert(ctx context.Context, table string, conflictColumns []string, row model.Row) error

	// BatchInsert appends rows without conflict handling, in one statement
	// per batch.
	BatchInsert(ctx context.Context, table string, columns []string, rows []model.Row) error

	// DeleteAll removes every row from a table, for full-refresh loads.
	DeleteAll(ctx context.Context, table string) error

	// Count returns the current row count of a table.
	Count(ctx context.Context, table string) (int, error)

	// Close releases the underlying connections.
	Close() error
}
