// pkg/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/config"
	"github.com/skydata/staging-ingress/pkg/model"
)

// PostgresStore implements StagingStore against the warehouse's staging
// schema using sqlx on top of lib/pq.
type PostgresStore struct {
	db      *sqlx.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewPostgresStore opens a connection pool to the staging warehouse. The
// connection is not validated here; call Ping with a bounded context before
// first use.
func NewPostgresStore(cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &PostgresStore{
		db:      db,
		logger:  logger.Named("postgres-store"),
		timeout: cfg.StatementTimeout,
	}, nil
}

// Ping verifies connectivity. The ping itself runs in a goroutine so the
// caller's deadline is honored even when the driver blocks on dial.
func (s *PostgresStore) Ping(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.db.PingContext(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return classify("ping", "", err)
		}
		return nil
	case <-ctx.Done():
		return classify("ping", "", ctx.Err())
	}
}

// Exists reports whether a staging table is present in the public schema.
func (s *PostgresStore) Exists(ctx context.Context, table string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return false, classify("exists", table, err)
	}
	return exists, nil
}

// Select reads the given columns from a table into the normalized Result
// shape. All values come back as strings; NULL reads as the empty string.
func (s *PostgresStore) Select(ctx context.Context, table string, columns []string, limit int) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(quoted, ", "), pq.QuoteIdentifier(table))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify("select", table, err)
	}
	defer rows.Close()

	result := &Result{}
	scanTargets := make([]sql.NullString, len(columns))
	scanPtrs := make([]interface{}, len(columns))
	for i := range scanTargets {
		scanPtrs[i] = &scanTargets[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, classify("select", table, err)
		}
		row := make(model.Row, len(columns))
		for i, c := range columns {
			row[c] = scanTargets[i].String
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("select", table, err)
	}
	result.Count = len(result.Rows)
	return result, nil
}

// Upsert writes one record, updating all non-conflict columns when the
// conflict key already exists.
func (s *PostgresStore) Upsert(ctx context.Context, table string, conflictColumns []string, row model.Row) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	columns := make([]string, 0, len(row))
	for c := range row {
		columns = append(columns, c)
	}
	// Deterministic column order keeps statements cacheable.
	sort.Strings(columns)

	conflict := make(map[string]bool, len(conflictColumns))
	for _, c := range conflictColumns {
		conflict[c] = true
	}

	quotedCols := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	values := make([]interface{}, len(columns))
	var updates []string
	for i, c := range columns {
		quotedCols[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		values[i] = nullable(row[c])
		if !conflict[c] {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s",
				pq.QuoteIdentifier(c), pq.QuoteIdentifier(c)))
		}
	}

	quotedConflict := make([]string, len(conflictColumns))
	for i, c := range conflictColumns {
		quotedConflict[i] = pq.QuoteIdentifier(c)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table),
		strings.Join(quotedCols, ", "),
		strings.Join(placeholders, ", "))
	if len(conflictColumns) > 0 {
		if len(updates) > 0 {
			query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
				strings.Join(quotedConflict, ", "), strings.Join(updates, ", "))
		} else {
			query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING",
				strings.Join(quotedConflict, ", "))
		}
	}

	if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
		return classify("upsert", table, err)
	}
	return nil
}

// BatchInsert appends rows in a single multi-values statement per call,
// inside one transaction.
func (s *PostgresStore) BatchInsert(ctx context.Context, table string, columns []string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = pq.QuoteIdentifier(c)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ",
		pq.QuoteIdentifier(table), strings.Join(quotedCols, ", "))

	values := make([]interface{}, 0, len(rows)*len(columns))
	for ri, row := range rows {
		if ri > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for ci, c := range columns {
			if ci > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", ri*len(columns)+ci+1)
			values = append(values, nullable(row[c]))
		}
		sb.WriteString(")")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("batch-insert", table, err)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		tx.Rollback()
		return classify("batch-insert", table, err)
	}
	if err := tx.Commit(); err != nil {
		return classify("batch-insert", table, err)
	}

	s.logger.Debug("batch inserted",
		zap.String("table", table),
		zap.Int("rows", len(rows)))
	return nil
}

// DeleteAll clears a staging table ahead of a full-refresh load.
func (s *PostgresStore) DeleteAll(ctx context.Context, table string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", pq.QuoteIdentifier(table)))
	if err != nil {
		return classify("delete-all", table, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("cleared staging table",
			zap.String("table", table),
			zap.Int64("rows_deleted", n))
	}
	return nil
}

// Count returns the current row count of a table.
func (s *PostgresStore) Count(ctx context.Context, table string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, classify("count", table, err)
	}
	return count, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// nullable maps the empty string onto SQL NULL so missing values do not land
// as empty text in typed columns.
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
