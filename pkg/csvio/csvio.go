// pkg/csvio/csvio.go
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/model"
)

const bom = "\ufeff"

// ReadResult reports what happened while reading one CSV file.
type ReadResult struct {
	Table        *model.Table
	SkippedLines int
}

// ReadFile reads a UTF-8 CSV file with a header row into a Table. A leading
// byte-order mark is stripped. Lines with a mismatched field count or broken
// quoting are skipped and counted rather than failing the read; an unreadable
// file or missing header is an error.
func ReadFile(path string, logger *zap.Logger) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header from %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	table := model.NewTable(header)
	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				if logger != nil {
					logger.Warn("skipping malformed csv line",
						zap.Int("line", perr.Line),
						zap.Error(err))
				}
				continue
			}
			return nil, fmt.Errorf("reading csv records from %s: %w", path, err)
		}
		if len(record) != len(header) {
			skipped++
			continue
		}
		row := make(model.Row, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		table.Append(row)
	}

	return &ReadResult{Table: table, SkippedLines: skipped}, nil
}

// WriteFile writes a Table to path using the table's column order. When
// withBOM is set a UTF-8 byte-order mark is emitted first, for consumers
// that need it to detect the encoding.
func WriteFile(path string, table *model.Table, withBOM bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file %s: %w", path, err)
	}
	defer f.Close()

	if withBOM {
		if _, err := f.WriteString(bom); err != nil {
			return fmt.Errorf("writing byte-order mark to %s: %w", path, err)
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		return fmt.Errorf("writing csv header to %s: %w", path, err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing csv record to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv file %s: %w", path, err)
	}
	return nil
}
