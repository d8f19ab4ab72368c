// pkg/csvio/csvio_test.go
package csvio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return path
}

func TestReadFileStripsBOM(t *testing.T) {
	path := writeFile(t, "\ufeffAirportKey,City\nJFK,New York\n")
	result, err := ReadFile(path, zap.NewNop())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if result.Table.Columns[0] != "AirportKey" {
		t.Errorf("first column = %q, want AirportKey without BOM", result.Table.Columns[0])
	}
	if result.Table.Len() != 1 || result.Table.Rows[0]["AirportKey"] != "JFK" {
		t.Errorf("rows = %v", result.Table.Rows)
	}
}

func TestReadFileSkipsMalformedLines(t *testing.T) {
	content := "a,b,c\n" +
		"1,2,3\n" +
		"1,2\n" + // short line
		"4,5,6,7\n" + // long line
		"7,8,9\n"
	result, err := ReadFile(writeFile(t, content), zap.NewNop())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if result.Table.Len() != 2 {
		t.Errorf("rows = %d, want 2", result.Table.Len())
	}
	if result.SkippedLines != 2 {
		t.Errorf("skipped = %d, want 2", result.SkippedLines)
	}
}

func TestReadFileMissingFile(t *testing.T) {
	if _, err := ReadFile("/does/not/exist.csv", zap.NewNop()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	table := model.NewTable([]string{"k", "v"})
	table.Append(model.Row{"k": "a", "v": "quoted, value"})
	table.Append(model.Row{"k": "b", "v": ""})

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteFile(path, table, false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := ReadFile(path, zap.NewNop())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if result.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", result.Table.Len())
	}
	if result.Table.Rows[0]["v"] != "quoted, value" {
		t.Errorf("value = %q", result.Table.Rows[0]["v"])
	}
}

func TestWriteFileBOM(t *testing.T) {
	table := model.NewTable([]string{"a"})
	table.Append(model.Row{"a": "1"})

	path := filepath.Join(t.TempDir(), "bom.csv")
	if err := WriteFile(path, table, true); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if !strings.HasPrefix(string(data), "\ufeff") {
		t.Error("output missing byte-order mark")
	}

	// Reading our own BOM output round-trips cleanly.
	result, err := ReadFile(path, zap.NewNop())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if result.Table.Columns[0] != "a" {
		t.Errorf("column = %q, want a", result.Table.Columns[0])
	}
}
