// pkg/pipeline/runner.go

// Package pipeline sequences the per-entity run: EXTRACT, TRANSFORMATION,
// VALIDATION, TRANSFORM-CLEANED, LOAD, SUMMARY. Phases run in strict order,
// each entered exactly once; only EXTRACT failures and structural cleaning
// errors abort a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/cleaner"
	"github.com/skydata/staging-ingress/pkg/config"
	"github.com/skydata/staging-ingress/pkg/csvio"
	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/refdata"
	"github.com/skydata/staging-ingress/pkg/runlog"
	"github.com/skydata/staging-ingress/pkg/store"
)

// progressInterval controls how often the loader reports per-row progress.
const progressInterval = 10

// Runner executes entity runs against one staging store.
type Runner struct {
	cfg      *config.Config
	st       store.StagingStore
	console  *zap.Logger
	resolver *refdata.Resolver
}

// NewRunner wires a runner. The store may be nil for offline runs; the
// pipeline then cleans and exports but records every clean row as a failed
// upload.
func NewRunner(cfg *config.Config, st store.StagingStore, console *zap.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if console == nil {
		return nil, errors.New("logger is required")
	}
	resolver, err := refdata.NewResolver(console)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}
	resolver.WithThreshold(cfg.FuzzyThreshold)

	return &Runner{
		cfg:      cfg,
		st:       st,
		console:  console.Named("pipeline"),
		resolver: resolver,
	}, nil
}

// Run executes one entity run end to end. The returned error is non-nil only
// for unrecoverable conditions: unknown entity, unreadable input, or a
// structural cleaning failure. Row-level problems land in quarantine and the
// result counts instead.
func (r *Runner) Run(ctx context.Context, entityName, inputPath string) (*RunResult, error) {
	spec, err := Lookup(entityName)
	if err != nil {
		return nil, err
	}

	run := model.NewRunContext(spec.Name, spec.StagingTable)
	result := NewRunResult(run.RunID, spec.Name)

	rl, err := runlog.New(run, r.cfg.LogDir, r.console, r.st, r.cfg.RemoteLogTable)
	if err != nil {
		return nil, fmt.Errorf("creating run logger: %w", err)
	}
	defer rl.Close()
	result.RunLogPath = rl.Path()

	storeUp := r.probeStore(ctx, rl)

	// EXTRACT
	rl.SetPhase(ctx, "EXTRACT")
	read, err := csvio.ReadFile(inputPath, r.console)
	if err != nil {
		rl.Error(ctx, "csv-reader", "extract failed, aborting run",
			map[string]interface{}{"path": inputPath, "error": err.Error()})
		result.Complete(false)
		return result, fmt.Errorf("extract failed for %s: %w", inputPath, err)
	}
	result.TotalRows = read.Table.Len()
	result.SkippedLines = read.SkippedLines
	rl.Info(ctx, "csv-reader", fmt.Sprintf("read %d rows from %s", read.Table.Len(), inputPath),
		map[string]interface{}{"rows": read.Table.Len(), "skipped_lines": read.SkippedLines})

	// TRANSFORMATION
	rl.SetPhase(ctx, "TRANSFORMATION")
	refs := r.fetchRefs(ctx, spec, storeUp, rl)
	cleaned, err := cleaner.Clean(read.Table, spec.Rules(), refs)
	if err != nil {
		rl.Error(ctx, "cleaner", "structural cleaning failure",
			map[string]interface{}{"error": err.Error()})
		result.Complete(false)
		return result, err
	}
	for _, w := range cleaned.Warnings {
		result.AddWarning(w)
		rl.Warn(ctx, "cleaner", w, nil)
	}

	// VALIDATION
	rl.SetPhase(ctx, "VALIDATION")
	result.CleanRows = cleaned.Clean.Len()
	result.QuarantinedRows = cleaned.Quarantine.Len()
	rl.Info(ctx, "cleaner", fmt.Sprintf("%d clean rows, %d quarantined",
		result.CleanRows, result.QuarantinedRows),
		map[string]interface{}{
			"clean":       result.CleanRows,
			"quarantined": result.QuarantinedRows,
			"reasons":     reasonCounts(cleaned.Reasons),
		})

	// TRANSFORM-CLEANED
	rl.SetPhase(ctx, "TRANSFORM-CLEANED")
	if err := r.export(ctx, spec, cleaned, result, rl); err != nil {
		// Export problems are logged and counted, not fatal: the load can
		// still proceed from memory.
		result.AddError(err.Error())
		rl.Error(ctx, "exporter", err.Error(), nil)
	}

	// LOAD
	rl.SetPhase(ctx, "LOAD")
	r.load(ctx, spec, cleaned.Clean, storeUp, result, rl)

	// SUMMARY
	rl.SetPhase(ctx, "SUMMARY")
	rl.Info(ctx, "orchestrator", fmt.Sprintf(
		"run complete: total=%d clean=%d quarantined=%d loaded=%d failed_upload=%d",
		result.TotalRows, result.CleanRows, result.QuarantinedRows,
		result.LoadedRows, result.FailedUploads),
		map[string]interface{}{
			"total":         result.TotalRows,
			"clean":         result.CleanRows,
			"quarantined":   result.QuarantinedRows,
			"loaded":        result.LoadedRows,
			"failed_upload": result.FailedUploads,
			"skipped_lines": result.SkippedLines,
		})

	result.Complete(true)
	return result, nil
}

// probeStore checks warehouse connectivity within the configured timeout.
// Failure degrades the run to local-only logging rather than aborting.
func (r *Runner) probeStore(ctx context.Context, rl *runlog.Logger) bool {
	if r.st == nil {
		rl.Warn(ctx, "store", "no staging store configured, running in local-only mode", nil)
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()
	if err := r.st.Ping(probeCtx); err != nil {
		rl.DisableRemote()
		rl.Warn(ctx, "store", "staging store unreachable, degrading to local-only logging",
			map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// fetchRefs loads the reference key sets the entity needs. Unavailable
// reference data yields nil sets; resolution then passes values through.
func (r *Runner) fetchRefs(ctx context.Context, spec *EntitySpec, storeUp bool, rl *runlog.Logger) *cleaner.Refs {
	refs := &cleaner.Refs{Resolver: r.resolver}
	if !storeUp {
		if spec.NeedsAirportKeys || spec.NeedsAirlineKeys {
			rl.Warn(ctx, "resolver", "reference data unavailable, fuzzy correction disabled", nil)
		}
		return refs
	}
	if spec.NeedsAirportKeys {
		refs.Airports = refdata.FetchAirportKeys(ctx, r.st, r.console)
	}
	if spec.NeedsAirlineKeys {
		refs.Airlines = refdata.FetchAirlineKeys(ctx, r.st, r.console)
	}
	return refs
}

// export writes the cleaned and quarantined CSVs. Quarantine exports always
// carry a byte-order mark; cleaned exports only for entities that need it.
func (r *Runner) export(ctx context.Context, spec *EntitySpec, cleaned *model.CleaningResult, result *RunResult, rl *runlog.Logger) error {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	cleanPath := filepath.Join(r.cfg.OutputDir, fmt.Sprintf("cleaned_%s.csv", spec.Name))
	if err := csvio.WriteFile(cleanPath, cleaned.Clean, spec.CleanExportBOM); err != nil {
		return fmt.Errorf("exporting cleaned rows: %w", err)
	}
	result.CleanPath = cleanPath

	quarantinePath := filepath.Join(r.cfg.OutputDir, fmt.Sprintf("quarantined_%s.csv", spec.Name))
	if err := csvio.WriteFile(quarantinePath, cleaned.Quarantine, true); err != nil {
		return fmt.Errorf("exporting quarantined rows: %w", err)
	}
	result.QuarantinePath = quarantinePath

	rl.Info(ctx, "exporter", "exported cleaned and quarantined csv files",
		map[string]interface{}{"cleaned": cleanPath, "quarantined": quarantinePath})
	return nil
}

// load pushes clean rows to the staging table per the entity's strategy.
// Failures are row- or chunk-scoped: logged, counted, never fatal.
func (r *Runner) load(ctx context.Context, spec *EntitySpec, clean *model.Table, storeUp bool, result *RunResult, rl *runlog.Logger) {
	if clean.Len() == 0 {
		rl.Info(ctx, "loader", "no clean rows to load", nil)
		return
	}
	if !storeUp {
		result.FailedUploads = clean.Len()
		result.AddError("staging store unavailable, load skipped")
		rl.Error(ctx, "loader", "staging store unavailable, load skipped",
			map[string]interface{}{"rows_not_loaded": clean.Len()})
		return
	}

	switch spec.Load {
	case LoadChunkedInsert:
		r.loadChunked(ctx, spec, clean, result, rl)
	case LoadFullRefresh:
		r.loadFullRefresh(ctx, spec, clean, result, rl)
	default:
		r.loadUpsert(ctx, spec, clean, result, rl)
	}
}

// loadUpsert writes rows one at a time so a single bad row cannot take down
// the batch.
func (r *Runner) loadUpsert(ctx context.Context, spec *EntitySpec, clean *model.Table, result *RunResult, rl *runlog.Logger) {
	for i, row := range clean.Rows {
		if err := r.st.Upsert(ctx, spec.StagingTable, spec.ConflictColumns, row); err != nil {
			result.FailedUploads++
			result.AddError(err.Error())
			rl.Error(ctx, "loader", "row upsert failed",
				map[string]interface{}{
					"row":   i,
					"kind":  store.KindOf(err).String(),
					"error": err.Error(),
				})
			continue
		}
		result.LoadedRows++
		if (i+1)%progressInterval == 0 {
			rl.Info(ctx, "loader", fmt.Sprintf("uploaded %d/%d rows", i+1, clean.Len()), nil)
		}
	}
}

// loadFullRefresh clears the staging table, then upserts every row. A failed
// delete makes the whole load fail rather than mixing old and new rows.
func (r *Runner) loadFullRefresh(ctx context.Context, spec *EntitySpec, clean *model.Table, result *RunResult, rl *runlog.Logger) {
	if err := r.st.DeleteAll(ctx, spec.StagingTable); err != nil {
		result.FailedUploads = clean.Len()
		result.AddError(err.Error())
		rl.Error(ctx, "loader", "full refresh delete failed, load aborted",
			map[string]interface{}{
				"kind":  store.KindOf(err).String(),
				"error": err.Error(),
			})
		return
	}
	r.loadUpsert(ctx, spec, clean, result, rl)
}

// loadChunked dedups by the entity key (keep-first), appends in chunks, and
// verifies the staging table row count afterwards.
func (r *Runner) loadChunked(ctx context.Context, spec *EntitySpec, clean *model.Table, result *RunResult, rl *runlog.Logger) {
	rows := dedupeKeepFirst(clean.Rows, spec.DedupeColumn)
	if dropped := len(clean.Rows) - len(rows); dropped > 0 {
		rl.Info(ctx, "loader", fmt.Sprintf("dropped %d duplicate keys before insert", dropped),
			map[string]interface{}{"column": spec.DedupeColumn, "dropped": dropped})
	}

	for start := 0; start < len(rows); start += r.cfg.ChunkSize {
		end := start + r.cfg.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		if err := r.st.BatchInsert(ctx, spec.StagingTable, clean.Columns, chunk); err != nil {
			result.FailedUploads += len(chunk)
			result.AddError(err.Error())
			rl.Error(ctx, "loader", "chunk insert failed",
				map[string]interface{}{
					"chunk_start": start,
					"chunk_size":  len(chunk),
					"kind":        store.KindOf(err).String(),
					"error":       err.Error(),
				})
			continue
		}
		result.LoadedRows += len(chunk)
	}

	count, err := r.st.Count(ctx, spec.StagingTable)
	if err != nil {
		rl.Warn(ctx, "loader", "row count verification failed",
			map[string]interface{}{"error": err.Error()})
		return
	}
	if count < result.LoadedRows {
		rl.Warn(ctx, "loader", "staging table holds fewer rows than loaded",
			map[string]interface{}{"expected_at_least": result.LoadedRows, "observed": count})
		return
	}
	rl.Info(ctx, "loader", fmt.Sprintf("verified %d rows in %s", count, spec.StagingTable),
		map[string]interface{}{"observed": count})
}

// dedupeKeepFirst drops later rows sharing the key column's value.
func dedupeKeepFirst(rows []model.Row, column string) []model.Row {
	if column == "" {
		return rows
	}
	seen := make(map[string]struct{}, len(rows))
	out := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		key := row[column]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// reasonCounts aggregates quarantine reasons for the validation log event.
func reasonCounts(reasons []string) map[string]int {
	counts := make(map[string]int, len(reasons))
	for _, r := range reasons {
		counts[r]++
	}
	return counts
}
