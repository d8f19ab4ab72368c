// pkg/runlog/runlog.go

// Package runlog emits the structured run log every entity run produces: a
// local text file for operators plus rows in a remote log table, layered on
// the process-wide zap logger. Neither sink is allowed to fail the pipeline.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/store"
)

// Log levels as they appear in the text file and the remote table.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARNING"
	LevelError = "ERROR"
)

// layerFor maps a phase name onto the single-letter layer code recorded in
// the remote log table.
func layerFor(phase string) string {
	switch phase {
	case "EXTRACT":
		return "E"
	case "TRANSFORMATION", "VALIDATION", "TRANSFORM-CLEANED":
		return "T"
	case "LOAD":
		return "L"
	case "SUMMARY":
		return "S"
	default:
		return "X"
	}
}

// Logger is the dual-sink run logger for one entity run.
type Logger struct {
	run         *model.RunContext
	file        *os.File
	console     *zap.Logger
	st          store.StagingStore
	remoteTable string
}

// New creates the run logger. The text file lands in logDir as
// pipeline_run_log_<entity>_<runid>.txt. A nil store means local-only
// logging (the degraded mode used when the startup probe fails).
func New(run *model.RunContext, logDir string, console *zap.Logger, st store.StagingStore, remoteTable string) (*Logger, error) {
	if run == nil {
		return nil, errors.New("run context is required")
	}
	if console == nil {
		return nil, errors.New("console logger is required")
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", logDir, err)
	}
	path := filepath.Join(logDir,
		fmt.Sprintf("pipeline_run_log_%s_%s.txt", run.Entity, run.RunID))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating run log file %s: %w", path, err)
	}

	return &Logger{
		run:         run,
		file:        f,
		console:     console.Named("runlog"),
		st:          st,
		remoteTable: remoteTable,
	}, nil
}

// DisableRemote drops the remote sink, keeping file and console output.
func (l *Logger) DisableRemote() {
	l.st = nil
}

// Path returns the local log file location.
func (l *Logger) Path() string {
	return l.file.Name()
}

// SetPhase advances the run to a new phase, writing the phase banner locally
// and a phase-start event remotely.
func (l *Logger) SetPhase(ctx context.Context, name string) {
	l.run.Phase = name
	banner := fmt.Sprintf("==================== %s ====================", name)
	l.writeLocal(banner)
	l.console.Info("phase started",
		zap.String("run_id", l.run.RunID),
		zap.String("entity", l.run.Entity),
		zap.String("phase", name))
	l.writeRemote(ctx, LevelInfo, "orchestrator", "phase started: "+name, nil)
}

// Info logs an informational event to every sink.
func (l *Logger) Info(ctx context.Context, component, message string, details map[string]interface{}) {
	l.log(ctx, LevelInfo, component, message, details)
}

// Warn logs a warning event to every sink.
func (l *Logger) Warn(ctx context.Context, component, message string, details map[string]interface{}) {
	l.log(ctx, LevelWarn, component, message, details)
}

// Error logs an error event to every sink.
func (l *Logger) Error(ctx context.Context, component, message string, details map[string]interface{}) {
	l.log(ctx, LevelError, component, message, details)
}

func (l *Logger) log(ctx context.Context, level, component, message string, details map[string]interface{}) {
	l.writeLocal(fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), message))

	fields := []zap.Field{
		zap.String("run_id", l.run.RunID),
		zap.String("entity", l.run.Entity),
		zap.String("phase", l.run.Phase),
		zap.String("component", component),
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	switch level {
	case LevelError:
		l.console.Error(message, fields...)
	case LevelWarn:
		l.console.Warn(message, fields...)
	default:
		l.console.Info(message, fields...)
	}

	l.writeRemote(ctx, level, component, message, details)
}

// writeLocal appends one line to the text file. Failures are reported on the
// console and otherwise ignored.
func (l *Logger) writeLocal(line string) {
	if l.file == nil {
		return
	}
	if _, err := l.file.WriteString(line + "\n"); err != nil {
		l.console.Warn("run log file write failed", zap.Error(err))
	}
}

// writeRemote inserts one row into the remote log table. Failures are
// reported on the console and otherwise ignored; a logging outage must never
// abort the run.
func (l *Logger) writeRemote(ctx context.Context, level, component, message string, details map[string]interface{}) {
	if l.st == nil || l.remoteTable == "" {
		return
	}

	detailsJSON := ""
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}

	row := model.Row{
		"run_id":       l.run.RunID,
		"event_time":   time.Now().UTC().Format(time.RFC3339Nano),
		"layer":        layerFor(l.run.Phase),
		"component":    component,
		"table_name":   l.run.StagingTable,
		"level":        level,
		"message":      message,
		"details_json": detailsJSON,
	}

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := l.st.Upsert(rctx, l.remoteTable, nil, row); err != nil {
		l.console.Warn("remote run log insert failed",
			zap.String("table", l.remoteTable),
			zap.Error(err))
	}
}

// Close flushes and closes the local file sink.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("closing run log file: %w", err)
	}
	return nil
}
