// pkg/store/errors.go
package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
)

// Kind classifies a store failure. The adapter decides the kind from driver
// error codes; pipeline code switches on Kind, never on message text.
type Kind int

const (
	// KindUnknown covers failures the adapter could not classify.
	KindUnknown Kind = iota
	// KindTransient marks failures worth retrying: connectivity loss,
	// timeouts, resource exhaustion, serialization conflicts.
	KindTransient
	// KindSchema marks failures a retry will not fix: missing tables or
	// columns, constraint violations, bad data for the column type.
	KindSchema
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Error is the typed failure every adapter operation returns.
type Error struct {
	Kind  Kind
	Op    string
	Table string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s on %s (%s): %v", e.Op, e.Table, e.Kind, e.Err)
	}
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying driver error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from an error, or KindUnknown when the
// error did not come from a store adapter.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsTransient reports whether the failure is worth retrying later.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// classify wraps a driver error with its kind. PostgreSQL SQLSTATE classes
// drive the decision; network and deadline errors are transient.
func classify(op, table string, err error) error {
	if err == nil {
		return nil
	}

	kind := KindUnknown

	var pqErr *pq.Error
	var netErr net.Error
	switch {
	case errors.As(err, &pqErr):
		kind = kindFromSQLState(string(pqErr.Code))
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		kind = KindTransient
	case errors.As(err, &netErr):
		kind = KindTransient
	}

	return &Error{Kind: kind, Op: op, Table: table, Err: err}
}

// kindFromSQLState maps a SQLSTATE code onto a Kind. Class prefixes follow
// the PostgreSQL error-code appendix.
func kindFromSQLState(code string) Kind {
	if code == "40001" || code == "40P01" {
		// serialization_failure, deadlock_detected
		return KindTransient
	}
	switch {
	case strings.HasPrefix(code, "08"): // connection exceptions
		return KindTransient
	case strings.HasPrefix(code, "53"): // insufficient resources
		return KindTransient
	case strings.HasPrefix(code, "57"): // operator intervention
		return KindTransient
	case strings.HasPrefix(code, "22"): // data exceptions
		return KindSchema
	case strings.HasPrefix(code, "23"): // integrity constraint violations
		return KindSchema
	case strings.HasPrefix(code, "42"): // syntax / undefined object / access
		return KindSchema
	default:
		return KindUnknown
	}
}
