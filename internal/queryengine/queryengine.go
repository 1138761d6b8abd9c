// Package queryengine defines the QueryEngine SPI and a
// staged implementation that runs the fixed pipeline of PARSE, VALIDATE,
// CONVERT, OPTIMIZE, EXECUTE and TRANSFORM stages over a LogicalQuery.
package queryengine

import (
	"context"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
)

// LogicalQuery is the engine-agnostic query shape accepted by Execute. Body
// is opaque to the engine's caller; only the staged engine's PARSE stage
// assigns it meaning.
type LogicalQuery struct {
	Body       string
	Parameters map[string]interface{}
}

// Context carries the per-call information a QueryEngine needs beyond the
// query text itself: which sources it may read from and the caller's
// security/trace identity. It is built fresh per call, never shared or
// cached (the same per-instance rule internal/envelope.Attributes follows).
type Context struct {
	Go              context.Context
	SessionID       string
	UserID          string
	TraceID         string
	Sources         []string
	SecurityContext map[string]interface{}
	Attributes      *envelope.Attributes
	ArrivalTime     time.Time
	Deadline        *time.Time
}

// DeadlineExceeded reports whether now is at or past the context's
// deadline. A nil Deadline never expires.
func (c *Context) DeadlineExceeded(now time.Time) bool {
	return c.Deadline != nil && !now.Before(*c.Deadline)
}

// Column describes one result column.
type Column struct {
	Name     string
	SQLType  string
	Nullable bool
}

// Result is the canonical shape every QueryEngine.Execute returns,
// resolving the MapQueryResult/QueryEngineResult naming overlap in favor
// of one type used everywhere downstream (dispatcher, protocol adapters).
// It is iterable exactly once; Close releases any underlying cursor and is
// always safe to call, including after full consumption.
type Result struct {
	Columns []Column
	rows    []map[string]interface{}
	pos     int
	closed  bool
}

// NewResult wraps an already-materialized row slice.
func NewResult(columns []Column, rows []map[string]interface{}) *Result {
	return &Result{Columns: columns, rows: rows}
}

// Next advances to the next row, returning false once exhausted or after
// Close.
func (r *Result) Next() bool {
	if r.closed || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

// Row returns the row last advanced to by Next.
func (r *Result) Row() map[string]interface{} {
	if r.pos == 0 || r.pos > len(r.rows) {
		return nil
	}
	return r.rows[r.pos-1]
}

// Rows returns every row of the Result, including rows Next has already
// advanced past. It neither moves the cursor nor closes the Result.
func (r *Result) Rows() []map[string]interface{} {
	return r.rows
}

// Close marks the Result consumed. Idempotent.
func (r *Result) Close() error {
	r.closed = true
	return nil
}

// QueryEngine is the SPI every concrete engine implementation satisfies.
// Open/Close bracket the engine's lifecycle; every operation except
// IsOpen, Close, and Name must fail with InitializationError if called
// before Open or after Close.
type QueryEngine interface {
	Name() string
	Open(ctx *Context) error
	IsOpen() bool
	// Validate reports whether query would be accepted by VALIDATE without
	// running PARSE's side effects or proceeding to CONVERT/OPTIMIZE/EXECUTE.
	Validate(ctx *Context, query LogicalQuery) (bool, error)
	// Explain runs PARSE, VALIDATE, CONVERT, and OPTIMIZE and renders the
	// resulting physical plan as a human-readable string, without EXECUTE.
	Explain(ctx *Context, query LogicalQuery) (string, error)
	// SupportsStreaming reports whether Execute can return partial Results
	// before the full rowset is materialized. The staged engine always
	// returns a fully-materialized Result, so it is false.
	SupportsStreaming() bool
	Execute(ctx *Context, query LogicalQuery) (*Result, error)
	Close(ctx *Context) error
}

// Factory builds named QueryEngine instances from raw configuration, the
// same closed-registry-of-factories shape internal/sourceprovider uses.
type Factory interface {
	Type() string
	New(name string, rawConfig map[string]interface{}) (QueryEngine, error)
}
