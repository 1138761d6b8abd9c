// Package postgres is a concrete SourceProvider backed by jackc/pgx/v5,
// using the same pooled-connection, context-scoped-query style common to
// pgx-based repository layers.
package postgres

import (
	"context"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/sourceprovider"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the typed configuration surface for a postgres SourceProvider.
type Config struct {
	DSN               string
	MaxConns          int32
	StatementTimeout  time.Duration
}

func (c Config) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"dsn":               c.DSN,
		"maxConns":          c.MaxConns,
		"statementTimeoutMs": c.StatementTimeout.Milliseconds(),
	}
}

// Provider is a pgx-pool-backed SourceProvider. Safe for concurrent
// Execute calls once Open has returned.
type Provider struct {
	name   string
	config Config
	pool   *pgxpool.Pool
}

// Factory builds postgres Providers by name for registration in a
// FactoryRegistry, enabling process-wide discovery by type name.
type Factory struct{}

func (Factory) Type() string { return "postgres" }

func (Factory) New(name string, rawConfig map[string]interface{}) (sourceprovider.Provider, error) {
	dsn, _ := rawConfig["dsn"].(string)
	if dsn == "" {
		return nil, &sourceprovider.ConfigError{SourceName: name, ErrorCode: "missing_dsn", Message: "\"dsn\" is required"}
	}
	maxConns := int32(10)
	if v, ok := rawConfig["maxConns"]; ok {
		if n, ok := toInt32(v); ok {
			maxConns = n
		}
	}
	timeout := 30 * time.Second
	if v, ok := rawConfig["statementTimeoutMs"]; ok {
		if n, ok := toInt32(v); ok {
			timeout = time.Duration(n) * time.Millisecond
		}
	}
	return &Provider{name: name, config: Config{DSN: dsn, MaxConns: maxConns, StatementTimeout: timeout}}, nil
}

func toInt32(v interface{}) (int32, bool) {
	switch n := v.(type) {
	case int:
		return int32(n), true
	case int32:
		return n, true
	case int64:
		return int32(n), true
	case float64:
		return int32(n), true
	default:
		return 0, false
	}
}

func (p *Provider) Name() string                  { return p.name }
func (p *Provider) Config() sourceprovider.Config  { return p.config }

// Open establishes the connection pool. Not idempotent;
// the owning Session serializes open/close calls.
func (p *Provider) Open(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(p.config.DSN)
	if err != nil {
		return &sourceprovider.ConfigError{SourceName: p.name, ErrorCode: "invalid_dsn", Message: err.Error()}
	}
	poolCfg.MaxConns = p.config.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return &sourceprovider.ConnectionError{SourceName: p.name, ErrorCode: "pool_init_failed", Message: err.Error(), Cause: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return &sourceprovider.ConnectionError{SourceName: p.name, ErrorCode: "ping_failed", Message: err.Error(), Cause: err}
	}
	p.pool = pool
	return nil
}

// Execute runs query.Body as SQL with query.Args as positional parameters
// and materializes the full rowset.
func (p *Provider) Execute(ctx context.Context, query sourceprovider.SourceQuery) (*sourceprovider.Rowset, error) {
	if p.pool == nil {
		return nil, &sourceprovider.InitializationError{SourceName: p.name, ErrorCode: "not_open", Message: "provider has not been opened"}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if p.config.StatementTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.config.StatementTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := p.pool.Query(runCtx, query.Body, query.Args...)
	if err != nil {
		if runCtx.Err() != nil {
			return nil, &sourceprovider.TimeoutError{
				ExecutionError: sourceprovider.ExecutionError{
					SourceName: p.name, ErrorCode: "query_timeout", Message: err.Error(),
					FailedQuery: &query, Cause: err, IsRetryable: true,
				},
				Elapsed:    time.Since(start),
				Configured: p.config.StatementTimeout,
			}
		}
		return nil, &sourceprovider.ExecutionError{
			SourceName: p.name, ErrorCode: "query_failed", Message: err.Error(),
			FailedQuery: &query, Cause: err, IsRetryable: false,
		}
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	var result []sourceprovider.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, &sourceprovider.ExecutionError{
				SourceName: p.name, ErrorCode: "row_scan_failed", Message: err.Error(),
				FailedQuery: &query, PartialRows: result, Cause: err, IsRetryable: false,
			}
		}
		row := make(sourceprovider.Row, len(columns))
		for i, col := range columns {
			row[col] = vals[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &sourceprovider.ExecutionError{
			SourceName: p.name, ErrorCode: "row_iteration_failed", Message: err.Error(),
			FailedQuery: &query, PartialRows: result, Cause: err, IsRetryable: false,
		}
	}

	return &sourceprovider.Rowset{Columns: columns, Rows: result}, nil
}

// Close releases the connection pool. Safe to call even if Open never
// succeeded.
func (p *Provider) Close(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	p.pool.Close()
	p.pool = nil
	return nil
}

var _ sourceprovider.Provider = (*Provider)(nil)
