package queryengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/sourceprovider"
)

// RuleSetSelector picks the rule chain to run for a given classification.
// A staged engine is built with one selector; it is free to return the
// same chain for every QueryType or vary it.
type RuleSetSelector func(OptimizationContext) []Rule

// maxOptimizationIterations bounds the OPTIMIZE loop. A rule chain that
// still reports "changed" after this many passes is diverging rather than
// converging, and Execute fails with OptimizationDivergedError instead of
// looping forever.
const maxOptimizationIterations = 32

// EngineConfig is the staged engine's construction-time configuration:
// which sources it may route to, the static table schema VALIDATE checks
// against, its plan cache sizing, and its optimization rule selector.
type EngineConfig struct {
	Schema        map[string][]string
	Sources       map[string]sourceprovider.Provider
	DefaultSource string
	RuleSelector  RuleSetSelector
	CacheSize     int
	CacheTTL      time.Duration
}

// StagedEngine implements QueryEngine by running the fixed
// PARSE/VALIDATE/CONVERT/OPTIMIZE/EXECUTE/TRANSFORM pipeline over every
// call to Execute, following the layered service/cache shape common to
// multi-stage request-processing engines: a plan cache in front of a
// bounded optimization loop, with sources resolved by name at execute time.
type StagedEngine struct {
	name   string
	schema *SchemaManager
	cache  *planCache

	mu      sync.RWMutex
	sources map[string]sourceprovider.Provider
	defSrc  string
	rules   RuleSetSelector

	open atomic.Bool
}

// NewStagedEngine builds a StagedEngine that is not yet open.
func NewStagedEngine(name string, cfg EngineConfig) *StagedEngine {
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	selector := cfg.RuleSelector
	if selector == nil {
		selector = DefaultRuleSet
	}
	sources := make(map[string]sourceprovider.Provider, len(cfg.Sources))
	for k, v := range cfg.Sources {
		sources[k] = v
	}
	return &StagedEngine{
		name:    name,
		schema:  NewSchemaManager(cfg.Schema),
		cache:   newPlanCache(cacheSize, ttl),
		sources: sources,
		defSrc:  cfg.DefaultSource,
		rules:   selector,
	}
}

func (e *StagedEngine) Name() string { return e.name }

// Open is idempotent: calling it again on an already-open engine is a
// no-op success, never a failure or duplicated state.
func (e *StagedEngine) Open(ctx *Context) error {
	e.open.Store(true)
	return nil
}

func (e *StagedEngine) IsOpen() bool { return e.open.Load() }

// Close is idempotent and always safe to call, including on an engine
// that was never opened.
func (e *StagedEngine) Close(ctx *Context) error {
	e.open.Store(false)
	e.cache.purge()
	return nil
}

// Execute runs query through PARSE, VALIDATE, CONVERT, OPTIMIZE, EXECUTE
// and TRANSFORM in that fixed order, failing closed at the first stage
// that errors.
func (e *StagedEngine) Execute(ctx *Context, query LogicalQuery) (*Result, error) {
	if !e.IsOpen() {
		return nil, &InitializationError{EngineName: e.name, ErrorCode: "not_open", Message: "engine has not been opened"}
	}

	var parsed ParsedQuery
	if err := runStage(e.name, stageParse, func() error {
		parsed = parse(query.Body, query.Parameters)
		return nil
	}); err != nil {
		return nil, &ExecutionError{EngineName: e.name, Stage: string(stageParse), ErrorCode: "parse_failed", Message: err.Error(), FailedQuery: &query, Cause: err}
	}

	var validated ValidatedQuery
	if err := runStage(e.name, stageValidate, func() error {
		v, err := e.validate(parsed)
		if err != nil {
			return err
		}
		validated = v
		return nil
	}); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			return nil, ve
		}
		return nil, &ExecutionError{EngineName: e.name, Stage: string(stageValidate), ErrorCode: "validate_failed", Message: err.Error(), FailedQuery: &query, Cause: err}
	}

	var logical LogicalPlan
	if err := runStage(e.name, stageConvert, func() error {
		logical = convert(validated)
		return nil
	}); err != nil {
		return nil, &ExecutionError{EngineName: e.name, Stage: string(stageConvert), ErrorCode: "convert_failed", Message: err.Error(), FailedQuery: &query, Cause: err}
	}

	var physical *PhysicalPlan
	if err := runStage(e.name, stageOptimize, func() error {
		key := cacheKey(query.Body, query.Parameters)
		plan, err := e.cache.getOrBuild(key, func() (*PhysicalPlan, error) {
			return e.optimize(logical)
		})
		if err != nil {
			return err
		}
		physical = plan
		return nil
	}); err != nil {
		if de, ok := err.(*OptimizationDivergedError); ok {
			return nil, de
		}
		return nil, &ExecutionError{EngineName: e.name, Stage: string(stageOptimize), ErrorCode: "optimize_failed", Message: err.Error(), FailedQuery: &query, Cause: err}
	}

	var rowset *sourceprovider.Rowset
	if err := runStage(e.name, stageExecute, func() error {
		if ctx != nil && ctx.DeadlineExceeded(time.Now()) {
			return &TimeoutError{
				ExecutionError: ExecutionError{EngineName: e.name, Stage: string(stageExecute), ErrorCode: "deadline_exceeded", Message: "deadline already passed before execute", FailedQuery: &query},
			}
		}
		rs, err := e.runPhysicalPlan(ctx, physical, query)
		if err != nil {
			return err
		}
		rowset = rs
		return nil
	}); err != nil {
		if te, ok := err.(*TimeoutError); ok {
			return nil, te
		}
		return nil, &ExecutionError{EngineName: e.name, Stage: string(stageExecute), ErrorCode: "execute_failed", Message: err.Error(), FailedQuery: &query, Cause: err}
	}

	var result *Result
	if err := runStage(e.name, stageTransform, func() error {
		result = transform(rowset)
		return nil
	}); err != nil {
		return nil, &ExecutionError{EngineName: e.name, Stage: string(stageTransform), ErrorCode: "transform_failed", Message: err.Error(), FailedQuery: &query, Cause: err}
	}

	return result, nil
}

// Validate runs PARSE and VALIDATE and reports whether query would be
// accepted, without running CONVERT, OPTIMIZE, or EXECUTE. It fails with
// InitializationError if the engine is not open.
func (e *StagedEngine) Validate(ctx *Context, query LogicalQuery) (bool, error) {
	if !e.IsOpen() {
		return false, &InitializationError{EngineName: e.name, ErrorCode: "not_open", Message: "engine has not been opened"}
	}
	parsed := parse(query.Body, query.Parameters)
	if _, err := e.validate(parsed); err != nil {
		if _, ok := err.(*ValidationError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Explain runs PARSE, VALIDATE, CONVERT, and OPTIMIZE and renders the
// resulting physical plan, without EXECUTE. It fails with
// InitializationError if the engine is not open.
func (e *StagedEngine) Explain(ctx *Context, query LogicalQuery) (string, error) {
	if !e.IsOpen() {
		return "", &InitializationError{EngineName: e.name, ErrorCode: "not_open", Message: "engine has not been opened"}
	}

	parsed := parse(query.Body, query.Parameters)
	validated, err := e.validate(parsed)
	if err != nil {
		return "", err
	}
	logical := convert(validated)
	key := cacheKey(query.Body, query.Parameters)
	physical, err := e.cache.getOrBuild(key, func() (*PhysicalPlan, error) {
		return e.optimize(logical)
	})
	if err != nil {
		return "", err
	}
	return explainPlan(physical), nil
}

// SupportsStreaming reports whether Execute can return partial Results
// before the full rowset is materialized. The staged engine always fully
// materializes its Result, so this is always false.
func (e *StagedEngine) SupportsStreaming() bool { return false }

func (e *StagedEngine) validate(p ParsedQuery) (ValidatedQuery, error) {
	var fieldErrs []FieldError
	for _, t := range p.Tables {
		if !e.schema.HasTable(t) {
			fieldErrs = append(fieldErrs, FieldError{Field: "table:" + t, Message: "unknown table", Code: "unknown_table"})
		}
	}
	if len(fieldErrs) > 0 {
		return ValidatedQuery{}, &ValidationError{EngineName: e.name, Stage: string(stageValidate), Errors: fieldErrs}
	}
	return ValidatedQuery{ParsedQuery: p}, nil
}

func convert(v ValidatedQuery) LogicalPlan {
	qtype, chars := classify(v.ParsedQuery)
	return LogicalPlan{Query: v, Characteristics: chars, Type: qtype}
}

func (e *StagedEngine) optimize(logical LogicalPlan) (*PhysicalPlan, error) {
	e.mu.RLock()
	defSrc := e.defSrc
	e.mu.RUnlock()

	plan := &PhysicalPlan{Logical: logical, SourceName: defSrc}
	optCtx := OptimizationContext{QueryType: logical.Type, Characteristics: logical.Characteristics}
	rules := e.rules(optCtx)

	trace := make([]string, 0, 4)
	for i := 0; i < maxOptimizationIterations; i++ {
		anyChanged := false
		for _, rule := range rules {
			changed, err := rule.Apply(optCtx, plan)
			if err != nil {
				return nil, err
			}
			if changed {
				anyChanged = true
				trace = append(trace, rule.Name())
				plan.AppliedRules = append(plan.AppliedRules, rule.Name())
			}
		}
		if !anyChanged {
			return plan, nil
		}
	}
	return nil, &OptimizationDivergedError{EngineName: e.name, Iterations: maxOptimizationIterations, RuleTrace: trace}
}

func (e *StagedEngine) runPhysicalPlan(ctx *Context, plan *PhysicalPlan, query LogicalQuery) (*sourceprovider.Rowset, error) {
	e.mu.RLock()
	provider, ok := e.sources[plan.SourceName]
	e.mu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{EngineName: e.name, ErrorCode: "unknown_source", Message: "no source bound for name " + plan.SourceName}
	}

	goCtx := context.Background()
	if ctx != nil && ctx.Go != nil {
		goCtx = ctx.Go
	}

	args := make([]interface{}, 0, len(query.Parameters))
	for _, v := range query.Parameters {
		args = append(args, v)
	}
	return provider.Execute(goCtx, sourceprovider.SourceQuery{Body: plan.SQLText(), Args: args})
}

func transform(rs *sourceprovider.Rowset) *Result {
	if rs == nil {
		return NewResult(nil, nil)
	}
	columns := make([]Column, len(rs.Columns))
	for i, c := range rs.Columns {
		columns[i] = Column{Name: c}
	}
	rows := make([]map[string]interface{}, len(rs.Rows))
	for i, r := range rs.Rows {
		rows[i] = map[string]interface{}(r)
	}
	return NewResult(columns, rows)
}
