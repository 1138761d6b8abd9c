package queryengine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// QueryType classifies a parsed query for the OPTIMIZE stage's rule
// selection. The staged engine infers it heuristically from the parsed
// shape; it is never supplied by the caller.
type QueryType string

const (
	QueryTypeSimpleSelect QueryType = "SIMPLE_SELECT"
	QueryTypeComplexJoin  QueryType = "COMPLEX_JOIN"
	QueryTypeAggregate    QueryType = "AGGREGATE"
	QueryTypeUnknown      QueryType = "UNKNOWN"
)

// QueryCharacteristics summarizes shape facts the OPTIMIZE stage's rules
// condition on.
type QueryCharacteristics struct {
	TableCount     int
	HasJoin        bool
	HasAggregate   bool
	ParameterCount int
}

// OptimizationContext is handed to every Rule alongside the plan, carrying
// the classification the CONVERT stage produced.
type OptimizationContext struct {
	QueryType       QueryType
	Characteristics QueryCharacteristics
}

// ParsedQuery is the PARSE stage's output: the raw query text plus the
// parameter bindings referenced within it.
type ParsedQuery struct {
	Raw        string
	Parameters map[string]interface{}
	Tables     []string
}

// ValidatedQuery is the VALIDATE stage's output: a ParsedQuery whose
// referenced tables are all confirmed present in the SchemaManager.
type ValidatedQuery struct {
	ParsedQuery
}

// LogicalPlan is the CONVERT stage's output.
type LogicalPlan struct {
	Query           ValidatedQuery
	Characteristics QueryCharacteristics
	Type            QueryType
}

// PhysicalPlan is the OPTIMIZE stage's output, the shape EXECUTE consumes.
type PhysicalPlan struct {
	Logical      LogicalPlan
	SourceName   string
	AppliedRules []string
}

// SQLText returns the text EXECUTE hands to the bound SourceProvider.
func (p *PhysicalPlan) SQLText() string { return p.Logical.Query.Raw }

// explainPlan renders a PhysicalPlan as the human-readable string
// QueryEngine.Explain returns: query type, source, and applied rules.
func explainPlan(p *PhysicalPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type=%s source=%s tables=%d join=%t aggregate=%t",
		p.Logical.Type, p.SourceName, p.Logical.Characteristics.TableCount,
		p.Logical.Characteristics.HasJoin, p.Logical.Characteristics.HasAggregate)
	if len(p.AppliedRules) > 0 {
		b.WriteString(" rules=[")
		b.WriteString(strings.Join(p.AppliedRules, ","))
		b.WriteString("]")
	}
	return b.String()
}

// Rule is one optimization transform. It reports whether it changed the
// plan so the OPTIMIZE loop knows whether to keep iterating.
type Rule interface {
	Name() string
	Apply(ctx OptimizationContext, plan *PhysicalPlan) (changed bool, err error)
}

var fromTablePattern = regexp.MustCompile(`(?i)\bfrom\s+([a-zA-Z_][a-zA-Z0-9_\.]*)`)
var joinPattern = regexp.MustCompile(`(?i)\bjoin\b`)
var aggregatePattern = regexp.MustCompile(`(?i)\b(count|sum|avg|min|max)\s*\(`)

// parse extracts table references and a coarse shape classification from
// raw query text. It is intentionally not a general SQL grammar: the
// staged engine only needs enough structure to drive schema validation and
// rule selection, not to re-derive a full AST.
func parse(raw string, parameters map[string]interface{}) ParsedQuery {
	var tables []string
	seen := make(map[string]bool)
	for _, m := range fromTablePattern.FindAllStringSubmatch(raw, -1) {
		t := strings.TrimSpace(m[1])
		if !seen[t] {
			seen[t] = true
			tables = append(tables, t)
		}
	}
	return ParsedQuery{Raw: raw, Parameters: parameters, Tables: tables}
}

func classify(q ParsedQuery) (QueryType, QueryCharacteristics) {
	chars := QueryCharacteristics{
		TableCount:     len(q.Tables),
		HasJoin:        joinPattern.MatchString(q.Raw),
		HasAggregate:   aggregatePattern.MatchString(q.Raw),
		ParameterCount: len(q.Parameters),
	}
	switch {
	case chars.HasAggregate:
		return QueryTypeAggregate, chars
	case chars.HasJoin || chars.TableCount > 1:
		return QueryTypeComplexJoin, chars
	case chars.TableCount == 1:
		return QueryTypeSimpleSelect, chars
	default:
		return QueryTypeUnknown, chars
	}
}

// cacheKey returns the PLAN cache key for a given query, stable across
// calls with identical text and parameter set.
func cacheKey(raw string, parameters map[string]interface{}) string {
	keys := make([]string, 0, len(parameters))
	for k := range parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(raw)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, parameters[k])
	}
	return b.String()
}
