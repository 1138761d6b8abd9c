package stdsteps

import "github.com/cheshire-mcp/cheshire/internal/pipeline"

// Paginate is a PostProcessor that slices a []map[string]interface{}-shaped
// output (the canonical row-mapping shape queryengine.Result.Rows renders
// into) down to a page, reading "limit"/"offset" from the pipeline
// Context's Attributes (set by an upstream pre-processor from request
// parameters).
type Paginate struct {
	StepName        string
	DefaultLimit    int
	LimitAttrKey    string
	OffsetAttrKey   string
}

func (p *Paginate) Name() string {
	if p.StepName != "" {
		return p.StepName
	}
	return "paginate"
}

func (p *Paginate) Process(ctx *pipeline.Context, output pipeline.Output) (pipeline.Output, error) {
	rows, ok := output.([]map[string]interface{})
	if !ok {
		return output, nil
	}

	limit := p.DefaultLimit
	if limit <= 0 {
		limit = len(rows)
	}
	offset := 0
	if key := p.LimitAttrKey; key != "" {
		if v, ok := ctx.Attributes().Get(key); ok {
			if n, ok := toInt(v); ok {
				limit = n
			}
		}
	}
	if key := p.OffsetAttrKey; key != "" {
		if v, ok := ctx.Attributes().Get(key); ok {
			if n, ok := toInt(v); ok {
				offset = n
			}
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []map[string]interface{}{}, nil
	}
	end := offset + limit
	if end > len(rows) || limit < 0 {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// ProjectFields is a PostProcessor that narrows each row of a
// []map[string]interface{} output down to a fixed set of fields, dropping
// the rest — a common REST/MCP response-shaping concern.
type ProjectFields struct {
	StepName string
	Fields   []string
}

func (p *ProjectFields) Name() string {
	if p.StepName != "" {
		return p.StepName
	}
	return "project-fields"
}

func (p *ProjectFields) Process(ctx *pipeline.Context, output pipeline.Output) (pipeline.Output, error) {
	rows, ok := output.([]map[string]interface{})
	if !ok {
		return output, nil
	}
	projected := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		narrow := make(map[string]interface{}, len(p.Fields))
		for _, f := range p.Fields {
			if v, ok := row[f]; ok {
				narrow[f] = v
			}
		}
		projected[i] = narrow
	}
	return projected, nil
}
