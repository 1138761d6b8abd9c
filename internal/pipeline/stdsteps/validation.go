// Package stdsteps provides ready-made pipeline steps: struct-tag
// validation (go-playground/validator), JWT principal propagation
// (golang-jwt/jwt/v5), and simple output shaping. PreProcessor and
// PostProcessor are deliberately shape-only contracts with no built-in
// instances; these are the concrete instances a real deployment registers.
package stdsteps

import (
	"fmt"

	"github.com/cheshire-mcp/cheshire/internal/pipeline"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// StructValidator is a PreProcessor that requires the pipeline Input to be
// (or be convertible via a caller-supplied adapter to) a struct pointer
// tagged with `validate:"..."` rules, and rejects it with a
// pipeline.ValidationErrors listing every failing field (or a single
// pipeline.ValidationError when the input cannot be adapted or validated
// at all).
type StructValidator struct {
	StepName string
	// Adapt converts the generic Input into the struct pointer to
	// validate. If nil, Input is used as-is.
	Adapt func(pipeline.Input) (interface{}, error)
}

func (v *StructValidator) Name() string {
	if v.StepName != "" {
		return v.StepName
	}
	return "struct-validator"
}

func (v *StructValidator) Process(ctx *pipeline.Context, input pipeline.Input) (pipeline.Input, error) {
	target := input
	if v.Adapt != nil {
		adapted, err := v.Adapt(input)
		if err != nil {
			return nil, &pipeline.ValidationError{Field: "input", Message: err.Error(), Code: "adapt_failed"}
		}
		target = adapted
	}

	if err := validate.Struct(target); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			agg := &pipeline.ValidationErrors{}
			for _, fe := range verrs {
				agg.Errors = append(agg.Errors, &pipeline.ValidationError{
					Field:   fe.Field(),
					Message: fmt.Sprintf("failed %q validation", fe.Tag()),
					Code:    fe.Tag(),
				})
			}
			return nil, agg
		}
		return nil, &pipeline.ValidationError{Field: "input", Message: err.Error(), Code: "invalid"}
	}
	return input, nil
}

// RequiredParams is a lightweight PreProcessor for map-shaped payloads that
// rejects the request unless every named parameter is present, raising a
// validation error naming each missing one.
type RequiredParams struct {
	StepName string
	Params   []string
}

func (r *RequiredParams) Name() string {
	if r.StepName != "" {
		return r.StepName
	}
	return "required-params"
}

func (r *RequiredParams) Process(ctx *pipeline.Context, input pipeline.Input) (pipeline.Input, error) {
	m, ok := input.(map[string]interface{})
	if !ok {
		return nil, &pipeline.ValidationError{Field: "input", Message: "expected a parameter map", Code: "wrong_shape"}
	}
	var missing []*pipeline.ValidationError
	for _, name := range r.Params {
		if v, present := m[name]; !present || v == nil {
			missing = append(missing, &pipeline.ValidationError{Field: name, Message: "is required", Code: "required"})
		}
	}
	if len(missing) == 1 {
		return nil, missing[0]
	}
	if len(missing) > 1 {
		return nil, &pipeline.ValidationErrors{Errors: missing}
	}
	return input, nil
}
