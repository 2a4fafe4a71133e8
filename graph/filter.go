package graph

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Filter evaluates a CEL expression against every resolved entity in the
// snapshot and returns the ones for which it holds. The expression sees a
// single variable, entity, with the fields:
//
//	entity.id          string
//	entity.name        string
//	entity.type        string ("person" | "company")
//	entity.confidence  double
//	entity.providers   list of string
//	entity.attributes  map of string to dyn
//
// Example:
//
//	matched, err := snap.Filter(`entity.type == "company" && "harmonic" in entity.providers`)
//
// Filter is a convenience for callers that receive a snapshot with an
// answer and want to trim it deterministically before rendering it.
func (s *Snapshot) Filter(expr string) ([]ResolvedEntity, error) {
	prg, err := compileFilter(expr)
	if err != nil {
		return nil, err
	}

	var out []ResolvedEntity
	for _, e := range s.Entities {
		ok, err := evalFilter(prg, e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func compileFilter(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("entity", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("plan filter %q: %w", expr, err)
	}
	return prg, nil
}

func evalFilter(prg cel.Program, e ResolvedEntity) (bool, error) {
	providers := make([]any, len(e.Providers))
	for i, p := range e.Providers {
		providers[i] = p
	}

	attrs := e.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}

	val, _, err := prg.Eval(map[string]any{
		"entity": map[string]any{
			"id":         e.ID,
			"name":       e.Name,
			"type":       string(e.Type),
			"confidence": e.Confidence,
			"providers":  providers,
			"attributes": attrs,
		},
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}

	ok, isBool := val.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("filter returned %T, want bool", val.Value())
	}
	return ok, nil
}
