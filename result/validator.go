package result

import (
	"fmt"

	"github.com/springbank-ai/netagent/graph"
)

// Quality grades how much a tool result contributes to the evidence set.
type Quality string

const (
	// QualityFull means every record passed validation.
	QualityFull Quality = "full"

	// QualityPartial means some records were dropped or the result
	// was truncated, but usable data remains.
	QualityPartial Quality = "partial"

	// QualityEmpty means the call succeeded but yielded nothing.
	QualityEmpty Quality = "empty"
)

// Validated wraps a tool result with its quality grade and the sanitized
// record set that survived validation. Only the sanitized records are fed
// to the aggregator.
type Validated struct {
	Result        *ToolResult          `json:"result"`
	Quality       Quality              `json:"quality"`
	Entities      []graph.Entity       `json:"entities,omitempty"`
	Relationships []graph.Relationship `json:"relationships,omitempty"`
	Warnings      []string             `json:"warnings,omitempty"`
}

// Rule inspects a sanitized result and may downgrade its quality.
// It returns the quality it observed and any warnings.
type Rule func(v *Validated) (Quality, []string)

// Validator checks tool results record by record. Malformed records are
// dropped with a warning rather than failing the step: one bad row from
// a provider should not discard the rows around it.
type Validator struct {
	rules []Rule
}

// NewValidator creates a validator with the default rule set.
func NewValidator() *Validator {
	return &Validator{
		rules: []Rule{checkTruncation},
	}
}

// WithRules appends custom rules and returns the validator for chaining.
func (v *Validator) WithRules(rules ...Rule) *Validator {
	v.rules = append(v.rules, rules...)
	return v
}

// Validate sanitizes the result's records and grades the outcome.
func (v *Validator) Validate(r *ToolResult) *Validated {
	out := &Validated{
		Result:  r,
		Quality: QualityFull,
	}

	dropped := 0
	seen := make(map[string]bool, len(r.Entities))
	for _, e := range r.Entities {
		if err := e.Validate(); err != nil {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("dropped entity %q from %s: %v", e.Name, r.Provider, err))
			dropped++
			continue
		}
		seen[e.Key()] = true
		out.Entities = append(out.Entities, e)
	}

	for _, rel := range r.Relationships {
		if err := rel.Validate(); err != nil {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("dropped relationship %s->%s from %s: %v",
					rel.SourceID, rel.TargetID, r.Provider, err))
			dropped++
			continue
		}
		out.Relationships = append(out.Relationships, rel)
	}

	switch {
	case len(out.Entities) == 0 && len(out.Relationships) == 0:
		out.Quality = QualityEmpty
		if dropped > 0 {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("all %d records from %s failed validation", dropped, r.Provider))
		}
	case dropped > 0:
		out.Quality = QualityPartial
	}

	for _, rule := range v.rules {
		quality, warnings := rule(out)
		if rank(quality) < rank(out.Quality) {
			out.Quality = quality
		}
		out.Warnings = append(out.Warnings, warnings...)
	}

	return out
}

func rank(q Quality) int {
	switch q {
	case QualityFull:
		return 2
	case QualityPartial:
		return 1
	default:
		return 0
	}
}

// checkTruncation downgrades results the adapter could not fetch in full.
func checkTruncation(v *Validated) (Quality, []string) {
	if !v.Result.Truncated {
		return QualityFull, nil
	}
	if v.Quality == QualityEmpty {
		return QualityEmpty, nil
	}
	return QualityPartial, []string{
		fmt.Sprintf("%s returned more pages than the %s adapter ceiling allows",
			v.Result.Tool, v.Result.Provider),
	}
}
