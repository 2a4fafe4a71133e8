package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/springbank-ai/netagent/result"
)

// refPattern matches output references of the form "$step3.entity_id".
var refPattern = regexp.MustCompile(`^\$(step\d+)\.([a-zA-Z_][a-zA-Z0-9_]*)$`)

// referencedSteps returns the step IDs a parameter map refers to, so
// references imply dependencies even when the oracle omits depends_on.
func referencedSteps(params map[string]any) []string {
	var ids []string
	seen := map[string]bool{}
	for _, v := range params {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if m := refPattern.FindStringSubmatch(s); m != nil && !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}

// Outputs derives the referenceable fields from a completed step's
// result. The oracle is told about these names in the planning prompt.
func Outputs(res *result.ToolResult) map[string]any {
	out := map[string]any{}
	if res == nil {
		return out
	}

	if len(res.Entities) > 0 {
		out["entity_id"] = res.Entities[0].ID
		out["entity_name"] = res.Entities[0].Name

		ids := make([]any, len(res.Entities))
		for i, e := range res.Entities {
			ids[i] = e.ID
		}
		out["entity_ids"] = ids
	}
	out["entity_count"] = len(res.Entities)
	out["relationship_count"] = len(res.Relationships)
	return out
}

// ResolveParams substitutes "$stepN.field" string values with the
// referenced step outputs. A reference to a step or field that has no
// output is a planning error; the caller fails the step rather than
// sending a literal placeholder upstream.
func ResolveParams(params map[string]any, outputs map[string]map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(params))
	for k, v := range params {
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(s, "$step") {
			resolved[k] = v
			continue
		}

		m := refPattern.FindStringSubmatch(s)
		if m == nil {
			return nil, planningError(fmt.Sprintf("malformed output reference %q", s))
		}
		stepOut, ok := outputs[m[1]]
		if !ok {
			return nil, planningError(fmt.Sprintf("reference %q points at a step with no output", s))
		}
		val, ok := stepOut[m[2]]
		if !ok {
			return nil, planningError(fmt.Sprintf("step %s produced no field %q", m[1], m[2]))
		}
		resolved[k] = val
	}
	return resolved, nil
}
