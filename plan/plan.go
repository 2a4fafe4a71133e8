// Package plan turns a user question into an executable DAG of tool
// invocations. The planning oracle proposes steps; this package
// validates them against the closed tool catalog, rejects cycles, and
// tracks step state through execution.
package plan

import (
	"fmt"

	"github.com/springbank-ai/netagent/toolerr"
)

// Status tracks a step through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Skip reasons surfaced in partial answers.
const (
	ReasonUnknownTool      = "unknown_tool"
	ReasonDependencyFailed = "dependency_failed"
	ReasonBudgetExhausted  = "budget_exhausted"
)

// Step is one intended tool invocation.
type Step struct {
	// ID names the step for dependency references ("step1", "step2", ...).
	ID string `json:"id"`

	// Tool is the catalog name the step invokes.
	Tool string `json:"tool"`

	// Parameters are the arguments the oracle chose. String values may
	// reference earlier outputs as "$stepN.field".
	Parameters map[string]any `json:"parameters"`

	// DependsOn lists step IDs whose results this step needs.
	DependsOn []string `json:"depends_on,omitempty"`

	// Status is the step's execution state.
	Status Status `json:"status"`

	// Reason records why a step was skipped or failed.
	Reason string `json:"reason,omitempty"`

	// Replanned marks a step produced by re-planning; such steps are
	// never re-planned again.
	Replanned bool `json:"replanned,omitempty"`
}

// Plan is the ordered set of steps for one query.
type Plan struct {
	Steps []*Step `json:"steps"`
}

// StepByID looks a step up by its ID.
func (p *Plan) StepByID(id string) (*Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Validate checks dependency references and rejects cycles. A plan
// that fails validation must not execute at all.
func (p *Plan) Validate() error {
	index := make(map[string]*Step, len(p.Steps))
	for _, s := range p.Steps {
		if _, dup := index[s.ID]; dup {
			return planningError(fmt.Sprintf("duplicate step id %q", s.ID))
		}
		index[s.ID] = s
	}

	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := index[dep]; !ok {
				return planningError(fmt.Sprintf("step %s depends on unknown step %q", s.ID, dep))
			}
			if dep == s.ID {
				return planningError(fmt.Sprintf("step %s depends on itself", s.ID))
			}
		}
	}

	if _, err := p.topoOrder(); err != nil {
		return err
	}
	return nil
}

// topoOrder returns the steps in a dependency-respecting order, or a
// planning error when the graph has a cycle.
func (p *Plan) topoOrder() ([]*Step, error) {
	indegree := make(map[string]int, len(p.Steps))
	dependents := make(map[string][]*Step, len(p.Steps))
	for _, s := range p.Steps {
		indegree[s.ID] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s)
		}
	}

	// Queue seeds preserve plan order so execution stays deterministic.
	var queue []*Step
	for _, s := range p.Steps {
		if indegree[s.ID] == 0 {
			queue = append(queue, s)
		}
	}

	var order []*Step
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		order = append(order, s)
		for _, d := range dependents[s.ID] {
			indegree[d.ID]--
			if indegree[d.ID] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) != len(p.Steps) {
		return nil, planningError("dependency cycle in plan")
	}
	return order, nil
}

// Ready returns the pending steps whose dependencies have all
// succeeded. Steps whose dependencies terminally failed or were
// skipped are marked skipped as a side effect, cascading through the
// graph on subsequent calls.
func (p *Plan) Ready() []*Step {
	var ready []*Step
	for _, s := range p.Steps {
		if s.Status != StatusPending {
			continue
		}

		blocked := false
		dead := false
		for _, dep := range s.DependsOn {
			d, ok := p.StepByID(dep)
			if !ok {
				dead = true
				break
			}
			switch d.Status {
			case StatusSucceeded:
			case StatusFailed, StatusSkipped:
				dead = true
			default:
				blocked = true
			}
		}

		switch {
		case dead:
			s.Status = StatusSkipped
			s.Reason = ReasonDependencyFailed
		case !blocked:
			ready = append(ready, s)
		}
	}
	return ready
}

// Done reports whether every step is in a terminal state.
func (p *Plan) Done() bool {
	for _, s := range p.Steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

// Succeeded counts steps that completed successfully.
func (p *Plan) Succeeded() int {
	n := 0
	for _, s := range p.Steps {
		if s.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Append renumbers other's steps to continue this plan's numbering and
// adds them. Internal dependency references, including "$stepN.field"
// parameter values, are remapped to the new IDs. References into the
// existing plan are impossible from a fresh oracle reply, so only
// other-internal IDs are rewritten.
func (p *Plan) Append(other *Plan) error {
	base := len(p.Steps)
	remap := make(map[string]string, len(other.Steps))
	for i, s := range other.Steps {
		remap[s.ID] = fmt.Sprintf("step%d", base+i+1)
	}

	for _, s := range other.Steps {
		ns := &Step{
			ID:         remap[s.ID],
			Tool:       s.Tool,
			Parameters: remapParams(s.Parameters, remap),
			Status:     s.Status,
			Reason:     s.Reason,
			Replanned:  s.Replanned,
		}
		for _, dep := range s.DependsOn {
			nd, ok := remap[dep]
			if !ok {
				return planningError(fmt.Sprintf("appended step %s depends on unknown step %q", s.ID, dep))
			}
			ns.DependsOn = append(ns.DependsOn, nd)
		}
		p.Steps = append(p.Steps, ns)
	}
	return p.Validate()
}

func remapParams(params map[string]any, remap map[string]string) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			if m := refPattern.FindStringSubmatch(s); m != nil {
				if nid, ok := remap[m[1]]; ok {
					out[k] = "$" + nid + "." + m[2]
					continue
				}
			}
		}
		out[k] = v
	}
	return out
}

func planningError(msg string) error {
	return toolerr.New("", "plan", toolerr.ErrCodePlanning, msg)
}
