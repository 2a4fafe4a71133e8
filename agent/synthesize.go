package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/springbank-ai/netagent/graph"
	"github.com/springbank-ai/netagent/llm"
)

const outOfScopeAnswer = "This question is outside what the relationship network can answer. " +
	"Ask about people, companies, investors, or the connections between them."

const noDataAnswer = "No data relevant to the question was found in the network."

const synthesisSystemPrompt = `You are a research analyst answering questions about a venture relationship network.

You will receive a question and an evidence snapshot in JSON. The snapshot holds resolved entities (people, companies, investors) and the relationships between them, each tagged with the data providers that reported it.

Rules:
- Ground every claim strictly in the snapshot. Never add facts from outside it.
- Attribute data points to their providers, e.g. "according to affinity" or "per harmonic".
- When providers disagree, say so and present both values.
- If the snapshot only partially covers the question, answer what it covers and say what is missing.
- Answer in plain prose. No markdown headings.`

// synthesize turns the aggregated snapshot into the final answer. The
// oracle is consulted only when there is evidence to ground it in; the
// degenerate cases get fixed answers so a failing oracle can never
// invent content.
func (a *Agent) synthesize(ctx context.Context, sess *session) (*Answer, error) {
	snap := sess.agg.Snapshot()
	if snap.DroppedRelationships > 0 {
		sess.addWarnings([]string{fmt.Sprintf(
			"%d relationship(s) referenced entities missing from the evidence and were dropped",
			snap.DroppedRelationships)})
	}
	attempted, failed, skipped := sess.tally()

	answer := &Answer{
		Attempted: attempted,
		Failed:    failed,
		Skipped:   skipped,
		Snapshot:  snap,
	}

	aborted := sess.state == StateAborted

	if len(attempted) > 0 && len(attempted) == len(failed) {
		sess.state = StateDone
		return nil, fmt.Errorf("agent: every step failed: %s", strings.Join(failed, "; "))
	}

	if len(snap.Entities) == 0 {
		answer.Text = noDataAnswer
		answer.Completeness = Empty
		answer.Usage = sess.usage
		finishState(sess, aborted)
		return answer, nil
	}

	answer.Completeness = completeness(failed, skipped, sess.warnings, aborted)

	sess.state = StateSynthesizing
	text, err := a.compose(ctx, sess, snap)
	if err != nil {
		// Data was gathered; degrade to an evidence listing instead of
		// failing the session.
		a.logger.Warn("synthesis failed, falling back to evidence listing",
			"session", sess.id, "error", err)
		answer.Text = evidenceListing(snap)
		if answer.Completeness == Complete {
			answer.Completeness = Partial
		}
	} else {
		answer.Text = text
	}

	answer.Usage = sess.usage
	finishState(sess, aborted)
	return answer, nil
}

func finishState(sess *session, aborted bool) {
	if aborted {
		sess.state = StateAborted
		return
	}
	sess.state = StateDone
}

func completeness(failed, skipped, warnings []string, aborted bool) Completeness {
	if aborted || len(failed) > 0 || len(skipped) > 0 || len(warnings) > 0 {
		return Partial
	}
	return Complete
}

func (a *Agent) compose(ctx context.Context, sess *session, snap *graph.Snapshot) (string, error) {
	evidence, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	prompt := fmt.Sprintf("Question: %s\n\nEvidence snapshot:\n%s", sess.question, evidence)
	_, failed, skipped := sess.tally()
	if len(failed)+len(skipped) > 0 {
		prompt += fmt.Sprintf(
			"\n\nCoverage gaps: failed lookups %v, skipped lookups %v. Mention that the answer may be incomplete.",
			failed, skipped)
	}

	req := llm.NewCompletionRequest([]llm.Message{
		llm.SystemMessage(synthesisSystemPrompt),
		llm.UserMessage(prompt),
	})

	ctx, span := a.tracer.Start(ctx, "agent.synthesize")
	defer span.End()

	var resp *llm.CompletionResponse
	_, err = a.exec.Do(ctx, "synthesize", func(ctx context.Context) error {
		var cerr error
		resp, cerr = sess.oracle.Complete(ctx, req)
		return cerr
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// evidenceListing renders the snapshot as plain prose when the oracle
// cannot be reached. It is grounded by construction.
func evidenceListing(snap *graph.Snapshot) string {
	var b strings.Builder
	b.WriteString("The question could not be fully answered, but the following was found:\n")

	entities := make([]graph.ResolvedEntity, len(snap.Entities))
	copy(entities, snap.Entities)
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })

	for _, e := range entities {
		fmt.Fprintf(&b, "- %s (%s; reported by %s)\n",
			e.Name, e.Type, strings.Join(e.Providers, ", "))
	}
	if n := len(snap.Relationships); n > 0 {
		fmt.Fprintf(&b, "Plus %d relationship(s) between them.", n)
	}
	return strings.TrimSpace(b.String())
}
