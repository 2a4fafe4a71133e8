package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/springbank-ai/netagent/llm"
	"github.com/springbank-ai/netagent/plan"
	"github.com/springbank-ai/netagent/provider"
	"github.com/springbank-ai/netagent/ratelimit"
	"github.com/springbank-ai/netagent/result"
	"github.com/springbank-ai/netagent/retry"
	"github.com/springbank-ai/netagent/tool"
	"github.com/springbank-ai/netagent/toolerr"
)

// Budget bounds one session.
type Budget struct {
	// MaxToolCalls caps tool invocations (retries of an invocation do
	// not count separately).
	MaxToolCalls int `yaml:"max_tool_calls"`

	// MaxDuration is the session's wall-clock allowance.
	MaxDuration time.Duration `yaml:"max_duration"`

	// ProviderFanOut caps concurrently executing steps per provider.
	ProviderFanOut int `yaml:"provider_fan_out"`
}

// DefaultBudget applies when the caller sets nothing.
var DefaultBudget = Budget{
	MaxToolCalls:   20,
	MaxDuration:    2 * time.Minute,
	ProviderFanOut: 2,
}

func (b Budget) withDefaults() Budget {
	if b.MaxToolCalls <= 0 {
		b.MaxToolCalls = DefaultBudget.MaxToolCalls
	}
	if b.MaxDuration <= 0 {
		b.MaxDuration = DefaultBudget.MaxDuration
	}
	if b.ProviderFanOut <= 0 {
		b.ProviderFanOut = DefaultBudget.ProviderFanOut
	}
	return b
}

// Config assembles an Agent.
type Config struct {
	// Completer is the planning and synthesis oracle.
	Completer llm.Completer

	// Adapters are the provider data sources.
	Adapters []provider.Adapter

	// Budget bounds each session. Zero fields take defaults.
	Budget Budget

	// Limiter shares provider call budgets. Nil gets an in-process
	// limiter with default budgets.
	Limiter ratelimit.Limiter

	// Executor retries tool calls. Nil gets the default schedule.
	Executor *retry.Executor

	// Logger receives structured session logs. Nil uses slog.Default.
	Logger *slog.Logger

	// TracerProvider and MeterProvider wire observability. Nil uses
	// the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Agent answers network questions. It is safe for concurrent use; each
// question runs in its own session.
type Agent struct {
	completer llm.Completer
	registry  *tool.Registry
	providers map[string]string // tool name -> provider
	exec      *retry.Executor
	limiter   ratelimit.Limiter
	validator *result.Validator
	budget    Budget
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics
}

// New builds an agent from the config.
func New(cfg Config) (*Agent, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("agent: completer is required")
	}
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("agent: at least one adapter is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := tool.NewRegistry()
	providers := make(map[string]string)
	for _, a := range cfg.Adapters {
		for _, t := range a.Tools() {
			if err := registry.Register(t); err != nil {
				return nil, fmt.Errorf("agent: %w", err)
			}
			providers[t.Name] = a.Name()
		}
	}

	exec := cfg.Executor
	if exec == nil {
		// The attempt timeout backstops adapters whose handlers do not
		// enforce their own; provider HTTP clients share the bound.
		exec = retry.NewExecutor().
			WithLogger(logger).
			WithAttemptTimeout(provider.DefaultTimeout)
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLocal(nil)
	}

	m, err := newMetrics(cfg.MeterProvider)
	if err != nil {
		return nil, err
	}

	return &Agent{
		completer: cfg.Completer,
		registry:  registry,
		providers: providers,
		exec:      exec,
		limiter:   limiter,
		validator: result.NewValidator(),
		budget:    cfg.Budget.withDefaults(),
		logger:    logger,
		tracer:    newTracer(cfg.TracerProvider),
		metrics:   m,
	}, nil
}

// Ask answers one question. The returned error is non-nil only when
// the session hard-fails: at least one step was attempted and none
// succeeded. Every other degradation is reported in the Answer.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	sess := newSession(question)

	ctx, cancel := context.WithTimeout(ctx, a.budget.MaxDuration)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, "agent.ask",
		trace.WithAttributes(
			attribute.String("session.id", sess.id),
		))
	defer span.End()

	a.logger.Info("session started", "session", sess.id, "question", question)

	answer, err := a.run(ctx, sess)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("answer.completeness", string(answer.Completeness)),
		attribute.Int("tool_calls", sess.callsUsed),
	)
	a.logger.Info("session finished",
		"session", sess.id,
		"state", string(sess.state),
		"completeness", string(answer.Completeness),
		"tool_calls", sess.callsUsed)
	return answer, nil
}

// usageCompleter charges oracle token usage to the session.
type usageCompleter struct {
	inner llm.Completer
	sess  *session
}

func (u *usageCompleter) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := u.inner.Complete(ctx, req)
	if resp != nil {
		u.sess.addUsage(resp.Usage)
	}
	return resp, err
}

func (a *Agent) run(ctx context.Context, sess *session) (*Answer, error) {
	sess.oracle = &usageCompleter{inner: a.completer, sess: sess}
	sess.planner = plan.NewPlanner(sess.oracle).WithLogger(a.logger)

	pl, err := a.plinitial(ctx, sess)
	if err != nil {
		// A failed initial plan attempted nothing; report it as an
		// empty answer rather than a session failure.
		sess.state = StateDone
		return &Answer{
			Text:         fmt.Sprintf("I could not work out how to answer that question: %v", err),
			Completeness: Empty,
			Usage:        sess.usage,
		}, nil
	}
	sess.plan = pl

	if len(pl.Steps) == 0 {
		sess.state = StateDone
		return &Answer{
			Text:         outOfScopeAnswer,
			Completeness: Empty,
			Usage:        sess.usage,
		}, nil
	}

	a.execute(ctx, sess)

	return a.synthesize(ctx, sess)
}

func (a *Agent) plinitial(ctx context.Context, sess *session) (*plan.Plan, error) {
	ctx, span := a.tracer.Start(ctx, "agent.plan")
	defer span.End()

	pl, err := sess.planner.Plan(ctx, sess.question, a.registry.ToolDefs())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("plan.steps", len(pl.Steps)))
	return pl, nil
}

// execute drives Executing/Aggregating rounds until every step is
// terminal or a budget cuts the session short.
func (a *Agent) execute(ctx context.Context, sess *session) {
	sems := make(map[string]chan struct{})
	for _, name := range a.registry.Names() {
		p := a.providers[name]
		if _, ok := sems[p]; !ok {
			sems[p] = make(chan struct{}, a.budget.ProviderFanOut)
		}
	}

	for !sess.plan.Done() {
		if ctx.Err() != nil {
			a.abortPending(sess)
			return
		}

		sess.state = StateExecuting
		ready := sess.plan.Ready()
		if len(ready) == 0 {
			if !sess.plan.Done() {
				// Ready() cascades skips; a second pass drains them.
				continue
			}
			break
		}

		var wg sync.WaitGroup
		var failed []*plan.Step
		var mu sync.Mutex
		for _, step := range ready {
			if !sess.reserveCall(a.budget.MaxToolCalls) {
				step.Status = plan.StatusSkipped
				step.Reason = plan.ReasonBudgetExhausted
				continue
			}

			wg.Add(1)
			step.Status = plan.StatusRunning
			go func(step *plan.Step) {
				defer wg.Done()

				sem := sems[a.providers[step.Tool]]
				sem <- struct{}{}
				defer func() { <-sem }()

				a.runStep(ctx, sess, step)
				if step.Status == plan.StatusFailed {
					mu.Lock()
					failed = append(failed, step)
					mu.Unlock()
				}
			}(step)
		}
		wg.Wait()

		sess.state = StateAggregating
		for _, step := range failed {
			a.maybeReplan(ctx, sess, step)
		}
	}

	if ctx.Err() != nil {
		a.abortPending(sess)
	}
}

// runStep executes one tool invocation through the limiter, retry
// executor, validator, and aggregator.
func (a *Agent) runStep(ctx context.Context, sess *session, step *plan.Step) {
	providerName := a.providers[step.Tool]
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, "agent.step",
		trace.WithAttributes(
			attribute.String("step.id", step.ID),
			attribute.String("step.tool", step.Tool),
			attribute.String("step.provider", providerName),
		))
	defer span.End()

	a.metrics.toolCalls.Add(ctx, 1, stepAttrs(step.Tool, providerName, "dispatched"))

	res, attempts, err := a.invoke(ctx, sess, step)
	if attempts > 1 {
		a.metrics.retries.Add(ctx, int64(attempts-1), stepAttrs(step.Tool, providerName, "retried"))
	}

	elapsed := time.Since(start)
	if err != nil {
		step.Status = plan.StatusFailed
		step.Reason = err.Error()
		span.SetStatus(codes.Error, err.Error())
		a.metrics.stepMillis.Record(ctx, float64(elapsed.Milliseconds()),
			stepAttrs(step.Tool, providerName, "failed"))
		a.logger.Warn("step failed",
			"session", sess.id, "step", step.ID, "tool", step.Tool, "error", err)
		return
	}

	res.StepID = step.ID
	res.LatencyMS = elapsed.Milliseconds()
	res.Attempts = attempts

	validated := a.validator.Validate(res)
	sess.addWarnings(validated.Warnings)
	sess.agg.Merge(validated.Entities, validated.Relationships)
	sess.recordOutput(step.ID, plan.Outputs(res))

	step.Status = plan.StatusSucceeded
	a.metrics.stepMillis.Record(ctx, float64(elapsed.Milliseconds()),
		stepAttrs(step.Tool, providerName, string(validated.Quality)))
	a.logger.Debug("step succeeded",
		"session", sess.id, "step", step.ID, "tool", step.Tool,
		"quality", string(validated.Quality),
		"entities", len(validated.Entities),
		"latency_ms", res.LatencyMS)
}

// invoke resolves parameter references and runs the tool call under
// the retry executor. The executor observes the session deadline
// between attempts, backoff waits included, while each attempt runs
// detached, so an expiring session lets in-flight work finish its
// current try without starting another.
func (a *Agent) invoke(ctx context.Context, sess *session, step *plan.Step) (*result.ToolResult, int, error) {
	params, err := plan.ResolveParams(step.Parameters, sess.snapshotOutputs())
	if err != nil {
		return nil, 0, err
	}

	t, ok := a.registry.Get(step.Tool)
	if !ok {
		// Unknown tools are skipped at planning; reaching here means
		// the catalog changed under us.
		return nil, 0, toolerr.New("", step.Tool, toolerr.ErrCodePlanning, "tool not in catalog")
	}
	providerName := a.providers[step.Tool]

	var res *result.ToolResult
	attempts, err := a.exec.Do(ctx, step.Tool, func(attemptCtx context.Context) error {
		// Closes the race between the executor's deadline check and the
		// attempt actually starting.
		if cerr := ctx.Err(); cerr != nil {
			return toolerr.New(providerName, step.Tool, toolerr.ErrCodeBudgetExceeded,
				"session budget elapsed before attempt").WithCause(cerr)
		}
		if lerr := a.limiter.Acquire(attemptCtx, providerName); lerr != nil {
			return lerr
		}
		var cerr error
		res, cerr = t.Call(attemptCtx, params)
		return cerr
	})
	if err != nil {
		return nil, attempts, err
	}
	return res, attempts, nil
}

// maybeReplan gives a terminally failed step one shot at an
// alternative. Replanned steps never replan again.
func (a *Agent) maybeReplan(ctx context.Context, sess *session, step *plan.Step) {
	if step.Replanned || sess.replanned[step.ID] || ctx.Err() != nil {
		return
	}
	sess.replanned[step.ID] = true

	sess.state = StatePlanning
	rctx, span := a.tracer.Start(ctx, "agent.replan",
		trace.WithAttributes(attribute.String("step.id", step.ID)))
	defer span.End()

	alt, err := sess.planner.Replan(rctx, sess.question, a.registry.ToolDefs(), step, step.Reason)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		a.logger.Warn("replan failed", "session", sess.id, "step", step.ID, "error", err)
		return
	}
	if len(alt.Steps) == 0 {
		return
	}
	if err := sess.plan.Append(alt); err != nil {
		a.logger.Warn("replan rejected", "session", sess.id, "step", step.ID, "error", err)
		return
	}
	a.logger.Info("replanned failed step",
		"session", sess.id, "step", step.ID, "new_steps", len(alt.Steps))
}

// abortPending marks everything still pending as skipped and moves the
// session to Aborted.
func (a *Agent) abortPending(sess *session) {
	for _, s := range sess.plan.Steps {
		if !s.Status.Terminal() {
			s.Status = plan.StatusSkipped
			s.Reason = plan.ReasonBudgetExhausted
		}
	}
	sess.state = StateAborted
}
