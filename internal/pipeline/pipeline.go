// Package pipeline runs rewrite passes over a plan in order.
//
// A pass is any function from plan to plan, typically a plan.Rewriter or
// plan.Transform. Passes run sequentially on the caller's goroutine. In
// fixpoint mode the whole sequence repeats until a round leaves the plan
// reference-identical, which relies on passes returning their input
// unchanged when they have nothing to do.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/planir/internal/canonical"
	"github.com/roach88/planir/internal/check"
	"github.com/roach88/planir/internal/diag"
	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/plancache"
)

// DefaultMaxIterations bounds fixpoint runs so that two passes undoing each
// other cannot loop forever.
const DefaultMaxIterations = 100

// domainRun separates memoized run keys from plan fingerprints.
const domainRun = "planir/run/v1"

// Pass is one named plan-to-plan step.
type Pass struct {
	Name  string
	Apply func(plan.Operator) plan.Operator

	// Key identifies the pass together with its configuration. Two passes
	// with the same Key must rewrite every plan the same way. Empty means
	// Name.
	Key string
}

// ID returns Key, or Name when Key is empty.
func (p Pass) ID() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Name
}

// Pipeline is an ordered list of passes and the options to run them with.
// A Pipeline is safe for concurrent use if its passes are.
type Pipeline struct {
	passes        []Pass
	ids           RunIDGenerator
	logger        *slog.Logger
	maxIterations int
	fixpoint      bool
	listener      diag.Listener
	checkOpts     []check.Option
	cache         *plancache.Cache
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithRunIDs sets the run id source. The default is UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = g
	}
}

// WithFixpoint repeats the passes until a full round changes nothing.
func WithFixpoint() Option {
	return func(p *Pipeline) {
		p.fixpoint = true
	}
}

// WithMaxIterations sets the fixpoint round limit.
//
// Default: 100 (DefaultMaxIterations)
func WithMaxIterations(n int) Option {
	return func(p *Pipeline) {
		p.maxIterations = n
	}
}

// WithListener checks the final plan and reports its diagnostics to l. An
// error from l fails the run.
func WithListener(l diag.Listener, opts ...check.Option) Option {
	return func(p *Pipeline) {
		p.listener = l
		p.checkOpts = opts
	}
}

// WithCache memoizes runs: a plan whose fingerprint was already run through
// the same passes (by ID) and limits returns the cached result without
// running any pass.
func WithCache(c *plancache.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// New returns a pipeline running passes in order. The slice is copied.
func New(passes []Pass, opts ...Option) *Pipeline {
	p := &Pipeline{
		passes:        append([]Pass(nil), passes...),
		ids:           UUIDv7Generator{},
		logger:        slog.Default(),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result describes a finished run.
type Result struct {
	RunID string
	Plan  plan.Operator

	// Iterations is the number of rounds started. A run without fixpoint
	// has one round; a fixpoint run counts its final unchanged round.
	Iterations int

	// Applied lists, in order, the passes that changed the plan.
	Applied []string

	// Cached is set when the plan came from the cache.
	Cached bool
}

// Run applies the passes to op. The context is checked between passes.
func (p *Pipeline) Run(ctx context.Context, op plan.Operator) (*Result, error) {
	runID := p.ids.Generate()
	log := p.logger.With("run_id", runID)
	log.Info("pipeline starting", "passes", len(p.passes), "fixpoint", p.fixpoint)

	var res *Result
	var err error
	if p.cache != nil {
		res, err = p.runCached(ctx, runID, log, op)
	} else {
		res, err = p.run(ctx, runID, log, op)
	}
	if err != nil {
		return nil, err
	}

	if p.listener != nil {
		if err := check.Run(res.Plan, p.listener, p.checkOpts...); err != nil {
			log.Warn("plan check aborted", "error", err)
			return nil, fmt.Errorf("run %s: check plan: %w", runID, err)
		}
	}

	log.Info("pipeline finished",
		"iterations", res.Iterations,
		"applied", len(res.Applied),
		"cached", res.Cached,
	)
	return res, nil
}

func (p *Pipeline) runCached(ctx context.Context, runID string, log *slog.Logger, op plan.Operator) (*Result, error) {
	key, err := p.runKey(op)
	if err != nil {
		return nil, err
	}

	var fresh *Result
	out, err := p.cache.GetOrLoad(ctx, key, func(ctx context.Context) (plan.Operator, error) {
		res, err := p.run(ctx, runID, log, op)
		if err != nil {
			return nil, err
		}
		fresh = res
		return res.Plan, nil
	})
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		return fresh, nil
	}
	log.Debug("cache hit", "key", key)
	return &Result{RunID: runID, Plan: out, Cached: true}, nil
}

// runKey identifies a run by the input fingerprint, the pass IDs and the
// fixpoint settings.
func (p *Pipeline) runKey(op plan.Operator) (string, error) {
	fp, err := explain.Fingerprint(op)
	if err != nil {
		return "", err
	}
	data, err := canonical.Marshal(map[string]any{
		"plan":           fp,
		"passes":         p.IDs(),
		"fixpoint":       p.fixpoint,
		"max_iterations": p.maxIterations,
	})
	if err != nil {
		return "", err
	}
	return canonical.Hash(domainRun, data), nil
}

func (p *Pipeline) run(ctx context.Context, runID string, log *slog.Logger, op plan.Operator) (*Result, error) {
	res := &Result{RunID: runID, Plan: op}
	q := newQuota(p.maxIterations)

	for {
		if p.fixpoint {
			if err := q.check(runID); err != nil {
				log.Error("max iterations exceeded",
					"iterations", q.current,
					"limit", q.limit,
				)
				return nil, err
			}
		}
		res.Iterations++

		changed := false
		for _, pass := range p.passes {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run %s: %w", runID, err)
			}

			next, err := apply(runID, pass, res.Plan)
			if err != nil {
				log.Error("pass failed", "pass", pass.Name, "error", err)
				return nil, err
			}

			// Passes return their input itself when nothing changed.
			hit := next != res.Plan
			log.Debug("pass applied",
				"pass", pass.Name,
				"iteration", res.Iterations,
				"changed", hit,
			)
			if hit {
				changed = true
				res.Plan = next
				res.Applied = append(res.Applied, pass.Name)
			}
		}

		if !p.fixpoint || !changed {
			return res, nil
		}
	}
}

// apply runs one pass, turning a panic into a *PassError.
func apply(runID string, pass Pass, op plan.Operator) (out plan.Operator, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", r)
			}
			err = &PassError{RunID: runID, Pass: pass.Name, Err: cause}
		}
	}()

	out = pass.Apply(op)
	if out == nil {
		return nil, &PassError{RunID: runID, Pass: pass.Name, Err: errors.New("returned no plan")}
	}
	return out, nil
}

// Names returns the pass names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name
	}
	return names
}

// IDs returns the pass IDs in order.
func (p *Pipeline) IDs() []string {
	ids := make([]string, len(p.passes))
	for i, pass := range p.passes {
		ids[i] = pass.ID()
	}
	return ids
}

// String lists the pass names, for logs.
func (p *Pipeline) String() string {
	return "pipeline(" + strings.Join(p.Names(), ", ") + ")"
}
