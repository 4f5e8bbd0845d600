package transforms

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	pkgerrors "github.com/pkg/errors"

	"graphopt/internal/errors"
	"graphopt/internal/model"
)

// Options bound and instrument a pipeline run.
type Options struct {
	// MaxSweeps caps the number of full sweeps over all transformations.
	MaxSweeps int
	// MaxRewrites caps the number of applied rewrites in one run. It also
	// stops a single transformation that keeps reporting Applied, which
	// MaxSweeps cannot see.
	MaxRewrites int
	// Verify runs model.Check after every applied rewrite.
	Verify bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		MaxSweeps:   100,
		MaxRewrites: 100000,
		Verify:      false,
	}
}

// Pipeline applies an ordered list of transformations to a model until none
// of them changes it any more.
type Pipeline struct {
	opts   Options
	passes []Transformation
}

// NewPipeline creates a pipeline running the given transformations in order.
func NewPipeline(opts Options, passes ...Transformation) *Pipeline {
	defaults := DefaultOptions()
	if opts.MaxSweeps <= 0 {
		opts.MaxSweeps = defaults.MaxSweeps
	}
	if opts.MaxRewrites <= 0 {
		opts.MaxRewrites = defaults.MaxRewrites
	}
	p := &Pipeline{opts: opts}
	for _, pass := range passes {
		p.AddPass(pass)
	}
	return p
}

// DefaultTransformations returns the full transformation set in the order
// the CLI runs it: attribute resolution and constant folding first, so the
// fusions that wait on them find resolved constants in the same sweep.
func DefaultTransformations() []Transformation {
	return []Transformation{
		&ResolveReshapeAttributes{},
		&ResolveTransposeConvShape{},
		&ResolveSpaceToBatchNDAttributes{},
		&ResolveBatchToSpaceNDAttributes{},
		&ResolveConstantDequantize{},
		&ResolveConstantResizeBilinear{},
		&EnsureBiasVectors{},
		&ResolveDilatedConv{},
		&ResolvePRelu{},
		&ResolveLeakyRelu{},
		&IdentifyGruCell{},
		&RemoveUnusedOp{},
	}
}

// AddPass appends a transformation to the pipeline.
func (p *Pipeline) AddPass(pass Transformation) {
	p.passes = append(p.passes, pass)
}

// Passes returns the transformations in execution order.
func (p *Pipeline) Passes() []Transformation {
	return append([]Transformation{}, p.passes...)
}

// Report summarizes a pipeline run.
type Report struct {
	// Sweeps is the number of full sweeps performed, including the final
	// one that changed nothing.
	Sweeps int
	// Applied counts applied rewrites per transformation name.
	Applied map[string]int
	// Deferred counts deferred matches per transformation name.
	Deferred map[string]int
}

func newReport() *Report {
	return &Report{
		Applied:  make(map[string]int),
		Deferred: make(map[string]int),
	}
}

// TotalApplied returns the number of rewrites across all transformations.
func (r *Report) TotalApplied() int {
	total := 0
	for _, n := range r.Applied {
		total += n
	}
	return total
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d sweep(s), %d rewrite(s)", r.Sweeps, r.TotalApplied())
	names := make([]string, 0, len(r.Applied))
	for name := range r.Applied {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %d", name, r.Applied[name])
	}
	return b.String()
}

// Run rewrites m in place until a full sweep over every transformation
// changes nothing.
//
// Within a sweep each transformation visits the operators in order; after
// an applied rewrite the indices are stale, so that transformation starts
// over at index 0. Cancellation is honored between transformations and
// after every applied rewrite. An
// invariant violation aborts the run and is returned as an error wrapping
// *errors.InvariantError; the model is then left in whatever state the
// failing transformation reached.
func (p *Pipeline) Run(ctx context.Context, m *model.Model) (*Report, error) {
	report := newReport()
	log.Infof("running %d transformations on %d operators", len(p.passes), m.OperatorCount())

	for report.Sweeps < p.opts.MaxSweeps {
		report.Sweeps++
		changed := false
		for _, pass := range p.passes {
			if err := ctx.Err(); err != nil {
				return report, pkgerrors.Wrapf(err, "stopped before %s in sweep %d", pass.Name(), report.Sweeps)
			}
			passChanged, err := p.runPass(ctx, pass, m, report)
			if err != nil {
				return report, err
			}
			changed = changed || passChanged
		}
		log.Infof("sweep %d: %d rewrites so far, %d operators", report.Sweeps, report.TotalApplied(), m.OperatorCount())
		if !changed {
			return report, nil
		}
	}
	return report, errors.NewInvariantError(errors.ErrorNoConvergence,
		"no fixpoint after %d sweeps", p.opts.MaxSweeps)
}

// runPass sweeps one transformation over the operator list.
func (p *Pipeline) runPass(ctx context.Context, pass Transformation, m *model.Model, report *Report) (changed bool, err error) {
	for i := 0; i < m.OperatorCount(); i++ {
		var result Result
		var op *model.Operator
		err = exceptions.TryCatch[error](func() {
			op = m.OperatorAt(i)
			result = pass.Run(m, i)
		})
		if err != nil {
			return changed, p.annotate(err, pass, m, op)
		}

		switch result {
		case Deferred:
			report.Deferred[pass.Name()]++
		case Applied:
			changed = true
			report.Applied[pass.Name()]++
			if p.opts.Verify {
				if checkErr := m.Check(); checkErr != nil {
					violation := errors.NewInvariantError(errors.ErrorModelIntegrity, "%s", checkErr.Error())
					return changed, p.annotate(violation, pass, m, op)
				}
			}
			if report.TotalApplied() > p.opts.MaxRewrites {
				violation := errors.NewInvariantError(errors.ErrorNoConvergence,
					"more than %d rewrites applied", p.opts.MaxRewrites)
				return changed, p.annotate(violation, pass, m, op)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return changed, pkgerrors.Wrapf(ctxErr, "stopped after %s rewrote %s in sweep %d",
					pass.Name(), m.LogName(op), report.Sweeps)
			}
			i = -1
		}
	}
	return changed, nil
}

// annotate fills in where a violation happened and wraps it for the caller.
func (p *Pipeline) annotate(err error, pass Transformation, m *model.Model, op *model.Operator) error {
	var violation *errors.InvariantError
	if errors.As(err, &violation) {
		violation.Transformation = pass.Name()
		if op != nil && violation.Operator == "" {
			violation.Operator = m.LogName(op)
		}
	}
	return pkgerrors.Wrapf(err, "transformation %s aborted the run", pass.Name())
}
