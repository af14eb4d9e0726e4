// Package explainer implements the Kernel SHAP estimator: it samples feature
// coalitions, evaluates the model on synthetic instances that mix the
// explained instance with a background set, and recovers per-feature
// attributions from an efficiency-constrained weighted regression.
package explainer

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"time"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/background"
	"github.com/YuminosukeSato/kernelshap/coalition"
	"github.com/YuminosukeSato/kernelshap/core/model"
	"github.com/YuminosukeSato/kernelshap/core/parallel"
	"github.com/YuminosukeSato/kernelshap/link"
	"github.com/YuminosukeSato/kernelshap/linear"
	"github.com/YuminosukeSato/kernelshap/performance"
	"github.com/YuminosukeSato/kernelshap/pkg/errors"
	"github.com/YuminosukeSato/kernelshap/pkg/log"
)

// KernelExplainer explains the predictions of a black-box model relative to
// a background set. It is safe for concurrent use.
type KernelExplainer struct {
	cfg     Config
	link    link.Link
	bg      *background.Set
	batcher *queryBatcher
	logger  log.Logger
	metrics *Metrics

	selection linear.Selection
	nOutputs  int
	fnull     []float64 // E_bg[f] in model space
	base      []float64 // link(fnull)
}

// NewKernelExplainer validates the configuration, evaluates the model on the
// background set once, and stores the base value link(E_bg[f]) per output.
func NewKernelExplainer(ctx context.Context, p model.Predictor, bg *background.Set, opts ...Option) (*KernelExplainer, error) {
	const op = "explainer.NewKernelExplainer"
	if p == nil {
		return nil, errors.NewInvalidInputError(op, "model", "model is nil", nil)
	}
	if bg == nil {
		return nil, errors.NewInvalidInputError(op, "background", "background set is nil", nil)
	}

	s := settings{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if s.cfg.NSamples == 0 && bg.Features() > 1 {
		return nil, errors.NewInvalidInputError(op, "nsamples", "a zero coalition budget cannot explain more than one feature", 0)
	}
	l, err := link.Parse(s.cfg.Link)
	if err != nil {
		return nil, err
	}
	logger := s.logger
	if logger == nil {
		logger = log.GetLogger()
	}
	logger = logger.With(log.ComponentKey, "kernel_explainer")

	e := &KernelExplainer{
		cfg:       s.cfg,
		link:      l,
		bg:        bg,
		logger:    logger,
		metrics:   s.metrics,
		selection: s.cfg.selection(),
		batcher: &queryBatcher{
			model:   p,
			bg:      bg,
			maxRows: s.cfg.MaxBatchRows,
			workers: parallel.Workers(s.cfg.Workers),
			serial:  s.cfg.SerialModel,
			pool:    performance.NewMatrixPool(s.cfg.MaxBatchRows * bg.Features()),
			metrics: s.metrics,
			logger:  logger,
		},
	}

	out, err := e.batcher.predictRows(ctx, bg.Data(), 0)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating the model on the background set")
	}
	_, e.nOutputs = out.Dims()
	e.fnull = make([]float64, e.nOutputs)
	for k := 0; k < bg.Rows(); k++ {
		w := bg.Weight(k)
		for d := range e.fnull {
			e.fnull[d] += w * out.At(k, d)
		}
	}
	e.base, err = link.ForwardChecked(l, "base value", e.fnull)
	if err != nil {
		return nil, err
	}

	logger.Info("kernel explainer ready",
		log.BackgroundKey, bg.Rows(),
		log.FeaturesKey, bg.Features(),
		log.OutputsKey, e.nOutputs,
		log.LinkKey, l.Name(),
		log.NSamplesKey, s.cfg.NSamples,
		log.RegularizationKey, string(s.cfg.L1Rule),
		log.RandomSeedKey, s.cfg.Seed,
		log.WorkersKey, e.batcher.workers,
	)
	return e, nil
}

// ExpectedValue returns a copy of the base value link(E_bg[f]) per output.
func (e *KernelExplainer) ExpectedValue() []float64 {
	return append([]float64(nil), e.base...)
}

// NumOutputs returns D.
func (e *KernelExplainer) NumOutputs() int {
	return e.nOutputs
}

// Link returns the link function attributions are expressed in.
func (e *KernelExplainer) Link() link.Link {
	return e.link
}

// Config returns the validated configuration.
func (e *KernelExplainer) Config() Config {
	return e.cfg
}

// Explain attributes the model output for x to its features. It is
// equivalent to the first row of ExplainBatch.
func (e *KernelExplainer) Explain(ctx context.Context, x []float64) (*Explanation, error) {
	return e.explain(ctx, x, 0)
}

// ExplainBatch explains every row of X concurrently and returns one result
// and one error slot per row. A failing row does not affect the others. The
// returned error is non-nil only when X itself is unusable.
func (e *KernelExplainer) ExplainBatch(ctx context.Context, X mat.Matrix) ([]*Explanation, []error, error) {
	const op = "explainer.ExplainBatch"
	if X == nil {
		return nil, nil, errors.NewInvalidInputError(op, "X", "instances are nil", nil)
	}
	n, m := X.Dims()
	if m != e.bg.Features() {
		return nil, nil, errors.NewDimensionError(op, e.bg.Features(), m)
	}

	start := time.Now()
	results := make([]*Explanation, n)
	errs := parallel.ForEachIndependent(ctx, n, e.cfg.Workers, func(ctx context.Context, i int) error {
		var err error
		results[i], err = e.explain(ctx, mat.Row(nil, i, X), i)
		return err
	})

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	e.logger.Info("batch explained",
		log.OperationKey, log.OperationBatch,
		log.RowsKey, n,
		"batch.failed", failed,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return results, errs, nil
}

// rngFor derives the sampler of row index from the configured seed, so that
// sampled plans do not depend on scheduling.
func (e *KernelExplainer) rngFor(index int) *rand.Rand {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(e.cfg.Seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(index))
	return rand.New(rand.NewSource(int64(xxhash.Sum64(buf[:]))))
}

func (e *KernelExplainer) explain(ctx context.Context, x []float64, index int) (exp *Explanation, err error) {
	start := time.Now()
	coalitions := 0
	defer func() {
		e.metrics.observeExplanation(err, coalitions, time.Since(start))
	}()

	exp, err = e.run(ctx, x, index)
	if err != nil {
		if e.logger.Enabled(ctx, log.LevelDebug) {
			e.logger.Debug("explanation failed", log.InstanceKey, index, log.ErrorTypeKey, log.ErrorKind(err), "error", err)
		}
		return nil, err
	}
	coalitions = exp.NumCoalitions
	e.logger.Debug("explanation complete",
		log.OperationKey, log.OperationExplain,
		log.InstanceKey, index,
		log.VaryingKey, len(exp.Varying),
		log.CoalitionsKey, exp.NumCoalitions,
		log.ExhaustiveKey, exp.Exhaustive,
		log.ModelCallsKey, exp.ModelCalls,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return exp, nil
}

func (e *KernelExplainer) run(ctx context.Context, x []float64, index int) (*Explanation, error) {
	const op = "explainer.Explain"
	m := e.bg.Features()
	if len(x) != m {
		return nil, errors.NewDimensionError(op, m, len(x))
	}
	if err := errors.CheckNumericalStability("instance", x); err != nil {
		return nil, err
	}
	x = append([]float64(nil), x...)

	// 全特徴量がインスタンス側のアンカーは一度だけ評価する
	fx, err := e.batcher.call(ctx, mat.NewDense(1, m, append([]float64(nil), x...)), e.nOutputs)
	if err != nil {
		return nil, err
	}
	out, err := link.ForwardChecked(e.link, "instance output", fx.RawRowView(0))
	if err != nil {
		return nil, err
	}

	varying, err := e.bg.Varying(x)
	if err != nil {
		return nil, err
	}

	exp := &Explanation{
		Instance:         x,
		BaseValues:       e.ExpectedValue(),
		OutputValues:     out,
		Attributions:     mat.NewDense(m, e.nOutputs, nil),
		Link:             e.link.Name(),
		Varying:          varying,
		NumCoalitions:    2,
		ModelCalls:       1,
		Exhaustive:       true,
		FitR2:            make([]float64, e.nOutputs),
		SelectedFeatures: make([]int, e.nOutputs),
	}
	total := make([]float64, e.nOutputs)
	for d := range total {
		total[d] = out[d] - e.base[d]
	}

	switch len(varying) {
	case 0:
		// どの特徴量も合成行を変えられない
		for d := range exp.FitR2 {
			exp.FitR2[d] = math.NaN()
		}
	case 1:
		for d := range total {
			exp.Attributions.Set(varying[0], d, total[d])
			exp.FitR2[d] = math.NaN()
			exp.SelectedFeatures[d] = 1
		}
	default:
		if err := e.solve(ctx, exp, x, varying, total, index); err != nil {
			return nil, err
		}
	}

	return e.finish(exp)
}

// solve evaluates the coalition plan over the varying features and fills the
// attributions of exp.
func (e *KernelExplainer) solve(ctx context.Context, exp *Explanation, x []float64, varying []int, total []float64, index int) error {
	mv := len(varying)
	plan, err := coalition.NewPlan(mv, e.cfg.NSamples, e.rngFor(index))
	if err != nil {
		return err
	}
	interior := plan.Interior()
	exp.NumCoalitions = plan.Len()
	exp.Exhaustive = plan.Exhaustive

	avg, calls, err := e.batcher.evaluate(ctx, x, varying, interior, e.nOutputs)
	exp.ModelCalls += calls
	if err != nil {
		return err
	}

	// リンク空間に移して基準値を引く
	n := len(interior)
	Y := mat.NewDense(n, e.nOutputs, nil)
	for i := 0; i < n; i++ {
		for d := 0; d < e.nOutputs; d++ {
			Y.Set(i, d, e.link.Forward(avg.At(i, d))-e.base[d])
		}
	}
	if err := errors.CheckNumericalStability("coalition output", Y.RawMatrix().Data); err != nil {
		return errors.Wrapf(err, "%s link applied outside its domain", e.link.Name())
	}

	Z := mat.NewDense(n, mv, nil)
	w := make([]float64, n)
	for i, c := range interior {
		for v, on := range c.Mask {
			if on {
				Z.Set(i, v, 1)
			}
		}
		w[i] = c.Weight
	}

	res, err := linear.SolveConstrained(Z, w, Y, total,
		linear.WithSelection(e.selection),
		linear.WithSpaceFraction(plan.SpaceFraction()),
		linear.WithWorkers(e.cfg.Workers),
	)
	if err != nil {
		return err
	}

	for v, j := range varying {
		for d := 0; d < e.nOutputs; d++ {
			exp.Attributions.Set(j, d, res.Phi.At(v, d))
		}
	}
	copy(exp.FitR2, res.R2)
	for d := 0; d < e.nOutputs; d++ {
		exp.SelectedFeatures[d] = len(res.Selected[d])
		if res.Degenerate[d] {
			exp.Degenerate = true
			e.metrics.observeDegenerate()
			errors.Warn(errors.NewSolverDegeneracyWarning(d, mv, res.Rank[d], res.Condition[d]))
			e.logger.Warn("degenerate coalition design, used pseudo-inverse",
				log.InstanceKey, index,
				log.DegenerateKey, true,
				log.OutputsKey, d,
				"solver.condition", res.Condition[d],
			)
		}
	}
	return nil
}

// finish runs the additivity check according to the configured strictness.
func (e *KernelExplainer) finish(exp *Explanation) (*Explanation, error) {
	gaps, ok, worst := checkAdditivity(exp.Attributions, exp.OutputValues, exp.BaseValues, e.cfg.Tolerance)
	exp.AdditivityGap = gaps
	exp.AdditivityOK = ok
	if ok {
		return exp, nil
	}

	e.metrics.observeAdditivityViolation()
	violation := errors.NewAdditivityViolationError(worst,
		exp.Sum(worst),
		exp.OutputValues[worst]-exp.BaseValues[worst],
		e.cfg.Tolerance,
	)
	switch e.cfg.Strictness {
	case StrictnessError:
		return nil, errors.WithStack(violation)
	case StrictnessWarn:
		errors.Warn(violation)
		e.logger.Warn("attributions do not sum to the output difference",
			log.AdditivityGapKey, gaps[worst],
			log.OutputsKey, worst,
		)
	}
	return exp, nil
}
