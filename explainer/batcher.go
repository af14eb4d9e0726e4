package explainer

import (
	"context"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/background"
	"github.com/YuminosukeSato/kernelshap/coalition"
	"github.com/YuminosukeSato/kernelshap/core/model"
	"github.com/YuminosukeSato/kernelshap/core/parallel"
	"github.com/YuminosukeSato/kernelshap/performance"
	"github.com/YuminosukeSato/kernelshap/pkg/errors"
	"github.com/YuminosukeSato/kernelshap/pkg/log"
)

// queryBatcher sends synthetic rows to the model in bounded chunks and
// reduces the outputs to one background-weighted average per mask.
type queryBatcher struct {
	model   model.Predictor
	bg      *background.Set
	maxRows int
	workers int
	serial  bool
	mu      sync.Mutex // held around model calls when serial
	pool    *performance.MatrixPool
	metrics *Metrics
	logger  log.Logger
}

// call invokes the model once on X. want is the expected output width, or 0
// to accept any positive width. Panics in the model are recovered into a
// ModelQueryError.
func (b *queryBatcher) call(ctx context.Context, X mat.Matrix, want int) (*mat.Dense, error) {
	const op = "explainer.query"
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if b.serial {
		b.mu.Lock()
		defer b.mu.Unlock()
	}

	rows, _ := X.Dims()
	var out mat.Matrix
	err := errors.SafeExecute(log.OperationQuery, func() error {
		var err error
		out, err = model.Call(ctx, b.model, X)
		return err
	})
	b.metrics.observeModelCall(rows)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, errors.WithStack(err)
		}
		return nil, errors.NewModelQueryError(op, rows, err)
	}
	if out == nil {
		return nil, errors.NewModelQueryError(op, rows, errors.New("model returned no output"))
	}

	r, d := out.Dims()
	if r != rows || d < 1 || (want > 0 && d != want) {
		expected := want
		if expected == 0 {
			expected = max(d, 1)
		}
		return nil, errors.NewShapeMismatchError(op, []int{rows, expected}, []int{r, d})
	}
	dense := mat.DenseCopyOf(out)
	if err := errors.CheckNumericalStability("model output", dense.RawMatrix().Data); err != nil {
		return nil, errors.NewModelQueryError(op, rows, err)
	}
	return dense, nil
}

// predictRows evaluates X in chunks of at most maxRows rows, sequentially.
func (b *queryBatcher) predictRows(ctx context.Context, X *mat.Dense, want int) (*mat.Dense, error) {
	n, _ := X.Dims()
	if n <= b.maxRows {
		return b.call(ctx, X, want)
	}
	var result *mat.Dense
	for start := 0; start < n; start += b.maxRows {
		end := min(start+b.maxRows, n)
		part, err := b.call(ctx, X.Slice(start, end, 0, X.RawMatrix().Cols), want)
		if err != nil {
			return nil, err
		}
		if result == nil {
			_, want = part.Dims()
			result = mat.NewDense(n, want, nil)
		}
		result.Slice(start, end, 0, want).(*mat.Dense).Copy(part)
	}
	return result, nil
}

// evaluate returns the len(coalitions)×d matrix of averaged model outputs,
// one row per coalition, and the number of model calls made. Masks index the
// varying features only.
func (b *queryBatcher) evaluate(ctx context.Context, x []float64, varying []int, coalitions []coalition.Coalition, d int) (*mat.Dense, int, error) {
	n := len(coalitions)
	k := b.bg.Rows()
	m := b.bg.Features()
	masksPerChunk := max(1, b.maxRows/k)
	chunks := (n + masksPerChunk - 1) / masksPerChunk

	workers := b.workers
	if b.serial {
		workers = 1
	}

	avg := mat.NewDense(n, d, nil)
	var calls atomic.Int64
	err := parallel.ForEach(ctx, chunks, workers, func(ctx context.Context, c int) error {
		first := c * masksPerChunk
		last := min(first+masksPerChunk, n)
		masks := make([]coalition.Mask, last-first)
		for i := range masks {
			masks[i] = coalitions[first+i].Mask
		}

		buf := b.pool.Get(len(masks)*k, m)
		defer buf.Release()
		fillSynthetic(buf.Dense(), x, varying, masks, b.bg)

		out, err := b.call(ctx, buf.Dense(), d)
		calls.Add(1)
		if err != nil {
			return err
		}

		// 背景重みで各マスクの出力を平均する
		for i := range masks {
			dst := avg.RawRowView(first + i)
			for r := 0; r < k; r++ {
				w := b.bg.Weight(r)
				src := out.RawRowView(i*k + r)
				for j := range dst {
					dst[j] += w * src[j]
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, int(calls.Load()), err
	}
	return avg, int(calls.Load()), nil
}
