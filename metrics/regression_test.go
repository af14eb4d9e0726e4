package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			yPred: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			want:  0,
		},
		{
			name:  "simple case",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:  0.25,
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred:   mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestR2Score(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	got, err := R2Score(yTrue, mat.NewVecDense(4, []float64{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	// 平均を予測すると0
	got, err = R2Score(yTrue, mat.NewVecDense(4, []float64{2.5, 2.5, 2.5, 2.5}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-12)
}

func TestWeighted(t *testing.T) {
	yTrue := []float64{0, 10}
	yPred := []float64{1, 10}

	mse, err := WeightedMSE(yTrue, yPred, []float64{3, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, mse, 1e-12)

	// 重み付き平均 2.5, TSS = 3*6.25 + 56.25 = 75, RSS = 3
	r2, err := WeightedR2Score(yTrue, yPred, []float64{3, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1-3.0/75.0, r2, 1e-12)

	r2, err = WeightedR2Score([]float64{2, 2}, []float64{2, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)

	r2, err = WeightedR2Score([]float64{2, 2}, []float64{1, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2)
}

func TestWeightedErrors(t *testing.T) {
	_, err := WeightedMSE(nil, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = WeightedMSE([]float64{1}, []float64{1}, []float64{-1})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = WeightedR2Score([]float64{1, 2}, []float64{1, 2}, []float64{1})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
