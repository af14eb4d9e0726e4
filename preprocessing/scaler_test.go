package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	scaler := NewStandardScalerDefault()
	Z, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, scaler.Mean[0], 1e-12)
	assert.InDelta(t, 1.118033988749895, scaler.Scale[0], 1e-12)
	// 定数列はスケール1
	assert.Equal(t, 1.0, scaler.Scale[1])
	assert.InDelta(t, 0.0, Z.At(0, 1), 1e-12)

	back, err := scaler.InverseTransform(Z)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerWeighted(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 10})
	scaler := NewStandardScalerDefault()
	require.NoError(t, scaler.FitWeighted(X, []float64{3, 1}))
	assert.InDelta(t, 2.5, scaler.Mean[0], 1e-12)
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 1, nil))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	err = scaler.FitWeighted(mat.NewDense(2, 2, nil), []float64{1})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
