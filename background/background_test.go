package background

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

func TestNewSet(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	t.Run("uniform weights", func(t *testing.T) {
		s, err := NewSet(data, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, s.Rows())
		assert.Equal(t, 2, s.Features())
		assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, s.Weights(), 1e-15)
		assert.Equal(t, []float64{3, 4}, s.Row(1))
	})

	t.Run("normalizes weights", func(t *testing.T) {
		s, err := NewSet(data, []float64{1, 1, 2})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, s.Weight(2), 1e-15)
		assert.InDelta(t, 1.0, floats.Sum(s.Weights()), 1e-15)
	})

	t.Run("copies input", func(t *testing.T) {
		src := mat.NewDense(1, 1, []float64{7})
		s, err := NewSet(src, nil)
		require.NoError(t, err)
		src.Set(0, 0, 8)
		assert.Equal(t, 7.0, s.At(0, 0))
	})

	invalid := []struct {
		name    string
		weights []float64
	}{
		{"wrong length", []float64{1, 1}},
		{"negative", []float64{1, -1, 1}},
		{"zero sum", []float64{0, 0, 0}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(data, tt.weights)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		})
	}

	_, err := NewSet(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestVarying(t *testing.T) {
	s, err := NewSet(mat.NewDense(2, 3, []float64{
		1, 5, 0,
		1, 6, 0,
	}), nil)
	require.NoError(t, err)

	varying, err := s.Varying([]float64{1, 5, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, varying)

	varying, err = s.Varying([]float64{2, 5, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, varying)

	_, err = s.Varying([]float64{1})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestSample(t *testing.T) {
	data := mat.NewDense(10, 2, nil)
	for i := 0; i < 10; i++ {
		data.Set(i, 0, float64(i))
		data.Set(i, 1, float64(10*i))
	}

	s1, err := Sample(data, 4, 7)
	require.NoError(t, err)
	s2, err := Sample(data, 4, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, s1.Rows())
	assert.True(t, mat.Equal(s1.Data(), s2.Data()))

	// 重複なし
	seen := map[float64]bool{}
	for i := 0; i < s1.Rows(); i++ {
		row := s1.Row(i)
		assert.Equal(t, row[0]*10, row[1])
		assert.False(t, seen[row[0]])
		seen[row[0]] = true
	}

	all, err := Sample(data, 50, 1)
	require.NoError(t, err)
	assert.True(t, mat.Equal(data, all.Data()))

	_, err = Sample(data, 0, 1)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func twoBlobs() *mat.Dense {
	data := mat.NewDense(8, 2, []float64{
		0, 0,
		0.1, 0,
		0, 0.1,
		0.1, 0.1,
		10, 10,
		10.1, 10,
		10, 10.1,
		10.1, 10.1,
	})
	return data
}

func TestKMeans(t *testing.T) {
	s, err := KMeans(twoBlobs(), 2, WithKMeansRandomState(3))
	require.NoError(t, err)
	require.Equal(t, 2, s.Rows())
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, s.Weights(), 1e-12)

	var low, high []float64
	for i := 0; i < 2; i++ {
		if s.At(i, 0) < 5 {
			low = s.Row(i)
		} else {
			high = s.Row(i)
		}
	}
	require.NotNil(t, low)
	require.NotNil(t, high)
	assert.InDeltaSlice(t, []float64{0.05, 0.05}, low, 1e-12)
	assert.InDeltaSlice(t, []float64{10.05, 10.05}, high, 1e-12)
}

func TestKMeansOptions(t *testing.T) {
	t.Run("round values", func(t *testing.T) {
		s, err := KMeans(twoBlobs(), 2, WithKMeansRandomState(3), WithKMeansRoundValues(true))
		require.NoError(t, err)
		for i := 0; i < s.Rows(); i++ {
			for _, v := range s.Row(i) {
				assert.Contains(t, []float64{0, 0.1, 10, 10.1}, v)
			}
		}
	})

	t.Run("standardize maps centroids back", func(t *testing.T) {
		s, err := KMeans(twoBlobs(), 2, WithKMeansRandomState(3), WithKMeansStandardize(true))
		require.NoError(t, err)
		require.Equal(t, 2, s.Rows())
		sum := s.At(0, 0) + s.At(1, 0)
		assert.InDelta(t, 10.1, sum, 1e-9)
	})

	t.Run("duplicate rows drop empty clusters", func(t *testing.T) {
		data := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
		s, err := KMeans(data, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Rows())
		assert.Equal(t, 1.0, s.Weight(0))
	})

	t.Run("k larger than rows", func(t *testing.T) {
		s, err := KMeans(mat.NewDense(2, 1, []float64{0, 5}), 10)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Rows())
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := KMeans(twoBlobs(), 0)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})
}

func TestCache(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)
	data := twoBlobs()

	a, err := c.KMeans(data, 2, WithKMeansRandomState(1))
	require.NoError(t, err)
	b, err := c.KMeans(data, 2, WithKMeansRandomState(1))
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.KMeans(data, 2, WithKMeansRandomState(1), WithKMeansRoundValues(true))
	require.NoError(t, err)
	_, err = c.Sample(data, 3, 1)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, 2, stats.Len)

	c.Purge()
	assert.Equal(t, 0, c.Len())

	_, err = NewCache(0)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = c.Sample(data, 0, 1)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
