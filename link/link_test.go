package link

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

func TestLogitRoundTrip(t *testing.T) {
	for _, p := range []float64{0.7, 0.5, 1e-6, 0.999999} {
		z := Logit.Forward(p)
		assert.InDelta(t, p, Logit.Inverse(z), 1e-9, "p=%v", p)
	}
	assert.InDelta(t, math.Log(0.7/0.3), Logit.Forward(0.7), 1e-15)
	assert.Equal(t, 0.5, Logit.Inverse(0))
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, -3.25, Identity.Forward(-3.25))
	assert.Equal(t, 42.0, Identity.Inverse(42))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    Link
		wantErr bool
	}{
		{"", Identity, false},
		{"identity", Identity, false},
		{" Logit ", Logit, false},
		{"probit", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForwardChecked(t *testing.T) {
	out, err := ForwardChecked(Logit, "base", []float64{0.25, 0.75})
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(3), out[0], 1e-12)
	assert.InDelta(t, math.Log(3), out[1], 1e-12)

	_, err = ForwardChecked(Logit, "base", []float64{0.5, 1.0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestVecHelpers(t *testing.T) {
	src := []float64{0.1, 0.9}
	z := ForwardVec(Logit, nil, src)
	back := InverseVec(Logit, make([]float64, 2), z)
	assert.InDeltaSlice(t, src, back, 1e-12)
}
