// Package link provides the link functions that map model outputs into the
// additive space in which attributions are computed.
//
// Two links are built in: Identity, and Logit which maps probabilities to
// log-odds. Forward of Logit is only defined on (0, 1); values outside that
// range produce NaN or ±Inf and are rejected by the explainer.
package link

import (
	"math"
	"strings"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Link is a monotonic transform between model-output space and the additive
// attribution space.
type Link interface {
	// Name returns the identifier accepted by Parse.
	Name() string
	// Forward maps a model output into attribution space.
	Forward(x float64) float64
	// Inverse maps an attribution-space value back to model-output space.
	Inverse(z float64) float64
}

type identity struct{}

func (identity) Name() string              { return "identity" }
func (identity) Forward(x float64) float64 { return x }
func (identity) Inverse(z float64) float64 { return z }

type logit struct{}

func (logit) Name() string { return "logit" }

// Forward computes ln(p/(1-p)).
func (logit) Forward(p float64) float64 {
	return math.Log(p / (1 - p))
}

// Inverse computes 1/(1+e^{-z}).
func (logit) Inverse(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

var (
	// Identity leaves outputs unchanged.
	Identity Link = identity{}
	// Logit converts probabilities into log-odds.
	Logit Link = logit{}
)

// Parse returns the link registered under name ("identity" or "logit").
// An empty name selects Identity.
func Parse(name string) (Link, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity":
		return Identity, nil
	case "logit":
		return Logit, nil
	default:
		return nil, errors.NewInvalidInputError("link.Parse", "link", "unknown link function", name)
	}
}

// ForwardVec applies l.Forward element-wise into dst, allocating when dst is nil.
func ForwardVec(l Link, dst, src []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(src))
	}
	for i, v := range src {
		dst[i] = l.Forward(v)
	}
	return dst
}

// InverseVec applies l.Inverse element-wise into dst, allocating when dst is nil.
func InverseVec(l Link, dst, src []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(src))
	}
	for i, v := range src {
		dst[i] = l.Inverse(v)
	}
	return dst
}

// ForwardChecked applies l element-wise and reports non-finite results, which
// for Logit means an input outside (0, 1).
func ForwardChecked(l Link, op string, src []float64) ([]float64, error) {
	out := ForwardVec(l, nil, src)
	if err := errors.CheckNumericalStability(op, out); err != nil {
		return nil, errors.Wrapf(err, "%s link applied outside its domain", l.Name())
	}
	return out, nil
}
