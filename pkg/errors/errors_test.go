package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewInvalidInputError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		param   string
		reason  string
		value   interface{}
		wantMsg string
	}{
		{
			name:    "with param",
			op:      "NewPlan",
			param:   "nsamples",
			reason:  "must be positive when there is more than one feature",
			value:   0,
			wantMsg: "kernelshap: NewPlan: invalid input for 'nsamples': must be positive when there is more than one feature (got: 0)",
		},
		{
			name:    "without param",
			op:      "background.NewSet",
			reason:  "empty background",
			wantMsg: "kernelshap: background.NewSet: invalid input: empty background",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInvalidInputError(tt.op, tt.param, tt.reason, tt.value)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			if !Is(err, ErrInvalidInput) {
				t.Error("Expected Is(err, ErrInvalidInput)")
			}
			var inputErr *InvalidInputError
			if !As(err, &inputErr) {
				t.Error("Error should be castable to *InvalidInputError")
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	cause := fmt.Errorf("backend unavailable")

	tests := []struct {
		name   string
		err    error
		kind   error
		others []error
	}{
		{"dimension", NewDimensionError("Explain", 3, 4), ErrInvalidInput, []error{ErrModelQuery, ErrShapeMismatch}},
		{"model query", NewModelQueryError("Predict", 12, cause), ErrModelQuery, []error{ErrInvalidInput, ErrAdditivity}},
		{"shape", NewShapeMismatchError("Predict", []int{12, 2}, []int{12, 3}), ErrShapeMismatch, []error{ErrModelQuery}},
		{"additivity", NewAdditivityViolationError(0, 1.0, 2.0, 1e-4), ErrAdditivity, []error{ErrInvalidInput}},
		{"non-finite", CheckNumericalStability("link.forward", []float64{1, math.Inf(1)}), ErrInvalidInput, []error{ErrShapeMismatch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.kind) {
				t.Errorf("Expected %v to be of kind %v", tt.err, tt.kind)
			}
			for _, other := range tt.others {
				if Is(tt.err, other) {
					t.Errorf("Did not expect %v to be of kind %v", tt.err, other)
				}
			}
		})
	}
}

func TestModelQueryErrorKeepsCause(t *testing.T) {
	cause := fmt.Errorf("backend unavailable")
	err := Wrap(NewModelQueryError("Predict", 8, cause), "explain row 3")

	if !Is(err, cause) {
		t.Error("Expected model error cause to be preserved verbatim")
	}
	if !strings.Contains(err.Error(), "backend unavailable") {
		t.Errorf("Expected message to contain cause, got %q", err.Error())
	}
}

func TestAdditivityViolationGap(t *testing.T) {
	w := NewAdditivityViolationError(1, 2.5, 3.0, 1e-4)
	if math.Abs(w.Gap-0.5) > 1e-12 {
		t.Errorf("Gap = %v, want 0.5", w.Gap)
	}
	if !strings.Contains(w.Error(), "output 1") {
		t.Errorf("Error() = %q, want output index", w.Error())
	}
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Warn().EmbedObject(NewSolverDegeneracyWarning(0, 4, 2, 1e17)).Msg("degenerate")

	out := buf.String()
	for _, want := range []string{`"type":"SolverDegeneracyWarning"`, `"rank":2`, `"unknowns":4`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in %s", want, out)
		}
	}
}

func TestWarnRouting(t *testing.T) {
	var handled []error
	SetWarningHandler(func(w error) { handled = append(handled, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewConvergenceWarning("lasso", 10, ""))
	if len(handled) != 1 {
		t.Fatalf("Expected 1 handled warning, got %d", len(handled))
	}

	var viaZerolog int
	SetZerologWarnFunc(func(w error) { viaZerolog++ })
	Warn(NewConvergenceWarning("lasso", 10, ""))
	SetZerologWarnFunc(nil)

	if viaZerolog != 1 || len(handled) != 1 {
		t.Errorf("Expected zerolog func to take precedence, got zerolog=%d handler=%d", viaZerolog, len(handled))
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("CoordinateDescent", 1000, "dual gap did not shrink")

	want := "CoordinateDescent failed to converge after 1000 iterations: dual gap did not shrink"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d rows", "KMeans", 10)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in KMeans: expected 10 rows") {
		t.Errorf("Unexpected message %q", wrapped.Error())
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
	if got := SafeDivide(3, 2); got != 1.5 {
		t.Errorf("SafeDivide(3, 2) = %v, want 1.5", got)
	}
	if err := CheckScalar("x", math.NaN()); err == nil {
		t.Error("Expected error for NaN")
	}
}
