package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "model.Predict")
		panic("index out of range")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "model.Predict" {
		t.Errorf("Expected operation 'model.Predict', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if want := "panic in model.Predict: index out of range"; panicErr.Error() != want {
		t.Errorf("Expected error message '%s', got '%s'", want, panicErr.Error())
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "Batch")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if !strings.Contains(err.Error(), "panic in Batch") {
		t.Errorf("Error message should contain panic info: %s", err)
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	sentinel := fmt.Errorf("model error")
	panicValue := fmt.Errorf("panicked with error")

	tests := []struct {
		name      string
		fn        func() error
		wantNil   bool
		wantPanic bool
		wantIs    error
	}{
		{name: "success", fn: func() error { return nil }, wantNil: true},
		{name: "function error passes through", fn: func() error { return sentinel }, wantIs: sentinel},
		{name: "string panic", fn: func() error { panic("boom") }, wantPanic: true},
		{name: "error panic unwraps", fn: func() error { panic(panicValue) }, wantPanic: true, wantIs: panicValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if tt.wantNil {
				if err != nil {
					t.Fatalf("Expected nil, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error")
			}
			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.wantPanic {
				t.Errorf("errors.As(PanicError) = %v, want %v", got, tt.wantPanic)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Expected errors.Is(%v), got %v", tt.wantIs, err)
			}
		})
	}
}

func TestPanicError_String(t *testing.T) {
	panicErr := NewPanicError("TestOp", "test value")

	str := panicErr.String()
	if !strings.Contains(str, "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
	if panicErr.Unwrap() != nil {
		t.Error("Unwrap() of a non-error panic value should be nil")
	}
}
