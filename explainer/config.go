package explainer

import (
	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/kernelshap/coalition"
	"github.com/YuminosukeSato/kernelshap/linear"
	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Strictness controls what happens when an explanation violates additivity.
type Strictness string

const (
	// StrictnessOff records the gap in the explanation only.
	StrictnessOff Strictness = "off"
	// StrictnessWarn also emits a warning and a warn-level log record.
	StrictnessWarn Strictness = "warn"
	// StrictnessError fails the explanation with an AdditivityViolationError.
	StrictnessError Strictness = "error"
)

const (
	// DefaultTolerance is the relative additivity tolerance.
	DefaultTolerance = 1e-4
	// DefaultMaxBatchRows bounds the rows sent to the model in one call.
	DefaultMaxBatchRows = 16384
)

// Config holds the explainer settings. The zero value is not valid; start
// from DefaultConfig or use the functional options.
type Config struct {
	// NSamples is the coalition budget: a positive count, coalition.Auto or
	// coalition.Exhaustive.
	NSamples int `validate:"gte=-2"`
	// Link is the name of the link function ("identity" or "logit").
	Link string `validate:"oneof=identity logit"`
	// Tolerance is the relative additivity tolerance.
	Tolerance float64 `validate:"gt=0"`
	// Strictness is one of off, warn or error.
	Strictness Strictness `validate:"oneof=off warn error"`
	// L1Rule selects features before the solve.
	L1Rule linear.Rule `validate:"oneof=off auto alpha num_features aic bic"`
	// L1Alpha is the regularization strength for the alpha rule.
	L1Alpha float64 `validate:"gte=0"`
	// L1Features is k for the num_features rule.
	L1Features int `validate:"gte=0"`
	// Seed makes sampled plans reproducible.
	Seed int64
	// Workers bounds concurrent model calls, solves and batch rows; 0 means
	// one per CPU.
	Workers int `validate:"gte=0"`
	// MaxBatchRows bounds the rows per model call.
	MaxBatchRows int `validate:"gte=1"`
	// SerialModel forbids concurrent calls into the model.
	SerialModel bool
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		NSamples:     coalition.Auto,
		Link:         "identity",
		Tolerance:    DefaultTolerance,
		Strictness:   StrictnessWarn,
		L1Rule:       linear.RuleAuto,
		MaxBatchRows: DefaultMaxBatchRows,
	}
}

var validate = validator.New()

// Validate checks every field and returns an InvalidInputError for the first
// offending one.
func (c Config) Validate() error {
	const op = "explainer.Config"
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewInvalidInputError(op, fe.Field(), "failed '"+fe.Tag()+"' validation", fe.Value())
		}
		return errors.NewInvalidInputError(op, "", err.Error(), nil)
	}
	if err := c.selection().Validate(); err != nil {
		return err
	}
	return nil
}

func (c Config) selection() linear.Selection {
	return linear.Selection{Rule: c.L1Rule, Alpha: c.L1Alpha, K: c.L1Features}
}
