// Standard attribute keys for explainer logging.
//
// Keys use a dotted hierarchy ("shap.coalitions", "data.features") so records
// from different components can be filtered together.

package log

// Component context
const (
	// ComponentKey identifies the package emitting the record.
	// Examples: "explainer", "background", "linear"
	ComponentKey = "ml.component"

	// OperationKey names the operation being performed.
	OperationKey = "ml.operation"

	// ModelNameKey identifies the explained model when the caller names it.
	ModelNameKey = "model.name"
)

// Data shape
const (
	// SamplesKey is the number of rows in a dataset (reference data or a batch).
	SamplesKey = "data.samples"

	// FeaturesKey is the number of input features M.
	FeaturesKey = "data.features"

	// OutputsKey is the model output dimensionality D.
	OutputsKey = "data.outputs"

	// BackgroundKey is the number of background rows K.
	BackgroundKey = "data.background"

	// RowsKey is the number of synthetic rows sent in one model call.
	RowsKey = "data.rows"

	// InstanceKey is the index of an instance within a batch.
	InstanceKey = "data.instance"
)

// Explainer run bookkeeping
const (
	// NSamplesKey is the configured coalition budget.
	NSamplesKey = "shap.nsamples"

	// CoalitionsKey is the number of distinct coalitions evaluated.
	CoalitionsKey = "shap.coalitions"

	// VaryingKey is the number of features that differ from the background.
	VaryingKey = "shap.varying_features"

	// ExhaustiveKey reports whether the whole coalition space was enumerated.
	ExhaustiveKey = "shap.exhaustive"

	// LinkKey is the name of the link function.
	LinkKey = "shap.link"

	// ModelCallsKey is the number of model invocations for one instance.
	ModelCallsKey = "shap.model_calls"

	// AdditivityGapKey is the largest additivity gap across outputs.
	AdditivityGapKey = "shap.additivity_gap"

	// DegenerateKey reports a pseudo-inverse fallback in the solver.
	DegenerateKey = "shap.degenerate"

	// SelectedKey is the number of features kept by L1 selection.
	SelectedKey = "shap.selected_features"

	// RegularizationKey is the L1 rule in effect.
	RegularizationKey = "hyperparams.l1_reg"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// IterationKey records an iteration count (k-means, coordinate descent).
	IterationKey = "training.iteration"

	// WorkersKey is the size of a worker pool.
	WorkersKey = "infra.workers"
)

// Error context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationExplain   = "explain"
	OperationBatch     = "explain_batch"
	OperationSummarize = "summarize"
	OperationQuery     = "model_query"
	OperationSolve     = "solve"
)
