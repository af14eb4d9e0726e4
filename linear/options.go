package linear

// DefaultConditionLimit is the condition number above which the Cholesky
// solution is discarded in favour of the SVD pseudo-inverse.
const DefaultConditionLimit = 1e12

type solveConfig struct {
	selection     Selection
	spaceFraction float64
	workers       int
	condLimit     float64
}

func defaultSolveConfig() solveConfig {
	return solveConfig{
		selection:     Selection{Rule: RuleOff},
		spaceFraction: 1,
		condLimit:     DefaultConditionLimit,
	}
}

// Option configures SolveConstrained.
type Option func(*solveConfig)

// WithSelection sets the L1 feature-selection rule applied before each solve.
func WithSelection(sel Selection) Option {
	return func(c *solveConfig) {
		c.selection = sel
	}
}

// WithSpaceFraction sets the share of the coalition space that was evaluated.
// RuleAuto uses it to decide whether to select features.
func WithSpaceFraction(f float64) Option {
	return func(c *solveConfig) {
		c.spaceFraction = f
	}
}

// WithWorkers bounds the number of outputs solved concurrently. Values below
// 1 mean one worker per CPU.
func WithWorkers(n int) Option {
	return func(c *solveConfig) {
		c.workers = n
	}
}

// WithConditionLimit sets the condition-number threshold for the Cholesky path.
func WithConditionLimit(limit float64) Option {
	return func(c *solveConfig) {
		c.condLimit = limit
	}
}
