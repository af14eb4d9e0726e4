package explainer

import (
	"github.com/YuminosukeSato/kernelshap/coalition"
	"github.com/YuminosukeSato/kernelshap/link"
	"github.com/YuminosukeSato/kernelshap/linear"
	"github.com/YuminosukeSato/kernelshap/pkg/log"
)

type settings struct {
	cfg     Config
	logger  log.Logger
	metrics *Metrics
}

// Option configures a KernelExplainer.
type Option func(*settings)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}

// WithNSamples sets an explicit coalition budget.
func WithNSamples(n int) Option {
	return func(s *settings) {
		s.cfg.NSamples = n
	}
}

// WithAutoSamples uses a budget of 2M + 2048 coalitions.
func WithAutoSamples() Option {
	return WithNSamples(coalition.Auto)
}

// WithExhaustive evaluates every coalition. Explanations fail with
// InvalidInput when more than 30 features vary.
func WithExhaustive() Option {
	return WithNSamples(coalition.Exhaustive)
}

// WithLink sets the link function.
func WithLink(l link.Link) Option {
	return func(s *settings) {
		s.cfg.Link = l.Name()
	}
}

// WithTolerance sets the relative additivity tolerance.
func WithTolerance(tol float64) Option {
	return func(s *settings) {
		s.cfg.Tolerance = tol
	}
}

// WithStrictness sets how additivity violations are reported.
func WithStrictness(st Strictness) Option {
	return func(s *settings) {
		s.cfg.Strictness = st
	}
}

// WithL1 sets the feature-selection rule.
func WithL1(rule linear.Rule) Option {
	return func(s *settings) {
		s.cfg.L1Rule = rule
	}
}

// WithL1Alpha selects features with a fixed LASSO penalty.
func WithL1Alpha(alpha float64) Option {
	return func(s *settings) {
		s.cfg.L1Rule = linear.RuleAlpha
		s.cfg.L1Alpha = alpha
	}
}

// WithL1NumFeatures keeps the first k features entering the LASSO path.
func WithL1NumFeatures(k int) Option {
	return func(s *settings) {
		s.cfg.L1Rule = linear.RuleNumFeatures
		s.cfg.L1Features = k
	}
}

// WithSeed sets the seed of the coalition sampler.
func WithSeed(seed int64) Option {
	return func(s *settings) {
		s.cfg.Seed = seed
	}
}

// WithWorkers bounds concurrency; 0 means one worker per CPU.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.cfg.Workers = n
	}
}

// WithMaxBatchRows bounds the rows per model call.
func WithMaxBatchRows(n int) Option {
	return func(s *settings) {
		s.cfg.MaxBatchRows = n
	}
}

// WithSerialModel serializes every call into the model, including calls made
// for different rows of a batch.
func WithSerialModel(serial bool) Option {
	return func(s *settings) {
		s.cfg.SerialModel = serial
	}
}

// WithLogger sets the logger. The process default from log.GetLogger is used
// otherwise.
func WithLogger(l log.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMetrics records Prometheus metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}
