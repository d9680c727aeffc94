package rtengine

import "go.uber.org/zap"

// Option is a functional option for configuring an Engine (teacher's
// functional-options idiom, generalized from delimiters/error-strategy to
// this domain's recursion depth, separator and pluggable resolvers).
type Option func(*engineConfig)

type engineConfig struct {
	maxRecursionDepth int
	defaultSeparator  string
	sampler           Sampler
	diceResolver      DiceResolver
	mathResolver      MathResolver
	logger            *zap.Logger
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		maxRecursionDepth: DefaultMaxRecursionDepth,
		defaultSeparator:  DefaultSeparator,
		sampler:           NewDefaultSampler(),
		diceResolver:      DefaultDiceResolver{},
		mathResolver:      DefaultMathResolver{},
		logger:            nil,
	}
}

// WithMaxRecursionDepth overrides the default recursion depth ceiling
// (spec §4.6). 0 disables the limit.
func WithMaxRecursionDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxRecursionDepth = depth
	}
}

// WithDefaultSeparator overrides the default join separator used when a
// multi-roll/capture-into/collect/again expression doesn't specify one
// (spec §4.1's "|\"literal\"" suffix default).
func WithDefaultSeparator(sep string) Option {
	return func(c *engineConfig) {
		c.defaultSeparator = sep
	}
}

// WithSampler replaces the default math/rand-backed weighted sampler
// (spec §4.3's "abstract sampler" external collaborator).
func WithSampler(s Sampler) Option {
	return func(c *engineConfig) {
		if s != nil {
			c.sampler = s
		}
	}
}

// WithDiceResolver replaces the default dice: resolver.
func WithDiceResolver(r DiceResolver) Option {
	return func(c *engineConfig) {
		if r != nil {
			c.diceResolver = r
		}
	}
}

// WithMathResolver replaces the default math: resolver.
func WithMathResolver(r MathResolver) Option {
	return func(c *engineConfig) {
		if r != nil {
			c.mathResolver = r
		}
	}
}

// WithLogger sets the structured logger used for engine diagnostics.
// Default: a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
