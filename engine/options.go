package engine

import (
	"go.uber.org/zap"

	"github.com/cwbudde/algo-fxtrigger/analysis"
	"github.com/cwbudde/algo-fxtrigger/dsp/effectchain"
)

const (
	defaultQueueSize   = 256
	defaultEventBuffer = 64
)

type config struct {
	logger         *zap.Logger
	registry       *effectchain.Registry
	chordDetection bool
	queueSize      int
	eventBuffer    int
	analyzerOpts   []analysis.Option
}

func defaultConfig() config {
	return config{
		logger:      zap.NewNop(),
		queueSize:   defaultQueueSize,
		eventBuffer: defaultEventBuffer,
	}
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the control-side logger. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegistry sets the effect factories. The default registry knows all
// six effects.
func WithRegistry(r *effectchain.Registry) Option {
	return func(c *config) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithChordDetection enables the spectrum and chord template path.
func WithChordDetection(enabled bool) Option {
	return func(c *config) { c.chordDetection = enabled }
}

// WithQueueSize sets the capacity of the control command queue.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithEventBuffer sets the capacity of the trigger event channel.
func WithEventBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}

// WithAnalyzerOptions forwards options to the audio analyzer.
func WithAnalyzerOptions(opts ...analysis.Option) Option {
	return func(c *config) { c.analyzerOpts = append(c.analyzerOpts, opts...) }
}
