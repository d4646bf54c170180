package effectchain

import "github.com/cwbudde/algo-fxtrigger/dsp/core"

// Context provides the stream format effect units are prepared for.
type Context struct {
	SampleRate float64
	Channels   int
}

// ContextFromConfig derives a Context from processor options.
func ContextFromConfig(cfg core.ProcessorConfig) Context {
	return Context{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
}
