// Package engine runs the analysis, trigger and effect stages on a live
// audio stream and accepts control changes from another goroutine.
//
// Process is called on the audio thread, one block at a time. Every other
// method belongs to the control side. Control writes update a mirror under
// a mutex, so getters return the clamped value at once, and travel to the
// audio thread as commands on a bounded channel. Process applies the queued
// commands at the start of each block, then runs input gain, the analyzer,
// optional chord detection, the trigger check, the active effect and the
// output gain, and finally publishes a snapshot. The audio path never
// blocks, never logs and does not allocate.
//
// Prepare is the one control method that touches audio-thread state
// directly. It must not run concurrently with Process.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-fxtrigger/analysis"
	"github.com/cwbudde/algo-fxtrigger/analysis/chord"
	"github.com/cwbudde/algo-fxtrigger/analysis/pitch"
	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/effectchain"
	"github.com/cwbudde/algo-fxtrigger/dsp/spectrum"
	"github.com/cwbudde/algo-fxtrigger/trigger"
)

var (
	// ErrQueueFull is returned when the audio thread has not drained the
	// control queue fast enough.
	ErrQueueFull = errors.New("engine control queue full")
	// ErrNotFound is returned for unknown effect, trigger or parameter ids.
	ErrNotFound = errors.New("not found")
)

// MaxGain bounds input and output gain.
const MaxGain = 10.0

// Event reports a trigger activation change.
type Event struct {
	EffectID int
	Active   bool
}

// Snapshot is the engine state published after each block.
type Snapshot struct {
	Analysis     analysis.Snapshot
	Chord        chord.Info
	ActiveEffect int
	Blocks       uint64
}

type command func(rt *realtime)

// Engine is the real-time orchestrator. Create it with New.
type Engine struct {
	cfg config
	log *zap.Logger

	commands chan command
	events   chan Event
	dropped  atomic.Uint64
	active   atomic.Int64
	rt       *realtime

	snapMu sync.Mutex
	snap   Snapshot

	mu  sync.Mutex
	ctl control
}

// control is the control-side mirror guarded by Engine.mu.
type control struct {
	format       core.ProcessorConfig
	effects      []effectchain.Info
	nextEffectID int
	triggers     *trigger.Manager
	analyzer     *analysis.Analyzer
	detector     *chord.Detector
	chordOn      bool
	inputGain    float64
	outputGain   float64
}

// realtime is the state owned by the audio thread.
type realtime struct {
	analyzer  *analysis.Analyzer
	detector  *chord.Detector
	spectrum  *spectrum.Analyzer
	triggers  *trigger.Manager
	processor *effectchain.Processor

	chordOn    bool
	chord      chord.Info
	inputGain  float64
	outputGain float64
	blocks     uint64

	events  chan<- Event
	dropped *atomic.Uint64
}

var noChord = chord.Info{Name: chord.NameNone, Root: -1}

// New creates an engine prepared for the default format (44.1 kHz, 256
// frames, stereo).
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = effectchain.DefaultRegistry()
	}

	format := core.DefaultProcessorConfig()
	e := &Engine{
		cfg:      cfg,
		log:      cfg.logger,
		commands: make(chan command, cfg.queueSize),
		events:   make(chan Event, cfg.eventBuffer),
		ctl: control{
			format:       format,
			nextEffectID: 1,
			triggers:     trigger.NewManager(),
			analyzer:     analysis.New(cfg.analyzerOpts...),
			detector:     chord.NewDetector(),
			chordOn:      cfg.chordDetection,
			inputGain:    1,
			outputGain:   1,
		},
	}
	e.active.Store(effectchain.NoEffect)

	rt := &realtime{
		analyzer:   analysis.New(cfg.analyzerOpts...),
		detector:   chord.NewDetector(),
		triggers:   trigger.NewManager(),
		processor:  effectchain.New(effectchain.ContextFromConfig(format), cfg.registry),
		chordOn:    cfg.chordDetection,
		chord:      noChord,
		inputGain:  1,
		outputGain: 1,
		events:     e.events,
		dropped:    &e.dropped,
	}
	rt.triggers.SetCallback(rt.onTrigger)
	e.rt = rt
	e.snap = Snapshot{Analysis: analysis.Silent, Chord: noChord, ActiveEffect: effectchain.NoEffect}

	err := e.Prepare(format.SampleRate, format.BlockSize, format.Channels)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Prepare configures every stage for a new stream format. Pending control
// commands are applied first. Runtime state (analysis history, trigger
// timers, effect tails) is cleared. It allocates and must not run
// concurrently with Process.
func (e *Engine) Prepare(sampleRate float64, blockSize, channels int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("engine sample rate must be > 0: %f", sampleRate)
	}
	if blockSize <= 0 {
		return fmt.Errorf("engine block size must be > 0: %d", blockSize)
	}
	if channels <= 0 {
		return fmt.Errorf("engine channel count must be > 0: %d", channels)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.drain()

	format := core.ProcessorConfig{SampleRate: sampleRate, BlockSize: blockSize, Channels: channels}
	rt := e.rt

	err := rt.processor.Prepare(effectchain.ContextFromConfig(format))
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	err = rt.analyzer.Prepare(sampleRate, blockSize)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	spec, err := spectrum.New(sampleRate, analysis.MaxWindowSize)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	rt.spectrum = spec
	rt.chord = noChord
	rt.triggers.Reset()
	rt.processor.Reset()

	e.ctl.format = format
	e.log.Info("engine prepared",
		zap.Float64("sample_rate", sampleRate),
		zap.Int("block_size", blockSize),
		zap.Int("channels", channels),
		zap.Int("effects", len(e.ctl.effects)),
		zap.Int("triggers", e.ctl.triggers.Len()),
	)
	return nil
}

// Format returns the prepared stream format.
func (e *Engine) Format() core.ProcessorConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctl.format
}

// Process runs one block through the engine in place.
func (e *Engine) Process(b core.Block) {
	e.drain()

	rt := e.rt
	if rt.inputGain != 1 {
		b.Scale(rt.inputGain)
	}

	snap := rt.analyzer.Process(b)
	if rt.chordOn {
		rt.detectChord()
	}

	rt.triggers.Check(snap.Note, snap.Chord, snap.Melody, b.Frames())
	rt.processor.ProcessBlock(b)

	if rt.outputGain != 1 {
		b.Scale(rt.outputGain)
	}
	rt.blocks++

	active := rt.processor.Active()
	e.active.Store(int64(active))

	// A reader holding the lock only delays publication to the next block.
	if e.snapMu.TryLock() {
		e.snap = Snapshot{Analysis: snap, Chord: rt.chord, ActiveEffect: active, Blocks: rt.blocks}
		e.snapMu.Unlock()
	}
}

// drain applies the commands queued so far. Commands sent while draining
// wait for the next block.
func (e *Engine) drain() {
	for n := len(e.commands); n > 0; n-- {
		cmd := <-e.commands
		cmd(e.rt)
	}
}

// Snapshot returns the most recently published state.
func (e *Engine) Snapshot() Snapshot {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()
	return e.snap
}

// Events delivers trigger activation changes. Events are dropped when the
// channel is full.
func (e *Engine) Events() <-chan Event { return e.events }

// DroppedEvents returns the number of events lost to a full channel.
func (e *Engine) DroppedEvents() uint64 { return e.dropped.Load() }

// ActiveEffect returns the effect in the signal path as of the last block or
// the last control change that selected one.
func (e *Engine) ActiveEffect() int { return int(e.active.Load()) }

func (rt *realtime) detectChord() {
	frame := rt.analyzer.Frame()
	if len(frame) < pitch.MinSamples || rt.spectrum == nil {
		rt.chord = noChord
		return
	}
	freqs, mags, err := rt.spectrum.Compute(frame)
	if err != nil {
		rt.chord = noChord
		return
	}
	rt.chord = rt.detector.Detect(freqs, mags)
}

func (rt *realtime) onTrigger(effectID int, active bool) {
	if active {
		rt.processor.SetActive(effectID)
	} else if rt.processor.Active() == effectID {
		rt.processor.SetActive(effectchain.NoEffect)
	}

	select {
	case rt.events <- Event{EffectID: effectID, Active: active}:
	default:
		rt.dropped.Add(1)
	}
}
