// Package analysis extracts the musical content of an audio stream one block
// at a time: level, fundamental pitch, a naive chord root and a melody note.
//
// Each block is measured for RMS over all channels. Blocks at or below the
// note threshold reset the analysis window and report the -1 sentinel for
// note, chord and melody. Louder blocks are downmixed into a sliding mono
// window that feeds the autocorrelation pitch estimator. The chord root is
// the pitch itself and the melody is the newest entry of the note history,
// which may be older than the current block when the estimate misses.
package analysis

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxtrigger/analysis/pitch"
	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

const (
	// MinWindowSize and MaxWindowSize bound the analysis window in samples.
	MinWindowSize = 256
	MaxWindowSize = 8192
	// DefaultWindowSize is the window used until SetWindowSize is called.
	DefaultWindowSize = 2048

	// DefaultNoteThreshold is the RMS gate below which a block is silence.
	DefaultNoteThreshold = 0.1
	// DefaultChordThreshold and DefaultMelodyThreshold are stored and
	// reported but do not gate analysis.
	DefaultChordThreshold  = 0.15
	DefaultMelodyThreshold = 0.1

	// NoteHistoryLen is how many detected notes NoteHistory keeps.
	NoteHistoryLen = 10
	// AmplitudeHistoryLen is how many block levels AmplitudeHistory keeps.
	AmplitudeHistoryLen = 20

	// None marks an absent note, chord or melody.
	None = -1.0
)

// Snapshot is the result of the most recent block.
type Snapshot struct {
	Note      float64
	Chord     float64
	Melody    float64
	Amplitude float64
}

// Silent is the snapshot reported before any audio arrives.
var Silent = Snapshot{Note: None, Chord: None, Melody: None}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWindowSize sets the analysis window (clamped to [256, 8192]).
func WithWindowSize(n int) Option {
	return func(a *Analyzer) { a.windowSize = core.ClampInt(n, MinWindowSize, MaxWindowSize) }
}

// WithPitchOptions forwards options to the pitch estimator.
func WithPitchOptions(opts ...pitch.Option) Option {
	return func(a *Analyzer) { a.pitchOpts = append(a.pitchOpts, opts...) }
}

// Analyzer is the per-block analysis stage. It is not safe for concurrent
// use. Process does not allocate.
type Analyzer struct {
	sampleRate float64
	blockSize  int
	windowSize int

	noteThreshold   float64
	chordThreshold  float64
	melodyThreshold float64

	pitchOpts []pitch.Option
	estimator *pitch.Estimator

	mono   []float64
	window []float64
	filled int

	notes      ring
	amplitudes ring
	snap       Snapshot
}

// New creates an analyzer. Prepare must be called before Process.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		windowSize:      DefaultWindowSize,
		noteThreshold:   DefaultNoteThreshold,
		chordThreshold:  DefaultChordThreshold,
		melodyThreshold: DefaultMelodyThreshold,
		notes:           newRing(NoteHistoryLen),
		amplitudes:      newRing(AmplitudeHistoryLen),
		snap:            Silent,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prepare allocates the window and estimator for sampleRate and clears all
// history. Blocks longer than MaxWindowSize frames only contribute their
// first MaxWindowSize frames to the pitch window.
func (a *Analyzer) Prepare(sampleRate float64, blockSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("analyzer sample rate must be > 0: %f", sampleRate)
	}
	if blockSize <= 0 {
		return fmt.Errorf("analyzer block size must be > 0: %d", blockSize)
	}
	est, err := pitch.New(sampleRate, MaxWindowSize, a.pitchOpts...)
	if err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}

	a.sampleRate = sampleRate
	a.blockSize = blockSize
	a.estimator = est
	a.mono = make([]float64, MaxWindowSize)
	a.window = make([]float64, MaxWindowSize)
	a.Reset()
	return nil
}

// Release drops the buffers allocated by Prepare.
func (a *Analyzer) Release() {
	a.estimator = nil
	a.mono = nil
	a.window = nil
	a.Reset()
}

// Reset clears the window, both histories and the snapshot.
func (a *Analyzer) Reset() {
	a.filled = 0
	a.notes.clear()
	a.amplitudes.clear()
	a.snap = Silent
}

// SampleRate returns the prepared sample rate.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// BlockSize returns the prepared block size.
func (a *Analyzer) BlockSize() int { return a.blockSize }

// WindowSize returns the analysis window length.
func (a *Analyzer) WindowSize() int { return a.windowSize }

// SetWindowSize changes the window length, clamped to [256, 8192], and
// clears the window contents.
func (a *Analyzer) SetWindowSize(n int) {
	a.windowSize = core.ClampInt(n, MinWindowSize, MaxWindowSize)
	a.filled = 0
}

// SetNoteThreshold sets the silence gate, clamped to [0, 1].
func (a *Analyzer) SetNoteThreshold(v float64) { a.noteThreshold = core.Clamp(v, 0, 1) }

// SetChordThreshold sets the chord threshold, clamped to [0, 1].
func (a *Analyzer) SetChordThreshold(v float64) { a.chordThreshold = core.Clamp(v, 0, 1) }

// SetMelodyThreshold sets the melody threshold, clamped to [0, 1].
func (a *Analyzer) SetMelodyThreshold(v float64) { a.melodyThreshold = core.Clamp(v, 0, 1) }

// NoteThreshold returns the silence gate.
func (a *Analyzer) NoteThreshold() float64 { return a.noteThreshold }

// ChordThreshold returns the chord threshold. It is reported but does not
// gate analysis.
func (a *Analyzer) ChordThreshold() float64 { return a.chordThreshold }

// MelodyThreshold returns the melody threshold. It is reported but does not
// gate analysis.
func (a *Analyzer) MelodyThreshold() float64 { return a.melodyThreshold }

// Snapshot returns the result of the last processed block.
func (a *Analyzer) Snapshot() Snapshot { return a.snap }

// NoteHistory returns up to ten recent notes, oldest first.
func (a *Analyzer) NoteHistory() []float64 {
	return a.notes.appendTo(make([]float64, 0, a.notes.len()))
}

// AmplitudeHistory returns up to twenty recent block levels, oldest first.
func (a *Analyzer) AmplitudeHistory() []float64 {
	return a.amplitudes.appendTo(make([]float64, 0, a.amplitudes.len()))
}

// Frame returns the filled part of the mono analysis window, oldest sample
// first. The slice is owned by the analyzer and changes with each Process.
func (a *Analyzer) Frame() []float64 {
	if a.window == nil {
		return nil
	}
	size := a.windowSize
	return a.window[size-a.filled : size]
}

// Process analyses one block and returns the new snapshot. Before Prepare
// only the amplitude is measured.
func (a *Analyzer) Process(b core.Block) Snapshot {
	amp := b.RMS()
	a.amplitudes.push(amp)
	a.snap = Snapshot{Note: None, Chord: None, Melody: None, Amplitude: amp}

	if amp <= a.noteThreshold || a.estimator == nil {
		a.filled = 0
		return a.snap
	}

	a.pushWindow(b)

	if note := a.estimator.Note(a.Frame()); note >= 0 {
		a.notes.push(note)
		a.snap.Note = note
		a.snap.Chord = note
	}
	// The melody survives a missed estimate while the block is above the gate.
	if melody, ok := a.notes.last(); ok {
		a.snap.Melody = melody
	}
	return a.snap
}

func (a *Analyzer) pushWindow(b core.Block) {
	frames := b.Downmix(a.mono)
	if frames == 0 {
		return
	}
	size := a.windowSize
	win := a.window[:size]
	if frames >= size {
		copy(win, a.mono[frames-size:frames])
		a.filled = size
		return
	}
	copy(win, win[frames:])
	copy(win[size-frames:], a.mono[:frames])
	a.filled = min(a.filled+frames, size)
}
