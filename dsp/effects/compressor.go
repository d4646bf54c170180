package effects

import (
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

const (
	compressorLevelOffset = 1e-6
	compressorFloorDB     = -120.0
)

// Compressor is a dB-domain peak compressor.
//
// The detector follows 20*log10(|x|+1e-6) with one-pole attack and release
// coefficients exp(-1000/(ms*sampleRate)). Above threshold the gain is
// reduced by (env-threshold)*(1-1/ratio) dB, then linear makeup is applied.
// In ProcessBlock all channels share the envelope, driven by the loudest
// channel of each frame.
type Compressor struct {
	sampleRate  float64
	thresholdDB float64
	ratio       float64
	attackMs    float64
	releaseMs   float64
	makeupDB    float64

	attackCoeff   float64
	releaseCoeff  float64
	makeupLin     float64
	envelopeDB    float64
	gainReduction float64
	prepared      bool
}

// NewCompressor creates a compressor with default settings.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	c := &Compressor{
		thresholdDB: param(KindCompressor, CompressorThreshold).Default,
		ratio:       param(KindCompressor, CompressorRatio).Default,
		attackMs:    param(KindCompressor, CompressorAttack).Default,
		releaseMs:   param(KindCompressor, CompressorRelease).Default,
		makeupDB:    param(KindCompressor, CompressorMakeupGain).Default,
	}
	if err := c.Prepare(sampleRate, defaultChannels); err != nil {
		return nil, err
	}
	return c, nil
}

// Prepare recomputes time constants for sampleRate and clears the envelope.
func (c *Compressor) Prepare(sampleRate float64, channels int) error {
	if err := validateSampleRate("compressor", sampleRate); err != nil {
		return err
	}
	if err := validateChannels("compressor", channels); err != nil {
		return err
	}
	c.sampleRate = sampleRate
	c.updateTimeConstants()
	c.makeupLin = core.DBToLinear(c.makeupDB)
	c.prepared = true
	c.Reset()
	return nil
}

// Release marks the compressor idle; processing passes audio through.
func (c *Compressor) Release() { c.prepared = false }

// Reset returns the envelope to silence.
func (c *Compressor) Reset() {
	c.envelopeDB = compressorFloorDB
	c.gainReduction = 0
}

// SetThreshold sets the threshold in dB, clamped to [-60, 0].
func (c *Compressor) SetThreshold(dB float64) {
	c.thresholdDB = param(KindCompressor, CompressorThreshold).Clamp(dB)
}

// SetRatio sets the ratio, clamped to [1, 20].
func (c *Compressor) SetRatio(ratio float64) {
	c.ratio = param(KindCompressor, CompressorRatio).Clamp(ratio)
}

// SetAttack sets the attack time in ms, clamped to [0.1, 100].
func (c *Compressor) SetAttack(ms float64) {
	c.attackMs = param(KindCompressor, CompressorAttack).Clamp(ms)
	c.updateTimeConstants()
}

// SetRelease sets the release time in ms, clamped to [10, 1000].
func (c *Compressor) SetRelease(ms float64) {
	c.releaseMs = param(KindCompressor, CompressorRelease).Clamp(ms)
	c.updateTimeConstants()
}

// SetMakeupGain sets makeup gain in dB, clamped to [0, 24].
func (c *Compressor) SetMakeupGain(dB float64) {
	c.makeupDB = param(KindCompressor, CompressorMakeupGain).Clamp(dB)
	c.makeupLin = core.DBToLinear(c.makeupDB)
}

// Threshold returns the threshold in dB.
func (c *Compressor) Threshold() float64 { return c.thresholdDB }

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio }

// Attack returns the attack time in ms.
func (c *Compressor) Attack() float64 { return c.attackMs }

// ReleaseTime returns the release time in ms.
func (c *Compressor) ReleaseTime() float64 { return c.releaseMs }

// MakeupGain returns makeup gain in dB.
func (c *Compressor) MakeupGain() float64 { return c.makeupDB }

// Envelope returns the detector level in dB.
func (c *Compressor) Envelope() float64 { return c.envelopeDB }

// GainReductionDB returns the most recent gain reduction (>= 0 dB).
func (c *Compressor) GainReductionDB() float64 { return c.gainReduction }

// StaticReductionDB evaluates the static curve: the reduction in dB applied
// to a steady input at levelDB.
func (c *Compressor) StaticReductionDB(levelDB float64) float64 {
	if levelDB <= c.thresholdDB {
		return 0
	}
	return (levelDB - c.thresholdDB) * (1 - 1/c.ratio)
}

// ProcessSample processes one mono sample.
func (c *Compressor) ProcessSample(x float64) float64 {
	if !c.prepared {
		return x
	}
	return x * c.detect(math.Abs(x))
}

// ProcessBlock processes b in place with a shared envelope.
func (c *Compressor) ProcessBlock(b core.Block) {
	if !c.prepared {
		return
	}
	frames := b.Frames()
	for i := 0; i < frames; i++ {
		peak := 0.0
		for _, buf := range b {
			if a := math.Abs(buf[i]); a > peak {
				peak = a
			}
		}
		g := c.detect(peak)
		for _, buf := range b {
			buf[i] *= g
		}
	}
}

// detect advances the envelope with a new peak magnitude and returns the
// linear gain to apply, makeup included.
func (c *Compressor) detect(magnitude float64) float64 {
	levelDB := core.LinearToDB(magnitude + compressorLevelOffset)

	coeff := c.releaseCoeff
	if levelDB > c.envelopeDB {
		coeff = c.attackCoeff
	}
	c.envelopeDB = coeff*(c.envelopeDB-levelDB) + levelDB

	c.gainReduction = c.StaticReductionDB(c.envelopeDB)
	return core.DBToLinear(-c.gainReduction) * c.makeupLin
}

func (c *Compressor) updateTimeConstants() {
	if c.sampleRate <= 0 {
		return
	}
	c.attackCoeff = math.Exp(-1000 / (c.attackMs * c.sampleRate))
	c.releaseCoeff = math.Exp(-1000 / (c.releaseMs * c.sampleRate))
}
