// Command fxtrigger drives the effect trigger engine from the command line.
//
// Usage:
//
//	fxtrigger effects
//	fxtrigger chords [--extended=false]
//	fxtrigger render [--sequence "A4 C4+E4+G4:1"] [--effect delay] [--note-trigger A4=1]
//	fxtrigger play   [same flags as render]
//
// render runs a synthesized note sequence through the engine offline and
// prints detected notes, chords and trigger events. play streams the same
// processed signal to the default audio device.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

var (
	sampleRate float64
	blockSize  int
	channels   int
	verbose    bool

	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fxtrigger",
	Short: "Switch audio effects from detected notes, chords and melodies",
	Long: `fxtrigger analyzes an audio stream (pitch, chord, melody), matches the
results against user triggers and routes the signal through the effect
selected by the most recent match.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if sampleRate <= 0 || blockSize <= 0 || channels <= 0 {
			return fmt.Errorf("sample rate, block size and channels must be > 0")
		}
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func flagFormat() core.ProcessorConfig {
	return core.ApplyProcessorOptions(
		core.WithSampleRate(sampleRate),
		core.WithBlockSize(blockSize),
		core.WithChannels(channels),
	)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func init() {
	rootCmd.AddCommand(effectsCmd)
	rootCmd.AddCommand(chordsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(playCmd)

	pf := rootCmd.PersistentFlags()
	pf.Float64Var(&sampleRate, "sample-rate", 44100, "Sample rate in Hz")
	pf.IntVar(&blockSize, "block-size", 256, "Frames per processing block")
	pf.IntVar(&channels, "channels", 2, "Channel count")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose (development) logging")
}
