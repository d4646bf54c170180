package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-fxtrigger/engine"
)

var playBufferMs int

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Stream a synthesized sequence through the engine to the audio device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, input, err := newSession(session, flagFormat())
		if err != nil {
			return err
		}
		ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		// The oto reader goroutine calls Process. Snapshot and Events are safe
		// to use from this goroutine meanwhile.
		return play(ctx, cmd, e, input)
	},
}

func play(ctx context.Context, cmd *cobra.Command, e *engine.Engine, input []float64) error {
	f := e.Format()
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(f.SampleRate),
		ChannelCount: f.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(playBufferMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	s := newStream(e, input, f.Channels, f.BlockSize)
	player := otoCtx.NewPlayer(s)
	defer player.Close()
	player.Play()
	logger.Info("playback started",
		zap.Float64("sample_rate", f.SampleRate),
		zap.Int("channels", f.Channels),
		zap.Int("frames", len(input)),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headingStyle.Render("fxtrigger play"))
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return nil
		case ev := <-e.Events():
			fmt.Fprintf(out, "effect %d %s\n", ev.EffectID, onOff(ev.Active))
		case <-tick.C:
			if !player.IsPlaying() {
				if err := player.Err(); err != nil {
					return fmt.Errorf("playback: %w", err)
				}
				return nil
			}
		}
	}
}

func init() {
	addSessionFlags(renderCmd)
	addSessionFlags(playCmd)
	playCmd.Flags().IntVar(&playBufferMs, "buffer-ms", 40, "Audio device buffer length in milliseconds")
}
