package main

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

// processor is the part of the engine a stream drives.
type processor interface {
	Process(b core.Block)
}

// stream feeds a mono input through a processor block by block. Each block
// copies the input into every channel. A short final block is zero padded.
type stream struct {
	proc   processor
	input  []float64
	pos    int
	block  core.Block
	blocks uint64

	// onBlock, if set, runs after each processed block.
	onBlock func(b core.Block)

	pcm     []byte
	pending []byte
}

func newStream(proc processor, input []float64, channels, frames int) *stream {
	return &stream{
		proc:  proc,
		input: input,
		block: core.NewBlock(channels, frames),
		pcm:   make([]byte, 0, channels*frames*4),
	}
}

// next processes the following block. It returns false at the end of input.
func (s *stream) next() bool {
	if s.pos >= len(s.input) {
		return false
	}
	n := copy(s.block[0], s.input[s.pos:])
	clear(s.block[0][n:])
	for ch := 1; ch < len(s.block); ch++ {
		copy(s.block[ch], s.block[0])
	}
	s.pos += len(s.block[0])

	s.proc.Process(s.block)
	s.blocks++
	if s.onBlock != nil {
		s.onBlock(s.block)
	}
	return true
}

// Read renders interleaved 32-bit little endian float PCM.
func (s *stream) Read(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if len(s.pending) == 0 {
			if !s.next() {
				break
			}
			s.pending = appendPCM(s.pcm[:0], s.block)
		}
		n := copy(p[written:], s.pending)
		s.pending = s.pending[n:]
		written += n
	}
	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

func appendPCM(dst []byte, b core.Block) []byte {
	for i := 0; i < b.Frames(); i++ {
		for ch := range b {
			v := float32(core.Clamp(b[ch][i], -1, 1))
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
		}
	}
	return dst
}
