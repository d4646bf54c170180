// Package core holds the numeric helpers shared by every processor in the
// module: clamping, decibel conversion, signal level measurement, MIDI note
// and frequency conversion, and the multichannel [Block] exchanged with the
// audio boundary.
package core
