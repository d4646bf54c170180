package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// ReferenceFrequency is the tuning of MIDI note 69 (A4).
	ReferenceFrequency = 440.0
	// ReferenceNote is the MIDI note of ReferenceFrequency.
	ReferenceNote = 69.0
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var errInvalidNoteName = errors.New("invalid note name")

// FrequencyToNote converts a frequency in Hz to a fractional MIDI note number.
// Non-positive frequencies return -1.
func FrequencyToNote(freq float64) float64 {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return -1
	}
	return 12*math.Log2(freq/ReferenceFrequency) + ReferenceNote
}

// NoteToFrequency converts a (possibly fractional) MIDI note number to Hz.
func NoteToFrequency(note float64) float64 {
	return ReferenceFrequency * math.Pow(2, (note-ReferenceNote)/12)
}

// PitchClass reduces a MIDI note number to 0..11.
func PitchClass(note int) int {
	pc := note % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

// NoteName formats a MIDI note number as a scientific pitch name, e.g. 60 -> "C4".
func NoteName(note int) string {
	octave := note/12 - 1
	if note < 0 && note%12 != 0 {
		octave--
	}
	return noteNames[PitchClass(note)] + strconv.Itoa(octave)
}

// ParseNoteName parses names such as "C4", "f#3", "A-1" or "Bb2" into a MIDI
// note number.
func ParseNoteName(name string) (int, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", errInvalidNoteName, name)
	}

	letter := strings.ToUpper(s[:1])
	pc := -1
	for i, n := range noteNames {
		if n == letter {
			pc = i
			break
		}
	}
	if pc < 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidNoteName, name)
	}

	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		pc++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		pc--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidNoteName, name)
	}

	return (octave+1)*12 + pc, nil
}
