package effects

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies an effect algorithm.
type Kind int

const (
	KindDistortion Kind = iota
	KindReverb
	KindDelay
	KindChorus
	KindFilter
	KindCompressor
)

// KindCount is the number of effect kinds.
const KindCount = 6

// ErrUnknownKind is returned for kinds outside the closed set.
var ErrUnknownKind = errors.New("unknown effect kind")

var kindNames = [KindCount]string{
	KindDistortion: "distortion",
	KindReverb:     "reverb",
	KindDelay:      "delay",
	KindChorus:     "chorus",
	KindFilter:     "filter",
	KindCompressor: "compressor",
}

var kindDescriptions = [KindCount]string{
	KindDistortion: "Soft-clip distortion with tone control",
	KindReverb:     "Parallel comb filter reverb",
	KindDelay:      "Feedback delay",
	KindChorus:     "Modulated delay chorus",
	KindFilter:     "Multimode resonant biquad filter",
	KindCompressor: "Peak compressor with makeup gain",
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool { return k >= 0 && k < KindCount }

// String returns the lower-case kind name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Description returns a short human-readable description.
func (k Kind) Description() string {
	if !k.Valid() {
		return ""
	}
	return kindDescriptions[k]
}

// ParseKind resolves a kind name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, kn := range kindNames {
		if kn == n {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Kinds returns all kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, KindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}
