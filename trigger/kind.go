package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects which analysis value a trigger listens to.
type Kind int

const (
	KindNote Kind = iota
	KindChord
	KindMelody
)

// KindCount is the number of trigger kinds.
const KindCount = 3

// ErrUnknownKind is returned for kinds outside the closed set.
var ErrUnknownKind = errors.New("unknown trigger kind")

var kindNames = [KindCount]string{
	KindNote:   "note",
	KindChord:  "chord",
	KindMelody: "melody",
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool { return k >= 0 && k < KindCount }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
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
