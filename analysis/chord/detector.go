// Package chord turns the peaks of a magnitude spectrum into pitch classes
// and matches them against a table of chord templates.
//
// Matching tries every detected pitch class as the root. The classes are
// transposed to that root, the root is added as interval 0, and the sorted
// result is compared position by position, within one semitone, against
// every template of the same length. A candidate's confidence is the share
// of template intervals present in the transposed set plus a bonus of up to
// 0.2 for the number of detected classes (saturating at six).
package chord

import (
	"math"
	"slices"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

const (
	// DefaultDetectionThreshold is the default spectral peak floor.
	DefaultDetectionThreshold = 0.1
	// DefaultConfidenceThreshold is the default minimum candidate confidence.
	DefaultConfidenceThreshold = 0.5

	// NameNone is reported when no pitch class is found.
	NameNone = "None"
	// NameUnknown is reported when classes are found but no template matches.
	NameUnknown = "Unknown"

	matchTolerance   = 1
	noteBonusCount   = 6.0
	noteBonusWeight  = 0.2
	maxResultsPerRun = 12 * 64
)

// Info describes one detected chord. Intervals is shared with the template
// table and must not be modified.
type Info struct {
	Name       string
	Intervals  []int
	Confidence float64
	Root       int // pitch class 0..11, or -1
}

// Peak is a local maximum of a magnitude spectrum.
type Peak struct {
	Frequency float64
	Magnitude float64
}

// Detector matches spectra against a template table. It is not safe for
// concurrent use. Detect and DetectAllInto do not allocate once the result
// buffer has grown to the table size.
type Detector struct {
	table      *Table
	extended   bool
	floor      float64
	confidence float64

	classes    [12]int
	nClasses   int
	transposed [12]int
	results    []Info
}

// NewDetector creates a detector with the built-in table, extended
// templates enabled.
func NewDetector() *Detector {
	return &Detector{
		table:      DefaultTable(),
		extended:   true,
		floor:      DefaultDetectionThreshold,
		confidence: DefaultConfidenceThreshold,
		results:    make([]Info, 0, maxResultsPerRun),
	}
}

// Table returns the current template table.
func (d *Detector) Table() *Table { return d.table }

// SetTable swaps in a template table. A nil table is ignored.
func (d *Detector) SetTable(t *Table) {
	if t != nil {
		d.table = t
	}
}

// AddCustomChord adds or replaces a named template. It allocates a new table.
func (d *Detector) AddCustomChord(name string, intervals []int) error {
	t, err := d.table.With(name, intervals)
	if err != nil {
		return err
	}
	d.table = t
	return nil
}

// RemoveCustomChord removes a template by name. Built-in names may be
// removed too; unknown names are ignored.
func (d *Detector) RemoveCustomChord(name string) {
	d.table = d.table.Without(name)
}

// AvailableChords returns the names of the templates in use, sorted.
func (d *Detector) AvailableChords() []string { return d.table.Names(d.extended) }

// SetExtendedChords enables or disables the extended templates.
func (d *Detector) SetExtendedChords(enabled bool) { d.extended = enabled }

// ExtendedChords reports whether extended templates are used.
func (d *Detector) ExtendedChords() bool { return d.extended }

// SetDetectionThreshold sets the spectral peak floor (>= 0).
func (d *Detector) SetDetectionThreshold(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	d.floor = v
}

// DetectionThreshold returns the spectral peak floor.
func (d *Detector) DetectionThreshold() float64 { return d.floor }

// SetConfidenceThreshold sets the minimum confidence, clamped to [0, 1].
func (d *Detector) SetConfidenceThreshold(v float64) { d.confidence = core.Clamp(v, 0, 1) }

// ConfidenceThreshold returns the minimum confidence.
func (d *Detector) ConfidenceThreshold() float64 { return d.confidence }

// Peaks appends the local maxima of mags above the detection floor to dst.
// The first and last bins are never peaks.
func (d *Detector) Peaks(dst []Peak, freqs, mags []float64) []Peak {
	n := min(len(freqs), len(mags))
	for i := 1; i < n-1; i++ {
		if mags[i] > d.floor && mags[i] > mags[i-1] && mags[i] > mags[i+1] {
			dst = append(dst, Peak{Frequency: freqs[i], Magnitude: mags[i]})
		}
	}
	return dst
}

// PitchClasses appends the distinct pitch classes of the spectral peaks to
// dst in order of first occurrence.
func (d *Detector) PitchClasses(dst []int, freqs, mags []float64) []int {
	d.extract(freqs, mags)
	return append(dst, d.classes[:d.nClasses]...)
}

// Detect returns the most confident chord. Ties go to the candidate found
// first: lower root class, then lower template name.
func (d *Detector) Detect(freqs, mags []float64) Info {
	d.results = d.DetectAllInto(d.results[:0], freqs, mags)
	if d.nClasses == 0 {
		return Info{Name: NameNone, Root: -1}
	}
	if len(d.results) == 0 {
		return Info{Name: NameUnknown, Root: d.classes[0]}
	}

	best := 0
	for i := 1; i < len(d.results); i++ {
		if d.results[i].Confidence > d.results[best].Confidence {
			best = i
		}
	}
	return d.results[best]
}

// DetectAll returns every candidate at or above the confidence threshold.
func (d *Detector) DetectAll(freqs, mags []float64) []Info {
	return d.DetectAllInto(nil, freqs, mags)
}

// DetectAllInto appends every candidate at or above the confidence threshold
// to dst. Fewer than two pitch classes yield no candidates.
func (d *Detector) DetectAllInto(dst []Info, freqs, mags []float64) []Info {
	d.extract(freqs, mags)
	return d.MatchClassesInto(dst, d.classes[:d.nClasses])
}

// MatchClassesInto runs the template search on an explicit pitch-class set.
// classes is not modified.
func (d *Detector) MatchClassesInto(dst []Info, classes []int) []Info {
	if len(classes) < 2 || len(classes) > 12 {
		return dst
	}

	var sorted [12]int
	notes := sorted[:len(classes)]
	for i, c := range classes {
		notes[i] = core.PitchClass(c)
	}
	slices.Sort(notes)

	bonus := math.Min(float64(len(notes))/noteBonusCount, 1) * noteBonusWeight

	for _, root := range notes {
		t := d.transposed[:0]
		for _, n := range notes {
			if iv := (n - root + 12) % 12; iv != 0 {
				t = append(t, iv)
			}
		}
		t = append(t, 0)
		slices.Sort(t)

		for i := range d.table.templates {
			tpl := &d.table.templates[i]
			if tpl.Extended && !d.extended {
				continue
			}
			if !intervalsMatch(t, tpl.Intervals) {
				continue
			}
			conf := math.Min(float64(countPresent(tpl.Intervals, t))/float64(len(tpl.Intervals))+bonus, 1)
			if conf >= d.confidence {
				dst = append(dst, Info{Name: tpl.Name, Intervals: tpl.Intervals, Confidence: conf, Root: root})
			}
		}
	}
	return dst
}

func (d *Detector) extract(freqs, mags []float64) {
	var seen [12]bool
	d.nClasses = 0

	n := min(len(freqs), len(mags))
	for i := 1; i < n-1; i++ {
		m := mags[i]
		if !(m > d.floor && m > mags[i-1] && m > mags[i+1]) {
			continue
		}
		f := freqs[i]
		if f <= 0 {
			continue
		}
		pc := core.PitchClass(int(math.Round(core.FrequencyToNote(f))))
		if !seen[pc] {
			seen[pc] = true
			d.classes[d.nClasses] = pc
			d.nClasses++
		}
	}
}

func intervalsMatch(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < -matchTolerance || diff > matchTolerance {
			return false
		}
	}
	return true
}

func countPresent(intervals, set []int) int {
	count := 0
	for _, iv := range intervals {
		for _, s := range set {
			if s == iv {
				count++
				break
			}
		}
	}
	return count
}
