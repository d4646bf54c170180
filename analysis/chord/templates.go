package chord

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxInterval is the largest interval a template may hold (two octaves).
const MaxInterval = 23

var (
	errEmptyName      = errors.New("chord name is empty")
	errEmptyIntervals = errors.New("chord has no intervals")
)

// Template is a named interval set relative to a root at interval 0.
type Template struct {
	Name      string
	Intervals []int
	Extended  bool
	Custom    bool
}

func (t Template) clone() Template {
	t.Intervals = append([]int(nil), t.Intervals...)
	return t
}

// Table is an immutable, name-sorted set of templates. Mutators return a new
// table so a detector can swap tables without copying on the audio thread.
type Table struct {
	templates []Template
}

var builtinTemplates = []Template{
	{Name: "maj", Intervals: []int{0, 4, 7}},
	{Name: "maj7", Intervals: []int{0, 4, 7, 11}},
	{Name: "maj9", Intervals: []int{0, 4, 7, 11, 14}},
	{Name: "maj13", Intervals: []int{0, 4, 7, 11, 14, 21}},
	{Name: "min", Intervals: []int{0, 3, 7}},
	{Name: "min7", Intervals: []int{0, 3, 7, 10}},
	{Name: "min9", Intervals: []int{0, 3, 7, 10, 14}},
	{Name: "min11", Intervals: []int{0, 3, 7, 10, 14, 17}},
	{Name: "7", Intervals: []int{0, 4, 7, 10}},
	{Name: "9", Intervals: []int{0, 4, 7, 10, 14}},
	{Name: "11", Intervals: []int{0, 4, 7, 10, 14, 17}},
	{Name: "13", Intervals: []int{0, 4, 7, 10, 14, 17, 21}},
	{Name: "dim", Intervals: []int{0, 3, 6}},
	{Name: "dim7", Intervals: []int{0, 3, 6, 9}},
	{Name: "hdim7", Intervals: []int{0, 3, 6, 10}},
	{Name: "aug", Intervals: []int{0, 4, 8}},
	{Name: "aug7", Intervals: []int{0, 4, 8, 10}},
	{Name: "sus2", Intervals: []int{0, 2, 7}},
	{Name: "sus4", Intervals: []int{0, 5, 7}},
	{Name: "sus2sus4", Intervals: []int{0, 2, 5, 7}},
	{Name: "5", Intervals: []int{0, 7}},

	{Name: "maj7#11", Intervals: []int{0, 4, 7, 11, 18}, Extended: true},
	{Name: "min7b5", Intervals: []int{0, 3, 6, 10}, Extended: true},
	{Name: "7#5", Intervals: []int{0, 4, 8, 10}, Extended: true},
	{Name: "7b5", Intervals: []int{0, 4, 6, 10}, Extended: true},
	{Name: "7#9", Intervals: []int{0, 4, 7, 10, 15}, Extended: true},
	{Name: "7b9", Intervals: []int{0, 4, 7, 10, 13}, Extended: true},
	{Name: "7#11", Intervals: []int{0, 4, 7, 10, 18}, Extended: true},
	{Name: "7b13", Intervals: []int{0, 4, 7, 10, 20}, Extended: true},
}

// DefaultTable returns the built-in templates.
func DefaultTable() *Table {
	out := make([]Template, len(builtinTemplates))
	for i, t := range builtinTemplates {
		out[i] = t.clone()
	}
	return newTable(out)
}

func newTable(templates []Template) *Table {
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return &Table{templates: templates}
}

// Len returns the number of templates.
func (t *Table) Len() int { return len(t.templates) }

// Lookup returns the template called name.
func (t *Table) Lookup(name string) (Template, bool) {
	i := t.index(name)
	if i < 0 {
		return Template{}, false
	}
	return t.templates[i].clone(), true
}

// Names returns the template names in ascending order. Extended templates
// are included only when extended is true.
func (t *Table) Names(extended bool) []string {
	out := make([]string, 0, len(t.templates))
	for _, tpl := range t.templates {
		if tpl.Extended && !extended {
			continue
		}
		out = append(out, tpl.Name)
	}
	return out
}

// Templates returns copies of all templates in name order.
func (t *Table) Templates() []Template {
	out := make([]Template, len(t.templates))
	for i, tpl := range t.templates {
		out[i] = tpl.clone()
	}
	return out
}

// With returns a table in which name maps to intervals, replacing any
// template of that name. Intervals are sorted and de-duplicated; each must lie
// in [0, MaxInterval].
func (t *Table) With(name string, intervals []int) (*Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errEmptyName
	}
	if len(intervals) == 0 {
		return nil, fmt.Errorf("%w: %s", errEmptyIntervals, name)
	}

	iv := append([]int(nil), intervals...)
	sort.Ints(iv)
	uniq := iv[:0]
	for _, v := range iv {
		if v < 0 || v > MaxInterval {
			return nil, fmt.Errorf("chord %s interval out of range [0, %d]: %d", name, MaxInterval, v)
		}
		if len(uniq) > 0 && uniq[len(uniq)-1] == v {
			continue
		}
		uniq = append(uniq, v)
	}

	out := make([]Template, 0, len(t.templates)+1)
	for _, tpl := range t.templates {
		if tpl.Name != name {
			out = append(out, tpl)
		}
	}
	out = append(out, Template{Name: name, Intervals: uniq, Custom: true})
	return newTable(out), nil
}

// Without returns a table lacking the template called name. Unknown names
// return t itself.
func (t *Table) Without(name string) *Table {
	i := t.index(name)
	if i < 0 {
		return t
	}
	out := make([]Template, 0, len(t.templates)-1)
	out = append(out, t.templates[:i]...)
	out = append(out, t.templates[i+1:]...)
	return &Table{templates: out}
}

func (t *Table) index(name string) int {
	i := sort.Search(len(t.templates), func(i int) bool { return t.templates[i].Name >= name })
	if i < len(t.templates) && t.templates[i].Name == name {
		return i
	}
	return -1
}
