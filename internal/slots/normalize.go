// Package slots projects raw platform slot payloads into a uniform shape and
// answers the questions the dialog asks about them: is everything filled, is
// anything ambiguous, and what changed since the last turn.
package slots

import (
	"sort"

	"foodie-skill/internal/domain"
)

// Value is one canonical candidate for a slot.
type Value struct {
	Value string
	ID    string
}

// Normalized is the uniform view of one slot. Empty strings stand in for
// absent data.
type Normalized struct {
	Synonym        string
	ResolvedValues []Value
	StatusCode     string
	Authority      string
}

// Filled reports whether the user supplied a value.
func (n Normalized) Filled() bool {
	return n.Synonym != ""
}

// Ambiguous reports whether more than one candidate matched.
func (n Normalized) Ambiguous() bool {
	return len(n.ResolvedValues) > 1
}

// First returns the first resolved value, or "".
func (n Normalized) First() string {
	if len(n.ResolvedValues) == 0 {
		return ""
	}
	return n.ResolvedValues[0].Value
}

// Set is an ordered collection of normalized slots.
type Set struct {
	names []string
	slots map[string]Normalized
}

// Get returns the named slot. A missing slot comes back as the zero value.
func (s Set) Get(name string) (Normalized, bool) {
	n, ok := s.slots[name]
	return n, ok
}

// Synonym returns the named slot's synonym, or "".
func (s Set) Synonym(name string) string {
	return s.slots[name].Synonym
}

// Normalize builds a Set from raw slots. It never fails: missing nested data
// degrades to empty values. A bare map carries no order, so names iterate in
// lexical order.
func Normalize(raw map[string]domain.RawSlot) Set {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return normalizeOrdered(raw, names)
}

// NormalizeIntent is Normalize over an intent's slots, iterating them in the
// order the platform sent them. A nil intent yields an empty set.
func NormalizeIntent(in *domain.Intent) Set {
	if in == nil {
		return Normalize(nil)
	}
	return normalizeOrdered(in.Slots, in.SlotNames())
}

func normalizeOrdered(raw map[string]domain.RawSlot, names []string) Set {
	set := Set{names: names, slots: make(map[string]Normalized, len(raw))}
	for _, name := range names {
		set.slots[name] = normalizeOne(raw[name])
	}
	return set
}

func normalizeOne(raw domain.RawSlot) Normalized {
	n := Normalized{Synonym: raw.Value, ResolvedValues: []Value{}}
	if raw.Value != "" {
		n.ResolvedValues = []Value{{Value: raw.Value}}
	}

	first, ok := firstAuthority(raw)
	if !ok {
		return n
	}
	n.Authority = first.Authority
	if first.Status == nil || first.Status.Code == "" {
		return n
	}
	n.StatusCode = first.Status.Code
	// An absent list keeps the raw value; an empty one clears it.
	if first.Values == nil {
		return n
	}
	n.ResolvedValues = make([]Value, 0, len(first.Values))
	for _, w := range first.Values {
		if w.Value == nil {
			n.ResolvedValues = append(n.ResolvedValues, Value{})
			continue
		}
		n.ResolvedValues = append(n.ResolvedValues, Value{Value: w.Value.Name, ID: w.Value.ID})
	}
	return n
}

// Only the first authority is consulted; later authorities are ignored.
func firstAuthority(raw domain.RawSlot) (domain.AuthorityResolution, bool) {
	if raw.Resolutions == nil || len(raw.Resolutions.ResolutionsPerAuthority) == 0 {
		return domain.AuthorityResolution{}, false
	}
	return raw.Resolutions.ResolutionsPerAuthority[0], true
}
