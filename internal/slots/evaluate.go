package slots

import "strings"

// Ambiguity names the slot that needs a disambiguation question.
type Ambiguity struct {
	SlotName string
	Prompt   string
}

// AllFilled reports whether every required slot has a synonym. A required
// slot absent from s counts as unfilled.
func AllFilled(s Set, required []string) bool {
	for _, name := range required {
		if !s.slots[name].Filled() {
			return false
		}
	}
	return true
}

// NeedsDisambiguation reports whether any required slot resolved to more than
// one candidate. It is independent of AllFilled.
func NeedsDisambiguation(s Set, required []string) bool {
	for _, name := range required {
		if s.slots[name].Ambiguous() {
			return true
		}
	}
	return false
}

// FirstAmbiguous returns the first slot, in s's iteration order, that is
// flagged required and has more than one candidate. Only one slot is
// surfaced per turn.
func FirstAmbiguous(s Set, required map[string]bool) (Ambiguity, bool) {
	for _, name := range s.names {
		n := s.slots[name]
		if !required[name] || !n.Ambiguous() {
			continue
		}
		return Ambiguity{SlotName: name, Prompt: DisambiguationPrompt(n.ResolvedValues)}, true
	}
	return Ambiguity{}, false
}

// DisambiguationPrompt enumerates the candidates, placing "or" before the
// last one: "Which would you like Korean or Thai?".
func DisambiguationPrompt(values []Value) string {
	var b strings.Builder
	b.WriteString("Which would you like")
	for i, v := range values {
		if i == len(values)-1 {
			b.WriteString(" or ")
		} else {
			b.WriteString(" ")
		}
		b.WriteString(v.Value)
	}
	b.WriteString("?")
	return b.String()
}
