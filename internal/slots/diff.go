package slots

import "foodie-skill/internal/domain"

// Diff lists the watched slots whose value changed since the last snapshot.
type Diff struct {
	Found bool
	// Names holds the qualifying slots in the caller's watch order.
	Names []string
	Slots map[string]Normalized
}

// NewlyFilled compares current against the previous snapshot of the same
// intent. With no snapshot every filled watched slot qualifies. Otherwise a
// watched slot qualifies when its synonym changed, including a slot that was
// emptied. Callers decide what an emptied slot means.
func NewlyFilled(previous *domain.Intent, current domain.Intent, watched []string) Diff {
	cur := NormalizeIntent(&current)
	prev := NormalizeIntent(previous)
	diff := Diff{Names: []string{}, Slots: map[string]Normalized{}}

	for _, name := range watched {
		if _, seen := diff.Slots[name]; seen {
			continue
		}
		c := cur.slots[name]
		if previous == nil && !c.Filled() {
			continue
		}
		if previous != nil && prev.slots[name].Synonym == c.Synonym {
			continue
		}
		diff.Names = append(diff.Names, name)
		diff.Slots[name] = c
	}
	diff.Found = len(diff.Names) > 0
	return diff
}
