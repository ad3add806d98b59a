// Package session owns the session state of one conversation and its
// reconciliation with the long-lived user profile.
//
// Every operation takes the state by value and returns the updated state; no
// operation mutates its inputs.
package session

import (
	"foodie-skill/internal/domain"
	"foodie-skill/internal/slots"
)

// Placement writes one newly filled slot into the profile.
type Placement func(p domain.UserProfile, slotName string, slot slots.Normalized) domain.UserProfile

// NewProfile returns an empty profile.
func NewProfile() domain.UserProfile {
	return domain.UserProfile{}
}

// NewRecommendations returns an empty recommendation state.
func NewRecommendations() domain.RecommendationState {
	return domain.RecommendationState{
		Current: domain.CurrentPicks{Meals: []string{}, Restaurants: []string{}},
	}
}

// Restore builds the state for a new session. Without a persisted record a
// fresh profile is created and the session is marked new.
func Restore(rec *domain.PersistedRecord) domain.SessionState {
	if rec == nil {
		return domain.SessionState{
			IsNew:           true,
			Profile:         NewProfile(),
			Recommendations: NewRecommendations(),
		}
	}
	recs := rec.Recommendations.Clone()
	recs.Current.Meals = []string{}
	if recs.Current.Restaurants == nil {
		recs.Current.Restaurants = []string{}
	}
	return domain.SessionState{
		IsNew:           false,
		Profile:         rec.Profile,
		Recommendations: recs,
	}
}

// CaptureSlots copies watched slots that were newly filled in this turn into
// the profile through place, then records the turn as the intent's snapshot.
// A slot that came back empty never clears the profile. Turns for other
// intents leave the state untouched.
func CaptureSlots(state domain.SessionState, turn domain.Turn, intentName string, watched []string, place Placement) domain.SessionState {
	if !turn.IsIntent(intentName) {
		return state
	}
	out := state.Clone()
	current := *turn.Intent

	var previous *domain.Intent
	if snap, ok := out.Snapshot(intentName); ok {
		previous = &snap
	}

	diff := slots.NewlyFilled(previous, current, watched)
	for _, name := range diff.Names {
		slot := diff.Slots[name]
		if !slot.Filled() {
			continue
		}
		out.Profile = place(out.Profile, name, slot)
	}

	if turn.DialogState != domain.DialogCompleted {
		out = storeSnapshot(out, merge(previous, current))
	}
	return out
}

// Reconcile fills empty slots of a mid-dialog intent from the stored snapshot
// so values collected earlier survive interruptions. Values in the current
// turn always win. The merged intent becomes the new snapshot.
func Reconcile(state domain.SessionState, turn domain.Turn) (domain.SessionState, domain.Intent) {
	if turn.Intent == nil {
		return state, domain.Intent{}
	}
	current := turn.Intent.Clone()
	if turn.Type != domain.RequestIntent || turn.DialogState == domain.DialogCompleted {
		return state, current
	}

	out := state.Clone()
	var previous *domain.Intent
	if snap, ok := out.Snapshot(current.Name); ok {
		previous = &snap
	}
	merged := merge(previous, current)
	return storeSnapshot(out, merged), merged
}

// CompleteIntent drops the snapshot of a finished intent.
func CompleteIntent(state domain.SessionState, intentName string) domain.SessionState {
	if _, ok := state.Intents[intentName]; !ok {
		return state
	}
	out := state.Clone()
	delete(out.Intents, intentName)
	return out
}

// Finalize produces the record to persist at session end. The working set of
// current meals is never carried into the next session.
func Finalize(state domain.SessionState) domain.PersistedRecord {
	recs := state.Recommendations.Clone()
	recs.Current.Meals = []string{}
	return domain.PersistedRecord{
		Profile:         state.Profile,
		Recommendations: recs,
	}
}

// WillEnd reports whether the session ends with this turn: the platform said
// so, or the response closes the session and carries no directive.
func WillEnd(turn domain.Turn, resp domain.Response) bool {
	if turn.Type == domain.RequestSessionEnded {
		return true
	}
	return resp.EndsSession() && len(resp.Directives) == 0
}

func merge(previous *domain.Intent, current domain.Intent) domain.Intent {
	out := current.Clone()
	if previous == nil {
		return out
	}
	for name, prev := range previous.Slots {
		if prev.Value == "" {
			continue
		}
		if out.Slots == nil {
			out.Slots = make(map[string]domain.RawSlot)
		}
		if cur, ok := out.Slots[name]; ok && cur.Value != "" {
			continue
		}
		out.Slots[name] = prev.Clone()
	}
	return out
}

func storeSnapshot(state domain.SessionState, in domain.Intent) domain.SessionState {
	if state.Intents == nil {
		state.Intents = make(map[string]domain.Intent)
	}
	state.Intents[in.Name] = in
	return state
}
