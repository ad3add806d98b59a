package domain

// UserProfile is the long-lived, per-user record of preferences.
type UserProfile struct {
	Name      string   `json:"name"`
	Allergies string   `json:"allergies"`
	Diet      string   `json:"diet"`
	Location  Location `json:"location"`
}

type Location struct {
	Address  Address `json:"address"`
	Timezone string  `json:"timezone"`
}

type Address struct {
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// Known reports whether the address is precise enough to look up places.
func (a Address) Known() bool {
	return a.Zip != "" || (a.City != "" && a.State != "")
}

// Complete reports whether every address field is set.
func (a Address) Complete() bool {
	return a.Zip != "" && a.City != "" && a.State != ""
}

// RecommendationState keeps the last pick and the working set of the
// current session.
type RecommendationState struct {
	Previous PreviousPick `json:"previous"`
	Current  CurrentPicks `json:"current"`
}

type PreviousPick struct {
	Meal       string `json:"meal"`
	Restaurant string `json:"restaurant"`
}

type CurrentPicks struct {
	Meals       []string `json:"meals"`
	Restaurants []string `json:"restaurants"`
}

// Clone returns a deep copy of r.
func (r RecommendationState) Clone() RecommendationState {
	out := r
	out.Current.Meals = cloneStrings(r.Current.Meals)
	out.Current.Restaurants = cloneStrings(r.Current.Restaurants)
	return out
}

// TimeOfDay is the meal period derived from the device's local time.
type TimeOfDay string

const (
	Breakfast TimeOfDay = "breakfast"
	Brunch    TimeOfDay = "brunch"
	Lunch     TimeOfDay = "lunch"
	Dinner    TimeOfDay = "dinner"
	Midnight  TimeOfDay = "midnight"
)

// SessionState is the short-lived state of one conversation. It round-trips
// through the platform's session attributes between turns.
type SessionState struct {
	IsNew           bool                `json:"isNew"`
	Profile         UserProfile         `json:"profile"`
	Recommendations RecommendationState `json:"recommendations"`
	TimeOfDay       TimeOfDay           `json:"timeOfDay,omitempty"`
	Intents         map[string]Intent   `json:"intents,omitempty"`
}

// Clone returns a deep copy of s.
func (s SessionState) Clone() SessionState {
	out := s
	out.Recommendations = s.Recommendations.Clone()
	if s.Intents != nil {
		out.Intents = make(map[string]Intent, len(s.Intents))
		for k, v := range s.Intents {
			out.Intents[k] = v.Clone()
		}
	}
	return out
}

// Snapshot returns the stored intent snapshot for name, if any.
func (s SessionState) Snapshot(name string) (Intent, bool) {
	in, ok := s.Intents[name]
	return in, ok
}

// PersistedRecord is what the profile store keeps per user.
type PersistedRecord struct {
	Profile         UserProfile         `json:"profile"`
	Recommendations RecommendationState `json:"recommendations"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
