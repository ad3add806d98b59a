package session

import (
	"foodie-skill/internal/domain"
	"foodie-skill/internal/slots"
)

// ProfileField stores name, diet and allergies at the top of the profile.
// Other slot names are ignored.
func ProfileField(p domain.UserProfile, slotName string, slot slots.Normalized) domain.UserProfile {
	switch slotName {
	case "name":
		p.Name = slot.Synonym
	case "diet":
		p.Diet = slot.Synonym
	case "allergies":
		p.Allergies = slot.Synonym
	}
	return p
}

// AddressField stores zip, city and state under the profile's address.
func AddressField(p domain.UserProfile, slotName string, slot slots.Normalized) domain.UserProfile {
	switch slotName {
	case "zip":
		p.Location.Address.Zip = slot.Synonym
	case "city":
		p.Location.Address.City = slot.Synonym
	case "state":
		p.Location.Address.State = slot.Synonym
	}
	return p
}

// Seed fills empty slots of in with non-empty defaults. Slots the user
// already filled are left alone.
func Seed(in domain.Intent, defaults map[string]string) domain.Intent {
	out := in.Clone()
	for name, value := range defaults {
		if value == "" || out.SlotValue(name) != "" {
			continue
		}
		out = out.WithSlotValue(name, value)
	}
	return out
}

// ProfileDefaults returns the slot defaults for the recommendation dialog.
func ProfileDefaults(state domain.SessionState) map[string]string {
	return map[string]string{
		"name":      state.Profile.Name,
		"diet":      state.Profile.Diet,
		"allergies": state.Profile.Allergies,
		"timeOfDay": string(state.TimeOfDay),
	}
}
