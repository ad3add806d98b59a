package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// RequestType is the kind of inbound platform event.
type RequestType string

const (
	RequestLaunch       RequestType = "LaunchRequest"
	RequestIntent       RequestType = "IntentRequest"
	RequestSessionEnded RequestType = "SessionEndedRequest"
)

// DialogState tracks progress through an intent's required slots.
type DialogState string

const (
	DialogNone       DialogState = ""
	DialogStarted    DialogState = "STARTED"
	DialogInProgress DialogState = "IN_PROGRESS"
	DialogCompleted  DialogState = "COMPLETED"
)

// APIAccess carries the per-request credentials for platform service calls.
type APIAccess struct {
	Endpoint string
	Token    string
}

// Turn is one inbound conversational event.
type Turn struct {
	Type         RequestType
	RequestID    string
	Intent       *Intent
	DialogState  DialogState
	SessionNew   bool
	UserID       string
	DeviceID     string
	ConsentToken string
	API          APIAccess
	Reason       string
}

// IntentName returns the intent name, or "" for non-intent turns.
func (t Turn) IntentName() string {
	if t.Intent == nil {
		return ""
	}
	return t.Intent.Name
}

// IsIntent reports whether t is an IntentRequest for the named intent.
func (t Turn) IsIntent(name string) bool {
	return t.Type == RequestIntent && t.IntentName() == name
}

// Intent is the platform's intent payload. The same shape is echoed back in
// directives and kept as a per-intent snapshot in session state.
type Intent struct {
	Name               string             `json:"name"`
	ConfirmationStatus string             `json:"confirmationStatus,omitempty"`
	Slots              map[string]RawSlot `json:"slots,omitempty"`

	// order is the key order of "slots" in the decoded payload, which follows
	// the interaction model.
	order []string
}

// UnmarshalJSON decodes the intent and records the payload's slot order.
func (i *Intent) UnmarshalJSON(data []byte) error {
	type plain Intent
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw struct {
		Slots json.RawMessage `json:"slots"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	order, err := objectKeys(raw.Slots)
	if err != nil {
		return fmt.Errorf("domain: intent slots: %w", err)
	}
	*i = Intent(p)
	i.order = order
	return nil
}

// SlotNames returns the slot names in payload order. Slots added after
// decoding, or intents built in code, follow in lexical order.
func (i Intent) SlotNames() []string {
	out := make([]string, 0, len(i.Slots))
	seen := make(map[string]bool, len(i.Slots))
	for _, name := range i.order {
		if _, ok := i.Slots[name]; ok && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(i.Slots)-len(out))
	for name := range i.Slots {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// objectKeys lists the keys of a JSON object in document order. Duplicate
// keys are listed once.
func objectKeys(data json.RawMessage) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	return keys, nil
}

// Clone returns a deep copy of i.
func (i Intent) Clone() Intent {
	out := Intent{Name: i.Name, ConfirmationStatus: i.ConfirmationStatus}
	if i.order != nil {
		out.order = append([]string(nil), i.order...)
	}
	if i.Slots != nil {
		out.Slots = make(map[string]RawSlot, len(i.Slots))
		for k, v := range i.Slots {
			out.Slots[k] = v.Clone()
		}
	}
	return out
}

// SlotValue returns the literal value of the named slot, or "".
func (i Intent) SlotValue(name string) string {
	return i.Slots[name].Value
}

// WithSlotValue returns a copy of i with the named slot's literal value set.
// Resolution data of the slot is dropped since it no longer describes the value.
func (i Intent) WithSlotValue(name, value string) Intent {
	out := i.Clone()
	if out.Slots == nil {
		out.Slots = make(map[string]RawSlot)
	}
	s := out.Slots[name]
	s.Name = name
	s.Value = value
	s.Resolutions = nil
	out.Slots[name] = s
	return out
}

// RawSlot is the platform-supplied slot payload. Every nested level is
// optional.
type RawSlot struct {
	Name               string       `json:"name"`
	Value              string       `json:"value,omitempty"`
	ConfirmationStatus string       `json:"confirmationStatus,omitempty"`
	Resolutions        *Resolutions `json:"resolutions,omitempty"`
}

// Clone returns a deep copy of s.
func (s RawSlot) Clone() RawSlot {
	out := s
	if s.Resolutions != nil {
		r := Resolutions{}
		if s.Resolutions.ResolutionsPerAuthority != nil {
			r.ResolutionsPerAuthority = make([]AuthorityResolution, len(s.Resolutions.ResolutionsPerAuthority))
			for i, a := range s.Resolutions.ResolutionsPerAuthority {
				r.ResolutionsPerAuthority[i] = a.clone()
			}
		}
		out.Resolutions = &r
	}
	return out
}

type Resolutions struct {
	ResolutionsPerAuthority []AuthorityResolution `json:"resolutionsPerAuthority,omitempty"`
}

// AuthorityResolution is one entity-resolution result.
type AuthorityResolution struct {
	Authority string              `json:"authority,omitempty"`
	Status    *ResolutionStatus   `json:"status,omitempty"`
	Values    []ResolutionWrapper `json:"values,omitempty"`
}

func (a AuthorityResolution) clone() AuthorityResolution {
	out := a
	if a.Status != nil {
		st := *a.Status
		out.Status = &st
	}
	if a.Values != nil {
		out.Values = make([]ResolutionWrapper, len(a.Values))
		for i, w := range a.Values {
			if w.Value != nil {
				v := *w.Value
				w.Value = &v
			}
			out.Values[i] = w
		}
	}
	return out
}

type ResolutionStatus struct {
	Code string `json:"code,omitempty"`
}

type ResolutionWrapper struct {
	Value *ResolutionValue `json:"value,omitempty"`
}

// ResolutionValue is a canonical value matched by entity resolution.
type ResolutionValue struct {
	Name string `json:"name,omitempty"`
	ID   string `json:"id,omitempty"`
}

// Resolution status codes reported by the platform.
const (
	StatusSuccessMatch = "ER_SUCCESS_MATCH"
	StatusNoMatch      = "ER_SUCCESS_NO_MATCH"
)

// DeviceAddress is the subset of the device address the skill uses.
type DeviceAddress struct {
	City          string `json:"city"`
	StateOrRegion string `json:"stateOrRegion"`
	PostalCode    string `json:"postalCode"`
	CountryCode   string `json:"countryCode"`
}
