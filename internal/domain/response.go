package domain

// DirectiveType names an outbound dialog directive.
type DirectiveType string

const (
	DirectiveElicitSlot DirectiveType = "Dialog.ElicitSlot"
	DirectiveDelegate   DirectiveType = "Dialog.Delegate"
)

// Directive asks the platform to take over part of the dialog.
type Directive struct {
	Type          DirectiveType
	SlotToElicit  string
	UpdatedIntent *Intent
}

// CardType names the companion-app card attached to a response.
type CardType string

const (
	CardSimple             CardType = "Simple"
	CardPermissionsConsent CardType = "AskForPermissionsConsent"
)

type Card struct {
	Type        CardType
	Title       string
	Content     string
	Permissions []string
}

// Response is the platform-neutral outcome of a turn.
type Response struct {
	Speech           string
	Reprompt         string
	Card             *Card
	Directives       []Directive
	ShouldEndSession *bool
}

// Speak sets the spoken text.
func (r Response) Speak(text string) Response {
	r.Speech = text
	return r
}

// Ask sets the spoken text and the reprompt, keeping the session open.
func (r Response) Ask(text, reprompt string) Response {
	r.Speech = text
	r.Reprompt = reprompt
	open := false
	r.ShouldEndSession = &open
	return r
}

// ElicitSlot appends an elicit-slot directive.
func (r Response) ElicitSlot(slot string, intent *Intent) Response {
	r.Directives = append(r.Directives, Directive{Type: DirectiveElicitSlot, SlotToElicit: slot, UpdatedIntent: intent})
	return r
}

// Delegate appends a delegate directive.
func (r Response) Delegate(intent *Intent) Response {
	r.Directives = append(r.Directives, Directive{Type: DirectiveDelegate, UpdatedIntent: intent})
	return r
}

// WithCard attaches a card.
func (r Response) WithCard(c Card) Response {
	r.Card = &c
	return r
}

// EndsSession reports whether the platform will close the session after this
// response. An unset flag means the session ends.
func (r Response) EndsSession() bool {
	if r.ShouldEndSession == nil {
		return true
	}
	return *r.ShouldEndSession
}
