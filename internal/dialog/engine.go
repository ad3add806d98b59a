// Package dialog decides, for one turn, which directive goes back to the
// platform: elicit a slot, delegate slot ordering, or speak a final line.
package dialog

import (
	"errors"
	"log/slog"
	"strings"

	"foodie-skill/internal/domain"
	"foodie-skill/internal/session"
	"foodie-skill/internal/slots"
	"foodie-skill/internal/speech"
)

// Intent names the skill's interaction model defines.
const (
	IntentRecommendation   = "RecommendationIntent"
	IntentCaptureAddress   = "CaptureAddressIntent"
	IntentLookupRestaurant = "LookupRestaurantIntent"
	IntentHelp             = "AMAZON.HelpIntent"
	IntentCancel           = "AMAZON.CancelIntent"
	IntentStop             = "AMAZON.StopIntent"
)

// Slot names used by the dialog.
const (
	SlotMeal           = "meal"
	SlotDeliveryOption = "deliveryOption"
	SlotCuisine        = "cuisine"
	SlotTimeOfDay      = "timeOfDay"
	SlotAllergies      = "allergies"
	SlotDiet           = "diet"
	SlotName           = "name"
	SlotZip            = "zip"
	SlotCity           = "city"
	SlotState          = "state"
)

const deliveryMake = "make"

// PermissionAddress is the device address read permission.
const PermissionAddress = "read::alexa:device:all:address"

// ErrUnhandled is returned when no handler accepts the turn.
var ErrUnhandled = errors.New("dialog: no handler for request")

// Config carries the dialog's static rules.
type Config struct {
	// RequiredSlots flags the slots that must be unambiguous before the
	// dialog advances.
	RequiredSlots map[string]bool
	// MealSlots must all be filled and unambiguous before meals are
	// suggested.
	MealSlots []string
	// Permissions are requested on the consent card at launch.
	Permissions []string
}

// DefaultConfig returns the rules of the Foodie interaction model.
func DefaultConfig() Config {
	return Config{
		RequiredSlots: map[string]bool{
			SlotAllergies:      true,
			SlotMeal:           true,
			SlotCuisine:        true,
			SlotDiet:           true,
			SlotDeliveryOption: true,
			SlotTimeOfDay:      true,
		},
		MealSlots:   []string{SlotTimeOfDay, SlotCuisine, SlotAllergies, SlotDiet},
		Permissions: []string{PermissionAddress},
	}
}

// Engine is the dialog state machine.
type Engine struct {
	cfg      Config
	speech   *speech.Catalog
	log      *slog.Logger
	handlers []handler
}

type handler struct {
	name   string
	match  func(t domain.Turn) bool
	handle func(t domain.Turn, in domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState)
}

func New(cfg Config, catalog *speech.Catalog, logger *slog.Logger) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("dialog: speech catalog must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequiredSlots == nil {
		cfg.RequiredSlots = map[string]bool{}
	}
	e := &Engine{cfg: cfg, speech: catalog, log: logger}
	e.handlers = []handler{
		{name: "LaunchWithConsent", match: launchWithConsent, handle: e.launch(false)},
		{name: "Launch", match: isType(domain.RequestLaunch), handle: e.launch(true)},
		{name: "RecommendationInProgress", match: intentInState(IntentRecommendation, false), handle: e.recommendationInProgress},
		{name: "RecommendationCompleted", match: intentInState(IntentRecommendation, true), handle: e.recommendationCompleted},
		{name: "LookupRestaurant", match: isIntent(IntentLookupRestaurant), handle: e.lookupRestaurant},
		{name: "CaptureAddressInProgress", match: intentInState(IntentCaptureAddress, false), handle: e.captureAddressInProgress},
		{name: "CaptureAddressCompleted", match: intentInState(IntentCaptureAddress, true), handle: e.captureAddressCompleted},
		{name: "Help", match: isIntent(IntentHelp), handle: e.help},
		{name: "CancelAndStop", match: anyIntent(IntentCancel, IntentStop), handle: e.goodbye},
		{name: "SessionEnded", match: isType(domain.RequestSessionEnded), handle: e.sessionEnded},
	}
	return e, nil
}

// Prepare seeds a freshly started recommendation dialog with what the
// profile and session already know. Other turns pass through unchanged.
func (e *Engine) Prepare(t domain.Turn, st domain.SessionState) domain.Turn {
	if !t.IsIntent(IntentRecommendation) || t.DialogState != domain.DialogStarted {
		return t
	}
	seeded := session.Seed(*t.Intent, session.ProfileDefaults(st))
	t.Intent = &seeded
	e.log.Debug("seeded recommendation slots from profile")
	return t
}

// Respond picks the outbound response for a turn whose intent has already
// been reconciled with the session.
func (e *Engine) Respond(t domain.Turn, in domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState, error) {
	for _, h := range e.handlers {
		if !h.match(t) {
			continue
		}
		e.log.Debug("dialog handler selected", "handler", h.name, "intent", in.Name, "dialogState", string(t.DialogState))
		resp, next := h.handle(t, in, st)
		return resp, next, nil
	}
	return domain.Response{}, st, ErrUnhandled
}

// Fallback is spoken when a turn cannot be processed.
func (e *Engine) Fallback() domain.Response {
	text := e.speech.Prompts.Fallback
	return domain.Response{}.Ask(text, text)
}

func (e *Engine) launch(withCard bool) func(domain.Turn, domain.Intent, domain.SessionState) (domain.Response, domain.SessionState) {
	return func(_ domain.Turn, _ domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
		text := speech.Join(e.speech.WelcomeMessage(st), e.speech.OpeningPrompt(st))
		resp := domain.Response{}.Ask(text, text)
		if withCard && len(e.cfg.Permissions) > 0 {
			resp = resp.WithCard(domain.Card{Type: domain.CardPermissionsConsent, Permissions: e.cfg.Permissions})
		}
		return resp, st
	}
}

func (e *Engine) recommendationInProgress(_ domain.Turn, in domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	set := slots.NormalizeIntent(&in)

	if amb, ok := slots.FirstAmbiguous(set, e.cfg.RequiredSlots); ok {
		e.log.Info("slot needs disambiguation", "slot", amb.SlotName)
		prompt := speech.Escape(amb.Prompt)
		return domain.Response{}.Ask(prompt, prompt).ElicitSlot(amb.SlotName, &in), st
	}

	if !filled(set, SlotMeal) && slots.AllFilled(set, e.cfg.MealSlots) && !slots.NeedsDisambiguation(set, e.cfg.MealSlots) {
		next := st.Clone()
		// TODO: replace the placeholder meals with a lookup keyed on cuisine, diet and allergies.
		next.Recommendations.Current.Meals = append([]string{}, e.speech.PlaceholderMeal...)
		text, reprompt := e.speech.SuggestMeals(next.Recommendations.Current.Meals)
		return domain.Response{}.Ask(text, reprompt).ElicitSlot(SlotMeal, &in), next
	}

	if filled(set, SlotMeal) && !filled(set, SlotDeliveryOption) {
		p := e.speech.Prompts
		return domain.Response{}.Ask(p.DeliveryOption, p.DeliveryOptionReprompt).ElicitSlot(SlotDeliveryOption, &in), st
	}

	return domain.Response{}.Delegate(&in), st
}

// recommendationCompleted branches on the delivery option. An unresolved
// option sends the dialog back to eliciting it without completing the intent.
func (e *Engine) recommendationCompleted(_ domain.Turn, in domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	set := slots.NormalizeIntent(&in)
	delivery, _ := set.Get(SlotDeliveryOption)
	p := e.speech.Prompts

	if delivery.StatusCode != domain.StatusSuccessMatch {
		e.log.Info("delivery option unresolved, eliciting again", "statusCode", delivery.StatusCode)
		return domain.Response{}.Ask(p.DeliveryOptionRetry, p.DeliveryOptionRetry).ElicitSlot(SlotDeliveryOption, &in), st
	}

	next := st.Clone()
	if meal, ok := set.Get(SlotMeal); ok {
		next.Recommendations.Previous.Meal = resolvedOrSynonym(meal)
	}
	next = session.CompleteIntent(next, in.Name)

	var text string
	switch {
	case strings.EqualFold(delivery.First(), deliveryMake):
		// TODO: elicit the portion size once the interaction model has a slot for it.
		text = p.PortionSize
	case next.Profile.Location.Address.Known():
		text = p.RestaurantsNearby
	default:
		text = p.AskCity
	}
	return domain.Response{}.Ask(text, text), next
}

func (e *Engine) lookupRestaurant(_ domain.Turn, _ domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	return domain.Response{}.Speak(e.speech.Prompts.SentAddress), st
}

func (e *Engine) captureAddressInProgress(_ domain.Turn, in domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	set := slots.NormalizeIntent(&in)
	switch {
	case slots.AllFilled(set, []string{SlotZip}):
		text := e.speech.RestaurantsNear(set.Synonym(SlotZip))
		return domain.Response{}.Ask(text, text), st
	case slots.AllFilled(set, []string{SlotCity, SlotState}):
		text := e.speech.RestaurantsNear(set.Synonym(SlotCity) + ", " + set.Synonym(SlotState))
		return domain.Response{}.Ask(text, text), st
	}
	return domain.Response{}.Delegate(&in), st
}

func (e *Engine) captureAddressCompleted(_ domain.Turn, _ domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	next := session.CompleteIntent(st, IntentCaptureAddress)
	addr := next.Profile.Location.Address

	var text string
	switch {
	case addr.Zip != "":
		text = e.speech.RestaurantsNear(addr.Zip)
	case addr.City != "" && addr.State != "":
		text = e.speech.RestaurantsNear(addr.City + ", " + addr.State)
	default:
		text = e.speech.Prompts.AskCity
	}
	return domain.Response{}.Ask(text, text), next
}

func (e *Engine) help(_ domain.Turn, _ domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	text := e.speech.Prompts.Help
	return domain.Response{}.Ask(text, text).WithCard(e.simpleCard(text)), st
}

func (e *Engine) goodbye(_ domain.Turn, _ domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	text := e.speech.Prompts.Goodbye
	return domain.Response{}.Speak(text).WithCard(e.simpleCard(text)), st
}

func (e *Engine) sessionEnded(t domain.Turn, _ domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState) {
	e.log.Info("session ended", "reason", t.Reason)
	return domain.Response{}, st
}

func (e *Engine) simpleCard(text string) domain.Card {
	return domain.Card{Type: domain.CardSimple, Title: e.speech.CardTitle, Content: text}
}

func resolvedOrSynonym(n slots.Normalized) string {
	if v := n.First(); v != "" {
		return v
	}
	return n.Synonym
}

func isType(rt domain.RequestType) func(domain.Turn) bool {
	return func(t domain.Turn) bool { return t.Type == rt }
}

func isIntent(name string) func(domain.Turn) bool {
	return func(t domain.Turn) bool { return t.IsIntent(name) }
}

func anyIntent(names ...string) func(domain.Turn) bool {
	return func(t domain.Turn) bool {
		for _, n := range names {
			if t.IsIntent(n) {
				return true
			}
		}
		return false
	}
}

func intentInState(name string, completed bool) func(domain.Turn) bool {
	return func(t domain.Turn) bool {
		return t.IsIntent(name) && (t.DialogState == domain.DialogCompleted) == completed
	}
}

func launchWithConsent(t domain.Turn) bool {
	return t.Type == domain.RequestLaunch && t.ConsentToken != ""
}

func filled(set slots.Set, name string) bool {
	n, _ := set.Get(name)
	return n.Filled()
}
