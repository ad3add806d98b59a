// Package alexa holds the Alexa Skills Kit request and response envelopes and
// their conversion to and from the domain types.
package alexa

import (
	"strings"

	"foodie-skill/internal/domain"
)

const envelopeVersion = "1.0"

// RequestEnvelope is the JSON document the platform posts for every turn.
type RequestEnvelope struct {
	Version string  `json:"version"`
	Session Session `json:"session"`
	Context Context `json:"context"`
	Request Request `json:"request"`
}

type Session struct {
	New         bool                 `json:"new"`
	SessionID   string               `json:"sessionId"`
	Application Application          `json:"application"`
	Attributes  *domain.SessionState `json:"attributes,omitempty"`
	User        User                 `json:"user"`
}

type Application struct {
	ApplicationID string `json:"applicationId"`
}

type User struct {
	UserID      string       `json:"userId"`
	AccessToken string       `json:"accessToken,omitempty"`
	Permissions *Permissions `json:"permissions,omitempty"`
}

type Permissions struct {
	ConsentToken string `json:"consentToken,omitempty"`
}

type Context struct {
	System System `json:"System"`
}

type System struct {
	Application    Application `json:"application"`
	User           User        `json:"user"`
	Device         Device      `json:"device"`
	APIEndpoint    string      `json:"apiEndpoint"`
	APIAccessToken string      `json:"apiAccessToken"`
}

type Device struct {
	DeviceID string `json:"deviceId"`
}

type Request struct {
	Type        string         `json:"type"`
	RequestID   string         `json:"requestId"`
	Timestamp   string         `json:"timestamp"`
	Locale      string         `json:"locale,omitempty"`
	DialogState string         `json:"dialogState,omitempty"`
	Intent      *domain.Intent `json:"intent,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Error       *RequestError  `json:"error,omitempty"`
}

type RequestError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ApplicationID returns the skill the request is addressed to.
func (e RequestEnvelope) ApplicationID() string {
	return firstNonEmpty(e.Context.System.Application.ApplicationID, e.Session.Application.ApplicationID)
}

// DecodeTurn projects the envelope onto a Turn. Missing fields come back as
// zero values.
func DecodeTurn(e RequestEnvelope) domain.Turn {
	sys := e.Context.System
	t := domain.Turn{
		Type:         domain.RequestType(e.Request.Type),
		RequestID:    e.Request.RequestID,
		DialogState:  domain.DialogState(e.Request.DialogState),
		SessionNew:   e.Session.New,
		UserID:       firstNonEmpty(sys.User.UserID, e.Session.User.UserID),
		DeviceID:     sys.Device.DeviceID,
		ConsentToken: firstNonEmpty(consentToken(sys.User), consentToken(e.Session.User)),
		API:          domain.APIAccess{Endpoint: strings.TrimRight(sys.APIEndpoint, "/"), Token: sys.APIAccessToken},
		Reason:       e.Request.Reason,
	}
	if e.Request.Intent != nil {
		in := e.Request.Intent.Clone()
		t.Intent = &in
	}
	return t
}

// ResponseEnvelope is the JSON document returned to the platform.
type ResponseEnvelope struct {
	Version           string               `json:"version"`
	SessionAttributes *domain.SessionState `json:"sessionAttributes,omitempty"`
	Response          ResponseBody         `json:"response"`
}

type ResponseBody struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Card             *Card         `json:"card,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	Directives       []Directive   `json:"directives,omitempty"`
	ShouldEndSession *bool         `json:"shouldEndSession,omitempty"`
}

type OutputSpeech struct {
	Type string `json:"type"`
	SSML string `json:"ssml"`
}

type Reprompt struct {
	OutputSpeech OutputSpeech `json:"outputSpeech"`
}

type Card struct {
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Content     string   `json:"content,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type Directive struct {
	Type          string         `json:"type"`
	SlotToElicit  string         `json:"slotToElicit,omitempty"`
	UpdatedIntent *domain.Intent `json:"updatedIntent,omitempty"`
}

// EncodeResponse builds the envelope for resp. state is echoed back as the
// session attributes unless the session is over.
func EncodeResponse(resp domain.Response, state *domain.SessionState) ResponseEnvelope {
	body := ResponseBody{}
	if resp.Speech != "" {
		body.OutputSpeech = ssml(resp.Speech)
	}
	if resp.Reprompt != "" {
		body.Reprompt = &Reprompt{OutputSpeech: *ssml(resp.Reprompt)}
	}
	if resp.Card != nil {
		body.Card = &Card{
			Type:        string(resp.Card.Type),
			Title:       resp.Card.Title,
			Content:     resp.Card.Content,
			Permissions: resp.Card.Permissions,
		}
	}
	for _, d := range resp.Directives {
		body.Directives = append(body.Directives, Directive{
			Type:          string(d.Type),
			SlotToElicit:  d.SlotToElicit,
			UpdatedIntent: d.UpdatedIntent,
		})
	}
	// Dialog directives may not carry shouldEndSession=true, so an unset flag
	// stays unset when directives are present.
	if resp.ShouldEndSession != nil || len(body.Directives) == 0 {
		end := resp.EndsSession()
		body.ShouldEndSession = &end
	}
	return ResponseEnvelope{
		Version:           envelopeVersion,
		SessionAttributes: state,
		Response:          body,
	}
}

func ssml(text string) *OutputSpeech {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "<speak>") {
		text = "<speak>" + text + "</speak>"
	}
	return &OutputSpeech{Type: "SSML", SSML: text}
}

func consentToken(u User) string {
	if u.Permissions == nil {
		return ""
	}
	return u.Permissions.ConsentToken
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
