package alexa

import (
	"encoding/json"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"

	"foodie-skill/internal/domain"
	"foodie-skill/internal/speech"
)

const intentRequest = `{
  "version": "1.0",
  "session": {
    "new": false,
    "sessionId": "amzn1.echo-api.session.1",
    "application": {"applicationId": "amzn1.ask.skill.session"},
    "attributes": {
      "isNew": false,
      "profile": {"name": "Sam", "allergies": "", "diet": "vegan", "location": {"address": {"city": "", "state": "", "zip": "98109"}, "timezone": "America/Los_Angeles"}},
      "recommendations": {"previous": {"meal": "Mae Un Tang", "restaurant": ""}, "current": {"meals": ["Daegu Jorim"], "restaurants": []}},
      "timeOfDay": "dinner",
      "intents": {"RecommendationIntent": {"name": "RecommendationIntent", "slots": {"cuisine": {"name": "cuisine", "value": "thai"}}}}
    },
    "user": {"userId": "amzn1.ask.account.session"}
  },
  "context": {
    "System": {
      "application": {"applicationId": "amzn1.ask.skill.foodie"},
      "user": {"userId": "amzn1.ask.account.sam", "permissions": {"consentToken": "consent-tok"}},
      "device": {"deviceId": "amzn1.ask.device.kitchen"},
      "apiEndpoint": "https://api.amazonalexa.com/",
      "apiAccessToken": "access-tok"
    }
  },
  "request": {
    "type": "IntentRequest",
    "requestId": "amzn1.echo-api.request.42",
    "timestamp": "2026-10-18T19:00:00Z",
    "locale": "en-US",
    "dialogState": "IN_PROGRESS",
    "intent": {
      "name": "RecommendationIntent",
      "confirmationStatus": "NONE",
      "slots": {
        "cuisine": {
          "name": "cuisine",
          "value": "asian",
          "resolutions": {"resolutionsPerAuthority": [{
            "authority": "amzn1.er-authority.echo-sdk.cuisine",
            "status": {"code": "ER_SUCCESS_MATCH"},
            "values": [{"value": {"name": "Korean", "id": "KOREAN"}}, {"value": {"name": "Thai", "id": "THAI"}}]
          }]}
        },
        "meal": {"name": "meal"}
      }
    }
  }
}`

func decode(t *testing.T, raw string) RequestEnvelope {
	t.Helper()
	var env RequestEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

func TestDecodeTurn_IntentRequest(t *testing.T) {
	env := decode(t, intentRequest)
	turn := DecodeTurn(env)

	require.Equal(t, domain.RequestIntent, turn.Type)
	require.Equal(t, "amzn1.echo-api.request.42", turn.RequestID)
	require.Equal(t, domain.DialogInProgress, turn.DialogState)
	require.False(t, turn.SessionNew)
	require.Equal(t, "amzn1.ask.account.sam", turn.UserID)
	require.Equal(t, "amzn1.ask.device.kitchen", turn.DeviceID)
	require.Equal(t, "consent-tok", turn.ConsentToken)
	require.Equal(t, domain.APIAccess{Endpoint: "https://api.amazonalexa.com", Token: "access-tok"}, turn.API)
	require.Equal(t, "amzn1.ask.skill.foodie", env.ApplicationID())

	require.True(t, turn.IsIntent("RecommendationIntent"))
	cuisine := turn.Intent.Slots["cuisine"]
	require.Equal(t, "asian", cuisine.Value)
	require.Equal(t, "Thai", cuisine.Resolutions.ResolutionsPerAuthority[0].Values[1].Value.Name)

	st := env.Session.Attributes
	require.NotNil(t, st)
	require.Equal(t, "98109", st.Profile.Location.Address.Zip)
	require.Equal(t, domain.Dinner, st.TimeOfDay)
	require.Equal(t, []string{"Daegu Jorim"}, st.Recommendations.Current.Meals)
	snap, ok := st.Snapshot("RecommendationIntent")
	require.True(t, ok)
	require.Equal(t, "thai", snap.SlotValue("cuisine"))
}

func TestDecodeTurn_DoesNotAliasEnvelopeIntent(t *testing.T) {
	env := decode(t, intentRequest)
	turn := DecodeTurn(env)
	turn.Intent.Slots["meal"] = domain.RawSlot{Name: "meal", Value: "changed"}
	require.Empty(t, env.Request.Intent.Slots["meal"].Value)
}

func TestDecodeTurn_PartialPayloads(t *testing.T) {
	cases := map[string]string{
		"empty":            `{}`,
		"launch only":      `{"request":{"type":"LaunchRequest"}}`,
		"empty authority":  `{"request":{"type":"IntentRequest","intent":{"name":"RecommendationIntent","slots":{"cuisine":{"name":"cuisine","resolutions":{"resolutionsPerAuthority":[{}]}}}}}}`,
		"null value":       `{"request":{"type":"IntentRequest","intent":{"name":"X","slots":{"cuisine":{"name":"cuisine","resolutions":{"resolutionsPerAuthority":[{"status":{"code":"ER_SUCCESS_MATCH"},"values":[{"value":null}]}]}}}}}}`,
		"session fallback": `{"session":{"new":true,"application":{"applicationId":"skill"},"user":{"userId":"u","permissions":{"consentToken":"c"}}},"request":{"type":"LaunchRequest"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			env := decode(t, raw)
			require.NotPanics(t, func() { DecodeTurn(env) })
		})
	}

	env := decode(t, cases["session fallback"])
	turn := DecodeTurn(env)
	require.True(t, turn.SessionNew)
	require.Equal(t, "u", turn.UserID)
	require.Equal(t, "c", turn.ConsentToken)
	require.Equal(t, "skill", env.ApplicationID())
	require.Nil(t, env.Session.Attributes)
	require.Nil(t, turn.Intent)
}

func TestEncodeResponse_ElicitSlot(t *testing.T) {
	in := domain.Intent{Name: "RecommendationIntent", Slots: map[string]domain.RawSlot{"cuisine": {Name: "cuisine", Value: "asian"}}}
	resp := domain.Response{}.Ask("Which would you like Korean or Thai?", "Which would you like Korean or Thai?").ElicitSlot("cuisine", &in)
	st := domain.SessionState{TimeOfDay: domain.Lunch}

	raw, err := json.Marshal(EncodeResponse(resp, &st))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "1.0", got["version"])
	body := got["response"].(map[string]any)
	require.Equal(t, map[string]any{"type": "SSML", "ssml": "<speak>Which would you like Korean or Thai?</speak>"}, body["outputSpeech"])
	require.Equal(t, false, body["shouldEndSession"])
	directives := body["directives"].([]any)
	require.Len(t, directives, 1)
	d := directives[0].(map[string]any)
	require.Equal(t, "Dialog.ElicitSlot", d["type"])
	require.Equal(t, "cuisine", d["slotToElicit"])
	require.Equal(t, "RecommendationIntent", d["updatedIntent"].(map[string]any)["name"])
	require.Equal(t, "lunch", got["sessionAttributes"].(map[string]any)["timeOfDay"])
}

func TestEncodeResponse_DelegateLeavesEndFlagUnset(t *testing.T) {
	in := domain.Intent{Name: "RecommendationIntent"}
	env := EncodeResponse(domain.Response{}.Delegate(&in), nil)
	require.Nil(t, env.Response.ShouldEndSession)
	require.Nil(t, env.Response.OutputSpeech)
	require.Nil(t, env.SessionAttributes)
	require.Len(t, env.Response.Directives, 1)
	require.Empty(t, env.Response.Directives[0].SlotToElicit)
}

func TestEncodeResponse_SpeakEndsSessionWithCard(t *testing.T) {
	resp := domain.Response{}.Speak("Goodbye!").WithCard(domain.Card{Type: domain.CardSimple, Title: "The Foodie", Content: "Goodbye!"})
	env := EncodeResponse(resp, nil)
	require.NotNil(t, env.Response.ShouldEndSession)
	require.True(t, *env.Response.ShouldEndSession)
	require.Nil(t, env.Response.Reprompt)
	require.Equal(t, &Card{Type: "Simple", Title: "The Foodie", Content: "Goodbye!"}, env.Response.Card)
}

func TestEncodeResponse_ConsentCardAndSSML(t *testing.T) {
	text := `<say-as interpret-as="interjection">Howdy!</say-as> Welcome to The Foodie!`
	resp := domain.Response{}.Ask(text, text).WithCard(domain.Card{Type: domain.CardPermissionsConsent, Permissions: []string{"read::alexa:device:all:address"}})
	env := EncodeResponse(resp, nil)
	require.Equal(t, "<speak>"+text+"</speak>", env.Response.OutputSpeech.SSML)
	require.Equal(t, "<speak>"+text+"</speak>", env.Response.Reprompt.OutputSpeech.SSML)
	require.Equal(t, "AskForPermissionsConsent", env.Response.Card.Type)
	require.Equal(t, []string{"read::alexa:device:all:address"}, env.Response.Card.Permissions)

	already := EncodeResponse(domain.Response{}.Speak("<speak>hi</speak>"), nil)
	require.Equal(t, "<speak>hi</speak>", already.Response.OutputSpeech.SSML)
}

func TestEncodeResponse_InterpolatedTextIsWellFormedSSML(t *testing.T) {
	catalog, err := speech.Load(speech.WithPicker(func(int) int { return 1 }))
	require.NoError(t, err)
	st := domain.SessionState{TimeOfDay: domain.Midnight}
	st.Recommendations.Previous.Meal = "Mac & Cheese <extra>"

	text := speech.Join(catalog.WelcomeMessage(st), catalog.OpeningPrompt(st))
	env := EncodeResponse(domain.Response{}.Ask(text, text), &st)

	var doc struct {
		Text string `xml:",innerxml"`
	}
	require.NoError(t, xml.Unmarshal([]byte(env.Response.OutputSpeech.SSML), &doc))
	require.Contains(t, doc.Text, "Mac &amp; Cheese &lt;extra&gt;")
}
