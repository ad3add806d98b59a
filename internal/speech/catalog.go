// Package speech holds the skill's spoken lines. The catalog is baked into
// the binary from catalog.yaml.
package speech

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"math/rand"
	"strings"

	"gopkg.in/yaml.v3"

	"foodie-skill/internal/domain"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type Welcome struct {
	FirstTime    string `yaml:"first_time"`
	Returning    string `yaml:"returning"`
	NoTimeOfDay  string `yaml:"no_time_of_day"`
	LastMealLine string `yaml:"last_meal"`
}

type Prompts struct {
	AskName                string `yaml:"ask_name"`
	AskFlavors             string `yaml:"ask_flavors"`
	SuggestMeals           string `yaml:"suggest_meals"`
	SuggestMealsReprompt   string `yaml:"suggest_meals_reprompt"`
	DeliveryOption         string `yaml:"delivery_option"`
	DeliveryOptionReprompt string `yaml:"delivery_option_reprompt"`
	DeliveryOptionRetry    string `yaml:"delivery_option_retry"`
	PortionSize            string `yaml:"portion_size"`
	RestaurantsNearby      string `yaml:"restaurants_nearby"`
	RestaurantsNear        string `yaml:"restaurants_near"`
	AskCity                string `yaml:"ask_city"`
	SentAddress            string `yaml:"sent_address"`
	Help                   string `yaml:"help"`
	Goodbye                string `yaml:"goodbye"`
	Fallback               string `yaml:"fallback"`
}

// Catalog is the parsed set of lines.
type Catalog struct {
	Welcome         Welcome                       `yaml:"welcome"`
	Prompts         Prompts                       `yaml:"prompts"`
	CardTitle       string                        `yaml:"card_title"`
	PlaceholderMeal []string                      `yaml:"placeholder_meals"`
	TimeOfDay       map[domain.TimeOfDay][]string `yaml:"time_of_day"`

	pick func(n int) int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPicker replaces the random phrase picker. pick receives the number of
// phrases and returns the chosen index.
func WithPicker(pick func(n int) int) Option {
	return func(c *Catalog) {
		c.pick = pick
	}
}

// Load parses the embedded catalog.
func Load(opts ...Option) (*Catalog, error) {
	return Parse(embeddedCatalog, opts...)
}

// Parse builds a Catalog from YAML.
func Parse(raw []byte, opts ...Option) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("speech: decode catalog: %w", err)
	}
	if c.Prompts.Fallback == "" {
		return nil, errors.New("speech: catalog missing fallback prompt")
	}
	if len(c.PlaceholderMeal) == 0 {
		return nil, errors.New("speech: catalog missing placeholder meals")
	}
	c.pick = rand.Intn
	for _, opt := range opts {
		opt(&c)
	}
	return &c, nil
}

// WelcomeMessage greets first-time and returning users differently.
// Catalog lines may carry SSML markup; interpolated values are escaped.
func (c *Catalog) WelcomeMessage(state domain.SessionState) string {
	if state.IsNew {
		return c.Welcome.FirstTime
	}
	parts := []string{c.Welcome.Returning}
	if state.TimeOfDay != "" {
		parts = append(parts, c.TimeOfDayPhrase(state.TimeOfDay))
	} else {
		parts = append(parts, c.Welcome.NoTimeOfDay)
	}
	if meal := state.Recommendations.Previous.Meal; meal != "" {
		parts = append(parts, fmt.Sprintf(c.Welcome.LastMealLine, Escape(meal)))
	}
	return joinSentences(parts...)
}

// OpeningPrompt asks new users for their name and returning users for flavors.
func (c *Catalog) OpeningPrompt(state domain.SessionState) string {
	if state.IsNew {
		return c.Prompts.AskName
	}
	return c.Prompts.AskFlavors
}

// TimeOfDayPhrase picks one of the phrases for tod.
func (c *Catalog) TimeOfDayPhrase(tod domain.TimeOfDay) string {
	phrases := c.TimeOfDay[tod]
	if len(phrases) == 0 {
		return c.Welcome.NoTimeOfDay
	}
	i := c.pick(len(phrases))
	if i < 0 || i >= len(phrases) {
		i = 0
	}
	return phrases[i]
}

// SuggestMeals lists the meals in speech and reprompt form.
func (c *Catalog) SuggestMeals(meals []string) (speech, reprompt string) {
	escaped := make([]string, len(meals))
	for i, m := range meals {
		escaped[i] = Escape(m)
	}
	speech = fmt.Sprintf(c.Prompts.SuggestMeals, len(meals), SpokenList(escaped, "and"))
	reprompt = fmt.Sprintf(c.Prompts.SuggestMealsReprompt, SpokenList(escaped, "or"))
	return speech, reprompt
}

// RestaurantsNear names the place the restaurants are close to.
func (c *Catalog) RestaurantsNear(place string) string {
	return fmt.Sprintf(c.Prompts.RestaurantsNear, Escape(place))
}

// Escape makes user or model supplied text safe to place inside SSML.
func Escape(text string) string {
	return html.EscapeString(text)
}

// SpokenList joins items as "a, b and c".
func SpokenList(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
}

func joinSentences(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Join concatenates spoken fragments with single spaces.
func Join(parts ...string) string {
	return joinSentences(parts...)
}
