package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"foodie-skill/internal/dialog"
	"foodie-skill/internal/domain"
	"foodie-skill/internal/session"
)

// ProfileStore loads and saves the long-lived record of one user.
type ProfileStore interface {
	Load(ctx context.Context, userKey string) (*domain.PersistedRecord, error)
	Save(ctx context.Context, userKey string, rec domain.PersistedRecord) error
}

// Platform reads device settings from the voice platform.
type Platform interface {
	SystemTimeZone(ctx context.Context, api domain.APIAccess, deviceID string) (string, error)
	FullAddress(ctx context.Context, api domain.APIAccess, deviceID string) (domain.DeviceAddress, error)
}

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// DialogEngine picks the response for a reconciled turn.
type DialogEngine interface {
	Prepare(t domain.Turn, st domain.SessionState) domain.Turn
	Respond(t domain.Turn, in domain.Intent, st domain.SessionState) (domain.Response, domain.SessionState, error)
	Fallback() domain.Response
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Capture copies the watched slots of one intent into the profile.
type Capture struct {
	Intent  string
	Watched []string
	Place   session.Placement
}

// DefaultCaptures keeps the recommendation preferences and the spoken
// address on the profile.
func DefaultCaptures() []Capture {
	return []Capture{
		{Intent: dialog.IntentRecommendation, Watched: []string{dialog.SlotAllergies, dialog.SlotDiet}, Place: session.ProfileField},
		{Intent: dialog.IntentCaptureAddress, Watched: []string{dialog.SlotZip, dialog.SlotCity, dialog.SlotState}, Place: session.AddressField},
	}
}

type SkillService struct {
	store    ProfileStore
	platform Platform
	engine   DialogEngine
	log      *slog.Logger
	now      func() time.Time
	captures []Capture

	params       ParamGetter
	skillIDParam string

	cacheMu     sync.RWMutex
	cacheLoaded bool
	skillID     string
}

type Option func(*SkillService)

// WithSkillID verifies every request's application ID against the value of
// the named SSM parameter.
func WithSkillID(params ParamGetter, name string) Option {
	return func(s *SkillService) {
		s.params = params
		s.skillIDParam = strings.TrimSpace(name)
	}
}

// WithCaptures replaces DefaultCaptures.
func WithCaptures(captures ...Capture) Option {
	return func(s *SkillService) {
		s.captures = captures
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *SkillService) {
		s.now = now
	}
}

type TurnInput struct {
	ApplicationID string
	Turn          domain.Turn
	// State is the session state carried by the platform, nil on the first
	// turn of a session.
	State *domain.SessionState
}

type TurnOutput struct {
	Response domain.Response
	State    domain.SessionState
	Ended    bool
}

func NewSkillService(store ProfileStore, platform Platform, engine DialogEngine, logger *slog.Logger, opts ...Option) (*SkillService, error) {
	if store == nil {
		return nil, errors.New("usecase: profile store must not be nil")
	}
	if platform == nil {
		return nil, errors.New("usecase: platform client must not be nil")
	}
	if engine == nil {
		return nil, errors.New("usecase: dialog engine must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &SkillService{
		store:    store,
		platform: platform,
		engine:   engine,
		log:      logger,
		now:      time.Now,
		captures: DefaultCaptures(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, c := range s.captures {
		if c.Intent == "" || c.Place == nil {
			return nil, errors.New("usecase: capture needs an intent name and a placement")
		}
	}
	if s.skillIDParam != "" && s.params == nil {
		return nil, errors.New("usecase: param getter must not be nil when a skill ID parameter is set")
	}
	return s, nil
}

// HandleTurn runs one turn: restore, enrich, capture, reconcile, respond and,
// when the session ends, persist.
func (s *SkillService) HandleTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	turn := in.Turn
	log := s.log.With("requestId", turn.RequestID, "requestType", string(turn.Type), "intent", turn.IntentName())

	if err := s.verifySkill(ctx, in.ApplicationID); err != nil {
		return TurnOutput{}, err
	}

	st, err := s.restore(ctx, turn, in.State)
	if err != nil {
		return TurnOutput{}, err
	}

	if turn.Type != domain.RequestSessionEnded {
		if st, err = s.resolveTimeOfDay(ctx, turn, st); err != nil {
			return TurnOutput{}, err
		}
		if st, err = s.resolveAddress(ctx, turn, st, log); err != nil {
			return TurnOutput{}, err
		}
	}

	turn = s.engine.Prepare(turn, st)
	for _, c := range s.captures {
		st = session.CaptureSlots(st, turn, c.Intent, c.Watched, c.Place)
	}

	st, intent := session.Reconcile(st, turn)

	resp, st, err := s.engine.Respond(turn, intent, st)
	if err != nil {
		if errors.Is(err, dialog.ErrUnhandled) {
			return TurnOutput{}, newError(ErrorUnhandled, "unhandled_request", err)
		}
		return TurnOutput{}, newError(ErrorInternal, "dialog_error", err)
	}

	ended := session.WillEnd(turn, resp)
	if ended {
		if turn.UserID == "" {
			return TurnOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
		}
		if err := s.store.Save(ctx, turn.UserID, session.Finalize(st)); err != nil {
			return TurnOutput{}, newError(ErrorInternal, "store_save_error", err)
		}
		log.Info("session persisted")
	}

	return TurnOutput{Response: resp, State: st, Ended: ended}, nil
}

// Fallback is the response spoken when HandleTurn fails.
func (s *SkillService) Fallback() domain.Response {
	return s.engine.Fallback()
}

func (s *SkillService) restore(ctx context.Context, turn domain.Turn, carried *domain.SessionState) (domain.SessionState, error) {
	if carried != nil && !turn.SessionNew {
		return carried.Clone(), nil
	}
	if turn.UserID == "" {
		return domain.SessionState{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	rec, err := s.store.Load(ctx, turn.UserID)
	if err != nil {
		return domain.SessionState{}, newError(ErrorInternal, "store_load_error", err)
	}
	return session.Restore(rec), nil
}

func (s *SkillService) resolveTimeOfDay(ctx context.Context, turn domain.Turn, st domain.SessionState) (domain.SessionState, error) {
	if st.TimeOfDay != "" {
		return st, nil
	}
	tz := st.Profile.Location.Timezone
	if tz == "" {
		if turn.DeviceID == "" || turn.API.Endpoint == "" {
			return st, nil
		}
		var err error
		tz, err = s.platform.SystemTimeZone(ctx, turn.API, turn.DeviceID)
		if err != nil {
			return st, newError(ErrorUpstream, "timezone_lookup_error", err)
		}
	}
	local, err := dialog.LocalTime(s.now(), tz)
	if err != nil {
		return st, newError(ErrorUpstream, "timezone_invalid", err)
	}
	st.Profile.Location.Timezone = tz
	st.TimeOfDay = dialog.TimeOfDayAt(local)
	return st, nil
}

func (s *SkillService) resolveAddress(ctx context.Context, turn domain.Turn, st domain.SessionState, log *slog.Logger) (domain.SessionState, error) {
	if turn.ConsentToken == "" || turn.DeviceID == "" || st.Profile.Location.Address.Complete() {
		return st, nil
	}
	addr, err := s.platform.FullAddress(ctx, turn.API, turn.DeviceID)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == http.StatusForbidden {
			log.Warn("address permission not granted", "error", err)
			return st, nil
		}
		return st, newError(ErrorUpstream, "address_lookup_error", err)
	}
	switch {
	case addr.PostalCode != "":
		st.Profile.Location.Address.Zip = addr.PostalCode
	case addr.City != "" && addr.StateOrRegion != "":
		st.Profile.Location.Address.City = addr.City
		st.Profile.Location.Address.State = addr.StateOrRegion
	}
	return st, nil
}

func (s *SkillService) verifySkill(ctx context.Context, applicationID string) error {
	if s.skillIDParam == "" {
		return nil
	}
	if err := s.ensureConfig(ctx); err != nil {
		return newError(ErrorInternal, "ssm_load_error", err)
	}
	if applicationID != s.skillID {
		return newError(ErrorInvalidInput, reasonSkillMismatch, nil)
	}
	return nil
}

func (s *SkillService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	id, err := s.params.GetParameter(ctx, s.skillIDParam)
	if err != nil {
		return fmt.Errorf("usecase: load skill id: %w", err)
	}
	s.skillID = strings.TrimSpace(id)
	s.cacheLoaded = true
	return nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
