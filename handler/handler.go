package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"foodie-skill/internal/alexa"
	"foodie-skill/internal/domain"
	"foodie-skill/internal/usecase"
)

// TurnService is the use case the handler drives.
type TurnService interface {
	HandleTurn(ctx context.Context, in usecase.TurnInput) (usecase.TurnOutput, error)
	Fallback() domain.Response
}

type Handler struct {
	svc TurnService
	log *slog.Logger
}

func NewHandler(svc TurnService, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: turn service must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, log: logger}, nil
}

// Handle answers one Alexa request. Failures inside the turn are spoken as
// the fallback line; only requests addressed to another skill are returned
// as errors.
func (h *Handler) Handle(ctx context.Context, env alexa.RequestEnvelope) (alexa.ResponseEnvelope, error) {
	correlationID := correlationID(ctx, env)
	log := h.log.With("correlationId", correlationID, "requestId", env.Request.RequestID, "requestType", env.Request.Type)

	turn := alexa.DecodeTurn(env)
	if turn.RequestID == "" {
		turn.RequestID = correlationID
	}

	out, err := h.svc.HandleTurn(ctx, usecase.TurnInput{
		ApplicationID: env.ApplicationID(),
		Turn:          turn,
		State:         env.Session.Attributes,
	})
	if err != nil {
		if usecase.IsRejected(err) {
			log.Warn("request rejected", "applicationId", env.ApplicationID(), "err", err)
			return alexa.ResponseEnvelope{}, err
		}
		logTurnError(log, err)
		return alexa.EncodeResponse(h.svc.Fallback(), env.Session.Attributes), nil
	}

	var attrs *domain.SessionState
	if !out.Ended {
		attrs = &out.State
	}
	log.Info("turn handled", "intent", turn.IntentName(), "sessionEnded", out.Ended, "directives", len(out.Response.Directives))
	return alexa.EncodeResponse(out.Response, attrs), nil
}

func logTurnError(log *slog.Logger, err error) {
	var ue *usecase.Error
	if errors.As(err, &ue) {
		log.Error("turn failed", "code", string(ue.Code), "reason", ue.Reason, "err", ue.Err)
		return
	}
	log.Error("turn failed", "err", err)
}

func correlationID(ctx context.Context, env alexa.RequestEnvelope) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if env.Request.RequestID != "" {
		return env.Request.RequestID
	}
	return newUUID()
}

var newUUID = func() string {
	return uuid.NewString()
}
