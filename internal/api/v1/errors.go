package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
	"github.com/AbhinayAmbati/kanbana/internal/pipeline"
	"github.com/AbhinayAmbati/kanbana/internal/server/middleware"
)

// toHTTPError maps the domain error taxonomy to problem responses.
func toHTTPError(err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(msg + ": not found")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden(msg + ": forbidden")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrInvalidOperation):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error401Unauthorized("missing or invalid credentials")
	default:
		log.Error().Err(err).Msg(msg)
		return huma.Error500InternalServerError(msg)
	}
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return uuid.Nil, huma.Error401Unauthorized("missing or invalid credentials")
	}
	return id.UserID, nil
}

// apply runs a mutation on behalf of the caller. connID names the caller's
// own socket, which the broadcast skips.
func apply(ctx context.Context, boards Boards, conns Connections, connID string, kind pipeline.Kind, boardID uuid.UUID, payload any) (*pipeline.Result, error) {
	actor, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	res, err := boards.Apply(ctx, pipeline.Mutation{
		Actor:   actor,
		Origin:  ownConnection(conns, connID, actor),
		Kind:    kind,
		BoardID: boardID,
		Payload: payload,
	})
	if err != nil {
		return nil, toHTTPError(err, "failed to apply "+string(kind))
	}
	return res, nil
}

// ownConnection returns connID if it is a live socket of actor, and ""
// otherwise, so a caller cannot silence someone else's socket.
func ownConnection(conns Connections, connID string, actor uuid.UUID) string {
	if connID == "" || conns == nil {
		return ""
	}
	id, ok := conns.Identity(connID)
	if !ok || id.UserID != actor {
		log.Debug().Str("conn_id", connID).Str("user_id", actor.String()).Msg("ignoring foreign X-Connection-ID")
		return ""
	}
	return connID
}
