// Package handler exposes the HTTP API. Handlers bind request bodies,
// resolve the caller identity set by the auth middleware, call into the
// service layer and translate service errors to HTTP statuses.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"banko/internal/service"
)

// identityKey is the gin context key the auth middleware stores the
// caller's user ID under.
const identityKey = "user_id"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// callerID returns the authenticated user ID set by the auth middleware.
func callerID(c *gin.Context) uuid.UUID {
	return c.MustGet(identityKey).(uuid.UUID)
}

// pathUUID parses a UUID path parameter, writing a 400 response and
// returning false when the value is malformed.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps a service error onto an HTTP status. Unknown errors are
// logged and reported as a bare 500 so internal detail never leaks.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrLoanNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrRoomNotJoinable),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrAlreadyProcessed),
		errors.Is(err, service.ErrAlreadyReversed),
		errors.Is(err, service.ErrColorTaken),
		errors.Is(err, service.ErrNotEnoughPlayers):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientPotFunds),
		errors.Is(err, service.ErrLoanOverpayment):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidTransactionType),
		errors.Is(err, service.ErrSelfTransfer),
		errors.Is(err, service.ErrInvalidDiceSides),
		errors.Is(err, service.ErrMissingField):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
