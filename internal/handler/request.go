package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"banko/internal/model"
	"banko/internal/service"
)

type RequestHandler struct {
	registry *service.RegistryService
	requests *service.RequestService
}

func NewRequestHandler(registry *service.RegistryService, requests *service.RequestService) *RequestHandler {
	return &RequestHandler{registry: registry, requests: requests}
}

type CreatePaymentRequestRequest struct {
	ToPlayerID  *uuid.UUID `json:"to_player_id"`
	Amount      int64      `json:"amount" binding:"required"`
	Description string     `json:"description"`
}

func (h *RequestHandler) CreatePaymentRequest(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req CreatePaymentRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	pr, err := h.requests.CreatePaymentRequest(c.Request.Context(), callerID(c), room.ID, req.ToPlayerID, req.Amount, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pr)
}

type RespondRequestRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

type RespondRequestResponse struct {
	Request     *model.PaymentRequest `json:"request"`
	Transaction *model.Transaction    `json:"transaction,omitempty"`
}

func (h *RequestHandler) RespondToPaymentRequest(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	requestID, ok := pathUUID(c, "request_id")
	if !ok {
		return
	}

	var req RespondRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	pr, t, err := h.requests.RespondToPaymentRequest(c.Request.Context(), callerID(c), room.ID, requestID, *req.Accept)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RespondRequestResponse{Request: pr, Transaction: t})
}

func (h *RequestHandler) ListPendingRequests(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	requests, err := h.requests.PendingRequests(c.Request.Context(), room.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *RequestHandler) GetPaymentRequest(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	requestID, ok := pathUUID(c, "request_id")
	if !ok {
		return
	}

	pr, err := h.requests.GetRequest(c.Request.Context(), room.ID, requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}
