package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"banko/internal/model"
	"banko/internal/service"
)

type LedgerHandler struct {
	registry *service.RegistryService
	ledger   *service.LedgerService
	activity *service.ActivityService
}

func NewLedgerHandler(registry *service.RegistryService, ledger *service.LedgerService, activity *service.ActivityService) *LedgerHandler {
	return &LedgerHandler{registry: registry, ledger: ledger, activity: activity}
}

type CreateTransactionRequest struct {
	Type         string     `json:"type" binding:"required"`
	Amount       int64      `json:"amount" binding:"required"`
	Description  string     `json:"description"`
	FromPlayerID *uuid.UUID `json:"from_player_id"`
	ToPlayerID   *uuid.UUID `json:"to_player_id"`
}

func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	t, err := h.ledger.CreateTransaction(c.Request.Context(), callerID(c), service.CreateTransactionParams{
		RoomID:       room.ID,
		Type:         model.TransactionType(req.Type),
		Amount:       req.Amount,
		Description:  req.Description,
		FromPlayerID: req.FromPlayerID,
		ToPlayerID:   req.ToPlayerID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	transactions, err := h.activity.Transactions(c.Request.Context(), room.ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

type ReverseTransactionRequest struct {
	Description string `json:"description"`
}

func (h *LedgerHandler) ReverseTransaction(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	transactionID, ok := pathUUID(c, "transaction_id")
	if !ok {
		return
	}

	var req ReverseTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	t, err := h.ledger.Reverse(c.Request.Context(), callerID(c), room.ID, transactionID, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type PaySalaryRequest struct {
	ToPlayerID uuid.UUID `json:"to_player_id" binding:"required"`
}

func (h *LedgerHandler) PaySalary(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req PaySalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	t, err := h.ledger.PaySalary(c.Request.Context(), callerID(c), room.ID, req.ToPlayerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}
