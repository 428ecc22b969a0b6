package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"banko/internal/model"
	"banko/internal/service"
)

type LoanHandler struct {
	registry *service.RegistryService
	loans    *service.LoanService
}

func NewLoanHandler(registry *service.RegistryService, loans *service.LoanService) *LoanHandler {
	return &LoanHandler{registry: registry, loans: loans}
}

type CreateLoanRequest struct {
	PlayerID    uuid.UUID `json:"player_id" binding:"required"`
	Amount      int64     `json:"amount" binding:"required"`
	Description string    `json:"description"`
}

type LoanResponse struct {
	Loan        *model.Loan        `json:"loan"`
	Transaction *model.Transaction `json:"transaction"`
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	loan, t, err := h.loans.CreateLoan(c.Request.Context(), callerID(c), room.ID, req.PlayerID, req.Amount, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, LoanResponse{Loan: loan, Transaction: t})
}

type RepayLoanRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (h *LoanHandler) RepayLoan(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	loanID, ok := pathUUID(c, "loan_id")
	if !ok {
		return
	}

	var req RepayLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	loan, t, err := h.loans.RepayLoan(c.Request.Context(), callerID(c), room.ID, loanID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoanResponse{Loan: loan, Transaction: t})
}

func (h *LoanHandler) ListActiveLoans(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	loans, err := h.loans.ActiveLoans(c.Request.Context(), room.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}
