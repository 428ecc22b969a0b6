package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"banko/internal/auth"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type GuestResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Guest issues a fresh anonymous identity. Devices call this once and
// reuse the token for every room they create or join.
func (h *AuthHandler) Guest(c *gin.Context) {
	token, userID, err := h.authService.IssueGuest()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, GuestResponse{Token: token, UserID: userID.String()})
}
