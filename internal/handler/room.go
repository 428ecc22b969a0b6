package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"banko/internal/model"
	"banko/internal/service"
)

type RoomHandler struct {
	registry *service.RegistryService
}

func NewRoomHandler(registry *service.RegistryService) *RoomHandler {
	return &RoomHandler{registry: registry}
}

type CreateRoomRequest struct {
	RoomName        string `json:"room_name" binding:"required"`
	BankDisplayName string `json:"bank_display_name"`
	InitialBalance  int64  `json:"initial_balance"`
	SalaryAmount    int64  `json:"salary_amount"`
	DiceSides       int    `json:"dice_sides"`
	Nickname        string `json:"nickname" binding:"required"`
	Color           string `json:"color" binding:"required"`
}

type JoinRoomRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Color    string `json:"color" binding:"required"`
}

type RoomResponse struct {
	Room   *model.Room   `json:"room"`
	Player *model.Player `json:"player,omitempty"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	room, player, err := h.registry.CreateRoom(c.Request.Context(), callerID(c), service.CreateRoomParams{
		RoomName:        req.RoomName,
		BankDisplayName: req.BankDisplayName,
		InitialBalance:  req.InitialBalance,
		SalaryAmount:    req.SalaryAmount,
		DiceSides:       req.DiceSides,
		CreatorNickname: req.Nickname,
		CreatorColor:    req.Color,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RoomResponse{Room: room, Player: player})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	players, err := h.registry.ListPlayers(c.Request.Context(), room.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":    room,
		"players": players,
	})
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	player, err := h.registry.JoinRoom(c.Request.Context(), c.Param("code"), callerID(c), req.Nickname, req.Color)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	room, err := h.registry.StartGame(c.Request.Context(), c.Param("code"), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) FinishGame(c *gin.Context) {
	room, err := h.registry.FinishGame(c.Request.Context(), c.Param("code"), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) ListPlayers(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	players, err := h.registry.ListPlayers(c.Request.Context(), room.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, players)
}

func (h *RoomHandler) GetPlayer(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	playerID, ok := pathUUID(c, "player_id")
	if !ok {
		return
	}

	player, err := h.registry.GetPlayer(c.Request.Context(), room.ID, playerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

type UpdatePlayerStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *RoomHandler) UpdatePlayerStatus(c *gin.Context) {
	playerID, ok := pathUUID(c, "player_id")
	if !ok {
		return
	}

	var req UpdatePlayerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	player, err := h.registry.UpdatePlayerStatus(c.Request.Context(), c.Param("code"), callerID(c), playerID, model.PlayerStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

// MySeat returns the caller's own seat in the room, so a reconnecting
// device can recover its player without re-joining.
func (h *RoomHandler) MySeat(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	seat, err := h.registry.GetSeat(c.Request.Context(), room.ID, callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}
