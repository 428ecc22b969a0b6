package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"banko/internal/model"
	"banko/internal/service"
)

type ActivityHandler struct {
	registry *service.RegistryService
	dice     *service.DiceService
	activity *service.ActivityService
}

func NewActivityHandler(registry *service.RegistryService, dice *service.DiceService, activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{registry: registry, dice: dice, activity: activity}
}

type RollDiceRequest struct {
	Sides int `json:"sides"`
}

type RollDiceResponse struct {
	Roll  int              `json:"roll"`
	Sides int              `json:"sides"`
	Event *model.GameEvent `json:"event"`
}

// RollDice rolls with the requested side count, falling back to the
// room's configured dice when the body omits one.
func (h *ActivityHandler) RollDice(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req RollDiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	sides := req.Sides
	if sides == 0 {
		sides = room.DiceSides
	}

	roll, event, err := h.dice.RollDice(c.Request.Context(), callerID(c), room.ID, sides)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RollDiceResponse{Roll: roll, Sides: sides, Event: event})
}

func (h *ActivityHandler) ListEvents(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.activity.Events(c.Request.Context(), room.ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *ActivityHandler) Feed(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	feed, err := h.activity.Feed(c.Request.Context(), room.ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}
