package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"banko/internal/notifier"
	"banko/internal/service"
)

type WSHandler struct {
	registry *service.RegistryService
	hub      *notifier.Hub
}

func NewWSHandler(registry *service.RegistryService, hub *notifier.Hub) *WSHandler {
	return &WSHandler{registry: registry, hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket subscribes the connection to committed-change events for
// one room. The server only pushes; inbound frames are drained and
// discarded until the client disconnects.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	room, err := h.registry.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.AddConnection(room.ID, conn)
	defer h.hub.RemoveConnection(room.ID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
