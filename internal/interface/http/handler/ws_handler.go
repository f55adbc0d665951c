package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/order-intake/internal/service"
	"github.com/ignatzorin/order-intake/internal/ws"
)

// WSHandler подписывает клиента на события отправки его сессии.
type WSHandler struct {
	hub      *ws.Hub
	sessions *service.SessionStore
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт хэндлер. Пустой allowedOrigins разрешает любой origin.
func NewWSHandler(hub *ws.Hub, sessions *service.SessionStore, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/wizard/:id/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	id, err := getSessionID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if _, err := h.sessions.Get(id, userID); err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту.
		return
	}

	ws.NewClient(conn, h.hub, id).Run(c.Request.Context())
}
