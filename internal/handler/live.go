package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"detectserver/internal/logger"
	"detectserver/internal/service"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveWebsocketHandler registers viewers with the hub so they receive an
// event for every processed upload.
func LiveWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hub := manager.GetWebsocketService()
		if hub == nil {
			respondError(w, http.StatusServiceUnavailable, "Live feed is disabled")
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !hub.Register(connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
