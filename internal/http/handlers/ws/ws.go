package ws

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cifan-festival/submission-service/internal/utils/jwt"
	"github.com/cifan-festival/submission-service/internal/utils/response"
	ws "github.com/cifan-festival/submission-service/internal/websocket"
)

// Connect upgrades to WebSocket and registers the connection for
// submission progress push. Browsers cannot set headers on WebSocket
// handshakes, so the session token arrives as a query parameter. Query
// strings can surface in proxy and server access logs; deployments must
// terminate TLS in front of this endpoint and scrub the token parameter
// from request logging. A single-use ticket issued over an authenticated
// POST would remove the exposure entirely.
// TODO: switch to a short-lived connection ticket once the frontend adds
// the ticket exchange call.
// @Summary Open the realtime event stream
// @Tags events
// @Param token query string true "Session token"
// @Router /ws [get]
func Connect(hub *ws.Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("token is required")))
			return
		}

		claims, err := jwt.ParseToken(token, jwtSecret)
		if err != nil {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid token")))
			return
		}

		conn, err := ws.Upgrade(w, r)
		if err != nil {
			slog.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		client := ws.NewClient(conn, claims.UserID, hub)
		hub.RegisterClient(client)
		client.Start()
	}
}
