package realtime

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades connections to WebSocket sessions. The client
// authenticates with a ?ticket= query parameter (see TicketIssuer) and then
// sends {"trip_id": N} frames to join a trip's live channel.
func HandleWebSocket(hub *Hub, tickets *TicketIssuer, members MembershipChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := tickets.Verify(r.URL.Query().Get("ticket"))
		if err != nil {
			logger.Warn("ws ticket rejected", "error", err)
			http.Error(w, "invalid ticket", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("ws accept", "error", err)
			return
		}

		client := NewClient(hub, conn, userID, members, logger)
		client.Run(r.Context())
	}
}
