package handlers

import (
	"net/http"

	ws "sierra/internal/websocket"

	gorilla "github.com/gorilla/websocket"
	"github.com/lithammer/shortuuid/v4"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement is handled by the CORS layer in front of the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the connection and binds it to the user named by
// the token query parameter. The browser websocket API cannot set an
// Authorization header, so /ws authenticates via query string instead.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}

		claims, err := s.Auth.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.Log.Errorw("websocket upgrade failed", "error", err)
			return
		}

		client := &ws.Client{
			Hub:       s.Hub,
			UserID:    claims.UserID,
			SessionID: shortuuid.New(),
			Conn:      conn,
			Send:      make(chan []byte, 256),
			Sink:      s.Engine,
			Log:       s.Log,
		}
		s.Hub.Join(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
