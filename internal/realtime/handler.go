package realtime

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the connection and starts its pumps. A verified token
// may ride along with the upgrade request; otherwise the connection stays
// in the unauthenticated state until an authenticate frame arrives. A bare
// user id is never accepted.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			tokenString = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}

		var userID string
		if tokenString != "" {
			claims, err := hub.verifier.ValidateToken(tokenString)
			if err != nil {
				log.Printf("Websocket upgrade rejected: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			userID = claims.UserID
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Websocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
			id:     uuid.NewString(),
			userID: userID,
		}
		if userID != "" {
			hub.attach(client)
		}

		go client.writePump()
		go client.readPump()
	}
}
