package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/26haroon26/chatapp-server/internal/auth"
	"github.com/26haroon26/chatapp-server/internal/mail"
	"github.com/26haroon26/chatapp-server/internal/middleware"
)

// maxDecodeErrors is how many malformed frames a client may send before the
// connection is dropped.
const maxDecodeErrors = 5

type wsIdentityKey struct{}

// NewHandler returns the push-channel endpoint. The session cookie is checked
// once, at handshake time; a failed check rejects the upgrade outright and the
// client gets no further interaction.
func NewHandler(hub *Hub, gate *middleware.Gate) http.Handler {
	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		serveConn(conn, hub)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		claims, err := gate.FromRequest(r)
		if err != nil {
			log.Printf("ws: handshake rejected for remote=%s: %v", r.RemoteAddr, err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), wsIdentityKey{}, claims)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})
}

func serveConn(conn *websocket.Conn, hub *Hub) {
	defer conn.Close()

	var claims *auth.SessionClaims
	if r := conn.Request(); r != nil {
		claims, _ = r.Context().Value(wsIdentityKey{}).(*auth.SessionClaims)
	}
	if claims == nil {
		return
	}

	peer := NewPeer(conn)
	defer hub.Drop(peer)

	_ = peer.Send(Frame{Type: FrameGreeting, Data: map[string]string{
		"id":      claims.UserID.String(),
		"message": "connected",
	}})

	log.Printf("ws: connected user=%s email=%s", claims.UserID, mail.MaskEmail(claims.Email))

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			if decodeErrors >= maxDecodeErrors {
				return
			}
			_ = peer.Send(Frame{Type: FrameError, Error: "invalid frame"})
			continue
		}
		decodeErrors = 0

		channel := strings.TrimSpace(frame.Channel)
		switch frame.Type {
		case "subscribe":
			if channel == "" {
				_ = peer.Send(Frame{Type: FrameError, Error: "channel is required"})
				continue
			}
			hub.Subscribe(channel, peer)
		case "unsubscribe":
			if channel == "" {
				_ = peer.Send(Frame{Type: FrameError, Error: "channel is required"})
				continue
			}
			hub.Unsubscribe(channel, peer)
		default:
			_ = peer.Send(Frame{Type: FrameError, Error: "unsupported frame type"})
		}
	}
}
