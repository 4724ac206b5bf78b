package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/26haroon26/chatapp-server/internal/auth"
	"github.com/26haroon26/chatapp-server/internal/middleware"
)

// testConn bundles a dialed connection with a single decoder, so buffered
// frames are not lost between reads.
type testConn struct {
	conn *websocket.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

func (c *testConn) read(t *testing.T) Frame {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, c.dec.Decode(&frame))
	return frame
}

func (c *testConn) write(t *testing.T, frame Frame) {
	t.Helper()
	require.NoError(t, c.enc.Encode(frame))
}

func wsFixture(t *testing.T) (*Hub, *httptest.Server, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("test-secret")
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, middleware.NewGate(tokens)))
	t.Cleanup(srv.Close)
	return hub, srv, tokens
}

func dialWS(t *testing.T, srv *httptest.Server, cookie string) (*testConn, error) {
	t.Helper()
	wsURL := strings.Replace(srv.URL, "http", "ws", 1)
	config, err := websocket.NewConfig(wsURL, "http://localhost")
	require.NoError(t, err)
	if cookie != "" {
		config.Header.Set("Cookie", cookie)
	}
	conn, err := websocket.DialConfig(config)
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { conn.Close() })
	return &testConn{conn: conn, dec: json.NewDecoder(conn), enc: json.NewEncoder(conn)}, nil
}

func dialAuthed(t *testing.T, srv *httptest.Server, tokens *auth.TokenService, userID uuid.UUID) *testConn {
	t.Helper()
	token, err := tokens.Sign(userID, "john@example.com")
	require.NoError(t, err)
	conn, err := dialWS(t, srv, middleware.TokenCookie+"="+token)
	require.NoError(t, err)
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, channel string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(channel) != want {
		if time.Now().After(deadline) {
			t.Fatalf("channel %q never reached %d subscribers", channel, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandshakeRejectedWithoutCookie(t *testing.T) {
	_, srv, _ := wsFixture(t)

	_, err := dialWS(t, srv, "")
	assert.Error(t, err, "connection must be refused outright")
}

func TestHandshakeRejectedWithBadToken(t *testing.T) {
	_, srv, _ := wsFixture(t)

	badToken, err := auth.NewTokenService("other-secret").Sign(uuid.New(), "john@example.com")
	require.NoError(t, err)

	_, err = dialWS(t, srv, middleware.TokenCookie+"="+badToken)
	assert.Error(t, err)
}

func TestGreetingOnConnect(t *testing.T) {
	_, srv, tokens := wsFixture(t)

	userID := uuid.New()
	conn := dialAuthed(t, srv, tokens, userID)

	greeting := conn.read(t)
	assert.Equal(t, FrameGreeting, greeting.Type)
	data, ok := greeting.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, userID.String(), data["id"])
}

func TestSubscribeAndReceiveBroadcast(t *testing.T) {
	hub, srv, tokens := wsFixture(t)

	conn := dialAuthed(t, srv, tokens, uuid.New())
	_ = conn.read(t) // greeting

	conn.write(t, Frame{Type: "subscribe", Channel: "personal-u2"})
	waitForSubscribers(t, hub, "personal-u2", 1)

	hub.Broadcast("personal-u2", map[string]string{"text": "hi"})

	frame := conn.read(t)
	assert.Equal(t, FrameMessage, frame.Type)
	assert.Equal(t, "personal-u2", frame.Channel)
	data, ok := frame.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", data["text"])
}

func TestUnsubscribeFrame(t *testing.T) {
	hub, srv, tokens := wsFixture(t)

	conn := dialAuthed(t, srv, tokens, uuid.New())
	_ = conn.read(t) // greeting

	conn.write(t, Frame{Type: "subscribe", Channel: "c"})
	waitForSubscribers(t, hub, "c", 1)

	conn.write(t, Frame{Type: "unsubscribe", Channel: "c"})
	waitForSubscribers(t, hub, "c", 0)
}

func TestDisconnectCleansUpSubscriptions(t *testing.T) {
	hub, srv, tokens := wsFixture(t)

	conn := dialAuthed(t, srv, tokens, uuid.New())
	_ = conn.read(t) // greeting

	conn.write(t, Frame{Type: "subscribe", Channel: "c"})
	waitForSubscribers(t, hub, "c", 1)

	require.NoError(t, conn.conn.Close())
	waitForSubscribers(t, hub, "c", 0)
}

func TestSubscribeRequiresChannel(t *testing.T) {
	_, srv, tokens := wsFixture(t)

	conn := dialAuthed(t, srv, tokens, uuid.New())
	_ = conn.read(t) // greeting

	conn.write(t, Frame{Type: "subscribe"})
	frame := conn.read(t)
	assert.Equal(t, FrameError, frame.Type)
}

func TestUnsupportedFrameType(t *testing.T) {
	_, srv, tokens := wsFixture(t)

	conn := dialAuthed(t, srv, tokens, uuid.New())
	_ = conn.read(t) // greeting

	conn.write(t, Frame{Type: "nope"})
	frame := conn.read(t)
	assert.Equal(t, FrameError, frame.Type)
}
