package ws

import (
	"encoding/json"
	"io"
	"sync"
)

// Frame is the single wire shape for both directions of the push channel.
type Frame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Frame types emitted by the server.
const (
	FrameGreeting = "greeting"
	FrameMessage  = "message"
	FrameError    = "error"
)

// Peer is one live push connection. Writes are serialized so concurrent
// broadcasts cannot interleave frames on the socket.
type Peer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewPeer wraps a connection's write side
func NewPeer(w io.Writer) *Peer {
	return &Peer{enc: json.NewEncoder(w)}
}

// Send writes one frame to the peer
func (p *Peer) Send(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(frame)
}

// Hub tracks which peers are subscribed to which channel names. Channels are
// plain derived strings ("{to}-{from}", "personal-{to}"); nothing about them
// is persisted.
type Hub struct {
	mu       sync.Mutex
	channels map[string]map[*Peer]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*Peer]struct{})}
}

// Subscribe adds the peer to a channel
func (h *Hub) Subscribe(channel string, peer *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*Peer]struct{})
		h.channels[channel] = subs
	}
	subs[peer] = struct{}{}
}

// Unsubscribe removes the peer from a channel
func (h *Hub) Unsubscribe(channel string, peer *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(channel, peer)
}

// Drop removes the peer from every channel; called on disconnect
func (h *Hub) Drop(peer *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel := range h.channels {
		h.removeLocked(channel, peer)
	}
}

func (h *Hub) removeLocked(channel string, peer *Peer) {
	subs, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(subs, peer)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
}

// Subscribers reports how many peers are currently subscribed to the channel
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channel])
}

// Broadcast sends data to every peer currently subscribed to the channel.
// Best-effort: write failures are ignored, there is no replay for peers that
// connect later. Returns how many peers were addressed.
func (h *Hub) Broadcast(channel string, data any) int {
	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.channels[channel]))
	for peer := range h.channels[channel] {
		peers = append(peers, peer)
	}
	h.mu.Unlock()

	frame := Frame{Type: FrameMessage, Channel: channel, Data: data}
	for _, peer := range peers {
		_ = peer.Send(frame)
	}
	return len(peers)
}
