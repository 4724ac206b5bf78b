package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/26haroon26/chatapp-server/internal/middleware"
	"github.com/26haroon26/chatapp-server/internal/model"
	"github.com/26haroon26/chatapp-server/internal/repo"
	"github.com/26haroon26/chatapp-server/internal/ws"
)

// conversationLimit caps history responses.
const conversationLimit = 100

const sendExample = `{
	"to": "recipient user id",
	"text": "hi"
}`

// MessageHandler handles direct-message endpoints and their fan-out
type MessageHandler struct {
	messageRepo repo.MessageRepo
	hub         *ws.Hub
	validate    *validator.Validate
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageRepo repo.MessageRepo, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		hub:         hub,
		validate:    validator.New(),
	}
}

type sendMessageRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// HandleSend handles POST /message: durable write first, then best-effort
// broadcast on the two derived channels.
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.Identity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMissingFields(w, sendExample)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondMissingFields(w, sendExample)
		return
	}

	toID, err := uuid.Parse(req.To)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}

	message, err := h.messageRepo.Create(r.Context(), claims.UserID, toID, req.Text)
	if err != nil {
		log.Printf("message insert failed from=%s to=%s: %v", claims.UserID, toID, err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.hub.Broadcast(fmt.Sprintf("%s-%s", toID, claims.UserID), message)
	h.hub.Broadcast(fmt.Sprintf("personal-%s", toID), message)

	respondJSON(w, http.StatusOK, message)
}

// HandleConversation handles GET /messages/{id}: up to 100 messages between
// the caller and the given user, newest-first.
func (h *MessageHandler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.Identity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	otherID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	messages, err := h.messageRepo.Conversation(r.Context(), claims.UserID, otherID, conversationLimit)
	if err != nil {
		log.Printf("conversation query failed a=%s b=%s: %v", claims.UserID, otherID, err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}

	respondJSON(w, http.StatusOK, messages)
}
