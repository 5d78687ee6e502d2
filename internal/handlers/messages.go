package handlers

import (
	"net/http"

	"github.com/pliu/chatd/internal/apperr"
	"github.com/pliu/chatd/internal/chat"
	"github.com/pliu/chatd/internal/metrics"
)

type MessageHandler struct {
	Chats   *chat.Service
	Metrics *metrics.Metrics
}

// SendMessageRequest.SenderID defaults to the caller and may not name anyone else.
type SendMessageRequest struct {
	ChatID   int    `json:"chat_id" validate:"required,gt=0"`
	SenderID int    `json:"sender_id" validate:"gte=0"`
	Content  string `json:"content" validate:"required"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.SenderID == 0 {
		req.SenderID = user.ID
	}
	if req.SenderID != user.ID {
		respondError(w, r, apperr.Forbidden("Cannot send messages as another user"))
		return
	}

	msg, err := h.Chats.SendMessage(r.Context(), req.ChatID, req.SenderID, req.Content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.Metrics.MessagesSent.Inc()
	respondJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) ListForChat(w http.ResponseWriter, r *http.Request) {
	chatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.Chats.RequireParticipant(r.Context(), chatID, user.ID); err != nil {
		respondError(w, r, err)
		return
	}
	messages, err := h.Chats.ListMessages(r.Context(), chatID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	msg, err := h.Chats.Message(r.Context(), messageID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Chats.RequireParticipant(r.Context(), msg.ChatID, user.ID); err != nil {
		respondError(w, r, err)
		return
	}

	msg, err = h.Chats.MarkRead(r.Context(), messageID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Delete removes a message. Only its sender may do so.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	msg, err := h.Chats.Message(r.Context(), messageID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if msg.SenderID != user.ID {
		respondError(w, r, apperr.Forbidden("Only the sender can delete a message"))
		return
	}

	if err := h.Chats.DeleteMessage(r.Context(), messageID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
