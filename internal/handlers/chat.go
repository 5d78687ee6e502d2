package handlers

import (
	"net/http"

	"github.com/pliu/chatd/internal/chat"
	"github.com/pliu/chatd/internal/metrics"
)

type ChatHandler struct {
	Chats   *chat.Service
	Metrics *metrics.Metrics
}

type CreateChatRequest struct {
	ParticipantIDs []int `json:"participant_ids" validate:"required,dive,gt=0"`
	IsGroup        bool  `json:"is_group"`
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.Chats.CreateChat(r.Context(), req.ParticipantIDs, req.IsGroup)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.Metrics.ChatsCreated.Inc()
	respondJSON(w, http.StatusOK, c)
}

func (h *ChatHandler) UserChats(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	chats, err := h.Chats.UserChats(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	chatID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.Chats.AddParticipant(r.Context(), chatID, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// RemoveUser is allowed for current members of the chat only.
func (h *ChatHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	chatID, userID, err := h.memberAction(r, "user_id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.Chats.RemoveParticipant(r.Context(), chatID, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, _, err := h.memberAction(r, "")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.Chats.DeleteChat(r.Context(), chatID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// memberAction parses the chat id (and optionally a second path id) and checks
// that the caller participates in the chat.
func (h *ChatHandler) memberAction(r *http.Request, second string) (chatID, otherID int, err error) {
	if chatID, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	if second != "" {
		if otherID, err = pathID(r, second); err != nil {
			return 0, 0, err
		}
	}

	user, err := caller(r)
	if err != nil {
		return 0, 0, err
	}
	if err := h.Chats.RequireParticipant(r.Context(), chatID, user.ID); err != nil {
		return 0, 0, err
	}
	return chatID, otherID, nil
}
