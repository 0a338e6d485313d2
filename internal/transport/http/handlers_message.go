package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in sendMessageRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Messaging.SendMessage(r.Context(), UserID(r.Context()), in.ReceiverID, in.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Messaging.ListConversations(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// listThread also marks the caller's unread messages in the thread as read.
func (h *Handler) listThread(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Messaging.ListThread(r.Context(), UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) markMessageRead(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Messaging.MarkMessageRead(r.Context(), chi.URLParam(r, "messageID"), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Messaging.UnreadCount(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) canMessage(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.Messaging.CanMessage(r.Context(), UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"canMessage": ok})
}
