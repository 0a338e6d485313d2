package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type sendInterestRequest struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (h *Handler) sendInterest(w http.ResponseWriter, r *http.Request) {
	var in sendInterestRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Interest.SendInterest(r.Context(), UserID(r.Context()), in.ReceiverID, in.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) listSentInterests(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Interest.ListSentInterests(r.Context(), UserID(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listReceivedInterests(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Interest.ListReceivedInterests(r.Context(), UserID(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) pendingInterestCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Interest.CountPendingReceived(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) interestStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Interest.GetInterestStatus(r.Context(), UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) acceptInterest(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Interest.AcceptInterest(r.Context(), chi.URLParam(r, "interestID"), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) rejectInterest(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Interest.RejectInterest(r.Context(), chi.URLParam(r, "interestID"), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) cancelInterest(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Interest.CancelInterest(r.Context(), chi.URLParam(r, "interestID"), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
