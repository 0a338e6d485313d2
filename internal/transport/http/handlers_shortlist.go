package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listShortlist(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Shortlist.ListShortlist(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) isShortlisted(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.Shortlist.IsShortlisted(r.Context(), UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"shortlisted": ok})
}

func (h *Handler) addShortlist(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Shortlist.AddShortlist(r.Context(), UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) removeShortlist(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Shortlist.RemoveShortlist(r.Context(), UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
