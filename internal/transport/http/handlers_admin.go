package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oggyb/vivah/internal/service/admin"
)

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Admin.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Admin.ListUsers(r.Context(), admin.ListInput{
		Status: q.Get("status"),
		Query:  q.Get("q"),
		Cursor: q.Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminGetUser(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Admin.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var p admin.UserPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Admin.UpdateUser(r.Context(), chi.URLParam(r, "userID"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Admin.SetAccountStatus(r.Context(), chi.URLParam(r, "userID"), in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminSoftDelete(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Admin.SoftDeleteUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminHardDelete(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Admin.HardDeleteUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
