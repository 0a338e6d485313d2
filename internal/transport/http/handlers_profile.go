package httptransport

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/service/profile"
)

const maxPhotoBytes = 5 << 20

func (h *Handler) getOwnProfile(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Profile.GetOwnProfile(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateOwnProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Profile.UpdateOwnProfile(r.Context(), UserID(r.Context()), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// addPhoto takes a multipart form with a single "photo" file.
func (h *Handler) addPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1<<16)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, r, svcErr.Validation("photo must be a multipart upload of at most 5 MB"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, r, svcErr.Validation("photo is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		writeError(w, r, svcErr.Validation("could not read photo"))
		return
	}
	if len(data) > maxPhotoBytes {
		writeError(w, r, svcErr.Validation("photo must be at most 5 MB"))
		return
	}

	out, err := h.svc.Profile.AddPhoto(r.Context(), UserID(r.Context()), header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// removePhoto takes the photo reference in the ref query parameter.
func (h *Handler) removePhoto(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeError(w, r, svcErr.Validation("ref is required"))
		return
	}
	out, err := h.svc.Profile.RemovePhoto(r.Context(), UserID(r.Context()), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getPublicProfile(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Profile.GetPublicProfile(r.Context(), UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) searchProfiles(w http.ResponseWriter, r *http.Request) {
	in, err := searchInput(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Profile.Search(r.Context(), UserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func searchInput(q url.Values) (profile.SearchInput, error) {
	in := profile.SearchInput{
		Gender:        q.Get("gender"),
		MaritalStatus: q.Get("maritalStatus"),
		Religion:      q.Get("religion"),
		Caste:         q.Get("caste"),
		MotherTongue:  q.Get("motherTongue"),
		City:          q.Get("city"),
		State:         q.Get("state"),
		Country:       q.Get("country"),
		Education:     q.Get("education"),
		Profession:    q.Get("profession"),
		Cursor:        q.Get("cursor"),
	}
	var err error
	if in.MinAge, err = intParam(q, "minAge"); err != nil {
		return in, err
	}
	if in.MaxAge, err = intParam(q, "maxAge"); err != nil {
		return in, err
	}
	if in.Limit, err = intParam(q, "limit"); err != nil {
		return in, err
	}
	return in, nil
}

func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, svcErr.Validation("%s must be a number", key)
	}
	return n, nil
}
