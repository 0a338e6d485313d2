package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/logger"
)

const maxJSONBody = 1 << 20

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeKind(w http.ResponseWriter, status int, kind svcErr.Kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{Kind: string(kind), Message: msg}})
}

// writeError renders a service error with its taxonomy status. Internal
// errors never leak their cause; it goes to the request logger instead.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := svcErr.KindOf(err)
	if kind == svcErr.KindInternal {
		logger.FromContext(r.Context(), nil).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
	}
	writeKind(w, svcErr.HTTPStatus(kind), kind, svcErr.PublicMessage(err))
}

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected so typos in patch bodies surface as validation errors.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return svcErr.Validation("request body is required")
		}
		return svcErr.Validation("malformed request body")
	}
	return nil
}
