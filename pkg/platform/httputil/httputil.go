// Package httputil holds the JSON plumbing shared by all handlers: response
// writing and strict request decoding with the error taxonomy applied.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "lofo/pkg/domain-errors"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err's code to an HTTP status and writes the error
// body. Internal errors keep their detail out of the response; everything a
// caller can act on is included.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// Decode strictly decodes the request body into T. On failure it writes a
// bad_request response and reports false; the handler should return.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		if logger != nil {
			logger.DebugContext(r.Context(), "request decode failed", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}
