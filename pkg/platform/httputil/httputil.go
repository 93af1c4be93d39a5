// Package httputil writes JSON responses and maps domain error codes to HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "electiondesk/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and writes the standard error body.
// Errors without a domain code are reported as internal and their text is withheld.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = dErrors.New(dErrors.CodeInternal, "internal error")
	}
	body := errorBody{Error: string(de.Code)}
	if de.Code != dErrors.CodeInternal && de.Code != dErrors.CodeStorageUnavailable {
		body.Description = de.Message
	}
	WriteJSON(w, StatusFor(de.Code), body)
}

// StatusFor maps a domain code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeMissingField:
		return http.StatusBadRequest
	case dErrors.CodeUnknownCenter, dErrors.CodeInactiveCenter, dErrors.CodeInvalidTotals,
		dErrors.CodeUnknownParty, dErrors.CodeBreakdownOverflow:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeAlreadyFinalized:
		return http.StatusConflict
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a bounded request body into T, rejecting unknown fields.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var v T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return &v, nil
}
