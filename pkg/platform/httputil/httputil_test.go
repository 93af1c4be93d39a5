package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "electiondesk/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("storage failure omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeStorageUnavailable, "db failed"))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "storage_unavailable" {
			t.Fatalf("expected error code storage_unavailable, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for storage errors")
		}
	})

	t.Run("validation failure includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidTotals, "total votes exceed registered voters"))

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "invalid_totals" {
			t.Fatalf("expected error code invalid_totals, got %q", body["error"])
		}
		if body["error_description"] != "total votes exceed registered voters" {
			t.Fatalf("expected error_description to be returned for validation errors")
		}
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("pq: relation does not exist"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
		if strings.Contains(w.Body.String(), "relation") {
			t.Fatalf("expected raw error text to be withheld, got %s", w.Body.String())
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeMissingField:     http.StatusBadRequest,
		dErrors.CodeUnknownCenter:    http.StatusUnprocessableEntity,
		dErrors.CodeNotFound:         http.StatusNotFound,
		dErrors.CodeAlreadyFinalized: http.StatusConflict,
		dErrors.CodeForbidden:        http.StatusForbidden,
		dErrors.CodeUnauthorized:     http.StatusUnauthorized,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	_, err := DecodeJSON[payload](r)
	if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad_request, got %v", err)
	}
}
