package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electiondesk/internal/registry/models"
	"electiondesk/internal/registry/service"
	"electiondesk/internal/registry/store"
	"electiondesk/pkg/testutil"
)

const adminToken = "secret-token"

func newRegistryRouter(t *testing.T) (http.Handler, *service.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), service.WithLogger(logger))
	_, err := svc.UpsertCenter(context.Background(), "seed", service.CenterInput{
		ID: "PC-001", District: "Dhaka", Thana: "Mirpur", Name: "Mirpur School", Voters: 1000,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger, adminToken).Register(r)
	return r, svc
}

func TestGetCenter(t *testing.T) {
	router, _ := newRegistryRouter(t)

	testutil.Given(t, "a seeded center", func(t *testing.T) {
		testutil.When(t, "fetching it", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/registry/centers/PC-001"))

			testutil.Then(t, "the center is returned", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				c := testutil.UnmarshalResponse[models.PollingCenter](t, rr)
				assert.Equal(t, "Mirpur School", c.Name)
			})
		})

		testutil.When(t, "fetching an unknown id", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/registry/centers/PC-404"))

			testutil.Then(t, "404 not_found", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
			})
		})
	})
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _ := newRegistryRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/admin/registry/parties/A", map[string]string{"name": "Party A"})
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminEdits(t *testing.T) {
	router, svc := newRegistryRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/admin/registry/parties/A", map[string]string{"name": "Party A", "symbol": "boat"})
	req.Header.Set("X-Admin-Token", adminToken)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/admin/registry/centers/PC-001/status", map[string]string{"status": "inactive"})
	req.Header.Set("X-Admin-Token", adminToken)
	rr = testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	c, err := svc.GetCenter(context.Background(), "PC-001")
	require.NoError(t, err)
	assert.False(t, c.IsActive())

	req = testutil.NewJSONRequest(t, http.MethodPost, "/admin/registry/centers/PC-001/status", map[string]string{"status": "archived"})
	req.Header.Set("X-Admin-Token", adminToken)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestListParties(t *testing.T) {
	router, svc := newRegistryRouter(t)
	_, err := svc.UpsertParty(context.Background(), "seed", service.PartyInput{ID: "B", Name: "Party B"})
	require.NoError(t, err)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/registry/parties"))
	testutil.AssertStatusOK(t, rr)

	var body struct {
		Parties []models.PoliticalParty `json:"parties"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Parties, 1)
	assert.Equal(t, models.PartyID("B"), body.Parties[0].ID)
}
