package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"electiondesk/internal/registry/models"
	"electiondesk/internal/registry/service"
	"electiondesk/pkg/platform/httputil"
	"electiondesk/pkg/platform/middleware/admin"
	"electiondesk/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	GetCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, error)
	GetParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, error)
	ListCenters(ctx context.Context) ([]models.PollingCenter, error)
	ListParties(ctx context.Context) ([]models.PoliticalParty, error)
	UpsertCenter(ctx context.Context, actorID string, in service.CenterInput) (*models.PollingCenter, error)
	UpsertParty(ctx context.Context, actorID string, in service.PartyInput) (*models.PoliticalParty, error)
	SetCenterStatus(ctx context.Context, actorID string, id models.CenterID, status models.Status) error
	SetPartyStatus(ctx context.Context, actorID string, id models.PartyID, status models.Status) error
}

type Handler struct {
	registry   Service
	logger     *slog.Logger
	adminToken string
}

func New(registry Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{registry: registry, logger: logger, adminToken: adminToken}
}

// Register mounts read routes under /registry and token-guarded edit routes
// under /admin/registry.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registry", func(r chi.Router) {
		r.Get("/centers", h.handleListCenters)
		r.Get("/centers/{id}", h.handleGetCenter)
		r.Get("/parties", h.handleListParties)
		r.Get("/parties/{id}", h.handleGetParty)
	})
	r.Route("/admin/registry", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Put("/centers/{id}", h.handlePutCenter)
		r.Put("/parties/{id}", h.handlePutParty)
		r.Post("/centers/{id}/status", h.handleCenterStatus)
		r.Post("/parties/{id}/status", h.handlePartyStatus)
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleGetCenter(w http.ResponseWriter, r *http.Request) {
	c, err := h.registry.GetCenter(r.Context(), models.CenterID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "get center", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleGetParty(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GetParty(r.Context(), models.PartyID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "get party", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleListCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := h.registry.ListCenters(r.Context())
	if err != nil {
		h.fail(w, r, "list centers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"centers": centers})
}

func (h *Handler) handleListParties(w http.ResponseWriter, r *http.Request) {
	parties, err := h.registry.ListParties(r.Context())
	if err != nil {
		h.fail(w, r, "list parties", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"parties": parties})
}

func (h *Handler) handlePutCenter(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[service.CenterInput](r)
	if err != nil {
		h.fail(w, r, "put center", err)
		return
	}
	in.ID = models.CenterID(chi.URLParam(r, "id"))
	c, err := h.registry.UpsertCenter(r.Context(), "admin", *in)
	if err != nil {
		h.fail(w, r, "put center", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handlePutParty(w http.ResponseWriter, r *http.Request) {
	in, err := httputil.DecodeJSON[service.PartyInput](r)
	if err != nil {
		h.fail(w, r, "put party", err)
		return
	}
	in.ID = models.PartyID(chi.URLParam(r, "id"))
	p, err := h.registry.UpsertParty(r.Context(), "admin", *in)
	if err != nil {
		h.fail(w, r, "put party", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCenterStatus(w http.ResponseWriter, r *http.Request) {
	status, err := decodeStatus(r)
	if err == nil {
		err = h.registry.SetCenterStatus(r.Context(), "admin", models.CenterID(chi.URLParam(r, "id")), status)
	}
	if err != nil {
		h.fail(w, r, "set center status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePartyStatus(w http.ResponseWriter, r *http.Request) {
	status, err := decodeStatus(r)
	if err == nil {
		err = h.registry.SetPartyStatus(r.Context(), "admin", models.PartyID(chi.URLParam(r, "id")), status)
	}
	if err != nil {
		h.fail(w, r, "set party status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeStatus(r *http.Request) (models.Status, error) {
	req, err := httputil.DecodeJSON[statusRequest](r)
	if err != nil {
		return "", err
	}
	return models.ParseStatus(req.Status)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "registry request failed",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
