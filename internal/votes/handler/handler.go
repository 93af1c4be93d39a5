package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	ratelimit "electiondesk/internal/ratelimit/middleware"
	ratelimitmodels "electiondesk/internal/ratelimit/models"
	"electiondesk/internal/votes/models"
	dErrors "electiondesk/pkg/domain-errors"
	"electiondesk/pkg/platform/httputil"
	"electiondesk/pkg/platform/middleware/actor"
	"electiondesk/pkg/requestcontext"
)

// Service defines the vote operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, draft models.Draft) (*models.VoteRecord, error)
	Correct(ctx context.Context, priorID models.RecordID, draft models.Draft) (*models.VoteRecord, error)
	Decide(ctx context.Context, id models.RecordID, verifier models.Identity, decision models.Decision, reason string) (*models.VoteRecord, error)
	Get(ctx context.Context, id models.RecordID) (*models.VoteRecord, error)
	ListByCenter(ctx context.Context, centerID models.CenterID) ([]models.VoteRecord, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.VoteRecord, error)
	Tally(ctx context.Context, centerID *models.CenterID) (*models.Tally, error)
	TallyByDistrict(ctx context.Context, district string) (*models.Tally, error)
}

type Handler struct {
	votes    Service
	logger   *slog.Logger
	throttle *ratelimit.Middleware
}

type Option func(*Handler)

// WithRateLimit throttles each route class per actor.
func WithRateLimit(m *ratelimit.Middleware) Option {
	return func(h *Handler) {
		h.throttle = m
	}
}

func New(votes Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{votes: votes, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the vote routes. Everything under /votes requires the
// upstream actor headers; tallies are public.
func (h *Handler) Register(r chi.Router) {
	submit := h.throttle.RateLimit(ratelimitmodels.ClassSubmit)
	decide := h.throttle.RateLimit(ratelimitmodels.ClassDecide)
	read := h.throttle.RateLimit(ratelimitmodels.ClassRead)

	r.Route("/votes", func(r chi.Router) {
		r.Use(actor.RequireActor(h.logger))
		r.With(submit).Post("/", h.handleSubmit)
		r.With(read).Get("/", h.handleList)
		r.With(read).Get("/{id}", h.handleGet)
		r.With(decide).Post("/{id}/decision", h.handleDecision)
		r.With(submit).Post("/{id}/corrections", h.handleCorrection)
	})
	r.With(read).Get("/tally", h.handleTally)
}

type partyVotesRequest struct {
	PartyID string `json:"party_id"`
	Votes   int64  `json:"votes"`
}

type submitRequest struct {
	CenterID    string              `json:"center_id"`
	TotalVotes  *int64              `json:"total_votes"`
	TotalVoters *int64              `json:"total_voters"`
	Breakdown   []partyVotesRequest `json:"breakdown"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

type recordResponse struct {
	*models.VoteRecord
	Unaccounted int64   `json:"unaccounted"`
	Turnout     float64 `json:"turnout"`
}

type tallyResponse struct {
	*models.Tally
	Turnout float64 `json:"turnout"`
}

func toRecordResponse(r *models.VoteRecord) recordResponse {
	return recordResponse{VoteRecord: r, Unaccounted: r.Unaccounted(), Turnout: r.Turnout()}
}

func (req *submitRequest) toDraft(submitter models.Identity) models.Draft {
	d := models.Draft{
		CenterID:    models.CenterID(strings.TrimSpace(req.CenterID)),
		TotalVotes:  req.TotalVotes,
		TotalVoters: req.TotalVoters,
		Submitter:   submitter,
	}
	for _, pv := range req.Breakdown {
		d.Breakdown = append(d.Breakdown, models.PartyVotes{PartyID: models.PartyID(pv.PartyID), Votes: pv.Votes})
	}
	return d
}

func identityFrom(r *http.Request) models.Identity {
	a, _ := actor.FromContext(r.Context())
	return models.Identity{
		ID:      a.ID,
		Name:    a.Name,
		Contact: a.Contact,
		Role:    models.ParseRole(a.Role),
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[submitRequest](r)
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	record, err := h.votes.Submit(r.Context(), req.toDraft(identityFrom(r)))
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (h *Handler) handleCorrection(w http.ResponseWriter, r *http.Request) {
	priorID, err := models.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "correct", err)
		return
	}
	req, err := httputil.DecodeJSON[submitRequest](r)
	if err != nil {
		h.fail(w, r, "correct", err)
		return
	}
	record, err := h.votes.Correct(r.Context(), priorID, req.toDraft(identityFrom(r)))
	if err != nil {
		h.fail(w, r, "correct", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "decide", err)
		return
	}
	req, err := httputil.DecodeJSON[decisionRequest](r)
	if err != nil {
		h.fail(w, r, "decide", err)
		return
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		h.fail(w, r, "decide", err)
		return
	}
	record, err := h.votes.Decide(r.Context(), id, identityFrom(r), decision, req.Reason)
	if err != nil {
		h.fail(w, r, "decide", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	record, err := h.votes.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

// handleList serves ?center= and/or ?status=. With both, the center's records
// are filtered by status.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center := strings.TrimSpace(q.Get("center"))
	rawStatus := strings.TrimSpace(q.Get("status"))

	var status models.Status
	if rawStatus != "" {
		parsed, err := models.ParseStatus(rawStatus)
		if err != nil {
			h.fail(w, r, "list", err)
			return
		}
		status = parsed
	}

	var (
		records []models.VoteRecord
		err     error
	)
	switch {
	case center != "":
		records, err = h.votes.ListByCenter(r.Context(), models.CenterID(center))
		if err == nil && status != "" {
			records = filterStatus(records, status)
		}
	case status != "":
		records, err = h.votes.ListByStatus(r.Context(), status)
	default:
		err = dErrors.New(dErrors.CodeBadRequest, "center or status query parameter is required")
	}
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}

	out := make([]recordResponse, len(records))
	for i := range records {
		out[i] = toRecordResponse(&records[i])
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) handleTally(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center := strings.TrimSpace(q.Get("center"))
	district := strings.TrimSpace(q.Get("district"))

	var (
		tally *models.Tally
		err   error
	)
	switch {
	case center != "" && district != "":
		err = dErrors.New(dErrors.CodeBadRequest, "center and district cannot be combined")
	case district != "":
		tally, err = h.votes.TallyByDistrict(r.Context(), district)
	case center != "":
		id := models.CenterID(center)
		tally, err = h.votes.Tally(r.Context(), &id)
	default:
		tally, err = h.votes.Tally(r.Context(), nil)
	}
	if err != nil {
		h.fail(w, r, "tally", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tallyResponse{Tally: tally, Turnout: tally.Turnout()})
}

func filterStatus(records []models.VoteRecord, status models.Status) []models.VoteRecord {
	out := records[:0]
	for _, r := range records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "vote request failed",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
