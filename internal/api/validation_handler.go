package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/repo"
	"github.com/shaiso/Preflight/internal/telemetry"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListValidations возвращает список validation runs.
// GET /api/v1/validations?review_request=owner/repo%2342&status=...&limit=...&offset=...
func (h *Handler) ListValidations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repo.RunFilter{Limit: defaultListLimit}

	if s := query.Get("review_request"); s != "" {
		ref, err := domain.ParseReviewRequest(s)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		filter.ReviewRequest = &ref
	}

	if status := query.Get("status"); status != "" {
		filter.Status = domain.RunStatus(status)
	}

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	if s := query.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	logger := telemetry.FromContext(r.Context())
	runs, err := h.runs.List(r.Context(), filter)
	if StoreError(w, logger, err, "") {
		return
	}

	result := make([]ValidationResponse, len(runs))
	for i, run := range runs {
		result[i] = ValidationFromDomain(run)
	}

	List(w, result, Page{Count: len(result), Limit: filter.Limit, Offset: filter.Offset})
}

// CreateValidation создаёт validation run.
// POST /api/v1/validations
func (h *Handler) CreateValidation(w http.ResponseWriter, r *http.Request) {
	var req CreateValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	ref, err := req.Resolve()
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	run, err := h.enqueue(r.Context(), ref)
	if err != nil {
		InternalError(w, telemetry.FromContext(r.Context()), err)
		return
	}

	Created(w, ValidationFromDomain(*run))
}

// GetValidation возвращает validation run по ID.
// GET /api/v1/validations/{id}
func (h *Handler) GetValidation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid validation id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if StoreError(w, telemetry.FromContext(r.Context()), err, "validation not found") {
		return
	}

	Success(w, ValidationFromDomain(*run))
}

// enqueue сохраняет PENDING run и публикует запрос оркестратору.
// Ошибка публикации не фатальна: run подхватит polling.
func (h *Handler) enqueue(ctx context.Context, ref domain.ReviewRequest) (*domain.Run, error) {
	logger := telemetry.FromContext(ctx)

	run := domain.NewRun(ref)
	if err := h.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	if h.publisher != nil {
		if err := h.publisher.PublishValidationRequested(ctx, run); err != nil {
			logger.Warn("failed to publish validation.requested", "run_id", run.ID, "error", err)
		}
	}

	logger.Info("validation requested", "run_id", run.ID, "review_request", ref.String())
	return run, nil
}
