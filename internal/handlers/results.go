package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/luckynumbers/api/internal/models"
	"github.com/luckynumbers/api/internal/services"
	pkghttp "github.com/luckynumbers/api/pkg/http"
)

// ResultServiceInterface defines the interface for draw-result business logic
type ResultServiceInterface interface {
	Upsert(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error)
	Edit(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error)
	DeclareFirstRound(ctx context.Context, date string, number int) (*models.Result, error)
	DeclareSecondRound(ctx context.Context, date string, number int) (*models.Result, error)
	SetLocked(ctx context.Context, date string, locked bool) (*models.Result, error)
	GetToday(ctx context.Context) (*models.Result, error)
	GetByDate(ctx context.Context, date string) (*models.Result, error)
	History(ctx context.Context, from, to string, limit, page int) ([]*models.Result, int, error)
}

// ResultHandler handles public result reads and admin result mutations
type ResultHandler struct {
	service ResultServiceInterface
}

// NewResultHandler creates a new ResultHandler
func NewResultHandler(service ResultServiceInterface) *ResultHandler {
	return &ResultHandler{service: service}
}

// UpsertResultRequest represents the request body for creating a day's result
type UpsertResultRequest struct {
	Date     string `json:"date" validate:"required"`
	FRResult *int   `json:"fr_result" validate:"omitempty,gte=0,lte=99"`
	SRResult *int   `json:"sr_result" validate:"omitempty,gte=0,lte=99"`
	FRTime   string `json:"fr_time"`
	SRTime   string `json:"sr_time"`
}

// EditResultRequest represents the request body for editing a day's result
type EditResultRequest struct {
	FRResult *int   `json:"fr_result" validate:"omitempty,gte=0,lte=99"`
	SRResult *int   `json:"sr_result" validate:"omitempty,gte=0,lte=99"`
	FRTime   string `json:"fr_time"`
	SRTime   string `json:"sr_time"`
}

// DeclareRequest carries the drawn number for one round
type DeclareRequest struct {
	Result *int `json:"result" validate:"required,gte=0,lte=99"`
}

// HistoryResponse is the paginated result list
type HistoryResponse struct {
	Results []*models.Result `json:"results"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

func dateParam(r *http.Request) string {
	return chi.URLParam(r, "date")
}

// Today returns the current day's result, creating a pending row if absent
func (h *ResultHandler) Today(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetToday(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteSuccess(w, "", result)
}

// ByDate returns the result for a specific date
func (h *ResultHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetByDate(r.Context(), dateParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteSuccess(w, "", result)
}

// History returns past results newest first, with optional from/to filters
// and limit/page pagination
func (h *ResultHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	limit = services.ClampHistoryLimit(limit)
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	results, total, err := h.service.History(r.Context(), q.Get("from"), q.Get("to"), limit, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "", HistoryResponse{
		Results: results,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// Upsert creates or updates the result row for a date
func (h *ResultHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertResultRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Upsert(r.Context(), req.Date, services.ResultChanges{
		FRResult: req.FRResult,
		SRResult: req.SRResult,
		FRTime:   req.FRTime,
		SRTime:   req.SRTime,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Result saved", result)
}

// Edit updates fields of an existing result row
func (h *ResultHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditResultRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Edit(r.Context(), dateParam(r), services.ResultChanges{
		FRResult: req.FRResult,
		SRResult: req.SRResult,
		FRTime:   req.FRTime,
		SRTime:   req.SRTime,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Result updated", result)
}

// DeclareFirstRound records the First Round number for a date
func (h *ResultHandler) DeclareFirstRound(w http.ResponseWriter, r *http.Request) {
	h.declare(w, r, h.service.DeclareFirstRound, "First Round result declared")
}

// DeclareSecondRound records the Second Round number for a date
func (h *ResultHandler) DeclareSecondRound(w http.ResponseWriter, r *http.Request) {
	h.declare(w, r, h.service.DeclareSecondRound, "Second Round result declared")
}

func (h *ResultHandler) declare(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, int) (*models.Result, error), message string) {
	var req DeclareRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := fn(r.Context(), dateParam(r), *req.Result)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, message, result)
}

// Lock marks a result row read-only
func (h *ResultHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true, "Result locked")
}

// Unlock clears the read-only flag
func (h *ResultHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false, "Result unlocked")
}

func (h *ResultHandler) setLocked(w http.ResponseWriter, r *http.Request, locked bool, message string) {
	result, err := h.service.SetLocked(r.Context(), dateParam(r), locked)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteSuccess(w, message, result)
}
