package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckynumbers/api/internal/models"
	"github.com/luckynumbers/api/internal/services"
)

type mockResultService struct {
	upsertFn    func(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error)
	editFn      func(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error)
	declareFRFn func(ctx context.Context, date string, number int) (*models.Result, error)
	declareSRFn func(ctx context.Context, date string, number int) (*models.Result, error)
	setLockedFn func(ctx context.Context, date string, locked bool) (*models.Result, error)
	getTodayFn  func(ctx context.Context) (*models.Result, error)
	getByDateFn func(ctx context.Context, date string) (*models.Result, error)
	historyFn   func(ctx context.Context, from, to string, limit, page int) ([]*models.Result, int, error)
}

func (m *mockResultService) Upsert(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error) {
	return m.upsertFn(ctx, date, changes)
}

func (m *mockResultService) Edit(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error) {
	return m.editFn(ctx, date, changes)
}

func (m *mockResultService) DeclareFirstRound(ctx context.Context, date string, number int) (*models.Result, error) {
	return m.declareFRFn(ctx, date, number)
}

func (m *mockResultService) DeclareSecondRound(ctx context.Context, date string, number int) (*models.Result, error) {
	return m.declareSRFn(ctx, date, number)
}

func (m *mockResultService) SetLocked(ctx context.Context, date string, locked bool) (*models.Result, error) {
	return m.setLockedFn(ctx, date, locked)
}

func (m *mockResultService) GetToday(ctx context.Context) (*models.Result, error) {
	return m.getTodayFn(ctx)
}

func (m *mockResultService) GetByDate(ctx context.Context, date string) (*models.Result, error) {
	return m.getByDateFn(ctx, date)
}

func (m *mockResultService) History(ctx context.Context, from, to string, limit, page int) ([]*models.Result, int, error) {
	return m.historyFn(ctx, from, to, limit, page)
}

func withDateParam(r *http.Request, date string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("date", date)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func pendingResult(date string) *models.Result {
	return &models.Result{
		ID:     "r1",
		Date:   date,
		FRTime: models.DefaultFirstRoundTime,
		SRTime: models.DefaultSecondRoundTime,
		Status: models.StatusPending,
	}
}

func TestToday_ReturnsResult(t *testing.T) {
	svc := &mockResultService{
		getTodayFn: func(ctx context.Context) (*models.Result, error) {
			return pendingResult("2026-09-01"), nil
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	h.Today(rr, httptest.NewRequest(http.MethodGet, "/api/results/today", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2026-09-01")
	assert.Contains(t, rr.Body.String(), models.StatusPending)
}

func TestByDate_NotFound(t *testing.T) {
	svc := &mockResultService{
		getByDateFn: func(ctx context.Context, date string) (*models.Result, error) {
			return nil, models.ErrNotFound
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	req := withDateParam(httptest.NewRequest(http.MethodGet, "/api/results/2026-01-01", nil), "2026-01-01")
	h.ByDate(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHistory_ParsesPaginationQuery(t *testing.T) {
	svc := &mockResultService{
		historyFn: func(ctx context.Context, from, to string, limit, page int) ([]*models.Result, int, error) {
			assert.Equal(t, "2026-08-01", from)
			assert.Equal(t, "2026-08-31", to)
			assert.Equal(t, 10, limit)
			assert.Equal(t, 2, page)
			return []*models.Result{pendingResult("2026-08-15")}, 45, nil
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/results?from=2026-08-01&to=2026-08-31&limit=10&page=2", nil)
	h.History(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":45`)
	assert.Contains(t, rr.Body.String(), `"page":2`)
}

func TestHistory_DefaultsPageToOne(t *testing.T) {
	svc := &mockResultService{
		historyFn: func(ctx context.Context, from, to string, limit, page int) ([]*models.Result, int, error) {
			assert.Equal(t, 1, page)
			return nil, 0, nil
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	h.History(rr, httptest.NewRequest(http.MethodGet, "/api/results", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHistory_ReportsAppliedLimit(t *testing.T) {
	// A short final page still reports the page size that was applied,
	// not the number of rows it happened to contain.
	svc := &mockResultService{
		historyFn: func(ctx context.Context, from, to string, limit, page int) ([]*models.Result, int, error) {
			return []*models.Result{pendingResult("2026-08-15")}, 11, nil
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	h.History(rr, httptest.NewRequest(http.MethodGet, "/api/results?limit=10&page=2", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"limit":10`)

	// Oversized requests report the cap.
	rr = httptest.NewRecorder()
	h.History(rr, httptest.NewRequest(http.MethodGet, "/api/results?limit=500", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"limit":100`)
}

func TestUpsert_PassesChanges(t *testing.T) {
	fr := 42
	svc := &mockResultService{
		upsertFn: func(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error) {
			assert.Equal(t, "2026-09-01", date)
			require.NotNil(t, changes.FRResult)
			assert.Equal(t, 42, *changes.FRResult)
			result := pendingResult(date)
			result.FRResult = changes.FRResult
			result.UpdateStatus()
			return result, nil
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	h.Upsert(rr, postJSON(t, UpsertResultRequest{Date: "2026-09-01", FRResult: &fr}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), models.StatusPartial)
}

func TestUpsert_RejectsOutOfRangeNumber(t *testing.T) {
	h := NewResultHandler(&mockResultService{})

	bad := 100
	rr := httptest.NewRecorder()
	h.Upsert(rr, postJSON(t, UpsertResultRequest{Date: "2026-09-01", FRResult: &bad}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEdit_LockedResult(t *testing.T) {
	svc := &mockResultService{
		editFn: func(ctx context.Context, date string, changes services.ResultChanges) (*models.Result, error) {
			return nil, models.ErrResultLocked
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	req := withDateParam(postJSON(t, EditResultRequest{FRTime: "15:30"}), "2026-09-01")
	h.Edit(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "locked")
}

func TestDeclareFirstRound(t *testing.T) {
	svc := &mockResultService{
		declareFRFn: func(ctx context.Context, date string, number int) (*models.Result, error) {
			assert.Equal(t, "2026-09-01", date)
			assert.Equal(t, 7, number)
			result := pendingResult(date)
			result.FRResult = &number
			result.UpdateStatus()
			return result, nil
		},
	}
	h := NewResultHandler(svc)

	seven := 7
	rr := httptest.NewRecorder()
	req := withDateParam(postJSON(t, DeclareRequest{Result: &seven}), "2026-09-01")
	h.DeclareFirstRound(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "First Round result declared")
}

func TestDeclare_MissingNumberRejected(t *testing.T) {
	called := false
	svc := &mockResultService{
		declareFRFn: func(ctx context.Context, date string, number int) (*models.Result, error) {
			called = true
			return pendingResult(date), nil
		},
	}
	h := NewResultHandler(svc)

	// An empty body must not declare 0 as the drawn number.
	rr := httptest.NewRecorder()
	req := withDateParam(httptest.NewRequest(http.MethodPost,
		"/api/admin/results/2026-09-01/declare/fr", strings.NewReader(`{}`)), "2026-09-01")
	h.DeclareFirstRound(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, called)
}

func TestDeclareSecondRound_MissingRow(t *testing.T) {
	svc := &mockResultService{
		declareSRFn: func(ctx context.Context, date string, number int) (*models.Result, error) {
			return nil, models.ErrNotFound
		},
	}
	h := NewResultHandler(svc)

	number := 55
	rr := httptest.NewRecorder()
	req := withDateParam(postJSON(t, DeclareRequest{Result: &number}), "2026-09-01")
	h.DeclareSecondRound(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLockAndUnlock(t *testing.T) {
	var lastLocked bool
	svc := &mockResultService{
		setLockedFn: func(ctx context.Context, date string, locked bool) (*models.Result, error) {
			lastLocked = locked
			result := pendingResult(date)
			result.Locked = locked
			return result, nil
		},
	}
	h := NewResultHandler(svc)

	rr := httptest.NewRecorder()
	h.Lock(rr, withDateParam(httptest.NewRequest(http.MethodPost, "/", nil), "2026-09-01"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, lastLocked)

	rr = httptest.NewRecorder()
	h.Unlock(rr, withDateParam(httptest.NewRequest(http.MethodPost, "/", nil), "2026-09-01"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, lastLocked)
}
