package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecotrace/collect-api/pkg/appcontext"
	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/middleware"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// fakeRequestService records the inputs it receives and replies with canned
// results, so the tests exercise only the HTTP layer.
type fakeRequestService struct {
	submitted *lifecycle.SubmitRequestInput
	approved  []int64
	rejected  map[int64]string
	result    *models.Request
	err       error
}

func (f *fakeRequestService) SubmitRequest(ctx context.Context, principal repositories.Principal, input lifecycle.SubmitRequestInput) (*models.Request, error) {
	f.submitted = &input
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRequestService) ApproveRequest(ctx context.Context, principal repositories.Principal, requestID int64, dropoffDetails *string) (*models.Request, error) {
	f.approved = append(f.approved, requestID)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRequestService) RejectRequest(ctx context.Context, principal repositories.Principal, requestID int64, reason string) (*models.Request, error) {
	if f.rejected == nil {
		f.rejected = map[int64]string{}
	}
	f.rejected[requestID] = reason
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRequestStore struct {
	repositories.RequestStore
	byID   map[int64]*models.Request
	listed []models.Request
}

func (f *fakeRequestStore) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	if req, ok := f.byID[id]; ok {
		return req, nil
	}
	return nil, echo.NewHTTPError(http.StatusNotFound, "request not found")
}

func (f *fakeRequestStore) ListForPrincipal(ctx context.Context, principal repositories.Principal) ([]models.Request, error) {
	return f.listed, nil
}

func newTestServer(service RequestService, store repositories.RequestStore) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(getTestLogger())

	// Seed a fixed caller identity the way the auth middleware would
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx = appcontext.SetUserID(ctx, "7b1f6f2e-68a5-4a52-b2ce-15be41b10e11")
			ctx = appcontext.SetUserRole(ctx, string(models.RoleRequester))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	handler := NewRequestHandler(service, store, getTestLogger())
	handler.Register(e.Group("/api/v1/requests"))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSubmitRequest(t *testing.T) {
	result := &models.Request{
		ID:        1,
		Reference: "COL-2026-001",
		Status:    models.RequestStatusSubmitted,
	}
	service := &fakeRequestService{result: result}
	e := newTestServer(service, &fakeRequestStore{})

	addr := "12 rue de la Paix"
	rec := doJSON(t, e, http.MethodPost, "/api/v1/requests", map[string]any{
		"category":      "computer",
		"description":   "old laptop",
		"quantity_band": "5-10kg",
		"mode":          "home",
		"desired_date":  "2026-09-15",
		"time_window":   "morning",
		"address":       addr,
		"phone":         "0612345678",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "COL-2026-001", got.Reference)

	require.NotNil(t, service.submitted)
	assert.Equal(t, "computer", service.submitted.Category)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), service.submitted.DesiredDate)
	require.NotNil(t, service.submitted.Address)
	assert.Equal(t, addr, *service.submitted.Address)
}

func TestSubmitRequestRejectsBadBody(t *testing.T) {
	service := &fakeRequestService{}
	e := newTestServer(service, &fakeRequestStore{})

	t.Run("MissingRequiredFields", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/requests", map[string]any{
			"category": "computer",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, service.submitted)
	})

	t.Run("UnknownMode", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/requests", map[string]any{
			"category":      "computer",
			"quantity_band": "1-5kg",
			"mode":          "teleport",
			"desired_date":  "2026-09-15",
			"time_window":   "morning",
			"phone":         "0612345678",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedDate", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/requests", map[string]any{
			"category":      "computer",
			"quantity_band": "1-5kg",
			"mode":          "dropoff",
			"desired_date":  "15/09/2026",
			"time_window":   "morning",
			"phone":         "0612345678",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("TooManyPhotos", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/requests", map[string]any{
			"category":      "computer",
			"quantity_band": "1-5kg",
			"mode":          "dropoff",
			"desired_date":  "2026-09-15",
			"time_window":   "morning",
			"phone":         "0612345678",
			"photos":        []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetRequestByID(t *testing.T) {
	stored := &models.Request{ID: 42, Reference: "COL-2026-007", RequesterID: uuid.New()}
	store := &fakeRequestStore{byID: map[int64]*models.Request{42: stored}}
	e := newTestServer(&fakeRequestService{}, store)

	rec := doJSON(t, e, http.MethodGet, "/api/v1/requests/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "COL-2026-007", got.Reference)
}

func TestGetRequestRejectsBadID(t *testing.T) {
	e := newTestServer(&fakeRequestService{}, &fakeRequestStore{})

	rec := doJSON(t, e, http.MethodGet, "/api/v1/requests/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveAndRejectRouting(t *testing.T) {
	result := &models.Request{ID: 5, Reference: "COL-2026-002", Status: models.RequestStatusInProgress}
	service := &fakeRequestService{result: result}
	e := newTestServer(service, &fakeRequestStore{})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/requests/5/approve", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{5}, service.approved)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/requests/5/reject", map[string]any{
		"reason": "address outside service area",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "address outside service area", service.rejected[5])
}

func TestRejectRequiresReason(t *testing.T) {
	service := &fakeRequestService{result: &models.Request{}}
	e := newTestServer(service, &fakeRequestStore{})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/requests/5/reject", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, service.rejected)
}

func TestLifecycleErrorsMapToStatusCodes(t *testing.T) {
	service := &fakeRequestService{err: lifecycle.ErrPermissionDenied}
	e := newTestServer(service, &fakeRequestStore{})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/requests/5/approve", map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	meta, _ := body["meta"].(map[string]any)
	assert.Equal(t, middleware.CodePermissionDenied, meta["code"])
}
