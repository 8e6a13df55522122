package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/recommendation"
)

type stubRecommender struct {
	result *recommendation.Result
	err    error
	got    recommendation.Request
}

func (s *stubRecommender) Recommend(_ context.Context, req recommendation.Request) (*recommendation.Result, error) {
	s.got = req
	return s.result, s.err
}

func TestRecommendEndpoint(t *testing.T) {
	rec := &stubRecommender{result: &recommendation.Result{RunID: "run-1", Recommendation: "eat oats"}}
	mux := newMux(rec, nil, logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/recommendations", strings.NewReader(`{"userId": 7, "prompt": "high protein"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, int64(7), rec.got.UserID)
	assert.Contains(t, w.Body.String(), "eat oats")
}

func TestRecommendEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed, "VALIDATION_FAILED"},
		{"malformed body", http.MethodPost, "{", nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown user", http.MethodPost, `{"userId": 9}`, errors.NewUserNotFoundError(9), http.StatusNotFound, "USER_NOT_FOUND"},
		{"upstream down", http.MethodPost, `{"userId": 1}`, errors.NewUpstreamUnavailableError("genai", stderrors.New("refused")), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"store down", http.MethodPost, `{"userId": 1}`, errors.NewStoreUnavailableError(stderrors.New("refused")), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"plain error", http.MethodPost, `{"userId": 1}`, stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(&stubRecommender{err: tt.err}, nil, logger.NewNoOpLogger())

			req := httptest.NewRequest(tt.method, "/api/recommendations", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestReadiness(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return stderrors.New("connection refused") }

	t.Run("all checks pass", func(t *testing.T) {
		mux := newMux(&stubRecommender{}, map[string]readinessCheck{"postgres": healthy}, logger.NewNoOpLogger())
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ready"`)
	})

	t.Run("failed check is reported", func(t *testing.T) {
		checks := map[string]readinessCheck{"postgres": healthy, "redis": down}
		mux := newMux(&stubRecommender{}, checks, logger.NewNoOpLogger())
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "redis")
		assert.NotContains(t, w.Body.String(), "postgres")
	})
}

func TestHealthAndCalculate(t *testing.T) {
	mux := newMux(&stubRecommender{}, nil, logger.NewNoOpLogger())

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body := `{"age": 25, "weight": 70, "goal": "maintain", "activity_level": "sedentary", "gender": "male"}`
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
