package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/flight-delay-service/internal/adapter/http"
	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/observability"
	"github.com/couchcryptid/flight-delay-service/internal/predict"
)

// mockPredictor answers from canned values and counts Predict calls.
type mockPredictor struct {
	readyErr   error
	prediction domain.Prediction
	predictErr error
	airports   []domain.Airport
	// known restricts accepted airport ids when set.
	known map[int]bool
	last  domain.PredictionRequest
	calls int
	// onPredict runs inside Predict when set.
	onPredict func()
}

func (m *mockPredictor) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockPredictor) Predict(_ context.Context, req domain.PredictionRequest) (domain.Prediction, error) {
	m.calls++
	m.last = req
	if m.onPredict != nil {
		m.onPredict()
	}
	if m.known != nil {
		if !m.known[req.OriginAirportID] {
			return domain.Prediction{}, &predict.ValidationError{Field: "origin_airport_id", Value: req.OriginAirportID}
		}
		if !m.known[req.DestAirportID] {
			return domain.Prediction{}, &predict.ValidationError{Field: "dest_airport_id", Value: req.DestAirportID}
		}
	}
	return m.prediction, m.predictErr
}

func (m *mockPredictor) Airports(limit, offset int) (int, []domain.Airport, error) {
	if limit < 1 || limit > predict.MaxLimit || offset < 0 {
		return 0, nil, predict.ErrInvalidPagination
	}
	if offset >= len(m.airports) {
		return len(m.airports), []domain.Airport{}, nil
	}
	return len(m.airports), m.airports[offset:min(offset+limit, len(m.airports))], nil
}

func (m *mockPredictor) RunID() string { return "run-1" }

type mockPublisher struct {
	err    error
	events []domain.PredictionEvent
}

func (p *mockPublisher) Publish(_ context.Context, e domain.PredictionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func newMockPredictor() *mockPredictor {
	return &mockPredictor{
		prediction: domain.Prediction{DelayProbability: 0.27, Confidence: 0.73, Verdict: domain.VerdictOnTime},
		airports: []domain.Airport{
			{AirportID: 13930, AirportName: "Chicago O'Hare International", City: "Chicago", State: "IL"},
			{AirportID: 12892, AirportName: "Los Angeles International", City: "Los Angeles", State: "CA"},
			{AirportID: 14771, AirportName: "San Francisco International", City: "San Francisco", State: "CA"},
		},
	}
}

func newTestServer(p httpadapter.Predictor, opts ...httpadapter.Option) *httpadapter.Server {
	return httpadapter.NewServer(":0", p, slog.Default(), opts...)
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(newMockPredictor()), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(newTestServer(newMockPredictor()), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	p := newMockPredictor()
	p.readyErr = fmt.Errorf("not ready yet")
	rec := do(newTestServer(p), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(newMockPredictor()), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRoot(t *testing.T) {
	rec := do(newTestServer(newMockPredictor()), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Flight Delay Prediction API", body["message"])
	assert.Equal(t, httpadapter.APIVersion, body["version"])
	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/predict", endpoints["predict"])
	assert.Equal(t, "/airports", endpoints["airports"])
	assert.Equal(t, "/health", endpoints["health"])
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(newMockPredictor()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","model_loaded":true}`, rec.Body.String())

	unloaded := newMockPredictor()
	unloaded.readyErr = predict.ErrNotLoaded
	rec = do(newTestServer(unloaded), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","model_loaded":false}`, rec.Body.String())

	rec = do(newTestServer(nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPredict_Success(t *testing.T) {
	p := newMockPredictor()
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	srv := newTestServer(p, httpadapter.WithPublisher(pub), httpadapter.WithMetrics(metrics))

	rec := do(srv, http.MethodPost, "/predict", `{"day_of_week":5,"origin_airport_id":13930,"dest_airport_id":12892}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"delay_probability":0.27,"confidence":0.73,"prediction":"LIKELY ON TIME"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	require.Len(t, pub.events, 1)
	assert.Equal(t, 13930, pub.events[0].Request.OriginAirportID)
	assert.Equal(t, "run-1", pub.events[0].ModelRunID)
	assert.NotEmpty(t, pub.events[0].RequestID)
}

func TestPredict_DurationUsesDomainClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })

	p := newMockPredictor()
	p.onPredict = func() { clock.Advance(3 * time.Millisecond) }
	metrics := observability.NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(metrics.PredictionDuration))

	rec := do(newTestServer(p, httpadapter.WithMetrics(metrics)), http.MethodPost, "/predict",
		`{"day_of_week":5,"origin_airport_id":13930,"dest_airport_id":12892}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	h := families[0].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), h.GetSampleCount())
	assert.InDelta(t, 0.003, h.GetSampleSum(), 1e-9)
}

func TestPredict_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	srv := newTestServer(newMockPredictor(), httpadapter.WithPublisher(pub))

	rec := do(srv, http.MethodPost, "/predict", `{"day_of_week":5,"origin_airport_id":13930,"dest_airport_id":12892}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, pub.events, 1)
}

func TestPredict_RequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed json", `{"day_of_week":`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
		{"unknown field", `{"day_of_week":1,"origin_airport_id":1,"dest_airport_id":2,"carrier":"AA"}`, http.StatusBadRequest, ""},
		{"wrong type", `{"day_of_week":"monday","origin_airport_id":1,"dest_airport_id":2}`, http.StatusUnprocessableEntity, "day_of_week"},
		{"day zero", `{"day_of_week":0,"origin_airport_id":13930,"dest_airport_id":12892}`, http.StatusUnprocessableEntity, "day_of_week"},
		{"day eight", `{"day_of_week":8,"origin_airport_id":13930,"dest_airport_id":12892}`, http.StatusUnprocessableEntity, "day_of_week"},
		{"missing origin", `{"day_of_week":3,"dest_airport_id":12892}`, http.StatusUnprocessableEntity, "origin_airport_id"},
		{"missing dest", `{"day_of_week":3,"origin_airport_id":13930}`, http.StatusUnprocessableEntity, "dest_airport_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockPredictor()
			rec := do(newTestServer(p), http.MethodPost, "/predict", tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.field != "" {
				assert.Equal(t, tt.field, body["field"])
			}
			assert.Zero(t, p.calls, "invalid requests must not reach the model")
		})
	}
}

func TestPredict_AirportZero(t *testing.T) {
	tests := []struct {
		name   string
		known  map[int]bool
		body   string
		status int
		field  string
		calls  int
	}{
		{"present and known", map[int]bool{0: true, 12892: true}, `{"day_of_week":3,"origin_airport_id":0,"dest_airport_id":12892}`, http.StatusOK, "", 1},
		{"present and unknown", map[int]bool{12892: true}, `{"day_of_week":3,"origin_airport_id":0,"dest_airport_id":12892}`, http.StatusBadRequest, "origin_airport_id", 1},
		{"dest present and unknown", map[int]bool{13930: true}, `{"day_of_week":3,"origin_airport_id":13930,"dest_airport_id":0}`, http.StatusBadRequest, "dest_airport_id", 1},
		{"absent", map[int]bool{0: true, 12892: true}, `{"day_of_week":3,"dest_airport_id":12892}`, http.StatusUnprocessableEntity, "origin_airport_id", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockPredictor()
			p.known = tt.known
			rec := do(newTestServer(p), http.MethodPost, "/predict", tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.calls, p.calls)
			if tt.field != "" {
				assert.Equal(t, tt.field, decode(t, rec)["field"])
			}
			if tt.status == http.StatusOK {
				assert.Equal(t, domain.PredictionRequest{DayOfWeek: 3, OriginAirportID: 0, DestAirportID: 12892}, p.last)
			}
		})
	}
}

func TestPredict_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
		msg    string
	}{
		{"unknown origin", &predict.ValidationError{Field: "origin_airport_id", Value: 99999}, http.StatusBadRequest, "origin_airport_id", "invalid origin_airport_id: 99999"},
		{"unknown dest", &predict.ValidationError{Field: "dest_airport_id", Value: 1}, http.StatusBadRequest, "dest_airport_id", "invalid dest_airport_id: 1"},
		{"not loaded", predict.ErrNotLoaded, http.StatusInternalServerError, "", "Model not loaded"},
		{"inference", fmt.Errorf("%w: index out of range", predict.ErrInference), http.StatusInternalServerError, "", "Prediction failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockPredictor()
			p.predictErr = tt.err
			pub := &mockPublisher{}
			rec := do(newTestServer(p, httpadapter.WithPublisher(pub)), http.MethodPost, "/predict",
				`{"day_of_week":2,"origin_airport_id":99999,"dest_airport_id":1}`)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.msg, body["error"])
			if tt.field != "" {
				assert.Equal(t, tt.field, body["field"])
			}
			assert.NotContains(t, rec.Body.String(), "index out of range")
			assert.Empty(t, pub.events)
		})
	}
}

func TestAirports(t *testing.T) {
	srv := newTestServer(newMockPredictor())

	rec := do(srv, http.MethodGet, "/airports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total    int              `json:"total"`
		Airports []domain.Airport `json:"airports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Airports, 3)
	assert.Equal(t, "Chicago O'Hare International", body.Airports[0].AirportName)

	rec = do(srv, http.MethodGet, "/airports?limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Airports, 1)
	assert.Equal(t, 12892, body.Airports[0].AirportID)
	assert.Contains(t, rec.Body.String(), `"airport_name":"Los Angeles International"`)

	rec = do(srv, http.MethodGet, "/airports?offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"airports":[]}`, rec.Body.String())
}

func TestAirports_BadParams(t *testing.T) {
	srv := newTestServer(newMockPredictor())
	for _, q := range []string{"limit=0", "limit=1001", "limit=abc", "offset=-1", "offset=x", "limit=1.5"} {
		rec := do(srv, http.MethodGet, "/airports?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(newMockPredictor())

	rec := do(srv, http.MethodGet, "/health", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}
