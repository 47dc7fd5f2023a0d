package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/predict"
)

type rootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type airportsResponse struct {
	Total    int              `json:"total"`
	Airports []domain.Airport `json:"airports"`
}

// predictBody is the wire form of a prediction request. Pointers separate an
// absent field from an explicit zero; airport ids are checked against the
// lookup, not here.
type predictBody struct {
	DayOfWeek       *int `json:"day_of_week" validate:"required,min=1,max=7"`
	OriginAirportID *int `json:"origin_airport_id" validate:"required"`
	DestAirportID   *int `json:"dest_airport_id" validate:"required"`
}

func (b predictBody) request() domain.PredictionRequest {
	return domain.PredictionRequest{
		DayOfWeek:       *b.DayOfWeek,
		OriginAirportID: *b.OriginAirportID,
		DestAirportID:   *b.DestAirportID,
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Flight Delay Prediction API",
		Version: APIVersion,
		Endpoints: map[string]string{
			"predict":  "/predict",
			"airports": "/airports",
			"health":   "/health",
			"metrics":  "/metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := s.predictor != nil && s.predictor.CheckReadiness(r.Context()) == nil
	if !loaded {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", ModelLoaded: true})
}

func (s *Server) handleAirports(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", predict.DefaultLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be an integer", "", "limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "offset must be an integer", "", "offset")
		return
	}
	if s.predictor == nil {
		writeError(w, r, http.StatusInternalServerError, "Airports data not loaded", "", "")
		return
	}

	total, page, err := s.predictor.Airports(limit, offset)
	switch {
	case errors.Is(err, predict.ErrInvalidPagination):
		writeError(w, r, http.StatusBadRequest, err.Error(), "", "")
		return
	case err != nil:
		s.logger.Error("list airports", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Airports data not loaded", "", "")
		return
	}

	s.logger.Debug("returning airports", "count", len(page), "offset", offset, "limit", limit)
	writeJSON(w, http.StatusOK, airportsResponse{Total: total, Airports: page})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := domain.Clock().Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.PredictionDuration.Observe(domain.Clock().Since(start).Seconds())
		}
	}()

	var body predictBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.count("invalid")
		writeDecodeError(w, r, err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		s.count("invalid")
		writeValidationError(w, r, err)
		return
	}
	req := body.request()

	if s.predictor == nil {
		s.count("error")
		writeError(w, r, http.StatusInternalServerError, "Model not loaded", "", "")
		return
	}

	pred, err := s.predictor.Predict(r.Context(), req)
	switch {
	case err == nil:
	case predict.IsValidation(err):
		s.count("invalid")
		field := predict.FieldOf(err)
		writeError(w, r, http.StatusBadRequest, err.Error(), "", field)
		return
	case errors.Is(err, predict.ErrNotLoaded):
		s.count("error")
		writeError(w, r, http.StatusInternalServerError, "Model not loaded", "", "")
		return
	default:
		s.count("error")
		s.logger.Error("prediction failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, r, http.StatusInternalServerError, "Prediction failed", "", "")
		return
	}

	if pred.Verdict == domain.VerdictDelayed {
		s.count("delayed")
	} else {
		s.count("on_time")
	}
	s.logger.Info("prediction",
		"day_of_week", req.DayOfWeek,
		"origin", req.OriginAirportID,
		"dest", req.DestAirportID,
		"probability", pred.DelayProbability,
		"result", pred.Verdict,
	)

	if s.publisher != nil {
		event := domain.NewPredictionEvent(req, pred, middleware.GetReqID(r.Context()), s.predictor.RunID())
		if err := s.publisher.Publish(r.Context(), event); err != nil {
			s.logger.Warn("prediction event not published", "error", err, "event_id", event.ID)
		}
	}

	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) count(outcome string) {
	if s.metrics != nil {
		s.metrics.PredictionsTotal.WithLabelValues(outcome).Inc()
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
