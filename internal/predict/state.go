// Package predict holds the immutable serving state built from an artifact
// set and answers prediction and airport listing queries against it.
package predict

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/couchcryptid/flight-delay-service/internal/artifact"
	"github.com/couchcryptid/flight-delay-service/internal/domain"
	"github.com/couchcryptid/flight-delay-service/internal/features"
)

// Pagination bounds for airport listing.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var (
	ErrInvalidDayOfWeek  = errors.New("day_of_week must be between 1 and 7")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrInference         = errors.New("prediction failed")
	ErrNotLoaded         = errors.New("model not loaded")
)

// ValidationError reports a request field referencing an unknown entity.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// Model is the fitted classifier contract the service depends on.
type Model interface {
	PredictProba(x []float64) [2]float64
	Predict(x []float64) int
	NumFeatures() int
}

// State is the process-lifetime serving state. It is never mutated after
// NewState returns and is safe for concurrent use.
type State struct {
	model          Model
	encoders       map[string]*features.LabelEncoder
	featureColumns []string
	columnIndex    map[string]int
	airports       []domain.Airport // sorted by name
	airportIDs     map[int]struct{}
	runID          string
}

// NewState validates that the artifact pieces agree with each other and
// builds the serving state. Airports are sorted by name once here.
func NewState(model Model, encoders map[string]*features.LabelEncoder, featureColumns []string, airports []domain.Airport) (*State, error) {
	if model == nil {
		return nil, errors.New("new state: nil model")
	}
	if len(featureColumns) == 0 {
		return nil, errors.New("new state: empty feature columns")
	}
	if n := model.NumFeatures(); n != len(featureColumns) {
		return nil, fmt.Errorf("new state: model expects %d features, column list has %d", n, len(featureColumns))
	}

	index := make(map[string]int, len(featureColumns))
	for i, c := range featureColumns {
		index[c] = i
	}
	for _, c := range domain.FeatureColumns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("new state: feature column %s missing", c)
		}
	}
	for _, c := range domain.CategoricalColumns {
		if encoders[c] == nil {
			return nil, fmt.Errorf("new state: no encoder for %s", c)
		}
	}

	sorted := slices.Clone(airports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AirportName < sorted[j].AirportName
	})
	ids := make(map[int]struct{}, len(sorted))
	for _, a := range sorted {
		ids[a.AirportID] = struct{}{}
	}

	return &State{
		model:          model,
		encoders:       encoders,
		featureColumns: slices.Clone(featureColumns),
		columnIndex:    index,
		airports:       sorted,
		airportIDs:     ids,
	}, nil
}

// FromBundle builds the serving state from a loaded artifact set.
func FromBundle(b *artifact.Bundle) (*State, error) {
	if b == nil || b.Model == nil {
		return nil, ErrNotLoaded
	}
	s, err := NewState(b.Model, b.Encoders, b.FeatureColumns, b.Airports)
	if err != nil {
		return nil, err
	}
	s.runID = b.Manifest.RunID
	return s, nil
}

// Load reads the artifact directory and builds the serving state.
func Load(dir string) (*State, error) {
	b, err := artifact.Load(dir)
	if err != nil {
		return nil, err
	}
	return FromBundle(b)
}

// RunID identifies the training run the state was built from, if recorded.
func (s *State) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID
}

// Ready reports whether the state can serve predictions.
func (s *State) Ready() bool { return s != nil && s.model != nil }

// CheckReadiness implements the HTTP readiness probe.
func (s *State) CheckReadiness(_ context.Context) error {
	if !s.Ready() {
		return ErrNotLoaded
	}
	return nil
}

// HasAirport reports whether id is in the airport lookup.
func (s *State) HasAirport(id int) bool {
	_, ok := s.airportIDs[id]
	return ok
}

// Predict validates req and scores it. Only day of week and the airport ids
// come from the request; the remaining features use the fixed serving
// defaults. Validation failures never reach the model.
func (s *State) Predict(_ context.Context, req domain.PredictionRequest) (domain.Prediction, error) {
	if !s.Ready() {
		return domain.Prediction{}, ErrNotLoaded
	}
	if req.DayOfWeek < domain.MinDayOfWeek || req.DayOfWeek > domain.MaxDayOfWeek {
		return domain.Prediction{}, ErrInvalidDayOfWeek
	}
	if !s.HasAirport(req.OriginAirportID) {
		return domain.Prediction{}, &ValidationError{Field: "origin_airport_id", Value: req.OriginAirportID}
	}
	if !s.HasAirport(req.DestAirportID) {
		return domain.Prediction{}, &ValidationError{Field: "dest_airport_id", Value: req.DestAirportID}
	}

	x := s.vector(map[string]float64{
		domain.ColMonth:           domain.DefaultMonth,
		domain.ColDayOfMonth:      domain.DefaultDayOfMonth,
		domain.ColDayOfWeek:       float64(req.DayOfWeek),
		domain.ColOriginAirportID: float64(req.OriginAirportID),
		domain.ColDestAirportID:   float64(req.DestAirportID),
		domain.ColCRSDepHour:      domain.DefaultDepHour,
		domain.ColCRSArrHour:      domain.DefaultArrHour,
		domain.ColCarrier:         domain.DefaultCarrierCode,
	})

	proba, class, err := s.infer(x)
	if err != nil {
		return domain.Prediction{}, err
	}
	return domain.Prediction{
		DelayProbability: proba[domain.ClassDelayed],
		Confidence:       max(proba[0], proba[1]),
		Verdict:          domain.VerdictFor(class),
	}, nil
}

// PredictFlight scores a fully specified flight and returns the probability
// of delay. Unlike Predict it does not check airports, and a carrier unseen
// in training is encoded as 0.
func (s *State) PredictFlight(q domain.FlightQuery) (float64, error) {
	if !s.Ready() {
		return 0, ErrNotLoaded
	}
	carrier := s.encoders[domain.ColCarrier].TransformOrDefault(q.Carrier)
	x := s.vector(map[string]float64{
		domain.ColMonth:           float64(q.Month),
		domain.ColDayOfMonth:      float64(q.DayOfMonth),
		domain.ColDayOfWeek:       float64(q.DayOfWeek),
		domain.ColOriginAirportID: float64(q.OriginAirportID),
		domain.ColDestAirportID:   float64(q.DestAirportID),
		domain.ColCRSDepHour:      float64(q.DepHour),
		domain.ColCRSArrHour:      float64(q.ArrHour),
		domain.ColCarrier:         float64(carrier),
	})
	proba, _, err := s.infer(x)
	if err != nil {
		return 0, err
	}
	return proba[domain.ClassDelayed], nil
}

// vector lays values out in the persisted feature column order.
func (s *State) vector(values map[string]float64) []float64 {
	x := make([]float64, len(s.featureColumns))
	for name, v := range values {
		x[s.columnIndex[name]] = v
	}
	return x
}

// infer calls the model, converting a panic into ErrInference.
func (s *State) infer(x []float64) (proba [2]float64, class int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInference, r)
		}
	}()
	proba = s.model.PredictProba(x)
	class = s.model.Predict(x)
	return proba, class, nil
}

// Airports returns the total airport count and the page starting at offset.
// Offsets past the end yield an empty page.
func (s *State) Airports(limit, offset int) (int, []domain.Airport, error) {
	if !s.Ready() {
		return 0, nil, ErrNotLoaded
	}
	if limit < 1 || limit > MaxLimit {
		return 0, nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPagination, MaxLimit)
	}
	if offset < 0 {
		return 0, nil, fmt.Errorf("%w: offset must be non-negative", ErrInvalidPagination)
	}
	total := len(s.airports)
	if offset >= total {
		return total, []domain.Airport{}, nil
	}
	end := min(offset+limit, total)
	return total, slices.Clone(s.airports[offset:end]), nil
}

// FeatureColumns returns a copy of the persisted column order.
func (s *State) FeatureColumns() []string {
	return slices.Clone(s.featureColumns)
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidDayOfWeek) ||
		errors.Is(err, ErrInvalidPagination)
}

// FieldOf returns the offending field name for a validation error.
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	if errors.Is(err, ErrInvalidDayOfWeek) {
		return "day_of_week"
	}
	return ""
}
