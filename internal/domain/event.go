package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried in the event_type message header.
const EventTypePrediction = "prediction"

// PredictionEvent records one served prediction for downstream consumers.
type PredictionEvent struct {
	ID         string            `json:"id"`
	EventType  string            `json:"event_type"`
	RequestID  string            `json:"request_id,omitempty"`
	ModelRunID string            `json:"model_run_id,omitempty"`
	Request    PredictionRequest `json:"request"`
	Prediction Prediction        `json:"prediction"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewPredictionEvent stamps a prediction with a fresh id and the package clock.
func NewPredictionEvent(req PredictionRequest, p Prediction, requestID, modelRunID string) PredictionEvent {
	return PredictionEvent{
		ID:         uuid.NewString(),
		EventType:  EventTypePrediction,
		RequestID:  requestID,
		ModelRunID: modelRunID,
		Request:    req,
		Prediction: p,
		CreatedAt:  Clock().Now().UTC(),
	}
}
