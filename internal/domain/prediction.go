package domain

// Fixed values for the features the public prediction API does not expose.
const (
	DefaultMonth       = 6
	DefaultDayOfMonth  = 15
	DefaultDepHour     = 12
	DefaultArrHour     = 14
	DefaultCarrierCode = 0
	MinDayOfWeek       = 1
	MaxDayOfWeek       = 7
	DelayThresholdMins = 15
	ClassOnTime        = 0
	ClassDelayed       = 1
	VerdictDelayed     = "LIKELY DELAYED"
	VerdictOnTime      = "LIKELY ON TIME"
)

// PredictionRequest is the public prediction input. Airport id 0 is a valid
// value when the airport lookup contains it.
type PredictionRequest struct {
	DayOfWeek       int `json:"day_of_week"`
	OriginAirportID int `json:"origin_airport_id"`
	DestAirportID   int `json:"dest_airport_id"`
}

// Prediction is the service's answer for one request.
type Prediction struct {
	DelayProbability float64 `json:"delay_probability"`
	Confidence       float64 `json:"confidence"`
	Verdict          string  `json:"prediction"`
}

// FlightQuery carries all eight raw model inputs. Carrier is the airline code
// before encoding.
type FlightQuery struct {
	Month           int
	DayOfMonth      int
	DayOfWeek       int
	OriginAirportID int
	DestAirportID   int
	DepHour         int
	ArrHour         int
	Carrier         string
}

// VerdictFor maps a hard class to its human-readable verdict.
func VerdictFor(class int) string {
	if class == ClassDelayed {
		return VerdictDelayed
	}
	return VerdictOnTime
}
