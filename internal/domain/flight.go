package domain

// Source column names in the historical flights CSV.
const (
	ColMonth             = "Month"
	ColDayOfMonth        = "DayofMonth"
	ColDayOfWeek         = "DayOfWeek"
	ColCarrier           = "Carrier"
	ColOriginAirportID   = "OriginAirportID"
	ColOriginAirportName = "OriginAirportName"
	ColOriginCity        = "OriginCity"
	ColOriginState       = "OriginState"
	ColDestAirportID     = "DestAirportID"
	ColDestAirportName   = "DestAirportName"
	ColDestCity          = "DestCity"
	ColDestState         = "DestState"
	ColCRSDepTime        = "CRSDepTime"
	ColCRSArrTime        = "CRSArrTime"
	ColCancelled         = "Cancelled"
	ColArrDel15          = "ArrDel15"

	// Derived columns.
	ColCRSDepHour = "CRSDepTime_Hour"
	ColCRSArrHour = "CRSArrTime_Hour"
)

// RequiredColumns lists every source column the training pipeline reads.
var RequiredColumns = []string{
	ColMonth, ColDayOfMonth, ColDayOfWeek, ColCarrier,
	ColOriginAirportID, ColOriginAirportName, ColOriginCity, ColOriginState,
	ColDestAirportID, ColDestAirportName, ColDestCity, ColDestState,
	ColCRSDepTime, ColCRSArrTime, ColCancelled, ColArrDel15,
}

// FeatureColumns is the model input order. It is persisted with the model and
// any vector handed to the model must follow the persisted copy.
var FeatureColumns = []string{
	ColMonth, ColDayOfMonth, ColDayOfWeek,
	ColOriginAirportID, ColDestAirportID,
	ColCRSDepHour, ColCRSArrHour,
	ColCarrier,
}

// CategoricalColumns are label-encoded before training.
var CategoricalColumns = []string{ColCarrier}

// Airport header names used by the persisted lookup table.
const (
	ColAirportID   = "AirportID"
	ColAirportName = "AirportName"
	ColCity        = "City"
	ColState       = "State"
)

// AirportColumns is the header of airports.csv.
var AirportColumns = []string{ColAirportID, ColAirportName, ColCity, ColState}

// FlightRecord is one historical flight leg as it appears in the source CSV.
type FlightRecord struct {
	Month             int
	DayofMonth        int
	DayOfWeek         int
	Carrier           string
	OriginAirportID   int
	OriginAirportName string
	OriginCity        string
	OriginState       string
	DestAirportID     int
	DestAirportName   string
	DestCity          string
	DestState         string
	CRSDepTime        int // HHMM
	CRSArrTime        int // HHMM
	Cancelled         int
	ArrDel15          int
}

// Airport is one row of the airport lookup table.
type Airport struct {
	AirportID   int    `json:"airport_id"`
	AirportName string `json:"airport_name"`
	City        string `json:"city"`
	State       string `json:"state"`
}

// HourOf converts an HHMM scheduled time to its hour of day.
func HourOf(hhmm int) int {
	return hhmm / 100
}
