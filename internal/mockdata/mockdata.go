// Package mockdata generates synthetic BTS-shaped flight tables for demos
// and tests. Output is a pure function of the row count and seed.
package mockdata

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
)

// Airports is the fixed airport set flights are drawn from.
var Airports = []domain.Airport{
	{AirportID: 10397, AirportName: "Hartsfield-Jackson Atlanta International", City: "Atlanta", State: "GA"},
	{AirportID: 11292, AirportName: "Denver International", City: "Denver", State: "CO"},
	{AirportID: 11298, AirportName: "Dallas/Fort Worth International", City: "Dallas/Fort Worth", State: "TX"},
	{AirportID: 12478, AirportName: "John F. Kennedy International", City: "New York", State: "NY"},
	{AirportID: 12892, AirportName: "Los Angeles International", City: "Los Angeles", State: "CA"},
	{AirportID: 13930, AirportName: "Chicago O'Hare International", City: "Chicago", State: "IL"},
	{AirportID: 14747, AirportName: "Seattle/Tacoma International", City: "Seattle", State: "WA"},
	{AirportID: 14771, AirportName: "San Francisco International", City: "San Francisco", State: "CA"},
}

// carrierRisk is the additive delay propensity per airline.
var carrierRisk = map[string]float64{
	"AA": 0.06,
	"B6": 0.10,
	"DL": 0.00,
	"UA": 0.05,
	"WN": 0.03,
}

// Carriers lists the generated airline codes in sorted order.
var Carriers = []string{"AA", "B6", "DL", "UA", "WN"}

// Rates of injected cancellations and missing scheduled arrival times.
const (
	CancelRate     = 0.02
	MissingArrRate = 0.01
)

const (
	pcgStream       = 0x5bd1e995
	minDepartureHr  = 5
	maxDepartureHr  = 22
	maxBlockHours   = 5
	dayOfMonthLimit = 28
)

// Frame builds n synthetic flights as an all-string table with the BTS
// column names. Missing values are empty strings.
func Frame(n int, seed uint64) dataframe.DataFrame {
	rng := rand.New(rand.NewPCG(seed, pcgStream))
	records := make([][]string, 0, n+1)
	records = append(records, append([]string(nil), domain.RequiredColumns...))

	for range n {
		records = append(records, flightRow(rng))
	}
	return dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
}

// Write writes n synthetic flights as CSV.
func Write(w io.Writer, n int, seed uint64) error {
	df := Frame(n, seed)
	if df.Err != nil {
		return fmt.Errorf("build mock flights: %w", df.Err)
	}
	return df.WriteCSV(w)
}

func flightRow(rng *rand.Rand) []string {
	origin := Airports[rng.IntN(len(Airports))]
	dest := Airports[rng.IntN(len(Airports))]
	for dest.AirportID == origin.AirportID {
		dest = Airports[rng.IntN(len(Airports))]
	}
	carrier := Carriers[rng.IntN(len(Carriers))]

	month := rng.IntN(12) + 1
	dom := rng.IntN(dayOfMonthLimit) + 1
	dow := rng.IntN(7) + 1
	depHour := minDepartureHr + rng.IntN(maxDepartureHr-minDepartureHr+1)
	depMin := 5 * rng.IntN(12)
	arrHour := (depHour + 1 + rng.IntN(maxBlockHours)) % 24
	arrMin := 5 * rng.IntN(12)

	p := delayProbability(month, dow, depHour, origin.AirportID, carrier)
	delayed := "0"
	if rng.Float64() < p {
		delayed = "1"
	}
	cancelled := "0"
	if rng.Float64() < CancelRate {
		cancelled = "1"
		delayed = ""
	}
	arr := strconv.Itoa(arrHour*100 + arrMin)
	if rng.Float64() < MissingArrRate {
		arr = ""
	}

	// Order follows domain.RequiredColumns.
	return []string{
		strconv.Itoa(month),
		strconv.Itoa(dom),
		strconv.Itoa(dow),
		carrier,
		strconv.Itoa(origin.AirportID),
		origin.AirportName,
		origin.City,
		origin.State,
		strconv.Itoa(dest.AirportID),
		dest.AirportName,
		dest.City,
		dest.State,
		strconv.Itoa(depHour*100 + depMin),
		arr,
		cancelled,
		delayed,
	}
}

// delayProbability is the ground-truth delay model: late departures, summer
// and holiday months, Fridays, and O'Hare departures run late.
func delayProbability(month, dow, depHour, origin int, carrier string) float64 {
	p := 0.06 + 0.02*float64(depHour-minDepartureHr) + carrierRisk[carrier]
	switch month {
	case 6, 7, 12:
		p += 0.08
	}
	if dow == 5 {
		p += 0.05
	}
	if origin == 13930 {
		p += 0.07
	}
	return min(p, 0.95)
}
