package features

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
)

// BuildAirports derives the airport lookup from a cleaned flights table: the
// origin-side and destination-side columns are stacked under one schema,
// deduplicated by id with the first occurrence winning, and sorted by id.
func BuildAirports(cleaned dataframe.DataFrame) ([]domain.Airport, error) {
	origin := renameAirportSide(cleaned,
		domain.ColOriginAirportID, domain.ColOriginAirportName, domain.ColOriginCity, domain.ColOriginState)
	dest := renameAirportSide(cleaned,
		domain.ColDestAirportID, domain.ColDestAirportName, domain.ColDestCity, domain.ColDestState)

	stacked := origin.RBind(dest)
	if stacked.Err != nil {
		return nil, fmt.Errorf("stack airport columns: %w", stacked.Err)
	}

	ids := floatsZeroFilled(stacked.Col(domain.ColAirportID))
	names := stringsZeroFilled(stacked.Col(domain.ColAirportName))
	cities := stringsZeroFilled(stacked.Col(domain.ColCity))
	states := stringsZeroFilled(stacked.Col(domain.ColState))

	seen := make(map[int]struct{}, len(ids))
	airports := make([]domain.Airport, 0, len(ids)/2+1)
	for i, v := range ids {
		id := int(v)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		airports = append(airports, domain.Airport{
			AirportID:   id,
			AirportName: names[i],
			City:        cities[i],
			State:       states[i],
		})
	}

	sort.SliceStable(airports, func(i, j int) bool {
		return airports[i].AirportID < airports[j].AirportID
	})
	return airports, nil
}

func renameAirportSide(df dataframe.DataFrame, id, name, city, state string) dataframe.DataFrame {
	return df.Select([]string{id, name, city, state}).
		Rename(domain.ColAirportID, id).
		Rename(domain.ColAirportName, name).
		Rename(domain.ColCity, city).
		Rename(domain.ColState, state)
}

// AirportsFrame converts the lookup into a frame with the persisted header.
func AirportsFrame(airports []domain.Airport) dataframe.DataFrame {
	ids := make([]int, len(airports))
	names := make([]string, len(airports))
	cities := make([]string, len(airports))
	states := make([]string, len(airports))
	for i, a := range airports {
		ids[i] = a.AirportID
		names[i] = a.AirportName
		cities[i] = a.City
		states[i] = a.State
	}
	return dataframe.New(
		series.New(ids, series.Int, domain.ColAirportID),
		series.New(names, series.String, domain.ColAirportName),
		series.New(cities, series.String, domain.ColCity),
		series.New(states, series.String, domain.ColState),
	)
}

// WriteAirportsCSV writes the lookup with header AirportID,AirportName,City,State.
func WriteAirportsCSV(w io.Writer, airports []domain.Airport) error {
	if err := AirportsFrame(airports).WriteCSV(w); err != nil {
		return fmt.Errorf("write airports csv: %w", err)
	}
	return nil
}

// ReadAirportsCSV reads a persisted lookup table in file order.
func ReadAirportsCSV(r io.Reader) ([]domain.Airport, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.WithTypes(map[string]series.Type{
			domain.ColAirportID:   series.Int,
			domain.ColAirportName: series.String,
			domain.ColCity:        series.String,
			domain.ColState:       series.String,
		}),
		dataframe.NaNValues([]string{"NA", "NaN", "<nil>"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read airports csv: %w", df.Err)
	}
	have := map[string]bool{}
	for _, n := range df.Names() {
		have[n] = true
	}
	for _, col := range domain.AirportColumns {
		if !have[col] {
			return nil, fmt.Errorf("read airports csv: %w: %s", ErrMissingColumns, col)
		}
	}

	ids, err := df.Col(domain.ColAirportID).Int()
	if err != nil {
		return nil, fmt.Errorf("read airports csv: airport id: %w", err)
	}
	names := df.Col(domain.ColAirportName).Records()
	cities := df.Col(domain.ColCity).Records()
	states := df.Col(domain.ColState).Records()

	airports := make([]domain.Airport, len(ids))
	for i := range ids {
		airports[i] = domain.Airport{
			AirportID:   ids[i],
			AirportName: names[i],
			City:        cities[i],
			State:       states[i],
		}
	}
	return airports, nil
}
