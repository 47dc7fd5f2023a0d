package features

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
)

// naTokens are read as missing. Empty cells count as missing for every column
// type, matching how the export tool writes nulls.
var naTokens = []string{"", "NA", "NaN", "<nil>"}

// columnTypes pins the type of every column the pipeline reads so a column of
// all-integer airport names or an all-empty carrier column is not mistyped.
var columnTypes = map[string]series.Type{
	domain.ColMonth:             series.Float,
	domain.ColDayOfMonth:        series.Float,
	domain.ColDayOfWeek:         series.Float,
	domain.ColCarrier:           series.String,
	domain.ColOriginAirportID:   series.Float,
	domain.ColOriginAirportName: series.String,
	domain.ColOriginCity:        series.String,
	domain.ColOriginState:       series.String,
	domain.ColDestAirportID:     series.Float,
	domain.ColDestAirportName:   series.String,
	domain.ColDestCity:          series.String,
	domain.ColDestState:         series.String,
	domain.ColCRSDepTime:        series.Float,
	domain.ColCRSArrTime:        series.Float,
	domain.ColCancelled:         series.Float,
	domain.ColArrDel15:          series.Float,
}

// ReadFlightsCSV loads the historical flights table. Columns the pipeline does
// not use are kept with detected types.
func ReadFlightsCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithTypes(columnTypes),
		dataframe.NaNValues(naTokens),
	)
	if df.Err != nil {
		return df, fmt.Errorf("read flights csv: %w", df.Err)
	}
	return df, nil
}

// MissingCounts reports the number of missing cells per column, in column order.
func MissingCounts(df dataframe.DataFrame) []ColumnCount {
	names := df.Names()
	out := make([]ColumnCount, 0, len(names))
	for _, name := range names {
		n := 0
		for _, na := range df.Col(name).IsNaN() {
			if na {
				n++
			}
		}
		out = append(out, ColumnCount{Column: name, Count: n})
	}
	return out
}

// ColumnCount pairs a column name with a count.
type ColumnCount struct {
	Column string
	Count  int
}
