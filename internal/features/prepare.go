package features

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
)

// ErrMissingColumns is returned when the source table lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// Dataset is the model-ready view of a cleaned flights table.
type Dataset struct {
	// X is row-major, one row per flight, columns ordered as Columns.
	X        [][]float64
	Y        []int
	Encoders map[string]*LabelEncoder
	Columns  []string

	// Cleaned is the filtered table after cancellation removal and zero fill;
	// the airport lookup is built from it.
	Cleaned dataframe.DataFrame
}

// Rows returns the number of training rows.
func (d *Dataset) Rows() int { return len(d.Y) }

// Prepare cleans the raw flights table and derives the feature matrix.
//
// Cancelled flights are removed, every remaining missing value becomes zero,
// scheduled times are reduced to their hour, and one label encoder is fit per
// categorical column over the cleaned rows.
func Prepare(df dataframe.DataFrame) (*Dataset, error) {
	if err := checkColumns(df); err != nil {
		return nil, err
	}

	cleaned := DropCancelled(df)
	if cleaned.Err != nil {
		return nil, fmt.Errorf("filter cancelled flights: %w", cleaned.Err)
	}
	n := cleaned.Nrow()

	numeric := map[string][]float64{}
	for _, col := range []string{
		domain.ColMonth, domain.ColDayOfMonth, domain.ColDayOfWeek,
		domain.ColOriginAirportID, domain.ColDestAirportID,
		domain.ColCRSDepTime, domain.ColCRSArrTime, domain.ColArrDel15,
	} {
		numeric[col] = floatsZeroFilled(cleaned.Col(col))
	}

	encoders := make(map[string]*LabelEncoder, len(domain.CategoricalColumns))
	encoded := map[string][]int{}
	for _, col := range domain.CategoricalColumns {
		values := stringsZeroFilled(cleaned.Col(col))
		enc := FitLabelEncoder(values)
		codes, err := enc.TransformAll(values)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", col, err)
		}
		encoders[col] = enc
		encoded[col] = codes
	}

	labels := make([]int, n)
	for i, v := range numeric[domain.ColArrDel15] {
		switch v {
		case 0:
			labels[i] = domain.ClassOnTime
		case 1:
			labels[i] = domain.ClassDelayed
		default:
			return nil, fmt.Errorf("row %d: %s must be 0 or 1, got %v", i, domain.ColArrDel15, v)
		}
	}

	columns := append([]string(nil), domain.FeatureColumns...)
	x := make([][]float64, n)
	for i := range n {
		row := make([]float64, len(columns))
		for j, col := range columns {
			switch col {
			case domain.ColCRSDepHour:
				row[j] = float64(domain.HourOf(int(numeric[domain.ColCRSDepTime][i])))
			case domain.ColCRSArrHour:
				row[j] = float64(domain.HourOf(int(numeric[domain.ColCRSArrTime][i])))
			case domain.ColCarrier:
				row[j] = float64(encoded[col][i])
			default:
				row[j] = numeric[col][i]
			}
		}
		x[i] = row
	}

	return &Dataset{
		X:        x,
		Y:        labels,
		Encoders: encoders,
		Columns:  columns,
		Cleaned:  cleaned,
	}, nil
}

// DropCancelled keeps rows whose cancellation flag is zero or missing. A
// missing flag counts as zero because nulls are zero-filled before filtering.
func DropCancelled(df dataframe.DataFrame) dataframe.DataFrame {
	return df.Filter(dataframe.F{
		Colname:    domain.ColCancelled,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return el.IsNA() || el.Float() == 0
		},
	})
}

// LabelCounts returns the number of on-time and delayed rows.
func LabelCounts(labels []int) (onTime, delayed int) {
	for _, y := range labels {
		if y == domain.ClassDelayed {
			delayed++
		} else {
			onTime++
		}
	}
	return onTime, delayed
}

func checkColumns(df dataframe.DataFrame) error {
	have := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		have[name] = struct{}{}
	}
	var missing []string
	for _, col := range domain.RequiredColumns {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// floatsZeroFilled returns the column as floats with missing values set to 0.
func floatsZeroFilled(s series.Series) []float64 {
	vals := s.Float()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = 0
		}
	}
	return vals
}

// stringsZeroFilled returns the column as strings with missing values set to
// "0".
func stringsZeroFilled(s series.Series) []string {
	out := make([]string, s.Len())
	for i := range out {
		el := s.Elem(i)
		if el.IsNA() {
			out[i] = "0"
			continue
		}
		out[i] = el.String()
	}
	return out
}
