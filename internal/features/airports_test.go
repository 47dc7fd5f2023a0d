package features

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-delay-service/internal/domain"
)

func TestBuildAirports_UnionDedupeSort(t *testing.T) {
	ds := readTestFrame(t, testHeader+testRows)

	airports, err := BuildAirports(ds.Cleaned)
	require.NoError(t, err)

	want := []domain.Airport{
		{AirportID: 11433, AirportName: "Detroit Metro Wayne County", City: "Detroit", State: "MI"},
		{AirportID: 12478, AirportName: "John F. Kennedy International", City: "New York", State: "NY"},
		{AirportID: 12892, AirportName: "Los Angeles International", City: "Los Angeles", State: "CA"},
		{AirportID: 13303, AirportName: "Miami International", City: "Miami", State: "FL"},
		{AirportID: 13930, AirportName: "Chicago O'Hare International", City: "Chicago", State: "IL"},
		{AirportID: 14869, AirportName: "Salt Lake City International", City: "Salt Lake City", State: "UT"},
	}
	if diff := cmp.Diff(want, airports); diff != "" {
		t.Fatalf("airports mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAirports_EveryIDExactlyOnce(t *testing.T) {
	ds := readTestFrame(t, testHeader+testRows)
	airports, err := BuildAirports(ds.Cleaned)
	require.NoError(t, err)

	counts := map[int]int{}
	for _, a := range airports {
		counts[a.AirportID]++
	}
	for _, row := range ds.X {
		assert.Equal(t, 1, counts[int(row[3])], "origin %v", row[3])
		assert.Equal(t, 1, counts[int(row[4])], "dest %v", row[4])
	}
}

func TestBuildAirports_FirstOccurrenceWins(t *testing.T) {
	rows := "2013,4,19,5,DL,100,First Name,A,AA,200,Other,B,BB,837,0,0,1138,0,0,0\n" +
		"2013,4,19,5,DL,200,Second,B,BB,100,Renamed Later,C,CC,837,0,0,1138,0,0,0\n"
	ds := readTestFrame(t, testHeader+rows)

	airports, err := BuildAirports(ds.Cleaned)
	require.NoError(t, err)
	require.Len(t, airports, 2)
	assert.Equal(t, "First Name", airports[0].AirportName)
	assert.Equal(t, "Second", airports[1].AirportName)
}

func TestAirportsCSV_RoundTrip(t *testing.T) {
	in := []domain.Airport{
		{AirportID: 10397, AirportName: "Hartsfield-Jackson Atlanta International", City: "Atlanta", State: "GA"},
		{AirportID: 11298, AirportName: "Dallas/Fort Worth International", City: "Dallas/Fort Worth", State: "TX"},
		{AirportID: 13930, AirportName: "Chicago O'Hare International", City: "Chicago", State: "IL"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAirportsCSV(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), "AirportID,AirportName,City,State\n"))

	out, err := ReadAirportsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadAirportsCSV_MissingColumn(t *testing.T) {
	_, err := ReadAirportsCSV(strings.NewReader("AirportID,AirportName\n1,X\n"))
	require.ErrorIs(t, err, ErrMissingColumns)
}
