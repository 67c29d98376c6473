package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAvailableFlightsFromReader(t *testing.T) {
	data := `ORIG_CD,DEST_CD,DEP_DTMZ,ARR_DTMZ,C_AVAIL_CNT,Y_AVAIL_CNT,DEP_KEY
AMS,JFK,2024-05-10 10:00:00,2024-05-10 18:00:00,4,-20,KL641
AMS,JFK,not-a-date,2024-05-10 18:00:00,4,20,KL643
JFK,BOS,2024-05-10T20:00:00Z,2024-05-10T21:15:00Z,0,9.0,DL100
,BOS,2024-05-10T20:00:00Z,2024-05-10T21:15:00Z,0,9,DL101
JFK,BOS,2024-05-10T20:00:00Z,2024-05-10T21:15:00Z,x,9,DL102
`
	flights, err := ParseAvailableFlightsFromReader(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, flights, 2)

	assert.Equal(t, models.AvailableFlight{
		Origin:      "AMS",
		Destination: "JFK",
		DepTime:     time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC),
		ArrTime:     time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC),
		CAvail:      4,
		YAvail:      20,
		FlightID:    "KL641",
	}, flights[0])
	assert.Equal(t, "DL100", flights[1].FlightID)
	assert.Equal(t, 9, flights[1].YAvail)
}

func TestParseAvailableFlightsFromReader_MissingColumns(t *testing.T) {
	_, err := ParseAvailableFlightsFromReader(strings.NewReader("ORIG_CD,DEST_CD\nAMS,JFK\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEP_DTMZ")
	assert.Contains(t, err.Error(), "DEP_KEY")
}

func TestParseAvailableFlightsFromReader_EmptyInput(t *testing.T) {
	_, err := ParseAvailableFlightsFromReader(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParsePassengersFromReader(t *testing.T) {
	data := `RECLOC,OPER_OD_ORIG_CD,OPER_OD_DEST_CD,CABIN_CD,PAX_CNT,DEP_KEY,DEP_DTMZ
ABC123,AMS,JFK,Y,-2,KL641,2024-05-10 10:00
DEF456,AMS,BOS,c,1,KL641,
GHI789,AMS,BOS,F,1,KL641,
,AMS,BOS,Y,1,KL641,
JKL012,AMS,BOS,Y,1,KL641,garbage
`
	passengers, err := ParsePassengersFromReader(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, passengers, 3)

	assert.Equal(t, "ABC123", passengers[0].RecordLocator)
	assert.Equal(t, models.CabinEconomy, passengers[0].Cabin)
	assert.Equal(t, 2, passengers[0].PaxCount)
	assert.Equal(t, time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC), passengers[0].DepTime)

	assert.Equal(t, models.CabinBusiness, passengers[1].Cabin)
	assert.True(t, passengers[1].DepTime.IsZero())

	// an unreadable departure is dropped, the passenger is kept
	assert.Equal(t, "JKL012", passengers[2].RecordLocator)
	assert.True(t, passengers[2].DepTime.IsZero())
}

func TestParsePassengersFromReader_NoDepartureColumn(t *testing.T) {
	data := `RECLOC,OPER_OD_ORIG_CD,OPER_OD_DEST_CD,CABIN_CD,PAX_CNT,DEP_KEY
ABC123,AMS,JFK,Y,2,KL641
`
	passengers, err := ParsePassengersFromReader(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, passengers, 1)
	assert.True(t, passengers[0].DepTime.IsZero())
}

func TestParseCancelledFlightsFromReader(t *testing.T) {
	data := `DEP_KEY,ORIG_CD,DEST_CD,DEP_DTMZ
KL641,AMS,JFK,2024-05-10 10:00:00
KL700,AMS,LHR,
,AMS,CDG,2024-05-10 10:00:00
`
	cancelled, err := ParseCancelledFlightsFromReader(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, cancelled, 2)

	assert.Equal(t, "KL641", cancelled[0].FlightID)
	assert.Equal(t, "JFK", cancelled[0].Destination)
	assert.Equal(t, time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC), cancelled[0].DepTime)
	assert.True(t, cancelled[1].DepTime.IsZero())
}

func TestParseAirportsFromReader(t *testing.T) {
	data := "\ufeffiata,name,city,lat,lon\n" +
		"ams,Schiphol,Amsterdam,52.3086,4.7639\n" +
		"RTM,Rotterdam The Hague,Rotterdam,51.9569,4.4372\n" +
		"XXX,Nowhere,Nowhere,north,4.0\n" +
		",Blank,Blank,1,1\n"

	airports, err := ParseAirportsFromReader(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, airports, 2)

	assert.Equal(t, "AMS", airports[0].Code)
	assert.Equal(t, "Schiphol", airports[0].Name)
	assert.InDelta(t, 52.3086, airports[0].Lat, 1e-9)
	assert.Equal(t, "RTM", airports[1].Code)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	paths := Paths{
		AvailableFlights: write("available.csv", "ORIG_CD,DEST_CD,DEP_DTMZ,ARR_DTMZ,C_AVAIL_CNT,Y_AVAIL_CNT,DEP_KEY\nA,B,2024-05-10 10:00,2024-05-10 12:00,1,1,F1\n"),
		Passengers:       write("pnr.csv", "RECLOC,OPER_OD_ORIG_CD,OPER_OD_DEST_CD,CABIN_CD,PAX_CNT,DEP_KEY\nR1,A,B,Y,1,X1\n"),
		CancelledFlights: write("cancelled.csv", "DEP_KEY,ORIG_CD,DEST_CD,DEP_DTMZ\nX1,A,B,2024-05-10 08:00\n"),
		Airports:         filepath.Join(dir, "missing.csv"),
	}

	feed, err := Load(paths)
	require.NoError(t, err)
	assert.Len(t, feed.Flights, 1)
	assert.Len(t, feed.Passengers, 1)
	assert.Len(t, feed.Cancelled, 1)
	assert.Empty(t, feed.Airports, "airports are optional")

	t.Run("Missing required file", func(t *testing.T) {
		broken := paths
		broken.Passengers = filepath.Join(dir, "nope.csv")
		_, err := Load(broken)
		assert.Error(t, err)
	})
}

func TestParsers_NormalizeAirportCodes(t *testing.T) {
	flights, err := ParseAvailableFlightsFromReader(strings.NewReader(
		"ORIG_CD,DEST_CD,DEP_DTMZ,ARR_DTMZ,C_AVAIL_CNT,Y_AVAIL_CNT,DEP_KEY\n" +
			"ams, jfk ,2024-05-10 10:00:00,2024-05-10 18:00:00,4,20,KL641\n"))
	require.NoError(t, err)
	require.Len(t, flights, 1)

	passengers, err := ParsePassengersFromReader(strings.NewReader(
		"RECLOC,OPER_OD_ORIG_CD,OPER_OD_DEST_CD,CABIN_CD,PAX_CNT,DEP_KEY\n" +
			"ABC123,Ams,jfk,Y,1,KL641\n"))
	require.NoError(t, err)
	require.Len(t, passengers, 1)

	cancelled, err := ParseCancelledFlightsFromReader(strings.NewReader(
		"DEP_KEY,ORIG_CD,DEST_CD,DEP_DTMZ\n" +
			"KL641,ams,Jfk,2024-05-10 10:00:00\n"))
	require.NoError(t, err)
	require.Len(t, cancelled, 1)

	tests := []struct {
		name        string
		origin      string
		destination string
	}{
		{"Available flight", flights[0].Origin, flights[0].Destination},
		{"Passenger", passengers[0].Origin, passengers[0].Destination},
		{"Cancelled flight", cancelled[0].Origin, cancelled[0].Destination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "AMS", tt.origin)
			assert.Equal(t, "JFK", tt.destination)
		})
	}
}
