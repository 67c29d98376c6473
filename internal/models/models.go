package models

import (
	"fmt"
	"strings"
	"time"
)

// Cabin represents a fare cabin with its own seat inventory
type Cabin string

const (
	CabinBusiness Cabin = "C"
	CabinEconomy  Cabin = "Y"
)

// ParseCabin normalizes a cabin code ("c", " Y ") to a known Cabin
func ParseCabin(code string) (Cabin, error) {
	switch Cabin(strings.ToUpper(strings.TrimSpace(code))) {
	case CabinBusiness:
		return CabinBusiness, nil
	case CabinEconomy:
		return CabinEconomy, nil
	default:
		return "", fmt.Errorf("unknown cabin code %q", code)
	}
}

// Airport represents a node of the flight network with optional metadata.
// Pathfinding only uses Code.
type Airport struct {
	Code string  `json:"code"`
	Name string  `json:"name,omitempty"`
	City string  `json:"city,omitempty"`
	Lat  float64 `json:"lat,omitempty"`
	Lon  float64 `json:"lon,omitempty"`
}

// Flight is one directed edge of the network.
// Key is the edge position among the parallel flights of its airport pair,
// FlightID is the operational key used for booking.
type Flight struct {
	Origin      string
	Destination string
	Key         int
	FlightID    string
	DepTime     time.Time
	ArrTime     time.Time
	CAvail      int
	YAvail      int
}

// RebookingRequest describes one passenger looking for a replacement itinerary
type RebookingRequest struct {
	RecordLocator    string
	Origin           string
	Destination      string
	Cabin            Cabin
	Seats            int
	OriginalDepTime  time.Time
	OriginalFlightID string
}

// CandidateLeg is a flight that passed the per-hop checks of one route
type CandidateLeg struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	FlightID    string    `json:"flight_id"`
	Key         int       `json:"edge_key"`
	DepTime     time.Time `json:"dep_time"`
	ArrTime     time.Time `json:"arr_time"`
	CAvail      int       `json:"c_avail"`
	YAvail      int       `json:"y_avail"`
}

// Itinerary is a fully resolved, feasible sequence of flights
type Itinerary struct {
	FlightIDs []string       `json:"flight_ids"`
	Legs      []CandidateLeg `json:"legs"`
}

// RouteOptions groups the itineraries found for one route shape
type RouteOptions struct {
	Route       []string    `json:"route"`
	Itineraries []Itinerary `json:"itineraries"`
}

// ResultKey identifies a rebooking result: one passenger on one cancelled flight
type ResultKey struct {
	RecordLocator    string `json:"record_locator"`
	OriginalFlightID string `json:"original_flight_id"`
}

func (k ResultKey) String() string {
	return k.RecordLocator + "/" + k.OriginalFlightID
}

// NetworkStats summarizes a loaded flight network
type NetworkStats struct {
	Airports int    `json:"airports"`
	Flights  int    `json:"flights"`
	Routes   int    `json:"routes"`
	Version  string `json:"version"`
}

// Feed data structures for import

// AvailableFlight is a row of the available flights feed
type AvailableFlight struct {
	Origin      string
	Destination string
	DepTime     time.Time
	ArrTime     time.Time
	CAvail      int
	YAvail      int
	FlightID    string
}

// PassengerRecord is a row of the passenger (PNR) feed
type PassengerRecord struct {
	RecordLocator string
	Origin        string
	Destination   string
	Cabin         Cabin
	PaxCount      int
	FlightID      string
	DepTime       time.Time // zero when the feed has no departure column
}

// CancelledFlight is a row of the cancelled flights feed
type CancelledFlight struct {
	FlightID    string
	Origin      string
	Destination string
	DepTime     time.Time
}

// AirportRecord is a row of the airport metadata feed
type AirportRecord struct {
	Code string
	Name string
	City string
	Lat  float64
	Lon  float64
}

// AffectedPassenger is a passenger booked on a cancelled flight
type AffectedPassenger struct {
	RecordLocator    string    `json:"record_locator"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	Cabin            Cabin     `json:"cabin"`
	PaxCount         int       `json:"pax_count"`
	OriginalFlightID string    `json:"original_flight_id"`
	OriginalDepTime  time.Time `json:"original_dep_time"`
}

// Key returns the result key of this passenger
func (p AffectedPassenger) Key() ResultKey {
	return ResultKey{RecordLocator: p.RecordLocator, OriginalFlightID: p.OriginalFlightID}
}
