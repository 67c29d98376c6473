package airports

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/skyrebook/rebook_core/internal/models"
)

// DefaultRadiusKm is the distance under which two airports count as nearby
const DefaultRadiusKm = 250.0

// ErrNotFound is returned for an airport code without metadata
var ErrNotFound = errors.New("airport not found")

// Neighbor is an airport near another one
type Neighbor struct {
	Airport    models.Airport `json:"airport"`
	DistanceKm float64        `json:"distance_km"`
}

// Directory is a read-only index of airport metadata. It is never consulted by
// pathfinding; the rebooking driver uses it to widen origins and destinations.
type Directory struct {
	airports map[string]models.Airport
	codes    []string
}

// NewDirectory indexes airport records by code. Later duplicates are ignored.
func NewDirectory(records []models.AirportRecord) *Directory {
	d := &Directory{airports: make(map[string]models.Airport, len(records))}
	for _, r := range records {
		code := strings.ToUpper(strings.TrimSpace(r.Code))
		if code == "" {
			continue
		}
		if _, ok := d.airports[code]; ok {
			continue
		}
		d.airports[code] = models.Airport{Code: code, Name: r.Name, City: r.City, Lat: r.Lat, Lon: r.Lon}
		d.codes = append(d.codes, code)
	}
	sort.Strings(d.codes)
	return d
}

// Len returns the number of indexed airports
func (d *Directory) Len() int {
	return len(d.airports)
}

// Lookup returns the metadata of one airport
func (d *Directory) Lookup(code string) (models.Airport, bool) {
	a, ok := d.airports[strings.ToUpper(code)]
	return a, ok
}

// Nearby returns the other airports within radiusKm of code, closest first
func (d *Directory) Nearby(code string, radiusKm float64) ([]Neighbor, error) {
	origin, ok := d.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}

	neighbors := []Neighbor{}
	for _, other := range d.codes {
		if other == origin.Code {
			continue
		}
		a := d.airports[other]
		dist := haversineDistance(origin.Lat, origin.Lon, a.Lat, a.Lon)
		if dist <= radiusKm {
			neighbors = append(neighbors, Neighbor{Airport: a, DistanceKm: dist})
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].DistanceKm < neighbors[j].DistanceKm
	})
	return neighbors, nil
}

// NearbyCodes is Nearby without distances; unknown airports have no neighbors
func (d *Directory) NearbyCodes(code string, radiusKm float64) []string {
	neighbors, err := d.Nearby(code, radiusKm)
	if err != nil {
		return nil
	}
	codes := make([]string, len(neighbors))
	for i, n := range neighbors {
		codes[i] = n.Airport.Code
	}
	return codes
}

// haversineDistance calculates the great-circle distance between two points in kilometers
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0 // km

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
