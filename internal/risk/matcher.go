package risk

import (
	"fmt"
	"math"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

// Matcher turns a report snapshot into something that can count reports near
// a project. Implementations must not reorder or mutate the input.
type Matcher interface {
	Index(reports []domain.Coordinate) NearbyCounter
}

type NearbyCounter interface {
	Count(at domain.Coordinate) int
}

// BoxMatcher counts reports inside an axis-aligned ±Tolerance degree box.
type BoxMatcher struct {
	Tolerance float64
}

func (m BoxMatcher) Index(reports []domain.Coordinate) NearbyCounter {
	return boxScan{tol: m.Tolerance, reports: reports}
}

type boxScan struct {
	tol     float64
	reports []domain.Coordinate
}

func (b boxScan) Count(at domain.Coordinate) int {
	n := 0
	for _, r := range b.reports {
		if inBox(r, at, b.tol) {
			n++
		}
	}
	return n
}

func inBox(r, at domain.Coordinate, tol float64) bool {
	return math.Abs(r.Lat-at.Lat) <= tol && math.Abs(r.Lon-at.Lon) <= tol
}

// GridMatcher buckets reports into Tolerance-sized cells so a lookup only
// touches the 3x3 neighbourhood. Counts are identical to BoxMatcher.
type GridMatcher struct {
	Tolerance float64
}

type cellKey struct{ x, y int64 }

type grid struct {
	tol   float64
	cells map[cellKey][]domain.Coordinate
}

func (m GridMatcher) Index(reports []domain.Coordinate) NearbyCounter {
	if m.Tolerance <= 0 {
		// zero-sized cells are meaningless; exact-match scan gives the same answer
		return boxScan{tol: m.Tolerance, reports: reports}
	}
	g := grid{tol: m.Tolerance, cells: make(map[cellKey][]domain.Coordinate)}
	for _, r := range reports {
		k := g.key(r)
		g.cells[k] = append(g.cells[k], r)
	}
	return g
}

func (g grid) key(c domain.Coordinate) cellKey {
	return cellKey{
		x: int64(math.Floor(c.Lat / g.tol)),
		y: int64(math.Floor(c.Lon / g.tol)),
	}
}

func (g grid) Count(at domain.Coordinate) int {
	k := g.key(at)
	n := 0
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, r := range g.cells[cellKey{k.x + dx, k.y + dy}] {
				if inBox(r, at, g.tol) {
					n++
				}
			}
		}
	}
	return n
}

const earthRadiusKm = 6371.0

// HaversineMatcher counts reports within RadiusKm great-circle distance.
type HaversineMatcher struct {
	RadiusKm float64
}

func (m HaversineMatcher) Index(reports []domain.Coordinate) NearbyCounter {
	return haversineScan{radiusKm: m.RadiusKm, reports: reports}
}

type haversineScan struct {
	radiusKm float64
	reports  []domain.Coordinate
}

func (h haversineScan) Count(at domain.Coordinate) int {
	n := 0
	for _, r := range h.reports {
		if DistanceKm(at, r) <= h.radiusKm {
			n++
		}
	}
	return n
}

// DistanceKm is the haversine distance between a and b.
func DistanceKm(a, b domain.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(s)))
}

// NewMatcher builds a matcher by name. Haversine derives its radius from the
// degree tolerance (one degree of latitude is ~111.2 km).
func NewMatcher(kind string, toleranceDeg float64) (Matcher, error) {
	switch kind {
	case "", "box":
		return BoxMatcher{Tolerance: toleranceDeg}, nil
	case "grid":
		return GridMatcher{Tolerance: toleranceDeg}, nil
	case "haversine":
		return HaversineMatcher{RadiusKm: toleranceDeg * earthRadiusKm * math.Pi / 180}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", kind)
	}
}
