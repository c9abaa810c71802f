package domain

import "errors"

// Label is the severity bucket attached to a scored project.
type Label string

const (
	LabelCritical Label = "CRITICAL"
	LabelModerate Label = "MODERATE"
	LabelSafe     Label = "SAFE"
)

var ErrNotFound = errors.New("not found")

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether c lies inside the WGS84 degree ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

type Project struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Budget             int64    `json:"budget"`
	ContractorName     string   `json:"contractor_name"`
	ProjectType        string   `json:"project_type"`
	Status             string   `json:"status"`
	ExpectedCompletion string   `json:"expected_completion"`
	StartDate          string   `json:"start_date,omitempty"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	City               string   `json:"city,omitempty"`
	Department         string   `json:"department,omitempty"`
	IsVerified         bool     `json:"is_verified"`
}

// Location returns the project position when both coordinates are set and in range.
func (p Project) Location() (Coordinate, bool) {
	return locate(p.Latitude, p.Longitude)
}

func (p Project) Validate() error {
	if p.ID == "" {
		return errors.New("project id is required")
	}
	if p.Budget <= 0 {
		return errors.New("budget must be > 0")
	}
	if p.Latitude != nil || p.Longitude != nil {
		if _, ok := p.Location(); !ok {
			return errors.New("coordinates out of range")
		}
	}
	return nil
}

type Report struct {
	ID        string   `json:"id,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Severity  string   `json:"severity,omitempty"`
	Category  string   `json:"category,omitempty"`
	City      string   `json:"city,omitempty"`
}

func (r Report) Location() (Coordinate, bool) {
	return locate(r.Latitude, r.Longitude)
}

func locate(lat, lon *float64) (Coordinate, bool) {
	if lat == nil || lon == nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: *lat, Lon: *lon}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}

// Reputation is what a reputation provider knows about one contractor.
type Reputation struct {
	Flagged     bool   `json:"flagged"`
	DisplayName string `json:"display_name"`
}

type ContractorProfile struct {
	ContractorName  string `json:"contractor_name"`
	TotalProjects   int    `json:"total_projects"`
	FlaggedProjects int    `json:"flagged_projects"`
	RiskScore       int    `json:"risk_score"`
	IsBlacklisted   bool   `json:"is_blacklisted"`
}

type Factors struct {
	Base               int     `json:"base"`
	Density            int     `json:"density"`
	Contractor         int     `json:"contractor"`
	SeasonalMultiplier float64 `json:"seasonal_multiplier"`
	NearbyReports      int     `json:"nearby_reports"`
}

type Prediction struct {
	Score      int     `json:"score"`
	Label      Label   `json:"label"`
	Contractor string  `json:"contractor"`
	Factors    Factors `json:"factors"`
	Reason     string  `json:"reason"`
}

// ScoredProject serializes as the project's own fields plus a nested "prediction".
type ScoredProject struct {
	Project
	Prediction Prediction `json:"prediction"`
}

// Float is a convenience for building optional coordinates.
func Float(v float64) *float64 { return &v }
