package risk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrInvalidParams = errors.New("invalid risk params")

// Params holds every tunable constant of the score formula.
type Params struct {
	BaseRisk           int      `json:"base_risk"`
	PerReport          int      `json:"per_report"`
	DensityCap         int      `json:"density_cap"`
	ContractorPenalty  int      `json:"contractor_penalty"`
	SeasonalMultiplier float64  `json:"seasonal_multiplier"`
	SeasonalMonths     []int    `json:"seasonal_months"`
	CriticalAbove      int      `json:"critical_above"`
	ModerateAbove      int      `json:"moderate_above"`
	ToleranceDeg       float64  `json:"tolerance_deg"`
	MaxScore           int      `json:"max_score"`
	AgeDecay           AgeDecay `json:"age_decay"`
}

// AgeDecay replaces the flat base term with a tiered function of days since
// expected completion. Tiers are checked in order; the first with
// days > AfterDays wins.
type AgeDecay struct {
	Enabled bool      `json:"enabled"`
	Tiers   []AgeTier `json:"tiers"`
}

type AgeTier struct {
	AfterDays int `json:"after_days"`
	Risk      int `json:"risk"`
}

// DefaultParams returns the monsoon-season formula used in production today.
func DefaultParams() Params {
	return Params{
		BaseRisk:           30,
		PerReport:          8,
		DensityCap:         40,
		ContractorPenalty:  30,
		SeasonalMultiplier: 1.5,
		SeasonalMonths:     []int{6, 7, 8, 9},
		CriticalAbove:      75,
		ModerateAbove:      40,
		ToleranceDeg:       0.01,
		MaxScore:           100,
		AgeDecay: AgeDecay{
			Tiers: []AgeTier{
				{AfterDays: 1000, Risk: 30},
				{AfterDays: 365, Risk: 15},
				{AfterDays: 180, Risk: 8},
			},
		},
	}
}

func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"base_risk", p.BaseRisk},
		{"per_report", p.PerReport},
		{"density_cap", p.DensityCap},
		{"contractor_penalty", p.ContractorPenalty},
	} {
		if f.v < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidParams, f.name)
		}
	}
	if p.ToleranceDeg < 0 {
		return fmt.Errorf("%w: tolerance_deg must be >= 0", ErrInvalidParams)
	}
	if p.SeasonalMultiplier < 0 {
		return fmt.Errorf("%w: seasonal_multiplier must be >= 0", ErrInvalidParams)
	}
	if p.CriticalAbove < p.ModerateAbove {
		return fmt.Errorf("%w: critical_above (%d) below moderate_above (%d)", ErrInvalidParams, p.CriticalAbove, p.ModerateAbove)
	}
	if p.MaxScore <= 0 {
		return fmt.Errorf("%w: max_score must be > 0", ErrInvalidParams)
	}
	for _, m := range p.SeasonalMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: seasonal month %d out of range", ErrInvalidParams, m)
		}
	}
	return nil
}

// LoadParamsFromFile overlays the JSON file on top of DefaultParams.
// On any error the defaults are returned together with the error.
func LoadParamsFromFile(path string) (Params, error) {
	p := DefaultParams()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params file: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return DefaultParams(), fmt.Errorf("unmarshal params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return DefaultParams(), err
	}
	return p, nil
}
