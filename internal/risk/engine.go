package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

const dateLayout = "2006-01-02"

type Engine struct {
	params  Params
	matcher Matcher
	monsoon map[time.Month]bool
}

// NewEngine builds an engine. A nil matcher falls back to the bounding box
// with the configured tolerance.
func NewEngine(p Params, m Matcher) *Engine {
	if m == nil {
		m = BoxMatcher{Tolerance: p.ToleranceDeg}
	}
	monsoon := make(map[time.Month]bool, len(p.SeasonalMonths))
	for _, mo := range p.SeasonalMonths {
		monsoon[time.Month(mo)] = true
	}
	return &Engine{params: p, matcher: m, monsoon: monsoon}
}

func (e *Engine) Params() Params { return e.params }

// Input is everything the scorer needs about one project.
type Input struct {
	Nearby  int
	Flagged bool
	Now     time.Time
	// ExpectedCompletion feeds age decay only; empty means unknown.
	ExpectedCompletion string
}

// Score composes base, density and contractor terms, then applies the
// seasonal multiplier and clamps to [0, MaxScore].
func (e *Engine) Score(in Input) (int, domain.Factors) {
	f := domain.Factors{
		Base:               e.base(in),
		Density:            e.density(in.Nearby),
		SeasonalMultiplier: 1,
		NearbyReports:      in.Nearby,
	}
	if in.Flagged {
		f.Contractor = e.params.ContractorPenalty
	}

	score := float64(f.Base + f.Density + f.Contractor)
	if e.monsoon[in.Now.Month()] {
		f.SeasonalMultiplier = e.params.SeasonalMultiplier
		score = math.Min(float64(e.params.MaxScore), score*e.params.SeasonalMultiplier)
	}
	return clampScore(int(score), e.params.MaxScore), f
}

func (e *Engine) density(nearby int) int {
	if nearby <= 0 {
		return 0
	}
	d := nearby * e.params.PerReport
	if d > e.params.DensityCap || d < 0 {
		// weights are validated non-negative, so d < 0 means overflow
		return e.params.DensityCap
	}
	return d
}

func (e *Engine) base(in Input) int {
	if !e.params.AgeDecay.Enabled || in.ExpectedCompletion == "" {
		return e.params.BaseRisk
	}
	done, err := time.Parse(dateLayout, in.ExpectedCompletion)
	if err != nil {
		return e.params.BaseRisk
	}
	days := int(in.Now.Sub(done).Hours() / 24)
	for _, t := range e.params.AgeDecay.Tiers {
		if days > t.AfterDays {
			return t.Risk
		}
	}
	return 0
}

// Classify maps a score to its label. Thresholds are strict: a score equal
// to a threshold stays in the lower bucket.
func (e *Engine) Classify(score int) domain.Label {
	switch {
	case score > e.params.CriticalAbove:
		return domain.LabelCritical
	case score > e.params.ModerateAbove:
		return domain.LabelModerate
	default:
		return domain.LabelSafe
	}
}

// Assess scores every project against the report snapshot. reputations must
// be aligned with projects by index. Output order equals input order and
// the inputs are never modified.
func (e *Engine) Assess(projects []domain.Project, reports []domain.Report, reputations []domain.Reputation, now time.Time) []domain.ScoredProject {
	counter := e.matcher.Index(ReportCoordinates(reports))

	out := make([]domain.ScoredProject, 0, len(projects))
	for i, p := range projects {
		var rep domain.Reputation
		if i < len(reputations) {
			rep = reputations[i]
		}

		nearby := 0
		if at, ok := p.Location(); ok {
			nearby = counter.Count(at)
		}

		score, factors := e.Score(Input{
			Nearby:             nearby,
			Flagged:            rep.Flagged,
			Now:                now,
			ExpectedCompletion: p.ExpectedCompletion,
		})

		out = append(out, domain.ScoredProject{
			Project: p,
			Prediction: domain.Prediction{
				Score:      score,
				Label:      e.Classify(score),
				Contractor: rep.DisplayName,
				Factors:    factors,
				Reason:     e.reason(factors, rep),
			},
		})
	}
	return out
}

// ReportCoordinates keeps only reports with a usable position, in order.
func ReportCoordinates(reports []domain.Report) []domain.Coordinate {
	out := make([]domain.Coordinate, 0, len(reports))
	for _, r := range reports {
		if c, ok := r.Location(); ok {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) reason(f domain.Factors, rep domain.Reputation) string {
	var parts []string
	if f.Density > e.params.DensityCap/2 {
		parts = append(parts, fmt.Sprintf("High report density (%d nearby)", f.NearbyReports))
	}
	if f.Contractor > 0 {
		parts = append(parts, fmt.Sprintf("Contractor '%s' has poor track record", rep.DisplayName))
	}
	if e.params.AgeDecay.Enabled && f.Base > e.params.BaseRisk/2 {
		parts = append(parts, "Infrastructure age exceeds maintenance threshold")
	}
	if f.SeasonalMultiplier > 1 {
		parts = append(parts, "Monsoon season increases failure probability")
	}
	if len(parts) == 0 {
		return "No significant risk factors detected."
	}
	return strings.Join(parts, ". ") + "."
}

func clampScore(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
