// Package generator builds reproducible synthetic project and citizen report
// datasets around major Indian cities.
package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/storage"
)

type City struct {
	Name string
	Lat  float64
	Lon  float64
}

var Cities = []City{
	{"Mumbai", 19.0760, 72.8777},
	{"Delhi", 28.7041, 77.1025},
	{"Bangalore", 12.9716, 77.5946},
	{"Hyderabad", 17.3850, 78.4867},
	{"Chennai", 13.0827, 80.2707},
	{"Kolkata", 22.5726, 88.3639},
	{"Pune", 18.5204, 73.8567},
	{"Ahmedabad", 23.0225, 72.5714},
	{"Jaipur", 26.9124, 75.7873},
	{"Lucknow", 26.8467, 80.9462},
	{"Bhopal", 23.2599, 77.4126},
	{"Indore", 22.7196, 75.8577},
	{"Chandigarh", 30.7333, 76.7794},
}

var ProjectTypes = []string{"roads", "bridge", "sanitation", "public_works", "electrical", "water", "drainage"}

var Contractors = []string{
	"L&T Construction", "Tata Projects", "Hindustan Construction Co", "Dilip Buildcon",
	"Afcons Infrastructure", "NCC Ltd", "IRB Infrastructure", "GMR Group",
	"Shapoorji Pallonji", "Reliance Infrastructure", "Local PWD Contractor",
	"State Infrastructure Corp", "City Municipal Corporation",
}

type weighted struct {
	value  string
	weight float64
}

var statuses = []weighted{
	{"Ongoing", 0.4},
	{"Completed", 0.3},
	{"Delayed", 0.2},
	{"Near Completion", 0.1},
}

var (
	severities = []string{"low", "medium", "high"}
	categories = []string{"pothole", "waterlogging", "crack", "debris", "streetlight"}
	prefixes   = []string{"Rehabilitation of", "Construction of", "Maintenance of", "Upgrading", "Expansion of"}
)

const (
	jitterDeg  = 0.05
	minBudget  = 1_000_000
	maxBudget  = 5_000_000_000
	dateLayout = "2006-01-02"
)

// Options controls a generation run. The same Seed and Now give the same output.
type Options struct {
	Projects int
	Reports  int
	Seed     int64
	Now      time.Time
}

// Dataset is one generated batch.
type Dataset struct {
	Projects []domain.Project
	Reports  []domain.Report
}

type Generator struct {
	rnd *rand.Rand
	now time.Time
}

func New(seed int64, now time.Time) *Generator {
	if now.IsZero() {
		now = time.Now()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), now: now}
}

func Generate(opts Options) (Dataset, error) {
	if opts.Projects < 0 || opts.Reports < 0 {
		return Dataset{}, fmt.Errorf("negative row count: projects=%d reports=%d", opts.Projects, opts.Reports)
	}
	g := New(opts.Seed, opts.Now)

	ds := Dataset{
		Projects: make([]domain.Project, 0, opts.Projects),
		Reports:  make([]domain.Report, 0, opts.Reports),
	}
	for i := 0; i < opts.Projects; i++ {
		p, err := g.Project()
		if err != nil {
			return Dataset{}, err
		}
		ds.Projects = append(ds.Projects, p)
	}
	for i := 0; i < opts.Reports; i++ {
		r, err := g.Report()
		if err != nil {
			return Dataset{}, err
		}
		ds.Reports = append(ds.Reports, r)
	}
	return ds, nil
}

// Project draws one project near a random city centre.
func (g *Generator) Project() (domain.Project, error) {
	id, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		return domain.Project{}, fmt.Errorf("project id: %w", err)
	}

	city := Cities[g.rnd.Intn(len(Cities))]
	lat, lon := g.jitter(city)
	kind := ProjectTypes[g.rnd.Intn(len(ProjectTypes))]

	start := g.now.AddDate(0, 0, -g.between(100, 1000))
	end := start.AddDate(0, 0, g.between(200, 700))

	return domain.Project{
		ID:                 id.String(),
		Name:               g.projectName(city.Name, kind),
		Budget:             minBudget + g.rnd.Int63n(maxBudget-minBudget+1),
		ContractorName:     Contractors[g.rnd.Intn(len(Contractors))],
		ProjectType:        kind,
		Status:             g.pick(statuses),
		ExpectedCompletion: end.Format(dateLayout),
		Latitude:           &lat,
		Longitude:          &lon,
		City:               city.Name,
		IsVerified:         true,
	}, nil
}

// Report draws one citizen report near a random city centre.
func (g *Generator) Report() (domain.Report, error) {
	id, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		return domain.Report{}, fmt.Errorf("report id: %w", err)
	}
	city := Cities[g.rnd.Intn(len(Cities))]
	lat, lon := g.jitter(city)
	return domain.Report{
		ID:        id.String(),
		Latitude:  &lat,
		Longitude: &lon,
		Severity:  severities[g.rnd.Intn(len(severities))],
		Category:  categories[g.rnd.Intn(len(categories))],
		City:      city.Name,
	}, nil
}

func (g *Generator) projectName(city, kind string) string {
	prefix := prefixes[g.rnd.Intn(len(prefixes))]
	switch kind {
	case "roads":
		return fmt.Sprintf("%s %s Main Road %d", prefix, city, g.between(1, 100))
	case "bridge":
		return fmt.Sprintf("%s Flyover at %s Junction %s", prefix, city, []string{"A", "B", "C"}[g.rnd.Intn(3)])
	case "sanitation":
		return fmt.Sprintf("%s Waste Management & Sanitation Project Phase %d", city, g.between(1, 4))
	case "public_works":
		return fmt.Sprintf("Renovation of %s Public Complex Sector %d", city, g.between(1, 20))
	case "electrical":
		return fmt.Sprintf("Underground Cabling & Grid Modernization in %s", city)
	case "water":
		return fmt.Sprintf("Water Pipeline Laying for %s Ward %d", city, g.between(10, 50))
	case "drainage":
		return fmt.Sprintf("Storm Water Drain Construction in %s Zone %d", city, g.between(1, 5))
	default:
		return fmt.Sprintf("%s Infrastructure Development Project", city)
	}
}

func (g *Generator) jitter(c City) (float64, float64) {
	lat := c.Lat + (g.rnd.Float64()*2-1)*jitterDeg
	lon := c.Lon + (g.rnd.Float64()*2-1)*jitterDeg
	return round6(lat), round6(lon)
}

// between returns an int in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rnd.Intn(hi-lo+1)
}

func (g *Generator) pick(items []weighted) string {
	var total float64
	for _, it := range items {
		total += it.weight
	}
	x := g.rnd.Float64() * total
	for _, it := range items {
		if x < it.weight {
			return it.value
		}
		x -= it.weight
	}
	return items[len(items)-1].value
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// WriteProjectsCSV writes projects in the column layout the loaders read.
func WriteProjectsCSV(w io.Writer, projects []domain.Project) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(storage.ProjectColumns); err != nil {
		return err
	}
	for _, p := range projects {
		if err := cw.Write([]string{
			p.ID,
			p.Name,
			strconv.FormatInt(p.Budget, 10),
			p.ContractorName,
			formatCoord(p.Latitude),
			formatCoord(p.Longitude),
			p.ProjectType,
			p.ExpectedCompletion,
			p.Status,
			pyBool(p.IsVerified),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteReportsCSV(w io.Writer, reports []domain.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, storage.ReportColumns...)); err != nil {
		return err
	}
	for _, r := range reports {
		if err := cw.Write([]string{
			r.ID,
			formatCoord(r.Latitude),
			formatCoord(r.Longitude),
			r.Severity,
			r.Category,
			r.City,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// pyBool keeps the dataset compatible with files produced by older tooling.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
