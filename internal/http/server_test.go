package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/observability"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/risk"
)

type memSource struct {
	projects []domain.Project
	reports  []domain.Report
	err      error
}

func (m memSource) ListProjects(context.Context) ([]domain.Project, error) { return m.projects, m.err }
func (m memSource) ListReports(context.Context) ([]domain.Report, error)   { return m.reports, m.err }

func newTestServer(t *testing.T, src memSource, now time.Time) *httptest.Server {
	t.Helper()
	svc := &risk.Service{
		Source:     src,
		Reputation: risk.NewListProvider(risk.DefaultBlocklist),
		Engine:     risk.NewEngine(risk.DefaultParams(), nil),
		Logger:     zap.NewNop(),
		Clock:      func() time.Time { return now },
	}
	srv := NewServer(svc, src, zap.NewNop(), observability.NewMetrics(), []string{"http://localhost:3000"})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func project(id, contractor string) domain.Project {
	return domain.Project{
		ID: id, Name: "Project " + id, Budget: 1_000_000, ContractorName: contractor, ProjectType: "roads",
		Latitude: domain.Float(19.0760), Longitude: domain.Float(72.8777),
	}
}

func TestGETPredict_ScoresInInputOrder(t *testing.T) {
	t.Parallel()

	src := memSource{
		projects: []domain.Project{project("b", "Apex Roadways"), project("a", "Tata Projects")},
		reports: []domain.Report{
			{Latitude: domain.Float(19.0765), Longitude: domain.Float(72.8770)},
			{Latitude: domain.Float(19.0750), Longitude: domain.Float(72.8780)},
		},
	}
	ts := newTestServer(t, src, time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC))

	resp, err := http.Get(ts.URL + "/api/predict")
	if err != nil {
		t.Fatalf("GET /api/predict: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/predict status=%d", resp.StatusCode)
	}

	var got []struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		ProjectType string  `json:"project_type"`
		Latitude    float64 `json:"latitude"`
		Prediction  struct {
			Score      int    `json:"score"`
			Label      string `json:"label"`
			Contractor string `json:"contractor"`
		} `json:"prediction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("items=%d want=2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("order=%s,%s want=b,a", got[0].ID, got[1].ID)
	}
	// 30 base + 16 density + 30 contractor
	if got[0].Prediction.Score != 76 || got[0].Prediction.Label != "CRITICAL" {
		t.Fatalf("b prediction=%+v", got[0].Prediction)
	}
	if got[0].Prediction.Contractor != "Apex Roadways" {
		t.Fatalf("b contractor=%q", got[0].Prediction.Contractor)
	}
	if got[1].Prediction.Score != 46 || got[1].Prediction.Label != "MODERATE" {
		t.Fatalf("a prediction=%+v", got[1].Prediction)
	}
	if got[1].ProjectType != "roads" || got[1].Latitude != 19.0760 {
		t.Fatalf("project fields not flattened: %+v", got[1])
	}
}

func TestGETPredict_EmptyIsArray(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, memSource{}, time.Now())

	resp, err := http.Get(ts.URL + "/api/predict")
	if err != nil {
		t.Fatalf("GET /api/predict: %v", err)
	}
	defer resp.Body.Close()

	var got []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty array, got %v", got)
	}
}

func TestGETPredict_IngestionFailure(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, memSource{err: errors.New("store unreachable")}, time.Now())

	resp, err := http.Get(ts.URL + "/api/predict")
	if err != nil {
		t.Fatalf("GET /api/predict: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d want=500", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] == "" {
		t.Fatalf("missing error body")
	}
}

func TestGETPredictByID(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, memSource{projects: []domain.Project{project("p1", "NCC Ltd")}},
		time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))

	resp, err := http.Get(ts.URL + "/api/predict/p1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var got domain.ScoredProject
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "p1" || got.Prediction.Score != 45 {
		t.Fatalf("got id=%s score=%d", got.ID, got.Prediction.Score)
	}

	resp2, err := http.Get(ts.URL + "/api/predict/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want=404", resp2.StatusCode)
	}
}

func TestGETProjects_Pagination(t *testing.T) {
	t.Parallel()
	src := memSource{projects: []domain.Project{project("1", ""), project("2", ""), project("3", "")}}
	ts := newTestServer(t, src, time.Now())

	resp, err := http.Get(ts.URL + "/projects?limit=2&offset=1")
	if err != nil {
		t.Fatalf("GET /projects: %v", err)
	}
	defer resp.Body.Close()

	var got ProjectsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 3 || len(got.Items) != 2 || got.Items[0].ID != "2" {
		t.Fatalf("got total=%d items=%d", got.Total, len(got.Items))
	}
}

func TestGETProjects_LimitIsCapped(t *testing.T) {
	t.Parallel()
	projects := make([]domain.Project, 0, 250)
	for i := 0; i < 250; i++ {
		projects = append(projects, project(strconv.Itoa(i), ""))
	}
	ts := newTestServer(t, memSource{projects: projects}, time.Now())

	resp, err := http.Get(ts.URL + "/projects?limit=1000")
	if err != nil {
		t.Fatalf("GET /projects: %v", err)
	}
	defer resp.Body.Close()

	var got ProjectsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Limit != maxPageSize || len(got.Items) != maxPageSize || got.Total != 250 {
		t.Fatalf("got limit=%d items=%d total=%d", got.Limit, len(got.Items), got.Total)
	}
}

func TestParsePage(t *testing.T) {
	t.Parallel()
	cases := map[string]page{
		"":                     {Limit: defaultPageSize},
		"limit=5&offset=10":    {Limit: 5, Offset: 10},
		"limit=0":              {Limit: defaultPageSize},
		"limit=-3&offset=-1":   {Limit: defaultPageSize},
		"limit=abc&offset=xyz": {Limit: defaultPageSize},
		"limit=201":            {Limit: maxPageSize},
	}
	for raw, want := range cases {
		q, err := url.ParseQuery(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got := parsePage(q); got != want {
			t.Errorf("parsePage(%q) = %+v, want %+v", raw, got, want)
		}
	}

	p := page{Limit: 20, Offset: 50}
	from, to := p.apply(30)
	if from != 30 || to != 30 || p.Offset != 30 {
		t.Fatalf("apply past end: from=%d to=%d offset=%d", from, to, p.Offset)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, memSource{}, time.Now())

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin=%q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin=%q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, memSource{}, time.Now())

	resp, err := http.Post(ts.URL+"/api/predict", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want=405", resp.StatusCode)
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	if status := logs.All()[0].ContextMap()["status"]; status != int64(http.StatusNotFound) {
		t.Fatalf("status field=%v", status)
	}
}
