package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/observability"
)

// Predictor is the scoring capability the API exposes.
type Predictor interface {
	Predict(ctx context.Context) ([]domain.ScoredProject, error)
	PredictOne(ctx context.Context, id string) (domain.ScoredProject, error)
}

// ProjectLister serves the raw project listing.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

type Server struct {
	Predictor      Predictor
	Projects       ProjectLister
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
}

func NewServer(p Predictor, projects ProjectLister, logger *zap.Logger, metrics *observability.Metrics, origins []string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Predictor: p, Projects: projects, Logger: logger, Metrics: metrics, AllowedOrigins: origins}
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Handle("/health", s.wrap("/health", s.handleHealth)).Methods(http.MethodGet)
	r.Handle("/api/predict", s.wrap("/api/predict", s.handlePredict)).Methods(http.MethodGet)
	r.Handle("/api/predict/{id}", s.wrap("/api/predict/{id}", s.handlePredictOne)).Methods(http.MethodGet)
	r.Handle("/projects", s.wrap("/projects", s.handleProjectsList)).Methods(http.MethodGet)
	r.Handle("/demo", s.wrap("/demo", s.handleDemo)).Methods(http.MethodGet)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})
	r.Use(RequestLogger(s.Logger))

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)
	return cors(r)
}

func (s *Server) wrap(route string, h http.HandlerFunc) http.Handler {
	return s.Metrics.WrapHandler(route, h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	results, err := s.Predictor.Predict(r.Context())
	if err != nil {
		s.Logger.Error("Predictive risk failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to calculate predictive risk"})
		return
	}
	if results == nil {
		results = []domain.ScoredProject{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handlePredictOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sp, err := s.Predictor.PredictOne(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case err != nil:
		s.Logger.Error("Predictive risk failed", zap.String("project_id", id), zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to calculate predictive risk"})
	default:
		s.writeJSON(w, http.StatusOK, sp)
	}
}

// ---- Projects API (read-only) ----

type ProjectsListResponse struct {
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Total  int              `json:"total"`
	Items  []domain.Project `json:"items"`
}

func (s *Server) handleProjectsList(w http.ResponseWriter, r *http.Request) {
	projects, err := s.Projects.ListProjects(r.Context())
	if err != nil {
		s.Logger.Error("List projects failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list projects"})
		return
	}

	pg := parsePage(r.URL.Query())
	from, to := pg.apply(len(projects))

	items := make([]domain.Project, 0, to-from)
	items = append(items, projects[from:to]...)

	s.writeJSON(w, http.StatusOK, ProjectsListResponse{
		Limit:  pg.Limit,
		Offset: pg.Offset,
		Total:  len(projects),
		Items:  items,
	})
}

const (
	defaultPageSize = 20
	// maxPageSize bounds a single /projects response. The listing serves the
	// whole table from memory on every call, so clients page through it
	// rather than pulling thousands of rows at once.
	maxPageSize = 200
)

// page is a window over the project listing.
type page struct {
	Limit  int
	Offset int
}

// parsePage reads limit and offset. Unparseable or non-positive limits fall
// back to defaultPageSize, negative offsets to 0.
func parsePage(q url.Values) page {
	p := page{Limit: defaultPageSize}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.Limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		p.Offset = v
	}
	return p
}

// apply clamps the window to n items and returns the [from, to) bounds.
func (p *page) apply(n int) (int, int) {
	p.Offset = min(p.Offset, n)
	return p.Offset, min(p.Offset+p.Limit, n)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.Logger.Warn("Encode response", zap.Int("status", status), zap.Error(err))
	}
}

func (s *Server) handleDemo(w http.ResponseWriter, _ *http.Request) {
	html := `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>infrastructure risk demo</title>
  <style>
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, Arial, sans-serif; margin: 16px; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border-bottom: 1px solid #eee; padding: 6px 8px; text-align: left; font-size: 14px; }
    .CRITICAL { color: #b00020; font-weight: bold; }
    .MODERATE { color: #b26a00; }
    .SAFE { color: #2e7d32; }
    .muted { color: #666; font-size: 14px; }
  </style>
</head>
<body>
  <h2>Predictive risk</h2>
  <div class="muted">Source: <code>GET /api/predict</code></div>
  <table style="margin-top:12px;">
    <thead><tr><th>Project</th><th>Type</th><th>Contractor</th><th>Score</th><th>Label</th><th>Reason</th></tr></thead>
    <tbody id="rows"><tr><td colspan="6">Loading…</td></tr></tbody>
  </table>
<script>
const rows = document.getElementById("rows");
function cell(text, cls) {
  const td = document.createElement("td");
  td.textContent = text;
  if (cls) td.className = cls;
  return td;
}
fetch("/api/predict").then(r => r.json()).then(items => {
  rows.innerHTML = "";
  if (!Array.isArray(items) || items.length === 0) {
    rows.innerHTML = "<tr><td colspan='6'>No projects</td></tr>";
    return;
  }
  for (const it of items) {
    const tr = document.createElement("tr");
    const p = it.prediction || {};
    tr.appendChild(cell(it.name || it.id));
    tr.appendChild(cell(it.project_type || ""));
    tr.appendChild(cell(p.contractor || ""));
    tr.appendChild(cell(String(p.score ?? "")));
    tr.appendChild(cell(p.label || "", p.label));
    tr.appendChild(cell(p.reason || ""));
    rows.appendChild(tr);
  }
}).catch(e => { rows.innerHTML = "<tr><td colspan='6'>Error: " + e.message + "</td></tr>"; });
</script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}
