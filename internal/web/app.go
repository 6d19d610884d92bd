// internal/web/app.go
package web

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"qalilab/internal/generate"
	"qalilab/internal/tracker"
	"qalilab/pkg/config"
	"qalilab/pkg/middleware"
	"qalilab/pkg/tenants"
)

// issueKeyRe is the shape of a valid issue key. Write-backs with anything
// else are refused before any tracker call.
var issueKeyRe = regexp.MustCompile(`^[A-Z]+-\d+$`)

// App composes the prompt builder, the generation client and the tracker
// clients behind the route handlers.
type App struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	builder *generate.Builder
	gen     *generate.Client
	jira    *tracker.Client // basic-auth, single-tenant operations
	factory *tracker.Factory
	store   tenants.Store
}

func NewApp(cfg config.Config, log *zap.SugaredLogger, builder *generate.Builder, gen *generate.Client, jira *tracker.Client, factory *tracker.Factory, store tenants.Store) *App {
	return &App{cfg: cfg, log: log, builder: builder, gen: gen, jira: jira, factory: factory, store: store}
}

func (a *App) RegisterRoutes(r chi.Router) {
	r.Get("/", a.index)
	r.Post("/", a.index)
	r.Post("/api/generate", a.apiGenerate)
	r.Post("/create_jira_ticket", a.createTicket)
	r.Get("/get_issue_types", a.issueTypes)
	r.Get("/add-link-to-issue/{issueKey}", a.addLinkToIssue)
	r.Get("/add-links-to-user-stories", a.addLinksToStories)
	r.Get("/check-env", a.checkEnv)
	r.Get("/check-app-status", a.checkAppStatus)
	r.Get("/check-jira-auth", a.checkJiraAuth)
	r.Post("/force-install", a.forceInstall)

	// Tenant-scoped entry point: the deep link out of a Jira issue carries a
	// Connect JWT, verified against the registry before anything runs.
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.VerifyConnect(a.store, a.log))
		pr.Get("/jira-panel", a.jiraPanel)
	})
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
