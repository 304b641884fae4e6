package app

import (
	"database/sql"
	"net/http"
	"time"

	"examprep/internal/app/apiresp"
	"examprep/internal/app/observability"
	"examprep/internal/assistant"
	"examprep/internal/contentsync"
	"examprep/internal/practice"
	"examprep/internal/quizset"
	"examprep/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	limiter := NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)
	r.Use(RateLimitMiddleware(limiter))

	source := contentsync.NewHTTPSource(contentsync.HTTPSourceConfig{
		BaseURL: cfg.SourceBaseURL,
		APIKey:  cfg.SourceAPIKey,
	})
	syncHandler := contentsync.NewHandler(contentsync.NewService(db, source))
	quizsetHandler := quizset.NewHandler(quizset.NewService(db))
	practiceHandler := practice.NewHandler(practice.NewService(db))
	assistantHandler := assistant.NewHandler(assistant.NewService(assistant.ServiceConfig{
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	}))
	reportHandler := report.NewHandler(report.NewService(db))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/courses", quizsetHandler.ListCourses)
		api.Get("/sets", quizsetHandler.ListSets)
		api.Get("/sets/{id}/questions", quizsetHandler.SetQuestions)

		api.Post("/attempts", practiceHandler.Start)
		api.Get("/attempts/{id}", practiceHandler.Summary)
		api.Put("/attempts/{id}/answers", practiceHandler.SaveAnswer)
		api.Post("/attempts/{id}/submit", practiceHandler.Submit)
		api.Get("/attempts/{id}/result", practiceHandler.Result)

		api.Group(func(admin chi.Router) {
			admin.Use(RequireAdmin(cfg.AdminTokenBcrypt, cfg.AppEnv))

			admin.Post("/admin/courses", quizsetHandler.CreateCourse)
			admin.Post("/admin/sets", quizsetHandler.CreateSet)
			admin.Post("/admin/courses/{courseID}/sets/{setID}", quizsetHandler.AttachSet)
			admin.Delete("/admin/courses/{courseID}/sets/{setID}", quizsetHandler.DetachSet)
			admin.Post("/admin/sets/{id}/remix", quizsetHandler.Remix)
			admin.Put("/admin/questions/{id}/explanation", quizsetHandler.UpdateExplanation)

			admin.Post("/admin/sync/sets/{id}", syncHandler.Trigger)
			admin.Post("/admin/sync/sets/{id}/workbook", syncHandler.TriggerWorkbook)
			admin.Get("/admin/sync/status", syncHandler.Status)
			admin.Post("/admin/sync/finalize", syncHandler.Finalize)

			admin.Post("/admin/assistant/draft", assistantHandler.Draft)

			admin.Get("/admin/reports/dashboard", reportHandler.Dashboard)
			admin.Get("/admin/reports/sets/{id}", reportHandler.SetSummary)
			admin.Get("/admin/reports/sets/{id}/export", reportHandler.ExportSet)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apiresp.WriteError(w, r, http.StatusNotFound, "route not found")
	})

	return r
}
