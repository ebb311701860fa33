package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"cyberguard/internal/auth"
)

type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(api *API, authSvc *auth.AuthService, opts RouterOptions) http.Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(api.log), middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(auth.Authenticate(authSvc))

	// public
	r.Get("/healthz", api.HandleHealth)
	r.Get("/categories", api.HandleCategories)
	r.Get("/certificates/{certificate_id}", api.HandleVerifyCertificate)

	// student
	r.Get("/questions", api.HandleQuestions)
	r.Post("/answers", api.HandleSubmitAnswer)
	r.Get("/leaderboard", api.HandleLeaderboard)
	r.Route("/me", func(r chi.Router) {
		r.Get("/stats", api.HandleStats)
		r.Get("/activity", api.HandleActivity)
		r.Delete("/progress", api.HandleResetProgress)
		r.Get("/eligibility", api.HandleEligibility)
		r.Post("/certificates", api.HandleIssueCertificate)
		r.Get("/certificates", api.HandleListCertificates)
		r.Get("/certificates/{certificate_id}/document", api.HandleCertificateDocument)
		r.Get("/badges", api.HandleBadges)
		r.Post("/badges/{badge_id}", api.HandleClaimBadge)
		r.Get("/report", api.HandleSummaryReport)
		r.Get("/export", api.HandleExport)
		r.Get("/comment", api.HandleReportComment)
	})

	// instructor
	r.Get("/reports/instructor", api.HandleInstructorReport)
	r.Get("/questions/stats", api.HandleQuestionStats)
	r.Post("/users/{user_id}/badges/{badge_id}", api.HandleAwardBadge)

	// admin
	r.Post("/questions", api.HandleCreateQuestion)
	r.Put("/questions/{question_id}", api.HandleUpdateQuestion)
	r.Delete("/questions/{question_id}", api.HandleDeleteQuestion)
	r.Delete("/categories/{category}/questions", api.HandleDeleteCategory)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})

	return r
}
