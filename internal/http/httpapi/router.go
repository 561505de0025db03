package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"offersync/internal/http/handlers"
	"offersync/internal/infra"
	"offersync/internal/middleware"
)

type Options struct {
	JWTSecret      string
	JWTAudience    string
	AllowedOrigins []string
	RateLimit      int
	RatePer        time.Duration
	DefaultLocale  string
	Languages      []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  infra.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RateLimit, opts.RatePer),
			middleware.I18N(opts.DefaultLocale, opts.Languages),
			middleware.AuthJWT(opts.JWTSecret, opts.JWTAudience),
		)

		r.Route("/v1/offers/bulk-jobs", func(r chi.Router) {
			r.Post("/", app.CreateBulkJob)
			r.Get("/", app.ListBulkJobs)
			r.Get("/{job_id}", app.GetBulkJob)
		})
		r.Get("/v1/wallet", app.GetWallet)
		r.Get("/v1/wallet/ledger", app.ListLedger)
	})

	return r
}
