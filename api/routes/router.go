package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/saleminimum-backend/api/controllers"
	"github.com/angelmondragon/saleminimum-backend/api/middleware"
	"github.com/angelmondragon/saleminimum-backend/internal/saleconfig"
	salessvc "github.com/angelmondragon/saleminimum-backend/internal/sales"
	"github.com/angelmondragon/saleminimum-backend/pkg/config"
	"github.com/angelmondragon/saleminimum-backend/pkg/db"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	"github.com/angelmondragon/saleminimum-backend/pkg/i18n"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/redis"
)

// RouterParams groups what the API router serves and depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Translator *i18n.Translator
	Gatherer   prometheus.Gatherer
	Sales      salessvc.Service
	SaleConfig saleconfig.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	translator := p.Translator
	if translator == nil {
		translator = i18n.Default()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Language(translator, logg),
	)

	readiness := map[string]controllers.Pinger{}
	if p.DB != nil {
		readiness["db"] = p.DB
	}
	var idempotencyStore redis.IdempotencyStore
	if p.Redis != nil {
		readiness["redis"] = p.Redis
		idempotencyStore = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if cfg.Metrics.Enabled && p.Gatherer != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Redis.IdempotencyTTL, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SalesList(p.Sales, logg))
			r.Get("/{saleId}", controllers.SalesGet(p.Sales, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSalesEditor(logg))
				r.Post("/", controllers.SalesCreate(p.Sales, logg))
				r.Post("/quote", controllers.SalesQuote(p.Sales, logg))
				r.Post("/{saleId}/lines", controllers.SalesAddLine(p.Sales, logg))
				r.Patch("/{saleId}/lines/{lineId}", controllers.SalesChangeLine(p.Sales, logg))
				r.Post("/{saleId}/confirm", controllers.SalesConfirm(p.Sales, logg))
				r.Post("/{saleId}/copy", controllers.SalesCopy(p.Sales, logg))
			})
		})

		r.Route("/sale-configuration", func(r chi.Router) {
			r.Get("/", controllers.SaleConfigurationGet(p.SaleConfig, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin)).Put("/", controllers.SaleConfigurationUpdate(p.SaleConfig, logg))
		})
	})

	return r
}
