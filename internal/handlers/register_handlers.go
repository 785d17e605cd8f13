package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/middleware"
	"github.com/perfinapp/ledger_engine/internal/platform/config"
)

// ErrorResponse is a generic error response structure for handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	enqueueEvent EventEnqueuer,
) {

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	// Inbound event webhook (service-to-service, rate limited)
	registerEventRoutes(r, cfg, services.Ingestion, enqueueEvent)

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	// Apply AuthMiddleware to the entire v1 group
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))

	// Delegate route registration to specific handlers, passing required services
	registerAccountRoutes(v1, services.Account)
	registerJournalRoutes(v1, services.Journal)
	registerReportingRoutes(v1, services.Reporting)
}

// registerEventRoutes sets up the webhook the expense and income services
// deliver financial events to. It sits outside /api/v1 because callers
// authenticate as services, not as users.
func registerEventRoutes(r *gin.Engine, cfg *config.Config, ingestionSvc portssvc.IngestionSvcFacade, enqueueEvent EventEnqueuer) {
	h := newEventHandler(ingestionSvc, enqueueEvent, cfg.IngestAsync)

	rate, err := limiter.NewRateFromFormatted(cfg.EventRateLimit)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted("100-M")
	}
	store := memory.NewStore()
	ipLimiter := limiter.New(store, rate)

	events := r.Group("/events", middleware.RateLimit(ipLimiter))
	{
		events.POST("/financial", h.receiveFinancialEvent)
	}
}
