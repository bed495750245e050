package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dimaa-b/baruch-studyrooms/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	requestHandler      *RequestHandler
	checkHandler        *CheckHandler
	bookingHandler      *BookingHandler
	availabilityHandler *AvailabilityHandler
	healthHandler       *HealthHandler
	corsConfig          middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	requestHandler *RequestHandler,
	checkHandler *CheckHandler,
	bookingHandler *BookingHandler,
	availabilityHandler *AvailabilityHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		requestHandler:      requestHandler,
		checkHandler:        checkHandler,
		bookingHandler:      bookingHandler,
		availabilityHandler: availabilityHandler,
		healthHandler:       healthHandler,
		corsConfig:          corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	router := httprouter.New()

	// Health endpoints
	router.HandlerFunc(http.MethodGet, "/health", rt.healthHandler.Health)
	router.HandlerFunc(http.MethodGet, "/ready", rt.healthHandler.Ready)

	// Monitoring request endpoints. The :id segment doubles as a route
	// discriminator for the reserved words "active" and "check-all", which
	// request ids can never collide with (ids always embed a date prefix).
	router.POST("/api/v1/monitoring", rt.requestHandler.Create)
	router.GET("/api/v1/monitoring", rt.requestHandler.List)
	router.GET("/api/v1/monitoring/:id", rt.getByID)
	router.POST("/api/v1/monitoring/:id", rt.postByID)
	router.GET("/api/v1/monitoring/:id/:sub", rt.getSub)
	router.POST("/api/v1/monitoring/:id/:action", rt.postAction)

	// One-shot bookings, no monitoring request involved
	router.POST("/api/v1/book", rt.bookingHandler.Book)
	router.POST("/api/v1/book/once", rt.bookingHandler.BookOnce)

	// Availability pass-through
	router.GET("/api/v1/availability", rt.availabilityHandler.Get)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(router)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}

func (rt *Router) getByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") == "active" {
		rt.requestHandler.ListActive(w, r, ps)
		return
	}
	rt.requestHandler.Get(w, r, ps)
}

func (rt *Router) postByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") == "check-all" {
		rt.checkHandler.CheckAll(w, r, ps)
		return
	}
	writeError(w, http.StatusNotFound, "Endpoint not found")
}

func (rt *Router) getSub(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("sub") == "checks" {
		rt.checkHandler.History(w, r, ps)
		return
	}
	writeError(w, http.StatusNotFound, "Endpoint not found")
}

func (rt *Router) postAction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("action") {
	case "stop":
		rt.requestHandler.Stop(w, r, ps)
	case "check":
		rt.checkHandler.Check(w, r, ps)
	default:
		writeError(w, http.StatusNotFound, "Endpoint not found")
	}
}
