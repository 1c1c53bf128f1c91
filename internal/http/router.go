package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	sensorsPath  = "/api/v1/sensors"
	healthPath   = "/health"
	metricsPath  = "/metrics"
	locationPath = sensorsPath + "/location/"
	exportPath   = sensorsPath + "/export"
)

// Router is a thin wrapper over http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (promhttp and the like).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSensorRoutes mounts the sensors API under /api/v1/sensors.
func (r *Router) RegisterSensorRoutes(h *SensorsHandler) {
	r.Handle(sensorsPath, h.ServeHTTP)
	r.Handle(sensorsPath+"/", h.ServeHTTP)
}

func (r *Router) RegisterHealthRoutes() {
	r.Handle(healthPath, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}

func (r *Router) RegisterMetricsRoute(h http.Handler) {
	r.HandleHandler(metricsPath, h)
}

// routeLabel maps a request path to its route pattern so metric labels stay bounded.
func routeLabel(path string) string {
	switch {
	case path == sensorsPath || path == sensorsPath+"/":
		return sensorsPath
	case path == exportPath:
		return exportPath
	case strings.HasPrefix(path, locationPath):
		return locationPath + "{location}"
	case strings.HasPrefix(path, sensorsPath+"/"):
		return sensorsPath + "/{id}"
	case path == healthPath, path == metricsPath:
		return path
	default:
		return "other"
	}
}
