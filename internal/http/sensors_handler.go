package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"sensors-api/internal/domain"
	"sensors-api/internal/service"

	"go.uber.org/zap"
)

// SensorsHandler serves /api/v1/sensors and its sub-routes.
type SensorsHandler struct {
	svc          service.SensorService
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewSensorsHandler(svc service.SensorService, maxBodyBytes int64, logger *zap.Logger) *SensorsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorsHandler{
		svc:          svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

func (h *SensorsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == sensorsPath || path == sensorsPath+"/":
		switch r.Method {
		case http.MethodGet:
			h.ListSensors(w, r)
		case http.MethodPost:
			h.CreateSensor(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}

	case path == exportPath:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.ExportSensors(w, r)

	case strings.HasPrefix(path, locationPath):
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.GetSensorByLocation(w, r, strings.TrimPrefix(path, locationPath))

	default:
		raw := strings.TrimPrefix(path, sensorsPath+"/")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetSensor(w, r, id)
		case http.MethodPut:
			h.UpdateSensor(w, r, id)
		case http.MethodDelete:
			h.DeleteSensor(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func (h *SensorsHandler) ListSensors(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListSensors(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *SensorsHandler) CreateSensor(w http.ResponseWriter, r *http.Request) {
	payload, rerr := readBodyJSON(r, h.maxBodyBytes)
	if rerr != nil {
		h.logger.Warn("Rejected create request", zap.Int("status", rerr.status), zap.String("reason", rerr.message))
		writeError(w, rerr.status, rerr.message)
		return
	}

	view, err := h.svc.CreateSensor(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *SensorsHandler) GetSensor(w http.ResponseWriter, r *http.Request, id int64) {
	view, err := h.svc.GetSensorByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SensorsHandler) UpdateSensor(w http.ResponseWriter, r *http.Request, id int64) {
	payload, rerr := readBodyJSON(r, h.maxBodyBytes)
	if rerr != nil {
		h.logger.Warn("Rejected update request", zap.Int64("sensor_id", id), zap.Int("status", rerr.status), zap.String("reason", rerr.message))
		writeError(w, rerr.status, rerr.message)
		return
	}

	view, err := h.svc.UpdateSensor(r.Context(), id, payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SensorsHandler) DeleteSensor(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := h.svc.DeleteSensor(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sensor deleted successfully"})
}

func (h *SensorsHandler) GetSensorByLocation(w http.ResponseWriter, r *http.Request, location string) {
	view, err := h.svc.GetSensorByLocation(r.Context(), location)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if view == nil {
		writeError(w, http.StatusNotFound, "Sensor not found for location")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SensorsHandler) ExportSensors(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListSensors(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	excelData, err := GenerateSensorsExport(views)
	if err != nil {
		h.logger.Error("GenerateSensorsExport failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=sensors-export.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(excelData)
}

// writeServiceError maps domain errors to status codes. Store and unknown
// failures never expose their text.
func (h *SensorsHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
