package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/septivank/lte-signal-map/internal/logging"
	"github.com/septivank/lte-signal-map/internal/repository"
	"github.com/septivank/lte-signal-map/internal/service"
	"github.com/septivank/lte-signal-map/internal/validator"
	"github.com/septivank/lte-signal-map/tools/timeparser"
	"go.uber.org/zap"
)

// maxBodyBytes bounds inbound telemetry payloads
const maxBodyBytes = 256 << 10

// defaultRadiusKM is the near-city search radius when none is given
const defaultRadiusKM = 5.0

// Handlers holds the HTTP endpoint implementations
type Handlers struct {
	ingest   *service.IngestService
	devices  *service.DeviceQueryService
	messages *service.MessageQueryService
	logger   *zap.Logger
}

// NewHandlers creates the HTTP handler set
func NewHandlers(
	ingest *service.IngestService,
	devices *service.DeviceQueryService,
	messages *service.MessageQueryService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{ingest: ingest, devices: devices, messages: messages, logger: logger}
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Ingest accepts one telemetry reading over HTTP. It funnels into the same
// pipeline as the MQTT subscriber.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	reqLogger := logging.WithRequestID(h.logger, requestIDFrom(r.Context()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	if err := h.ingest.IngestPayload(r.Context(), body, ""); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		reqLogger.Error("failed to ingest reading", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process reading")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// ListDevices returns a page of device current-state documents
func (h *Handlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	limit, page := getPagination(r.URL.Query())

	items, total, err := h.devices.List(r.Context(), limit, page)
	if err != nil {
		h.logger.Error("failed to list devices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, pagedResponse{Page: page, Limit: limit, Total: total, Items: items})
}

// GetDevice returns one device by id
func (h *Handlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	device, err := h.devices.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get device", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get device")
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// DevicesNearCity geocodes a city name and returns devices within a radius
// of its center.
func (h *Handlers) DevicesNearCity(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, page := getPagination(query)

	city := query.Get("city")
	if city == "" {
		writeError(w, http.StatusBadRequest, "Query param 'city' is required")
		return
	}

	radiusKM := defaultRadiusKM
	if v := query.Get("radius"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid 'radius' (km)")
			return
		}
		radiusKM = parsed
	}

	items, total, err := h.devices.NearCity(r.Context(), city, query.Get("device_name"), radiusKM, limit, page)
	if errors.Is(err, service.ErrCityNotResolved) {
		writeError(w, http.StatusNotFound, "City not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to query devices near city", zap.String("city", city), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query devices near city")
		return
	}

	writeJSON(w, http.StatusOK, pagedResponse{Page: page, Limit: limit, Total: total, Items: items})
}

// ListMessages returns a page of raw messages, optionally filtered by
// device identity and message timestamp range.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, page := getPagination(query)

	filter := repository.MessageFilter{
		MacAddr:    query.Get("mac_addr"),
		DeviceName: query.Get("device_name"),
	}

	var err error
	if filter.From, err = parseTimeParam(query.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'from' timestamp")
		return
	}
	if filter.To, err = parseTimeParam(query.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'to' timestamp")
		return
	}

	items, total, err := h.messages.List(r.Context(), filter, limit, page)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, pagedResponse{Page: page, Limit: limit, Total: total, Items: items})
}

type pagedResponse struct {
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := timeparser.ParseTelemetryTimestamp(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
