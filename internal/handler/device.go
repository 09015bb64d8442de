package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"fitfoco/internal/device"
	"fitfoco/internal/middleware"
	"fitfoco/pkg/logger"
	"fitfoco/pkg/validator"
)

type DeviceHandler struct {
	service   *device.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewDeviceHandler(service *device.Service, val *validator.Validator, log logger.Logger) *DeviceHandler {
	return &DeviceHandler{service: service, validator: val, logger: log}
}

type trackDeviceRequest struct {
	IPAddress        string  `json:"ip_address"`
	UserAgent        string  `json:"user_agent"`
	ScreenResolution *string `json:"screen_resolution,omitempty"`
	Language         *string `json:"language,omitempty"`
}

// TrackDevice registers the calling client's device fingerprint and returns
// its trust score. The app measures its own public IP and sends it in the
// payload; the connection address is only a fallback, since behind the
// proxy it rarely matches what the blacklist holds.
func (h *DeviceHandler) TrackDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req trackDeviceRequest
	if r.Body != nil {
		// An empty or absent body is fine; headers carry enough signal.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ua := req.UserAgent
	if ua == "" {
		ua = r.UserAgent()
	}

	ip := req.IPAddress
	if ip == "" {
		ip = clientIP(r)
	}

	obs := device.Observation{
		IPAddress:        ip,
		UserAgent:        ua,
		ScreenResolution: req.ScreenResolution,
		Language:         req.Language,
	}
	if errs := h.validator.ValidateStructured(&obs); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	result, err := h.service.RecordObservation(r.Context(), userID, obs)
	if err != nil {
		h.logger.Error("Failed to record device observation", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID.String(),
		})
		respondError(w, http.StatusInternalServerError, "Failed to track device")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"score":   result.Score,
		"device_info": map[string]interface{}{
			"browser":     result.Browser,
			"os":          result.OS,
			"device_type": result.DeviceType,
		},
	})
}

// GetMyDevices lists the devices observed for the calling user.
func (h *DeviceHandler) GetMyDevices(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	devices, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   len(devices),
	})
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
