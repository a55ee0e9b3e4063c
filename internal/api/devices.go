package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ridgelinehome/ridgeline-core/internal/device"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/mqtt"
)

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - protocol: filter by protocol (mqtt, knx, modbus_tcp, zigbee, http)
//   - type: filter by device type (thermostat, relay, etc.)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if protocolStr := r.URL.Query().Get("protocol"); protocolStr != "" {
		devices, err := s.registry.GetDevicesByProtocol(ctx, device.Protocol(protocolStr))
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		devices, err := s.registry.GetDevicesByType(ctx, device.DeviceType(typeStr))
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	// No filter: return all devices
	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.CreateDevice(r.Context(), &dev); err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			writeConflict(w, "device id or slug already exists")
			return
		}
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to create device")
		return
	}

	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice partially updates a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Get existing device
	existing, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	// Decode partial update onto existing device
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.registry.UpdateDevice(r.Context(), existing); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update device")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device by ID.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.DeleteDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceStats returns device registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.registry.GetStats()
	writeJSON(w, http.StatusOK, stats)
}

// handleGetDeviceValues returns the current telemetry values of a device.
func (s *Server) handleGetDeviceValues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.ID,
		"values":    dev.Values,
		"online":    dev.Online,
		"last_seen": dev.LastSeen,
	})
}

// deviceValuesRequest is the request body for PUT /devices/{id}/values.
type deviceValuesRequest struct {
	Values device.Values `json:"values"`
}

// handleSetDeviceValues writes telemetry values directly into the
// registry. This is the admin/simulation path — in normal operation
// values arrive through the MQTT ingestor. The write flows through the
// same merge-and-notify path, so WebSocket subscribers and open layer
// sessions see it like any other telemetry tick.
func (s *Server) handleSetDeviceValues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req deviceValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Values) == 0 {
		writeBadRequest(w, "values field is required")
		return
	}

	if err := s.registry.SetValues(r.Context(), id, req.Values); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		if errors.Is(err, device.ErrInvalidValues) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to set device values")
		return
	}

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.ID,
		"values":    dev.Values,
		"online":    dev.Online,
	})
}

// deviceCommandRequest is the request body for POST /devices/{id}/command.
type deviceCommandRequest struct {
	Command string `json:"command"`
}

// handleDeviceCommand dispatches a command to a device over MQTT.
//
// This is an asynchronous operation — the command envelope is published
// to the device's protocol topic and the response is 202 Accepted. The
// confirmed state change arrives later via WebSocket when the device
// reports back through telemetry.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req deviceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command field is required")
		return
	}

	if s.commander == nil {
		writeUnavailable(w, "command dispatch is not configured")
		return
	}

	if err := s.commander.ExecuteCommand(r.Context(), id, req.Command); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrNotDispatchable):
			writeBadRequest(w, err.Error())
		case errors.Is(err, mqtt.ErrNotConnected):
			writeUnavailable(w, "message bus not connected")
		default:
			writeInternalError(w, "failed to dispatch command")
		}
		return
	}

	s.logger.Info("device command dispatched", "device_id", id, "command", req.Command)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"device_id": id,
		"command":   req.Command,
		"status":    "accepted",
		"message":   "command published, state update will follow via WebSocket",
	})
}

// isValidationError checks whether an error is a device validation error.
// ValidateDevice wraps various sentinel errors (ErrInvalidName, ErrInvalidSlug, etc.)
// so we check all of them rather than just ErrInvalidDevice.
func isValidationError(err error) bool {
	return errors.Is(err, device.ErrInvalidDevice) ||
		errors.Is(err, device.ErrInvalidName) ||
		errors.Is(err, device.ErrInvalidSlug) ||
		errors.Is(err, device.ErrInvalidDeviceType) ||
		errors.Is(err, device.ErrInvalidProtocol) ||
		errors.Is(err, device.ErrInvalidValues)
}
