package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MQTT topics for the telemetry and command planes. The device id is
// the final topic segment in both directions.
const (
	// TelemetryTopicFilter subscribes to every device's telemetry.
	TelemetryTopicFilter = "ridgeline/telemetry/+"

	telemetryTopicPrefix = "ridgeline/telemetry/"
	commandTopicPrefix   = "ridgeline/command/"
)

// MessageBus is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
// Satisfied by the infrastructure MQTT client via an adapter in main.
type MessageBus interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// MetricsWriter mirrors numeric readings to a time-series store.
// Satisfied by *influxdb.Client. Writes are fire-and-forget.
type MetricsWriter interface {
	WriteDeviceMetric(deviceID string, measurement string, value float64)
}

// TelemetryMessage is the wire format devices publish to
// ridgeline/telemetry/{device_id}.
//
// Example:
//
//	{"values": {"temperature": 21.5, "humidity": 48.0}, "online": true}
//
// A missing online flag means the report itself proves liveness.
type TelemetryMessage struct {
	Values Values `json:"values"`
	Online *bool  `json:"online,omitempty"`
}

// Ingestor consumes telemetry reports from the message bus and applies
// them to the registry. Numeric readings are mirrored to the metrics
// writer when one is configured.
//
// Reports for unknown devices are dropped with a debug log; malformed
// payloads are dropped with a warning. The ingest path never fails the
// bus handler.
type Ingestor struct {
	registry *Registry
	bus      MessageBus
	metrics  MetricsWriter // optional
	logger   Logger
}

// NewIngestor creates a telemetry ingestor. The metrics writer is
// optional; pass nil to disable time-series mirroring.
func NewIngestor(registry *Registry, bus MessageBus) *Ingestor {
	return &Ingestor{
		registry: registry,
		bus:      bus,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the ingestor.
func (in *Ingestor) SetLogger(logger Logger) {
	in.logger = logger
}

// SetMetricsWriter enables mirroring of numeric readings.
func (in *Ingestor) SetMetricsWriter(w MetricsWriter) {
	in.metrics = w
}

// Start subscribes to the telemetry topic filter. The context is used
// for registry writes triggered by incoming reports.
func (in *Ingestor) Start(ctx context.Context) error {
	err := in.bus.Subscribe(TelemetryTopicFilter, 1, func(topic string, payload []byte) {
		in.handleReport(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to telemetry: %w", err)
	}

	in.logger.Info("telemetry ingest started", "filter", TelemetryTopicFilter)
	return nil
}

// handleReport applies one telemetry message to the registry.
func (in *Ingestor) handleReport(ctx context.Context, topic string, payload []byte) {
	deviceID := DeviceIDFromTopic(topic)
	if deviceID == "" {
		in.logger.Warn("telemetry on unexpected topic", "topic", topic)
		return
	}

	var msg TelemetryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		in.logger.Warn("malformed telemetry payload",
			"device_id", deviceID,
			"error", err,
		)
		return
	}
	if len(msg.Values) == 0 && msg.Online == nil {
		in.logger.Warn("empty telemetry payload", "device_id", deviceID)
		return
	}

	if len(msg.Values) > 0 {
		if err := in.registry.SetValues(ctx, deviceID, msg.Values); err != nil {
			// Unknown devices are expected during commissioning; anything
			// else is worth a warning.
			if errors.Is(err, ErrDeviceNotFound) {
				in.logger.Debug("telemetry for unknown device", "device_id", deviceID)
			} else {
				in.logger.Warn("telemetry apply failed", "device_id", deviceID, "error", err)
			}
			return
		}
		in.mirrorNumeric(deviceID, msg.Values)
	}

	// A report implies the device is alive unless it says otherwise.
	online := true
	if msg.Online != nil {
		online = *msg.Online
	}
	if cur, ok := in.registry.Online(deviceID); !ok || cur != online {
		if err := in.registry.SetOnline(ctx, deviceID, online); err != nil {
			if errors.Is(err, ErrDeviceNotFound) {
				in.logger.Debug("liveness for unknown device", "device_id", deviceID)
			} else {
				in.logger.Warn("liveness update failed", "device_id", deviceID, "error", err)
			}
		}
	}
}

// mirrorNumeric forwards numeric readings to the metrics writer.
func (in *Ingestor) mirrorNumeric(deviceID string, values Values) {
	if in.metrics == nil {
		return
	}
	for metric, v := range values {
		if f, ok := numericValue(v); ok {
			in.metrics.WriteDeviceMetric(deviceID, metric, f)
		}
	}
}

// numericValue extracts a float64 from the JSON-decoded types that can
// carry a number.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// DeviceIDFromTopic extracts the device id from a telemetry topic.
// Returns empty for topics outside the telemetry namespace.
func DeviceIDFromTopic(topic string) string {
	rest, ok := strings.CutPrefix(topic, telemetryTopicPrefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
