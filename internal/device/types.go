package device

import "time"

// Device represents a monitorable or controllable entity known to the
// platform. This matches the database schema in
// migrations/20260301_120000_initial_schema.up.sql.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	// Classification
	Type DeviceType `json:"type"`

	// Protocol the device speaks, used to route command envelopes.
	Protocol Protocol `json:"protocol"`

	// Liveness, driven by the telemetry ingest path.
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	// Values holds the current telemetry readings keyed by metric id.
	// Updated wholesale or merged per-key as reports arrive.
	Values Values `json:"values"`

	// Config holds device-specific configuration.
	Config Config `json:"config"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// All map fields are cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	cpy.Values = deepCopyMap(d.Values)
	cpy.Config = deepCopyMap(d.Config)

	// Pointer fields (*time.Time) don't need deep copy because time.Time
	// is immutable in Go

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// Values holds the current telemetry readings as a JSON map, keyed by
// metric id.
//
// Examples:
//   - Thermostat: {"temperature": 21.5, "setpoint": 22.0, "mode": "heat"}
//   - Energy meter: {"power": 1430.0, "energy_today": 6.2}
//   - Multi sensor: {"temperature": 19.8, "humidity": 48.0, "motion": false}
type Values map[string]any

// Config holds device-specific configuration as a JSON map.
type Config map[string]any

// Snapshot is the lightweight read model fanned out to watchers on
// every telemetry tick. It carries exactly what a rendering surface
// needs: identity, liveness, and current values.
type Snapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Values Values `json:"values"`
}

// Protocol represents the communication protocol for a device.
type Protocol string

// Protocol constants.
const (
	ProtocolMQTT      Protocol = "mqtt"
	ProtocolKNX       Protocol = "knx"
	ProtocolModbusTCP Protocol = "modbus_tcp"
	ProtocolZigbee    Protocol = "zigbee"
	ProtocolHTTP      Protocol = "http"
)

// AllProtocols returns all valid protocol values.
func AllProtocols() []Protocol {
	return []Protocol{
		ProtocolMQTT, ProtocolKNX, ProtocolModbusTCP, ProtocolZigbee, ProtocolHTTP,
	}
}

// DeviceType represents the specific kind of device.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// Climate device types.
const (
	DeviceTypeThermostat        DeviceType = "thermostat"
	DeviceTypeTemperatureSensor DeviceType = "temperature_sensor"
	DeviceTypeHumiditySensor    DeviceType = "humidity_sensor"
	DeviceTypeCO2Sensor         DeviceType = "co2_sensor"
	DeviceTypeMultiSensor       DeviceType = "multi_sensor"
)

// Lighting and switching device types.
const (
	DeviceTypeLightSwitch DeviceType = "light_switch"
	DeviceTypeLightDimmer DeviceType = "light_dimmer"
	DeviceTypeRelay       DeviceType = "relay"
	DeviceTypeBlind       DeviceType = "blind"
)

// Plant and energy device types.
const (
	DeviceTypeBoiler      DeviceType = "boiler"
	DeviceTypeHeatPump    DeviceType = "heat_pump"
	DeviceTypePump        DeviceType = "pump"
	DeviceTypeEnergyMeter DeviceType = "energy_meter"
)

// Other device types.
const (
	DeviceTypeMotionSensor DeviceType = "motion_sensor"
	DeviceTypeDoorSensor   DeviceType = "door_sensor"
	DeviceTypeCamera       DeviceType = "camera"
	DeviceTypeGateway      DeviceType = "gateway"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		// Climate
		DeviceTypeThermostat, DeviceTypeTemperatureSensor, DeviceTypeHumiditySensor,
		DeviceTypeCO2Sensor, DeviceTypeMultiSensor,
		// Lighting and switching
		DeviceTypeLightSwitch, DeviceTypeLightDimmer, DeviceTypeRelay, DeviceTypeBlind,
		// Plant and energy
		DeviceTypeBoiler, DeviceTypeHeatPump, DeviceTypePump, DeviceTypeEnergyMeter,
		// Other
		DeviceTypeMotionSensor, DeviceTypeDoorSensor, DeviceTypeCamera, DeviceTypeGateway,
	}
}
