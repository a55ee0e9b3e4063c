package mqtt

import "fmt"

// Topic prefixes for the Ridgeline MQTT namespace.
//
// Runtime traffic uses the flat scheme: ridgeline/{category}/...
// Telemetry producers (bridges, firmware, simulators) publish per-device;
// core subscribes with wildcards and addresses commands per-device.
const (
	// TopicPrefix is the base for all Ridgeline topics.
	TopicPrefix = "ridgeline"

	// TopicPrefixCore is the base for core lifecycle topics.
	TopicPrefixCore = "ridgeline/core"
)

// Topics provides builders for Ridgeline MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Telemetry("thermostat-hall")
//	// Returns: "ridgeline/telemetry/thermostat-hall"
type Topics struct{}

// Telemetry returns the topic a device reports its readings on.
//
// Example: ridgeline/telemetry/thermostat-hall
func (Topics) Telemetry(deviceID string) string {
	return fmt.Sprintf("%s/telemetry/%s", TopicPrefix, deviceID)
}

// Command returns the topic core issues commands to a device on.
// Routed per protocol so each bridge subscribes to its own slice.
//
// Example: ridgeline/command/knx/boiler-01
func (Topics) Command(protocol, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, protocol, deviceID)
}

// CoreStatus returns the core lifecycle topic. The broker publishes the
// LWT here on unexpected disconnect; core publishes online/offline
// transitions itself, retained so new subscribers see the last state.
//
// Example: ridgeline/core/status
func (Topics) CoreStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixCore)
}

// AllTelemetry returns a pattern matching every device's telemetry.
//
// Pattern: ridgeline/telemetry/+
func (Topics) AllTelemetry() string {
	return fmt.Sprintf("%s/telemetry/+", TopicPrefix)
}

// AllCommands returns a pattern matching all outbound commands.
// Useful for diagnostics and bridge-side catch-all subscribers.
//
// Pattern: ridgeline/command/+/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Ridgeline topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: ridgeline/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
