package device

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CommandEnvelope is the wire format published to protocol bridges on
// ridgeline/command/{protocol}/{device_id}. The command id lets a
// bridge correlate acknowledgements and dedupe redeliveries.
type CommandEnvelope struct {
	CommandID string    `json:"command_id"`
	DeviceID  string    `json:"device_id"`
	Command   string    `json:"command"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Commander routes named commands to the owning protocol bridge over
// the message bus. It satisfies the command-dispatch interfaces of the
// rendering and automation layers.
type Commander struct {
	registry *Registry
	bus      MessageBus
	qos      byte
	logger   Logger
}

// NewCommander creates a command dispatcher over the registry and bus.
func NewCommander(registry *Registry, bus MessageBus) *Commander {
	return &Commander{
		registry: registry,
		bus:      bus,
		qos:      1,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the commander.
func (c *Commander) SetLogger(logger Logger) {
	c.logger = logger
}

// ExecuteCommand publishes a command envelope for the given device.
// The device's protocol selects the topic, so each bridge subscribes
// only to its own command namespace.
func (c *Commander) ExecuteCommand(ctx context.Context, deviceID, command string) error {
	if command == "" {
		return fmt.Errorf("%w: empty command", ErrNotDispatchable)
	}

	device, err := c.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("resolving command target: %w", err)
	}
	if device.Protocol == "" {
		return fmt.Errorf("%w: %s has no protocol", ErrNotDispatchable, deviceID)
	}

	envelope := CommandEnvelope{
		CommandID: GenerateID(),
		DeviceID:  deviceID,
		Command:   command,
		IssuedAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshalling command envelope: %w", err)
	}

	topic := CommandTopic(device.Protocol, deviceID)
	if err := c.bus.Publish(topic, payload, c.qos, false); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}

	c.logger.Info("command dispatched",
		"command_id", envelope.CommandID,
		"device_id", deviceID,
		"command", command,
		"topic", topic,
	)
	return nil
}

// CommandTopic builds the command topic for a protocol and device.
func CommandTopic(protocol Protocol, deviceID string) string {
	return commandTopicPrefix + string(protocol) + "/" + deviceID
}
