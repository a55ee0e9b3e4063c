package device

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestCommander_ExecuteCommand(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	registry.SetSnapshotInterval(0)
	bus := newMockBus()
	commander := NewCommander(registry, bus)
	ctx := context.Background()

	dev := mockDevice("boiler-01", "Boiler")
	dev.Protocol = ProtocolKNX
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := commander.ExecuteCommand(ctx, "boiler-01", "boost"); err != nil {
		t.Fatalf("ExecuteCommand() error = %v", err)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(bus.published))
	}

	msg := bus.published[0]
	if msg.topic != "ridgeline/command/knx/boiler-01" {
		t.Errorf("topic = %q, want protocol-routed command topic", msg.topic)
	}
	if msg.qos != 1 || msg.retained {
		t.Errorf("qos/retained = %d/%v, want 1/false", msg.qos, msg.retained)
	}

	var envelope CommandEnvelope
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		t.Fatalf("unmarshalling envelope: %v", err)
	}
	if envelope.CommandID == "" {
		t.Error("envelope missing command id")
	}
	if envelope.DeviceID != "boiler-01" || envelope.Command != "boost" {
		t.Errorf("envelope = %+v", envelope)
	}
	if time.Since(envelope.IssuedAt) > time.Minute {
		t.Errorf("IssuedAt = %v, want recent", envelope.IssuedAt)
	}
}

func TestCommander_Rejections(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	registry.SetSnapshotInterval(0)
	bus := newMockBus()
	commander := NewCommander(registry, bus)
	ctx := context.Background()

	dev := mockDevice("relay-01", "Relay")
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	t.Run("unknown device", func(t *testing.T) {
		err := commander.ExecuteCommand(ctx, "ghost", "toggle")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("ExecuteCommand() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("empty command", func(t *testing.T) {
		err := commander.ExecuteCommand(ctx, "relay-01", "")
		if !errors.Is(err, ErrNotDispatchable) {
			t.Errorf("ExecuteCommand() error = %v, want ErrNotDispatchable", err)
		}
	})

	t.Run("publish failure propagates", func(t *testing.T) {
		bus.publishErr = errors.New("broker gone")
		defer func() { bus.publishErr = nil }()

		if err := commander.ExecuteCommand(ctx, "relay-01", "toggle"); err == nil {
			t.Error("ExecuteCommand() error = nil, want publish failure")
		}
	})

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.published) != 0 {
		t.Errorf("rejected commands published %d messages", len(bus.published))
	}
}

func TestCommandTopic(t *testing.T) {
	if got := CommandTopic(ProtocolMQTT, "dev-7"); got != "ridgeline/command/mqtt/dev-7" {
		t.Errorf("CommandTopic() = %q", got)
	}
}
