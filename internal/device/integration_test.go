package device_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ridgelinehome/ridgeline-core/internal/device"
)

// setupIntegrationDB creates an in-memory SQLite database with the full devices schema.
// This mirrors the production migration (20260301_120000_initial_schema.up.sql).
func setupIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			protocol TEXT NOT NULL,
			online INTEGER NOT NULL DEFAULT 0,
			last_seen TEXT,
			readings TEXT NOT NULL DEFAULT '{}',
			config TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_protocol ON devices(protocol);
		CREATE INDEX idx_devices_type ON devices(type);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// TestIntegration_FullDeviceLifecycle exercises the complete path:
// SQLiteRepository → Registry → cache → telemetry updates → delete.
// This is the flow that main.go relies on at startup.
func TestIntegration_FullDeviceLifecycle(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()

	// Wire up exactly as main.go does
	repo := device.NewSQLiteRepository(db)
	registry := device.NewRegistry(repo)
	t.Cleanup(registry.Close)

	// RefreshCache on empty database should succeed
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() on empty DB: %v", err)
	}
	if registry.Count() != 0 {
		t.Fatalf("expected 0 devices after refresh, got %d", registry.Count())
	}

	// Create an MQTT thermostat
	dev := &device.Device{
		Name:     "Living Room Thermostat",
		Type:     device.DeviceTypeThermostat,
		Protocol: device.ProtocolMQTT,
		Values:   device.Values{"temperature": 19.5},
		Config:   device.Config{"report_interval": 30.0},
	}

	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error: %v", err)
	}
	if dev.ID == "" {
		t.Fatal("expected ID to be generated")
	}
	if dev.Slug != "living-room-thermostat" {
		t.Errorf("Slug = %q, want %q", dev.Slug, "living-room-thermostat")
	}

	deviceID := dev.ID

	// Verify in-cache retrieval
	got, err := registry.GetDevice(ctx, deviceID)
	if err != nil {
		t.Fatalf("GetDevice() error: %v", err)
	}
	if got.Name != "Living Room Thermostat" {
		t.Errorf("Name = %q, want %q", got.Name, "Living Room Thermostat")
	}

	// Simulate what the telemetry ingestor does: values + liveness updates
	if valErr := registry.SetValues(ctx, deviceID, device.Values{"temperature": 21.0, "setpoint": 22.0}); valErr != nil {
		t.Fatalf("SetValues() error: %v", valErr)
	}
	if onErr := registry.SetOnline(ctx, deviceID, true); onErr != nil {
		t.Fatalf("SetOnline() error: %v", onErr)
	}

	// Verify values persisted through cache
	got, _ = registry.GetDevice(ctx, deviceID)
	if got.Values["temperature"] != 21.0 {
		t.Errorf("Values[temperature] = %v, want 21.0", got.Values["temperature"])
	}
	if got.Values["setpoint"] != 22.0 {
		t.Errorf("Values[setpoint] = %v, want 22.0", got.Values["setpoint"])
	}
	if !got.Online {
		t.Error("Online = false after SetOnline(true)")
	}
	if got.LastSeen == nil {
		t.Error("LastSeen should be set after SetValues")
	}

	// Verify persistence: create a new registry from the same DB and RefreshCache
	registry2 := device.NewRegistry(repo)
	t.Cleanup(registry2.Close)
	if refreshErr := registry2.RefreshCache(ctx); refreshErr != nil {
		t.Fatalf("RefreshCache() on second registry: %v", refreshErr)
	}
	if registry2.Count() != 1 {
		t.Fatalf("expected 1 device after refresh, got %d", registry2.Count())
	}

	got2, err := registry2.GetDevice(ctx, deviceID)
	if err != nil {
		t.Fatalf("GetDevice() from second registry: %v", err)
	}
	if got2.Name != "Living Room Thermostat" {
		t.Errorf("persisted Name = %q, want %q", got2.Name, "Living Room Thermostat")
	}
	if !got2.Online {
		t.Error("persisted Online = false, want true")
	}

	// Update device name; slug follows because it wasn't pinned
	got.Name = "Lounge Thermostat"
	if updateErr := registry.UpdateDevice(ctx, got); updateErr != nil {
		t.Fatalf("UpdateDevice() error: %v", updateErr)
	}
	updated, _ := registry.GetDevice(ctx, deviceID)
	if updated.Name != "Lounge Thermostat" {
		t.Errorf("updated Name = %q, want %q", updated.Name, "Lounge Thermostat")
	}
	if updated.Slug != "lounge-thermostat" {
		t.Errorf("updated Slug = %q, want %q", updated.Slug, "lounge-thermostat")
	}

	// Delete device
	if delErr := registry.DeleteDevice(ctx, deviceID); delErr != nil {
		t.Fatalf("DeleteDevice() error: %v", delErr)
	}
	if registry.Count() != 0 {
		t.Errorf("expected 0 devices after delete, got %d", registry.Count())
	}

	// Verify deletion persisted
	_, err = registry.GetDevice(ctx, deviceID)
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound after delete, got: %v", err)
	}
}

// TestIntegration_MultipleDevicesAndQueries tests batch operations across
// multiple devices with different types and protocols.
func TestIntegration_MultipleDevicesAndQueries(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()

	repo := device.NewSQLiteRepository(db)
	registry := device.NewRegistry(repo)
	t.Cleanup(registry.Close)
	registry.RefreshCache(ctx)

	devices := []*device.Device{
		{
			Name:     "Hallway Multi Sensor",
			Type:     device.DeviceTypeMultiSensor,
			Protocol: device.ProtocolZigbee,
		},
		{
			Name:     "Plant Room Boiler",
			Type:     device.DeviceTypeBoiler,
			Protocol: device.ProtocolKNX,
		},
		{
			Name:     "Garage Energy Meter",
			Type:     device.DeviceTypeEnergyMeter,
			Protocol: device.ProtocolKNX,
		},
	}

	for _, d := range devices {
		if err := registry.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice(%s) error: %v", d.Name, err)
		}
	}

	if registry.Count() != 3 {
		t.Fatalf("expected 3 devices, got %d", registry.Count())
	}

	// Query by protocol
	knxDevices, err := registry.GetDevicesByProtocol(ctx, device.ProtocolKNX)
	if err != nil {
		t.Fatalf("GetDevicesByProtocol() error: %v", err)
	}
	if len(knxDevices) != 2 {
		t.Errorf("KNX devices = %d, want 2", len(knxDevices))
	}

	// Query by type
	boilers, err := registry.GetDevicesByType(ctx, device.DeviceTypeBoiler)
	if err != nil {
		t.Fatalf("GetDevicesByType() error: %v", err)
	}
	if len(boilers) != 1 {
		t.Errorf("boilers = %d, want 1", len(boilers))
	}

	// Query by slug
	meter, err := registry.GetDeviceBySlug(ctx, "garage-energy-meter")
	if err != nil {
		t.Fatalf("GetDeviceBySlug() error: %v", err)
	}
	if meter.Type != device.DeviceTypeEnergyMeter {
		t.Errorf("meter type = %q, want %q", meter.Type, device.DeviceTypeEnergyMeter)
	}

	// Stats
	stats := registry.GetStats()
	if stats.TotalDevices != 3 {
		t.Errorf("stats.TotalDevices = %d, want 3", stats.TotalDevices)
	}
	if stats.ByProtocol[device.ProtocolKNX] != 2 {
		t.Errorf("stats.ByProtocol[knx] = %d, want 2", stats.ByProtocol[device.ProtocolKNX])
	}
	if stats.ByType[device.DeviceTypeBoiler] != 1 {
		t.Errorf("stats.ByType[boiler] = %d, want 1", stats.ByType[device.DeviceTypeBoiler])
	}
}

// TestIntegration_TelemetryMergeAcrossRestart verifies that partial
// telemetry reports merge in the database itself, not just the cache:
// a fresh registry built from the same database must see the union of
// all reported metrics.
func TestIntegration_TelemetryMergeAcrossRestart(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()

	repo := device.NewSQLiteRepository(db)

	// Session 1: create a device and feed it partial reports
	r1 := device.NewRegistry(repo)
	t.Cleanup(r1.Close)
	r1.RefreshCache(ctx)

	dev := &device.Device{
		Name:     "Utility Multi Sensor",
		Type:     device.DeviceTypeMultiSensor,
		Protocol: device.ProtocolMQTT,
	}
	if err := r1.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error: %v", err)
	}

	// Two partial reports touching disjoint metrics
	r1.SetValues(ctx, dev.ID, device.Values{"temperature": 18.4})
	r1.SetValues(ctx, dev.ID, device.Values{"humidity": 55.0})

	// Session 2: fresh registry from same database (simulates restart)
	r2 := device.NewRegistry(repo)
	t.Cleanup(r2.Close)
	if err := r2.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() session 2: %v", err)
	}

	got, err := r2.GetDevice(ctx, dev.ID)
	if err != nil {
		t.Fatalf("GetDevice() session 2: %v", err)
	}

	if got.Values["temperature"] != 18.4 {
		t.Errorf("persisted temperature = %v, want 18.4", got.Values["temperature"])
	}
	if got.Values["humidity"] != 55.0 {
		t.Errorf("persisted humidity = %v, want 55.0", got.Values["humidity"])
	}
}

// TestIntegration_RapidTelemetry simulates a chatty device reporting many
// values in quick succession (as happens with power meters during load
// spikes).
func TestIntegration_RapidTelemetry(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()

	repo := device.NewSQLiteRepository(db)
	registry := device.NewRegistry(repo)
	t.Cleanup(registry.Close)
	registry.RefreshCache(ctx)

	dev := &device.Device{
		Name:     "Workshop Power Meter",
		Type:     device.DeviceTypeEnergyMeter,
		Protocol: device.ProtocolModbusTCP,
	}
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error: %v", err)
	}

	// Simulate power readings ramping from 0 to 2000W
	for i := 0; i <= 2000; i += 100 {
		values := device.Values{"power": float64(i)}
		if err := registry.SetValues(ctx, dev.ID, values); err != nil {
			t.Fatalf("SetValues(power=%d) error: %v", i, err)
		}
	}

	// Final reading should be power=2000
	got, _ := registry.GetDevice(ctx, dev.ID)
	power, ok := got.Values["power"].(float64)
	if !ok || power != 2000 {
		t.Errorf("final power = %v, want 2000", got.Values["power"])
	}

	// Verify last seen time is recent
	if got.LastSeen == nil {
		t.Fatal("LastSeen should be set")
	}
	if time.Since(*got.LastSeen) > 5*time.Second {
		t.Error("LastSeen seems too old")
	}
}
