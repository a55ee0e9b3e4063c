package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetBySlug retrieves a device by its URL-safe slug.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetBySlug(ctx context.Context, slug string) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// ListByProtocol retrieves all devices using a specific protocol.
	ListByProtocol(ctx context.Context, protocol Protocol) ([]Device, error)

	// ListByType retrieves all devices of a specific type.
	ListByType(ctx context.Context, deviceType DeviceType) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID or slug already exists.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateValues merges the given readings into the device's current
	// values and bumps last_seen. Optimised for the telemetry ingest path.
	UpdateValues(ctx context.Context, id string, values Values) error

	// UpdateOnline updates the online flag and last seen timestamp.
	UpdateOnline(ctx context.Context, id string, online bool, lastSeen time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
//
// Device.Values persists in the readings column: VALUES is an SQL
// keyword, and quoting it through every query is worse than one rename.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, slug, type, protocol, online, last_seen,
		readings, config, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	device, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// GetBySlug retrieves a device by its URL-safe slug.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE slug = ?`

	row := r.db.QueryRowContext(ctx, query, slug)
	device, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by slug: %w", err)
	}
	return device, nil
}

// List retrieves all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY name`
	return r.queryDevices(ctx, query)
}

// ListByProtocol retrieves all devices using a specific protocol.
func (r *SQLiteRepository) ListByProtocol(ctx context.Context, protocol Protocol) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE protocol = ? ORDER BY name`
	return r.queryDevices(ctx, query, string(protocol))
}

// ListByType retrieves all devices of a specific type.
func (r *SQLiteRepository) ListByType(ctx context.Context, deviceType DeviceType) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE type = ? ORDER BY name`
	return r.queryDevices(ctx, query, string(deviceType))
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	valuesJSON, err := json.Marshal(valuesOrEmpty(device.Values))
	if err != nil {
		return fmt.Errorf("marshalling values: %w", err)
	}

	configJSON, err := json.Marshal(valuesOrEmpty(device.Config))
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	// Set timestamps if not set
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	query := `
		INSERT INTO devices (
			id, name, slug, type, protocol, online, last_seen,
			readings, config, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		device.ID,
		device.Name,
		device.Slug,
		string(device.Type),
		string(device.Protocol),
		boolToInt(device.Online),
		nullableTime(device.LastSeen),
		string(valuesJSON),
		string(configJSON),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	valuesJSON, err := json.Marshal(valuesOrEmpty(device.Values))
	if err != nil {
		return fmt.Errorf("marshalling values: %w", err)
	}

	configJSON, err := json.Marshal(valuesOrEmpty(device.Config))
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices SET
			name = ?, slug = ?, type = ?, protocol = ?, online = ?,
			last_seen = ?, readings = ?, config = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.Name,
		device.Slug,
		string(device.Type),
		string(device.Protocol),
		boolToInt(device.Online),
		nullableTime(device.LastSeen),
		string(valuesJSON),
		string(configJSON),
		device.UpdatedAt.Format(time.RFC3339),
		device.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// UpdateValues merges the given readings into the device's existing
// values. This allows partial reports (e.g. updating "temperature"
// without losing "humidity").
func (r *SQLiteRepository) UpdateValues(ctx context.Context, id string, values Values) error {
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshalling values: %w", err)
	}

	now := time.Now().UTC()
	// json_patch(target, patch) applies patch keys to target, preserving
	// existing keys not present in patch.
	query := `
		UPDATE devices
		SET readings = json_patch(COALESCE(readings, '{}'), ?),
		    last_seen = ?,
		    updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(valuesJSON),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device values: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// UpdateOnline updates the online flag and last seen timestamp.
func (r *SQLiteRepository) UpdateOnline(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	now := time.Now().UTC()
	query := `
		UPDATE devices
		SET online = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		boolToInt(online),
		lastSeen.UTC().Format(time.RFC3339),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device online state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var lastSeen sql.NullString
	var valuesJSON, configJSON string
	var online int
	var deviceType, protocol string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&d.Slug,
		&deviceType,
		&protocol,
		&online,
		&lastSeen,
		&valuesJSON,
		&configJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = DeviceType(deviceType)
	d.Protocol = Protocol(protocol)
	d.Online = online != 0

	if lastSeen.Valid {
		t, err := time.Parse(time.RFC3339, lastSeen.String)
		if err == nil {
			d.LastSeen = &t
		}
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	if err := json.Unmarshal([]byte(valuesJSON), &d.Values); err != nil {
		return nil, fmt.Errorf("unmarshalling values: %w", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &d.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &d, nil
}

// valuesOrEmpty substitutes an empty map for nil so JSON columns always
// hold an object, never the literal null.
func valuesOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
