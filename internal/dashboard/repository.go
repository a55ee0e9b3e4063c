package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for dashboard persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a dashboard by its unique identifier.
	// Returns ErrDashboardNotFound if the dashboard does not exist.
	GetByID(ctx context.Context, id string) (*Dashboard, error)

	// List retrieves all dashboards ordered by name.
	List(ctx context.Context) ([]Dashboard, error)

	// Create inserts a new dashboard.
	// Returns ErrDashboardExists if the ID is already taken.
	Create(ctx context.Context, d *Dashboard) error

	// Update modifies an existing dashboard.
	// Returns ErrDashboardNotFound if the dashboard does not exist.
	Update(ctx context.Context, d *Dashboard) error

	// Delete removes a dashboard by ID.
	// Returns ErrDashboardNotFound if the dashboard does not exist.
	Delete(ctx context.Context, id string) error

	// SetDefault flags one dashboard as the default and clears the flag
	// on every other dashboard in the same transaction.
	SetDefault(ctx context.Context, id string) error
}

// dashboardColumns is the SELECT column list for dashboard queries.
const dashboardColumns = `id, name, is_default, layers, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite. Layers persist
// as a single JSON document per dashboard: the layer list is always
// read and written wholesale, so per-layer columns would buy nothing.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a dashboard by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Dashboard, error) {
	query := `SELECT ` + dashboardColumns + ` FROM dashboards WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDashboardRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDashboardNotFound
		}
		return nil, fmt.Errorf("querying dashboard by id: %w", err)
	}
	return d, nil
}

// List retrieves all dashboards ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Dashboard, error) {
	query := `SELECT ` + dashboardColumns + ` FROM dashboards ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying dashboards: %w", err)
	}
	defer rows.Close()

	var dashboards []Dashboard
	for rows.Next() {
		d, scanErr := scanDashboardRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning dashboard: %w", scanErr)
		}
		dashboards = append(dashboards, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dashboards: %w", err)
	}
	return dashboards, nil
}

// Create inserts a new dashboard.
func (r *SQLiteRepository) Create(ctx context.Context, d *Dashboard) error {
	layersJSON, err := marshalLayers(d.Layers)
	if err != nil {
		return fmt.Errorf("marshalling layers: %w", err)
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO dashboards (
			id, name, is_default, layers, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		d.Name,
		boolToInt(d.IsDefault),
		layersJSON,
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDashboardExists
		}
		return fmt.Errorf("inserting dashboard: %w", err)
	}
	return nil
}

// Update modifies an existing dashboard.
func (r *SQLiteRepository) Update(ctx context.Context, d *Dashboard) error {
	layersJSON, err := marshalLayers(d.Layers)
	if err != nil {
		return fmt.Errorf("marshalling layers: %w", err)
	}

	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE dashboards SET
			name = ?, is_default = ?, layers = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		d.Name,
		boolToInt(d.IsDefault),
		layersJSON,
		d.UpdatedAt.Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating dashboard: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDashboardNotFound
	}
	return nil
}

// Delete removes a dashboard by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM dashboards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting dashboard: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDashboardNotFound
	}
	return nil
}

// SetDefault flags one dashboard as default, clearing all others.
// Both updates run in one transaction so the flag can never rest on
// two dashboards at once.
func (r *SQLiteRepository) SetDefault(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := tx.ExecContext(ctx,
		`UPDATE dashboards SET is_default = 1, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("setting default dashboard: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDashboardNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE dashboards SET is_default = 0, updated_at = ? WHERE id != ? AND is_default = 1`, now, id); err != nil {
		return fmt.Errorf("clearing previous default: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing default change: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDashboardRow(scanner rowScanner) (*Dashboard, error) {
	var d Dashboard
	var isDefault int
	var layersJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&isDefault,
		&layersJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.IsDefault = isDefault != 0

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	if layersJSON != "" && layersJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(layersJSON), &d.Layers); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling layers: %w", jsonErr)
		}
	}
	if d.Layers == nil {
		d.Layers = []Layer{}
	}

	return &d, nil
}

// marshalLayers renders the layer list as a JSON array, never null.
func marshalLayers(layers []Layer) (string, error) {
	if layers == nil {
		layers = []Layer{}
	}
	data, err := json.Marshal(layers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

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
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
