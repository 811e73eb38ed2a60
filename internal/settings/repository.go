package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// KeyAlarmThreshold is the settings row holding the software threshold.
const KeyAlarmThreshold = "alarm_threshold"

// Repository stores the persisted alarm threshold.
type Repository interface {
	// GetAlarmThreshold returns the stored threshold and whether one exists.
	GetAlarmThreshold(ctx context.Context) (float64, bool, error)

	// SetAlarmThreshold stores v, replacing any previous value.
	SetAlarmThreshold(ctx context.Context, v float64) error
}

// SQLiteRepository implements Repository on the settings key/value table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a settings repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the raw value stored under key and whether it exists.
func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}
	return nil
}

// GetAlarmThreshold returns the persisted threshold in °C.
func (r *SQLiteRepository) GetAlarmThreshold(ctx context.Context) (float64, bool, error) {
	raw, ok, err := r.Get(ctx, KeyAlarmThreshold)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing stored %s %q: %w", KeyAlarmThreshold, raw, err)
	}
	return v, true, nil
}

// SetAlarmThreshold persists v in °C.
func (r *SQLiteRepository) SetAlarmThreshold(ctx context.Context, v float64) error {
	return r.Set(ctx, KeyAlarmThreshold, strconv.FormatFloat(v, 'f', -1, 64))
}
