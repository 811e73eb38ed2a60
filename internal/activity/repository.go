package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository persists activity entries.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	// Record stores one entry.
	Record(ctx context.Context, e Entry) error

	// Recent returns up to limit entries, newest first. A limit of 0 or
	// less returns every entry.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Prune deletes all but the newest keep entries and reports how many
	// rows were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}

// SQLiteRepository implements Repository on the activity_log table.
// Rows are scoped to one node so several panels can share a database file.
type SQLiteRepository struct {
	db     *sql.DB
	nodeID string
}

// NewSQLiteRepository creates a repository for nodeID's activity.
//
// Parameters:
//   - db: Open SQLite connection with migrations applied
//   - nodeID: Node the entries belong to
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB, nodeID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, nodeID: nodeID}
}

// Record inserts e. Re-recording an existing ID is an error.
func (r *SQLiteRepository) Record(ctx context.Context, e Entry) error {
	if r.nodeID == "" {
		return ErrNodeRequired
	}
	if err := e.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO activity_log (id, node_id, event, type, timestamp_ms) VALUES (?, ?, ?, ?, ?)",
		e.ID,
		r.nodeID,
		e.Event,
		string(e.Type),
		e.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// Recent returns the node's newest entries first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return, 0 or less for all
//
// Returns:
//   - []Entry: Entries ordered by timestamp DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if r.nodeID == "" {
		return nil, ErrNodeRequired
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event, type, timestamp_ms
		 FROM activity_log
		 WHERE node_id = ?
		 ORDER BY timestamp_ms DESC, rowid DESC
		 LIMIT ?`,
		r.nodeID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			typ  string
			unix int64
		)
		if err := rows.Scan(&e.ID, &e.Event, &typ, &unix); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.Type = Type(typ)
		e.Timestamp = time.UnixMilli(unix).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity log: %w", err)
	}

	return entries, nil
}

// Prune keeps the node's newest keep entries and deletes the rest.
func (r *SQLiteRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if r.nodeID == "" {
		return 0, ErrNodeRequired
	}
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_log
		 WHERE node_id = ?
		   AND rowid NOT IN (
		     SELECT rowid FROM activity_log
		     WHERE node_id = ?
		     ORDER BY timestamp_ms DESC, rowid DESC
		     LIMIT ?
		   )`,
		r.nodeID,
		r.nodeID,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning activity log: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
