package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/lovewrapped/internal/shared"
)

// HistoryEntry is one archived profile build.
type HistoryEntry struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Payload []byte    `json:"-"`
	BuiltAt time.Time `json:"built_at"`
}

// HistoryRepository archives every built profile in the profile_history table.
// The table lives in the sqlite database whichever KV driver is configured.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new [HistoryRepository] with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record inserts payload for userID with a generated ID.
func (r *HistoryRepository) Record(ctx context.Context, userID string, payload []byte) (*HistoryEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	entry := &HistoryEntry{
		ID:      shared.GenerateID(),
		UserID:  userID,
		Payload: payload,
		BuiltAt: time.Now().UTC(),
	}

	query := `INSERT INTO profile_history (id, user_id, payload, built_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.Payload, entry.BuiltAt); err != nil {
		return nil, fmt.Errorf("failed to insert profile history: %w", err)
	}
	return entry, nil
}

// List returns entries for userID, newest first. limit <= 0 returns all.
func (r *HistoryRepository) List(ctx context.Context, userID string, limit int) ([]*HistoryEntry, error) {
	query := `
		SELECT id, user_id, payload, built_at
		FROM profile_history
		WHERE user_id = ?
		ORDER BY built_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Payload, &e.BuiltAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile history: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile history: %w", err)
	}
	return entries, nil
}

// Get retrieves one entry by ID.
func (r *HistoryRepository) Get(ctx context.Context, id string) (*HistoryEntry, error) {
	query := `SELECT id, user_id, payload, built_at FROM profile_history WHERE id = ?`

	var e HistoryEntry
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.UserID, &e.Payload, &e.BuiltAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: history entry %s", shared.ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile history: %w", err)
	}
	return &e, nil
}

// Delete removes one entry.
func (r *HistoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM profile_history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete profile history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: history entry %s", shared.ErrProfileNotFound, id)
	}
	return nil
}
