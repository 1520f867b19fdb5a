package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// UsageSnapshot is one occupied window of a finished month, frozen so
// usage reports stay available after lock-side records are purged.
type UsageSnapshot struct {
	ID        string `json:"id"`
	MonthKey  string `json:"month_key"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
	UserEmail string `json:"user_email"`
	Block     string `json:"block"`
	Kumi      string `json:"kumi"`
	Official  bool   `json:"official_flag"`
	External  bool   `json:"external_flag"`
	UserName  string `json:"user_name"`
	GuestName string `json:"guest_name"`
	Objective string `json:"objective"`
}

// SnapshotRepository provides data access for monthly usage snapshots.
type SnapshotRepository struct {
	BaseRepository
}

// NewSnapshotRepository creates a new usage snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{BaseRepository: NewBaseRepository(db)}
}

// Exists reports whether any snapshot rows are stored for a month key
// formatted as YYYY-MM.
func (r *SnapshotRepository) Exists(ctx context.Context, monthKey string) (bool, error) {
	var id string
	err := r.DB().QueryRowContext(ctx, `
		SELECT id FROM usage_snapshots WHERE month_key = ? LIMIT 1
	`, monthKey).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking snapshot month: %w", err)
	}
	return true, nil
}

// SaveMonth stores all snapshot rows for a month in one transaction.
func (r *SnapshotRepository) SaveMonth(ctx context.Context, monthKey string, snaps []UsageSnapshot) error {
	return r.Transaction(func(tx *sql.Tx) error {
		now := r.Now()
		for i := range snaps {
			s := &snaps[i]
			s.ID = GenerateID()
			s.MonthKey = monthKey

			_, err := tx.ExecContext(ctx, `
				INSERT INTO usage_snapshots (
					id, month_key, slot_start, slot_end, user_email, block, kumi,
					official_flag, external_flag, user_name, guest_name, objective,
					created_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				s.ID, s.MonthKey, s.SlotStart, s.SlotEnd, s.UserEmail, s.Block, s.Kumi,
				s.Official, s.External, s.UserName, s.GuestName, s.Objective, now,
			)
			if err != nil {
				return fmt.Errorf("inserting usage snapshot: %w", err)
			}
		}
		return nil
	})
}

// ListMonth returns the stored snapshot rows for a month key in slot order.
func (r *SnapshotRepository) ListMonth(ctx context.Context, monthKey string) ([]UsageSnapshot, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, month_key, slot_start, slot_end, user_email, block, kumi,
		       official_flag, external_flag, user_name, guest_name, objective
		FROM usage_snapshots WHERE month_key = ? ORDER BY slot_start
	`, monthKey)
	if err != nil {
		return nil, fmt.Errorf("querying usage snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []UsageSnapshot
	for rows.Next() {
		var s UsageSnapshot
		if err := rows.Scan(
			&s.ID, &s.MonthKey, &s.SlotStart, &s.SlotEnd, &s.UserEmail, &s.Block, &s.Kumi,
			&s.Official, &s.External, &s.UserName, &s.GuestName, &s.Objective,
		); err != nil {
			return nil, fmt.Errorf("scanning usage snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}

	return snaps, rows.Err()
}
