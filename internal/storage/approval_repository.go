package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ApprovalEntry is one handled booking webhook, recorded whether the
// reservation was approved, denied, or failed partway.
type ApprovalEntry struct {
	ID         string    `json:"id"`
	LoggedAt   time.Time `json:"logged_at"`
	Email      string    `json:"email"`
	UserName   string    `json:"user_name"`
	MemberName string    `json:"member_name"`
	Block      string    `json:"block"`
	Kumi       string    `json:"kumi"`
	RsvNo      string    `json:"rsv_no"`
	RsvTime    string    `json:"rsv_time"`
	Actions    []string  `json:"actions"`
}

// ApprovalRepository provides data access for the approval history log.
type ApprovalRepository struct {
	BaseRepository
}

// NewApprovalRepository creates a new approval log repository.
func NewApprovalRepository(db *DB) *ApprovalRepository {
	return &ApprovalRepository{BaseRepository: NewBaseRepository(db)}
}

// Append records a handled webhook.
func (r *ApprovalRepository) Append(ctx context.Context, e *ApprovalEntry) error {
	e.ID = GenerateID()
	e.LoggedAt = r.Now()

	actions, err := json.Marshal(e.Actions)
	if err != nil {
		return fmt.Errorf("encoding action log: %w", err)
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO approval_log (
			id, logged_at, email, user_name, member_name, block, kumi,
			rsv_no, rsv_time, actions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.LoggedAt, e.Email, e.UserName, e.MemberName, e.Block, e.Kumi,
		e.RsvNo, e.RsvTime, string(actions),
	)
	if err != nil {
		return fmt.Errorf("inserting approval log entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first, up to limit.
func (r *ApprovalRepository) ListRecent(ctx context.Context, limit int) ([]ApprovalEntry, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, logged_at, email, user_name, member_name, block, kumi,
		       rsv_no, rsv_time, actions
		FROM approval_log ORDER BY logged_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying approval log: %w", err)
	}
	defer rows.Close()

	var entries []ApprovalEntry
	for rows.Next() {
		var e ApprovalEntry
		var actions string
		if err := rows.Scan(
			&e.ID, &e.LoggedAt, &e.Email, &e.UserName, &e.MemberName, &e.Block, &e.Kumi,
			&e.RsvNo, &e.RsvTime, &actions,
		); err != nil {
			return nil, fmt.Errorf("scanning approval log entry: %w", err)
		}
		if err := json.Unmarshal([]byte(actions), &e.Actions); err != nil {
			return nil, fmt.Errorf("decoding action log: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
