// Package roster models the pre-registered user roster: registration rows
// keyed by email, the community members that own them, and the
// duplicate-resolution rule applied when the registration form produced more
// than one row for the same address.
package roster

import (
	"fmt"
	"time"
)

// TimestampLayout is the registration form's timestamp format.
const TimestampLayout = "2006/01/02 15:04:05"

// RegistrationRow is one row of the pre-registration sheet.
type RegistrationRow struct {
	// Row is the row's position in the source sheet, used as the deletion
	// reference handed back to the roster collaborator.
	Row        int
	Timestamp  string
	Email      string
	UserName   string
	MemberName string
	Block      string
	Kumi       string
	Objective  string
}

// Member is a community member household, aggregated from registration rows
// that share block, kumi and member name.
type Member struct {
	ID         string
	Block      string
	Kumi       string
	MemberName string
	Users      []*RegistrationRow
}

// MemberID derives the aggregate key for a registration row.
func MemberID(block, kumi, memberName string) string {
	return fmt.Sprintf("%s%s %s", block, kumi, memberName)
}

// Snapshot is an in-memory view of the roster at one point in time. It is
// loaded by the collaborator and read-only inside the core.
type Snapshot struct {
	Users   map[string]*RegistrationRow // keyed by email
	Members map[string]*Member          // keyed by MemberID
}

// MemberOf returns the member owning a registration row.
func (s *Snapshot) MemberOf(row *RegistrationRow) *Member {
	return s.Members[MemberID(row.Block, row.Kumi, row.MemberName)]
}

// BuildSnapshot groups registration rows into the email-keyed user map and
// the member aggregates. Rows are assumed to be post-dedup; if duplicates
// remain, the later row wins the user map, matching sheet order.
func BuildSnapshot(rows []RegistrationRow) *Snapshot {
	s := &Snapshot{
		Users:   make(map[string]*RegistrationRow),
		Members: make(map[string]*Member),
	}
	for i := range rows {
		row := &rows[i]
		s.Users[row.Email] = row

		id := MemberID(row.Block, row.Kumi, row.MemberName)
		m, ok := s.Members[id]
		if !ok {
			m = &Member{ID: id, Block: row.Block, Kumi: row.Kumi, MemberName: row.MemberName}
			s.Members[id] = m
		}
		m.Users = append(m.Users, row)
	}
	return s
}

// parseTimestamp parses a registration timestamp in the sheet's local form.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing registration timestamp %q: %w", s, err)
	}
	return t, nil
}
