// Package report joins provisioned access actors against the registered
// roster and produces the reservation-list and calendar projections plus
// per-member usage counts.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/kempei/reservalock/internal/roster"
	"github.com/kempei/reservalock/internal/schedule"
)

// ActorType distinguishes the two kinds of provisioned access.
type ActorType string

const (
	// ActorUser is a standing member with a recurring access policy.
	ActorUser ActorType = "access_user"
	// ActorGuest is a one-off credential issued for a single reservation.
	ActorGuest ActorType = "access_guest"
)

// Actor is a provisioned access person with the concrete time slots it may
// open the door in.
type Actor struct {
	Type      ActorType
	ID        string
	Name      string
	Email     string
	Timeslots []schedule.Slot
}

// RecurringBlockLabel is the fixed block shown for recurring access users,
// who belong to no household.
const RecurringBlockLabel = "定期予約(町内会公認団体)"

// UnregisteredLabel is the placeholder for guests with no roster entry to
// join against.
const UnregisteredLabel = "(未登録)"

// MissingRosterEntryError reports a guest whose email is absent from the
// roster snapshot. The join is assumed complete at batch time, so this is
// fatal to the report rather than silently skipped.
type MissingRosterEntryError struct {
	Email string
}

func (e *MissingRosterEntryError) Error() string {
	return fmt.Sprintf("no roster entry for guest email %q", e.Email)
}

// Aggregator joins access users and guests against a roster snapshot.
type Aggregator struct {
	Roster *roster.Snapshot
	Users  []Actor
	Guests []Actor

	// Now colors calendar items; Target selects the day for day-scoped
	// calendars.
	Now    time.Time
	Target time.Time

	guestsByUser map[string][]Actor
}

// NewAggregator builds an aggregator and attaches each guest with a
// non-empty email to its roster user. A non-empty email missing from the
// roster is a MissingRosterEntryError; empty-email guests stay unattached
// and report with placeholder name and block.
func NewAggregator(snap *roster.Snapshot, users, guests []Actor, now, target time.Time) (*Aggregator, error) {
	a := &Aggregator{
		Roster:       snap,
		Users:        users,
		Guests:       guests,
		Now:          now,
		Target:       target,
		guestsByUser: make(map[string][]Actor),
	}
	for _, g := range guests {
		if g.Email == "" {
			continue
		}
		if _, ok := snap.Users[g.Email]; !ok {
			return nil, &MissingRosterEntryError{Email: g.Email}
		}
		a.guestsByUser[g.Email] = append(a.guestsByUser[g.Email], g)
	}
	return a, nil
}

// MemberUsage is one member's slot usage over the reporting window.
type MemberUsage struct {
	MemberID   string `json:"member_id"`
	Block      string `json:"block"`
	Kumi       string `json:"kumi"`
	MemberName string `json:"member_name"`
	UsageCount int    `json:"usage_count"`
}

// UsageCounts totals guest slots per member and returns members with any
// usage, most active first.
func (a *Aggregator) UsageCounts() []MemberUsage {
	var usages []MemberUsage
	// Iterate deterministically for stable report output.
	ids := make([]string, 0, len(a.Roster.Members))
	for id := range a.Roster.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		m := a.Roster.Members[id]
		count := 0
		for _, u := range m.Users {
			for _, g := range a.guestsByUser[u.Email] {
				count += len(g.Timeslots)
			}
		}
		if count > 0 {
			usages = append(usages, MemberUsage{
				MemberID:   m.ID,
				Block:      m.Block,
				Kumi:       m.Kumi,
				MemberName: m.MemberName,
				UsageCount: count,
			})
		}
	}

	sort.SliceStable(usages, func(i, j int) bool {
		return usages[i].UsageCount > usages[j].UsageCount
	})
	return usages
}

// ReservationItem is one row of the flat reservation-list projection.
type ReservationItem struct {
	StartTime string `json:"start_time"`
	Date      string `json:"date"`
	Timeslot  string `json:"timeslot"`
	Name      string `json:"name"`
	Block     string `json:"block"`
}

// ReservationList flattens every actor's slots into rows sorted ascending
// by start time.
func (a *Aggregator) ReservationList() ([]ReservationItem, error) {
	var items []ReservationItem

	for _, u := range a.Users {
		for _, slot := range u.Timeslots {
			items = append(items, ReservationItem{
				StartTime: slot.StartISO(),
				Date:      slot.DayISO(),
				Timeslot:  slot.TimeRange(),
				Name:      u.Name,
				Block:     RecurringBlockLabel,
			})
		}
	}

	for _, g := range a.Guests {
		name, block, err := a.guestIdentity(g)
		if err != nil {
			return nil, err
		}
		for _, slot := range g.Timeslots {
			items = append(items, ReservationItem{
				StartTime: slot.StartISO(),
				Date:      slot.DayISO(),
				Timeslot:  slot.TimeRange(),
				Name:      name,
				Block:     block,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime < items[j].StartTime
	})
	return items, nil
}

// guestIdentity resolves a guest's display name and household block label
// through the roster join.
func (a *Aggregator) guestIdentity(g Actor) (name, block string, err error) {
	if g.Email == "" {
		return UnregisteredLabel, UnregisteredLabel, nil
	}
	user, ok := a.Roster.Users[g.Email]
	if !ok {
		return "", "", &MissingRosterEntryError{Email: g.Email}
	}
	m := a.Roster.MemberOf(user)
	if m == nil {
		return "", "", &MissingRosterEntryError{Email: g.Email}
	}
	return user.UserName, fmt.Sprintf("%s %s %s", m.Block, m.Kumi, m.MemberName), nil
}
