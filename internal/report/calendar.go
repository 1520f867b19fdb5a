package report

import (
	"fmt"
	"time"
)

// Scope selects the calendar projection.
type Scope string

const (
	ScopeMonth Scope = "month"
	ScopeDay   Scope = "day"
)

// Calendar item colors and icons consumed by the frontend calendar widget.
const (
	colorPrimary   = "primary"   // slot on the target day
	colorSecondary = "secondary" // slot already in the past
	iconRepeat     = "repeat"    // recurring access user
	iconPerson     = "person"    // one-off guest
)

// CalendarItem is one entry of the calendar projection. Icon and
// Description are only set for day-scoped items on the target day.
type CalendarItem struct {
	Start       string `json:"start"`
	Title       string `json:"title"`
	Color       string `json:"color"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

// CalendarList flattens every actor's slots into calendar items. Month
// scope returns all slots with start/title/color only; day scope restricts
// to the target day and decorates matches with icon and description.
func (a *Aggregator) CalendarList(scope Scope) ([]CalendarItem, error) {
	if scope != ScopeMonth && scope != ScopeDay {
		return nil, fmt.Errorf("unknown calendar scope %q", scope)
	}

	items := []CalendarItem{}
	for _, actor := range a.Users {
		actorItems, err := a.calendarItems(actor, scope)
		if err != nil {
			return nil, err
		}
		items = append(items, actorItems...)
	}
	for _, actor := range a.Guests {
		actorItems, err := a.calendarItems(actor, scope)
		if err != nil {
			return nil, err
		}
		items = append(items, actorItems...)
	}
	return items, nil
}

func (a *Aggregator) calendarItems(actor Actor, scope Scope) ([]CalendarItem, error) {
	var items []CalendarItem
	for _, slot := range actor.Timeslots {
		item := CalendarItem{Start: slot.StartISO()}

		if actor.Type == ActorUser {
			item.Title = actor.Name
		} else {
			name, _, err := a.guestIdentity(actor)
			if err != nil {
				return nil, err
			}
			item.Title = name
		}

		onTarget := sameDay(slot.StartTime, a.Target)
		if onTarget {
			item.Color = colorPrimary
		}
		if slot.StartTime.Before(a.Now) {
			item.Color = colorSecondary
		}

		if scope == ScopeDay {
			if !onTarget {
				continue
			}
			window := fmt.Sprintf("%02d:00-%02d:00", slot.StartTime.Hour(), slot.EndTime.Hour())
			if actor.Type == ActorUser {
				item.Icon = iconRepeat
				item.Description = fmt.Sprintf("%s %s", window, RecurringBlockLabel)
			} else {
				_, block, err := a.guestIdentity(actor)
				if err != nil {
					return nil, err
				}
				item.Icon = iconPerson
				item.Description = fmt.Sprintf("%s %s", window, block)
			}
		}

		items = append(items, item)
	}
	return items, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
