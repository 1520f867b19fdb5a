package remotelock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/kempei/reservalock/internal/schedule"
)

// AccessGuest is a one-off credential issued for a single reservation,
// with its interval already decomposed onto the slot grid.
type AccessGuest struct {
	ID        string
	Name      string
	Email     string
	Timeslots []schedule.Slot
}

// guestStatuses are the listing statuses that together cover every guest
// that may fall into a report month.
var guestStatuses = []string{"expired", "current", "upcoming"}

// GetAccessGuests lists the access guests whose reservation falls in the
// target month. Guests are numerous, so each status listing is sorted by
// descending start and the walk stops once it pages past the month.
func (c *Client) GetAccessGuests(ctx context.Context, year int, month time.Month) ([]AccessGuest, error) {
	var guests []AccessGuest
	for _, status := range guestStatuses {
		byStatus, err := c.guestsByStatus(ctx, status, year, month)
		if err != nil {
			return nil, err
		}
		guests = append(guests, byStatus...)
	}
	return guests, nil
}

func (c *Client) guestsByStatus(ctx context.Context, status string, year int, month time.Month) ([]AccessGuest, error) {
	extra := url.Values{}
	extra.Set("sort", "-starts_at")
	extra.Set("attributes[status]", status)

	var guests []AccessGuest
	err := c.forEachPerson(ctx, listQuery("access_guest", extra), func(p personResource) (bool, error) {
		start, err := parseInstant(p.Attributes.StartsAt)
		if err != nil {
			return false, fmt.Errorf("parsing starts_at for guest %s: %w", p.ID, err)
		}
		end, err := parseInstant(p.Attributes.EndsAt)
		if err != nil {
			return false, fmt.Errorf("parsing ends_at for guest %s: %w", p.ID, err)
		}

		if start.Year() == year && start.Month() == month {
			guests = append(guests, AccessGuest{
				ID:        p.ID,
				Name:      p.Attributes.Name,
				Email:     p.Attributes.Email,
				Timeslots: schedule.Decompose(start, end),
			})
		}
		older := start.Year() < year || (start.Year() == year && start.Month() < month)
		return older, nil
	})
	if err != nil {
		return nil, err
	}
	return guests, nil
}

// GuestRequest carries everything needed to issue a guest credential for
// one approved reservation.
type GuestRequest struct {
	UserName   string
	MemberName string
	Block      string
	Kumi       string
	Email      string
	RsvNo      string
	Window     schedule.ReservationWindow
}

// GuestName is the display name issued to the lock platform. It embeds the
// visible reservation number so a later cancellation can find the guest.
func (r GuestRequest) GuestName() string {
	name := fmt.Sprintf("%s <%s> (%s%s", r.UserName, r.RsvNo, r.Block, r.Kumi)
	if r.UserName != r.MemberName {
		name += fmt.Sprintf(" %s 様方", r.MemberName)
	}
	return name + ")"
}

// RegisterGuest creates an access guest for the reservation window,
// attaches it to the facility's lock, and schedules the notification
// mail. It returns the generated key number.
func (c *Client) RegisterGuest(ctx context.Context, req GuestRequest) (string, error) {
	var devices []personResource
	deviceQuery := url.Values{}
	deviceQuery.Set("type[]", "lock")
	if _, err := c.get(ctx, "devices", deviceQuery, &devices); err != nil {
		return "", fmt.Errorf("listing lock devices: %w", err)
	}
	if len(devices) != 1 {
		return "", fmt.Errorf("expected exactly one lock device, got %d", len(devices))
	}
	lockID := devices[0].ID

	var guest personResource
	err := c.post(ctx, "access_persons", map[string]any{
		"type": "access_guest",
		"attributes": map[string]any{
			"name":         req.GuestName(),
			"email":        req.Email,
			"generate_pin": true,
			"starts_at":    req.Window.StartsAt(),
			"ends_at":      req.Window.EndsAt(),
		},
	}, &guest)
	if err != nil {
		return "", fmt.Errorf("creating access guest: %w", err)
	}
	keyNo := guest.Attributes.Pin

	err = c.post(ctx, "access_persons/"+guest.ID+"/accesses", map[string]any{
		"attributes": map[string]any{
			"accessible_id":   lockID,
			"accessible_type": "lock",
		},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("attaching lock to guest %s: %w", guest.ID, err)
	}

	err = c.post(ctx, "access_persons/"+guest.ID+"/email/notify", map[string]any{
		"attributes": map[string]any{"days_before": 1},
	}, nil)
	if err != nil {
		var apiErr *APIError
		// a 422 means the reservation starts within 24 hours; notify now
		if errors.As(err, &apiErr) && apiErr.StatusCode == 422 {
			err = c.post(ctx, "access_persons/"+guest.ID+"/email/notify", nil, nil)
		}
		if err != nil {
			return "", fmt.Errorf("scheduling guest notification %s: %w", guest.ID, err)
		}
	}

	log.Printf("remotelock: created access guest %s (%s) %s - %s",
		guest.ID, req.Email, req.Window.StartsAt(), req.Window.EndsAt())
	return keyNo, nil
}

// CancelGuest deactivates every access guest whose name carries the
// visible reservation number. It reports false when no matching guest
// exists, which callers treat as already cancelled.
func (c *Client) CancelGuest(ctx context.Context, rsvNo string) (bool, error) {
	query := url.Values{}
	query.Set("type[]", "access_guest")
	query.Set("sort", "-created_at")
	query.Set("per_page", "50")

	var guests []personResource
	if _, err := c.get(ctx, "access_persons", query, &guests); err != nil {
		return false, fmt.Errorf("listing access guests: %w", err)
	}

	found := false
	for _, g := range guests {
		if !strings.Contains(g.Attributes.Name, rsvNo) {
			continue
		}
		if err := c.put(ctx, "access_persons/"+g.ID+"/deactivate", nil, nil); err != nil {
			return false, fmt.Errorf("deactivating guest %s: %w", g.ID, err)
		}
		log.Printf("remotelock: deactivated access guest %s (%s)", g.ID, g.Attributes.Name)
		found = true
	}
	if !found {
		log.Printf("remotelock: no access guest matches reservation %s, treating as cancelled", rsvNo)
	}
	return found, nil
}

// DeleteOldGuests removes deactivated guests and guests whose access ended
// more than expiredDays ago. It returns the number of deleted guests.
func (c *Client) DeleteOldGuests(ctx context.Context, expiredDays int, now time.Time) (int, error) {
	extra := url.Values{}
	extra.Set("sort", "ends_at")
	extra.Add("attributes[status][]", "deactivated")
	extra.Add("attributes[status][]", "expired")

	cutoff := now.AddDate(0, 0, -expiredDays)
	deleted := 0

	err := c.forEachPerson(ctx, listQuery("access_guest", extra), func(p personResource) (bool, error) {
		endsAt, err := parseInstant(p.Attributes.EndsAt)
		if err != nil {
			return false, fmt.Errorf("parsing ends_at for guest %s: %w", p.ID, err)
		}
		if p.Attributes.Status != "deactivated" && !endsAt.Before(cutoff) {
			return false, nil
		}
		if err := c.delete(ctx, "access_persons/"+p.ID); err != nil {
			return false, fmt.Errorf("deleting guest %s: %w", p.ID, err)
		}
		deleted++
		return false, nil
	})
	if err != nil {
		return deleted, err
	}

	log.Printf("remotelock: deleted %d old access guests", deleted)
	return deleted, nil
}

// parseInstant reads the platform's second-precision ISO timestamps,
// ignoring any trailing zone offset.
func parseInstant(s string) (time.Time, error) {
	if len(s) < 19 {
		return time.Time{}, fmt.Errorf("timestamp %q too short", s)
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s[:19], time.Local)
}
