package remotelock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kempei/reservalock/internal/schedule"
)

// personResource is an access person as the API returns it.
type personResource struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Attributes personAttributes `json:"attributes"`
}

type personAttributes struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Status     string `json:"status"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
	Pin        string `json:"pin"`
}

// AccessUser is a standing member whose recurring access policy is stored
// on the lock platform, expanded over the requested horizon.
type AccessUser struct {
	ID         string
	Name       string
	Email      string
	Timeslots  []schedule.Slot
	Exceptions []schedule.ExceptionRange
}

// GetAccessUsers lists access users carrying a recurring access policy.
// The policy JSON lives in the department field; users without one are
// skipped. Each policy is expanded into concrete slots and exception dates
// over [horizonStart, horizonStart+horizonDays).
func (c *Client) GetAccessUsers(ctx context.Context, horizonStart time.Time, horizonDays, exceptionDefaultDays int) ([]AccessUser, error) {
	var users []AccessUser

	err := c.forEachPerson(ctx, listQuery("access_user", nil), func(p personResource) (bool, error) {
		department := p.Attributes.Department
		if !strings.HasPrefix(department, "[{") {
			return false, nil
		}

		var policies []schedule.AccessPolicy
		if err := json.Unmarshal([]byte(department), &policies); err != nil {
			return false, fmt.Errorf("decoding access policy for user %s: %w", p.ID, err)
		}
		slots, exceptions, err := schedule.Expand(policies, horizonStart, horizonDays, exceptionDefaultDays)
		if err != nil {
			return false, fmt.Errorf("expanding access policy for user %s: %w", p.ID, err)
		}

		users = append(users, AccessUser{
			ID:         p.ID,
			Name:       p.Attributes.Name,
			Email:      p.Attributes.Email,
			Timeslots:  slots,
			Exceptions: exceptions,
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

type accessResource struct {
	ID         string `json:"id"`
	Attributes struct {
		AccessScheduleID string `json:"access_schedule_id"`
	} `json:"attributes"`
}

type scheduleResource struct {
	ID         string `json:"id"`
	Attributes struct {
		AccessExceptionID string `json:"access_exception_id"`
	} `json:"attributes"`
}

// UpdateAccessExceptions overwrites the access exception dates attached to
// a user's door schedule. The facility has a single door, so the first
// access grant is the one that matters.
func (c *Client) UpdateAccessExceptions(ctx context.Context, userID string, exceptions []schedule.ExceptionRange) error {
	var accesses []accessResource
	if _, err := c.get(ctx, "access_persons/"+userID+"/accesses", nil, &accesses); err != nil {
		return fmt.Errorf("listing accesses for user %s: %w", userID, err)
	}
	if len(accesses) == 0 {
		return fmt.Errorf("user %s has no access grants", userID)
	}
	scheduleID := accesses[0].Attributes.AccessScheduleID

	var sched scheduleResource
	if _, err := c.get(ctx, "schedules/"+scheduleID, nil, &sched); err != nil {
		return fmt.Errorf("fetching schedule %s: %w", scheduleID, err)
	}
	exceptionID := sched.Attributes.AccessExceptionID

	body := map[string]any{
		"attributes": map[string]any{"dates": exceptions},
	}
	if err := c.put(ctx, "access_exceptions/"+exceptionID, body, nil); err != nil {
		return fmt.Errorf("updating access exceptions %s: %w", exceptionID, err)
	}
	return nil
}

// listQuery builds the base query for listing access persons of one type.
func listQuery(personType string, extra url.Values) url.Values {
	query := url.Values{}
	query.Set("type[]", personType)
	query.Set("per_page", strconv.Itoa(perPage))
	for k, vs := range extra {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	return query
}

// forEachPerson pages through an access person listing, calling visit for
// every resource. A visit returning stop finishes the current page and
// then ends the walk.
func (c *Client) forEachPerson(ctx context.Context, query url.Values, visit func(personResource) (stop bool, err error)) error {
	page := 1
	stopped := false
	for {
		q := url.Values{}
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		q.Set("page", strconv.Itoa(page))

		var people []personResource
		meta, err := c.get(ctx, "access_persons", q, &people)
		if err != nil {
			return err
		}
		for _, p := range people {
			stop, err := visit(p)
			if err != nil {
				return err
			}
			if stop {
				stopped = true
			}
		}
		if stopped || meta == nil || page >= meta.TotalPages {
			return nil
		}
		page++
	}
}
