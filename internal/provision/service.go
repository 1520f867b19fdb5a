// Package provision binds the scheduling core to the booking and lock
// platform collaborators: webhook handling, the recurring access sync
// batch, expired guest cleanup, and monthly usage snapshots.
package provision

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/kempei/reservalock/internal/remotelock"
	"github.com/kempei/reservalock/internal/report"
	"github.com/kempei/reservalock/internal/reserva"
	"github.com/kempei/reservalock/internal/roster"
	"github.com/kempei/reservalock/internal/schedule"
	"github.com/kempei/reservalock/internal/storage"
)

// BookingClient is the booking platform surface the service needs.
type BookingClient interface {
	Approve(ctx context.Context, rsvNo, keyNo string) (reserva.Result, error)
	Deny(ctx context.Context, rsvNo string) (reserva.Result, error)
}

// LockClient is the lock platform surface the service needs.
type LockClient interface {
	GetAccessUsers(ctx context.Context, horizonStart time.Time, horizonDays, exceptionDefaultDays int) ([]remotelock.AccessUser, error)
	GetAccessGuests(ctx context.Context, year int, month time.Month) ([]remotelock.AccessGuest, error)
	RegisterGuest(ctx context.Context, req remotelock.GuestRequest) (string, error)
	CancelGuest(ctx context.Context, rsvNo string) (bool, error)
	DeleteOldGuests(ctx context.Context, expiredDays int, now time.Time) (int, error)
	UpdateAccessExceptions(ctx context.Context, userID string, exceptions []schedule.ExceptionRange) error
}

// RosterSource supplies registration rows for an email and receives the
// duplicate-row signals the dedup pass produces.
type RosterSource interface {
	Candidates(ctx context.Context, email string) ([]roster.RegistrationRow, error)
	Prune(ctx context.Context, email string, rows []int) error
	Snapshot(ctx context.Context) (*roster.Snapshot, error)
}

// ApprovalLog records handled webhooks.
type ApprovalLog interface {
	Append(ctx context.Context, e *storage.ApprovalEntry) error
}

// SnapshotStore persists monthly usage snapshots.
type SnapshotStore interface {
	Exists(ctx context.Context, monthKey string) (bool, error)
	SaveMonth(ctx context.Context, monthKey string, snaps []storage.UsageSnapshot) error
}

// Broadcaster pushes provisioning events to connected UIs.
type Broadcaster interface {
	BroadcastReservationApproved(rsv reserva.ReservationInfo, userName string)
	BroadcastReservationDenied(rsv reserva.ReservationInfo, detail string)
	BroadcastReservationCancelled(rsv reserva.ReservationInfo, detail string)
	BroadcastRecurringSyncCompleted(users, slots, exceptions int)
	BroadcastRecurringSyncError(err error)
	BroadcastGuestCleanupCompleted(deleted int)
}

// Config holds the provisioning tunables.
type Config struct {
	// minutes the door opens before the reserved start
	BufferMin int
	// how far ahead recurring access is expanded
	HorizonDays int
	// placeholder exception distance when a horizon yields none
	ExceptionDefaultDays int
	// guests whose access ended this long ago get deleted
	ExpiredDays int
	// how many months back usage snapshots are kept
	SnapshotMonths int
}

// Service orchestrates reservation handling and the scheduled batches.
type Service struct {
	booking   BookingClient
	lock      LockClient
	rosterSrc RosterSource
	approvals ApprovalLog
	snapshots SnapshotStore
	events    Broadcaster
	config    Config

	now func() time.Time
}

// NewService creates a provisioning service.
func NewService(booking BookingClient, lock LockClient, rosterSrc RosterSource, approvals ApprovalLog, snapshots SnapshotStore, events Broadcaster, config Config) *Service {
	return &Service{
		booking:   booking,
		lock:      lock,
		rosterSrc: rosterSrc,
		approvals: approvals,
		snapshots: snapshots,
		events:    events,
		config:    config,
		now:       time.Now,
	}
}

// HandleResult is the outcome of one webhook, with the action log the
// booking platform operators read.
type HandleResult struct {
	Actions []string `json:"log"`
	OK      bool     `json:"-"`
}

// HandleRequest processes a reservation request notification: approve and
// issue a credential for registered users, deny everyone else. A failed
// approval after the credential was issued is compensated by cancelling
// the credential again.
func (s *Service) HandleRequest(ctx context.Context, rsv reserva.ReservationInfo) (*HandleResult, error) {
	reg, err := s.lookupRegistration(ctx, rsv.Email)
	if err != nil {
		return s.systemError(ctx, rsv, nil, nil, err)
	}

	result := &HandleResult{OK: true}
	switch {
	case rsv.Status == reserva.StatusConfirmed:
		result.Actions = append(result.Actions, "request: approve", "既に確定済みです")

	case rsv.Status == reserva.StatusCancelled:
		result.Actions = append(result.Actions, "request: approve", "既にキャンセル済みです")

	case reg != nil:
		result.Actions = append(result.Actions, "request: approve")
		if err := s.approve(ctx, rsv, reg, result); err != nil {
			return s.systemError(ctx, rsv, reg, result.Actions, err)
		}

	default:
		result.Actions = append(result.Actions, "request: deny")
		denied, err := s.booking.Deny(ctx, rsv.HiddenRsvNo)
		if err != nil {
			return s.systemError(ctx, rsv, reg, result.Actions, err)
		}
		result.Actions = append(result.Actions, denied.String())
		if denied.Outcome != reserva.OutcomeSuccess {
			result.OK = false
		}
		s.events.BroadcastReservationDenied(rsv, denied.String())
	}

	if err := s.logApproval(ctx, rsv, reg, result.Actions); err != nil {
		return nil, err
	}
	return result, nil
}

// approve issues the key number first and confirms the reservation with
// it; on a failed confirmation the just-issued credential is cancelled.
func (s *Service) approve(ctx context.Context, rsv reserva.ReservationInfo, reg *roster.RegistrationRow, result *HandleResult) error {
	window, err := schedule.ParseReservationTime(rsv.RsvTime)
	if err != nil {
		var discont *schedule.DiscontinuousReservationError
		if !errors.As(err, &discont) {
			return err
		}
		// Not a contiguous span. Deny with the conflicting segments so
		// the requester sees which two windows clash.
		result.Actions = append(result.Actions, discont.Error())
		denied, err := s.booking.Deny(ctx, rsv.HiddenRsvNo)
		if err != nil {
			return err
		}
		result.Actions = append(result.Actions, denied.String())
		result.OK = false
		s.events.BroadcastReservationDenied(rsv, discont.Error())
		return nil
	}

	keyNo, err := s.lock.RegisterGuest(ctx, remotelock.GuestRequest{
		UserName:   reg.UserName,
		MemberName: reg.MemberName,
		Block:      reg.Block,
		Kumi:       reg.Kumi,
		Email:      reg.Email,
		RsvNo:      rsv.VisibleRsvNo,
		Window:     window.ApplyStartBuffer(s.config.BufferMin),
	})
	if err != nil {
		return err
	}

	approved, err := s.booking.Approve(ctx, rsv.HiddenRsvNo, keyNo)
	if err != nil {
		return err
	}
	result.Actions = append(result.Actions, approved.String())

	if approved.Outcome != reserva.OutcomeSuccess {
		if _, err := s.lock.CancelGuest(ctx, rsv.VisibleRsvNo); err != nil {
			return err
		}
		if approved.Outcome != reserva.OutcomeAlreadyCancelled {
			result.OK = false
		}
		return nil
	}

	s.events.BroadcastReservationApproved(rsv, reg.UserName)
	return nil
}

// HandleCancel processes a cancellation notification. The booking side is
// already cancelled, so only the lock credential needs revoking.
func (s *Service) HandleCancel(ctx context.Context, rsv reserva.ReservationInfo) (*HandleResult, error) {
	result := &HandleResult{OK: true, Actions: []string{"cancel"}}
	if rsv.Status != reserva.StatusCancelled {
		result.Actions = append(result.Actions, "正しくキャンセルされていません")
	}

	found, err := s.lock.CancelGuest(ctx, rsv.VisibleRsvNo)
	if err != nil {
		return s.systemError(ctx, rsv, nil, result.Actions, err)
	}
	if found {
		result.Actions = append(result.Actions, "success")
	} else {
		result.Actions = append(result.Actions, "RemoteLock側で既にキャンセルされています。")
	}
	s.events.BroadcastReservationCancelled(rsv, result.Actions[len(result.Actions)-1])

	reg, err := s.lookupRegistration(ctx, rsv.Email)
	if err != nil {
		return s.systemError(ctx, rsv, nil, result.Actions, err)
	}
	if err := s.logApproval(ctx, rsv, reg, result.Actions); err != nil {
		return nil, err
	}
	return result, nil
}

// SyncRecurringAccess expands every standing user's recurring policy over
// the horizon and overwrites their access exception dates.
func (s *Service) SyncRecurringAccess(ctx context.Context) error {
	users, err := s.lock.GetAccessUsers(ctx, s.now(), s.config.HorizonDays, s.config.ExceptionDefaultDays)
	if err != nil {
		s.events.BroadcastRecurringSyncError(err)
		return err
	}

	slots := 0
	exceptions := 0
	for _, u := range users {
		log.Printf("provision: syncing recurring access for %s (%d slots, %d exceptions)",
			u.Name, len(u.Timeslots), len(u.Exceptions))
		if err := s.lock.UpdateAccessExceptions(ctx, u.ID, u.Exceptions); err != nil {
			s.events.BroadcastRecurringSyncError(err)
			return err
		}
		slots += len(u.Timeslots)
		exceptions += len(u.Exceptions)
	}

	s.events.BroadcastRecurringSyncCompleted(len(users), slots, exceptions)
	return nil
}

// CleanupExpiredGuests deletes deactivated guests and guests whose access
// ended long enough ago.
func (s *Service) CleanupExpiredGuests(ctx context.Context) error {
	deleted, err := s.lock.DeleteOldGuests(ctx, s.config.ExpiredDays, s.now())
	if err != nil {
		return err
	}
	s.events.BroadcastGuestCleanupCompleted(deleted)
	return nil
}

// SnapshotUsage walks backwards from the current month, freezing a usage
// grid per month. The current month is always refreshed; the backfill
// stops at the first month already stored.
func (s *Service) SnapshotUsage(ctx context.Context) error {
	snap, err := s.rosterSrc.Snapshot(ctx)
	if err != nil {
		return err
	}

	thisMonth := s.now()
	for i := 0; i < s.config.SnapshotMonths; i++ {
		target := time.Date(thisMonth.Year(), thisMonth.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -i, 0)
		monthKey := target.Format("2006-01")

		if i > 0 {
			stored, err := s.snapshots.Exists(ctx, monthKey)
			if err != nil {
				return err
			}
			if stored {
				break
			}
		}

		if err := s.snapshotMonth(ctx, snap, target.Year(), target.Month(), monthKey); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) snapshotMonth(ctx context.Context, snap *roster.Snapshot, year int, month time.Month, monthKey string) error {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	users, err := s.lock.GetAccessUsers(ctx, first, daysInMonth, s.config.ExceptionDefaultDays)
	if err != nil {
		return err
	}
	guests, err := s.lock.GetAccessGuests(ctx, year, month)
	if err != nil {
		return err
	}

	agg, err := report.NewAggregator(snap, userActors(users), guestActors(guests), s.now(), s.now())
	if err != nil {
		return err
	}
	grid, err := agg.UsageGrid(year, month)
	if err != nil {
		return err
	}

	snaps := make([]storage.UsageSnapshot, len(grid))
	for i, row := range grid {
		snaps[i] = storage.UsageSnapshot{
			SlotStart: row.SlotStart,
			SlotEnd:   row.SlotEnd,
			UserEmail: row.UserEmail,
			Block:     row.Block,
			Kumi:      row.Kumi,
			Official:  row.OfficialFlag == "true",
			External:  row.ExternalFlag == "true",
			UserName:  row.UserName,
			GuestName: row.GuestName,
			Objective: row.Objective,
		}
	}

	log.Printf("provision: snapshotting %s (%d users, %d guests, %d rows)",
		monthKey, len(users), len(guests), len(snaps))
	return s.snapshots.SaveMonth(ctx, monthKey, snaps)
}

// Reporter collects the provisioned actors and the roster snapshot for
// the month containing start and joins them into an aggregator. The
// horizon runs from start to the end of its month; start is also the
// target day for day-scoped calendars.
func (s *Service) Reporter(ctx context.Context, start time.Time) (*report.Aggregator, error) {
	year, month := start.Year(), start.Month()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	users, err := s.lock.GetAccessUsers(ctx, start, daysInMonth, s.config.ExceptionDefaultDays)
	if err != nil {
		return nil, err
	}
	guests, err := s.lock.GetAccessGuests(ctx, year, month)
	if err != nil {
		return nil, err
	}
	snap, err := s.rosterSrc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return report.NewAggregator(snap, userActors(users), guestActors(guests), s.now(), start)
}

// lookupRegistration resolves the canonical registration row for an email,
// reporting duplicate rows back to the source for cleanup. A missing email
// resolves to nil, which callers treat as unregistered.
func (s *Service) lookupRegistration(ctx context.Context, email string) (*roster.RegistrationRow, error) {
	candidates, err := s.rosterSrc.Candidates(ctx, email)
	if err != nil {
		return nil, err
	}
	reg, deletions, err := roster.Resolve(email, candidates)
	if err != nil {
		return nil, err
	}
	if len(deletions) > 0 {
		if err := s.rosterSrc.Prune(ctx, email, deletions); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// logApproval appends the handled webhook to the approval log, using
// placeholder fields for unregistered requesters.
func (s *Service) logApproval(ctx context.Context, rsv reserva.ReservationInfo, reg *roster.RegistrationRow, actions []string) error {
	entry := &storage.ApprovalEntry{
		Email:      rsv.Email,
		UserName:   rsv.Name,
		MemberName: report.UnregisteredLabel,
		Block:      report.UnregisteredLabel,
		Kumi:       report.UnregisteredLabel,
		RsvNo:      rsv.VisibleRsvNo,
		RsvTime:    rsv.RsvTime,
		Actions:    actions,
	}
	if reg != nil {
		entry.Email = reg.Email
		entry.UserName = reg.UserName
		entry.MemberName = reg.MemberName
		entry.Block = reg.Block
		entry.Kumi = reg.Kumi
	}
	return s.approvals.Append(ctx, entry)
}

// systemError records the failure in the approval log before passing the
// error up, so operators see half-handled webhooks.
func (s *Service) systemError(ctx context.Context, rsv reserva.ReservationInfo, reg *roster.RegistrationRow, actions []string, err error) (*HandleResult, error) {
	log.Printf("provision: system error handling reservation %s: %v", rsv.VisibleRsvNo, err)
	actions = append(actions, "system error")
	if logErr := s.logApproval(ctx, rsv, reg, actions); logErr != nil {
		log.Printf("provision: appending approval log failed: %v", logErr)
	}
	return nil, err
}

func userActors(users []remotelock.AccessUser) []report.Actor {
	actors := make([]report.Actor, len(users))
	for i, u := range users {
		actors[i] = report.Actor{
			Type:      report.ActorUser,
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Timeslots: u.Timeslots,
		}
	}
	return actors
}

func guestActors(guests []remotelock.AccessGuest) []report.Actor {
	actors := make([]report.Actor, len(guests))
	for i, g := range guests {
		actors[i] = report.Actor{
			Type:      report.ActorGuest,
			ID:        g.ID,
			Name:      g.Name,
			Email:     g.Email,
			Timeslots: g.Timeslots,
		}
	}
	return actors
}
