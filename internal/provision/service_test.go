package provision

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kempei/reservalock/internal/remotelock"
	"github.com/kempei/reservalock/internal/reserva"
	"github.com/kempei/reservalock/internal/roster"
	"github.com/kempei/reservalock/internal/schedule"
	"github.com/kempei/reservalock/internal/storage"
)

type fakeBooking struct {
	approveResult reserva.Result
	denyResult    reserva.Result

	approveCalls [][2]string
	denyCalls    []string
}

func (f *fakeBooking) Approve(ctx context.Context, rsvNo, keyNo string) (reserva.Result, error) {
	f.approveCalls = append(f.approveCalls, [2]string{rsvNo, keyNo})
	return f.approveResult, nil
}

func (f *fakeBooking) Deny(ctx context.Context, rsvNo string) (reserva.Result, error) {
	f.denyCalls = append(f.denyCalls, rsvNo)
	return f.denyResult, nil
}

type fakeLock struct {
	users       []remotelock.AccessUser
	guests      []remotelock.AccessGuest
	registerKey string
	cancelFound bool
	deleted     int

	registered     []remotelock.GuestRequest
	cancelCalls    []string
	exceptionCalls map[string][]schedule.ExceptionRange
}

func (f *fakeLock) GetAccessUsers(ctx context.Context, start time.Time, horizonDays, exceptionDays int) ([]remotelock.AccessUser, error) {
	return f.users, nil
}

func (f *fakeLock) GetAccessGuests(ctx context.Context, year int, month time.Month) ([]remotelock.AccessGuest, error) {
	return f.guests, nil
}

func (f *fakeLock) RegisterGuest(ctx context.Context, req remotelock.GuestRequest) (string, error) {
	f.registered = append(f.registered, req)
	return f.registerKey, nil
}

func (f *fakeLock) CancelGuest(ctx context.Context, rsvNo string) (bool, error) {
	f.cancelCalls = append(f.cancelCalls, rsvNo)
	return f.cancelFound, nil
}

func (f *fakeLock) DeleteOldGuests(ctx context.Context, expiredDays int, now time.Time) (int, error) {
	return f.deleted, nil
}

func (f *fakeLock) UpdateAccessExceptions(ctx context.Context, userID string, exceptions []schedule.ExceptionRange) error {
	if f.exceptionCalls == nil {
		f.exceptionCalls = make(map[string][]schedule.ExceptionRange)
	}
	f.exceptionCalls[userID] = exceptions
	return nil
}

type fakeRoster struct {
	rows   []roster.RegistrationRow
	pruned map[string][]int
}

func (f *fakeRoster) Candidates(ctx context.Context, email string) ([]roster.RegistrationRow, error) {
	var out []roster.RegistrationRow
	for _, r := range f.rows {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoster) Prune(ctx context.Context, email string, rows []int) error {
	if f.pruned == nil {
		f.pruned = make(map[string][]int)
	}
	f.pruned[email] = append(f.pruned[email], rows...)
	return nil
}

func (f *fakeRoster) Snapshot(ctx context.Context) (*roster.Snapshot, error) {
	return roster.BuildSnapshot(f.rows), nil
}

type fakeApprovals struct {
	entries []*storage.ApprovalEntry
}

func (f *fakeApprovals) Append(ctx context.Context, e *storage.ApprovalEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeSnapshots struct {
	existing map[string]bool
	saved    map[string][]storage.UsageSnapshot
	order    []string
}

func (f *fakeSnapshots) Exists(ctx context.Context, monthKey string) (bool, error) {
	return f.existing[monthKey], nil
}

func (f *fakeSnapshots) SaveMonth(ctx context.Context, monthKey string, snaps []storage.UsageSnapshot) error {
	if f.saved == nil {
		f.saved = make(map[string][]storage.UsageSnapshot)
	}
	f.saved[monthKey] = snaps
	f.order = append(f.order, monthKey)
	return nil
}

type fakeEvents struct {
	approved  int
	denied    int
	cancelled int
	synced    int
	syncError int
	cleanups  int
}

func (f *fakeEvents) BroadcastReservationApproved(rsv reserva.ReservationInfo, userName string) {
	f.approved++
}
func (f *fakeEvents) BroadcastReservationDenied(rsv reserva.ReservationInfo, detail string) {
	f.denied++
}
func (f *fakeEvents) BroadcastReservationCancelled(rsv reserva.ReservationInfo, detail string) {
	f.cancelled++
}
func (f *fakeEvents) BroadcastRecurringSyncCompleted(users, slots, exceptions int) { f.synced++ }
func (f *fakeEvents) BroadcastRecurringSyncError(err error)                        { f.syncError++ }
func (f *fakeEvents) BroadcastGuestCleanupCompleted(deleted int)                   { f.cleanups++ }

type fixture struct {
	booking   *fakeBooking
	lock      *fakeLock
	roster    *fakeRoster
	approvals *fakeApprovals
	snapshots *fakeSnapshots
	events    *fakeEvents
	service   *Service
}

func newFixture() *fixture {
	f := &fixture{
		booking:   &fakeBooking{},
		lock:      &fakeLock{registerKey: "4321"},
		roster:    &fakeRoster{},
		approvals: &fakeApprovals{},
		snapshots: &fakeSnapshots{existing: map[string]bool{}},
		events:    &fakeEvents{},
	}
	f.service = NewService(f.booking, f.lock, f.roster, f.approvals, f.snapshots, f.events, Config{
		BufferMin:            30,
		HorizonDays:          90,
		ExceptionDefaultDays: 365,
		ExpiredDays:          30,
		SnapshotMonths:       3,
	})
	f.service.now = func() time.Time {
		return time.Date(2022, time.August, 15, 10, 0, 0, 0, time.Local)
	}
	return f
}

func registeredRow() roster.RegistrationRow {
	return roster.RegistrationRow{
		Row:        2,
		Timestamp:  "2022/01/02 10:00:00",
		Email:      "taro@example.com",
		UserName:   "山田 太郎",
		MemberName: "山田 太郎",
		Block:      "2ブロック",
		Kumi:       "2組",
		Objective:  "会合",
	}
}

func pendingReservation() reserva.ReservationInfo {
	return reserva.ReservationInfo{
		HiddenRsvNo:  "h-1",
		VisibleRsvNo: "WJ12345",
		RsvTime:      "2022/08/07 17:00～21:00",
		Name:         "山田 太郎",
		Email:        "taro@example.com",
		Status:       "承認待ち",
	}
}

func TestHandleRequestApprovesRegisteredUser(t *testing.T) {
	f := newFixture()
	f.roster.rows = []roster.RegistrationRow{registeredRow()}
	f.booking.approveResult = reserva.Result{Outcome: reserva.OutcomeSuccess}

	result, err := f.service.HandleRequest(context.Background(), pendingReservation())
	if err != nil {
		t.Fatalf("HandleRequest() error: %v", err)
	}
	if !result.OK {
		t.Error("result not OK")
	}
	want := []string{"request: approve", "success"}
	if len(result.Actions) != 2 || result.Actions[0] != want[0] || result.Actions[1] != want[1] {
		t.Errorf("actions = %v, want %v", result.Actions, want)
	}

	if len(f.lock.registered) != 1 {
		t.Fatalf("registered %d guests, want 1", len(f.lock.registered))
	}
	req := f.lock.registered[0]
	if req.RsvNo != "WJ12345" || req.Email != "taro@example.com" {
		t.Errorf("unexpected guest request %+v", req)
	}
	// 30 minute entry buffer applied to the window start
	if got := req.Window.StartsAt(); got != "2022-08-07T16:30:00" {
		t.Errorf("window start = %q, want 2022-08-07T16:30:00", got)
	}

	if len(f.booking.approveCalls) != 1 {
		t.Fatalf("approve called %d times, want 1", len(f.booking.approveCalls))
	}
	if call := f.booking.approveCalls[0]; call[0] != "h-1" || call[1] != "4321" {
		t.Errorf("approve call = %v, want [h-1 4321]", call)
	}

	if len(f.approvals.entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(f.approvals.entries))
	}
	entry := f.approvals.entries[0]
	if entry.Block != "2ブロック" || entry.Kumi != "2組" {
		t.Errorf("log entry household = %q %q", entry.Block, entry.Kumi)
	}
	if f.events.approved != 1 {
		t.Errorf("approved events = %d, want 1", f.events.approved)
	}
}

func TestHandleRequestDeniesUnregistered(t *testing.T) {
	f := newFixture()
	f.booking.denyResult = reserva.Result{Outcome: reserva.OutcomeSuccess}

	rsv := pendingReservation()
	rsv.Email = "stranger@example.com"
	result, err := f.service.HandleRequest(context.Background(), rsv)
	if err != nil {
		t.Fatalf("HandleRequest() error: %v", err)
	}
	if !result.OK {
		t.Error("result not OK")
	}
	if result.Actions[0] != "request: deny" {
		t.Errorf("actions = %v, want deny first", result.Actions)
	}
	if len(f.booking.denyCalls) != 1 || f.booking.denyCalls[0] != "h-1" {
		t.Errorf("deny calls = %v", f.booking.denyCalls)
	}
	if len(f.lock.registered) != 0 {
		t.Error("guest registered for unregistered requester")
	}

	entry := f.approvals.entries[0]
	if entry.MemberName != "(未登録)" || entry.Block != "(未登録)" {
		t.Errorf("log entry placeholders = %q %q, want (未登録)", entry.MemberName, entry.Block)
	}
	if f.events.denied != 1 {
		t.Errorf("denied events = %d, want 1", f.events.denied)
	}
}

func TestHandleRequestAlreadyHandledStatuses(t *testing.T) {
	tests := []struct {
		status string
		note   string
	}{
		{reserva.StatusConfirmed, "既に確定済みです"},
		{reserva.StatusCancelled, "既にキャンセル済みです"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			f := newFixture()
			f.roster.rows = []roster.RegistrationRow{registeredRow()}

			rsv := pendingReservation()
			rsv.Status = tt.status
			result, err := f.service.HandleRequest(context.Background(), rsv)
			if err != nil {
				t.Fatalf("HandleRequest() error: %v", err)
			}
			if result.Actions[1] != tt.note {
				t.Errorf("actions = %v, want note %q", result.Actions, tt.note)
			}
			if len(f.lock.registered) != 0 || len(f.booking.approveCalls) != 0 {
				t.Error("collaborators called for already-handled reservation")
			}
		})
	}
}

func TestHandleRequestCompensatesFailedApproval(t *testing.T) {
	f := newFixture()
	f.roster.rows = []roster.RegistrationRow{registeredRow()}
	f.booking.approveResult = reserva.Result{Outcome: reserva.OutcomeFailed, Detail: "[9] boom"}

	result, err := f.service.HandleRequest(context.Background(), pendingReservation())
	if err != nil {
		t.Fatalf("HandleRequest() error: %v", err)
	}
	if result.OK {
		t.Error("result OK despite failed approval")
	}
	if len(f.lock.cancelCalls) != 1 || f.lock.cancelCalls[0] != "WJ12345" {
		t.Errorf("compensating cancel calls = %v, want [WJ12345]", f.lock.cancelCalls)
	}
}

func TestHandleRequestApproveAlreadyCancelled(t *testing.T) {
	f := newFixture()
	f.roster.rows = []roster.RegistrationRow{registeredRow()}
	f.booking.approveResult = reserva.Result{Outcome: reserva.OutcomeAlreadyCancelled}

	result, err := f.service.HandleRequest(context.Background(), pendingReservation())
	if err != nil {
		t.Fatalf("HandleRequest() error: %v", err)
	}
	// the requester backed out mid-flight; cleanup happened, nothing failed
	if !result.OK {
		t.Error("result not OK for already-cancelled approval")
	}
	if len(f.lock.cancelCalls) != 1 {
		t.Errorf("compensating cancel calls = %d, want 1", len(f.lock.cancelCalls))
	}
}

func TestHandleRequestDiscontinuousReservation(t *testing.T) {
	f := newFixture()
	f.roster.rows = []roster.RegistrationRow{registeredRow()}
	f.booking.denyResult = reserva.Result{Outcome: reserva.OutcomeSuccess}

	rsv := pendingReservation()
	rsv.RsvTime = "2022/08/07 09:00～13:00, 2022/08/07 17:00～21:00"
	result, err := f.service.HandleRequest(context.Background(), rsv)
	if err != nil {
		t.Fatalf("HandleRequest() error: %v", err)
	}
	if result.OK {
		t.Error("result OK for discontinuous reservation")
	}
	if len(f.lock.registered) != 0 {
		t.Error("guest registered for discontinuous reservation")
	}
	if len(f.booking.denyCalls) != 1 {
		t.Errorf("deny calls = %d, want 1", len(f.booking.denyCalls))
	}
	joined := strings.Join(result.Actions, " ")
	if !strings.Contains(joined, "2022/08/07 09:00～13:00") || !strings.Contains(joined, "2022/08/07 17:00～21:00") {
		t.Errorf("actions %v do not carry both conflicting segments", result.Actions)
	}
}

func TestHandleRequestPrunesDuplicateRows(t *testing.T) {
	f := newFixture()
	older := registeredRow()
	newer := registeredRow()
	newer.Row = 5
	newer.Timestamp = "2022/06/01 10:00:00"
	newer.Objective = "会合"
	f.roster.rows = []roster.RegistrationRow{older, newer}
	f.booking.approveResult = reserva.Result{Outcome: reserva.OutcomeSuccess}

	if _, err := f.service.HandleRequest(context.Background(), pendingReservation()); err != nil {
		t.Fatalf("HandleRequest() error: %v", err)
	}
	pruned := f.roster.pruned["taro@example.com"]
	if len(pruned) != 1 || pruned[0] != 2 {
		t.Errorf("pruned rows = %v, want [2] (older duplicate)", pruned)
	}
}

func TestHandleCancel(t *testing.T) {
	f := newFixture()
	f.lock.cancelFound = true

	rsv := pendingReservation()
	rsv.Status = reserva.StatusCancelled
	result, err := f.service.HandleCancel(context.Background(), rsv)
	if err != nil {
		t.Fatalf("HandleCancel() error: %v", err)
	}
	want := []string{"cancel", "success"}
	if len(result.Actions) != 2 || result.Actions[0] != want[0] || result.Actions[1] != want[1] {
		t.Errorf("actions = %v, want %v", result.Actions, want)
	}
	if f.events.cancelled != 1 {
		t.Errorf("cancelled events = %d, want 1", f.events.cancelled)
	}
}

func TestHandleCancelNotProperlyCancelled(t *testing.T) {
	f := newFixture()
	f.lock.cancelFound = false

	rsv := pendingReservation()
	rsv.Status = reserva.StatusConfirmed
	result, err := f.service.HandleCancel(context.Background(), rsv)
	if err != nil {
		t.Fatalf("HandleCancel() error: %v", err)
	}
	joined := strings.Join(result.Actions, " ")
	if !strings.Contains(joined, "正しくキャンセルされていません") {
		t.Errorf("actions %v missing improper-cancel note", result.Actions)
	}
	if !strings.Contains(joined, "RemoteLock側で既にキャンセルされています。") {
		t.Errorf("actions %v missing already-cancelled note", result.Actions)
	}
}

func TestSyncRecurringAccess(t *testing.T) {
	f := newFixture()
	day := time.Date(2022, time.August, 21, 0, 0, 0, 0, time.Local)
	slot, err := schedule.NewSlot(day, "17:00", "21:00")
	if err != nil {
		t.Fatal(err)
	}
	f.lock.users = []remotelock.AccessUser{
		{
			ID:        "u1",
			Name:      "定期 太郎",
			Timeslots: []schedule.Slot{slot},
			Exceptions: []schedule.ExceptionRange{
				{StartDate: "2022-08-28", EndDate: "2022-08-28"},
			},
		},
	}

	if err := f.service.SyncRecurringAccess(context.Background()); err != nil {
		t.Fatalf("SyncRecurringAccess() error: %v", err)
	}
	if len(f.lock.exceptionCalls["u1"]) != 1 {
		t.Errorf("exception calls for u1 = %v", f.lock.exceptionCalls["u1"])
	}
	if f.events.synced != 1 {
		t.Errorf("synced events = %d, want 1", f.events.synced)
	}
}

func TestCleanupExpiredGuests(t *testing.T) {
	f := newFixture()
	f.lock.deleted = 4

	if err := f.service.CleanupExpiredGuests(context.Background()); err != nil {
		t.Fatalf("CleanupExpiredGuests() error: %v", err)
	}
	if f.events.cleanups != 1 {
		t.Errorf("cleanup events = %d, want 1", f.events.cleanups)
	}
}

func TestSnapshotUsageBackfillStopsAtStoredMonth(t *testing.T) {
	f := newFixture()
	f.snapshots.existing["2022-06"] = true

	if err := f.service.SnapshotUsage(context.Background()); err != nil {
		t.Fatalf("SnapshotUsage() error: %v", err)
	}

	// current month refreshed, July backfilled, June already stored
	if len(f.snapshots.order) != 2 || f.snapshots.order[0] != "2022-08" || f.snapshots.order[1] != "2022-07" {
		t.Fatalf("saved months = %v, want [2022-08 2022-07]", f.snapshots.order)
	}
	if got := len(f.snapshots.saved["2022-08"]); got != 31*4 {
		t.Errorf("August rows = %d, want %d", got, 31*4)
	}
	if got := len(f.snapshots.saved["2022-07"]); got != 31*4 {
		t.Errorf("July rows = %d, want %d", got, 31*4)
	}
}

func TestSnapshotUsageAlwaysRefreshesCurrentMonth(t *testing.T) {
	f := newFixture()
	f.snapshots.existing["2022-08"] = true
	f.snapshots.existing["2022-07"] = true

	if err := f.service.SnapshotUsage(context.Background()); err != nil {
		t.Fatalf("SnapshotUsage() error: %v", err)
	}
	if len(f.snapshots.order) != 1 || f.snapshots.order[0] != "2022-08" {
		t.Errorf("saved months = %v, want just the current month", f.snapshots.order)
	}
}
