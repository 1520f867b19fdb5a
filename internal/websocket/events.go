package websocket

import (
	"log"

	"github.com/kempei/reservalock/internal/reserva"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastReservationApproved sends a reservation approved event.
func (b *EventBroadcaster) BroadcastReservationApproved(rsv reserva.ReservationInfo, userName string) {
	b.broadcast(NewMessage(TypeReservationApproved, ReservationPayload{
		RsvNo:    rsv.VisibleRsvNo,
		RsvTime:  rsv.RsvTime,
		Email:    rsv.Email,
		UserName: userName,
	}))
}

// BroadcastReservationDenied sends a reservation denied event.
func (b *EventBroadcaster) BroadcastReservationDenied(rsv reserva.ReservationInfo, detail string) {
	b.broadcast(NewMessage(TypeReservationDenied, ReservationPayload{
		RsvNo:   rsv.VisibleRsvNo,
		RsvTime: rsv.RsvTime,
		Email:   rsv.Email,
		Detail:  detail,
	}))
}

// BroadcastReservationCancelled sends a reservation cancelled event.
func (b *EventBroadcaster) BroadcastReservationCancelled(rsv reserva.ReservationInfo, detail string) {
	b.broadcast(NewMessage(TypeReservationCancelled, ReservationPayload{
		RsvNo:   rsv.VisibleRsvNo,
		RsvTime: rsv.RsvTime,
		Email:   rsv.Email,
		Detail:  detail,
	}))
}

// BroadcastRecurringSyncCompleted sends a recurring sync completed event.
func (b *EventBroadcaster) BroadcastRecurringSyncCompleted(users, slots, exceptions int) {
	b.broadcast(NewMessage(TypeRecurringSyncCompleted, RecurringSyncPayload{
		Status:         "success",
		UsersProcessed: users,
		SlotsExpanded:  slots,
		ExceptionsSet:  exceptions,
	}))
}

// BroadcastRecurringSyncError sends a recurring sync error event.
func (b *EventBroadcaster) BroadcastRecurringSyncError(err error) {
	b.broadcast(NewMessage(TypeRecurringSyncError, RecurringSyncErrorPayload{
		Error:   "sync_error",
		Message: err.Error(),
	}))
}

// BroadcastGuestCleanupCompleted sends a guest cleanup completed event.
func (b *EventBroadcaster) BroadcastGuestCleanupCompleted(deleted int) {
	b.broadcast(NewMessage(TypeGuestCleanupCompleted, GuestCleanupPayload{
		DeletedCount: deleted,
	}))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
