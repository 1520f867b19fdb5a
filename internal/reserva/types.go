package reserva

import "fmt"

// Reservation statuses as the booking site renders them.
const (
	StatusConfirmed = "予約確定"
	StatusCancelled = "キャンセル"
)

// ReservationInfo is one reservation as reported by the booking
// platform's notification webhook. HiddenRsvNo drives API calls,
// VisibleRsvNo is what the requester sees in mail and screens.
type ReservationInfo struct {
	HiddenRsvNo  string `json:"hidden_rsv_no"`
	VisibleRsvNo string `json:"visible_rsv_no"`
	RsvTime      string `json:"rsv_time"`
	Name         string `json:"name"`
	NameKana     string `json:"name_kana"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Status       string `json:"rsv_status"`
}

// Outcome classifies a status-change call. Already-cancelled is a
// normal business condition, not an error, so callers can branch on it
// without unwrapping anything.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAlreadyCancelled
	OutcomeFailed
)

// Result is the outcome of an approve or deny call together with a
// human-readable detail suitable for the approval log.
type Result struct {
	Outcome Outcome
	Detail  string
}

// String renders the result the way the approval log records it.
func (r Result) String() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyCancelled:
		return "already cancelled"
	default:
		if r.Detail == "" {
			return "fail"
		}
		return fmt.Sprintf("fail: %s", r.Detail)
	}
}
