package schedule

import "fmt"

// DiscontinuousReservationError reports a reservation whose printed time
// segments are not end-to-end contiguous. Both offending segment labels are
// carried verbatim so the caller can embed them in the denial message.
type DiscontinuousReservationError struct {
	First  string
	Second string
}

func (e *DiscontinuousReservationError) Error() string {
	return fmt.Sprintf("連続していない複数の予約はサポートされていません。予約されている時間帯: [%s] [%s]", e.First, e.Second)
}

// MalformedPolicyError reports an access policy entry that cannot be
// expanded: an unrecognized weekday symbol, an odd-length slot list, or an
// unparsable time value. Expansion aborts rather than skipping the entry so
// data-entry errors in the policy JSON are not silently masked.
type MalformedPolicyError struct {
	Day    string
	Reason string
}

func (e *MalformedPolicyError) Error() string {
	return fmt.Sprintf("malformed access policy (day=%q): %s", e.Day, e.Reason)
}
