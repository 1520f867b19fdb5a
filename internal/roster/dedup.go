package roster

import "time"

// scoreEpoch anchors the recency score; registrations predate nothing
// earlier than this.
var scoreEpoch = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.Local)

// objectiveBonus guarantees a row with a stated objective outranks any row
// without one, regardless of recency: 100 years of seconds.
const objectiveBonus = float64(3600 * 24 * 365 * 100)

// Resolve picks the canonical registration row among duplicates sharing an
// email and returns the sheet row references of every loser, which the
// collaborator deletes from the source sheet.
//
// Each row scores its seconds since the epoch, plus the objective bonus when
// the objective field is non-empty. The strictly greatest score wins; on a
// tie the earliest-encountered row stays canonical. No candidates yields
// (nil, nil, nil).
func Resolve(email string, candidates []RegistrationRow) (*RegistrationRow, []int, error) {
	var best *RegistrationRow
	bestScore := 0.0
	var deletions []int

	for i := range candidates {
		row := &candidates[i]
		ts, err := parseTimestamp(row.Timestamp)
		if err != nil {
			return nil, nil, err
		}
		score := ts.Sub(scoreEpoch).Seconds()
		if row.Objective != "" {
			score += objectiveBonus
		}
		if best == nil {
			best = row
			bestScore = score
			continue
		}
		if score > bestScore {
			deletions = append(deletions, best.Row)
			best = row
			bestScore = score
		} else {
			deletions = append(deletions, row.Row)
		}
	}

	return best, deletions, nil
}
