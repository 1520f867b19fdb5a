package roster

import "testing"

func TestResolveObjectiveOutranksRecency(t *testing.T) {
	// Three rows for the same address: the row with an objective wins even
	// though a later row exists without one.
	candidates := []RegistrationRow{
		{Row: 2, Timestamp: "2022/01/01 09:00:00", Email: "hanako@example.com", UserName: "花子"},
		{Row: 3, Timestamp: "2022/06/01 09:00:00", Email: "hanako@example.com", UserName: "花子"},
		{Row: 4, Timestamp: "2022/01/02 09:00:00", Email: "hanako@example.com", UserName: "花子", Objective: "サークル活動"},
	}

	canonical, deletions, err := Resolve("hanako@example.com", candidates)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if canonical == nil || canonical.Row != 4 {
		t.Fatalf("canonical = %+v, want row 4", canonical)
	}
	if len(deletions) != 2 {
		t.Fatalf("deletions = %v, want rows 2 and 3", deletions)
	}
	seen := map[int]bool{}
	for _, d := range deletions {
		seen[d] = true
	}
	if !seen[2] || !seen[3] {
		t.Errorf("deletions = %v, want rows 2 and 3", deletions)
	}
}

func TestResolveRecencyWins(t *testing.T) {
	candidates := []RegistrationRow{
		{Row: 2, Timestamp: "2022/03/01 00:00:00", Email: "a@example.com"},
		{Row: 3, Timestamp: "2022/04/01 00:00:00", Email: "a@example.com"},
	}
	canonical, deletions, err := Resolve("a@example.com", candidates)
	if err != nil {
		t.Fatal(err)
	}
	if canonical.Row != 3 {
		t.Errorf("canonical row = %d, want 3", canonical.Row)
	}
	if len(deletions) != 1 || deletions[0] != 2 {
		t.Errorf("deletions = %v, want [2]", deletions)
	}
}

func TestResolveTieFavorsFirstSeen(t *testing.T) {
	candidates := []RegistrationRow{
		{Row: 5, Timestamp: "2022/02/01 12:00:00", Email: "b@example.com"},
		{Row: 6, Timestamp: "2022/02/01 12:00:00", Email: "b@example.com"},
	}
	canonical, deletions, err := Resolve("b@example.com", candidates)
	if err != nil {
		t.Fatal(err)
	}
	if canonical.Row != 5 {
		t.Errorf("canonical row = %d, want first-seen 5", canonical.Row)
	}
	if len(deletions) != 1 || deletions[0] != 6 {
		t.Errorf("deletions = %v, want [6]", deletions)
	}
}

func TestResolveNoCandidates(t *testing.T) {
	canonical, deletions, err := Resolve("none@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if canonical != nil || len(deletions) != 0 {
		t.Errorf("want (nil, empty), got (%v, %v)", canonical, deletions)
	}
}

func TestResolveDeletionSetIsComplement(t *testing.T) {
	candidates := []RegistrationRow{
		{Row: 2, Timestamp: "2022/05/01 00:00:00", Email: "c@example.com"},
		{Row: 3, Timestamp: "2022/01/15 00:00:00", Email: "c@example.com", Objective: "会合"},
		{Row: 4, Timestamp: "2022/07/01 00:00:00", Email: "c@example.com"},
		{Row: 5, Timestamp: "2022/02/01 00:00:00", Email: "c@example.com", Objective: "行事"},
	}
	canonical, deletions, err := Resolve("c@example.com", candidates)
	if err != nil {
		t.Fatal(err)
	}
	// Row 5: objective bonus plus latest timestamp among objective rows.
	if canonical.Row != 5 {
		t.Fatalf("canonical row = %d, want 5", canonical.Row)
	}
	if len(deletions) != len(candidates)-1 {
		t.Fatalf("deletion set not the complement: %v", deletions)
	}
	for _, d := range deletions {
		if d == canonical.Row {
			t.Errorf("canonical row %d present in deletions %v", d, deletions)
		}
	}
}

func TestResolveBadTimestamp(t *testing.T) {
	candidates := []RegistrationRow{
		{Row: 2, Timestamp: "yesterday", Email: "d@example.com"},
	}
	if _, _, err := Resolve("d@example.com", candidates); err == nil {
		t.Fatal("expected error for unparsable timestamp")
	}
}
