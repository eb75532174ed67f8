package tournament

import (
	"errors"
	"testing"
)

func players(names ...string) []string { return names }

// playOut は残りの全マッチをPlayer1勝ちで消化して優勝者を返します。
func playOut(t *testing.T, tr *Tournament) string {
	t.Helper()
	for !tr.IsComplete() {
		m := tr.Current()
		if m == nil {
			var err error
			m, err = tr.StartNext()
			if err != nil {
				t.Fatalf("StartNext: %v", err)
			}
		}
		if err := tr.RecordResult(m.ID, m.Player1); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}
	champ, ok := tr.Champion()
	if !ok {
		t.Fatalf("tournament complete but no champion")
	}
	return champ
}

func TestNewRejectsTooFewPlayers(t *testing.T) {
	if _, err := New(players("alone")); !errors.Is(err, ErrTooFewPlayers) {
		t.Fatalf("want ErrTooFewPlayers, got %v", err)
	}
	if _, err := New(nil); !errors.Is(err, ErrTooFewPlayers) {
		t.Fatalf("want ErrTooFewPlayers, got %v", err)
	}
}

func TestBracketShape(t *testing.T) {
	cases := []struct {
		n      int
		rounds int
		byes   int
	}{
		{2, 1, 0},
		{3, 2, 1},
		{4, 2, 0},
		{5, 3, 3},
		{8, 3, 0},
	}
	for _, tc := range cases {
		names := make([]string, tc.n)
		for i := range names {
			names[i] = string(rune('a' + i))
		}
		tr, err := New(names)
		if err != nil {
			t.Fatalf("New(%d): %v", tc.n, err)
		}
		if got := tr.Rounds(); got != tc.rounds {
			t.Errorf("n=%d rounds=%d want %d", tc.n, got, tc.rounds)
		}
		byes := 0
		for _, m := range tr.bracket[0] {
			if m.Bye {
				byes++
				if m.Winner != m.Player1 {
					t.Errorf("n=%d bye match %s not pre-resolved", tc.n, m.ID)
				}
			}
		}
		if byes != tc.byes {
			t.Errorf("n=%d byes=%d want %d", tc.n, byes, tc.byes)
		}
	}
}

func TestByesGoToEarliestEnrollees(t *testing.T) {
	tr, err := New(players("first", "second", "third", "fourth", "fifth"))
	if err != nil {
		t.Fatal(err)
	}
	// 5人なら枠8で3人が不戦勝、登録順の先頭3人がそれです
	for i, want := range []string{"first", "second", "third"} {
		m := tr.bracket[0][i]
		if !m.Bye || m.Player1 != want {
			t.Errorf("slot %d: bye=%v player=%q want bye for %q", i, m.Bye, m.Player1, want)
		}
	}
	last := tr.bracket[0][3]
	if last.Player1 != "fourth" || last.Player2 != "fifth" {
		t.Errorf("final round-one match pairs %q vs %q", last.Player1, last.Player2)
	}
}

func TestFullRunEliminatesAllButOne(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 8} {
		names := make([]string, n)
		for i := range names {
			names[i] = string(rune('A' + i))
		}
		tr, err := New(names)
		if err != nil {
			t.Fatalf("New(%d): %v", n, err)
		}
		champ := playOut(t, tr)
		if len(tr.Losers()) != n-1 {
			t.Errorf("n=%d losers=%d want %d", n, len(tr.Losers()), n-1)
		}
		if _, eliminated := tr.Losers()[champ]; eliminated {
			t.Errorf("n=%d champion %q is also a loser", n, champ)
		}
	}
}

func TestRecordResultValidation(t *testing.T) {
	tr, err := New(players("a", "b", "c", "d"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := tr.StartNext()
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.RecordResult("nope", "a"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("want ErrMatchNotFound, got %v", err)
	}
	if err := tr.RecordResult(m.ID, "stranger"); !errors.Is(err, ErrUnknownWinner) {
		t.Errorf("want ErrUnknownWinner, got %v", err)
	}
	if err := tr.RecordResult(m.ID, m.Player2); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if err := tr.RecordResult(m.ID, m.Player1); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("want ErrAlreadyDecided, got %v", err)
	}
}

func TestStartNextRefusesWhileMatchOpen(t *testing.T) {
	tr, err := New(players("a", "b", "c", "d"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.StartNext(); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.StartNext(); !errors.Is(err, ErrNoReadyMatch) {
		t.Errorf("want ErrNoReadyMatch, got %v", err)
	}
}

func TestWinnerAdvancesToNextRound(t *testing.T) {
	tr, err := New(players("a", "b", "c", "d"))
	if err != nil {
		t.Fatal(err)
	}
	m1, _ := tr.StartNext()
	if err := tr.RecordResult(m1.ID, "b"); err != nil {
		t.Fatal(err)
	}
	final := tr.bracket[1][0]
	if final.Player1 != "b" {
		t.Errorf("final Player1=%q want %q", final.Player1, "b")
	}
	m2, _ := tr.StartNext()
	if err := tr.RecordResult(m2.ID, "c"); err != nil {
		t.Fatal(err)
	}
	if final.Player2 != "c" {
		t.Errorf("final Player2=%q want %q", final.Player2, "c")
	}
	fm, _ := tr.StartNext()
	if fm != final {
		t.Fatalf("StartNext returned %v, want final", fm)
	}
	if err := tr.RecordResult(fm.ID, "c"); err != nil {
		t.Fatal(err)
	}
	champ, ok := tr.Champion()
	if !ok || champ != "c" {
		t.Errorf("champion=%q ok=%v want %q", champ, ok, "c")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tr, err := New(players("a", "b", "c", "d", "e"))
	if err != nil {
		t.Fatal(err)
	}
	m, _ := tr.StartNext()
	if err := tr.RecordResult(m.ID, m.Player1); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.StartNext(); err != nil {
		t.Fatal(err)
	}

	raw, err := tr.MarshalSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	got, err := FromSnapshot(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID() != tr.ID() {
		t.Errorf("id %q want %q", got.ID(), tr.ID())
	}
	if got.Current() == nil || got.Current().ID != tr.Current().ID {
		t.Errorf("current not restored")
	}
	if len(got.Completed()) != len(tr.Completed()) {
		t.Errorf("completed=%d want %d", len(got.Completed()), len(tr.Completed()))
	}
	if len(got.Losers()) != len(tr.Losers()) {
		t.Errorf("losers=%d want %d", len(got.Losers()), len(tr.Losers()))
	}

	// 復元後も通常どおり進行できる
	champ := playOut(t, got)
	if champ == "" {
		t.Fatal("no champion after restored run")
	}
}
