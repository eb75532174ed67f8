package match

import (
	"errors"
	"testing"

	"volley/domain"
	"volley/game"
)

func newTestSession(t *testing.T, multiplayer, tournament bool) *Session {
	t.Helper()
	s, err := NewSession(game.DefaultConfig(), domain.SideLeft, 1, multiplayer, tournament)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func TestNewSessionRejectsInvalidSide(t *testing.T) {
	if _, err := NewSession(game.DefaultConfig(), domain.Side("middle"), 1, false, false); err == nil {
		t.Error("invalid side accepted")
	}
}

func TestSessionLifecycleSinglePlayer(t *testing.T) {
	s := newTestSession(t, false, false)
	if got := s.State(); got != StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}

	// シングルプレイヤーは待機列に入れない
	if err := s.Enqueue(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Enqueue on single player: err = %v, want ErrInvalidTransition", err)
	}

	if err := s.Activate(); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if err := s.MarkRoundComplete(); err != nil {
		t.Fatalf("MarkRoundComplete failed: %v", err)
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate after round failed: %v", err)
	}
}

func TestSessionQueuedPath(t *testing.T) {
	s := newTestSession(t, true, false)
	if err := s.Enqueue(); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if got := s.State(); got != StateQueued {
		t.Fatalf("state = %v, want queued", got)
	}
	if err := s.Enqueue(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double Enqueue: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.MarkRoundComplete(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkRoundComplete while queued: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate from queued failed: %v", err)
	}
}

func TestSessionFinishForfeitAwardsLocalSide(t *testing.T) {
	s := newTestSession(t, true, true)
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	result, err := s.Finish(FinishForfeit)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if result.Winner != domain.SideLeft {
		t.Errorf("winner = %q, want local side left", result.Winner)
	}
	if result.Reason != FinishForfeit {
		t.Errorf("reason = %v, want forfeit", result.Reason)
	}
	if !result.IsMultiplayer || !result.IsTournament {
		t.Errorf("flags lost: multiplayer=%v tournament=%v", result.IsMultiplayer, result.IsTournament)
	}
	if got := s.State(); got != StateFinished {
		t.Errorf("state = %v, want finished", got)
	}
}

func TestSessionFinishRoundTargetTieHasNoWinner(t *testing.T) {
	s := newTestSession(t, false, false)
	result, err := s.Finish(FinishRoundTarget)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if result.Winner != domain.Side("") {
		t.Errorf("winner = %q on 0-0, want empty", result.Winner)
	}
	if result.TargetRounds != game.DefaultConfig().Rounds {
		t.Errorf("target rounds = %d, want %d", result.TargetRounds, game.DefaultConfig().Rounds)
	}
}

func TestSessionFinishIsTerminal(t *testing.T) {
	s := newTestSession(t, false, false)
	if _, err := s.Finish(FinishAborted); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if _, err := s.Finish(FinishAborted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Finish: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.Activate(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Activate after finish: err = %v, want ErrInvalidTransition", err)
	}
}

func TestStateAndReasonStrings(t *testing.T) {
	if got := StateRoundComplete.String(); got != "round_complete" {
		t.Errorf("State string = %q", got)
	}
	if got := FinishConnectionLost.String(); got != "connection_lost" {
		t.Errorf("FinishReason string = %q", got)
	}
	if got := State(99).String(); got != "unknown(99)" {
		t.Errorf("unknown state string = %q", got)
	}
}
