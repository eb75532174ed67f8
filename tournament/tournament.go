package tournament

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchNotCurrent = errors.New("match is not the current match")
	ErrAlreadyDecided  = errors.New("match result already recorded")
	ErrUnknownWinner   = errors.New("winner is not a participant of the match")
	ErrNoReadyMatch    = errors.New("no ready match to start")
)

// Tournament はシングルエリミネーションのブラケット進行状態です。
// マッチは1つずつ順に進み、敗者ブラケットはありません。
type Tournament struct {
	id      string
	players []string
	bracket [][]*Match

	completed []*Match
	current   *Match

	losers map[string]struct{}
}

// New は登録順のプレイヤーリストからトーナメントを生成します。
func New(players []string) (*Tournament, error) {
	bracket, err := generateBracket(players)
	if err != nil {
		return nil, err
	}
	t := &Tournament{
		id:      uuid.NewString(),
		players: append([]string(nil), players...),
		bracket: bracket,
		losers:  make(map[string]struct{}),
	}
	// byeは即確定扱いでcompletedに積む
	for _, m := range bracket[0] {
		if m.Bye {
			t.completed = append(t.completed, m)
		}
	}
	return t, nil
}

func (t *Tournament) ID() string        { return t.id }
func (t *Tournament) Players() []string { return t.players }
func (t *Tournament) Rounds() int       { return len(t.bracket) }
func (t *Tournament) Current() *Match   { return t.current }

// Completed は確定済みマッチを確定順で返します。
func (t *Tournament) Completed() []*Match {
	return t.completed
}

// Upcoming は未確定のマッチをラウンド順で返します。
func (t *Tournament) Upcoming() []*Match {
	var out []*Match
	for _, round := range t.bracket {
		for _, m := range round {
			if !m.Decided() && m != t.current {
				out = append(out, m)
			}
		}
	}
	return out
}

// StartNext は対戦可能な次のマッチをcurrentにします。
func (t *Tournament) StartNext() (*Match, error) {
	if t.current != nil {
		return nil, fmt.Errorf("%w: current match still open", ErrNoReadyMatch)
	}
	for _, round := range t.bracket {
		for _, m := range round {
			if m.Ready() {
				t.current = m
				return m, nil
			}
		}
	}
	return nil, ErrNoReadyMatch
}

// RecordResult はマッチの結果を一度だけ書き込み、勝者を次ラウンドへ進めます。
// 敗者はlosersに記録されます（敗者ブラケットの進行はありません）。
func (t *Tournament) RecordResult(matchID, winner string) error {
	m := t.find(matchID)
	if m == nil {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if m.Decided() {
		return fmt.Errorf("%w: %s", ErrAlreadyDecided, matchID)
	}
	if t.current != nil && t.current != m {
		return fmt.Errorf("%w: %s", ErrMatchNotCurrent, matchID)
	}
	if winner != m.Player1 && winner != m.Player2 {
		return fmt.Errorf("%w: %q in %s", ErrUnknownWinner, winner, matchID)
	}

	m.Winner = winner
	if loser := m.Loser(); loser != "" {
		t.losers[loser] = struct{}{}
	}
	slotWinner(t.bracket, m)
	t.completed = append(t.completed, m)
	if t.current == m {
		t.current = nil
	}
	return nil
}

// IsComplete は未確定マッチもcurrentも残っていないときtrueです。
func (t *Tournament) IsComplete() bool {
	return t.current == nil && len(t.Upcoming()) == 0
}

// Champion は決勝の勝者を返します。未完了ならfalseです。
func (t *Tournament) Champion() (string, bool) {
	if !t.IsComplete() {
		return "", false
	}
	final := t.bracket[len(t.bracket)-1][0]
	return final.Winner, final.Winner != ""
}

// Winners は敗退していないマッチ勝者の集合です。
func (t *Tournament) Winners() map[string]struct{} {
	winners := make(map[string]struct{})
	for _, m := range t.completed {
		if _, eliminated := t.losers[m.Winner]; !eliminated {
			winners[m.Winner] = struct{}{}
		}
	}
	return winners
}

// Losers は敗退者の集合です。
func (t *Tournament) Losers() map[string]struct{} {
	out := make(map[string]struct{}, len(t.losers))
	for k := range t.losers {
		out[k] = struct{}{}
	}
	return out
}

func (t *Tournament) find(matchID string) *Match {
	for _, round := range t.bracket {
		for _, m := range round {
			if m.ID == matchID {
				return m
			}
		}
	}
	return nil
}

// Snapshot はtournament_updateで丸ごと配送される全体スナップショットです。
type Snapshot struct {
	ID        string     `json:"id"`
	Players   []string   `json:"players"`
	Bracket   [][]*Match `json:"bracket"`
	CurrentID string     `json:"currentId,omitempty"`
	Champion  string     `json:"champion,omitempty"`
	Complete  bool       `json:"complete"`
}

func (t *Tournament) Snapshot() Snapshot {
	s := Snapshot{
		ID:       t.id,
		Players:  t.players,
		Bracket:  t.bracket,
		Complete: t.IsComplete(),
	}
	if t.current != nil {
		s.CurrentID = t.current.ID
	}
	if champ, ok := t.Champion(); ok {
		s.Champion = champ
	}
	return s
}

// MarshalSnapshot はスナップショットをJSONにします。
func (t *Tournament) MarshalSnapshot() (json.RawMessage, error) {
	return json.Marshal(t.Snapshot())
}

// FromSnapshot は受信した全体スナップショットから状態を再構築します。
// 差分適用はせず、常に置き換えです。
func FromSnapshot(data json.RawMessage) (*Tournament, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if len(s.Bracket) == 0 {
		return nil, errors.New("snapshot has no bracket")
	}
	t := &Tournament{
		id:      s.ID,
		players: s.Players,
		bracket: s.Bracket,
		losers:  make(map[string]struct{}),
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	for _, round := range s.Bracket {
		for _, m := range round {
			if m.Decided() {
				t.completed = append(t.completed, m)
				if loser := m.Loser(); loser != "" {
					t.losers[loser] = struct{}{}
				}
			}
			if m.ID == s.CurrentID {
				t.current = m
			}
		}
	}
	return t, nil
}
