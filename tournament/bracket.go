package tournament

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/google/uuid"
)

// Match はブラケット内の1マッチです。Winnerはマッチ確定時に一度だけ書かれます。
type Match struct {
	ID      string `json:"id"`
	Round   int    `json:"round"` // 0始まり
	Index   int    `json:"index"` // ラウンド内の位置
	Player1 string `json:"player1,omitempty"`
	Player2 string `json:"player2,omitempty"`
	Winner  string `json:"winner,omitempty"`
	Bye     bool   `json:"bye,omitempty"`
}

// Ready は両スロットが埋まっていて対戦可能かを返します。
func (m *Match) Ready() bool {
	return m.Player1 != "" && m.Player2 != "" && m.Winner == ""
}

// Decided は結果が書き込まれているかを返します。
func (m *Match) Decided() bool {
	return m.Winner != ""
}

// Loser は敗者を返します。bye・未確定なら空です。
func (m *Match) Loser() string {
	if m.Winner == "" || m.Bye {
		return ""
	}
	if m.Winner == m.Player1 {
		return m.Player2
	}
	return m.Player1
}

var ErrTooFewPlayers = errors.New("tournament needs at least 2 players")

// roundCount はceil(log2(n))です。
func roundCount(n int) int {
	return bits.Len(uint(n - 1))
}

// bracketSize は2^ceil(log2(n))です。
func bracketSize(n int) int {
	return 1 << roundCount(n)
}

// generateBracket は登録順のプレイヤーリストからラウンドごとのマッチを生成します。
//
// bye付与は明示的なルールで行います: 埋まらないスロット数ぶんのbyeを
// 登録順の先頭から1人ずつ割り当て、bye保持者は第1ラウンドを不戦勝で通過します。
// これによりラウンド数は常にceil(log2(n))で、進行処理に特別扱いは不要です。
func generateBracket(players []string) ([][]*Match, error) {
	n := len(players)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPlayers, n)
	}

	rounds := roundCount(n)
	size := bracketSize(n)
	byes := size - n

	bracket := make([][]*Match, rounds)
	for r := range bracket {
		matchCount := size >> (r + 1)
		bracket[r] = make([]*Match, matchCount)
		for i := range bracket[r] {
			bracket[r][i] = &Match{
				ID:    uuid.NewString(),
				Round: r,
				Index: i,
			}
		}
	}

	// 先頭byes人は単独スロット（不戦勝）、残りを順にペアで詰める
	for i := 0; i < byes; i++ {
		m := bracket[0][i]
		m.Player1 = players[i]
		m.Bye = true
		m.Winner = players[i]
	}
	next := byes
	for i := byes; i < len(bracket[0]); i++ {
		m := bracket[0][i]
		m.Player1 = players[next]
		m.Player2 = players[next+1]
		next += 2
	}

	// bye通過者を次ラウンドへ先行スロットする
	for _, m := range bracket[0] {
		if m.Bye {
			slotWinner(bracket, m)
		}
	}

	return bracket, nil
}

// slotWinner は確定したマッチの勝者を次ラウンドの対応スロットへ入れます。
func slotWinner(bracket [][]*Match, m *Match) {
	if m.Round+1 >= len(bracket) {
		return // 決勝
	}
	nextMatch := bracket[m.Round+1][m.Index/2]
	if m.Index%2 == 0 {
		nextMatch.Player1 = m.Winner
	} else {
		nextMatch.Player2 = m.Winner
	}
}
