package match

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"volley/domain"
	"volley/game"
)

// State はマッチのライフサイクル状態です。
type State uint8

const (
	StateIdle State = iota
	StateQueued
	StateActive
	StateRoundComplete
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQueued:
		return "queued"
	case StateActive:
		return "active"
	case StateRoundComplete:
		return "round_complete"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// FinishReason は終了状態に入った理由です。
// ラウンド目標到達と没収（切断）は別の終了理由として扱います。
type FinishReason uint8

const (
	FinishRoundTarget FinishReason = iota + 1
	FinishForfeit
	FinishConnectionLost
	FinishAborted
)

func (r FinishReason) String() string {
	switch r {
	case FinishRoundTarget:
		return "round_target"
	case FinishForfeit:
		return "forfeit"
	case FinishConnectionLost:
		return "connection_lost"
	case FinishAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// Result は終了時に外へ報告されるペイロードです。
type Result struct {
	RoundsPlayed  int
	TargetRounds  int
	IsMultiplayer bool
	IsTournament  bool
	Score         domain.Score
	Winner        domain.Side
	Reason        FinishReason
}

var ErrInvalidTransition = errors.New("invalid session state transition")

// Session は1マッチ分の状態を持ちます。対応するエンジン・設定・ローカル側
// はセッション生成時に固定され、グローバル状態は持ちません。
// 複数マッチは独立したSessionインスタンスとして並行実行できます。
type Session struct {
	id            string
	engine        *game.Engine
	localSide     domain.Side
	isMultiplayer bool
	isTournament  bool

	state State
}

func NewSession(cfg game.MatchConfig, localSide domain.Side, seed uint64, multiplayer, tournament bool) (*Session, error) {
	if !localSide.Valid() {
		return nil, fmt.Errorf("%w: side %q", game.ErrInvalidConfig, localSide)
	}
	engine, err := game.NewEngine(cfg, seed)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:            uuid.NewString(),
		engine:        engine,
		localSide:     localSide,
		isMultiplayer: multiplayer,
		isTournament:  tournament,
		state:         StateIdle,
	}, nil
}

func (s *Session) ID() string             { return s.id }
func (s *Session) State() State           { return s.state }
func (s *Session) Engine() *game.Engine   { return s.engine }
func (s *Session) LocalSide() domain.Side { return s.localSide }
func (s *Session) IsMultiplayer() bool    { return s.isMultiplayer }
func (s *Session) IsTournament() bool     { return s.isTournament }

// Enqueue はマッチメイキング待機への遷移です。マルチプレイヤーのみ有効です。
func (s *Session) Enqueue() error {
	if s.state != StateIdle || !s.isMultiplayer {
		return fmt.Errorf("%w: %s -> queued", ErrInvalidTransition, s.state)
	}
	s.state = StateQueued
	return nil
}

// Activate はtickループ開始の遷移です。
func (s *Session) Activate() error {
	if s.state != StateIdle && s.state != StateQueued && s.state != StateRoundComplete {
		return fmt.Errorf("%w: %s -> active", ErrInvalidTransition, s.state)
	}
	s.state = StateActive
	return nil
}

// MarkRoundComplete はラウンド確定時の自己ループ遷移です。
func (s *Session) MarkRoundComplete() error {
	if s.state != StateActive {
		return fmt.Errorf("%w: %s -> round_complete", ErrInvalidTransition, s.state)
	}
	s.state = StateRoundComplete
	return nil
}

// Finish は終端遷移です。結果ペイロードを返します。
// Activeのまま残ることはなく、どの理由でも必ずFinishedに到達します。
func (s *Session) Finish(reason FinishReason) (Result, error) {
	if s.state == StateFinished {
		return Result{}, fmt.Errorf("%w: already finished", ErrInvalidTransition)
	}
	s.state = StateFinished
	s.engine.Halt()

	score := s.engine.Score()
	winner := domain.Side("")
	if reason == FinishRoundTarget {
		if score.Left > score.Right {
			winner = domain.SideLeft
		} else if score.Right > score.Left {
			winner = domain.SideRight
		}
	}
	if reason == FinishForfeit {
		// 切断した側の負け。残った側＝ローカルの勝ち
		winner = s.localSide
	}

	return Result{
		RoundsPlayed:  s.engine.RoundsPlayed(),
		TargetRounds:  s.engine.Config().Rounds,
		IsMultiplayer: s.isMultiplayer,
		IsTournament:  s.isTournament,
		Score:         score,
		Winner:        winner,
		Reason:        reason,
	}, nil
}
