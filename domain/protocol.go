package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MsgType はメッセージの種別です。
// リレーとピアの間のワイヤ形式はJSONエンベロープで、typeフィールドで判別します。
type MsgType string

const (
	MsgJoin               MsgType = "join"
	MsgLeave              MsgType = "leave"
	MsgStartGame          MsgType = "start_game"
	MsgGameUpdate         MsgType = "game_update"
	MsgGameOver           MsgType = "game_over"
	MsgTournamentUpdate   MsgType = "tournament_update"
	MsgTournamentGameOver MsgType = "tournament_game_over"
	MsgHostAnnounce       MsgType = "host_announce"
	MsgPing               MsgType = "ping"
	MsgPong               MsgType = "pong"
)

var (
	ErrInvalidEnvelope    = errors.New("invalid message envelope")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Join はマッチメイキング待機列への参加要求です。
type Join struct {
	Type     MsgType `json:"type"`
	Nickname string  `json:"nickname"`
	Token    string  `json:"token"`
	Rounds   int     `json:"rounds"`
}

// Leave は待機列からの自発的な離脱、または切断通知です。
type Leave struct {
	Type     MsgType `json:"type"`
	Nickname string  `json:"nickname,omitempty"`
}

// StartGame はマッチ割り当て通知です。MatchSessionの初期化に使われます。
type StartGame struct {
	Type         MsgType `json:"type"`
	Rounds       int     `json:"rounds"`
	PlayerSide   Side    `json:"player_side"`
	Opponent     string  `json:"opponent,omitempty"`
	Room         string  `json:"room"`
	IsTournament bool    `json:"is_tournament"`
}

// SyncState はボール権限側が送る全状態スナップショットです。
type SyncState struct {
	Frame        uint64  `json:"frame"`
	BallX        float64 `json:"ballX"`
	BallY        float64 `json:"ballY"`
	BallVX       float64 `json:"ballVX"`
	BallVY       float64 `json:"ballVY"`
	BallSpeed    float64 `json:"ballSpeed"`
	LeftPaddleY  float64 `json:"leftPaddleY"`
	RightPaddleY float64 `json:"rightPaddleY"`
	ForceReset   bool    `json:"forceReset,omitempty"`
}

// GameUpdateData はパドル位置またはスナップショットのどちらか（または両方）を運びます。
type GameUpdateData struct {
	PaddleY *float64   `json:"paddleY,omitempty"`
	Sync    *SyncState `json:"syncState,omitempty"`
}

// GameUpdate はtickごとの対戦相手入力またはボール権限スナップショットです。
type GameUpdate struct {
	Type MsgType        `json:"type"`
	Data GameUpdateData `json:"data"`
}

// Score は左右のラウンド取得数です。
type Score struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// GameOver はマッチ終了通知です。Forfeitは切断による没収試合を表します。
type GameOver struct {
	Type    MsgType `json:"type"`
	Score   Score   `json:"score"`
	Winner  string  `json:"winner,omitempty"`
	Forfeit bool    `json:"forfeit,omitempty"`
}

// TournamentUpdate はトーナメント全体のスナップショットです。
// ブラケット側は差分ではなく全体を受け取って置き換えます。
type TournamentUpdate struct {
	Type       MsgType         `json:"type"`
	Tournament json.RawMessage `json:"tournament"`
}

// TournamentGameOver はトーナメント対象マッチの終了報告です。
type TournamentGameOver struct {
	Type   MsgType `json:"type"`
	Score  Score   `json:"score"`
	Winner string  `json:"winner"`
}

// HostAnnounce はtickループ開始前に交換されるホスト宣言ハンドシェイクです。
type HostAnnounce struct {
	Type      MsgType `json:"type"`
	Side      Side    `json:"side"`
	SessionID string  `json:"session_id"`
}

// Control はping/pongなどペイロードを持たない制御メッセージです。
type Control struct {
	Type MsgType `json:"type"`
}

type envelope struct {
	Type MsgType `json:"type"`
}

// Decode はJSONエンベロープをtypeフィールドで判別し、対応する型にデコードします。
// 未知のtypeはエラーになります。
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	decode := func(v any) (any, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		return v, nil
	}

	switch env.Type {
	case MsgJoin:
		return decode(&Join{})
	case MsgLeave:
		return decode(&Leave{})
	case MsgStartGame:
		return decode(&StartGame{})
	case MsgGameUpdate:
		return decode(&GameUpdate{})
	case MsgGameOver:
		return decode(&GameOver{})
	case MsgTournamentUpdate:
		return decode(&TournamentUpdate{})
	case MsgTournamentGameOver:
		return decode(&TournamentGameOver{})
	case MsgHostAnnounce:
		return decode(&HostAnnounce{})
	case MsgPing, MsgPong:
		return &Control{Type: env.Type}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}

// PeekType はペイロード全体をデコードせずにtypeフィールドだけを読みます。
func PeekType(data []byte) (MsgType, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return env.Type, nil
}

func EncodeJoin(nickname, token string, rounds int) []byte {
	return mustMarshal(Join{Type: MsgJoin, Nickname: nickname, Token: token, Rounds: rounds})
}

func EncodeLeave(nickname string) []byte {
	return mustMarshal(Leave{Type: MsgLeave, Nickname: nickname})
}

func EncodeStartGame(rounds int, side Side, opponent, room string, isTournament bool) []byte {
	return mustMarshal(StartGame{
		Type:         MsgStartGame,
		Rounds:       rounds,
		PlayerSide:   side,
		Opponent:     opponent,
		Room:         room,
		IsTournament: isTournament,
	})
}

func EncodePaddleUpdate(paddleY float64) []byte {
	return mustMarshal(GameUpdate{Type: MsgGameUpdate, Data: GameUpdateData{PaddleY: &paddleY}})
}

func EncodeSyncUpdate(sync SyncState) []byte {
	return mustMarshal(GameUpdate{Type: MsgGameUpdate, Data: GameUpdateData{Sync: &sync}})
}

func EncodeGameOver(score Score, winner string, forfeit bool) []byte {
	return mustMarshal(GameOver{Type: MsgGameOver, Score: score, Winner: winner, Forfeit: forfeit})
}

func EncodeTournamentUpdate(tournament json.RawMessage) []byte {
	return mustMarshal(TournamentUpdate{Type: MsgTournamentUpdate, Tournament: tournament})
}

func EncodeTournamentGameOver(score Score, winner string) []byte {
	return mustMarshal(TournamentGameOver{Type: MsgTournamentGameOver, Score: score, Winner: winner})
}

func EncodeHostAnnounce(side Side, sessionID SessionID) []byte {
	return mustMarshal(HostAnnounce{Type: MsgHostAnnounce, Side: side, SessionID: sessionID.String()})
}

func EncodePing() []byte {
	return mustMarshal(Control{Type: MsgPing})
}

func EncodePong() []byte {
	return mustMarshal(Control{Type: MsgPong})
}

// mustMarshal は固定構造のエンコード専用です。ここでの失敗はプログラミングエラーです。
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
