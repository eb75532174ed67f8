package server

import (
	"context"
	"log/slog"
	"time"

	"volley/domain"
)

// Peer はルーム内の1プレイヤーです。
type Peer struct {
	SessionID domain.SessionID
	Nickname  string
	Side      domain.Side
}

// RoomResult はルームが確定させたマッチ結果です。
type RoomResult struct {
	RoomID     domain.RoomID
	Winner     string // ニックネーム
	Score      domain.Score
	Forfeit    bool
	Tournament bool
}

// MatchRoom は2ピア間のリレーです。ゲームロジックは持たず、
// 受信メッセージを相手側セッションへ転送するだけです。
// 権限判定と物理はピア側が行います。
type MatchRoom struct {
	id           domain.RoomID
	pubsub       domain.PubSub
	left         Peer
	right        Peer
	tournament   bool
	tickInterval time.Duration

	resultCh chan<- RoomResult
}

func NewMatchRoom(id domain.RoomID, pubsub domain.PubSub, left, right Peer, tournament bool, resultCh chan<- RoomResult) *MatchRoom {
	return &MatchRoom{
		id:           id,
		pubsub:       pubsub,
		left:         left,
		right:        right,
		tournament:   tournament,
		tickInterval: time.Second / 60,
		resultCh:     resultCh,
	}
}

func (r *MatchRoom) Run(ctx context.Context) error {
	roomTopic := domain.RoomTopic(r.id)
	msgCh := r.pubsub.Subscribe(roomTopic)
	defer r.pubsub.Unsubscribe(roomTopic, msgCh)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// 1tick分の受信メッセージをまとめて処理
		RECEIVE_LOOP:
			for {
				select {
				case msg := <-msgCh:
					if done := r.handleMessage(ctx, msg); done {
						return nil
					}
				default:
					break RECEIVE_LOOP
				}
			}
		}
	}
}

// handleMessage は1メッセージを転送し、マッチ終了ならtrueを返します。
func (r *MatchRoom) handleMessage(ctx context.Context, msg domain.Message) bool {
	sender, other, ok := r.peers(msg.SessionID)
	if !ok {
		slog.WarnContext(ctx, "message from unknown session", "roomID", r.id, "sessionID", msg.SessionID)
		return false
	}

	msgType, err := domain.PeekType(msg.Data)
	if err != nil {
		slog.WarnContext(ctx, "undecodable room message", "roomID", r.id, "err", err)
		return false
	}

	// リレーなので相手へはそのまま転送する
	r.forward(ctx, other, msg)

	switch msgType {
	case domain.MsgGameUpdate, domain.MsgHostAnnounce:
		return false
	case domain.MsgLeave:
		// 在室中の離脱は残った側の没収勝ち
		r.emitResult(ctx, RoomResult{
			RoomID:     r.id,
			Winner:     other.Nickname,
			Forfeit:    true,
			Tournament: r.tournament,
		})
		return true
	case domain.MsgGameOver:
		res := RoomResult{RoomID: r.id, Tournament: r.tournament}
		if v, err := domain.Decode(msg.Data); err == nil {
			if over, ok := v.(*domain.GameOver); ok {
				res.Winner = over.Winner
				res.Score = over.Score
				res.Forfeit = over.Forfeit
			}
		}
		r.emitResult(ctx, res)
		return true
	case domain.MsgTournamentGameOver:
		res := RoomResult{RoomID: r.id, Tournament: true}
		if v, err := domain.Decode(msg.Data); err == nil {
			if over, ok := v.(*domain.TournamentGameOver); ok {
				res.Winner = over.Winner
				res.Score = over.Score
			}
		}
		r.emitResult(ctx, res)
		return true
	default:
		slog.WarnContext(ctx, "unexpected room message type", "roomID", r.id, "msgType", msgType, "from", sender.SessionID)
		return false
	}
}

func (r *MatchRoom) peers(id domain.SessionID) (sender, other Peer, ok bool) {
	switch id {
	case r.left.SessionID:
		return r.left, r.right, true
	case r.right.SessionID:
		return r.right, r.left, true
	default:
		return Peer{}, Peer{}, false
	}
}

func (r *MatchRoom) forward(ctx context.Context, to Peer, msg domain.Message) {
	r.pubsub.Publish(ctx, domain.SessionTopic(to.SessionID), domain.Message{
		SessionID: msg.SessionID,
		Data:      msg.Data,
	})
}

func (r *MatchRoom) emitResult(ctx context.Context, res RoomResult) {
	select {
	case r.resultCh <- res:
	case <-ctx.Done():
	}
}
