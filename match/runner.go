package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"volley/domain"
	"volley/game"
	"volley/netsync"
)

// EventKind はRunnerが外へ流すイベント種別です。
type EventKind uint8

const (
	EventRound EventKind = iota + 1
	EventFinished
)

// Event はコールバックの代わりに単一のチャネルで消費されるイベントです。
type Event struct {
	Kind   EventKind
	Scorer domain.Side
	Score  domain.Score
	Result *Result // EventFinishedのみ
}

// Reconnector はサイレンス超過時の再接続境界です。試行は1回だけです。
type Reconnector interface {
	Reconnect(ctx context.Context) (netsync.Sender, error)
}

const tickInterval = time.Second / 60

// Runner は1マッチの固定tickループです。物理・AI・同期は1tick内で
// 同期的に実行され、同一マッチのtickが並行することはありません。
// 受信メッセージはキューされ、tick先頭でまとめて適用されます。
type Runner struct {
	session *Session
	sync    *netsync.Controller // シングルプレイヤーではnil
	ai      *game.AIController  // AI不在ならnil
	aiSide  domain.Side

	reconnector Reconnector

	inbound chan any
	events  chan Event

	// ローカルパドルの目標中心Y（人間入力）。レンダリング側から書かれる
	localTarget atomic.Value // float64

	now func() time.Time
}

func NewRunner(session *Session) *Runner {
	r := &Runner{
		session: session,
		inbound: make(chan any, 256),
		events:  make(chan Event, 16),
		now:     time.Now,
	}
	r.localTarget.Store(session.Engine().Config().Height / 2)
	return r
}

// WithSync はマルチプレイヤー同期を有効化します。
func (r *Runner) WithSync(c *netsync.Controller, reconnector Reconnector) *Runner {
	r.sync = c
	r.reconnector = reconnector
	return r
}

// WithAI は指定側をAI操作にします。
func (r *Runner) WithAI(ai *game.AIController, side domain.Side) *Runner {
	r.ai = ai
	r.aiSide = side
	return r
}

// WithClock はテスト用に時計を差し替えます。
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

func (r *Runner) Events() <-chan Event {
	return r.events
}

// Deliver は受信メッセージをキューします。tick途中には適用されません。
func (r *Runner) Deliver(msg any) {
	select {
	case r.inbound <- msg:
	default:
		slog.Warn("runner inbound queue full, message dropped", "matchID", r.session.ID())
	}
}

// SetLocalTarget はローカルパドルの目標中心Yを設定します（人間入力）。
func (r *Runner) SetLocalTarget(y float64) {
	r.localTarget.Store(y)
}

// Run はマッチ終了またはctxキャンセルまでtickループを回します。
// キャンセル時はループを同期的に停止し、終了イベントを流してから戻ります。
func (r *Runner) Run(ctx context.Context) error {
	if err := r.session.Activate(); err != nil {
		return err
	}

	if r.sync != nil {
		if err := r.sync.AnnounceHost(ctx); err != nil {
			slog.WarnContext(ctx, "host announce failed", "matchID", r.session.ID(), "err", err)
		}
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := r.now()
	for {
		select {
		case <-ctx.Done():
			r.finish(ctx, FinishAborted)
			return nil
		case <-ticker.C:
			now := r.now()
			dt := now.Sub(last).Seconds() / tickInterval.Seconds()
			last = now

			done, err := r.tick(ctx, dt, now)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// tick は1tick分の処理です。終了したらtrueを返します。
func (r *Runner) tick(ctx context.Context, dt float64, now time.Time) (bool, error) {
	// 受信メッセージをtick先頭でまとめて適用する
	if done := r.drainInbound(ctx, now); done {
		return true, nil
	}

	if r.sync != nil {
		if done, err := r.checkLiveness(ctx, now); done || err != nil {
			return done, err
		}
	}

	e := r.session.Engine()

	if r.ai != nil {
		p := e.Paddle(r.aiSide)
		p.TargetY = r.ai.ComputeTarget(p, e.Ball(), e.Config(), now)
		e.MovePaddle(r.aiSide, dt)
	}

	local := r.session.LocalSide()
	if r.ai == nil || r.aiSide != local {
		if y, ok := r.localTarget.Load().(float64); ok {
			e.Paddle(local).TargetY = y
		}
		e.MovePaddle(local, dt)
	}

	for _, ev := range e.Advance(dt) {
		switch ev.Kind {
		case game.EventRoundComplete:
			if err := r.session.MarkRoundComplete(); err != nil {
				return false, err
			}
			r.emit(Event{Kind: EventRound, Scorer: ev.Scorer, Score: ev.Score})
			if ev.RoundsPlayed < e.Config().Rounds {
				if err := r.session.Activate(); err != nil {
					return false, err
				}
			}
		case game.EventGameOver:
			r.finish(ctx, FinishRoundTarget)
			return true, nil
		}
	}

	if r.sync != nil {
		r.sync.Tick(ctx, e, now)
	}
	return false, nil
}

func (r *Runner) drainInbound(ctx context.Context, now time.Time) bool {
	for {
		select {
		case msg := <-r.inbound:
			if done := r.handleInbound(ctx, msg, now); done {
				return true
			}
		default:
			return false
		}
	}
}

func (r *Runner) handleInbound(ctx context.Context, msg any, now time.Time) bool {
	e := r.session.Engine()
	switch m := msg.(type) {
	case *domain.GameUpdate:
		if r.sync != nil {
			r.sync.OnGameUpdate(m, e, now)
		}
	case *domain.HostAnnounce:
		if r.sync != nil {
			r.sync.OnHostAnnounce(m, now)
		}
	case *domain.GameOver:
		// リレー/ピアからの確定的な終了通知
		reason := FinishRoundTarget
		if m.Forfeit {
			reason = FinishForfeit
		}
		r.finish(ctx, reason)
		return true
	case *domain.Leave:
		r.finish(ctx, FinishForfeit)
		return true
	case *domain.Control:
		if r.sync != nil {
			r.sync.Liveness().Touch(now)
		}
	default:
		slog.WarnContext(ctx, "runner: unexpected inbound message", "type", typeName(msg))
	}
	return false
}

// checkLiveness は3秒のサイレンス閾値を監視します。
// 超過時は1回だけ再接続を試み、失敗したらマッチをローカルで終了します。
func (r *Runner) checkLiveness(ctx context.Context, now time.Time) (bool, error) {
	if !r.sync.Liveness().Silent(now) {
		return false, nil
	}
	slog.WarnContext(ctx, "peer silent beyond threshold, attempting reconnect",
		"matchID", r.session.ID(), "timeout", netsync.SilenceTimeout)

	if r.reconnector != nil {
		if sender, err := r.reconnector.Reconnect(ctx); err == nil {
			r.sync.SetSender(sender)
			r.sync.Liveness().Touch(now)
			return false, nil
		}
	}

	r.finish(ctx, FinishConnectionLost)
	return true, nil
}

func (r *Runner) finish(ctx context.Context, reason FinishReason) {
	result, err := r.session.Finish(reason)
	if err != nil {
		slog.WarnContext(ctx, "finish after terminal state", "matchID", r.session.ID(), "err", err)
		return
	}
	// 離脱前に最終状態をフラッシュする
	if r.sync != nil && reason == FinishRoundTarget {
		r.sync.Tick(ctx, r.session.Engine(), r.now())
	}
	r.emit(Event{Kind: EventFinished, Score: result.Score, Result: &result})
	close(r.events)
}

func (r *Runner) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
		slog.Warn("runner event dropped, consumer too slow", "matchID", r.session.ID(), "kind", ev.Kind)
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
