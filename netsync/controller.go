package netsync

import (
	"context"
	"log/slog"
	"time"

	"volley/domain"
	"volley/game"
)

const (
	// 権限側のスナップショット送信間隔（約50Hz）
	snapshotInterval = 20 * time.Millisecond
	// 自パドル位置の送信スロットル
	paddleSendInterval = 16 * time.Millisecond
	// 周期的な強制フルリセットのフレーム間隔
	forceResetEvery = 100
)

// Sender は対戦相手へ向けた送信境界です。
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// Controller は2つの独立シミュレーションを見た目上一致させる調停役です。
// ホストハンドシェイク、ボール追従権限、スナップショット送信、
// 受信スナップショットの補正適用をまとめて扱います。
type Controller struct {
	handshake  *Handshake
	authority  *Authority
	reconciler *Reconciler
	liveness   *Liveness
	sender     Sender

	frame uint64
	// 最後に送信できた強制フルリセットのフレーム。送信スロットルで
	// フレームが間引かれても周期が保てるよう、剰余ではなく差分で判定する
	lastResetFrame uint64

	lastSnapshotSent time.Time
	lastPaddleSent   time.Time
}

func NewController(localID domain.SessionID, localSide domain.Side, courtWidth float64, sender Sender, now time.Time) *Controller {
	return &Controller{
		handshake:  NewHandshake(localID, localSide),
		authority:  NewAuthority(localSide, courtWidth),
		reconciler: NewReconciler(),
		liveness:   NewLiveness(now),
		sender:     sender,
	}
}

func (c *Controller) Handshake() *Handshake { return c.handshake }
func (c *Controller) Liveness() *Liveness   { return c.liveness }
func (c *Controller) Frame() uint64         { return c.frame }

// SetSender は再接続後の送信先を差し替えます。tickループと同じ
// ゴルーチンから呼ばれる前提です。
func (c *Controller) SetSender(s Sender) { c.sender = s }

// AnnounceHost はtickループ開始前のホスト宣言を送信します。
func (c *Controller) AnnounceHost(ctx context.Context) error {
	return c.sender.Send(ctx, c.handshake.Announce())
}

// HasAuthority はこのtickでローカルがボール権限を持つかを返します。
// ハンドシェイク完了まではどちらも権限を持ちません。
func (c *Controller) HasAuthority(ballX float64) bool {
	if !c.handshake.Complete() {
		return false
	}
	return c.authority.Update(ballX)
}

// Tick は1tick分の送信処理です。権限側ならスナップショットを、
// 権限に関係なく自パドル位置をスロットル付きで送信します。
// 送信失敗は致命ではありません。状態は周期的に再送されるため、ログに留めます。
func (c *Controller) Tick(ctx context.Context, e *game.Engine, now time.Time) {
	c.frame++

	if c.HasAuthority(e.Ball().Pos.X) && now.Sub(c.lastSnapshotSent) >= snapshotInterval {
		snap := c.buildSnapshot(e)
		if err := c.sender.Send(ctx, domain.EncodeSyncUpdate(snap)); err != nil {
			slog.WarnContext(ctx, "snapshot send failed", "frame", c.frame, "err", err)
		} else {
			c.lastSnapshotSent = now
			if snap.ForceReset {
				c.lastResetFrame = c.frame
			}
		}
	}

	if now.Sub(c.lastPaddleSent) >= paddleSendInterval {
		local := e.Paddle(c.handshake.LocalSide())
		if err := c.sender.Send(ctx, domain.EncodePaddleUpdate(local.Y)); err != nil {
			slog.WarnContext(ctx, "paddle send failed", "err", err)
		} else {
			c.lastPaddleSent = now
		}
	}
}

func (c *Controller) buildSnapshot(e *game.Engine) domain.SyncState {
	b := e.Ball()
	return domain.SyncState{
		Frame:        c.frame,
		BallX:        b.Pos.X,
		BallY:        b.Pos.Y,
		BallVX:       b.Vel.X,
		BallVY:       b.Vel.Y,
		BallSpeed:    b.Speed,
		LeftPaddleY:  e.Paddle(domain.SideLeft).Y,
		RightPaddleY: e.Paddle(domain.SideRight).Y,
		ForceReset:   c.frame-c.lastResetFrame >= forceResetEvery,
	}
}

// OnGameUpdate は相手からのgame_updateを取り込みます。
// スナップショットはローカルが非権限のときだけ補正として適用します。
func (c *Controller) OnGameUpdate(u *domain.GameUpdate, e *game.Engine, now time.Time) {
	c.liveness.Touch(now)

	remote := e.Paddle(c.handshake.LocalSide().Opposite())
	if u.Data.PaddleY != nil {
		remote.SetY(*u.Data.PaddleY)
	}
	if u.Data.Sync != nil {
		if !c.HasAuthority(e.Ball().Pos.X) {
			c.reconciler.Apply(u.Data.Sync, e.Ball(), remote)
		}
	}
}

// OnHostAnnounce は相手のホスト宣言を取り込み、解決後のローカル側を返します。
func (c *Controller) OnHostAnnounce(msg *domain.HostAnnounce, now time.Time) domain.Side {
	c.liveness.Touch(now)
	side := c.handshake.OnAnnounce(msg)
	// 側が反転した場合は権限判定も作り直す
	if side != c.authority.localSide {
		c.authority = NewAuthority(side, c.authority.courtWidth)
	}
	return side
}
