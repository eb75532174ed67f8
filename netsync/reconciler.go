package netsync

import (
	"math"

	"volley/domain"
	"volley/game"
)

const (
	// SnapThreshold を軸ごとに超えた発散は補間せず即時スナップする
	SnapThreshold = 30.0
	// BlendStrength は位置補正の線形補間強度
	BlendStrength = 0.6
)

// Reconciler は非権限側ピアのローカル状態を受信スナップショットへ補正します。
// 位置のみ平滑化し、速度は予測運動を保つため常にリモート値を直接採用します。
// 同一フレームのスナップショットの再適用は冪等です（ドリフトの累積なし）。
type Reconciler struct {
	lastFrame   uint64
	appliedOnce bool
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Apply は受信スナップショットをボールと相手パドルに適用します。
// 適用された場合はtrueを返します。古い・重複フレームは破棄されます。
func (r *Reconciler) Apply(snap *domain.SyncState, ball *game.Ball, remotePaddle *game.Paddle) bool {
	if r.appliedOnce && snap.Frame <= r.lastFrame {
		return false
	}
	r.lastFrame = snap.Frame
	r.appliedOnce = true

	dx := math.Abs(ball.Pos.X - snap.BallX)
	dy := math.Abs(ball.Pos.Y - snap.BallY)

	if snap.ForceReset || dx > SnapThreshold || dy > SnapThreshold {
		ball.Pos.X = snap.BallX
		ball.Pos.Y = snap.BallY
	} else {
		ball.Pos.X = lerp(ball.Pos.X, snap.BallX, BlendStrength)
		ball.Pos.Y = lerp(ball.Pos.Y, snap.BallY, BlendStrength)
	}

	// 速度はブレンドしない
	ball.Vel.X = snap.BallVX
	ball.Vel.Y = snap.BallVY
	ball.Speed = snap.BallSpeed

	if remotePaddle != nil {
		if remotePaddle.Side == domain.SideLeft {
			remotePaddle.SetY(snap.LeftPaddleY)
		} else {
			remotePaddle.SetY(snap.RightPaddleY)
		}
	}
	return true
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
