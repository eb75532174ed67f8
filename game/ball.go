package game

import (
	"math"

	"volley/domain"
)

// Ball はコート上のボールです。
// Speedはラウンド内で単調増加するスカラー速度で、衝突後に|Vel|と厳密に
// 一致しないことがあります（パドル反射時の水平床速度による）。
type Ball struct {
	Pos    domain.Vec2
	Vel    domain.Vec2
	Radius float64
	Speed  float64
}

func NewBall(cfg MatchConfig, scale float64) *Ball {
	return &Ball{
		Pos:    domain.Vec2{X: cfg.Width / 2, Y: cfg.Height / 2},
		Radius: baseBallRadius * scale,
		Speed:  cfg.BallSpeed * scale,
	}
}

// Launch はボールを中心に置き直し、±22.5°の範囲の角度で打ち出します。
// アクティブなプレイ中に速度が{0,0}になることはありません。
func (b *Ball) Launch(cfg MatchConfig, scale float64, toward domain.Side, angle float64) {
	b.Pos = domain.Vec2{X: cfg.Width / 2, Y: cfg.Height / 2}
	b.Speed = cfg.BallSpeed * scale

	dir := 1.0
	if toward == domain.SideLeft {
		dir = -1.0
	}
	b.Vel = domain.Vec2{
		X: dir * b.Speed * math.Cos(angle),
		Y: b.Speed * math.Sin(angle),
	}
}

// HorizontalDir はボールの進行方向の符号を返します。
func (b *Ball) HorizontalDir() float64 {
	if b.Vel.X < 0 {
		return -1
	}
	return 1
}
