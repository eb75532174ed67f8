package game

import "volley/domain"

// Paddle は左右どちらかのパドルです。Yは上端、Xは固定です。
// TargetYはAI操作時の目標位置ヒントです（パドル中心のY座標）。
type Paddle struct {
	Side    domain.Side
	X       float64
	Y       float64
	Width   float64
	Height  float64
	TargetY float64

	surfaceHeight float64
}

func NewPaddle(side domain.Side, cfg MatchConfig, scale float64) *Paddle {
	w := basePaddleWidth * scale
	h := basePaddleHeight * cfg.PaddleSize
	x := paddleWallMargin
	if side == domain.SideRight {
		x = cfg.Width - paddleWallMargin - w
	}
	return &Paddle{
		Side:          side,
		X:             x,
		Y:             (cfg.Height - h) / 2,
		Width:         w,
		Height:        h,
		TargetY:       cfg.Height / 2,
		surfaceHeight: cfg.Height,
	}
}

// CenterY はパドル中心のY座標です。
func (p *Paddle) CenterY() float64 {
	return p.Y + p.Height/2
}

// FaceX はボールと接触する面のX座標です。
func (p *Paddle) FaceX() float64 {
	if p.Side == domain.SideLeft {
		return p.X + p.Width
	}
	return p.X
}

// SetY はYを直接設定し、コート境界にクランプします。
func (p *Paddle) SetY(y float64) {
	p.Y = clamp(y, 0, p.surfaceHeight-p.Height)
}

// MoveToward はTargetYへ向けて最大maxStepだけ移動します。
// 境界クランプは常に維持されます。
func (p *Paddle) MoveToward(maxStep float64) {
	center := p.CenterY()
	diff := p.TargetY - center
	if diff > maxStep {
		diff = maxStep
	}
	if diff < -maxStep {
		diff = -maxStep
	}
	p.SetY(p.Y + diff)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
