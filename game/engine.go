package game

import (
	"math"
	"math/rand/v2"

	"volley/domain"
)

const (
	// tick正規化係数の上限。フレーム落ち時のスパイラル防止
	maxDT = 3.0

	serveAngleMax  = math.Pi / 8    // ±22.5°
	maxDeflection  = 0.42 * math.Pi // パドル反射角の上限 ±75°
	minHorizFactor = 0.5            // 垂直ストール防止の水平速度床
	bounceJitter   = 0.30           // ランダムバウンスの最大摂動（speed比）
	minVertFactor  = 0.20           // 水平ロック防止の垂直速度床
)

// Engine は1マッチ分の決定論的な物理・得点シミュレーションです。
// 同一seedと同一入力列に対して同一の状態列を生成します。
// 1つのEngineは単一所有で、複数マッチはそれぞれ独立のインスタンスを持ちます。
type Engine struct {
	cfg   MatchConfig
	scale float64
	rng   *rand.Rand

	ball  *Ball
	left  *Paddle
	right *Paddle

	roundsPlayed int
	score        domain.Score
	lastScorer   domain.Side
	serveToggle  domain.Side
	halted       bool
}

// NewEngine は設定を検証し、初期状態のエンジンを生成します。
// 不正な設定はここで拒否され、tick中に現れることはありません。
func NewEngine(cfg MatchConfig, seed uint64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ServeRule == "" {
		cfg.ServeRule = ServeRandom
	}
	scale := cfg.SpeedScale()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	e := &Engine{
		cfg:         cfg,
		scale:       scale,
		rng:         rng,
		ball:        NewBall(cfg, scale),
		left:        NewPaddle(domain.SideLeft, cfg, scale),
		right:       NewPaddle(domain.SideRight, cfg, scale),
		serveToggle: domain.SideLeft,
	}
	e.launch(e.coinFlip())
	return e, nil
}

func (e *Engine) Ball() *Ball         { return e.ball }
func (e *Engine) Config() MatchConfig { return e.cfg }
func (e *Engine) Scale() float64      { return e.scale }
func (e *Engine) RoundsPlayed() int   { return e.roundsPlayed }
func (e *Engine) Score() domain.Score { return e.score }
func (e *Engine) Halted() bool        { return e.halted }

func (e *Engine) Paddle(side domain.Side) *Paddle {
	if side == domain.SideLeft {
		return e.left
	}
	return e.right
}

// Halt は外部要因（没収、切断）によるシミュレーション停止です。
func (e *Engine) Halt() {
	e.halted = true
}

// Advance は1論理tickだけ状態を進めます。dtは基準フレームレートで1.0です。
// 発生したイベントを順に返します。
func (e *Engine) Advance(dt float64) []Event {
	if e.halted {
		return nil
	}
	if dt < 0 {
		dt = 0
	}
	if dt > maxDT {
		dt = maxDT
	}

	// 積分してから重力を足す。重力は次tickの積分に効く
	e.ball.Pos = e.ball.Pos.Add(e.ball.Vel.Scale(dt))
	if e.cfg.Gravity {
		e.ball.Vel.Y += e.cfg.GravityForce * e.scale * dt
	}

	e.collideWalls()
	e.collidePaddle(e.left)
	e.collidePaddle(e.right)

	return e.checkExit()
}

// MovePaddle はTargetYへ向けてパドルを1tick分動かします。
// 移動量はpaddleSpeed·dtで制限され、境界にクランプされます。
func (e *Engine) MovePaddle(side domain.Side, dt float64) {
	e.Paddle(side).MoveToward(e.cfg.PaddleSpeed * e.scale * dt)
}

func (e *Engine) collideWalls() {
	b := e.ball
	hit := false
	if b.Pos.Y-b.Radius <= 0 {
		b.Pos.Y = b.Radius
		b.Vel.Y = math.Abs(b.Vel.Y)
		hit = true
	} else if b.Pos.Y+b.Radius >= e.cfg.Height {
		b.Pos.Y = e.cfg.Height - b.Radius
		b.Vel.Y = -math.Abs(b.Vel.Y)
		hit = true
	}
	if !hit || !e.cfg.RandomBounce {
		return
	}

	// 摂動は最大30%。垂直速度が20%を下回ると水平ロック軌道になるため床を敷く
	b.Vel.Y += (e.rng.Float64()*2 - 1) * bounceJitter * b.Speed
	floor := minVertFactor * b.Speed
	if math.Abs(b.Vel.Y) < floor {
		if b.Vel.Y < 0 {
			b.Vel.Y = -floor
		} else {
			b.Vel.Y = floor
		}
	}
}

func (e *Engine) collidePaddle(p *Paddle) {
	b := e.ball

	toward := (p.Side == domain.SideLeft && b.Vel.X < 0) ||
		(p.Side == domain.SideRight && b.Vel.X > 0)
	if !toward {
		return
	}

	if b.Pos.Y+b.Radius < p.Y || b.Pos.Y-b.Radius > p.Y+p.Height {
		return
	}
	if p.Side == domain.SideLeft {
		if b.Pos.X-b.Radius > p.FaceX() || b.Pos.X+b.Radius < p.X {
			return
		}
	} else {
		if b.Pos.X+b.Radius < p.FaceX() || b.Pos.X-b.Radius > p.X+p.Width {
			return
		}
	}

	// 当たり位置をパドル半高の比率[-1,1]にして反射角へ写像する
	offset := clamp((b.Pos.Y-p.CenterY())/(p.Height/2), -1, 1)
	angle := offset * maxDeflection

	b.Speed += e.cfg.SpeedIncrement * e.scale

	dir := 1.0
	if p.Side == domain.SideRight {
		dir = -1.0
	}
	vx := dir * b.Speed * math.Cos(angle)
	// 垂直に近い反射はラリーが停滞するため水平床を敷く
	if math.Abs(vx) < minHorizFactor*b.Speed {
		vx = dir * minHorizFactor * b.Speed
	}
	b.Vel.X = vx
	b.Vel.Y = b.Speed * math.Sin(angle)

	// 同一tick内の再トリガーを避けるため面のすぐ外へ置き直す
	if p.Side == domain.SideLeft {
		b.Pos.X = p.FaceX() + b.Radius
	} else {
		b.Pos.X = p.FaceX() - b.Radius
	}
}

func (e *Engine) checkExit() []Event {
	b := e.ball

	var scorer domain.Side
	switch {
	case b.Pos.X+b.Radius < 0:
		scorer = domain.SideRight
	case b.Pos.X-b.Radius > e.cfg.Width:
		scorer = domain.SideLeft
	default:
		return nil
	}

	e.roundsPlayed++
	e.lastScorer = scorer
	if scorer == domain.SideLeft {
		e.score.Left++
	} else {
		e.score.Right++
	}

	events := []Event{{
		Kind:         EventRoundComplete,
		Scorer:       scorer,
		Score:        e.score,
		RoundsPlayed: e.roundsPlayed,
	}}

	if e.roundsPlayed >= e.cfg.Rounds {
		e.halted = true
		events = append(events, Event{
			Kind:         EventGameOver,
			Scorer:       scorer,
			Score:        e.score,
			RoundsPlayed: e.roundsPlayed,
			Winner:       e.leader(),
		})
		return events
	}

	e.launch(e.serveDirection())
	return events
}

// serveDirection は得点後のサーブ方向をServeRuleに従って決めます。
func (e *Engine) serveDirection() domain.Side {
	switch e.cfg.ServeRule {
	case ServeAlternate:
		e.serveToggle = e.serveToggle.Opposite()
		return e.serveToggle
	case ServeTowardScored:
		return e.lastScorer.Opposite()
	default:
		return e.coinFlip()
	}
}

func (e *Engine) coinFlip() domain.Side {
	if e.rng.Float64() < 0.5 {
		return domain.SideLeft
	}
	return domain.SideRight
}

func (e *Engine) launch(toward domain.Side) {
	angle := (e.rng.Float64()*2 - 1) * serveAngleMax
	e.ball.Launch(e.cfg, e.scale, toward, angle)
}

func (e *Engine) leader() domain.Side {
	if e.score.Left > e.score.Right {
		return domain.SideLeft
	}
	if e.score.Right > e.score.Left {
		return domain.SideRight
	}
	return e.lastScorer
}
