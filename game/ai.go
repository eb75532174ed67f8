package game

import (
	"math"
	"math/rand/v2"
	"time"

	"volley/domain"
)

const (
	// 判断レートの下限。人間の反応遅延を模すため毎tickは判断しない
	aiDecisionInterval = 1 * time.Second

	aiCenterDeadZone = 20.0 // コート中央への復帰を止める不感帯
	aiScatter        = 0.8  // 難易度由来のブレ幅（パドル高比）
	aiMissChance     = 0.10 // 高難易度での意図的な大外し確率
	aiMissOffset     = 0.8  // 大外しの幅（パドル高比）
)

// AIController は予測軌道からパドルの目標位置を計算するAIです。
// 判断は1Hzに制限され、tickごとの移動はエンジン側でレート制限されます。
type AIController struct {
	side       domain.Side
	difficulty float64 // 0.0〜1.0
	rng        *rand.Rand

	lastDecision time.Time
	targetY      float64
}

// NewAIController は指定難易度のAIを生成します。difficultyは[0,1]にクランプされます。
func NewAIController(side domain.Side, difficulty float64, rng *rand.Rand) *AIController {
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > 1 {
		difficulty = 1
	}
	return &AIController{
		side:       side,
		difficulty: difficulty,
		rng:        rng,
	}
}

// ComputeTarget は目標とするパドル中心Yを返します。
// 前回の判断から1秒未満の呼び出しはキャッシュ済みの目標を返します。
func (a *AIController) ComputeTarget(p *Paddle, b *Ball, cfg MatchConfig, now time.Time) float64 {
	if !a.lastDecision.IsZero() && now.Sub(a.lastDecision) < aiDecisionInterval {
		return a.targetY
	}
	a.lastDecision = now

	if a.ballMovingAway(b) {
		a.driftToCenter(p, cfg)
		return a.targetY
	}

	a.targetY = a.predictImpact(p, b, cfg) + a.scatter(p)
	a.targetY = clamp(a.targetY, 0, cfg.Height)
	return a.targetY
}

func (a *AIController) ballMovingAway(b *Ball) bool {
	if a.side == domain.SideRight {
		return b.Vel.X < 0
	}
	return b.Vel.X > 0
}

// driftToCenter はコート中央へ目標を寄せます。不感帯±20pxでジッタを抑えます。
func (a *AIController) driftToCenter(p *Paddle, cfg MatchConfig) {
	center := cfg.Height / 2
	if math.Abs(p.CenterY()-center) <= aiCenterDeadZone {
		a.targetY = p.CenterY()
		return
	}
	a.targetY = center
}

// predictImpact は壁反射を解析的に畳み込んだ着弾Y座標を返します。
// 壁バウンスをシミュレーションせず、2H周期の折り返しで求めます。
func (a *AIController) predictImpact(p *Paddle, b *Ball, cfg MatchConfig) float64 {
	if b.Vel.X == 0 {
		return b.Pos.Y
	}
	timeToImpact := (p.FaceX() - b.Pos.X) / b.Vel.X
	if timeToImpact < 0 {
		return b.Pos.Y
	}
	futureY := b.Pos.Y + b.Vel.Y*timeToImpact

	period := 2 * cfg.Height
	m := math.Mod(futureY, period)
	if m < 0 {
		m += period
	}
	if m > cfg.Height {
		m = period - m
	}
	return m
}

// scatter は難易度由来の不正確さです。難易度が上がるほどブレは縮むが、
// 0.8超では10%の確率で意図的に大きく外し、無敵AIを避けます。
func (a *AIController) scatter(p *Paddle) float64 {
	offset := (1 - a.difficulty) * p.Height * aiScatter * (a.rng.Float64() - 0.5)
	if a.difficulty > 0.8 && a.rng.Float64() < aiMissChance {
		miss := aiMissOffset * p.Height
		if a.rng.Float64() < 0.5 {
			miss = -miss
		}
		offset += miss
	}
	return offset
}
