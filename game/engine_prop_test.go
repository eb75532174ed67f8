package game

import (
	"testing"

	"pgregory.net/rapid"

	"volley/domain"
)

// パドルはどんな入力列でもコート境界を出ない。
func TestPaddleStaysWithinCourt(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := DefaultConfig()
		e, err := NewEngine(cfg, rapid.Uint64().Draw(t, "seed"))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		p := e.Paddle(domain.SideLeft)

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			p.TargetY = rapid.Float64Range(-1000, 2000).Draw(t, "target")
			dt := rapid.Float64Range(0, 3).Draw(t, "dt")
			e.MovePaddle(domain.SideLeft, dt)

			if p.Y < 0 || p.Y > cfg.Height-p.Height {
				t.Fatalf("step %d: Y = %g outside [0, %g]", i, p.Y, cfg.Height-p.Height)
			}
		}
	})
}

// ボールは垂直方向に壁を抜けない。
func TestBallStaysWithinVerticalBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := DefaultConfig()
		cfg.RandomBounce = rapid.Bool().Draw(t, "randomBounce")
		cfg.Gravity = rapid.Bool().Draw(t, "gravity")
		cfg.Rounds = 1000 // 途中終了させない
		e, err := NewEngine(cfg, rapid.Uint64().Draw(t, "seed"))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		b := e.Ball()

		steps := rapid.IntRange(1, 500).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			dt := rapid.Float64Range(0, 10).Draw(t, "dt")
			e.Advance(dt)

			if b.Pos.Y < b.Radius-1e-9 || b.Pos.Y > cfg.Height-b.Radius+1e-9 {
				t.Fatalf("step %d: Pos.Y = %g outside [%g, %g]", i, b.Pos.Y, b.Radius, cfg.Height-b.Radius)
			}
		}
	})
}

// ボール速度はラウンド内で単調に増加する。
func TestBallSpeedMonotonicWithinRound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := DefaultConfig()
		e, err := NewEngine(cfg, rapid.Uint64().Draw(t, "seed"))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		b := e.Ball()

		// 両パドルをボールに追従させてラリーを続ける
		steps := rapid.IntRange(1, 1000).Draw(t, "steps")
		prev := b.Speed
		for i := 0; i < steps; i++ {
			e.Paddle(domain.SideLeft).TargetY = b.Pos.Y
			e.Paddle(domain.SideRight).TargetY = b.Pos.Y
			e.MovePaddle(domain.SideLeft, 1)
			e.MovePaddle(domain.SideRight, 1)

			events := e.Advance(1)
			if len(events) > 0 {
				// ラウンド境界で速度はリセットされる
				prev = b.Speed
				continue
			}
			if b.Speed < prev-1e-9 {
				t.Fatalf("step %d: speed decreased %g -> %g", i, prev, b.Speed)
			}
			prev = b.Speed
		}
	})
}

// ゲームコードは任意の有効設定を往復で保存する。
func TestGameCodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := MatchConfig{
			Rounds:         rapid.IntRange(1, 99).Draw(t, "rounds"),
			BallSpeed:      rapid.Float64Range(0.1, 50).Draw(t, "ballSpeed"),
			SpeedIncrement: rapid.Float64Range(0, 5).Draw(t, "speedIncrement"),
			PaddleSpeed:    rapid.Float64Range(0.1, 50).Draw(t, "paddleSpeed"),
			PaddleSize:     rapid.Float64Range(0.2, 3).Draw(t, "paddleSize"),
			Gravity:        rapid.Bool().Draw(t, "gravity"),
			GravityForce:   rapid.Float64Range(0, 2).Draw(t, "gravityForce"),
			RandomBounce:   rapid.Bool().Draw(t, "randomBounce"),
			ServeRule:      rapid.SampledFrom([]ServeRule{ServeRandom, ServeAlternate, ServeTowardScored}).Draw(t, "serveRule"),
			Width:          rapid.Float64Range(400, 4000).Draw(t, "width"),
			Height:         rapid.Float64Range(400, 4000).Draw(t, "height"),
			Fullscreen:     rapid.Bool().Draw(t, "fullscreen"),
		}
		if err := cfg.Validate(); err != nil {
			t.Skip()
		}

		got, err := DecodeGameCode(EncodeGameCode(cfg))
		if err != nil {
			t.Fatalf("DecodeGameCode failed: %v", err)
		}
		if got != cfg {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
		}
	})
}
