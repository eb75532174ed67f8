package game

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"volley/utils"
)

// ServeRule は得点後のサーブ方向の決め方です。
type ServeRule string

const (
	// ServeRandom は公平なコイントスで方向を決めます（デフォルト）。
	ServeRandom ServeRule = "random"
	// ServeAlternate は左右交互にサーブします。
	ServeAlternate ServeRule = "alternate"
	// ServeTowardScored は直前に得点された側へサーブします。
	ServeTowardScored ServeRule = "toward_scored"
)

// MatchConfig は1マッチの設定です。マッチ開始後は不変です。
// デフォルト、名前付きプリセット、またはゲームコードのデコードで生成されます。
type MatchConfig struct {
	Rounds         int       `json:"rounds"`
	BallSpeed      float64   `json:"ballSpeed"`
	SpeedIncrement float64   `json:"speedIncrement"`
	PaddleSpeed    float64   `json:"paddleSpeed"`
	PaddleSize     float64   `json:"paddleSize"` // パドル高さの倍率
	Gravity        bool      `json:"gravity"`
	GravityForce   float64   `json:"gravityForce"`
	RandomBounce   bool      `json:"randomBounce"`
	ServeRule      ServeRule `json:"serveRule"`

	// 表示面の寸法。速度スケールの基準になる
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Fullscreen bool    `json:"fullscreen"`

	// 見た目のみ。コアのロジックには影響しない
	LeftColor  string `json:"leftColor,omitempty"`
	RightColor string `json:"rightColor,omitempty"`
}

const (
	refWidthWindowed = 800.0
	refDimFullscreen = 1000.0
	minSpeedScale    = 0.3
	maxSpeedScale    = 1.5
	basePaddleHeight = 100.0
	basePaddleWidth  = 12.0
	paddleWallMargin = 20.0
	baseBallRadius   = 8.0
)

var (
	ErrInvalidConfig   = errors.New("invalid match config")
	ErrUnknownPreset   = errors.New("unknown preset")
	ErrInvalidGameCode = errors.New("invalid game code")
)

func DefaultConfig() MatchConfig {
	return MatchConfig{
		Rounds:         3,
		BallSpeed:      5.0,
		SpeedIncrement: 0.4,
		PaddleSpeed:    6.0,
		PaddleSize:     1.0,
		GravityForce:   0.12,
		ServeRule:      ServeRandom,
		Width:          800,
		Height:         600,
	}
}

// Preset は名前付きプリセットからMatchConfigを生成します。
func Preset(name string) (MatchConfig, error) {
	cfg := DefaultConfig()
	switch name {
	case "classic":
		return cfg, nil
	case "blitz":
		cfg.BallSpeed = 8.0
		cfg.SpeedIncrement = 0.8
		cfg.PaddleSpeed = 9.0
		return cfg, nil
	case "chaos":
		cfg.RandomBounce = true
		cfg.Gravity = true
		return cfg, nil
	case "marathon":
		cfg.Rounds = 11
		return cfg, nil
	default:
		return MatchConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}

// EncodeGameCode は設定を共有可能なコンパクトな文字列にエンコードします。
func EncodeGameCode(cfg MatchConfig) string {
	data, _ := json.Marshal(cfg)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeGameCode はゲームコードからMatchConfigを復元し、検証します。
func DecodeGameCode(code string) (MatchConfig, error) {
	data, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return MatchConfig{}, fmt.Errorf("%w: %v", ErrInvalidGameCode, err)
	}
	var cfg MatchConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return MatchConfig{}, fmt.Errorf("%w: %v", ErrInvalidGameCode, err)
	}
	if err := cfg.Validate(); err != nil {
		return MatchConfig{}, err
	}
	return cfg, nil
}

// Validate はマッチ開始前の設定検証です。tick中に不正な設定が現れることはありません。
func (c MatchConfig) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be >= 1, got %d", ErrInvalidConfig, c.Rounds)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: surface %gx%g", ErrInvalidConfig, c.Width, c.Height)
	}
	if !utils.IsFinite(c.BallSpeed) || c.BallSpeed <= 0 {
		return fmt.Errorf("%w: ball speed %g", ErrInvalidConfig, c.BallSpeed)
	}
	if !utils.IsFinite(c.SpeedIncrement) || c.SpeedIncrement < 0 {
		return fmt.Errorf("%w: speed increment %g", ErrInvalidConfig, c.SpeedIncrement)
	}
	if !utils.IsFinite(c.PaddleSpeed) || c.PaddleSpeed <= 0 {
		return fmt.Errorf("%w: paddle speed %g", ErrInvalidConfig, c.PaddleSpeed)
	}
	if !utils.IsFinite(c.PaddleSize) || c.PaddleSize <= 0 {
		return fmt.Errorf("%w: paddle size %g", ErrInvalidConfig, c.PaddleSize)
	}
	if c.PaddleSize*basePaddleHeight > c.Height {
		return fmt.Errorf("%w: paddle taller than surface", ErrInvalidConfig)
	}
	if c.Gravity && !utils.IsFinite(c.GravityForce) {
		return fmt.Errorf("%w: gravity force %g", ErrInvalidConfig, c.GravityForce)
	}
	switch c.ServeRule {
	case ServeRandom, ServeAlternate, ServeTowardScored, "":
	default:
		return fmt.Errorf("%w: serve rule %q", ErrInvalidConfig, c.ServeRule)
	}
	return nil
}

// SpeedScale は表示面の寸法から速度スケールを計算します。
// マッチ開始時に一度だけ計算され、速度由来の量すべてに乗算されます。
func (c MatchConfig) SpeedScale() float64 {
	var scale float64
	if c.Fullscreen {
		ref := c.Width
		if c.Height > ref {
			ref = c.Height
		}
		scale = ref / refDimFullscreen
	} else {
		scale = c.Width / refWidthWindowed
	}
	if scale < minSpeedScale {
		scale = minSpeedScale
	}
	if scale > maxSpeedScale {
		scale = maxSpeedScale
	}
	return scale
}
