package game

import "volley/domain"

// EventKind はエンジンが1tickで発行するイベントの種別です。
type EventKind uint8

const (
	// EventRoundComplete はボールが左右どちらかの端を抜けてラウンドが確定した。
	EventRoundComplete EventKind = iota + 1
	// EventGameOver はラウンド目標に到達しエンジンが停止した。
	EventGameOver
)

// Event はエンジンからMatch Session Controllerへ流れる型付きイベントです。
// コールバックの束ではなく単一のイベント列として消費されます。
type Event struct {
	Kind         EventKind
	Scorer       domain.Side // ラウンドを取った側
	Score        domain.Score
	RoundsPlayed int
	Winner       domain.Side // EventGameOverのみ
}
