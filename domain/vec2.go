package domain

// Vec2 はコート座標系の2次元ベクトルです。
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Side はコートの左右どちらの陣営かを表します。
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}
