package netsync

import (
	"sync/atomic"
	"time"
)

// SilenceTimeout はマッチ中に非同期とみなすまでの無受信時間です。
const SilenceTimeout = 3 * time.Second

// Liveness は相手ピアからの受信を追跡する死活監視です。
// 閾値超過は再接続1回→失敗なら中断のトリガーで、無限リトライはしません。
type Liveness struct {
	lastReceive atomic.Int64
}

func NewLiveness(now time.Time) *Liveness {
	l := &Liveness{}
	l.lastReceive.Store(now.UnixNano())
	return l
}

// Touch はあらゆる種類の受信で呼ばれます。
func (l *Liveness) Touch(now time.Time) {
	l.lastReceive.Store(now.UnixNano())
}

// Silent はSilenceTimeoutを超えて無受信かを返します。
func (l *Liveness) Silent(now time.Time) bool {
	last := time.Unix(0, l.lastReceive.Load())
	return now.Sub(last) > SilenceTimeout
}
