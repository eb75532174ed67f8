package domain

import (
	"fmt"
	"strings"
)

// IdleReason はセッションがアイドル判定された要因のビット集合です。
// 読み・書き・pongは独立に停滞しうるため、複数ビットが同時に立ちます。
type IdleReason uint8

const (
	IdleNone  IdleReason = 0
	IdleRead  IdleReason = 1 << 0
	IdleWrite IdleReason = 1 << 1
	IdlePong  IdleReason = 1 << 2
	// IdleDisabled はアイドル監視そのものが無効（timeout<=0）であることを表します。
	IdleDisabled IdleReason = 1 << 7
)

func (r IdleReason) Has(x IdleReason) bool { return r&x != 0 }

var idleReasonNames = []struct {
	bit  IdleReason
	name string
}{
	{IdleRead, "read"},
	{IdleWrite, "write"},
	{IdlePong, "pong"},
}

func (r IdleReason) String() string {
	switch r {
	case IdleNone:
		return "none"
	case IdleDisabled:
		return "disabled"
	}
	var parts []string
	for _, n := range idleReasonNames {
		if r.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
	return strings.Join(parts, "|")
}
