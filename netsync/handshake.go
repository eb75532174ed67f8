package netsync

import (
	"errors"

	"volley/domain"
)

var ErrHandshakeIncomplete = errors.New("host handshake not complete")

// Handshake はtickループ開始前に交換される明示的なホスト交渉です。
// 最初のパドル更新の副作用でホストを決める方式は壊れやすいため、
// 専用のhost_announceメッセージを使います。
type Handshake struct {
	localID   domain.SessionID
	localSide domain.Side

	remoteID   domain.SessionID
	remoteSide domain.Side
	remoteSeen bool
}

func NewHandshake(localID domain.SessionID, localSide domain.Side) *Handshake {
	return &Handshake{
		localID:   localID,
		localSide: localSide,
	}
}

// Announce はローカルの宣言メッセージを返します。
func (h *Handshake) Announce() []byte {
	return domain.EncodeHostAnnounce(h.localSide, h.localID)
}

// OnAnnounce は相手の宣言を取り込み、解決後のローカル側を返します。
// 双方が同じ側を主張した場合はセッションIDの辞書順で小さい方が主張を通します。
func (h *Handshake) OnAnnounce(msg *domain.HostAnnounce) domain.Side {
	h.remoteID = domain.SessionID(msg.SessionID)
	h.remoteSide = msg.Side
	h.remoteSeen = true

	if msg.Side == h.localSide {
		if h.localID.String() > msg.SessionID {
			h.localSide = h.localSide.Opposite()
		}
	}
	return h.localSide
}

// Complete は権限判定を始めてよいかを返します。
// 完了までどちらのピアにもボール権限は与えられません。
func (h *Handshake) Complete() bool {
	return h.remoteSeen
}

// LocalSide は（解決後の）ローカルの側です。
func (h *Handshake) LocalSide() domain.Side {
	return h.localSide
}

// IsHost は解決後にローカルが左側＝ホストかを返します。
func (h *Handshake) IsHost() bool {
	return h.localSide == domain.SideLeft
}
