package netsync

import "volley/domain"

// AuthorityMargin はコート中央周りの権限切り替えヒステリシス幅です。
const AuthorityMargin = 20.0

// Authority はボール追従型の権限判定です。ボールが今いる側のピアが
// そのtickのボール状態に対して権限を持ちます。中央±20pxでは直前の
// 保持者が権限を維持し、境界上での奪い合いを避けます。
type Authority struct {
	localSide  domain.Side
	courtWidth float64
	holder     domain.Side
}

func NewAuthority(localSide domain.Side, courtWidth float64) *Authority {
	return &Authority{
		localSide:  localSide,
		courtWidth: courtWidth,
		// 開始時はホスト（左）が権限を持つ
		holder: domain.SideLeft,
	}
}

// Update はボールのX座標から保持者を更新し、ローカルが権限を持つかを返します。
func (a *Authority) Update(ballX float64) bool {
	center := a.courtWidth / 2
	switch {
	case ballX < center-AuthorityMargin:
		a.holder = domain.SideLeft
	case ballX > center+AuthorityMargin:
		a.holder = domain.SideRight
	}
	return a.holder == a.localSide
}

// Holder は現在の権限保持側を返します。
func (a *Authority) Holder() domain.Side {
	return a.holder
}
