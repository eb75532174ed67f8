package netsync

import (
	"testing"

	"volley/domain"
)

func TestAuthorityFollowsBall(t *testing.T) {
	a := NewAuthority(domain.SideLeft, 800)

	if !a.Update(100) {
		t.Error("ball deep in left court, left should hold authority")
	}
	if a.Update(700) {
		t.Error("ball deep in right court, left should lose authority")
	}
	if a.Holder() != domain.SideRight {
		t.Errorf("holder = %q, want right", a.Holder())
	}
}

func TestAuthorityHysteresisAroundCenter(t *testing.T) {
	a := NewAuthority(domain.SideLeft, 800)

	a.Update(100) // 左が確保
	// 中央±20px内では保持者は変わらない
	for _, x := range []float64{385, 400, 415, 419.9} {
		if !a.Update(x) {
			t.Errorf("x=%g inside margin, left should retain authority", x)
		}
	}
	// マージンを超えたら移る
	if a.Update(421) {
		t.Error("x=421 beyond margin, authority should transfer to right")
	}
	// 戻りも同様にマージンを要求する
	for _, x := range []float64{400, 381} {
		if a.Update(x) {
			t.Errorf("x=%g inside margin, right should retain authority", x)
		}
	}
	if !a.Update(379) {
		t.Error("x=379 beyond margin, authority should return to left")
	}
}

func TestAuthorityInitialHolderIsLeft(t *testing.T) {
	right := NewAuthority(domain.SideRight, 800)
	if right.Holder() != domain.SideLeft {
		t.Errorf("initial holder = %q, want left", right.Holder())
	}
	if right.Update(400) {
		t.Error("ball at center, right peer should not start with authority")
	}
}
