package domain_test

import (
	"testing"

	"go.uber.org/mock/gomock"

	domain "volley/domain"
	"volley/domain/mocks"
)

// 初期化時にリソースが正しくセットアップされることを確認
func TestNewSessionEndpoint_InitializesDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	ps := mocks.NewMockPubSub(ctrl)

	se, err := domain.NewSessionEndpoint(s, c, ps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if se == nil {
		t.Fatalf("endpoint is nil")
	}
}

func TestNewSessionEndpoint_RejectsNilDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	ps := mocks.NewMockPubSub(ctrl)

	if _, err := domain.NewSessionEndpoint(nil, c, ps); err == nil {
		t.Error("nil session should fail")
	}
	if _, err := domain.NewSessionEndpoint(s, nil, ps); err == nil {
		t.Error("nil connection should fail")
	}
	if _, err := domain.NewSessionEndpoint(s, c, nil); err == nil {
		t.Error("nil pubsub should fail")
	}
}
