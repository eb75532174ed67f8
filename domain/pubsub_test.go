package domain

import (
	"context"
	"testing"
	"time"
)

func TestSimplePubSub_PublishReachesSubscriber(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	ch := ps.Subscribe(Topic("t"))
	defer ps.Unsubscribe(Topic("t"), ch)

	sid := NewSessionID()
	ps.Publish(ctx, Topic("t"), Message{SessionID: sid, Data: []byte("hello")})

	select {
	case msg := <-ch:
		if msg.SessionID != sid {
			t.Errorf("SessionID = %s, want %s", msg.SessionID, sid)
		}
		if string(msg.Data) != "hello" {
			t.Errorf("Data = %q, want %q", msg.Data, "hello")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestSimplePubSub_TopicIsolation(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	a := ps.Subscribe(Topic("a"))
	defer ps.Unsubscribe(Topic("a"), a)

	ps.Publish(ctx, Topic("b"), Message{Data: []byte("x")})

	select {
	case <-a:
		t.Fatal("message leaked across topics")
	default:
	}
}

func TestSimplePubSub_UnsubscribeClosesChannel(t *testing.T) {
	ps := NewSimplePubSub()

	ch := ps.Subscribe(Topic("t"))
	ps.Unsubscribe(Topic("t"), ch)

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// 解除後のpublishはパニックしない
	ps.Publish(context.Background(), Topic("t"), Message{Data: []byte("x")})
}

func TestSimplePubSub_DropsWhenSubscriberFull(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	ch := ps.Subscribe(Topic("t"))
	defer ps.Unsubscribe(Topic("t"), ch)

	// バッファを超えて詰め込んでもPublishはブロックしない
	for i := 0; i < cap(ch)+10; i++ {
		ps.Publish(ctx, Topic("t"), Message{Data: []byte("x")})
	}
	if len(ch) != cap(ch) {
		t.Errorf("len = %d, want %d", len(ch), cap(ch))
	}
}
