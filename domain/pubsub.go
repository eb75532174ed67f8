package domain

import (
	"context"
	"sync"
)

type Topic string

// Message はトピック経由で配送されるメッセージです。
type Message struct {
	SessionID SessionID
	Data      []byte
}

type PubSub interface {
	Publish(ctx context.Context, topic Topic, msg Message)
	Subscribe(topic Topic) chan Message
	Unsubscribe(topic Topic, ch chan Message)
}

// SimplePubSub はプロセス内のトピック配送を行うPubSub実装です。
// 購読者のチャネルが満杯の場合、メッセージは破棄されます。
type SimplePubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]chan Message
}

var _ PubSub = (*SimplePubSub)(nil)

func NewSimplePubSub() *SimplePubSub {
	return &SimplePubSub{
		subscribers: make(map[Topic][]chan Message),
	}
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) {
	p.mu.RLock()
	subs := p.subscribers[topic]
	p.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return
		default:
			// 満杯の購読者はスキップ
		}
	}
}

func (p *SimplePubSub) Subscribe(topic Topic) chan Message {
	ch := make(chan Message, 256)
	p.mu.Lock()
	p.subscribers[topic] = append(p.subscribers[topic], ch)
	p.mu.Unlock()
	return ch
}

func (p *SimplePubSub) Unsubscribe(topic Topic, ch chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subscribers[topic]
	for i, c := range subs {
		if c == ch {
			p.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(c)
			return
		}
	}
}
