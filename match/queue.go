package match

import (
	"errors"
	"sync"
	"time"

	"volley/domain"
)

// QueueEntry はマッチメイキング待機列の1エントリです。
type QueueEntry struct {
	SessionID  domain.SessionID
	Nickname   string
	Token      string
	Rounds     int
	EnqueuedAt time.Time
}

var ErrAlreadyQueued = errors.New("session already in waiting list")

// Queue はマッチメイキングの待機列です。
// エントリはマッチ割り当てまたは自発的な離脱で取り除かれます。
type Queue struct {
	mu      sync.Mutex
	entries []QueueEntry
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Add(entry QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.SessionID == entry.SessionID {
			return ErrAlreadyQueued
		}
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}
	q.entries = append(q.entries, entry)
	return nil
}

func (q *Queue) Remove(sessionID domain.SessionID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.SessionID == sessionID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// PopPair は先着順で2人を取り出します。2人未満ならfalseを返します。
func (q *Queue) PopPair() (QueueEntry, QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) < 2 {
		return QueueEntry{}, QueueEntry{}, false
	}
	a, b := q.entries[0], q.entries[1]
	q.entries = q.entries[2:]
	return a, b, true
}

// PopN は先着順でn人を取り出します。足りなければfalseを返します。
func (q *Queue) PopN(n int) ([]QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) < n {
		return nil, false
	}
	popped := make([]QueueEntry, n)
	copy(popped, q.entries[:n])
	q.entries = q.entries[n:]
	return popped, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot は現在の待機列のコピーを返します。
func (q *Queue) Snapshot() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}
