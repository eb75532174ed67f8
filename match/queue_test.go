package match

import (
	"errors"
	"fmt"
	"testing"

	"volley/domain"
)

func entry(id string) QueueEntry {
	return QueueEntry{SessionID: domain.SessionID(id), Nickname: "p-" + id, Rounds: 3}
}

func TestQueueAddRejectsDuplicateSession(t *testing.T) {
	q := NewQueue()
	if err := q.Add(entry("a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := q.Add(entry("a")); !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("duplicate Add: err = %v, want ErrAlreadyQueued", err)
	}
	if got := q.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func TestQueuePopPairFIFO(t *testing.T) {
	q := NewQueue()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Add(entry(id)); err != nil {
			t.Fatalf("Add %s failed: %v", id, err)
		}
	}

	a, b, ok := q.PopPair()
	if !ok {
		t.Fatal("PopPair returned false with 3 waiting")
	}
	if a.SessionID != "a" || b.SessionID != "b" {
		t.Errorf("pair = (%s, %s), want (a, b)", a.SessionID, b.SessionID)
	}
	if _, _, ok := q.PopPair(); ok {
		t.Error("PopPair succeeded with 1 waiting")
	}
	if got := q.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func TestQueuePopN(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 4; i++ {
		if err := q.Add(entry(fmt.Sprintf("p%d", i))); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	if _, ok := q.PopN(5); ok {
		t.Error("PopN(5) succeeded with 4 waiting")
	}
	popped, ok := q.PopN(4)
	if !ok {
		t.Fatal("PopN(4) returned false")
	}
	for i, e := range popped {
		if want := domain.SessionID(fmt.Sprintf("p%d", i)); e.SessionID != want {
			t.Errorf("popped[%d] = %s, want %s", i, e.SessionID, want)
		}
	}
	if got := q.Len(); got != 0 {
		t.Errorf("Len = %d, want 0", got)
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	if err := q.Add(entry("a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := q.Add(entry("b")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if !q.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if q.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}

	snap := q.Snapshot()
	if len(snap) != 1 || snap[0].SessionID != "b" {
		t.Errorf("snapshot = %+v, want single entry b", snap)
	}
}

func TestQueueStampsEnqueuedAt(t *testing.T) {
	q := NewQueue()
	if err := q.Add(entry("a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if q.Snapshot()[0].EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt not stamped on Add")
	}
}
