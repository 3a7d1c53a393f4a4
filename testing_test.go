package hubevent

import (
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	if rec.Last() != nil {
		t.Error("expected no last call")
	}

	rec.Record("chat", "alice", 1)
	rec.Record("tick")
	rec.Record("chat", "bob", 2)

	if rec.Count() != 3 {
		t.Errorf("expected 3 calls, got %d", rec.Count())
	}
	if got := len(rec.CallsFor("chat")); got != 2 {
		t.Errorf("expected 2 chat calls, got %d", got)
	}
	if last := rec.Last(); last.Method != "chat" || last.Args[0] != "bob" {
		t.Errorf("unexpected last call %+v", last)
	}

	rec.Reset()
	if rec.Count() != 0 {
		t.Errorf("expected 0 after reset, got %d", rec.Count())
	}
}

func TestRecorderWaitFor(t *testing.T) {
	rec := NewRecorder()

	go func() {
		time.Sleep(20 * time.Millisecond)
		rec.Record("tick", 1)
	}()

	if !rec.WaitFor(1, time.Second) {
		t.Error("expected WaitFor to observe the call")
	}
	if rec.WaitFor(2, 30*time.Millisecond) {
		t.Error("expected WaitFor to time out")
	}
}
