package hubevent

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rbaliyan/hubevent/proxy"
)

func TestOnAnyAndOnMissing(t *testing.T) {
	ctx := context.Background()
	hub := TestHub("wildcard")

	anyRec := NewRecorder()
	missingRec := NewRecorder()

	anyReg, err := OnAny(hub, anyRec.Invocation())
	if err != nil {
		t.Fatalf("OnAny failed: %v", err)
	}
	missingReg, err := OnMissing(hub, missingRec.Invocation())
	if err != nil {
		t.Fatalf("OnMissing failed: %v", err)
	}
	if anyReg.Name() != proxy.AnyEvent || missingReg.Name() != proxy.MissingEvent {
		t.Errorf("unexpected registration names %q %q", anyReg.Name(), missingReg.Name())
	}

	var chats int
	On1(hub, "chat", func(string) { chats++ })

	calls := []struct {
		method string
		args   proxy.Arguments
	}{
		{"chat", proxy.Arguments{"alice"}},
		{"typing", proxy.Arguments{"bob", true}},
		{"chat", proxy.Arguments{"carol"}},
		{"presence", nil},
	}
	for _, c := range calls {
		if err := hub.Invoke(ctx, c.method, c.args); err != nil {
			t.Fatalf("Invoke %s failed: %v", c.method, err)
		}
	}

	if chats != 2 {
		t.Errorf("expected 2 chat calls, got %d", chats)
	}

	wantAny := []RecordedCall{
		{Method: "chat", Args: []any{"alice"}},
		{Method: "chat", Args: []any{"carol"}},
	}
	wantMissing := []RecordedCall{
		{Method: "typing", Args: []any{"bob", true}},
		{Method: "presence"},
	}
	ignoreTime := cmp.FilterPath(func(p cmp.Path) bool { return p.Last().String() == ".Time" }, cmp.Ignore())
	if diff := cmp.Diff(wantAny, anyRec.Calls(), ignoreTime); diff != "" {
		t.Errorf("any calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantMissing, missingRec.Calls(), ignoreTime); diff != "" {
		t.Errorf("missing calls mismatch (-want +got):\n%s", diff)
	}

	if anyRec.Count()+missingRec.Count() != len(calls) {
		t.Errorf("expected exactly one wildcard per call, got %d any and %d missing",
			anyRec.Count(), missingRec.Count())
	}
}

func TestWildcardDispose(t *testing.T) {
	ctx := context.Background()
	hub := TestHub("wildcard-dispose")
	rec := NewRecorder()

	reg, _ := OnMissing(hub, rec.Invocation())
	hub.Invoke(ctx, "unknown", nil)
	reg.Close()
	hub.Invoke(ctx, "unknown", nil)

	if rec.Count() != 1 {
		t.Errorf("expected 1 call, got %d", rec.Count())
	}
}

func TestDisposingLastHandlerMakesMethodMissing(t *testing.T) {
	ctx := context.Background()
	hub := TestHub("unbind")
	anyRec := NewRecorder()
	missingRec := NewRecorder()
	OnAny(hub, anyRec.Invocation())
	OnMissing(hub, missingRec.Invocation())

	reg, _ := On(hub, "chat", func() {})
	hub.Invoke(ctx, "chat", nil)
	reg.Close()
	hub.Invoke(ctx, "chat", nil)

	if anyRec.Count() != 1 || missingRec.Count() != 1 {
		t.Errorf("expected 1 any and 1 missing, got %d and %d", anyRec.Count(), missingRec.Count())
	}
}
