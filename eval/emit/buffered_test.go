package emit

import (
	"context"
	"testing"
)

func TestBufferedEmitterHistory(t *testing.T) {
	b := NewBufferedEmitter()
	ctx := context.Background()

	_ = b.Emit(ctx, NewEvent(KindEnqueueing, "k1", "fam", ""))
	_ = b.Emit(ctx, NewEvent(KindDone, "k1", "fam", ""))
	_ = b.Emit(ctx, NewEvent(KindDone, "k2", "other", ""))

	got := b.History("fam")
	if len(got) != 2 {
		t.Fatalf("History(fam) len = %d, want 2", len(got))
	}
	if got[0].Kind != KindEnqueueing || got[1].Kind != KindDone {
		t.Fatalf("History(fam) out of order: %+v", got)
	}

	if got := b.History("missing"); len(got) != 0 {
		t.Fatalf("History(missing) = %v, want empty", got)
	}
}

func TestBufferedEmitterFilter(t *testing.T) {
	b := NewBufferedEmitter()
	ctx := context.Background()
	_ = b.Emit(ctx, NewEvent(KindDone, "k1", "fam", ""))
	_ = b.Emit(ctx, NewEvent(KindErrored, "k2", "fam", ""))

	errKind := KindErrored
	got := b.HistoryWithFilter("fam", HistoryFilter{Kind: &errKind})
	if len(got) != 1 || got[0].Location != "k2" {
		t.Fatalf("HistoryWithFilter by kind = %+v", got)
	}

	got = b.HistoryWithFilter("fam", HistoryFilter{Location: "k1"})
	if len(got) != 1 || got[0].Location != "k1" {
		t.Fatalf("HistoryWithFilter by location = %+v", got)
	}
}

func TestBufferedEmitterClear(t *testing.T) {
	b := NewBufferedEmitter()
	ctx := context.Background()
	_ = b.Emit(ctx, NewEvent(KindDone, "k1", "fam", ""))
	_ = b.Emit(ctx, NewEvent(KindDone, "k2", "other", ""))

	b.Clear("fam")
	if len(b.History("fam")) != 0 {
		t.Fatalf("History(fam) after Clear(fam) not empty")
	}
	if len(b.History("other")) != 1 {
		t.Fatalf("History(other) should survive Clear(fam)")
	}

	b.Clear("")
	if len(b.History("other")) != 0 {
		t.Fatalf("History(other) after Clear(\"\") not empty")
	}
}
