package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestOTelEmitterEmit(t *testing.T) {
	tracer := otel.Tracer("depeval-test")
	e := NewOTelEmitter(tracer)
	ctx := context.Background()

	if err := e.Emit(ctx, NewEvent(KindDone, "k1", "fam", "ok")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := e.EmitBatch(ctx, []Event{NewEvent(KindErrored, "k2", "fam", "boom")}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if err := e.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestTagFilterForwardsOnlyMatching(t *testing.T) {
	b := NewBufferedEmitter()
	f := NewTagFilter(b, mustRegexp(t, `^fam$`))
	ctx := context.Background()

	_ = f.Emit(ctx, NewEvent(KindDone, "k1", "fam", ""))
	_ = f.Emit(ctx, NewEvent(KindDone, "k2", "other", ""))

	if got := b.History("fam"); len(got) != 1 {
		t.Fatalf("expected 1 event forwarded, got %d", len(got))
	}
	if got := b.History("other"); len(got) != 0 {
		t.Fatalf("non-matching tag should not be forwarded, got %d", len(got))
	}
}
