package emit

import (
	"context"
	"regexp"
)

// TagFilter wraps an Emitter, forwarding only events whose Tag matches
// a regular expression. Use it to subscribe to one key family's
// diagnostics without paying for every other family's volume.
type TagFilter struct {
	next    Emitter
	pattern *regexp.Regexp
}

// NewTagFilter returns a TagFilter forwarding events to next whenever
// Event.Tag matches pattern.
func NewTagFilter(next Emitter, pattern *regexp.Regexp) *TagFilter {
	return &TagFilter{next: next, pattern: pattern}
}

func (f *TagFilter) Emit(ctx context.Context, e Event) error {
	if !f.pattern.MatchString(e.Tag) {
		return nil
	}
	return f.next.Emit(ctx, e)
}

func (f *TagFilter) EmitBatch(ctx context.Context, events []Event) error {
	var matched []Event
	for _, e := range events {
		if f.pattern.MatchString(e.Tag) {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return f.next.EmitBatch(ctx, matched)
}

func (f *TagFilter) Flush(ctx context.Context) error {
	return f.next.Flush(ctx)
}
