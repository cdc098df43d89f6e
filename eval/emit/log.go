package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter writes events to a writer, either as human-readable text
// or as JSON lines, for interactive debugging and ad-hoc log capture.
//
// Example text output:
//
//	[done] key=pkg:parse(main.go) tag=parse
//
// Example JSON output:
//
//	{"kind":"done","location":"pkg:parse(main.go)","tag":"parse"}
//
// The "message" field is omitted when the event has no text message.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter returns an Emitter that writes to writer (os.Stdout if
// nil). jsonMode selects JSON-lines output over the text format.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

func (l *LogEmitter) Emit(_ context.Context, e Event) error {
	if l.jsonMode {
		l.emitJSON(e)
	} else {
		l.emitText(e)
	}
	return nil
}

func (l *LogEmitter) emitJSON(e Event) {
	data, err := json.Marshal(struct {
		Kind     string `json:"kind"`
		Location string `json:"location"`
		Tag      string `json:"tag"`
		Message  string `json:"message,omitempty"`
	}{
		Kind:     e.Kind.String(),
		Location: e.Location,
		Tag:      e.Tag,
		Message:  e.Message(),
	})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":%q}\n", err.Error())
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(e Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] key=%s tag=%s", e.Kind, e.Location, e.Tag)
	if msg := e.Message(); msg != "" {
		_, _ = fmt.Fprintf(l.writer, " msg=%s", msg)
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		if l.jsonMode {
			l.emitJSON(e)
		} else {
			l.emitText(e)
		}
	}
	return nil
}

// Flush is a no-op: LogEmitter writes synchronously with no internal
// buffering. Wrap writer in a bufio.Writer and flush that directly if
// buffering is desired.
func (l *LogEmitter) Flush(context.Context) error {
	return nil
}
