package round

import (
	"bytes"
	"fmt"
	"time"
)

// FormatTrace renders a fact stream as a deterministic line-per-fact text
// trace. Each line is the canonical JSON of the fact's stable fields, so
// two streams compare equal exactly when their observable content is
// identical. Golden files and replay verification both build on this.
func FormatTrace(facts []Fact) (string, error) {
	var buf bytes.Buffer
	for _, f := range facts {
		doc := map[string]any{
			"seq":  f.Seq,
			"kind": string(f.Kind),
			"ts":   f.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if f.ActorID != "" {
			doc["actor"] = string(f.ActorID)
		}
		if f.Payload != nil {
			doc["payload"] = f.Payload
		}

		line, err := MarshalCanonical(doc)
		if err != nil {
			return "", fmt.Errorf("format trace: seq %d: %w", f.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
