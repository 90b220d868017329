package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

// WriteFact appends one stamped fact to an instance's log. Payloads are
// serialized to canonical JSON so identical streams are byte-identical.
//
// ON CONFLICT DO NOTHING on (instance_id, seq) makes the write idempotent:
// re-delivering a fact after a crash is silently ignored, and a second,
// different fact claiming an already-written seq is ignored too. The log
// is append-only and first-write-wins.
func (j *Journal) WriteFact(ctx context.Context, instanceID string, f round.Fact) error {
	payload := ""
	if f.Payload != nil {
		b, err := round.MarshalCanonical(f.Payload)
		if err != nil {
			return fmt.Errorf("write fact: marshal payload: %w", err)
		}
		payload = string(b)
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO facts (instance_id, seq, kind, actor_id, payload, ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance_id, seq) DO NOTHING
	`,
		instanceID,
		f.Seq,
		string(f.Kind),
		string(f.ActorID),
		payload,
		f.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write fact: %w", err)
	}
	return nil
}

// WriteOutcome stores an instance's terminal outcome. Idempotent: each
// instance completes exactly once, so a duplicate write is ignored.
func (j *Journal) WriteOutcome(ctx context.Context, instanceID string, out *round.Outcome) error {
	deltas := make(map[string]any, len(out.SilverDelta))
	for id, d := range out.SilverDelta {
		deltas[string(id)] = d
	}
	doc := map[string]any{
		"game_id":           out.GameID,
		"silver_delta":      deltas,
		"pool_contribution": out.PoolContribution,
	}
	if out.FlagWinner != "" {
		doc["flag_winner"] = string(out.FlagWinner)
	}
	if out.Summary != nil {
		doc["summary"] = out.Summary
	}

	b, err := round.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("write outcome: marshal: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO outcomes (instance_id, game_id, outcome, ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(instance_id) DO NOTHING
	`,
		instanceID,
		out.GameID,
		string(b),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

// Sink adapts the journal into an engine.FactSink for one instance. Write
// errors cannot propagate through the sink, so they are logged and the
// in-memory run continues; the log may then be incomplete but never
// corrupt.
func (j *Journal) Sink(instanceID string, logger *slog.Logger) engine.FactSink {
	if logger == nil {
		logger = slog.Default()
	}
	return func(f round.Fact) {
		if err := j.WriteFact(context.Background(), instanceID, f); err != nil {
			logger.Error("journal write failed",
				"instance", instanceID,
				"seq", f.Seq,
				"error", err,
			)
		}
	}
}
