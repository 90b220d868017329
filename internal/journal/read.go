package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/partyround/cartridge/internal/round"
)

// ReadFacts returns an instance's full fact stream in sequence order.
func (j *Journal) ReadFacts(ctx context.Context, instanceID string) ([]round.Fact, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, kind, actor_id, payload, ts
		FROM facts
		WHERE instance_id = ?
		ORDER BY seq ASC
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	defer rows.Close()

	var facts []round.Fact
	for rows.Next() {
		var (
			f       round.Fact
			kind    string
			actor   string
			payload string
			ts      string
		)
		if err := rows.Scan(&f.Seq, &kind, &actor, &payload, &ts); err != nil {
			return nil, fmt.Errorf("read facts: scan: %w", err)
		}
		f.Kind = round.FactKind(kind)
		f.ActorID = round.PlayerID(actor)
		if payload != "" {
			f.Payload, err = decodePayload(payload)
			if err != nil {
				return nil, fmt.Errorf("read facts: seq %d payload: %w", f.Seq, err)
			}
		}
		f.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("read facts: seq %d timestamp: %w", f.Seq, err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	return facts, nil
}

// decodePayload restores a stored payload with integers as int64, not
// float64, so a replayed fact re-serializes to the exact stored bytes.
func decodePayload(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	v, err := restoreIntegers(raw)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func restoreIntegers(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-integer number %q in stored payload", val)
		}
		return n, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			restored, err := restoreIntegers(elem)
			if err != nil {
				return nil, err
			}
			out[k] = restored
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			restored, err := restoreIntegers(elem)
			if err != nil {
				return nil, err
			}
			out[i] = restored
		}
		return out, nil
	default:
		return v, nil
	}
}

// ReadOutcome returns an instance's stored outcome document, or ok=false
// when the instance has not completed.
func (j *Journal) ReadOutcome(ctx context.Context, instanceID string) (string, bool, error) {
	var doc string
	err := j.db.QueryRowContext(ctx, `
		SELECT outcome FROM outcomes WHERE instance_id = ?
	`, instanceID).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read outcome: %w", err)
	}
	return doc, true, nil
}

// Instances lists every instance with journaled facts, ordered by ID.
func (j *Journal) Instances(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT instance_id FROM facts ORDER BY instance_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list instances: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return ids, nil
}
