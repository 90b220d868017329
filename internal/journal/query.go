package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/partyround/cartridge/internal/round"
)

// FactQuery filters an instance's fact stream. Zero-valued fields are not
// applied, so the zero query matches everything.
type FactQuery struct {
	// Kind restricts to one fact kind.
	Kind string

	// Actor restricts to facts attributed to one player.
	Actor string

	// SinceSeq restricts to facts with seq greater than this value.
	SinceSeq int64

	// Limit caps the number of returned facts; 0 means no cap.
	Limit int
}

// compile renders the query as parameterized SQL. Values are always bound,
// never interpolated, and every query orders by seq so results are
// deterministic.
func (q FactQuery) compile(instanceID string) (string, []any) {
	var (
		where  = []string{"instance_id = ?"}
		params = []any{instanceID}
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		params = append(params, q.Kind)
	}
	if q.Actor != "" {
		where = append(where, "actor_id = ?")
		params = append(params, q.Actor)
	}
	if q.SinceSeq > 0 {
		where = append(where, "seq > ?")
		params = append(params, q.SinceSeq)
	}

	sql := fmt.Sprintf(`
		SELECT seq, kind, actor_id, payload, ts
		FROM facts
		WHERE %s
		ORDER BY seq ASC
	`, strings.Join(where, " AND "))

	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params
}

// QueryFacts returns the matching slice of an instance's fact stream, in
// sequence order.
func (j *Journal) QueryFacts(ctx context.Context, instanceID string, q FactQuery) ([]round.Fact, error) {
	sql, params := q.compile(instanceID)
	rows, err := j.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
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
			return nil, fmt.Errorf("query facts: scan: %w", err)
		}
		f.Kind = round.FactKind(kind)
		f.ActorID = round.PlayerID(actor)
		if payload != "" {
			f.Payload, err = decodePayload(payload)
			if err != nil {
				return nil, fmt.Errorf("query facts: seq %d payload: %w", f.Seq, err)
			}
		}
		f.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("query facts: seq %d timestamp: %w", f.Seq, err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	return facts, nil
}
