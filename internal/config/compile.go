package config

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/partyround/cartridge/internal/games"
	"github.com/partyround/cartridge/internal/round"
)

// CompileError is a manifest compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileManifest parses a built CUE value into a Manifest. The value is
// the manifest root, holding "roster" and "game" structs.
func CompileManifest(v cue.Value) (*Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	roster, err := compileRoster(v.LookupPath(cue.ParsePath("roster")))
	if err != nil {
		return nil, err
	}

	game, err := compileGame(v.LookupPath(cue.ParsePath("game")))
	if err != nil {
		return nil, err
	}

	return &Manifest{Roster: roster, Game: *game}, nil
}

func compileRoster(v cue.Value) (round.Roster, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "roster", Message: "roster is required", Pos: v.Pos()}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	roster := round.Roster{}
	for iter.Next() {
		id := round.PlayerID(iter.Label())
		pv := iter.Value()

		alive, err := lookupBool(pv, "alive", true)
		if err != nil {
			return nil, err
		}
		silver, err := lookupInt(pv, "silver", 0)
		if err != nil {
			return nil, err
		}
		gold, err := lookupInt(pv, "gold", 0)
		if err != nil {
			return nil, err
		}

		roster[id] = round.PlayerState{Alive: alive, Silver: silver, Gold: gold}
	}

	if len(roster) == 0 {
		return nil, &CompileError{Field: "roster", Message: "roster is empty", Pos: v.Pos()}
	}
	return roster, nil
}

func compileGame(v cue.Value) (*GameSpec, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "game", Message: "game is required", Pos: v.Pos()}
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return nil, &CompileError{Field: "game.kind", Message: "game kind is required", Pos: v.Pos()}
	}
	kind, err := kindVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	day, err := lookupInt(v, "day", 0)
	if err != nil {
		return nil, err
	}

	spec := &GameSpec{Kind: kind, Day: int(day)}
	switch kind {
	case KindVaultBid:
		spec.VaultBid, err = compileVaultBid(v)
	case KindDuels:
		spec.Duels, err = compileDuels(v)
	case KindVaultCracker:
		spec.VaultCracker, err = compileVaultCracker(v)
	case KindHoldout:
		spec.Holdout, err = compileHoldout(v)
	case KindTrivia:
		spec.Trivia, err = compileTrivia(v)
	default:
		return nil, &CompileError{
			Field:   "game.kind",
			Message: fmt.Sprintf("unknown game kind %q", kind),
			Pos:     kindVal.Pos(),
		}
	}
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func compileVaultBid(v cue.Value) (*VaultBidSpec, error) {
	vault, err := requireInt(v, "vault")
	if err != nil {
		return nil, err
	}
	return &VaultBidSpec{Vault: vault}, nil
}

func compileDuels(v cue.Value) (*DuelsSpec, error) {
	prize, err := requireInt(v, "round_prize")
	if err != nil {
		return nil, err
	}
	champion, err := lookupInt(v, "champion_bonus", 0)
	if err != nil {
		return nil, err
	}
	crowd, err := lookupInt(v, "crowd_bonus", 0)
	if err != nil {
		return nil, err
	}
	return &DuelsSpec{RoundPrize: prize, ChampionBonus: champion, CrowdBonus: crowd}, nil
}

func compileVaultCracker(v cue.Value) (*VaultCrackerSpec, error) {
	limit, err := requireDuration(v, "time_limit_ms")
	if err != nil {
		return nil, err
	}
	return &VaultCrackerSpec{TimeLimit: limit}, nil
}

func compileHoldout(v cue.Value) (*HoldoutSpec, error) {
	mode, err := v.LookupPath(cue.ParsePath("mode")).String()
	if err != nil {
		return nil, &CompileError{Field: "game.mode", Message: "holdout mode is required", Pos: v.Pos()}
	}

	ready, err := requireDuration(v, "ready_timeout_ms")
	if err != nil {
		return nil, err
	}
	countdown, err := requireDuration(v, "countdown_ms")
	if err != nil {
		return nil, err
	}
	maxDur, err := requireDuration(v, "max_duration_ms")
	if err != nil {
		return nil, err
	}
	threshold, err := lookupInt(v, "threshold", 1)
	if err != nil {
		return nil, err
	}
	prize, err := requireInt(v, "prize")
	if err != nil {
		return nil, err
	}
	stake, err := lookupInt(v, "stake", 0)
	if err != nil {
		return nil, err
	}

	return &HoldoutSpec{
		Mode:         games.HoldoutMode(mode),
		ReadyTimeout: ready,
		Countdown:    countdown,
		MaxDuration:  maxDur,
		Threshold:    int(threshold),
		Prize:        prize,
		Stake:        stake,
	}, nil
}

func compileTrivia(v cue.Value) (*TriviaSpec, error) {
	questionTime, err := requireDuration(v, "question_time_ms")
	if err != nil {
		return nil, err
	}

	listVal := v.LookupPath(cue.ParsePath("questions"))
	if !listVal.Exists() {
		return nil, &CompileError{Field: "game.questions", Message: "question bank is required", Pos: v.Pos()}
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var questions []games.TriviaQuestion
	for iter.Next() {
		qv := iter.Value()
		prompt, err := qv.LookupPath(cue.ParsePath("prompt")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		answer, err := qv.LookupPath(cue.ParsePath("answer")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		points, err := requireInt(qv, "points")
		if err != nil {
			return nil, err
		}
		questions = append(questions, games.TriviaQuestion{
			Prompt: prompt,
			Answer: answer,
			Points: points,
		})
	}

	return &TriviaSpec{QuestionTime: questionTime, Questions: questions}, nil
}

// lookupInt reads an optional integer field. Floats are forbidden across
// the manifest schema: every amount is whole silver, every duration whole
// milliseconds.
func lookupInt(v cue.Value, field string, def int64) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be an integer: %v", err),
			Pos:     fv.Pos(),
		}
	}
	return n, nil
}

func requireInt(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: "field is required", Pos: v.Pos()}
	}
	return lookupInt(v, field, 0)
}

func requireDuration(v cue.Value, field string) (time.Duration, error) {
	ms, err := requireInt(v, field)
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return 0, &CompileError{
			Field:   field,
			Message: "duration must be positive",
			Pos:     v.LookupPath(cue.ParsePath(field)).Pos(),
		}
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func lookupBool(v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a bool: %v", err),
			Pos:     fv.Pos(),
		}
	}
	return b, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
