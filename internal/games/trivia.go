package games

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

// TriviaQuestion is one entry of the question bank. Answers are matched
// case-insensitively after trimming whitespace.
type TriviaQuestion struct {
	Prompt string
	Answer string
	Points int64
}

// TriviaConfig parameterizes the globally clocked trivia cartridge: every
// player sees the same question at the same time and answers against a
// shared deadline.
type TriviaConfig struct {
	Questions []TriviaQuestion

	// QuestionTime is the shared deadline per question. A correct answer
	// earns the question's points plus a speed bonus of up to half the
	// points, proportional to the time remaining.
	QuestionTime time.Duration
}

// TriviaAnswer is the decision payload for one question.
type TriviaAnswer struct {
	Answer string `json:"answer"`
}

type triviaPhase string

const (
	triviaAsking    triviaPhase = "asking"
	triviaCompleted triviaPhase = "completed"
)

type triviaState struct {
	phase    triviaPhase
	index    int
	answered map[round.PlayerID]bool
	scores   map[round.PlayerID]int64
	askedAt  time.Time
}

// Trivia is the hand-built trivia machine. Unlike the decision engine it
// runs on a global clock: the deadline timer is shared by all players and
// the round advances early only when everyone has answered.
type Trivia struct {
	cfg    TriviaConfig
	roster round.Roster
	day    int
	state  triviaState
}

// ErrNoQuestions rejects construction with an empty question bank.
var ErrNoQuestions = errors.New("games: trivia needs at least one question")

// NewTrivia constructs a trivia machine over a roster snapshot.
func NewTrivia(cfg TriviaConfig, roster round.Roster, day int) (*Trivia, error) {
	if len(cfg.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if cfg.QuestionTime <= 0 {
		return nil, errors.New("games: trivia needs a positive question time")
	}
	if len(roster.Eligible()) == 0 {
		return nil, errors.New("games: trivia needs eligible players")
	}

	return &Trivia{
		cfg:    cfg,
		roster: roster,
		day:    day,
		state: triviaState{
			phase:    triviaAsking,
			answered: map[round.PlayerID]bool{},
			scores:   map[round.PlayerID]int64{},
		},
	}, nil
}

// Phase returns the current lifecycle phase.
func (m *Trivia) Phase() string {
	return string(m.state.phase)
}

// Question returns the 1-based index of the current question.
func (m *Trivia) Question() int {
	return m.state.index + 1
}

// Scores returns a copy of the running score table.
func (m *Trivia) Scores() map[round.PlayerID]int64 {
	out := make(map[round.PlayerID]int64, len(m.state.scores))
	for id, s := range m.state.scores {
		out[id] = s
	}
	return out
}

// Begin asks the first question.
func (m *Trivia) Begin(now time.Time) engine.Transition {
	var t engine.Transition
	t.Emit(round.FactRoundStarted, "", map[string]any{
		"game":      "trivia",
		"questions": int64(len(m.cfg.Questions)),
	})
	m.ask(&t, 0, now)
	return t
}

// Handle applies one event.
func (m *Trivia) Handle(ev round.Event, now time.Time) engine.Transition {
	var t engine.Transition
	if m.state.phase == triviaCompleted {
		return t
	}

	switch ev.Kind {
	case round.EventSubmitDecision:
		m.handleAnswer(&t, ev.Player, ev.Payload, now)
	case round.EventTimer:
		// The timer carries the question index in its name; a stale fire
		// for an already-revealed question is a no-op.
		if ev.Timer == m.deadlineTimer(m.state.index) {
			m.reveal(&t, now)
		}
	case round.EventForceEnd:
		m.complete(&t)
	}
	return t
}

func (m *Trivia) handleAnswer(t *engine.Transition, id round.PlayerID, payload json.RawMessage, now time.Time) {
	if !m.roster.Contains(id) || m.state.answered[id] {
		return
	}
	var ans TriviaAnswer
	if err := json.Unmarshal(payload, &ans); err != nil {
		return
	}

	q := m.cfg.Questions[m.state.index]
	elapsed := now.Sub(m.state.askedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > m.cfg.QuestionTime {
		elapsed = m.cfg.QuestionTime
	}

	next := m.cloneState()
	next.answered[id] = true
	correct := matchesAnswer(ans.Answer, q.Answer)
	if correct {
		remaining := m.cfg.QuestionTime - elapsed
		bonus := q.Points * int64(remaining) / (2 * int64(m.cfg.QuestionTime))
		next.scores[id] += q.Points + bonus
	}
	m.state = next

	// The fact deliberately omits correctness: scores surface only at
	// reveal, so a spectating orchestrator cannot leak the answer.
	t.Emit(round.FactDecisionRecorded, id, map[string]any{
		"question":   int64(m.state.index + 1),
		"elapsed_ms": elapsed.Milliseconds(),
	})

	if len(m.state.answered) == len(m.roster.Eligible()) {
		t.Cancel = append(t.Cancel, m.deadlineTimer(m.state.index))
		m.reveal(t, now)
	}
}

// reveal closes the current question and either asks the next one or
// completes the game.
func (m *Trivia) reveal(t *engine.Transition, now time.Time) {
	q := m.cfg.Questions[m.state.index]

	scores := make(map[string]any, len(m.state.scores))
	for id, s := range m.state.scores {
		scores[string(id)] = s
	}
	t.Emit(round.FactRoundRevealed, "", map[string]any{
		"question": int64(m.state.index + 1),
		"answer":   q.Answer,
		"answered": int64(len(m.state.answered)),
		"scores":   scores,
	})

	if m.state.index+1 == len(m.cfg.Questions) {
		m.complete(t)
		return
	}
	m.ask(t, m.state.index+1, now)
}

func (m *Trivia) ask(t *engine.Transition, index int, now time.Time) {
	next := m.cloneState()
	next.index = index
	next.answered = map[round.PlayerID]bool{}
	next.askedAt = now
	m.state = next

	t.Emit(round.FactQuestionAsked, "", map[string]any{
		"question": int64(index + 1),
		"prompt":   m.cfg.Questions[index].Prompt,
		"total":    int64(len(m.cfg.Questions)),
	})
	t.Schedule = append(t.Schedule, engine.TimerRequest{
		Name:  m.deadlineTimer(index),
		After: m.cfg.QuestionTime,
	})
}

// complete settles the game on the running scores. Valid mid-question: a
// force end pays out whatever has been earned so far.
func (m *Trivia) complete(t *engine.Transition) {
	current := m.state.index

	next := m.cloneState()
	next.phase = triviaCompleted
	m.state = next

	deltas := map[round.PlayerID]int64{}
	for _, id := range m.roster.Eligible() {
		deltas[id] = 0
	}
	for id, s := range m.state.scores {
		deltas[id] = s
	}

	// Top scorer takes the flag; smallest ID breaks ties. Nobody scoring
	// means nobody flagged.
	winner := championOf(m.state.scores)

	t.Emit(round.FactGameCompleted, "", map[string]any{
		"game":   "trivia",
		"winner": winner,
	})
	t.Cancel = append(t.Cancel, m.deadlineTimer(current))
	t.Done = true
	t.Output = &round.Outcome{
		GameID:      "trivia",
		SilverDelta: round.ClampSilver(deltas, m.roster),
		FlagWinner:  winner,
		Summary: map[string]any{
			"questions": int64(len(m.cfg.Questions)),
			"winner":    winner,
		},
	}
}

func (m *Trivia) deadlineTimer(index int) string {
	return fmt.Sprintf("question_%d", index+1)
}

func (m *Trivia) cloneState() triviaState {
	next := m.state
	next.answered = make(map[round.PlayerID]bool, len(m.state.answered))
	for id := range m.state.answered {
		next.answered[id] = true
	}
	next.scores = make(map[round.PlayerID]int64, len(m.state.scores))
	for id, s := range m.state.scores {
		next.scores[id] = s
	}
	return next
}

func matchesAnswer(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}
