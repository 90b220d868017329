package games

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

func triviaRoster() round.Roster {
	return round.Roster{
		"alice": {Alive: true, Silver: 100},
		"bob":   {Alive: true, Silver: 100},
		"carol": {Alive: false, Silver: 100},
	}
}

func triviaConfig() TriviaConfig {
	return TriviaConfig{
		Questions: []TriviaQuestion{
			{Prompt: "Capital of France?", Answer: "Paris", Points: 100},
			{Prompt: "2 + 2?", Answer: "4", Points: 100},
		},
		QuestionTime: 20 * time.Second,
	}
}

func newTrivia(t *testing.T, cfg TriviaConfig) (*Trivia, *engine.Driver) {
	t.Helper()
	m, err := NewTrivia(cfg, triviaRoster(), 2)
	require.NoError(t, err)
	return m, engine.NewDriver(m, epoch)
}

func answer(d *engine.Driver, id round.PlayerID, text string) {
	payload, _ := json.Marshal(TriviaAnswer{Answer: text})
	d.Deliver(round.Event{
		Kind:    round.EventSubmitDecision,
		Player:  id,
		Payload: payload,
	})
}

func TestTriviaValidation(t *testing.T) {
	_, err := NewTrivia(TriviaConfig{QuestionTime: time.Second}, triviaRoster(), 0)
	assert.ErrorIs(t, err, ErrNoQuestions)

	cfg := triviaConfig()
	cfg.QuestionTime = 0
	_, err = NewTrivia(cfg, triviaRoster(), 0)
	assert.Error(t, err)
}

func TestAllAnsweredAdvancesEarly(t *testing.T) {
	m, d := newTrivia(t, triviaConfig())

	answer(d, "alice", "Paris")
	assert.Equal(t, 1, m.Question(), "one answer outstanding")

	answer(d, "bob", "London")
	assert.Equal(t, 2, m.Question(), "everyone answered, no need to wait")
	assert.Equal(t, []string{"question_2"}, d.PendingTimers())
}

func TestDeadlineAdvancesUnanswered(t *testing.T) {
	m, d := newTrivia(t, triviaConfig())

	d.Advance(20 * time.Second)
	assert.Equal(t, 2, m.Question())

	d.Advance(20 * time.Second)
	require.True(t, d.Done())
	assert.Equal(t, map[round.PlayerID]int64{"alice": 0, "bob": 0}, d.Output().SilverDelta)
	assert.Equal(t, round.PlayerID(""), d.Output().FlagWinner, "nobody scored, nobody flagged")
}

func TestSpeedBonusRewardsFasterAnswers(t *testing.T) {
	_, d := newTrivia(t, triviaConfig())

	// Instant answer: full half-points bonus. Halfway answer: quarter.
	answer(d, "alice", "Paris")
	d.Advance(10 * time.Second)
	answer(d, "bob", "paris")

	d.Advance(20 * time.Second)
	require.True(t, d.Done())

	out := d.Output()
	assert.Equal(t, int64(150), out.SilverDelta["alice"])
	assert.Equal(t, int64(125), out.SilverDelta["bob"])
	assert.Equal(t, round.PlayerID("alice"), out.FlagWinner)
}

func TestAnswerMatchIsForgiving(t *testing.T) {
	m, d := newTrivia(t, triviaConfig())

	answer(d, "alice", "  pArIs ")
	answer(d, "bob", "pariss")
	d.Advance(20 * time.Second)
	d.Deliver(round.Event{Kind: round.EventForceEnd})

	scores := m.Scores()
	assert.Equal(t, int64(150), scores["alice"])
	assert.Zero(t, scores["bob"])
}

func TestOneAnswerPerQuestion(t *testing.T) {
	_, d := newTrivia(t, triviaConfig())

	answer(d, "alice", "Lyon")
	answer(d, "alice", "Paris")
	answer(d, "bob", "x")
	d.Deliver(round.Event{Kind: round.EventForceEnd})

	assert.Zero(t, d.Output().SilverDelta["alice"], "the wrong first answer stands")
}

func TestStaleDeadlineIgnored(t *testing.T) {
	m, d := newTrivia(t, triviaConfig())

	answer(d, "alice", "Paris")
	answer(d, "bob", "Paris")
	require.Equal(t, 2, m.Question())

	// A question_1 fire that was already queued when the round advanced.
	d.Deliver(round.TimerEvent("question_1"))
	assert.Equal(t, 2, m.Question())
	assert.False(t, d.Done())
}

func TestForceEndPaysRunningScores(t *testing.T) {
	m, d := newTrivia(t, triviaConfig())

	answer(d, "alice", "Paris")
	d.Deliver(round.Event{Kind: round.EventForceEnd})

	require.True(t, d.Done())
	assert.Equal(t, "completed", m.Phase())
	out := d.Output()
	assert.Equal(t, int64(150), out.SilverDelta["alice"])
	assert.Equal(t, int64(0), out.SilverDelta["bob"])
	assert.Equal(t, round.PlayerID("alice"), out.FlagWinner)
}

func TestTieGoesToSmallestID(t *testing.T) {
	_, d := newTrivia(t, triviaConfig())

	answer(d, "alice", "Paris")
	answer(d, "bob", "Paris")
	answer(d, "alice", "4")
	answer(d, "bob", "4")

	require.True(t, d.Done())
	out := d.Output()
	assert.Equal(t, out.SilverDelta["alice"], out.SilverDelta["bob"])
	assert.Equal(t, round.PlayerID("alice"), out.FlagWinner)
}

func TestIneligibleAnswersDropped(t *testing.T) {
	m, d := newTrivia(t, triviaConfig())

	answer(d, "carol", "Paris")
	answer(d, "mallory", "Paris")
	assert.Equal(t, 1, m.Question())
	assert.Empty(t, m.Scores())
}
