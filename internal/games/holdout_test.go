package games

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/round"
)

var epoch = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func holdoutRoster() round.Roster {
	return round.Roster{
		"alice": {Alive: true, Silver: 100},
		"bob":   {Alive: true, Silver: 100},
		"carol": {Alive: true, Silver: 100},
		"dave":  {Alive: false, Silver: 100},
	}
}

func liveConfig() HoldoutConfig {
	return HoldoutConfig{
		Mode:         HoldoutLive,
		ReadyTimeout: 10 * time.Second,
		Countdown:    3 * time.Second,
		MaxDuration:  time.Minute,
		Prize:        50,
		Stake:        10,
	}
}

func newHoldout(t *testing.T, cfg HoldoutConfig) (*Holdout, *engine.Driver) {
	t.Helper()
	h, err := NewHoldout(cfg, holdoutRoster(), 3)
	require.NoError(t, err)
	return h, engine.NewDriver(h, epoch)
}

func ready(d *engine.Driver, id round.PlayerID) {
	d.Deliver(round.Event{Kind: round.EventReady, Player: id})
}

func release(d *engine.Driver, id round.PlayerID) {
	d.Deliver(round.Event{Kind: round.EventRelease, Player: id})
}

func TestHoldoutValidation(t *testing.T) {
	_, err := NewHoldout(HoldoutConfig{Mode: "speedrun"}, holdoutRoster(), 0)
	assert.ErrorIs(t, err, ErrUnknownHoldoutMode)

	_, err = NewHoldout(liveConfig(), round.Roster{"dead": {Alive: false}}, 0)
	assert.Error(t, err)
}

func TestFullReadyUpSkipsTheWait(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	ready(d, "alice")
	ready(d, "bob")
	assert.Equal(t, "ready", h.Phase(), "countdown needs everyone")

	ready(d, "carol")
	assert.Equal(t, "countdown", h.Phase())
	assert.Equal(t, []string{"countdown"}, d.PendingTimers(), "ready timer canceled")

	d.Advance(3 * time.Second)
	assert.Equal(t, "active", h.Phase())
	assert.True(t, h.Engaged("alice"))
	assert.True(t, h.Engaged("bob"))
	assert.True(t, h.Engaged("carol"))
}

func TestReadyTimeoutWithNobodyAborts(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	d.Advance(10 * time.Second)

	require.True(t, d.Done())
	assert.Equal(t, "completed", h.Phase())

	out := d.Output()
	require.NotNil(t, out)
	assert.Equal(t, map[round.PlayerID]int64{"alice": 0, "bob": 0, "carol": 0}, out.SilverDelta)
	assert.Equal(t, true, out.Summary["aborted"])

	var aborted bool
	for _, f := range d.Facts() {
		if f.Kind == round.FactGameAborted {
			aborted = true
		}
	}
	assert.True(t, aborted)
}

func TestReadyTimeoutProceedsWithWhoeverIsReady(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	ready(d, "alice")
	ready(d, "bob")
	d.Advance(10 * time.Second)
	assert.Equal(t, "countdown", h.Phase())

	d.Advance(3 * time.Second)
	assert.Equal(t, "active", h.Phase())
	assert.False(t, h.Engaged("carol"), "carol never readied")
}

func TestLiveAttritionEndsAtThreshold(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	ready(d, "alice")
	ready(d, "bob")
	ready(d, "carol")
	d.Advance(3 * time.Second)
	require.Equal(t, "active", h.Phase())

	release(d, "bob")
	assert.False(t, d.Done(), "two still holding")

	release(d, "carol")
	require.True(t, d.Done())

	out := d.Output()
	require.NotNil(t, out)
	assert.Equal(t, map[round.PlayerID]int64{
		"alice": 50,
		"bob":   -10,
		"carol": -10,
	}, out.SilverDelta)
	assert.Equal(t, int64(20), out.PoolContribution)
	assert.Equal(t, []any{"alice"}, out.Summary["winners"])
	assert.Equal(t, []any{"bob", "carol"}, out.Summary["eliminated"])
}

func TestStakeClampedToBalance(t *testing.T) {
	roster := round.Roster{
		"alice": {Alive: true, Silver: 100},
		"bob":   {Alive: true, Silver: 4},
	}
	cfg := liveConfig()
	h, err := NewHoldout(cfg, roster, 0)
	require.NoError(t, err)
	d := engine.NewDriver(h, epoch)

	ready(d, "alice")
	ready(d, "bob")
	d.Advance(3 * time.Second)
	release(d, "bob")

	require.True(t, d.Done())
	out := d.Output()
	assert.Equal(t, int64(-4), out.SilverDelta["bob"], "stake cannot take the balance negative")
	assert.Equal(t, int64(4), out.PoolContribution)
}

func TestSoloModeEndsOnTimerOnly(t *testing.T) {
	cfg := liveConfig()
	cfg.Mode = HoldoutSolo
	h, d := newHoldout(t, cfg)

	ready(d, "alice")
	ready(d, "bob")
	ready(d, "carol")
	d.Advance(3 * time.Second)

	release(d, "bob")
	release(d, "carol")
	assert.False(t, d.Done(), "solo mode ignores attrition")

	d.Advance(time.Minute)
	require.True(t, d.Done())
	assert.Equal(t, "completed", h.Phase())
	assert.Equal(t, int64(50), d.Output().SilverDelta["alice"])
	assert.Equal(t, "solo", d.Output().Summary["mode"])
}

func TestTouchReadiesDuringReadyUpOnly(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	d.Deliver(round.Event{Kind: round.EventTouch, Player: "alice"})
	ready(d, "bob")
	ready(d, "carol")
	assert.Equal(t, "countdown", h.Phase(), "touch counts as ready")

	d.Advance(3 * time.Second)
	factCount := len(d.Facts())
	d.Deliver(round.Event{Kind: round.EventTouch, Player: "alice"})
	assert.Len(t, d.Facts(), factCount, "touch while active is a heartbeat no-op")
}

func TestReleaseByOutsiderDropped(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	ready(d, "alice")
	ready(d, "bob")
	ready(d, "carol")
	d.Advance(3 * time.Second)

	release(d, "dave")
	release(d, "dave")
	assert.Equal(t, "active", h.Phase())
	assert.False(t, d.Done())
}

func TestForceEndBeforeActivePaysNobody(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	ready(d, "alice")
	d.Deliver(round.Event{Kind: round.EventForceEnd})

	require.True(t, d.Done())
	assert.Equal(t, "completed", h.Phase())
	out := d.Output()
	assert.Equal(t, map[round.PlayerID]int64{"alice": 0, "bob": 0, "carol": 0}, out.SilverDelta)
	assert.Equal(t, int64(0), out.PoolContribution)
	assert.Empty(t, out.Summary["winners"])
}

func TestSingleReadyPlayerWinsImmediately(t *testing.T) {
	h, d := newHoldout(t, liveConfig())

	ready(d, "alice")
	d.Advance(10 * time.Second)
	require.Equal(t, "countdown", h.Phase())

	d.Advance(3 * time.Second)
	require.True(t, d.Done(), "one engaged player is already at the threshold")
	assert.Equal(t, int64(50), d.Output().SilverDelta["alice"])
}
