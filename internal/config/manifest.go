// Package config loads cartridge manifests written in CUE. A manifest
// binds a roster snapshot to one game definition; the loader compiles it
// into typed Go structs and the builder turns those into a runnable
// machine.
package config

import (
	"time"

	"github.com/partyround/cartridge/internal/games"
	"github.com/partyround/cartridge/internal/round"
)

// Game kinds accepted in a manifest's game.kind field.
const (
	KindVaultBid     = "vault_bid"
	KindDuels        = "duels"
	KindVaultCracker = "vault_cracker"
	KindHoldout      = "holdout"
	KindTrivia       = "trivia"
)

// Manifest is one compiled cartridge manifest: the roster snapshot plus a
// single game definition.
type Manifest struct {
	Roster round.Roster
	Game   GameSpec
}

// GameSpec is the tagged union of game definitions. Kind selects which of
// the per-kind pointers is populated.
type GameSpec struct {
	Kind string
	Day  int

	VaultBid     *VaultBidSpec
	Duels        *DuelsSpec
	VaultCracker *VaultCrackerSpec
	Holdout      *HoldoutSpec
	Trivia       *TriviaSpec
}

// VaultBidSpec parameterizes the single-round vault auction.
type VaultBidSpec struct {
	Vault int64
}

// DuelsSpec parameterizes the round-robin duel tournament.
type DuelsSpec struct {
	RoundPrize    int64
	ChampionBonus int64
	CrowdBonus    int64
}

// VaultCrackerSpec parameterizes the async arcade minigame. Durations are
// carried as millisecond integers in CUE; floats are forbidden throughout.
type VaultCrackerSpec struct {
	TimeLimit time.Duration
}

// HoldoutSpec parameterizes the attrition game.
type HoldoutSpec struct {
	Mode         games.HoldoutMode
	ReadyTimeout time.Duration
	Countdown    time.Duration
	MaxDuration  time.Duration
	Threshold    int
	Prize        int64
	Stake        int64
}

// TriviaSpec parameterizes the globally clocked trivia game.
type TriviaSpec struct {
	QuestionTime time.Duration
	Questions    []games.TriviaQuestion
}
