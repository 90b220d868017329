package config

import (
	"fmt"

	"github.com/partyround/cartridge/internal/engine"
	"github.com/partyround/cartridge/internal/games"
)

// Build assembles the runnable machine described by the manifest.
func Build(m *Manifest) (engine.Machine, error) {
	g := m.Game
	switch g.Kind {
	case KindVaultBid:
		return games.NewVaultBid(g.VaultBid.Vault, m.Roster, g.Day)

	case KindDuels:
		return games.NewDuels(games.DuelRules{
			RoundPrize:    g.Duels.RoundPrize,
			ChampionBonus: g.Duels.ChampionBonus,
			CrowdBonus:    g.Duels.CrowdBonus,
		}, m.Roster, g.Day)

	case KindVaultCracker:
		return games.NewVaultCracker(g.VaultCracker.TimeLimit, m.Roster, g.Day)

	case KindHoldout:
		return games.NewHoldout(games.HoldoutConfig{
			Mode:         g.Holdout.Mode,
			ReadyTimeout: g.Holdout.ReadyTimeout,
			Countdown:    g.Holdout.Countdown,
			MaxDuration:  g.Holdout.MaxDuration,
			Threshold:    g.Holdout.Threshold,
			Prize:        g.Holdout.Prize,
			Stake:        g.Holdout.Stake,
		}, m.Roster, g.Day)

	case KindTrivia:
		return games.NewTrivia(games.TriviaConfig{
			QuestionTime: g.Trivia.QuestionTime,
			Questions:    g.Trivia.Questions,
		}, m.Roster, g.Day)
	}
	return nil, fmt.Errorf("unknown game kind %q", g.Kind)
}
