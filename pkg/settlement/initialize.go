package settlement

import (
	"fmt"

	"github.com/jwebster45206/adventure-engine/pkg/game"
)

// minStat is the floor for stats reduced by a carry penalty.
const minStat = 1

// Initialize applies every carried item's penalty to a copy of base, in
// order. Items without a penalty, or with an unknown penalty type, are
// skipped.
func Initialize(worldID string, items []CarriedItem, base game.PlayerProfile) InitResult {
	profile := base.Clone()
	profile.CurrentWorldID = worldID

	res := InitResult{
		AppliedPenalties: []AppliedPenalty{},
		Warnings:         []string{},
	}

	for _, item := range items {
		p := item.CarryPenalty
		if p == nil || !p.Type.Valid() {
			continue
		}

		change := map[string]int{}
		switch p.Type {
		case PenaltyMaxHPReduction:
			profile.Stats.MaxHP = max(minStat, profile.Stats.MaxHP-p.Value)
			profile.Stats.HP = min(profile.Stats.HP, profile.Stats.MaxHP)
			change["max_hp"] = -p.Value
		case PenaltyPowerReduction:
			profile.Stats.Power = max(minStat, profile.Stats.Power-p.Value)
			change["power"] = -p.Value
		case PenaltyTraitCurse:
			profile.Traits = append(profile.Traits, game.Trait{
				ID:     "curse_" + item.ID,
				Name:   item.Name + "'s curse",
				Effect: p.Description,
			})
			change["trait"] = 1
		}

		res.AppliedPenalties = append(res.AppliedPenalties, AppliedPenalty{
			ItemName:           item.Name,
			PenaltyDescription: p.Description,
			StatChange:         change,
		})
		res.Warnings = append(res.Warnings, fmt.Sprintf("⚠️ %s: %s", item.Name, p.Description))
	}

	res.ModifiedProfile = profile
	return res
}

// PermanentStatChanges sums the cross-run cost of carried items. Only
// max_hp reductions persist.
func PermanentStatChanges(items []CarriedItem) map[string]int {
	changes := map[string]int{}
	for _, item := range items {
		if item.CarryPenalty != nil && item.CarryPenalty.Type == PenaltyMaxHPReduction {
			changes["max_hp"] -= item.CarryPenalty.Value
		}
	}
	return changes
}
