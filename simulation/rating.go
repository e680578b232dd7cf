package simulation

import (
	"math/rand/v2"

	"github.com/Dosada05/nations-league/models"
)

const captainMultiplier = 1.5

var positionWeights = map[models.Position]float64{
	models.PositionAT: 1.2,
	models.PositionMD: 1.1,
	models.PositionDF: 1.0,
	models.PositionGK: 0.9,
}

// Rating is the weighted average of every player's skill at their natural
// position. Attackers weigh most and the captain's weight is boosted.
// The result lies in [0, 100]; an empty roster rates 0.
func Rating(team *models.Team) float64 {
	if team == nil || len(team.Players) == 0 {
		return 0
	}

	var weighted, total float64
	for _, p := range team.Players {
		w, ok := positionWeights[p.NaturalPosition]
		if !ok {
			w = 1.0
		}
		if p.IsCaptain {
			w *= captainMultiplier
		}
		weighted += w * float64(clampSkill(p.Skill()))
		total += w
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func clampSkill(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// GenerateRatings draws a skill for every position: 50..100 at the natural
// position, 0..50 elsewhere.
func GenerateRatings(rng *rand.Rand, natural models.Position) map[models.Position]int {
	ratings := make(map[models.Position]int, len(models.Positions))
	for _, pos := range models.Positions {
		if pos == natural {
			ratings[pos] = 50 + rng.IntN(51)
		} else {
			ratings[pos] = rng.IntN(51)
		}
	}
	return ratings
}
