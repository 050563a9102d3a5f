package pointsplus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholds_Qualifies(t *testing.T) {
	th := Thresholds{MinGames: 20, MinMPG: 15}

	assert.True(t, th.Qualifies(PlayerAggregate{GamesPlayed: 20, MinutesPerGame: 15}), "both limits are inclusive")
	assert.False(t, th.Qualifies(PlayerAggregate{GamesPlayed: 19, MinutesPerGame: 38, AdjustedPPG: 40}))
	assert.False(t, th.Qualifies(PlayerAggregate{GamesPlayed: 60, MinutesPerGame: 14.9}))
	assert.False(t, Thresholds{}.Qualifies(PlayerAggregate{}), "zero games never qualifies")
}

func TestQualify_Monotonic(t *testing.T) {
	players := []PlayerAggregate{
		{PlayerID: 1, GamesPlayed: 25, MinutesPerGame: 31},
		{PlayerID: 2, GamesPlayed: 19, MinutesPerGame: 30},
		{PlayerID: 3, GamesPlayed: 40, MinutesPerGame: 12},
		{PlayerID: 4, GamesPlayed: 12, MinutesPerGame: 11},
		{PlayerID: 5, GamesPlayed: 20, MinutesPerGame: 15},
	}
	strict := Qualify(players, Thresholds{MinGames: 20, MinMPG: 15})
	loose := Qualify(players, Thresholds{MinGames: 10, MinMPG: 10})

	looseIDs := make(map[int64]bool)
	for _, p := range loose {
		looseIDs[p.PlayerID] = true
	}
	for _, p := range strict {
		assert.True(t, looseIDs[p.PlayerID], "player %d", p.PlayerID)
	}
	assert.Len(t, strict, 2)
	assert.Len(t, loose, 5)
}
