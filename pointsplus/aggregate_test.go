package pointsplus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	day := time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC)
	games := []AdjustedGame{
		{GameID: "3", Date: day.AddDate(0, 0, 4), Minutes: 30, Points: 30, AdjustedPoints: 33},
		{GameID: "1", Date: day, Minutes: 36, Points: 20, AdjustedPoints: 18},
		{GameID: "2", Date: day.AddDate(0, 0, 2), Minutes: 2, Points: 0, AdjustedPoints: 0},
	}

	agg := Aggregate(1, "A Player", "OKC", games)
	assert.Equal(t, 3, agg.GamesPlayed)
	assert.InDelta(t, 50.0/3, agg.RawPPG, 1e-9)
	assert.InDelta(t, 17.0, agg.AdjustedPPG, 1e-9)
	assert.InDelta(t, 68.0/3, agg.MinutesPerGame, 1e-9)

	// Sorted by date and the caller's slice is untouched.
	assert.Equal(t, []string{"1", "2", "3"}, []string{agg.Games[0].GameID, agg.Games[1].GameID, agg.Games[2].GameID})
	assert.Equal(t, "3", games[0].GameID)
}

func TestAggregate_NoGames(t *testing.T) {
	agg := Aggregate(1, "Nobody", "OKC", nil)
	assert.Equal(t, 0, agg.GamesPlayed)
	assert.Zero(t, agg.AdjustedPPG)
}

func TestStdDev(t *testing.T) {
	assert.Zero(t, StdDev(nil))
	assert.Zero(t, StdDev([]float64{42}))
	assert.Zero(t, StdDev([]float64{5, 5, 5}))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}
