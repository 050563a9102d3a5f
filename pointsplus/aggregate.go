package pointsplus

import (
	"math"
	"sort"
)

// Aggregate folds a player's adjusted games into season totals. Every logged
// game counts as one game played; the minutes threshold is applied to the
// season average by Qualify, never per game. Games are ordered by date, with
// the game id breaking same-day ties.
//
// Identity fields (name, team) come from the most recent game so a traded
// player is listed with their current team.
func Aggregate(playerID int64, name, team string, games []AdjustedGame) PlayerAggregate {
	sorted := make([]AdjustedGame, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].GameID < sorted[j].GameID
	})

	agg := PlayerAggregate{
		PlayerID:    playerID,
		Name:        name,
		Team:        team,
		Games:       sorted,
		GamesPlayed: len(sorted),
	}
	if agg.GamesPlayed == 0 {
		return agg
	}

	var pts, adj, mins float64
	for _, g := range sorted {
		pts += float64(g.Points)
		adj += g.AdjustedPoints
		mins += g.Minutes
	}
	n := float64(agg.GamesPlayed)
	agg.RawPPG = pts / n
	agg.AdjustedPPG = adj / n
	agg.MinutesPerGame = mins / n
	return agg
}

// StdDev is the population standard deviation of values. It is zero for
// fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
