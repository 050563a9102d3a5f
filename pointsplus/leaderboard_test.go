package pointsplus

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seasonStart = time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)

// neutralTeams average to exactly DefRating 110 / Pace 100 and each is
// league average, so adjustment is the identity.
func neutralTeams() []TeamStats {
	return []TeamStats{
		{Team: "AAA", DefRating: 110, Pace: 100},
		{Team: "BBB", DefRating: 110, Pace: 100},
	}
}

// playerGames logs one game per day for a player on AAA against BBB.
func playerGames(id int64, name string, minutes float64, points ...int) []GameLog {
	games := make([]GameLog, len(points))
	for i, p := range points {
		matchup := "AAA vs. BBB"
		if i%2 == 1 {
			matchup = "AAA @ BBB"
		}
		games[i] = GameLog{
			PlayerID:   id,
			PlayerName: name,
			Team:       "AAA",
			GameID:     fmt.Sprintf("%d-%03d", id, i),
			Date:       seasonStart.AddDate(0, 0, i),
			Matchup:    matchup,
			Result:     "W",
			Minutes:    minutes,
			Points:     p,
		}
	}
	return games
}

func repeat(points, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = points
	}
	return out
}

func alternating(a, b, n int) []int {
	out := make([]int, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = a
		} else {
			out[i] = b
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.AsOfDate = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	cfg.Now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	return cfg
}

func sampleInput() Input {
	var games []GameLog
	games = append(games, playerGames(1, "Volatile Star", 34, alternating(20, 40, 24)...)...)
	games = append(games, playerGames(2, "Steady Role", 22, repeat(20, 24)...)...)
	games = append(games, playerGames(3, "Average Joe", 30, repeat(25, 24)...)...)
	games = append(games, playerGames(4, "Short Sample", 36, repeat(50, 19)...)...)
	games = append(games, playerGames(5, "Bench Guy", 8, repeat(4, 40)...)...)
	return Input{
		Games: games,
		Teams: neutralTeams(),
		Bios: []PlayerBio{
			{PlayerID: 1, Position: "G", Jersey: "2"},
		},
		Advanced: []PlayerAdvanced{
			{PlayerID: 1, UsagePct: ptr(0.3312), TrueShootingPct: ptr(0.6231)},
		},
	}
}

func TestBuild(t *testing.T) {
	res, err := Build(testConfig(), sampleInput())
	require.NoError(t, err)

	require.Len(t, res.Players, 3)
	assert.Equal(t, 3, res.Context.QualifyingPlayers)
	assert.Equal(t, 25.0, res.Context.AdjustedPPG)
	assert.Equal(t, 100.0, res.Context.AvgPointsPlus)
	assert.Equal(t, "2025-26", res.Context.Season)

	star := res.Players[0]
	assert.Equal(t, int64(1), star.PlayerID)
	assert.Equal(t, 1, star.Rank)
	assert.Equal(t, 120.0, star.PointsPlus)
	assert.Equal(t, 30.0, star.RawPPG)
	assert.Equal(t, 24, star.GamesPlayed)
	assert.Equal(t, "G", star.Position)
	assert.Equal(t, "2", star.Jersey)
	require.NotNil(t, star.UsagePct)
	assert.Equal(t, 33.1, *star.UsagePct)
	assert.Equal(t, 62.3, *star.TrueShootingPct)
	assert.Equal(t, 40.0, star.PointsPlusStdDev)
	assert.Equal(t, 100.0, star.VolatilityPercentile)
	require.Len(t, star.Games, 24)
	assert.Equal(t, 80.0, star.Games[0].PointsPlus)
	assert.Equal(t, 160.0, star.Games[1].PointsPlus)

	assert.Equal(t, int64(3), res.Players[1].PlayerID)
	assert.Equal(t, 100.0, res.Players[1].PointsPlus)
	assert.Equal(t, 0.0, res.Players[1].VolatilityPercentile)
	// Players 2 and 3 both have a std-dev of 0 and share the bottom percentile.
	assert.Equal(t, 0.0, res.Players[2].PointsPlusStdDev)
	assert.Equal(t, 0.0, res.Players[2].VolatilityPercentile)

	assert.Equal(t, int64(2), res.Players[2].PlayerID)
	assert.Equal(t, 80.0, res.Players[2].PointsPlus)
	assert.Nil(t, res.Players[2].UsagePct)
}

func TestBuild_ShortSampleExcludedFromBaseline(t *testing.T) {
	res, err := Build(testConfig(), sampleInput())
	require.NoError(t, err)

	_, ok := res.Player(4)
	assert.False(t, ok, "19 games against minGames=20")
	_, ok = res.Player(5)
	assert.False(t, ok, "8 mpg against minMpg=15")
	// Player 4's 50 ppg never reaches the baseline.
	assert.Equal(t, 25.0, res.Context.AdjustedPPG)
}

func TestBuild_RankingIsTotalAndDeterministic(t *testing.T) {
	in := sampleInput()
	in.Games = append(in.Games, playerGames(9, "Twin B", 30, repeat(25, 24)...)...)
	in.Games = append(in.Games, playerGames(8, "Twin A", 30, repeat(25, 24)...)...)

	first, err := Build(testConfig(), in)
	require.NoError(t, err)

	for i := 1; i < len(first.Players); i++ {
		prev, cur := first.Players[i-1], first.Players[i]
		assert.GreaterOrEqual(t, prev.PointsPlus, cur.PointsPlus)
		assert.Equal(t, i+1, cur.Rank)
	}

	ids := func(r *Result) []int64 {
		out := make([]int64, len(r.Players))
		for i, p := range r.Players {
			out[i] = p.PlayerID
		}
		return out
	}
	assert.Equal(t, []int64{1, 3, 8, 9, 2}, ids(first))

	for i := 0; i < 5; i++ {
		again, err := Build(testConfig(), in)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(again))
	}
}

func TestBuild_DistributionPartitionsPopulation(t *testing.T) {
	res, err := Build(testConfig(), sampleInput())
	require.NoError(t, err)

	total := 0
	for _, b := range res.Distribution {
		total += b.Count
	}
	assert.Equal(t, res.Context.QualifyingPlayers, total)

	for _, p := range res.Players {
		hits := 0
		for _, b := range res.Distribution {
			if p.PointsPlus >= float64(b.Min) && p.PointsPlus < float64(b.Max) {
				hits++
			}
		}
		assert.Equal(t, 1, hits, "player %d", p.PlayerID)
	}
}

func TestBuild_AveragePointsPlusIs100(t *testing.T) {
	in := Input{Teams: []TeamStats{
		{Team: "AAA", DefRating: 106.2, Pace: 97.4},
		{Team: "BBB", DefRating: 114.9, Pace: 103.3},
		{Team: "CCC", DefRating: 111.0, Pace: 99.8},
	}}
	for id := int64(1); id <= 40; id++ {
		games := playerGames(id, fmt.Sprintf("P%d", id), 20+float64(id%15), alternating(int(id%23)+3, int(id%17)+8, 30)...)
		for i := range games {
			if i%3 == 0 {
				games[i].Matchup = "AAA @ CCC"
			}
		}
		in.Games = append(in.Games, games...)
	}

	res, err := Build(testConfig(), in)
	require.NoError(t, err)

	var sum float64
	for _, p := range res.Players {
		sum += p.PointsPlus
	}
	assert.InDelta(t, 100.0, sum/float64(len(res.Players)), 0.05)
	assert.Equal(t, 100.0, res.Context.AvgPointsPlus)
}

func TestBuild_MissingOpponentFailsRun(t *testing.T) {
	in := sampleInput()
	in.Games[3].Matchup = "AAA vs. ZZZ"

	_, err := Build(testConfig(), in)
	var die *DataIntegrityError
	require.True(t, errors.As(err, &die))
	assert.Equal(t, "ZZZ", die.Team)
}

func TestBuild_BadMatchupFailsRun(t *testing.T) {
	in := sampleInput()
	in.Games[len(in.Games)-1].Matchup = "garbage"

	_, err := Build(testConfig(), in)
	var die *DataIntegrityError
	assert.True(t, errors.As(err, &die))
}

func TestBuild_EmptyPopulation(t *testing.T) {
	in := Input{
		Games: playerGames(1, "Rookie", 10, repeat(6, 5)...),
		Teams: neutralTeams(),
	}
	_, err := Build(testConfig(), in)
	assert.True(t, errors.Is(err, ErrEmptyPopulation))
}

func TestBuild_LatestGameSetsTeam(t *testing.T) {
	in := sampleInput()
	for i := range in.Games {
		if in.Games[i].PlayerID == 3 && in.Games[i].Date.After(seasonStart.AddDate(0, 0, 11)) {
			in.Games[i].Team = "BBB"
			in.Games[i].Matchup = "BBB vs. AAA"
		}
	}
	res, err := Build(testConfig(), in)
	require.NoError(t, err)

	p, ok := res.Player(3)
	require.True(t, ok)
	assert.Equal(t, "BBB", p.Team)
}

func TestBuild_NonFiniteTeamStatsFailRun(t *testing.T) {
	for _, bad := range []TeamStats{
		{Team: "BBB", DefRating: math.NaN(), Pace: 100},
		{Team: "BBB", DefRating: math.Inf(1), Pace: 100},
		{Team: "BBB", DefRating: 110, Pace: math.NaN()},
		{Team: "BBB", DefRating: 110, Pace: math.Inf(-1)},
	} {
		in := sampleInput()
		in.Teams[1] = bad

		var (
			res *Result
			err error
		)
		require.NotPanics(t, func() { res, err = Build(testConfig(), in) })
		assert.Nil(t, res)
		var die *DataIntegrityError
		require.True(t, errors.As(err, &die), "%+v", bad)
		assert.Equal(t, "BBB", die.Team)
	}
}

func TestBuild_NonFiniteMinutesFailRun(t *testing.T) {
	in := sampleInput()
	in.Games[5].Minutes = math.NaN()

	_, err := Build(testConfig(), in)
	var die *DataIntegrityError
	require.True(t, errors.As(err, &die))
	assert.Equal(t, in.Games[5].GameID, die.GameID)
}

func TestBuild_AdvancedFieldsAreIndependent(t *testing.T) {
	in := sampleInput()
	in.Advanced = append(in.Advanced,
		PlayerAdvanced{PlayerID: 2, UsagePct: ptr(0.187)},
		PlayerAdvanced{PlayerID: 3, TrueShootingPct: ptr(0.552)},
	)
	res, err := Build(testConfig(), in)
	require.NoError(t, err)

	role, ok := res.Player(2)
	require.True(t, ok)
	require.NotNil(t, role.UsagePct)
	assert.Equal(t, 18.7, *role.UsagePct)
	assert.Nil(t, role.TrueShootingPct)

	joe, ok := res.Player(3)
	require.True(t, ok)
	assert.Nil(t, joe.UsagePct)
	require.NotNil(t, joe.TrueShootingPct)
	assert.Equal(t, 55.2, *joe.TrueShootingPct)
}
