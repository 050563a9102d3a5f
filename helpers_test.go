package main

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cpacia/pointsplus/pointsplus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	testSeasonStart = time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)
	testAsOf        = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
)

// staticSource serves a fixed input, or a fixed error.
type staticSource struct {
	in  pointsplus.Input
	err error
}

func (s *staticSource) Load(_ context.Context) (pointsplus.Input, error) {
	return s.in, s.err
}

func testGames(id int64, name string, points, n int) []pointsplus.GameLog {
	games := make([]pointsplus.GameLog, n)
	for i := range games {
		games[i] = pointsplus.GameLog{
			PlayerID:   id,
			PlayerName: name,
			Team:       "BOS",
			GameID:     fmt.Sprintf("00225%05d", int(id)*100+i),
			Date:       testSeasonStart.AddDate(0, 0, i),
			Matchup:    "BOS vs. NYK",
			Result:     "W",
			Minutes:    30,
			Points:     points,
		}
	}
	return games
}

// testInput has three qualifying players at 30, 25 and 20 ppg against a
// league average opponent, so Points+ is 120, 100 and 80.
func testInput() pointsplus.Input {
	var games []pointsplus.GameLog
	games = append(games, testGames(101, "Jayson Tatum", 30, 24)...)
	games = append(games, testGames(102, "Jaylen Brown", 25, 24)...)
	games = append(games, testGames(103, "Derrick White", 20, 24)...)
	games = append(games, testGames(104, "Two Way", 40, 5)...)
	return pointsplus.Input{
		Games: games,
		Teams: []pointsplus.TeamStats{
			{Team: "BOS", DefRating: 110, Pace: 100},
			{Team: "NYK", DefRating: 110, Pace: 100},
		},
		Bios: []pointsplus.PlayerBio{
			{PlayerID: 101, Position: "F", Jersey: "0"},
		},
		Advanced: []pointsplus.PlayerAdvanced{
			{PlayerID: 101, UsagePct: floatPtr(0.304), TrueShootingPct: floatPtr(0.579)},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }

func testPipelineConfig(season string) pointsplus.Config {
	cfg := pointsplus.DefaultConfig()
	cfg.Season = season
	cfg.AsOfDate = testAsOf
	cfg.Workers = 2
	cfg.Now = func() time.Time { return testAsOf.Add(6 * time.Hour) }
	return cfg
}

func testResult(t *testing.T, season string) *pointsplus.Result {
	t.Helper()
	res, err := pointsplus.Build(testPipelineConfig(season), testInput())
	require.NoError(t, err)
	return res
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, applyMigrations(db))
	return db
}

func TestValidateSeason(t *testing.T) {
	tests := []struct {
		season string
		valid  bool
	}{
		{"2025-26", true},
		{"1999-00", true},
		{"2025-27", false},
		{"2025", false},
		{"25-26", false},
		{"2025-2026", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, validateSeason(tt.season), tt.season)
	}
}

func TestParsePlayerID(t *testing.T) {
	id, err := parsePlayerID("1628983")
	assert.NoError(t, err)
	assert.Equal(t, int64(1628983), id)

	for _, s := range []string{"", "abc", "-4", "0", "12.5"} {
		_, err := parsePlayerID(s)
		assert.Error(t, err, s)
	}
}

func TestOptions_PipelineConfig(t *testing.T) {
	opts := &options{Season: "2024-25", AsOf: "2025-04-13", MinGames: 65, MinMpg: 20, Workers: 3}
	cfg, err := opts.pipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, "2024-25", cfg.Season)
	assert.Equal(t, time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC), cfg.AsOfDate)
	assert.Equal(t, pointsplus.Thresholds{MinGames: 65, MinMPG: 20}, cfg.Thresholds)
	assert.Equal(t, 3, cfg.Workers)

	_, err = (&options{Season: "2024", MinGames: 20, MinMpg: 15}).pipelineConfig()
	assert.Error(t, err)

	_, err = (&options{Season: "2024-25", AsOf: "04/13/2025", MinGames: 20, MinMpg: 15}).pipelineConfig()
	assert.Error(t, err)

	_, err = (&options{Season: "2024-25", MinGames: 0, MinMpg: 15}).pipelineConfig()
	assert.Error(t, err)

	_, err = (&options{Season: "2024-25", MinGames: 20, MinMpg: -1}).pipelineConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")

	// No minutes floor is allowed.
	cfg, err = (&options{Season: "2024-25", MinGames: 20, MinMpg: 0}).pipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Thresholds.MinMPG)
}
