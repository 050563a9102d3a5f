package pointsplus

import (
	"runtime"
	"time"
)

const (
	DefaultSeason   = "2025-26"
	DefaultMinGames = 20
	DefaultMinMPG   = 15.0
)

// GameLog is one raw row of a player's game log, already joined to a player
// and team by the data collaborator.
type GameLog struct {
	PlayerID   int64
	PlayerName string
	Team       string
	GameID     string
	Date       time.Time
	Matchup    string
	Result     string
	Minutes    float64
	Points     int
}

// TeamStats are the season advanced stats for one team.
type TeamStats struct {
	Team      string
	DefRating float64
	Pace      float64
}

type PlayerBio struct {
	PlayerID int64
	Position string
	Jersey   string
}

// PlayerAdvanced holds usage and true shooting as fractions (0.31, not 31).
// Either may be nil when the source row leaves it blank.
type PlayerAdvanced struct {
	PlayerID        int64
	UsagePct        *float64
	TrueShootingPct *float64
}

// Input is a full snapshot of raw data for one season.
type Input struct {
	Games    []GameLog
	Teams    []TeamStats
	Bios     []PlayerBio
	Advanced []PlayerAdvanced
}

// Thresholds are the inclusive qualification minimums.
type Thresholds struct {
	MinGames int     `json:"minGames"`
	MinMPG   float64 `json:"minMpg"`
}

// Config is threaded through a pipeline run in place of any global season
// state, so several seasons can be built side by side.
type Config struct {
	Season       string
	AsOfDate     time.Time
	Thresholds   Thresholds
	Workers      int
	Distribution DistributionConfig
	Now          func() time.Time
}

// DefaultConfig returns the thresholds used by the published leaderboard.
func DefaultConfig() Config {
	return Config{
		Season:   DefaultSeason,
		AsOfDate: time.Now().UTC().Truncate(24 * time.Hour),
		Thresholds: Thresholds{
			MinGames: DefaultMinGames,
			MinMPG:   DefaultMinMPG,
		},
		Workers:      runtime.NumCPU(),
		Distribution: DefaultDistributionConfig(),
		Now:          time.Now,
	}
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// AdjustedGame is a single game after opponent adjustment. Immutable once built.
type AdjustedGame struct {
	GameID         string
	Date           time.Time
	Opponent       string
	Matchup        string
	Result         string
	Minutes        float64
	Points         int
	AdjustedPoints float64
}

// PlayerAggregate is the stage-one season record for a player. It carries no
// league-relative values; those only exist on RankedPlayer.
type PlayerAggregate struct {
	PlayerID       int64
	Name           string
	Team           string
	Games          []AdjustedGame
	GamesPlayed    int
	RawPPG         float64
	AdjustedPPG    float64
	MinutesPerGame float64
}

// RankedGame is an AdjustedGame with its league-relative Points+.
type RankedGame struct {
	AdjustedGame
	PointsPlus float64
}

// RankedPlayer is a fully populated leaderboard entry. Unrounded values are
// kept for ordering; display values are rounded to one decimal.
type RankedPlayer struct {
	PlayerID             int64
	Name                 string
	Team                 string
	Rank                 int
	GamesPlayed          int
	RawPPG               float64
	AdjustedPPG          float64
	MinutesPerGame       float64
	PointsPlus           float64
	PointsPlusStdDev     float64
	VolatilityPercentile float64
	Position             string
	Jersey               string
	UsagePct             *float64
	TrueShootingPct      *float64
	Games                []RankedGame

	pointsPlusExact float64
	adjustedExact   float64
	stdDevExact     float64
}

// LeagueContext summarizes a run.
type LeagueContext struct {
	Season            string
	AsOfDate          time.Time
	GeneratedAt       time.Time
	Thresholds        Thresholds
	Averages          LeagueAverages
	AdjustedPPG       float64
	QualifyingPlayers int
	AvgPointsPlus     float64
}

// Result is the single output contract of a pipeline run.
type Result struct {
	Players      []RankedPlayer
	Distribution []DistributionBin
	Context      LeagueContext
}

// Player looks up a ranked player by id.
func (r *Result) Player(id int64) (*RankedPlayer, bool) {
	for i := range r.Players {
		if r.Players[i].PlayerID == id {
			return &r.Players[i], true
		}
	}
	return nil, false
}
