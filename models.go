package main

import (
	"time"

	"github.com/cpacia/pointsplus/pointsplus"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Credentials struct {
	Username string `json:"username" gorm:"index"`
	Password string `json:"password"`
}

type PWChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type DBCredentials struct {
	gorm.Model
	Username     string
	PasswordHash string
}

// Snapshot is the last successfully built leaderboard for a season. A season
// has at most one snapshot; regenerating replaces it and its player rows in a
// single transaction.
type Snapshot struct {
	gorm.Model
	RunID                  string `gorm:"uniqueIndex"`
	Season                 string `gorm:"uniqueIndex"`
	AsOfDate               datatypes.Date
	GeneratedAt            time.Time
	MinGames               int
	MinMpg                 float64
	TotalQualifyingPlayers int
	LeagueAvgPointsPlus    float64
	LeagueAvgAdjPpg        float64
	LeagueAvgDefRating     float64
	LeagueAvgPace          float64
	Distribution           datatypes.JSON `gorm:"type:json"`
}

// PlayerRow is one ranked player of a season snapshot.
type PlayerRow struct {
	gorm.Model
	Season           string `gorm:"uniqueIndex:idx_season_player"`
	PlayerID         int64  `gorm:"uniqueIndex:idx_season_player"`
	Name             string `gorm:"index"`
	Team             string
	Rank             int
	GamesPlayed      int
	Ppg              float64
	AdjPpg           float64
	PointsPlus       float64
	Mpg              float64
	Position         string
	Jersey           string
	UsgPct           *float64
	TsPct            *float64
	PointsPlusStdDev float64
	VolatilityPctile float64
	GameLog          datatypes.JSON `gorm:"type:json"`
}

// LeaderboardPlayer is the public leaderboard entry.
type LeaderboardPlayer struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Team             string   `json:"team"`
	Rank             int      `json:"rank"`
	GP               int      `json:"gp"`
	PPG              float64  `json:"ppg"`
	AdjPPG           float64  `json:"adjPpg"`
	PointsPlus       float64  `json:"pointsPlus"`
	MPG              float64  `json:"mpg"`
	Position         string   `json:"position,omitempty"`
	Jersey           string   `json:"jersey,omitempty"`
	UsgPct           *float64 `json:"usgPct,omitempty"`
	TsPct            *float64 `json:"tsPct,omitempty"`
	PointsPlusStdDev *float64 `json:"pointsPlusStdDev,omitempty"`
	VolatilityPctile *float64 `json:"volatilityPctile,omitempty"`
}

type GameLogEntry struct {
	Date       string  `json:"date"`
	Matchup    string  `json:"matchup"`
	Result     string  `json:"result"`
	Min        float64 `json:"min"`
	Pts        int     `json:"pts"`
	AdjPts     float64 `json:"adjPts"`
	PointsPlus float64 `json:"pointsPlus"`
}

type PlayerDetail struct {
	LeaderboardPlayer
	GameLog []GameLogEntry `json:"gameLog"`
}

type DistributionBin struct {
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Metadata struct {
	GeneratedAt            time.Time             `json:"generatedAt"`
	Season                 string                `json:"season"`
	AsOfDate               string                `json:"asOfDate"`
	QualifyingCriteria     pointsplus.Thresholds `json:"qualifyingCriteria"`
	TotalQualifyingPlayers int                   `json:"totalQualifyingPlayers"`
	LeagueAvgPointsPlus    float64               `json:"leagueAvgPointsPlus"`
	LeagueAvgAdjPpg        float64               `json:"leagueAvgAdjPpg"`
	LeagueAvgDefRating     float64               `json:"leagueAvgDefRating"`
	LeagueAvgPace          float64               `json:"leagueAvgPace"`
}
