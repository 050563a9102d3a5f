package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cpacia/pointsplus/pointsplus"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errSeasonNotFound = errors.New("season not found")

func applyMigrations(db *gorm.DB) error {
	return db.AutoMigrate(&DBCredentials{}, &Snapshot{}, &PlayerRow{})
}

// saveSnapshot replaces the stored snapshot for the result's season. Readers
// see either the previous snapshot or the new one, never a mix.
func saveSnapshot(db *gorm.DB, res *pointsplus.Result) (*Snapshot, error) {
	bins, err := json.Marshal(distribution(res))
	if err != nil {
		return nil, fmt.Errorf("marshaling distribution: %w", err)
	}

	meta := metadata(res)
	snap := &Snapshot{
		RunID:                  uuid.NewString(),
		Season:                 meta.Season,
		AsOfDate:               datatypes.Date(res.Context.AsOfDate),
		GeneratedAt:            meta.GeneratedAt,
		MinGames:               meta.QualifyingCriteria.MinGames,
		MinMpg:                 meta.QualifyingCriteria.MinMPG,
		TotalQualifyingPlayers: meta.TotalQualifyingPlayers,
		LeagueAvgPointsPlus:    meta.LeagueAvgPointsPlus,
		LeagueAvgAdjPpg:        meta.LeagueAvgAdjPpg,
		LeagueAvgDefRating:     meta.LeagueAvgDefRating,
		LeagueAvgPace:          meta.LeagueAvgPace,
		Distribution:           datatypes.JSON(bins),
	}

	rows := make([]*PlayerRow, 0, len(res.Players))
	for i := range res.Players {
		detail := playerDetail(&res.Players[i])
		gameLog, err := json.Marshal(detail.GameLog)
		if err != nil {
			return nil, fmt.Errorf("marshaling game log for %d: %w", detail.ID, err)
		}
		rows = append(rows, &PlayerRow{
			Season:           snap.Season,
			PlayerID:         detail.ID,
			Name:             detail.Name,
			Team:             detail.Team,
			Rank:             detail.Rank,
			GamesPlayed:      detail.GP,
			Ppg:              detail.PPG,
			AdjPpg:           detail.AdjPPG,
			PointsPlus:       detail.PointsPlus,
			Mpg:              detail.MPG,
			Position:         detail.Position,
			Jersey:           detail.Jersey,
			UsgPct:           detail.UsgPct,
			TsPct:            detail.TsPct,
			PointsPlusStdDev: *detail.PointsPlusStdDev,
			VolatilityPctile: *detail.VolatilityPctile,
			GameLog:          datatypes.JSON(gameLog),
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("season = ?", snap.Season).Delete(&PlayerRow{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("season = ?", snap.Season).Delete(&Snapshot{}).Error; err != nil {
			return err
		}
		if err := tx.Create(snap).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// storedSeasons lists seasons with a snapshot, most recent first.
func storedSeasons(db *gorm.DB) ([]string, error) {
	var seasons []string
	if err := db.Model(&Snapshot{}).Distinct().Pluck("season", &seasons).Error; err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(seasons)))
	return seasons, nil
}

// selectSeason picks the requested season, or the latest when requested is
// empty. It returns errSeasonNotFound for an unknown season.
func selectSeason(seasons []string, requested string) (string, error) {
	if len(seasons) == 0 {
		return "", errSeasonNotFound
	}
	if requested == "" {
		return seasons[0], nil
	}
	for _, s := range seasons {
		if s == requested {
			return s, nil
		}
	}
	return "", errSeasonNotFound
}

func loadSnapshot(db *gorm.DB, season string) (*Snapshot, error) {
	var snap Snapshot
	if err := db.Where("season = ?", season).First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSeasonNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (s *Snapshot) metadata() Metadata {
	return Metadata{
		GeneratedAt: s.GeneratedAt.UTC(),
		Season:      s.Season,
		AsOfDate:    time.Time(s.AsOfDate).Format(dateLayout),
		QualifyingCriteria: pointsplus.Thresholds{
			MinGames: s.MinGames,
			MinMPG:   s.MinMpg,
		},
		TotalQualifyingPlayers: s.TotalQualifyingPlayers,
		LeagueAvgPointsPlus:    s.LeagueAvgPointsPlus,
		LeagueAvgAdjPpg:        s.LeagueAvgAdjPpg,
		LeagueAvgDefRating:     s.LeagueAvgDefRating,
		LeagueAvgPace:          s.LeagueAvgPace,
	}
}

func (s *Snapshot) distribution() ([]DistributionBin, error) {
	bins := []DistributionBin{}
	if len(s.Distribution) == 0 {
		return bins, nil
	}
	if err := json.Unmarshal(s.Distribution, &bins); err != nil {
		return nil, fmt.Errorf("decoding distribution: %w", err)
	}
	return bins, nil
}

func loadLeaderboard(db *gorm.DB, season string) ([]LeaderboardPlayer, error) {
	var rows []PlayerRow
	if err := db.Where("season = ?", season).Order("rank ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]LeaderboardPlayer, len(rows))
	for i := range rows {
		out[i] = rows[i].summary()
	}
	return out, nil
}

func loadPlayerDetail(db *gorm.DB, season string, playerID int64) (*PlayerDetail, error) {
	var row PlayerRow
	err := db.Where("season = ? AND player_id = ?", season, playerID).First(&row).Error
	if err != nil {
		return nil, err
	}
	detail := &PlayerDetail{LeaderboardPlayer: row.summary(), GameLog: []GameLogEntry{}}
	if len(row.GameLog) > 0 {
		if err := json.Unmarshal(row.GameLog, &detail.GameLog); err != nil {
			return nil, fmt.Errorf("decoding game log: %w", err)
		}
	}
	return detail, nil
}

func (r *PlayerRow) summary() LeaderboardPlayer {
	sd := r.PointsPlusStdDev
	vol := r.VolatilityPctile
	return LeaderboardPlayer{
		ID:               r.PlayerID,
		Name:             r.Name,
		Team:             r.Team,
		Rank:             r.Rank,
		GP:               r.GamesPlayed,
		PPG:              r.Ppg,
		AdjPPG:           r.AdjPpg,
		PointsPlus:       r.PointsPlus,
		MPG:              r.Mpg,
		Position:         r.Position,
		Jersey:           r.Jersey,
		UsgPct:           r.UsgPct,
		TsPct:            r.TsPct,
		PointsPlusStdDev: &sd,
		VolatilityPctile: &vol,
	}
}
