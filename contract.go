package main

import (
	"math"

	"github.com/cpacia/pointsplus/pointsplus"
)

const dateLayout = "2006-01-02"

func leaderboardPlayer(p *pointsplus.RankedPlayer) LeaderboardPlayer {
	sd := p.PointsPlusStdDev
	vol := p.VolatilityPercentile
	return LeaderboardPlayer{
		ID:               p.PlayerID,
		Name:             p.Name,
		Team:             p.Team,
		Rank:             p.Rank,
		GP:               p.GamesPlayed,
		PPG:              p.RawPPG,
		AdjPPG:           p.AdjustedPPG,
		PointsPlus:       p.PointsPlus,
		MPG:              p.MinutesPerGame,
		Position:         p.Position,
		Jersey:           p.Jersey,
		UsgPct:           p.UsagePct,
		TsPct:            p.TrueShootingPct,
		PointsPlusStdDev: &sd,
		VolatilityPctile: &vol,
	}
}

func playerDetail(p *pointsplus.RankedPlayer) PlayerDetail {
	log := make([]GameLogEntry, len(p.Games))
	for i, g := range p.Games {
		log[i] = GameLogEntry{
			Date:       g.Date.Format(dateLayout),
			Matchup:    g.Matchup,
			Result:     g.Result,
			Min:        math.Round(g.Minutes*10) / 10,
			Pts:        g.Points,
			AdjPts:     g.AdjustedPoints,
			PointsPlus: g.PointsPlus,
		}
	}
	return PlayerDetail{
		LeaderboardPlayer: leaderboardPlayer(p),
		GameLog:           log,
	}
}

func leaderboard(res *pointsplus.Result) []LeaderboardPlayer {
	out := make([]LeaderboardPlayer, len(res.Players))
	for i := range res.Players {
		out[i] = leaderboardPlayer(&res.Players[i])
	}
	return out
}

func distribution(res *pointsplus.Result) []DistributionBin {
	out := make([]DistributionBin, len(res.Distribution))
	for i, b := range res.Distribution {
		out[i] = DistributionBin{Min: b.Min, Max: b.Max, Label: b.Label, Count: b.Count}
	}
	return out
}

func metadata(res *pointsplus.Result) Metadata {
	ctx := res.Context
	return Metadata{
		GeneratedAt:            ctx.GeneratedAt.UTC(),
		Season:                 ctx.Season,
		AsOfDate:               ctx.AsOfDate.Format(dateLayout),
		QualifyingCriteria:     ctx.Thresholds,
		TotalQualifyingPlayers: ctx.QualifyingPlayers,
		LeagueAvgPointsPlus:    ctx.AvgPointsPlus,
		LeagueAvgAdjPpg:        round1(ctx.AdjustedPPG),
		LeagueAvgDefRating:     round1(ctx.Averages.DefRating),
		LeagueAvgPace:          round1(ctx.Averages.Pace),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
