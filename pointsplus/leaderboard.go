package pointsplus

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// selfCheckTolerance bounds how far the mean Points+ of the qualifying
// population may drift from 100 before a run is rejected.
const selfCheckTolerance = 1e-6

// Build runs the full pipeline over one season snapshot.
//
// Stage one adjusts and aggregates every player concurrently and joins on a
// barrier. Stage two runs on the resulting immutable aggregates: qualify,
// compute the baseline, scale, rank, derive volatility and bin the
// distribution. Any data integrity problem fails the whole run.
func Build(cfg Config, in Input) (*Result, error) {
	log := logrus.WithFields(logrus.Fields{
		"component": "pointsplus",
		"season":    cfg.Season,
	})

	league, err := ComputeLeagueAverages(in.Teams)
	if err != nil {
		return nil, err
	}
	teams, err := newTeamIndex(in.Teams)
	if err != nil {
		return nil, err
	}

	aggregates, err := aggregatePlayers(in.Games, teams, league, cfg.workers())
	if err != nil {
		return nil, err
	}

	qualified := Qualify(aggregates, cfg.Thresholds)
	log.WithFields(logrus.Fields{
		"players":    len(aggregates),
		"qualifying": len(qualified),
		"minGames":   cfg.Thresholds.MinGames,
		"minMpg":     cfg.Thresholds.MinMPG,
	}).Info("Qualification complete")

	baseline, err := ComputeBaseline(qualified)
	if err != nil {
		return nil, err
	}

	ranked := rankPlayers(qualified, baseline, newJoins(in))
	assignVolatility(ranked)

	avg := meanPointsPlus(ranked)
	if math.Abs(avg-100) > selfCheckTolerance {
		return nil, &OrderingViolation{Stage: "self-check", Detail: fmt.Sprintf("league average Points+ is %.6f", avg)}
	}

	values := make([]float64, len(ranked))
	for i := range ranked {
		values[i] = ranked[i].PointsPlus
	}

	res := &Result{
		Players:      ranked,
		Distribution: Distribution(values, cfg.Distribution),
		Context: LeagueContext{
			Season:            cfg.Season,
			AsOfDate:          cfg.AsOfDate,
			GeneratedAt:       cfg.now(),
			Thresholds:        cfg.Thresholds,
			Averages:          league,
			AdjustedPPG:       baseline.AdjustedPPG,
			QualifyingPlayers: len(ranked),
			AvgPointsPlus:     round1(avg),
		},
	}

	log.WithFields(logrus.Fields{
		"leagueAvgAdjPpg": round1(baseline.AdjustedPPG),
		"leader":          ranked[0].Name,
	}).Info("Leaderboard built")
	return res, nil
}

// aggregatePlayers groups game rows by player and adjusts each player's games
// on a bounded worker pool. Results land at a fixed index per player, so the
// output order is player id ascending regardless of scheduling.
func aggregatePlayers(games []GameLog, teams teamIndex, league LeagueAverages, workers int) ([]PlayerAggregate, error) {
	byPlayer := make(map[int64][]int)
	for i, g := range games {
		byPlayer[g.PlayerID] = append(byPlayer[g.PlayerID], i)
	}
	ids := make([]int64, 0, len(byPlayer))
	for id := range byPlayer {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]PlayerAggregate, len(ids))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range jobs {
				if failed() {
					continue
				}
				agg, err := aggregatePlayer(games, byPlayer[ids[slot]], teams, league)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				out[slot] = agg
			}
		}()
	}
	for slot := range ids {
		jobs <- slot
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func aggregatePlayer(games []GameLog, rows []int, teams teamIndex, league LeagueAverages) (PlayerAggregate, error) {
	adjusted := make([]AdjustedGame, 0, len(rows))
	latest := games[rows[0]]
	for _, i := range rows {
		g := games[i]
		if g.Minutes < 0 || math.IsNaN(g.Minutes) || math.IsInf(g.Minutes, 0) || g.Points < 0 {
			return PlayerAggregate{}, &DataIntegrityError{PlayerID: g.PlayerID, GameID: g.GameID, Reason: "invalid minutes or points"}
		}
		a, err := adjustGame(g, teams, league)
		if err != nil {
			return PlayerAggregate{}, err
		}
		adjusted = append(adjusted, a)
		if g.Date.After(latest.Date) || (g.Date.Equal(latest.Date) && g.GameID > latest.GameID) {
			latest = g
		}
	}
	return Aggregate(latest.PlayerID, latest.PlayerName, latest.Team, adjusted), nil
}

type joins struct {
	bios     map[int64]PlayerBio
	advanced map[int64]PlayerAdvanced
}

func newJoins(in Input) joins {
	j := joins{
		bios:     make(map[int64]PlayerBio, len(in.Bios)),
		advanced: make(map[int64]PlayerAdvanced, len(in.Advanced)),
	}
	for _, b := range in.Bios {
		if _, ok := j.bios[b.PlayerID]; !ok {
			j.bios[b.PlayerID] = b
		}
	}
	for _, a := range in.Advanced {
		if _, ok := j.advanced[a.PlayerID]; !ok {
			j.advanced[a.PlayerID] = a
		}
	}
	return j
}

// rankPlayers scales every qualified player and sorts them into a total order:
// Points+ descending, adjusted PPG descending, player id ascending.
func rankPlayers(qualified []PlayerAggregate, baseline Baseline, j joins) []RankedPlayer {
	ranked := make([]RankedPlayer, len(qualified))
	for i, p := range qualified {
		games := make([]RankedGame, len(p.Games))
		adjusted := make([]float64, len(p.Games))
		for k, g := range p.Games {
			adjusted[k] = g.AdjustedPoints
			games[k] = RankedGame{AdjustedGame: g, PointsPlus: round1(baseline.Scale(g.AdjustedPoints))}
			games[k].AdjustedPoints = round1(g.AdjustedPoints)
		}

		pp := baseline.Scale(p.AdjustedPPG)
		// Points+ is linear in adjusted points, so the deviation of per-game
		// Points+ is the scaled deviation of adjusted points.
		sd := baseline.Scale(StdDev(adjusted))
		rp := RankedPlayer{
			PlayerID:         p.PlayerID,
			Name:             p.Name,
			Team:             p.Team,
			GamesPlayed:      p.GamesPlayed,
			RawPPG:           round1(p.RawPPG),
			AdjustedPPG:      round1(p.AdjustedPPG),
			MinutesPerGame:   round1(p.MinutesPerGame),
			PointsPlus:       round1(pp),
			PointsPlusStdDev: round1(sd),
			Games:            games,
			pointsPlusExact:  pp,
			adjustedExact:    p.AdjustedPPG,
			stdDevExact:      sd,
		}
		if b, ok := j.bios[p.PlayerID]; ok {
			rp.Position = b.Position
			rp.Jersey = b.Jersey
		}
		if a, ok := j.advanced[p.PlayerID]; ok {
			rp.UsagePct = percent(a.UsagePct)
			rp.TrueShootingPct = percent(a.TrueShootingPct)
		}
		ranked[i] = rp
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		pa, pb := ranked[a], ranked[b]
		if pa.pointsPlusExact != pb.pointsPlusExact {
			return pa.pointsPlusExact > pb.pointsPlusExact
		}
		if pa.adjustedExact != pb.adjustedExact {
			return pa.adjustedExact > pb.adjustedExact
		}
		return pa.PlayerID < pb.PlayerID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// assignVolatility sets each player's percentile rank of Points+ standard
// deviation: 0 is the steadiest scorer, 100 the most volatile. Tied players
// share a percentile.
func assignVolatility(ranked []RankedPlayer) {
	n := len(ranked)
	if n == 0 {
		return
	}
	sds := make([]float64, n)
	for i := range ranked {
		sds[i] = ranked[i].stdDevExact
	}
	sort.Float64s(sds)

	for i := range ranked {
		if n == 1 {
			ranked[i].VolatilityPercentile = 0
			continue
		}
		lower := sort.SearchFloat64s(sds, ranked[i].stdDevExact)
		ranked[i].VolatilityPercentile = round1(100 * float64(lower) / float64(n-1))
	}
}

// percent converts an optional fraction to a percentage with one decimal.
func percent(frac *float64) *float64 {
	if frac == nil {
		return nil
	}
	v := round1(*frac * 100)
	return &v
}

func meanPointsPlus(ranked []RankedPlayer) float64 {
	if len(ranked) == 0 {
		return 0
	}
	var sum float64
	for _, p := range ranked {
		sum += p.pointsPlusExact
	}
	return sum / float64(len(ranked))
}
