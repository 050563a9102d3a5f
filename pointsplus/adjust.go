package pointsplus

import (
	"fmt"
	"math"
	"strings"
)

// LeagueAverages are unweighted team means of defensive rating and pace. They
// feed per-game adjustment and are unrelated to the adjusted PPG baseline.
type LeagueAverages struct {
	DefRating float64
	Pace      float64
}

// ComputeLeagueAverages averages defensive rating and pace over all teams.
func ComputeLeagueAverages(teams []TeamStats) (LeagueAverages, error) {
	if len(teams) == 0 {
		return LeagueAverages{}, &DataIntegrityError{Reason: "no team stats"}
	}
	var def, pace float64
	for _, t := range teams {
		if err := validateTeam(t); err != nil {
			return LeagueAverages{}, err
		}
		def += t.DefRating
		pace += t.Pace
	}
	n := float64(len(teams))
	return LeagueAverages{DefRating: def / n, Pace: pace / n}, nil
}

func validateTeam(t TeamStats) error {
	if !positive(t.DefRating) {
		return &DataIntegrityError{Team: t.Team, Reason: fmt.Sprintf("defensive rating %.2f", t.DefRating)}
	}
	if !positive(t.Pace) {
		return &DataIntegrityError{Team: t.Team, Reason: fmt.Sprintf("pace %.2f", t.Pace)}
	}
	return nil
}

// positive reports whether v is a finite number greater than zero.
func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// AdjustPoints scales raw points by opponent defense and pace relative to the
// league:
//
//	adjusted = raw × (leagueDef / oppDef) × (leaguePace / oppPace)
//
// A stingier defense (lower rating) raises the value and a faster pace lowers
// it. A zero, negative or non-finite rating or pace on either side is an error.
func AdjustPoints(raw float64, opp TeamStats, league LeagueAverages) (float64, error) {
	if err := validateTeam(opp); err != nil {
		return 0, err
	}
	if !positive(league.DefRating) || !positive(league.Pace) {
		return 0, &DataIntegrityError{Reason: "league averages not computed"}
	}
	return raw * (league.DefRating / opp.DefRating) * (league.Pace / opp.Pace), nil
}

// ParseOpponent extracts the opponent code from a matchup string. Home games
// read "OKC vs. HOU" and road games "OKC @ HOU"; the opponent is always the
// second team.
func ParseOpponent(matchup string) (string, error) {
	for _, sep := range []string{" vs. ", " @ "} {
		if parts := strings.SplitN(matchup, sep, 2); len(parts) == 2 {
			opp := strings.TrimSpace(parts[1])
			if opp == "" {
				break
			}
			return opp, nil
		}
	}
	return "", &DataIntegrityError{Reason: fmt.Sprintf("unparseable matchup %q", matchup)}
}

// teamIndex is a lookup of team stats by abbreviation.
type teamIndex map[string]TeamStats

func newTeamIndex(teams []TeamStats) (teamIndex, error) {
	idx := make(teamIndex, len(teams))
	for _, t := range teams {
		if _, dup := idx[t.Team]; dup {
			return nil, &DataIntegrityError{Team: t.Team, Reason: "duplicate team stats"}
		}
		idx[t.Team] = t
	}
	return idx, nil
}

// adjustGame joins one game row to its opponent and adjusts it.
func adjustGame(g GameLog, teams teamIndex, league LeagueAverages) (AdjustedGame, error) {
	opp, err := ParseOpponent(g.Matchup)
	if err != nil {
		return AdjustedGame{}, withGame(err, g)
	}
	stats, ok := teams[opp]
	if !ok {
		return AdjustedGame{}, &DataIntegrityError{PlayerID: g.PlayerID, GameID: g.GameID, Team: opp, Reason: "missing opponent stats"}
	}
	adj, err := AdjustPoints(float64(g.Points), stats, league)
	if err != nil {
		return AdjustedGame{}, withGame(err, g)
	}
	return AdjustedGame{
		GameID:         g.GameID,
		Date:           g.Date,
		Opponent:       opp,
		Matchup:        g.Matchup,
		Result:         g.Result,
		Minutes:        g.Minutes,
		Points:         g.Points,
		AdjustedPoints: adj,
	}, nil
}

func withGame(err error, g GameLog) error {
	if die, ok := err.(*DataIntegrityError); ok {
		cp := *die
		cp.PlayerID = g.PlayerID
		cp.GameID = g.GameID
		return &cp
	}
	return err
}
