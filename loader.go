package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cpacia/pointsplus/pointsplus"
)

// Raw export file names, as written by the stats fetcher.
const (
	gameLogsFile       = "game_logs.csv"
	teamStatsFile      = "team_stats.csv"
	playerIndexFile    = "player_index.csv"
	playerAdvancedFile = "player_advanced_stats.csv"
)

// csvTable is a parsed CSV file addressed by column name.
type csvTable struct {
	name   string
	header map[string]int
	rows   [][]string
}

func readCSV(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(filepath.Base(path), f)
}

func parseCSV(name string, r io.Reader) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	t := &csvTable{name: name, header: make(map[string]int), rows: records[1:]}
	for i, col := range records[0] {
		t.header[strings.ToUpper(strings.TrimSpace(col))] = i
	}
	return t, nil
}

func (t *csvTable) has(col string) bool {
	_, ok := t.header[col]
	return ok
}

func (t *csvTable) require(cols ...string) error {
	for _, c := range cols {
		if !t.has(c) {
			return fmt.Errorf("%s: missing column %s", t.name, c)
		}
	}
	return nil
}

func (t *csvTable) get(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// loadRawData reads the four CSV exports from dir. Game logs and team stats
// are required; player index and advanced stats are optional joins.
func loadRawData(dir string) (pointsplus.Input, error) {
	var in pointsplus.Input

	logs, err := readCSV(filepath.Join(dir, gameLogsFile))
	if err != nil {
		return in, err
	}
	games, teamIDs, err := parseGameLogs(logs)
	if err != nil {
		return in, err
	}
	in.Games = games

	teams, err := readCSV(filepath.Join(dir, teamStatsFile))
	if err != nil {
		return in, err
	}
	if in.Teams, err = parseTeamStats(teams, teamIDs); err != nil {
		return in, err
	}

	if idx, err := readCSV(filepath.Join(dir, playerIndexFile)); err == nil {
		in.Bios = parsePlayerIndex(idx)
	} else if !errors.Is(err, os.ErrNotExist) {
		return in, err
	}

	if adv, err := readCSV(filepath.Join(dir, playerAdvancedFile)); err == nil {
		in.Advanced = parsePlayerAdvanced(adv)
	} else if !errors.Is(err, os.ErrNotExist) {
		return in, err
	}
	return in, nil
}

// parseGameLogs converts game log rows and returns the TEAM_ID to
// abbreviation mapping they imply, which the team stats join needs.
func parseGameLogs(t *csvTable) ([]pointsplus.GameLog, map[string]string, error) {
	if err := t.require("PLAYER_ID", "PLAYER_NAME", "TEAM_ABBREVIATION", "GAME_ID", "GAME_DATE", "MATCHUP", "MIN", "PTS"); err != nil {
		return nil, nil, err
	}
	teamIDs := make(map[string]string)
	games := make([]pointsplus.GameLog, 0, len(t.rows))
	for n, row := range t.rows {
		line := n + 2
		id, err := strconv.ParseInt(t.get(row, "PLAYER_ID"), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: player id: %w", t.name, line, err)
		}
		date, err := parseGameDate(t.get(row, "GAME_DATE"))
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", t.name, line, err)
		}
		mins, err := parseMinutes(t.get(row, "MIN"))
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: minutes: %w", t.name, line, err)
		}
		pts, err := parseCount(t.get(row, "PTS"))
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: points: %w", t.name, line, err)
		}

		abbr := t.get(row, "TEAM_ABBREVIATION")
		if teamID := t.get(row, "TEAM_ID"); teamID != "" {
			teamIDs[teamID] = abbr
		}
		games = append(games, pointsplus.GameLog{
			PlayerID:   id,
			PlayerName: t.get(row, "PLAYER_NAME"),
			Team:       abbr,
			GameID:     t.get(row, "GAME_ID"),
			Date:       date,
			Matchup:    t.get(row, "MATCHUP"),
			Result:     t.get(row, "WL"),
			Minutes:    mins,
			Points:     pts,
		})
	}
	return games, teamIDs, nil
}

// parseTeamStats resolves each team to an abbreviation through TEAM_ID (as
// seen in the game logs), an explicit TEAM_ABBREVIATION column, or the
// franchise name, in that order.
func parseTeamStats(t *csvTable, teamIDs map[string]string) ([]pointsplus.TeamStats, error) {
	if err := t.require("DEF_RATING", "PACE"); err != nil {
		return nil, err
	}
	out := make([]pointsplus.TeamStats, 0, len(t.rows))
	for n, row := range t.rows {
		line := n + 2
		abbr := teamIDs[t.get(row, "TEAM_ID")]
		if abbr == "" {
			abbr = t.get(row, "TEAM_ABBREVIATION")
		}
		if abbr == "" {
			abbr, _ = pointsplus.TeamAbbreviation(t.get(row, "TEAM_NAME"))
		}
		if abbr == "" {
			return nil, fmt.Errorf("%s line %d: cannot resolve team %q", t.name, line, t.get(row, "TEAM_NAME"))
		}
		def, err := parseFinite(t.get(row, "DEF_RATING"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: defensive rating: %w", t.name, line, err)
		}
		pace, err := parseFinite(t.get(row, "PACE"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: pace: %w", t.name, line, err)
		}
		out = append(out, pointsplus.TeamStats{Team: abbr, DefRating: def, Pace: pace})
	}
	return out, nil
}

func parsePlayerIndex(t *csvTable) []pointsplus.PlayerBio {
	idCol := "PERSON_ID"
	if !t.has(idCol) {
		idCol = "PLAYER_ID"
	}
	var out []pointsplus.PlayerBio
	for _, row := range t.rows {
		id, err := strconv.ParseInt(t.get(row, idCol), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, pointsplus.PlayerBio{
			PlayerID: id,
			Position: t.get(row, "POSITION"),
			Jersey:   strings.TrimSuffix(t.get(row, "JERSEY_NUMBER"), ".0"),
		})
	}
	return out
}

// parsePlayerAdvanced reads usage and true shooting independently; a blank or
// unreadable value leaves only that field unset.
func parsePlayerAdvanced(t *csvTable) []pointsplus.PlayerAdvanced {
	if !t.has("USG_PCT") && !t.has("TS_PCT") {
		return nil
	}
	var out []pointsplus.PlayerAdvanced
	for _, row := range t.rows {
		id, err := strconv.ParseInt(t.get(row, "PLAYER_ID"), 10, 64)
		if err != nil {
			continue
		}
		adv := pointsplus.PlayerAdvanced{
			PlayerID:        id,
			UsagePct:        optionalFloat(t.get(row, "USG_PCT")),
			TrueShootingPct: optionalFloat(t.get(row, "TS_PCT")),
		}
		if adv.UsagePct == nil && adv.TrueShootingPct == nil {
			continue
		}
		out = append(out, adv)
	}
	return out
}

func optionalFloat(s string) *float64 {
	v, err := parseFinite(s)
	if err != nil {
		return nil
	}
	return &v
}

// parseFinite is strconv.ParseFloat without NaN and infinities.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func parseGameDate(s string) (time.Time, error) {
	for _, layout := range []string{dateLayout, "2006-01-02T15:04:05", "Jan 02, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable game date %q", s)
}

// parseMinutes accepts decimal minutes ("34", "33.5") or a clock ("33:30").
func parseMinutes(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if m, sec, ok := strings.Cut(s, ":"); ok {
		mm, err := strconv.Atoi(m)
		if err != nil {
			return 0, err
		}
		ss, err := strconv.Atoi(sec)
		if err != nil {
			return 0, err
		}
		return float64(mm) + float64(ss)/60, nil
	}
	return parseFinite(s)
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	f, err := parseFinite(s)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("count %q out of range", s)
	}
	return int(f), nil
}
