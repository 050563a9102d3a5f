package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/cpacia/pointsplus/pointsplus"
	"github.com/sirupsen/logrus"
)

// options are shared by every command.
type options struct {
	DataDir      string  `long:"datadir" description:"Directory for the snapshot database (default ~/.pointsplus)"`
	RawDir       string  `long:"rawdir" description:"Directory holding the raw CSV exports" default:"data/raw"`
	TeamStatsURL string  `long:"teamstatsurl" description:"Scrape team advanced stats from this page instead of team_stats.csv"`
	Season       string  `long:"season" description:"Season label" default:"2025-26"`
	AsOf         string  `long:"asof" description:"As-of date (YYYY-MM-DD), today when empty"`
	MinGames     int     `long:"mingames" description:"Minimum games played to qualify" default:"20"`
	MinMpg       float64 `long:"minmpg" description:"Minimum minutes per game to qualify" default:"15"`
	Workers      int     `long:"workers" description:"Workers for per-player adjustment, one per CPU when 0" default:"0"`
	Verbose      bool    `short:"v" long:"verbose" description:"Enable debug logging"`
}

func (o *options) setupLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if o.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func (o *options) dataDir() string {
	if o.DataDir != "" {
		return o.DataDir
	}
	return defaultDataDir()
}

func (o *options) source() InputSource {
	return &rawSource{dir: o.RawDir, teamStatsURL: o.TeamStatsURL}
}

// pipelineConfig validates the options and builds the config for one run.
func (o *options) pipelineConfig() (pointsplus.Config, error) {
	cfg := pointsplus.DefaultConfig()

	if !validateSeason(o.Season) {
		return cfg, fmt.Errorf("malformed season %q, expected e.g. 2025-26", o.Season)
	}
	cfg.Season = o.Season

	if o.AsOf != "" {
		asOf, err := time.Parse(dateLayout, o.AsOf)
		if err != nil {
			return cfg, fmt.Errorf("malformed as-of date %q: %w", o.AsOf, err)
		}
		cfg.AsOfDate = asOf
	}

	if o.MinGames < 1 || o.MinMpg < 0 {
		return cfg, fmt.Errorf("mingames must be at least 1 and minmpg non-negative (mingames=%d minmpg=%.1f)", o.MinGames, o.MinMpg)
	}
	cfg.Thresholds = pointsplus.Thresholds{MinGames: o.MinGames, MinMPG: o.MinMpg}

	cfg.Workers = o.Workers
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return cfg, nil
}
