package main

import (
	"context"
	"fmt"

	"github.com/cpacia/pointsplus/pointsplus"
	"github.com/sirupsen/logrus"
)

// InputSource supplies one season's raw data to the pipeline.
type InputSource interface {
	Load(ctx context.Context) (pointsplus.Input, error)
}

// rawSource reads the CSV exports from a directory and, when teamStatsURL is
// set, replaces the exported team stats with a fresh scrape.
type rawSource struct {
	dir          string
	teamStatsURL string
}

func (s *rawSource) Load(ctx context.Context) (pointsplus.Input, error) {
	in, err := loadRawData(s.dir)
	if err != nil {
		return in, fmt.Errorf("loading raw data from %s: %w", s.dir, err)
	}
	if err := ctx.Err(); err != nil {
		return in, err
	}
	if s.teamStatsURL != "" {
		teams, err := scrapeTeamStats(s.teamStatsURL)
		if err != nil {
			return in, fmt.Errorf("scraping team stats: %w", err)
		}
		in.Teams = teams
	}
	logrus.WithFields(logrus.Fields{
		"component": "loader",
		"games":     len(in.Games),
		"teams":     len(in.Teams),
		"bios":      len(in.Bios),
		"advanced":  len(in.Advanced),
	}).Info("Raw data loaded")
	return in, nil
}

// generate loads raw data and runs the pipeline. It has no side effects, so
// a failure leaves any previously stored or exported snapshot untouched.
func generate(ctx context.Context, src InputSource, cfg pointsplus.Config) (*pointsplus.Result, error) {
	in, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return pointsplus.Build(cfg, in)
}
