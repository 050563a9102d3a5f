package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/cpacia/pointsplus/pointsplus"
	"github.com/gocolly/colly"
	"github.com/sirupsen/logrus"
)

// Team advanced stats table in the basketball-reference layout: one row per
// team with cells keyed by data-stat.
const teamStatsRowSelector = "table#advanced-team tbody > tr"

func newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/115.0.0.0 Safari/537.36"),
	)
	c.Async = true

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Cache-Control", "no-cache")
		logrus.WithField("url", r.URL.String()).Info("Visiting")
	})
	return c
}

// statCell returns the trimmed text of the cell tagged with data-stat=stat.
func statCell(row *goquery.Selection, stat string) string {
	return strings.TrimSpace(row.Find(fmt.Sprintf(`[data-stat="%s"]`, stat)).First().Text())
}

// scrapeTeamStats reads defensive rating and pace for every team from an
// advanced stats page. The league average row is skipped; any other team
// name that cannot be mapped to an abbreviation fails the scrape.
func scrapeTeamStats(url string) ([]pointsplus.TeamStats, error) {
	c := newCollector()

	var (
		mu      sync.Mutex
		rows    = make([]pointsplus.TeamStats, 0, 30)
		rowErrs []error
	)

	c.OnHTML(teamStatsRowSelector, func(e *colly.HTMLElement) {
		if e.DOM.HasClass("thead") {
			return
		}
		name := statCell(e.DOM, "team")
		if name == "" || strings.HasPrefix(name, "League Average") {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		abbr, ok := pointsplus.TeamAbbreviation(name)
		if !ok {
			rowErrs = append(rowErrs, fmt.Errorf("unknown team %q", name))
			return
		}
		def, err := strconv.ParseFloat(statCell(e.DOM, "def_rtg"), 64)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("%s defensive rating: %w", abbr, err))
			return
		}
		pace, err := strconv.ParseFloat(statCell(e.DOM, "pace"), 64)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("%s pace: %w", abbr, err))
			return
		}
		rows = append(rows, pointsplus.TeamStats{Team: abbr, DefRating: def, Pace: pace})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		visitErr = fmt.Errorf("fetching %s: status %d: %w", url, r.StatusCode, err)
		mu.Unlock()
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	if len(rowErrs) > 0 {
		return nil, rowErrs[0]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows parsed from URL: %s", url)
	}
	return rows, nil
}
