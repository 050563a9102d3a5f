package main

import (
	"fmt"
	"os"
	"os/user"
	"path"
	"regexp"
	"strconv"
)

var seasonPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// defaultDataDir is ~/.pointsplus.
func defaultDataDir() string {
	// Get the OS specific home directory via the Go standard lib.
	var homeDir string
	usr, err := user.Current()
	if err == nil {
		homeDir = usr.HomeDir
	}

	// Fall back to standard HOME environment variable that works
	// for most POSIX OSes if the directory from the Go standard
	// lib failed.
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}
	return path.Join(homeDir, dataDir)
}

// validateSeason accepts NBA season labels such as "2025-26", where the
// second year is the first year plus one.
func validateSeason(season string) bool {
	m := seasonPattern.FindStringSubmatch(season)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if start < 1946 || start > 2100 {
		return false
	}
	return (start+1)%100 == end
}

func parsePlayerID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("malformed player id %q", s)
	}
	return id, nil
}
