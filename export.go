package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cpacia/pointsplus/pointsplus"
)

// exportJSON writes the static data contract for the web front-end:
//
//	leaderboard.json, distribution.json, metadata.json, players/{id}.json
//
// Files are written to a sibling staging directory which then replaces dir,
// so a reader never sees a half-written export.
func exportJSON(dir string, res *pointsplus.Result) error {
	parent := filepath.Dir(filepath.Clean(dir))
	if err := ensureDir(parent); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(parent, ".pointsplus-export-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	if err := writeJSON(filepath.Join(staging, "leaderboard.json"), leaderboard(res)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(staging, "distribution.json"), distribution(res)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(staging, "metadata.json"), metadata(res)); err != nil {
		return err
	}

	playersDir := filepath.Join(staging, "players")
	if err := ensureDir(playersDir); err != nil {
		return err
	}
	for i := range res.Players {
		p := &res.Players[i]
		path := filepath.Join(playersDir, fmt.Sprintf("%d.json", p.PlayerID))
		if err := writeJSON(path, playerDetail(p)); err != nil {
			return err
		}
	}

	// MkdirTemp creates 0700; the export is meant to be served.
	if err := os.Chmod(staging, 0o755); err != nil {
		return err
	}

	backup := dir + ".old"
	if err := os.RemoveAll(backup); err != nil {
		return err
	}
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		_ = os.Rename(backup, dir)
		return err
	}
	return os.RemoveAll(backup)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
