package pointsplus

// Qualifies reports whether a player meets both inclusive thresholds.
func (t Thresholds) Qualifies(p PlayerAggregate) bool {
	return p.GamesPlayed > 0 &&
		p.GamesPlayed >= t.MinGames &&
		p.MinutesPerGame >= t.MinMPG
}

// Qualify returns the players meeting t, preserving input order. Players
// that miss either threshold are dropped entirely.
func Qualify(players []PlayerAggregate, t Thresholds) []PlayerAggregate {
	out := make([]PlayerAggregate, 0, len(players))
	for _, p := range players {
		if t.Qualifies(p) {
			out = append(out, p)
		}
	}
	return out
}
