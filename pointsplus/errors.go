package pointsplus

import (
	"errors"
	"fmt"
)

// ErrEmptyPopulation is returned when no player meets the qualifying thresholds.
var ErrEmptyPopulation = errors.New("no qualifying players")

// DataIntegrityError reports input that cannot be joined or adjusted: a
// missing opponent, a non-positive rating or pace, or an unreadable matchup.
type DataIntegrityError struct {
	PlayerID int64
	GameID   string
	Team     string
	Reason   string
}

func (e *DataIntegrityError) Error() string {
	msg := "data integrity: " + e.Reason
	if e.Team != "" {
		msg += fmt.Sprintf(" (team %s)", e.Team)
	}
	if e.PlayerID != 0 || e.GameID != "" {
		msg += fmt.Sprintf(" [player %d game %s]", e.PlayerID, e.GameID)
	}
	return msg
}

// OrderingViolation means a stage consumed a value before the stage that
// produces it had run. It is a programming error.
type OrderingViolation struct {
	Stage  string
	Detail string
}

func (e *OrderingViolation) Error() string {
	return fmt.Sprintf("ordering violation in %s: %s", e.Stage, e.Detail)
}
