package vote

import "fmt"

// Direction is the vote a user has cast on a target.
type Direction int

const (
	None Direction = iota
	Up
	Down
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Value is the wire value the backend stores for d.
func (d Direction) Value() int {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	}
	return 0
}

// Next returns the direction after clicking requested while in current.
// Clicking the active direction cancels; anything else selects requested.
func Next(current, requested Direction) Direction {
	if requested == None || current == requested {
		return None
	}
	return requested
}

// ParseDirection parses "up", "down" or "none".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "1", "+1":
		return Up, nil
	case "down", "-1":
		return Down, nil
	case "none", "0", "":
		return None, nil
	}
	return None, fmt.Errorf("vote: unknown direction %q", s)
}

// Target identifies a votable item.
type Target struct {
	ItemType string
	ItemID   string
}

// String returns "type/id".
func (t Target) String() string {
	return t.ItemType + "/" + t.ItemID
}

// State is the client-observed vote state of a target.
type State struct {
	Direction Direction
	Score     int
}
