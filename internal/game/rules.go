package game

import "fmt"

// Rules is the game-time configuration supplied at creation, typically by a
// lobby. The ring size is fixed at BoardSize; deck composition, team count
// and round limit are configurable.
type Rules struct {
	TeamCount int        `json:"teamCount"` // number of team boards created up front
	MaxRounds int        `json:"maxRounds"` // game ends once the round counter reaches this
	Deck      DeckConfig `json:"deck"`
}

// DefaultRules returns the reference configuration: two teams, a 40-card
// deck of values 1..20 twice each, and as many rounds as the ring has slots.
func DefaultRules() Rules {
	return Rules{
		TeamCount: 2,
		MaxRounds: BoardSize,
		Deck:      DefaultDeckConfig(),
	}
}

// Update applies the provided rule overrides in place. Keys that are absent
// keep their old value. JSON numbers arrive as float64, so both numeric
// forms are accepted.
func (r *Rules) Update(newRules map[string]interface{}) error {
	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		switch v := val.(type) {
		case float64:
			*field = int(v)
		case int:
			*field = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if *field < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		return nil
	}

	if err := assignInt(&r.TeamCount, "teamCount", 1); err != nil {
		return err
	}
	if err := assignInt(&r.MaxRounds, "maxRounds", 1); err != nil {
		return err
	}
	return nil
}

// ParseRules returns a copy of current with the overrides applied.
func ParseRules(overrides map[string]interface{}, current Rules) (Rules, error) {
	rules := current
	err := rules.Update(overrides)
	return rules, err
}
