package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRulesOverrides(t *testing.T) {
	rules, err := ParseRules(map[string]interface{}{
		"teamCount": float64(4), // JSON numbers decode as float64
		"maxRounds": 10,
	}, DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, 4, rules.TeamCount)
	assert.Equal(t, 10, rules.MaxRounds)
	assert.Len(t, rules.Deck.Values, BoardSize)
}

func TestParseRulesRejectsBadValues(t *testing.T) {
	_, err := ParseRules(map[string]interface{}{"teamCount": "two"}, DefaultRules())
	assert.Error(t, err)

	_, err = ParseRules(map[string]interface{}{"maxRounds": float64(0)}, DefaultRules())
	assert.Error(t, err)

	// Unknown or absent keys keep defaults.
	rules, err := ParseRules(map[string]interface{}{}, DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().TeamCount, rules.TeamCount)
}
