package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardWithScore(teamNumber, score int) *TeamBoard {
	b := NewTeamBoard(teamNumber)
	b.Score = score
	return b
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	teams := []*TeamBoard{
		boardWithScore(1, 5),
		boardWithScore(2, 40),
		boardWithScore(3, 15),
	}
	ranking := Rank(teams)
	require.Len(t, ranking, 3)
	assert.Equal(t, FinalRankingEntry{TeamNumber: 2, Score: 40, Rank: 1}, ranking[0])
	assert.Equal(t, FinalRankingEntry{TeamNumber: 3, Score: 15, Rank: 2}, ranking[1])
	assert.Equal(t, FinalRankingEntry{TeamNumber: 1, Score: 5, Rank: 3}, ranking[2])
}

func TestRankBreaksTiesByTeamNumber(t *testing.T) {
	teams := []*TeamBoard{
		boardWithScore(3, 20),
		boardWithScore(1, 20),
		boardWithScore(2, 25),
	}
	ranking := Rank(teams)
	require.Len(t, ranking, 3)
	assert.Equal(t, 2, ranking[0].TeamNumber)
	assert.Equal(t, 1, ranking[1].TeamNumber)
	assert.Equal(t, 3, ranking[2].TeamNumber)
	assert.Equal(t, []int{1, 2, 3}, []int{ranking[0].Rank, ranking[1].Rank, ranking[2].Rank})
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}
