package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillSlots returns a ring with the given slot indices filled. The value
// placed is irrelevant to scoring, only occupancy matters.
func fillSlots(indices ...int) Slots {
	s := NewSlots()
	for _, i := range indices {
		v := i + 1
		s[i] = &v
	}
	return s
}

func TestComputeScoreEmptyBoard(t *testing.T) {
	assert.Equal(t, 0, ComputeScore(NewSlots()))
}

func TestComputeScoreSingletonsScoreNothing(t *testing.T) {
	// Three isolated filled slots, each its own run of length 1.
	s := fillSlots(0, 5, 10)
	assert.Equal(t, 0, ComputeScore(s))
}

func TestComputeScoreTwoSeparateRuns(t *testing.T) {
	// Runs of length 3 and 4 with empty separation on each side, cyclically.
	s := fillSlots(2, 3, 4, 10, 11, 12, 13)
	assert.Equal(t, PointsForLength(3)+PointsForLength(4), ComputeScore(s))
	assert.Equal(t, 8, ComputeScore(s))
}

func TestComputeScoreWrapAroundRun(t *testing.T) {
	// Slots 18,19,0,1 filled; 17 and 2 empty. One run of 4, not two of 2.
	s := fillSlots(18, 19, 0, 1)
	assert.Equal(t, PointsForLength(4), ComputeScore(s))
	assert.Equal(t, 5, ComputeScore(s))
}

func TestComputeScoreFullRing(t *testing.T) {
	indices := make([]int, BoardSize)
	for i := range indices {
		indices[i] = i
	}
	s := fillSlots(indices...)
	assert.Equal(t, 300, ComputeScore(s))
}

func TestComputeScoreMixedRunsAndSingletons(t *testing.T) {
	// Run of 2 (slots 4,5), singleton at 8, run of 5 (slots 12..16).
	s := fillSlots(4, 5, 8, 12, 13, 14, 15, 16)
	assert.Equal(t, PointsForLength(2)+PointsForLength(1)+PointsForLength(5), ComputeScore(s))
	assert.Equal(t, 8, ComputeScore(s))
}

func TestScoringGroupsSingletonsUngrouped(t *testing.T) {
	s := fillSlots(0, 7, 14)
	groups := ScoringGroups(s)
	assert.Empty(t, groups, "length-1 runs should not be grouped")
}

func TestScoringGroupsSharedIDs(t *testing.T) {
	s := fillSlots(2, 3, 4, 10, 11, 17)
	groups := ScoringGroups(s)

	// 2,3,4 share one id; 10,11 share another; 17 is ungrouped.
	require.Contains(t, groups, 2)
	assert.Equal(t, groups[2], groups[3])
	assert.Equal(t, groups[3], groups[4])

	require.Contains(t, groups, 10)
	assert.Equal(t, groups[10], groups[11])
	assert.NotEqual(t, groups[2], groups[10])

	assert.NotContains(t, groups, 17)
}

func TestScoringGroupsWrapAroundSingleGroup(t *testing.T) {
	s := fillSlots(19, 0)
	groups := ScoringGroups(s)
	require.Contains(t, groups, 19)
	require.Contains(t, groups, 0)
	assert.Equal(t, groups[19], groups[0])
}

func TestScoringGroupsFullRingOneGroup(t *testing.T) {
	indices := make([]int, BoardSize)
	for i := range indices {
		indices[i] = i
	}
	groups := ScoringGroups(fillSlots(indices...))
	require.Len(t, groups, BoardSize)
	for i := 1; i < BoardSize; i++ {
		assert.Equal(t, groups[0], groups[i])
	}
}

func TestPointsForLengthTable(t *testing.T) {
	expected := map[int]int{
		1: 0, 2: 1, 3: 3, 4: 5, 5: 7,
		6: 9, 7: 11, 8: 15, 9: 20, 10: 25,
		11: 30, 12: 35, 13: 40, 14: 50, 15: 60,
		16: 70, 17: 85, 18: 100, 19: 150, 20: 300,
	}
	for l, pts := range expected {
		assert.Equal(t, pts, PointsForLength(l), "length %d", l)
	}
	assert.Equal(t, 0, PointsForLength(0))
	assert.Equal(t, 0, PointsForLength(21))
}
