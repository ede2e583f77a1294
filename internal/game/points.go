package game

// BoardSize is the number of slots on each team's ring. Slot BoardSize-1 is
// adjacent to slot 0.
const BoardSize = 20

// pointTable maps run length (index) to the points that run contributes.
// Index 0 is unused; a lone filled slot (length 1) is worth nothing. The
// table is deliberately superlinear so unbroken runs are rewarded
// disproportionately.
var pointTable = [BoardSize + 1]int{
	0,
	0, 1, 3, 5, 7,
	9, 11, 15, 20, 25,
	30, 35, 40, 50, 60,
	70, 85, 100, 150, 300,
}

// PointsForLength returns the score contribution of a maximal run of the
// given length. Lengths outside 1..BoardSize contribute nothing; the ring
// cannot produce them.
func PointsForLength(length int) int {
	if length < 1 || length > BoardSize {
		return 0
	}
	return pointTable[length]
}
