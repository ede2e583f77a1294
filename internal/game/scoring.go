package game

// Slots is one team's ring of placement slots. A nil entry is an open slot.
// Slot i neighbors (i-1+BoardSize)%BoardSize and (i+1)%BoardSize.
type Slots []*int

// NewSlots returns a fully initialized, empty ring.
func NewSlots() Slots {
	return make(Slots, BoardSize)
}

// cyclicRuns partitions the filled slots into maximal contiguous runs on the
// ring. Each run is the ordered list of its slot indices. A run that crosses
// the 19->0 boundary is reported once, starting at its true beginning; a
// fully filled ring is a single run of length BoardSize.
func cyclicRuns(slots Slots) [][]int {
	full := true
	for _, s := range slots {
		if s == nil {
			full = false
			break
		}
	}
	if full {
		run := make([]int, BoardSize)
		for i := range run {
			run[i] = i
		}
		return [][]int{run}
	}

	var runs [][]int
	for i := 0; i < BoardSize; i++ {
		prev := (i - 1 + BoardSize) % BoardSize
		// A run starts where a filled slot follows an empty one.
		if slots[i] == nil || slots[prev] != nil {
			continue
		}
		run := []int{i}
		for j := (i + 1) % BoardSize; slots[j] != nil; j = (j + 1) % BoardSize {
			run = append(run, j)
		}
		runs = append(runs, run)
	}
	return runs
}

// ComputeScore derives a board's score purely from its slot contents: the
// filled slots are partitioned into maximal cyclic runs and each run
// contributes PointsForLength of its length. Callers must never cache this
// as an incrementally updated delta.
func ComputeScore(slots Slots) int {
	total := 0
	for _, run := range cyclicRuns(slots) {
		total += PointsForLength(len(run))
	}
	return total
}

// ScoringGroups maps each slot that belongs to a run of two or more filled
// slots to a shared group id, for presentation grouping. Lone filled slots
// carry no points and are left out of the map. Group ids are assigned in the
// order the run starts are found scanning the ring from slot 0.
func ScoringGroups(slots Slots) map[int]int {
	groups := make(map[int]int)
	groupID := 0
	for _, run := range cyclicRuns(slots) {
		if len(run) < 2 {
			continue
		}
		for _, slot := range run {
			groups[slot] = groupID
		}
		groupID++
	}
	return groups
}
