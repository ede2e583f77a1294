package game

import "sort"

// FinalRankingEntry is one row of the frozen final standings.
type FinalRankingEntry struct {
	TeamNumber int `json:"teamNumber"`
	Score      int `json:"score"`
	Rank       int `json:"rank"`
}

// Rank orders teams by score descending. Equal scores are broken by
// ascending team number so the result is deterministic; ranks are the
// resulting positions, 1-based.
func Rank(teams []*TeamBoard) []FinalRankingEntry {
	entries := make([]FinalRankingEntry, 0, len(teams))
	for _, t := range teams {
		entries = append(entries, FinalRankingEntry{TeamNumber: t.TeamNumber, Score: t.Score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].TeamNumber < entries[j].TeamNumber
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
