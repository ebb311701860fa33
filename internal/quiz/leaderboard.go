package quiz

import "sort"

type LeaderboardEntry struct {
	UserID   string  `json:"user_id"`
	Accuracy float64 `json:"accuracy"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Rank     int     `json:"rank"`
}

// BuildLeaderboard ranks every user found in events. An empty category ranks
// across all categories.
func BuildLeaderboard(events []AnswerEvent, category Category, limit int) []LeaderboardEntry {
	byUser := make(map[string]*LeaderboardEntry)
	for _, event := range events {
		if category != "" && ParseCategory(string(event.Category)) != category {
			continue
		}
		entry, ok := byUser[event.UserID]
		if !ok {
			entry = &LeaderboardEntry{UserID: event.UserID}
			byUser[event.UserID] = entry
		}
		entry.Total++
		if event.Correct {
			entry.Correct++
		}
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for _, entry := range byUser {
		entry.Accuracy = Accuracy(entry.Correct, entry.Total)
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return leaderboardBefore(entries[i], entries[j])
	})
	for idx := range entries {
		entries[idx].Rank = idx + 1
	}

	return applyLeaderboardLimit(entries, limit)
}

func leaderboardBefore(a, b LeaderboardEntry) bool {
	// Ranking policy:
	// 1) higher accuracy first
	// 2) more correct answers wins ties
	// 3) user id lexical order for deterministic output
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	if a.Correct != b.Correct {
		return a.Correct > b.Correct
	}
	return a.UserID < b.UserID
}

func applyLeaderboardLimit(entries []LeaderboardEntry, limit int) []LeaderboardEntry {
	if limit <= 0 || limit >= len(entries) {
		return entries
	}
	return entries[:limit]
}
