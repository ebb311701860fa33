package quiz

import (
	"sort"
	"time"
)

type AnswerEvent struct {
	UserID           string    `json:"user_id"`
	QuestionID       string    `json:"question_id"`
	Correct          bool      `json:"correct"`
	Category         Category  `json:"category"`
	TimeSpentSeconds int       `json:"time_spent"`
	CreatedAt        time.Time `json:"created_at"`
	// Seq is assigned by the store on insert and breaks CreatedAt ties.
	Seq int64 `json:"seq"`
}

type CategoryStats struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

type UserStats struct {
	TotalAnswers     int                        `json:"total_answers"`
	CorrectAnswers   int                        `json:"correct_answers"`
	Accuracy         float64                    `json:"accuracy"`
	ByCategory       map[Category]CategoryStats `json:"by_category"`
	Streak           int                        `json:"streak"`
	LastActivity     *time.Time                 `json:"last_activity,omitempty"`
	TotalTimeSeconds int                        `json:"total_time_seconds"`
	AverageTime      float64                    `json:"average_time_seconds"`
}

// Category returns the rollup for one category; zero values when the user has
// no answers there.
func (s UserStats) Category(category Category) CategoryStats {
	return s.ByCategory[category]
}

// Accuracy is 100*correct/total, and 0 for an empty history.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// SortMostRecentFirst orders events by creation time descending. Equal times
// fall back to the store sequence (higher first) and then to received order.
func SortMostRecentFirst(events []AnswerEvent) []AnswerEvent {
	sorted := make([]AnswerEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].Seq > sorted[j].Seq
	})
	return sorted
}

// Aggregate derives a user's stats from the full answer history. The streak is
// read from the most recent answer backwards and ends at the first miss.
func Aggregate(events []AnswerEvent) UserStats {
	sorted := SortMostRecentFirst(events)

	stats := UserStats{
		TotalAnswers: len(sorted),
		ByCategory:   make(map[Category]CategoryStats),
	}

	streakOpen := true
	for _, event := range sorted {
		category := ParseCategory(string(event.Category))
		bucket := stats.ByCategory[category]
		bucket.Total++
		if event.Correct {
			stats.CorrectAnswers++
			bucket.Correct++
		}
		stats.ByCategory[category] = bucket

		if streakOpen {
			if event.Correct {
				stats.Streak++
			} else {
				streakOpen = false
			}
		}

		if event.TimeSpentSeconds > 0 {
			stats.TotalTimeSeconds += event.TimeSpentSeconds
		}
	}

	for category, bucket := range stats.ByCategory {
		bucket.Accuracy = Accuracy(bucket.Correct, bucket.Total)
		stats.ByCategory[category] = bucket
	}

	stats.Accuracy = Accuracy(stats.CorrectAnswers, stats.TotalAnswers)
	if stats.TotalAnswers > 0 {
		last := sorted[0].CreatedAt
		stats.LastActivity = &last
		stats.AverageTime = float64(stats.TotalTimeSeconds) / float64(stats.TotalAnswers)
	}

	return stats
}

// RecentActivity keeps the events created at or after since, most recent first.
func RecentActivity(events []AnswerEvent, since time.Time) []AnswerEvent {
	recent := make([]AnswerEvent, 0)
	for _, event := range SortMostRecentFirst(events) {
		if event.CreatedAt.Before(since) {
			break
		}
		recent = append(recent, event)
	}
	return recent
}

// Points scores overall performance: up to 1000 for accuracy, 500 for the
// current streak and 300 for volume.
func Points(stats UserStats) int {
	points := int(stats.Accuracy * 10)
	points += min(stats.Streak*50, 500)
	points += min(stats.TotalAnswers*10, 300)
	return points
}
