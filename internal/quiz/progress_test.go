package quiz

import (
	"reflect"
	"testing"
	"time"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func eventAt(offset time.Duration, correct bool, category Category) AnswerEvent {
	return AnswerEvent{
		UserID:           "alice",
		QuestionID:       "q",
		Correct:          correct,
		Category:         category,
		TimeSpentSeconds: 10,
		CreatedAt:        baseTime.Add(offset),
	}
}

func TestAggregateMostRecentFirstStreak(t *testing.T) {
	// Most recent first: T, T, F, T.
	events := []AnswerEvent{
		eventAt(-1*time.Minute, false, CategoryPhishing),
		eventAt(-3*time.Minute, true, CategoryPhishing),
		eventAt(0, true, CategoryPhishing),
		eventAt(1*time.Minute, true, CategoryMalware),
	}

	stats := Aggregate(events)
	if stats.TotalAnswers != 4 || stats.CorrectAnswers != 3 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.Accuracy != 75.0 {
		t.Fatalf("expected accuracy 75.0, got %v", stats.Accuracy)
	}
	if stats.Streak != 2 {
		t.Fatalf("expected streak 2, got %d", stats.Streak)
	}
	if stats.LastActivity == nil || !stats.LastActivity.Equal(baseTime.Add(time.Minute)) {
		t.Fatalf("unexpected last activity %v", stats.LastActivity)
	}
	if stats.TotalTimeSeconds != 40 || stats.AverageTime != 10 {
		t.Fatalf("unexpected time totals: %d %v", stats.TotalTimeSeconds, stats.AverageTime)
	}

	phishing := stats.Category(CategoryPhishing)
	if phishing.Total != 3 || phishing.Correct != 2 {
		t.Fatalf("unexpected phishing rollup %+v", phishing)
	}
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)
	if stats.TotalAnswers != 0 || stats.Accuracy != 0 || stats.Streak != 0 || stats.LastActivity != nil {
		t.Fatalf("unexpected stats for empty history: %+v", stats)
	}
	if len(stats.ByCategory) != 0 {
		t.Fatalf("expected no categories, got %v", stats.ByCategory)
	}
}

func TestAggregateBucketsMalformedCategoryAsUnknown(t *testing.T) {
	stats := Aggregate([]AnswerEvent{
		eventAt(0, true, ""),
		eventAt(time.Second, false, "not-a-category"),
	})
	unknown := stats.Category(CategoryUnknown)
	if unknown.Total != 2 || unknown.Correct != 1 || unknown.Accuracy != 50 {
		t.Fatalf("unexpected unknown bucket %+v", unknown)
	}
}

func TestAggregateDoesNotMutateInputAndIsRepeatable(t *testing.T) {
	events := []AnswerEvent{
		eventAt(0, false, CategoryPasswords),
		eventAt(time.Hour, true, CategoryPasswords),
	}
	snapshot := append([]AnswerEvent(nil), events...)

	first := Aggregate(events)
	second := Aggregate(events)
	if !reflect.DeepEqual(events, snapshot) {
		t.Fatalf("input reordered: %+v", events)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate not repeatable: %+v vs %+v", first, second)
	}
}

func TestSortMostRecentFirstBreaksTiesBySeq(t *testing.T) {
	a := eventAt(0, true, CategoryMalware)
	a.Seq = 1
	b := eventAt(0, false, CategoryMalware)
	b.Seq = 2

	sorted := SortMostRecentFirst([]AnswerEvent{a, b})
	if sorted[0].Seq != 2 {
		t.Fatalf("expected higher seq first, got %+v", sorted)
	}
	// b is the latest insert and incorrect, so the streak is broken.
	if got := Aggregate([]AnswerEvent{a, b}).Streak; got != 0 {
		t.Fatalf("expected streak 0, got %d", got)
	}
}

func TestRecentActivity(t *testing.T) {
	events := []AnswerEvent{
		eventAt(-10*24*time.Hour, true, CategoryPhishing),
		eventAt(-2*24*time.Hour, true, CategoryPhishing),
		eventAt(-1*time.Hour, false, CategoryPhishing),
	}
	recent := RecentActivity(events, baseTime.Add(-7*24*time.Hour))
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent events, got %d", len(recent))
	}
	if !recent[0].CreatedAt.After(recent[1].CreatedAt) {
		t.Fatalf("recent activity not most recent first")
	}
}

func TestPointsCapsStreakAndVolume(t *testing.T) {
	stats := UserStats{Accuracy: 90, Streak: 20, TotalAnswers: 100}
	if got := Points(stats); got != 900+500+300 {
		t.Fatalf("unexpected points %d", got)
	}
	if got := Points(UserStats{Accuracy: 50, Streak: 2, TotalAnswers: 4}); got != 500+100+40 {
		t.Fatalf("unexpected points %d", got)
	}
}
