package quiz

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCheckEligibility(t *testing.T) {
	tests := []struct {
		accuracy float64
		total    int
		eligible bool
		reason   string
	}{
		{accuracy: 82.5, total: 10, eligible: true},
		{accuracy: 80, total: 8, eligible: true},
		{accuracy: 79.9, total: 20, reason: "accuracy"},
		{accuracy: 95, total: 7, reason: "questions"},
		{accuracy: 0, total: 0, reason: "accuracy"},
	}

	for _, tc := range tests {
		result := CheckEligibility(tc.accuracy, tc.total)
		if result.Eligible != tc.eligible {
			t.Fatalf("CheckEligibility(%v, %d) = %v, want %v", tc.accuracy, tc.total, result.Eligible, tc.eligible)
		}
		if result.RequiredAccuracy != 80 || result.RequiredQuestions != 8 {
			t.Fatalf("unexpected thresholds %+v", result)
		}
		if !tc.eligible && !strings.Contains(result.Reason, tc.reason) {
			t.Fatalf("reason %q does not mention %q", result.Reason, tc.reason)
		}
	}
}

func TestCheckEligibilityIsMonotonic(t *testing.T) {
	for accuracy := 70.0; accuracy <= 100; accuracy += 2.5 {
		for total := 0; total < 20; total++ {
			if !CheckEligibility(accuracy, total).Eligible {
				continue
			}
			if !CheckEligibility(accuracy+1, total).Eligible || !CheckEligibility(accuracy, total+1).Eligible {
				t.Fatalf("eligibility lost when raising inputs from (%v, %d)", accuracy, total)
			}
		}
	}
}

func TestEvaluateBadges(t *testing.T) {
	stats := UserStats{Accuracy: 100, Streak: 6, TotalAnswers: 6}

	got := EvaluateBadges(nil, stats)
	want := []BadgeID{BadgeStreak5, BadgeAccuracy80, BadgeAccuracy100}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EvaluateBadges = %v, want %v", got, want)
	}

	unlocked := map[BadgeID]bool{BadgeStreak5: true}
	got = EvaluateBadges(unlocked, stats)
	want = []BadgeID{BadgeAccuracy80, BadgeAccuracy100}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EvaluateBadges with unlocked = %v, want %v", got, want)
	}
}

func TestEvaluateBadgesIsIdempotent(t *testing.T) {
	stats := UserStats{Accuracy: 85, Streak: 11, TotalAnswers: 31}

	first := EvaluateBadges(nil, stats)
	unlocked := make(map[BadgeID]bool)
	for _, id := range first {
		unlocked[id] = true
	}
	if again := EvaluateBadges(unlocked, stats); len(again) != 0 {
		t.Fatalf("expected no new badges after unlocking, got %v", again)
	}
}

func TestEvaluateBadgesNeverReturnsManualBadges(t *testing.T) {
	stats := UserStats{Accuracy: 100, Streak: 100, TotalAnswers: 100}
	for _, id := range EvaluateBadges(nil, stats) {
		badge, _ := LookupBadge(id)
		if badge.Manual {
			t.Fatalf("manual badge %s returned by evaluator", id)
		}
	}
}

func TestNewCertificate(t *testing.T) {
	issued := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	certificate := NewCertificate("alice", "Alice", CategoryPhishing, 83.33333, 12, issued)

	if certificate.CertificateID != "alice_phishing_1714555800" {
		t.Fatalf("unexpected certificate id %q", certificate.CertificateID)
	}
	if certificate.Accuracy.String() != "83.33" {
		t.Fatalf("unexpected accuracy %s", certificate.Accuracy)
	}
	if !certificate.ValidUntil.Equal(issued.AddDate(0, 0, 365)) {
		t.Fatalf("unexpected validity %v", certificate.ValidUntil)
	}
	if !certificate.Valid(issued.Add(time.Hour)) || certificate.Valid(issued.AddDate(2, 0, 0)) {
		t.Fatalf("validity window wrong")
	}
}
