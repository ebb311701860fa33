package quiz

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CertificateMinAccuracy  = 80.0
	CertificateMinQuestions = 8
	CertificateValidity     = 365 * 24 * time.Hour
)

type Eligibility struct {
	Eligible          bool    `json:"eligible"`
	Accuracy          float64 `json:"accuracy"`
	TotalQuestions    int     `json:"total_questions"`
	RequiredAccuracy  float64 `json:"required_accuracy"`
	RequiredQuestions int     `json:"required_questions"`
	Reason            string  `json:"reason,omitempty"`
}

// CheckEligibility gates certificate issuance. It has no side effects; the
// caller decides whether to issue.
func CheckEligibility(accuracy float64, totalQuestions int) Eligibility {
	result := Eligibility{
		Accuracy:          accuracy,
		TotalQuestions:    totalQuestions,
		RequiredAccuracy:  CertificateMinAccuracy,
		RequiredQuestions: CertificateMinQuestions,
	}

	switch {
	case accuracy < CertificateMinAccuracy:
		result.Reason = fmt.Sprintf("accuracy %.1f%% is below the required %.0f%%", accuracy, CertificateMinAccuracy)
	case totalQuestions < CertificateMinQuestions:
		result.Reason = fmt.Sprintf("%d questions answered, at least %d required", totalQuestions, CertificateMinQuestions)
	default:
		result.Eligible = true
	}
	return result
}

type BadgeID string

const (
	BadgeFirstCorrect BadgeID = "first_correct"
	BadgeStreak5      BadgeID = "streak_5"
	BadgeStreak10     BadgeID = "streak_10"
	BadgeAccuracy80   BadgeID = "accuracy_80"
	BadgeAccuracy100  BadgeID = "accuracy_100"
	BadgeAllRounder   BadgeID = "allrounder"
	BadgeSpeedster    BadgeID = "speedster"
	BadgePersistent   BadgeID = "persistent"
	BadgeChampion     BadgeID = "champion"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon"`
	Requirement string  `json:"requirement"`
	Points      int     `json:"points"`
	// Manual badges have no rule and are only awarded by staff.
	Manual bool `json:"manual"`

	rule func(UserStats) bool
}

type UnlockedBadge struct {
	UserID     string    `json:"user_id"`
	BadgeID    BadgeID   `json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

var badgeCatalog = []Badge{
	{ID: BadgeFirstCorrect, Name: "First Hit", Icon: "🎯", Requirement: "Answer your first question correctly", Manual: true},
	{ID: BadgeStreak5, Name: "Winning Streak", Icon: "🔥", Requirement: "5 correct answers in a row", Points: 50,
		rule: func(s UserStats) bool { return s.Streak >= 5 }},
	{ID: BadgeStreak10, Name: "Super Streak", Icon: "⚡", Requirement: "10 correct answers in a row", Points: 200,
		rule: func(s UserStats) bool { return s.Streak >= 10 }},
	{ID: BadgeAccuracy80, Name: "Specialist", Icon: "🏆", Requirement: "80% accuracy", Points: 100,
		rule: func(s UserStats) bool { return s.Accuracy >= 80 }},
	// Near-perfect rather than exact 100.
	{ID: BadgeAccuracy100, Name: "Perfection", Icon: "👑", Requirement: "100% accuracy", Points: 500,
		rule: func(s UserStats) bool { return s.Accuracy >= 99 }},
	{ID: BadgeAllRounder, Name: "All-Rounder", Icon: "🛡️", Requirement: "Train in every category", Points: 300, Manual: true},
	{ID: BadgeSpeedster, Name: "Speedster", Icon: "⚡", Requirement: "Answer in under 30 seconds", Points: 75, Manual: true},
	{ID: BadgePersistent, Name: "Dedicated", Icon: "💪", Requirement: "30+ questions answered", Points: 150,
		rule: func(s UserStats) bool { return s.TotalAnswers >= 30 }},
	{ID: BadgeChampion, Name: "Champion", Icon: "🥇", Requirement: "Top 3 on the leaderboard", Points: 500, Manual: true},
}

// BadgeCatalog returns every badge in display order.
func BadgeCatalog() []Badge {
	out := make([]Badge, len(badgeCatalog))
	copy(out, badgeCatalog)
	return out
}

func LookupBadge(id BadgeID) (Badge, bool) {
	for _, badge := range badgeCatalog {
		if badge.ID == id {
			return badge, true
		}
	}
	return Badge{}, false
}

// EvaluateBadges returns, in catalog order, the rule-based badges whose rule
// holds for stats and that are not in unlocked. Manual badges are never
// returned.
func EvaluateBadges(unlocked map[BadgeID]bool, stats UserStats) []BadgeID {
	eligible := make([]BadgeID, 0)
	for _, badge := range badgeCatalog {
		if badge.rule == nil || unlocked[badge.ID] {
			continue
		}
		if badge.rule(stats) {
			eligible = append(eligible, badge.ID)
		}
	}
	return eligible
}

func UnlockedSet(badges []UnlockedBadge) map[BadgeID]bool {
	set := make(map[BadgeID]bool, len(badges))
	for _, badge := range badges {
		set[badge.BadgeID] = true
	}
	return set
}

type Certificate struct {
	CertificateID  string          `json:"certificate_id"`
	UserID         string          `json:"user_id"`
	UserName       string          `json:"user_name"`
	Category       Category        `json:"category"`
	Accuracy       decimal.Decimal `json:"accuracy"`
	TotalQuestions int             `json:"total_questions"`
	IssuedAt       time.Time       `json:"issued_at"`
	ValidUntil     time.Time       `json:"valid_until"`
	DocumentKey    string          `json:"document_key,omitempty"`
}

// NewCertificate builds the record for an eligible run. The id joins user,
// category and issuance time in unix seconds.
func NewCertificate(userID, userName string, category Category, accuracy float64, totalQuestions int, issuedAt time.Time) Certificate {
	issuedAt = issuedAt.UTC()
	return Certificate{
		CertificateID:  userID + "_" + string(category) + "_" + strconv.FormatInt(issuedAt.Unix(), 10),
		UserID:         userID,
		UserName:       userName,
		Category:       category,
		Accuracy:       decimal.NewFromFloat(accuracy).Round(2),
		TotalQuestions: totalQuestions,
		IssuedAt:       issuedAt,
		ValidUntil:     issuedAt.Add(CertificateValidity),
	}
}

func (c Certificate) Valid(at time.Time) bool {
	return !at.Before(c.IssuedAt) && at.Before(c.ValidUntil)
}

// CertificateResult is what issuance returns. An ineligible user gets
// Issued=false with the eligibility breakdown, never an error.
type CertificateResult struct {
	Issued      bool         `json:"issued"`
	Certificate *Certificate `json:"certificate,omitempty"`
	Eligibility Eligibility  `json:"eligibility"`
}
