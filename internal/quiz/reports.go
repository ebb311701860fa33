package quiz

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

type SummaryReport struct {
	UserID          string                     `json:"user_id"`
	TotalQuestions  int                        `json:"total_questions"`
	CorrectAnswers  int                        `json:"correct_answers"`
	OverallAccuracy float64                    `json:"overall_accuracy"`
	ByCategory      map[Category]CategoryStats `json:"by_category"`
	TotalStudyTime  int                        `json:"total_study_time_seconds"`
	AverageTime     float64                    `json:"average_time_per_question"`
	Points          int                        `json:"points"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

func BuildSummaryReport(userID string, events []AnswerEvent, now time.Time) SummaryReport {
	stats := Aggregate(events)
	return SummaryReport{
		UserID:          userID,
		TotalQuestions:  stats.TotalAnswers,
		CorrectAnswers:  stats.CorrectAnswers,
		OverallAccuracy: stats.Accuracy,
		ByCategory:      stats.ByCategory,
		TotalStudyTime:  stats.TotalTimeSeconds,
		AverageTime:     stats.AverageTime,
		Points:          Points(stats),
		GeneratedAt:     now.UTC(),
	}
}

type InstructorReport struct {
	TotalResponses  int                        `json:"total_responses"`
	TotalUsers      int                        `json:"total_users"`
	OverallAccuracy float64                    `json:"overall_accuracy"`
	ByCategory      map[Category]CategoryStats `json:"by_category"`
	ByUser          map[string]CategoryStats   `json:"by_user"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

// BuildInstructorReport aggregates across all users, optionally restricted to
// one category.
func BuildInstructorReport(events []AnswerEvent, category Category, now time.Time) InstructorReport {
	report := InstructorReport{
		ByCategory:  make(map[Category]CategoryStats),
		ByUser:      make(map[string]CategoryStats),
		GeneratedAt: now.UTC(),
	}

	correct := 0
	for _, event := range events {
		eventCategory := ParseCategory(string(event.Category))
		if category != "" && eventCategory != category {
			continue
		}
		report.TotalResponses++

		byCategory := report.ByCategory[eventCategory]
		byUser := report.ByUser[event.UserID]
		byCategory.Total++
		byUser.Total++
		if event.Correct {
			correct++
			byCategory.Correct++
			byUser.Correct++
		}
		report.ByCategory[eventCategory] = byCategory
		report.ByUser[event.UserID] = byUser
	}

	for key, bucket := range report.ByCategory {
		bucket.Accuracy = Accuracy(bucket.Correct, bucket.Total)
		report.ByCategory[key] = bucket
	}
	for key, bucket := range report.ByUser {
		bucket.Accuracy = Accuracy(bucket.Correct, bucket.Total)
		report.ByUser[key] = bucket
	}

	report.TotalUsers = len(report.ByUser)
	report.OverallAccuracy = Accuracy(correct, report.TotalResponses)
	return report
}

var csvHeader = []string{"timestamp", "question_id", "category", "correct", "time_spent"}

// WriteEventsCSV writes the history most recent first.
func WriteEventsCSV(w io.Writer, events []AnswerEvent) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, event := range SortMostRecentFirst(events) {
		record := []string{
			event.CreatedAt.UTC().Format(time.RFC3339),
			event.QuestionID,
			string(event.Category),
			strconv.FormatBool(event.Correct),
			strconv.Itoa(event.TimeSpentSeconds),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteEventsJSON(w io.Writer, events []AnswerEvent) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(SortMostRecentFirst(events))
}

type QuestionStats struct {
	Total        int                `json:"total"`
	ByCategory   map[Category]int   `json:"by_category"`
	ByDifficulty map[Difficulty]int `json:"by_difficulty"`
}

func BuildQuestionStats(questions []Question) QuestionStats {
	stats := QuestionStats{
		Total:        len(questions),
		ByCategory:   make(map[Category]int),
		ByDifficulty: make(map[Difficulty]int),
	}
	for _, question := range questions {
		stats.ByCategory[ParseCategory(string(question.Category))]++
		stats.ByDifficulty[ParseDifficulty(string(question.Difficulty))]++
	}
	return stats
}

// RenderCertificate produces the plain-text certificate document.
func RenderCertificate(c Certificate) []byte {
	var b strings.Builder
	b.WriteString("CERTIFICATE OF COMPLETION\n")
	b.WriteString("CYBERGUARD PROFESSIONAL TRAINING\n\n")
	fmt.Fprintf(&b, "Awarded to: %s\n", c.UserName)
	fmt.Fprintf(&b, "Category: %s\n", categoryName(c.Category))
	fmt.Fprintf(&b, "Accuracy: %s%%\n", c.Accuracy.StringFixed(2))
	fmt.Fprintf(&b, "Questions answered: %d\n", c.TotalQuestions)
	fmt.Fprintf(&b, "Issued: %s\n", c.IssuedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Valid until: %s\n\n", c.ValidUntil.Format("2006-01-02"))
	fmt.Fprintf(&b, "Certificate ID: %s\n", c.CertificateID)
	return []byte(b.String())
}

func categoryName(category Category) string {
	for _, info := range categoryCatalog {
		if info.ID == category {
			return info.Name
		}
	}
	return string(category)
}

// SortedCategories returns the keys of a per-category map in catalog order,
// with unknown last.
func SortedCategories(byCategory map[Category]CategoryStats) []Category {
	keys := make([]Category, 0, len(byCategory))
	for key := range byCategory {
		keys = append(keys, key)
	}
	order := func(c Category) int {
		for idx, info := range categoryCatalog {
			if info.ID == c {
				return idx
			}
		}
		return len(categoryCatalog)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := order(keys[i]), order(keys[j])
		if oi != oj {
			return oi < oj
		}
		return keys[i] < keys[j]
	})
	return keys
}
