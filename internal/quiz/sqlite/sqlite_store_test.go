package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cyberguard/internal/quiz"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		_ = os.Remove(path)
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
		_ = os.Remove(path + "-journal")
	})
	return store
}

func sampleQuestions() []quiz.Question {
	createdAt := time.Unix(1700000000, 123).UTC()
	return []quiz.Question{
		{
			QuestionID:   "q1",
			Prompt:       "Which link is suspicious?",
			Options:      []string{"https://bank.example", "http://bank-example.login.co", "none"},
			CorrectIndex: 1,
			Category:     quiz.CategoryPhishing,
			Difficulty:   quiz.DifficultyMedium,
			Explanation:  "Look at the registered domain.",
			WhyWrong:     map[int]string{0: "This is the real domain."},
			CreatedAt:    createdAt,
		},
		{
			QuestionID:   "q2",
			Prompt:       "Best password?",
			Options:      []string{"password1", "correct horse battery staple"},
			CorrectIndex: 1,
			Category:     quiz.CategoryPasswords,
			Difficulty:   quiz.DifficultyEasy,
			CreatedAt:    createdAt.Add(time.Second),
		},
	}
}

func TestSQLiteStoreQuestionRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, question := range sampleQuestions() {
		if err := store.PutQuestion(ctx, question); err != nil {
			t.Fatalf("PutQuestion failed: %v", err)
		}
	}

	got, err := store.GetQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("GetQuestion failed: %v", err)
	}
	want := sampleQuestions()[0]
	if got.Prompt != want.Prompt || got.CorrectIndex != 1 || len(got.Options) != 3 {
		t.Fatalf("unexpected question: %+v", got)
	}
	if got.WhyWrong[0] != "This is the real domain." || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("unexpected rationale or time: %+v", got)
	}

	phishing, err := store.QuestionsByCategory(ctx, quiz.CategoryPhishing)
	if err != nil {
		t.Fatalf("QuestionsByCategory failed: %v", err)
	}
	if len(phishing) != 1 || phishing[0].QuestionID != "q1" {
		t.Fatalf("unexpected category query result: %+v", phishing)
	}

	all, err := store.AllQuestions(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("AllQuestions = %d, %v", len(all), err)
	}
	if all[1].WhyWrong != nil {
		t.Fatalf("expected nil rationale map for q2, got %v", all[1].WhyWrong)
	}
}

func TestSQLiteStoreQuestionUpsertAndDelete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	question := sampleQuestions()[0]
	if err := store.PutQuestion(ctx, question); err != nil {
		t.Fatalf("PutQuestion failed: %v", err)
	}
	question.Prompt = "Updated"
	if err := store.PutQuestion(ctx, question); err != nil {
		t.Fatalf("PutQuestion update failed: %v", err)
	}
	got, _ := store.GetQuestion(ctx, "q1")
	if got.Prompt != "Updated" {
		t.Fatalf("expected overwrite, got %q", got.Prompt)
	}

	deleted, err := store.DeleteQuestion(ctx, "q1")
	if err != nil || !deleted {
		t.Fatalf("DeleteQuestion = %v, %v", deleted, err)
	}
	deleted, err = store.DeleteQuestion(ctx, "q1")
	if err != nil || deleted {
		t.Fatalf("second DeleteQuestion = %v, %v", deleted, err)
	}
	if _, err := store.GetQuestion(ctx, "q1"); !errors.Is(err, quiz.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestSQLiteStoreAnswerEvents(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	at := time.Unix(1700000000, 0).UTC()
	inputs := []quiz.AnswerEvent{
		{UserID: "alice", QuestionID: "q1", Correct: true, Category: quiz.CategoryPhishing, TimeSpentSeconds: 5, CreatedAt: at},
		{UserID: "alice", QuestionID: "q2", Correct: false, Category: "legacy", TimeSpentSeconds: 9, CreatedAt: at},
		{UserID: "bob", QuestionID: "q1", Correct: true, Category: quiz.CategoryPhishing, CreatedAt: at},
	}
	var lastSeq int64
	for _, input := range inputs {
		event, err := store.AppendAnswerEvent(ctx, input)
		if err != nil {
			t.Fatalf("AppendAnswerEvent failed: %v", err)
		}
		if event.Seq <= lastSeq {
			t.Fatalf("expected increasing seq, got %d after %d", event.Seq, lastSeq)
		}
		lastSeq = event.Seq
	}

	events, err := store.AnswerEventsByUser(ctx, "alice")
	if err != nil || len(events) != 2 {
		t.Fatalf("AnswerEventsByUser = %d, %v", len(events), err)
	}
	if events[1].Category != "legacy" || events[1].Correct {
		t.Fatalf("raw category must be returned as stored: %+v", events[1])
	}

	// Same timestamp: the later insert wins the tie and breaks the streak.
	stats := quiz.Aggregate(events)
	if stats.Streak != 0 || stats.Category(quiz.CategoryUnknown).Total != 1 {
		t.Fatalf("unexpected stats from stored events: %+v", stats)
	}

	all, err := store.AllAnswerEvents(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("AllAnswerEvents = %d, %v", len(all), err)
	}

	deleted, err := store.DeleteAnswerEventsByUser(ctx, "alice")
	if err != nil || deleted != 2 {
		t.Fatalf("DeleteAnswerEventsByUser = %d, %v", deleted, err)
	}
	remaining, _ := store.AllAnswerEvents(ctx)
	if len(remaining) != 1 || remaining[0].UserID != "bob" {
		t.Fatalf("unexpected remaining events: %+v", remaining)
	}
}

func TestSQLiteStoreCertificatesKeepExactAccuracy(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	issued := time.Unix(1714555800, 0).UTC()
	certificate := quiz.NewCertificate("alice", "Alice", quiz.CategoryMalware, 83.333333, 12, issued)
	certificate.DocumentKey = "certificates/x.txt"
	if err := store.PutCertificate(ctx, certificate); err != nil {
		t.Fatalf("PutCertificate failed: %v", err)
	}

	got, err := store.GetCertificate(ctx, certificate.CertificateID)
	if err != nil {
		t.Fatalf("GetCertificate failed: %v", err)
	}
	if !got.Accuracy.Equal(decimal.RequireFromString("83.33")) {
		t.Fatalf("unexpected accuracy %s", got.Accuracy)
	}
	if !got.IssuedAt.Equal(issued) || !got.ValidUntil.Equal(certificate.ValidUntil) || got.DocumentKey != "certificates/x.txt" {
		t.Fatalf("unexpected certificate %+v", got)
	}

	list, err := store.CertificatesByUser(ctx, "alice")
	if err != nil || len(list) != 1 {
		t.Fatalf("CertificatesByUser = %d, %v", len(list), err)
	}
	if _, err := store.GetCertificate(ctx, "missing"); !errors.Is(err, quiz.ErrCertificateNotFound) {
		t.Fatalf("expected ErrCertificateNotFound, got %v", err)
	}
}

func TestSQLiteStoreCertificateIDConflictKeepsFirst(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	issued := time.Unix(1714555800, 0).UTC()
	first := quiz.NewCertificate("alice", "Alice", quiz.CategoryPhishing, 90, 10, issued)
	if err := store.PutCertificate(ctx, first); err != nil {
		t.Fatalf("PutCertificate failed: %v", err)
	}

	second := quiz.NewCertificate("alice", "Someone Else", quiz.CategoryPhishing, 100, 20, issued.Add(500*time.Millisecond))
	if second.CertificateID != first.CertificateID {
		t.Fatalf("expected same-second ids to collide, got %q and %q", first.CertificateID, second.CertificateID)
	}
	if err := store.PutCertificate(ctx, second); !errors.Is(err, quiz.ErrCertificateExists) {
		t.Fatalf("expected ErrCertificateExists, got %v", err)
	}

	got, err := store.GetCertificate(ctx, first.CertificateID)
	if err != nil {
		t.Fatalf("GetCertificate failed: %v", err)
	}
	if got.UserName != "Alice" || got.TotalQuestions != 10 {
		t.Fatalf("first certificate was replaced: %+v", got)
	}
}

func TestSQLiteStoreUnlockedBadgesAreUnique(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	first := time.Unix(1700000000, 0).UTC()
	created, err := store.PutUnlockedBadge(ctx, quiz.UnlockedBadge{UserID: "alice", BadgeID: quiz.BadgeStreak5, UnlockedAt: first})
	if err != nil || !created {
		t.Fatalf("first PutUnlockedBadge = %v, %v", created, err)
	}
	created, err = store.PutUnlockedBadge(ctx, quiz.UnlockedBadge{UserID: "alice", BadgeID: quiz.BadgeStreak5, UnlockedAt: first.Add(time.Hour)})
	if err != nil || created {
		t.Fatalf("second PutUnlockedBadge = %v, %v", created, err)
	}

	badges, err := store.UnlockedBadgesByUser(ctx, "alice")
	if err != nil || len(badges) != 1 {
		t.Fatalf("UnlockedBadgesByUser = %d, %v", len(badges), err)
	}
	if !badges[0].UnlockedAt.Equal(first) {
		t.Fatalf("repeat unlock must keep the original time, got %v", badges[0].UnlockedAt)
	}
}

func TestSQLiteStoreBacksService(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	service := quiz.NewService(store.Repositories(), nil, nil)

	question := sampleQuestions()[1]
	question.QuestionID = ""
	created, err := service.CreateQuestion(ctx, question)
	if err != nil {
		t.Fatalf("CreateQuestion failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		if _, err := service.SubmitAnswer(ctx, "alice", quiz.AnswerSubmission{QuestionID: created.QuestionID, SelectedIndex: 1}); err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
	}

	result, err := service.IssueCertificate(ctx, "alice", "Alice", quiz.CategoryPasswords)
	if err != nil || !result.Issued {
		t.Fatalf("IssueCertificate = %+v, %v", result, err)
	}
	if _, err := service.VerifyCertificate(ctx, result.Certificate.CertificateID); err != nil {
		t.Fatalf("VerifyCertificate failed: %v", err)
	}
	if status := service.Badges(ctx, "alice"); len(status.Unlocked) == 0 {
		t.Fatalf("expected auto-unlocked badges, got %+v", status)
	}
}
