package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cyberguard/internal/auth"
	"cyberguard/internal/quiz"
	"cyberguard/internal/quiz/sqlite"
)

const seedYAML = `questions:
  - question_id: seed-1
    category: phishing
    difficulty: easy
    question: Suspicious link in an email?
    options: [Click it, Report it]
    correct_index: 1
    why_wrong:
      0: It may be a credential harvesting page.
  - category: malware
    question: Not enough options
    options: [Only one]
    correct_index: 0
`

func newTestService(t *testing.T) *quiz.Service {
	t.Helper()
	store, err := sqlite.NewSQLiteStore(filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return quiz.NewService(store.Repositories(), nil, nil)
}

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadSeedFileParsesIntegerRationaleKeys(t *testing.T) {
	questions, err := LoadSeedFile(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("LoadSeedFile failed: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(questions))
	}
	if questions[0].WhyWrong[0] == "" || questions[0].Options[1] != "Report it" {
		t.Fatalf("unexpected first entry %+v", questions[0])
	}
}

func TestLoadSeedFileShippedBank(t *testing.T) {
	questions, err := LoadSeedFile(filepath.Join("..", "..", "seeds", "questions.yaml"))
	if err != nil {
		t.Fatalf("LoadSeedFile failed: %v", err)
	}
	for _, question := range questions {
		if err := question.Validate(); err != nil || !question.Category.Valid() {
			t.Fatalf("shipped question %s is invalid: %v", question.QuestionID, err)
		}
	}
}

func TestSeedSkipsInvalidAndUpdatesExisting(t *testing.T) {
	service := newTestService(t)
	path := writeSeed(t, seedYAML)
	ctx := context.Background()

	var out bytes.Buffer
	if err := Run(ctx, []string{"seed", path}, &out, Deps{Service: service}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if !strings.Contains(out.String(), "created=1 updated=0 skipped=1") {
		t.Fatalf("unexpected seed output: %s", out.String())
	}
	if _, err := service.Question(ctx, "seed-1"); err != nil {
		t.Fatalf("seeded question keeps its id: %v", err)
	}

	out.Reset()
	if err := Run(ctx, []string{"seed", path}, &out, Deps{Service: service}); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if !strings.Contains(out.String(), "created=0 updated=1 skipped=1") {
		t.Fatalf("unexpected second seed output: %s", out.String())
	}
	if stats := service.QuestionStats(ctx); stats.Total != 1 {
		t.Fatalf("expected 1 stored question, got %d", stats.Total)
	}
}

type fakeGenerator struct {
	calls int
	fail  int
}

func (f *fakeGenerator) GenerateQuestion(_ context.Context, category quiz.Category, difficulty quiz.Difficulty, _ string) (quiz.Question, error) {
	f.calls++
	if f.calls <= f.fail {
		return quiz.Question{}, errors.New("model returned prose")
	}
	return quiz.Question{
		Prompt:       "Generated?",
		Options:      []string{"yes", "no"},
		CorrectIndex: 0,
		Category:     category,
		Difficulty:   difficulty,
	}, nil
}

func TestGenerateRetriesAndStores(t *testing.T) {
	service := newTestService(t)
	generator := &fakeGenerator{fail: 1}

	var out bytes.Buffer
	err := Run(context.Background(), []string{"generate", "malware", "2", "hard"}, &out, Deps{Service: service, Generator: generator})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if generator.calls != 3 {
		t.Fatalf("expected 3 generator calls, got %d", generator.calls)
	}
	stats := service.QuestionStats(context.Background())
	if stats.ByCategory[quiz.CategoryMalware] != 2 || stats.ByDifficulty[quiz.DifficultyHard] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestGenerateRequiresGenerator(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), []string{"generate", "malware", "1"}, &out, Deps{Service: newTestService(t)})
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestTokenIssuesParsableJWT(t *testing.T) {
	authSvc := auth.NewAuthService("secret", "")

	var out bytes.Buffer
	if err := Run(context.Background(), []string{"token", "ines", "instructor", "Ines"}, &out, Deps{Auth: authSvc}); err != nil {
		t.Fatalf("token failed: %v", err)
	}
	principal, err := authSvc.Principal(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if principal.UserID != "ines" || principal.Role != auth.RoleInstructor || principal.Name != "Ines" {
		t.Fatalf("unexpected principal %+v", principal)
	}

	if err := Run(context.Background(), []string{"token", "ines", "root"}, &out, Deps{Auth: authSvc}); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), []string{"frobnicate"}, &out, Deps{}); err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(out.String(), "Commands:") {
		t.Fatalf("expected usage output, got %q", out.String())
	}
}
