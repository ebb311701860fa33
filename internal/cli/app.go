package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cyberguard/internal/auth"
	"cyberguard/internal/quiz"
)

const (
	defaultTokenTTL    = 24 * time.Hour
	maxGenerateCount   = 50
	maxGenerateRetries = 2
)

// QuestionGenerator produces draft questions, normally backed by the text
// generation service.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, category quiz.Category, difficulty quiz.Difficulty, topic string) (quiz.Question, error)
}

type Deps struct {
	Service *quiz.Service
	// Generator is nil when text generation is not configured.
	Generator QuestionGenerator
	Auth      *auth.AuthService
	TokenTTL  time.Duration
}

type seedFile struct {
	Questions []quiz.Question `yaml:"questions"`
}

func Run(ctx context.Context, args []string, out io.Writer, deps Deps) error {
	if len(args) == 0 {
		printUsage(out)
		return errors.New("command is required")
	}

	switch command, rest := strings.ToLower(args[0]), args[1:]; command {
	case "help":
		printUsage(out)
		return nil
	case "seed":
		if len(rest) != 1 {
			return errors.New("usage: seed <file.yaml>")
		}
		return runSeed(ctx, out, deps.Service, rest[0])
	case "generate":
		if len(rest) < 2 || len(rest) > 3 {
			return errors.New("usage: generate <category> <count> [difficulty]")
		}
		return runGenerate(ctx, out, deps, rest)
	case "stats":
		return runStats(ctx, out, deps.Service)
	case "token":
		if len(rest) < 2 || len(rest) > 3 {
			return errors.New("usage: token <user_id> <role> [name]")
		}
		return runToken(out, deps, rest)
	case "instructor-report":
		if len(rest) > 1 {
			return errors.New("usage: instructor-report [category]")
		}
		category := ""
		if len(rest) == 1 {
			category = rest[0]
		}
		return runInstructorReport(ctx, out, deps.Service, category)
	default:
		printUsage(out)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  seed <file.yaml>")
	fmt.Fprintln(out, "  generate <category> <count> [difficulty]")
	fmt.Fprintln(out, "  stats")
	fmt.Fprintln(out, "  token <user_id> <student|instructor|admin> [name]")
	fmt.Fprintln(out, "  instructor-report [category]")
}

func LoadSeedFile(path string) ([]quiz.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return seed.Questions, nil
}

// runSeed loads questions from a YAML file. Entries keep their question_id,
// so seeding the same file twice updates in place. Invalid entries are
// reported and skipped.
func runSeed(ctx context.Context, out io.Writer, service *quiz.Service, path string) error {
	questions, err := LoadSeedFile(path)
	if err != nil {
		return err
	}

	created, updated, skipped := 0, 0, 0
	for idx, question := range questions {
		_, isNew, err := service.ImportQuestion(ctx, question)
		switch {
		case errors.Is(err, quiz.ErrInvalidQuestion):
			skipped++
			fmt.Fprintf(out, "skipping entry %d: %v\n", idx+1, err)
		case err != nil:
			return fmt.Errorf("seed entry %d: %w", idx+1, err)
		case isNew:
			created++
		default:
			updated++
		}
	}

	fmt.Fprintf(out, "seeded %s: created=%d updated=%d skipped=%d\n", path, created, updated, skipped)
	return nil
}

func runGenerate(ctx context.Context, out io.Writer, deps Deps, args []string) error {
	if deps.Generator == nil {
		return errors.New("text generation is not configured")
	}
	category := quiz.ParseCategory(args[0])
	if category == quiz.CategoryUnknown {
		return fmt.Errorf("unknown category %q", args[0])
	}
	count, err := strconv.Atoi(args[1])
	if err != nil || count <= 0 || count > maxGenerateCount {
		return fmt.Errorf("count must be between 1 and %d", maxGenerateCount)
	}
	difficulty := quiz.DifficultyMedium
	if len(args) == 3 {
		difficulty = quiz.ParseDifficulty(args[2])
	}

	stored := 0
	for i := 0; i < count; i++ {
		question, err := generateWithRetry(ctx, deps.Generator, category, difficulty)
		if err != nil {
			fmt.Fprintf(out, "question %d: %v\n", i+1, err)
			continue
		}
		created, err := deps.Service.CreateQuestion(ctx, question)
		if err != nil {
			fmt.Fprintf(out, "question %d: %v\n", i+1, err)
			continue
		}
		stored++
		fmt.Fprintf(out, "%s  %s\n", created.QuestionID, created.Prompt)
	}

	fmt.Fprintf(out, "generated %d/%d %s questions (%s)\n", stored, count, category, difficulty)
	if stored == 0 {
		return errors.New("no questions generated")
	}
	return nil
}

func generateWithRetry(ctx context.Context, generator QuestionGenerator, category quiz.Category, difficulty quiz.Difficulty) (quiz.Question, error) {
	var lastErr error
	for attempt := 0; attempt <= maxGenerateRetries; attempt++ {
		question, err := generator.GenerateQuestion(ctx, category, difficulty, "")
		if err == nil {
			return question, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return quiz.Question{}, lastErr
}

func runStats(ctx context.Context, out io.Writer, service *quiz.Service) error {
	stats := service.QuestionStats(ctx)
	fmt.Fprintf(out, "total questions: %d\n", stats.Total)
	for _, info := range quiz.Categories() {
		fmt.Fprintf(out, "  %-20s %d\n", info.ID, stats.ByCategory[info.ID])
	}
	for _, difficulty := range []quiz.Difficulty{quiz.DifficultyEasy, quiz.DifficultyMedium, quiz.DifficultyHard} {
		fmt.Fprintf(out, "  %-20s %d\n", difficulty, stats.ByDifficulty[difficulty])
	}
	return nil
}

func runToken(out io.Writer, deps Deps, args []string) error {
	if deps.Auth == nil {
		return errors.New("auth is not configured")
	}
	userID := strings.TrimSpace(args[0])
	if userID == "" {
		return errors.New("user_id is required")
	}
	role, ok := auth.ParseRole(args[1])
	if !ok {
		return fmt.Errorf("unknown role %q", args[1])
	}
	name := ""
	if len(args) == 3 {
		name = args[2]
	}
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	token, err := deps.Auth.IssueJWT(userID, role, name, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func runInstructorReport(ctx context.Context, out io.Writer, service *quiz.Service, rawCategory string) error {
	var category quiz.Category
	if strings.TrimSpace(rawCategory) != "" {
		category = quiz.ParseCategory(rawCategory)
		if category == quiz.CategoryUnknown {
			return fmt.Errorf("unknown category %q", rawCategory)
		}
	}

	report := service.InstructorReport(ctx, category)
	fmt.Fprintf(out, "responses=%d users=%d accuracy=%.1f%%\n", report.TotalResponses, report.TotalUsers, report.OverallAccuracy)
	for _, key := range quiz.SortedCategories(report.ByCategory) {
		rollup := report.ByCategory[key]
		fmt.Fprintf(out, "  %-20s %d/%d (%.1f%%)\n", key, rollup.Correct, rollup.Total, rollup.Accuracy)
	}
	return nil
}
