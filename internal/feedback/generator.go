package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cyberguard/internal/logger"
	"cyberguard/internal/quiz"
	"cyberguard/internal/textgen"
)

const DefaultSoftTimeout = 8 * time.Second

// Completer is the text generation boundary. *textgen.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req textgen.Request) (string, error)
}

type Budget struct {
	MaxTokens   int
	Temperature float64
}

var (
	feedbackBudget = Budget{MaxTokens: 800, Temperature: 0.7}
	reportBudget   = Budget{MaxTokens: 300, Temperature: 0.7}
	questionBudget = Budget{MaxTokens: 500, Temperature: 0.9}
)

// Generator turns quiz context into prompts and falls back to local templates
// whenever the completer is missing or fails.
type Generator struct {
	completer   Completer
	softTimeout time.Duration
	log         *logger.Logger
}

func NewGenerator(completer Completer, softTimeout time.Duration, log *logger.Logger) *Generator {
	if softTimeout <= 0 {
		softTimeout = DefaultSoftTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{
		completer:   completer,
		softTimeout: softTimeout,
		log:         log,
	}
}

func (g *Generator) complete(ctx context.Context, prompt string, budget Budget) (string, error) {
	if g.completer == nil {
		return "", fmt.Errorf("text generation is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, g.softTimeout)
	defer cancel()

	text, err := g.completer.Complete(ctx, textgen.Request{
		Prompt:      prompt,
		MaxTokens:   budget.MaxTokens,
		Temperature: budget.Temperature,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", textgen.ErrEmptyResponse
	}
	return text, nil
}

func (g *Generator) Explain(ctx context.Context, input quiz.ExplainInput) quiz.Explanation {
	text, err := g.complete(ctx, explainPrompt(input), feedbackBudget)
	if err != nil {
		g.log.Debug("feedback generation failed", "category", input.Category, "error", err)
		return quiz.Explanation{Text: FallbackExplanation(input), Source: quiz.SourceFallback}
	}
	return quiz.Explanation{Text: text, Source: quiz.SourceGenerated}
}

func (g *Generator) ReportComment(ctx context.Context, category quiz.Category, accuracy float64) quiz.Explanation {
	text, err := g.complete(ctx, reportPrompt(category, accuracy), reportBudget)
	if err != nil {
		g.log.Debug("report comment generation failed", "category", category, "error", err)
		return quiz.Explanation{Text: FallbackReportComment(accuracy), Source: quiz.SourceFallback}
	}
	return quiz.Explanation{Text: text, Source: quiz.SourceGenerated}
}

func explainPrompt(input quiz.ExplainInput) string {
	var b strings.Builder
	b.WriteString("You are a cybersecurity instructor.\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n", input.Question)
	if input.Correct {
		fmt.Fprintf(&b, "STUDENT ANSWER: %s\nSTATUS: CORRECT\n\n", input.ChosenText)
		b.WriteString("Write brief, specific feedback (at most 150 words) that congratulates the student, ")
		b.WriteString("explains why this answer is right, names the security concept involved and suggests a next step.")
		return b.String()
	}
	fmt.Fprintf(&b, "STUDENT ANSWER (INCORRECT): %s\nCORRECT ANSWER: %s\nCATEGORY: %s\n\n", input.ChosenText, input.CorrectText, input.Category)
	b.WriteString("Write detailed feedback (at most 250 words) that explains specifically why the student's answer is wrong ")
	b.WriteString("for this question, why the correct answer is right, the underlying security concept, ")
	b.WriteString("and a practical example of the difference. Be specific to this question.")
	return b.String()
}

func reportPrompt(category quiz.Category, accuracy float64) string {
	topic := "cybersecurity"
	if category != "" {
		topic = string(category)
	}
	return fmt.Sprintf(
		"You are a cybersecurity mentor.\n\nA student finished %s training with %.1f%% accuracy.\nPerformance: %s\n\n"+
			"Write an encouraging, constructive comment of 4-5 lines: acknowledge the effort, "+
			"praise or suggest specific improvements, and recommend next steps.",
		topic, accuracy, PerformanceLevel(accuracy),
	)
}

func PerformanceLevel(accuracy float64) string {
	switch {
	case accuracy >= 80:
		return "excellent"
	case accuracy >= 60:
		return "good"
	case accuracy >= 40:
		return "fair"
	default:
		return "needs improvement"
	}
}

// FallbackExplanation builds feedback from the inputs alone. It cannot fail.
func FallbackExplanation(input quiz.ExplainInput) string {
	var b strings.Builder
	if input.Correct {
		b.WriteString("Correct! Well done.\n\n")
		fmt.Fprintf(&b, "Your answer %q shows a sound grasp of this security concept. Keep practicing to deepen it.", input.ChosenText)
	} else {
		b.WriteString("Your answer was incorrect.\n\n")
		fmt.Fprintf(&b, "Your answer: %q", input.ChosenText)
		if input.WhyWrong != "" {
			fmt.Fprintf(&b, "\nWhy it is wrong: %s", input.WhyWrong)
		} else {
			b.WriteString("\nThis option does not reflect the recommended security practice.")
		}
		fmt.Fprintf(&b, "\n\nCorrect answer: %q\nThis is the approach security professionals recommend.", input.CorrectText)
	}
	if explanation := strings.TrimSpace(input.Explanation); explanation != "" {
		fmt.Fprintf(&b, "\n\nExplanation: %s", explanation)
	}
	return b.String()
}

func FallbackReportComment(accuracy float64) string {
	return fmt.Sprintf("Your accuracy was %.1f%%. Keep practicing!", accuracy)
}

type generatedQuestion struct {
	Question      string         `json:"question"`
	Options       []string       `json:"options"`
	CorrectIndex  *int           `json:"correct_index"`
	CorrectAnswer *int           `json:"correctAnswer"`
	Explanation   string         `json:"explanation"`
	WhyWrong      map[int]string `json:"why_wrong"`
}

var categoryTopics = map[quiz.Category]string{
	quiz.CategoryPhishing:          "identifying malicious email and phishing attacks",
	quiz.CategoryPasswords:         "creating and managing strong passwords",
	quiz.CategorySocialEngineering: "manipulation tactics and social engineering",
	quiz.CategoryMalware:           "preventing and detecting malware",
}

// GenerateQuestion asks the model for one question as strict JSON. The result
// is validated; anything unusable is an error so callers can fall back to
// seed files.
func (g *Generator) GenerateQuestion(ctx context.Context, category quiz.Category, difficulty quiz.Difficulty, topic string) (quiz.Question, error) {
	if !category.Valid() {
		return quiz.Question{}, fmt.Errorf("%w: unknown category %q", quiz.ErrInvalidQuestion, category)
	}
	difficulty = quiz.ParseDifficulty(string(difficulty))
	if strings.TrimSpace(topic) == "" {
		topic = categoryTopics[category]
	}

	text, err := g.complete(ctx, questionPrompt(category, difficulty, topic), questionBudget)
	if err != nil {
		return quiz.Question{}, fmt.Errorf("generate question: %w", err)
	}

	var payload generatedQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &payload); err != nil {
		return quiz.Question{}, fmt.Errorf("%w: response is not valid JSON: %v", quiz.ErrInvalidQuestion, err)
	}

	question := quiz.Question{
		Prompt:       strings.TrimSpace(payload.Question),
		Options:      payload.Options,
		CorrectIndex: -1,
		Category:     category,
		Difficulty:   difficulty,
		Explanation:  strings.TrimSpace(payload.Explanation),
		WhyWrong:     payload.WhyWrong,
	}
	switch {
	case payload.CorrectIndex != nil:
		question.CorrectIndex = *payload.CorrectIndex
	case payload.CorrectAnswer != nil:
		question.CorrectIndex = *payload.CorrectAnswer
	}
	if err := question.Validate(); err != nil {
		return quiz.Question{}, err
	}
	return question, nil
}

func questionPrompt(category quiz.Category, difficulty quiz.Difficulty, topic string) string {
	return fmt.Sprintf(`Create one multiple-choice cybersecurity question.

Topic: %s
Category: %s
Difficulty: %s

Return ONLY valid JSON in exactly this shape:
{
  "question": "Clear question (max 100 characters)",
  "options": ["Option A", "Option B", "Option C", "Option D"],
  "correct_index": 1,
  "explanation": "Why the correct answer is right (max 50 words)",
  "why_wrong": {"0": "Why A is wrong", "2": "Why C is wrong", "3": "Why D is wrong"}
}`, topic, category, difficulty)
}

// stripCodeFence removes a surrounding ``` or ```json fence if present.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
