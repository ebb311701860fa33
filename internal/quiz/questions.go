package quiz

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

type Category string

const (
	CategoryPhishing          Category = "phishing"
	CategoryPasswords         Category = "passwords"
	CategorySocialEngineering Category = "social_engineering"
	CategoryMalware           Category = "malware"
	CategoryUnknown           Category = "unknown"
)

type CategoryInfo struct {
	ID          Category `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

var categoryCatalog = []CategoryInfo{
	{ID: CategoryPhishing, Name: "Phishing", Description: "Spotting malicious email and phishing attacks"},
	{ID: CategoryPasswords, Name: "Passwords", Description: "Creating and managing strong passwords"},
	{ID: CategorySocialEngineering, Name: "Social Engineering", Description: "Manipulation tactics and social engineering"},
	{ID: CategoryMalware, Name: "Malware", Description: "Preventing and detecting malware"},
}

// Categories returns the fixed training catalog in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryCatalog))
	copy(out, categoryCatalog)
	return out
}

// ParseCategory maps a stored or user-supplied value onto the catalog.
// Anything outside it becomes CategoryUnknown.
func ParseCategory(raw string) Category {
	candidate := Category(strings.ToLower(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate
	}
	return CategoryUnknown
}

func (c Category) Valid() bool {
	for _, info := range categoryCatalog {
		if info.ID == c {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(raw string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d
	default:
		return DifficultyMedium
	}
}

func (d Difficulty) Points() int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyHard:
		return 50
	default:
		return 25
	}
}

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type Question struct {
	QuestionID   string         `json:"question_id" yaml:"question_id,omitempty"`
	Prompt       string         `json:"question" yaml:"question"`
	Options      []string       `json:"options" yaml:"options"`
	CorrectIndex int            `json:"correct_index" yaml:"correct_index"`
	Category     Category       `json:"category" yaml:"category"`
	Difficulty   Difficulty     `json:"difficulty" yaml:"difficulty"`
	Explanation  string         `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	WhyWrong     map[int]string `json:"why_wrong,omitempty" yaml:"why_wrong,omitempty"`
	CreatedAt    time.Time      `json:"created_at" yaml:"-"`
}

// Validate reports whether the question can be served. Stored records that fail
// it are skipped by readers instead of aborting the read.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least 2 options, got %d", ErrInvalidQuestion, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidQuestion, q.CorrectIndex)
	}
	for idx := range q.WhyWrong {
		if idx < 0 || idx >= len(q.Options) {
			return fmt.Errorf("%w: rationale index %d out of range", ErrInvalidQuestion, idx)
		}
		if idx == q.CorrectIndex {
			return fmt.Errorf("%w: rationale given for the correct option", ErrInvalidQuestion)
		}
	}
	return nil
}

// Lettered returns the options labelled A, B, C...
func (q Question) Lettered() []Option {
	options := make([]Option, len(q.Options))
	for idx, text := range q.Options {
		options[idx] = Option{Letter: OptionLetter(idx), Text: text}
	}
	return options
}

// CorrectText is the text of the correct option, or "" for a malformed question.
func (q Question) CorrectText() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

func (q Question) clone() Question {
	out := q
	if q.Options != nil {
		out.Options = make([]string, len(q.Options))
		copy(out.Options, q.Options)
	}
	if q.WhyWrong != nil {
		out.WhyWrong = make(map[int]string, len(q.WhyWrong))
		for k, v := range q.WhyWrong {
			out.WhyWrong[k] = v
		}
	}
	return out
}

// Shuffle returns a copy of q with its options in a uniformly random order.
//
// The correct index and the why-wrong rationale keys follow their options by
// position, so duplicate option texts stay unambiguous. Rationale keys that do
// not point at a real option are dropped. q itself is not modified.
func Shuffle(q Question, rng *rand.Rand) Question {
	out := q.clone()
	n := len(q.Options)
	if n <= 1 {
		return out
	}

	var perm []int
	if rng != nil {
		perm = rng.Perm(n)
	} else {
		perm = rand.Perm(n)
	}

	// perm[newIdx] = oldIdx; newPos is the inverse.
	newPos := make([]int, n)
	for newIdx, oldIdx := range perm {
		out.Options[newIdx] = q.Options[oldIdx]
		newPos[oldIdx] = newIdx
	}

	if q.CorrectIndex >= 0 && q.CorrectIndex < n {
		out.CorrectIndex = newPos[q.CorrectIndex]
	}

	if q.WhyWrong != nil {
		out.WhyWrong = make(map[int]string, len(q.WhyWrong))
		for oldIdx, rationale := range q.WhyWrong {
			if oldIdx < 0 || oldIdx >= n {
				continue
			}
			out.WhyWrong[newPos[oldIdx]] = rationale
		}
	}

	return out
}

func OptionLetter(idx int) string {
	if idx < 0 || idx > 25 {
		return ""
	}
	return string(rune('A' + idx))
}

func NormalizeLetter(answer string) string {
	letter := strings.ToUpper(strings.TrimSpace(answer))
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return ""
	}
	return letter
}

// LetterIndex converts an answer letter into an option index, or -1 when the
// letter is invalid for optionCount options.
func LetterIndex(answer string, optionCount int) int {
	letter := NormalizeLetter(answer)
	if letter == "" {
		return -1
	}
	idx := int(letter[0] - 'A')
	if idx >= optionCount {
		return -1
	}
	return idx
}
