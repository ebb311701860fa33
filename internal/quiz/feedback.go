package quiz

import "context"

type ExplanationSource string

const (
	SourceGenerated ExplanationSource = "generated"
	SourceFallback  ExplanationSource = "fallback"
)

// Explanation is the text shown to a user after an answer or on a report.
// Text is never empty; Source says whether it came from the generator or the
// local template.
type Explanation struct {
	Text   string            `json:"text"`
	Source ExplanationSource `json:"source"`
}

func (e Explanation) Fallback() bool {
	return e.Source == SourceFallback
}

type ExplainInput struct {
	Question    string
	ChosenText  string
	CorrectText string
	Correct     bool
	Category    Category
	// Explanation is the question's stored explanation, if any.
	Explanation string
	// WhyWrong is the stored rationale for the chosen option, if any.
	WhyWrong string
}

// Explainer produces answer feedback and report comments. Implementations must
// always return a usable Explanation, falling back locally on any failure.
type Explainer interface {
	Explain(ctx context.Context, input ExplainInput) Explanation
	ReportComment(ctx context.Context, category Category, accuracy float64) Explanation
}
