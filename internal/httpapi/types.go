package httpapi

import (
	"cyberguard/internal/quiz"
)

type questionsResponse struct {
	Category      quiz.Category      `json:"category"`
	QuestionCount int                `json:"question_count"`
	Questions     []questionResponse `json:"questions"`
}

type questionResponse struct {
	QuestionID string          `json:"question_id"`
	Question   string          `json:"question"`
	Options    []quiz.Option   `json:"options"`
	Category   quiz.Category   `json:"category"`
	Difficulty quiz.Difficulty `json:"difficulty"`
	Points     int             `json:"points"`
	// Staff only.
	CorrectIndex *int           `json:"correct_index,omitempty"`
	Explanation  string         `json:"explanation,omitempty"`
	WhyWrong     map[int]string `json:"why_wrong,omitempty"`
}

type answerRequest struct {
	QuestionID string   `json:"question_id"`
	Options    []string `json:"options"`
	// Either SelectedIndex or a letter in Answer.
	SelectedIndex *int   `json:"selected_index"`
	Answer        string `json:"answer,omitempty"`
	TimeSpent     int    `json:"time_spent"`
}

type activityResponse struct {
	Days   int                `json:"days"`
	Events []quiz.AnswerEvent `json:"events"`
}

type deletedResponse struct {
	Deleted int `json:"deleted"`
}

type issueCertificateRequest struct {
	Category string `json:"category"`
	Name     string `json:"name,omitempty"`
}

type certificatesResponse struct {
	Certificates []quiz.Certificate `json:"certificates"`
}

type verifyCertificateResponse struct {
	Certificate quiz.Certificate `json:"certificate"`
	Valid       bool             `json:"valid"`
}

type badgeUnlockResponse struct {
	UserID   string       `json:"user_id"`
	BadgeID  quiz.BadgeID `json:"badge_id"`
	Unlocked bool         `json:"unlocked"`
}

type leaderboardResponse struct {
	Category    quiz.Category           `json:"category,omitempty"`
	Leaderboard []quiz.LeaderboardEntry `json:"leaderboard"`
}

type categoriesResponse struct {
	Categories []quiz.CategoryInfo `json:"categories"`
}

type errorResponse struct {
	Error string `json:"error"`
}
