package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cyberguard/internal/quiz"
)

var ErrServiceUnavailable = errors.New("training service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// HTTPClient talks to the training server on behalf of one signed-in trainee.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type questionItem struct {
	QuestionID string          `json:"question_id"`
	Question   string          `json:"question"`
	Options    []quiz.Option   `json:"options"`
	Category   quiz.Category   `json:"category"`
	Difficulty quiz.Difficulty `json:"difficulty"`
	Points     int             `json:"points"`
}

func (q questionItem) optionTexts() []string {
	texts := make([]string, len(q.Options))
	for idx, option := range q.Options {
		texts[idx] = option.Text
	}
	return texts
}

type questionsResponse struct {
	Category      quiz.Category  `json:"category"`
	QuestionCount int            `json:"question_count"`
	Questions     []questionItem `json:"questions"`
}

type categoriesResponse struct {
	Categories []quiz.CategoryInfo `json:"categories"`
}

type answerRequest struct {
	QuestionID    string   `json:"question_id"`
	Options       []string `json:"options"`
	SelectedIndex int      `json:"selected_index"`
	TimeSpent     int      `json:"time_spent"`
}

type badgeUnlockResponse struct {
	BadgeID  quiz.BadgeID `json:"badge_id"`
	Unlocked bool         `json:"unlocked"`
}

type certificateRequest struct {
	Category quiz.Category `json:"category"`
}

type leaderboardResponse struct {
	Category    quiz.Category           `json:"category,omitempty"`
	Leaderboard []quiz.LeaderboardEntry `json:"leaderboard"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPClient(baseURL, token string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultServer
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
	}
}

func (c *HTTPClient) Categories(ctx context.Context) ([]quiz.CategoryInfo, error) {
	var payload categoriesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

func (c *HTTPClient) Questions(ctx context.Context, category string, limit int) (questionsResponse, error) {
	if strings.TrimSpace(category) == "" {
		return questionsResponse{}, errors.New("category is required")
	}

	query := url.Values{}
	query.Set("category", strings.TrimSpace(category))
	query.Set("shuffle", "true")
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var payload questionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/questions?"+query.Encode(), nil, &payload); err != nil {
		return questionsResponse{}, err
	}
	return payload, nil
}

// SubmitAnswer sends the option list exactly as it was shown so the server
// can grade against the shuffled order.
func (c *HTTPClient) SubmitAnswer(ctx context.Context, question questionItem, selectedIndex, timeSpentSeconds int) (quiz.AnswerOutcome, error) {
	request := answerRequest{
		QuestionID:    question.QuestionID,
		Options:       question.optionTexts(),
		SelectedIndex: selectedIndex,
		TimeSpent:     timeSpentSeconds,
	}

	var outcome quiz.AnswerOutcome
	if err := c.doJSON(ctx, http.MethodPost, "/answers", request, &outcome); err != nil {
		return quiz.AnswerOutcome{}, err
	}
	return outcome, nil
}

func (c *HTTPClient) Stats(ctx context.Context) (quiz.UserStats, error) {
	var stats quiz.UserStats
	err := c.doJSON(ctx, http.MethodGet, "/me/stats", nil, &stats)
	return stats, err
}

func (c *HTTPClient) Badges(ctx context.Context) (quiz.BadgeStatus, error) {
	var status quiz.BadgeStatus
	err := c.doJSON(ctx, http.MethodGet, "/me/badges", nil, &status)
	return status, err
}

func (c *HTTPClient) ClaimBadge(ctx context.Context, badgeID string) (bool, error) {
	if strings.TrimSpace(badgeID) == "" {
		return false, errors.New("badge_id is required")
	}
	var payload badgeUnlockResponse
	if err := c.doJSON(ctx, http.MethodPost, "/me/badges/"+url.PathEscape(strings.TrimSpace(badgeID)), nil, &payload); err != nil {
		return false, err
	}
	return payload.Unlocked, nil
}

func (c *HTTPClient) IssueCertificate(ctx context.Context, category string) (quiz.CertificateResult, error) {
	var result quiz.CertificateResult
	err := c.doJSON(ctx, http.MethodPost, "/me/certificates", certificateRequest{Category: quiz.Category(strings.TrimSpace(category))}, &result)
	return result, err
}

func (c *HTTPClient) Leaderboard(ctx context.Context, category string, limit int) ([]quiz.LeaderboardEntry, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if trimmed := strings.TrimSpace(category); trimmed != "" {
		query.Set("category", trimmed)
	}

	var payload leaderboardResponse
	if err := c.doJSON(ctx, http.MethodGet, "/leaderboard?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Leaderboard, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
