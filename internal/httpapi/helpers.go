package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cyberguard/internal/auth"
	"cyberguard/internal/quiz"
)

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "question not found"})
	case errors.Is(err, quiz.ErrCertificateNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "certificate not found"})
	case errors.Is(err, quiz.ErrDocumentNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "certificate document not found"})
	case errors.Is(err, quiz.ErrCertificateExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "certificate already issued, retry shortly"})
	case errors.Is(err, quiz.ErrUnknownBadge):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown badge"})
	case errors.Is(err, quiz.ErrInvalidQuestion),
		errors.Is(err, quiz.ErrInvalidSubmission),
		errors.Is(err, quiz.ErrInvalidUser),
		errors.Is(err, quiz.ErrBadgeNotEligible):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		a.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

// guard runs the access check for the handler and writes the denial itself.
func guard(w http.ResponseWriter, r *http.Request, required auth.Role) (auth.Principal, bool) {
	principal := auth.PrincipalFromContext(r.Context())
	decision := auth.Require(principal, required)
	if !decision.Allowed {
		writeJSON(w, decision.Status, errorResponse{Error: decision.Reason})
		return principal, false
	}
	return principal, true
}

func isStaff(p auth.Principal) bool {
	return p.Role.AtLeast(auth.RoleInstructor)
}

func toQuestionResponses(questions []quiz.Question, staff bool) []questionResponse {
	response := make([]questionResponse, 0, len(questions))
	for _, question := range questions {
		item := questionResponse{
			QuestionID: question.QuestionID,
			Question:   question.Prompt,
			Options:    question.Lettered(),
			Category:   question.Category,
			Difficulty: question.Difficulty,
			Points:     question.Difficulty.Points(),
		}
		if staff {
			correct := question.CorrectIndex
			item.CorrectIndex = &correct
			item.Explanation = question.Explanation
			item.WhyWrong = question.WhyWrong
		}
		response = append(response, item)
	}
	return response
}

// parseCategory reads a category value. Empty is allowed only when required
// is false; values outside the catalog are rejected.
func parseCategory(raw string, required bool) (quiz.Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return "", errors.New("category is required")
		}
		return "", nil
	}
	category := quiz.ParseCategory(raw)
	if category == quiz.CategoryUnknown {
		return "", errors.New("unknown category " + strconv.Quote(raw))
	}
	return category, nil
}

func parseBoolParam(r *http.Request, key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	switch value {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return defaultValue
	}
}

func parseIntParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return parsed, nil
}

func parseLeaderboardLimit(r *http.Request, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get("limit"))
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	// <=0 means "entire leaderboard".
	return parsed, nil
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
