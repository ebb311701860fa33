package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cyberguard/internal/auth"
	"cyberguard/internal/quiz"
)

const (
	defaultActivityDays     = 7
	defaultLeaderboardLimit = 10
)

func (a *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			a.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) HandleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: a.service.Categories()})
}

func (a *API) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	category, err := parseCategory(r.URL.Query().Get("category"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	questions := a.service.QuestionsByCategory(r.Context(), category, parseBoolParam(r, "shuffle", true))
	if limit > 0 && limit < len(questions) {
		questions = questions[:limit]
	}

	writeJSON(w, http.StatusOK, questionsResponse{
		Category:      category,
		QuestionCount: len(questions),
		Questions:     toQuestionResponses(questions, isStaff(principal)),
	})
}

func (a *API) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	var request answerRequest
	if err := decodeJSON(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(request.QuestionID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question_id is required"})
		return
	}

	selected := -1
	switch {
	case request.SelectedIndex != nil:
		selected = *request.SelectedIndex
	case request.Answer != "":
		optionCount := len(request.Options)
		if optionCount == 0 {
			optionCount = 26
		}
		selected = quiz.LetterIndex(request.Answer, optionCount)
	}
	if selected < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "selected_index or a valid answer letter is required"})
		return
	}

	outcome, err := a.service.SubmitAnswer(r.Context(), principal.UserID, quiz.AnswerSubmission{
		QuestionID:       request.QuestionID,
		Options:          request.Options,
		SelectedIndex:    selected,
		TimeSpentSeconds: request.TimeSpent,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.service.Stats(r.Context(), principal.UserID))
}

func (a *API) HandleActivity(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	days, err := parseIntParam(r, "days", defaultActivityDays)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, activityResponse{
		Days:   days,
		Events: a.service.RecentActivity(r.Context(), principal.UserID, days),
	})
}

func (a *API) HandleResetProgress(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	deleted, err := a.service.ResetProgress(r.Context(), principal.UserID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: deleted})
}

func (a *API) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	category, err := parseCategory(r.URL.Query().Get("category"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, a.service.Eligibility(r.Context(), principal.UserID, category))
}

func (a *API) HandleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	var request issueCertificateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	category, err := parseCategory(request.Category, true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	name := strings.TrimSpace(request.Name)
	if name == "" {
		name = principal.DisplayName()
	}

	result, err := a.service.IssueCertificate(r.Context(), principal.UserID, name, category)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if result.Issued {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (a *API) HandleListCertificates(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, certificatesResponse{Certificates: a.service.Certificates(r.Context(), principal.UserID)})
}

func (a *API) HandleCertificateDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	certificateID := chi.URLParam(r, "certificate_id")
	rc, err := a.service.CertificateDocument(r.Context(), principal.UserID, certificateID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="certificate.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		a.log.Warn("certificate document write failed", "certificate_id", certificateID, "error", err)
	}
}

func (a *API) HandleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	certificate, err := a.service.VerifyCertificate(r.Context(), chi.URLParam(r, "certificate_id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyCertificateResponse{
		Certificate: certificate,
		Valid:       certificate.Valid(a.now()),
	})
}

func (a *API) HandleBadges(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.service.Badges(r.Context(), principal.UserID))
}

func (a *API) HandleClaimBadge(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	badgeID := quiz.BadgeID(chi.URLParam(r, "badge_id"))
	created, err := a.service.ClaimBadge(r.Context(), principal.UserID, badgeID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeUnlockResponse{UserID: principal.UserID, BadgeID: badgeID, Unlocked: created})
}

func (a *API) HandleSummaryReport(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.service.SummaryReport(r.Context(), principal.UserID))
}

func (a *API) HandleExport(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
		extension   string
		err         error
	)
	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "csv":
		contentType, extension = "text/csv", "csv"
		err = a.service.ExportCSV(r.Context(), principal.UserID, &buf)
	case "json":
		contentType, extension = "application/json", "json"
		err = a.service.ExportJSON(r.Context(), principal.UserID, &buf)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "format must be csv or json"})
		return
	}
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="progress.`+extension+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *API) HandleReportComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard(w, r, auth.RoleStudent)
	if !ok {
		return
	}
	category, err := parseCategory(r.URL.Query().Get("category"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, a.service.ReportComment(r.Context(), principal.UserID, category))
}

func (a *API) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleStudent); !ok {
		return
	}
	category, err := parseCategory(r.URL.Query().Get("category"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := parseLeaderboardLimit(r, defaultLeaderboardLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Category:    category,
		Leaderboard: a.service.Leaderboard(r.Context(), category, limit),
	})
}

func (a *API) HandleInstructorReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleInstructor); !ok {
		return
	}
	category, err := parseCategory(r.URL.Query().Get("category"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, a.service.InstructorReport(r.Context(), category))
}

func (a *API) HandleQuestionStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleInstructor); !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.service.QuestionStats(r.Context()))
}

func (a *API) HandleAwardBadge(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleInstructor); !ok {
		return
	}
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	badgeID := quiz.BadgeID(chi.URLParam(r, "badge_id"))
	created, err := a.service.UnlockBadge(r.Context(), userID, badgeID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeUnlockResponse{UserID: userID, BadgeID: badgeID, Unlocked: created})
}

func (a *API) HandleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleAdmin); !ok {
		return
	}
	var question quiz.Question
	if err := decodeJSON(r, &question); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	created, err := a.service.CreateQuestion(r.Context(), question)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) HandleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleAdmin); !ok {
		return
	}
	var question quiz.Question
	if err := decodeJSON(r, &question); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	question.QuestionID = chi.URLParam(r, "question_id")
	updated, err := a.service.UpdateQuestion(r.Context(), question)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) HandleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleAdmin); !ok {
		return
	}
	if err := a.service.DeleteQuestion(r.Context(), chi.URLParam(r, "question_id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := guard(w, r, auth.RoleAdmin); !ok {
		return
	}
	category, err := parseCategory(chi.URLParam(r, "category"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	deleted, err := a.service.DeleteCategory(r.Context(), category)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: deleted})
}
