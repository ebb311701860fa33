package quiz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cyberguard/internal/logger"
)

type Service struct {
	questions    QuestionRepository
	progress     ProgressRepository
	certificates CertificateRepository
	badges       BadgeRepository
	explainer    Explainer
	documents    DocumentStore
	log          *logger.Logger

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand fixes the shuffle source, mainly for tests.
func WithRand(rng *rand.Rand) ServiceOption {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

func WithDocuments(documents DocumentStore) ServiceOption {
	return func(s *Service) {
		s.documents = documents
	}
}

func NewService(repos Repositories, explainer Explainer, log *logger.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	if explainer == nil {
		explainer = templateExplainer{}
	}
	s := &Service{
		questions:    repos.Questions,
		progress:     repos.Progress,
		certificates: repos.Certificates,
		badges:       repos.Badges,
		explainer:    explainer,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Categories() []CategoryInfo {
	return Categories()
}

// QuestionsByCategory returns the servable questions of one category. Records
// that fail validation are skipped; a failed read yields an empty list.
func (s *Service) QuestionsByCategory(ctx context.Context, category Category, shuffle bool) []Question {
	raw, err := s.questions.QuestionsByCategory(ctx, category)
	if err != nil {
		s.log.Warn("question read failed", "category", category, "error", err)
		return []Question{}
	}

	out := make([]Question, 0, len(raw))
	for _, question := range raw {
		if err := question.Validate(); err != nil {
			s.log.Warn("skipping unusable question", "question_id", question.QuestionID, "error", err)
			continue
		}
		question.Category = ParseCategory(string(question.Category))
		question.Difficulty = ParseDifficulty(string(question.Difficulty))
		if shuffle {
			question = s.shuffle(question)
		}
		out = append(out, question)
	}
	return out
}

func (s *Service) shuffle(question Question) Question {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return Shuffle(question, s.rng)
}

func (s *Service) Question(ctx context.Context, questionID string) (Question, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return Question{}, ErrQuestionNotFound
	}
	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		if !errors.Is(err, ErrQuestionNotFound) {
			s.log.Warn("question lookup failed", "question_id", questionID, "error", err)
		}
		return Question{}, ErrQuestionNotFound
	}
	if err := question.Validate(); err != nil {
		s.log.Warn("stored question is unusable", "question_id", questionID, "error", err)
		return Question{}, ErrQuestionNotFound
	}
	return question, nil
}

func (s *Service) CreateQuestion(ctx context.Context, question Question) (Question, error) {
	question = normalizeQuestion(question)
	if !question.Category.Valid() {
		return Question{}, fmt.Errorf("%w: unknown category %q", ErrInvalidQuestion, question.Category)
	}
	if err := question.Validate(); err != nil {
		return Question{}, err
	}
	question.QuestionID = uuid.NewString()
	question.CreatedAt = s.now()
	if err := s.questions.PutQuestion(ctx, question); err != nil {
		return Question{}, err
	}
	return question, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, question Question) (Question, error) {
	question = normalizeQuestion(question)
	if !question.Category.Valid() {
		return Question{}, fmt.Errorf("%w: unknown category %q", ErrInvalidQuestion, question.Category)
	}
	if err := question.Validate(); err != nil {
		return Question{}, err
	}
	existing, err := s.questions.GetQuestion(ctx, question.QuestionID)
	if err != nil {
		return Question{}, err
	}
	question.CreatedAt = existing.CreatedAt
	if err := s.questions.PutQuestion(ctx, question); err != nil {
		return Question{}, err
	}
	return question, nil
}

// ImportQuestion upserts a question under its own id, assigning one when it
// is empty. The bool reports whether the question was new.
func (s *Service) ImportQuestion(ctx context.Context, question Question) (Question, bool, error) {
	question = normalizeQuestion(question)
	if !question.Category.Valid() {
		return Question{}, false, fmt.Errorf("%w: unknown category %q", ErrInvalidQuestion, question.Category)
	}
	if err := question.Validate(); err != nil {
		return Question{}, false, err
	}
	if question.QuestionID == "" {
		question.QuestionID = uuid.NewString()
	}

	created := true
	question.CreatedAt = s.now()
	if existing, err := s.questions.GetQuestion(ctx, question.QuestionID); err == nil {
		created = false
		question.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, ErrQuestionNotFound) {
		return Question{}, false, err
	}
	if err := s.questions.PutQuestion(ctx, question); err != nil {
		return Question{}, false, err
	}
	return question, created, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, questionID string) error {
	deleted, err := s.questions.DeleteQuestion(ctx, strings.TrimSpace(questionID))
	if err != nil {
		return err
	}
	if !deleted {
		return ErrQuestionNotFound
	}
	return nil
}

// DeleteCategory removes every question of a category and reports how many
// were deleted.
func (s *Service) DeleteCategory(ctx context.Context, category Category) (int, error) {
	questions, err := s.questions.QuestionsByCategory(ctx, category)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, question := range questions {
		ok, err := s.questions.DeleteQuestion(ctx, question.QuestionID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

func (s *Service) QuestionStats(ctx context.Context) QuestionStats {
	questions, err := s.questions.AllQuestions(ctx)
	if err != nil {
		s.log.Warn("question read failed", "error", err)
		questions = nil
	}
	return BuildQuestionStats(questions)
}

type AnswerSubmission struct {
	QuestionID string `json:"question_id"`
	// Options is the option list in the order it was shown. Empty means the
	// stored order.
	Options          []string `json:"options"`
	SelectedIndex    int      `json:"selected_index"`
	TimeSpentSeconds int      `json:"time_spent"`
}

type AnswerOutcome struct {
	QuestionID    string      `json:"question_id"`
	Correct       bool        `json:"correct"`
	SelectedIndex int         `json:"selected_index"`
	CorrectIndex  int         `json:"correct_index"`
	CorrectText   string      `json:"correct_text"`
	Points        int         `json:"points"`
	Feedback      Explanation `json:"feedback"`
	NewBadges     []BadgeID   `json:"new_badges"`
	Event         AnswerEvent `json:"event"`
}

// SubmitAnswer grades one answer against the options as the user saw them,
// records it, and returns feedback plus any badges it unlocked.
func (s *Service) SubmitAnswer(ctx context.Context, userID string, submission AnswerSubmission) (AnswerOutcome, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return AnswerOutcome{}, err
	}

	question, err := s.Question(ctx, submission.QuestionID)
	if err != nil {
		return AnswerOutcome{}, err
	}

	presented := submission.Options
	if len(presented) == 0 {
		presented = question.Options
	}
	if !sameOptions(presented, question.Options) {
		return AnswerOutcome{}, fmt.Errorf("%w: options do not match question %s", ErrInvalidSubmission, question.QuestionID)
	}
	if submission.SelectedIndex < 0 || submission.SelectedIndex >= len(presented) {
		return AnswerOutcome{}, fmt.Errorf("%w: selected index %d out of range", ErrInvalidSubmission, submission.SelectedIndex)
	}

	correctText := question.CorrectText()
	correctIndex := indexOf(presented, correctText)
	chosenText := presented[submission.SelectedIndex]
	correct := chosenText == correctText

	timeSpent := submission.TimeSpentSeconds
	if timeSpent < 0 {
		timeSpent = 0
	}
	category := ParseCategory(string(question.Category))

	event, err := s.progress.AppendAnswerEvent(ctx, AnswerEvent{
		UserID:           userID,
		QuestionID:       question.QuestionID,
		Correct:          correct,
		Category:         category,
		TimeSpentSeconds: timeSpent,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return AnswerOutcome{}, err
	}
	s.log.Event("answer_submitted", userID,
		"question_id", question.QuestionID,
		"category", category,
		"correct", correct,
	)

	input := ExplainInput{
		Question:    question.Prompt,
		ChosenText:  chosenText,
		CorrectText: correctText,
		Correct:     correct,
		Category:    category,
		Explanation: question.Explanation,
	}
	if !correct {
		input.WhyWrong = question.WhyWrong[indexOf(question.Options, chosenText)]
	}
	feedback := s.explainer.Explain(ctx, input)
	if feedback.Fallback() {
		s.log.Event("feedback_fallback", userID, "question_id", question.QuestionID)
	}

	points := 0
	if correct {
		points = ParseDifficulty(string(question.Difficulty)).Points()
	}

	return AnswerOutcome{
		QuestionID:    question.QuestionID,
		Correct:       correct,
		SelectedIndex: submission.SelectedIndex,
		CorrectIndex:  correctIndex,
		CorrectText:   correctText,
		Points:        points,
		Feedback:      feedback,
		NewBadges:     s.autoUnlock(ctx, userID),
		Event:         event,
	}, nil
}

// autoUnlock stores every rule-based badge the user now qualifies for. Failures
// are logged; the answer itself is already recorded.
func (s *Service) autoUnlock(ctx context.Context, userID string) []BadgeID {
	stats := Aggregate(s.userEvents(ctx, userID))
	candidates := EvaluateBadges(UnlockedSet(s.unlockedBadges(ctx, userID)), stats)

	unlocked := make([]BadgeID, 0, len(candidates))
	for _, badgeID := range candidates {
		created, err := s.badges.PutUnlockedBadge(ctx, UnlockedBadge{
			UserID:     userID,
			BadgeID:    badgeID,
			UnlockedAt: s.now(),
		})
		if err != nil {
			s.log.Warn("badge unlock failed", "user_id", userID, "badge_id", badgeID, "error", err)
			continue
		}
		if created {
			s.log.Event("badge_unlocked", userID, "badge_id", badgeID, "auto", true)
			unlocked = append(unlocked, badgeID)
		}
	}
	return unlocked
}

func (s *Service) Stats(ctx context.Context, userID string) UserStats {
	return Aggregate(s.userEvents(ctx, userID))
}

func (s *Service) RecentActivity(ctx context.Context, userID string, days int) []AnswerEvent {
	if days <= 0 {
		days = 7
	}
	since := s.now().AddDate(0, 0, -days)
	return RecentActivity(s.userEvents(ctx, userID), since)
}

func (s *Service) ResetProgress(ctx context.Context, userID string) (int, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return 0, err
	}
	deleted, err := s.progress.DeleteAnswerEventsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Event("progress_reset", userID, "deleted", deleted)
	return deleted, nil
}

// Eligibility checks certificate thresholds against one category, or against
// the whole history when category is empty.
func (s *Service) Eligibility(ctx context.Context, userID string, category Category) Eligibility {
	stats := s.Stats(ctx, userID)
	if category == "" {
		return CheckEligibility(stats.Accuracy, stats.TotalAnswers)
	}
	bucket := stats.Category(category)
	return CheckEligibility(bucket.Accuracy, bucket.Total)
}

func (s *Service) IssueCertificate(ctx context.Context, userID, userName string, category Category) (CertificateResult, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return CertificateResult{}, err
	}
	if !category.Valid() {
		return CertificateResult{}, fmt.Errorf("%w: unknown category %q", ErrInvalidSubmission, category)
	}

	eligibility := s.Eligibility(ctx, userID, category)
	if !eligibility.Eligible {
		return CertificateResult{Eligibility: eligibility}, nil
	}

	userName = strings.TrimSpace(userName)
	if userName == "" {
		userName = userID
	}
	certificate := NewCertificate(userID, userName, category, eligibility.Accuracy, eligibility.TotalQuestions, s.now())

	if s.documents != nil {
		certificate.DocumentKey = certificateDocumentKey(certificate.CertificateID)
	}

	// The record goes first so an id collision never overwrites an existing document.
	if err := s.certificates.PutCertificate(ctx, certificate); err != nil {
		return CertificateResult{}, err
	}
	if s.documents != nil {
		if _, err := s.documents.Put(certificate.DocumentKey, bytes.NewReader(RenderCertificate(certificate))); err != nil {
			return CertificateResult{}, fmt.Errorf("store certificate document: %w", err)
		}
	}
	s.log.Event("certificate_issued", userID,
		"certificate_id", certificate.CertificateID,
		"category", category,
		"accuracy", certificate.Accuracy.StringFixed(2),
	)

	return CertificateResult{
		Issued:      true,
		Certificate: &certificate,
		Eligibility: eligibility,
	}, nil
}

func certificateDocumentKey(certificateID string) string {
	return "certificates/" + certificateID + ".txt"
}

// CertificateDocument opens the rendered document of a certificate owned by userID.
// Certificates of other users look the same as missing ones.
func (s *Service) CertificateDocument(ctx context.Context, userID, certificateID string) (io.ReadCloser, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	certificate, err := s.VerifyCertificate(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if certificate.UserID != userID {
		return nil, ErrCertificateNotFound
	}
	if s.documents == nil || certificate.DocumentKey == "" {
		return nil, ErrDocumentNotFound
	}
	rc, err := s.documents.Get(certificate.DocumentKey)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("open certificate document: %w", err)
	}
	return rc, nil
}

func (s *Service) Certificates(ctx context.Context, userID string) []Certificate {
	certificates, err := s.certificates.CertificatesByUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		s.log.Warn("certificate read failed", "user_id", userID, "error", err)
		return []Certificate{}
	}
	return certificates
}

func (s *Service) VerifyCertificate(ctx context.Context, certificateID string) (Certificate, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return Certificate{}, ErrCertificateNotFound
	}
	certificate, err := s.certificates.GetCertificate(ctx, certificateID)
	if err != nil {
		if !errors.Is(err, ErrCertificateNotFound) {
			s.log.Warn("certificate lookup failed", "certificate_id", certificateID, "error", err)
		}
		return Certificate{}, ErrCertificateNotFound
	}
	return certificate, nil
}

type BadgeStatus struct {
	Unlocked []UnlockedBadge `json:"unlocked"`
	Eligible []BadgeID       `json:"eligible"`
	Catalog  []Badge         `json:"catalog"`
}

func (s *Service) Badges(ctx context.Context, userID string) BadgeStatus {
	unlocked := s.unlockedBadges(ctx, userID)
	stats := s.Stats(ctx, userID)
	return BadgeStatus{
		Unlocked: unlocked,
		Eligible: EvaluateBadges(UnlockedSet(unlocked), stats),
		Catalog:  BadgeCatalog(),
	}
}

// UnlockBadge records a badge for the user. Unlocking twice is a no-op; the
// returned bool reports whether a new unlock was written.
func (s *Service) UnlockBadge(ctx context.Context, userID string, badgeID BadgeID) (bool, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return false, err
	}
	if _, ok := LookupBadge(badgeID); !ok {
		return false, ErrUnknownBadge
	}
	created, err := s.badges.PutUnlockedBadge(ctx, UnlockedBadge{
		UserID:     userID,
		BadgeID:    badgeID,
		UnlockedAt: s.now(),
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Event("badge_unlocked", userID, "badge_id", badgeID, "auto", false)
	}
	return created, nil
}

// ClaimBadge unlocks a badge on the user's own request, which is only allowed
// once its rule holds.
func (s *Service) ClaimBadge(ctx context.Context, userID string, badgeID BadgeID) (bool, error) {
	badge, ok := LookupBadge(badgeID)
	if !ok {
		return false, ErrUnknownBadge
	}
	if badge.Manual || badge.rule == nil || !badge.rule(s.Stats(ctx, userID)) {
		return false, ErrBadgeNotEligible
	}
	return s.UnlockBadge(ctx, userID, badgeID)
}

func (s *Service) Leaderboard(ctx context.Context, category Category, limit int) []LeaderboardEntry {
	events, err := s.progress.AllAnswerEvents(ctx)
	if err != nil {
		s.log.Warn("answer event read failed", "error", err)
		events = nil
	}
	return BuildLeaderboard(events, category, limit)
}

func (s *Service) SummaryReport(ctx context.Context, userID string) SummaryReport {
	return BuildSummaryReport(strings.TrimSpace(userID), s.userEvents(ctx, userID), s.now())
}

func (s *Service) InstructorReport(ctx context.Context, category Category) InstructorReport {
	events, err := s.progress.AllAnswerEvents(ctx)
	if err != nil {
		s.log.Warn("answer event read failed", "error", err)
		events = nil
	}
	return BuildInstructorReport(events, category, s.now())
}

func (s *Service) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	return WriteEventsCSV(w, s.userEvents(ctx, userID))
}

func (s *Service) ExportJSON(ctx context.Context, userID string, w io.Writer) error {
	return WriteEventsJSON(w, s.userEvents(ctx, userID))
}

// ReportComment comments on the user's accuracy in one category, or overall
// when category is empty.
func (s *Service) ReportComment(ctx context.Context, userID string, category Category) Explanation {
	stats := s.Stats(ctx, userID)
	accuracy := stats.Accuracy
	if category != "" {
		accuracy = stats.Category(category).Accuracy
	}
	comment := s.explainer.ReportComment(ctx, category, accuracy)
	if comment.Fallback() {
		s.log.Event("feedback_fallback", strings.TrimSpace(userID), "kind", "report_comment")
	}
	return comment
}

func (s *Service) userEvents(ctx context.Context, userID string) []AnswerEvent {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []AnswerEvent{}
	}
	events, err := s.progress.AnswerEventsByUser(ctx, userID)
	if err != nil {
		s.log.Warn("answer event read failed", "user_id", userID, "error", err)
		return []AnswerEvent{}
	}
	return events
}

func (s *Service) unlockedBadges(ctx context.Context, userID string) []UnlockedBadge {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []UnlockedBadge{}
	}
	badges, err := s.badges.UnlockedBadgesByUser(ctx, userID)
	if err != nil {
		s.log.Warn("badge read failed", "user_id", userID, "error", err)
		return []UnlockedBadge{}
	}
	return badges
}

func normalizeUserID(userID string) (string, error) {
	normalized := strings.TrimSpace(userID)
	if normalized == "" {
		return "", ErrInvalidUser
	}
	return normalized, nil
}

func normalizeQuestion(question Question) Question {
	question.QuestionID = strings.TrimSpace(question.QuestionID)
	question.Prompt = strings.TrimSpace(question.Prompt)
	question.Category = Category(strings.ToLower(strings.TrimSpace(string(question.Category))))
	question.Difficulty = ParseDifficulty(string(question.Difficulty))
	return question
}

// sameOptions reports whether a and b hold the same option texts with the
// same multiplicities.
func sameOptions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, text := range a {
		counts[text]++
	}
	for _, text := range b {
		counts[text]--
		if counts[text] < 0 {
			return false
		}
	}
	return true
}

func indexOf(options []string, text string) int {
	for idx, option := range options {
		if option == text {
			return idx
		}
	}
	return -1
}

// templateExplainer is used when no generator is wired.
type templateExplainer struct{}

func (templateExplainer) Explain(_ context.Context, input ExplainInput) Explanation {
	text := "Correct! Well done."
	if !input.Correct {
		text = fmt.Sprintf("Not quite. The correct answer is: %s.", input.CorrectText)
	}
	if input.Explanation != "" {
		text += " " + input.Explanation
	}
	return Explanation{Text: text, Source: SourceFallback}
}

func (templateExplainer) ReportComment(_ context.Context, _ Category, accuracy float64) Explanation {
	return Explanation{
		Text:   fmt.Sprintf("Your accuracy was %.1f%%. Keep practicing!", accuracy),
		Source: SourceFallback,
	}
}
