package quiz

import (
	"context"
	"errors"
	"io"
)

var (
	ErrQuestionNotFound    = errors.New("question not found")
	ErrInvalidQuestion     = errors.New("invalid question")
	ErrInvalidSubmission   = errors.New("invalid answer submission")
	ErrInvalidUser         = errors.New("invalid user id")
	ErrUnknownBadge        = errors.New("unknown badge")
	ErrBadgeNotEligible    = errors.New("badge not eligible")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrCertificateExists   = errors.New("certificate already exists")
	ErrDocumentNotFound    = errors.New("certificate document not found")
)

type QuestionRepository interface {
	PutQuestion(ctx context.Context, question Question) error
	GetQuestion(ctx context.Context, questionID string) (Question, error)
	QuestionsByCategory(ctx context.Context, category Category) ([]Question, error)
	AllQuestions(ctx context.Context) ([]Question, error)
	DeleteQuestion(ctx context.Context, questionID string) (bool, error)
}

type ProgressRepository interface {
	// AppendAnswerEvent persists the event and returns it with its insertion
	// sequence filled in.
	AppendAnswerEvent(ctx context.Context, event AnswerEvent) (AnswerEvent, error)
	AnswerEventsByUser(ctx context.Context, userID string) ([]AnswerEvent, error)
	AllAnswerEvents(ctx context.Context) ([]AnswerEvent, error)
	DeleteAnswerEventsByUser(ctx context.Context, userID string) (int, error)
}

type CertificateRepository interface {
	PutCertificate(ctx context.Context, certificate Certificate) error
	CertificatesByUser(ctx context.Context, userID string) ([]Certificate, error)
	GetCertificate(ctx context.Context, certificateID string) (Certificate, error)
}

type BadgeRepository interface {
	// PutUnlockedBadge is an upsert keyed by (user, badge). It reports whether a
	// new row was written.
	PutUnlockedBadge(ctx context.Context, badge UnlockedBadge) (bool, error)
	UnlockedBadgesByUser(ctx context.Context, userID string) ([]UnlockedBadge, error)
}

// Repositories groups the record store adapters the service depends on. A
// single SQLite store satisfies all of them.
type Repositories struct {
	Questions    QuestionRepository
	Progress     ProgressRepository
	Certificates CertificateRepository
	Badges       BadgeRepository
}

// DocumentStore keeps rendered certificate documents.
type DocumentStore interface {
	Put(key string, r io.Reader) (string, error)
	Get(key string) (io.ReadCloser, error)
}
