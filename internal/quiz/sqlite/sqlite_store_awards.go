package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"cyberguard/internal/quiz"
)

const certificateColumns = `certificate_id, user_id, user_name, category, accuracy, total_questions, issued_at_unix, valid_until_unix, document_key`

func (s *SQLiteStore) PutCertificate(ctx context.Context, certificate quiz.Certificate) error {
	if certificate.CertificateID == "" {
		return errors.New("certificate id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO certificates (`+certificateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		certificate.CertificateID,
		certificate.UserID,
		certificate.UserName,
		string(certificate.Category),
		certificate.Accuracy.StringFixed(2),
		certificate.TotalQuestions,
		certificate.IssuedAt.Unix(),
		certificate.ValidUntil.Unix(),
		certificate.DocumentKey,
	)
	if isPrimaryKeyConflict(err) {
		return fmt.Errorf("%w: %s", quiz.ErrCertificateExists, certificate.CertificateID)
	}
	return err
}

func isPrimaryKeyConflict(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLiteStore) CertificatesByUser(ctx context.Context, userID string) ([]quiz.Certificate, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id = ? ORDER BY issued_at_unix DESC, certificate_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	certificates := make([]quiz.Certificate, 0)
	for rows.Next() {
		certificate, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certificates = append(certificates, certificate)
	}
	return certificates, rows.Err()
}

func (s *SQLiteStore) GetCertificate(ctx context.Context, certificateID string) (quiz.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE certificate_id = ?`, certificateID)
	certificate, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Certificate{}, quiz.ErrCertificateNotFound
		}
		return quiz.Certificate{}, err
	}
	return certificate, nil
}

func scanCertificate(row rowScanner) (quiz.Certificate, error) {
	var (
		certificate    quiz.Certificate
		category       string
		accuracy       string
		issuedAtUnix   int64
		validUntilUnix int64
	)
	if err := row.Scan(
		&certificate.CertificateID,
		&certificate.UserID,
		&certificate.UserName,
		&category,
		&accuracy,
		&certificate.TotalQuestions,
		&issuedAtUnix,
		&validUntilUnix,
		&certificate.DocumentKey,
	); err != nil {
		return quiz.Certificate{}, err
	}

	parsed, err := decimal.NewFromString(accuracy)
	if err != nil {
		return quiz.Certificate{}, err
	}
	certificate.Accuracy = parsed
	certificate.Category = quiz.Category(category)
	certificate.IssuedAt = time.Unix(issuedAtUnix, 0).UTC()
	certificate.ValidUntil = time.Unix(validUntilUnix, 0).UTC()
	return certificate, nil
}

// PutUnlockedBadge relies on the (user_id, badge_id) primary key with
// INSERT OR IGNORE, so a repeated unlock keeps the original timestamp.
func (s *SQLiteStore) PutUnlockedBadge(ctx context.Context, badge quiz.UnlockedBadge) (bool, error) {
	if badge.UnlockedAt.IsZero() {
		badge.UnlockedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO unlocked_badges (user_id, badge_id, unlocked_at_unix) VALUES (?, ?, ?)`,
		badge.UserID,
		string(badge.BadgeID),
		badge.UnlockedAt.UnixNano(),
	)
	if err != nil {
		return false, err
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

func (s *SQLiteStore) UnlockedBadgesByUser(ctx context.Context, userID string) ([]quiz.UnlockedBadge, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT user_id, badge_id, unlocked_at_unix FROM unlocked_badges WHERE user_id = ? ORDER BY unlocked_at_unix ASC, badge_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := make([]quiz.UnlockedBadge, 0)
	for rows.Next() {
		var (
			badge        quiz.UnlockedBadge
			badgeID      string
			unlockedUnix int64
		)
		if err := rows.Scan(&badge.UserID, &badgeID, &unlockedUnix); err != nil {
			return nil, err
		}
		badge.BadgeID = quiz.BadgeID(badgeID)
		badge.UnlockedAt = time.Unix(0, unlockedUnix).UTC()
		badges = append(badges, badge)
	}
	return badges, rows.Err()
}

// Repositories exposes the store through the service's repository set.
func (s *SQLiteStore) Repositories() quiz.Repositories {
	return quiz.Repositories{
		Questions:    s,
		Progress:     s,
		Certificates: s,
		Badges:       s,
	}
}
