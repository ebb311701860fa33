package sqlite

import (
	"context"
)

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	// Categories are stored as raw text; readers map unknown values.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			question_id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			options_json TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			category TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			why_wrong_json TEXT NOT NULL DEFAULT '{}',
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS answer_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			correct INTEGER NOT NULL,
			category TEXT NOT NULL,
			time_spent INTEGER NOT NULL DEFAULT 0,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS certificates (
			certificate_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			category TEXT NOT NULL,
			-- exact decimal text, never a float
			accuracy TEXT NOT NULL,
			total_questions INTEGER NOT NULL,
			issued_at_unix INTEGER NOT NULL,
			valid_until_unix INTEGER NOT NULL,
			document_key TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS unlocked_badges (
			user_id TEXT NOT NULL,
			badge_id TEXT NOT NULL,
			unlocked_at_unix INTEGER NOT NULL,
			PRIMARY KEY (user_id, badge_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category);`,
		`CREATE INDEX IF NOT EXISTS idx_answer_events_user ON answer_events(user_id, created_at_unix DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_certificates_user ON certificates(user_id, issued_at_unix DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
