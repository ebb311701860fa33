package sqlite

import (
	"context"
	"errors"
	"time"

	"cyberguard/internal/quiz"
)

// AppendAnswerEvent inserts one immutable event. The autoincrement seq orders
// events that share a timestamp.
func (s *SQLiteStore) AppendAnswerEvent(ctx context.Context, event quiz.AnswerEvent) (quiz.AnswerEvent, error) {
	if event.UserID == "" {
		return quiz.AnswerEvent{}, errors.New("user id is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	correct := 0
	if event.Correct {
		correct = 1
	}
	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO answer_events (user_id, question_id, correct, category, time_spent, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.UserID,
		event.QuestionID,
		correct,
		string(event.Category),
		event.TimeSpentSeconds,
		event.CreatedAt.UnixNano(),
	)
	if err != nil {
		return quiz.AnswerEvent{}, err
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return quiz.AnswerEvent{}, err
	}
	event.Seq = seq
	return event, nil
}

func (s *SQLiteStore) AnswerEventsByUser(ctx context.Context, userID string) ([]quiz.AnswerEvent, error) {
	return s.queryAnswerEvents(
		ctx,
		`SELECT seq, user_id, question_id, correct, category, time_spent, created_at_unix
		 FROM answer_events
		 WHERE user_id = ?
		 ORDER BY seq ASC`,
		userID,
	)
}

func (s *SQLiteStore) AllAnswerEvents(ctx context.Context) ([]quiz.AnswerEvent, error) {
	return s.queryAnswerEvents(
		ctx,
		`SELECT seq, user_id, question_id, correct, category, time_spent, created_at_unix
		 FROM answer_events
		 ORDER BY seq ASC`,
	)
}

func (s *SQLiteStore) DeleteAnswerEventsByUser(ctx context.Context, userID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM answer_events WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) queryAnswerEvents(ctx context.Context, query string, args ...any) ([]quiz.AnswerEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]quiz.AnswerEvent, 0)
	for rows.Next() {
		var (
			event         quiz.AnswerEvent
			correct       int
			category      string
			createdAtUnix int64
		)
		if err := rows.Scan(
			&event.Seq,
			&event.UserID,
			&event.QuestionID,
			&correct,
			&category,
			&event.TimeSpentSeconds,
			&createdAtUnix,
		); err != nil {
			return nil, err
		}
		event.Correct = correct == 1
		event.Category = quiz.Category(category)
		event.CreatedAt = time.Unix(0, createdAtUnix).UTC()
		events = append(events, event)
	}
	return events, rows.Err()
}
