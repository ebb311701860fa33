package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"cyberguard/internal/quiz"
)

const questionColumns = `question_id, prompt, options_json, correct_index, category, difficulty, explanation, why_wrong_json, created_at_unix`

// PutQuestion inserts or fully replaces a question.
func (s *SQLiteStore) PutQuestion(ctx context.Context, question quiz.Question) error {
	if question.QuestionID == "" {
		return errors.New("question id is required")
	}
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now().UTC()
	}

	optionsJSON, err := json.Marshal(question.Options)
	if err != nil {
		return err
	}
	whyWrong := question.WhyWrong
	if whyWrong == nil {
		whyWrong = map[int]string{}
	}
	whyWrongJSON, err := json.Marshal(whyWrong)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO questions (`+questionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(question_id) DO UPDATE SET
			prompt = excluded.prompt,
			options_json = excluded.options_json,
			correct_index = excluded.correct_index,
			category = excluded.category,
			difficulty = excluded.difficulty,
			explanation = excluded.explanation,
			why_wrong_json = excluded.why_wrong_json`,
		question.QuestionID,
		question.Prompt,
		string(optionsJSON),
		question.CorrectIndex,
		string(question.Category),
		string(question.Difficulty),
		question.Explanation,
		string(whyWrongJSON),
		question.CreatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, questionID string) (quiz.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE question_id = ?`, questionID)
	question, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Question{}, quiz.ErrQuestionNotFound
		}
		return quiz.Question{}, err
	}
	return question, nil
}

// QuestionsByCategory uses the category index and returns questions oldest
// first.
func (s *SQLiteStore) QuestionsByCategory(ctx context.Context, category quiz.Category) ([]quiz.Question, error) {
	return s.queryQuestions(
		ctx,
		`SELECT `+questionColumns+` FROM questions WHERE category = ? ORDER BY created_at_unix ASC, question_id ASC`,
		string(category),
	)
}

func (s *SQLiteStore) AllQuestions(ctx context.Context) ([]quiz.Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY created_at_unix ASC, question_id ASC`)
}

func (s *SQLiteStore) DeleteQuestion(ctx context.Context, questionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE question_id = ?`, questionID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLiteStore) queryQuestions(ctx context.Context, query string, args ...any) ([]quiz.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]quiz.Question, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (quiz.Question, error) {
	var (
		question      quiz.Question
		optionsJSON   string
		whyWrongJSON  string
		category      string
		difficulty    string
		createdAtUnix int64
	)
	if err := row.Scan(
		&question.QuestionID,
		&question.Prompt,
		&optionsJSON,
		&question.CorrectIndex,
		&category,
		&difficulty,
		&question.Explanation,
		&whyWrongJSON,
		&createdAtUnix,
	); err != nil {
		return quiz.Question{}, err
	}

	if err := json.Unmarshal([]byte(optionsJSON), &question.Options); err != nil {
		return quiz.Question{}, err
	}
	if whyWrongJSON != "" && whyWrongJSON != "{}" {
		if err := json.Unmarshal([]byte(whyWrongJSON), &question.WhyWrong); err != nil {
			return quiz.Question{}, err
		}
	}
	question.Category = quiz.Category(category)
	question.Difficulty = quiz.Difficulty(difficulty)
	question.CreatedAt = time.Unix(0, createdAtUnix).UTC()
	return question, nil
}
