package practice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"examprep/internal/content"
)

var (
	ErrSetNotFound        = errors.New("question set not found")
	ErrSetEmpty           = errors.New("question set has no questions")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptNotEditable = errors.New("attempt is not editable")
	ErrAttemptNotFinal    = errors.New("attempt is not submitted")
	ErrQuestionNotInSet   = errors.New("question not in attempt's set")
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type Attempt struct {
	PublicID  string    `json:"id"`
	SetID     int64     `json:"set_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type AttemptSummary struct {
	PublicID        string     `json:"id"`
	SetID           int64      `json:"set_id"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	Score           float64    `json:"score"`
	TotalQuestions  int        `json:"total_questions"`
	TotalCorrect    int        `json:"total_correct"`
	TotalWrong      int        `json:"total_wrong"`
	TotalUnanswered int        `json:"total_unanswered"`
}

type SaveAnswerInput struct {
	AttemptPublicID string
	QuestionID      int64
	Answer          json.RawMessage
}

type AttemptResult struct {
	Summary AttemptSummary      `json:"summary"`
	Items   []AttemptResultItem `json:"items"`
}

type AttemptResultItem struct {
	QuestionID      int64           `json:"question_id"`
	VersionNo       int             `json:"version_no"`
	QuestionHTML    string          `json:"question_html"`
	Answer          json.RawMessage `json:"answer,omitempty"`
	Answered        bool            `json:"answered"`
	IsCorrect       *bool           `json:"is_correct,omitempty"`
	ExplanationHTML string          `json:"explanation_html,omitempty"`
}

type attemptRow struct {
	ID          int64
	PublicID    string
	SetID       int64
	Status      string
	StartedAt   time.Time
	SubmittedAt sql.NullTime
	Score       sql.NullFloat64
}

// StartAttempt opens a practice attempt against a set. Attempts are
// anonymous and identified by an opaque public id.
func (s *Service) StartAttempt(ctx context.Context, setID int64) (*Attempt, error) {
	var questionCount int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM questions
		WHERE set_id = $1 AND archived = FALSE
	`, setID).Scan(&questionCount)
	if err != nil {
		return nil, fmt.Errorf("count set questions: %w", err)
	}
	if questionCount == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM quiz_sets WHERE id = $1 AND archived = FALSE)
		`, setID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check quiz set: %w", err)
		}
		if !exists {
			return nil, ErrSetNotFound
		}
		return nil, ErrSetEmpty
	}

	var out Attempt
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO attempts (public_id, set_id, status, started_at)
		VALUES ($1, $2, 'in_progress', now())
		RETURNING public_id, set_id, status, started_at
	`, uuid.NewString(), setID).Scan(&out.PublicID, &out.SetID, &out.Status, &out.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}
	return &out, nil
}

// SaveAnswer upserts one answer. The answer row pins the question version
// that was active at save time, so a later content refresh cannot change
// what this attempt is graded against.
func (s *Service) SaveAnswer(ctx context.Context, input SaveAnswerInput) error {
	row, err := s.loadAttemptRow(ctx, input.AttemptPublicID)
	if err != nil {
		return err
	}
	if row.Status != "in_progress" {
		return ErrAttemptNotEditable
	}

	// Archived questions are invisible to learners: Submit counts its total
	// from non-archived rows, so accepting an answer here would grade it
	// against a total that excludes it.
	var versionID int64
	err = s.db.QueryRowContext(ctx, `
		SELECT qv.id
		FROM questions q
		JOIN question_versions qv ON qv.question_id = q.id AND qv.is_active
		WHERE q.id = $1 AND q.set_id = $2 AND q.archived = FALSE
	`, input.QuestionID, row.SetID).Scan(&versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotInSet
		}
		return fmt.Errorf("resolve active version: %w", err)
	}

	answer := input.Answer
	if len(answer) == 0 {
		answer = json.RawMessage(`{}`)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempt_answers (attempt_id, question_id, version_id, answer, answered_at)
		VALUES ($1, $2, $3, $4::jsonb, now())
		ON CONFLICT (attempt_id, question_id)
		DO UPDATE SET
			answer = EXCLUDED.answer,
			version_id = EXCLUDED.version_id,
			answered_at = now()
	`, row.ID, input.QuestionID, versionID, []byte(answer))
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// Submit grades every saved answer against its pinned version and freezes
// the attempt.
func (s *Service) Submit(ctx context.Context, publicID string) (*AttemptSummary, error) {
	row, err := s.loadAttemptRow(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if row.Status != "in_progress" {
		return nil, ErrAttemptNotEditable
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM questions WHERE set_id = $1 AND archived = FALSE
	`, row.SetID).Scan(&total); err != nil {
		return nil, fmt.Errorf("count set questions: %w", err)
	}

	answers, err := tx.QueryContext(ctx, `
		SELECT aa.id, aa.answer, qv.type_tag, qv.payload
		FROM attempt_answers aa
		JOIN question_versions qv ON qv.id = aa.version_id
		WHERE aa.attempt_id = $1
	`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	type graded struct {
		answerID int64
		result   ValidationResult
	}
	results := make([]graded, 0)
	for answers.Next() {
		var answerID int64
		var answerRaw, payloadRaw []byte
		var typeTag string
		if err := answers.Scan(&answerID, &answerRaw, &typeTag, &payloadRaw); err != nil {
			answers.Close()
			return nil, fmt.Errorf("scan answer: %w", err)
		}

		tag, ok := content.ParseTypeTag(typeTag)
		if !ok {
			results = append(results, graded{answerID: answerID, result: malformed()})
			continue
		}
		payload, err := content.Decode(tag, payloadRaw)
		if err != nil {
			results = append(results, graded{answerID: answerID, result: malformed()})
			continue
		}
		results = append(results, graded{answerID: answerID, result: Validate(answerRaw, payload)})
	}
	if err := answers.Err(); err != nil {
		answers.Close()
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	answers.Close()

	correct, wrong := 0, 0
	for _, g := range results {
		var isCorrect any
		if g.result.Answered && g.result.IsCorrect != nil {
			isCorrect = *g.result.IsCorrect
			if *g.result.IsCorrect {
				correct++
			} else {
				wrong++
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE attempt_answers SET is_correct = $2 WHERE id = $1
		`, g.answerID, isCorrect); err != nil {
			return nil, fmt.Errorf("store answer result: %w", err)
		}
	}

	unanswered := total - correct - wrong
	if unanswered < 0 {
		unanswered = 0
	}
	score := 0.0
	if total > 0 {
		score = float64(correct) / float64(total) * 100.0
	}

	var out AttemptSummary
	var submittedAt time.Time
	err = tx.QueryRowContext(ctx, `
		UPDATE attempts
		SET status = 'submitted',
			submitted_at = now(),
			score = $2,
			total_correct = $3,
			total_wrong = $4,
			total_unanswered = $5
		WHERE id = $1
		RETURNING public_id, set_id, status, started_at, submitted_at, score
	`, row.ID, score, correct, wrong, unanswered).Scan(
		&out.PublicID, &out.SetID, &out.Status, &out.StartedAt, &submittedAt, &out.Score,
	)
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}
	out.SubmittedAt = &submittedAt
	out.TotalQuestions = total
	out.TotalCorrect = correct
	out.TotalWrong = wrong
	out.TotalUnanswered = unanswered

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &out, nil
}

// Result returns the graded review of a submitted attempt. Questions and
// explanations come from the versions the answers were pinned to, not from
// whatever is active now.
func (s *Service) Result(ctx context.Context, publicID string) (*AttemptResult, error) {
	row, err := s.loadAttemptRow(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if row.Status != "submitted" {
		return nil, ErrAttemptNotFinal
	}

	summary, err := s.buildSummary(ctx, row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT aa.question_id, qv.version_no, qv.question_html,
			aa.answer, aa.is_correct, COALESCE(qv.explanation_html, '')
		FROM attempt_answers aa
		JOIN question_versions qv ON qv.id = aa.version_id
		JOIN questions q ON q.id = aa.question_id
		WHERE aa.attempt_id = $1
		ORDER BY q.display_order ASC, q.source_position ASC
	`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("load result items: %w", err)
	}
	defer rows.Close()

	items := make([]AttemptResultItem, 0)
	for rows.Next() {
		var it AttemptResultItem
		var answerRaw []byte
		var isCorrect sql.NullBool
		if err := rows.Scan(
			&it.QuestionID, &it.VersionNo, &it.QuestionHTML,
			&answerRaw, &isCorrect, &it.ExplanationHTML,
		); err != nil {
			return nil, fmt.Errorf("scan result item: %w", err)
		}
		it.Answer = answerRaw
		if isCorrect.Valid {
			it.Answered = true
			it.IsCorrect = &isCorrect.Bool
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result items: %w", err)
	}

	return &AttemptResult{Summary: *summary, Items: items}, nil
}

// Summary returns attempt progress without the answer key, usable while an
// attempt is still running.
func (s *Service) Summary(ctx context.Context, publicID string) (*AttemptSummary, error) {
	row, err := s.loadAttemptRow(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return s.buildSummary(ctx, row)
}

func (s *Service) loadAttemptRow(ctx context.Context, publicID string) (*attemptRow, error) {
	if _, err := uuid.Parse(publicID); err != nil {
		return nil, ErrAttemptNotFound
	}

	var row attemptRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, public_id, set_id, status, started_at, submitted_at, score
		FROM attempts
		WHERE public_id = $1
	`, publicID).Scan(
		&row.ID, &row.PublicID, &row.SetID, &row.Status,
		&row.StartedAt, &row.SubmittedAt, &row.Score,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	return &row, nil
}

func (s *Service) buildSummary(ctx context.Context, row *attemptRow) (*AttemptSummary, error) {
	out := &AttemptSummary{
		PublicID:  row.PublicID,
		SetID:     row.SetID,
		Status:    row.Status,
		StartedAt: row.StartedAt,
	}
	if row.SubmittedAt.Valid {
		out.SubmittedAt = &row.SubmittedAt.Time
	}
	if row.Score.Valid {
		out.Score = row.Score.Float64
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM questions WHERE set_id = $2 AND archived = FALSE),
			COUNT(*) FILTER (WHERE aa.is_correct),
			COUNT(*) FILTER (WHERE aa.is_correct = FALSE)
		FROM attempt_answers aa
		WHERE aa.attempt_id = $1
	`, row.ID, row.SetID).Scan(&out.TotalQuestions, &out.TotalCorrect, &out.TotalWrong)
	if err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}
	out.TotalUnanswered = out.TotalQuestions - out.TotalCorrect - out.TotalWrong
	if out.TotalUnanswered < 0 {
		out.TotalUnanswered = 0
	}
	return out, nil
}
