package quizset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type Course struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type CreateCourseInput struct {
	Title       string
	Description string
}

type QuizSet struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"`
	Archived   bool   `json:"archived"`
}

type CreateSetInput struct {
	Name       string
	ExternalID string
}

// SetQuestion is one deliverable question of a set: the active version of a
// non-archived question, in display order.
type SetQuestion struct {
	QuestionID      int64  `json:"question_id"`
	VersionID       int64  `json:"version_id"`
	VersionNo       int    `json:"version_no"`
	DisplayOrder    int    `json:"display_order"`
	LOID            string `json:"loid,omitempty"`
	TypeTag         string `json:"type"`
	QuestionHTML    string `json:"question_html"`
	ExplanationHTML string `json:"explanation_html,omitempty"`
}

func (s *Service) CreateCourse(ctx context.Context, in CreateCourseInput) (*Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	var out Course
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO courses (title, description, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, now(), now())
		RETURNING id, title, description, is_active
	`, title, strings.TrimSpace(in.Description)).Scan(&out.ID, &out.Title, &out.Description, &out.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &out, nil
}

func (s *Service) ListCourses(ctx context.Context, activeOnly bool) ([]Course, error) {
	query := `
		SELECT id, title, description, is_active
		FROM courses
	`
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY title ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := make([]Course, 0)
	for rows.Next() {
		var it Course
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.IsActive); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return out, nil
}

func (s *Service) CreateSet(ctx context.Context, in CreateSetInput) (*QuizSet, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	var out QuizSet
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO quiz_sets (name, external_id, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING id, name, external_id, archived
	`, name, strings.TrimSpace(in.ExternalID)).Scan(&out.ID, &out.Name, &out.ExternalID, &out.Archived)
	if err != nil {
		return nil, fmt.Errorf("create quiz set: %w", err)
	}
	return &out, nil
}

func (s *Service) ListSets(ctx context.Context, courseID int64) ([]QuizSet, error) {
	query := `
		SELECT qs.id, qs.name, qs.external_id, qs.archived
		FROM quiz_sets qs
	`
	args := []any{}
	if courseID > 0 {
		query += `
		JOIN course_quiz_sets cqs ON cqs.quiz_set_id = qs.id AND cqs.course_id = $1`
		args = append(args, courseID)
	}
	query += `
		WHERE qs.archived = FALSE
		ORDER BY qs.name ASC, qs.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quiz sets: %w", err)
	}
	defer rows.Close()

	out := make([]QuizSet, 0)
	for rows.Next() {
		var it QuizSet
		if err := rows.Scan(&it.ID, &it.Name, &it.ExternalID, &it.Archived); err != nil {
			return nil, fmt.Errorf("scan quiz set: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quiz sets: %w", err)
	}
	return out, nil
}

func (s *Service) AttachSetToCourse(ctx context.Context, courseID, setID int64) error {
	if courseID <= 0 || setID <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO course_quiz_sets (course_id, quiz_set_id)
		SELECT c.id, qs.id
		FROM courses c, quiz_sets qs
		WHERE c.id = $1 AND qs.id = $2
		ON CONFLICT DO NOTHING
	`, courseID, setID)
	if err != nil {
		return fmt.Errorf("attach set to course: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// Either the pair already exists or one side is missing; distinguish.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM course_quiz_sets WHERE course_id = $1 AND quiz_set_id = $2
			)
		`, courseID, setID).Scan(&exists); err != nil {
			return fmt.Errorf("check attachment: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *Service) DetachSetFromCourse(ctx context.Context, courseID, setID int64) error {
	if courseID <= 0 || setID <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM course_quiz_sets WHERE course_id = $1 AND quiz_set_id = $2
	`, courseID, setID)
	if err != nil {
		return fmt.Errorf("detach set from course: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQuestions returns the deliverable view of a set: active versions of
// non-archived questions ordered by display_order.
func (s *Service) SetQuestions(ctx context.Context, setID int64) ([]SetQuestion, error) {
	if setID <= 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM quiz_sets WHERE id = $1)
	`, setID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check quiz set: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, qv.id, qv.version_no, q.display_order, q.loid,
			qv.type_tag, qv.question_html, COALESCE(qv.explanation_html, '')
		FROM questions q
		JOIN question_versions qv ON qv.question_id = q.id AND qv.is_active
		WHERE q.set_id = $1 AND q.archived = FALSE
		ORDER BY q.display_order ASC, q.source_position ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("list set questions: %w", err)
	}
	defer rows.Close()

	out := make([]SetQuestion, 0)
	for rows.Next() {
		var it SetQuestion
		if err := rows.Scan(
			&it.QuestionID, &it.VersionID, &it.VersionNo, &it.DisplayOrder,
			&it.LOID, &it.TypeTag, &it.QuestionHTML, &it.ExplanationHTML,
		); err != nil {
			return nil, fmt.Errorf("scan set question: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate set questions: %w", err)
	}
	return out, nil
}

// Remix replaces the display order of a set with an explicit question
// sequence. The sequence must cover exactly the set's non-archived
// questions; the rows are marked manually ordered so synchronization will
// not rearrange them.
func (s *Service) Remix(ctx context.Context, setID int64, questionIDs []int64) error {
	if setID <= 0 || len(questionIDs) == 0 {
		return ErrInvalidInput
	}
	seen := make(map[int64]bool, len(questionIDs))
	for _, id := range questionIDs {
		if id <= 0 || seen[id] {
			return ErrInvalidInput
		}
		seen[id] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM questions
		WHERE set_id = $1 AND archived = FALSE
		FOR UPDATE
	`, setID)
	if err != nil {
		return fmt.Errorf("lock set questions: %w", err)
	}
	current := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan question id: %w", err)
		}
		current[id] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate question ids: %w", err)
	}
	rows.Close()

	if len(current) == 0 {
		return ErrNotFound
	}
	if len(current) != len(questionIDs) {
		return fmt.Errorf("%w: sequence must cover all %d questions", ErrInvalidInput, len(current))
	}
	for _, id := range questionIDs {
		if !current[id] {
			return fmt.Errorf("%w: question %d is not part of the set", ErrInvalidInput, id)
		}
	}

	for i, id := range questionIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE questions
			SET display_order = $2, manually_ordered = TRUE, updated_at = now()
			WHERE id = $1
		`, id, i+1); err != nil {
			return fmt.Errorf("apply remix order for question %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpdateExplanation stores a hand-written explanation on the active version
// of a question. The custom flag makes the text survive future content
// refreshes as long as the question content itself is unchanged.
func (s *Service) UpdateExplanation(ctx context.Context, questionID int64, explanationHTML string) error {
	if questionID <= 0 {
		return ErrInvalidInput
	}
	text := strings.TrimSpace(explanationHTML)
	if text == "" {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE question_versions
		SET custom_explanation = TRUE, explanation_html = $2
		WHERE question_id = $1 AND is_active
	`, questionID, text)
	if err != nil {
		return fmt.Errorf("update explanation: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}
