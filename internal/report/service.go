package report

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrSetNotFound = errors.New("question set not found")

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Dashboard aggregates platform-wide counters for the admin overview.
type Dashboard struct {
	Courses           int     `json:"courses"`
	QuizSets          int     `json:"quiz_sets"`
	Questions         int     `json:"questions"`
	ArchivedQuestions int     `json:"archived_questions"`
	Versions          int     `json:"versions"`
	Attempts          int     `json:"attempts"`
	SubmittedAttempts int     `json:"submitted_attempts"`
	AverageScore      float64 `json:"average_score"`
}

type SetSummary struct {
	SetID             int64   `json:"set_id"`
	Name              string  `json:"name"`
	Questions         int     `json:"questions"`
	ArchivedQuestions int     `json:"archived_questions"`
	Attempts          int     `json:"attempts"`
	AverageScore      float64 `json:"average_score"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var out Dashboard
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM quiz_sets WHERE archived = FALSE),
			(SELECT COUNT(*) FROM questions WHERE archived = FALSE),
			(SELECT COUNT(*) FROM questions WHERE archived = TRUE),
			(SELECT COUNT(*) FROM question_versions),
			(SELECT COUNT(*) FROM attempts),
			(SELECT COUNT(*) FROM attempts WHERE status = 'submitted'),
			COALESCE((SELECT AVG(score) FROM attempts WHERE status = 'submitted'), 0)
	`).Scan(
		&out.Courses, &out.QuizSets, &out.Questions, &out.ArchivedQuestions,
		&out.Versions, &out.Attempts, &out.SubmittedAttempts, &out.AverageScore,
	)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return &out, nil
}

func (s *Service) SetSummary(ctx context.Context, setID int64) (*SetSummary, error) {
	var out SetSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT qs.id, qs.name,
			(SELECT COUNT(*) FROM questions WHERE set_id = qs.id AND archived = FALSE),
			(SELECT COUNT(*) FROM questions WHERE set_id = qs.id AND archived = TRUE),
			(SELECT COUNT(*) FROM attempts WHERE set_id = qs.id),
			COALESCE((SELECT AVG(score) FROM attempts WHERE set_id = qs.id AND status = 'submitted'), 0)
		FROM quiz_sets qs
		WHERE qs.id = $1
	`, setID).Scan(
		&out.SetID, &out.Name, &out.Questions, &out.ArchivedQuestions,
		&out.Attempts, &out.AverageScore,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("load set summary: %w", err)
	}
	return &out, nil
}

// ExportSetExcel renders a set's current content state as a workbook: one
// row per question with its active version, fingerprint, and explanation
// provenance.
func (s *Service) ExportSetExcel(ctx context.Context, setID int64) ([]byte, error) {
	var setName string
	if err := s.db.QueryRowContext(ctx, `
		SELECT name FROM quiz_sets WHERE id = $1
	`, setID).Scan(&setName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("load quiz set: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.source_position, q.display_order, q.loid, q.archived,
			qv.version_no, qv.type_tag, qv.question_html, qv.fingerprint,
			qv.custom_explanation, COALESCE(qv.explanation_html, '')
		FROM questions q
		JOIN question_versions qv ON qv.question_id = q.id AND qv.is_active
		WHERE q.set_id = $1
		ORDER BY q.display_order ASC, q.source_position ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query set export: %w", err)
	}
	defer rows.Close()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"position", "display_order", "loid", "archived", "version", "type", "question_html", "fingerprint", "explanation_source", "explanation_html"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	rowNo := 1
	for rows.Next() {
		var position, displayOrder, versionNo int
		var loid, typeTag, questionHTML, fingerprint, explanation string
		var archived, custom bool
		if err := rows.Scan(
			&position, &displayOrder, &loid, &archived,
			&versionNo, &typeTag, &questionHTML, &fingerprint,
			&custom, &explanation,
		); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}

		source := "source"
		if custom {
			source = "custom"
		}
		if strings.TrimSpace(explanation) == "" {
			source = "none"
		}

		rowNo++
		values := []any{position, displayOrder, loid, archived, versionNo, typeTag, questionHTML, fingerprint, source, explanation}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNo)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}
	_ = f.SetColWidth(sheet, "A", "J", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
