package contentsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"examprep/internal/content"
)

var (
	ErrSetNotFound = errors.New("question set not found")
	// ErrInvariantViolation means a question was observed with zero or more
	// than one active version. The write path makes this unreachable; if it
	// is ever seen the run aborts instead of papering over it.
	ErrInvariantViolation = errors.New("single-active-version invariant violated")
)

// Store owns all persisted question and version state for the synchronizer.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SetExternalID resolves the authoring-system identifier of a set.
func (s *Store) SetExternalID(ctx context.Context, setID int64) (string, error) {
	var externalID string
	err := s.db.QueryRowContext(ctx, `
		SELECT external_id FROM quiz_sets WHERE id = $1
	`, setID).Scan(&externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSetNotFound
		}
		return "", fmt.Errorf("load quiz set: %w", err)
	}
	return externalID, nil
}

// LoadSetState returns every question of the set joined with its active
// version. It also verifies the single-active-version invariant before the
// run mutates anything.
func (s *Store) LoadSetState(ctx context.Context, setID int64) ([]QuestionState, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM quiz_sets WHERE id = $1)
	`, setID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check quiz set: %w", err)
	}
	if !exists {
		return nil, ErrSetNotFound
	}

	var violated int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM (
			SELECT q.id
			FROM questions q
			LEFT JOIN question_versions qv ON qv.question_id = q.id AND qv.is_active
			WHERE q.set_id = $1
			GROUP BY q.id
			HAVING COUNT(qv.id) <> 1
		) broken
	`, setID).Scan(&violated); err != nil {
		return nil, fmt.Errorf("check active-version invariant: %w", err)
	}
	if violated > 0 {
		return nil, fmt.Errorf("%w: %d question(s) in set %d", ErrInvariantViolation, violated, setID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.source_position, q.loid, q.display_order, q.manually_ordered, q.archived,
			qv.version_no, qv.fingerprint, qv.content_fingerprint, qv.custom_explanation, qv.explanation_html
		FROM questions q
		JOIN question_versions qv ON qv.question_id = q.id AND qv.is_active
		WHERE q.set_id = $1
		ORDER BY q.source_position ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query set state: %w", err)
	}
	defer rows.Close()

	items := make([]QuestionState, 0)
	for rows.Next() {
		var st QuestionState
		var explanation sql.NullString
		if err := rows.Scan(
			&st.QuestionID,
			&st.SourcePosition,
			&st.LOID,
			&st.DisplayOrder,
			&st.ManuallyOrdered,
			&st.Archived,
			&st.ActiveVersionNo,
			&st.Fingerprint,
			&st.ContentFingerprint,
			&st.CustomExplanation,
			&explanation,
		); err != nil {
			return nil, fmt.Errorf("scan set state: %w", err)
		}
		if explanation.Valid {
			st.ExplanationHTML = &explanation.String
		}
		items = append(items, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate set state: %w", err)
	}
	return items, nil
}

// CreateQuestion inserts a new question and its version 1 in one
// transaction, so the question is never observable without an active
// version.
func (s *Store) CreateQuestion(ctx context.Context, setID int64, item PlannedItem) (int64, error) {
	payloadRaw, err := content.Encode(item.Payload)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var questionID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO questions (set_id, source_position, loid, display_order, manually_ordered, archived, updated_at)
		VALUES ($1, $2, $3, 0, FALSE, FALSE, now())
		RETURNING id
	`, setID, item.Position, item.LOID).Scan(&questionID)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO question_versions (
			question_id, version_no, type_tag, question_html, payload,
			fingerprint, content_fingerprint, is_active, custom_explanation, explanation_html, created_at
		) VALUES ($1, 1, $2, $3, $4::jsonb, $5, $6, TRUE, FALSE, NULLIF($7, ''), now())
	`, questionID, string(item.Payload.Tag()), item.Item.QuestionHTML, []byte(payloadRaw),
		item.Fingerprint, item.ContentFingerprint, item.Item.ExplanationHTML); err != nil {
		return 0, fmt.Errorf("insert initial version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return questionID, nil
}

// AddVersion deactivates the current active version and activates the new
// one inside a single transaction. The next version number is read under
// FOR UPDATE so concurrent writers cannot produce gaps or duplicates, and
// the partial unique index on (question_id) WHERE is_active backstops the
// swap.
func (s *Store) AddVersion(ctx context.Context, item PlannedItem) error {
	payloadRaw, err := content.Encode(item.Payload)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var latest int
	err = tx.QueryRowContext(ctx, `
		SELECT version_no
		FROM question_versions
		WHERE question_id = $1
		ORDER BY version_no DESC
		LIMIT 1
		FOR UPDATE
	`, item.QuestionID).Scan(&latest)
	if err != nil {
		return fmt.Errorf("load latest version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE question_versions
		SET is_active = FALSE
		WHERE question_id = $1 AND is_active
	`, item.QuestionID); err != nil {
		return fmt.Errorf("deactivate current version: %w", err)
	}

	customExplanation := item.CarryExplanation
	var explanation any
	if item.CarryExplanation && item.ExplanationHTML != nil {
		explanation = *item.ExplanationHTML
	} else if item.Item != nil && item.Item.ExplanationHTML != "" {
		explanation = item.Item.ExplanationHTML
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO question_versions (
			question_id, version_no, type_tag, question_html, payload,
			fingerprint, content_fingerprint, is_active, custom_explanation, explanation_html, created_at
		) VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, TRUE, $8, $9, now())
	`, item.QuestionID, latest+1, string(item.Payload.Tag()), item.Item.QuestionHTML, []byte(payloadRaw),
		item.Fingerprint, item.ContentFingerprint, customExplanation, explanation); err != nil {
		return fmt.Errorf("insert new version: %w", err)
	}

	archivedClause := ""
	if item.Unarchive {
		archivedClause = ", archived = FALSE"
	}
	// The LOID follows the content: a legitimate identifier replacement at
	// this position must not leave the old value behind, or later runs
	// reusing it elsewhere would be rejected as shifted.
	if _, err := tx.ExecContext(ctx, `
		UPDATE questions SET updated_at = now(), loid = $2`+archivedClause+` WHERE id = $1
	`, item.QuestionID, item.LOID); err != nil {
		return fmt.Errorf("touch question: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpdateQuestionLOID rewrites the stored source identifier for an item
// whose content did not change but whose LOID did.
func (s *Store) UpdateQuestionLOID(ctx context.Context, questionID int64, loid string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE questions SET loid = $2, updated_at = now()
		WHERE id = $1
	`, questionID, loid); err != nil {
		return fmt.Errorf("update question loid: %w", err)
	}
	return nil
}

// ArchiveQuestion soft-deletes a question that disappeared from the source.
// Versions and answer history are untouched.
func (s *Store) ArchiveQuestion(ctx context.Context, questionID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE questions SET archived = TRUE, updated_at = now()
		WHERE id = $1 AND archived = FALSE
	`, questionID)
	if err != nil {
		return fmt.Errorf("archive question: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("archive question affected rows: %w", err)
	}
	return nil
}

// UnarchiveQuestion restores an item that reappeared in the source with
// unchanged content.
func (s *Store) UnarchiveQuestion(ctx context.Context, questionID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE questions SET archived = FALSE, updated_at = now()
		WHERE id = $1 AND archived = TRUE
	`, questionID); err != nil {
		return fmt.Errorf("unarchive question: %w", err)
	}
	return nil
}

// ApplyOrderChanges writes the reconciler's display-order repairs in one
// transaction.
func (s *Store) ApplyOrderChanges(ctx context.Context, changes []OrderChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range changes {
		if _, err := tx.ExecContext(ctx, `
			UPDATE questions SET display_order = $2, updated_at = now()
			WHERE id = $1
		`, c.QuestionID, c.DisplayOrder); err != nil {
			return fmt.Errorf("apply display order for question %d: %w", c.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
