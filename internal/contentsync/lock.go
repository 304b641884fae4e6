package contentsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSyncRunning   = errors.New("a synchronization run is already in progress")
	ErrSyncFinalized = errors.New("synchronization has been permanently finalized")
)

// Token proves ownership of the sync lock for the duration of one run.
type Token string

// LockGuard is the persisted, process-wide mutual-exclusion and one-time
// completion gate. State lives in a single sync_state row so it survives
// restarts and is shared across instances.
type LockGuard struct {
	db *sql.DB
}

func NewLockGuard(db *sql.DB) *LockGuard {
	return &LockGuard{db: db}
}

type SyncStatus struct {
	InProgress    bool            `json:"in_progress"`
	Finalized     bool            `json:"finalized"`
	UpdatedAt     time.Time       `json:"updated_at"`
	LastRunAt     *time.Time      `json:"last_run_at,omitempty"`
	LastRunReport json.RawMessage `json:"last_run_report,omitempty"`
}

func (g *LockGuard) ensureRow(ctx context.Context) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, in_progress, finalized, updated_at)
		VALUES (1, FALSE, FALSE, now())
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("ensure sync state row: %w", err)
	}
	return nil
}

// Acquire flips the in-progress flag with a single compare-and-set update.
// It never blocks: a concurrent run yields ErrSyncRunning immediately, and
// a finalized platform yields ErrSyncFinalized forever.
func (g *LockGuard) Acquire(ctx context.Context) (Token, error) {
	if err := g.ensureRow(ctx); err != nil {
		return "", err
	}

	token := uuid.NewString()
	res, err := g.db.ExecContext(ctx, `
		UPDATE sync_state
		SET in_progress = TRUE, lock_token = $1, updated_at = now()
		WHERE id = 1 AND in_progress = FALSE AND finalized = FALSE
	`, token)
	if err != nil {
		return "", fmt.Errorf("acquire sync lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("acquire sync lock affected rows: %w", err)
	}
	if affected == 1 {
		return Token(token), nil
	}

	status, err := g.Status(ctx)
	if err != nil {
		return "", err
	}
	if status.Finalized {
		return "", ErrSyncFinalized
	}
	return "", ErrSyncRunning
}

// Release clears the in-progress flag. Only the run holding the token may
// release; a stale token is a no-op so a crashed run cannot unlock a newer
// one.
func (g *LockGuard) Release(ctx context.Context, token Token) error {
	_, err := g.db.ExecContext(ctx, `
		UPDATE sync_state
		SET in_progress = FALSE, lock_token = NULL, updated_at = now()
		WHERE id = 1 AND lock_token = $1
	`, string(token))
	if err != nil {
		return fmt.Errorf("release sync lock: %w", err)
	}
	return nil
}

// MarkFinalized is the one-way ratchet ending synchronization for good. It
// only fires from the idle state; an in-flight run must finish first.
func (g *LockGuard) MarkFinalized(ctx context.Context) error {
	if err := g.ensureRow(ctx); err != nil {
		return err
	}

	res, err := g.db.ExecContext(ctx, `
		UPDATE sync_state
		SET finalized = TRUE, updated_at = now()
		WHERE id = 1 AND in_progress = FALSE
	`)
	if err != nil {
		return fmt.Errorf("mark finalized: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark finalized affected rows: %w", err)
	}
	if affected == 0 {
		return ErrSyncRunning
	}
	return nil
}

func (g *LockGuard) Status(ctx context.Context) (*SyncStatus, error) {
	if err := g.ensureRow(ctx); err != nil {
		return nil, err
	}

	var out SyncStatus
	var lastRunAt sql.NullTime
	var lastReport []byte
	err := g.db.QueryRowContext(ctx, `
		SELECT in_progress, finalized, updated_at, last_run_at, last_run_report
		FROM sync_state
		WHERE id = 1
	`).Scan(&out.InProgress, &out.Finalized, &out.UpdatedAt, &lastRunAt, &lastReport)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	if lastRunAt.Valid {
		out.LastRunAt = &lastRunAt.Time
	}
	if len(lastReport) > 0 {
		out.LastRunReport = lastReport
	}
	return &out, nil
}

// RecordRun stores the latest report for the status endpoint.
func (g *LockGuard) RecordRun(ctx context.Context, report *SyncReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal sync report: %w", err)
	}
	if _, err := g.db.ExecContext(ctx, `
		UPDATE sync_state
		SET last_run_at = now(), last_run_report = $1::jsonb, updated_at = now()
		WHERE id = 1
	`, raw); err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}
