package contentsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// SyncReport is the structured outcome of one synchronization run.
type SyncReport struct {
	RunID     string      `json:"run_id"`
	SetID     int64       `json:"set_id"`
	Created   int         `json:"created"`
	Updated   int         `json:"updated"`
	Unchanged int         `json:"unchanged"`
	Archived  int         `json:"archived"`
	Errors    []ItemError `json:"errors"`
	ElapsedMS int64       `json:"elapsed_ms"`
}

// Service is the synchronization orchestrator. One run acquires the global
// lock, fetches source content, merges it against stored state, commits the
// results item by item, repairs display ordering, and releases the lock on
// every exit path.
type Service struct {
	store  *Store
	lock   *LockGuard
	source ContentSource
}

func NewService(db *sql.DB, source ContentSource) *Service {
	return &Service{
		store:  NewStore(db),
		lock:   NewLockGuard(db),
		source: source,
	}
}

// SynchronizeFromSource fetches the set's current content from the
// authoring system and reconciles it. The fetch happens under the lock; a
// fetch failure aborts before any mutation.
func (s *Service) SynchronizeFromSource(ctx context.Context, setID int64) (*SyncReport, error) {
	return s.run(ctx, setID, func(ctx context.Context) ([]SourceItem, error) {
		externalID, err := s.store.SetExternalID(ctx, setID)
		if err != nil {
			return nil, err
		}
		return s.source.FetchQuestionSet(ctx, externalID)
	})
}

// Synchronize reconciles an already-materialized batch (for example a
// parsed workbook upload) against the set.
func (s *Service) Synchronize(ctx context.Context, setID int64, items []SourceItem) (*SyncReport, error) {
	return s.run(ctx, setID, func(context.Context) ([]SourceItem, error) {
		return items, nil
	})
}

func (s *Service) run(ctx context.Context, setID int64, fetch func(context.Context) ([]SourceItem, error)) (report *SyncReport, err error) {
	token, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx), token); relErr != nil && err == nil {
			err = relErr
		}
	}()

	started := time.Now()
	runID := uuid.NewString()

	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.LoadSetState(ctx, setID)
	if err != nil {
		return nil, err
	}

	plan := Plan(existing, items)
	report = &SyncReport{
		RunID:  runID,
		SetID:  setID,
		Errors: plan.Errors,
	}

	// Per-item failures are collected, not fatal: one malformed item must
	// not sink the rest of the batch.
	for _, item := range plan.Items {
		switch item.Outcome {
		case OutcomeCreated:
			if _, applyErr := s.store.CreateQuestion(ctx, setID, item); applyErr != nil {
				report.Errors = append(report.Errors, itemError(item, applyErr))
				continue
			}
			report.Created++
		case OutcomeUpdated:
			if applyErr := s.store.AddVersion(ctx, item); applyErr != nil {
				report.Errors = append(report.Errors, itemError(item, applyErr))
				continue
			}
			report.Updated++
		case OutcomeUnchanged:
			if item.Unarchive {
				if applyErr := s.store.UnarchiveQuestion(ctx, item.QuestionID); applyErr != nil {
					report.Errors = append(report.Errors, itemError(item, applyErr))
					continue
				}
			}
			if item.RefreshLOID {
				if applyErr := s.store.UpdateQuestionLOID(ctx, item.QuestionID, item.LOID); applyErr != nil {
					report.Errors = append(report.Errors, itemError(item, applyErr))
					continue
				}
			}
			report.Unchanged++
		case OutcomeArchived:
			if applyErr := s.store.ArchiveQuestion(ctx, item.QuestionID); applyErr != nil {
				report.Errors = append(report.Errors, itemError(item, applyErr))
				continue
			}
			report.Archived++
		}
	}

	state, err := s.store.LoadSetState(ctx, setID)
	if err != nil {
		return nil, err
	}
	if applyErr := s.store.ApplyOrderChanges(ctx, ReconcilePositions(state)); applyErr != nil {
		return nil, applyErr
	}

	report.ElapsedMS = time.Since(started).Milliseconds()
	if recErr := s.lock.RecordRun(ctx, report); recErr != nil {
		log.Printf(`{"event":"sync_record_failed","run_id":"%s","error":%q}`, runID, recErr.Error())
	}
	logRun(report)
	return report, nil
}

// Status exposes the persisted sync state for the admin dashboard.
func (s *Service) Status(ctx context.Context) (*SyncStatus, error) {
	return s.lock.Status(ctx)
}

// Finalize performs the one-time final refresh shutdown: all future runs
// are rejected permanently.
func (s *Service) Finalize(ctx context.Context) error {
	return s.lock.MarkFinalized(ctx)
}

func itemError(item PlannedItem, err error) ItemError {
	loid := ""
	if item.Item != nil {
		loid = item.Item.LOID
	}
	return ItemError{Position: item.Position, LOID: loid, Error: fmt.Sprintf("apply %s: %v", item.Outcome, err)}
}

func logRun(report *SyncReport) {
	entry := map[string]any{
		"event":      "sync_run",
		"run_id":     report.RunID,
		"set_id":     report.SetID,
		"created":    report.Created,
		"updated":    report.Updated,
		"unchanged":  report.Unchanged,
		"archived":   report.Archived,
		"errors":     len(report.Errors),
		"elapsed_ms": report.ElapsedMS,
	}
	b, _ := json.Marshal(entry)
	log.Printf("%s", string(b))
}
