package contentsync

import "testing"

func TestReconcilePositionsDefaultsToSourcePosition(t *testing.T) {
	questions := []QuestionState{
		{QuestionID: 1, SourcePosition: 1, DisplayOrder: 0},
		{QuestionID: 2, SourcePosition: 2, DisplayOrder: 0},
		{QuestionID: 3, SourcePosition: 3, DisplayOrder: 0},
	}
	changes := ReconcilePositions(questions)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %+v", changes)
	}
	for i, c := range changes {
		if c.DisplayOrder != i+1 {
			t.Fatalf("expected display order %d, got %+v", i+1, c)
		}
	}
}

func TestReconcilePositionsIdempotent(t *testing.T) {
	questions := []QuestionState{
		{QuestionID: 1, SourcePosition: 1, DisplayOrder: 1},
		{QuestionID: 2, SourcePosition: 2, DisplayOrder: 2},
	}
	if changes := ReconcilePositions(questions); len(changes) != 0 {
		t.Fatalf("expected no changes on settled state, got %+v", changes)
	}
}

func TestReconcilePositionsKeepsManualOrder(t *testing.T) {
	questions := []QuestionState{
		{QuestionID: 1, SourcePosition: 1, DisplayOrder: 3, ManuallyOrdered: true},
		{QuestionID: 2, SourcePosition: 2, DisplayOrder: 1, ManuallyOrdered: true},
		{QuestionID: 3, SourcePosition: 3, DisplayOrder: 2, ManuallyOrdered: true},
	}
	if changes := ReconcilePositions(questions); len(changes) != 0 {
		t.Fatalf("manual remix must survive a sync, got %+v", changes)
	}
}

func TestReconcilePositionsAppendsNewAfterManualOrder(t *testing.T) {
	questions := []QuestionState{
		{QuestionID: 1, SourcePosition: 1, DisplayOrder: 2, ManuallyOrdered: true},
		{QuestionID: 2, SourcePosition: 2, DisplayOrder: 1, ManuallyOrdered: true},
		{QuestionID: 3, SourcePosition: 3, DisplayOrder: 0},
	}
	changes := ReconcilePositions(questions)
	if len(changes) != 1 || changes[0].QuestionID != 3 || changes[0].DisplayOrder != 3 {
		t.Fatalf("new question should slot after the manual ordering, got %+v", changes)
	}
}

func TestReconcilePositionsFreezesArchivedRows(t *testing.T) {
	questions := []QuestionState{
		{QuestionID: 1, SourcePosition: 1, DisplayOrder: 1},
		{QuestionID: 2, SourcePosition: 2, DisplayOrder: 2, Archived: true},
		{QuestionID: 3, SourcePosition: 3, DisplayOrder: 3},
	}
	for _, c := range ReconcilePositions(questions) {
		if c.QuestionID == 2 {
			t.Fatalf("archived rows keep their frozen display order, got %+v", c)
		}
	}
}
