package contentsync

import "sort"

// OrderChange is one display-order repair produced by the reconciler.
type OrderChange struct {
	QuestionID   int64
	DisplayOrder int
}

// ReconcilePositions repairs display ordering after a sync. Archived rows
// keep their frozen order and are excluded from the active sequence. When
// no row in the set was manually reordered, display order follows source
// position. Once an administrator has remixed the set, existing manual
// orders are left alone: only rows that never received an order (new
// creations) are placed, after the current maximum.
//
// Running it twice over the same state yields no changes the second time.
func ReconcilePositions(questions []QuestionState) []OrderChange {
	active := make([]*QuestionState, 0, len(questions))
	manual := false
	maxOrder := 0
	for i := range questions {
		q := &questions[i]
		if q.Archived {
			continue
		}
		active = append(active, q)
		if q.ManuallyOrdered {
			manual = true
		}
		if q.DisplayOrder > maxOrder {
			maxOrder = q.DisplayOrder
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].SourcePosition < active[j].SourcePosition })

	changes := make([]OrderChange, 0)
	for _, q := range active {
		switch {
		case q.ManuallyOrdered:
			// Admin-set order survives every sync.
		case !manual:
			if q.DisplayOrder != q.SourcePosition {
				changes = append(changes, OrderChange{QuestionID: q.QuestionID, DisplayOrder: q.SourcePosition})
			}
		case q.DisplayOrder == 0:
			maxOrder++
			changes = append(changes, OrderChange{QuestionID: q.QuestionID, DisplayOrder: maxOrder})
		}
	}
	return changes
}
