package contentsync

import (
	"fmt"
	"sort"
	"strings"

	"examprep/internal/content"
)

// Outcome classifies what the synchronizer decided for one position.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeArchived  Outcome = "archived"
)

// QuestionState is the store's view of one question and its active version,
// as loaded before a run.
type QuestionState struct {
	QuestionID         int64
	SourcePosition     int
	LOID               string
	DisplayOrder       int
	ManuallyOrdered    bool
	Archived           bool
	ActiveVersionNo    int
	Fingerprint        string
	ContentFingerprint string
	CustomExplanation  bool
	ExplanationHTML    *string
}

// PlannedItem is one decided write (or non-write) the orchestrator applies.
type PlannedItem struct {
	Outcome    Outcome
	Position   int
	QuestionID int64

	Item    *SourceItem
	Payload content.Payload

	// LOID is the incoming source identifier. Creates and updates write it
	// through so the stored value keeps tracking the source.
	LOID string
	// RefreshLOID marks an unchanged item whose incoming LOID differs from
	// the stored one; only the identifier needs rewriting, not the content.
	RefreshLOID bool

	Fingerprint        string
	ContentFingerprint string

	// CarryExplanation preserves the hand-written explanation of the prior
	// active version onto the new one. Only set for updates whose content
	// fingerprint is unchanged.
	CarryExplanation bool
	ExplanationHTML  *string

	// Unarchive clears the archived flag for an item that reappeared in the
	// source at its old position.
	Unarchive bool
}

type ItemError struct {
	Position int    `json:"position"`
	LOID     string `json:"loid,omitempty"`
	Error    string `json:"error"`
}

type MergePlan struct {
	Items  []PlannedItem
	Errors []ItemError
}

// Plan compares a set's existing state against a freshly fetched source
// batch and decides, per position, whether to create, update, archive, or
// leave alone. It is pure: all writes happen later in the orchestrator.
//
// Items match by source position. A position whose incoming LOID differs
// from the stored one while that LOID exists elsewhere in the set is a
// strong signal of a mid-list insertion or removal; such positions are
// reported as errors rather than rewritten under the wrong question.
func Plan(existing []QuestionState, incoming []SourceItem) MergePlan {
	plan := MergePlan{Items: make([]PlannedItem, 0, len(incoming)), Errors: make([]ItemError, 0)}

	byPosition := make(map[int]*QuestionState, len(existing))
	loidPositions := make(map[string]int, len(existing))
	for i := range existing {
		ex := &existing[i]
		byPosition[ex.SourcePosition] = ex
		if ex.LOID != "" {
			loidPositions[ex.LOID] = ex.SourcePosition
		}
	}

	seen := make(map[int]bool, len(incoming))
	for i := range incoming {
		item := &incoming[i]
		if item.Position <= 0 {
			plan.Errors = append(plan.Errors, ItemError{Position: item.Position, LOID: item.LOID, Error: "source position must be positive"})
			continue
		}
		if seen[item.Position] {
			plan.Errors = append(plan.Errors, ItemError{Position: item.Position, LOID: item.LOID, Error: "duplicate source position in batch"})
			continue
		}
		seen[item.Position] = true

		tag, ok := content.ParseTypeTag(item.TypeTag)
		if !ok {
			plan.Errors = append(plan.Errors, ItemError{Position: item.Position, LOID: item.LOID, Error: fmt.Sprintf("unknown question type '%s'", item.TypeTag)})
			continue
		}
		if strings.TrimSpace(item.QuestionHTML) == "" {
			plan.Errors = append(plan.Errors, ItemError{Position: item.Position, LOID: item.LOID, Error: "question text is empty"})
			continue
		}
		payload, err := content.Decode(tag, item.Payload)
		if err != nil {
			plan.Errors = append(plan.Errors, ItemError{Position: item.Position, LOID: item.LOID, Error: err.Error()})
			continue
		}

		fp := content.Fingerprint(item.QuestionHTML, item.ExplanationHTML, payload)
		cfp := content.ContentFingerprint(item.QuestionHTML, payload)

		ex, exists := byPosition[item.Position]
		if !exists {
			plan.Items = append(plan.Items, PlannedItem{
				Outcome:            OutcomeCreated,
				Position:           item.Position,
				Item:               item,
				Payload:            payload,
				LOID:               item.LOID,
				Fingerprint:        fp,
				ContentFingerprint: cfp,
			})
			continue
		}

		if item.LOID != "" && ex.LOID != "" && item.LOID != ex.LOID {
			if otherPos, found := loidPositions[item.LOID]; found && otherPos != item.Position {
				plan.Errors = append(plan.Errors, ItemError{
					Position: item.Position,
					LOID:     item.LOID,
					Error:    fmt.Sprintf("loid mismatch: stored %s, incoming %s already exists at position %d; positions may have shifted", ex.LOID, item.LOID, otherPos),
				})
				continue
			}
		}

		if fp == ex.Fingerprint {
			plan.Items = append(plan.Items, PlannedItem{
				Outcome:     OutcomeUnchanged,
				Position:    item.Position,
				QuestionID:  ex.QuestionID,
				Item:        item,
				LOID:        item.LOID,
				RefreshLOID: item.LOID != "" && item.LOID != ex.LOID,
				Unarchive:   ex.Archived,
			})
			continue
		}

		carry := ex.CustomExplanation && ex.ContentFingerprint == cfp
		var carried *string
		if carry {
			carried = ex.ExplanationHTML
		}
		plan.Items = append(plan.Items, PlannedItem{
			Outcome:            OutcomeUpdated,
			Position:           item.Position,
			QuestionID:         ex.QuestionID,
			Item:               item,
			Payload:            payload,
			LOID:               item.LOID,
			Fingerprint:        fp,
			ContentFingerprint: cfp,
			CarryExplanation:   carry,
			ExplanationHTML:    carried,
			Unarchive:          ex.Archived,
		})
	}

	for i := range existing {
		ex := &existing[i]
		if seen[ex.SourcePosition] || ex.Archived {
			continue
		}
		plan.Items = append(plan.Items, PlannedItem{
			Outcome:    OutcomeArchived,
			Position:   ex.SourcePosition,
			QuestionID: ex.QuestionID,
		})
	}

	sort.SliceStable(plan.Items, func(i, j int) bool { return plan.Items[i].Position < plan.Items[j].Position })
	return plan
}
