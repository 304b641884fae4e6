package contentsync

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	raw := workbookBytes(t, [][]any{
		{"position", "loid", "type", "question_html", "payload", "explanation_html"},
		{1, "LO-1", "short_text", "<p>Q1</p>", `{"answer":"x"}`, "why"},
		{2, "LO-2", "single_choice", "<p>Q2</p>", `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":"a"}`, ""},
	})

	items, err := ParseWorkbook(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Position != 1 || items[0].LOID != "LO-1" || items[0].ExplanationHTML != "why" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].TypeTag != "single_choice" {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestParseWorkbookBadPositionSurvivesToMerge(t *testing.T) {
	raw := workbookBytes(t, [][]any{
		{"position", "loid", "type", "question_html", "payload"},
		{"not-a-number", "LO-1", "short_text", "<p>Q1</p>", `{"answer":"x"}`},
	})

	items, err := ParseWorkbook(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}
	if len(items) != 1 || items[0].Position != 0 {
		t.Fatalf("expected lenient parse with zero position, got %+v", items)
	}

	plan := Plan(nil, items)
	if len(plan.Errors) != 1 {
		t.Fatalf("merge should reject the zero position, got %+v", plan.Errors)
	}
}

func TestParseWorkbookMissingColumn(t *testing.T) {
	raw := workbookBytes(t, [][]any{
		{"position", "loid", "question_html", "payload"},
		{1, "LO-1", "<p>Q1</p>", `{"answer":"x"}`},
	})
	if _, err := ParseWorkbook(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected missing column error")
	}
}
