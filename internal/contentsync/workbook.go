package contentsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseWorkbook reads an authoring-system .xlsx export into a source batch.
// Expected columns on the first sheet: position, loid, type, question_html,
// payload (JSON), explanation_html. Cell-level problems are left in the
// item and surface later as per-item merge errors, so one bad row does not
// reject the whole upload.
func ParseWorkbook(r io.Reader) ([]SourceItem, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("workbook has no data rows")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"position", "type", "question_html", "payload"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	items := make([]SourceItem, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if isBlankRow(row) {
			continue
		}

		position, _ := strconv.Atoi(get("position"))
		items = append(items, SourceItem{
			Position:        position,
			LOID:            get("loid"),
			TypeTag:         get("type"),
			QuestionHTML:    get("question_html"),
			Payload:         json.RawMessage(get("payload")),
			ExplanationHTML: get("explanation_html"),
		})
	}
	return items, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
