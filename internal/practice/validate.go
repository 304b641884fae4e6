package practice

import (
	"encoding/json"
	"sort"
	"strings"

	"examprep/internal/content"
)

// ValidationResult records how one saved answer scored against the version
// it was pinned to.
type ValidationResult struct {
	Answered  bool   `json:"answered"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
	Reason    string `json:"reason"`
}

// Validate checks a raw learner answer against a question payload. A
// missing or empty answer counts as unanswered; anything structurally wrong
// counts as an answered, incorrect attempt so a broken client cannot score
// points.
func Validate(answer json.RawMessage, p content.Payload) ValidationResult {
	if len(answer) == 0 || string(answer) == "{}" || string(answer) == "null" {
		return ValidationResult{Answered: false, Reason: "unanswered"}
	}

	switch v := p.(type) {
	case *content.SingleChoice:
		return validateSingleChoice(answer, v)
	case *content.NumericEntry:
		return validateTextAnswer(answer, v.Answer, v.Alternates, false)
	case *content.ShortText:
		return validateTextAnswer(answer, v.Answer, v.Alternates, v.CaseSensitive)
	case *content.SelectFromList:
		return validateSelectFromList(answer, v)
	case *content.DragAndDrop:
		return validateDragAndDrop(answer, v)
	case *content.MultiSelect:
		return validateMultiSelect(answer, v)
	case *content.EitherOr:
		return validateEitherOr(answer, v)
	default:
		return malformed()
	}
}

func validateSingleChoice(raw json.RawMessage, p *content.SingleChoice) ValidationResult {
	var body struct {
		Selected string `json:"selected"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return malformed()
	}
	selected := strings.TrimSpace(strings.ToUpper(body.Selected))
	if selected == "" {
		return ValidationResult{Answered: false, Reason: "unanswered"}
	}
	if !choiceKeyExists(p.Choices, selected) {
		return malformed()
	}
	return verdict(selected == p.Correct)
}

func validateTextAnswer(raw json.RawMessage, answer string, alternates []string, caseSensitive bool) ValidationResult {
	var body struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return malformed()
	}
	value := strings.TrimSpace(body.Value)
	if value == "" {
		return ValidationResult{Answered: false, Reason: "unanswered"}
	}

	accepted := append([]string{answer}, alternates...)
	for _, a := range accepted {
		if caseSensitive {
			if value == a {
				return verdict(true)
			}
			continue
		}
		if strings.EqualFold(value, a) {
			return verdict(true)
		}
	}
	return verdict(false)
}

func validateSelectFromList(raw json.RawMessage, p *content.SelectFromList) ValidationResult {
	var body struct {
		Selections map[string]string `json:"selections"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return malformed()
	}
	if len(body.Selections) == 0 {
		return ValidationResult{Answered: false, Reason: "unanswered"}
	}
	if len(body.Selections) != len(p.Blanks) {
		return malformed()
	}

	for _, b := range p.Blanks {
		selected, ok := body.Selections[b.Label]
		if !ok {
			return malformed()
		}
		if strings.TrimSpace(selected) != b.Correct {
			return verdict(false)
		}
	}
	return verdict(true)
}

func validateDragAndDrop(raw json.RawMessage, p *content.DragAndDrop) ValidationResult {
	var body struct {
		Placements map[string][]string `json:"placements"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return malformed()
	}
	if len(body.Placements) == 0 {
		return ValidationResult{Answered: false, Reason: "unanswered"}
	}
	if len(body.Placements) != len(p.Zones) {
		return malformed()
	}

	// Every member must be placed exactly once across all zones.
	placedOnce := map[string]bool{}
	for _, members := range body.Placements {
		for _, m := range members {
			m = strings.TrimSpace(m)
			if m == "" || placedOnce[m] {
				return malformed()
			}
			placedOnce[m] = true
		}
	}

	for _, z := range p.Zones {
		placed, ok := body.Placements[z.Label]
		if !ok {
			return malformed()
		}
		if !equalSet(placed, z.Members) {
			return verdict(false)
		}
	}
	return verdict(true)
}

func validateMultiSelect(raw json.RawMessage, p *content.MultiSelect) ValidationResult {
	var body struct {
		Selected []string `json:"selected"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return malformed()
	}
	if len(body.Selected) == 0 {
		return ValidationResult{Answered: false, Reason: "unanswered"}
	}

	selected := make([]string, 0, len(body.Selected))
	seen := map[string]bool{}
	for _, k := range body.Selected {
		k = strings.TrimSpace(strings.ToUpper(k))
		if k == "" || seen[k] || !choiceKeyExists(p.Choices, k) {
			return malformed()
		}
		seen[k] = true
		selected = append(selected, k)
	}
	return verdict(equalSet(selected, p.Correct))
}

func validateEitherOr(raw json.RawMessage, p *content.EitherOr) ValidationResult {
	var body struct {
		Selected string `json:"selected"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return malformed()
	}
	selected := strings.TrimSpace(strings.ToLower(body.Selected))
	if selected == "" {
		return ValidationResult{Answered: false, Reason: "unanswered"}
	}
	if selected != "a" && selected != "b" {
		return malformed()
	}
	return verdict(selected == p.Correct)
}

func choiceKeyExists(choices []content.Choice, key string) bool {
	for _, c := range choices {
		if c.Key == key {
			return true
		}
	}
	return false
}

func equalSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i, v := range a {
		as[i] = strings.TrimSpace(v)
	}
	for i, v := range b {
		bs[i] = strings.TrimSpace(v)
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func verdict(correct bool) ValidationResult {
	reason := "wrong"
	if correct {
		reason = "correct"
	}
	return ValidationResult{Answered: true, IsCorrect: &correct, Reason: reason}
}

func malformed() ValidationResult {
	f := false
	return ValidationResult{Answered: true, IsCorrect: &f, Reason: "malformed_answer"}
}
