package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPayload = errors.New("invalid payload")

// TypeTag identifies one of the fixed question types served by the platform.
type TypeTag string

const (
	TypeSingleChoice   TypeTag = "single_choice"
	TypeNumericEntry   TypeTag = "numeric_entry"
	TypeShortText      TypeTag = "short_text"
	TypeSelectFromList TypeTag = "select_from_list"
	TypeDragAndDrop    TypeTag = "drag_and_drop"
	TypeMultiSelect    TypeTag = "multi_select"
	TypeEitherOr       TypeTag = "either_or"
)

func ParseTypeTag(v string) (TypeTag, bool) {
	switch TypeTag(strings.TrimSpace(strings.ToLower(v))) {
	case TypeSingleChoice:
		return TypeSingleChoice, true
	case TypeNumericEntry:
		return TypeNumericEntry, true
	case TypeShortText:
		return TypeShortText, true
	case TypeSelectFromList:
		return TypeSelectFromList, true
	case TypeDragAndDrop:
		return TypeDragAndDrop, true
	case TypeMultiSelect:
		return TypeMultiSelect, true
	case TypeEitherOr:
		return TypeEitherOr, true
	default:
		return "", false
	}
}

// Payload is the type-specific content of a question version. Exactly one
// concrete struct exists per TypeTag so change detection and answer
// validation can switch exhaustively.
type Payload interface {
	Tag() TypeTag
	validate() error
}

type Choice struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type SingleChoice struct {
	Choices []Choice `json:"choices"`
	Correct string   `json:"correct"`
}

func (SingleChoice) Tag() TypeTag { return TypeSingleChoice }

type NumericEntry struct {
	Answer     string   `json:"answer"`
	Alternates []string `json:"alternates,omitempty"`
}

func (NumericEntry) Tag() TypeTag { return TypeNumericEntry }

type ShortText struct {
	Answer        string   `json:"answer"`
	Alternates    []string `json:"alternates,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
}

func (ShortText) Tag() TypeTag { return TypeShortText }

type Blank struct {
	Label   string   `json:"label"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

type SelectFromList struct {
	Blanks []Blank `json:"blanks"`
}

func (SelectFromList) Tag() TypeTag { return TypeSelectFromList }

type Zone struct {
	Label   string   `json:"label"`
	Members []string `json:"members"`
}

type DragAndDrop struct {
	Zones []Zone `json:"zones"`
}

func (DragAndDrop) Tag() TypeTag { return TypeDragAndDrop }

type MultiSelect struct {
	Choices []Choice `json:"choices"`
	Correct []string `json:"correct"`
}

func (MultiSelect) Tag() TypeTag { return TypeMultiSelect }

type EitherOr struct {
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	Correct string `json:"correct"`
}

func (EitherOr) Tag() TypeTag { return TypeEitherOr }

// Decode parses and validates a raw payload for the given type tag.
func Decode(tag TypeTag, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, fmt.Errorf("%w: payload must be valid json", ErrInvalidPayload)
	}

	var p Payload
	switch tag {
	case TypeSingleChoice:
		p = &SingleChoice{}
	case TypeNumericEntry:
		p = &NumericEntry{}
	case TypeShortText:
		p = &ShortText{}
	case TypeSelectFromList:
		p = &SelectFromList{}
	case TypeDragAndDrop:
		p = &DragAndDrop{}
	case TypeMultiSelect:
		p = &MultiSelect{}
	case TypeEitherOr:
		p = &EitherOr{}
	default:
		return nil, fmt.Errorf("%w: unsupported question type '%s'", ErrInvalidPayload, tag)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: payload does not match type %s", ErrInvalidPayload, tag)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Encode renders a payload back to JSON for storage.
func Encode(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: payload is nil", ErrInvalidPayload)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

func (p *SingleChoice) validate() error {
	keys, err := validateChoices(p.Choices)
	if err != nil {
		return err
	}
	correct := strings.TrimSpace(strings.ToUpper(p.Correct))
	if correct == "" {
		return fmt.Errorf("%w: single_choice correct key is required", ErrInvalidPayload)
	}
	if !keys[correct] {
		return fmt.Errorf("%w: correct key '%s' is not among the choices", ErrInvalidPayload, correct)
	}
	p.Correct = correct
	return nil
}

func (p *NumericEntry) validate() error {
	p.Answer = strings.TrimSpace(p.Answer)
	if p.Answer == "" {
		return fmt.Errorf("%w: numeric_entry answer is required", ErrInvalidPayload)
	}
	alts, err := cleanAlternates(p.Alternates)
	if err != nil {
		return err
	}
	p.Alternates = alts
	return nil
}

func (p *ShortText) validate() error {
	p.Answer = strings.TrimSpace(p.Answer)
	if p.Answer == "" {
		return fmt.Errorf("%w: short_text answer is required", ErrInvalidPayload)
	}
	alts, err := cleanAlternates(p.Alternates)
	if err != nil {
		return err
	}
	p.Alternates = alts
	return nil
}

func (p *SelectFromList) validate() error {
	if len(p.Blanks) == 0 {
		return fmt.Errorf("%w: select_from_list requires at least one blank", ErrInvalidPayload)
	}
	seen := map[string]struct{}{}
	for i := range p.Blanks {
		b := &p.Blanks[i]
		b.Label = strings.TrimSpace(b.Label)
		if b.Label == "" {
			return fmt.Errorf("%w: blanks[%d].label is required", ErrInvalidPayload, i)
		}
		if _, ok := seen[b.Label]; ok {
			return fmt.Errorf("%w: duplicate blank label '%s'", ErrInvalidPayload, b.Label)
		}
		seen[b.Label] = struct{}{}
		if len(b.Options) < 2 {
			return fmt.Errorf("%w: blanks[%d] must offer at least 2 options", ErrInvalidPayload, i)
		}
		optSeen := map[string]struct{}{}
		for j, opt := range b.Options {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				return fmt.Errorf("%w: blanks[%d].options[%d] is empty", ErrInvalidPayload, i, j)
			}
			if _, ok := optSeen[opt]; ok {
				return fmt.Errorf("%w: blanks[%d] has duplicate option '%s'", ErrInvalidPayload, i, opt)
			}
			optSeen[opt] = struct{}{}
			b.Options[j] = opt
		}
		b.Correct = strings.TrimSpace(b.Correct)
		if _, ok := optSeen[b.Correct]; !ok {
			return fmt.Errorf("%w: blanks[%d].correct is not among its options", ErrInvalidPayload, i)
		}
	}
	return nil
}

func (p *DragAndDrop) validate() error {
	if len(p.Zones) == 0 {
		return fmt.Errorf("%w: drag_and_drop requires at least one zone", ErrInvalidPayload)
	}
	zoneSeen := map[string]struct{}{}
	memberSeen := map[string]struct{}{}
	for i := range p.Zones {
		z := &p.Zones[i]
		z.Label = strings.TrimSpace(z.Label)
		if z.Label == "" {
			return fmt.Errorf("%w: zones[%d].label is required", ErrInvalidPayload, i)
		}
		if _, ok := zoneSeen[z.Label]; ok {
			return fmt.Errorf("%w: duplicate zone label '%s'", ErrInvalidPayload, z.Label)
		}
		zoneSeen[z.Label] = struct{}{}
		if len(z.Members) == 0 {
			return fmt.Errorf("%w: zones[%d] must contain at least one member", ErrInvalidPayload, i)
		}
		for j, m := range z.Members {
			m = strings.TrimSpace(m)
			if m == "" {
				return fmt.Errorf("%w: zones[%d].members[%d] is empty", ErrInvalidPayload, i, j)
			}
			if _, ok := memberSeen[m]; ok {
				return fmt.Errorf("%w: member '%s' appears in more than one zone", ErrInvalidPayload, m)
			}
			memberSeen[m] = struct{}{}
			z.Members[j] = m
		}
	}
	return nil
}

func (p *MultiSelect) validate() error {
	keys, err := validateChoices(p.Choices)
	if err != nil {
		return err
	}
	if len(p.Correct) == 0 {
		return fmt.Errorf("%w: multi_select requires at least one correct key", ErrInvalidPayload)
	}
	seen := map[string]struct{}{}
	for i, k := range p.Correct {
		k = strings.TrimSpace(strings.ToUpper(k))
		if k == "" {
			return fmt.Errorf("%w: multi_select correct[%d] is empty", ErrInvalidPayload, i)
		}
		if _, ok := seen[k]; ok {
			return fmt.Errorf("%w: multi_select correct has duplicate '%s'", ErrInvalidPayload, k)
		}
		if !keys[k] {
			return fmt.Errorf("%w: correct key '%s' is not among the choices", ErrInvalidPayload, k)
		}
		seen[k] = struct{}{}
		p.Correct[i] = k
	}
	return nil
}

func (p *EitherOr) validate() error {
	p.OptionA = strings.TrimSpace(p.OptionA)
	p.OptionB = strings.TrimSpace(p.OptionB)
	if p.OptionA == "" || p.OptionB == "" {
		return fmt.Errorf("%w: either_or requires both options", ErrInvalidPayload)
	}
	correct := strings.TrimSpace(strings.ToLower(p.Correct))
	if correct != "a" && correct != "b" {
		return fmt.Errorf("%w: either_or correct must be 'a' or 'b'", ErrInvalidPayload)
	}
	p.Correct = correct
	return nil
}

func validateChoices(choices []Choice) (map[string]bool, error) {
	if len(choices) < 2 {
		return nil, fmt.Errorf("%w: at least 2 choices are required", ErrInvalidPayload)
	}
	keys := map[string]bool{}
	for i := range choices {
		c := &choices[i]
		c.Key = strings.TrimSpace(strings.ToUpper(c.Key))
		c.Text = strings.TrimSpace(c.Text)
		if c.Key == "" {
			return nil, fmt.Errorf("%w: choices[%d].key is required", ErrInvalidPayload, i)
		}
		if c.Text == "" {
			return nil, fmt.Errorf("%w: choices[%d].text is required", ErrInvalidPayload, i)
		}
		if keys[c.Key] {
			return nil, fmt.Errorf("%w: duplicate choice key '%s'", ErrInvalidPayload, c.Key)
		}
		keys[c.Key] = true
	}
	return keys, nil
}

func cleanAlternates(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for i, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("%w: alternates[%d] is empty", ErrInvalidPayload, i)
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
