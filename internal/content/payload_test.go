package content

import (
	"encoding/json"
	"testing"
)

func TestParseTypeTag(t *testing.T) {
	if tag, ok := ParseTypeTag("  Single_Choice "); !ok || tag != TypeSingleChoice {
		t.Fatalf("expected single_choice, got %q ok=%v", tag, ok)
	}
	if _, ok := ParseTypeTag("essay"); ok {
		t.Fatalf("expected unknown type to be rejected")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		tag     TypeTag
		raw     string
		wantErr bool
	}{
		{name: "single choice valid", tag: TypeSingleChoice, raw: `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":"b"}`},
		{name: "single choice unknown correct", tag: TypeSingleChoice, raw: `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":"c"}`, wantErr: true},
		{name: "single choice one option", tag: TypeSingleChoice, raw: `{"choices":[{"key":"a","text":"One"}],"correct":"a"}`, wantErr: true},
		{name: "numeric valid", tag: TypeNumericEntry, raw: `{"answer":"42","alternates":["42.0"]}`},
		{name: "numeric empty answer", tag: TypeNumericEntry, raw: `{"answer":"  "}`, wantErr: true},
		{name: "short text valid", tag: TypeShortText, raw: `{"answer":"mitochondria","case_sensitive":false}`},
		{name: "select from list valid", tag: TypeSelectFromList, raw: `{"blanks":[{"label":"b1","options":["x","y"],"correct":"x"}]}`},
		{name: "select from list correct not offered", tag: TypeSelectFromList, raw: `{"blanks":[{"label":"b1","options":["x","y"],"correct":"z"}]}`, wantErr: true},
		{name: "drag and drop valid", tag: TypeDragAndDrop, raw: `{"zones":[{"label":"left","members":["m1"]},{"label":"right","members":["m2","m3"]}]}`},
		{name: "drag and drop member in two zones", tag: TypeDragAndDrop, raw: `{"zones":[{"label":"left","members":["m1"]},{"label":"right","members":["m1"]}]}`, wantErr: true},
		{name: "multi select valid", tag: TypeMultiSelect, raw: `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"},{"key":"c","text":"Three"}],"correct":["a","c"]}`},
		{name: "multi select duplicate correct", tag: TypeMultiSelect, raw: `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":["a","a"]}`, wantErr: true},
		{name: "either or valid", tag: TypeEitherOr, raw: `{"option_a":"True","option_b":"False","correct":"a"}`},
		{name: "either or bad correct", tag: TypeEitherOr, raw: `{"option_a":"True","option_b":"False","correct":"c"}`, wantErr: true},
		{name: "invalid json", tag: TypeSingleChoice, raw: `{"choices":`, wantErr: true},
		{name: "unknown tag", tag: TypeTag("essay"), raw: `{}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode(tc.tag, json.RawMessage(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if p.Tag() != tc.tag {
				t.Fatalf("tag mismatch: got %s want %s", p.Tag(), tc.tag)
			}
		})
	}
}

func TestDecodeNormalizesKeys(t *testing.T) {
	p, err := Decode(TypeSingleChoice, json.RawMessage(`{"choices":[{"key":" a ","text":"One"},{"key":"b","text":"Two"}],"correct":" a "}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sc := p.(*SingleChoice)
	if sc.Correct != "A" {
		t.Fatalf("expected normalized correct key A, got %q", sc.Correct)
	}
	if sc.Choices[0].Key != "A" {
		t.Fatalf("expected normalized choice key A, got %q", sc.Choices[0].Key)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	p, err := Decode(TypeMultiSelect, json.RawMessage(`{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":["b"]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := Decode(TypeMultiSelect, raw)
	if err != nil {
		t.Fatalf("decode encoded: %v", err)
	}
	if ContentFingerprint("q", p) != ContentFingerprint("q", again) {
		t.Fatalf("round trip changed the content fingerprint")
	}
}
