package content

import (
	"encoding/json"
	"testing"
)

func mustDecode(t *testing.T, tag TypeTag, raw string) Payload {
	t.Helper()
	p, err := Decode(tag, json.RawMessage(raw))
	if err != nil {
		t.Fatalf("decode %s: %v", tag, err)
	}
	return p
}

func TestFingerprintStable(t *testing.T) {
	p := mustDecode(t, TypeSingleChoice, `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":"a"}`)
	q := mustDecode(t, TypeSingleChoice, `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":"a"}`)
	if Fingerprint("What is 1?", "Because.", p) != Fingerprint("What is 1?", "Because.", q) {
		t.Fatalf("identical content produced different fingerprints")
	}
}

func TestFingerprintWhitespaceInsensitive(t *testing.T) {
	p := mustDecode(t, TypeShortText, `{"answer":"osmosis"}`)
	a := ContentFingerprint("Water moves  across a\n membrane by?", p)
	b := ContentFingerprint("Water moves across a membrane by?", p)
	if a != b {
		t.Fatalf("whitespace reflow changed the content fingerprint")
	}
}

func TestFingerprintCorrectAnswerChanges(t *testing.T) {
	p := mustDecode(t, TypeSingleChoice, `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":"a"}`)
	q := mustDecode(t, TypeSingleChoice, `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"}],"correct":"b"}`)
	if ContentFingerprint("Pick one", p) == ContentFingerprint("Pick one", q) {
		t.Fatalf("changing the correct answer must change the content fingerprint")
	}
}

func TestFingerprintOrderInsensitiveSets(t *testing.T) {
	p := mustDecode(t, TypeMultiSelect, `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"},{"key":"c","text":"Three"}],"correct":["a","c"]}`)
	q := mustDecode(t, TypeMultiSelect, `{"choices":[{"key":"a","text":"One"},{"key":"b","text":"Two"},{"key":"c","text":"Three"}],"correct":["c","a"]}`)
	if ContentFingerprint("Pick some", p) != ContentFingerprint("Pick some", q) {
		t.Fatalf("correct-set order should not affect the fingerprint")
	}

	d := mustDecode(t, TypeDragAndDrop, `{"zones":[{"label":"x","members":["m1","m2"]},{"label":"y","members":["m3"]}]}`)
	e := mustDecode(t, TypeDragAndDrop, `{"zones":[{"label":"y","members":["m3"]},{"label":"x","members":["m2","m1"]}]}`)
	if ContentFingerprint("Sort them", d) != ContentFingerprint("Sort them", e) {
		t.Fatalf("zone and member order should not affect the fingerprint")
	}
}

func TestFingerprintFieldBoundariesNotForgeable(t *testing.T) {
	// Two genuinely different payloads whose unescaped canonical renderings
	// would be byte-identical: the single blank's label embeds what looks
	// like the field lines of a second blank.
	twoBlanks := mustDecode(t, TypeSelectFromList,
		`{"blanks":[{"label":"A","options":["x","y"],"correct":"x"},{"label":"B","options":["p","q"],"correct":"p"}]}`)
	forgedLabel := mustDecode(t, TypeSelectFromList,
		`{"blanks":[{"label":"A\noptions=x\u001fy\ncorrect=x\nblank=B","options":["p","q"],"correct":"p"}]}`)
	if ContentFingerprint("Fill in", twoBlanks) == ContentFingerprint("Fill in", forgedLabel) {
		t.Fatalf("a label embedding field syntax must not collide with a real second blank")
	}
}

func TestFingerprintSetSeparatorNotForgeable(t *testing.T) {
	joined := mustDecode(t, TypeNumericEntry, `{"answer":"1","alternates":["a\u001fb"]}`)
	split := mustDecode(t, TypeNumericEntry, `{"answer":"1","alternates":["a","b"]}`)
	if ContentFingerprint("How many?", joined) == ContentFingerprint("How many?", split) {
		t.Fatalf("an alternate containing the set separator must not collide with two alternates")
	}
}

func TestExplanationOnlyChangeKeepsContentFingerprint(t *testing.T) {
	p := mustDecode(t, TypeNumericEntry, `{"answer":"3.14"}`)
	if Fingerprint("Approximate pi", "old explanation", p) == Fingerprint("Approximate pi", "new explanation", p) {
		t.Fatalf("explanation change must change the full fingerprint")
	}
	if ContentFingerprint("Approximate pi", p) != ContentFingerprint("Approximate pi", p) {
		t.Fatalf("content fingerprint must ignore the explanation")
	}
}
