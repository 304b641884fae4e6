package content

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint hashes every semantically significant field of a version:
// question text, the type-specific payload, and the source-provided
// explanation. Two versions with equal fingerprints carry the same content
// and need no new revision.
func Fingerprint(questionHTML, explanationHTML string, p Payload) string {
	var sb strings.Builder
	writeContentFields(&sb, questionHTML, p)
	sb.WriteString("explanation=")
	sb.WriteString(normalizeText(explanationHTML))
	sb.WriteByte('\n')
	return digest(sb.String())
}

// ContentFingerprint hashes only the fields a hand-written explanation
// explains: question text and the type-specific payload. When it is
// unchanged across versions, a curated explanation stays valid and is
// carried forward.
func ContentFingerprint(questionHTML string, p Payload) string {
	var sb strings.Builder
	writeContentFields(&sb, questionHTML, p)
	return digest(sb.String())
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeContentFields(sb *strings.Builder, questionHTML string, p Payload) {
	sb.WriteString("type=")
	sb.WriteString(string(p.Tag()))
	sb.WriteByte('\n')
	sb.WriteString("text=")
	sb.WriteString(normalizeText(questionHTML))
	sb.WriteByte('\n')

	switch v := p.(type) {
	case *SingleChoice:
		writeChoices(sb, v.Choices)
		writeField(sb, "correct", v.Correct)
	case *NumericEntry:
		writeField(sb, "answer", v.Answer)
		writeSet(sb, "alternates", v.Alternates)
	case *ShortText:
		writeField(sb, "answer", v.Answer)
		writeSet(sb, "alternates", v.Alternates)
		if v.CaseSensitive {
			writeField(sb, "case_sensitive", "1")
		} else {
			writeField(sb, "case_sensitive", "0")
		}
	case *SelectFromList:
		for _, b := range v.Blanks {
			writeField(sb, "blank", b.Label)
			writeSet(sb, "options", b.Options)
			writeField(sb, "correct", b.Correct)
		}
	case *DragAndDrop:
		zones := make([]Zone, len(v.Zones))
		copy(zones, v.Zones)
		sort.Slice(zones, func(i, j int) bool { return zones[i].Label < zones[j].Label })
		for _, z := range zones {
			writeField(sb, "zone", z.Label)
			writeSet(sb, "members", z.Members)
		}
	case *MultiSelect:
		writeChoices(sb, v.Choices)
		writeSet(sb, "correct", v.Correct)
	case *EitherOr:
		writeField(sb, "option_a", normalizeText(v.OptionA))
		writeField(sb, "option_b", normalizeText(v.OptionB))
		writeField(sb, "correct", v.Correct)
	}
}

func writeChoices(sb *strings.Builder, choices []Choice) {
	for _, c := range choices {
		writeField(sb, "choice:"+c.Key, normalizeText(c.Text))
	}
}

// Keys and values are quoted so an embedded newline or separator byte in a
// label cannot forge field boundaries in the canonical form.
func writeField(sb *strings.Builder, key, value string) {
	sb.WriteString(strconv.Quote(key))
	sb.WriteByte('=')
	sb.WriteString(strconv.Quote(value))
	sb.WriteByte('\n')
}

// writeSet renders order-insensitive collections deterministically.
func writeSet(sb *strings.Builder, key string, values []string) {
	sorted := make([]string, len(values))
	for i, v := range values {
		sorted[i] = strconv.Quote(v)
	}
	sort.Strings(sorted)
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(strings.Join(sorted, "\x1f"))
	sb.WriteByte('\n')
}

// normalizeText collapses insignificant whitespace so cosmetic reflows in
// the authoring tool do not register as content changes.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
