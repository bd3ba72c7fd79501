package blueprint

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader canonicalizes one column name: surrounding whitespace is
// trimmed, the name is composed (NFC) and lowercased, and each internal run
// of whitespace becomes a single underscore.
//
//	NormalizeHeader("  Inspection   Item ") == "inspection_item"
//
// Normalizing an already-normalized name returns it unchanged.
func NormalizeHeader(h string) string {
	// cases.Caser is stateful, so one is created per call. Lower, unlike
	// Fold, maps Cherokee to its lowercase block and stays put on a rerun.
	lowered := cases.Lower(language.Und).String(norm.NFC.String(h))
	return strings.Join(strings.Fields(lowered), "_")
}

// NormalizeHeaders normalizes a header row. Empty names stay empty here;
// BuildRecords replaces them with positional placeholders.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeHeader(h)
	}
	return out
}

// HeaderSet returns the distinct non-empty names of a normalized header row.
func HeaderSet(headers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}
