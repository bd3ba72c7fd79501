package blueprint

// tokenizer.go splits blueprint text into rows of fields.
//
// The rules are the subset of RFC 4180 that blueprint exports actually use:
//   - Fields are separated by ',' and rows by '\n' ("\r\n" and "\r" are
//     normalized first)
//   - A '"' toggles quoting; inside quotes ',' and '\n' are literal
//   - A doubled quote ("") inside quotes is one literal quote
//
// Tokenize never fails. An unterminated quote is closed by end of input and
// ragged rows are left for BuildRecords to reconcile against the header.

import "strings"

// lineBreaks normalizes Windows and classic Mac line endings to '\n'.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Tokenize converts raw text into rows of string fields.
// A terminal blank line does not produce a row; every other row is kept,
// including a final row without a trailing newline.
func Tokenize(text string) [][]string {
	text = lineBreaks.Replace(text)

	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
		quoted   bool // current field contained a quote
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			switch {
			case c == '"' && i+1 < len(text) && text[i+1] == '"':
				field.WriteByte('"')
				i++
			case c == '"':
				inQuotes = false
			default:
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
			quoted = true
		case ',':
			endField()
			quoted = false
		case '\n':
			endField()
			rows = append(rows, row)
			row = nil
			quoted = false
		default:
			field.WriteByte(c)
		}
	}

	// End of input closes any open quote.
	endField()
	if len(row) == 1 && row[0] == "" && !quoted {
		return rows
	}
	return append(rows, row)
}
