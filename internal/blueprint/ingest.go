package blueprint

// ingest.go wires the pipeline stages together.

// Parsed is a tokenized blueprint file.
type Parsed struct {
	Headers   []string // Normalized header row, positional placeholders not applied
	Records   []Record
	EmptyRows []int // Record numbers of all-blank rows
}

// Parse tokenizes text and builds records. Blank rows above the header are
// skipped; it fails only when no non-blank row exists.
func Parse(text string) (*Parsed, error) {
	rows := Tokenize(text)
	start := 0
	for start < len(rows) && isBlankRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrEmptyFile
	}

	headers := NormalizeHeaders(rows[start])
	records, empty := buildRecords(headers, rows[start+1:], start+2)

	return &Parsed{
		Headers:   headers,
		Records:   records,
		EmptyRows: empty,
	}, nil
}

// Result is the outcome of a successful ingestion.
type Result struct {
	Session   *Session
	Headers   []string
	Report    GroupReport
	EmptyRows []int
}

// Ingest runs the whole pipeline: parse, validate the header against
// schema.Required, group, and wrap the hierarchy in a session. A header
// missing required columns stops the pipeline before grouping with a
// *MissingColumnsError.
func Ingest(text string, schema Schema) (*Result, error) {
	parsed, err := Parse(text)
	if err != nil {
		return nil, err
	}

	if err := ValidateColumns(parsed.Headers, schema.Required).Err(); err != nil {
		return nil, err
	}

	return Assemble(parsed, schema), nil
}

// Assemble groups already-validated records into a session. Callers that
// validate the header elsewhere (a remote validation exchange) use this
// instead of Ingest.
func Assemble(parsed *Parsed, schema Schema) *Result {
	h, report := Group(parsed.Records, schema)
	return &Result{
		Session:   NewSession(h, schema),
		Headers:   parsed.Headers,
		Report:    report,
		EmptyRows: parsed.EmptyRows,
	}
}
