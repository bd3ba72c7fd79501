package blueprint

import "strings"

// Payload is the submission document built from a session.
// It shares no state with the session it came from.
type Payload struct {
	Name     string       `json:"name"`
	Override bool         `json:"override,omitempty"` // Serialized only when true
	Rows     []PayloadRow `json:"rows"`
}

// PayloadRow is one flattened item: grouping keys, fixed attributes and
// editable fields in a single map.
type PayloadRow map[string]string

// BuildPayload flattens the current session state.
//
// Rows follow display order. Each row carries the primary and secondary keys
// under their schema field names, then the fixed attributes, then the
// editable fields (an editable value wins when a name appears in both).
// An empty name fails with a *ValidationError and no payload is produced.
func BuildPayload(s *Session, name string, override bool) (*Payload, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "blueprint name is required"}
	}

	schema := s.Schema()
	p := &Payload{
		Name:     name,
		Override: override,
		Rows:     make([]PayloadRow, 0, s.Count()),
	}

	s.walk(func(it *Item) {
		row := make(PayloadRow, len(it.Fields)+len(it.Fixed)+2)
		for k, v := range it.Fixed {
			row[k] = v
		}
		for k, v := range it.Fields {
			row[k] = v
		}
		row[schema.Primary] = it.Primary
		row[schema.Secondary] = it.Secondary
		p.Rows = append(p.Rows, row)
	})

	return p, nil
}

// Validate re-checks a payload received over the wire.
func (p *Payload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "blueprint name is required"}
	}
	return nil
}

// Equipment returns the distinct primary keys of the payload in row order.
func (p *Payload) Equipment(schema Schema) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range p.Rows {
		k := row[schema.Primary]
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
