package blueprint

// Schema describes how blueprint columns are interpreted.
type Schema struct {
	Primary   string   // Top-level grouping field
	Secondary string   // Nested grouping field
	ItemName  string   // Field every item must carry
	Required  []string // Columns that must exist in the header, in report order
	Optional  []string // Known columns that may be absent
	Fixed     []string // Attributes captured at grouping time and never edited
}

// Column names used by pretrip blueprint exports.
const (
	ColEquipment       = "equipment"
	ColSection         = "section"
	ColInspectionItem  = "inspection_item"
	ColPassFail        = "pass_fail"
	ColNumericRequired = "numeric_required"
	ColDateRequired    = "date_required"
	ColDetails         = "details"
	ColNotes           = "notes"
	ColNumeric         = "numeric"
	ColDate            = "date"
)

// DefaultSchema returns the pretrip blueprint schema.
// numeric and date hold baseline result values; they are carried through as
// fixed attributes rather than edited.
func DefaultSchema() Schema {
	return Schema{
		Primary:   ColEquipment,
		Secondary: ColSection,
		ItemName:  ColInspectionItem,
		Required: []string{
			ColEquipment,
			ColSection,
			ColInspectionItem,
			ColPassFail,
			ColNumericRequired,
			ColDateRequired,
		},
		Optional: []string{ColDetails, ColNotes},
		Fixed:    []string{ColPassFail, ColNumeric, ColDate},
	}
}

// WithRequired returns a copy of s with a different required-column set.
// Names are normalized; an empty list leaves the set unchanged.
func (s Schema) WithRequired(cols []string) Schema {
	if len(cols) == 0 {
		return s
	}
	required := make([]string, 0, len(cols))
	for _, c := range cols {
		if n := NormalizeHeader(c); n != "" {
			required = append(required, n)
		}
	}
	s.Required = required
	return s
}

// isFixed reports whether name is a fixed descriptive attribute.
func (s Schema) isFixed(name string) bool {
	for _, f := range s.Fixed {
		if f == name {
			return true
		}
	}
	return false
}

// isGroupingKey reports whether name is the primary or secondary key field.
func (s Schema) isGroupingKey(name string) bool {
	return name == s.Primary || name == s.Secondary
}
