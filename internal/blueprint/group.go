package blueprint

// group.go builds the two-level hierarchy (equipment -> section -> records).
//
// Grouping is a single pass over the records. Keys are created in first-seen
// order, and records sharing a primary+secondary pair keep their relative
// row order. Records missing a grouping key or the item name are skipped;
// their row numbers are reported so callers can tell the user about them.

// Hierarchy is the ordered grouping of records.
type Hierarchy struct {
	Groups []*PrimaryGroup
}

// PrimaryGroup holds the sections of one primary key.
type PrimaryGroup struct {
	Key      string
	Sections []*SecondaryGroup
}

// SecondaryGroup holds the records of one primary+secondary pair.
type SecondaryGroup struct {
	Key     string
	Records []Record
}

// GroupReport summarizes a grouping pass.
type GroupReport struct {
	Total   int   `json:"total"`   // Records considered
	Grouped int   `json:"grouped"` // Records placed in the hierarchy
	Skipped []int `json:"skipped"` // Record numbers of records missing a key or item name
}

// Group arranges records by schema.Primary then schema.Secondary.
func Group(records []Record, schema Schema) (*Hierarchy, GroupReport) {
	h := &Hierarchy{}
	report := GroupReport{Total: len(records)}

	primaries := make(map[string]*PrimaryGroup)
	secondaries := make(map[*PrimaryGroup]map[string]*SecondaryGroup)

	for _, rec := range records {
		pk := rec.Get(schema.Primary)
		sk := rec.Get(schema.Secondary)
		if pk == "" || sk == "" || rec.Get(schema.ItemName) == "" {
			report.Skipped = append(report.Skipped, rec.Row)
			continue
		}

		pg, ok := primaries[pk]
		if !ok {
			pg = &PrimaryGroup{Key: pk}
			primaries[pk] = pg
			secondaries[pg] = make(map[string]*SecondaryGroup)
			h.Groups = append(h.Groups, pg)
		}

		sg, ok := secondaries[pg][sk]
		if !ok {
			sg = &SecondaryGroup{Key: sk}
			secondaries[pg][sk] = sg
			pg.Sections = append(pg.Sections, sg)
		}

		sg.Records = append(sg.Records, rec)
		report.Grouped++
	}

	return h, report
}
