package blueprint

// session.go implements the editable in-memory model an operator works on
// between ingestion and submission.
//
// A Session is not safe for concurrent use. Callers that share one across
// goroutines (the web layer) serialize access themselves.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGroupNotFound is returned when a primary or secondary key does not exist.
	ErrGroupNotFound = errors.New("session group not found")

	// ErrItemNotFound is returned when an item index is out of range.
	ErrItemNotFound = errors.New("session item not found")

	// ErrFixedField is returned when an edit targets a fixed descriptive attribute.
	ErrFixedField = errors.New("field is fixed and cannot be edited")

	// ErrGroupingField is returned when an edit targets a grouping key.
	// Primary keys are changed with RenamePrimary.
	ErrGroupingField = errors.New("grouping field cannot be edited directly")

	// ErrUnknownField is returned when an edit names a field the item does not carry.
	ErrUnknownField = errors.New("unknown field")
)

// CollisionError is returned when a rename would duplicate an existing primary key.
type CollisionError struct {
	Name string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("equipment name %q already exists", e.Name)
}

// Item is one editable inspection item.
type Item struct {
	Primary   string            `json:"primary"`
	Secondary string            `json:"secondary"`
	Row       int               `json:"row"`             // Source record number; 0 for duplicates
	Fields    map[string]string `json:"fields"`          // Editable values
	Fixed     map[string]string `json:"fixed,omitempty"` // Captured at grouping time, read-only
}

func (it *Item) clone() *Item {
	c := *it
	c.Fields = cloneMap(it.Fields)
	c.Fixed = cloneMap(it.Fixed)
	return &c
}

// ItemRef addresses one item by its current primary key, section and position.
type ItemRef struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Index     int    `json:"index"`
}

// Session is the live editable state of a blueprint.
type Session struct {
	schema  Schema
	groups  []*sessionGroup
	renames map[string]string // original primary key -> current primary key
}

type sessionGroup struct {
	key      string
	origin   string
	sections []*sessionSection
}

type sessionSection struct {
	key   string
	items []*Item
}

// NewSession builds a session from a grouped hierarchy. Fixed attributes are
// split off each record here and never re-derived.
func NewSession(h *Hierarchy, schema Schema) *Session {
	s := &Session{
		schema:  schema,
		renames: make(map[string]string),
	}

	for _, pg := range h.Groups {
		g := &sessionGroup{key: pg.Key, origin: pg.Key}
		for _, sg := range pg.Sections {
			sec := &sessionSection{key: sg.Key}
			for _, rec := range sg.Records {
				sec.items = append(sec.items, s.newItem(pg.Key, sg.Key, rec))
			}
			g.sections = append(g.sections, sec)
		}
		s.groups = append(s.groups, g)
	}
	return s
}

func (s *Session) newItem(primary, secondary string, rec Record) *Item {
	it := &Item{
		Primary:   primary,
		Secondary: secondary,
		Row:       rec.Row,
		Fields:    make(map[string]string, len(rec.Fields)),
		Fixed:     make(map[string]string, len(s.schema.Fixed)),
	}
	// Every fixed attribute is present, "" when the file lacks the column.
	for _, k := range s.schema.Fixed {
		it.Fixed[k] = ""
	}
	for k, v := range rec.Fields {
		switch {
		case s.schema.isGroupingKey(k):
		case s.schema.isFixed(k):
			it.Fixed[k] = v
		default:
			it.Fields[k] = v
		}
	}
	return it
}

// Schema returns the schema the session was built with.
func (s *Session) Schema() Schema {
	return s.schema
}

// PrimaryKeys returns the current primary keys in display order.
func (s *Session) PrimaryKeys() []string {
	keys := make([]string, len(s.groups))
	for i, g := range s.groups {
		keys[i] = g.key
	}
	return keys
}

// Renames returns a copy of the rename table (original name -> current name).
func (s *Session) Renames() map[string]string {
	return cloneMap(s.renames)
}

// Count returns the total number of items in the session.
func (s *Session) Count() int {
	n := 0
	for _, g := range s.groups {
		for _, sec := range g.sections {
			n += len(sec.items)
		}
	}
	return n
}

// RenamePrimary changes a primary key and every item's copy of it.
//
// An empty or unchanged name is a no-op, so the caller keeps showing the
// previous value. A name already used by another group is rejected with a
// *CollisionError and nothing changes.
func (s *Session) RenamePrimary(oldName, newName string) error {
	newName = strings.TrimSpace(newName)

	g := s.group(oldName)
	if g == nil {
		return fmt.Errorf("rename %q: %w", oldName, ErrGroupNotFound)
	}
	if newName == "" || newName == oldName {
		return nil
	}
	if other := s.group(newName); other != nil && other != g {
		return &CollisionError{Name: newName}
	}

	g.key = newName
	for _, sec := range g.sections {
		for _, it := range sec.items {
			it.Primary = newName
		}
	}

	if newName == g.origin {
		delete(s.renames, g.origin)
	} else {
		s.renames[g.origin] = newName
	}
	return nil
}

// DeleteItem removes one item. A section left empty stays in place.
func (s *Session) DeleteItem(ref ItemRef) error {
	sec, err := s.section(ref)
	if err != nil {
		return err
	}
	if ref.Index < 0 || ref.Index >= len(sec.items) {
		return fmt.Errorf("delete %s/%s[%d]: %w", ref.Primary, ref.Secondary, ref.Index, ErrItemNotFound)
	}
	sec.items = append(sec.items[:ref.Index], sec.items[ref.Index+1:]...)
	return nil
}

// DuplicateItem appends an independent copy of an item to the end of its
// section and returns the copy's reference.
func (s *Session) DuplicateItem(ref ItemRef) (ItemRef, error) {
	sec, err := s.section(ref)
	if err != nil {
		return ItemRef{}, err
	}
	if ref.Index < 0 || ref.Index >= len(sec.items) {
		return ItemRef{}, fmt.Errorf("duplicate %s/%s[%d]: %w", ref.Primary, ref.Secondary, ref.Index, ErrItemNotFound)
	}

	dup := sec.items[ref.Index].clone()
	dup.Row = 0
	sec.items = append(sec.items, dup)

	return ItemRef{Primary: ref.Primary, Secondary: ref.Secondary, Index: len(sec.items) - 1}, nil
}

// EditField replaces one editable field of an item.
func (s *Session) EditField(ref ItemRef, field, value string) error {
	it, err := s.item(ref)
	if err != nil {
		return err
	}

	switch {
	case s.schema.isFixed(field):
		return fmt.Errorf("edit %q: %w", field, ErrFixedField)
	case s.schema.isGroupingKey(field):
		return fmt.Errorf("edit %q: %w", field, ErrGroupingField)
	}
	if _, ok := it.Fields[field]; !ok {
		return fmt.Errorf("edit %q: %w", field, ErrUnknownField)
	}

	it.Fields[field] = value
	return nil
}

// Item returns a copy of the addressed item.
func (s *Session) Item(ref ItemRef) (Item, error) {
	it, err := s.item(ref)
	if err != nil {
		return Item{}, err
	}
	return *it.clone(), nil
}

// Items returns copies of the items in one section.
func (s *Session) Items(primary, secondary string) ([]Item, error) {
	sec, err := s.section(ItemRef{Primary: primary, Secondary: secondary})
	if err != nil {
		return nil, err
	}
	out := make([]Item, len(sec.items))
	for i, it := range sec.items {
		out[i] = *it.clone()
	}
	return out, nil
}

// walk calls fn for every item in display order: primary keys as currently
// shown, sections in first-seen order, items in list order.
func (s *Session) walk(fn func(it *Item)) {
	for _, g := range s.groups {
		for _, sec := range g.sections {
			for _, it := range sec.items {
				fn(it)
			}
		}
	}
}

// SessionView is a detached snapshot of a session for rendering.
type SessionView struct {
	Groups  []GroupView       `json:"groups"`
	Renames map[string]string `json:"renames,omitempty"`
	Items   int               `json:"items"`
}

// GroupView is one primary key and its sections.
type GroupView struct {
	Name     string        `json:"name"`
	Sections []SectionView `json:"sections"`
}

// SectionView is one section and its items.
type SectionView struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Snapshot returns a copy of the current state. Edits made to the session
// afterwards do not show through.
func (s *Session) Snapshot() SessionView {
	view := SessionView{
		Groups:  make([]GroupView, 0, len(s.groups)),
		Renames: s.Renames(),
		Items:   s.Count(),
	}
	for _, g := range s.groups {
		gv := GroupView{Name: g.key, Sections: make([]SectionView, 0, len(g.sections))}
		for _, sec := range g.sections {
			sv := SectionView{Name: sec.key, Items: make([]Item, 0, len(sec.items))}
			for _, it := range sec.items {
				sv.Items = append(sv.Items, *it.clone())
			}
			gv.Sections = append(gv.Sections, sv)
		}
		view.Groups = append(view.Groups, gv)
	}
	return view
}

func (s *Session) group(key string) *sessionGroup {
	for _, g := range s.groups {
		if g.key == key {
			return g
		}
	}
	return nil
}

func (s *Session) section(ref ItemRef) (*sessionSection, error) {
	g := s.group(ref.Primary)
	if g == nil {
		return nil, fmt.Errorf("equipment %q: %w", ref.Primary, ErrGroupNotFound)
	}
	for _, sec := range g.sections {
		if sec.key == ref.Secondary {
			return sec, nil
		}
	}
	return nil, fmt.Errorf("section %q/%q: %w", ref.Primary, ref.Secondary, ErrGroupNotFound)
}

func (s *Session) item(ref ItemRef) (*Item, error) {
	sec, err := s.section(ref)
	if err != nil {
		return nil, err
	}
	if ref.Index < 0 || ref.Index >= len(sec.items) {
		return nil, fmt.Errorf("item %s/%s[%d]: %w", ref.Primary, ref.Secondary, ref.Index, ErrItemNotFound)
	}
	return sec.items[ref.Index], nil
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
