// Package store persists submitted blueprints.
//
// A blueprint becomes one pretrip_templates row, one pretrip_items row per
// payload row, and template_items links carrying display order. Two backends
// share this layout: PostgreSQL through pgx for production and SQLite through
// modernc.org/sqlite for single-node and test use.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

// ErrNameExists is returned by Save when a blueprint with the same name is
// stored and the payload does not ask for an override.
var ErrNameExists = errors.New("blueprint name already exists")

// ErrNotFound is returned when a named blueprint does not exist.
var ErrNotFound = errors.New("blueprint not found")

// Store is the persistence contract used by the web layer.
type Store interface {
	// Exists reports whether a blueprint with this name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Save writes a payload in one transaction. With Override set, an
	// existing blueprint of the same name is replaced; without it,
	// ErrNameExists is returned and nothing is written.
	Save(ctx context.Context, p *blueprint.Payload) (SaveResult, error)

	// Get returns a stored blueprint with its items in display order.
	Get(ctx context.Context, name string) (*Template, error)

	// List returns summaries of all stored blueprints ordered by name.
	List(ctx context.Context) ([]Summary, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// SaveResult describes a completed Save.
type SaveResult struct {
	TemplateID int64 `json:"template_id"`
	Items      int   `json:"items"`
	Replaced   bool  `json:"replaced"`
}

// Summary is one row of List.
type Summary struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	EquipmentType string    `json:"equipment_type,omitempty"`
	Items         int       `json:"items"`
	CreatedAt     time.Time `json:"created_at"`
}

// Template is a stored blueprint.
type Template struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	EquipmentType string       `json:"equipment_type,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	Items         []ItemRecord `json:"items"`
}

// ItemRecord is one stored inspection item.
type ItemRecord struct {
	Equipment       string `json:"equipment"`
	Section         string `json:"section"`
	Name            string `json:"name"`
	Details         string `json:"details,omitempty"`
	Notes           string `json:"notes,omitempty"`
	BooleanRequired bool   `json:"boolean_field_required"`
	NumericRequired bool   `json:"numeric_field_required"`
	DateRequired    bool   `json:"date_field_required"`
	DisplayOrder    int    `json:"display_order"`
}

// itemsFromPayload maps payload rows onto item columns in row order.
func itemsFromPayload(p *blueprint.Payload) []ItemRecord {
	items := make([]ItemRecord, 0, len(p.Rows))
	for i, row := range p.Rows {
		items = append(items, ItemRecord{
			Equipment:       strings.TrimSpace(row[blueprint.ColEquipment]),
			Section:         strings.TrimSpace(row[blueprint.ColSection]),
			Name:            strings.TrimSpace(row[blueprint.ColInspectionItem]),
			Details:         strings.TrimSpace(row[blueprint.ColDetails]),
			Notes:           strings.TrimSpace(row[blueprint.ColNotes]),
			BooleanRequired: ParseBool(row[blueprint.ColPassFail]),
			NumericRequired: ParseBool(row[blueprint.ColNumericRequired]),
			DateRequired:    ParseBool(row[blueprint.ColDateRequired]),
			DisplayOrder:    i,
		})
	}
	return items
}

// equipmentType summarizes the distinct equipment names of a payload.
func equipmentType(p *blueprint.Payload) string {
	return strings.Join(p.Equipment(blueprint.DefaultSchema()), ", ")
}

// validatePayload rejects payloads that cannot be stored.
func validatePayload(p *blueprint.Payload) error {
	if p == nil {
		return &blueprint.ValidationError{Field: "payload", Message: "payload is required"}
	}
	return p.Validate()
}
