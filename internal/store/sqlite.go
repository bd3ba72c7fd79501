package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

// SQLiteStore keeps blueprints in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps per-connection pragmas in force and gives an
	// in-memory database a single shared instance.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations("sqlite")
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Exists reports whether a blueprint with this name is stored.
func (s *SQLiteStore) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pretrip_templates WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check blueprint name: %w", err)
	}
	return count > 0, nil
}

// Save writes a payload in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, p *blueprint.Payload) (SaveResult, error) {
	if err := validatePayload(p); err != nil {
		return SaveResult{}, err
	}
	var result SaveResult
	timestamp := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM pretrip_templates WHERE name = ?`, p.Name).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return result, fmt.Errorf("lookup blueprint: %w", err)
	case !p.Override:
		return result, ErrNameExists
	default:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pretrip_items WHERE id IN (SELECT item_id FROM template_items WHERE template_id = ?)`,
			existing,
		); err != nil {
			return result, fmt.Errorf("delete replaced items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pretrip_templates WHERE id = ?`, existing); err != nil {
			return result, fmt.Errorf("delete replaced blueprint: %w", err)
		}
		result.Replaced = true
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO pretrip_templates (name, equipment_type, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.Name, nullableString(equipmentType(p)), timestamp, timestamp,
	)
	if err != nil {
		return result, fmt.Errorf("insert blueprint: %w", err)
	}
	if result.TemplateID, err = res.LastInsertId(); err != nil {
		return result, fmt.Errorf("last insert id: %w", err)
	}

	for _, it := range itemsFromPayload(p) {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO pretrip_items (
                equipment, section, name, details, notes,
                boolean_field_required, numeric_field_required, date_field_required, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.Equipment,
			nullableString(it.Section),
			it.Name,
			nullableString(it.Details),
			nullableString(it.Notes),
			it.BooleanRequired,
			it.NumericRequired,
			it.DateRequired,
			timestamp,
		)
		if err != nil {
			return result, fmt.Errorf("insert item %d: %w", it.DisplayOrder, err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return result, fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_items (template_id, item_id, display_order) VALUES (?, ?, ?)`,
			result.TemplateID, itemID, it.DisplayOrder,
		); err != nil {
			return result, fmt.Errorf("link item %d: %w", it.DisplayOrder, err)
		}
		result.Items++
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("commit save: %w", err)
	}
	return result, nil
}

// Get returns a stored blueprint with its items in display order.
func (s *SQLiteStore) Get(ctx context.Context, name string) (*Template, error) {
	var (
		t         Template
		eqType    sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, equipment_type, created_at FROM pretrip_templates WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name, &eqType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blueprint: %w", err)
	}
	t.EquipmentType = eqType.String
	t.CreatedAt = parseTimestamp(createdAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT i.equipment, i.section, i.name, i.details, i.notes,
                i.boolean_field_required, i.numeric_field_required, i.date_field_required,
                ti.display_order
         FROM template_items ti
         JOIN pretrip_items i ON i.id = ti.item_id
         WHERE ti.template_id = ?
         ORDER BY ti.display_order`,
		t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get blueprint items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                      ItemRecord
			section, details, notes sql.NullString
		)
		if err := rows.Scan(&it.Equipment, &section, &it.Name, &details, &notes,
			&it.BooleanRequired, &it.NumericRequired, &it.DateRequired, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Section, it.Details, it.Notes = section.String, details.String, notes.String
		t.Items = append(t.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return &t, nil
}

// List returns summaries of all stored blueprints ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.equipment_type, t.created_at, COUNT(ti.item_id)
         FROM pretrip_templates t
         LEFT JOIN template_items ti ON ti.template_id = t.id
         GROUP BY t.id, t.name, t.equipment_type, t.created_at
         ORDER BY t.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			eqType    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &eqType, &createdAt, &sum.Items); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.EquipmentType = eqType.String
		sum.CreatedAt = parseTimestamp(createdAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
