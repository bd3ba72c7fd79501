package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PoolConfig holds connection pool sizing.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PostgresStore keeps blueprints in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects a pool, verifies it, and applies migrations.
func OpenPostgres(ctx context.Context, url string, cfg PoolConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.applyMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations("postgres")
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.version).Scan(&applied); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if applied {
			continue
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Exists reports whether a blueprint with this name is stored.
func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, s.pool, name)
}

func exists(ctx context.Context, db DBTX, name string) (bool, error) {
	var found bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pretrip_templates WHERE name = $1)`, name).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check blueprint name: %w", err)
	}
	return found, nil
}

// Save writes a payload in one transaction.
func (s *PostgresStore) Save(ctx context.Context, p *blueprint.Payload) (SaveResult, error) {
	if err := validatePayload(p); err != nil {
		return SaveResult{}, err
	}
	var result SaveResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the name so a concurrent override cannot interleave.
	var existing int64
	err = tx.QueryRow(ctx, `SELECT id FROM pretrip_templates WHERE name = $1 FOR UPDATE`, p.Name).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return result, fmt.Errorf("lookup blueprint: %w", err)
	case !p.Override:
		return result, ErrNameExists
	default:
		if _, err := tx.Exec(ctx,
			`DELETE FROM pretrip_items WHERE id IN (SELECT item_id FROM template_items WHERE template_id = $1)`,
			existing,
		); err != nil {
			return result, fmt.Errorf("delete replaced items: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pretrip_templates WHERE id = $1`, existing); err != nil {
			return result, fmt.Errorf("delete replaced blueprint: %w", err)
		}
		result.Replaced = true
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO pretrip_templates (name, equipment_type) VALUES ($1, $2) RETURNING id`,
		p.Name, ToPgText(equipmentType(p)),
	).Scan(&result.TemplateID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return SaveResult{}, ErrNameExists
		}
		return result, fmt.Errorf("insert blueprint: %w", err)
	}

	for _, it := range itemsFromPayload(p) {
		var itemID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO pretrip_items (
                equipment, section, name, details, notes,
                boolean_field_required, numeric_field_required, date_field_required
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			it.Equipment,
			ToPgText(it.Section),
			it.Name,
			ToPgText(it.Details),
			ToPgText(it.Notes),
			it.BooleanRequired,
			it.NumericRequired,
			it.DateRequired,
		).Scan(&itemID)
		if err != nil {
			return result, fmt.Errorf("insert item %d: %w", it.DisplayOrder, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO template_items (template_id, item_id, display_order) VALUES ($1, $2, $3)`,
			result.TemplateID, itemID, it.DisplayOrder,
		); err != nil {
			return result, fmt.Errorf("link item %d: %w", it.DisplayOrder, err)
		}
		result.Items++
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveResult{}, fmt.Errorf("commit save: %w", err)
	}
	return result, nil
}

// Get returns a stored blueprint with its items in display order.
func (s *PostgresStore) Get(ctx context.Context, name string) (*Template, error) {
	var (
		t      Template
		eqType pgtype.Text
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, equipment_type, created_at FROM pretrip_templates WHERE name = $1`, name,
	).Scan(&t.ID, &t.Name, &eqType, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blueprint: %w", err)
	}
	t.EquipmentType = FromPgText(eqType)

	rows, err := s.pool.Query(ctx,
		`SELECT i.equipment, i.section, i.name, i.details, i.notes,
                i.boolean_field_required, i.numeric_field_required, i.date_field_required,
                ti.display_order
         FROM template_items ti
         JOIN pretrip_items i ON i.id = ti.item_id
         WHERE ti.template_id = $1
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
			section, details, notes pgtype.Text
		)
		if err := rows.Scan(&it.Equipment, &section, &it.Name, &details, &notes,
			&it.BooleanRequired, &it.NumericRequired, &it.DateRequired, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Section, it.Details, it.Notes = FromPgText(section), FromPgText(details), FromPgText(notes)
		t.Items = append(t.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return &t, nil
}

// List returns summaries of all stored blueprints ordered by name.
func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name, t.equipment_type, t.created_at, COUNT(ti.item_id)
         FROM pretrip_templates t
         LEFT JOIN template_items ti ON ti.template_id = t.id
         GROUP BY t.id
         ORDER BY t.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum    Summary
			eqType pgtype.Text
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &eqType, &sum.CreatedAt, &sum.Items); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.EquipmentType = FromPgText(eqType)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}
