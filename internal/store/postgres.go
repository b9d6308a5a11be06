package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezabhm/slaughter-erp/internal/config"
	"github.com/rezabhm/slaughter-erp/internal/schema"
)

// Postgres stores each entity as one JSONB document table:
// erp_<collection>(id TEXT PK, doc JSONB, created_at, updated_at).
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}

// Bootstrap creates the document table for every registered entity plus the
// audit table. Idempotent.
func (p *Postgres) Bootstrap(ctx context.Context, reg *schema.Registry) error {
	for _, s := range reg.AllEntities() {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, tableName(s))
		if _, err := p.Pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("bootstrap %s: %w", s.Collection, err)
		}
	}

	auditDDL := `CREATE TABLE IF NOT EXISTS erp_audit_log (
		id BIGSERIAL PRIMARY KEY,
		actor TEXT NOT NULL,
		resource TEXT NOT NULL,
		verb TEXT NOT NULL,
		record_id TEXT,
		status INT NOT NULL,
		detail JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := p.Pool.Exec(ctx, auditDDL); err != nil {
		return fmt.Errorf("bootstrap audit log: %w", err)
	}
	return nil
}

func (p *Postgres) Filter(ctx context.Context, s *schema.EntitySchema, filters Filters, orderBy string) ([]map[string]any, error) {
	if orderBy == "" {
		orderBy = s.OrderBy
	}

	pb := &paramBuilder{}
	where, err := buildWhere(filters, pb)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT doc FROM %s%s ORDER BY doc->>%s", tableName(s), where, pb.Add(orderBy))
	rows, err := p.Pool.Query(ctx, sql, pb.params...)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", s.Name, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Name, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.Name, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, s *schema.EntitySchema, id string) (map[string]any, error) {
	var raw []byte
	sql := fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", tableName(s))
	if err := p.Pool.QueryRow(ctx, sql, id).Scan(&raw); err != nil {
		return nil, ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", s.Name, id, err)
	}
	return doc, nil
}

func (p *Postgres) Save(ctx context.Context, s *schema.EntitySchema, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Name, err)
	}
	id := fmt.Sprintf("%v", doc[s.PrimaryKey])
	sql := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, tableName(s))
	if _, err := p.Pool.Exec(ctx, sql, id, raw); err != nil {
		return fmt.Errorf("save %s/%s: %w", s.Name, id, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, s *schema.EntitySchema, id string) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", tableName(s))
	tag, err := p.Pool.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.Name, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func tableName(s *schema.EntitySchema) string {
	return "erp_" + s.Collection
}
