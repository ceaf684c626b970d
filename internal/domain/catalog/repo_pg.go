package catalog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinimetric/clinimetric/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// scaleRepoPG stores each definition as a JSONB document alongside the
// columns the catalog queries by. The document is the source of truth for
// items, vocabularies, subscales and rules.
type scaleRepoPG struct{ pool *pgxpool.Pool }

func NewScaleRepoPG(pool *pgxpool.Pool) ScaleRepository {
	return &scaleRepoPG{pool: pool}
}

func (r *scaleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const scaleCols = `id, code, published, definition, created_at, updated_at`

func (r *scaleRepoPG) scanScale(row pgx.Row) (*ScaleDefinition, error) {
	var (
		d   ScaleDefinition
		doc []byte
	)
	if err := row.Scan(&d.ID, &d.Code, &d.Published, &doc, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	// The document carries the nested structure; the scanned columns win for
	// identity and lifecycle fields.
	id, code, published, createdAt, updatedAt := d.ID, d.Code, d.Published, d.CreatedAt, d.UpdatedAt
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, err
	}
	d.ID, d.Code, d.Published, d.CreatedAt, d.UpdatedAt = id, code, published, createdAt, updatedAt
	return &d, nil
}

func (r *scaleRepoPG) Create(ctx context.Context, d *ScaleDefinition) error {
	d.ID = uuid.New()
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO scale_definition (id, code, published, definition)
		VALUES ($1, $2, $3, $4)`,
		d.ID, d.Code, d.Published, doc)
	return err
}

func (r *scaleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScaleDefinition, error) {
	return r.scanScale(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scaleCols+` FROM scale_definition WHERE id = $1`, id))
}

func (r *scaleRepoPG) GetByCode(ctx context.Context, code string) (*ScaleDefinition, error) {
	return r.scanScale(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scaleCols+` FROM scale_definition WHERE code = $1`, code))
}

func (r *scaleRepoPG) Update(ctx context.Context, d *ScaleDefinition) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE scale_definition
		SET code = $2, published = $3, definition = $4, updated_at = NOW()
		WHERE id = $1`,
		d.ID, d.Code, d.Published, doc)
	return err
}

func (r *scaleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM scale_definition WHERE id = $1`, id)
	return err
}

func (r *scaleRepoPG) List(ctx context.Context, limit, offset int) ([]*ScaleDefinition, int, error) {
	return r.list(ctx, ``, limit, offset)
}

func (r *scaleRepoPG) ListPublished(ctx context.Context, limit, offset int) ([]*ScaleDefinition, int, error) {
	return r.list(ctx, `WHERE published`, limit, offset)
}

func (r *scaleRepoPG) list(ctx context.Context, where string, limit, offset int) ([]*ScaleDefinition, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM scale_definition `+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scaleCols+` FROM scale_definition `+where+` ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ScaleDefinition
	for rows.Next() {
		d, err := r.scanScale(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}
