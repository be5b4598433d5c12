package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/apperr"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/wizard"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	productColumns   = `id, merchant_id, code, name, is_active, created_at, updated_at`
	attributeColumns = `id, product_id, name, sort_order, is_variant_defining, created_at, updated_at`
	variantColumns   = `id, product_id, name, code, is_default, is_active, is_verified, created_at, updated_at`
)

// SQLRepository stores the catalog through sqlx. Queries are written with
// "?" placeholders and rebound for the driver in use, so the same code runs
// on postgres and sqlite3.
type SQLRepository struct {
	DB *sqlx.DB

	ext sqlx.ExtContext
	tx  *sqlx.Tx // set on the copy handed out by WithinTx
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db, ext: db}
}

// WithinTx runs fn against a copy of the repository bound to one
// transaction. Nested calls reuse the open transaction.
func (r *SQLRepository) WithinTx(ctx context.Context, fn func(wizard.Catalog) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&SQLRepository{DB: r.DB, ext: tx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// inTx runs fn in the current transaction, or in a new one.
func (r *SQLRepository) inTx(ctx context.Context, fn func(ext sqlx.ExtContext) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := r.ext.Rebind(`INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.ext.ExecContext(ctx, query, p.ID, p.MerchantID, p.Code, p.Name, p.IsActive, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *SQLRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	query := r.ext.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? LIMIT 1`)
	if err := sqlx.GetContext(ctx, r.ext, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *SQLRepository) CreateAttributeDefinition(ctx context.Context, d *model.AttributeDefinition) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	query := r.ext.Rebind(`INSERT INTO attribute_definitions (` + attributeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.ext.ExecContext(ctx, query, d.ID, d.ProductID, d.Name, d.SortOrder, d.IsVariantDefining, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *SQLRepository) ListAttributeDefinitions(ctx context.Context, productID string) ([]model.AttributeDefinition, error) {
	defs := []model.AttributeDefinition{}
	query := r.ext.Rebind(`SELECT ` + attributeColumns + ` FROM attribute_definitions
		WHERE product_id = ? ORDER BY sort_order, created_at, id`)
	if err := sqlx.SelectContext(ctx, r.ext, &defs, query, productID); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *SQLRepository) SetAttributeVariantDefining(ctx context.Context, attributeID string, defining bool) error {
	query := r.ext.Rebind(`UPDATE attribute_definitions SET is_variant_defining = ?, updated_at = ? WHERE id = ?`)
	res, err := r.ext.ExecContext(ctx, query, defining, time.Now().UTC(), attributeID)
	if err != nil {
		return err
	}
	return expectRow(res, "attribute definition "+attributeID+" not found")
}

func (r *SQLRepository) GetVariantAttributeValues(ctx context.Context, variantID string) (map[string]string, error) {
	var rows []model.VariantAttributeValue
	query := r.ext.Rebind(`SELECT variant_id, attribute_definition_id, value
		FROM variant_attribute_values WHERE variant_id = ?`)
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, variantID); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.AttributeDefinitionID] = row.Value
	}
	return values, nil
}

// BulkUpsertAttributeValues writes every value in one transaction. Writing
// the same values twice leaves the rows unchanged.
func (r *SQLRepository) BulkUpsertAttributeValues(ctx context.Context, variantID string, values []model.VariantAttributeValue) error {
	if len(values) == 0 {
		return nil
	}
	return r.inTx(ctx, func(ext sqlx.ExtContext) error {
		query := ext.Rebind(`INSERT INTO variant_attribute_values (variant_id, attribute_definition_id, value)
			VALUES (?, ?, ?)
			ON CONFLICT (variant_id, attribute_definition_id) DO UPDATE SET value = excluded.value`)
		for _, av := range values {
			if _, err := ext.ExecContext(ctx, query, variantID, av.AttributeDefinitionID, av.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLRepository) ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	return r.FindVariants(ctx, &dto.VariantFilters{ProductID: productID})
}

func (r *SQLRepository) FindVariants(ctx context.Context, f *dto.VariantFilters) ([]model.ProductVariant, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.OnlyActive {
		conditions = append(conditions, "is_active = ?")
		args = append(args, true)
	}
	if f.OnlyVerified {
		conditions = append(conditions, "is_verified = ?")
		args = append(args, true)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	variants := []model.ProductVariant{}
	query := r.ext.Rebind(`SELECT ` + variantColumns + ` FROM product_variants` + whereClause + ` ORDER BY created_at, id`)
	if err := sqlx.SelectContext(ctx, r.ext, &variants, query, args...); err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *SQLRepository) GetVariant(ctx context.Context, id string) (*model.ProductVariant, error) {
	return getVariant(ctx, r.ext, id)
}

func getVariant(ctx context.Context, q sqlx.ExtContext, id string) (*model.ProductVariant, error) {
	var v model.ProductVariant
	query := q.Rebind(`SELECT ` + variantColumns + ` FROM product_variants WHERE id = ? LIMIT 1`)
	if err := sqlx.GetContext(ctx, q, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// CreateVariant inserts a new active, unverified variant. A default variant
// takes the flag from its siblings in the same transaction.
func (r *SQLRepository) CreateVariant(ctx context.Context, in *dto.CreateVariantInput) (*model.ProductVariant, error) {
	now := time.Now().UTC()
	v := &model.ProductVariant{
		BaseModel: model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		ProductID: in.ProductID,
		Name:      in.Name,
		Code:      in.Code,
		IsDefault: in.IsDefault,
		IsActive:  true,
	}

	err := r.inTx(ctx, func(ext sqlx.ExtContext) error {
		if v.IsDefault {
			if err := clearDefaults(ctx, ext, v.ProductID, v.ID, now); err != nil {
				return err
			}
		}
		query := ext.Rebind(`INSERT INTO product_variants (` + variantColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		_, err := ext.ExecContext(ctx, query,
			v.ID, v.ProductID, v.Name, v.Code, v.IsDefault, v.IsActive, v.IsVerified, v.CreatedAt, v.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, mapConstraintErr(err, in.Code)
	}
	return v, nil
}

// UpdateVariant changes name, code and the default flag. is_active and
// is_verified are left alone.
func (r *SQLRepository) UpdateVariant(ctx context.Context, in *dto.UpdateVariantInput) (*model.ProductVariant, error) {
	now := time.Now().UTC()
	var out *model.ProductVariant

	err := r.inTx(ctx, func(ext sqlx.ExtContext) error {
		if in.IsDefault {
			if err := clearDefaults(ctx, ext, in.ProductID, in.ID, now); err != nil {
				return err
			}
		}
		query := ext.Rebind(`UPDATE product_variants
			SET name = ?, code = ?, is_default = ?, updated_at = ?
			WHERE id = ? AND product_id = ?`)
		res, err := ext.ExecContext(ctx, query, in.Name, in.Code, in.IsDefault, now, in.ID, in.ProductID)
		if err != nil {
			return err
		}
		if err := expectRow(res, "variant "+in.ID+" not found"); err != nil {
			return err
		}
		out, err = getVariant(ctx, ext, in.ID)
		return err
	})
	if err != nil {
		return nil, mapConstraintErr(err, in.Code)
	}
	return out, nil
}

func (r *SQLRepository) SetVariantVerified(ctx context.Context, variantID string, verified bool) error {
	query := r.ext.Rebind(`UPDATE product_variants SET is_verified = ?, updated_at = ? WHERE id = ?`)
	res, err := r.ext.ExecContext(ctx, query, verified, time.Now().UTC(), variantID)
	if err != nil {
		return err
	}
	return expectRow(res, "variant "+variantID+" not found")
}

func clearDefaults(ctx context.Context, ext sqlx.ExtContext, productID, keepID string, now time.Time) error {
	query := ext.Rebind(`UPDATE product_variants SET is_default = ?, updated_at = ?
		WHERE product_id = ? AND id <> ? AND is_default = ?`)
	_, err := ext.ExecContext(ctx, query, false, now, productID, keepID, true)
	return err
}

func expectRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundErr(notFound)
	}
	return nil
}

// mapConstraintErr turns a unique violation on (product_id, code) into a
// collision so callers see the same error the wizard raises itself.
func mapConstraintErr(err error, code string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperr.CollisionErr(code)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return apperr.CollisionErr(code)
	}
	return err
}

var _ variant.Repository = (*SQLRepository)(nil)
