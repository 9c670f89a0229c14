package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bilawal506/online-mart/internal/domain"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const productColumns = "id, name, price, description, category"

// productFilterFields lists the columns GetProductsByField may filter on. The
// value is interpolated into SQL, so nothing else is accepted.
var productFilterFields = map[string]string{
	"category": "category",
	"name":     "name",
}

type ProductRepositoryImpl struct {
	db *sqlx.DB
}

func CreateNewProductRepository(db *sqlx.DB) *ProductRepositoryImpl {
	return &ProductRepositoryImpl{db: db}
}

// UpsertProduct inserts the product or overwrites every column of the row with
// the same id, so replaying a CREATE leaves exactly one row.
func (r *ProductRepositoryImpl) UpsertProduct(ctx context.Context, data domain.Product) (err error) {
	_, err = r.db.NamedExecContext(ctx, `INSERT INTO products (id, name, price, description, category)
		VALUES (:id, :name, :price, :description, :category)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			description = excluded.description,
			category = excluded.category`, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "UpsertProduct").Int64("id", data.ID).Msg("")
		return fmt.Errorf("upsert product %d: %w", data.ID, err)
	}

	return nil
}

func (r *ProductRepositoryImpl) GetProductByID(ctx context.Context, id int64) (data domain.Product, err error) {
	query := r.db.Rebind("SELECT " + productColumns + " FROM products WHERE id = ?")
	err = r.db.GetContext(ctx, &data, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return data, errs.ErrProductNotFound
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProductByID").Msg("")
		return data, fmt.Errorf("get product %d: %w", id, err)
	}

	return data, nil
}

func (r *ProductRepositoryImpl) GetProducts(ctx context.Context, filter pkgdto.Filter) (data []domain.Product, err error) {
	query := "SELECT " + productColumns + " FROM products ORDER BY id"
	args := []interface{}{}

	if offset := filter.Offset(); offset >= 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, offset)
	}

	data = []domain.Product{}
	err = r.db.SelectContext(ctx, &data, r.db.Rebind(query), args...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProducts").Msg("")
		return nil, fmt.Errorf("get products: %w", err)
	}

	return data, nil
}

func (r *ProductRepositoryImpl) GetProductsByField(ctx context.Context, field string, value string) (data []domain.Product, err error) {
	column, ok := productFilterFields[field]
	if !ok {
		return nil, fmt.Errorf("%w: cannot filter products by %q", errs.ErrClient, field)
	}

	query := r.db.Rebind("SELECT " + productColumns + " FROM products WHERE " + column + " = ? ORDER BY id")

	data = []domain.Product{}
	err = r.db.SelectContext(ctx, &data, query, value)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProductsByField").Msg("")
		return nil, fmt.Errorf("get products by %s: %w", field, err)
	}

	return data, nil
}

func (r *ProductRepositoryImpl) UpdateProduct(ctx context.Context, data domain.Product) (err error) {
	res, err := r.db.NamedExecContext(ctx, `UPDATE products SET
			name = :name,
			price = :price,
			description = :description,
			category = :category
		WHERE id = :id`, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "UpdateProduct").Int64("id", data.ID).Msg("")
		return fmt.Errorf("update product %d: %w", data.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product %d: %w", data.ID, err)
	}
	if affected == 0 {
		return errs.ErrProductNotFound
	}

	return nil
}

// DeleteProduct removes the row and returns it in one statement, so two
// concurrent deletes cannot both succeed.
func (r *ProductRepositoryImpl) DeleteProduct(ctx context.Context, id int64) (data domain.Product, err error) {
	query := r.db.Rebind("DELETE FROM products WHERE id = ? RETURNING " + productColumns)
	err = r.db.GetContext(ctx, &data, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return data, errs.ErrProductNotFound
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "DeleteProduct").Int64("id", id).Msg("")
		return data, fmt.Errorf("delete product %d: %w", id, err)
	}

	return data, nil
}
