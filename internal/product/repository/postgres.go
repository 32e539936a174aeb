package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/database/postgres"
	"github.com/fekuna/buffet-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const selectProduct = `
    SELECT p.*, c.name AS category_name
    FROM products p
    LEFT JOIN categories c ON c.id = p.category_id`

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            name, description, price, category_id, image_url,
            available, featured, promotion, promotional_price, created_at, updated_at
        )
        VALUES (
            :name, :description, :price, :category_id, :image_url,
            :available, :featured, :promotion, :promotional_price, :created_at, :updated_at
        )
        RETURNING id
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, p)
	if err != nil {
		return apperror.FromDB(err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.ID); err != nil {
			return apperror.FromDB(err)
		}
	}
	return apperror.FromDB(rows.Err())
}

// FindByID returns archived products too; order history still points at them.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := selectProduct + ` WHERE p.id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.FromDB(err)
	}
	return &product, nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	products := []model.Product{}
	if len(ids) == 0 {
		return products, nil
	}
	query, args, err := sqlx.In(selectProduct+` WHERE p.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, apperror.FromDB(err)
	}
	return products, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	products := []model.Product{}

	conditions := []string{"p.archived_at IS NULL"}
	args := map[string]interface{}{}

	if f.CategoryID != nil {
		conditions = append(conditions, "p.category_id = :category_id")
		args["category_id"] = *f.CategoryID
	}
	if f.Available != nil {
		conditions = append(conditions, "p.available = :available")
		args["available"] = *f.Available
	}
	if f.Featured != nil {
		conditions = append(conditions, "p.featured = :featured")
		args["featured"] = *f.Featured
	}
	if f.Promotion != nil {
		conditions = append(conditions, "p.promotion = :promotion")
		args["promotion"] = *f.Promotion
	}
	if f.MinPrice != nil {
		conditions = append(conditions, "p.price >= :min_price")
		args["min_price"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		conditions = append(conditions, "p.price <= :max_price")
		args["max_price"] = *f.MaxPrice
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(p.name ILIKE :search OR p.description ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	countQuery := "SELECT count(*) FROM products p" + whereClause
	count, err := postgres.NamedCount(ctx, r.DB, countQuery, args)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}

	// whitelist; never interpolate client input
	orderBy := "p.created_at DESC"
	switch f.SortBy {
	case "name":
		orderBy = "p.name " + direction(f.SortOrder, "ASC")
	case "price":
		orderBy = "p.price " + direction(f.SortOrder, "ASC")
	case "newest", "created_at":
		orderBy = "p.created_at " + direction(f.SortOrder, "DESC")
	}

	query := fmt.Sprintf("%s%s ORDER BY %s, p.id", selectProduct, whereClause, orderBy)

	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &products, args); err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET name = :name,
            description = :description,
            price = :price,
            category_id = :category_id,
            image_url = :image_url,
            available = :available,
            featured = :featured,
            promotion = :promotion,
            promotional_price = :promotional_price,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return apperror.FromDB(err)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	return apperror.FromDB(err)
}

func (r *PGRepository) Archive(ctx context.Context, id int64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE products SET available = FALSE, archived_at = $1, updated_at = $1 WHERE id = $2`, at, id)
	return apperror.FromDB(err)
}

func (r *PGRepository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`, id)
	return exists, apperror.FromDB(err)
}

func (r *PGRepository) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	names := []string{}
	query := `
        SELECT DISTINCT name FROM products
        WHERE available AND archived_at IS NULL AND name ILIKE $1
        ORDER BY name
        LIMIT $2
    `
	if err := r.DB.SelectContext(ctx, &names, query, escapeLike(prefix)+"%", limit); err != nil {
		return nil, apperror.FromDB(err)
	}
	return names, nil
}

func (r *PGRepository) PriceRange(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var row struct {
		Min decimal.Decimal `db:"min_price"`
		Max decimal.Decimal `db:"max_price"`
	}
	query := `
        SELECT COALESCE(MIN(price), 0) AS min_price, COALESCE(MAX(price), 0) AS max_price
        FROM products WHERE available AND archived_at IS NULL
    `
	if err := r.DB.GetContext(ctx, &row, query); err != nil {
		return decimal.Zero, decimal.Zero, apperror.FromDB(err)
	}
	return row.Min, row.Max, nil
}

func direction(order, fallback string) string {
	switch strings.ToLower(order) {
	case "asc":
		return "ASC"
	case "desc":
		return "DESC"
	}
	return fallback
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
