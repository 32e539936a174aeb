package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/category/dto"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/database/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (name, slug, description, is_active, created_at, updated_at)
        VALUES (:name, :slug, :description, :is_active, :created_at, :updated_at)
        RETURNING id
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, c)
	if err != nil {
		return apperror.FromDB(err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&c.ID); err != nil {
			return apperror.FromDB(err)
		}
	}
	return apperror.FromDB(rows.Err())
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	return r.findOne(ctx, `SELECT * FROM categories WHERE id = $1 LIMIT 1`, id)
}

func (r *PGRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return r.findOne(ctx, `SELECT * FROM categories WHERE slug = $1 LIMIT 1`, slug)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Category, error) {
	var category model.Category
	if err := r.DB.GetContext(ctx, &category, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.FromDB(err)
	}
	return &category, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CategoryFilters) ([]model.Category, int, error) {
	categories := []model.Category{}

	conditions := []string{}
	args := map[string]interface{}{}

	if f.IsActive != nil {
		conditions = append(conditions, "c.is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if f.Search != "" {
		conditions = append(conditions, "(c.name ILIKE :search OR c.slug ILIKE :search)")
		args["search"] = "%" + f.Search + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM categories c" + whereClause
	count, err := postgres.NamedCount(ctx, r.DB, countQuery, args)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}

	columns := "c.*"
	if f.WithCounts {
		columns += `, (SELECT count(*) FROM products p WHERE p.category_id = c.id AND p.archived_at IS NULL) AS product_count`
	}
	query := fmt.Sprintf("SELECT %s FROM categories c%s ORDER BY c.name ASC", columns, whereClause)

	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &categories, args); err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	return categories, count, nil
}

func (r *PGRepository) Update(ctx context.Context, c *model.Category) error {
	query := `
        UPDATE categories
        SET name = :name,
            slug = :slug,
            description = :description,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return apperror.FromDB(err)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	return apperror.FromDB(err)
}

// CountProducts counts every product row, archived ones included, since all of them hold the foreign key.
func (r *PGRepository) CountProducts(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, `SELECT count(*) FROM products WHERE category_id = $1`, id)
	return count, apperror.FromDB(err)
}
