package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/database/postgres"
	"github.com/fekuna/buffet-service/internal/user/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const userColumns = `id, name, email, password_hash, phone, address, avatar_url, role, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (name, email, password_hash, phone, address, avatar_url, role, created_at, updated_at)
        VALUES (:name, :email, :password_hash, :phone, :address, :avatar_url, :role, :created_at, :updated_at)
        RETURNING id
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, u)
	if err != nil {
		return apperror.FromDB(err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&u.ID); err != nil {
			return apperror.FromDB(err)
		}
	}
	return apperror.FromDB(rows.Err())
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	if err := r.DB.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.FromDB(err)
	}
	return &u, nil
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	if err := r.DB.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.FromDB(err)
	}
	return &u, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.UserFilters) ([]model.User, int, error) {
	users := []model.User{}

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Role != "" {
		conditions = append(conditions, "u.role = :role")
		args["role"] = f.Role
	}
	if f.Search != "" {
		conditions = append(conditions, "(u.name ILIKE :search OR u.email ILIKE :search)")
		args["search"] = "%" + f.Search + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM users u" + whereClause
	count, err := postgres.NamedCount(ctx, r.DB, countQuery, args)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}

	orderBy := "u.created_at"
	switch f.SortBy {
	case "name":
		orderBy = "u.name"
	case "email":
		orderBy = "u.email"
	case "role":
		orderBy = "u.role"
	}
	if strings.ToLower(f.SortOrder) == "asc" {
		orderBy += " ASC"
	} else {
		orderBy += " DESC"
	}

	query := fmt.Sprintf(`
        SELECT u.id, u.name, u.email, u.password_hash, u.phone, u.address, u.avatar_url, u.role,
               u.created_at, u.updated_at,
               (SELECT count(*) FROM orders o WHERE o.user_id = u.id) AS order_count
        FROM users u%s ORDER BY %s`, whereClause, orderBy)

	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &users, args); err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	return users, count, nil
}

func (r *PGRepository) Update(ctx context.Context, u *model.User) error {
	query := `
        UPDATE users
        SET name = :name,
            email = :email,
            phone = :phone,
            address = :address,
            avatar_url = :avatar_url,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, u)
	return apperror.FromDB(err)
}

func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	return apperror.FromDB(err)
}

func (r *PGRepository) UpdateRole(ctx context.Context, id int64, role model.Role) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, id)
	return apperror.FromDB(err)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	return apperror.FromDB(err)
}

func (r *PGRepository) CountOrders(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, `SELECT count(*) FROM orders WHERE user_id = $1`, id)
	return count, apperror.FromDB(err)
}

func (r *PGRepository) Stats(ctx context.Context) (*dto.UserStats, error) {
	var s dto.UserStats
	query := `
        SELECT count(*) AS total,
               count(*) FILTER (WHERE role = 'admin') AS admins,
               count(*) FILTER (WHERE role = 'user') AS users,
               count(*) FILTER (WHERE created_at >= date_trunc('month', NOW())) AS new_this_month
        FROM users
    `
	if err := r.DB.GetContext(ctx, &s, query); err != nil {
		return nil, apperror.FromDB(err)
	}
	return &s, nil
}
