package repository

import (
	"context"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/report/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, query, args...); err != nil {
		return 0, apperror.FromDB(err)
	}
	return n, nil
}

func (r *PGRepository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM users`)
}

func (r *PGRepository) CountProducts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM products WHERE archived_at IS NULL`)
}

func (r *PGRepository) CountOrders(ctx context.Context, statuses ...model.OrderStatus) (int, error) {
	if len(statuses) == 0 {
		return r.count(ctx, `SELECT count(*) FROM orders`)
	}
	query, args, err := sqlx.In(`SELECT count(*) FROM orders WHERE status IN (?)`, statuses)
	if err != nil {
		return 0, err
	}
	return r.count(ctx, r.DB.Rebind(query), args...)
}

func (r *PGRepository) Revenue(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
        SELECT COALESCE(SUM(total), 0)
        FROM orders
        WHERE status = 'delivered' AND created_at >= $1
    `
	if err := r.DB.GetContext(ctx, &sum, query, since); err != nil {
		return decimal.Zero, apperror.FromDB(err)
	}
	return sum, nil
}

func (r *PGRepository) TopProducts(ctx context.Context, limit int) ([]dto.ProductSales, error) {
	rows := []dto.ProductSales{}
	query := `
        SELECT p.id, p.name, p.price, p.image_url, c.name AS category_name,
               COALESCE(SUM(oi.quantity), 0) AS total_sold,
               COALESCE(SUM(oi.subtotal), 0) AS revenue
        FROM order_items oi
        JOIN orders o ON o.id = oi.order_id AND o.status <> 'cancelled'
        JOIN products p ON p.id = oi.product_id
        LEFT JOIN categories c ON c.id = p.category_id
        GROUP BY p.id, c.name
        ORDER BY total_sold DESC, p.id
        LIMIT $1
    `
	if err := r.DB.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, apperror.FromDB(err)
	}
	return rows, nil
}

func (r *PGRepository) MonthlySeries(ctx context.Context, since time.Time) ([]dto.MonthlyFigure, error) {
	rows := []dto.MonthlyFigure{}
	query := `
        SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS period,
               count(*) AS order_count,
               COALESCE(SUM(total) FILTER (WHERE status = 'delivered'), 0) AS revenue
        FROM orders
        WHERE created_at >= $1
        GROUP BY 1
        ORDER BY 1
    `
	if err := r.DB.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, apperror.FromDB(err)
	}
	return rows, nil
}

func (r *PGRepository) TopCustomers(ctx context.Context, limit int) ([]dto.CustomerSpend, error) {
	rows := []dto.CustomerSpend{}
	query := `
        SELECT u.id, u.name, u.email,
               count(o.id) AS order_count,
               COALESCE(SUM(o.total), 0) AS total_spent
        FROM orders o
        JOIN users u ON u.id = o.user_id
        WHERE o.status <> 'cancelled'
        GROUP BY u.id
        ORDER BY total_spent DESC, u.id
        LIMIT $1
    `
	if err := r.DB.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, apperror.FromDB(err)
	}
	return rows, nil
}
