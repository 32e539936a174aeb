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
	"github.com/fekuna/buffet-service/internal/order"
	"github.com/fekuna/buffet-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB  *sqlx.DB
	now func() time.Time
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db, now: time.Now}
}

const orderNumberAttempts = 3

var ErrOrderNumberExhausted = apperror.Conflict("order_number", "could not assign a unique order number")

const orderColumns = `
    o.id, o.user_id, o.total, o.status, o.payment_method,
    COALESCE(o.order_number, '') AS order_number, o.notes, o.created_at, o.updated_at`

const selectItems = `
    SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.subtotal,
           p.name AS product_name, p.image_url AS product_image
    FROM order_items oi
    JOIN products p ON p.id = oi.product_id`

func (r *PGRepository) Create(ctx context.Context, o *model.Order, items []model.OrderItem) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.FromDB(err)
	}
	defer tx.Rollback()

	insertOrder := `
        INSERT INTO orders (user_id, total, status, payment_method, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err = tx.QueryRowxContext(ctx, insertOrder,
		o.UserID, o.Total, o.Status, o.PaymentMethod, o.Notes, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return apperror.FromDB(err)
	}

	number, err := r.assignOrderNumber(ctx, tx, o.ID)
	if err != nil {
		return err
	}

	insertItem := `
        INSERT INTO order_items (order_id, product_id, quantity, price, subtotal)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	for i := range items {
		items[i].OrderID = o.ID
		err := tx.QueryRowxContext(ctx, insertItem,
			o.ID, items[i].ProductID, items[i].Quantity, items[i].Price, items[i].Subtotal,
		).Scan(&items[i].ID)
		if err != nil {
			return apperror.FromDB(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.FromDB(err)
	}
	o.OrderNumber = number
	o.Items = items
	return nil
}

// assignOrderNumber stores the first candidate number no other order holds.
// The unique index still rejects a number taken by a concurrent transaction.
func (r *PGRepository) assignOrderNumber(ctx context.Context, tx *sqlx.Tx, orderID int64) (string, error) {
	setNumber := `
        UPDATE orders SET order_number = $1
        WHERE id = $2 AND NOT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)
    `
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := r.nextOrderNumber(ctx, tx, attempt)
		if err != nil {
			return "", err
		}
		res, err := tx.ExecContext(ctx, setNumber, number, orderID)
		if err != nil {
			return "", apperror.FromDB(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			return number, nil
		}
	}
	return "", ErrOrderNumberExhausted
}

// nextOrderNumber reads the order sequence behind a savepoint. If the sequence
// is unavailable the transaction survives and a timestamp number is used. The
// PEDT prefix keeps those apart from sequence numbers.
func (r *PGRepository) nextOrderNumber(ctx context.Context, tx *sqlx.Tx, attempt int) (string, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT order_number"); err != nil {
		return "", apperror.FromDB(err)
	}
	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT nextval('order_number_seq')`); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT order_number"); rbErr != nil {
			return "", apperror.FromDB(rbErr)
		}
		return fmt.Sprintf("PEDT%06d", (r.now().UnixMilli()+int64(attempt))%1_000_000), nil
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT order_number"); err != nil {
		return "", apperror.FromDB(err)
	}
	return fmt.Sprintf("PED%04d", seq), nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1 LIMIT 1`
	if err := r.DB.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.FromDB(err)
	}

	orders := []model.Order{o}
	if err := r.hydrate(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	orders := []model.Order{}

	conditions := []string{}
	args := map[string]interface{}{}

	if f.UserID != nil {
		conditions = append(conditions, "o.user_id = :user_id")
		args["user_id"] = *f.UserID
	}
	if f.Status != "" {
		conditions = append(conditions, "o.status = :status")
		args["status"] = f.Status
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM orders o" + whereClause
	count, err := postgres.NamedCount(ctx, r.DB, countQuery, args)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}

	query := fmt.Sprintf(`
        SELECT %s,
               (SELECT count(*) FROM order_items oi WHERE oi.order_id = o.id) AS item_count
        FROM orders o%s
        ORDER BY o.created_at DESC, o.id DESC`, orderColumns, whereClause)

	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &orders, args); err != nil {
		return nil, 0, apperror.FromDB(err)
	}
	if err := r.hydrate(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

// hydrate attaches owners and items with two batched queries.
func (r *PGRepository) hydrate(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	orderIDs := make([]int64, 0, len(orders))
	userIDs := make([]int64, 0, len(orders))
	seenUser := map[int64]bool{}
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		if !seenUser[o.UserID] {
			seenUser[o.UserID] = true
			userIDs = append(userIDs, o.UserID)
		}
	}

	users := []model.UserSummary{}
	query, args, err := sqlx.In(`SELECT id, name, email, phone FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return err
	}
	if err := r.DB.SelectContext(ctx, &users, r.DB.Rebind(query), args...); err != nil {
		return apperror.FromDB(err)
	}

	items := []model.OrderItem{}
	query, args, err = sqlx.In(selectItems+` WHERE oi.order_id IN (?) ORDER BY oi.id`, orderIDs)
	if err != nil {
		return err
	}
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return apperror.FromDB(err)
	}

	byUser := make(map[int64]*model.UserSummary, len(users))
	for i := range users {
		byUser[users[i].ID] = &users[i]
	}
	byOrder := make(map[int64][]model.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].User = byUser[orders[i].UserID]
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []model.OrderItem{}
		}
		n := len(orders[i].Items)
		orders[i].ItemCount = &n
	}
	return nil
}

func (r *PGRepository) lock(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Order, error) {
	var o model.Order
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("order")
		}
		return nil, apperror.FromDB(err)
	}
	return &o, nil
}

func (r *PGRepository) Transition(ctx context.Context, id int64, decide order.DecideFunc) (*model.Order, model.OrderStatus, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, "", apperror.FromDB(err)
	}
	defer tx.Rollback()

	o, err := r.lock(ctx, tx, id)
	if err != nil {
		return nil, "", err
	}
	prev := o.Status

	next, err := decide(o)
	if err != nil {
		return nil, prev, err
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`, next, now, id); err != nil {
		return nil, prev, apperror.FromDB(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, prev, apperror.FromDB(err)
	}

	o.Status = next
	o.UpdatedAt = now
	return o, prev, nil
}

// Delete removes the order and, by cascade, its items once check accepts the locked row.
func (r *PGRepository) Delete(ctx context.Context, id int64, check func(o *model.Order) error) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.FromDB(err)
	}
	defer tx.Rollback()

	o, err := r.lock(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := check(o); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id); err != nil {
		return apperror.FromDB(err)
	}
	return apperror.FromDB(tx.Commit())
}

func (r *PGRepository) Stats(ctx context.Context) (*dto.OrderStats, error) {
	stats := &dto.OrderStats{OrdersByStatus: map[model.OrderStatus]int{}}
	query := `
        SELECT count(*) AS total_orders,
               COALESCE(SUM(total) FILTER (WHERE status = 'delivered'), 0) AS total_revenue,
               COALESCE(AVG(total) FILTER (WHERE status = 'delivered'), 0) AS average_order,
               count(*) FILTER (WHERE created_at >= date_trunc('day', NOW())) AS today_orders
        FROM orders
    `
	if err := r.DB.GetContext(ctx, stats, query); err != nil {
		return nil, apperror.FromDB(err)
	}

	var rows []struct {
		Status model.OrderStatus `db:"status"`
		Count  int               `db:"count"`
	}
	if err := r.DB.SelectContext(ctx, &rows, `SELECT status, count(*) AS count FROM orders GROUP BY status`); err != nil {
		return nil, apperror.FromDB(err)
	}
	for _, row := range rows {
		stats.OrdersByStatus[row.Status] = row.Count
	}
	stats.AverageOrder = stats.AverageOrder.Round(2)
	return stats, nil
}

func (r *PGRepository) UserStats(ctx context.Context, userID int64) (*dto.UserOrderStats, error) {
	var stats dto.UserOrderStats
	query := `
        SELECT count(*) AS total_orders,
               count(*) FILTER (WHERE status NOT IN ('delivered', 'cancelled')) AS active_orders,
               count(*) FILTER (WHERE status = 'delivered') AS delivered_orders,
               count(*) FILTER (WHERE status = 'cancelled') AS cancelled_orders,
               COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0) AS total_spent
        FROM orders
        WHERE user_id = $1
    `
	if err := r.DB.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, apperror.FromDB(err)
	}
	return &stats, nil
}
