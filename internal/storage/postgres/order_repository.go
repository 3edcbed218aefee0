package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/burgerchain/resto/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

const orderColumns = `id, operator, restaurant_id, total_price, status, closed, created_at, updated_at`

type orderRepository struct {
	q   dbtx
	ctx context.Context
}

func (r *orderRepository) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, opTimeout)
}

func (r *orderRepository) CreateOrder(order domain.Order) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (
			`+orderColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.Operator, order.RestaurantID, order.TotalPrice,
		order.Status, order.Closed, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrRestaurantNotFound
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *orderRepository) GetOrder(id string) (domain.Order, error) {
	return r.getOrder(id, false)
}

// GetOrderForUpdate захватывает блокировку строки заказа до конца транзакции.
// Вне транзакции блокировка снимается сразу и вырождается в обычное чтение.
func (r *orderRepository) GetOrderForUpdate(id string) (domain.Order, error) {
	return r.getOrder(id, true)
}

func (r *orderRepository) getOrder(id string, forUpdate bool) (domain.Order, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var order domain.Order
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.Operator, &order.RestaurantID, &order.TotalPrice,
		&order.Status, &order.Closed, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	lines, err := r.ListLinesByOrder(order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) UpdateOrderTotal(orderID string, total decimal.Decimal) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET total_price = $1, updated_at = $2
		WHERE id = $3
	`, total, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("update order total: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) MarkOrderClosed(orderID, status string) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET closed = TRUE, status = $1, updated_at = $2
		WHERE id = $3
	`, status, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("mark order closed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) ListOrdersByRestaurant(restaurantID string, limit int) ([]domain.Order, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE restaurant_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, query+" LIMIT $2", restaurantID, limit)
	} else {
		rows, err = r.q.QueryContext(ctx, query, restaurantID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.Operator, &order.RestaurantID, &order.TotalPrice,
			&order.Status, &order.Closed, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		lines, err := r.ListLinesByOrder(orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

func (r *orderRepository) UpsertLine(line domain.OrderLine) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO order_lines (
			id, order_id, dish_id, quantity, unit_price, line_total, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    unit_price = EXCLUDED.unit_price,
		    line_total = EXCLUDED.line_total
	`,
		line.ID, line.OrderID, line.DishID, line.Quantity,
		line.UnitPrice, line.LineTotal, line.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fkTarget(err, map[string]error{
				"order_lines_order_id_fkey": domain.ErrOrderNotFound,
				"order_lines_dish_id_fkey":  domain.ErrDishNotFound,
			})
		}
		return fmt.Errorf("upsert order line: %w", err)
	}

	return nil
}

func (r *orderRepository) GetLine(id string) (domain.OrderLine, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var line domain.OrderLine
	err := r.q.QueryRowContext(ctx, `
		SELECT id, order_id, dish_id, quantity, unit_price, line_total, created_at
		FROM order_lines
		WHERE id = $1
	`, id).Scan(
		&line.ID, &line.OrderID, &line.DishID, &line.Quantity,
		&line.UnitPrice, &line.LineTotal, &line.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderLine{}, domain.ErrOrderLineNotFound
		}
		return domain.OrderLine{}, fmt.Errorf("select order line: %w", err)
	}

	return line, nil
}

func (r *orderRepository) DeleteLine(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `DELETE FROM order_lines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderLineNotFound
	}

	return nil
}

func (r *orderRepository) ListLinesByOrder(orderID string) ([]domain.OrderLine, error) {
	return r.listLines(`WHERE order_id = $1`, orderID)
}

func (r *orderRepository) ListLinesByDish(dishID string) ([]domain.OrderLine, error) {
	return r.listLines(`WHERE dish_id = $1`, dishID)
}

func (r *orderRepository) listLines(where string, arg any) ([]domain.OrderLine, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, dish_id, quantity, unit_price, line_total, created_at
		FROM order_lines
		`+where+`
		ORDER BY created_at ASC, id ASC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.DishID, &line.Quantity,
			&line.UnitPrice, &line.LineTotal, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// fkTarget сопоставляет нарушенный constraint с доменной ошибкой.
func fkTarget(err error, mapping map[string]error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped, ok := mapping[pgErr.ConstraintName]; ok {
			return mapped
		}
	}
	return fmt.Errorf("foreign key violation: %w", err)
}

var _ domain.OrderRepository = (*orderRepository)(nil)
