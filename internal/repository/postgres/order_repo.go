package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const orderColumns = `id, user_id, shipping_address, payment_method, payment_result, items_price, tax_price,
        shipping_price, total_price, is_paid, paid_at, is_delivered, delivered_at, status, created_at, updated_at`

type orderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &orderRepository{
		db:  db,
		log: logger,
	}
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	var address, result []byte
	var paidAt, deliveredAt sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&address,
		&o.PaymentMethod,
		&result,
		&o.ItemsPrice,
		&o.TaxPrice,
		&o.ShippingPrice,
		&o.TotalPrice,
		&o.IsPaid,
		&paidAt,
		&o.IsDelivered,
		&deliveredAt,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("corrupt shipping address on order %s: %w", o.ID, err)
	}
	if len(result) > 0 {
		o.PaymentResult = &domain.PaymentResult{}
		if err := json.Unmarshal(result, o.PaymentResult); err != nil {
			return nil, fmt.Errorf("corrupt payment result on order %s: %w", o.ID, err)
		}
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		o.DeliveredAt = &t
	}
	return o, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	o := *order
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = domain.StatusProcessing
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("could not encode shipping address: %w", err)
	}

	err = withTx(ctx, r.db, r.log, func(tx *sql.Tx) error {
		orderQuery := `
            INSERT INTO orders (id, user_id, shipping_address, payment_method, items_price, tax_price,
                shipping_price, total_price, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING created_at, updated_at`
		err := tx.QueryRowContext(ctx, orderQuery,
			o.ID, o.UserID, string(address), o.PaymentMethod, o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice, o.Status,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			r.log.Errorf("Repository: Failed to insert order for user %s: %v", o.UserID, err)
			return fmt.Errorf("could not create order entry: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
            INSERT INTO order_items (order_id, position, product_id, name, image, price, quantity)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return fmt.Errorf("could not prepare item statement: %w", err)
		}
		defer stmt.Close()

		for i, line := range o.OrderLines {
			if _, err := stmt.ExecContext(ctx, o.ID, i, line.ProductID, line.Name, line.Image, line.Price, line.Quantity); err != nil {
				r.log.Errorf("Repository: Failed to insert order item (product_id: %s, quantity: %d) for order %s: %v",
					line.ProductID, line.Quantity, o.ID, err)
				if pqCode(err) == codeCheckViolation {
					return domain.Validationf("invalid item data (product_id: %s)", line.ProductID)
				}
				return fmt.Errorf("could not create order item (product_id: %s): %w", line.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.OrderLines = append([]domain.OrderLine(nil), order.OrderLines...)
	r.log.Infof("Repository: Order %s created successfully with %d items.", o.ID, len(o.OrderLines))
	return &o, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugf("Repository: Order with ID %s not found", id)
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Repository: Failed to get order by ID %s: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}
	orders := []domain.Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachItems loads the lines of every order in one query.
func (r *orderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	query := `
        SELECT order_id, product_id, name, image, price, quantity
        FROM order_items
        WHERE order_id = ANY($1)
        ORDER BY order_id, position`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		r.log.Errorf("Repository: Failed to query items for orders %v: %v", ids, err)
		return fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderLine, len(orders))
	for rows.Next() {
		var orderID string
		var line domain.OrderLine
		if err := rows.Scan(&orderID, &line.ProductID, &line.Name, &line.Image, &line.Price, &line.Quantity); err != nil {
			return fmt.Errorf("error scanning order item: %w", err)
		}
		items[orderID] = append(items[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	for i := range orders {
		if lines, ok := items[orders[i].ID]; ok {
			orders[i].OrderLines = lines
		} else {
			orders[i].OrderLines = []domain.OrderLine{}
		}
	}
	return nil
}

func (r *orderRepository) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Repository: Failed to list orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListOrdersByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	orders, err := r.listOrders(ctx, `SELECT `+orderColumns+`
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC, id
        LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	r.log.Infof("Repository: Retrieved %d orders for user ID %s (limit %d, offset %d)", len(orders), userID, limit, offset)
	return orders, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+`
        FROM orders
        ORDER BY created_at DESC, id
        LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *orderRepository) MarkPaid(ctx context.Context, id string, result domain.PaymentResult, paidAt time.Time) (*domain.Order, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("could not encode payment result: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET is_paid = TRUE, paid_at = $2, payment_result = $3, updated_at = NOW()
        WHERE id = $1 AND is_paid = FALSE`, id, paidAt, string(encoded))
	if err != nil {
		r.log.Errorf("Repository: Failed to mark order %s paid: %v", id, err)
		return nil, fmt.Errorf("could not mark order paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetOrderByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyPaid
	}
	r.log.Infof("Repository: Order %s marked paid", id)
	return r.GetOrderByID(ctx, id)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, deliveredAt *time.Time) (*domain.Order, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET status = $2,
            is_delivered = CASE WHEN $3::timestamptz IS NULL THEN is_delivered ELSE TRUE END,
            delivered_at = COALESCE($3::timestamptz, delivered_at),
            updated_at = NOW()
        WHERE id = $1`, id, status, deliveredAt)
	if err != nil {
		r.log.Errorf("Repository: Failed to update status for order ID %s: %v", id, err)
		return nil, fmt.Errorf("could not update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return r.GetOrderByID(ctx, id)
}

func (r *orderRepository) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete order %s: %v", id, err)
		return fmt.Errorf("could not delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrOrderNotFound
	}
	r.log.Infof("Repository: Order %s deleted", id)
	return nil
}
