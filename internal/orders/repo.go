package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

// DBPool matches the *pgxpool.Pool methods the repo uses, so tests can
// substitute a mock.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repo struct {
	DB DBPool

	// Policy selects the middleman stamped at approval time.
	Policy users.SelectionPolicy
}

const orderCols = `id, user_id, total_cents, status, created_at, updated_at, shipping_address, delivery_date, tracking_number, middleman_id`

// PlaceOrder commits a verified checkout in one transaction: order row,
// item rows at the caller's frozen prices, conditional stock decrement,
// cart clear. Stock correctness does not depend on the advisory
// pre-read: the decrement itself is guarded by `stock >= qty`, so two
// concurrent checkouts can never drive stock negative.
func (r *Repo) PlaceOrder(ctx context.Context, userID string, items []ItemInput, shippingAddress, contact string, deliveryDate *time.Time) (Order, error) {
	if len(items) == 0 {
		return Order{}, errors.New("order must contain at least one item")
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return Order{}, fmt.Errorf("invalid qty for product %s", it.ProductID)
		}
		if it.PriceCents < 0 {
			return Order{}, fmt.Errorf("invalid price for product %s", it.ProductID)
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	total := 0
	for _, it := range items {
		total += it.PriceCents * it.Qty
	}

	now := time.Now().UTC()
	delivery := now.Add(7 * 24 * time.Hour)
	if deliveryDate != nil {
		delivery = *deliveryDate
	}

	o := Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		TotalCents:      total,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		ShippingAddress: shippingAddress,
		DeliveryDate:    delivery,
		TrackingNumber:  contact,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, total_cents, status, created_at, updated_at, shipping_address, delivery_date, tracking_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.UserID, o.TotalCents, o.Status, o.CreatedAt, o.UpdatedAt, o.ShippingAddress, o.DeliveryDate, o.TrackingNumber,
	)
	if err != nil {
		return Order{}, err
	}

	for _, it := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, quantity, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.NewString(), o.ID, it.ProductID, it.Qty, it.PriceCents,
		)
		if err != nil {
			return Order{}, err
		}

		// Atomic conditional decrement; the guard is the only thing
		// keeping stock non-negative under concurrent checkouts.
		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at=$3
			WHERE id=$1 AND stock >= $2`,
			it.ProductID, it.Qty, now,
		)
		if err != nil {
			return Order{}, err
		}
		if ct.RowsAffected() != 1 {
			var available int
			if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, it.ProductID).Scan(&available); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return Order{}, fmt.Errorf("product not found: %s", it.ProductID)
				}
				return Order{}, err
			}
			return Order{}, &InsufficientStockError{ProductID: it.ProductID, Requested: it.Qty, Available: available}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// CheckStock is the advisory pre-check run before the OTP round trip so
// the client can be bounced back to the cart early. It takes no locks
// and must not be relied on for correctness.
func (r *Repo) CheckStock(ctx context.Context, items []ItemInput) error {
	for _, it := range items {
		var available int
		err := r.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, it.ProductID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("product not found: %s", it.ProductID)
			}
			return err
		}
		if available < it.Qty {
			return &InsufficientStockError{ProductID: it.ProductID, Requested: it.Qty, Available: available}
		}
	}
	return nil
}

// Approve transitions pending -> processing and stamps a middleman in
// the same transaction. When no middleman exists the whole approval is
// rolled back and users.ErrNoMiddleman surfaces, so an approved order
// can never sit unassigned.
func (r *Repo) Approve(ctx context.Context, orderID string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	var middlemanID *string
	err = tx.QueryRow(ctx, `SELECT status, middleman_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&status, &middlemanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	if !CanTransition(status, StatusProcessing) {
		return Order{}, &InvalidTransitionError{From: status, To: StatusProcessing}
	}

	// middleman_id is set exactly once, at approval
	assignee := ""
	if middlemanID == nil {
		assignee, err = r.Policy.SelectMiddleman(ctx, tx)
		if err != nil {
			return Order{}, err
		}
	} else {
		assignee = *middlemanID
	}

	var o Order
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, middleman_id=$3, updated_at=$4
		WHERE id=$1
		RETURNING `+orderCols,
		orderID, StatusProcessing, assignee, time.Now().UTC(),
	).Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		&o.ShippingAddress, &o.DeliveryDate, &o.TrackingNumber, &o.MiddlemanID)
	if err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// AdvanceStatus moves an order one fulfillment step
// (processing -> shipped -> delivered). Only the assigned middleman may
// advance, and terminal or unapproved orders are rejected.
func (r *Repo) AdvanceStatus(ctx context.Context, orderID, middlemanID string) (Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	var assigned *string
	err = tx.QueryRow(ctx, `SELECT status, middleman_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&status, &assigned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if assigned == nil || *assigned != middlemanID {
		return "", ErrNotAssigned
	}

	next, err := Next(status)
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		orderID, next, time.Now().UTC())
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return next, nil
}

// Cancel is the administrative override; the transition table still
// applies, so delivered orders cannot be cancelled.
func (r *Repo) Cancel(ctx context.Context, orderID string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	if !CanTransition(status, StatusCancelled) {
		return Order{}, &InvalidTransitionError{From: status, To: StatusCancelled}
	}

	var o Order
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1
		RETURNING `+orderCols,
		orderID, StatusCancelled, time.Now().UTC(),
	).Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		&o.ShippingAddress, &o.DeliveryDate, &o.TrackingNumber, &o.MiddlemanID)
	if err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Delete removes the order and its items together; a failure on either
// statement leaves both tables untouched.
func (r *Repo) Delete(ctx context.Context, orderID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return false, err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (OrderWithItems, error) {
	var o OrderWithItems
	err := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt,
			&o.ShippingAddress, &o.DeliveryDate, &o.TrackingNumber, &o.MiddlemanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderWithItems{}, ErrNotFound
		}
		return OrderWithItems{}, err
	}

	items, err := r.itemsFor(ctx, orderID)
	if err != nil {
		return OrderWithItems{}, err
	}
	o.Items = items
	return o, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderID string) ([]ItemWithProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.price_cents,
		       p.id, p.name, p.description, p.price_cents, p.stock, p.category, p.image_url, p.created_at, p.updated_at
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemWithProduct
	for rows.Next() {
		var it ItemWithProduct
		if err := rows.Scan(
			&it.OrderItem.ID, &it.OrderID, &it.OrderItem.ProductID, &it.Quantity, &it.OrderItem.PriceCents,
			&it.Product.ID, &it.Product.Name, &it.Product.Description, &it.Product.PriceCents,
			&it.Product.Stock, &it.Product.Category, &it.Product.ImageURL,
			&it.Product.CreatedAt, &it.Product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

// ListAssigned returns the orders stamped to a middleman; pending orders
// never carry an assignment, so they cannot appear here.
func (r *Repo) ListAssigned(ctx context.Context, middlemanID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE middleman_id=$1 ORDER BY created_at DESC`, middlemanID)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt,
			&o.ShippingAddress, &o.DeliveryDate, &o.TrackingNumber, &o.MiddlemanID); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListAllWithDetails is the admin view: every order joined with the
// buyer's username and denormalized items.
func (r *Repo) ListAllWithDetails(ctx context.Context) ([]AdminOrder, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.user_id, o.total_cents, o.status, o.created_at, o.updated_at,
		       o.shipping_address, o.delivery_date, o.tracking_number, o.middleman_id,
		       u.username
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminOrder
	for rows.Next() {
		var a AdminOrder
		if err := rows.Scan(&a.ID, &a.UserID, &a.TotalCents, &a.Status, &a.CreatedAt, &a.UpdatedAt,
			&a.ShippingAddress, &a.DeliveryDate, &a.TrackingNumber, &a.MiddlemanID, &a.Username); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}
