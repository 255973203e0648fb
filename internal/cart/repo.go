package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
)

var ErrInvalidQty = errors.New("quantity must be at least 1")

type Item struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// ItemWithProduct is the denormalized row served to clients.
type ItemWithProduct struct {
	Item
	Product catalog.Product `json:"product"`
}

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repo struct{ DB DBPool }

// Get returns the cart joined with live product rows. Stock is NOT
// checked here; a cart may reference a product that has since sold out,
// checkout re-validates.
func (r *Repo) Get(ctx context.Context, userID string) ([]ItemWithProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.user_id, c.product_id, c.quantity, c.added_at,
		       p.id, p.name, p.description, p.price_cents, p.stock, p.category, p.image_url, p.created_at, p.updated_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id=$1
		ORDER BY c.added_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemWithProduct
	for rows.Next() {
		var it ItemWithProduct
		if err := rows.Scan(
			&it.UserID, &it.ProductID, &it.Quantity, &it.AddedAt,
			&it.Product.ID, &it.Product.Name, &it.Product.Description, &it.Product.PriceCents,
			&it.Product.Stock, &it.Product.Category, &it.Product.ImageURL,
			&it.Product.CreatedAt, &it.Product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Add merges with an existing row for the same (user, product), summing
// quantities. At most one row per pair.
func (r *Repo) Add(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQty
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items(id, user_id, product_id, quantity, added_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		uuid.NewString(), userID, productID, qty, time.Now().UTC(),
	)
	return err
}

// SetQuantity overwrites the quantity; qty <= 0 removes the row.
func (r *Repo) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		_, err := r.Remove(ctx, userID, productID)
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET quantity=$3 WHERE user_id=$1 AND product_id=$2`,
		userID, productID, qty,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, userID, productID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) Clear(ctx context.Context, userID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
