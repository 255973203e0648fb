package wishlist

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
)

type Entry struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

type EntryWithProduct struct {
	Entry
	Product catalog.Product `json:"product"`
}

type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repo struct{ DB DBPool }

// Add is idempotent: a second insert of the same (user, product) pair is
// a no-op.
func (r *Repo) Add(ctx context.Context, userID, productID string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO wishlists(id, user_id, product_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id, product_id) DO NOTHING`,
		uuid.NewString(), userID, productID,
	)
	return err
}

func (r *Repo) ListWithProducts(ctx context.Context, userID string) ([]EntryWithProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT w.user_id, w.product_id,
		       p.id, p.name, p.description, p.price_cents, p.stock, p.category, p.image_url, p.created_at, p.updated_at
		FROM wishlists w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id=$1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EntryWithProduct
	for rows.Next() {
		var e EntryWithProduct
		if err := rows.Scan(
			&e.UserID, &e.ProductID,
			&e.Product.ID, &e.Product.Name, &e.Product.Description, &e.Product.PriceCents,
			&e.Product.Stock, &e.Product.Category, &e.Product.ImageURL,
			&e.Product.CreatedAt, &e.Product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) Remove(ctx context.Context, userID, productID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM wishlists WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// UserIDsForProduct resolves every wishlist holder of a product, for the
// notification fan-out.
func (r *Repo) UserIDsForProduct(ctx context.Context, productID string) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT DISTINCT user_id FROM wishlists WHERE product_id=$1`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
