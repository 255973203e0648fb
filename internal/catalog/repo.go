package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("product not found")
	ErrInvalidID = errors.New("invalid product id")
)

// DBPool matches the *pgxpool.Pool methods the repo uses, so tests can
// substitute a mock.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repo struct{ DB DBPool }

type CreateInput struct {
	Name        string
	Description string
	PriceCents  int
	Stock       int
	Category    string
	ImageURL    string
}

const productCols = `id, name, description, price_cents, stock, category, image_url, created_at, updated_at`

// Create inserts the product together with its first price-history entry.
func (r *Repo) Create(ctx context.Context, in CreateInput) (Product, error) {
	if in.PriceCents < 0 || in.Stock < 0 {
		return Product{}, errors.New("price and stock must be non-negative")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	p := Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO products(id, name, description, price_cents, stock, category, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return Product{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO price_history(id, product_id, price_cents, recorded_at)
		VALUES ($1,$2,$3,$4)`,
		uuid.NewString(), p.ID, p.PriceCents, now,
	)
	if err != nil {
		return Product{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	if id == "" {
		return Product{}, ErrInvalidID
	}
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	return r.list(ctx, `SELECT `+productCols+` FROM products ORDER BY name`)
}

func (r *Repo) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	return r.list(ctx, `SELECT `+productCols+` FROM products WHERE category=$1 ORDER BY name`, category)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies the patch in one transaction. A price change appends a
// price-history entry before the product row is touched; the returned
// Change reports price and restock transitions independently so the call
// site can publish the matching events.
func (r *Repo) Update(ctx context.Context, id string, patch Patch) (Product, Change, error) {
	if id == "" {
		return Product{}, Change{}, ErrInvalidID
	}
	if patch.PriceCents != nil && *patch.PriceCents < 0 {
		return Product{}, Change{}, errors.New("price must be non-negative")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return Product{}, Change{}, errors.New("stock must be non-negative")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, Change{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Product
	err = tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, Change{}, ErrNotFound
		}
		return Product{}, Change{}, err
	}

	ch := Change{OldPriceCents: p.PriceCents, NewPriceCents: p.PriceCents}
	if patch.PriceCents != nil && *patch.PriceCents != p.PriceCents {
		ch.PriceChanged = true
		ch.NewPriceCents = *patch.PriceCents
		_, err = tx.Exec(ctx, `
			INSERT INTO price_history(id, product_id, price_cents, recorded_at)
			VALUES ($1,$2,$3,$4)`,
			uuid.NewString(), id, *patch.PriceCents, time.Now().UTC(),
		)
		if err != nil {
			return Product{}, Change{}, err
		}
	}
	if patch.Stock != nil && p.Stock == 0 && *patch.Stock > 0 {
		ch.Restocked = true
	}

	apply(&p, patch)
	p.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, price_cents=$4, stock=$5, category=$6, image_url=$7, updated_at=$8
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.ImageURL, p.UpdatedAt,
	)
	if err != nil {
		return Product{}, Change{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, Change{}, err
	}
	return p, ch, nil
}

func apply(p *Product, patch Patch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.PriceCents != nil {
		p.PriceCents = *patch.PriceCents
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrInvalidID
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// PriceHistory returns the ledger oldest first.
func (r *Repo) PriceHistory(ctx context.Context, productID string) ([]PriceHistoryEntry, error) {
	if productID == "" {
		return nil, ErrInvalidID
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, price_cents, recorded_at
		FROM price_history WHERE product_id=$1 ORDER BY recorded_at`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceHistoryEntry
	for rows.Next() {
		var e PriceHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.PriceCents, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
