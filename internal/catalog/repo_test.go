package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks -----------------------------------------------------------------

type execCall struct {
	sql  string
	args []any
}

type mockTx struct {
	queryRow func(sql string, args []any) pgx.Row

	execs      []execCall
	committed  bool
	rolledBack bool
}

func (tx *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx.queryRow == nil {
		panic("unexpected QueryRow: " + sql)
	}
	return tx.queryRow(sql, args)
}

func (tx *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *mockTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *mockTx) Rollback(ctx context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

func (tx *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("Begin") }
func (tx *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("CopyFrom")
}
func (tx *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { panic("SendBatch") }
func (tx *mockTx) LargeObjects() pgx.LargeObjects                               { panic("LargeObjects") }
func (tx *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("Prepare")
}
func (tx *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("Query")
}
func (tx *mockTx) Conn() *pgx.Conn { return nil }

type mockPool struct {
	tx       *mockTx
	queryRow func(sql string, args []any) pgx.Row
	execTag  string
}

func (p *mockPool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return p.tx, nil
}

func (p *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if p.queryRow == nil {
		panic("unexpected QueryRow: " + sql)
	}
	return p.queryRow(sql, args)
}

func (p *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *mockPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag := p.execTag
	if tag == "" {
		tag = "DELETE 1"
	}
	return pgconn.NewCommandTag(tag), nil
}

type mockRow struct {
	values []any
	err    error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("unsupported scan dest")
		}
	}
	return nil
}

func productRow(p Product) mockRow {
	return mockRow{values: []any{
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock,
		p.Category, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	}}
}

// --- Create ----------------------------------------------------------------

func TestCreate_WritesFirstPriceHistoryEntry(t *testing.T) {
	ctx := context.Background()
	tx := &mockTx{}
	repo := &Repo{DB: &mockPool{tx: tx}}

	p, err := repo.Create(ctx, CreateInput{
		Name: "Mechanical Keyboard", PriceCents: 7999, Stock: 12, Category: "electronics",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 7999, p.PriceCents)
	assert.True(t, tx.committed)

	require.Len(t, tx.execs, 2)
	assert.Contains(t, tx.execs[0].sql, "INSERT INTO products")
	assert.Contains(t, tx.execs[1].sql, "INSERT INTO price_history")
	assert.Equal(t, p.ID, tx.execs[1].args[1])
	assert.Equal(t, 7999, tx.execs[1].args[2])
}

func TestCreate_RejectsNegatives(t *testing.T) {
	ctx := context.Background()
	repo := &Repo{DB: &mockPool{}}

	_, err := repo.Create(ctx, CreateInput{Name: "x", PriceCents: -1})
	require.Error(t, err)

	_, err = repo.Create(ctx, CreateInput{Name: "x", Stock: -1})
	require.Error(t, err)
}

// --- Update ----------------------------------------------------------------

func existing(price, stock int) Product {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return Product{
		ID: "p1", Name: "Lamp", Description: "desk lamp", PriceCents: price,
		Stock: stock, Category: "home", ImageURL: "http://img/lamp.png",
		CreatedAt: now, UpdatedAt: now,
	}
}

func updateTx(p Product) *mockTx {
	tx := &mockTx{}
	tx.queryRow = func(sql string, args []any) pgx.Row { return productRow(p) }
	return tx
}

func TestUpdate_PriceDropAppendsHistory(t *testing.T) {
	ctx := context.Background()
	tx := updateTx(existing(2000, 5))
	repo := &Repo{DB: &mockPool{tx: tx}}

	newPrice := 1600
	p, ch, err := repo.Update(ctx, "p1", Patch{PriceCents: &newPrice})
	require.NoError(t, err)

	assert.True(t, ch.PriceChanged)
	assert.Equal(t, 2000, ch.OldPriceCents)
	assert.Equal(t, 1600, ch.NewPriceCents)
	assert.False(t, ch.Restocked)
	assert.Equal(t, 1600, p.PriceCents)

	// history entry is written before the product row update
	require.Len(t, tx.execs, 2)
	assert.Contains(t, tx.execs[0].sql, "INSERT INTO price_history")
	assert.Equal(t, 1600, tx.execs[0].args[2])
	assert.Contains(t, tx.execs[1].sql, "UPDATE products")
	assert.True(t, tx.committed)
}

func TestUpdate_SamePriceNoHistory(t *testing.T) {
	ctx := context.Background()
	tx := updateTx(existing(2000, 5))
	repo := &Repo{DB: &mockPool{tx: tx}}

	samePrice := 2000
	name := "Bright Lamp"
	_, ch, err := repo.Update(ctx, "p1", Patch{PriceCents: &samePrice, Name: &name})
	require.NoError(t, err)

	assert.False(t, ch.PriceChanged)
	require.Len(t, tx.execs, 1)
	assert.Contains(t, tx.execs[0].sql, "UPDATE products")
}

func TestUpdate_RestockDetection(t *testing.T) {
	ctx := context.Background()

	t.Run("zero to positive", func(t *testing.T) {
		tx := updateTx(existing(2000, 0))
		repo := &Repo{DB: &mockPool{tx: tx}}

		stock := 10
		_, ch, err := repo.Update(ctx, "p1", Patch{Stock: &stock})
		require.NoError(t, err)
		assert.True(t, ch.Restocked)
		assert.False(t, ch.PriceChanged)
	})

	t.Run("positive to positive is not a restock", func(t *testing.T) {
		tx := updateTx(existing(2000, 3))
		repo := &Repo{DB: &mockPool{tx: tx}}

		stock := 10
		_, ch, err := repo.Update(ctx, "p1", Patch{Stock: &stock})
		require.NoError(t, err)
		assert.False(t, ch.Restocked)
	})

	t.Run("zero to zero is not a restock", func(t *testing.T) {
		tx := updateTx(existing(2000, 0))
		repo := &Repo{DB: &mockPool{tx: tx}}

		stock := 0
		_, ch, err := repo.Update(ctx, "p1", Patch{Stock: &stock})
		require.NoError(t, err)
		assert.False(t, ch.Restocked)
	})
}

func TestUpdate_PriceChangeAndRestockTogether(t *testing.T) {
	ctx := context.Background()
	tx := updateTx(existing(2000, 0))
	repo := &Repo{DB: &mockPool{tx: tx}}

	price, stock := 1500, 4
	_, ch, err := repo.Update(ctx, "p1", Patch{PriceCents: &price, Stock: &stock})
	require.NoError(t, err)
	assert.True(t, ch.PriceChanged)
	assert.True(t, ch.Restocked)
}

func TestUpdate_NotFound(t *testing.T) {
	ctx := context.Background()
	tx := &mockTx{queryRow: func(sql string, args []any) pgx.Row {
		return mockRow{err: pgx.ErrNoRows}
	}}
	repo := &Repo{DB: &mockPool{tx: tx}}

	price := 100
	_, _, err := repo.Update(ctx, "ghost", Patch{PriceCents: &price})
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, tx.rolledBack)
}

func TestUpdate_RejectsNegativePatch(t *testing.T) {
	ctx := context.Background()
	repo := &Repo{DB: &mockPool{}}

	bad := -1
	_, _, err := repo.Update(ctx, "p1", Patch{PriceCents: &bad})
	require.Error(t, err)

	_, _, err = repo.Update(ctx, "p1", Patch{Stock: &bad})
	require.Error(t, err)
}

// --- Get / Delete ----------------------------------------------------------

func TestGet(t *testing.T) {
	ctx := context.Background()
	want := existing(2000, 5)
	pool := &mockPool{queryRow: func(sql string, args []any) pgx.Row {
		require.True(t, strings.Contains(sql, "FROM products"))
		if args[0] == "p1" {
			return productRow(want)
		}
		return mockRow{err: pgx.ErrNoRows}
	}}
	repo := &Repo{DB: pool}

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = repo.Get(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(ctx, "")
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	ok, err := (&Repo{DB: &mockPool{execTag: "DELETE 1"}}).Delete(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = (&Repo{DB: &mockPool{execTag: "DELETE 0"}}).Delete(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = (&Repo{DB: &mockPool{}}).Delete(ctx, "")
	require.ErrorIs(t, err, ErrInvalidID)
}
