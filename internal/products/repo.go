package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const cols = `id, name, description, price_cents, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+cols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
}

func (r *Repo) Create(ctx context.Context, in CreateInput) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price_cents, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+cols,
		uuid.NewString(), in.Name, in.Description, in.PriceCents, in.Stock,
	))
}

type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int    `json:"stock"`
}

// Update: administrative update, hanya field yang di-set yang berubah.
func (r *Repo) Update(ctx context.Context, id string, in UpdateInput) (Product, error) {
	set := ""
	args := []any{id}
	add := func(col string, v any) {
		if set != "" {
			set += ", "
		}
		args = append(args, v)
		set += fmt.Sprintf("%s = $%d", col, len(args))
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.PriceCents != nil {
		add("price_cents", *in.PriceCents)
	}
	if in.Stock != nil {
		add("stock", *in.Stock)
	}
	if set == "" {
		return r.Get(ctx, id)
	}
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`UPDATE products SET `+set+`, updated_at = now() WHERE id=$1 RETURNING `+cols, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context, limit, offset int) ([]Product, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+cols+` FROM products ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Guard & pengurangan dalam SATU statement, supaya dua request concurrent
// tidak bisa sama-sama lolos lalu overdraw stok.
const decrementSQL = `
	UPDATE products
	SET stock = stock - $2, updated_at = now()
	WHERE id = $1 AND stock >= $2`

// Executor: pgxpool.Pool atau pgx.Tx, supaya decrement bisa jalan di
// dalam transaksi milik caller.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DecrementStockOn menjalankan guarded decrement di executor q.
// Row count 0 berarti guard gagal; baru setelah itu dibedakan not-found
// vs stok kurang lewat satu SELECT diagnostik.
func DecrementStockOn(ctx context.Context, q Executor, id string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	ct, err := q.Exec(ctx, decrementSQL, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	return classifyDecrementFailure(ctx, q, id, quantity)
}

func classifyDecrementFailure(ctx context.Context, q Executor, id string, quantity int) error {
	var available int
	err := q.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, id).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return &InsufficientStockError{Available: available, Requested: quantity}
}

func (r *Repo) DecrementStock(ctx context.Context, id string, quantity int) (Product, error) {
	if quantity <= 0 {
		return Product{}, ErrInvalidQuantity
	}

	p, err := scanProduct(r.DB.QueryRow(ctx, decrementSQL+` RETURNING `+cols, id, quantity))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("decrement stock: %w", err)
	}
	return Product{}, classifyDecrementFailure(ctx, r.DB, id, quantity)
}
