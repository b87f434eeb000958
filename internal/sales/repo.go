package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-sales-ledger.git/internal/products"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateSaleTx: potong stok + insert sale dalam SATU transaksi.
// Decrement duluan (conditional, guard di statement); kalau guard gagal
// tidak ada baris sale yang tertulis, jadi tidak ada jendela partial failure.
func (r *Repo) CreateSaleTx(ctx context.Context, s Sale) (Sale, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Sale{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Guard tunggal milik products, dijalankan di tx ini.
	if err := products.DecrementStockOn(ctx, tx, s.ProductID, s.Quantity); err != nil {
		return Sale{}, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sales(id, product_id, sold_by, quantity, unit_cents, total_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		s.ID, s.ProductID, s.SoldBy, s.Quantity, s.UnitCents, s.TotalCents,
	).Scan(&s.CreatedAt)
	if err != nil {
		return Sale{}, fmt.Errorf("insert sale: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Sale{}, err
	}
	return s, nil
}

// FindByID: join-by-id utk display; nilai sale sendiri tetap dari snapshot.
func (r *Repo) FindByID(ctx context.Context, id string) (Detail, error) {
	var d Detail
	err := r.DB.QueryRow(ctx, `
		SELECT s.id, s.product_id, s.sold_by, s.quantity, s.unit_cents, s.total_cents, s.created_at,
		       COALESCE(p.name, ''), COALESCE(p.description, ''), p.price_cents,
		       COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		LEFT JOIN users u ON u.id = s.sold_by
		WHERE s.id = $1`, id,
	).Scan(
		&d.ID, &d.ProductID, &d.SoldBy, &d.Quantity, &d.UnitCents, &d.TotalCents, &d.CreatedAt,
		&d.ProductName, &d.ProductDescription, &d.ProductPriceCents,
		&d.SellerName, &d.SellerEmail,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Detail{}, ErrSaleNotFound
	}
	if err != nil {
		return Detail{}, err
	}
	return d, nil
}

func (r *Repo) List(ctx context.Context, limit, offset int) ([]Detail, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT s.id, s.product_id, s.sold_by, s.quantity, s.unit_cents, s.total_cents, s.created_at,
		       COALESCE(p.name, ''), COALESCE(p.description, '')
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		ORDER BY s.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Detail{}
	for rows.Next() {
		var d Detail
		if err := rows.Scan(
			&d.ID, &d.ProductID, &d.SoldBy, &d.Quantity, &d.UnitCents, &d.TotalCents, &d.CreatedAt,
			&d.ProductName, &d.ProductDescription,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n)
	return n, err
}
