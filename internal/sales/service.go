package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-sales-ledger.git/internal/products"
	"github.com/ariefcatur/go-sales-ledger.git/internal/redisx"
)

var (
	ErrSaleNotFound     = errors.New("Sale not found")
	ErrDuplicateRequest = errors.New("duplicate request")
)

type ProductStore interface {
	Get(ctx context.Context, id string) (products.Product, error)
}

type Store interface {
	CreateSaleTx(ctx context.Context, s Sale) (Sale, error)
	FindByID(ctx context.Context, id string) (Detail, error)
	List(ctx context.Context, limit, offset int) ([]Detail, error)
	CountAll(ctx context.Context) (int, error)
}

type IdempotencyStore interface {
	SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error)
	DeleteIdempotency(ctx context.Context, key string) error
}

type Service struct {
	Products ProductStore
	Store    Store
	Idem     IdempotencyStore // boleh nil: tanpa dedup external_id
}

type CreateInput struct {
	ProductID  string
	Quantity   int
	SoldBy     string
	ExternalID string // opsional, utk retry-safety
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Detail, error) {
	if in.Quantity <= 0 {
		return Detail{}, products.ErrInvalidQuantity
	}

	// Dedup by external_id sebelum ada write apa pun. Key dilepas lagi di
	// jalur gagal, supaya retry atas request yang tidak menulis apa-apa
	// tidak mentok 409.
	release := func() {}
	if s.Idem != nil && in.ExternalID != "" {
		key := fmt.Sprintf(redisx.KeyIdemSaleCreate, in.ExternalID)
		ok, err := s.Idem.SetIdempotency(ctx, key, redisx.TTLIdempotency)
		if err != nil {
			return Detail{}, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return Detail{}, ErrDuplicateRequest
		}
		release = func() {
			// ctx request bisa sudah canceled di jalur error
			_ = s.Idem.DeleteIdempotency(context.WithoutCancel(ctx), key)
		}
	}

	p, err := s.Products.Get(ctx, in.ProductID)
	if err != nil {
		release()
		return Detail{}, err
	}

	// Fast-fail pakai stok hasil read (bisa stale). Kebenaran tetap di
	// conditional update dalam CreateSaleTx.
	if p.Stock < in.Quantity {
		release()
		return Detail{}, &products.InsufficientStockError{Available: p.Stock, Requested: in.Quantity}
	}

	sale := Sale{
		ID:         uuid.NewString(),
		ProductID:  in.ProductID,
		SoldBy:     in.SoldBy,
		Quantity:   in.Quantity,
		UnitCents:  p.PriceCents,
		TotalCents: p.PriceCents * int64(in.Quantity),
	}
	created, err := s.Store.CreateSaleTx(ctx, sale)
	if err != nil {
		release() // tx rollback, tidak ada yang tertulis
		return Detail{}, err
	}

	// Setelah commit key dibiarkan hidup: gagal read-back bukan alasan
	// untuk mencatat sale yang sama dua kali.
	return s.Store.FindByID(ctx, created.ID)
}

func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	return s.Store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, page, limit int) ([]Detail, Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	total, err := s.Store.CountAll(ctx)
	if err != nil {
		return nil, Meta{}, err
	}
	rows, err := s.Store.List(ctx, limit, offset)
	if err != nil {
		return nil, Meta{}, err
	}
	return rows, Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}
