package reporting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Report struct {
	TotalSales        int     `json:"total_sales"`
	TotalRevenueCents int64   `json:"total_revenue_cents"`
	AverageSaleCents  float64 `json:"average_sale_cents"`
}

type Aggregator interface {
	Aggregate(ctx context.Context) (count int, revenueCents int64, err error)
}

type Cache interface {
	GetReport(ctx context.Context) (Report, bool, error)
	SetReport(ctx context.Context, rep Report) error
}

type Repo struct{ DB *pgxpool.Pool }

// Agregasi di SQL, bukan load seluruh ledger ke memori.
func (r *Repo) Aggregate(ctx context.Context) (int, int64, error) {
	var count int
	var revenue int64
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_cents), 0) FROM sales`,
	).Scan(&count, &revenue)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate sales: %w", err)
	}
	return count, revenue, nil
}

type Service struct {
	Repo  Aggregator
	Cache Cache // boleh nil: selalu hitung dari DB
}

func (s *Service) Report(ctx context.Context) (Report, error) {
	if s.Cache != nil {
		if rep, ok, err := s.Cache.GetReport(ctx); err == nil && ok {
			return rep, nil
		}
	}

	count, revenue, err := s.Repo.Aggregate(ctx)
	if err != nil {
		return Report{}, err
	}
	rep := Report{TotalSales: count, TotalRevenueCents: revenue}
	if count > 0 {
		rep.AverageSaleCents = float64(revenue) / float64(count)
	}

	if s.Cache != nil {
		_ = s.Cache.SetReport(ctx, rep) // cache miss tidak fatal
	}
	return rep, nil
}
