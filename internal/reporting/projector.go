package reporting

import (
	"context"
	"encoding/json"
	"log"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-sales-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-sales-ledger.git/internal/sales"
)

// ProjectorStore: dedup event + invalidasi cache report.
type ProjectorStore interface {
	SeenEvent(ctx context.Context, eventID string) (bool, error)
	MarkEvent(ctx context.Context, eventID string) error
	InvalidateReport(ctx context.Context) error
}

// Projector: consumer sale.recorded. Invalidate cache report supaya read
// berikutnya hitung ulang dari ledger; ledger tetap source of truth.
type Projector struct {
	Store ProjectorStore
}

// HandleSaleRecorded dipasang sebagai handler consumer.
func (p *Projector) HandleSaleRecorded(ctx context.Context, m kafkago.Message) error {
	var env sales.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != sales.EventSaleRecorded {
		return nil // ignore
	}

	seen, _ := p.Store.SeenEvent(ctx, env.EventID)
	if seen {
		return nil
	}

	pl, err := kafkax.UnwrapPayload[sales.SaleRecordedPayload](env.Payload)
	if err != nil {
		return err
	}

	// Error di sini memicu redelivery; dedup belum ditandai, jadi
	// invalidation tidak hilang.
	if err := p.Store.InvalidateReport(ctx); err != nil {
		return err
	}
	// Mark SETELAH invalidation sukses. DEL idempotent, replay aman.
	if err := p.Store.MarkEvent(ctx, env.EventID); err != nil {
		log.Printf("mark event %s: %v", env.EventID, err)
	}
	log.Printf("report cache invalidated: sale=%s total_cents=%d", pl.SaleID, pl.TotalCents)
	return nil
}
