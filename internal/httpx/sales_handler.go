package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-sales-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-sales-ledger.git/internal/products"
	"github.com/ariefcatur/go-sales-ledger.git/internal/reporting"
	"github.com/ariefcatur/go-sales-ledger.git/internal/sales"
)

type SalesHandler struct {
	Service  *sales.Service
	Reports  *reporting.Service
	Producer *kafkax.Producer
	Name     string // service name utk envelope producer
}

type createSaleReq struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	ExternalID string `json:"external_id"`
}

func (h *SalesHandler) Register(r chi.Router) {
	r.Post("/sales", h.create)
	r.Get("/sales", h.list)
	r.Get("/sales/report", h.report)
	r.Get("/sales/{id}", h.get)
}

func (h *SalesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" {
		errJSON(w, http.StatusBadRequest, "product_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := h.Service.Create(ctx, sales.CreateInput{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		SoldBy:     UserID(r.Context()),
		ExternalID: req.ExternalID,
	})
	if err != nil {
		writeSaleErr(w, err)
		return
	}

	h.publishRecorded(d, r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusCreated, d)
}

func (h *SalesHandler) publishRecorded(d sales.Detail, trace string) {
	if h.Producer == nil {
		return
	}
	ev := sales.Envelope{
		EventID:       uuid.NewString(),
		EventType:     sales.EventSaleRecorded,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       trace,
		CorrelationID: d.ID,
		Payload: kafkax.MustMarshal(sales.SaleRecordedPayload{
			SaleID:     d.ID,
			ProductID:  d.ProductID,
			SoldBy:     d.SoldBy,
			Quantity:   d.Quantity,
			UnitCents:  d.UnitCents,
			TotalCents: d.TotalCents,
		}),
	}
	h.Producer.Publish(sales.PartitionKey(d.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventSaleRecorded)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *SalesHandler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePage(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, meta, err := h.Service.List(ctx, page, limit)
	if err != nil {
		errJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows, "meta": meta})
}

func (h *SalesHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	d, err := h.Service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeSaleErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *SalesHandler) report(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rep, err := h.Reports.Report(ctx)
	if err != nil {
		errJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeSaleErr(w http.ResponseWriter, err error) {
	var insufficient *products.InsufficientStockError
	switch {
	case errors.Is(err, products.ErrNotFound), errors.Is(err, sales.ErrSaleNotFound):
		errJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, products.ErrInvalidQuantity):
		errJSON(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		errJSON(w, http.StatusBadRequest, insufficient.Error())
	case errors.Is(err, sales.ErrDuplicateRequest):
		errJSON(w, http.StatusConflict, err.Error())
	default:
		errJSON(w, http.StatusInternalServerError, "internal error")
	}
}
