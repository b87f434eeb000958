package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-sales-ledger.git/internal/products"
)

// memStore: fake ProductStore + Store di memori. Guard stok di dalam lock,
// meniru semantik conditional update di repo Postgres.
type memStore struct {
	mu   sync.Mutex
	prod map[string]products.Product
	rows []Sale
	seq  int64
}

func newMemStore(ps ...products.Product) *memStore {
	m := &memStore{prod: map[string]products.Product{}}
	for _, p := range ps {
		m.prod[p.ID] = p
	}
	return m
}

func (m *memStore) Get(ctx context.Context, id string) (products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prod[id]
	if !ok {
		return products.Product{}, products.ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreateSaleTx(ctx context.Context, s Sale) (Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prod[s.ProductID]
	if !ok {
		return Sale{}, products.ErrNotFound
	}
	if p.Stock < s.Quantity {
		return Sale{}, &products.InsufficientStockError{Available: p.Stock, Requested: s.Quantity}
	}
	p.Stock -= s.Quantity
	m.prod[s.ProductID] = p
	m.seq++
	s.CreatedAt = time.Unix(0, m.seq) // urutan insert deterministik
	m.rows = append(m.rows, s)
	return s, nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.ID == id {
			d := Detail{Sale: s}
			if p, ok := m.prod[s.ProductID]; ok {
				d.ProductName = p.Name
				d.ProductDescription = p.Description
				price := p.PriceCents
				d.ProductPriceCents = &price
			}
			return d, nil
		}
	}
	return Detail{}, ErrSaleNotFound
}

func (m *memStore) List(ctx context.Context, limit, offset int) ([]Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]Sale, len(m.rows))
	copy(rows, m.rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	out := []Detail{}
	for _, s := range rows[offset:end] {
		out = append(out, Detail{Sale: s})
	}
	return out, nil
}

func (m *memStore) CountAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *memStore) stockOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prod[id].Stock
}

func (m *memStore) setStock(id string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prod[id]
	p.Stock = stock
	m.prod[id] = p
}

func (m *memStore) setPrice(id string, cents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prod[id]
	p.PriceCents = cents
	m.prod[id] = p
}

func (m *memStore) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memIdem struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdem) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdem) DeleteIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func testProduct(stock int) products.Product {
	return products.Product{
		ID:          "prod-1",
		Name:        "Kopi Gayo 250g",
		Description: "medium roast",
		PriceCents:  1000,
		Stock:       stock,
	}
}

func TestCreate_Success(t *testing.T) {
	store := newMemStore(testProduct(10))
	svc := &Service{Products: store, Store: store}

	d, err := svc.Create(context.Background(), CreateInput{ProductID: "prod-1", Quantity: 2, SoldBy: "user-1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if d.UnitCents != 1000 {
		t.Errorf("expected unit 1000, got %d", d.UnitCents)
	}
	if d.TotalCents != 2000 {
		t.Errorf("expected total 2000, got %d", d.TotalCents)
	}
	if d.ProductName != "Kopi Gayo 250g" {
		t.Errorf("expected enriched product name, got %q", d.ProductName)
	}
	if store.stockOf("prod-1") != 8 {
		t.Errorf("expected stock 8, got %d", store.stockOf("prod-1"))
	}
}

func TestCreate_InsufficientStock(t *testing.T) {
	store := newMemStore(testProduct(3))
	svc := &Service{Products: store, Store: store}

	_, err := svc.Create(context.Background(), CreateInput{ProductID: "prod-1", Quantity: 5, SoldBy: "user-1"})
	var insufficient *products.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	want := "Insufficient stock. Available: 3, Requested: 5"
	if insufficient.Error() != want {
		t.Errorf("expected %q, got %q", want, insufficient.Error())
	}
	if store.saleCount() != 0 {
		t.Error("no sale should be recorded")
	}
	if store.stockOf("prod-1") != 3 {
		t.Errorf("stock must be unchanged, got %d", store.stockOf("prod-1"))
	}
}

func TestCreate_ProductNotFound(t *testing.T) {
	store := newMemStore()
	svc := &Service{Products: store, Store: store}

	_, err := svc.Create(context.Background(), CreateInput{ProductID: "missing", Quantity: 1, SoldBy: "user-1"})
	if !errors.Is(err, products.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestCreate_InvalidQuantity(t *testing.T) {
	store := newMemStore(testProduct(10))
	svc := &Service{Products: store, Store: store}

	for _, qty := range []int{0, -1} {
		_, err := svc.Create(context.Background(), CreateInput{ProductID: "prod-1", Quantity: qty, SoldBy: "user-1"})
		if !errors.Is(err, products.ErrInvalidQuantity) {
			t.Errorf("qty=%d: expected ErrInvalidQuantity, got: %v", qty, err)
		}
	}
	if store.saleCount() != 0 || store.stockOf("prod-1") != 10 {
		t.Error("invalid quantity must not write anything")
	}
}

func TestCreate_DuplicateExternalID(t *testing.T) {
	store := newMemStore(testProduct(10))
	svc := &Service{Products: store, Store: store, Idem: &memIdem{}}

	in := CreateInput{ProductID: "prod-1", Quantity: 1, SoldBy: "user-1", ExternalID: "req-abc"}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}
	if store.saleCount() != 1 || store.stockOf("prod-1") != 9 {
		t.Error("duplicate request must not decrement twice")
	}
}

// Request gagal tidak boleh membakar external_id-nya.
func TestCreate_RetryAfterInsufficientStock(t *testing.T) {
	store := newMemStore(testProduct(0))
	svc := &Service{Products: store, Store: store, Idem: &memIdem{}}

	in := CreateInput{ProductID: "prod-1", Quantity: 1, SoldBy: "user-1", ExternalID: "req-1"}
	_, err := svc.Create(context.Background(), in)
	var insufficient *products.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}

	// restock, lalu retry dengan external_id yang sama
	store.setStock("prod-1", 5)
	d, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("retry of a failed request must succeed: %v", err)
	}
	if d.Quantity != 1 || store.saleCount() != 1 {
		t.Errorf("retry should record exactly one sale, got %d", store.saleCount())
	}

	// tapi setelah sukses, request yang sama tetap ditolak
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest after success, got: %v", err)
	}
}

type flakyStore struct {
	*memStore
	failNext bool
}

func (f *flakyStore) CreateSaleTx(ctx context.Context, s Sale) (Sale, error) {
	if f.failNext {
		f.failNext = false
		return Sale{}, errors.New("tx aborted")
	}
	return f.memStore.CreateSaleTx(ctx, s)
}

func TestCreate_RetryAfterTransientTxError(t *testing.T) {
	store := &flakyStore{memStore: newMemStore(testProduct(10)), failNext: true}
	svc := &Service{Products: store.memStore, Store: store, Idem: &memIdem{}}

	in := CreateInput{ProductID: "prod-1", Quantity: 2, SoldBy: "user-1", ExternalID: "req-2"}
	if _, err := svc.Create(context.Background(), in); err == nil {
		t.Fatal("expected transient error")
	}

	d, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("retry after rolled-back tx must succeed: %v", err)
	}
	if d.TotalCents != 2000 || store.saleCount() != 1 {
		t.Errorf("expected one recorded sale, got %d", store.saleCount())
	}
}

func TestCreate_RetryAfterUnknownProduct(t *testing.T) {
	store := newMemStore()
	svc := &Service{Products: store, Store: store, Idem: &memIdem{}}

	in := CreateInput{ProductID: "prod-1", Quantity: 1, SoldBy: "user-1", ExternalID: "req-3"}
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, products.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	store.mu.Lock()
	store.prod["prod-1"] = testProduct(5)
	store.mu.Unlock()

	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Errorf("retry after not-found must succeed: %v", err)
	}
}

func TestCreate_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	store := newMemStore(testProduct(initialStock))
	svc := &Service{Products: store, Store: store}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(),
				CreateInput{ProductID: "prod-1", Quantity: 1, SoldBy: fmt.Sprintf("user-%d", id)})
			if err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if store.stockOf("prod-1") != 0 {
		t.Errorf("expected stock 0, got %d", store.stockOf("prod-1"))
	}
	if store.saleCount() != initialStock {
		t.Errorf("expected %d sales, got %d", initialStock, store.saleCount())
	}
}

func TestCreate_ConcurrentOverdrawByOne(t *testing.T) {
	initialStock := 10
	totalRequests := initialStock + 1

	store := newMemStore(testProduct(initialStock))
	svc := &Service{Products: store, Store: store}

	var failCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(),
				CreateInput{ProductID: "prod-1", Quantity: 1, SoldBy: "user"})
			if err != nil {
				var insufficient *products.InsufficientStockError
				if !errors.As(err, &insufficient) {
					t.Errorf("expected InsufficientStockError, got: %v", err)
				}
				failCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if failCount.Load() != 1 {
		t.Errorf("expected exactly 1 failure, got %d", failCount.Load())
	}
	if store.stockOf("prod-1") != 0 {
		t.Errorf("expected stock 0, got %d", store.stockOf("prod-1"))
	}
}

func TestCreate_PriceSnapshot(t *testing.T) {
	store := newMemStore(testProduct(10))
	svc := &Service{Products: store, Store: store}

	d, err := svc.Create(context.Background(), CreateInput{ProductID: "prod-1", Quantity: 2, SoldBy: "user-1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Harga produk berubah setelah sale tercatat.
	store.setPrice("prod-1", 9999)

	got, err := svc.Get(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.UnitCents != 1000 || got.TotalCents != 2000 {
		t.Errorf("sale must keep its snapshot, got unit=%d total=%d", got.UnitCents, got.TotalCents)
	}
	if got.ProductPriceCents == nil || *got.ProductPriceCents != 9999 {
		t.Error("enrichment should show the current product price")
	}
}

func TestList_Pagination(t *testing.T) {
	store := newMemStore(testProduct(100))
	svc := &Service{Products: store, Store: store}

	for i := 0; i < 12; i++ {
		if _, err := svc.Create(context.Background(),
			CreateInput{ProductID: "prod-1", Quantity: 1, SoldBy: "user-1"}); err != nil {
			t.Fatalf("seed sale %d: %v", i, err)
		}
	}

	rows, meta, err := svc.List(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("expected 5 rows, got %d", len(rows))
	}
	if meta.Total != 12 || meta.TotalPages != 3 || meta.Page != 2 || meta.Limit != 5 {
		t.Errorf("unexpected meta: %+v", meta)
	}

	// default page=1 limit=10
	rows, meta, err = svc.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 10 || meta.Page != 1 || meta.Limit != 10 {
		t.Errorf("expected defaults page=1 limit=10, got %d rows, meta %+v", len(rows), meta)
	}
}

func TestList_NewestFirst(t *testing.T) {
	store := newMemStore(testProduct(100))
	svc := &Service{Products: store, Store: store}

	var last string
	for i := 0; i < 3; i++ {
		d, err := svc.Create(context.Background(),
			CreateInput{ProductID: "prod-1", Quantity: 1, SoldBy: "user-1"})
		if err != nil {
			t.Fatalf("seed sale: %v", err)
		}
		last = d.ID
	}

	rows, _, err := svc.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != last {
		t.Errorf("expected newest sale first, got %+v", rows)
	}
}

func TestList_EmptyLedger(t *testing.T) {
	store := newMemStore()
	svc := &Service{Products: store, Store: store}

	rows, meta, err := svc.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 0 || meta.Total != 0 || meta.TotalPages != 0 {
		t.Errorf("expected empty page, got %d rows, meta %+v", len(rows), meta)
	}
}
