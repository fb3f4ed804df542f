package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/repository/memory"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockEventBus запоминает опубликованные события
type MockEventBus struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, e service.DomainEvent) error
	Events      []service.DomainEvent
}

func (m *MockEventBus) Publish(ctx context.Context, e service.DomainEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, e)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, e)
	}
	return nil
}

func (m *MockEventBus) ByType(eventType string) []service.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []service.DomainEvent
	for _, e := range m.Events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockSummaryCache: кэш в map
type MockSummaryCache struct {
	mu             sync.Mutex
	data           map[string][]byte
	Gets, Hits     int
	InvalidateFunc func(ctx context.Context, productID uuid.UUID) error
}

func NewMockSummaryCache() *MockSummaryCache {
	return &MockSummaryCache{data: make(map[string][]byte)}
}

func (m *MockSummaryCache) Get(_ context.Context, productID uuid.UUID, scope string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	v, ok := m.data[productID.String()+":"+scope]
	if ok {
		m.Hits++
	}
	return v, ok, nil
}

func (m *MockSummaryCache) Set(_ context.Context, productID uuid.UUID, scope string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[productID.String()+":"+scope] = data
	return nil
}

func (m *MockSummaryCache) Invalidate(ctx context.Context, productID uuid.UUID) error {
	if m.InvalidateFunc != nil {
		if err := m.InvalidateFunc(ctx, productID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := productID.String() + ":"
	for k := range m.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	return nil
}

// MockLotRepo делегирует в настоящий репозиторий, если MutateFunc не задан
type MockLotRepo struct {
	repository.LotRepo
	MutateFunc func(ctx context.Context, id uuid.UUID, fn func(l *models.Lot) error) (*models.Lot, error)
}

func (m *MockLotRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(l *models.Lot) error) (*models.Lot, error) {
	if m.MutateFunc != nil {
		return m.MutateFunc(ctx, id, fn)
	}
	return m.LotRepo.Mutate(ctx, id, fn)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo      *repository.Repository
	inv       service.InventoryService
	ful       service.FulfillmentService
	bus       *MockEventBus
	cache     *MockSummaryCache
	clock     *fakeClock
	warehouse *models.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:  memory.New(),
		bus:   &MockEventBus{},
		cache: NewMockSummaryCache(),
		clock: &fakeClock{t: baseTime},
	}
	log := zap.NewNop()
	inv := service.NewInventoryService(f.repo, f.bus, f.cache, log, service.WithClock(f.clock.Now))
	f.inv = inv
	f.ful = service.NewFulfillmentService(f.repo, inv, f.bus, log, service.WithClock(f.clock.Now))

	w, err := f.inv.UpsertWarehouse(context.Background(), service.WarehouseInput{
		Code: "W1",
		Name: "Main",
		Zones: []models.WarehouseZone{
			{Name: models.ZonePicking, Aisles: []string{"A", "B"}},
			{Name: models.ZoneStorage, Aisles: []string{"S1"}},
		},
	})
	if err != nil {
		t.Fatalf("upsert warehouse: %v", err)
	}
	f.warehouse = w
	return f
}

func (f *fixture) product(t *testing.T, sku string, perishable bool) *models.Product {
	t.Helper()
	p, err := f.inv.CreateProduct(context.Background(), service.ProductInput{SKU: sku, Name: sku, Perishable: perishable})
	if err != nil {
		t.Fatalf("create product %s: %v", sku, err)
	}
	return p
}

type lotSpec struct {
	number     string
	zone       string
	aisle      string
	qty        int32
	expiresIn  time.Duration // 0: без срока годности
	receivedAt time.Duration // насколько раньше baseTime получена партия
	failedQC   bool
}

func (f *fixture) lot(t *testing.T, p *models.Product, s lotSpec) *models.Lot {
	t.Helper()
	in := service.ReceiveLotInput{
		ProductID:     p.ID,
		WarehouseID:   f.warehouse.ID,
		LotNumber:     s.number,
		Zone:          s.zone,
		Aisle:         s.aisle,
		Shelf:         "1",
		Bin:           "1",
		ReceivedDate:  f.clock.Now().Add(-s.receivedAt),
		Quantity:      s.qty,
		QualityPassed: !s.failedQC,
	}
	if in.Zone == "" {
		in.Zone = models.ZonePicking
	}
	if in.Aisle == "" {
		in.Aisle = "A"
	}
	if s.expiresIn != 0 {
		exp := f.clock.Now().Add(s.expiresIn)
		in.ExpiryDate = &exp
	}
	l, err := f.inv.ReceiveLot(context.Background(), in)
	if err != nil {
		t.Fatalf("receive lot %s: %v", s.number, err)
	}
	return l
}

func (f *fixture) mustLot(t *testing.T, id uuid.UUID) *models.Lot {
	t.Helper()
	l, err := f.inv.GetLot(context.Background(), id)
	if err != nil {
		t.Fatalf("get lot: %v", err)
	}
	return l
}

func assertLotInvariant(t *testing.T, l *models.Lot) {
	t.Helper()
	if l.ReservedQuantity < 0 || l.CurrentQuantity < 0 || l.AvailableQuantity < 0 {
		t.Fatalf("negative quantity: %+v", l)
	}
	if l.ReservedQuantity > l.CurrentQuantity {
		t.Fatalf("reserved %d > current %d", l.ReservedQuantity, l.CurrentQuantity)
	}
	want := l.CurrentQuantity - l.ReservedQuantity
	if l.Status != models.LotActive {
		want = 0
	}
	if l.AvailableQuantity != want {
		t.Fatalf("available %d, want %d (status %s)", l.AvailableQuantity, want, l.Status)
	}
}

const day = 24 * time.Hour
