package consumer

import (
	"context"
	"errors"
	"testing"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MockPickListCreator struct {
	CreatePickListFunc func(ctx context.Context, items []service.PickOrderItem, warehouseID uuid.UUID, pickType models.PickType, opts service.PickListOptions) (*service.PickListResult, error)
}

func (m *MockPickListCreator) CreatePickList(ctx context.Context, items []service.PickOrderItem, warehouseID uuid.UUID, pickType models.PickType, opts service.PickListOptions) (*service.PickListResult, error) {
	if m.CreatePickListFunc != nil {
		return m.CreatePickListFunc(ctx, items, warehouseID, pickType, opts)
	}
	return &service.PickListResult{PickList: &models.PickList{ID: uuid.New()}}, nil
}

func newTestConsumer(creator PickListCreator) *KafkaPickRequestConsumer {
	return &KafkaPickRequestConsumer{creator: creator, log: zap.NewNop()}
}

func TestHandle_CreatesPickList(t *testing.T) {
	warehouseID := uuid.New()
	productID := uuid.New()
	var (
		gotItems []service.PickOrderItem
		gotType  models.PickType
		gotOpts  service.PickListOptions
	)
	creator := &MockPickListCreator{
		CreatePickListFunc: func(_ context.Context, items []service.PickOrderItem, wid uuid.UUID, pt models.PickType, opts service.PickListOptions) (*service.PickListResult, error) {
			if wid != warehouseID {
				t.Errorf("expected warehouse %s, got %s", warehouseID, wid)
			}
			gotItems, gotType, gotOpts = items, pt, opts
			return &service.PickListResult{PickList: &models.PickList{ID: uuid.New()}}, nil
		},
	}
	c := newTestConsumer(creator)

	msg := `{
		"warehouse_id": "` + warehouseID.String() + `",
		"max_orders": 2,
		"priority_filter": ["urgent", "high"],
		"items": [
			{"order_id": "` + uuid.NewString() + `", "order_item_id": "` + uuid.NewString() + `",
			 "product_id": "` + productID.String() + `", "quantity": 3, "priority": "urgent",
			 "ordered_at": "2026-03-10T08:00:00Z"},
			{"order_id": "` + uuid.NewString() + `", "order_item_id": "` + uuid.NewString() + `",
			 "product_id": "` + productID.String() + `", "quantity": 1}
		]
	}`
	if _, err := c.Handle(context.Background(), []byte(msg)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotType != models.PickBatch {
		t.Errorf("expected default pick type batch, got %q", gotType)
	}
	if len(gotItems) != 2 || gotItems[0].Quantity != 3 || gotItems[0].OrderedAt.IsZero() {
		t.Fatalf("unexpected items: %+v", gotItems)
	}
	if gotItems[1].Priority != models.PriorityLow {
		t.Errorf("expected missing priority to default to low, got %q", gotItems[1].Priority)
	}
	if gotOpts.MaxOrders != 2 || len(gotOpts.PriorityFilter) != 2 {
		t.Errorf("unexpected options: %+v", gotOpts)
	}
}

func TestHandle_InvalidMessages(t *testing.T) {
	called := false
	c := newTestConsumer(&MockPickListCreator{
		CreatePickListFunc: func(context.Context, []service.PickOrderItem, uuid.UUID, models.PickType, service.PickListOptions) (*service.PickListResult, error) {
			called = true
			return nil, nil
		},
	})

	cases := map[string]string{
		"not json":          `{"warehouse_id":`,
		"missing warehouse": `{"items":[{"quantity":1}]}`,
		"no items":          `{"warehouse_id":"` + uuid.NewString() + `","items":[]}`,
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Handle(context.Background(), []byte(msg))
			if !errors.Is(err, errInvalidMessage) {
				t.Fatalf("expected errInvalidMessage, got %v", err)
			}
		})
	}
	if called {
		t.Error("creator must not be called for invalid messages")
	}
}

func TestHandle_PropagatesServiceError(t *testing.T) {
	c := newTestConsumer(&MockPickListCreator{
		CreatePickListFunc: func(context.Context, []service.PickOrderItem, uuid.UUID, models.PickType, service.PickListOptions) (*service.PickListResult, error) {
			return nil, service.ErrNoPickableItems
		},
	})
	msg := `{"warehouse_id":"` + uuid.NewString() + `","pick_type":"wave","items":[{"quantity":1}]}`
	if _, err := c.Handle(context.Background(), []byte(msg)); !errors.Is(err, service.ErrNoPickableItems) {
		t.Fatalf("expected ErrNoPickableItems, got %v", err)
	}
}
