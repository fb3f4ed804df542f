package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MockAllocator делегирует в реальный аллокатор, если Func не задан
type MockAllocator struct {
	Next         service.Allocator
	FulfillFunc  func(ctx context.Context, res models.StockReservation, picked []service.PickedQuantity) error
	ReleaseCalls int
}

func (m *MockAllocator) Allocate(ctx context.Context, productID uuid.UUID, quantity int32, opts service.AllocateOptions) (*service.AllocationResult, error) {
	return m.Next.Allocate(ctx, productID, quantity, opts)
}

func (m *MockAllocator) Release(ctx context.Context, res models.StockReservation) (int32, error) {
	m.ReleaseCalls++
	return m.Next.Release(ctx, res)
}

func (m *MockAllocator) Fulfill(ctx context.Context, res models.StockReservation, picked []service.PickedQuantity) error {
	if m.FulfillFunc != nil {
		return m.FulfillFunc(ctx, res, picked)
	}
	return m.Next.Fulfill(ctx, res, picked)
}

type pickScenario struct {
	milk, bolts       *models.Product
	milkLot, boltLot  *models.Lot
	order1, order2    uuid.UUID
	items             []service.PickOrderItem
	picker, otherUser uuid.UUID
}

func newPickScenario(t *testing.T, f *fixture) *pickScenario {
	t.Helper()
	s := &pickScenario{
		order1:    uuid.New(),
		order2:    uuid.New(),
		picker:    uuid.New(),
		otherUser: uuid.New(),
	}
	s.milk = f.product(t, "MILK", true)
	s.bolts = f.product(t, "BOLTS", false)
	s.milkLot = f.lot(t, s.milk, lotSpec{number: "M1", qty: 10, expiresIn: 3 * day, receivedAt: day})
	s.boltLot = f.lot(t, s.bolts, lotSpec{number: "B1", qty: 50, zone: models.ZoneStorage, aisle: "S1", receivedAt: 5 * day})
	s.items = []service.PickOrderItem{
		{OrderID: s.order1, OrderItemID: uuid.New(), ProductID: s.milk.ID, Quantity: 4, Priority: models.PriorityMedium},
		{OrderID: s.order2, OrderItemID: uuid.New(), ProductID: s.bolts.ID, Quantity: 3, Priority: models.PriorityHigh},
		{OrderID: s.order2, OrderItemID: uuid.New(), ProductID: uuid.New(), Quantity: 1, Priority: models.PriorityUrgent},
	}
	return s
}

func itemFor(t *testing.T, pl *models.PickList, productID uuid.UUID) models.PickListItem {
	t.Helper()
	for _, it := range pl.Items {
		if it.ProductID == productID {
			return it
		}
	}
	t.Fatalf("no item for product %s", productID)
	return models.PickListItem{}
}

func TestPickPackFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newPickScenario(t, f)

	res, err := f.ful.CreatePickList(ctx, s.items, f.warehouse.ID, models.PickBatch, service.PickListOptions{})
	if err != nil {
		t.Fatalf("create pick list: %v", err)
	}
	pl := res.PickList
	if len(pl.Items) != 2 || len(res.Warnings) != 1 {
		t.Fatalf("items=%d warnings=%v", len(pl.Items), res.Warnings)
	}
	if pl.Status != models.PickListPending || pl.Priority != models.PriorityUrgent {
		t.Fatalf("status=%s priority=%s", pl.Status, pl.Priority)
	}
	if pl.Items[0].ProductID != s.milk.ID || pl.Items[0].PickSequence != 1 || pl.Items[1].PickSequence != 2 {
		t.Fatalf("picking zone must come first: %+v", pl.Items)
	}
	if pl.Route.DistanceMeters != 100 || pl.Route.EstimatedMinutes != 15 || pl.EstimatedMinutes != 29 {
		t.Fatalf("route=%+v estimated=%d", pl.Route, pl.EstimatedMinutes)
	}
	if len(f.bus.ByType("fulfillment.picking.list-created")) != 1 {
		t.Fatal("expected list-created event")
	}

	if _, err := f.ful.AssignPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.ful.StartPickList(ctx, pl.ID, s.otherUser); !errors.Is(err, service.ErrNotAssignee) {
		t.Fatalf("expected ErrNotAssignee, got %v", err)
	}
	if _, err := f.ful.StartPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.ful.StartPickList(ctx, pl.ID, s.picker); !errors.Is(err, service.ErrInvalidState) {
		t.Fatalf("second start must fail with ErrInvalidState, got %v", err)
	}
	if _, err := f.ful.CompletePickList(ctx, pl.ID); !errors.Is(err, service.ErrPendingItems) {
		t.Fatalf("expected ErrPendingItems, got %v", err)
	}

	milkItem := itemFor(t, pl, s.milk.ID)
	boltItem := itemFor(t, pl, s.bolts.ID)
	if _, err := f.ful.RecordPick(ctx, pl.ID, milkItem.ID, []service.PickedQuantity{{LotID: s.milkLot.ID, Quantity: 4}}, s.picker); err != nil {
		t.Fatalf("record milk: %v", err)
	}
	updated, err := f.ful.RecordPick(ctx, pl.ID, boltItem.ID, []service.PickedQuantity{{LotID: s.boltLot.ID, Quantity: 2}}, s.picker)
	if err != nil {
		t.Fatalf("record bolts: %v", err)
	}
	short := itemFor(t, updated, s.bolts.ID)
	if short.Status != models.PickItemShort || short.ShortQuantity != 1 || short.PickedQuantity != 2 {
		t.Fatalf("short item: %+v", short)
	}

	f.clock.Advance(15 * time.Minute)
	done, err := f.ful.CompletePickList(ctx, pl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.FulfillmentComplete || done.PackList == nil || len(done.Warnings) != 0 {
		t.Fatalf("completion: %+v", done)
	}
	if done.PickList.Status != models.PickListCompleted || done.PickList.ActualMinutes == nil || *done.PickList.ActualMinutes != 15 {
		t.Fatalf("completed pick list: %+v", done.PickList)
	}

	// резервы списаны по отобранному
	milkLot := f.mustLot(t, s.milkLot.ID)
	boltLot := f.mustLot(t, s.boltLot.ID)
	if milkLot.CurrentQuantity != 6 || milkLot.ReservedQuantity != 0 {
		t.Fatalf("milk lot: %+v", milkLot)
	}
	if boltLot.CurrentQuantity != 48 || boltLot.ReservedQuantity != 0 || boltLot.AvailableQuantity != 48 {
		t.Fatalf("bolt lot: %+v", boltLot)
	}

	pack := done.PackList
	if pack.PackType != models.PackMulti || len(pack.Packages) != 2 || pack.ShippingMethod != "standard" {
		t.Fatalf("pack list: %+v", pack)
	}
	p1, p2 := pack.Packages[0], pack.Packages[1]
	if p1.PackageNumber != "PKG-001" || p1.OrderIDs[0] != s.order1 || !p1.Perishable || len(p1.Instructions) != 1 {
		t.Fatalf("first package: %+v", p1)
	}
	if !p1.EstimatedWeight.Equal(decimal.RequireFromString("0.5")) || !p1.Dimensions.Length.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("first package size: weight=%s dims=%+v", p1.EstimatedWeight, p1.Dimensions)
	}
	if p2.PackageNumber != "PKG-002" || p2.Perishable || !p2.Dimensions.Length.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("second package: %+v", p2)
	}
	if !pack.TotalWeight.Equal(decimal.NewFromInt(1)) || pack.EstimatedMinutes != 11 {
		t.Fatalf("totals: weight=%s minutes=%d", pack.TotalWeight, pack.EstimatedMinutes)
	}

	if _, err := f.ful.CreatePackList(ctx, pl.ID, service.PackListOptions{}); !errors.Is(err, service.ErrPackListExists) {
		t.Fatalf("expected ErrPackListExists, got %v", err)
	}

	packer := uuid.New()
	if _, err := f.ful.AssignPackList(ctx, pack.ID, packer); err != nil {
		t.Fatalf("assign pack: %v", err)
	}
	if _, err := f.ful.StartPackList(ctx, pack.ID, packer); err != nil {
		t.Fatalf("start pack: %v", err)
	}

	tn1, tn2 := "TRK-1", "TRK-2"
	weight := decimal.RequireFromString("2.2")
	if _, err := f.ful.RecordPackage(ctx, pack.ID, p1.ID, service.PackageUpdate{TrackingNumber: &tn1, Weight: &weight}); err != nil {
		t.Fatalf("record package: %v", err)
	}
	if _, err := f.ful.CompletePackList(ctx, pack.ID); !errors.Is(err, service.ErrMissingTracking) {
		t.Fatalf("expected ErrMissingTracking, got %v", err)
	}
	if _, err := f.ful.RecordPackage(ctx, pack.ID, p2.ID, service.PackageUpdate{TrackingNumber: &tn2}); err != nil {
		t.Fatalf("record package: %v", err)
	}
	again, err := f.ful.RecordPackage(ctx, pack.ID, p2.ID, service.PackageUpdate{TrackingNumber: &tn2})
	if err != nil {
		t.Fatalf("record package again: %v", err)
	}
	if len(again.TrackingNumbers) != 2 {
		t.Fatalf("tracking numbers must be unique: %v", again.TrackingNumbers)
	}
	if !again.TotalWeight.Equal(decimal.RequireFromString("2.7")) {
		t.Fatalf("total weight should use actual weight: %s", again.TotalWeight)
	}
	if _, err := f.ful.RecordPackage(ctx, pack.ID, uuid.New(), service.PackageUpdate{}); !errors.Is(err, service.ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	closed, err := f.ful.CompletePackList(ctx, pack.ID)
	if err != nil {
		t.Fatalf("complete pack: %v", err)
	}
	if closed.Status != models.PackListCompleted {
		t.Fatalf("pack status: %s", closed.Status)
	}
	if len(f.bus.ByType("fulfillment.packing.list-completed")) != 1 {
		t.Fatal("expected pack completed event")
	}

	pm, err := f.ful.GetPickingMetrics(ctx, service.MetricsFilter{WarehouseID: &f.warehouse.ID})
	if err != nil {
		t.Fatalf("picking metrics: %v", err)
	}
	if pm.Completed != 1 || pm.RequestedUnits != 7 || pm.PickedUnits != 6 || pm.ShortUnits != 1 {
		t.Fatalf("picking metrics: %+v", pm)
	}
	if math.Abs(pm.Accuracy-6.0/7.0) > 1e-9 || pm.AverageMinutes != 15 || pm.ItemsPerHour != 24 {
		t.Fatalf("picking ratios: %+v", pm)
	}

	km, err := f.ful.GetPackingMetrics(ctx, service.MetricsFilter{})
	if err != nil {
		t.Fatalf("packing metrics: %v", err)
	}
	if km.Completed != 1 || km.PackagesTotal != 2 || km.PackagesShipped != 2 || km.PackedUnits != 6 || km.AverageMinutes != 10 {
		t.Fatalf("packing metrics: %+v", km)
	}
}

func TestCreatePickList_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newPickScenario(t, f)

	if _, err := f.ful.CreatePickList(ctx, s.items, uuid.New(), models.PickSingle, service.PickListOptions{}); !errors.Is(err, service.ErrWarehouseNotFound) {
		t.Fatalf("expected ErrWarehouseNotFound, got %v", err)
	}
	if _, err := f.ful.CreatePickList(ctx, s.items, f.warehouse.ID, "zone", service.PickListOptions{}); !errors.Is(err, service.ErrInvalidPickType) {
		t.Fatalf("expected ErrInvalidPickType, got %v", err)
	}
	unknown := []service.PickOrderItem{{OrderID: uuid.New(), OrderItemID: uuid.New(), ProductID: uuid.New(), Quantity: 1}}
	if _, err := f.ful.CreatePickList(ctx, unknown, f.warehouse.ID, models.PickSingle, service.PickListOptions{}); !errors.Is(err, service.ErrNoPickableItems) {
		t.Fatalf("expected ErrNoPickableItems, got %v", err)
	}
}

func TestCreatePickList_Selection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "PENS", false)
	f.lot(t, p, lotSpec{number: "PEN-1", qty: 100, receivedAt: 3 * day})

	o1, o2, o3 := uuid.New(), uuid.New(), uuid.New()
	late := baseTime.Add(time.Hour)
	cutoff := baseTime
	items := []service.PickOrderItem{
		{OrderID: o1, OrderItemID: uuid.New(), ProductID: p.ID, Quantity: 1, Priority: models.PriorityLow},
		{OrderID: o2, OrderItemID: uuid.New(), ProductID: p.ID, Quantity: 1, Priority: models.PriorityHigh},
		{OrderID: o1, OrderItemID: uuid.New(), ProductID: p.ID, Quantity: 1, Priority: models.PriorityLow},
		{OrderID: o3, OrderItemID: uuid.New(), ProductID: p.ID, Quantity: 1, Priority: models.PriorityLow},
		{OrderID: o2, OrderItemID: uuid.New(), ProductID: p.ID, Quantity: 1, Priority: models.PriorityLow, OrderedAt: late},
	}

	res, err := f.ful.CreatePickList(ctx, items, f.warehouse.ID, models.PickWave, service.PickListOptions{MaxOrders: 2, CutoffTime: &cutoff})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.PickList.Items) != 3 {
		t.Fatalf("expected 3 items from orders o1, o2, got %d", len(res.PickList.Items))
	}
	if ids := res.PickList.OrderIDs; len(ids) != 2 || ids[0] != o1 || ids[1] != o2 {
		t.Fatalf("order ids: %v", ids)
	}

	res, err = f.ful.CreatePickList(ctx, items, f.warehouse.ID, models.PickSingle, service.PickListOptions{
		PriorityFilter: []models.Priority{models.PriorityHigh},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.PickList.Items) != 1 || res.PickList.Priority != models.PriorityHigh {
		t.Fatalf("priority filter: %+v", res.PickList)
	}

	res, err = f.ful.CreatePickList(ctx, items, f.warehouse.ID, models.PickSingle, service.PickListOptions{MaxItems: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.PickList.Items) != 2 {
		t.Fatalf("max items: %d", len(res.PickList.Items))
	}
}

func TestCancelPickList_ReleasesReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newPickScenario(t, f)

	res, err := f.ful.CreatePickList(ctx, s.items[:2], f.warehouse.ID, models.PickBatch, service.PickListOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := f.mustLot(t, s.milkLot.ID).ReservedQuantity; got != 4 {
		t.Fatalf("milk reserved %d, want 4", got)
	}

	pl, err := f.ful.CancelPickList(ctx, res.PickList.ID, "order cancelled")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if pl.Status != models.PickListCancelled || pl.CancelledAt == nil {
		t.Fatalf("cancelled list: %+v", pl)
	}
	for _, id := range []uuid.UUID{s.milkLot.ID, s.boltLot.ID} {
		l := f.mustLot(t, id)
		if l.ReservedQuantity != 0 {
			t.Fatalf("lot %s still reserved: %+v", l.LotNumber, l)
		}
		assertLotInvariant(t, l)
	}
	if _, err := f.ful.CancelPickList(ctx, res.PickList.ID, ""); !errors.Is(err, service.ErrInvalidState) {
		t.Fatalf("cancelling twice: %v", err)
	}
	if _, err := f.ful.AssignPickList(ctx, res.PickList.ID, s.picker); !errors.Is(err, service.ErrInvalidState) {
		t.Fatalf("assign after cancel: %v", err)
	}
	if _, err := f.ful.CancelPickList(ctx, uuid.New(), ""); !errors.Is(err, service.ErrPickListNotFound) {
		t.Fatalf("expected ErrPickListNotFound, got %v", err)
	}
}

func TestRecordPick_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newPickScenario(t, f)

	res, err := f.ful.CreatePickList(ctx, s.items[:1], f.warehouse.ID, models.PickSingle, service.PickListOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pl := res.PickList
	item := pl.Items[0]
	picked := []service.PickedQuantity{{LotID: s.milkLot.ID, Quantity: 1}}

	if _, err := f.ful.RecordPick(ctx, pl.ID, item.ID, picked, s.picker); !errors.Is(err, service.ErrInvalidState) {
		t.Fatalf("pick before start: %v", err)
	}
	if _, err := f.ful.CreatePackList(ctx, pl.ID, service.PackListOptions{}); !errors.Is(err, service.ErrInvalidState) {
		t.Fatalf("pack list from pending pick list: %v", err)
	}

	if _, err := f.ful.AssignPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.ful.StartPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.ful.RecordPick(ctx, pl.ID, uuid.New(), picked, s.picker); !errors.Is(err, service.ErrItemNotFound) {
		t.Fatalf("unknown item: %v", err)
	}
	if _, err := f.ful.RecordPick(ctx, pl.ID, item.ID, []service.PickedQuantity{{LotID: s.milkLot.ID, Quantity: 0}}, s.picker); !errors.Is(err, service.ErrInvalidQuantity) {
		t.Fatalf("zero quantity: %v", err)
	}

	got, err := f.ful.RecordPick(ctx, pl.ID, item.ID, nil, s.picker)
	if err != nil {
		t.Fatalf("empty pick: %v", err)
	}
	if got.Items[0].Status != models.PickItemPending {
		t.Fatalf("nothing picked keeps item pending, got %s", got.Items[0].Status)
	}
}

func TestRecordPick_RejectsUnallocatedLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newPickScenario(t, f)

	// чужой заказ держит резерв на болты
	other, err := f.inv.Allocate(ctx, s.bolts.ID, 45, service.AllocateOptions{OrderID: uuid.New(), WarehouseID: f.warehouse.ID})
	if err != nil || other.Allocated != 45 {
		t.Fatalf("allocate bolts: %+v %v", other, err)
	}
	spare := f.lot(t, s.milk, lotSpec{number: "M2", qty: 10, expiresIn: 20 * day})

	res, err := f.ful.CreatePickList(ctx, s.items[:1], f.warehouse.ID, models.PickSingle, service.PickListOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pl := res.PickList
	item := pl.Items[0]
	if len(item.Allocation) != 1 || item.Allocation[0].LotID != s.milkLot.ID {
		t.Fatalf("expected milk allocated from M1: %+v", item.Allocation)
	}
	if _, err := f.ful.AssignPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.ful.StartPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("start: %v", err)
	}

	cases := map[string][]service.PickedQuantity{
		"other product":      {{LotID: s.boltLot.ID, Quantity: 4}},
		"same product spare": {{LotID: spare.ID, Quantity: 4}},
		"mixed":              {{LotID: s.milkLot.ID, Quantity: 2}, {LotID: spare.ID, Quantity: 2}},
	}
	for name, lots := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ful.RecordPick(ctx, pl.ID, item.ID, lots, s.picker)
			if !errors.Is(err, service.ErrLotNotAllocated) || !errors.Is(err, service.ErrValidation) {
				t.Fatalf("expected ErrLotNotAllocated, got %v", err)
			}
		})
	}

	stored, err := f.ful.GetPickList(ctx, pl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Items[0].Status != models.PickItemPending || len(stored.Items[0].PickedLots) != 0 {
		t.Fatalf("rejected pick must not be recorded: %+v", stored.Items[0])
	}

	if _, err := f.ful.RecordPick(ctx, pl.ID, item.ID, []service.PickedQuantity{{LotID: s.milkLot.ID, Quantity: 4}}, s.picker); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := f.ful.CompletePickList(ctx, pl.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	bolts := f.mustLot(t, s.boltLot.ID)
	if bolts.CurrentQuantity != 50 || bolts.ReservedQuantity != 45 {
		t.Fatalf("other order's lot must be untouched: %+v", bolts)
	}
	if n := len(f.bus.ByType("fulfillment.lot.reservations-voided")); n != 0 {
		t.Fatalf("expected no voided reservations, got %d", n)
	}
}

func TestCompletePickList_OverPickVoidsOtherReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "EGGS", false)
	lot := f.lot(t, p, lotSpec{number: "E-1", qty: 10, receivedAt: 3 * day})

	if _, err := f.inv.Allocate(ctx, p.ID, 6, service.AllocateOptions{OrderID: uuid.New(), WarehouseID: f.warehouse.ID}); err != nil {
		t.Fatalf("allocate other order: %v", err)
	}
	items := []service.PickOrderItem{{OrderID: uuid.New(), OrderItemID: uuid.New(), ProductID: p.ID, Quantity: 2, Priority: models.PriorityHigh}}
	res, err := f.ful.CreatePickList(ctx, items, f.warehouse.ID, models.PickSingle, service.PickListOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pl := res.PickList
	picker := uuid.New()
	if _, err := f.ful.AssignPickList(ctx, pl.ID, picker); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.ful.StartPickList(ctx, pl.ID, picker); err != nil {
		t.Fatalf("start: %v", err)
	}
	// из зарезервированной партии взяли 5 вместо 2: остаток 5 не покрывает чужие 6
	if _, err := f.ful.RecordPick(ctx, pl.ID, pl.Items[0].ID, []service.PickedQuantity{{LotID: lot.ID, Quantity: 5}}, picker); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := f.ful.CompletePickList(ctx, pl.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got := f.mustLot(t, lot.ID)
	if got.CurrentQuantity != 5 || got.ReservedQuantity != 5 || got.AvailableQuantity != 0 {
		t.Fatalf("lot after over-pick: %+v", got)
	}
	assertLotInvariant(t, got)

	voided := f.bus.ByType("fulfillment.lot.reservations-voided")
	if len(voided) != 1 {
		t.Fatalf("expected one voided event, got %d", len(voided))
	}
	if e := voided[0].(*service.ReservationsVoidedEvent); e.LotID != lot.ID || e.Quantity != 1 {
		t.Fatalf("unexpected voided event: %+v", e)
	}
}

func TestCreatePackList_WeightByItemsSizeByUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SOAP", false)
	lot := f.lot(t, p, lotSpec{number: "S-1", qty: 20, receivedAt: 2 * day})

	items := []service.PickOrderItem{{OrderID: uuid.New(), OrderItemID: uuid.New(), ProductID: p.ID, Quantity: 10, Priority: models.PriorityLow}}
	res, err := f.ful.CreatePickList(ctx, items, f.warehouse.ID, models.PickSingle, service.PickListOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pl := res.PickList
	picker := uuid.New()
	if _, err := f.ful.AssignPickList(ctx, pl.ID, picker); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.ful.StartPickList(ctx, pl.ID, picker); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.ful.RecordPick(ctx, pl.ID, pl.Items[0].ID, []service.PickedQuantity{{LotID: lot.ID, Quantity: 10}}, picker); err != nil {
		t.Fatalf("record: %v", err)
	}
	done, err := f.ful.CompletePickList(ctx, pl.ID)
	if err != nil || done.PackList == nil {
		t.Fatalf("complete: %+v %v", done, err)
	}

	pkg := done.PackList.Packages[0]
	if !pkg.EstimatedWeight.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("one item line weighs 0.5kg, got %s", pkg.EstimatedWeight)
	}
	if !pkg.Dimensions.Length.Equal(decimal.NewFromInt(50)) || !pkg.Dimensions.Height.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("10 units need the large box, got %+v", pkg.Dimensions)
	}
}

func TestCompletePickList_FulfillFailureKeepsCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newPickScenario(t, f)

	alloc := &MockAllocator{
		Next: f.inv,
		FulfillFunc: func(context.Context, models.StockReservation, []service.PickedQuantity) error {
			return errors.New("lot store unavailable")
		},
	}
	ful := service.NewFulfillmentService(f.repo, alloc, f.bus, zap.NewNop(), service.WithClock(f.clock.Now))

	res, err := ful.CreatePickList(ctx, s.items[:1], f.warehouse.ID, models.PickSingle, service.PickListOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pl := res.PickList
	if _, err := ful.AssignPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := ful.StartPickList(ctx, pl.ID, s.picker); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := ful.RecordPick(ctx, pl.ID, pl.Items[0].ID, []service.PickedQuantity{{LotID: s.milkLot.ID, Quantity: 4}}, s.picker); err != nil {
		t.Fatalf("record: %v", err)
	}

	done, err := ful.CompletePickList(ctx, pl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.FulfillmentComplete || len(done.Warnings) != 1 || done.PackList == nil {
		t.Fatalf("expected incomplete fulfillment with a pack list: %+v", done)
	}
	stored, err := ful.GetPickList(ctx, pl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != models.PickListCompleted || stored.FulfillmentComplete {
		t.Fatalf("stored pick list: status=%s fulfillment=%v", stored.Status, stored.FulfillmentComplete)
	}

	list, err := ful.ListPickLists(ctx, repository.PickListFilter{WarehouseID: &f.warehouse.ID})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
}
