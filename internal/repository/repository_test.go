package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fulfillment-service/internal/migrate"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"
	"fulfillment-service/pkg/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func setupRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateFulfillmentDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.New(db)
}

func seedLot(t *testing.T, repo *repository.Repository, qty int32) (*models.Warehouse, *models.Lot) {
	t.Helper()
	ctx := context.Background()

	w := &models.Warehouse{ID: uuid.New(), Code: "W-" + uuid.NewString()[:8], Name: "Main"}
	if err := repo.Warehouses.Upsert(ctx, w); err != nil {
		t.Fatalf("Upsert warehouse: %v", err)
	}
	p := &models.Product{ID: uuid.New(), SKU: "SKU-" + uuid.NewString()[:8], Name: "Milk", Perishable: true}
	if err := repo.Products.Create(ctx, p); err != nil {
		t.Fatalf("Create product: %v", err)
	}

	expiry := time.Now().UTC().Add(10 * 24 * time.Hour).Truncate(time.Second)
	lot := &models.Lot{
		ID:        uuid.New(),
		ProductID: p.ID,
		LotNumber: "L-001",
		Location: models.Location{
			WarehouseID: w.ID, Zone: models.ZonePicking, Aisle: "A", Shelf: "1", Bin: "1",
		},
		ReceivedDate:      time.Now().UTC().Truncate(time.Second),
		ExpiryDate:        &expiry,
		CurrentQuantity:   qty,
		AvailableQuantity: qty,
		QualityPassed:     true,
		Status:            models.LotActive,
	}
	if err := repo.Lots.Create(ctx, lot); err != nil {
		t.Fatalf("Create lot: %v", err)
	}
	return w, lot
}

func TestLotRepo_CreateAndLookup(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	w, lot := seedLot(t, repo, 10)

	got, err := repo.Lots.GetByID(ctx, lot.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LotNumber != "L-001" || got.Location.WarehouseID != w.ID || got.ExpiryDate == nil {
		t.Fatalf("GetByID mismatch: %+v", got)
	}

	byNumber, err := repo.Lots.GetByProductAndNumber(ctx, lot.ProductID, "L-001")
	if err != nil || byNumber == nil || byNumber.ID != lot.ID {
		t.Fatalf("GetByProductAndNumber: %+v, %v", byNumber, err)
	}
	missing, err := repo.Lots.GetByProductAndNumber(ctx, lot.ProductID, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing lot number, got %+v, %v", missing, err)
	}

	if _, err := repo.Lots.GetByID(ctx, uuid.New()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	active := []models.LotStatus{models.LotActive}
	list, err := repo.Lots.List(ctx, repository.LotFilter{WarehouseID: &w.ID, Statuses: active})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 lot, got %d", len(list))
	}
}

func TestLotRepo_MutateRollsBackOnError(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	_, lot := seedLot(t, repo, 10)

	boom := errors.New("boom")
	_, err := repo.Lots.Mutate(ctx, lot.ID, func(l *models.Lot) error {
		l.ReservedQuantity = 5
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := repo.Lots.GetByID(ctx, lot.ID)
	if got.ReservedQuantity != 0 {
		t.Fatalf("expected rollback, reserved=%d", got.ReservedQuantity)
	}

	if _, err := repo.Lots.Mutate(ctx, uuid.New(), func(*models.Lot) error { return nil }); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLotRepo_ConcurrentMutateIsSerialized(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	_, lot := seedLot(t, repo, 100)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Lots.Mutate(ctx, lot.ID, func(l *models.Lot) error {
				l.ReservedQuantity += 3
				l.AvailableQuantity -= 3
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Mutate: %v", err)
		}
	}

	got, _ := repo.Lots.GetByID(ctx, lot.ID)
	if got.ReservedQuantity != 3*workers || got.AvailableQuantity != 100-3*workers {
		t.Fatalf("lost update: reserved=%d available=%d", got.ReservedQuantity, got.AvailableQuantity)
	}
}

func TestPickListRepo_UpdateItems(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	w, lot := seedLot(t, repo, 10)

	plID := uuid.New()
	orderID := uuid.New()
	pl := &models.PickList{
		ID:          plID,
		WarehouseID: w.ID,
		OrderIDs:    []uuid.UUID{orderID},
		Status:      models.PickListPending,
		Priority:    models.PriorityHigh,
		PickType:    models.PickSingle,
		Items: []models.PickListItem{{
			ID:                uuid.New(),
			PickListID:        plID,
			OrderID:           orderID,
			OrderItemID:       uuid.New(),
			ProductID:         lot.ProductID,
			Priority:          models.PriorityHigh,
			RequestedQuantity: 4,
			Allocation:        []models.AllocatedLot{{LotID: lot.ID, LotNumber: lot.LotNumber, Quantity: 4}},
			Location:          lot.Location.String(),
			PickSequence:      1,
			Status:            models.PickItemPending,
		}},
	}
	if err := repo.PickLists.Create(ctx, pl); err != nil {
		t.Fatalf("Create: %v", err)
	}

	picker := uuid.New()
	now := time.Now().UTC()
	_, err := repo.PickLists.Update(ctx, plID, func(p *models.PickList) error {
		p.Status = models.PickListInProgress
		p.AssignedTo = &picker
		p.Items[0].PickedQuantity = 4
		p.Items[0].Status = models.PickItemPicked
		p.Items[0].PickedLots = []models.PickedLot{{LotID: lot.ID, Quantity: 4, PickedAt: now, PickedBy: picker}}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.PickLists.GetByID(ctx, plID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.PickListInProgress || got.AssignedTo == nil || *got.AssignedTo != picker {
		t.Fatalf("pick list not updated: %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].PickedQuantity != 4 || len(got.Items[0].PickedLots) != 1 {
		t.Fatalf("items not updated: %+v", got.Items)
	}
	if got.Items[0].Allocation[0].LotID != lot.ID {
		t.Fatalf("allocation lost: %+v", got.Items[0].Allocation)
	}

	status := models.PickListInProgress
	list, err := repo.PickLists.List(ctx, repository.PickListFilter{WarehouseID: &w.ID, Status: &status})
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %d, %v", len(list), err)
	}
}
