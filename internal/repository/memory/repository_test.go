package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/repository/memory"

	"github.com/google/uuid"
)

func TestLotRepo_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLotRepo()
	productID := uuid.New()
	whID := uuid.New()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, num := range []string{"L-2", "L-1"} {
		l := &models.Lot{
			ProductID:    productID,
			LotNumber:    num,
			Location:     models.Location{WarehouseID: whID, Zone: models.ZonePicking},
			ReceivedDate: base.AddDate(0, 0, -i),
		}
		l.Receive(10)
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create %s: %v", num, err)
		}
	}

	dup := &models.Lot{ProductID: productID, LotNumber: "L-1"}
	if err := repo.Create(ctx, dup); err == nil {
		t.Fatal("expected duplicate lot number to be rejected")
	}

	list, err := repo.List(ctx, repository.LotFilter{ProductID: &productID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].LotNumber != "L-1" {
		t.Fatalf("expected oldest lot first, got %+v", list)
	}

	other := uuid.New()
	list, _ = repo.List(ctx, repository.LotFilter{WarehouseID: &other})
	if len(list) != 0 {
		t.Fatalf("expected empty list for unknown warehouse, got %d", len(list))
	}
}

func TestLotRepo_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLotRepo()
	exp := time.Now().Add(48 * time.Hour)
	l := &models.Lot{ProductID: uuid.New(), LotNumber: "L", ExpiryDate: &exp}
	l.Receive(5)
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := repo.GetByID(ctx, l.ID)
	got.CurrentQuantity = 999
	*got.ExpiryDate = time.Time{}

	again, _ := repo.GetByID(ctx, l.ID)
	if again.CurrentQuantity != 5 || again.ExpiryDate.IsZero() {
		t.Fatalf("store leaked internal state: %+v", again)
	}
}

func TestLotRepo_MutateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLotRepo()
	l := &models.Lot{ProductID: uuid.New(), LotNumber: "L"}
	l.Receive(5)
	_ = repo.Create(ctx, l)

	boom := errors.New("boom")
	_, err := repo.Mutate(ctx, l.ID, func(l *models.Lot) error {
		l.Reserve(5)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := repo.GetByID(ctx, l.ID)
	if got.ReservedQuantity != 0 {
		t.Fatalf("mutation must not be applied: %+v", got)
	}

	if _, err := repo.Mutate(ctx, uuid.New(), func(*models.Lot) error { return nil }); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLotRepo_MutateKeepsCallerTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLotRepo()
	l := &models.Lot{ProductID: uuid.New(), LotNumber: "L"}
	l.Receive(5)
	_ = repo.Create(ctx, l)

	stamped := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := repo.Mutate(ctx, l.ID, func(l *models.Lot) error {
		l.UpdatedAt = stamped
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !got.UpdatedAt.Equal(stamped) {
		t.Fatalf("expected updated_at %v, got %v", stamped, got.UpdatedAt)
	}
	stored, _ := repo.GetByID(ctx, l.ID)
	if !stored.UpdatedAt.Equal(stamped) {
		t.Fatalf("stored updated_at %v, want %v", stored.UpdatedAt, stamped)
	}
}

func TestLotRepo_MutateIsLinearizable(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLotRepo()
	l := &models.Lot{ProductID: uuid.New(), LotNumber: "L"}
	l.Receive(100)
	_ = repo.Create(ctx, l)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var granted int32
			_, err := repo.Mutate(ctx, l.ID, func(l *models.Lot) error {
				granted = l.Reserve(3)
				return nil
			})
			if err != nil {
				t.Errorf("Mutate: %v", err)
				return
			}
			mu.Lock()
			total += granted
			mu.Unlock()
		}()
	}
	wg.Wait()

	got, _ := repo.GetByID(ctx, l.ID)
	if total != 100 || got.ReservedQuantity != 100 || got.AvailableQuantity != 0 {
		t.Fatalf("total=%d lot=%+v", total, got)
	}
}

func TestPickListRepo_UpdateAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPickListRepo()
	wh := uuid.New()

	pl := &models.PickList{
		WarehouseID: wh,
		Status:      models.PickListPending,
		Items:       []models.PickListItem{{ProductID: uuid.New(), RequestedQuantity: 2}},
	}
	if err := repo.Create(ctx, pl); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pl.Items[0].ID == uuid.Nil || pl.Items[0].PickListID != pl.ID {
		t.Fatalf("item ids not assigned: %+v", pl.Items[0])
	}

	updated, err := repo.Update(ctx, pl.ID, func(p *models.PickList) error {
		p.Status = models.PickListInProgress
		p.Items[0].PickedQuantity = 2
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != models.PickListInProgress || updated.Items[0].PickedQuantity != 2 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	pending := models.PickListPending
	list, _ := repo.List(ctx, repository.PickListFilter{WarehouseID: &wh, Status: &pending})
	if len(list) != 0 {
		t.Fatalf("expected no pending lists, got %d", len(list))
	}
	list, _ = repo.List(ctx, repository.PickListFilter{WarehouseID: &wh})
	if len(list) != 1 {
		t.Fatalf("expected 1 list, got %d", len(list))
	}
}

func TestPackListRepo_OnePerPickList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPackListRepo()
	pickID := uuid.New()

	if err := repo.Create(ctx, &models.PackList{PickListID: pickID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, &models.PackList{PickListID: pickID}); err == nil {
		t.Fatal("expected second pack list for same pick list to fail")
	}
	got, err := repo.GetByPickList(ctx, pickID)
	if err != nil || got == nil {
		t.Fatalf("GetByPickList: %v %v", got, err)
	}
	none, err := repo.GetByPickList(ctx, uuid.New())
	if err != nil || none != nil {
		t.Fatalf("expected nil, nil; got %v %v", none, err)
	}
}

func TestProductRepo_UniqueSKU(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()
	if err := repo.Create(ctx, &models.Product{SKU: "MILK-1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, &models.Product{SKU: "milk-1"}); err == nil {
		t.Fatal("expected case-insensitive sku conflict")
	}
	p, err := repo.GetBySKU(ctx, " MILK-1 ")
	if err != nil || p == nil {
		t.Fatalf("GetBySKU: %v %v", p, err)
	}
}
