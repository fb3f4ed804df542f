package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
)

// New собирает Repository поверх памяти (без БД).
func New() *repository.Repository {
	return &repository.Repository{
		Products:   NewProductRepo(),
		Warehouses: NewWarehouseRepo(),
		Lots:       NewLotRepo(),
		PickLists:  NewPickListRepo(),
		PackLists:  NewPackListRepo(),
	}
}

var (
	_ repository.ProductRepo   = (*ProductRepo)(nil)
	_ repository.WarehouseRepo = (*WarehouseRepo)(nil)
	_ repository.LotRepo       = (*LotRepo)(nil)
	_ repository.PickListRepo  = (*PickListRepo)(nil)
	_ repository.PackListRepo  = (*PackListRepo)(nil)
)

func identity[T any](v T) T { return v }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}

type ProductRepo struct {
	s *store[models.Product]
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{s: newStore(identity[models.Product])}
}

func (r *ProductRepo) Create(_ context.Context, p *models.Product) error {
	ensureID(&p.ID)
	stamp(&p.CreatedAt, &p.UpdatedAt)
	ok := r.s.insert(p.ID, *p, func(other models.Product) bool {
		return strings.EqualFold(other.SKU, p.SKU)
	})
	if !ok {
		return fmt.Errorf("product %s (sku %q) already exists", p.ID, p.SKU)
	}
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := r.s.get(id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*models.Product, error) {
	sku = strings.TrimSpace(sku)
	list := r.s.snapshot(func(p models.Product) bool { return strings.EqualFold(p.SKU, sku) })
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

type WarehouseRepo struct {
	s *store[models.Warehouse]
}

func NewWarehouseRepo() *WarehouseRepo {
	return &WarehouseRepo{s: newStore(models.Warehouse.Clone)}
}

func (r *WarehouseRepo) Upsert(_ context.Context, w *models.Warehouse) error {
	ensureID(&w.ID)
	stamp(&w.CreatedAt, &w.UpdatedAt)
	r.s.put(w.ID, *w)
	return nil
}

func (r *WarehouseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Warehouse, error) {
	w, err := r.s.get(id)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WarehouseRepo) List(_ context.Context) ([]models.Warehouse, error) {
	list := r.s.snapshot(nil)
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

type LotRepo struct {
	s *store[models.Lot]
}

func NewLotRepo() *LotRepo {
	return &LotRepo{s: newStore(models.Lot.Clone)}
}

func (r *LotRepo) Create(_ context.Context, l *models.Lot) error {
	ensureID(&l.ID)
	stamp(&l.CreatedAt, &l.UpdatedAt)
	ok := r.s.insert(l.ID, *l, func(other models.Lot) bool {
		return other.ProductID == l.ProductID && other.LotNumber == l.LotNumber
	})
	if !ok {
		return fmt.Errorf("lot %q already exists for product %s", l.LotNumber, l.ProductID)
	}
	return nil
}

func (r *LotRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Lot, error) {
	l, err := r.s.get(id)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LotRepo) GetByProductAndNumber(_ context.Context, productID uuid.UUID, lotNumber string) (*models.Lot, error) {
	list := r.s.snapshot(func(l models.Lot) bool {
		return l.ProductID == productID && l.LotNumber == lotNumber
	})
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *LotRepo) List(_ context.Context, f repository.LotFilter) ([]models.Lot, error) {
	list := r.s.snapshot(func(l models.Lot) bool {
		if f.ProductID != nil && l.ProductID != *f.ProductID {
			return false
		}
		if f.WarehouseID != nil && l.Location.WarehouseID != *f.WarehouseID {
			return false
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, l.Status) {
			return false
		}
		return true
	})
	sort.Slice(list, func(i, j int) bool {
		if !list[i].ReceivedDate.Equal(list[j].ReceivedDate) {
			return list[i].ReceivedDate.Before(list[j].ReceivedDate)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list, nil
}

func (r *LotRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(l *models.Lot) error) (*models.Lot, error) {
	l, err := r.s.update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

type PickListRepo struct {
	s *store[models.PickList]
}

func NewPickListRepo() *PickListRepo {
	return &PickListRepo{s: newStore(models.PickList.Clone)}
}

func (r *PickListRepo) Create(_ context.Context, pl *models.PickList) error {
	ensureID(&pl.ID)
	stamp(&pl.CreatedAt, &pl.UpdatedAt)
	for i := range pl.Items {
		ensureID(&pl.Items[i].ID)
		pl.Items[i].PickListID = pl.ID
	}
	if !r.s.insert(pl.ID, *pl, nil) {
		return fmt.Errorf("pick list %s already exists", pl.ID)
	}
	return nil
}

func (r *PickListRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PickList, error) {
	pl, err := r.s.get(id)
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (r *PickListRepo) List(_ context.Context, f repository.PickListFilter) ([]models.PickList, error) {
	list := r.s.snapshot(func(pl models.PickList) bool {
		if f.WarehouseID != nil && pl.WarehouseID != *f.WarehouseID {
			return false
		}
		return f.Status == nil || pl.Status == *f.Status
	})
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r *PickListRepo) Update(ctx context.Context, id uuid.UUID, fn func(pl *models.PickList) error) (*models.PickList, error) {
	pl, err := r.s.update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

type PackListRepo struct {
	s *store[models.PackList]
}

func NewPackListRepo() *PackListRepo {
	return &PackListRepo{s: newStore(models.PackList.Clone)}
}

func (r *PackListRepo) Create(_ context.Context, pl *models.PackList) error {
	ensureID(&pl.ID)
	stamp(&pl.CreatedAt, &pl.UpdatedAt)
	for i := range pl.Packages {
		ensureID(&pl.Packages[i].ID)
		pl.Packages[i].PackListID = pl.ID
	}
	ok := r.s.insert(pl.ID, *pl, func(other models.PackList) bool {
		return other.PickListID == pl.PickListID
	})
	if !ok {
		return fmt.Errorf("pack list for pick list %s already exists", pl.PickListID)
	}
	return nil
}

func (r *PackListRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PackList, error) {
	pl, err := r.s.get(id)
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (r *PackListRepo) GetByPickList(_ context.Context, pickListID uuid.UUID) (*models.PackList, error) {
	list := r.s.snapshot(func(pl models.PackList) bool { return pl.PickListID == pickListID })
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *PackListRepo) List(_ context.Context, f repository.PackListFilter) ([]models.PackList, error) {
	list := r.s.snapshot(func(pl models.PackList) bool {
		if f.WarehouseID != nil && pl.WarehouseID != *f.WarehouseID {
			return false
		}
		return f.Status == nil || pl.Status == *f.Status
	})
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r *PackListRepo) Update(ctx context.Context, id uuid.UUID, fn func(pl *models.PackList) error) (*models.PackList, error) {
	pl, err := r.s.update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func page[T any](list []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	end := min(offset+limit, len(list))
	return list[offset:end]
}
