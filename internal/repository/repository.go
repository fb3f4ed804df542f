package repository

import (
	"context"
	"errors"

	"fulfillment-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
}

type WarehouseRepo interface {
	Upsert(ctx context.Context, w *models.Warehouse) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	List(ctx context.Context) ([]models.Warehouse, error)
}

type LotFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	Statuses    []models.LotStatus
}

type LotRepo interface {
	Create(ctx context.Context, l *models.Lot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lot, error)
	// nil, nil если партии с таким номером нет
	GetByProductAndNumber(ctx context.Context, productID uuid.UUID, lotNumber string) (*models.Lot, error)
	// List возвращает снимок (копии), упорядоченный по received_date, id.
	List(ctx context.Context, f LotFilter) ([]models.Lot, error)

	// Mutate: единственный путь изменения партии: fn выполняется в критической
	// секции этой партии (мьютекс или SELECT ... FOR UPDATE). Ошибка fn откатывает изменения.
	Mutate(ctx context.Context, id uuid.UUID, fn func(l *models.Lot) error) (*models.Lot, error)
}

type PickListFilter struct {
	WarehouseID *uuid.UUID
	Status      *models.PickListStatus
	Limit       int
	Offset      int
}

type PickListRepo interface {
	Create(ctx context.Context, pl *models.PickList) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PickList, error)
	List(ctx context.Context, f PickListFilter) ([]models.PickList, error)
	Update(ctx context.Context, id uuid.UUID, fn func(pl *models.PickList) error) (*models.PickList, error)
}

type PackListFilter struct {
	WarehouseID *uuid.UUID
	Status      *models.PackListStatus
	Limit       int
	Offset      int
}

type PackListRepo interface {
	Create(ctx context.Context, pl *models.PackList) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PackList, error)
	// nil, nil если упаковочный лист ещё не создан
	GetByPickList(ctx context.Context, pickListID uuid.UUID) (*models.PackList, error)
	List(ctx context.Context, f PackListFilter) ([]models.PackList, error)
	Update(ctx context.Context, id uuid.UUID, fn func(pl *models.PackList) error) (*models.PackList, error)
}

type Repository struct {
	DB         *gorm.DB
	Products   ProductRepo
	Warehouses WarehouseRepo
	Lots       LotRepo
	PickLists  PickListRepo
	PackLists  PackListRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:         db,
		Products:   NewProductRepo(db),
		Warehouses: NewWarehouseRepo(db),
		Lots:       NewLotRepo(db),
		PickLists:  NewPickListRepo(db),
		PackLists:  NewPackListRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
