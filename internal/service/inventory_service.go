package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type inventoryService struct {
	repo   *repository.Repository
	events EventBus
	cache  SummaryCache
	log    *zap.Logger
	now    func() time.Time

	expiryWarningDays int
}

// NewInventoryService: events и cache могут быть nil.
func NewInventoryService(repo *repository.Repository, events EventBus, cache SummaryCache, log *zap.Logger, opts ...Option) *inventoryService {
	o := buildOptions(opts)
	return &inventoryService{
		repo:              repo,
		events:            events,
		cache:             cache,
		log:               log,
		now:               o.now,
		expiryWarningDays: o.expiryWarningDays,
	}
}

func (s *inventoryService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	sku := strings.TrimSpace(in.SKU)
	name := strings.TrimSpace(in.Name)
	if sku == "" || name == "" {
		return nil, fmt.Errorf("%w: sku and name are required", ErrValidation)
	}

	existing, err := s.repo.Products.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSKUExists
	}

	now := s.now()
	p := &models.Product{
		ID:         uuid.New(),
		SKU:        sku,
		Name:       name,
		Perishable: in.Perishable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	p, err := s.repo.Products.GetByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *inventoryService) UpsertWarehouse(ctx context.Context, in WarehouseInput) (*models.Warehouse, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: warehouse code is required", ErrValidation)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = code
	}

	now := s.now()
	w := &models.Warehouse{
		ID:        id,
		Code:      code,
		Name:      name,
		Zones:     in.Zones,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Warehouses.Upsert(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *inventoryService) GetWarehouse(ctx context.Context, warehouseID uuid.UUID) (*models.Warehouse, error) {
	w, err := s.repo.Warehouses.GetByID(ctx, warehouseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWarehouseNotFound
	}
	return w, err
}

func (s *inventoryService) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return s.repo.Warehouses.List(ctx)
}

func (s *inventoryService) ReceiveLot(ctx context.Context, in ReceiveLotInput) (*models.Lot, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	lotNumber := strings.TrimSpace(in.LotNumber)
	if lotNumber == "" {
		return nil, fmt.Errorf("%w: lot number is required", ErrValidation)
	}
	if _, err := s.GetProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}
	if _, err := s.GetWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}

	existing, err := s.repo.Lots.GetByProductAndNumber(ctx, in.ProductID, lotNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLotNumberExists
	}

	now := s.now()
	received := in.ReceivedDate
	if received.IsZero() {
		received = now
	}
	lot := &models.Lot{
		ID:        uuid.New(),
		ProductID: in.ProductID,
		LotNumber: lotNumber,
		Location: models.Location{
			WarehouseID: in.WarehouseID,
			Zone:        strings.TrimSpace(in.Zone),
			Aisle:       strings.TrimSpace(in.Aisle),
			Shelf:       strings.TrimSpace(in.Shelf),
			Bin:         strings.TrimSpace(in.Bin),
		},
		ReceivedDate:  received,
		ExpiryDate:    in.ExpiryDate,
		QualityPassed: in.QualityPassed,
		QualityNotes:  in.QualityNotes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	lot.Receive(in.Quantity)

	if err := s.repo.Lots.Create(ctx, lot); err != nil {
		return nil, err
	}
	s.invalidate(ctx, lot.ProductID)

	s.log.Info("lot received",
		zap.String("lot_id", lot.ID.String()),
		zap.String("lot_number", lot.LotNumber),
		zap.String("product_id", lot.ProductID.String()),
		zap.Int32("quantity", lot.CurrentQuantity))
	return lot, nil
}

func (s *inventoryService) GetLot(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	l, err := s.repo.Lots.GetByID(ctx, lotID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrLotNotFound
	}
	return l, err
}

func (s *inventoryService) ListLots(ctx context.Context, f LotListFilter) ([]models.Lot, error) {
	rf := repository.LotFilter{ProductID: f.ProductID, WarehouseID: f.WarehouseID}
	if f.Status != nil {
		rf.Statuses = []models.LotStatus{*f.Status}
	}
	return s.repo.Lots.List(ctx, rf)
}

func (s *inventoryService) UpdateLotStatus(ctx context.Context, lotID uuid.UUID, status, reason string) (*models.Lot, error) {
	to, err := models.ParseLotStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	}
	return s.transition(ctx, lotID, to, strings.TrimSpace(reason))
}

// transition: общий путь смены статуса (оператор и проверка сроков).
// Аннулированный резерв не отклоняет переход, а публикуется компенсирующим событием.
func (s *inventoryService) transition(ctx context.Context, lotID uuid.UUID, to models.LotStatus, reason string) (*models.Lot, error) {
	var (
		from   models.LotStatus
		voided int32
	)
	now := s.now()
	lot, err := s.repo.Lots.Mutate(ctx, lotID, func(l *models.Lot) error {
		from = l.Status
		v, err := l.Transition(to, reason)
		if err != nil {
			return err
		}
		voided = v
		l.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, mapLotErr(err)
	}
	if from == to {
		return lot, nil
	}
	s.invalidate(ctx, lot.ProductID)

	s.log.Info("lot status changed",
		zap.String("lot_id", lot.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int32("voided", voided))

	publish(ctx, s.events, s.log, &LotStatusChangedEvent{
		LotID:     lot.ID,
		ProductID: lot.ProductID,
		From:      from,
		To:        to,
		Reason:    reason,
		ChangedAt: now,
	})
	if voided > 0 {
		s.log.Warn("open reservations voided by lot transition",
			zap.String("lot_id", lot.ID.String()),
			zap.String("status", string(to)),
			zap.Int32("quantity", voided))
		publish(ctx, s.events, s.log, &ReservationsVoidedEvent{
			LotID:       lot.ID,
			LotNumber:   lot.LotNumber,
			ProductID:   lot.ProductID,
			WarehouseID: lot.Location.WarehouseID,
			Status:      to,
			Quantity:    voided,
			Reason:      reason,
			VoidedAt:    now,
		})
	}
	return lot, nil
}

func (s *inventoryService) GetProductInventory(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (*ProductInventorySummary, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	scope := scopeAllWarehouses
	if warehouseID != nil {
		scope = warehouseID.String()
	}
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, productID, scope)
		if err != nil {
			s.log.Warn("summary cache get failed", zap.String("product_id", productID.String()), zap.Error(err))
		} else if ok {
			var cached ProductInventorySummary
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	lots, err := s.repo.Lots.List(ctx, repository.LotFilter{ProductID: &productID, WarehouseID: warehouseID})
	if err != nil {
		return nil, err
	}
	sum := summarize(productID, warehouseID, lots)

	if s.cache != nil {
		if data, err := json.Marshal(sum); err == nil {
			if err := s.cache.Set(ctx, productID, scope, data); err != nil {
				s.log.Warn("summary cache set failed", zap.String("product_id", productID.String()), zap.Error(err))
			}
		}
	}
	return sum, nil
}

// summarize: количества и oldest/newest считаются по активным партиям,
// ByStatus: по всем. lots отсортированы по received_date.
func summarize(productID uuid.UUID, warehouseID *uuid.UUID, lots []models.Lot) *ProductInventorySummary {
	sum := &ProductInventorySummary{
		ProductID:   productID,
		WarehouseID: warehouseID,
		ByStatus:    make(map[models.LotStatus]int),
	}
	for i := range lots {
		l := &lots[i]
		sum.ByStatus[l.Status]++
		if l.Status != models.LotActive {
			continue
		}
		sum.LotCount++
		sum.TotalQuantity += l.CurrentQuantity
		sum.ReservedQuantity += l.ReservedQuantity
		sum.AvailableQuantity += l.AvailableQuantity

		ref := &LotRef{LotID: l.ID, LotNumber: l.LotNumber, ReceivedDate: l.ReceivedDate, ExpiryDate: l.ExpiryDate}
		if sum.OldestLot == nil {
			sum.OldestLot = ref
		}
		sum.NewestLot = ref
	}
	return sum
}

func (s *inventoryService) invalidate(ctx context.Context, productID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.log.Warn("summary cache invalidate failed", zap.String("product_id", productID.String()), zap.Error(err))
	}
}

func mapLotErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrLotNotFound
	case errors.Is(err, models.ErrInvalidTransition):
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	case errors.Is(err, models.ErrUnknownStatus):
		return fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	}
	return err
}

var _ InventoryService = (*inventoryService)(nil)
