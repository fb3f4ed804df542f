package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultShippingMethod = "standard"
	instructionKeepCold   = "Keep refrigerated"

	packSetupMinutes      = 5
	packMinutesPerPackage = 3
)

var itemWeightKg = decimal.RequireFromString("0.5")

// packageSize: габариты коробки по количеству единиц.
func packageSize(units int32) models.Dimensions {
	switch {
	case units <= 3:
		return models.NewDimensions(30, 20, 15)
	case units <= 8:
		return models.NewDimensions(40, 30, 20)
	default:
		return models.NewDimensions(50, 40, 30)
	}
}

type orderGroup struct {
	orderID uuid.UUID
	items   []models.PickListItem
}

// groupByOrder: отобранные позиции по заказам в порядке первого появления.
func groupByOrder(items []models.PickListItem) []orderGroup {
	idx := make(map[uuid.UUID]int)
	var groups []orderGroup
	for _, it := range items {
		if it.PickedQuantity <= 0 {
			continue
		}
		i, ok := idx[it.OrderID]
		if !ok {
			i = len(groups)
			idx[it.OrderID] = i
			groups = append(groups, orderGroup{orderID: it.OrderID})
		}
		groups[i].items = append(groups[i].items, it)
	}
	return groups
}

// CreatePackList строит упаковочный лист из завершённого пик-листа: одна посылка на заказ.
func (s *fulfillmentService) CreatePackList(ctx context.Context, pickListID uuid.UUID, opts PackListOptions) (*models.PackList, error) {
	pick, err := s.GetPickList(ctx, pickListID)
	if err != nil {
		return nil, err
	}
	if pick.Status != models.PickListCompleted {
		return nil, fmt.Errorf("%w (status %s)", ErrPickListNotReady, pick.Status)
	}
	if existing, err := s.repo.PackLists.GetByPickList(ctx, pickListID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrPackListExists
	}

	groups := groupByOrder(pick.Items)
	if len(groups) == 0 {
		return nil, ErrNoPackableItems
	}

	method := strings.TrimSpace(opts.ShippingMethod)
	if method == "" {
		method = defaultShippingMethod
	}

	now := s.now()
	coldHorizon := now.AddDate(0, 0, s.expiryWarningDays)
	expiresSoon := make(map[uuid.UUID]bool)
	lotExpiresSoon := func(lotID uuid.UUID) bool {
		if v, ok := expiresSoon[lotID]; ok {
			return v
		}
		lot, err := s.repo.Lots.GetByID(ctx, lotID)
		if err != nil {
			s.log.Warn("pack: lot lookup failed", zap.String("lot_id", lotID.String()), zap.Error(err))
			expiresSoon[lotID] = false
			return false
		}
		v := lot.ExpiryDate != nil && !lot.ExpiryDate.After(coldHorizon)
		expiresSoon[lotID] = v
		return v
	}

	pl := &models.PackList{
		ID:             uuid.New(),
		PickListID:     pick.ID,
		WarehouseID:    pick.WarehouseID,
		Status:         models.PackListPending,
		PackType:       models.PackSingle,
		ShippingMethod: method,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(groups) > 1 {
		pl.PackType = models.PackMulti
	}

	for n, g := range groups {
		pkg := models.Package{
			ID:            uuid.New(),
			PackListID:    pl.ID,
			PackageNumber: fmt.Sprintf("PKG-%03d", n+1),
			OrderIDs:      []uuid.UUID{g.orderID},
		}
		var units int32
		for _, it := range g.items {
			var lotIDs []uuid.UUID
			for _, p := range it.PickedLots {
				if !slices.Contains(lotIDs, p.LotID) {
					lotIDs = append(lotIDs, p.LotID)
				}
				if lotExpiresSoon(p.LotID) {
					pkg.Perishable = true
				}
			}
			pkg.Items = append(pkg.Items, models.PackedItem{
				PickListItemID: it.ID,
				OrderID:        it.OrderID,
				OrderItemID:    it.OrderItemID,
				ProductID:      it.ProductID,
				Quantity:       it.PickedQuantity,
				LotIDs:         lotIDs,
			})
			units += it.PickedQuantity
		}
		// вес по числу позиций, габариты по числу единиц
		pkg.Dimensions = packageSize(units)
		pkg.EstimatedWeight = itemWeightKg.Mul(decimal.NewFromInt(int64(len(g.items))))
		if pkg.Perishable {
			pkg.Instructions = append(pkg.Instructions, instructionKeepCold)
		}

		pl.OrderIDs = append(pl.OrderIDs, g.orderID)
		pl.TotalWeight = pl.TotalWeight.Add(pkg.EstimatedWeight)
		pl.TotalVolume = pl.TotalVolume.Add(pkg.Dimensions.Volume())
		pl.Packages = append(pl.Packages, pkg)
	}
	pl.EstimatedMinutes = int32(packSetupMinutes + packMinutesPerPackage*len(pl.Packages))

	if err := s.repo.PackLists.Create(ctx, pl); err != nil {
		if existing, _ := s.repo.PackLists.GetByPickList(ctx, pickListID); existing != nil {
			return nil, ErrPackListExists
		}
		return nil, err
	}

	s.log.Info("pack list created",
		zap.String("pack_list_id", pl.ID.String()),
		zap.String("pick_list_id", pick.ID.String()),
		zap.Int("packages", len(pl.Packages)))
	return pl, nil
}

func (s *fulfillmentService) updatePackList(ctx context.Context, id uuid.UUID, fn func(pl *models.PackList) error) (*models.PackList, error) {
	pl, err := s.repo.PackLists.Update(ctx, id, fn)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPackListNotFound
	}
	return pl, err
}

func (s *fulfillmentService) AssignPackList(ctx context.Context, packListID, userID uuid.UUID) (*models.PackList, error) {
	now := s.now()
	return s.updatePackList(ctx, packListID, func(pl *models.PackList) error {
		if pl.Status != models.PackListPending {
			return invalidState("pack list", pl.Status, "assign")
		}
		pl.AssignedTo = &userID
		pl.AssignedAt = &now
		pl.UpdatedAt = now
		return nil
	})
}

func (s *fulfillmentService) StartPackList(ctx context.Context, packListID, userID uuid.UUID) (*models.PackList, error) {
	now := s.now()
	return s.updatePackList(ctx, packListID, func(pl *models.PackList) error {
		if pl.Status != models.PackListPending {
			return invalidState("pack list", pl.Status, "start")
		}
		if pl.AssignedTo == nil || *pl.AssignedTo != userID {
			return ErrNotAssignee
		}
		pl.Status = models.PackListInProgress
		pl.StartedAt = &now
		pl.UpdatedAt = now
		return nil
	})
}

func (s *fulfillmentService) RecordPackage(ctx context.Context, packListID, packageID uuid.UUID, upd PackageUpdate) (*models.PackList, error) {
	if upd.Weight != nil && upd.Weight.IsNegative() {
		return nil, fmt.Errorf("%w: weight must be >= 0", ErrValidation)
	}
	now := s.now()
	return s.updatePackList(ctx, packListID, func(pl *models.PackList) error {
		if pl.Status != models.PackListInProgress {
			return invalidState("pack list", pl.Status, "record package on")
		}
		idx := slices.IndexFunc(pl.Packages, func(p models.Package) bool { return p.ID == packageID })
		if idx < 0 {
			return ErrPackageNotFound
		}
		pkg := &pl.Packages[idx]

		if upd.Weight != nil {
			pkg.Weight = *upd.Weight
		}
		if upd.Dimensions != nil {
			pkg.Dimensions = *upd.Dimensions
		}
		if upd.Fragile != nil {
			pkg.Fragile = *upd.Fragile
		}
		if upd.RequiresInsurance != nil {
			pkg.RequiresInsurance = *upd.RequiresInsurance
		}
		if upd.LabelURL != nil {
			label := strings.TrimSpace(*upd.LabelURL)
			pkg.LabelURL = &label
		}
		if upd.TrackingNumber != nil {
			tn := strings.TrimSpace(*upd.TrackingNumber)
			if tn != "" {
				pkg.TrackingNumber = &tn
				if !slices.Contains(pl.TrackingNumbers, tn) {
					pl.TrackingNumbers = append(pl.TrackingNumbers, tn)
				}
			}
		}
		pkg.PackedAt = &now

		pl.TotalWeight = decimal.Zero
		pl.TotalVolume = decimal.Zero
		for _, p := range pl.Packages {
			w := p.Weight
			if w.IsZero() {
				w = p.EstimatedWeight
			}
			pl.TotalWeight = pl.TotalWeight.Add(w)
			pl.TotalVolume = pl.TotalVolume.Add(p.Dimensions.Volume())
		}
		pl.UpdatedAt = now
		return nil
	})
}

func (s *fulfillmentService) CompletePackList(ctx context.Context, packListID uuid.UUID) (*models.PackList, error) {
	now := s.now()
	pl, err := s.updatePackList(ctx, packListID, func(pl *models.PackList) error {
		if pl.Status != models.PackListInProgress {
			return invalidState("pack list", pl.Status, "complete")
		}
		for _, p := range pl.Packages {
			if p.TrackingNumber == nil || *p.TrackingNumber == "" {
				return fmt.Errorf("%w (package %s)", ErrMissingTracking, p.PackageNumber)
			}
		}
		pl.Status = models.PackListCompleted
		pl.CompletedAt = &now
		pl.ActualMinutes = minutesBetween(pl.StartedAt, now)
		pl.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.log, &PackListCompletedEvent{
		PackListID:      pl.ID,
		PickListID:      pl.PickListID,
		OrderIDs:        pl.OrderIDs,
		TrackingNumbers: pl.TrackingNumbers,
		ShippingMethod:  pl.ShippingMethod,
		CompletedAt:     now,
	})
	s.log.Info("pack list completed", zap.String("pack_list_id", pl.ID.String()), zap.Int("packages", len(pl.Packages)))
	return pl, nil
}

func (s *fulfillmentService) GetPackList(ctx context.Context, packListID uuid.UUID) (*models.PackList, error) {
	pl, err := s.repo.PackLists.GetByID(ctx, packListID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPackListNotFound
	}
	return pl, err
}

func (s *fulfillmentService) ListPackLists(ctx context.Context, f repository.PackListFilter) ([]models.PackList, error) {
	return s.repo.PackLists.List(ctx, f)
}
