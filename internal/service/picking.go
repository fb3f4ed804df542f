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
	"go.uber.org/zap"
)

const (
	pickSetupMinutes   = 10
	pickMinutesPerItem = 2
)

// selectItems применяет фильтры по cutoff и приоритету, затем лимиты maxItems и maxOrders.
func selectItems(items []PickOrderItem, opts PickListOptions) []PickOrderItem {
	out := make([]PickOrderItem, 0, len(items))
	for _, it := range items {
		if opts.CutoffTime != nil && !it.OrderedAt.IsZero() && it.OrderedAt.After(*opts.CutoffTime) {
			continue
		}
		if len(opts.PriorityFilter) > 0 && !slices.Contains(opts.PriorityFilter, it.Priority) {
			continue
		}
		out = append(out, it)
	}
	if opts.MaxItems > 0 && len(out) > opts.MaxItems {
		out = out[:opts.MaxItems]
	}
	if opts.MaxOrders > 0 {
		keep := make(map[uuid.UUID]struct{}, opts.MaxOrders)
		for _, it := range out {
			if len(keep) == opts.MaxOrders {
				break
			}
			keep[it.OrderID] = struct{}{}
		}
		filtered := out[:0]
		for _, it := range out {
			if _, ok := keep[it.OrderID]; ok {
				filtered = append(filtered, it)
			}
		}
		out = filtered
	}
	return out
}

func maxPriority(items []PickOrderItem) models.Priority {
	best := models.PriorityLow
	for _, it := range items {
		if it.Priority.Rank() > best.Rank() {
			best = it.Priority
		}
	}
	return best
}

// CreatePickList резервирует позиции через аллокатор и строит маршрутизированный пик-лист.
// Ошибка по отдельной позиции становится предупреждением и не прерывает сборку.
func (s *fulfillmentService) CreatePickList(ctx context.Context, items []PickOrderItem, warehouseID uuid.UUID, pickType models.PickType, opts PickListOptions) (*PickListResult, error) {
	if !pickType.Valid() {
		return nil, ErrInvalidPickType
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no order items", ErrValidation)
	}
	if _, err := s.repo.Warehouses.GetByID(ctx, warehouseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWarehouseNotFound
		}
		return nil, err
	}

	priority := maxPriority(items)
	selected := selectItems(items, opts)

	var (
		warnings  []string
		listItems []models.PickListItem
		orderIDs  []uuid.UUID
	)
	seenOrders := make(map[uuid.UUID]struct{})
	for _, it := range selected {
		if it.Quantity <= 0 {
			warnings = append(warnings, fmt.Sprintf("order item %s: quantity must be > 0", it.OrderItemID))
			continue
		}
		res, err := s.alloc.Allocate(ctx, it.ProductID, it.Quantity, AllocateOptions{
			OrderID:            it.OrderID,
			OrderItemID:        it.OrderItemID,
			WarehouseID:        warehouseID,
			MaxExpiryDate:      it.MaxExpiryDate,
			PreferredLocations: it.PreferredLocations,
		})
		if err != nil {
			s.log.Warn("allocation failed", zap.String("order_item_id", it.OrderItemID.String()), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("order item %s: %v", it.OrderItemID, err))
			continue
		}
		if !res.Success {
			warnings = append(warnings, fmt.Sprintf("order item %s: no eligible stock (requested %d)", it.OrderItemID, it.Quantity))
			continue
		}
		if res.Shortfall > 0 {
			warnings = append(warnings, fmt.Sprintf("order item %s: short by %d of %d", it.OrderItemID, res.Shortfall, it.Quantity))
		}

		listItems = append(listItems, models.PickListItem{
			ID:                uuid.New(),
			OrderID:           it.OrderID,
			OrderItemID:       it.OrderItemID,
			ProductID:         it.ProductID,
			Priority:          it.Priority,
			RequestedQuantity: it.Quantity,
			Allocation:        res.Reservation.Lots,
			Location:          res.Reservation.Lots[0].Location,
			Status:            models.PickItemPending,
		})
		if _, ok := seenOrders[it.OrderID]; !ok {
			seenOrders[it.OrderID] = struct{}{}
			orderIDs = append(orderIDs, it.OrderID)
		}
	}
	if len(listItems) == 0 {
		return nil, ErrNoPickableItems
	}

	locations := make([]string, len(listItems))
	for i, it := range listItems {
		locations[i] = it.Location
	}
	route := buildRoute(locations)
	sequenceItems(listItems, route)

	now := s.now()
	pl := &models.PickList{
		ID:                  uuid.New(),
		WarehouseID:         warehouseID,
		OrderIDs:            orderIDs,
		Status:              models.PickListPending,
		Priority:            priority,
		PickType:            pickType,
		Route:               route,
		EstimatedMinutes:    int32(pickSetupMinutes+pickMinutesPerItem*len(listItems)) + route.EstimatedMinutes,
		FulfillmentComplete: false,
		Warnings:            warnings,
		Items:               listItems,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for i := range pl.Items {
		pl.Items[i].PickListID = pl.ID
	}

	if err := s.repo.PickLists.Create(ctx, pl); err != nil {
		// без пик-листа резерв никому не принадлежит
		s.releaseItems(ctx, pl)
		return nil, err
	}

	s.log.Info("pick list created",
		zap.String("pick_list_id", pl.ID.String()),
		zap.Int("items", len(pl.Items)),
		zap.Int("warnings", len(warnings)))
	publish(ctx, s.events, s.log, &PickListCreatedEvent{
		PickListID:  pl.ID,
		WarehouseID: warehouseID,
		OrderIDs:    pl.OrderIDs,
		ItemCount:   len(pl.Items),
		Priority:    pl.Priority,
		CreatedAt:   now,
	})
	return &PickListResult{PickList: pl, Warnings: warnings}, nil
}

func (s *fulfillmentService) updatePickList(ctx context.Context, id uuid.UUID, fn func(pl *models.PickList) error) (*models.PickList, error) {
	pl, err := s.repo.PickLists.Update(ctx, id, fn)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPickListNotFound
	}
	return pl, err
}

func (s *fulfillmentService) AssignPickList(ctx context.Context, pickListID, userID uuid.UUID) (*models.PickList, error) {
	now := s.now()
	return s.updatePickList(ctx, pickListID, func(pl *models.PickList) error {
		if pl.Status != models.PickListPending {
			return invalidState("pick list", pl.Status, "assign")
		}
		pl.AssignedTo = &userID
		pl.AssignedAt = &now
		pl.UpdatedAt = now
		return nil
	})
}

func (s *fulfillmentService) StartPickList(ctx context.Context, pickListID, userID uuid.UUID) (*models.PickList, error) {
	now := s.now()
	return s.updatePickList(ctx, pickListID, func(pl *models.PickList) error {
		if pl.Status != models.PickListPending {
			return invalidState("pick list", pl.Status, "start")
		}
		if pl.AssignedTo == nil || *pl.AssignedTo != userID {
			return ErrNotAssignee
		}
		pl.Status = models.PickListInProgress
		pl.StartedAt = &now
		pl.UpdatedAt = now
		return nil
	})
}

// RecordPick фиксирует фактически отобранные партии по позиции (заменяя прежние записи).
func (s *fulfillmentService) RecordPick(ctx context.Context, pickListID, itemID uuid.UUID, lots []PickedQuantity, pickedBy uuid.UUID) (*models.PickList, error) {
	for _, l := range lots {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	now := s.now()
	return s.updatePickList(ctx, pickListID, func(pl *models.PickList) error {
		if pl.Status != models.PickListInProgress {
			return invalidState("pick list", pl.Status, "record pick on")
		}
		idx := slices.IndexFunc(pl.Items, func(it models.PickListItem) bool { return it.ID == itemID })
		if idx < 0 {
			return ErrItemNotFound
		}
		it := &pl.Items[idx]

		var picked int32
		records := make([]models.PickedLot, 0, len(lots))
		for _, l := range lots {
			// отбор только из партий резерва позиции, иначе Fulfill спишет чужой остаток
			allocated := slices.ContainsFunc(it.Allocation, func(a models.AllocatedLot) bool { return a.LotID == l.LotID })
			if !allocated {
				return fmt.Errorf("%w: %s", ErrLotNotAllocated, l.LotID)
			}
			picked += l.Quantity
			records = append(records, models.PickedLot{LotID: l.LotID, Quantity: l.Quantity, PickedAt: now, PickedBy: pickedBy})
		}
		it.PickedLots = records
		it.PickedQuantity = picked
		it.ShortQuantity = max(it.RequestedQuantity-picked, 0)
		switch {
		case picked >= it.RequestedQuantity:
			it.Status = models.PickItemPicked
		case picked > 0:
			it.Status = models.PickItemShort
		default:
			it.Status = models.PickItemPending
		}
		pl.UpdatedAt = now
		return nil
	})
}

// CompletePickList закрывает пик-лист, затем (вне блокировки пик-листа) списывает
// резервы по отобранным партиям и создаёт упаковочный лист. Сбой этих шагов
// не откатывает завершение: пик-лист помечается FulfillmentComplete=false.
func (s *fulfillmentService) CompletePickList(ctx context.Context, pickListID uuid.UUID) (*CompletePickListResult, error) {
	now := s.now()
	pl, err := s.updatePickList(ctx, pickListID, func(pl *models.PickList) error {
		if pl.Status != models.PickListInProgress {
			return invalidState("pick list", pl.Status, "complete")
		}
		for _, it := range pl.Items {
			if it.Status == models.PickItemPending {
				return ErrPendingItems
			}
		}
		pl.Status = models.PickListCompleted
		pl.CompletedAt = &now
		pl.ActualMinutes = minutesBetween(pl.StartedAt, now)
		pl.FulfillmentComplete = true
		pl.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	var warnings []string
	var pickedUnits, shortUnits int32
	for _, it := range pl.Items {
		pickedUnits += it.PickedQuantity
		shortUnits += it.ShortQuantity

		picked := make([]PickedQuantity, 0, len(it.PickedLots))
		for _, p := range it.PickedLots {
			picked = append(picked, PickedQuantity{LotID: p.LotID, Quantity: p.Quantity})
		}
		if err := s.alloc.Fulfill(ctx, it.Reservation(pl.WarehouseID), picked); err != nil {
			s.log.Error("fulfill reservation failed",
				zap.String("pick_list_id", pl.ID.String()),
				zap.String("item_id", it.ID.String()),
				zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("item %s: fulfill failed: %v", it.ID, err))
		}
	}

	out := &CompletePickListResult{PickList: pl}
	pack, err := s.CreatePackList(ctx, pl.ID, PackListOptions{})
	if err != nil {
		s.log.Error("pack list creation failed", zap.String("pick_list_id", pl.ID.String()), zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("pack list: %v", err))
	} else {
		out.PackList = pack
	}

	if len(warnings) > 0 {
		updated, err := s.updatePickList(ctx, pl.ID, func(p *models.PickList) error {
			p.FulfillmentComplete = false
			p.Warnings = append(p.Warnings, warnings...)
			p.UpdatedAt = s.now()
			return nil
		})
		if err != nil {
			s.log.Error("record fulfillment warnings failed", zap.String("pick_list_id", pl.ID.String()), zap.Error(err))
			pl.FulfillmentComplete = false
			pl.Warnings = append(pl.Warnings, warnings...)
		} else {
			pl = updated
		}
		out.PickList = pl
	}
	out.FulfillmentComplete = len(warnings) == 0
	out.Warnings = warnings

	ev := &PickListCompletedEvent{
		PickListID:          pl.ID,
		WarehouseID:         pl.WarehouseID,
		PickedUnits:         pickedUnits,
		ShortUnits:          shortUnits,
		FulfillmentComplete: out.FulfillmentComplete,
		CompletedAt:         now,
	}
	if out.PackList != nil {
		ev.PackListID = &out.PackList.ID
	}
	publish(ctx, s.events, s.log, ev)

	s.log.Info("pick list completed",
		zap.String("pick_list_id", pl.ID.String()),
		zap.Int32("picked", pickedUnits),
		zap.Int32("short", shortUnits),
		zap.Bool("fulfillment_complete", out.FulfillmentComplete))
	return out, nil
}

// CancelPickList отменяет незавершённый пик-лист и снимает все его резервы.
func (s *fulfillmentService) CancelPickList(ctx context.Context, pickListID uuid.UUID, reason string) (*models.PickList, error) {
	now := s.now()
	reason = strings.TrimSpace(reason)
	pl, err := s.updatePickList(ctx, pickListID, func(pl *models.PickList) error {
		if pl.Status != models.PickListPending && pl.Status != models.PickListInProgress {
			return invalidState("pick list", pl.Status, "cancel")
		}
		pl.Status = models.PickListCancelled
		pl.CancelledAt = &now
		pl.UpdatedAt = now
		if reason != "" {
			pl.Warnings = append(pl.Warnings, "cancelled: "+reason)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	released := s.releaseItems(ctx, pl)
	publish(ctx, s.events, s.log, &PickListCancelledEvent{
		PickListID:  pl.ID,
		Reason:      reason,
		Released:    released,
		CancelledAt: now,
	})
	s.log.Info("pick list cancelled", zap.String("pick_list_id", pl.ID.String()), zap.Int32("released", released))
	return pl, nil
}

func (s *fulfillmentService) releaseItems(ctx context.Context, pl *models.PickList) int32 {
	var total int32
	for _, it := range pl.Items {
		n, err := s.alloc.Release(ctx, it.Reservation(pl.WarehouseID))
		if err != nil {
			s.log.Error("release reservation failed",
				zap.String("pick_list_id", pl.ID.String()),
				zap.String("item_id", it.ID.String()),
				zap.Error(err))
		}
		total += n
	}
	return total
}

func (s *fulfillmentService) GetPickList(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error) {
	pl, err := s.repo.PickLists.GetByID(ctx, pickListID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPickListNotFound
	}
	return pl, err
}

func (s *fulfillmentService) ListPickLists(ctx context.Context, f repository.PickListFilter) ([]models.PickList, error) {
	return s.repo.PickLists.List(ctx, f)
}
