package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errLotNotEligible = errors.New("lot is no longer eligible")

const reasonOverPick = "over-pick"

// eligible: жёсткий фильтр аллокации; проверяется дважды:
// при выборе кандидатов и повторно внутри критической секции партии.
func eligible(l *models.Lot, now time.Time, maxExpiry *time.Time) bool {
	if l.Status != models.LotActive || l.AvailableQuantity <= 0 || !l.QualityPassed {
		return false
	}
	if l.ExpiryDate == nil {
		return true
	}
	if !l.ExpiryDate.After(now) {
		return false
	}
	return maxExpiry == nil || !l.ExpiryDate.After(*maxExpiry)
}

// Allocate жадно резервирует quantity по партиям в порядке FEFO-скоринга.
// Каждая партия резервируется отдельной атомарной операцией; частичная
// аллокация не откатывается, нехватка возвращается в Shortfall.
func (s *inventoryService) Allocate(ctx context.Context, productID uuid.UUID, quantity int32, opts AllocateOptions) (*AllocationResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := &AllocationResult{
		Reservation: models.StockReservation{
			OrderID:     opts.OrderID,
			OrderItemID: opts.OrderItemID,
			ProductID:   productID,
			WarehouseID: opts.WarehouseID,
			CreatedAt:   now,
		},
		Shortfall: quantity,
	}

	lots, err := s.repo.Lots.List(ctx, repository.LotFilter{
		ProductID:   &productID,
		WarehouseID: &opts.WarehouseID,
		Statuses:    []models.LotStatus{models.LotActive},
	})
	if err != nil {
		return nil, err
	}
	candidates := lots[:0]
	for i := range lots {
		if eligible(&lots[i], now, opts.MaxExpiryDate) {
			candidates = append(candidates, lots[i])
		}
	}
	if len(candidates) == 0 {
		return res, nil
	}

	remaining := quantity
	for _, c := range rankLots(candidates, product.Perishable, opts.PreferredLocations, now) {
		if remaining == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var granted int32
		lot, err := s.repo.Lots.Mutate(ctx, c.lot.ID, func(l *models.Lot) error {
			if !eligible(l, now, opts.MaxExpiryDate) {
				return errLotNotEligible
			}
			granted = l.Reserve(remaining)
			l.FEFOScore = c.score
			l.FEFOScoredAt = &now
			l.UpdatedAt = now
			return nil
		})
		switch {
		case errors.Is(err, errLotNotEligible), errors.Is(err, repository.ErrNotFound):
			// партия изменилась между снимком и блокировкой: просто пропускаем
			s.log.Debug("allocation skipped lot",
				zap.String("lot_id", c.lot.ID.String()),
				zap.Error(err))
			continue
		case err != nil:
			// сбой хранилища не выдаём за нехватку: уже сделанные резервы снимаем
			s.log.Error("allocation failed",
				zap.String("lot_id", c.lot.ID.String()),
				zap.String("order_id", opts.OrderID.String()),
				zap.Error(err))
			if _, relErr := s.Release(ctx, res.Reservation); relErr != nil {
				s.log.Error("release partial allocation failed", zap.Error(relErr))
			}
			return nil, fmt.Errorf("reserve lot %s: %w", c.lot.ID, err)
		}
		if granted == 0 {
			continue
		}

		remaining -= granted
		res.Reservation.Lots = append(res.Reservation.Lots, models.AllocatedLot{
			LotID:      lot.ID,
			LotNumber:  lot.LotNumber,
			Quantity:   granted,
			Location:   lot.Location.String(),
			Score:      c.score,
			ExpiryDate: lot.ExpiryDate,
		})
	}

	res.Allocated = quantity - remaining
	res.Shortfall = remaining
	res.Success = res.Allocated > 0
	if res.Success {
		s.invalidate(ctx, productID)
	}

	s.log.Info("allocation finished",
		zap.String("product_id", productID.String()),
		zap.String("order_id", opts.OrderID.String()),
		zap.Int32("requested", quantity),
		zap.Int32("allocated", res.Allocated),
		zap.Int32("shortfall", res.Shortfall),
		zap.Int("lots", len(res.Reservation.Lots)))
	return res, nil
}

// Release снимает резерв по всем строкам. Повторный вызов безопасен:
// резерв партии не уходит ниже нуля.
func (s *inventoryService) Release(ctx context.Context, res models.StockReservation) (int32, error) {
	var (
		released int32
		errs     []error
	)
	now := s.now()
	for _, al := range res.Lots {
		if al.Quantity <= 0 {
			continue
		}
		var n int32
		_, err := s.repo.Lots.Mutate(ctx, al.LotID, func(l *models.Lot) error {
			n = l.Release(al.Quantity)
			l.UpdatedAt = now
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("release lot %s: %w", al.LotID, mapLotErr(err)))
			continue
		}
		released += n
	}
	if released > 0 {
		s.invalidate(ctx, res.ProductID)
	}
	return released, errors.Join(errs...)
}

// Fulfill списывает отобранное и снимает резерв ровно в объёме аллокации
// по каждой партии; расхождения отбора с резервом здесь не сверяются.
func (s *inventoryService) Fulfill(ctx context.Context, res models.StockReservation, picked []PickedQuantity) error {
	allocated := make(map[uuid.UUID]int32, len(res.Lots))
	order := make([]uuid.UUID, 0, len(res.Lots)+len(picked))
	for _, al := range res.Lots {
		if _, seen := allocated[al.LotID]; !seen {
			order = append(order, al.LotID)
		}
		allocated[al.LotID] += al.Quantity
	}
	pickedBy := make(map[uuid.UUID]int32, len(picked))
	for _, p := range picked {
		if p.Quantity < 0 {
			return ErrInvalidQuantity
		}
		if _, seen := allocated[p.LotID]; !seen {
			if _, seen := pickedBy[p.LotID]; !seen {
				order = append(order, p.LotID)
			}
		}
		pickedBy[p.LotID] += p.Quantity
	}

	now := s.now()
	var errs []error
	for _, lotID := range order {
		var (
			from   models.LotStatus
			voided int32
		)
		lot, err := s.repo.Lots.Mutate(ctx, lotID, func(l *models.Lot) error {
			from = l.Status
			voided = l.Fulfill(pickedBy[lotID], allocated[lotID])
			l.UpdatedAt = now
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("fulfill lot %s: %w", lotID, mapLotErr(err)))
			continue
		}
		if voided > 0 {
			s.log.Warn("over-pick voided reservations",
				zap.String("lot_id", lot.ID.String()),
				zap.String("order_id", res.OrderID.String()),
				zap.Int32("quantity", voided))
			publish(ctx, s.events, s.log, &ReservationsVoidedEvent{
				LotID:       lot.ID,
				LotNumber:   lot.LotNumber,
				ProductID:   lot.ProductID,
				WarehouseID: lot.Location.WarehouseID,
				Status:      lot.Status,
				Quantity:    voided,
				Reason:      reasonOverPick,
				VoidedAt:    now,
			})
		}
		if lot.Status != from {
			publish(ctx, s.events, s.log, &LotStatusChangedEvent{
				LotID:     lot.ID,
				ProductID: lot.ProductID,
				From:      from,
				To:        lot.Status,
				Reason:    lot.StatusReason,
				ChangedAt: now,
			})
		}
	}
	s.invalidate(ctx, res.ProductID)
	return errors.Join(errs...)
}
