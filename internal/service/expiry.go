package service

import (
	"context"
	"fmt"
	"slices"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const expiryCheckReason = "automatic expiry check"

// RunExpiryCheck: проход по активным партиям со сроком годности:
// истёкшие переводятся в expired, близкие к истечению дают предупреждение.
// Повторный запуск безопасен.
func (s *inventoryService) RunExpiryCheck(ctx context.Context) (*ExpiryCheckResult, error) {
	lots, err := s.repo.Lots.List(ctx, repository.LotFilter{Statuses: []models.LotStatus{models.LotActive}})
	if err != nil {
		return nil, err
	}

	now := s.now()
	horizon := now.AddDate(0, 0, s.expiryWarningDays)
	out := &ExpiryCheckResult{Expired: []uuid.UUID{}, Warnings: []ExpiringLot{}}

	for i := range lots {
		l := &lots[i]
		if l.ExpiryDate == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Checked++

		switch {
		case l.IsExpiredAt(now):
			if _, err := s.transition(ctx, l.ID, models.LotExpired, expiryCheckReason); err != nil {
				s.log.Error("expire lot failed", zap.String("lot_id", l.ID.String()), zap.Error(err))
				out.Errors = append(out.Errors, fmt.Sprintf("lot %s: %v", l.ID, err))
				continue
			}
			out.Expired = append(out.Expired, l.ID)

		case !l.ExpiryDate.After(horizon):
			days := daysUntil(now, *l.ExpiryDate)
			out.Warnings = append(out.Warnings, ExpiringLot{Lot: *l, DaysToExpiry: days})
			publish(ctx, s.events, s.log, &LotExpiryWarningEvent{
				LotID:        l.ID,
				LotNumber:    l.LotNumber,
				ProductID:    l.ProductID,
				WarehouseID:  l.Location.WarehouseID,
				ExpiryDate:   *l.ExpiryDate,
				DaysToExpiry: days,
				Available:    l.AvailableQuantity,
				DetectedAt:   now,
			})
		}
	}

	s.log.Info("expiry check finished",
		zap.Int("checked", out.Checked),
		zap.Int("expired", len(out.Expired)),
		zap.Int("warnings", len(out.Warnings)),
		zap.Int("errors", len(out.Errors)))
	return out, nil
}

// GetExpiringLots: активные партии склада со сроком в пределах daysThreshold
// (уже истёкшие, но ещё не обработанные проверкой, тоже попадают), по возрастанию срока.
func (s *inventoryService) GetExpiringLots(ctx context.Context, warehouseID uuid.UUID, daysThreshold int) ([]ExpiringLot, error) {
	if _, err := s.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	if daysThreshold <= 0 {
		daysThreshold = s.expiryWarningDays
	}

	lots, err := s.repo.Lots.List(ctx, repository.LotFilter{
		WarehouseID: &warehouseID,
		Statuses:    []models.LotStatus{models.LotActive},
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	horizon := now.AddDate(0, 0, daysThreshold)
	out := []ExpiringLot{}
	for _, l := range lots {
		if l.ExpiryDate == nil || l.ExpiryDate.After(horizon) {
			continue
		}
		out = append(out, ExpiringLot{Lot: l, DaysToExpiry: daysUntil(now, *l.ExpiryDate)})
	}
	slices.SortStableFunc(out, func(a, b ExpiringLot) int {
		return a.Lot.ExpiryDate.Compare(*b.Lot.ExpiryDate)
	})
	return out, nil
}

