package service

import (
	"context"
	"slices"
	"strings"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	replenishmentRatio       = 0.2
	replenishmentTopLots     = 3
	consolidationMinLots     = 3
	consolidationMinFragment = 2
	fragmentedLotQuantity    = 50
)

type productLots struct {
	product *models.Product
	lots    []models.Lot
}

// activeByProduct группирует активные партии склада по товару. Снимок без блокировок.
func (s *inventoryService) activeByProduct(ctx context.Context, warehouseID uuid.UUID) ([]productLots, error) {
	if _, err := s.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	lots, err := s.repo.Lots.List(ctx, repository.LotFilter{
		WarehouseID: &warehouseID,
		Statuses:    []models.LotStatus{models.LotActive},
	})
	if err != nil {
		return nil, err
	}

	idx := make(map[uuid.UUID]int)
	var groups []productLots
	for _, l := range lots {
		i, ok := idx[l.ProductID]
		if !ok {
			p, err := s.repo.Products.GetByID(ctx, l.ProductID)
			if err != nil {
				s.log.Warn("advisor: product lookup failed", zap.String("product_id", l.ProductID.String()), zap.Error(err))
				continue
			}
			i = len(groups)
			idx[l.ProductID] = i
			groups = append(groups, productLots{product: p})
		}
		groups[i].lots = append(groups[i].lots, l)
	}
	slices.SortFunc(groups, func(a, b productLots) int { return strings.Compare(a.product.SKU, b.product.SKU) })
	return groups, nil
}

func recommendation(sl scoredLot) LotRecommendation {
	return LotRecommendation{
		LotID:     sl.lot.ID,
		LotNumber: sl.lot.LotNumber,
		Location:  sl.lot.Location.String(),
		Available: sl.lot.AvailableQuantity,
		Score:     sl.score,
	}
}

// GetReplenishmentCandidates: товар требует пополнения зоны отбора, если там
// меньше 20% общего остатка, а на хранении что-то есть.
func (s *inventoryService) GetReplenishmentCandidates(ctx context.Context, warehouseID uuid.UUID) ([]ReplenishmentCandidate, error) {
	groups, err := s.activeByProduct(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := []ReplenishmentCandidate{}
	for _, g := range groups {
		var picking, storage, total int32
		var storageLots []models.Lot
		for _, l := range g.lots {
			total += l.CurrentQuantity
			switch l.Location.Zone {
			case models.ZonePicking:
				picking += l.CurrentQuantity
			case models.ZoneStorage:
				storage += l.CurrentQuantity
				storageLots = append(storageLots, l)
			}
		}
		if storage <= 0 || float64(picking) >= replenishmentRatio*float64(total) {
			continue
		}

		ranked := rankLots(storageLots, g.product.Perishable, nil, now)
		recs := make([]LotRecommendation, 0, replenishmentTopLots)
		for _, sl := range ranked[:min(len(ranked), replenishmentTopLots)] {
			recs = append(recs, recommendation(sl))
		}
		out = append(out, ReplenishmentCandidate{
			ProductID:       g.product.ID,
			SKU:             g.product.SKU,
			PickingQuantity: picking,
			StorageQuantity: storage,
			TotalQuantity:   total,
			RecommendedLots: recs,
		})
	}
	return out, nil
}

// GetConsolidationOpportunities ищет товары с мелкими разрозненными партиями.
// Целевая локация: zone-aisle с наибольшим суммарным остатком товара.
func (s *inventoryService) GetConsolidationOpportunities(ctx context.Context, warehouseID uuid.UUID) ([]ConsolidationOpportunity, error) {
	groups, err := s.activeByProduct(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := []ConsolidationOpportunity{}
	for _, g := range groups {
		if len(g.lots) < consolidationMinLots {
			continue
		}
		var fragmented []models.Lot
		byAisle := make(map[string]int32)
		for _, l := range g.lots {
			byAisle[l.Location.ZoneAisle()] += l.CurrentQuantity
			if l.CurrentQuantity < fragmentedLotQuantity {
				fragmented = append(fragmented, l)
			}
		}
		if len(fragmented) < consolidationMinFragment {
			continue
		}

		target, best := "", int32(-1)
		for key, qty := range byAisle {
			if qty > best || (qty == best && key < target) {
				target, best = key, qty
			}
		}

		var fragQty int32
		recs := make([]LotRecommendation, 0, len(fragmented))
		for _, sl := range rankLots(fragmented, g.product.Perishable, nil, now) {
			fragQty += sl.lot.CurrentQuantity
			recs = append(recs, recommendation(sl))
		}
		out = append(out, ConsolidationOpportunity{
			ProductID:          g.product.ID,
			SKU:                g.product.SKU,
			LotCount:           len(g.lots),
			FragmentedLots:     recs,
			FragmentedQuantity: fragQty,
			TargetLocation:     target,
		})
	}
	return out, nil
}
