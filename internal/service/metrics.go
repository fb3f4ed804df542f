package service

import (
	"context"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"

	"github.com/shopspring/decimal"
)

const metricsPageSize = 200

func inWindow(t time.Time, f MetricsFilter) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}

func (s *fulfillmentService) allPickLists(ctx context.Context, f MetricsFilter) ([]models.PickList, error) {
	var out []models.PickList
	for offset := 0; ; offset += metricsPageSize {
		page, err := s.repo.PickLists.List(ctx, repository.PickListFilter{
			WarehouseID: f.WarehouseID,
			Limit:       metricsPageSize,
			Offset:      offset,
		})
		if err != nil {
			return nil, err
		}
		for _, pl := range page {
			if inWindow(pl.CreatedAt, f) {
				out = append(out, pl)
			}
		}
		if len(page) < metricsPageSize {
			return out, nil
		}
	}
}

func (s *fulfillmentService) allPackLists(ctx context.Context, f MetricsFilter) ([]models.PackList, error) {
	var out []models.PackList
	for offset := 0; ; offset += metricsPageSize {
		page, err := s.repo.PackLists.List(ctx, repository.PackListFilter{
			WarehouseID: f.WarehouseID,
			Limit:       metricsPageSize,
			Offset:      offset,
		})
		if err != nil {
			return nil, err
		}
		for _, pl := range page {
			if inWindow(pl.CreatedAt, f) {
				out = append(out, pl)
			}
		}
		if len(page) < metricsPageSize {
			return out, nil
		}
	}
}

// GetPickingMetrics: точность = отобрано/запрошено, производительность = единиц в час
// по завершённым пик-листам.
func (s *fulfillmentService) GetPickingMetrics(ctx context.Context, f MetricsFilter) (*PickingMetrics, error) {
	lists, err := s.allPickLists(ctx, f)
	if err != nil {
		return nil, err
	}

	m := &PickingMetrics{TotalPickLists: len(lists)}
	var minutes, estimated float64
	var timed int
	for _, pl := range lists {
		switch pl.Status {
		case models.PickListPending:
			m.Pending++
		case models.PickListInProgress:
			m.InProgress++
		case models.PickListCancelled:
			m.Cancelled++
		case models.PickListCompleted:
			m.Completed++
			if !pl.FulfillmentComplete {
				m.FulfillmentIssues++
			}
			estimated += float64(pl.EstimatedMinutes)
			for _, it := range pl.Items {
				m.RequestedUnits += int64(it.RequestedQuantity)
				m.PickedUnits += int64(it.PickedQuantity)
				m.ShortUnits += int64(it.ShortQuantity)
			}
			if pl.ActualMinutes != nil {
				minutes += *pl.ActualMinutes
				timed++
			}
		}
	}
	if timed > 0 {
		m.AverageMinutes = minutes / float64(timed)
	}
	if m.Completed > 0 {
		m.AverageEstimateMin = estimated / float64(m.Completed)
	}
	if m.RequestedUnits > 0 {
		m.Accuracy = float64(m.PickedUnits) / float64(m.RequestedUnits)
	}
	if minutes > 0 {
		m.ItemsPerHour = float64(m.PickedUnits) / (minutes / 60)
	}
	return m, nil
}

func (s *fulfillmentService) GetPackingMetrics(ctx context.Context, f MetricsFilter) (*PackingMetrics, error) {
	lists, err := s.allPackLists(ctx, f)
	if err != nil {
		return nil, err
	}

	m := &PackingMetrics{TotalPackLists: len(lists), TotalWeight: decimal.Zero}
	var minutes float64
	var timed int
	for _, pl := range lists {
		m.PackagesTotal += len(pl.Packages)
		for _, p := range pl.Packages {
			if p.TrackingNumber != nil {
				m.PackagesShipped++
			}
		}
		switch pl.Status {
		case models.PackListPending:
			m.Pending++
		case models.PackListInProgress:
			m.InProgress++
		case models.PackListCompleted:
			m.Completed++
			m.TotalWeight = m.TotalWeight.Add(pl.TotalWeight)
			for _, p := range pl.Packages {
				m.PackedUnits += int64(p.ItemCount())
			}
			if pl.ActualMinutes != nil {
				minutes += *pl.ActualMinutes
				timed++
			}
		}
	}
	if timed > 0 {
		m.AverageMinutes = minutes / float64(timed)
	}
	if minutes > 0 {
		m.ItemsPerHour = float64(m.PackedUnits) / (minutes / 60)
	}
	return m, nil
}
