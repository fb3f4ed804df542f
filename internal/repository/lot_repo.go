package repository

import (
	"context"
	"errors"

	"fulfillment-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type lotRepo struct{ db *gorm.DB }

func NewLotRepo(db *gorm.DB) LotRepo { return &lotRepo{db: db} }

func (r *lotRepo) Create(ctx context.Context, l *models.Lot) error {
	return r.db.WithContext(ctx).Select("*").Create(l).Error
}

func (r *lotRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var l models.Lot
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *lotRepo) GetByProductAndNumber(ctx context.Context, productID uuid.UUID, lotNumber string) (*models.Lot, error) {
	var l models.Lot
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND lot_number = ?", productID, lotNumber).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &l, err
}

func (r *lotRepo) List(ctx context.Context, f LotFilter) ([]models.Lot, error) {
	q := r.db.WithContext(ctx).Model(&models.Lot{})
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var list []models.Lot
	if err := q.Order("received_date ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *lotRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(l *models.Lot) error) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// строка партии блокируется до конца транзакции
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&lot, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := fn(&lot); err != nil {
			return err
		}
		return tx.Save(&lot).Error
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}
