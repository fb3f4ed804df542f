package repository

import (
	"context"

	"fulfillment-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type pickListRepo struct{ db *gorm.DB }

func NewPickListRepo(db *gorm.DB) PickListRepo { return &pickListRepo{db: db} }

func (r *pickListRepo) Create(ctx context.Context, pl *models.PickList) error {
	return r.db.WithContext(ctx).Create(pl).Error
}

func (r *pickListRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PickList, error) {
	var pl models.PickList
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("pick_sequence ASC") }).
		First(&pl, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pl, nil
}

func (r *pickListRepo) List(ctx context.Context, f PickListFilter) ([]models.PickList, error) {
	q := r.db.WithContext(ctx).Model(&models.PickList{})
	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	limit, offset := normalizePage(f.Limit, f.Offset)

	var list []models.PickList
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("pick_sequence ASC") }).
		Order("created_at ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *pickListRepo) Update(ctx context.Context, id uuid.UUID, fn func(pl *models.PickList) error) (*models.PickList, error) {
	var pl models.PickList
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pl, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("pick_list_id = ?", id).Order("pick_sequence ASC").Find(&pl.Items).Error; err != nil {
			return err
		}
		if err := fn(&pl); err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&pl).Error
	})
	if err != nil {
		return nil, err
	}
	return &pl, nil
}
