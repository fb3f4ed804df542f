package repository

import (
	"context"
	"errors"

	"fulfillment-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type packListRepo struct{ db *gorm.DB }

func NewPackListRepo(db *gorm.DB) PackListRepo { return &packListRepo{db: db} }

func (r *packListRepo) Create(ctx context.Context, pl *models.PackList) error {
	return r.db.WithContext(ctx).Create(pl).Error
}

func (r *packListRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PackList, error) {
	var pl models.PackList
	err := r.db.WithContext(ctx).
		Preload("Packages", func(db *gorm.DB) *gorm.DB { return db.Order("package_number ASC") }).
		First(&pl, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pl, nil
}

func (r *packListRepo) GetByPickList(ctx context.Context, pickListID uuid.UUID) (*models.PackList, error) {
	var pl models.PackList
	err := r.db.WithContext(ctx).
		Preload("Packages").
		First(&pl, "pick_list_id = ?", pickListID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (r *packListRepo) List(ctx context.Context, f PackListFilter) ([]models.PackList, error) {
	q := r.db.WithContext(ctx).Model(&models.PackList{})
	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	limit, offset := normalizePage(f.Limit, f.Offset)

	var list []models.PackList
	err := q.Preload("Packages").
		Order("created_at ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *packListRepo) Update(ctx context.Context, id uuid.UUID, fn func(pl *models.PackList) error) (*models.PackList, error) {
	var pl models.PackList
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pl, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("pack_list_id = ?", id).Order("package_number ASC").Find(&pl.Packages).Error; err != nil {
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
