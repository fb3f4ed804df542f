package migrate

import (
	"context"

	"fulfillment-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint'ы на остатки и статусы
	CreateIndexes          bool // индексы для FEFO-выборки и истечения сроков
	CreateFKsViaSQL        bool // FK через Exec после AutoMigrate
	CreateUpdatedAtTrigger bool // триггеры updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

func exec(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error(s.name, zap.Error(err))
			return err
		}
	}
	return nil
}

func MigrateFulfillmentDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	db = db.WithContext(ctx)
	log.Info("Начало миграции базы склада/комплектации")

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := exec(db, log, []step{
			{"pgcrypto error", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		}); err != nil {
			return err
		}
	}

	log.Info("Создание таблиц: products, warehouses, lots, pick_lists, pick_list_items, pack_lists, packages")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Warehouse{},
		&models.Lot{},
		&models.PickList{},
		&models.PickListItem{},
		&models.PackList{},
		&models.Package{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("Таблицы созданы")

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := exec(db, log, []step{{"triggers error", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_lots_updated ON lots;
CREATE TRIGGER trg_lots_updated BEFORE UPDATE ON lots
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_pick_lists_updated ON pick_lists;
CREATE TRIGGER trg_pick_lists_updated BEFORE UPDATE ON pick_lists
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_pack_lists_updated ON pack_lists;
CREATE TRIGGER trg_pack_lists_updated BEFORE UPDATE ON pack_lists
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`}}); err != nil {
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := exec(db, log, []step{
			// reserved <= current, все остатки неотрицательные
			{"chk lots quantities", `
ALTER TABLE lots
	DROP CONSTRAINT IF EXISTS chk_lots_quantities,
	ADD CONSTRAINT chk_lots_quantities
	CHECK (current_quantity >= 0 AND reserved_quantity >= 0 AND available_quantity >= 0
	       AND reserved_quantity <= current_quantity
	       AND available_quantity <= current_quantity - reserved_quantity);
`},
			{"chk lots status", `
ALTER TABLE lots
	DROP CONSTRAINT IF EXISTS chk_lots_status_allowed,
	ADD CONSTRAINT chk_lots_status_allowed
	CHECK (status IN ('active','quarantine','recalled','expired','depleted'));
`},
			{"chk pick_lists status", `
ALTER TABLE pick_lists
	DROP CONSTRAINT IF EXISTS chk_pick_lists_status_allowed,
	ADD CONSTRAINT chk_pick_lists_status_allowed
	CHECK (status IN ('pending','in_progress','completed','cancelled'));
`},
			{"chk pick_list_items quantities", `
ALTER TABLE pick_list_items
	DROP CONSTRAINT IF EXISTS chk_pick_list_items_quantities,
	ADD CONSTRAINT chk_pick_list_items_quantities
	CHECK (requested_quantity > 0 AND picked_quantity >= 0 AND short_quantity >= 0);
`},
			{"chk pack_lists status", `
ALTER TABLE pack_lists
	DROP CONSTRAINT IF EXISTS chk_pack_lists_status_allowed,
	ADD CONSTRAINT chk_pack_lists_status_allowed
	CHECK (status IN ('pending','in_progress','completed'));
`},
		}); err != nil {
			return err
		}
		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов")
		if err := exec(db, log, []step{
			// кандидаты FEFO: product + warehouse среди активных партий
			{"ix lots fefo", `
CREATE INDEX IF NOT EXISTS ix_lots_fefo_candidates
ON lots (product_id, warehouse_id, expiry_date)
WHERE status = 'active' AND available_quantity > 0;
`},
			{"ix lots expiry", `
CREATE INDEX IF NOT EXISTS ix_lots_active_expiry
ON lots (warehouse_id, expiry_date)
WHERE status = 'active' AND expiry_date IS NOT NULL;
`},
			{"ix pick_lists warehouse_status", `
CREATE INDEX IF NOT EXISTS ix_pick_lists_warehouse_status
ON pick_lists (warehouse_id, status, created_at);
`},
		}); err != nil {
			return err
		}
		log.Info("Индексы созданы")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := exec(db, log, []step{
			{"fk lots.product_id", `
ALTER TABLE lots
  DROP CONSTRAINT IF EXISTS fk_lots_product,
  ADD CONSTRAINT fk_lots_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
`},
			{"fk lots.warehouse_id", `
ALTER TABLE lots
  DROP CONSTRAINT IF EXISTS fk_lots_warehouse,
  ADD CONSTRAINT fk_lots_warehouse
    FOREIGN KEY (warehouse_id) REFERENCES warehouses(id) ON DELETE RESTRICT;
`},
			{"fk pack_lists.pick_list_id", `
ALTER TABLE pack_lists
  DROP CONSTRAINT IF EXISTS fk_pack_lists_pick_list,
  ADD CONSTRAINT fk_pack_lists_pick_list
    FOREIGN KEY (pick_list_id) REFERENCES pick_lists(id) ON DELETE RESTRICT;
`},
		}); err != nil {
			return err
		}
		log.Info("Внешние ключи созданы")
	}

	log.Info("Миграция базы склада/комплектации успешно завершена")
	return nil
}
