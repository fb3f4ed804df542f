package main

import (
	"context"
	"fmt"
	"os"

	"fulfillment-service/config"
	"fulfillment-service/internal/directory"
	"fulfillment-service/internal/migrate"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"
	"fulfillment-service/pkg/database"
	"fulfillment-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `Usage: migrate [flags]

Flags:
  --no-triggers      не создавать триггеры updated_at
  --no-fks           не создавать внешние ключи через SQL
  --seed <file>      после миграции загрузить справочник складов и товаров (YAML)
`

// Схема fulfillment-БД и, по желанию, начальный справочник складов.
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()

	opts := migrate.DefaultMigrateOptions()
	seedFile := os.Getenv("WAREHOUSES_FILE")
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--no-triggers":
			opts.CreateUpdatedAtTrigger = false
		case "--no-fks":
			opts.CreateFKsViaSQL = false
		case "--seed":
			if i+1 >= len(args) {
				fmt.Print(usage)
				os.Exit(2)
			}
			i++
			seedFile = args[i]
		default:
			fmt.Print(usage)
			os.Exit(2)
		}
	}

	cfg := config.ForMigration(log)
	db := database.ConnectDBForMigration(&cfg.Config, log)
	defer database.CloseDB(db, log)

	ctx := context.Background()
	if err := migrate.MigrateFulfillmentDB(ctx, db, log, opts); err != nil {
		log.Fatal("Ошибка при выполнении миграции", zap.Error(err))
	}
	log.Info("Миграция успешно завершена",
		zap.Bool("triggers", opts.CreateUpdatedAtTrigger),
		zap.Bool("fks", opts.CreateFKsViaSQL))

	if seedFile == "" {
		return
	}
	dir, err := directory.LoadFile(seedFile)
	if err != nil {
		log.Fatal("failed to load directory file", zap.String("path", seedFile), zap.Error(err))
	}
	inventory := service.NewInventoryService(repository.New(db), nil, nil, log)
	if err := directory.Seed(ctx, dir, inventory, log); err != nil {
		log.Fatal("failed to seed directory", zap.Error(err))
	}
	log.Info("Справочник загружен",
		zap.String("path", seedFile),
		zap.Int("warehouses", len(dir.Warehouses)),
		zap.Int("products", len(dir.Products)))
}
