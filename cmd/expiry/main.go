package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"fulfillment-service/config"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"
	"fulfillment-service/pkg/database"
	"fulfillment-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Разовый прогон проверки сроков годности (для cron), без HTTP/gRPC.
func main() {
	_ = godotenv.Load()

	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.ForMigration(log)

	db := database.ConnectDB(&cfg.Config, log)
	defer database.CloseDB(db, log)

	svc := service.NewInventoryService(repository.New(db), nil, nil, log)

	ctx := context.Background()

	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "check":
		log.Info("running expiry check")
		res, err := svc.RunExpiryCheck(ctx)
		if err != nil {
			log.Fatal("expiry check failed", zap.Error(err))
		}
		log.Info("expiry check finished",
			zap.Int("checked", res.Checked),
			zap.Int("expired", len(res.Expired)),
			zap.Int("warnings", len(res.Warnings)),
			zap.Strings("errors", res.Errors))
	case "report":
		if len(os.Args) < 3 {
			usage()
		}
		warehouseID, err := uuid.Parse(os.Args[2])
		if err != nil {
			log.Fatal("invalid warehouse id", zap.String("value", os.Args[2]), zap.Error(err))
		}
		days := 0
		if len(os.Args) > 3 {
			if days, err = strconv.Atoi(os.Args[3]); err != nil {
				log.Fatal("invalid days", zap.String("value", os.Args[3]), zap.Error(err))
			}
		}
		lots, err := svc.GetExpiringLots(ctx, warehouseID, days)
		if err != nil {
			log.Fatal("expiring lots report failed", zap.Error(err))
		}
		for _, l := range lots {
			fmt.Printf("%s\t%s\t%d days\t%d available\n",
				l.Lot.LotNumber, l.Lot.Location.String(), l.DaysToExpiry, l.Lot.AvailableQuantity)
		}
	default:
		usage()
	}

	log.Info("expiry run completed successfully")
}

func usage() {
	fmt.Println("Usage: go run cmd/expiry/main.go [check|report <warehouse-id> [days]]")
	fmt.Println("  check  - expire overdue lots and emit expiry warnings")
	fmt.Println("  report - print lots expiring within days (default 7)")
	os.Exit(1)
}
