// Package directory загружает справочник складов (и, опционально, товаров)
// из YAML-файла и засевает им сервис.
package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type WarehouseEntry struct {
	ID    string                 `yaml:"id"`
	Code  string                 `yaml:"code"`
	Name  string                 `yaml:"name"`
	Zones []models.WarehouseZone `yaml:"zones"`
}

type ProductEntry struct {
	SKU        string `yaml:"sku"`
	Name       string `yaml:"name"`
	Perishable bool   `yaml:"perishable"`
}

type File struct {
	Warehouses []WarehouseEntry `yaml:"warehouses"`
	Products   []ProductEntry   `yaml:"products"`
}

func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("directory: payload is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("directory: decode: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Warehouses))
	for i, w := range f.Warehouses {
		code := strings.TrimSpace(w.Code)
		if code == "" {
			return nil, fmt.Errorf("directory: warehouse #%d has no code", i+1)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("directory: duplicate warehouse code %q", code)
		}
		seen[code] = struct{}{}
		if w.ID != "" {
			if _, err := uuid.Parse(w.ID); err != nil {
				return nil, fmt.Errorf("directory: warehouse %q: invalid id: %w", code, err)
			}
		}
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}
	f, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("directory: %s: %w", path, err)
	}
	return f, nil
}

type Seeder interface {
	UpsertWarehouse(ctx context.Context, in service.WarehouseInput) (*models.Warehouse, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*models.Product, error)
}

// Seed идемпотентен: склады upsert-ятся по id, уже существующие SKU пропускаются.
func Seed(ctx context.Context, f *File, svc Seeder, log *zap.Logger) error {
	for _, w := range f.Warehouses {
		var id uuid.UUID
		if w.ID != "" {
			id = uuid.MustParse(w.ID)
		}
		wh, err := svc.UpsertWarehouse(ctx, service.WarehouseInput{ID: id, Code: w.Code, Name: w.Name, Zones: w.Zones})
		if err != nil {
			return fmt.Errorf("seed warehouse %s: %w", w.Code, err)
		}
		log.Info("warehouse loaded", zap.String("code", wh.Code), zap.String("id", wh.ID.String()))
	}
	for _, p := range f.Products {
		_, err := svc.CreateProduct(ctx, service.ProductInput{SKU: p.SKU, Name: p.Name, Perishable: p.Perishable})
		if errors.Is(err, service.ErrSKUExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.SKU, err)
		}
	}
	return nil
}
