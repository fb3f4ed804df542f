package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SKU        string    `gorm:"type:text;not null;uniqueIndex"`
	Name       string    `gorm:"type:text;not null"`
	Perishable bool      `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

// WarehouseZone: зона склада и её проходы (топология нужна только для справки).
type WarehouseZone struct {
	Name   string   `json:"name" yaml:"name"`
	Aisles []string `json:"aisles" yaml:"aisles"`
}

type Warehouse struct {
	ID    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code  string          `gorm:"type:text;not null;uniqueIndex"`
	Name  string          `gorm:"type:text;not null"`
	Zones []WarehouseZone `gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Warehouse) TableName() string { return "warehouses" }

func (w Warehouse) Clone() Warehouse {
	out := w
	out.Zones = make([]WarehouseZone, len(w.Zones))
	for i, z := range w.Zones {
		out.Zones[i] = WarehouseZone{Name: z.Name, Aisles: append([]string(nil), z.Aisles...)}
	}
	return out
}

const (
	ZonePicking = "picking"
	ZoneStorage = "storage"

	unknownSegment = "unknown"
)

// Location: координаты партии на складе.
type Location struct {
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Zone        string    `gorm:"type:text;not null;default:''"`
	Aisle       string    `gorm:"type:text;not null;default:''"`
	Shelf       string    `gorm:"type:text;not null;default:''"`
	Bin         string    `gorm:"type:text;not null;default:''"`
}

// String форматирует локацию как zone-aisle-shelf-bin.
func (l Location) String() string {
	return fmt.Sprintf("%s-%s-%s-%s", l.Zone, l.Aisle, l.Shelf, l.Bin)
}

// ZoneAisle: ключ для маршрутизации и консолидации.
func (l Location) ZoneAisle() string {
	return l.Zone + "-" + l.Aisle
}

// ParseLocation разбирает строку zone-aisle-shelf-bin; отсутствующие сегменты = "unknown".
func ParseLocation(s string) (zone, aisle, shelf, bin string) {
	parts := strings.Split(s, "-")
	seg := func(i int) string {
		if i < len(parts) && parts[i] != "" {
			return parts[i]
		}
		return unknownSegment
	}
	return seg(0), seg(1), seg(2), seg(3)
}
