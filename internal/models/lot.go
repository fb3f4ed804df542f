package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type LotStatus string

const (
	LotActive     LotStatus = "active"
	LotQuarantine LotStatus = "quarantine"
	LotRecalled   LotStatus = "recalled"
	LotExpired    LotStatus = "expired"
	LotDepleted   LotStatus = "depleted"
)

var (
	ErrUnknownStatus     = errors.New("unknown lot status")
	ErrInvalidTransition = errors.New("invalid lot status transition")
)

// допустимые переходы; recalled/expired/depleted: терминальные
var lotTransitions = map[LotStatus]map[LotStatus]struct{}{
	LotActive: {
		LotQuarantine: {}, LotRecalled: {}, LotExpired: {}, LotDepleted: {},
	},
	LotQuarantine: {
		LotActive: {}, LotRecalled: {}, LotExpired: {}, LotDepleted: {},
	},
	LotRecalled: {},
	LotExpired:  {},
	LotDepleted: {},
}

func ParseLotStatus(s string) (LotStatus, error) {
	st := LotStatus(s)
	if _, ok := lotTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

type Lot struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_lots_product_number"`
	LotNumber string    `gorm:"type:text;not null;uniqueIndex:ux_lots_product_number"`
	Location  Location  `gorm:"embedded"`

	ReceivedDate time.Time  `gorm:"not null;index"`
	ExpiryDate   *time.Time `gorm:"index"`

	CurrentQuantity   int32 `gorm:"not null;default:0"`
	ReservedQuantity  int32 `gorm:"not null;default:0"`
	AvailableQuantity int32 `gorm:"not null;default:0"`

	QualityPassed bool   `gorm:"not null;default:false"`
	QualityNotes  string `gorm:"type:text"`

	Status       LotStatus `gorm:"type:text;not null;default:'active';index"`
	StatusReason string    `gorm:"type:text"`

	// FEFOScore: последний рассчитанный приоритет, только для наблюдаемости.
	FEFOScore    int `gorm:"not null;default:0"`
	FEFOScoredAt *time.Time

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Lot) TableName() string { return "lots" }

func (l Lot) Clone() Lot {
	out := l
	if l.ExpiryDate != nil {
		t := *l.ExpiryDate
		out.ExpiryDate = &t
	}
	if l.FEFOScoredAt != nil {
		t := *l.FEFOScoredAt
		out.FEFOScoredAt = &t
	}
	return out
}

// recompute пересчитывает доступный остаток. Вне статуса active партия не отбирается.
func (l *Lot) recompute() {
	if l.Status != LotActive {
		l.AvailableQuantity = 0
		return
	}
	l.AvailableQuantity = l.CurrentQuantity - l.ReservedQuantity
	if l.AvailableQuantity < 0 {
		l.AvailableQuantity = 0
	}
}

// Receive инициализирует остатки новой партии при приёмке.
func (l *Lot) Receive(qty int32) {
	l.Status = LotActive
	l.CurrentQuantity = qty
	l.ReservedQuantity = 0
	l.recompute()
}

// Reserve резервирует до want единиц и возвращает фактически зарезервированное.
func (l *Lot) Reserve(want int32) int32 {
	if want <= 0 || l.Status != LotActive {
		return 0
	}
	granted := min(want, l.AvailableQuantity)
	if granted <= 0 {
		return 0
	}
	l.ReservedQuantity += granted
	l.recompute()
	return granted
}

// Release снимает резерв (не ниже нуля) и возвращает реально снятое количество.
func (l *Lot) Release(qty int32) int32 {
	if qty <= 0 {
		return 0
	}
	released := min(qty, l.ReservedQuantity)
	l.ReservedQuantity -= released
	l.recompute()
	return released
}

// Fulfill списывает физически отобранное (picked) и снимает резерв,
// сделанный при аллокации (allocated). Партия с нулевым остатком становится depleted.
// Возвращает чужой резерв, который не покрыт остатком после перебора.
func (l *Lot) Fulfill(picked, allocated int32) (voided int32) {
	if picked > 0 {
		l.CurrentQuantity = max(l.CurrentQuantity-picked, 0)
	}
	if allocated > 0 {
		l.ReservedQuantity = max(l.ReservedQuantity-allocated, 0)
	}
	if l.ReservedQuantity > l.CurrentQuantity {
		voided = l.ReservedQuantity - l.CurrentQuantity
		l.ReservedQuantity = l.CurrentQuantity
	}
	if l.CurrentQuantity == 0 && (l.Status == LotActive || l.Status == LotQuarantine) {
		l.Status = LotDepleted
		l.StatusReason = "stock consumed"
	}
	l.recompute()
	return voided
}

// Transition переводит партию в новый статус. Возвращает объём резерва,
// аннулированного переходом (recall/expiry/depletion).
func (l *Lot) Transition(to LotStatus, reason string) (voided int32, err error) {
	if _, ok := lotTransitions[to]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if l.Status == to {
		return 0, nil
	}
	if _, ok := lotTransitions[l.Status][to]; !ok {
		return 0, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, to)
	}

	switch to {
	case LotRecalled, LotExpired:
		voided = l.ReservedQuantity
		l.ReservedQuantity = 0
	case LotDepleted:
		voided = l.ReservedQuantity
		l.CurrentQuantity = 0
		l.ReservedQuantity = 0
	}
	l.Status = to
	l.StatusReason = reason
	l.recompute()
	return voided, nil
}

// IsExpiredAt: срок годности истёк (expiry <= now).
func (l *Lot) IsExpiredAt(now time.Time) bool {
	return l.ExpiryDate != nil && !l.ExpiryDate.After(now)
}
