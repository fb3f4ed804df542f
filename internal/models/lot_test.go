package models_test

import (
	"errors"
	"testing"
	"time"

	"fulfillment-service/internal/models"
)

func newLot(current int32) *models.Lot {
	l := &models.Lot{}
	l.Receive(current)
	return l
}

func assertInvariant(t *testing.T, l *models.Lot) {
	t.Helper()
	if l.ReservedQuantity < 0 || l.CurrentQuantity < 0 || l.AvailableQuantity < 0 {
		t.Fatalf("negative quantity: %+v", l)
	}
	if l.ReservedQuantity > l.CurrentQuantity {
		t.Fatalf("reserved > current: %+v", l)
	}
	if l.Status == models.LotActive && l.AvailableQuantity != l.CurrentQuantity-l.ReservedQuantity {
		t.Fatalf("available mismatch: %+v", l)
	}
}

func TestLot_ReserveCapsAtAvailable(t *testing.T) {
	l := newLot(10)

	if got := l.Reserve(4); got != 4 {
		t.Fatalf("expected 4 reserved, got %d", got)
	}
	if got := l.Reserve(100); got != 6 {
		t.Fatalf("expected 6 reserved, got %d", got)
	}
	if got := l.Reserve(1); got != 0 {
		t.Fatalf("expected nothing left, got %d", got)
	}
	if l.AvailableQuantity != 0 || l.ReservedQuantity != 10 {
		t.Fatalf("unexpected lot: %+v", l)
	}
	assertInvariant(t, l)
}

func TestLot_ReleaseIsFloored(t *testing.T) {
	l := newLot(10)
	l.Reserve(5)

	if got := l.Release(5); got != 5 {
		t.Fatalf("expected 5 released, got %d", got)
	}
	if got := l.Release(5); got != 0 {
		t.Fatalf("second release must be a no-op, got %d", got)
	}
	if l.ReservedQuantity != 0 || l.AvailableQuantity != 10 {
		t.Fatalf("unexpected lot: %+v", l)
	}
	assertInvariant(t, l)
}

func TestLot_FulfillUnwindsAllocatedAmount(t *testing.T) {
	l := newLot(10)
	l.Reserve(6)

	// отобрали меньше, чем резервировали: резерв снимается целиком
	l.Fulfill(4, 6)
	if l.CurrentQuantity != 6 || l.ReservedQuantity != 0 || l.AvailableQuantity != 6 {
		t.Fatalf("unexpected lot after fulfill: %+v", l)
	}
	assertInvariant(t, l)

	// повторный Fulfill не уводит резерв в минус
	l.Fulfill(0, 6)
	assertInvariant(t, l)
}

func TestLot_FulfillDepletes(t *testing.T) {
	l := newLot(3)
	l.Reserve(3)
	l.Fulfill(3, 3)

	if l.Status != models.LotDepleted {
		t.Fatalf("expected depleted, got %s", l.Status)
	}
	assertInvariant(t, l)
}

func TestLot_FulfillOverPickVoidsOtherReservations(t *testing.T) {
	l := newLot(10)
	l.Reserve(8) // чужой заказ
	l.Reserve(2) // наш

	// отобрали 5 вместо 2: остаток 5 не покрывает чужие 8
	if voided := l.Fulfill(5, 2); voided != 3 {
		t.Fatalf("expected 3 voided, got %d", voided)
	}
	if l.CurrentQuantity != 5 || l.ReservedQuantity != 5 {
		t.Fatalf("unexpected lot after over-pick: %+v", l)
	}
	assertInvariant(t, l)

	if voided := l.Fulfill(1, 1); voided != 0 {
		t.Fatalf("covered reservation must not be voided, got %d", voided)
	}
	assertInvariant(t, l)
}

func TestLot_ReleaseThenFulfillNeverNegative(t *testing.T) {
	l := newLot(10)
	l.Reserve(5)
	l.Release(5)
	l.Fulfill(0, 5)
	if l.ReservedQuantity != 0 {
		t.Fatalf("reserved went wrong: %+v", l)
	}
	assertInvariant(t, l)
}

func TestLot_QuarantineRoundTrip(t *testing.T) {
	l := newLot(10)
	l.Reserve(3)

	if _, err := l.Transition(models.LotQuarantine, "inspection"); err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if l.AvailableQuantity != 0 || l.CurrentQuantity != 10 || l.ReservedQuantity != 3 {
		t.Fatalf("quarantine must only zero available: %+v", l)
	}
	if got := l.Reserve(1); got != 0 {
		t.Fatalf("quarantined lot must not be reservable")
	}

	if _, err := l.Transition(models.LotActive, "released"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if l.AvailableQuantity != 7 {
		t.Fatalf("expected available=7, got %d", l.AvailableQuantity)
	}
	assertInvariant(t, l)
}

func TestLot_TransitionSideEffects(t *testing.T) {
	tests := []struct {
		name        string
		to          models.LotStatus
		wantVoided  int32
		wantCurrent int32
	}{
		{"recall", models.LotRecalled, 4, 10},
		{"expire", models.LotExpired, 4, 10},
		{"deplete", models.LotDepleted, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLot(10)
			l.Reserve(4)
			voided, err := l.Transition(tt.to, "test")
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if voided != tt.wantVoided {
				t.Fatalf("voided=%d want %d", voided, tt.wantVoided)
			}
			if l.CurrentQuantity != tt.wantCurrent || l.ReservedQuantity != 0 || l.AvailableQuantity != 0 {
				t.Fatalf("unexpected lot: %+v", l)
			}
		})
	}
}

func TestLot_TransitionRejectsInvalid(t *testing.T) {
	l := newLot(10)
	if _, err := l.Transition("lost", ""); !errors.Is(err, models.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
	if _, err := l.Transition(models.LotExpired, ""); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := l.Transition(models.LotActive, ""); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestParseLotStatus(t *testing.T) {
	if st, err := models.ParseLotStatus("quarantine"); err != nil || st != models.LotQuarantine {
		t.Fatalf("parse quarantine: %v %v", st, err)
	}
	if _, err := models.ParseLotStatus("bogus"); !errors.Is(err, models.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestLot_IsExpiredAt(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	l := &models.Lot{ExpiryDate: &past}
	if !l.IsExpiredAt(now) {
		t.Fatal("expected expired")
	}
	if (&models.Lot{}).IsExpiredAt(now) {
		t.Fatal("lot without expiry never expires")
	}
}

func TestParseLocation(t *testing.T) {
	z, a, s, b := models.ParseLocation("picking-A1")
	if z != "picking" || a != "A1" || s != "unknown" || b != "unknown" {
		t.Fatalf("unexpected parse: %s %s %s %s", z, a, s, b)
	}
	loc := models.Location{Zone: "storage", Aisle: "B", Shelf: "2", Bin: "7"}
	if loc.String() != "storage-B-2-7" || loc.ZoneAisle() != "storage-B" {
		t.Fatalf("unexpected format: %s / %s", loc.String(), loc.ZoneAisle())
	}
}
