package service

import (
	"math"
	"slices"
	"time"

	"fulfillment-service/internal/models"
)

// Веса FEFO-скоринга. Больше: отбирать раньше.
const (
	scoreExpired      = -10000
	scoreExpiresWeek  = 1000
	scoreExpiresMonth = 500
	scoreExpiresLater = 100

	scoreAgePerDay = 2
	scoreAgeCap    = 200

	scorePreferredLocation = 300
	scorePickingZone       = 150
	scoreStorageZone       = 50

	scoreQty100 = 100
	scoreQty50  = 50

	scoreQuality  = 25
	scoreBrandNew = -50
)

type scoreInput struct {
	lot        *models.Lot
	perishable bool
	preferred  map[string]struct{}
	now        time.Time
}

// daysUntil: дни до момента t, округление вверх (истекающее через 1 час = 1 день).
func daysUntil(now, t time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// ageDays: полных дней с приёмки, не меньше нуля.
func ageDays(now, received time.Time) int {
	d := int(now.Sub(received).Hours() / 24)
	return max(d, 0)
}

func fefoScore(in scoreInput) int {
	l := in.lot
	score := 0

	if l.ExpiryDate != nil && in.perishable {
		switch days := daysUntil(in.now, *l.ExpiryDate); {
		case days <= 0:
			score += scoreExpired
		case days <= 7:
			score += scoreExpiresWeek
		case days <= 30:
			score += scoreExpiresMonth
		default:
			score += scoreExpiresLater
		}
	}

	score += min(ageDays(in.now, l.ReceivedDate)*scoreAgePerDay, scoreAgeCap)

	if _, ok := in.preferred[l.Location.String()]; ok {
		score += scorePreferredLocation
	}

	switch l.Location.Zone {
	case models.ZonePicking:
		score += scorePickingZone
	case models.ZoneStorage:
		score += scoreStorageZone
	}

	switch {
	case l.AvailableQuantity >= 100:
		score += scoreQty100
	case l.AvailableQuantity >= 50:
		score += scoreQty50
	}

	if l.QualityPassed {
		score += scoreQuality
	}

	if !in.perishable && in.now.Sub(l.ReceivedDate) < 24*time.Hour {
		score += scoreBrandNew
	}
	return score
}

type scoredLot struct {
	lot   models.Lot
	score int
}

// rankLots сортирует по убыванию score; при равенстве: по id лексикографически.
func rankLots(lots []models.Lot, perishable bool, preferred []string, now time.Time) []scoredLot {
	pref := make(map[string]struct{}, len(preferred))
	for _, p := range preferred {
		pref[p] = struct{}{}
	}
	out := make([]scoredLot, 0, len(lots))
	for i := range lots {
		out = append(out, scoredLot{
			lot:   lots[i],
			score: fefoScore(scoreInput{lot: &lots[i], perishable: perishable, preferred: pref, now: now}),
		})
	}
	slices.SortStableFunc(out, func(a, b scoredLot) int {
		if a.score != b.score {
			return b.score - a.score
		}
		as, bs := a.lot.ID.String(), b.lot.ID.String()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	})
	return out
}
