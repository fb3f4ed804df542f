package service

import (
	"cmp"
	"slices"
	"strings"

	"fulfillment-service/internal/models"
)

const (
	routeMetersPerStop  = 50
	routeMinutesPerItem = 2
	routeMinMinutes     = 15
)

func zoneRank(zone string) int {
	switch zone {
	case models.ZonePicking:
		return 3
	case models.ZoneStorage:
		return 2
	default:
		return 1
	}
}

// routeKey: zone-aisle для строки локации, пустые сегменты становятся "unknown".
func routeKey(location string) (key, zone, aisle string) {
	zone, aisle, _, _ = models.ParseLocation(location)
	return zone + "-" + aisle, zone, aisle
}

// buildRoute группирует локации по zone-aisle и упорядочивает группы:
// сначала зона отбора, затем хранение, затем прочее; внутри зоны: по проходу.
func buildRoute(locations []string) models.PickRoute {
	type stop struct{ key, zone, aisle string }
	seen := make(map[string]struct{})
	var stops []stop
	for _, loc := range locations {
		key, zone, aisle := routeKey(loc)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		stops = append(stops, stop{key: key, zone: zone, aisle: aisle})
	}
	slices.SortStableFunc(stops, func(a, b stop) int {
		if r := cmp.Compare(zoneRank(b.zone), zoneRank(a.zone)); r != 0 {
			return r
		}
		if r := strings.Compare(a.aisle, b.aisle); r != 0 {
			return r
		}
		return strings.Compare(a.zone, b.zone)
	})

	route := models.PickRoute{
		Zones:            []string{},
		Aisles:           make([]string, 0, len(stops)),
		DistanceMeters:   int32(routeMetersPerStop * len(stops)),
		EstimatedMinutes: int32(max(routeMinutesPerItem*len(locations), routeMinMinutes)),
		Optimized:        true,
	}
	zones := make(map[string]struct{})
	for _, s := range stops {
		route.Aisles = append(route.Aisles, s.key)
		if _, ok := zones[s.zone]; !ok {
			zones[s.zone] = struct{}{}
			route.Zones = append(route.Zones, s.zone)
		}
	}
	return route
}

// sequenceItems упорядочивает позиции по маршруту и нумерует pickSequence с 1.
func sequenceItems(items []models.PickListItem, route models.PickRoute) {
	pos := make(map[string]int, len(route.Aisles))
	for i, key := range route.Aisles {
		pos[key] = i
	}
	rank := func(loc string) int {
		key, _, _ := routeKey(loc)
		if i, ok := pos[key]; ok {
			return i
		}
		return len(route.Aisles)
	}
	slices.SortStableFunc(items, func(a, b models.PickListItem) int {
		if r := cmp.Compare(rank(a.Location), rank(b.Location)); r != 0 {
			return r
		}
		return strings.Compare(a.Location, b.Location)
	})
	for i := range items {
		items[i].PickSequence = int32(i + 1)
	}
}
