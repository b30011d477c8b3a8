// Package pricing computes unit prices, totals and bolivar equivalents for a
// ticket selection. Every function is pure.
package pricing

import (
	"strconv"

	"taquilla-cli/model"
)

const (
	BoxCapacity        = 10
	MaxGeneralQuantity = 10
	MinQuantity        = 1
)

// Schedule holds the box prices. The bundle price is configured on its own and
// is not assumed to be lower than BoxCapacity seats.
type Schedule struct {
	BoxSeatPrice   float64
	BoxBundlePrice float64
}

var DefaultSchedule = Schedule{
	BoxSeatPrice:   75,
	BoxBundlePrice: 750,
}

// UnitPrice returns the per-unit price of zone. For boxes this is the per-seat
// price even when the whole box is being bought.
func (s Schedule) UnitPrice(zone model.Zone) float64 {
	if zone.IsBoxPurchase {
		return s.BoxSeatPrice
	}
	return zone.PriceUSD
}

// TotalPrice returns the amount to charge for the selection.
func (s Schedule) TotalPrice(zone model.Zone, seats []model.Seat, generalQuantity int) float64 {
	switch {
	case zone.IsBoxPurchase && zone.BoxFullPurchase:
		return s.BoxBundlePrice
	case zone.IsBoxPurchase:
		quantity := zone.BoxQuantity
		if quantity == 0 {
			quantity = generalQuantity
		}
		return float64(quantity) * s.BoxSeatPrice
	case zone.IsNumbered:
		return float64(len(seats)) * zone.PriceUSD
	default:
		return float64(generalQuantity) * zone.PriceUSD
	}
}

// BoxSavings is what a full box saves compared to buying every seat on its
// own. It is zero when the bundle is not cheaper.
func (s Schedule) BoxSavings() float64 {
	savings := float64(BoxCapacity)*s.BoxSeatPrice - s.BoxBundlePrice
	if savings < 0 {
		return 0
	}
	return savings
}

func UnitPrice(zone model.Zone) float64 {
	return DefaultSchedule.UnitPrice(zone)
}

func TotalPrice(zone model.Zone, seats []model.Seat, generalQuantity int) float64 {
	return DefaultSchedule.TotalPrice(zone, seats, generalQuantity)
}

// BsAmount converts usd to bolivars at rate, formatted with two decimals. A
// missing rate yields "0.00".
func BsAmount(usd float64, rate *float64) string {
	if rate == nil {
		return "0.00"
	}
	return strconv.FormatFloat(usd*(*rate), 'f', 2, 64)
}

// AvailabilityPercent returns available/capacity as a percentage in [0, 100].
func AvailabilityPercent(available, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	if available < 0 {
		available = 0
	}
	if available > capacity {
		available = capacity
	}
	return float64(available) / float64(capacity) * 100
}
