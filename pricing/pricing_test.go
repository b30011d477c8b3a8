package pricing

import (
	"testing"

	"taquilla-cli/model"
)

func boxZone(full bool, quantity int) model.Zone {
	return model.Zone{
		Id:              "box-B5",
		Code:            "B5",
		Type:            model.ZoneTypeVIP,
		PriceUSD:        75,
		TotalCapacity:   10,
		Available:       10,
		IsBoxPurchase:   true,
		BoxFullPurchase: full,
		BoxQuantity:     quantity,
	}
}

func TestTotalPrice_FullBoxIgnoresStaleQuantity(t *testing.T) {
	for _, quantity := range []int{0, 1, 3, 10} {
		if got := TotalPrice(boxZone(true, quantity), nil, 4); got != 750 {
			t.Fatalf("expected 750 for quantity %d, got %v", quantity, got)
		}
	}
}

func TestTotalPrice_PartialBox(t *testing.T) {
	for n := 1; n <= BoxCapacity; n++ {
		if got := TotalPrice(boxZone(false, n), nil, 1); got != float64(75*n) {
			t.Fatalf("expected %d for %d seats, got %v", 75*n, n, got)
		}
	}
}

func TestTotalPrice_PartialBoxFallsBackToGeneralQuantity(t *testing.T) {
	if got := TotalPrice(boxZone(false, 0), nil, 3); got != 225 {
		t.Fatalf("expected 225, got %v", got)
	}
}

func TestTotalPrice_FullBoxNeverAbovePerSeat(t *testing.T) {
	schedules := []Schedule{
		DefaultSchedule,
		{BoxSeatPrice: 80, BoxBundlePrice: 700},
	}
	for _, s := range schedules {
		full := s.TotalPrice(boxZone(true, 10), nil, 1)
		perSeat := s.TotalPrice(boxZone(false, 10), nil, 1)
		if full > perSeat {
			t.Fatalf("expected bundle %v <= per-seat %v", full, perSeat)
		}
		prev := 0.0
		for n := 1; n <= BoxCapacity; n++ {
			total := s.TotalPrice(boxZone(false, n), nil, 1)
			if total < prev {
				t.Fatalf("expected monotonic totals, got %v after %v", total, prev)
			}
			prev = total
		}
	}
}

func TestTotalPrice_NumberedZone(t *testing.T) {
	zone := model.Zone{Id: "vip-1", PriceUSD: 120, IsNumbered: true}
	seats := []model.Seat{{Id: "A1"}, {Id: "A2"}, {Id: "A3"}}
	if got := TotalPrice(zone, seats, 9); got != 360 {
		t.Fatalf("expected 360, got %v", got)
	}
}

func TestTotalPrice_GeneralZone(t *testing.T) {
	zone := model.Zone{Id: "general", PriceUSD: 35}
	if got := TotalPrice(zone, nil, 4); got != 140 {
		t.Fatalf("expected 140, got %v", got)
	}
}

func TestUnitPrice_BoxAlwaysPerSeat(t *testing.T) {
	if got := UnitPrice(boxZone(true, 10)); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
	zone := boxZone(false, 2)
	zone.PriceUSD = 750
	if got := UnitPrice(zone); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
}

func TestBsAmount(t *testing.T) {
	if got := BsAmount(100, nil); got != "0.00" {
		t.Fatalf("expected 0.00, got %q", got)
	}
	if got := BsAmount(12345.67, nil); got != "0.00" {
		t.Fatalf("expected 0.00, got %q", got)
	}
	rate := 37.0
	if got := BsAmount(100, &rate); got != "3700.00" {
		t.Fatalf("expected 3700.00, got %q", got)
	}
	rate = 36.5
	if got := BsAmount(75, &rate); got != "2737.50" {
		t.Fatalf("expected 2737.50, got %q", got)
	}
}

func TestAvailabilityPercent(t *testing.T) {
	tests := []struct {
		available, capacity int
		want                float64
	}{
		{5, 10, 50},
		{0, 0, 0},
		{3, 0, 0},
		{12, 10, 100},
		{-1, 10, 0},
	}
	for _, tc := range tests {
		if got := AvailabilityPercent(tc.available, tc.capacity); got != tc.want {
			t.Fatalf("expected %v for %d/%d, got %v", tc.want, tc.available, tc.capacity, got)
		}
	}
}

func TestBoxSavings(t *testing.T) {
	if got := DefaultSchedule.BoxSavings(); got != 0 {
		t.Fatalf("expected no savings with default prices, got %v", got)
	}
	s := Schedule{BoxSeatPrice: 80, BoxBundlePrice: 700}
	if got := s.BoxSavings(); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	s = Schedule{BoxSeatPrice: 60, BoxBundlePrice: 700}
	if got := s.BoxSavings(); got != 0 {
		t.Fatalf("expected 0 when bundle is dearer, got %v", got)
	}
}
