// Package inventory models what can be bought: the general admission pool,
// numbered VIP zones and the fixed set of boxes.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"taquilla-cli/model"
	"taquilla-cli/pricing"
)

const (
	BoxCount      = 30
	GeneralZoneID = "general"
	boxIDPrefix   = "box-"
)

var (
	ErrBoxNotFound          = errors.New("box not found")
	ErrBoxSoldOut           = errors.New("box sold out")
	ErrBoxNotFullyAvailable = errors.New("box is not fully available")
	ErrZoneNotFound         = errors.New("zone not found")
)

type Box struct {
	Code      string
	Capacity  int
	Available int
}

func (b Box) SoldOut() bool {
	return b.Available <= 0
}

// FullyAvailable reports whether the whole box can still be bought as a
// bundle.
func (b Box) FullyAvailable() bool {
	return b.Capacity > 0 && b.Available >= b.Capacity
}

type GeneralConfig struct {
	PriceUSD float64
	Capacity int
}

// Inventory is an in-memory view of purchasable units. It is never mutated by
// a purchase; availability only changes when a new snapshot is loaded.
type Inventory struct {
	schedule pricing.Schedule
	general  model.Zone
	boxes    []Box
	numbered []model.Zone
	seats    map[string][]model.Seat
}

// NewCatalog builds the fixed catalog: one general pool and boxes B1..B30.
func NewCatalog(general GeneralConfig, schedule pricing.Schedule) *Inventory {
	inv := &Inventory{
		schedule: schedule,
		general:  generalZone(general.PriceUSD, general.Capacity, general.Capacity),
		seats:    map[string][]model.Seat{},
	}
	for i := 1; i <= BoxCount; i++ {
		inv.boxes = append(inv.boxes, Box{
			Code:      "B" + strconv.Itoa(i),
			Capacity:  pricing.BoxCapacity,
			Available: pricing.BoxCapacity,
		})
	}
	return inv
}

// FromSnapshot builds an inventory from the server's last report. Counts are
// clamped so that available never exceeds capacity.
func FromSnapshot(snapshot model.InventorySnapshot, schedule pricing.Schedule) *Inventory {
	g := snapshot.General
	inv := &Inventory{
		schedule: schedule,
		general:  generalZone(g.PriceUSD, g.TotalCapacity, g.Available),
		seats:    map[string][]model.Seat{},
	}
	if g.Id != "" {
		inv.general.Id = g.Id
	}
	if g.Name != "" {
		inv.general.Name = g.Name
	}

	byCode := map[string]model.BoxStatus{}
	for _, b := range snapshot.Boxes {
		byCode[strings.ToUpper(strings.TrimSpace(b.Code))] = b
	}
	for i := 1; i <= BoxCount; i++ {
		code := "B" + strconv.Itoa(i)
		box := Box{Code: code, Capacity: pricing.BoxCapacity, Available: pricing.BoxCapacity}
		if status, ok := byCode[code]; ok {
			if status.Capacity > 0 {
				box.Capacity = status.Capacity
			}
			box.Available = clamp(status.Available, 0, box.Capacity)
		}
		inv.boxes = append(inv.boxes, box)
	}

	for _, zone := range snapshot.Numbered {
		zone.Type = model.ZoneTypeVIP
		zone.IsNumbered = true
		zone.Available = clamp(zone.Available, 0, zone.TotalCapacity)
		inv.numbered = append(inv.numbered, zone)
		seats := append([]model.Seat(nil), snapshot.Seats[zone.Id]...)
		sort.SliceStable(seats, func(i, j int) bool {
			if seats[i].Row != seats[j].Row {
				return seats[i].Row < seats[j].Row
			}
			return seats[i].Column < seats[j].Column
		})
		inv.seats[zone.Id] = seats
	}
	return inv
}

func generalZone(price float64, capacity, available int) model.Zone {
	return model.Zone{
		Id:            GeneralZoneID,
		Code:          "GEN",
		Name:          "Preferencial",
		Type:          model.ZoneTypeGeneral,
		PriceUSD:      price,
		TotalCapacity: capacity,
		Available:     clamp(available, 0, capacity),
	}
}

func (i *Inventory) Schedule() pricing.Schedule {
	return i.schedule
}

func (i *Inventory) General() model.Zone {
	return i.general
}

func (i *Inventory) Boxes() []Box {
	return append([]Box(nil), i.boxes...)
}

func (i *Inventory) Box(code string) (Box, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, b := range i.boxes {
		if b.Code == code {
			return b, true
		}
	}
	return Box{}, false
}

func (i *Inventory) NumberedZones() []model.Zone {
	return append([]model.Zone(nil), i.numbered...)
}

// Zone finds a zone by id. Box zones are built with partial purchase and a
// single seat.
func (i *Inventory) Zone(id string) (model.Zone, error) {
	if id == i.general.Id {
		return i.general, nil
	}
	for _, z := range i.numbered {
		if z.Id == id {
			return z, nil
		}
	}
	if strings.HasPrefix(id, boxIDPrefix) {
		return i.BoxZone(strings.TrimPrefix(id, boxIDPrefix), false, 1)
	}
	return model.Zone{}, fmt.Errorf("%w: %s", ErrZoneNotFound, id)
}

func (i *Inventory) Seats(zoneID string) []model.Seat {
	return append([]model.Seat(nil), i.seats[zoneID]...)
}

func (i *Inventory) Seat(zoneID, seatID string) (model.Seat, bool) {
	for _, s := range i.seats[zoneID] {
		if s.Id == seatID {
			return s, true
		}
	}
	return model.Seat{}, false
}

// BoxZone builds the zone object for a box. The unit price is always the
// per-seat price; the full/partial choice travels as a flag.
func (i *Inventory) BoxZone(code string, full bool, quantity int) (model.Zone, error) {
	box, ok := i.Box(code)
	if !ok {
		return model.Zone{}, fmt.Errorf("%w: %s", ErrBoxNotFound, code)
	}
	if box.SoldOut() {
		return model.Zone{}, fmt.Errorf("%w: %s", ErrBoxSoldOut, box.Code)
	}
	if full && !box.FullyAvailable() {
		return model.Zone{}, fmt.Errorf("%w: %s", ErrBoxNotFullyAvailable, box.Code)
	}
	quantity = clamp(quantity, pricing.MinQuantity, pricing.BoxCapacity)
	if full {
		quantity = pricing.BoxCapacity
	}
	return model.Zone{
		Id:              boxIDPrefix + box.Code,
		Code:            box.Code,
		Name:            "Box " + box.Code,
		Type:            model.ZoneTypeVIP,
		PriceUSD:        i.schedule.BoxSeatPrice,
		TotalCapacity:   box.Capacity,
		Available:       box.Available,
		IsBoxPurchase:   true,
		BoxFullPurchase: full,
		BoxQuantity:     quantity,
	}, nil
}

// Snapshot returns the inventory in wire form, for caching.
func (i *Inventory) Snapshot() model.InventorySnapshot {
	snapshot := model.InventorySnapshot{
		General:  i.general,
		Numbered: i.NumberedZones(),
		Seats:    map[string][]model.Seat{},
	}
	for _, b := range i.boxes {
		snapshot.Boxes = append(snapshot.Boxes, model.BoxStatus{Code: b.Code, Capacity: b.Capacity, Available: b.Available})
	}
	for id, seats := range i.seats {
		snapshot.Seats[id] = append([]model.Seat(nil), seats...)
	}
	return snapshot
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
