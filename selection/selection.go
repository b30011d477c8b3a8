// Package selection holds what the buyer is about to purchase: one zone at a
// time, its seats or quantity, and the box full/partial mode.
package selection

import (
	"errors"
	"fmt"

	"taquilla-cli/inventory"
	"taquilla-cli/model"
	"taquilla-cli/pricing"
)

type ZoneType string

const (
	ZoneNone         ZoneType = ""
	ZonePreferencial ZoneType = "preferencial"
	ZoneBox          ZoneType = "box"
	ZoneNumbered     ZoneType = "numbered"
)

// MaxSeats caps numbered seats per purchase.
const MaxSeats = 10

var (
	ErrNotNumbered     = errors.New("zone has no numbered seats")
	ErrSeatNotFound    = errors.New("seat not found")
	ErrSeatUnavailable = errors.New("seat is not available")
	ErrSeatLimit       = errors.New("seat limit reached")
	ErrNoBoxSelected   = errors.New("no box selected")
)

// Selection is a copy of the current choice.
type Selection struct {
	ZoneType        ZoneType
	Zone            *model.Zone
	Seats           []model.Seat
	GeneralQuantity int
	SelectedBox     string
	BoxQuantity     int
	PurchaseFullBox bool
}

// Quantity is the number of admissions the selection represents.
func (s Selection) Quantity() int {
	switch s.ZoneType {
	case ZoneNumbered:
		return len(s.Seats)
	case ZoneBox:
		if s.PurchaseFullBox {
			return pricing.BoxCapacity
		}
		return s.BoxQuantity
	case ZonePreferencial:
		return s.GeneralQuantity
	default:
		return 0
	}
}

// Snapshot is the immutable form of a selection copied into the purchase form
// when the buyer reaches the payment step.
type Snapshot struct {
	TicketType       string
	ZoneId           string
	ZoneName         string
	SeatIds          []string
	Quantity         int
	UnitPrice        float64
	TotalPrice       float64
	IsBoxPurchase    bool
	BoxFullPurchase  bool
	BoxCode          string
	BoxSeatsQuantity int
}

func (s Snapshot) Empty() bool {
	return s.ZoneId == ""
}

type Controller struct {
	inv *inventory.Inventory

	zoneType        ZoneType
	selectedBox     string
	boxQuantity     int
	purchaseFullBox bool
	generalQuantity int

	zone  *model.Zone
	seats []model.Seat
}

func New(inv *inventory.Inventory) *Controller {
	return &Controller{
		inv:             inv,
		generalQuantity: pricing.MinQuantity,
		boxQuantity:     pricing.MinQuantity,
	}
}

func (c *Controller) Inventory() *inventory.Inventory {
	return c.inv
}

// SetInventory swaps the inventory after a refresh. The current selection is
// dropped since its zone may no longer exist.
func (c *Controller) SetInventory(inv *inventory.Inventory) {
	c.inv = inv
	c.Reset()
}

func (c *Controller) Reset() {
	c.zoneType = ZoneNone
	c.zone = nil
	c.clearZoneState()
}

func (c *Controller) clearZoneState() {
	c.seats = nil
	c.selectedBox = ""
	c.boxQuantity = pricing.MinQuantity
	c.purchaseFullBox = false
	c.generalQuantity = pricing.MinQuantity
}

// SelectPreferencial activates the general pool. Re-selecting it keeps the
// current quantity.
func (c *Controller) SelectPreferencial() {
	zone := c.inv.General()
	if c.zoneType == ZonePreferencial {
		c.zone = &zone
		return
	}
	c.clearZoneState()
	c.zoneType = ZonePreferencial
	c.zone = &zone
}

// SelectBox makes code the active zone in partial mode with one seat.
func (c *Controller) SelectBox(code string) error {
	zone, err := c.inv.BoxZone(code, false, pricing.MinQuantity)
	if err != nil {
		return err
	}
	c.clearZoneState()
	c.zoneType = ZoneBox
	c.selectedBox = zone.Code
	c.zone = &zone
	return nil
}

func (c *Controller) SelectNumberedZone(id string) error {
	zone, err := c.inv.Zone(id)
	if err != nil {
		return err
	}
	if !zone.IsNumbered {
		return fmt.Errorf("%w: %s", ErrNotNumbered, id)
	}
	c.clearZoneState()
	c.zoneType = ZoneNumbered
	c.zone = &zone
	return nil
}

// SetFullBox switches the selected box between whole-box and per-seat
// purchase. The zone object is rebuilt; its unit price does not change.
func (c *Controller) SetFullBox(full bool) error {
	if c.zoneType != ZoneBox {
		return ErrNoBoxSelected
	}
	quantity := pricing.MinQuantity
	if full {
		quantity = pricing.BoxCapacity
	}
	zone, err := c.inv.BoxZone(c.selectedBox, full, quantity)
	if err != nil {
		return err
	}
	c.purchaseFullBox = full
	c.boxQuantity = quantity
	c.zone = &zone
	return nil
}

// Increment raises the quantity by one, clamped at the mode's maximum.
func (c *Controller) Increment() {
	c.adjust(1)
}

// Decrement lowers the quantity by one, clamped at one.
func (c *Controller) Decrement() {
	c.adjust(-1)
}

func (c *Controller) adjust(delta int) {
	switch c.zoneType {
	case ZonePreferencial:
		c.generalQuantity = clampQuantity(c.generalQuantity+delta, pricing.MaxGeneralQuantity)
	case ZoneBox:
		if c.purchaseFullBox || c.zone == nil {
			return
		}
		c.boxQuantity = clampQuantity(c.boxQuantity+delta, pricing.BoxCapacity)
		zone := *c.zone
		zone.BoxQuantity = c.boxQuantity
		c.zone = &zone
	}
}

func clampQuantity(v, max int) int {
	if v < pricing.MinQuantity {
		return pricing.MinQuantity
	}
	if v > max {
		return max
	}
	return v
}

// ToggleSeat selects an available seat, or deselects it when it is already
// selected.
func (c *Controller) ToggleSeat(seatID string) error {
	if c.zoneType != ZoneNumbered || c.zone == nil {
		return ErrNotNumbered
	}
	for i, s := range c.seats {
		if s.Id == seatID {
			c.seats = append(c.seats[:i:i], c.seats[i+1:]...)
			return nil
		}
	}
	seat, ok := c.inv.Seat(c.zone.Id, seatID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSeatNotFound, seatID)
	}
	if seat.Status != model.SeatAvailable {
		return fmt.Errorf("%w: %s", ErrSeatUnavailable, seatID)
	}
	if len(c.seats) >= MaxSeats {
		return ErrSeatLimit
	}
	seat.Status = model.SeatSelected
	c.seats = append(c.seats, seat)
	return nil
}

func (c *Controller) IsSeatSelected(seatID string) bool {
	for _, s := range c.seats {
		if s.Id == seatID {
			return true
		}
	}
	return false
}

func (c *Controller) Selection() Selection {
	s := Selection{
		ZoneType:        c.zoneType,
		Seats:           append([]model.Seat(nil), c.seats...),
		GeneralQuantity: c.generalQuantity,
		SelectedBox:     c.selectedBox,
		BoxQuantity:     c.boxQuantity,
		PurchaseFullBox: c.purchaseFullBox,
	}
	if c.zone != nil {
		zone := *c.zone
		s.Zone = &zone
	}
	return s
}

func (c *Controller) Quantity() int {
	return c.Selection().Quantity()
}

func (c *Controller) UnitPrice() float64 {
	if c.zone == nil {
		return 0
	}
	return c.inv.Schedule().UnitPrice(*c.zone)
}

func (c *Controller) TotalPrice() float64 {
	if c.zone == nil {
		return 0
	}
	return c.inv.Schedule().TotalPrice(*c.zone, c.seats, c.generalQuantity)
}

func (c *Controller) Snapshot() Snapshot {
	if c.zone == nil {
		return Snapshot{}
	}
	zone := *c.zone
	snap := Snapshot{
		TicketType: ticketType(c.zoneType),
		ZoneId:     zone.Id,
		ZoneName:   zone.Name,
		Quantity:   c.Quantity(),
		UnitPrice:  c.UnitPrice(),
		TotalPrice: c.TotalPrice(),
	}
	for _, s := range c.seats {
		snap.SeatIds = append(snap.SeatIds, s.Id)
	}
	if zone.IsBoxPurchase {
		snap.IsBoxPurchase = true
		snap.BoxFullPurchase = zone.BoxFullPurchase
		snap.BoxCode = zone.Code
		snap.BoxSeatsQuantity = snap.Quantity
	}
	return snap
}

func ticketType(t ZoneType) string {
	switch t {
	case ZoneBox:
		return "box"
	case ZoneNumbered:
		return "vip"
	default:
		return "general"
	}
}
