package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"taquilla-cli/inventory"
	"taquilla-cli/model"
	"taquilla-cli/payment"
	"taquilla-cli/pricing"
	"taquilla-cli/selection"
)

type zoneItem struct {
	kind     selection.ZoneType
	id       string
	name     string
	price    float64
	capacity int
	free     int
	soldOut  bool
}

func (z zoneItem) Title() string {
	if z.soldOut {
		return z.name + " (agotado)"
	}
	return z.name
}

func (z zoneItem) Description() string {
	parts := []string{formatUSD(z.price)}
	if z.kind == selection.ZoneBox {
		parts[0] += " por puesto"
	}
	if z.capacity > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d disponibles (%.0f%%)", z.free, z.capacity, pricing.AvailabilityPercent(z.free, z.capacity)))
	}
	return strings.Join(parts, " • ")
}

func (z zoneItem) FilterValue() string {
	return strings.ToLower(z.name + " " + z.id)
}

func buildZoneItems(inv *inventory.Inventory) []list.Item {
	general := inv.General()
	items := []list.Item{zoneItem{
		kind:     selection.ZonePreferencial,
		id:       general.Id,
		name:     general.Name,
		price:    general.PriceUSD,
		capacity: general.TotalCapacity,
		free:     general.Available,
		soldOut:  general.Available <= 0,
	}}
	for _, zone := range inv.NumberedZones() {
		items = append(items, zoneItem{
			kind:     selection.ZoneNumbered,
			id:       zone.Id,
			name:     zone.Name,
			price:    zone.PriceUSD,
			capacity: zone.TotalCapacity,
			free:     zone.Available,
			soldOut:  zone.Available <= 0,
		})
	}
	seatPrice := inv.Schedule().BoxSeatPrice
	for _, box := range inv.Boxes() {
		items = append(items, zoneItem{
			kind:     selection.ZoneBox,
			id:       box.Code,
			name:     "Box " + box.Code,
			price:    seatPrice,
			capacity: box.Capacity,
			free:     box.Available,
			soldOut:  box.SoldOut(),
		})
	}
	return items
}

type methodItem struct {
	method payment.Method
}

func (m methodItem) Title() string {
	return m.method.Label()
}

func (m methodItem) Description() string {
	if m.method.Instant() {
		return "Confirmación inmediata"
	}
	return "Verificación manual"
}

func (m methodItem) FilterValue() string {
	return strings.ToLower(m.method.Label())
}

// buildMethodItems lists the methods the token allows. allowed is nil when
// every method is permitted.
func buildMethodItems(allowed func(string) bool) []list.Item {
	var items []list.Item
	for _, method := range payment.Methods {
		if allowed != nil && !allowed(string(method)) {
			continue
		}
		items = append(items, methodItem{method: method})
	}
	return items
}

type bankItem struct {
	bank model.Bank
}

func (b bankItem) Title() string {
	return b.bank.Name
}

func (b bankItem) Description() string {
	return b.bank.Code
}

func (b bankItem) FilterValue() string {
	return strings.ToLower(b.bank.Code + " " + b.bank.Name)
}

func buildBankItems(banks []model.Bank) []list.Item {
	items := make([]list.Item, 0, len(banks))
	for _, bank := range banks {
		items = append(items, bankItem{bank: bank})
	}
	return items
}

func bankName(banks []model.Bank, code string) string {
	for _, bank := range banks {
		if bank.Code == code {
			return bank.Name
		}
	}
	return ""
}
