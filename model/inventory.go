package model

import "time"

type ZoneType string

const (
	ZoneTypeGeneral ZoneType = "general"
	ZoneTypeVIP     ZoneType = "vip"
)

// Zone is a priced category of admission: the general floor, a numbered VIP
// area or a box.
type Zone struct {
	Id              string   `json:"id"`
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	Type            ZoneType `json:"zone_type"`
	PriceUSD        float64  `json:"price_usd"`
	TotalCapacity   int      `json:"total_capacity"`
	Available       int      `json:"available_capacity"`
	IsNumbered      bool     `json:"is_numbered"`
	IsBoxPurchase   bool     `json:"is_box_purchase,omitempty"`
	BoxFullPurchase bool     `json:"box_full_purchase,omitempty"`
	BoxQuantity     int      `json:"box_quantity,omitempty"`
}

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatSold      SeatStatus = "sold"
	SeatReserved  SeatStatus = "reserved"
	SeatSelected  SeatStatus = "selected"
)

type Seat struct {
	Id       string     `json:"id"`
	Row      string     `json:"row"`
	Column   int        `json:"column"`
	Status   SeatStatus `json:"status"`
	PriceUSD float64    `json:"price_usd"`
}

type BoxStatus struct {
	Code      string `json:"code"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

// InventorySnapshot is the last availability the server reported. It is a
// display hint, not a reservation.
type InventorySnapshot struct {
	General   Zone              `json:"general"`
	Boxes     []BoxStatus       `json:"boxes"`
	Numbered  []Zone            `json:"numbered_zones"`
	Seats     map[string][]Seat `json:"seats"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ExchangeRate struct {
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}
