// Package payment turns a validated purchase form into exactly one outbound
// payment request and drives the mobile-payment confirm/cancel exchange.
package payment

import (
	"taquilla-cli/model"
	"taquilla-cli/selection"
)

type Method string

const (
	MethodPagoMovil Method = "pago_movil"
	MethodTransfer  Method = "transferencia"
	MethodZelle     Method = "zelle"
	MethodPayPal    Method = "paypal"
)

var Methods = []Method{MethodPagoMovil, MethodTransfer, MethodZelle, MethodPayPal}

func (m Method) Valid() bool {
	switch m {
	case MethodPagoMovil, MethodTransfer, MethodZelle, MethodPayPal:
		return true
	}
	return false
}

// Instant reports whether the method settles through the P2C rail rather than
// manual review.
func (m Method) Instant() bool {
	return m == MethodPagoMovil
}

func (m Method) Label() string {
	switch m {
	case MethodPagoMovil:
		return "Pago Móvil"
	case MethodTransfer:
		return "Transferencia bancaria"
	case MethodZelle:
		return "Zelle"
	case MethodPayPal:
		return "PayPal"
	default:
		return string(m)
	}
}

type Buyer struct {
	Name           string
	Identification string
	Email          string
	Phone          string
}

// Details holds the method-specific fields. Only those relevant to the chosen
// method are sent.
type Details struct {
	ClientPhone    string
	ClientBankCode string
	BankCode       string
	Reference      string
	PayerEmail     string
	Proof          *model.ProofFile
}

// PurchaseForm is the buyer's data plus the selection snapshot taken when the
// wizard entered the payment step.
type PurchaseForm struct {
	Buyer   Buyer
	Method  Method
	Details Details
	Ticket  selection.Snapshot
}

func (f PurchaseForm) ticketFields() model.TicketFields {
	t := f.Ticket
	return model.TicketFields{
		BuyerName:           f.Buyer.Name,
		BuyerEmail:          f.Buyer.Email,
		BuyerPhone:          f.Buyer.Phone,
		BuyerIdentification: f.Buyer.Identification,
		TicketType:          t.TicketType,
		ZoneId:              t.ZoneId,
		ZoneName:            t.ZoneName,
		SeatIds:             append([]string(nil), t.SeatIds...),
		Quantity:            t.Quantity,
		UnitPrice:           t.UnitPrice,
		TotalPrice:          t.TotalPrice,
		IsBoxPurchase:       t.IsBoxPurchase,
		BoxFullPurchase:     t.BoxFullPurchase,
		BoxCode:             t.BoxCode,
		BoxSeatsQuantity:    t.BoxSeatsQuantity,
	}
}
