package payment

import (
	"errors"
	"fmt"

	"taquilla-cli/model"
)

var (
	ErrUnknownMethod = errors.New("unknown payment method")
	ErrEmptyTicket   = errors.New("no ticket selection")
)

// Request is one of P2CRequest or ManualRequest.
type Request interface {
	PaymentMethod() Method
	isRequest()
}

// P2CRequest initiates an instant mobile payment.
type P2CRequest struct {
	Fields         model.TicketFields
	ClientPhone    string
	ClientBankCode string
	CaptchaToken   string
}

func (P2CRequest) PaymentMethod() Method { return MethodPagoMovil }
func (P2CRequest) isRequest()            {}

// ManualRequest is a transfer, Zelle or PayPal payment reviewed by staff.
type ManualRequest struct {
	Subtype      Method
	Fields       model.TicketFields
	BankCode     string
	Reference    string
	PayerEmail   string
	Proof        *model.ProofFile
	CaptchaToken string
}

func (r ManualRequest) PaymentMethod() Method { return r.Subtype }
func (ManualRequest) isRequest()              {}

// BuildRequest picks the request shape for the form's method.
func BuildRequest(form PurchaseForm, captchaToken string) (Request, error) {
	if form.Ticket.Empty() {
		return nil, ErrEmptyTicket
	}
	fields := form.ticketFields()
	d := form.Details
	switch form.Method {
	case MethodPagoMovil:
		return P2CRequest{
			Fields:         fields,
			ClientPhone:    d.ClientPhone,
			ClientBankCode: d.ClientBankCode,
			CaptchaToken:   captchaToken,
		}, nil
	case MethodTransfer, MethodZelle:
		return ManualRequest{
			Subtype:      form.Method,
			Fields:       fields,
			BankCode:     d.BankCode,
			Reference:    d.Reference,
			Proof:        d.Proof,
			CaptchaToken: captchaToken,
		}, nil
	case MethodPayPal:
		return ManualRequest{
			Subtype:      form.Method,
			Fields:       fields,
			PayerEmail:   d.PayerEmail,
			CaptchaToken: captchaToken,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, form.Method)
	}
}

func (r P2CRequest) wire() model.P2CInitiateRequest {
	return model.P2CInitiateRequest{
		TicketFields:   r.Fields,
		PaymentMethod:  string(MethodPagoMovil),
		ClientPhone:    r.ClientPhone,
		ClientBankCode: r.ClientBankCode,
		CaptchaToken:   r.CaptchaToken,
	}
}

func (r ManualRequest) wire() model.ManualPaymentRequest {
	return model.ManualPaymentRequest{
		TicketFields:    r.Fields,
		PaymentMethod:   string(r.Subtype),
		BankCode:        r.BankCode,
		ReferenceNumber: r.Reference,
		PayerEmail:      r.PayerEmail,
		CaptchaToken:    r.CaptchaToken,
		Proof:           r.Proof,
	}
}
