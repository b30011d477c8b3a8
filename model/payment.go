package model

import "encoding/json"

// TokenInfo is what the token-info endpoint reveals about an iframe access
// token. The payment-method allow-list and usage ceiling are enforced
// server-side; the client only uses them to hide unusable options.
type TokenInfo struct {
	Valid                 bool     `json:"valid"`
	Message               string   `json:"message,omitempty"`
	AllowedOrigins        []string `json:"allowed_origins"`
	RequireCaptcha        bool     `json:"require_captcha"`
	CaptchaSiteKey        string   `json:"captcha_site_key,omitempty"`
	AllowedPaymentMethods []string `json:"allowed_payment_methods,omitempty"`
	MaxUses               int      `json:"max_uses,omitempty"`
	Uses                  int      `json:"uses,omitempty"`
}

// TicketFields are the ticket descriptors every payment payload carries so the
// server can price the purchase on its own.
type TicketFields struct {
	BuyerName           string   `json:"buyer_name"`
	BuyerEmail          string   `json:"buyer_email"`
	BuyerPhone          string   `json:"buyer_phone"`
	BuyerIdentification string   `json:"buyer_identification"`
	TicketType          string   `json:"ticket_type"`
	ZoneId              string   `json:"zone_id"`
	ZoneName            string   `json:"zone_name"`
	SeatIds             []string `json:"seat_ids"`
	Quantity            int      `json:"quantity"`
	UnitPrice           float64  `json:"unit_price"`
	TotalPrice          float64  `json:"total_price"`
	IsBoxPurchase       bool     `json:"is_box_purchase"`
	BoxFullPurchase     bool     `json:"box_full_purchase"`
	BoxCode             string   `json:"box_code,omitempty"`
	BoxSeatsQuantity    int      `json:"box_seats_quantity,omitempty"`
}

type P2CInitiateRequest struct {
	TicketFields
	PaymentMethod  string `json:"payment_method"`
	ClientPhone    string `json:"client_phone"`
	ClientBankCode string `json:"client_bank_code"`
	CaptchaToken   string `json:"captcha_token,omitempty"`
}

// P2CInitiation carries the transaction id and the commerce routing data the
// buyer needs to send the mobile payment.
type P2CInitiation struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message,omitempty"`
	TransactionId    string  `json:"transactionId"`
	AmountUSD        float64 `json:"amountUSD"`
	AmountBs         string  `json:"amountBs"`
	ExchangeRate     float64 `json:"exchangeRate"`
	CommerceBankCode string  `json:"commerceBankCode"`
	CommerceBankName string  `json:"commerceBankName,omitempty"`
	CommercePhone    string  `json:"commercePhone"`
	CommerceRif      string  `json:"commerceRif"`
	CommerceName     string  `json:"commerceName,omitempty"`
}

type P2CConfirmRequest struct {
	TransactionId  string `json:"transactionId"`
	Reference      string `json:"reference"`
	Identification string `json:"identification"`
}

type Ticket struct {
	Id           string  `json:"id,omitempty"`
	TicketNumber string  `json:"ticket_number"`
	Status       string  `json:"status"`
	ZoneName     string  `json:"zone_name,omitempty"`
	SeatId       string  `json:"seat_id,omitempty"`
	PriceUSD     float64 `json:"price_usd,omitempty"`
}

// P2CConfirmation is the finalized purchase. Voucher is bank metadata passed
// through untouched.
type P2CConfirmation struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Ticket  Ticket          `json:"ticket"`
	Tickets []Ticket        `json:"tickets,omitempty"`
	Voucher json.RawMessage `json:"voucher,omitempty"`
}

type P2CCancelRequest struct {
	TransactionId string `json:"transactionId"`
}

// ManualPaymentRequest is sent as multipart form fields plus an optional proof
// file.
type ManualPaymentRequest struct {
	TicketFields
	PaymentMethod   string
	BankCode        string
	ReferenceNumber string
	PayerEmail      string
	CaptchaToken    string
	Proof           *ProofFile
}

type ProofFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type ManualPaymentResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message,omitempty"`
	TransactionId string   `json:"transactionId,omitempty"`
	Ticket        Ticket   `json:"ticket"`
	Tickets       []Ticket `json:"tickets,omitempty"`
}

// APIMessage is the minimal envelope used to read error messages out of
// failed responses.
type APIMessage struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
