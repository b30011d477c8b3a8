// Package wizard is the purchase step machine: personal data, zone selection,
// payment and the mobile-payment confirmation sub-step.
//
// A Machine is not safe for concurrent use. Network work can be run outside
// the owner's goroutine with the Begin/Finish pairs, which only touch state
// when called from the owner.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"taquilla-cli/access"
	"taquilla-cli/clock"
	"taquilla-cli/frame"
	"taquilla-cli/model"
	"taquilla-cli/payment"
	"taquilla-cli/selection"
)

const DefaultResetDelay = 3 * time.Second

var (
	ErrBusy              = errors.New("a request is already in progress")
	ErrInvalidTransition = errors.New("invalid step transition")
	ErrBlocked           = errors.New("purchase blocked by access token")
	ErrCompleted         = errors.New("purchase already completed")
)

// Payments is the part of the payment orchestrator the wizard drives.
type Payments interface {
	Submit(ctx context.Context, req payment.Request) (payment.Outcome, error)
	Confirm(ctx context.Context, transactionID, reference, identification string) (model.P2CConfirmation, error)
	Void(ctx context.Context, transactionID string) error
}

// Transaction is an initiated mobile payment awaiting the buyer's reference.
type Transaction struct {
	Id               string
	AmountUSD        float64
	AmountBs         string
	ExchangeRate     float64
	CommerceBankCode string
	CommerceBankName string
	CommercePhone    string
	CommerceRif      string
	CommerceName     string
}

// Completion is the terminal success shown before the wizard resets.
type Completion struct {
	Status        string
	Method        payment.Method
	TransactionId string
	Tickets       []model.Ticket
	Message       string
	At            time.Time
}

// ConfirmCall carries the arguments of a pending confirmation.
type ConfirmCall struct {
	TransactionId  string
	Reference      string
	Identification string
}

type Option func(*Machine)

func WithResetDelay(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.resetDelay = d
		}
	}
}

// WithVoidOnCancel makes Cancel report the abandoned transaction so it can be
// released on the server.
func WithVoidOnCancel(v bool) Option {
	return func(m *Machine) {
		m.voidOnCancel = v
	}
}

func WithClock(c clock.Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithNotifier(n frame.Notifier) Option {
	return func(m *Machine) {
		if n != nil {
			m.notifier = n
		}
	}
}

type Machine struct {
	sel      *selection.Controller
	gate     *access.Gate
	payments Payments
	notifier frame.Notifier
	clock    clock.Clock

	resetDelay   time.Duration
	voidOnCancel bool

	step    Step
	buyer   payment.Buyer
	method  payment.Method
	details payment.Details
	ticket  selection.Snapshot

	busy        bool
	errors      FieldErrors
	message     string
	transaction *Transaction
	reference   string
	voucher     json.RawMessage
	completion  *Completion
}

func New(sel *selection.Controller, gate *access.Gate, payments Payments, opts ...Option) *Machine {
	m := &Machine{
		sel:        sel,
		gate:       gate,
		payments:   payments,
		notifier:   frame.Discard,
		clock:      clock.NewSystem(),
		resetDelay: DefaultResetDelay,
		step:       StepPersonalData,
	}
	for _, opt := range opts {
		opt(m)
	}
	if gate != nil {
		gate.Captcha().Subscribe(func(token string) {
			if token != "" {
				delete(m.errors, "captcha")
			}
		})
	}
	return m
}

func (m *Machine) Step() Step                       { return m.step }
func (m *Machine) Busy() bool                       { return m.busy }
func (m *Machine) Message() string                  { return m.message }
func (m *Machine) Buyer() payment.Buyer             { return m.buyer }
func (m *Machine) Method() payment.Method           { return m.method }
func (m *Machine) Details() payment.Details         { return m.details }
func (m *Machine) Ticket() selection.Snapshot       { return m.ticket }
func (m *Machine) Reference() string                { return m.reference }
func (m *Machine) Selection() *selection.Controller { return m.sel }
func (m *Machine) Gate() *access.Gate               { return m.gate }
func (m *Machine) ResetDelay() time.Duration        { return m.resetDelay }

func (m *Machine) Errors() FieldErrors {
	out := make(FieldErrors, len(m.errors))
	for k, v := range m.errors {
		out[k] = v
	}
	return out
}

func (m *Machine) Transaction() *Transaction {
	if m.transaction == nil {
		return nil
	}
	t := *m.transaction
	return &t
}

func (m *Machine) Voucher() json.RawMessage {
	return append(json.RawMessage(nil), m.voucher...)
}

func (m *Machine) Completion() *Completion {
	if m.completion == nil {
		return nil
	}
	c := *m.completion
	c.Tickets = append([]model.Ticket(nil), c.Tickets...)
	return &c
}

func (m *Machine) Completed() bool {
	return m.completion != nil
}

// Form is the purchase form as it would be submitted now.
func (m *Machine) Form() payment.PurchaseForm {
	return payment.PurchaseForm{
		Buyer:   m.buyer,
		Method:  m.method,
		Details: m.details,
		Ticket:  m.ticket,
	}
}

// normalizedForm is the form as sent: trimmed, with phone numbers reduced to
// digits and the identification upper-cased without separators.
func (m *Machine) normalizedForm() payment.PurchaseForm {
	f := m.Form()
	f.Buyer = payment.Buyer{
		Name:           strings.TrimSpace(f.Buyer.Name),
		Identification: strings.ToUpper(normalizeIdentification(f.Buyer.Identification)),
		Email:          strings.TrimSpace(f.Buyer.Email),
		Phone:          digitsOnly(f.Buyer.Phone),
	}
	f.Details.ClientPhone = digitsOnly(f.Details.ClientPhone)
	f.Details.ClientBankCode = strings.TrimSpace(f.Details.ClientBankCode)
	f.Details.BankCode = strings.TrimSpace(f.Details.BankCode)
	f.Details.Reference = strings.TrimSpace(f.Details.Reference)
	f.Details.PayerEmail = strings.TrimSpace(f.Details.PayerEmail)
	return f
}

func (m *Machine) SetBuyer(b payment.Buyer) {
	m.buyer = b
}

func (m *Machine) SetMethod(method payment.Method) {
	m.method = method
}

func (m *Machine) SetDetails(d payment.Details) {
	m.details = d
}

func (m *Machine) ClearMessage() {
	m.message = ""
}

// Next validates the current step and advances. Validation failures are
// returned as FieldErrors and also kept for display.
func (m *Machine) Next() error {
	if m.busy {
		return ErrBusy
	}
	switch m.step {
	case StepPersonalData:
		if err := m.check(ValidatePersonal(m.buyer)); err != nil {
			return err
		}
		m.step = StepZoneSelection
	case StepZoneSelection:
		if err := m.check(ValidateSelection(m.sel.Selection())); err != nil {
			return err
		}
		m.ticket = m.sel.Snapshot()
		m.step = StepPayment
	default:
		return ErrInvalidTransition
	}
	m.message = ""
	return nil
}

func (m *Machine) check(errs FieldErrors) error {
	if len(errs) > 0 {
		m.errors = errs
		return errs
	}
	m.errors = nil
	return nil
}

// Previous goes back one step. The confirmation sub-step is left with Cancel.
func (m *Machine) Previous() error {
	if m.busy {
		return ErrBusy
	}
	switch m.step {
	case StepPersonalData:
		return nil
	case StepZoneSelection:
		m.step = StepPersonalData
	case StepPayment:
		if m.completion != nil {
			return ErrCompleted
		}
		m.ticket = selection.Snapshot{}
		m.step = StepZoneSelection
	default:
		return ErrInvalidTransition
	}
	m.errors = nil
	m.message = ""
	return nil
}

// BeginSubmit validates the payment step, marks the machine busy and returns
// the request to send. Every BeginSubmit that succeeds must be followed by
// FinishSubmit.
func (m *Machine) BeginSubmit() (payment.Request, error) {
	if m.busy {
		return nil, ErrBusy
	}
	if m.step != StepPayment {
		return nil, ErrInvalidTransition
	}
	if m.completion != nil {
		return nil, ErrCompleted
	}
	if m.gate != nil && !m.gate.Allowed() {
		return nil, ErrBlocked
	}
	if err := m.check(ValidatePayment(m.method, m.details, m.gate)); err != nil {
		return nil, err
	}
	var captchaToken string
	if m.gate != nil {
		captchaToken = m.gate.Captcha().Token()
	}
	req, err := payment.BuildRequest(m.normalizedForm(), captchaToken)
	if err != nil {
		return nil, err
	}
	m.busy = true
	m.message = ""
	return req, nil
}

// FinishSubmit records the result of a submission started with BeginSubmit.
func (m *Machine) FinishSubmit(out payment.Outcome, err error) error {
	m.busy = false
	if m.gate != nil {
		// captcha tokens are single use
		m.gate.Captcha().Expire()
	}
	if err != nil {
		m.fail(err)
		return err
	}

	if out.Initiation != nil {
		in := out.Initiation
		m.transaction = &Transaction{
			Id:               in.TransactionId,
			AmountUSD:        in.AmountUSD,
			AmountBs:         in.AmountBs,
			ExchangeRate:     in.ExchangeRate,
			CommerceBankCode: in.CommerceBankCode,
			CommerceBankName: in.CommerceBankName,
			CommercePhone:    in.CommercePhone,
			CommerceRif:      in.CommerceRif,
			CommerceName:     in.CommerceName,
		}
		m.reference = ""
		m.voucher = nil
		m.step = StepP2CConfirm
		m.notifier.Notify(frame.NewPaymentInitiated(in.TransactionId))
		return nil
	}

	var tickets []model.Ticket
	var msg string
	if out.Manual != nil {
		tickets = ticketsOf(out.Manual.Ticket, out.Manual.Tickets)
		msg = out.Manual.Message
	}
	m.complete(StatusPending, out.Method, out.TransactionId, tickets, msg)
	data := m.ticketData(tickets)
	m.notifier.Notify(frame.NewPaymentSubmitted(out.TransactionId, data))
	return nil
}

// Submit runs BeginSubmit, the payment call and FinishSubmit in the caller's
// goroutine.
func (m *Machine) Submit(ctx context.Context) error {
	req, err := m.BeginSubmit()
	if err != nil {
		return err
	}
	out, err := m.payments.Submit(ctx, req)
	return m.FinishSubmit(out, err)
}

// BeginConfirm validates the bank reference for the pending transaction. The
// reference is kept even if confirmation later fails.
func (m *Machine) BeginConfirm(reference string) (ConfirmCall, error) {
	if m.busy {
		return ConfirmCall{}, ErrBusy
	}
	if m.step != StepP2CConfirm || m.transaction == nil {
		return ConfirmCall{}, ErrInvalidTransition
	}
	if m.completion != nil {
		return ConfirmCall{}, ErrCompleted
	}
	reference = strings.TrimSpace(reference)
	m.reference = reference
	if err := m.check(ValidateReference(reference)); err != nil {
		return ConfirmCall{}, err
	}
	m.busy = true
	m.message = ""
	return ConfirmCall{
		TransactionId:  m.transaction.Id,
		Reference:      reference,
		Identification: strings.ToUpper(normalizeIdentification(m.buyer.Identification)),
	}, nil
}

func (m *Machine) FinishConfirm(res model.P2CConfirmation, err error) error {
	m.busy = false
	if err != nil {
		m.fail(err)
		return err
	}
	txID := m.transaction.Id
	tickets := ticketsOf(res.Ticket, res.Tickets)
	m.voucher = append(json.RawMessage(nil), res.Voucher...)
	m.complete(StatusConfirmed, payment.MethodPagoMovil, txID, tickets, res.Message)

	frameTickets := make([]frame.Ticket, 0, len(tickets))
	for _, t := range tickets {
		frameTickets = append(frameTickets, frame.Ticket{TicketNumber: t.TicketNumber, Status: t.Status})
	}
	m.notifier.Notify(frame.NewPaymentCompleted(txID, frameTickets, m.ticketData(tickets)))
	return nil
}

func (m *Machine) Confirm(ctx context.Context, reference string) error {
	call, err := m.BeginConfirm(reference)
	if err != nil {
		return err
	}
	res, err := m.payments.Confirm(ctx, call.TransactionId, call.Reference, call.Identification)
	return m.FinishConfirm(res, err)
}

// Cancel abandons the pending mobile payment and returns to the payment step
// with personal and zone data intact. When voiding is enabled the abandoned
// transaction id is returned for the caller to release.
func (m *Machine) Cancel() (string, error) {
	if m.busy {
		return "", ErrBusy
	}
	if m.step != StepP2CConfirm || m.completion != nil {
		return "", ErrInvalidTransition
	}
	var txID string
	if m.transaction != nil {
		txID = m.transaction.Id
	}
	m.transaction = nil
	m.voucher = nil
	m.reference = ""
	m.errors = nil
	m.message = ""
	m.step = StepPayment
	if !m.voidOnCancel {
		return "", nil
	}
	return txID, nil
}

// Void releases an abandoned transaction. Failures are logged only; the
// buyer has already left the confirmation step.
func (m *Machine) Void(ctx context.Context, transactionID string) {
	if transactionID == "" || m.payments == nil {
		return
	}
	if err := m.payments.Void(ctx, transactionID); err != nil {
		log.Printf("wizard: void %s: %v", transactionID, err)
	}
}

// CancelAndVoid is Cancel followed by a synchronous Void.
func (m *Machine) CancelAndVoid(ctx context.Context) error {
	txID, err := m.Cancel()
	if err != nil {
		return err
	}
	m.Void(ctx, txID)
	return nil
}

// ResetAt is when a completed purchase stops being displayed.
func (m *Machine) ResetAt() time.Time {
	if m.completion == nil {
		return time.Time{}
	}
	return m.completion.At.Add(m.resetDelay)
}

// ResetIfDue resets the wizard once the success display delay has elapsed.
func (m *Machine) ResetIfDue(now time.Time) bool {
	if m.completion == nil || now.Before(m.ResetAt()) {
		return false
	}
	m.Reset()
	return true
}

// Reset returns to the personal data step with an empty form and selection.
func (m *Machine) Reset() {
	m.step = StepPersonalData
	m.buyer = payment.Buyer{}
	m.method = ""
	m.details = payment.Details{}
	m.ticket = selection.Snapshot{}
	m.busy = false
	m.errors = nil
	m.message = ""
	m.transaction = nil
	m.reference = ""
	m.voucher = nil
	m.completion = nil
	if m.sel != nil {
		m.sel.Reset()
	}
	if m.gate != nil {
		m.gate.Captcha().Expire()
	}
}

func (m *Machine) fail(err error) {
	m.message = payment.UserMessage(err)
	m.notifier.Notify(frame.NewPaymentError(m.message))
}

func (m *Machine) complete(status string, method payment.Method, txID string, tickets []model.Ticket, msg string) {
	m.completion = &Completion{
		Status:        status,
		Method:        method,
		TransactionId: txID,
		Tickets:       tickets,
		Message:       msg,
		At:            m.clock.Now(),
	}
	m.errors = nil
	m.message = ""
}

func (m *Machine) ticketData(tickets []model.Ticket) frame.TicketData {
	data := frame.TicketData{
		ZoneId:     m.ticket.ZoneId,
		ZoneName:   m.ticket.ZoneName,
		Quantity:   m.ticket.Quantity,
		TotalUSD:   m.ticket.TotalPrice,
		BuyerEmail: m.buyer.Email,
		SeatIds:    append([]string(nil), m.ticket.SeatIds...),
	}
	if len(tickets) > 0 {
		data.TicketNumber = tickets[0].TicketNumber
		data.Status = tickets[0].Status
	}
	return data
}

func ticketsOf(first model.Ticket, rest []model.Ticket) []model.Ticket {
	if len(rest) > 0 {
		return append([]model.Ticket(nil), rest...)
	}
	if first.TicketNumber == "" && first.Id == "" {
		return nil
	}
	return []model.Ticket{first}
}
