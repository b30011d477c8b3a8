package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"taquilla-cli/access"
	"taquilla-cli/clock"
	"taquilla-cli/frame"
	"taquilla-cli/inventory"
	"taquilla-cli/model"
	"taquilla-cli/payment"
	"taquilla-cli/pricing"
	"taquilla-cli/selection"
)

type fakePayments struct {
	submitted []payment.Request
	confirmed []string
	voided    []string

	outcome      payment.Outcome
	submitErr    error
	confirmation model.P2CConfirmation
	confirmErr   error
}

func (f *fakePayments) Submit(_ context.Context, req payment.Request) (payment.Outcome, error) {
	f.submitted = append(f.submitted, req)
	return f.outcome, f.submitErr
}

func (f *fakePayments) Confirm(_ context.Context, txID, reference, _ string) (model.P2CConfirmation, error) {
	f.confirmed = append(f.confirmed, txID+":"+reference)
	return f.confirmation, f.confirmErr
}

func (f *fakePayments) Void(_ context.Context, txID string) error {
	f.voided = append(f.voided, txID)
	return nil
}

type recorder struct {
	messages []frame.Message
}

func (r *recorder) Notify(m frame.Message) {
	r.messages = append(r.messages, m)
}

func (r *recorder) types() []frame.MessageType {
	out := make([]frame.MessageType, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m.Type)
	}
	return out
}

type fixture struct {
	m    *Machine
	pay  *fakePayments
	rec  *recorder
	clk  *clock.Manual
	sel  *selection.Controller
	gate *access.Gate
}

func newFixture(t *testing.T, info model.TokenInfo, opts ...Option) *fixture {
	t.Helper()
	inv := inventory.NewCatalog(inventory.GeneralConfig{PriceUSD: 35, Capacity: 500}, pricing.DefaultSchedule)
	sel := selection.New(inv)
	rec := &recorder{}
	gate := access.NewGate("tok-1", rec)
	info.Valid = true
	if err := gate.Resolve(info, nil); err != nil {
		t.Fatalf("resolve gate: %v", err)
	}
	clk := clock.NewManual(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	pay := &fakePayments{}
	opts = append([]Option{WithClock(clk), WithNotifier(rec)}, opts...)
	return &fixture{
		m:    New(sel, gate, pay, opts...),
		pay:  pay,
		rec:  rec,
		clk:  clk,
		sel:  sel,
		gate: gate,
	}
}

func validBuyer() payment.Buyer {
	return payment.Buyer{
		Name:           "Ana Pérez",
		Identification: "V-12345678",
		Email:          "ana@example.com",
		Phone:          "0414-111-2233",
	}
}

// toPayment walks the fixture to the payment step with box B5 bought whole.
func (f *fixture) toPayment(t *testing.T) {
	t.Helper()
	f.m.SetBuyer(validBuyer())
	if err := f.m.Next(); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if err := f.sel.SelectBox("B5"); err != nil {
		t.Fatalf("select box: %v", err)
	}
	if err := f.sel.SetFullBox(true); err != nil {
		t.Fatalf("full box: %v", err)
	}
	if err := f.m.Next(); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if f.m.Step() != StepPayment {
		t.Fatalf("expected payment step, got %v", f.m.Step())
	}
}

func (f *fixture) usePagoMovil() {
	f.m.SetMethod(payment.MethodPagoMovil)
	f.m.SetDetails(payment.Details{ClientPhone: "0414-123-4567", ClientBankCode: "0102"})
}

func TestNext_EmptyEmailBlocksPersonalData(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	b := validBuyer()
	b.Email = ""
	f.m.SetBuyer(b)

	err := f.m.Next()
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if !fe.Has("buyer_email") {
		t.Fatalf("expected buyer_email error, got %v", fe)
	}
	if f.m.Step() != StepPersonalData {
		t.Fatalf("expected to stay on step 1, got %v", f.m.Step())
	}
	if !f.m.Errors().Has("buyer_email") {
		t.Fatalf("expected errors kept for display")
	}
}

func TestNext_ZoneRequired(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.m.SetBuyer(validBuyer())
	if err := f.m.Next(); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	err := f.m.Next()
	var fe FieldErrors
	if !errors.As(err, &fe) || !fe.Has("zone") {
		t.Fatalf("expected zone error, got %v", err)
	}
	if f.m.Step() != StepZoneSelection {
		t.Fatalf("expected step 2, got %v", f.m.Step())
	}
}

func TestPrevious(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	if err := f.m.Previous(); err != nil {
		t.Fatalf("previous on step 1: %v", err)
	}
	if f.m.Step() != StepPersonalData {
		t.Fatalf("expected step 1, got %v", f.m.Step())
	}

	f.toPayment(t)
	if err := f.m.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if f.m.Step() != StepZoneSelection {
		t.Fatalf("expected step 2, got %v", f.m.Step())
	}
	if !f.m.Ticket().Empty() {
		t.Fatalf("expected snapshot dropped, got %+v", f.m.Ticket())
	}
	if f.m.Buyer() != validBuyer() {
		t.Fatalf("expected buyer kept, got %+v", f.m.Buyer())
	}
}

func TestSnapshotIsolatedFromLaterSelection(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.toPayment(t)
	before := f.m.Ticket()

	f.sel.SelectPreferencial()
	f.sel.Increment()

	after := f.m.Ticket()
	if after.ZoneId != before.ZoneId || after.TotalPrice != 750 || !after.BoxFullPurchase {
		t.Fatalf("expected snapshot unchanged, got %+v", after)
	}
}

func TestSubmit_PagoMovilFullBox(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.pay.outcome = payment.Outcome{
		Method:        payment.MethodPagoMovil,
		TransactionId: "tx-1",
		Initiation:    &model.P2CInitiation{Success: true, TransactionId: "tx-1", AmountUSD: 750, AmountBs: "27375.00"},
	}
	f.toPayment(t)
	f.usePagoMovil()

	if err := f.m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(f.pay.submitted) != 1 {
		t.Fatalf("expected 1 request, got %d", len(f.pay.submitted))
	}
	req, ok := f.pay.submitted[0].(payment.P2CRequest)
	if !ok {
		t.Fatalf("expected P2CRequest, got %T", f.pay.submitted[0])
	}
	if !req.Fields.IsBoxPurchase || !req.Fields.BoxFullPurchase {
		t.Fatalf("expected full box purchase flags, got %+v", req.Fields)
	}
	if req.Fields.BoxCode != "B5" || req.Fields.BoxSeatsQuantity != 10 || req.Fields.TotalPrice != 750 {
		t.Fatalf("unexpected box fields: %+v", req.Fields)
	}
	if req.ClientPhone != "04141234567" || req.Fields.BuyerPhone != "04141112233" || req.Fields.BuyerIdentification != "V-12345678" {
		t.Fatalf("expected normalized contact fields, got %q %q %q", req.ClientPhone, req.Fields.BuyerPhone, req.Fields.BuyerIdentification)
	}
	if f.m.Step() != StepP2CConfirm {
		t.Fatalf("expected P2C confirm step, got %v", f.m.Step())
	}
	if tx := f.m.Transaction(); tx == nil || tx.Id != "tx-1" {
		t.Fatalf("expected transaction tx-1, got %+v", tx)
	}
	if got := f.rec.types(); len(got) != 1 || got[0] != frame.PaymentInitiated {
		t.Fatalf("expected PAYMENT_INITIATED, got %v", got)
	}
}

func TestCancel_ClearsTransaction(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.pay.outcome = payment.Outcome{
		Method:     payment.MethodPagoMovil,
		Initiation: &model.P2CInitiation{Success: true, TransactionId: "tx-1"},
	}
	f.toPayment(t)
	f.usePagoMovil()
	if err := f.m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.m.Previous(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected previous refused in confirm step, got %v", err)
	}
	txID, err := f.m.Cancel()
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if txID != "" {
		t.Fatalf("expected no void without the option, got %q", txID)
	}
	if f.m.Step() != StepPayment {
		t.Fatalf("expected payment step, got %v", f.m.Step())
	}
	if f.m.Transaction() != nil || len(f.m.Voucher()) != 0 {
		t.Fatalf("expected transaction and voucher cleared")
	}
	if f.m.Buyer() != validBuyer() || f.m.Ticket().BoxCode != "B5" {
		t.Fatalf("expected personal and zone data kept")
	}
}

func TestCancel_VoidWhenEnabled(t *testing.T) {
	f := newFixture(t, model.TokenInfo{}, WithVoidOnCancel(true))
	f.pay.outcome = payment.Outcome{
		Method:     payment.MethodPagoMovil,
		Initiation: &model.P2CInitiation{Success: true, TransactionId: "tx-9"},
	}
	f.toPayment(t)
	f.usePagoMovil()
	if err := f.m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.m.CancelAndVoid(context.Background()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(f.pay.voided) != 1 || f.pay.voided[0] != "tx-9" {
		t.Fatalf("expected tx-9 voided, got %v", f.pay.voided)
	}
}

func TestConfirm_FailureKeepsReference(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.pay.outcome = payment.Outcome{
		Method:     payment.MethodPagoMovil,
		Initiation: &model.P2CInitiation{Success: true, TransactionId: "tx-1"},
	}
	f.pay.confirmErr = &payment.Error{Op: "confirm p2c", Kind: payment.KindRejected, Message: "Referencia no encontrada"}
	f.toPayment(t)
	f.usePagoMovil()
	if err := f.m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.m.Confirm(context.Background(), "123456"); err == nil {
		t.Fatalf("expected confirm error")
	}
	if f.m.Reference() != "123456" {
		t.Fatalf("expected reference kept, got %q", f.m.Reference())
	}
	if f.m.Message() != "Referencia no encontrada" {
		t.Fatalf("expected server message, got %q", f.m.Message())
	}
	if f.m.Step() != StepP2CConfirm || f.m.Completed() {
		t.Fatalf("expected to stay in confirm step")
	}
	last := f.rec.messages[len(f.rec.messages)-1]
	if last.Type != frame.PaymentError || last.Message != "Referencia no encontrada" {
		t.Fatalf("expected PAYMENT_ERROR, got %+v", last)
	}
}

func TestConfirm_SuccessThenReset(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.pay.outcome = payment.Outcome{
		Method:     payment.MethodPagoMovil,
		Initiation: &model.P2CInitiation{Success: true, TransactionId: "tx-1"},
	}
	f.pay.confirmation = model.P2CConfirmation{
		Success: true,
		Tickets: []model.Ticket{{TicketNumber: "T-001", Status: "confirmado"}},
		Voucher: json.RawMessage(`{"auth":"A1"}`),
	}
	f.toPayment(t)
	f.usePagoMovil()
	if err := f.m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.m.Confirm(context.Background(), " 123456 "); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if f.pay.confirmed[0] != "tx-1:123456" {
		t.Fatalf("unexpected confirm call %v", f.pay.confirmed)
	}
	c := f.m.Completion()
	if c == nil || c.Status != StatusConfirmed {
		t.Fatalf("expected confirmed completion, got %+v", c)
	}
	if string(f.m.Voucher()) != `{"auth":"A1"}` {
		t.Fatalf("expected voucher passed through, got %s", f.m.Voucher())
	}
	last := f.rec.messages[len(f.rec.messages)-1]
	if last.Type != frame.PaymentCompleted || len(last.Tickets) != 1 || last.Tickets[0].TicketNumber != "T-001" {
		t.Fatalf("expected PAYMENT_COMPLETED with ticket, got %+v", last)
	}

	f.clk.Advance(2 * time.Second)
	if f.m.ResetIfDue(f.clk.Now()) {
		t.Fatalf("expected no reset before the delay")
	}
	f.clk.Advance(time.Second)
	if !f.m.ResetIfDue(f.clk.Now()) {
		t.Fatalf("expected reset after 3s")
	}
	if f.m.Step() != StepPersonalData || f.m.Completed() || f.m.Buyer() != (payment.Buyer{}) {
		t.Fatalf("expected a clean wizard, got step %v", f.m.Step())
	}
	if f.sel.Selection().ZoneType != selection.ZoneNone {
		t.Fatalf("expected selection cleared")
	}
}

func TestSubmit_TransferNeedsProof(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.toPayment(t)
	f.m.SetMethod(payment.MethodTransfer)
	f.m.SetDetails(payment.Details{BankCode: "0105", Reference: "998877"})

	err := f.m.Submit(context.Background())
	var fe FieldErrors
	if !errors.As(err, &fe) || !fe.Has("proof_file") {
		t.Fatalf("expected proof_file error, got %v", err)
	}
	if len(f.pay.submitted) != 0 {
		t.Fatalf("expected no network call, got %d", len(f.pay.submitted))
	}
	if f.m.Busy() {
		t.Fatalf("expected not busy after validation failure")
	}
}

func TestSubmit_ManualIsPending(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.pay.outcome = payment.Outcome{
		Method:        payment.MethodZelle,
		TransactionId: "tx-7",
		Manual:        &model.ManualPaymentResult{Success: true, TransactionId: "tx-7", Ticket: model.Ticket{TicketNumber: "T-77", Status: "pendiente"}},
	}
	f.toPayment(t)
	f.m.SetMethod(payment.MethodZelle)
	f.m.SetDetails(payment.Details{
		Reference: "ZL12345",
		Proof:     &model.ProofFile{Name: "pago.png", ContentType: "image/png", Data: []byte("png")},
	})
	if err := f.m.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c := f.m.Completion()
	if c == nil || c.Status != StatusPending || c.TransactionId != "tx-7" {
		t.Fatalf("expected pending completion, got %+v", c)
	}
	last := f.rec.messages[len(f.rec.messages)-1]
	if last.Type != frame.PaymentSubmitted || last.TicketData == nil || last.TicketData.TicketNumber != "T-77" {
		t.Fatalf("expected PAYMENT_SUBMITTED with ticket data, got %+v", last)
	}
	if last.TicketData.TotalUSD != 750 || last.TicketData.BuyerEmail != "ana@example.com" {
		t.Fatalf("unexpected ticket data %+v", last.TicketData)
	}

	f.clk.Advance(DefaultResetDelay)
	if !f.m.ResetIfDue(f.clk.Now()) {
		t.Fatalf("expected manual success to reset too")
	}
}

func TestBeginSubmit_BlocksDoubleSubmission(t *testing.T) {
	f := newFixture(t, model.TokenInfo{})
	f.toPayment(t)
	f.usePagoMovil()

	if _, err := f.m.BeginSubmit(); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.m.BeginSubmit(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := f.m.Previous(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected navigation blocked while busy, got %v", err)
	}
	err := f.m.FinishSubmit(payment.Outcome{}, &payment.Error{Op: "initiate p2c", Kind: payment.KindTransport})
	if err == nil {
		t.Fatalf("expected error passed through")
	}
	if f.m.Busy() {
		t.Fatalf("expected busy cleared")
	}
	if f.m.Message() != payment.GenericErrorMessage {
		t.Fatalf("expected generic message, got %q", f.m.Message())
	}
}

func TestBeginSubmit_TokenRules(t *testing.T) {
	f := newFixture(t, model.TokenInfo{RequireCaptcha: true, AllowedPaymentMethods: []string{"zelle"}})
	f.toPayment(t)
	f.usePagoMovil()

	_, err := f.m.BeginSubmit()
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if !fe.Has("captcha") || !fe.Has("payment_method") {
		t.Fatalf("expected captcha and payment_method errors, got %v", fe)
	}

	f.gate.Captcha().Solve("cap-1")
	f.m.SetMethod(payment.MethodZelle)
	f.m.SetDetails(payment.Details{
		Reference: "ZL12345",
		Proof:     &model.ProofFile{Name: "p.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	if _, err := f.m.BeginSubmit(); err != nil {
		t.Fatalf("expected submit allowed, got %v", err)
	}
}

func TestBeginSubmit_InvalidTokenBlocks(t *testing.T) {
	inv := inventory.NewCatalog(inventory.GeneralConfig{PriceUSD: 35, Capacity: 500}, pricing.DefaultSchedule)
	sel := selection.New(inv)
	gate := access.NewGate("", nil)
	_ = gate.Resolve(model.TokenInfo{}, access.ErrTokenMissing)
	m := New(sel, gate, &fakePayments{})
	m.SetBuyer(validBuyer())
	_ = m.Next()
	sel.SelectPreferencial()
	_ = m.Next()
	m.SetMethod(payment.MethodPayPal)
	m.SetDetails(payment.Details{PayerEmail: "ana@example.com"})

	if _, err := m.BeginSubmit(); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}
