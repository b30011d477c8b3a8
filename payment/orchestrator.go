package payment

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"taquilla-cli/model"
	"taquilla-cli/service"
)

const defaultTimeout = 20 * time.Second

// Gateway is the slice of the platform API the orchestrator needs.
type Gateway interface {
	InitiateP2C(ctx context.Context, auth service.Auth, in model.P2CInitiateRequest) (model.P2CInitiation, error)
	ConfirmP2C(ctx context.Context, auth service.Auth, in model.P2CConfirmRequest) (model.P2CConfirmation, error)
	CancelP2C(ctx context.Context, auth service.Auth, in model.P2CCancelRequest) (model.APIMessage, error)
	SubmitManualPayment(ctx context.Context, auth service.Auth, in model.ManualPaymentRequest) (model.ManualPaymentResult, error)
}

type Orchestrator struct {
	gw      Gateway
	token   string
	timeout time.Duration
	newKey  func() string
}

type Option func(*Orchestrator)

// WithTimeout bounds every payment call so a hung request cannot leave the
// submit control disabled.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithKeyFunc overrides how idempotency keys are generated.
func WithKeyFunc(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newKey = fn
		}
	}
}

// NewOrchestrator creates an orchestrator that authenticates every payment
// call with the iframe token.
func NewOrchestrator(gw Gateway, iframeToken string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gw:      gw,
		token:   iframeToken,
		timeout: defaultTimeout,
		newKey:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Outcome is the result of a successful submission. Exactly one of Initiation
// and Manual is set.
type Outcome struct {
	Method        Method
	TransactionId string
	Initiation    *model.P2CInitiation
	Manual        *model.ManualPaymentResult
}

// Pending reports whether the payment awaits manual review.
func (o Outcome) Pending() bool {
	return o.Manual != nil
}

// Submit sends req to the endpoint for its method.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Outcome, error) {
	switch r := req.(type) {
	case P2CRequest:
		return o.initiate(ctx, r)
	case ManualRequest:
		return o.submitManual(ctx, r)
	default:
		return Outcome{}, fmt.Errorf("%w: %T", ErrUnknownMethod, req)
	}
}

func (o *Orchestrator) initiate(ctx context.Context, r P2CRequest) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := o.gw.InitiateP2C(ctx, o.auth(true), r.wire())
	if err != nil {
		payErr := normalize("initiate p2c", err)
		log.Printf("payment: %v", payErr)
		return Outcome{}, payErr
	}
	if !res.Success || strings.TrimSpace(res.TransactionId) == "" {
		payErr := rejected("initiate p2c", res.Message)
		log.Printf("payment: %v", payErr)
		return Outcome{}, payErr
	}
	return Outcome{Method: MethodPagoMovil, TransactionId: res.TransactionId, Initiation: &res}, nil
}

func (o *Orchestrator) submitManual(ctx context.Context, r ManualRequest) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := o.gw.SubmitManualPayment(ctx, o.auth(true), r.wire())
	if err != nil {
		payErr := normalize("manual payment", err)
		log.Printf("payment: %v", payErr)
		return Outcome{}, payErr
	}
	if !res.Success {
		payErr := rejected("manual payment", res.Message)
		log.Printf("payment: %v", payErr)
		return Outcome{}, payErr
	}
	return Outcome{Method: r.Subtype, TransactionId: res.TransactionId, Manual: &res}, nil
}

// Confirm finalizes a P2C transaction with the buyer's bank reference.
func (o *Orchestrator) Confirm(ctx context.Context, transactionID, reference, identification string) (model.P2CConfirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := o.gw.ConfirmP2C(ctx, o.auth(false), model.P2CConfirmRequest{
		TransactionId:  transactionID,
		Reference:      reference,
		Identification: identification,
	})
	if err != nil {
		payErr := normalize("confirm p2c", err)
		log.Printf("payment: %v", payErr)
		return model.P2CConfirmation{}, payErr
	}
	if !res.Success {
		payErr := rejected("confirm p2c", res.Message)
		log.Printf("payment: %v", payErr)
		return model.P2CConfirmation{}, payErr
	}
	return res, nil
}

// Void asks the server to release an initiated transaction.
func (o *Orchestrator) Void(ctx context.Context, transactionID string) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := o.gw.CancelP2C(ctx, o.auth(false), model.P2CCancelRequest{TransactionId: transactionID})
	if err != nil {
		return normalize("cancel p2c", err)
	}
	if res.Success != nil && !*res.Success {
		return rejected("cancel p2c", res.Message)
	}
	return nil
}

func (o *Orchestrator) auth(withKey bool) service.Auth {
	a := service.Auth{IframeToken: o.token}
	if withKey {
		a.IdempotencyKey = o.newKey()
	}
	return a
}
