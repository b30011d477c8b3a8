package access

import (
	"context"
	"errors"
	"testing"

	"taquilla-cli/frame"
	"taquilla-cli/model"
	"taquilla-cli/service"
)

type fakeLookup struct {
	info  model.TokenInfo
	err   error
	calls int
}

func (f *fakeLookup) TokenInfo(ctx context.Context, token string) (model.TokenInfo, error) {
	f.calls++
	return f.info, f.err
}

type recorder struct {
	messages []frame.Message
}

func (r *recorder) Notify(m frame.Message) {
	r.messages = append(r.messages, m)
}

func TestCheck_InvalidTokenSignalsOnce(t *testing.T) {
	rec := &recorder{}
	lookup := &fakeLookup{info: model.TokenInfo{Valid: false}}
	gate := NewGate("tok", rec)

	if err := gate.Check(context.Background(), lookup); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if err := gate.Check(context.Background(), lookup); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on repeat, got %v", err)
	}
	if gate.Allowed() {
		t.Fatal("expected purchase UI to be blocked")
	}
	if len(rec.messages) != 1 || rec.messages[0].Type != frame.TokenInvalid {
		t.Fatalf("expected exactly one TOKEN_INVALID, got %+v", rec.messages)
	}
	if lookup.calls != 1 {
		t.Fatalf("expected 1 lookup, got %d", lookup.calls)
	}
}

func TestCheck_MissingToken(t *testing.T) {
	rec := &recorder{}
	lookup := &fakeLookup{info: model.TokenInfo{Valid: true}}
	gate := NewGate("   ", rec)

	if err := gate.Check(context.Background(), lookup); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if lookup.calls != 0 {
		t.Fatalf("expected no lookup for a missing token, got %d", lookup.calls)
	}
	if len(rec.messages) != 1 || rec.messages[0].Type != frame.TokenInvalid {
		t.Fatalf("expected TOKEN_INVALID, got %+v", rec.messages)
	}
}

func TestCheck_LookupErrorSignalsTokenError(t *testing.T) {
	rec := &recorder{}
	gate := NewGate("tok", rec)

	err := gate.Check(context.Background(), &fakeLookup{err: errors.New("dial tcp: refused")})
	if !errors.Is(err, ErrTokenLookup) {
		t.Fatalf("expected ErrTokenLookup, got %v", err)
	}
	if gate.State() != StateError {
		t.Fatalf("expected error state, got %s", gate.State())
	}
	if len(rec.messages) != 1 || rec.messages[0].Type != frame.TokenError {
		t.Fatalf("expected TOKEN_ERROR, got %+v", rec.messages)
	}
}

func TestCheck_UnknownTokenIsInvalid(t *testing.T) {
	rec := &recorder{}
	gate := NewGate("tok", rec)

	err := gate.Check(context.Background(), &fakeLookup{err: &service.APIError{StatusCode: 404, Status: "404 Not Found"}})
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if gate.State() != StateInvalid {
		t.Fatalf("expected invalid state, got %s", gate.State())
	}
	if len(rec.messages) != 1 || rec.messages[0].Type != frame.TokenInvalid {
		t.Fatalf("expected TOKEN_INVALID, got %+v", rec.messages)
	}
}

func TestCheck_ValidToken(t *testing.T) {
	rec := &recorder{}
	gate := NewGate("tok", rec)
	err := gate.Check(context.Background(), &fakeLookup{info: model.TokenInfo{
		Valid:                 true,
		AllowedPaymentMethods: []string{"pago_movil", "zelle"},
	}})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !gate.Allowed() || !gate.CanSubmit() {
		t.Fatal("expected gate to allow purchase")
	}
	if len(rec.messages) != 0 {
		t.Fatalf("expected no messages, got %+v", rec.messages)
	}
	if !gate.AllowsMethod("PAGO_MOVIL") || gate.AllowsMethod("paypal") {
		t.Fatal("unexpected method allow-list result")
	}
}

func TestAllowsMethod_EmptyListAllowsAll(t *testing.T) {
	gate := NewGate("tok", nil)
	_ = gate.Resolve(model.TokenInfo{Valid: true}, nil)
	for _, m := range []string{"pago_movil", "transferencia", "zelle", "paypal"} {
		if !gate.AllowsMethod(m) {
			t.Fatalf("expected %s allowed", m)
		}
	}
}

func TestCaptchaGatesSubmission(t *testing.T) {
	gate := NewGate("tok", nil)
	_ = gate.Resolve(model.TokenInfo{Valid: true, RequireCaptcha: true, CaptchaSiteKey: "site"}, nil)

	var seen []string
	unsubscribe := gate.Captcha().Subscribe(func(token string) {
		seen = append(seen, token)
	})

	if gate.CanSubmit() {
		t.Fatal("expected submission blocked before captcha")
	}
	gate.Captcha().Solve("captcha-ok")
	if !gate.CanSubmit() {
		t.Fatal("expected submission allowed after captcha")
	}
	gate.Captcha().Expire()
	if gate.CanSubmit() {
		t.Fatal("expected submission blocked after expiry")
	}

	unsubscribe()
	gate.Captcha().Solve("again")
	if len(seen) != 2 || seen[0] != "captcha-ok" || seen[1] != "" {
		t.Fatalf("unexpected listener calls: %+v", seen)
	}
}
