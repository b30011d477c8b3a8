// Package access consumes the capability token a host page hands to the
// embedded purchase widget, and gates the wizard on it.
package access

import (
	"context"
	"errors"
	"log"
	"strings"

	"taquilla-cli/frame"
	"taquilla-cli/model"
	"taquilla-cli/service"
)

var (
	ErrTokenMissing = errors.New("iframe token missing")
	ErrTokenInvalid = errors.New("iframe token invalid")
	ErrTokenLookup  = errors.New("iframe token lookup failed")
)

type State int

const (
	StateUnchecked State = iota
	StateValid
	StateInvalid
	StateError
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateError:
		return "error"
	default:
		return "unchecked"
	}
}

// TokenLookup resolves a token string through the token-info endpoint.
type TokenLookup interface {
	TokenInfo(ctx context.Context, token string) (model.TokenInfo, error)
}

// Gate holds the result of validating one token for the lifetime of one
// wizard. It never mutates the token.
type Gate struct {
	token    string
	notifier frame.Notifier
	captcha  *Captcha

	state    State
	info     model.TokenInfo
	err      error
	signaled bool
}

func NewGate(token string, notifier frame.Notifier) *Gate {
	if notifier == nil {
		notifier = frame.Discard
	}
	return &Gate{
		token:    strings.TrimSpace(token),
		notifier: notifier,
		captcha:  NewCaptcha(),
	}
}

// Check validates the token once. Later calls return the first result without
// contacting the server or signaling the parent again.
func (g *Gate) Check(ctx context.Context, lookup TokenLookup) error {
	if g.state != StateUnchecked {
		return g.err
	}
	if g.token == "" {
		return g.Resolve(model.TokenInfo{}, ErrTokenMissing)
	}
	info, err := lookup.TokenInfo(ctx, g.token)
	return g.Resolve(info, err)
}

// Resolve records the outcome of a token lookup performed elsewhere. A
// missing, unknown or invalid token posts TOKEN_INVALID, a failed lookup
// TOKEN_ERROR.
func (g *Gate) Resolve(info model.TokenInfo, lookupErr error) error {
	if g.state != StateUnchecked {
		return g.err
	}
	switch {
	case errors.Is(lookupErr, ErrTokenMissing) || (lookupErr == nil && g.token == ""):
		g.state = StateInvalid
		g.err = ErrTokenMissing
		g.signal(frame.NewTokenInvalid("Token de acceso requerido"))
	case service.IsNotFound(lookupErr):
		g.state = StateInvalid
		g.err = errors.Join(ErrTokenInvalid, lookupErr)
		g.signal(frame.NewTokenInvalid("Token de acceso inválido"))
	case lookupErr != nil:
		log.Printf("access: token lookup: %v", lookupErr)
		g.state = StateError
		g.err = errors.Join(ErrTokenLookup, lookupErr)
		g.signal(frame.NewTokenError("No se pudo validar el token de acceso"))
	case !info.Valid:
		g.state = StateInvalid
		g.info = info
		g.err = ErrTokenInvalid
		reason := info.Message
		if reason == "" {
			reason = "Token de acceso inválido"
		}
		g.signal(frame.NewTokenInvalid(reason))
	default:
		g.state = StateValid
		g.info = info
		g.err = nil
	}
	return g.err
}

func (g *Gate) signal(m frame.Message) {
	if g.signaled {
		return
	}
	g.signaled = true
	g.notifier.Notify(m)
}

func (g *Gate) State() State {
	return g.state
}

func (g *Gate) Err() error {
	return g.err
}

// Allowed reports whether purchase UI may be shown.
func (g *Gate) Allowed() bool {
	return g.state == StateValid
}

func (g *Gate) Token() string {
	return g.token
}

func (g *Gate) Info() model.TokenInfo {
	return g.info
}

func (g *Gate) Captcha() *Captcha {
	return g.captcha
}

func (g *Gate) RequiresCaptcha() bool {
	return g.state == StateValid && g.info.RequireCaptcha
}

// AllowsMethod reports whether the token permits a payment method. An empty
// allow-list permits every method.
func (g *Gate) AllowsMethod(method string) bool {
	if g.state != StateValid {
		return false
	}
	if len(g.info.AllowedPaymentMethods) == 0 {
		return true
	}
	for _, m := range g.info.AllowedPaymentMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// CanSubmit reports whether a payment may be submitted right now: the token
// is valid and, when required, a captcha has been solved and not expired.
func (g *Gate) CanSubmit() bool {
	if !g.Allowed() {
		return false
	}
	if g.info.RequireCaptcha && !g.captcha.Solved() {
		return false
	}
	return true
}
