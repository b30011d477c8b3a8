package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taquilla-cli/store"
)

func setTestDirs(t *testing.T) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", root)
	t.Setenv("XDG_CACHE_HOME", root)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuoteOfflineFullBox(t *testing.T) {
	setTestDirs(t)

	out, err := run(t, "quote", "--offline", "--zone", "b5", "--full")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for _, want := range []string{"Box B5", "box completo", "US$ 750.00", "0.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestQuoteOfflineGeneralQuantity(t *testing.T) {
	setTestDirs(t)
	t.Setenv("TAQUILLA_GENERAL_PRICE", "40")

	out, err := run(t, "quote", "--offline", "--zone", "general", "--quantity", "3")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(out, "US$ 120.00") {
		t.Fatalf("expected total of 120, got:\n%s", out)
	}
}

func TestQuoteUnknownZone(t *testing.T) {
	setTestDirs(t)

	if _, err := run(t, "quote", "--offline", "--zone", "platea"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestQuoteUsesExchangeRate(t *testing.T) {
	setTestDirs(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments/exchange-rate":
			w.Write([]byte(`{"rate": 36.5, "source": "BCV"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	out, err := run(t, "quote", "--api-url", srv.URL+"/api", "--zone", "B1", "--quantity", "2")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(out, "US$ 150.00") || !strings.Contains(out, "5475.00") {
		t.Fatalf("expected 150 USD and 5475.00 Bs, got:\n%s", out)
	}
}

func TestTokenCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/iframe-tokens/info" || r.URL.Query().Get("token") != "tok-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"valid": true, "allowed_payment_methods": ["pago_movil", "zelle"], "require_captcha": true}`))
	}))
	defer srv.Close()

	out, err := run(t, "token", "--api-url", srv.URL+"/api", "tok-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(out, "pago_movil, zelle") || !strings.Contains(out, "valid") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTokenCommandUnknownToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Token no encontrado"}`))
	}))
	defer srv.Close()

	out, err := run(t, "token", "--api-url", srv.URL+"/api", "tok-x")
	if err == nil {
		t.Fatal("expected error for unknown token")
	}
	if !strings.Contains(out, "TOKEN_INVALID") || !strings.Contains(out, "invalid") {
		t.Fatalf("expected TOKEN_INVALID signal, got:\n%s", out)
	}
}

func TestTokenCommandMissingToken(t *testing.T) {
	out, err := run(t, "token", "--api-url", "http://127.0.0.1:1/api")
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if !strings.Contains(out, "TOKEN_INVALID") {
		t.Fatalf("expected TOKEN_INVALID signal, got:\n%s", out)
	}
}

func TestHistory(t *testing.T) {
	setTestDirs(t)

	out, err := run(t, "history")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(out, "Sin compras") {
		t.Fatalf("expected empty history message, got %q", out)
	}

	if err := store.RememberReceipt(store.Receipt{
		TransactionId: "tx-1",
		Status:        "confirmado",
		Method:        "pago_movil",
		ZoneName:      "Box B5",
		Quantity:      10,
		TotalUSD:      750,
		TicketNumbers: []string{"T-001"},
		At:            time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("remember receipt: %v", err)
	}
	out, err = run(t, "history")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(out, "tx-1") || !strings.Contains(out, "T-001") {
		t.Fatalf("expected receipt listed, got:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.HasPrefix(out, "taquilla-cli dev") {
		t.Fatalf("unexpected version output %q", out)
	}
}
