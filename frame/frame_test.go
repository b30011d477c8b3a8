package frame

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriterNotifier_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)

	n.Notify(NewPaymentInitiated("tx-1"))
	n.Notify(NewPaymentError("falló"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("expected valid json, got %v", err)
	}
	if first["type"] != "PAYMENT_INITIATED" || first["transactionId"] != "tx-1" {
		t.Fatalf("unexpected message: %+v", first)
	}
	if first["version"] != float64(SchemaVersion) {
		t.Fatalf("expected version %d, got %v", SchemaVersion, first["version"])
	}
	if _, ok := first["ticketData"]; ok {
		t.Fatalf("expected ticketData omitted, got %+v", first)
	}
}

func TestWriterNotifier_DropsUnknownType(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)
	n.Notify(Message{Type: "PAYMENT_REFUNDED"})
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}
}

func TestPaymentCompletedCarriesTickets(t *testing.T) {
	m := NewPaymentCompleted("tx-9", []Ticket{{TicketNumber: "T-1", Status: "confirmado"}}, TicketData{ZoneName: "Box B5", Quantity: 10})
	payload, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for _, want := range []string{`"type":"PAYMENT_COMPLETED"`, `"ticketNumber":"T-1"`, `"zoneName":"Box B5"`} {
		if !strings.Contains(string(payload), want) {
			t.Fatalf("expected %s in %s", want, payload)
		}
	}
}
