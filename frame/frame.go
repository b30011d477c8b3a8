// Package frame defines the messages the purchase widget posts to its
// embedding page. Delivery is one-way and fire-and-forget.
package frame

import (
	"encoding/json"
	"io"
	"log"
	"sync"
)

// SchemaVersion is bumped whenever a message shape changes.
const SchemaVersion = 1

type MessageType string

const (
	TokenInvalid     MessageType = "TOKEN_INVALID"
	TokenError       MessageType = "TOKEN_ERROR"
	PaymentInitiated MessageType = "PAYMENT_INITIATED"
	PaymentSubmitted MessageType = "PAYMENT_SUBMITTED"
	PaymentCompleted MessageType = "PAYMENT_COMPLETED"
	PaymentError     MessageType = "PAYMENT_ERROR"
)

func (t MessageType) Valid() bool {
	switch t {
	case TokenInvalid, TokenError, PaymentInitiated, PaymentSubmitted, PaymentCompleted, PaymentError:
		return true
	}
	return false
}

// TicketData summarizes the purchase for the host page.
type TicketData struct {
	ZoneId       string   `json:"zoneId"`
	ZoneName     string   `json:"zoneName"`
	Quantity     int      `json:"quantity"`
	TotalUSD     float64  `json:"totalUSD"`
	BuyerEmail   string   `json:"buyerEmail"`
	TicketNumber string   `json:"ticketNumber,omitempty"`
	Status       string   `json:"status,omitempty"`
	SeatIds      []string `json:"seatIds,omitempty"`
}

type Ticket struct {
	TicketNumber string `json:"ticketNumber"`
	Status       string `json:"status"`
}

type Message struct {
	Version       int         `json:"version"`
	Type          MessageType `json:"type"`
	TransactionId string      `json:"transactionId,omitempty"`
	TicketData    *TicketData `json:"ticketData,omitempty"`
	Tickets       []Ticket    `json:"tickets,omitempty"`
	Message       string      `json:"message,omitempty"`
}

func NewTokenInvalid(reason string) Message {
	return Message{Version: SchemaVersion, Type: TokenInvalid, Message: reason}
}

func NewTokenError(reason string) Message {
	return Message{Version: SchemaVersion, Type: TokenError, Message: reason}
}

func NewPaymentInitiated(transactionID string) Message {
	return Message{Version: SchemaVersion, Type: PaymentInitiated, TransactionId: transactionID}
}

func NewPaymentSubmitted(transactionID string, data TicketData) Message {
	return Message{Version: SchemaVersion, Type: PaymentSubmitted, TransactionId: transactionID, TicketData: &data}
}

func NewPaymentCompleted(transactionID string, tickets []Ticket, data TicketData) Message {
	return Message{Version: SchemaVersion, Type: PaymentCompleted, TransactionId: transactionID, Tickets: tickets, TicketData: &data}
}

func NewPaymentError(message string) Message {
	return Message{Version: SchemaVersion, Type: PaymentError, Message: message}
}

// Notifier delivers messages to the embedding page. Implementations must not
// block the caller on a slow or absent listener.
type Notifier interface {
	Notify(Message)
}

type NotifierFunc func(Message)

func (f NotifierFunc) Notify(m Message) {
	f(m)
}

// Discard drops every message.
var Discard Notifier = NotifierFunc(func(Message) {})

// WriterNotifier writes each message as one JSON line.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(m Message) {
	if !m.Type.Valid() {
		log.Printf("frame: dropping message with unknown type %q", m.Type)
		return
	}
	if m.Version == 0 {
		m.Version = SchemaVersion
	}
	payload, err := json.Marshal(m)
	if err != nil {
		log.Printf("frame: encode %s: %v", m.Type, err)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.w.Write(append(payload, '\n')); err != nil {
		log.Printf("frame: write %s: %v", m.Type, err)
	}
}
