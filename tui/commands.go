package tui

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taquilla-cli/access"
	"taquilla-cli/model"
	"taquilla-cli/payment"
	"taquilla-cli/selection"
	"taquilla-cli/store"
	"taquilla-cli/wizard"
)

type errMsg struct {
	err error
}

type tokenMsg struct {
	info model.TokenInfo
	err  error
}

type inventoryMsg struct {
	snapshot model.InventorySnapshot
	err      error
}

type banksMsg struct {
	banks []model.Bank
	err   error
}

type rateMsg struct {
	rate model.ExchangeRate
	err  error
}

type submitMsg struct {
	outcome payment.Outcome
	err     error
}

type confirmMsg struct {
	result model.P2CConfirmation
	err    error
}

type resetMsg struct{}

func (m appModel) checkTokenCmd() tea.Cmd {
	token := m.machine.Gate().Token()
	return func() tea.Msg {
		if token == "" {
			return tokenMsg{err: access.ErrTokenMissing}
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		info, err := m.client.TokenInfo(ctx, token)
		return tokenMsg{info: info, err: err}
	}
}

func (m appModel) fetchInventoryCmd() tea.Cmd {
	return func() tea.Msg {
		if cached, fresh, err := store.LoadInventoryCache(); err == nil && fresh {
			return inventoryMsg{snapshot: cached}
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		snapshot, err := m.client.Inventory(ctx)
		if err == nil {
			_ = store.SaveInventoryCache(snapshot)
		}
		return inventoryMsg{snapshot: snapshot, err: err}
	}
}

func (m appModel) fetchBanksCmd() tea.Cmd {
	return func() tea.Msg {
		if cached, fresh, err := store.LoadBankCache(); err == nil && fresh && len(cached) > 0 {
			return banksMsg{banks: cached}
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		banks, err := m.client.Banks(ctx)
		if err == nil && len(banks) > 0 {
			_ = store.SaveBankCache(banks)
		}
		if err != nil {
			if cached, _, cacheErr := store.LoadBankCache(); cacheErr == nil && len(cached) > 0 {
				log.Printf("tui: banks: %v (using stale cache)", err)
				return banksMsg{banks: cached}
			}
		}
		return banksMsg{banks: banks, err: err}
	}
}

func (m appModel) fetchRateCmd() tea.Cmd {
	return func() tea.Msg {
		if cached, fresh, err := store.LoadRateCache(); err == nil && fresh {
			return rateMsg{rate: cached}
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		rate, err := m.client.ExchangeRate(ctx)
		if err == nil && rate.Rate > 0 {
			_ = store.SaveRateCache(rate)
		}
		return rateMsg{rate: rate, err: err}
	}
}

// submitCmd runs the payment call off the update loop. The orchestrator
// applies its own timeout.
func (m appModel) submitCmd(req payment.Request) tea.Cmd {
	return func() tea.Msg {
		out, err := m.payments.Submit(context.Background(), req)
		return submitMsg{outcome: out, err: err}
	}
}

func (m appModel) confirmCmd(call wizard.ConfirmCall) tea.Cmd {
	return func() tea.Msg {
		res, err := m.payments.Confirm(context.Background(), call.TransactionId, call.Reference, call.Identification)
		return confirmMsg{result: res, err: err}
	}
}

func (m appModel) voidCmd(transactionID string) tea.Cmd {
	machine := m.machine
	return func() tea.Msg {
		machine.Void(context.Background(), transactionID)
		return nil
	}
}

func resetAfter(d time.Duration) tea.Cmd {
	if d <= 0 {
		d = time.Millisecond
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return resetMsg{}
	})
}

func rememberReceipt(c *wizard.Completion, ticket selection.Snapshot) {
	if c == nil || c.TransactionId == "" {
		return
	}
	numbers := make([]string, 0, len(c.Tickets))
	for _, t := range c.Tickets {
		numbers = append(numbers, t.TicketNumber)
	}
	err := store.RememberReceipt(store.Receipt{
		TransactionId: c.TransactionId,
		Status:        c.Status,
		Method:        string(c.Method),
		ZoneName:      ticket.ZoneName,
		Quantity:      ticket.Quantity,
		TotalUSD:      ticket.TotalPrice,
		TicketNumbers: numbers,
		At:            c.At,
	})
	if err != nil {
		log.Printf("tui: remember receipt: %v", err)
	}
}
