package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"taquilla-cli/access"
	"taquilla-cli/model"
	"taquilla-cli/pricing"
	"taquilla-cli/selection"
	"taquilla-cli/wizard"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	panelStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("63"))
)

func (m appModel) View() string {
	header := m.headerView()
	var body string
	switch m.state {
	case stateCheckingToken:
		body = fmt.Sprintf("%s Validando acceso\n\n%s", m.spinner.View(), hint("Consultando el token de acceso..."))
	case stateBlocked:
		body = m.blockedView()
	case statePersonal:
		body = m.personal.View(m.machine.Errors(), nil)
	case stateZone:
		body = m.zoneList.View()
	case stateQuantity:
		body = m.quantityView()
	case stateSeats:
		body = m.seatsView()
	case stateMethod:
		body = m.summaryView(m.machine.Ticket()) + "\n\n" + m.methodList.View()
	case stateDetails:
		body = m.summaryView(m.machine.Ticket()) + "\n\n" + m.details.View(m.machine.Errors(), m.detailNotes())
	case stateBank:
		body = m.bankList.View()
	case stateSubmitting:
		body = fmt.Sprintf("%s Procesando pago\n\n%s", m.spinner.View(), hint("No cierres esta ventana."))
	case stateConfirm:
		body = m.confirmView()
	case stateConfirming:
		body = fmt.Sprintf("%s Confirmando pago móvil", m.spinner.View())
	case stateDone:
		body = m.doneView()
	}

	var footer []string
	if m.selErr != "" && (m.state == stateZone || m.state == stateQuantity || m.state == stateSeats) {
		footer = append(footer, errorStyle.Render(m.selErr))
	}
	if msg := m.machine.Message(); msg != "" && (m.state == stateDetails || m.state == stateConfirm) {
		footer = append(footer, errorStyle.Render(msg))
	}
	if m.notice != "" {
		footer = append(footer, hint(m.notice))
	}
	out := header + "\n\n" + body
	if len(footer) > 0 {
		out += "\n\n" + strings.Join(footer, "\n")
	}
	return out
}

func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Render("Taquilla")
	var meta string
	switch m.state {
	case stateCheckingToken, stateBlocked:
	default:
		step := m.machine.Step()
		meta = fmt.Sprintf("Paso %d de %d • %s", step.Ordinal(), wizard.VisibleSteps, step)
		if m.rate != nil {
			meta += " • " + printer.Sprintf("Tasa %.2f Bs/US$", m.rate.Rate)
		}
		meta = "\n" + lipgloss.NewStyle().Faint(true).Render(meta)
	}
	return title + meta + "\n" + hint(m.hints())
}

func (m appModel) hints() string {
	switch m.state {
	case statePersonal:
		return "ctrl+c salir • tab siguiente campo • enter continuar"
	case stateZone:
		return "ctrl+c salir • esc volver • escribe para filtrar • enter elegir"
	case stateQuantity:
		return "ctrl+c salir • esc volver • +/- cantidad • f box completo • enter continuar"
	case stateSeats:
		return "ctrl+c salir • esc volver • flechas mover • espacio marcar asiento • enter continuar"
	case stateMethod:
		return "ctrl+c salir • esc volver • enter elegir"
	case stateDetails:
		return "ctrl+c salir • esc método • tab siguiente • ctrl+b bancos • ctrl+s pagar"
	case stateBank:
		return "ctrl+c salir • esc volver • enter elegir"
	case stateConfirm:
		return "ctrl+c salir • enter confirmar • esc cancelar pago"
	case stateDone:
		return "enter nueva compra • ctrl+c salir"
	case stateBlocked:
		return "q salir"
	default:
		return "ctrl+c salir"
	}
}

func (m appModel) blockedView() string {
	gate := m.machine.Gate()
	reason := gate.Info().Message
	if reason == "" {
		reason = "Este enlace de compra no es válido."
		if gate.State() == access.StateError {
			reason = "No se pudo validar el acceso. Intenta más tarde."
		}
	}
	return panelStyle.Render(errorStyle.Render("Acceso no permitido") + "\n\n" + reason)
}

func (m appModel) quantityView() string {
	sel := m.machine.Selection()
	s := sel.Selection()
	if s.Zone == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(s.Zone.Name))
	b.WriteString("\n\n")
	if s.ZoneType == selection.ZoneBox {
		mode := "Por puesto"
		if s.PurchaseFullBox {
			mode = "Box completo (10 puestos)"
		}
		b.WriteString(fmt.Sprintf("Modalidad: %s\n", mode))
		if savings := sel.Inventory().Schedule().BoxSavings(); savings > 0 && !s.PurchaseFullBox {
			b.WriteString(hint("Ahorra " + formatUSD(savings) + " comprando el box completo"))
			b.WriteString("\n")
		}
	}
	b.WriteString(fmt.Sprintf("Precio unitario: %s\n", formatUSD(sel.UnitPrice())))
	b.WriteString(fmt.Sprintf("Cantidad: [-] %d [+]\n\n", sel.Quantity()))
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Total: " + formatUSD(sel.TotalPrice())))
	if bs := m.bsLine(sel.TotalPrice()); bs != "" {
		b.WriteString("\n" + hint(bs))
	}
	return b.String()
}

func (m appModel) seatsView() string {
	sel := m.machine.Selection()
	s := sel.Selection()
	if s.Zone == nil {
		return ""
	}
	seats := sel.Inventory().Seats(s.Zone.Id)
	if len(seats) == 0 {
		return "Esta zona no tiene asientos disponibles."
	}

	rows := map[string][]int{}
	var order []string
	for i, seat := range seats {
		if _, ok := rows[seat.Row]; !ok {
			order = append(order, seat.Row)
		}
		rows[seat.Row] = append(rows[seat.Row], i)
	}
	sort.Strings(order)

	available := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	taken := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	chosen := lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214"))
	cursor := lipgloss.NewStyle().Underline(true).Bold(true)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(s.Zone.Name))
	b.WriteString("\n\n")
	for _, row := range order {
		idx := rows[row]
		sort.Slice(idx, func(a, c int) bool { return seats[idx[a]].Column < seats[idx[c]].Column })
		b.WriteString(fmt.Sprintf("%-3s ", row))
		for _, i := range idx {
			seat := seats[i]
			token := fmt.Sprintf("%2d", seat.Column)
			style := available
			switch {
			case sel.IsSeatSelected(seat.Id):
				style = chosen
			case seat.Status != model.SeatAvailable:
				style = taken
				token = " ×"
			}
			if i == m.seatCursor {
				style = style.Inherit(cursor)
			}
			b.WriteString(style.Render(token))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Seleccionados: %d/%d • Total: %s", len(s.Seats), selection.MaxSeats, formatUSD(sel.TotalPrice())))
	return b.String()
}

func (m appModel) summaryView(t selection.Snapshot) string {
	if t.Empty() {
		return ""
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(t.ZoneName),
		fmt.Sprintf("Entradas: %d", t.Quantity),
	}
	if len(t.SeatIds) > 0 {
		lines = append(lines, "Asientos: "+strings.Join(t.SeatIds, ", "))
	}
	if t.BoxFullPurchase {
		lines = append(lines, "Box completo")
	}
	lines = append(lines, "Total: "+formatUSD(t.TotalPrice))
	if bs := m.bsLine(t.TotalPrice); bs != "" {
		lines = append(lines, hint(bs))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m appModel) bsLine(usd float64) string {
	if m.rate == nil {
		return ""
	}
	rate := m.rate.Rate
	return "≈ " + formatBsAmount(pricing.BsAmount(usd, &rate))
}

func (m appModel) detailNotes() map[string]string {
	notes := map[string]string{}
	for _, key := range []string{"client_bank_code", "bank_code"} {
		if name := bankName(m.banks, m.details.value(key)); name != "" {
			notes[key] = name
		}
	}
	if gate := m.machine.Gate(); gate.RequiresCaptcha() {
		var note string
		if key := gate.Info().CaptchaSiteKey; key != "" {
			note = "site key: " + key
		}
		if !gate.CanSubmit() && m.details.value("captcha") == "" {
			note = strings.TrimSpace(note + " (pendiente)")
		}
		if note != "" {
			notes["captcha"] = note
		}
	}
	return notes
}

func (m appModel) confirmView() string {
	tx := m.machine.Transaction()
	if tx == nil {
		return ""
	}
	amount := formatUSD(tx.AmountUSD)
	if tx.AmountBs != "" {
		amount = formatBsAmount(tx.AmountBs) + " (" + amount + ")"
	}
	bank := tx.CommerceBankCode
	if tx.CommerceBankName != "" {
		bank += " • " + tx.CommerceBankName
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render("Realiza el pago móvil con estos datos"),
		"",
		"Banco:    " + bank,
		"Teléfono: " + tx.CommercePhone,
		"RIF:      " + tx.CommerceRif,
		"Monto:    " + amount,
	}
	if tx.CommerceName != "" {
		lines = append(lines, "Comercio: "+tx.CommerceName)
	}
	lines = append(lines, "", hint("Transacción "+tx.Id))
	return panelStyle.Render(strings.Join(lines, "\n")) + "\n\n" + m.confirm.View(m.machine.Errors(), nil)
}

func (m appModel) doneView() string {
	c := m.machine.Completion()
	if c == nil {
		return ""
	}
	var lines []string
	if c.Status == wizard.StatusConfirmed {
		lines = append(lines, okStyle.Render("¡Pago confirmado!"))
	} else {
		lines = append(lines, okStyle.Render("Pago recibido"), "Tu pago será verificado y recibirás tus entradas por correo.")
	}
	if c.Message != "" {
		lines = append(lines, c.Message)
	}
	for _, t := range c.Tickets {
		lines = append(lines, fmt.Sprintf("Entrada %s • %s", t.TicketNumber, t.Status))
	}
	if len(m.machine.Voucher()) > 0 {
		lines = append(lines, hint("Comprobante bancario recibido"))
	}
	remaining := m.machine.ResetAt().Sub(m.clock.Now()).Round(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	lines = append(lines, "", hint(fmt.Sprintf("Volviendo al inicio en %s", remaining)))
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}
