package tui

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taquilla-cli/clock"
	"taquilla-cli/inventory"
	"taquilla-cli/model"
	"taquilla-cli/payment"
	"taquilla-cli/pricing"
	"taquilla-cli/selection"
	"taquilla-cli/service"
	"taquilla-cli/wizard"
)

type appState int

const (
	stateCheckingToken appState = iota
	stateBlocked
	statePersonal
	stateZone
	stateQuantity
	stateSeats
	stateMethod
	stateDetails
	stateBank
	stateSubmitting
	stateConfirm
	stateConfirming
	stateDone
)

const defaultTimeout = 20 * time.Second

// Deps wires the program to the purchase machinery.
type Deps struct {
	Client   *service.Client
	Machine  *wizard.Machine
	Payments wizard.Payments
	Clock    clock.Clock
	Schedule pricing.Schedule
	Timeout  time.Duration
}

type appModel struct {
	client   *service.Client
	machine  *wizard.Machine
	payments wizard.Payments
	clock    clock.Clock
	schedule pricing.Schedule
	timeout  time.Duration

	state  appState
	notice string
	selErr string

	width  int
	height int

	banks []model.Bank
	rate  *model.ExchangeRate

	personal form
	details  form
	confirm  form

	zoneList   list.Model
	methodList list.Model
	bankList   list.Model
	bankField  string

	// usedCaptcha is the last captcha token sent; the server accepts each once.
	usedCaptcha string

	seatCursor int

	spinner spinner.Model
}

func New(deps Deps) tea.Model {
	m := appModel{
		client:   deps.Client,
		machine:  deps.Machine,
		payments: deps.Payments,
		clock:    deps.Clock,
		schedule: deps.Schedule,
		timeout:  deps.Timeout,
		state:    stateCheckingToken,
	}
	if m.clock == nil {
		m.clock = clock.NewSystem()
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}

	m.personal = newPersonalForm()
	m.confirm = newConfirmForm()
	m.zoneList = newList("Selecciona tu zona")
	m.methodList = newList("Método de pago")
	m.bankList = newList("Selecciona el banco")
	m.zoneList.SetItems(buildZoneItems(m.machine.Selection().Inventory()))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.checkTokenCmd(),
		m.fetchInventoryCmd(),
		m.fetchBanksCmd(),
		m.fetchRateCmd(),
		m.spinner.Tick,
	)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		next, cmd, handled := m.handleKey(msg)
		if handled {
			return next, cmd
		}
		// fallthrough to component update

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.isLoadingState() {
			return m, cmd
		}
		return m, nil

	case errMsg:
		m.notice = msg.err.Error()
		return m, nil

	case tokenMsg:
		gate := m.machine.Gate()
		_ = gate.Resolve(msg.info, msg.err)
		if !gate.Allowed() {
			m.state = stateBlocked
			return m, nil
		}
		m.methodList.SetItems(buildMethodItems(gate.AllowsMethod))
		m.state = statePersonal
		return m, m.personal.inputs[m.personal.focus].Focus()

	case inventoryMsg:
		if msg.err != nil {
			log.Printf("tui: inventory: %v", msg.err)
			m.notice = "Disponibilidad sin conexión; se muestran valores de referencia."
			return m, nil
		}
		if m.canSwapInventory() {
			m.machine.Selection().SetInventory(inventory.FromSnapshot(msg.snapshot, m.schedule))
			m.zoneList.SetItems(buildZoneItems(m.machine.Selection().Inventory()))
		}
		return m, nil

	case banksMsg:
		if msg.err != nil {
			log.Printf("tui: banks: %v", msg.err)
			return m, nil
		}
		m.banks = msg.banks
		m.bankList.SetItems(buildBankItems(msg.banks))
		return m, nil

	case rateMsg:
		if msg.err != nil {
			log.Printf("tui: exchange rate: %v", msg.err)
			return m, nil
		}
		if msg.rate.Rate > 0 {
			rate := msg.rate
			m.rate = &rate
		}
		return m, nil

	case submitMsg:
		err := m.machine.FinishSubmit(msg.outcome, msg.err)
		m.details.set("captcha", "")
		if err != nil {
			m.state = stateDetails
			return m, nil
		}
		if m.machine.Completed() {
			return m.complete()
		}
		m.confirm = newConfirmForm()
		m.state = stateConfirm
		return m, m.confirm.inputs[0].Focus()

	case confirmMsg:
		if err := m.machine.FinishConfirm(msg.result, msg.err); err != nil {
			m.state = stateConfirm
			return m, nil
		}
		return m.complete()

	case resetMsg:
		if !m.machine.Completed() {
			return m, nil
		}
		if !m.machine.ResetIfDue(m.clock.Now()) {
			return m, resetAfter(m.machine.ResetAt().Sub(m.clock.Now()))
		}
		return m.restart()
	}

	var cmd tea.Cmd
	switch m.state {
	case statePersonal:
		m.personal, cmd = m.personal.Update(msg)
	case stateZone:
		m.zoneList, cmd = m.zoneList.Update(msg)
	case stateMethod:
		m.methodList, cmd = m.methodList.Update(msg)
	case stateBank:
		m.bankList, cmd = m.bankList.Update(msg)
	case stateDetails:
		m.details, cmd = m.details.Update(msg)
	case stateConfirm:
		m.confirm, cmd = m.confirm.Update(msg)
	}
	return m, cmd
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch m.state {
	case stateBlocked:
		if msg.String() == "q" || msg.String() == "esc" {
			return m, tea.Quit, true
		}
		return m, nil, true
	case stateCheckingToken, stateSubmitting, stateConfirming:
		return m, nil, true
	case statePersonal:
		return m.personalKey(msg)
	case stateZone:
		return m.zoneKey(msg)
	case stateQuantity:
		return m.quantityKey(msg)
	case stateSeats:
		return m.seatsKey(msg)
	case stateMethod:
		return m.methodKey(msg)
	case stateDetails:
		return m.detailsKey(msg)
	case stateBank:
		return m.bankKey(msg)
	case stateConfirm:
		return m.confirmKey(msg)
	case stateDone:
		if msg.Type == tea.KeyEnter {
			m.machine.Reset()
			next, cmd := m.restart()
			return next, cmd, true
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m appModel) personalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "down":
		return m, m.personal.move(1), true
	case "shift+tab", "up":
		return m, m.personal.move(-1), true
	case "enter":
		if m.personal.focus < len(m.personal.inputs)-1 {
			return m, m.personal.move(1), true
		}
		m.machine.SetBuyer(buyerFromForm(m.personal))
		var fe wizard.FieldErrors
		if err := m.machine.Next(); errors.As(err, &fe) {
			return m, m.personal.focusKey(m.personal.firstError(fe)), true
		} else if err != nil {
			return m, nil, true
		}
		m.selErr = ""
		m.state = stateZone
		return m, nil, true
	}
	return m, nil, false
}

func (m appModel) zoneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		if m.zoneList.SettingFilter() || m.zoneList.IsFiltered() {
			m.zoneList.ResetFilter()
			return m, nil, true
		}
		_ = m.machine.Previous()
		m.state = statePersonal
		return m, nil, true
	case "enter":
		if m.zoneList.SettingFilter() {
			return m, nil, false
		}
		item, ok := m.zoneList.SelectedItem().(zoneItem)
		if !ok {
			return m, nil, true
		}
		sel := m.machine.Selection()
		m.selErr = ""
		switch item.kind {
		case selection.ZonePreferencial:
			sel.SelectPreferencial()
			m.state = stateQuantity
		case selection.ZoneBox:
			if err := sel.SelectBox(item.id); err != nil {
				m.selErr = selectionMessage(err)
				return m, nil, true
			}
			m.state = stateQuantity
		case selection.ZoneNumbered:
			if err := sel.SelectNumberedZone(item.id); err != nil {
				m.selErr = selectionMessage(err)
				return m, nil, true
			}
			m.seatCursor = 0
			m.state = stateSeats
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m appModel) quantityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	sel := m.machine.Selection()
	switch msg.String() {
	case "+", "right", "up", "l", "k":
		sel.Increment()
	case "-", "left", "down", "h", "j":
		sel.Decrement()
	case "f", " ":
		s := sel.Selection()
		if s.ZoneType == selection.ZoneBox {
			m.selErr = ""
			if err := sel.SetFullBox(!s.PurchaseFullBox); err != nil {
				m.selErr = selectionMessage(err)
			}
		}
	case "esc":
		m.selErr = ""
		m.state = stateZone
	case "enter":
		return m.toPayment()
	}
	return m, nil, true
}

func (m appModel) seatsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	sel := m.machine.Selection()
	s := sel.Selection()
	if s.Zone == nil {
		m.state = stateZone
		return m, nil, true
	}
	seats := sel.Inventory().Seats(s.Zone.Id)
	switch msg.String() {
	case "right", "l", "down", "j", "tab":
		if len(seats) > 0 {
			m.seatCursor = (m.seatCursor + 1) % len(seats)
		}
	case "left", "h", "up", "k", "shift+tab":
		if len(seats) > 0 {
			m.seatCursor = (m.seatCursor - 1 + len(seats)) % len(seats)
		}
	case " ", "x":
		if m.seatCursor < len(seats) {
			m.selErr = ""
			if err := sel.ToggleSeat(seats[m.seatCursor].Id); err != nil {
				m.selErr = selectionMessage(err)
			}
		}
	case "esc":
		m.selErr = ""
		m.state = stateZone
	case "enter":
		return m.toPayment()
	}
	return m, nil, true
}

func (m appModel) toPayment() (tea.Model, tea.Cmd, bool) {
	var fe wizard.FieldErrors
	if err := m.machine.Next(); errors.As(err, &fe) {
		for _, key := range []string{"zone", "seats", "quantity"} {
			if msg, ok := fe[key]; ok {
				m.selErr = msg
				break
			}
		}
		return m, nil, true
	} else if err != nil {
		return m, nil, true
	}
	m.selErr = ""
	m.state = stateMethod
	return m, nil, true
}

func (m appModel) methodKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		_ = m.machine.Previous()
		m.state = stateZone
		return m, nil, true
	case "enter":
		item, ok := m.methodList.SelectedItem().(methodItem)
		if !ok {
			return m, nil, true
		}
		if item.method != m.machine.Method() || len(m.details.inputs) == 0 {
			m.machine.SetMethod(item.method)
			m.details = newDetailsForm(item.method, m.machine.Gate().RequiresCaptcha())
		}
		m.machine.ClearMessage()
		m.state = stateDetails
		return m, m.details.inputs[m.details.focus].Focus(), true
	}
	return m, nil, false
}

func (m appModel) detailsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "down":
		return m, m.details.move(1), true
	case "shift+tab", "up":
		return m, m.details.move(-1), true
	case "esc":
		m.state = stateMethod
		return m, nil, true
	case "ctrl+b":
		key := m.details.focused()
		if (key == "client_bank_code" || key == "bank_code") && len(m.bankList.Items()) > 0 {
			m.bankField = key
			m.state = stateBank
		}
		return m, nil, true
	case "enter", "ctrl+s":
		if msg.String() == "enter" && m.details.focus < len(m.details.inputs)-1 {
			return m, m.details.move(1), true
		}
		return m.submit()
	}
	return m, nil, false
}

func (m appModel) submit() (tea.Model, tea.Cmd, bool) {
	token := m.details.value("captcha")
	if token != "" && token != m.usedCaptcha {
		m.machine.Gate().Captcha().Solve(token)
	}
	details, err := detailsFromForm(m.details)
	if err != nil {
		m.notice = err.Error()
	} else {
		m.notice = ""
	}
	m.machine.SetDetails(details)

	req, err := m.machine.BeginSubmit()
	var fe wizard.FieldErrors
	switch {
	case errors.As(err, &fe):
		return m, m.details.focusKey(m.details.firstError(fe)), true
	case err != nil:
		m.notice = err.Error()
		return m, nil, true
	}
	if token != "" {
		m.usedCaptcha = token
	}
	m.state = stateSubmitting
	return m, tea.Batch(m.submitCmd(req), m.spinner.Tick), true
}

func (m appModel) bankKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		if m.bankList.SettingFilter() || m.bankList.IsFiltered() {
			m.bankList.ResetFilter()
			return m, nil, true
		}
		m.state = stateDetails
		return m, nil, true
	case "enter":
		if m.bankList.SettingFilter() {
			return m, nil, false
		}
		if item, ok := m.bankList.SelectedItem().(bankItem); ok {
			m.details.set(m.bankField, item.bank.Code)
		}
		m.state = stateDetails
		return m, nil, true
	}
	return m, nil, false
}

func (m appModel) confirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		txID, err := m.machine.Cancel()
		if err != nil {
			return m, nil, true
		}
		m.confirm = newConfirmForm()
		m.state = stateDetails
		if txID != "" {
			return m, m.voidCmd(txID), true
		}
		return m, nil, true
	case "enter":
		call, err := m.machine.BeginConfirm(m.confirm.value("reference"))
		if err != nil {
			return m, nil, true
		}
		m.state = stateConfirming
		return m, tea.Batch(m.confirmCmd(call), m.spinner.Tick), true
	}
	return m, nil, false
}

func (m appModel) complete() (tea.Model, tea.Cmd) {
	rememberReceipt(m.machine.Completion(), m.machine.Ticket())
	m.state = stateDone
	return m, resetAfter(m.machine.ResetDelay())
}

// restart shows an empty wizard after the machine has been reset.
func (m appModel) restart() (tea.Model, tea.Cmd) {
	m.personal = newPersonalForm()
	m.details = form{}
	m.usedCaptcha = ""
	m.confirm = newConfirmForm()
	m.selErr = ""
	m.notice = ""
	m.seatCursor = 0
	m.zoneList.ResetFilter()
	m.zoneList.Select(0)
	m.state = statePersonal
	return m, tea.Batch(m.personal.inputs[0].Focus(), m.fetchInventoryCmd())
}

// canSwapInventory reports whether replacing the inventory would not discard
// a selection the buyer already made.
func (m appModel) canSwapInventory() bool {
	if m.machine.Step() != wizard.StepPersonalData {
		return false
	}
	return m.machine.Selection().Selection().ZoneType == selection.ZoneNone
}

func (m appModel) isLoadingState() bool {
	return m.state == stateCheckingToken ||
		m.state == stateSubmitting ||
		m.state == stateConfirming
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - 8
	if h < 6 {
		h = 6
	}
	m.zoneList.SetSize(m.width, h)
	m.methodList.SetSize(m.width, h)
	m.bankList.SetSize(m.width, h)
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.Filter = caseInsensitiveFilter
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func caseInsensitiveFilter(term string, targets []string) []list.Rank {
	term = strings.ToLower(term)
	lower := make([]string, len(targets))
	for i, t := range targets {
		lower[i] = strings.ToLower(t)
	}
	return list.DefaultFilter(term, lower)
}

func newPersonalForm() form {
	return newForm(
		field{key: "buyer_name", label: "Nombre completo", placeholder: "Ana Pérez", limit: 120},
		field{key: "buyer_identification", label: "Cédula", placeholder: "V12345678", limit: 14},
		field{key: "buyer_email", label: "Correo electrónico", placeholder: "ana@correo.com", limit: 160},
		field{key: "buyer_phone", label: "Teléfono", placeholder: "04141234567", limit: 20},
	)
}

func newConfirmForm() form {
	return newForm(field{key: "reference", label: "Referencia del pago móvil", placeholder: "123456", limit: 20})
}

func newDetailsForm(method payment.Method, captcha bool) form {
	var fields []field
	switch method {
	case payment.MethodPagoMovil:
		fields = []field{
			{key: "client_phone", label: "Teléfono de pago móvil", placeholder: "04141234567", limit: 20},
			{key: "client_bank_code", label: "Banco emisor (código)", placeholder: "0102", limit: 4},
		}
	case payment.MethodTransfer:
		fields = []field{
			{key: "bank_code", label: "Banco de origen (código)", placeholder: "0105", limit: 4},
			{key: "reference", label: "Número de referencia", placeholder: "00123456", limit: 20},
			{key: "proof_file", label: "Comprobante (ruta del archivo)", placeholder: "~/comprobante.png", limit: 512},
		}
	case payment.MethodZelle:
		fields = []field{
			{key: "reference", label: "Código de confirmación Zelle", placeholder: "ZL12345", limit: 30},
			{key: "proof_file", label: "Comprobante (ruta del archivo)", placeholder: "~/zelle.pdf", limit: 512},
		}
	case payment.MethodPayPal:
		fields = []field{
			{key: "payer_email", label: "Correo de PayPal", placeholder: "ana@correo.com", limit: 160},
		}
	}
	if captcha {
		fields = append(fields, field{key: "captcha", label: "Token captcha", placeholder: "pega el token resuelto", limit: 4096})
	}
	return newForm(fields...)
}

func buyerFromForm(f form) payment.Buyer {
	return payment.Buyer{
		Name:           f.value("buyer_name"),
		Identification: f.value("buyer_identification"),
		Email:          f.value("buyer_email"),
		Phone:          f.value("buyer_phone"),
	}
}

// detailsFromForm collects the method fields and loads the proof file. A file
// that cannot be read leaves Proof empty so validation flags it.
func detailsFromForm(f form) (payment.Details, error) {
	d := payment.Details{
		ClientPhone:    f.value("client_phone"),
		ClientBankCode: f.value("client_bank_code"),
		BankCode:       f.value("bank_code"),
		Reference:      f.value("reference"),
		PayerEmail:     f.value("payer_email"),
	}
	path := f.value("proof_file")
	if path == "" {
		return d, nil
	}
	proof, err := loadProof(path)
	if err != nil {
		return d, err
	}
	d.Proof = proof
	return d, nil
}

func loadProof(path string) (*model.ProofFile, error) {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	contentType := http.DetectContentType(data)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return &model.ProofFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func selectionMessage(err error) string {
	switch {
	case errors.Is(err, inventory.ErrBoxSoldOut):
		return "Este box está agotado"
	case errors.Is(err, inventory.ErrBoxNotFullyAvailable):
		return "El box completo solo está disponible si no se ha vendido ningún puesto"
	case errors.Is(err, selection.ErrSeatUnavailable):
		return "Ese asiento no está disponible"
	case errors.Is(err, selection.ErrSeatLimit):
		return "Máximo 10 asientos por compra"
	default:
		return err.Error()
	}
}
