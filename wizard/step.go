package wizard

type Step int

const (
	StepPersonalData Step = iota + 1
	StepZoneSelection
	StepPayment
	StepP2CConfirm
)

// VisibleSteps is the number of steps shown in the progress indicator. The
// P2C confirmation is a sub-state of the payment step.
const VisibleSteps = 3

func (s Step) String() string {
	switch s {
	case StepPersonalData:
		return "Datos personales"
	case StepZoneSelection:
		return "Zona"
	case StepPayment:
		return "Pago"
	case StepP2CConfirm:
		return "Confirmar pago"
	default:
		return "desconocido"
	}
}

// Ordinal is the 1-based position shown to the buyer.
func (s Step) Ordinal() int {
	if s == StepP2CConfirm {
		return int(StepPayment)
	}
	return int(s)
}

// Status of a finished purchase.
const (
	StatusConfirmed = "confirmado"
	StatusPending   = "pendiente"
)
