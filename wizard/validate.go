package wizard

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/exp/maps"

	"taquilla-cli/access"
	"taquilla-cli/payment"
	"taquilla-cli/pricing"
	"taquilla-cli/selection"
)

const maxProofSize = 5 << 20

var (
	emailPattern          = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	identificationPattern = regexp.MustCompile(`^[VEJPvejp]?-?\d{6,10}$`)
	phonePattern          = regexp.MustCompile(`^\d{10,11}$`)
	mobilePattern         = regexp.MustCompile(`^04\d{9}$`)
	bankCodePattern       = regexp.MustCompile(`^\d{4}$`)
	bankReferencePattern  = regexp.MustCompile(`^\d{4,20}$`)
	zelleReferencePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,30}$`)

	proofContentTypes = map[string]bool{
		"image/jpeg":      true,
		"image/png":       true,
		"image/webp":      true,
		"application/pdf": true,
	}
)

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := maps.Keys(e)
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeIdentification(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, " ", "")
}

func ValidatePersonal(b payment.Buyer) FieldErrors {
	errs := FieldErrors{}
	if len([]rune(strings.TrimSpace(b.Name))) < 3 {
		errs["buyer_name"] = "Ingresa tu nombre completo"
	}
	if id := normalizeIdentification(b.Identification); id == "" {
		errs["buyer_identification"] = "La cédula es obligatoria"
	} else if !identificationPattern.MatchString(id) {
		errs["buyer_identification"] = "Cédula inválida"
	}
	if email := strings.TrimSpace(b.Email); email == "" {
		errs["buyer_email"] = "El correo es obligatorio"
	} else if !emailPattern.MatchString(email) {
		errs["buyer_email"] = "Correo inválido"
	}
	if phone := strings.TrimSpace(b.Phone); phone == "" {
		errs["buyer_phone"] = "El teléfono es obligatorio"
	} else if !phonePattern.MatchString(digitsOnly(phone)) {
		errs["buyer_phone"] = "Teléfono inválido"
	}
	return errs
}

func ValidateSelection(s selection.Selection) FieldErrors {
	errs := FieldErrors{}
	if s.Zone == nil {
		errs["zone"] = "Selecciona una zona"
		return errs
	}
	switch s.ZoneType {
	case selection.ZoneNumbered:
		if len(s.Seats) == 0 {
			errs["seats"] = "Selecciona al menos un asiento"
		}
	case selection.ZoneBox:
		if s.SelectedBox == "" {
			errs["zone"] = "Selecciona un box"
		}
		if q := s.Quantity(); q < pricing.MinQuantity || q > pricing.BoxCapacity {
			errs["quantity"] = "Cantidad inválida"
		}
	case selection.ZonePreferencial:
		if q := s.Quantity(); q < pricing.MinQuantity || q > pricing.MaxGeneralQuantity {
			errs["quantity"] = "Cantidad inválida"
		}
	}
	return errs
}

// ValidatePayment checks the payment step. A nil gate skips the token checks.
func ValidatePayment(method payment.Method, d payment.Details, gate *access.Gate) FieldErrors {
	errs := FieldErrors{}
	if !method.Valid() {
		errs["payment_method"] = "Selecciona un método de pago"
		return errs
	}
	if gate != nil {
		if !gate.AllowsMethod(string(method)) {
			errs["payment_method"] = "Método de pago no disponible"
		}
		if gate.RequiresCaptcha() && !gate.Captcha().Solved() {
			errs["captcha"] = "Completa la verificación captcha"
		}
	}

	switch method {
	case payment.MethodPagoMovil:
		if !mobilePattern.MatchString(digitsOnly(d.ClientPhone)) {
			errs["client_phone"] = "Teléfono de pago móvil inválido"
		}
		if !bankCodePattern.MatchString(strings.TrimSpace(d.ClientBankCode)) {
			errs["client_bank_code"] = "Selecciona tu banco"
		}
	case payment.MethodTransfer:
		if !bankCodePattern.MatchString(strings.TrimSpace(d.BankCode)) {
			errs["bank_code"] = "Selecciona el banco de origen"
		}
		if !bankReferencePattern.MatchString(strings.TrimSpace(d.Reference)) {
			errs["reference"] = "Referencia inválida"
		}
		validateProof(d, errs)
	case payment.MethodZelle:
		if !zelleReferencePattern.MatchString(strings.TrimSpace(d.Reference)) {
			errs["reference"] = "Referencia inválida"
		}
		validateProof(d, errs)
	case payment.MethodPayPal:
		if !emailPattern.MatchString(strings.TrimSpace(d.PayerEmail)) {
			errs["payer_email"] = "Correo de PayPal inválido"
		}
	}
	return errs
}

func validateProof(d payment.Details, errs FieldErrors) {
	switch {
	case d.Proof == nil || len(d.Proof.Data) == 0:
		errs["proof_file"] = "Adjunta el comprobante de pago"
	case len(d.Proof.Data) > maxProofSize:
		errs["proof_file"] = "El comprobante no puede superar 5 MB"
	case !proofContentTypes[d.Proof.ContentType]:
		errs["proof_file"] = "Formato de comprobante no soportado"
	}
}

func ValidateReference(reference string) FieldErrors {
	errs := FieldErrors{}
	if !bankReferencePattern.MatchString(strings.TrimSpace(reference)) {
		errs["reference"] = "Ingresa la referencia del pago móvil"
	}
	return errs
}
