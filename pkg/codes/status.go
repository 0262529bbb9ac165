package codes

import "strings"

// Country Codes
const (
	CountrySpain = "ES"
	CountryItaly = "IT"
)

// Request Types
const (
	RequestPortIn             = "PORT_IN"
	RequestPortOut            = "PORT_OUT" // Observed only, polled from CN
	RequestCancellation       = "CANCELLATION"
	RequestExtension          = "EXTENSION"
	RequestReturn             = "RETURN"
	RequestReturnCancellation = "RETURN_CANCELLATION"
)

// CN Response Codes (codigoRespuesta), kept verbatim including the inner space
const (
	CNSuccess          = "0000 00000"
	CNCancelSuccess    = "0000 0000"
	CNAlreadyExists    = "AREC EXIST"
	CNRejectionPrefix  = "AREC"
	CNClientErrPrefix  = "4"
	CNServerErrPrefix  = "5"
	HTTPResponsePrefix = "HTTP_" // Synthesised when CN answers 4xx without a parsable code
)

// CN Process States (estado)
const (
	EstadoSolicited = "ASOL"
	EstadoConfirmed = "ACON"
	EstadoPorted    = "APOR"
	EstadoRejected  = "AREC"
	EstadoCancelled = "ACAN"
)

// BSS Status Codes (status_bss)
const (
	BSSPending       = "PENDING"
	BSSProcessing    = "PROCESSING"
	BSSUpdatedPrefix = "STATUS_UPDATED_TO_"
)

// Callback Outbox Status Codes
const (
	CallbackPending   = "PENDING"
	CallbackDelivered = "DELIVERED"
	CallbackFailed    = "FAILED"
)

// Italy Scheduled Action Status Codes
const (
	ActionPending   = "PENDING"
	ActionExecuting = "EXECUTING"
	ActionCompleted = "COMPLETED"
	ActionFailed    = "FAILED"
	ActionCancelled = "CANCELLED"
)

// KnownEstados are the CN states that make a port-in submission pointless.
var KnownEstados = []string{EstadoSolicited, EstadoConfirmed, EstadoRejected, EstadoPorted, EstadoCancelled}

// BSSStatusFor derives the status_bss written once the BSS has acknowledged a callback.
func BSSStatusFor(code string) string {
	return BSSUpdatedPrefix + code
}

// IsCNSuccess reports whether a codigoRespuesta is the CN success code.
func IsCNSuccess(code string) bool {
	return code == CNSuccess
}

// IsZeroCode matches success codes made only of zeros and spaces ("0000 0000", "0000 00000").
func IsZeroCode(code string) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	for _, r := range code {
		if r != '0' && r != ' ' {
			return false
		}
	}
	return true
}
