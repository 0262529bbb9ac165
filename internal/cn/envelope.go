package cn

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	nsSOAP        = "http://schemas.xmlsoap.org/soap/envelope/"
	nsAccess      = "http://nc.aopm.es/v1-10/acceso"
	nsPortability = "http://nc.aopm.es/v1-10/portabilidad"
	nsBoletin     = "http://nc.aopm.es/v1-10/boletin"
)

// Operation identifies a CN SOAP operation.
type Operation struct {
	Action    string // SOAPAction header
	Element   string // request element inside soapenv:Body
	Namespace string
	Endpoint  Endpoint
}

var (
	OpInitiateSession = Operation{"IniciarSesion", "peticionIniciarSesion", nsAccess, EndpointAccess}
	OpCreatePortIn    = Operation{
		"CrearSolicitudIndividualAltaPortabilidadMovil",
		"peticionCrearSolicitudIndividualAltaPortabilidadMovil",
		nsPortability, EndpointPortability,
	}
	OpCancelPortIn = Operation{
		"PeticionCancelarSolicitudAltaPortabilidadMovil",
		"peticionCancelarSolicitudAltaPortabilidadMovil",
		nsPortability, EndpointPortability,
	}
	OpQueryProcesses = Operation{
		"ConsultarProcesosPortabilidadMovil",
		"peticionConsultarProcesosPortabilidadMovil",
		nsPortability, EndpointPortability,
	}
	OpCreateReturn = Operation{
		"peticionCrearSolicitudBajaNumeracionMovil",
		"peticionCrearSolicitudBajaNumeracionMovil",
		nsPortability, EndpointPortability,
	}
	OpCancelReturn = Operation{
		"peticionCancelarSolicitudBajaNumeracionMovil",
		"peticionCancelarSolicitudBajaNumeracionMovil",
		nsPortability, EndpointPortability,
	}
	OpGetPortIn = Operation{
		"peticionObtenerSolicitudAltaPortabilidadMovil",
		"peticionObtenerSolicitudAltaPortabilidadMovil",
		nsPortability, EndpointPortability,
	}
	OpPortOutPending = Operation{
		"obtenerNotificacionesAltaPortabilidadMovilComoDonantePendientesConfirmarRechazar",
		"peticionObtenerNotificacionesAltaPortabilidadMovilComoDonantePendientesConfirmarRechazar",
		nsPortability, EndpointPortOut,
	}
	OpQueryNumbering = Operation{
		"peticionConsultarNumeracionPortabilidadMovil",
		"peticionConsultarNumeracionPortabilidadMovil",
		nsBoletin, EndpointBoletin,
	}
)

// Request is the body of one CN operation.
type Request interface {
	Operation() Operation
}

// sessionBound requests carry a codigoSesion filled in just before sending.
type sessionBound interface {
	Request
	setSession(code string)
}

type envelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SOAP    string   `xml:"xmlns:soapenv,attr"`
	NS      string   `xml:"xmlns:v1,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		Content string `xml:",innerxml"`
	} `xml:"soapenv:Body"`
}

// Build renders req as a complete SOAP envelope.
func Build(req Request) ([]byte, error) {
	op := req.Operation()

	var inner bytes.Buffer
	enc := xml.NewEncoder(&inner)
	start := xml.StartElement{Name: xml.Name{Local: "v1:" + op.Element}}
	if err := enc.EncodeElement(req, start); err != nil {
		return nil, fmt.Errorf("encode %s: %w", op.Action, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", op.Action, err)
	}

	env := envelope{SOAP: nsSOAP, NS: op.Namespace}
	env.Body.Content = inner.String()
	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", op.Action, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// SessionRequest opens a CN session.
type SessionRequest struct {
	Username     string `xml:"v1:codigoUsuario"`
	AccessCode   string `xml:"v1:claveAcceso"`
	OperatorCode string `xml:"v1:codigoOperador"`
}

func (*SessionRequest) Operation() Operation { return OpInitiateSession }

type Document struct {
	Type   string `xml:"v1:tipo"`
	Number string `xml:"v1:documento"`
}

type Person struct {
	Name          string `xml:"v1:nombre"`
	FirstSurname  string `xml:"v1:primerApellido"`
	SecondSurname string `xml:"v1:segundoApellido,omitempty"`
}

// Subscriber is either a person or a company (razonSocial).
type Subscriber struct {
	Document    Document `xml:"v1:documentoIdentificacion"`
	Person      *Person  `xml:"v1:datosPersonales,omitempty"`
	CompanyName string   `xml:"v1:razonSocial,omitempty"`
}

// PortInRequest creates an individual mobile port-in.
type PortInRequest struct {
	SessionCode       string     `xml:"v1:codigoSesion"`
	RequestDate       string     `xml:"v1:fechaSolicitudPorAbonado"`
	DonorOperator     string     `xml:"v1:codigoOperadorDonante"`
	RecipientOperator string     `xml:"v1:codigoOperadorReceptor"`
	Subscriber        Subscriber `xml:"v1:abonado"`
	ContractCode      string     `xml:"v1:codigoContrato,omitempty"`
	RoutingNumber     string     `xml:"v1:NRNReceptor,omitempty"`
	PortingWindow     string     `xml:"v1:fechaVentanaCambio,omitempty"`
	ICCID             string     `xml:"v1:ICCID,omitempty"`
	MSISDN            string     `xml:"v1:MSISDN"`
}

func (*PortInRequest) Operation() Operation   { return OpCreatePortIn }
func (r *PortInRequest) setSession(c string) { r.SessionCode = c }

// CancelPortInRequest cancels a port-in by reference.
type CancelPortInRequest struct {
	SessionCode   string `xml:"v1:codigoSesion"`
	ReferenceCode string `xml:"v1:codigoReferencia"`
	Reason        string `xml:"v1:causaEstado,omitempty"`
}

func (*CancelPortInRequest) Operation() Operation   { return OpCancelPortIn }
func (r *CancelPortInRequest) setSession(c string) { r.SessionCode = c }

// ProcessQuery lists the portability processes of an MSISDN.
type ProcessQuery struct {
	SessionCode string `xml:"v1:codigoSesion"`
	MSISDN      string `xml:"v1:MSISDN"`
}

func (*ProcessQuery) Operation() Operation   { return OpQueryProcesses }
func (r *ProcessQuery) setSession(c string) { r.SessionCode = c }

// ReturnRequest asks for a number return (baja de numeracion).
type ReturnRequest struct {
	SessionCode   string    `xml:"v1:codigoSesion"`
	RequestDate   string    `xml:"v1:fechaSolicitud"`
	DonorOperator string    `xml:"v1:codigoOperadorDonante,omitempty"`
	Document      *Document `xml:"v1:documentoIdentificacion,omitempty"`
	MSISDN        string    `xml:"v1:MSISDN"`
}

func (*ReturnRequest) Operation() Operation   { return OpCreateReturn }
func (r *ReturnRequest) setSession(c string) { r.SessionCode = c }

// CancelReturnRequest cancels a return by reference.
type CancelReturnRequest struct {
	SessionCode   string `xml:"v1:codigoSesion"`
	ReferenceCode string `xml:"v1:codigoReferencia"`
	Reason        string `xml:"v1:causaCancelacion,omitempty"`
}

func (*CancelReturnRequest) Operation() Operation   { return OpCancelReturn }
func (r *CancelReturnRequest) setSession(c string) { r.SessionCode = c }

// GetPortInRequest fetches one port-in by reference.
type GetPortInRequest struct {
	SessionCode   string `xml:"v1:codigoSesion"`
	ReferenceCode string `xml:"v1:codigoReferencia"`
}

func (*GetPortInRequest) Operation() Operation   { return OpGetPortIn }
func (r *GetPortInRequest) setSession(c string) { r.SessionCode = c }

// PortOutPageRequest reads one page of pending donor-side notifications.
type PortOutPageRequest struct {
	SessionCode string `xml:"v1:codigoSesion"`
	FirstRecord int    `xml:"v1:primerRegistro"`
	PageSize    int    `xml:"v1:numeroRegistros"`
}

func (*PortOutPageRequest) Operation() Operation   { return OpPortOutPending }
func (r *PortOutPageRequest) setSession(c string) { r.SessionCode = c }

// NumberingQuery asks which operator currently serves an MSISDN.
type NumberingQuery struct {
	SessionCode string `xml:"v1:codigoSesion"`
	MSISDN      string `xml:"v1:MSISDN"`
}

func (*NumberingQuery) Operation() Operation   { return OpQueryNumbering }
func (r *NumberingQuery) setSession(c string) { r.SessionCode = c }
