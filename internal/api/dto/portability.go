package dto

import "time"

// StatusProcessing is reported for every accepted asynchronous request.
const StatusProcessing = "PROCESSING"

// PortInRequest is the body of POST /port-in. A private subscriber needs a
// name and first surname; a company needs its company name.
type PortInRequest struct {
	SessionCode       string     `json:"session_code"       binding:"required,max=64"`
	MSISDN            string     `json:"msisdn"             binding:"required,msisdn"`
	ICCID             string     `json:"iccid"              binding:"omitempty,numeric,min=18,max=22"`
	DonorOperator     string     `json:"donor_operator"     binding:"required,max=16"`
	RecipientOperator string     `json:"recipient_operator" binding:"omitempty,max=16"`
	DocumentType      string     `json:"document_type"      binding:"required,doc_type"`
	DocumentNumber    string     `json:"document_number"    binding:"required,max=32"`
	FirstName         string     `json:"first_name"         binding:"required_without=CompanyName,max=128"`
	FirstSurname      string     `json:"first_surname"      binding:"required_without=CompanyName,max=128"`
	SecondSurname     string     `json:"second_surname"     binding:"max=128"`
	CompanyName       string     `json:"company_name"       binding:"max=256"`
	ContractNumber    string     `json:"contract_number"    binding:"max=64"`
	RoutingNumber     string     `json:"routing_number"     binding:"max=16"`
	RequestedAt       *time.Time `json:"requested_at"`
}

type PortInResponse struct {
	Message     string `json:"message"`
	ID          int64  `json:"id"`
	SessionCode string `json:"session_code"`
	Status      string `json:"status"`
}

// CancelRequest is the body of POST /cancel. The port-in is named by id or
// by CN reference code.
type CancelRequest struct {
	SessionCode   string `json:"session_code"   binding:"required,max=64"`
	RequestID     int64  `json:"request_id"     binding:"required_without=ReferenceCode,gte=0"`
	ReferenceCode string `json:"reference_code" binding:"max=64"`
	MSISDN        string `json:"msisdn"         binding:"omitempty,msisdn"`
}

type CancelResponse struct {
	Message       string `json:"message"`
	RequestID     int64  `json:"request_id"`
	ReferenceCode string `json:"reference_code"`
	SessionCode   string `json:"session_code"`
	Status        string `json:"status"`
}

// PortInStatusRequest is the body of POST /portin-status.
type PortInStatusRequest struct {
	ReferenceCode string `json:"reference_code" binding:"required,max=64"`
}

// MSISDNStatusRequest is the body of POST /msisdn-status.
type MSISDNStatusRequest struct {
	MSISDN string `json:"msisdn" binding:"required,msisdn"`
}

// LookupResponse carries a synchronous CN answer.
type LookupResponse struct {
	ResponseCode string              `json:"response_code"`
	Description  string              `json:"description"`
	Fields       map[string]string   `json:"fields"`
	Records      []map[string]string `json:"records,omitempty"`
	ErrorFields  []FieldError        `json:"error_fields,omitempty"`
}

type FieldError struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
