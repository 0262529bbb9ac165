package dto

import "time"

// ReturnRequest is the body of POST /return-request.
type ReturnRequest struct {
	SessionCode    string     `json:"session_code"    binding:"required,max=64"`
	MSISDN         string     `json:"msisdn"          binding:"required,msisdn"`
	DonorOperator  string     `json:"donor_operator"  binding:"required,max=16"`
	DocumentType   string     `json:"document_type"   binding:"required,doc_type"`
	DocumentNumber string     `json:"document_number" binding:"required,max=32"`
	RequestDate    *time.Time `json:"request_date"`
}

// ReturnResponse describes a stored return or return cancellation.
type ReturnResponse struct {
	Message       string  `json:"message"`
	ID            int64   `json:"id"`
	RequestType   string  `json:"request_type"`
	SessionCode   string  `json:"session_code"`
	MSISDN        string  `json:"msisdn"`
	ReferenceCode *string `json:"reference_code,omitempty"`
	Status        string  `json:"status"`
}

// ReturnCancelRequest is the body of POST /return-cancel.
type ReturnCancelRequest struct {
	SessionCode   string `json:"session_code"   binding:"required,max=64"`
	ReturnID      int64  `json:"return_id"      binding:"required_without=ReferenceCode,gte=0"`
	ReferenceCode string `json:"reference_code" binding:"max=64"`
	Reason        string `json:"reason"         binding:"max=32"`
}

// ReturnStatusRequest is the body of POST /return-status.
type ReturnStatusRequest struct {
	MSISDN        string `json:"msisdn"         binding:"required,msisdn"`
	ReferenceCode string `json:"reference_code" binding:"max=64"`
}
