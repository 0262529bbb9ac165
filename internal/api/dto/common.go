package dto

import "time"

// ErrorResponse is returned for every 4xx/5xx answer.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// OrdersSearchRequest is the body of POST /orders-search.
type OrdersSearchRequest struct {
	MSISDN        *string    `json:"msisdn"         binding:"omitempty,msisdn"`
	ReferenceCode *string    `json:"reference_code" binding:"omitempty,max=64"`
	RequestType   *string    `json:"request_type"   binding:"omitempty,oneof=PORT_IN PORT_OUT CANCELLATION EXTENSION"`
	StatusNc      *string    `json:"status_nc"      binding:"omitempty,max=64"`
	CreatedFrom   *time.Time `json:"created_from"`
	CreatedTo     *time.Time `json:"created_to"`
	Limit         int32      `json:"limit"          binding:"gte=0"`
	Offset        int32      `json:"offset"         binding:"gte=0"`
}

// OrdersSearchResponse is one page of stored requests.
type OrdersSearchResponse struct {
	TotalRecords int64   `json:"total_records"`
	Limit        int32   `json:"limit"`
	Offset       int32   `json:"offset"`
	Data         []Order `json:"data"`
}

// Order is the public view of a stored portability request.
type Order struct {
	ID                int64      `json:"id"`
	CountryCode       string     `json:"country_code"`
	RequestType       string     `json:"request_type"`
	ReferenceCode     *string    `json:"reference_code"`
	SessionCode       *string    `json:"session_code"`
	MSISDN            string     `json:"msisdn"`
	DonorOperator     *string    `json:"donor_operator"`
	RecipientOperator *string    `json:"recipient_operator"`
	StatusNc          string     `json:"status_nc"`
	StatusBss         string     `json:"status_bss"`
	ResponseCode      *string    `json:"response_code"`
	ResponseStatus    *string    `json:"response_status"`
	Description       *string    `json:"description"`
	RetryCount        int32      `json:"retry_count"`
	PortingWindow     *time.Time `json:"porting_window"`
	ScheduledAt       *time.Time `json:"scheduled_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
