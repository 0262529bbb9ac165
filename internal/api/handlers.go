package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thrillee/mnpgateway/internal/api/dto"
	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/italy"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/porting"
)

// === Interfaces ===

// PortingService is the BSS-facing side of the porting engine.
type PortingService interface {
	AcceptPortIn(ctx context.Context, in porting.PortInInput) (database.PortabilityRequest, error)
	AcceptCancel(ctx context.Context, in porting.CancelInput) (database.PortabilityRequest, error)
	AcceptReturn(ctx context.Context, in porting.ReturnInput) (database.ReturnRequest, error)
	AcceptReturnCancel(ctx context.Context, in porting.ReturnCancelInput) (database.ReturnRequest, error)
	Search(ctx context.Context, f porting.SearchFilter) (porting.SearchResult, error)
	QueryMSISDN(ctx context.Context, msisdn string) (porting.Lookup, error)
	QueryPortIn(ctx context.Context, referenceCode string) (porting.Lookup, error)
	QueryReturn(ctx context.Context, msisdn, referenceCode string) (porting.Lookup, error)
}

// FileReceiver stores inbound Italian exchange files.
type FileReceiver interface {
	Receive(ctx context.Context, f italy.File) (*italy.Ack, error)
}

var (
	_ PortingService = (*porting.Service)(nil)
	_ FileReceiver   = (*italy.Ingestor)(nil)
)

// === Handler ===

// Handler serves the BSS-facing endpoints.
type Handler struct {
	porting PortingService
	files   FileReceiver
}

func NewHandler(svc PortingService, files FileReceiver) *Handler {
	return &Handler{porting: svc, files: files}
}

// PortIn handles POST /port-in
func (h *Handler) PortIn(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.PortInRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}

	row, err := h.porting.AcceptPortIn(logCtx, porting.PortInInput{
		SessionCode:       req.SessionCode,
		MSISDN:            req.MSISDN,
		ICCID:             req.ICCID,
		DonorOperator:     req.DonorOperator,
		RecipientOperator: req.RecipientOperator,
		DocumentType:      strings.ToUpper(req.DocumentType),
		DocumentNumber:    req.DocumentNumber,
		FirstName:         req.FirstName,
		FirstSurname:      req.FirstSurname,
		SecondSurname:     req.SecondSurname,
		CompanyName:       req.CompanyName,
		ContractNumber:    req.ContractNumber,
		RoutingNumber:     req.RoutingNumber,
		RequestedAt:       req.RequestedAt,
	})
	if err != nil {
		respondError(c, logCtx, "accept port-in", err)
		return
	}

	c.JSON(http.StatusAccepted, dto.PortInResponse{
		Message:     "Port-in request accepted",
		ID:          row.ID,
		SessionCode: req.SessionCode,
		Status:      dto.StatusProcessing,
	})
}

// Cancel handles POST /cancel
func (h *Handler) Cancel(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.CancelRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}

	row, err := h.porting.AcceptCancel(logCtx, porting.CancelInput{
		SessionCode:   req.SessionCode,
		RequestID:     req.RequestID,
		ReferenceCode: req.ReferenceCode,
		MSISDN:        req.MSISDN,
	})
	if err != nil {
		respondError(c, logCtx, "accept cancellation", err)
		return
	}

	c.JSON(http.StatusAccepted, dto.CancelResponse{
		Message:       "Cancellation request accepted",
		RequestID:     row.ID,
		ReferenceCode: deref(row.ReferenceCode),
		SessionCode:   req.SessionCode,
		Status:        dto.StatusProcessing,
	})
}

// ReturnRequest handles POST /return-request
func (h *Handler) ReturnRequest(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.ReturnRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}

	row, err := h.porting.AcceptReturn(logCtx, porting.ReturnInput{
		SessionCode:    req.SessionCode,
		MSISDN:         req.MSISDN,
		DonorOperator:  req.DonorOperator,
		DocumentType:   strings.ToUpper(req.DocumentType),
		DocumentNumber: req.DocumentNumber,
		RequestDate:    req.RequestDate,
	})
	if err != nil {
		respondError(c, logCtx, "accept return", err)
		return
	}
	c.JSON(http.StatusAccepted, returnResponse("Return request accepted", row))
}

// ReturnCancel handles POST /return-cancel
func (h *Handler) ReturnCancel(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.ReturnCancelRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}

	row, err := h.porting.AcceptReturnCancel(logCtx, porting.ReturnCancelInput{
		SessionCode:   req.SessionCode,
		ReturnID:      req.ReturnID,
		ReferenceCode: req.ReferenceCode,
		Reason:        req.Reason,
	})
	if err != nil {
		respondError(c, logCtx, "accept return cancellation", err)
		return
	}
	c.JSON(http.StatusAccepted, returnResponse("Return cancellation accepted", row))
}

// ReturnStatus handles POST /return-status. Blocks on CN.
func (h *Handler) ReturnStatus(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.ReturnStatusRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}
	l, err := h.porting.QueryReturn(logging.ContextWithMSISDN(logCtx, req.MSISDN), req.MSISDN, req.ReferenceCode)
	if err != nil {
		respondError(c, logCtx, "query return status", err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse(l))
}

// MSISDNStatus handles POST /msisdn-status. Blocks on CN.
func (h *Handler) MSISDNStatus(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.MSISDNStatusRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}
	l, err := h.porting.QueryMSISDN(logging.ContextWithMSISDN(logCtx, req.MSISDN), req.MSISDN)
	if err != nil {
		respondError(c, logCtx, "query msisdn", err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse(l))
}

// PortInStatus handles POST /portin-status. Blocks on CN.
func (h *Handler) PortInStatus(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.PortInStatusRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}
	l, err := h.porting.QueryPortIn(logging.ContextWithReferenceCode(logCtx, req.ReferenceCode), req.ReferenceCode)
	if err != nil {
		respondError(c, logCtx, "query port-in", err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse(l))
}

// OrdersSearch handles POST /orders-search
func (h *Handler) OrdersSearch(c *gin.Context) {
	logCtx := c.Request.Context()
	var req dto.OrdersSearchRequest
	if !bindJSON(c, logCtx, &req) {
		return
	}
	res, err := h.porting.Search(logCtx, porting.SearchFilter{
		MSISDN:        req.MSISDN,
		ReferenceCode: req.ReferenceCode,
		RequestType:   req.RequestType,
		StatusNc:      req.StatusNc,
		CreatedFrom:   req.CreatedFrom,
		CreatedTo:     req.CreatedTo,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if err != nil {
		respondError(c, logCtx, "search orders", err)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = porting.DefaultLimit
	} else if limit > porting.MaxLimit {
		slog.WarnContext(logCtx, "Requested limit exceeds maximum, capping.", slog.Int("requested", int(limit)), slog.Int("max", porting.MaxLimit))
		limit = porting.MaxLimit
	}
	resp := dto.OrdersSearchResponse{
		TotalRecords: res.Total,
		Limit:        limit,
		Offset:       req.Offset,
		Data:         make([]dto.Order, 0, len(res.Data)),
	}
	for _, r := range res.Data {
		resp.Data = append(resp.Data, mapDBOrderToResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

// BSSWebhook handles POST /bss-webhook. The echo is only logged.
func (h *Handler) BSSWebhook(c *gin.Context) {
	logCtx := c.Request.Context()
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		slog.WarnContext(logCtx, "Failed to bind webhook JSON", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	slog.InfoContext(logCtx, "BSS webhook echo received", slog.Any("payload", body))
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// Receive handles POST /receive, a multipart upload of one Italian exchange file.
func (h *Handler) Receive(c *gin.Context) {
	logCtx := c.Request.Context()
	if h.files == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "file exchange is not enabled"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "file too large"})
			return
		}
		slog.WarnContext(logCtx, "Missing file in upload", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "file is required"})
		return
	}
	content, err := readFormFile(fh)
	if err != nil {
		slog.WarnContext(logCtx, "Failed to read uploaded file", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable file"})
		return
	}

	name := c.PostForm("filename")
	if name == "" {
		name = fh.Filename
	}
	ack, err := h.files.Receive(logCtx, italy.File{
		Name:        name,
		Timestamp:   c.PostForm("filets"),
		MessageType: c.PostForm("message_type"),
		Content:     content,
	})
	if err != nil {
		respondError(c, logCtx, "receive file", err)
		return
	}
	c.JSON(http.StatusAccepted, ack)
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, ctx context.Context, op string, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, porting.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, porting.ErrNotSubmitted), errors.Is(err, porting.ErrAlreadyClosed):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, cn.ErrCircuitOpen):
		status, msg = http.StatusServiceUnavailable, "central node temporarily unavailable"
	case errors.Is(err, porting.ErrUpstream):
		status, msg = http.StatusBadGateway, "central node unavailable"
	case errors.Is(err, italy.ErrInvalidFileName), errors.Is(err, italy.ErrInvalidFile),
		errors.Is(err, italy.ErrWrongRecipient), errors.Is(err, italy.ErrUnknownMessageType):
		status, msg = http.StatusBadRequest, err.Error()
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Request failed", slog.String("operation", op), slog.Any("error", err))
	} else {
		slog.WarnContext(ctx, "Request rejected", slog.String("operation", op), slog.Any("error", err))
	}
	c.JSON(status, dto.ErrorResponse{Error: msg})
}

func bindJSON(c *gin.Context, ctx context.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		slog.WarnContext(ctx, "Failed to bind request JSON", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Fields: fieldErrors(err)})
		return false
	}
	return true
}

func returnResponse(message string, r database.ReturnRequest) dto.ReturnResponse {
	return dto.ReturnResponse{
		Message:       message,
		ID:            r.ID,
		RequestType:   r.RequestType,
		SessionCode:   deref(r.SessionCode),
		MSISDN:        r.Msisdn,
		ReferenceCode: r.ReferenceCode,
		Status:        dto.StatusProcessing,
	}
}

func lookupResponse(l porting.Lookup) dto.LookupResponse {
	resp := dto.LookupResponse{
		ResponseCode: l.ResponseCode,
		Description:  l.Description,
		Fields:       l.Fields,
		Records:      l.Records,
	}
	for _, fe := range l.ErrorFields {
		resp.ErrorFields = append(resp.ErrorFields, dto.FieldError{Name: fe.Name, Description: fe.Description})
	}
	return resp
}

func mapDBOrderToResponse(r database.PortabilityRequest) dto.Order {
	return dto.Order{
		ID:                r.ID,
		CountryCode:       r.CountryCode,
		RequestType:       r.RequestType,
		ReferenceCode:     r.ReferenceCode,
		SessionCode:       r.SessionCode,
		MSISDN:            r.Msisdn,
		DonorOperator:     r.DonorOperator,
		RecipientOperator: r.RecipientOperator,
		StatusNc:          r.StatusNc,
		StatusBss:         r.StatusBss,
		ResponseCode:      r.ResponseCode,
		ResponseStatus:    r.ResponseStatus,
		Description:       r.Description,
		RetryCount:        r.RetryCount,
		PortingWindow:     r.PortingWindow,
		ScheduledAt:       r.ScheduledAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
