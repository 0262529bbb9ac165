package italy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/metrics"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/pkg/codes"
	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

var (
	ErrInvalidFile    = errors.New("invalid exchange file")
	ErrWrongRecipient = errors.New("file not addressed to this operator")
)

// Inbound XML fields.
const (
	FieldMessageType = "TIPO_MESSAGGIO"
	FieldRequestCode = "CODICE_RICHIESTA_RECIPIENT"
	FieldMSISDN      = "MSISDN"
	FieldCutOver     = "DATA_CUT_OVER"
	FieldAmount      = "IMPORTO"
)

var inboundFields = []string{FieldMessageType, FieldRequestCode, FieldMSISDN, FieldCutOver, FieldAmount}

const AckStatus = "ACKNOWLEDGED"

// Scheduler hands out legal execution times. *schedule.Calculator implements it.
type Scheduler interface {
	NextExecution(baseDelay time.Duration, messageType, country string, withJitter bool) (schedule.Result, error)
	Now() time.Time
}

type Config struct {
	OperatorCode string
	OutboundDir  string
	MaxAttempts  int32
	ActionTTL    time.Duration
	ClaimTTL     time.Duration // how long an EXECUTING action stays with its claimer
	RetryDelay   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.ActionTTL <= 0 {
		c.ActionTTL = 72 * time.Hour
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Minute
	}
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = 10 * time.Minute
	}
	return c
}

// File is one inbound upload.
type File struct {
	Name string
	// Timestamp is the filets form value, stored verbatim.
	Timestamp string
	// MessageType, when set, overrides TIPO_MESSAGGIO.
	MessageType string
	Content     []byte
}

// Ack is returned to the sender once a file is stored.
type Ack struct {
	Status    string    `json:"status"`
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

// inbound is the indexed view of a file.
type inbound struct {
	name        FileName
	messageType MessageType
	requestCode string
	msisdn      *string
	cutOver     *time.Time
	amount      decimal.NullDecimal
}

// Ingestor stores inbound files and schedules their follow-up actions.
type Ingestor struct {
	store database.Store
	sched Scheduler
	cfg   Config
}

func NewIngestor(store database.Store, sched Scheduler, cfg Config) *Ingestor {
	return &Ingestor{store: store, sched: sched, cfg: cfg.withDefaults()}
}

// Receive validates, indexes and stores f. A file repeating the message type
// already recorded for its request code is acknowledged without side effects.
func (in *Ingestor) Receive(ctx context.Context, f File) (*Ack, error) {
	ctx = logging.ContextWithFileName(logging.ContextWithCountry(ctx, codes.CountryItaly), f.Name)

	msg, err := in.classify(f)
	if err != nil {
		metrics.ItalyFiles.WithLabelValues("inbound", messageLabel(f.MessageType), "rejected").Inc()
		slog.WarnContext(ctx, "Inbound file rejected", slog.Any("error", err))
		return nil, err
	}

	now := in.sched.Now().UTC()
	duplicate := false
	var actionAt time.Time
	err = in.store.ExecTx(ctx, func(q database.Querier) error {
		var oldStatus *string
		existing, err := q.GetItalyPortRequestByCodeForUpdate(ctx, msg.requestCode)
		switch {
		case err == nil:
			if MessageType(existing.MessageTypeCode) == msg.messageType {
				duplicate = true
				return nil
			}
			oldStatus = &existing.ProcessStatus
		case !database.IsNotFound(err):
			return fmt.Errorf("lookup request %s: %w", msg.requestCode, err)
		}

		status := msg.messageType.ReceivedStatus()
		req, err := q.UpsertItalyPortRequest(ctx, database.UpsertItalyPortRequestParams{
			RecipientRequestCode: msg.requestCode,
			Msisdn:               msg.msisdn,
			MessageTypeCode:      int16(msg.messageType),
			ProcessStatus:        status,
			CutOverDate:          msg.cutOver,
			SenderOperator:       msg.name.Sender,
			RecipientOperator:    msg.name.Recipient,
			Amount:               msg.amount,
			FileName:             f.Name,
			FileTs:               nonEmpty(f.Timestamp),
			RawXml:               string(f.Content),
			Now:                  now,
		})
		if err != nil {
			return fmt.Errorf("store request %s: %w", msg.requestCode, err)
		}

		if _, err := q.InsertItalyStatusHistory(ctx, database.InsertItalyStatusHistoryParams{
			RequestID:       req.ID,
			OldStatus:       oldStatus,
			NewStatus:       status,
			MessageTypeCode: int16(msg.messageType),
			Reason:          ptr("received " + f.Name),
			CreatedAt:       now,
		}); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		if msg.messageType == MsgCancellation {
			n, err := q.CancelPendingItalyActions(ctx, database.CancelPendingItalyActionsParams{
				Reason:    ptr("cancelled by " + f.Name),
				UpdatedAt: now,
				RequestID: req.ID,
			})
			if err != nil {
				return fmt.Errorf("cancel pending actions: %w", err)
			}
			if n > 0 {
				slog.InfoContext(ctx, "Pending actions cancelled", slog.Int64("count", n))
			}
		}

		res, err := in.sched.NextExecution(0, msg.messageType.Code(), codes.CountryItaly, true)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", msg.messageType.ActionType(), err)
		}
		actionAt = res.At.UTC()
		expires := actionAt.Add(in.cfg.ActionTTL)
		_, err = q.CreateItalyScheduledAction(ctx, database.CreateItalyScheduledActionParams{
			RequestID:            req.ID,
			ActionType:           msg.messageType.ActionType(),
			ScheduledAt:          actionAt,
			ExpiresAt:            &expires,
			DependsOnMessageType: int16(msg.messageType),
			DependsOnStatus:      &status,
			CreatedAt:            now,
		})
		if err != nil {
			return fmt.Errorf("create action: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.ItalyFiles.WithLabelValues("inbound", msg.messageType.Code(), "error").Inc()
		slog.ErrorContext(ctx, "Failed to store inbound file", slog.Any("error", err))
		return nil, err
	}

	ack := &Ack{Status: AckStatus, MessageID: uuid.NewString(), Timestamp: now}
	if duplicate {
		metrics.ItalyFiles.WithLabelValues("inbound", msg.messageType.Code(), "duplicate").Inc()
		ack.Details = fmt.Sprintf("%s already received for %s", msg.messageType, msg.requestCode)
		slog.InfoContext(ctx, "Duplicate inbound file acknowledged", slog.String("request_code", msg.requestCode))
		return ack, nil
	}

	metrics.ItalyFiles.WithLabelValues("inbound", msg.messageType.Code(), "accepted").Inc()
	ack.Details = fmt.Sprintf("%s stored for %s, %s scheduled at %s",
		msg.messageType, msg.requestCode, msg.messageType.ActionType(), actionAt.Format(time.RFC3339))
	slog.InfoContext(ctx, "Inbound file stored",
		slog.String("request_code", msg.requestCode),
		slog.String("message_type", msg.messageType.String()),
		slog.Time("action_at", actionAt))
	return ack, nil
}

func (in *Ingestor) classify(f File) (inbound, error) {
	name, err := ParseFileName(f.Name)
	if err != nil {
		return inbound{}, err
	}
	if in.cfg.OperatorCode != "" && name.Recipient != in.cfg.OperatorCode {
		return inbound{}, fmt.Errorf("%w: recipient %s", ErrWrongRecipient, name.Recipient)
	}
	if len(f.Content) == 0 {
		return inbound{}, fmt.Errorf("%w: empty content", ErrInvalidFile)
	}

	doc := xmlfields.Parse(f.Content, inboundFields)
	if doc.Malformed {
		return inbound{}, fmt.Errorf("%w: malformed XML", ErrInvalidFile)
	}

	rawType := f.MessageType
	if strings.TrimSpace(rawType) == "" {
		rawType = doc.Get(FieldMessageType)
	}
	mt, err := ParseMessageType(rawType)
	if err != nil {
		return inbound{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	msg := inbound{name: name, messageType: mt, requestCode: strings.TrimSpace(doc.Get(FieldRequestCode))}
	if msg.requestCode == "" {
		return inbound{}, fmt.Errorf("%w: missing %s", ErrInvalidFile, FieldRequestCode)
	}
	if v := strings.TrimSpace(doc.Get(FieldMSISDN)); v != "" {
		msg.msisdn = &v
	}
	if v := strings.TrimSpace(doc.Get(FieldCutOver)); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return inbound{}, fmt.Errorf("%w: %s %q", ErrInvalidFile, FieldCutOver, v)
		}
		msg.cutOver = &d
	}
	if v := strings.TrimSpace(doc.Get(FieldAmount)); v != "" && mt.CarriesAmount() {
		amount, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
		if err != nil {
			return inbound{}, fmt.Errorf("%w: %s %q", ErrInvalidFile, FieldAmount, v)
		}
		msg.amount = decimal.NewNullDecimal(amount)
	}
	return msg, nil
}

// parseDate accepts a date or a date-time and keeps the calendar day.
func parseDate(s string) (time.Time, error) {
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	return time.Parse(time.DateOnly, s)
}

func messageLabel(raw string) string {
	if mt, err := ParseMessageType(raw); err == nil {
		return mt.Code()
	}
	return "unknown"
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptr[T any](v T) *T { return &v }
