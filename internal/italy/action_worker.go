package italy

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/metrics"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

// outboundMessage is the body of a file written for a scheduled action.
type outboundMessage struct {
	XMLName     xml.Name `xml:"MNP_MESSAGGIO"`
	MessageType int16    `xml:"TIPO_MESSAGGIO"`
	Sender      string   `xml:"CODICE_OPERATORE_MITTENTE"`
	Recipient   string   `xml:"CODICE_OPERATORE_DESTINATARIO"`
	RequestCode string   `xml:"CODICE_RICHIESTA_RECIPIENT"`
	MSISDN      string   `xml:"MSISDN,omitempty"`
	CutOver     string   `xml:"DATA_CUT_OVER,omitempty"`
	Amount      string   `xml:"IMPORTO,omitempty"`
	InReplyTo   string   `xml:"FILE_RIFERIMENTO"`
}

// ActionWorker executes due scheduled actions by writing outbound files.
type ActionWorker struct {
	store database.Store
	sched Scheduler
	seq   *Sequencer
	cfg   Config
}

func NewActionWorker(store database.Store, sched Scheduler, seq *Sequencer, cfg Config) *ActionWorker {
	return &ActionWorker{store: store, sched: sched, seq: seq, cfg: cfg.withDefaults()}
}

// ProcessDue claims up to batchSize due actions and runs them. Actions left
// EXECUTING for longer than the claim TTL are claimed again. It returns the
// number of actions claimed.
func (w *ActionWorker) ProcessDue(ctx context.Context, batchSize int) (int, error) {
	now := w.sched.Now().UTC()
	actions, err := w.store.ClaimDueItalyActions(ctx, database.ClaimDueItalyActionsParams{
		Now:         now,
		StaleBefore: now.Add(-w.cfg.ClaimTTL),
		RowLimit:    int32(batchSize),
	})
	if err != nil {
		return 0, fmt.Errorf("claim due actions: %w", err)
	}

	for _, a := range actions {
		actx := logging.ContextWithActionID(logging.ContextWithRequestID(ctx, a.RequestID), a.ID)
		if err := w.execute(actx, a, now); err != nil {
			slog.ErrorContext(actx, "Failed to settle action", slog.String("action_type", a.ActionType), slog.Any("error", err))
		}
	}
	return len(actions), nil
}

func (w *ActionWorker) execute(ctx context.Context, a database.ItalyScheduledAction, now time.Time) error {
	if a.ExpiresAt != nil && now.After(*a.ExpiresAt) {
		slog.InfoContext(ctx, "Action expired before it could run", slog.Time("expires_at", *a.ExpiresAt))
		return w.finish(ctx, a, codes.ActionCancelled, "expired")
	}

	mt, err := MessageTypeOfAction(a.ActionType)
	if err != nil {
		return w.finish(ctx, a, codes.ActionFailed, err.Error())
	}
	req, err := w.store.GetItalyPortRequest(ctx, a.RequestID)
	if err != nil {
		if database.IsNotFound(err) {
			return w.finish(ctx, a, codes.ActionFailed, "request not found")
		}
		return w.retry(ctx, a, mt, now, fmt.Errorf("load request: %w", err))
	}
	if a.DependsOnStatus != nil && req.ProcessStatus != *a.DependsOnStatus {
		slog.InfoContext(ctx, "Request moved on, action dropped",
			slog.String("expected", *a.DependsOnStatus), slog.String("actual", req.ProcessStatus))
		return w.finish(ctx, a, codes.ActionCancelled, "superseded by "+req.ProcessStatus)
	}

	name, err := w.seq.NextFileName(ctx, w.cfg.OperatorCode, req.SenderOperator, now)
	if err != nil {
		return w.retry(ctx, a, mt, now, err)
	}
	ctx = logging.ContextWithFileName(ctx, name)
	if err := w.writeFile(name, render(req, mt, w.cfg.OperatorCode)); err != nil {
		metrics.ItalyFiles.WithLabelValues("outbound", mt.Code(), "error").Inc()
		return w.retry(ctx, a, mt, now, err)
	}
	metrics.ItalyFiles.WithLabelValues("outbound", mt.Code(), "written").Inc()

	sent := mt.SentStatus()
	err = w.store.ExecTx(ctx, func(q database.Querier) error {
		if err := q.UpdateItalyProcessStatus(ctx, database.UpdateItalyProcessStatusParams{
			ProcessStatus: sent,
			UpdatedAt:     now,
			ID:            req.ID,
		}); err != nil {
			return err
		}
		if _, err := q.InsertItalyStatusHistory(ctx, database.InsertItalyStatusHistoryParams{
			RequestID:       req.ID,
			OldStatus:       &req.ProcessStatus,
			NewStatus:       sent,
			MessageTypeCode: int16(mt),
			Reason:          ptr(a.ActionType),
			Payload:         &name,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		return q.FinishItalyAction(ctx, database.FinishItalyActionParams{
			Status:    codes.ActionCompleted,
			UpdatedAt: now,
			ID:        a.ID,
		})
	})
	if err != nil {
		// The file is out but the request did not move; the action runs again.
		return w.retry(ctx, a, mt, now, fmt.Errorf("record written file %s: %w", name, err))
	}
	metrics.ItalyActions.WithLabelValues(codes.ActionCompleted).Inc()
	slog.InfoContext(ctx, "Outbound file written", slog.String("status", sent))
	return nil
}

// retry puts the action back in its window, or fails it once attempts are spent.
func (w *ActionWorker) retry(ctx context.Context, a database.ItalyScheduledAction, mt MessageType, now time.Time, cause error) error {
	slog.WarnContext(ctx, "Action attempt failed", slog.Int("attempt", int(a.Attempts)), slog.Any("error", cause))
	if a.Attempts >= w.cfg.MaxAttempts {
		return w.finish(ctx, a, codes.ActionFailed, cause.Error())
	}
	res, err := w.sched.NextExecution(w.cfg.RetryDelay, mt.Code(), codes.CountryItaly, true)
	if err != nil {
		return errors.Join(cause, err)
	}
	msg := cause.Error()
	return w.store.RescheduleItalyAction(ctx, database.RescheduleItalyActionParams{
		ScheduledAt: res.At.UTC(),
		LastError:   &msg,
		UpdatedAt:   now,
		ID:          a.ID,
	})
}

func (w *ActionWorker) finish(ctx context.Context, a database.ItalyScheduledAction, status, reason string) error {
	err := w.store.FinishItalyAction(ctx, database.FinishItalyActionParams{
		Status:    status,
		LastError: &reason,
		UpdatedAt: w.sched.Now().UTC(),
		ID:        a.ID,
	})
	if err != nil {
		return err
	}
	metrics.ItalyActions.WithLabelValues(status).Inc()
	return nil
}

// writeFile publishes content under name so readers of the directory never
// see a partial file.
func (w *ActionWorker) writeFile(name string, content []byte) error {
	if err := os.MkdirAll(w.cfg.OutboundDir, 0o755); err != nil {
		return fmt.Errorf("create outbound dir: %w", err)
	}
	tmp, err := os.CreateTemp(w.cfg.OutboundDir, ".pending-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(w.cfg.OutboundDir, name))
}

func render(req database.ItalyPortRequest, mt MessageType, operator string) []byte {
	m := outboundMessage{
		MessageType: int16(mt),
		Sender:      operator,
		Recipient:   req.SenderOperator,
		RequestCode: req.RecipientRequestCode,
		InReplyTo:   req.FileName,
	}
	if req.Msisdn != nil {
		m.MSISDN = *req.Msisdn
	}
	if req.CutOverDate != nil {
		m.CutOver = req.CutOverDate.Format(time.DateOnly)
	}
	if req.Amount.Valid {
		m.Amount = req.Amount.Decimal.StringFixed(2)
	}
	body, _ := xml.MarshalIndent(m, "", "  ")
	return append([]byte(xml.Header), body...)
}
