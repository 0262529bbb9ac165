package porting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thrillee/mnpgateway/internal/bss"
	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

var errKnownPortOut = errors.New("port-out already recorded")

// PollPortOutNotifications pages through the notifications where this
// operator is the donor, records unseen ones and queues their callbacks. It
// returns how many new items were recorded.
func (p *Processor) PollPortOutNotifications(ctx context.Context) (int, error) {
	ctx = logging.ContextWithCNOperation(ctx, cn.OpPortOutPending.Action)
	size := p.opts.PortOutPageSize
	recorded := 0

	for pageNo := 1; pageNo <= p.opts.PortOutMaxPages; pageNo++ {
		first := (pageNo-1)*size + 1
		page, err := p.cn.PortOutPage(ctx, first, size)
		if isSessionFailure(err) {
			slog.WarnContext(ctx, "CN session failed, port-out poll left for the next run", slog.Any("error", err))
			return recorded, err
		}
		if page == nil {
			return recorded, fmt.Errorf("port-out page %d: %w", pageNo, err)
		}

		meta, mErr := p.store.CreatePortOutMetadata(ctx, database.CreatePortOutMetadataParams{
			PageNumber:        int32(pageNo),
			FirstRecord:       int32(first),
			ResponseCode:      page.Ptr(cn.FieldResponseCode),
			Description:       page.Ptr(cn.FieldDescription),
			NotificationCount: int32(len(page.Notifications)),
			SessionCodeNc:     strPtr(page.SessionCode),
			RequestedAt:       p.wallNow(),
		})
		if mErr != nil {
			return recorded, fmt.Errorf("record port-out page %d: %w", pageNo, mErr)
		}
		if err != nil {
			return recorded, fmt.Errorf("port-out page %d: %w", pageNo, err)
		}

		for _, n := range page.Notifications {
			added, err := p.recordPortOut(ctx, meta.ID, page, n)
			if err != nil {
				slog.ErrorContext(logging.ContextWithReferenceCode(ctx, n.ReferenceCode),
					"Failed to record port-out notification", slog.Any("error", err))
				continue
			}
			if added {
				recorded++
			}
		}

		if len(page.Notifications) < size {
			break
		}
	}

	if recorded > 0 {
		slog.InfoContext(ctx, "Recorded port-out notifications", slog.Int("count", recorded))
	}
	return recorded, nil
}

// recordPortOut inserts the item and its callback in one transaction. Known
// items are only re-queued while their submission is still outstanding and no
// callback is pending.
func (p *Processor) recordPortOut(ctx context.Context, metadataID int64, page *cn.Page, n cn.Notification) (bool, error) {
	now := p.wallNow()
	added := false
	err := p.store.ExecTx(ctx, func(q database.Querier) error {
		item, err := q.InsertPortOutItem(ctx, database.InsertPortOutItemParams{
			MetadataID:        metadataID,
			ReferenceCode:     n.ReferenceCode,
			Msisdn:            n.MSISDN,
			DonorOperator:     strPtr(n.DonorOperator),
			RecipientOperator: strPtr(n.RecipientOperator),
			ResponseCode:      page.Ptr(cn.FieldResponseCode),
			ResponseStatus:    strPtr(n.Estado),
			Description:       page.Ptr(cn.FieldDescription),
			PortingWindow:     p.parseWindow(ctx, n.PortingWindow),
			CnCreatedAt:       p.parseWindow(ctx, n.CreatedAt),
			StatusNc:          string(statemachine.Received),
			StatusBss:         codes.BSSPending,
			CreatedAt:         now,
		})
		switch {
		case database.IsNotFound(err):
			item, err = q.GetPortOutItemByReference(ctx, n.ReferenceCode)
			if err != nil {
				return fmt.Errorf("load known port-out item: %w", err)
			}
			if item.SubmittedToBss == 1 {
				return errKnownPortOut
			}
			pending, err := q.HasPendingBSSCallback(ctx, database.HasPendingBSSCallbackParams{
				SourceKind: bss.SourcePortOut,
				SourceID:   item.ID,
			})
			if err != nil {
				return err
			}
			if pending {
				return errKnownPortOut
			}
		case err != nil:
			return fmt.Errorf("insert port-out item: %w", err)
		default:
			added = true
		}
		_, err = p.outbox.Enqueue(ctx, q, portOutNotice(item), p.sched.Now())
		return err
	})
	if errors.Is(err, errKnownPortOut) {
		return false, nil
	}
	return added, err
}

func portOutNotice(item database.PortOutItem) bss.Notice {
	return bss.Notice{
		Kind:     bss.SourcePortOut,
		SourceID: item.ID,
		Payload: bss.Payload{
			RequestID:         item.ID,
			ReferenceCode:     &item.ReferenceCode,
			MSISDN:            item.Msisdn,
			ResponseCode:      item.ResponseCode,
			ResponseStatus:    item.ResponseStatus,
			Description:       item.Description,
			PortingWindowDate: formatWall(item.PortingWindow),
		},
		DerivedStatusBSS: codes.BSSStatusFor(item.StatusNc),
	}
}
