package memdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

func TestUpdatePortabilityRequestState_DueGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 10, 20, 10, 5, 0, 0, time.UTC)
	r, err := s.CreatePortabilityRequest(ctx, database.CreatePortabilityRequestParams{
		CountryCode: codes.CountrySpain,
		RequestType: codes.RequestPortIn,
		Msisdn:      "621800000",
		StatusNc:    string(statemachine.Submitted),
		ScheduledAt: &at,
	})
	require.NoError(t, err)

	update := func(dueAt time.Time) error {
		_, err := s.UpdatePortabilityRequestState(ctx, database.UpdatePortabilityRequestStateParams{
			ID:             r.ID,
			StatusNc:       string(statemachine.PendingResponse),
			UpdatedAt:      dueAt,
			TerminalStates: statemachine.TerminalStates(),
			DueAt:          &dueAt,
		})
		return err
	}

	err = update(at.Add(-time.Minute))
	assert.True(t, database.IsNotFound(err), "a row rescheduled past the caller's now is not rewritten")
	got, err := s.GetPortabilityRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.Submitted), got.StatusNc)

	require.NoError(t, update(at))
}

func TestClaimDueItalyActions_TakesOverStaleClaims(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	_, err := s.CreateItalyScheduledAction(ctx, database.CreateItalyScheduledActionParams{
		RequestID:   1,
		ActionType:  "SEND_ACTIVATION",
		ScheduledAt: now,
		CreatedAt:   now,
	})
	require.NoError(t, err)

	claim := func(at time.Time) []database.ItalyScheduledAction {
		got, err := s.ClaimDueItalyActions(ctx, database.ClaimDueItalyActionsParams{
			Now:         at,
			StaleBefore: at.Add(-10 * time.Minute),
			RowLimit:    10,
		})
		require.NoError(t, err)
		return got
	}

	require.Len(t, claim(now), 1)
	assert.Empty(t, claim(now.Add(5*time.Minute)))

	again := claim(now.Add(15 * time.Minute))
	require.Len(t, again, 1)
	assert.Equal(t, int32(2), again[0].Attempts)
	assert.Equal(t, codes.ActionExecuting, again[0].Status)
}
