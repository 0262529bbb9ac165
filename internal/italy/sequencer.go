package italy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thrillee/mnpgateway/internal/database"
)

var ErrSequenceExhausted = errors.New("daily file sequence exhausted")

// Sequencer hands out the per-day file sequence for a sender/recipient pair.
// The counter lives in the database; the upsert takes a row lock so
// concurrent writers never share a value.
type Sequencer struct {
	q   database.Querier
	loc *time.Location
}

func NewSequencer(q database.Querier, loc *time.Location) *Sequencer {
	if loc == nil {
		loc = time.UTC
	}
	return &Sequencer{q: q, loc: loc}
}

// Next returns the next sequence for the calendar day of t in the exchange zone.
func (s *Sequencer) Next(ctx context.Context, sender, recipient string, t time.Time) (int, error) {
	local := t.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	v, err := s.q.NextItalyFileSequence(ctx, database.NextItalyFileSequenceParams{
		Sender:    sender,
		Recipient: recipient,
		SeqDate:   day,
	})
	if err != nil {
		return 0, fmt.Errorf("next file sequence %s->%s: %w", sender, recipient, err)
	}
	if v > MaxSequence {
		return 0, fmt.Errorf("%w: %s->%s on %s", ErrSequenceExhausted, sender, recipient, day.Format(time.DateOnly))
	}
	return int(v), nil
}

// NextFileName builds an outbound file name stamped with t in the exchange zone.
func (s *Sequencer) NextFileName(ctx context.Context, sender, recipient string, t time.Time) (string, error) {
	seq, err := s.Next(ctx, sender, recipient, t)
	if err != nil {
		return "", err
	}
	local := t.In(s.loc)
	stamp := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
	return FormatFileName(FileName{Sender: sender, Timestamp: stamp, Recipient: recipient, Sequence: seq})
}
