// Package italy implements the Italian batched file exchange: inbound files
// are acknowledged and indexed, outbound files are produced by scheduled
// actions inside each message type's window.
package italy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrInvalidFileName = errors.New("invalid exchange file name")

// TimestampLayout is the yyyyMMddHHmmss part of a file name.
const TimestampLayout = "20060102150405"

// MaxSequence is the largest daily sequence a file name can carry.
const MaxSequence = 99999

var fileNamePattern = regexp.MustCompile(`^([A-Z0-9]{4})(\d{14})([A-Z0-9]{4})(\d{5})\.xml$`)

// FileName is a parsed exchange file name: sender, local timestamp,
// recipient and daily sequence.
type FileName struct {
	Sender    string
	Timestamp time.Time
	Recipient string
	Sequence  int
}

// ParseFileName splits name according to the exchange grammar. The timestamp
// carries no zone and is returned with its wall-clock fields in UTC.
func ParseFileName(name string) (FileName, error) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return FileName{}, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	ts, err := time.Parse(TimestampLayout, m[2])
	if err != nil {
		return FileName{}, fmt.Errorf("%w: bad timestamp in %q: %v", ErrInvalidFileName, name, err)
	}
	seq, err := strconv.Atoi(m[4])
	if err != nil {
		return FileName{}, fmt.Errorf("%w: bad sequence in %q", ErrInvalidFileName, name)
	}
	return FileName{Sender: m[1], Timestamp: ts, Recipient: m[3], Sequence: seq}, nil
}

// FormatFileName renders f; the wall-clock fields of f.Timestamp are used as is.
func FormatFileName(f FileName) (string, error) {
	if f.Sequence < 0 || f.Sequence > MaxSequence {
		return "", fmt.Errorf("%w: sequence %d out of range", ErrInvalidFileName, f.Sequence)
	}
	name := fmt.Sprintf("%s%s%s%05d.xml", f.Sender, f.Timestamp.Format(TimestampLayout), f.Recipient, f.Sequence)
	if !fileNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return name, nil
}
