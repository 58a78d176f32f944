package handlers

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the wire format of Timestamp: ISO-8601 in UTC with
// millisecond precision, the way browsers serialise Date values.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp is a time.Time that marshals as TimestampLayout.
type Timestamp struct {
	time.Time
}

// Date returns the Timestamp for midnight UTC on the given day.
func Date(year int, month time.Month, day int) Timestamp {
	return Timestamp{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp must be a JSON string: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// SampleRecord is the row shape returned by the sample query endpoint.
type SampleRecord struct {
	UserID int       `json:"userId"`
	ID     int       `json:"id"`
	Date   Timestamp `json:"date"`
	Bool   bool      `json:"bool"`
}

// SampleRecords returns the canned sample query result. Every call returns a
// fresh slice with the same contents.
func SampleRecords() []SampleRecord {
	return []SampleRecord{
		{UserID: 1234, ID: 1, Date: Date(1970, time.January, 1), Bool: true},
		{UserID: 9876, ID: 2, Date: Date(2023, time.December, 31), Bool: false},
	}
}
