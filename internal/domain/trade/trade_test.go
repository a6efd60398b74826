package trade

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_CheckFields(t *testing.T) {
	valid := func() *Event {
		return &Event{
			TradeID:        "T1",
			Version:        1,
			CounterPartyID: "CP-1",
			BookID:         "B1",
			MaturityDate:   NewDate(2026, time.September, 30),
			CreatedDate:    NewDate(2026, time.August, 31),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr error
	}{
		{"valid", func(e *Event) {}, nil},
		{"missing trade id", func(e *Event) { e.TradeID = "" }, ErrEmptyTradeID},
		{"missing counterparty", func(e *Event) { e.CounterPartyID = "" }, ErrEmptyCounterPartyID},
		{"missing book", func(e *Event) { e.BookID = "" }, ErrEmptyBookID},
		{"trade id too long", func(e *Event) { e.TradeID = strings.Repeat("x", 51) }, ErrIDTooLong},
		{"zero version", func(e *Event) { e.Version = 0 }, ErrInvalidVersion},
		{"negative version", func(e *Event) { e.Version = -1 }, ErrInvalidVersion},
		{"missing maturity date", func(e *Event) { e.MaturityDate = Date{} }, ErrMissingMaturityDate},
		{"missing created date", func(e *Event) { e.CreatedDate = Date{} }, ErrMissingCreatedDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			err := e.CheckFields()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEvent_Record(t *testing.T) {
	e := &Event{
		TradeID:        "T1",
		Version:        2,
		CounterPartyID: "CP-1",
		BookID:         "B1",
		MaturityDate:   NewDate(2026, time.September, 30),
		CreatedDate:    NewDate(2026, time.August, 31),
		Expired:        false,
	}

	rec := e.Record()

	assert.Equal(t, e.TradeID, rec.TradeID)
	assert.Equal(t, e.Version, rec.Version)
	assert.Equal(t, e.CounterPartyID, rec.CounterPartyID)
	assert.Equal(t, e.BookID, rec.BookID)
	assert.Equal(t, e.MaturityDate, rec.MaturityDate)
	assert.Equal(t, e.CreatedDate, rec.CreatedDate)
	assert.False(t, rec.Expired)
	assert.True(t, rec.LastUpdated.IsZero(), "LastUpdated belongs to the store")
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2026, time.September, 30)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-09-30"`, string(data))

	var decoded Date
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, d, decoded)
}

func TestDate_UnmarshalInvalid(t *testing.T) {
	var d Date
	err := json.Unmarshal([]byte(`"30/09/2026"`), &d)
	assert.Error(t, err)
}

func TestDate_Before(t *testing.T) {
	earlier := NewDate(2026, time.March, 1)
	later := NewDate(2026, time.March, 2)

	assert.True(t, earlier.Before(later))
	assert.False(t, later.Before(earlier))
	assert.False(t, earlier.Before(earlier))
}

func TestDateOf_DropsTimeComponent(t *testing.T) {
	ts := time.Date(2026, time.March, 10, 23, 59, 58, 123, time.UTC)
	d := DateOf(ts)
	assert.Equal(t, NewDate(2026, time.March, 10), d)
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2026, time.March, 10), d)

	require.NoError(t, d.Scan("2026-04-01"))
	assert.Equal(t, NewDate(2026, time.April, 1), d)

	assert.Error(t, d.Scan(42))
}
