package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRoundTrip(t *testing.T) {
	deadline := time.Date(2024, 4, 18, 15, 30, 0, 0, time.UTC)

	d := DateFrom(&deadline)
	require.True(t, d.Valid)

	value, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-04-18", value)

	var scanned Date
	require.NoError(t, scanned.Scan(value))
	ptr := scanned.Ptr()
	require.NotNil(t, ptr)
	assert.Equal(t, time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC), *ptr)
}

func TestDateNil(t *testing.T) {
	d := DateFrom(nil)
	assert.False(t, d.Valid)
	assert.Nil(t, d.Ptr())

	value, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var scanned Date
	require.NoError(t, scanned.Scan(nil))
	assert.False(t, scanned.Valid)
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Date(2024, 4, 18, 15, 30, 45, 123456789, time.UTC)

	ts := Timestamp{Time: now}
	value, err := ts.Value()
	require.NoError(t, err)

	var scanned Timestamp
	require.NoError(t, scanned.Scan(value))
	assert.True(t, scanned.Time.Equal(now))
}

// Stored timestamps are fixed-width, so string ordering in SQLite matches
// time ordering.
func TestTimestampLexicographicOrder(t *testing.T) {
	early := Timestamp{Time: time.Date(2024, 4, 18, 9, 0, 0, 5, time.UTC)}
	late := Timestamp{Time: time.Date(2024, 4, 18, 10, 0, 0, 0, time.UTC)}

	earlyVal, err := early.Value()
	require.NoError(t, err)
	lateVal, err := late.Value()
	require.NoError(t, err)

	assert.Less(t, earlyVal.(string), lateVal.(string))
}
