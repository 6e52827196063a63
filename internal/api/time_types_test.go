package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexTime_UnmarshalJSON_RFC3339(t *testing.T) {
	input := `"2024-01-15T10:30:00Z"`
	var ft FlexTime
	err := json.Unmarshal([]byte(input), &ft)
	require.NoError(t, err)

	expected := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, expected, ft.Time)
}

func TestFlexTime_UnmarshalJSON_RFC3339Nano(t *testing.T) {
	input := `"2024-01-15T10:30:00.123456789Z"`
	var ft FlexTime
	err := json.Unmarshal([]byte(input), &ft)
	require.NoError(t, err)

	expected := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	assert.Equal(t, expected, ft.Time)
}

func TestFlexTime_UnmarshalJSON_DateOnly(t *testing.T) {
	var ft FlexTime
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-29"`), &ft))

	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), ft.Time)
}

func TestFlexTime_UnmarshalJSON_EpochMs(t *testing.T) {
	for _, input := range []string{`1705314600000`, `"1705314600000"`} {
		var ft FlexTime
		require.NoError(t, json.Unmarshal([]byte(input), &ft))
		assert.True(t, time.UnixMilli(1705314600000).Equal(ft.Time), input)
	}
}

func TestFlexTime_UnmarshalJSON_Invalid(t *testing.T) {
	var ft FlexTime
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ft))
	assert.Error(t, json.Unmarshal([]byte(`true`), &ft))
}

func TestFlexTime_MarshalJSON(t *testing.T) {
	ft := FlexTime{Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	data, err := json.Marshal(ft)
	require.NoError(t, err)

	assert.Equal(t, `"2024-01-15T10:30:00Z"`, string(data))
}

func TestDate_RoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2023-09-01"`), &d))
	assert.Equal(t, time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), d.Time)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2023-09-01"`, string(data))
}

func TestDate_AcceptsTimestamp(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2023-09-01T23:15:00Z"`), &d))
	assert.Equal(t, time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), d.Time)

	assert.Error(t, json.Unmarshal([]byte(`"01/09/2023"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20230901`), &d))
}
