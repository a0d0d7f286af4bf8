package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"calendar date", "2024-06-01", NewDate(2024, time.June, 1), false},
		{"rfc3339 truncated", "2024-06-01T18:30:00Z", NewDate(2024, time.June, 1), false},
		{"garbage", "next tuesday", Date{}, true},
		{"empty", "", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %s", got)
		})
	}
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Due *Date `json:"due"`
	}

	due := NewDate(2024, time.December, 24)
	data, err := json.Marshal(payload{Due: &due})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-12-24"}`, string(data))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2024-12-24"}`), &decoded))
	require.NotNil(t, decoded.Due)
	assert.Equal(t, "2024-12-24", decoded.Due.String())

	decoded = payload{}
	require.NoError(t, json.Unmarshal([]byte(`{"due":null}`), &decoded))
	assert.Nil(t, decoded.Due, "null should clear the date")

	assert.Error(t, json.Unmarshal([]byte(`{"due":"24/12/2024"}`), &decoded))
}

func TestDateScan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-05", d.String())

	require.NoError(t, d.Scan("2024-03-06 00:00:00+00:00"))
	assert.Equal(t, "2024-03-06", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-07")))
	assert.Equal(t, "2024-03-07", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("bogus"))
}

func TestDateValue(t *testing.T) {
	value, err := NewDate(2024, time.June, 1).Value()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), value)
	assert.Equal(t, "date", Date{}.GormDataType())
}
