package timefmt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       any
		wantDate string
		wantTime string
	}{
		{"2023-05-01T12:30:00.123Z", "2023-05-01", "12:30:00"},
		{"2023-05-01T12:30:00Z", "2023-05-01", "12:30:00"},
		{"2023-05-01T12:30:00", "2023-05-01", "12:30:00"},
		{"2023-05-01T12:30:00.000+00:00", "2023-05-01", "12:30:00"},
		{"2023-05-01T12:30:00-07:00", "2023-05-01", "12:30:00"},
		{"2023-05-01 08:15:59", "2023-05-01", "08:15:59"},
		{"2023-05-01T10:11", "2023-05-01", "10:11:00"},
		{"2023-05-01 10:11", "2023-05-01", "10:11:00"},
		{"  2019-01-15 ", "2019-01-15", "00:00:00"},
		{time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), "2021-03-04", "05:06:07"},
	}

	for _, tt := range tests {
		d, c, err := Standardize(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.wantDate, d, "%v", tt.in)
		assert.Equal(t, tt.wantTime, c, "%v", tt.in)
	}
}

func TestStandardize_TimePointer(t *testing.T) {
	t.Parallel()

	ts := time.Date(2020, 12, 31, 23, 59, 59, 0, time.UTC)
	d, c, err := Standardize(&ts)
	require.NoError(t, err)
	assert.Equal(t, "2020-12-31", d)
	assert.Equal(t, "23:59:59", c)

	var nilTime *time.Time
	_, _, err = Standardize(nilTime)
	require.Error(t, err)
}

func TestStandardize_Unparseable(t *testing.T) {
	t.Parallel()

	for _, in := range []any{"05/01/2023", "", "yesterday", 12345, nil} {
		_, _, err := Standardize(in)
		require.Error(t, err, "%v", in)
		var ute *UnparseableTimestampError
		assert.True(t, errors.As(err, &ute), "%v", in)
	}
}
