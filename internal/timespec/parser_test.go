package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	now := time.Date(2025, 10, 29, 14, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		spec     string
		expected time.Time
		wantErr  bool
	}{
		{name: "duration", spec: "1h30m", expected: now.Add(-90 * time.Minute)},
		{name: "rfc3339", spec: "2025-10-29T13:00:00Z", expected: time.Date(2025, 10, 29, 13, 0, 0, 0, time.UTC)},
		{name: "empty", spec: "", wantErr: true},
		{name: "negative", spec: "-5m", wantErr: true},
		{name: "garbage", spec: "yesterday", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.spec, now)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(got), "got %v", got)
		})
	}
}

func TestStreamID(t *testing.T) {
	now := time.UnixMilli(1700000060000)

	id, err := StreamID("", now)
	require.NoError(t, err)
	assert.Equal(t, "$", id)

	id, err = StreamID(All, now)
	require.NoError(t, err)
	assert.Equal(t, "0-0", id)

	id, err = StreamID("1m", now)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-0", id)

	_, err = StreamID("soon", now)
	assert.Error(t, err)
}
