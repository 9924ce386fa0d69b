package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonths(t *testing.T) {
	tests := []struct {
		name    string
		period  string
		count   int
		want    int
		wantErr bool
	}{
		{name: "month", period: "month", count: 1, want: 1},
		{name: "zero count defaults to one", period: "month", count: 0, want: 1},
		{name: "quarter", period: "quarter", count: 1, want: 3},
		{name: "two quarters", period: "quarter", count: 2, want: 6},
		{name: "year", period: "year", count: 1, want: 12},
		{name: "unknown", period: "week", count: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Months(tt.period, tt.count)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnd(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		period string
		count  int
		want   time.Time
	}{
		{
			name:   "plain month",
			start:  time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
			period: "month",
			count:  1,
			want:   time.Date(2025, 4, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:   "end of january clamps to february",
			start:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			period: "month",
			count:  1,
			want:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "leap year february",
			start:  time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
			period: "month",
			count:  1,
			want:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "quarter crosses year",
			start:  time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC),
			period: "quarter",
			count:  1,
			want:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "year",
			start:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			period: "year",
			count:  1,
			want:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := End(tt.start, tt.period, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := End(time.Now(), "decade", 1)
	assert.Error(t, err)
}

func TestProviderInterval(t *testing.T) {
	interval, count, err := ProviderInterval("quarter", 1)
	require.NoError(t, err)
	assert.Equal(t, "month", interval)
	assert.Equal(t, 3, count)

	interval, count, err = ProviderInterval("year", 2)
	require.NoError(t, err)
	assert.Equal(t, "year", interval)
	assert.Equal(t, 2, count)

	_, _, err = ProviderInterval("", 1)
	assert.Error(t, err)
}
