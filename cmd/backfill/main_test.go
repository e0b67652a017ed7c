package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"runpool/ingestion/internal/config"
	"runpool/ingestion/internal/lock"
)

func TestBackfillDates(t *testing.T) {
	yesterday := time.Date(2024, 7, 4, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     string
		end       string
		wantFirst string
		wantLast  string
		wantLen   int
		wantErr   bool
	}{
		{name: "explicit range", start: "2024-07-01", end: "2024-07-03", wantFirst: "2024-07-01", wantLast: "2024-07-03", wantLen: 3},
		{name: "end defaults to yesterday", start: "2024-07-02", wantFirst: "2024-07-02", wantLast: "2024-07-04", wantLen: 3},
		{name: "reversed range", start: "2024-07-03", end: "2024-07-01", wantFirst: "2024-07-01", wantLast: "2024-07-03", wantLen: 3},
		{name: "single day", start: "2024-07-01", end: "2024-07-01", wantFirst: "2024-07-01", wantLast: "2024-07-01", wantLen: 1},
		{name: "missing start", wantErr: true},
		{name: "bad start", start: "07/01/2024", wantErr: true},
		{name: "bad end", start: "2024-07-01", end: "tomorrow", wantErr: true},
		{name: "too long", start: "2023-01-01", end: "2024-07-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates, err := backfillDates(tt.start, tt.end, yesterday)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, dates, tt.wantLen)
			assert.Equal(t, tt.wantFirst, dates[0].Format(dateLayout))
			assert.Equal(t, tt.wantLast, dates[len(dates)-1].Format(dateLayout))
		})
	}
}

func TestCheckLockBackend(t *testing.T) {
	logger := zap.NewNop()
	local := &config.Config{LockBackend: config.LockBackendLocal}

	err := checkLockBackend(local, false, logger)
	require.ErrorIs(t, err, lock.ErrProcessLocal)
	assert.Contains(t, err.Error(), "BACKFILL_ALLOW_LOCAL_LOCK")

	assert.NoError(t, checkLockBackend(local, true, logger), "Opt-in runs with a warning")
	assert.NoError(t, checkLockBackend(&config.Config{LockBackend: config.LockBackendRedis}, false, logger))
}
