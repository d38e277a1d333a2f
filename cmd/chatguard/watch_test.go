package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/chatguard/internal/availability"
	"github.com/Veraticus/chatguard/internal/metrics"
)

func TestWatchLoop_PrintsEverySnapshot(t *testing.T) {
	checked := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	updates := make(chan availability.Snapshot, 3)
	updates <- availability.Snapshot{State: availability.StateChecking}
	updates <- availability.Snapshot{State: availability.StateOnline, LastCheckedAt: checked}
	updates <- availability.Snapshot{
		State:         availability.StateOffline,
		LastCheckedAt: checked.Add(time.Minute),
		Err:           errors.New("HTTP 503: Service Unavailable"),
	}
	close(updates)

	m := metrics.New()
	var out bytes.Buffer
	require.NoError(t, watchLoop(context.Background(), &out, updates, m))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Checking backend...")
	assert.Contains(t, lines[1], "Backend online · 09:30")
	assert.Contains(t, lines[2], "Backend offline · 09:31")
	assert.Contains(t, lines[2], "HTTP 503: Service Unavailable")

	assert.Equal(t, 0.0, promtest.ToFloat64(m.BackendUp))
	assert.Equal(t, float64(checked.Add(time.Minute).Unix()), promtest.ToFloat64(m.LastCheck))
}

func TestWatchLoop_TracksBackendUp(t *testing.T) {
	m := metrics.New()
	updates := make(chan availability.Snapshot)
	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- watchLoop(context.Background(), &out, updates, m)
	}()

	updates <- availability.Snapshot{State: availability.StateOnline, LastCheckedAt: time.Now()}
	assert.Eventually(t, func() bool {
		return promtest.ToFloat64(m.BackendUp) == 1
	}, time.Second, 5*time.Millisecond)

	updates <- availability.Snapshot{State: availability.StateOffline, LastCheckedAt: time.Now()}
	assert.Eventually(t, func() bool {
		return promtest.ToFloat64(m.BackendUp) == 0
	}, time.Second, 5*time.Millisecond)

	close(updates)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch loop did not return after updates closed")
	}
}

func TestWatchLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, watchLoop(ctx, &out, make(chan availability.Snapshot), metrics.New()))
	assert.Empty(t, out.String())
}
