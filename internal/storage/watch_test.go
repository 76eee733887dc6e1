package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"focusflow/internal/ui/preferences"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatchSettingsReloadsOnReplace(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), settingsFileName)
	require.NoError(t, SaveSettingsFile(path, preferences.DefaultSettings()))

	var mu sync.Mutex
	var seen []preferences.Settings
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchSettings(ctx, path, func(settings preferences.Settings) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, settings)
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := preferences.DefaultSettings()
	for goal := 30; goal <= 32; goal++ {
		updated.GoalMinutes = goal
		require.NoError(t, SaveSettingsFile(path, updated))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 1, "rapid writes are debounced into one reload")
	assert.Equal(t, 32, seen[0].GoalMinutes)
}

func TestWatchSettingsIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, settingsFileName)

	called := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchSettings(ctx, path, func(preferences.Settings) { called <- struct{}{} })
	}()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, SaveSettingsFile(filepath.Join(dir, "other.yaml"), preferences.DefaultSettings()))

	select {
	case <-called:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(WatchDebounce + 300*time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}
