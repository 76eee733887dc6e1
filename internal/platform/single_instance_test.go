package platform

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func uniqueName(t *testing.T) string {
	return fmt.Sprintf("focusflow-test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestSecondAcquireFails(t *testing.T) {
	name := uniqueName(t)
	guard, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	defer guard.Release()

	_, err = AcquireSingleInstance(name)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, guard.Release())
	require.NoError(t, guard.Release())

	again, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestPortIsStable(t *testing.T) {
	port := portFromName("FocusFlow")
	assert.Equal(t, port, portFromName("FocusFlow"))
	assert.GreaterOrEqual(t, port, 20000)
	assert.LessOrEqual(t, port, 39999)
}

func TestActivateWakesServingInstance(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	name := uniqueName(t)
	guard, err := AcquireSingleInstance(name)
	require.NoError(t, err)

	activated := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- guard.Serve(ctx, func() { activated <- struct{}{} }) }()

	require.NoError(t, ActivateRunning(name))
	select {
	case <-activated:
	case <-time.After(5 * time.Second):
		t.Fatal("activation was not delivered")
	}

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, guard.Release())
}

func TestNilGuard(t *testing.T) {
	var guard *InstanceGuard
	assert.NoError(t, guard.Release())
	assert.Empty(t, guard.Address())
	assert.NoError(t, guard.Serve(context.Background(), func() {}))
}
