package audio

import (
	"context"
	"sync"
	"testing"
	"time"

	"focusflow/internal/core/clock"
	"focusflow/internal/core/model"
	"focusflow/internal/core/wallclock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeScheduler struct {
	mu    sync.Mutex
	now   float64
	beats []float64
}

func (scheduler *fakeScheduler) CurrentTime() float64 {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.now
}

func (scheduler *fakeScheduler) PlayEscapementBeatAt(at float64) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.beats = append(scheduler.beats, at)
}

func (scheduler *fakeScheduler) set(now float64) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.now = now
}

func (scheduler *fakeScheduler) scheduled() []float64 {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return append([]float64(nil), scheduler.beats...)
}

// onSecond is a wall clock sitting exactly on a second boundary.
func onSecond() *clock.MockClock {
	return clock.NewMockClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
}

func TestEscapementFillsLookaheadOnGrid(t *testing.T) {
	scheduler := &fakeScheduler{now: 2}
	escapement := NewEscapement(scheduler, model.SecondHandHighFreqEscapement, EscapementConfig{Clock: onSecond()})

	assert.Equal(t, 1, escapement.fill())
	scheduler.set(2.05)
	assert.Equal(t, 1, escapement.fill())
	scheduler.set(2.06)
	assert.Zero(t, escapement.fill())
	scheduler.set(2.2)
	assert.Equal(t, 1, escapement.fill())

	assert.Equal(t, []float64{2, 2.125, 2.25}, scheduler.scheduled())
}

func TestEscapementSkipsMissedBeats(t *testing.T) {
	scheduler := &fakeScheduler{now: 0}
	escapement := NewEscapement(scheduler, model.SecondHandTraditionalEscapement, EscapementConfig{Clock: onSecond()})

	escapement.fill()
	scheduler.set(1.7)
	assert.Zero(t, escapement.fill())
	scheduler.set(1.95)
	assert.Equal(t, 1, escapement.fill())

	assert.Equal(t, []float64{0, 2.0}, scheduler.scheduled())
}

func TestEscapementRateMatchesSecondHand(t *testing.T) {
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	for _, style := range []model.SecondHandStyle{
		model.SecondHandTraditionalEscapement,
		model.SecondHandHighFreqEscapement,
	} {
		t.Run(string(style), func(t *testing.T) {
			scheduler := &fakeScheduler{}
			escapement := NewEscapement(scheduler, style, EscapementConfig{Clock: onSecond()})
			for now := 0.0; now < 1.0; now += 0.025 {
				scheduler.set(now)
				escapement.fill()
			}

			beats := scheduler.scheduled()
			inSecond := 0
			for _, at := range beats {
				if at < 1.0 {
					inSecond++
				}
			}

			visualSteps := map[float64]struct{}{}
			for ms := 0; ms < 1000; ms++ {
				hands := wallclock.HandsAt(base.Add(time.Duration(ms)*time.Millisecond), style)
				visualSteps[hands.Seconds] = struct{}{}
			}

			assert.Equal(t, len(visualSteps), inSecond)
			assert.Equal(t, time.Second/time.Duration(style.StepsPerSecond()), escapement.Interval())
		})
	}
}

func TestEscapementFirstBeatFollowsVisibleStep(t *testing.T) {
	wall := clock.NewMockClock(time.Date(2024, 3, 10, 9, 0, 0, 300_000_000, time.UTC))
	scheduler := &fakeScheduler{now: 2}
	escapement := NewEscapement(scheduler, model.SecondHandHighFreqEscapement, EscapementConfig{Clock: wall})

	assert.Equal(t, 1, escapement.fill())
	beats := scheduler.scheduled()
	require.Len(t, beats, 1)
	assert.InDelta(t, 2.075, beats[0], 1e-9)

	// The visible hand steps at .375 s, which is 75 ms after the wall reading.
	stepAt := wall.Now().Add(75 * time.Millisecond)
	before := wallclock.HandsAt(stepAt.Add(-time.Millisecond), model.SecondHandHighFreqEscapement)
	after := wallclock.HandsAt(stepAt, model.SecondHandHighFreqEscapement)
	assert.Greater(t, after.Seconds, before.Seconds)
}

func TestEscapementLoopWakesOnClockTicks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	wall := onSecond()
	scheduler := &fakeScheduler{}
	escapement := NewEscapement(scheduler, model.SecondHandTraditionalEscapement, EscapementConfig{Clock: wall})

	escapement.Start(context.Background())
	require.Eventually(t, func() bool {
		return wall.Pending() == 1 && len(scheduler.scheduled()) == 1
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, []float64{0}, scheduler.scheduled())

	scheduler.set(0.45)
	wall.Advance(defaultWake)
	require.Eventually(t, func() bool { return len(scheduler.scheduled()) == 2 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, []float64{0, 0.5}, scheduler.scheduled())

	escapement.Stop()
	assert.Zero(t, wall.Pending())
}

func TestEscapementStopWaitsForLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	scheduler := &fakeScheduler{}
	escapement := NewEscapement(scheduler, model.SecondHandTraditionalEscapement, EscapementConfig{Wake: time.Millisecond})

	escapement.Start(context.Background())
	escapement.Start(context.Background())
	require.Eventually(t, func() bool { return len(scheduler.scheduled()) > 0 }, 5*time.Second, time.Millisecond)

	escapement.Stop()
	escapement.Stop()
	count := len(scheduler.scheduled())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, count, len(scheduler.scheduled()))
}
