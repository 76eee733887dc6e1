package wallclock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"focusflow/internal/core/clock"
	"focusflow/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHandsAt(t *testing.T) {
	at := time.Date(2024, 3, 10, 15, 20, 30, 600_000_000, time.UTC)

	cases := []struct {
		style   model.SecondHandStyle
		seconds float64
	}{
		{model.SecondHandQuartzTick, 180},
		{model.SecondHandQuartzSweep, 183.6},
		{model.SecondHandTraditionalEscapement, 183},
		{model.SecondHandHighFreqEscapement, 183},
	}
	for _, tc := range cases {
		t.Run(string(tc.style), func(t *testing.T) {
			hands := HandsAt(at, tc.style)
			assert.InDelta(t, tc.seconds, hands.Seconds, 1e-9)
			assert.InDelta(t, 20*6+30.6*0.1, hands.Minutes, 1e-9)
			assert.InDelta(t, 3*30+20*0.5, hands.Hours, 1e-9)
		})
	}
}

func TestVisualStepsMatchStepsPerSecond(t *testing.T) {
	base := time.Date(2024, 3, 10, 9, 0, 7, 0, time.UTC)
	for _, style := range []model.SecondHandStyle{
		model.SecondHandQuartzTick,
		model.SecondHandTraditionalEscapement,
		model.SecondHandHighFreqEscapement,
	} {
		distinct := map[float64]struct{}{}
		for ms := 0; ms < 1000; ms++ {
			hands := HandsAt(base.Add(time.Duration(ms)*time.Millisecond), style)
			distinct[hands.Seconds] = struct{}{}
		}
		assert.Len(t, distinct, style.StepsPerSecond(), string(style))
	}
}

func TestSamplerUsesClockAndStyle(t *testing.T) {
	mock := clock.NewMockClock(time.Date(2024, 3, 10, 9, 0, 30, 250_000_000, time.UTC))
	sampler := NewSampler(model.SecondHandQuartzSweep, Config{Clock: mock}, nil)

	assert.InDelta(t, 181.5, sampler.Sample().Seconds, 1e-9)
	sampler.SetStyle(model.SecondHandQuartzTick)
	assert.InDelta(t, 180, sampler.Sample().Seconds, 1e-9)
}

func TestSamplerRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var frames atomic.Int32
	enough := make(chan struct{})
	sampler := NewSampler(model.SecondHandQuartzTick, Config{FrameInterval: time.Millisecond}, func(Hands) {
		if frames.Add(1) == 3 {
			close(enough)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sampler.Run(ctx) }()

	select {
	case <-enough:
	case <-time.After(5 * time.Second):
		t.Fatal("sampler produced no frames")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestSamplerRunFollowsClockTicks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	start := time.Date(2024, 3, 10, 9, 0, 30, 0, time.UTC)
	mock := clock.NewMockClock(start)
	frames := make(chan Hands, 4)
	sampler := NewSampler(model.SecondHandQuartzSweep, Config{Clock: mock, FrameInterval: 250 * time.Millisecond}, func(hands Hands) {
		frames <- hands
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sampler.Run(ctx) }()
	require.Eventually(t, func() bool { return mock.Pending() == 1 }, 5*time.Second, time.Millisecond)

	mock.Advance(250 * time.Millisecond)
	select {
	case hands := <-frames:
		assert.Equal(t, start.Add(250*time.Millisecond), hands.Time)
		assert.InDelta(t, 181.5, hands.Seconds, 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame after the clock ticked")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, mock.Pending())
}
