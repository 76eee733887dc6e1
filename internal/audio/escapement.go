package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"focusflow/internal/core/clock"
	"focusflow/internal/core/model"
)

const (
	defaultWake      = 25 * time.Millisecond
	defaultLookahead = 100 * time.Millisecond
)

// BeatScheduler schedules beats against an audio clock. *Engine satisfies it.
type BeatScheduler interface {
	CurrentTime() float64
	PlayEscapementBeatAt(at float64)
}

// EscapementConfig contains runtime options for Escapement.
type EscapementConfig struct {
	Wake      time.Duration
	Lookahead time.Duration
	Clock     clock.Clock
}

// Escapement keeps escapement beats scheduled slightly ahead of the audio
// clock on an exact grid, so timer wake-up jitter never reaches the sound.
type Escapement struct {
	target    BeatScheduler
	clock     clock.Clock
	steps     float64
	interval  float64
	lookahead float64
	wake      time.Duration

	mu      sync.Mutex
	next    float64
	primed  bool
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewEscapement creates a scheduler beating at style's seconds-hand step rate.
func NewEscapement(target BeatScheduler, style model.SecondHandStyle, config EscapementConfig) *Escapement {
	if config.Wake <= 0 {
		config.Wake = defaultWake
	}
	if config.Lookahead <= 0 {
		config.Lookahead = defaultLookahead
	}
	if config.Clock == nil {
		config.Clock = clock.NewRealClock()
	}
	steps := style.StepsPerSecond()
	if steps <= 0 {
		steps = 1
	}
	return &Escapement{
		target:    target,
		clock:     config.Clock,
		steps:     float64(steps),
		interval:  1 / float64(steps),
		lookahead: config.Lookahead.Seconds(),
		wake:      config.Wake,
	}
}

// Interval returns the beat spacing.
func (escapement *Escapement) Interval() time.Duration {
	return time.Duration(escapement.interval * float64(time.Second))
}

// Start launches the scheduling loop. It does nothing if already running.
func (escapement *Escapement) Start(ctx context.Context) {
	escapement.mu.Lock()
	defer escapement.mu.Unlock()
	if escapement.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	escapement.cancel = cancel
	escapement.done = make(chan struct{})
	escapement.running = true
	escapement.primed = false
	go escapement.loop(loopCtx, escapement.done)
}

// Stop cancels the loop and waits for it to exit.
func (escapement *Escapement) Stop() {
	escapement.mu.Lock()
	if !escapement.running {
		escapement.mu.Unlock()
		return
	}
	cancel, done := escapement.cancel, escapement.done
	escapement.running = false
	escapement.mu.Unlock()

	cancel()
	<-done
}

func (escapement *Escapement) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := escapement.clock.NewTicker(escapement.wake)
	defer ticker.Stop()

	escapement.fill()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			escapement.fill()
		}
	}
}

// fill schedules every beat that falls inside the lookahead window and
// returns how many it scheduled. Missed beats are skipped, keeping the grid.
func (escapement *Escapement) fill() int {
	now := escapement.target.CurrentTime()

	escapement.mu.Lock()
	if !escapement.primed {
		escapement.next = now + escapement.untilNextStep()
		escapement.primed = true
	} else if escapement.next < now {
		missed := math.Ceil((now - escapement.next) / escapement.interval)
		escapement.next += missed * escapement.interval
	}
	var beats []float64
	for escapement.next < now+escapement.lookahead {
		beats = append(beats, escapement.next)
		escapement.next += escapement.interval
	}
	escapement.mu.Unlock()

	for _, at := range beats {
		escapement.target.PlayEscapementBeatAt(at)
	}
	return len(beats)
}

// untilNextStep returns the seconds until the wall clock reaches the next
// seconds-hand step, so the first beat lands with the visible step.
func (escapement *Escapement) untilNextStep() float64 {
	subSecond := float64(escapement.clock.Now().Nanosecond()) / float64(time.Second)
	phase := math.Mod(subSecond*escapement.steps, 1)
	if phase < 1e-9 {
		return 0
	}
	return (1 - phase) * escapement.interval
}
