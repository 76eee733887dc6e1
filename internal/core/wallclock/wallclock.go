// Package wallclock derives analog hand angles from the wall clock and samples
// them once per animation frame.
package wallclock

import (
	"context"
	"math"
	"sync"
	"time"

	"focusflow/internal/core/clock"
	"focusflow/internal/core/model"
)

// DefaultFrameInterval is one frame at 60 Hz.
const DefaultFrameInterval = time.Second / 60

// Hands holds hand rotations in degrees, clockwise from twelve o'clock.
type Hands struct {
	Time    time.Time
	Seconds float64
	Minutes float64
	Hours   float64
}

// HandsAt computes the hand angles for t. The seconds hand moves continuously
// for the sweep style and in style.StepsPerSecond() discrete steps otherwise.
func HandsAt(t time.Time, style model.SecondHandStyle) Hands {
	seconds := float64(t.Second()) + float64(t.Nanosecond())/float64(time.Second)
	minutes := float64(t.Minute())

	var secondsAngle float64
	if steps := style.StepsPerSecond(); steps == 0 {
		secondsAngle = seconds * 6
	} else {
		perStep := 6 / float64(steps)
		secondsAngle = math.Floor(seconds*float64(steps)) * perStep
	}

	return Hands{
		Time:    t,
		Seconds: secondsAngle,
		Minutes: minutes*6 + seconds*0.1,
		Hours:   float64(t.Hour()%12)*30 + minutes*0.5,
	}
}

// Config contains runtime options for Sampler.
type Config struct {
	FrameInterval time.Duration
	Clock         clock.Clock
}

// Sampler publishes hand angles once per frame, independently of the 1 Hz timer.
type Sampler struct {
	mu       sync.Mutex
	style    model.SecondHandStyle
	interval time.Duration
	clock    clock.Clock
	onFrame  func(Hands)
}

// NewSampler creates a Sampler calling onFrame every frame.
func NewSampler(style model.SecondHandStyle, options Config, onFrame func(Hands)) *Sampler {
	if options.FrameInterval <= 0 {
		options.FrameInterval = DefaultFrameInterval
	}
	if options.Clock == nil {
		options.Clock = clock.NewRealClock()
	}
	return &Sampler{
		style:    style,
		interval: options.FrameInterval,
		clock:    options.Clock,
		onFrame:  onFrame,
	}
}

// SetStyle switches the seconds-hand style from the next frame on.
func (sampler *Sampler) SetStyle(style model.SecondHandStyle) {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	sampler.style = style
}

// Sample computes the hands for the current time.
func (sampler *Sampler) Sample() Hands {
	sampler.mu.Lock()
	style := sampler.style
	sampler.mu.Unlock()
	return HandsAt(sampler.clock.Now(), style)
}

// Run samples every frame until ctx is cancelled.
func (sampler *Sampler) Run(ctx context.Context) error {
	ticker := sampler.clock.NewTicker(sampler.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if sampler.onFrame != nil {
				sampler.onFrame(sampler.Sample())
			}
		}
	}
}
