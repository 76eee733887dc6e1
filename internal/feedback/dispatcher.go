// Package feedback turns timer feedback requests and tick events into sound,
// vibration and notifications according to the interference level.
package feedback

import (
	"context"
	"sync"
	"time"

	"focusflow/internal/audio"
	"focusflow/internal/core/model"
	"focusflow/internal/core/timekeeper"
	applog "focusflow/internal/log"

	"github.com/rs/zerolog"
)

const (
	subGoalFrequency   = 1200
	mainGoalFrequency  = 1500
	breakOverFrequency = 880

	mainGoalRun = 5
	// The second strong main-goal run starts after the first run plus a 1 s pause.
	mainGoalSecondRun = mainGoalRun*0.15 + 1.0
)

var (
	testPulse  = []time.Duration{50 * time.Millisecond}
	alertPulse = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
)

// Player plays synthesized sounds. *audio.Engine satisfies it.
type Player interface {
	PlayTick(offset float64)
	PlayAlert(frequency, offset float64)
	PlayAlertSequence(frequency float64, count int)
}

// Notifier shows system notifications.
type Notifier interface {
	Permission() model.NotificationPermission
	RequestPermission() model.NotificationPermission
	Show(title, body string)
}

// Haptics produces vibration patterns.
type Haptics interface {
	Vibrate(pattern ...time.Duration)
}

// Loop is a background beat loop such as *audio.Escapement.
type Loop interface {
	Start(ctx context.Context)
	Stop()
}

// Config contains the collaborators of a Dispatcher.
type Config struct {
	Player          Player
	Notifier        Notifier
	Haptics         Haptics
	SecondHandStyle model.SecondHandStyle
	// NewEscapement builds the beat loop for an escapement style. When nil and
	// Player is an audio.BeatScheduler, an audio.Escapement is used.
	NewEscapement func(style model.SecondHandStyle) Loop
}

// Dispatcher implements timekeeper.FeedbackSink.
type Dispatcher struct {
	mu            sync.Mutex
	player        Player
	notifier      Notifier
	haptics       Haptics
	style         model.SecondHandStyle
	newEscapement func(style model.SecondHandStyle) Loop
	logger        zerolog.Logger

	runCtx    context.Context
	lastState timekeeper.Snapshot
	loop      Loop
	loopStyle model.SecondHandStyle
}

// New creates a Dispatcher.
func New(config Config) *Dispatcher {
	if config.SecondHandStyle == "" {
		config.SecondHandStyle = model.SecondHandQuartzTick
	}
	dispatcher := &Dispatcher{
		player:        config.Player,
		notifier:      config.Notifier,
		haptics:       config.Haptics,
		style:         config.SecondHandStyle,
		newEscapement: config.NewEscapement,
		logger:        applog.WithComponent("feedback"),
	}
	if dispatcher.newEscapement == nil {
		if scheduler, ok := config.Player.(audio.BeatScheduler); ok {
			dispatcher.newEscapement = func(style model.SecondHandStyle) Loop {
				return audio.NewEscapement(scheduler, style, audio.EscapementConfig{})
			}
		}
	}
	return dispatcher
}

// Deliver alerts the user for request.
func (dispatcher *Dispatcher) Deliver(request timekeeper.FeedbackRequest) {
	level := request.Context.Level
	notify := level == model.InterferenceStrong && request.Context.Permission == model.PermissionGranted

	dispatcher.logger.Debug().
		Str("event", "feedback.deliver").
		Str("kind", string(request.Kind)).
		Str("level", string(level)).
		Bool("notify", notify).
		Msg("delivering feedback")

	if request.Kind == timekeeper.FeedbackBreakStarted {
		if notify {
			dispatcher.show(request)
		}
		return
	}

	if request.Kind == timekeeper.FeedbackTest {
		dispatcher.vibrate(testPulse...)
	} else {
		dispatcher.vibrate(alertPulse...)
	}
	if notify {
		dispatcher.show(request)
	}
	if level == model.InterferenceZero || dispatcher.player == nil {
		return
	}

	strong := level == model.InterferenceStrong
	switch request.Kind {
	case timekeeper.FeedbackSubGoal:
		if strong {
			dispatcher.player.PlayAlertSequence(subGoalFrequency, 3)
		} else {
			dispatcher.player.PlayAlert(subGoalFrequency, 0)
		}
	case timekeeper.FeedbackMainGoal:
		if strong {
			spacing := audio.AlertSpacing.Seconds()
			for index := 0; index < mainGoalRun; index++ {
				dispatcher.player.PlayAlert(mainGoalFrequency, float64(index)*spacing)
				dispatcher.player.PlayAlert(mainGoalFrequency, mainGoalSecondRun+float64(index)*spacing)
			}
		} else {
			dispatcher.player.PlayAlertSequence(mainGoalFrequency, 3)
		}
	case timekeeper.FeedbackBreakOver, timekeeper.FeedbackTest:
		if strong {
			dispatcher.player.PlayAlertSequence(breakOverFrequency, 2)
		} else {
			dispatcher.player.PlayAlert(breakOverFrequency, 0)
		}
	}
}

// SetSecondHandStyle switches between the quartz tick and escapement loops.
func (dispatcher *Dispatcher) SetSecondHandStyle(style model.SecondHandStyle) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	dispatcher.style = style
	dispatcher.reconcileLocked()
}

// Run consumes timer events until ctx is done or events is closed. It plays
// the quartz tick per tick event and keeps the escapement loop running while
// the timer is.
func (dispatcher *Dispatcher) Run(ctx context.Context, events <-chan timekeeper.Event) error {
	dispatcher.mu.Lock()
	dispatcher.runCtx = ctx
	dispatcher.mu.Unlock()

	defer func() {
		dispatcher.mu.Lock()
		dispatcher.runCtx = nil
		dispatcher.stopLoopLocked()
		dispatcher.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			dispatcher.handle(event)
		}
	}
}

func (dispatcher *Dispatcher) handle(event timekeeper.Event) {
	dispatcher.mu.Lock()
	dispatcher.lastState = event.State
	style := dispatcher.style
	dispatcher.reconcileLocked()
	dispatcher.mu.Unlock()

	if event.Type == timekeeper.EventTick &&
		style == model.SecondHandQuartzTick &&
		event.State.Interference.Level != model.InterferenceZero &&
		dispatcher.player != nil {
		dispatcher.player.PlayTick(0)
	}
}

// reconcileLocked starts or stops the escapement loop to match the last
// known timer state and the current style.
func (dispatcher *Dispatcher) reconcileLocked() {
	want := dispatcher.runCtx != nil &&
		dispatcher.newEscapement != nil &&
		dispatcher.lastState.Active &&
		dispatcher.lastState.Interference.Level != model.InterferenceZero &&
		dispatcher.style.IsEscapement()

	if dispatcher.loop != nil && (!want || dispatcher.loopStyle != dispatcher.style) {
		dispatcher.stopLoopLocked()
	}
	if want && dispatcher.loop == nil {
		dispatcher.loop = dispatcher.newEscapement(dispatcher.style)
		dispatcher.loopStyle = dispatcher.style
		dispatcher.loop.Start(dispatcher.runCtx)
		dispatcher.logger.Debug().Str("event", "escapement.started").Str("style", string(dispatcher.style)).Msg("escapement loop started")
	}
}

func (dispatcher *Dispatcher) stopLoopLocked() {
	if dispatcher.loop == nil {
		return
	}
	dispatcher.loop.Stop()
	dispatcher.loop = nil
	dispatcher.logger.Debug().Str("event", "escapement.stopped").Msg("escapement loop stopped")
}

func (dispatcher *Dispatcher) show(request timekeeper.FeedbackRequest) {
	if dispatcher.notifier == nil {
		return
	}
	dispatcher.notifier.Show(request.Title, request.Body)
}

func (dispatcher *Dispatcher) vibrate(pattern ...time.Duration) {
	if dispatcher.haptics == nil {
		return
	}
	dispatcher.haptics.Vibrate(pattern...)
}
