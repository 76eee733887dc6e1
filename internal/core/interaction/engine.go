// Package interaction turns knob, drop-zone, undo and long-press gestures into
// timer transitions. It holds only ephemeral UI state and never mutates the
// timer directly.
package interaction

import (
	"math"
	"sync"
	"time"

	"focusflow/internal/core/clock"
	"focusflow/internal/core/model"
	"focusflow/internal/core/timekeeper"
	applog "focusflow/internal/log"

	"github.com/rs/zerolog"
)

const (
	keyStep       = 60
	keyShiftStep  = 300
	wheelStep     = 15
	dragTickPx    = 15.0
	dragTickStep  = 15
	dragScale     = 40.0
	dragExpansion = 1.5
	wheelTexture  = 0.5

	adjustPulse = 10 * time.Millisecond
	armPulse    = 50 * time.Millisecond
)

// Timer is the subset of the timer state machine the engine drives.
type Timer interface {
	Snapshot() timekeeper.Snapshot
	SetActive(active bool)
	AdjustTime(delta int)
	UndoAdjustment(amount int)
	StartBreak(feedback model.FeedbackContext)
	SetGoalAndStartBreak(goalSeconds int, feedback model.FeedbackContext)
	EndBreakAndStartNext(feedback model.FeedbackContext)
	UndoLastBreak()
	TestFeedback(feedback model.FeedbackContext)
	SetInterference(feedback model.FeedbackContext)
}

// Haptics produces vibration pulses. Platforms without a vibration motor use a no-op.
type Haptics interface {
	Vibrate(pattern ...time.Duration)
}

// Permissions exposes the platform notification permission.
type Permissions interface {
	Permission() model.NotificationPermission
	RequestPermission() model.NotificationPermission
}

// Config contains runtime options for Engine.
type Config struct {
	Clock        clock.Clock
	Haptics      Haptics
	Permissions  Permissions
	Interference model.InterferenceLevel
}

// KnobState is the adjustment knob's state.
type KnobState string

const (
	KnobClosed   KnobState = "closed"
	KnobOpen     KnobState = "open"
	KnobDragging KnobState = "dragging"
)

// UndoKind identifies what the pending undo reverses.
type UndoKind string

const (
	UndoNone       UndoKind = ""
	UndoAdjustment UndoKind = "adjustment"
	UndoBreakStart UndoKind = "break_start"
)

// Key is a keyboard key the knob reacts to.
type Key string

const (
	KeyUp     Key = "up"
	KeyDown   Key = "down"
	KeyLeft   Key = "left"
	KeyRight  Key = "right"
	KeyEnter  Key = "enter"
	KeySpace  Key = "space"
	KeyEscape Key = "escape"
)

// Action is a long-press button action.
type Action string

const (
	ActionUndo       Action = "undo"
	ActionStartBreak Action = "start_break"
)

// State is a read-only view of the engine for rendering.
type State struct {
	Knob                    KnobState
	PendingDelta            int
	DisplayedTime           int
	DeltaMinuteHandRotation float64
	TextureOffset           float64
	DropZoneHovered         bool
	DropZoneArmed           bool
	Undo                    UndoKind
	UndoExpiresAt           time.Time
	Pressing                Action
	Interference            model.InterferenceLevel
}

type dragState struct {
	startY       float64
	lastTickY    float64
	initialDelta int
	smoothOffset float64
}

type undoSlot struct {
	kind      UndoKind
	amount    int
	expiresAt time.Time
	timer     clock.Timer
}

// Engine is the interaction state machine sitting between input gestures and the timer.
type Engine struct {
	mu          sync.Mutex
	config      model.InteractionConfig
	clock       clock.Clock
	timer       Timer
	haptics     Haptics
	permissions Permissions
	logger      zerolog.Logger
	onChange    func(State)

	knob          KnobState
	wasActive     bool
	pendingDelta  int
	baseElapsed   int
	drag          dragState
	textureOffset float64

	dropHovered   bool
	dropArmed     bool
	dwellTimer    clock.Timer
	dwellDeadline time.Time
	dwellGen      uint64

	undo undoSlot

	pressing   Action
	pressTimer clock.Timer
	pressGen   uint64

	level  model.InterferenceLevel
	closed bool
}

type effect func()

// New creates an Engine driving timer.
func New(timer Timer, config model.InteractionConfig, options Config) *Engine {
	if options.Clock == nil {
		options.Clock = clock.NewRealClock()
	}
	if options.Haptics == nil {
		options.Haptics = noHaptics{}
	}
	if options.Permissions == nil {
		options.Permissions = deniedPermissions{}
	}
	if options.Interference == "" {
		options.Interference = model.InterferenceWeak
	}

	return &Engine{
		config:      withDefaults(config),
		clock:       options.Clock,
		timer:       timer,
		haptics:     options.Haptics,
		permissions: options.Permissions,
		logger:      applog.WithComponent("interaction"),
		knob:        KnobClosed,
		level:       options.Interference,
	}
}

func withDefaults(config model.InteractionConfig) model.InteractionConfig {
	if config.DropZoneDwell <= 0 {
		config.DropZoneDwell = time.Second
	}
	if config.UndoWindow <= 0 {
		config.UndoWindow = 10 * time.Second
	}
	if config.LongPressThreshold <= 0 {
		config.LongPressThreshold = 700 * time.Millisecond
	}
	if config.ScrollMode == "" {
		config.ScrollMode = model.ScrollNatural
	}
	return config
}

// SetOnChange registers a callback invoked with the new state after every handler.
func (engine *Engine) SetOnChange(fn func(State)) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.onChange = fn
}

// UpdateConfig replaces the runtime configuration.
func (engine *Engine) UpdateConfig(config model.InteractionConfig) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.config = withDefaults(config)
}

// State returns the current interaction state.
func (engine *Engine) State() State {
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.stateLocked(snapshot)
}

// Close cancels pending dwell, undo and long-press timers. Later calls are ignored.
func (engine *Engine) Close() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	engine.closed = true
	engine.stopDwellLocked()
	engine.clearUndoLocked()
	engine.cancelPressLocked()
}

// KnobClick toggles the knob open or closed. Closing commits the pending delta.
func (engine *Engine) KnobClick() {
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	if engine.closed || engine.knob == KnobDragging {
		engine.mu.Unlock()
		return
	}
	var effects []effect
	if engine.knob == KnobOpen {
		effects = engine.closeKnobLocked(true)
	} else {
		effects = engine.openKnobLocked(snapshot)
	}
	engine.mu.Unlock()
	engine.apply(effects)
}

// KnobKey handles keyboard input on the knob.
func (engine *Engine) KnobKey(key Key, shift bool) {
	engine.mu.Lock()
	knob := engine.knob
	engine.mu.Unlock()

	if knob == KnobClosed {
		if key == KeyEnter || key == KeySpace {
			engine.KnobClick()
		}
		return
	}

	step := keyStep
	if shift {
		step = keyShiftStep
	}
	switch key {
	case KeyUp, KeyRight:
		engine.adjustPending(step)
	case KeyDown, KeyLeft:
		engine.adjustPending(-step)
	case KeyEnter, KeySpace:
		engine.KnobClick()
	case KeyEscape:
		engine.CancelKnob()
	}
}

// KnobWheel applies one wheel notch. overKnob reports whether the pointer is
// over the knob itself, which flips direction in natural mode.
func (engine *Engine) KnobWheel(deltaY float64, overKnob bool) {
	if deltaY == 0 {
		return
	}
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	if engine.closed || engine.knob == KnobClosed {
		engine.mu.Unlock()
		return
	}

	down := deltaY > 0
	var amount int
	switch engine.config.ScrollMode {
	case model.ScrollUpIsIncrease:
		amount = signed(!down, wheelStep)
	case model.ScrollDownIsIncrease:
		amount = signed(down, wheelStep)
	default:
		amount = signed(down == overKnob, wheelStep)
	}
	effects := engine.applyAdjustmentLocked(amount, engine.adjustmentBaseLocked(snapshot))
	engine.textureOffset -= deltaY * wheelTexture
	engine.mu.Unlock()
	engine.apply(effects)
}

// KnobPress starts a drag at pointer position y.
func (engine *Engine) KnobPress(y float64) {
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	if engine.closed || engine.knob != KnobOpen {
		engine.mu.Unlock()
		return
	}
	engine.knob = KnobDragging
	engine.baseElapsed = snapshot.Elapsed
	engine.drag = dragState{
		startY:       y,
		lastTickY:    y,
		initialDelta: engine.pendingDelta,
		smoothOffset: float64(engine.pendingDelta),
	}
	engine.mu.Unlock()
	engine.apply(nil)
}

// PointerMove updates a drag. The texture follows an arctangent-compressed
// offset while time changes in whole 15 px ticks.
func (engine *Engine) PointerMove(y float64) {
	engine.mu.Lock()
	if engine.closed || engine.knob != KnobDragging {
		engine.mu.Unlock()
		return
	}

	total := engine.drag.startY - y
	engine.textureOffset = textureFor(total)
	smooth := -total + float64(engine.drag.initialDelta)
	base := float64(engine.baseElapsed)
	if base+smooth < 0 {
		smooth = -base
		// Pin the texture where the drag reached zero.
		engine.textureOffset = textureFor(base + float64(engine.drag.initialDelta))
	}
	engine.drag.smoothOffset = smooth

	var effects []effect
	if ticks := math.Trunc((engine.drag.lastTickY - y) / dragTickPx); ticks != 0 {
		effects = engine.applyAdjustmentLocked(-int(ticks)*dragTickStep, engine.baseElapsed)
		engine.drag.lastTickY -= ticks * dragTickPx
	}
	engine.mu.Unlock()
	engine.apply(effects)
}

// KnobRelease ends a drag. Releasing over the armed drop zone commits the
// goal-and-break action, anywhere else closes the knob and commits the delta.
func (engine *Engine) KnobRelease() {
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	if engine.closed || engine.knob != KnobDragging {
		engine.mu.Unlock()
		return
	}
	engine.drag.smoothOffset = 0

	var effects []effect
	if engine.dropHovered && engine.dropArmed {
		effects = engine.commitDropZoneLocked(snapshot)
	} else {
		effects = engine.closeKnobLocked(true)
	}
	engine.mu.Unlock()
	engine.apply(effects)
}

// CancelKnob closes the knob without committing and restores the prior run state.
func (engine *Engine) CancelKnob() {
	engine.mu.Lock()
	if engine.closed || engine.knob == KnobClosed {
		engine.mu.Unlock()
		return
	}
	effects := engine.closeKnobLocked(false)
	engine.mu.Unlock()
	engine.apply(effects)
}

// DropZoneEnter starts the arming dwell.
func (engine *Engine) DropZoneEnter() {
	engine.mu.Lock()
	if engine.closed || engine.knob == KnobClosed {
		engine.mu.Unlock()
		return
	}
	engine.stopDwellLocked()
	engine.dropHovered = true
	engine.dropArmed = false
	engine.dwellGen++
	gen := engine.dwellGen
	dwell := engine.config.DropZoneDwell
	engine.dwellDeadline = engine.clock.Now().Add(dwell)
	engine.dwellTimer = engine.clock.AfterFunc(dwell, func() { engine.armDropZone(gen) })
	engine.mu.Unlock()
	engine.apply(nil)
}

// DropZoneLeave disarms the drop zone immediately.
func (engine *Engine) DropZoneLeave() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	engine.resetDropZoneLocked()
	engine.mu.Unlock()
	engine.apply(nil)
}

// SetGoalAndBreak commits the drop-zone action directly: in work mode it
// closes the session at the goal and starts the break, in break mode it starts
// the next session.
func (engine *Engine) SetGoalAndBreak() {
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	effects := engine.commitDropZoneLocked(snapshot)
	engine.mu.Unlock()
	engine.apply(effects)
}

// StartBreak starts a break and opens the break-start undo.
func (engine *Engine) StartBreak() {
	snapshot := engine.timer.Snapshot()
	if snapshot.Mode != model.ModeWork {
		return
	}
	feedback := engine.feedbackContext()

	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	effects := []effect{func() { engine.timer.StartBreak(feedback) }}
	engine.setUndoLocked(UndoBreakStart, 0)
	engine.mu.Unlock()
	engine.apply(effects)
}

// Undo reverses the last adjustment or break start while the undo window is open.
func (engine *Engine) Undo() {
	engine.mu.Lock()
	if engine.closed || engine.undo.kind == UndoNone || !engine.clock.Now().Before(engine.undo.expiresAt) {
		engine.mu.Unlock()
		return
	}
	slot := engine.undo
	engine.clearUndoLocked()

	var effects []effect
	switch slot.kind {
	case UndoAdjustment:
		effects = append(effects, func() { engine.timer.UndoAdjustment(slot.amount) })
	case UndoBreakStart:
		effects = append(effects, func() { engine.timer.UndoLastBreak() })
	}
	engine.logger.Debug().Str("event", "undo.fired").Str("kind", string(slot.kind)).Int("amount", slot.amount).Msg("undo")
	engine.mu.Unlock()
	engine.apply(effects)
}

// PressStart begins a long press on an action button. The action fires once
// the threshold elapses without PressEnd.
func (engine *Engine) PressStart(action Action) {
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	if engine.closed || engine.pressing != "" || engine.pressDisabledLocked(action, snapshot) {
		engine.mu.Unlock()
		return
	}
	engine.pressing = action
	engine.pressGen++
	gen := engine.pressGen
	engine.pressTimer = engine.clock.AfterFunc(engine.config.LongPressThreshold, func() { engine.firePress(gen) })
	engine.mu.Unlock()
	engine.apply(nil)
}

// PressEnd releases a long press. Releasing early cancels the action.
func (engine *Engine) PressEnd() {
	engine.mu.Lock()
	if engine.pressing == "" {
		engine.mu.Unlock()
		return
	}
	engine.cancelPressLocked()
	engine.mu.Unlock()
	engine.apply(nil)
}

// CycleInterference moves to the next interference level and fires a test
// alert. Moving to strong asks for notification permission if needed.
func (engine *Engine) CycleInterference() model.InterferenceLevel {
	engine.mu.Lock()
	if engine.closed {
		level := engine.level
		engine.mu.Unlock()
		return level
	}
	next := nextLevel(engine.level)
	engine.mu.Unlock()

	permission := engine.permissions.Permission()
	if next == model.InterferenceStrong && permission != model.PermissionGranted {
		permission = engine.permissions.RequestPermission()
	}
	feedback := model.FeedbackContext{Level: next, Permission: permission}

	engine.mu.Lock()
	engine.level = next
	engine.mu.Unlock()

	engine.logger.Info().Str("event", "interference.changed").Str("level", string(next)).Str("permission", string(permission)).Msg("interference level changed")
	engine.apply([]effect{
		func() { engine.timer.SetInterference(feedback) },
		func() { engine.timer.TestFeedback(feedback) },
	})
	return next
}

func (engine *Engine) openKnobLocked(snapshot timekeeper.Snapshot) []effect {
	engine.clearUndoLocked()
	engine.knob = KnobOpen
	engine.pendingDelta = 0
	engine.textureOffset = 0
	engine.drag = dragState{}
	engine.baseElapsed = snapshot.Elapsed
	engine.wasActive = snapshot.Active
	if snapshot.Active {
		return []effect{func() { engine.timer.SetActive(false) }}
	}
	return nil
}

func (engine *Engine) closeKnobLocked(commit bool) []effect {
	var effects []effect
	if commit && engine.pendingDelta != 0 {
		delta := engine.pendingDelta
		effects = append(effects, func() { engine.timer.AdjustTime(delta) })
		engine.setUndoLocked(UndoAdjustment, delta)
		engine.logger.Debug().Str("event", "knob.committed").Int("delta", delta).Msg("adjustment committed")
	}
	if engine.wasActive {
		effects = append(effects, func() { engine.timer.SetActive(true) })
	}
	engine.resetKnobLocked()
	engine.resetDropZoneLocked()
	return effects
}

func (engine *Engine) commitDropZoneLocked(snapshot timekeeper.Snapshot) []effect {
	level := engine.level
	goalSeconds := engine.config.GoalMinutes * 60
	var effects []effect
	if snapshot.Mode == model.ModeBreak {
		effects = append(effects, func() {
			engine.timer.EndBreakAndStartNext(engine.feedbackContextFor(level))
		})
	} else {
		effects = append(effects, func() {
			engine.timer.SetGoalAndStartBreak(goalSeconds, engine.feedbackContextFor(level))
		})
		engine.setUndoLocked(UndoBreakStart, 0)
	}
	engine.resetKnobLocked()
	engine.wasActive = false
	engine.resetDropZoneLocked()
	return effects
}

func (engine *Engine) resetKnobLocked() {
	engine.knob = KnobClosed
	engine.pendingDelta = 0
	engine.textureOffset = 0
	engine.drag = dragState{}
}

func (engine *Engine) adjustPending(amount int) {
	snapshot := engine.timer.Snapshot()
	engine.mu.Lock()
	if engine.closed || engine.knob == KnobClosed {
		engine.mu.Unlock()
		return
	}
	effects := engine.applyAdjustmentLocked(amount, engine.adjustmentBaseLocked(snapshot))
	engine.mu.Unlock()
	engine.apply(effects)
}

func (engine *Engine) adjustmentBaseLocked(snapshot timekeeper.Snapshot) int {
	if engine.knob == KnobDragging {
		return engine.baseElapsed
	}
	return snapshot.Elapsed
}

// applyAdjustmentLocked adds amount to the pending delta, clamped so the
// displayed time never goes below zero.
func (engine *Engine) applyAdjustmentLocked(amount, base int) []effect {
	if base+engine.pendingDelta+amount < 0 {
		amount = -(base + engine.pendingDelta)
	}
	if amount == 0 {
		return nil
	}
	engine.pendingDelta += amount
	return []effect{func() { engine.haptics.Vibrate(adjustPulse) }}
}

func (engine *Engine) armDropZone(gen uint64) {
	engine.mu.Lock()
	if engine.closed || gen != engine.dwellGen || !engine.dropHovered || engine.clock.Now().Before(engine.dwellDeadline) {
		engine.mu.Unlock()
		return
	}
	engine.dropArmed = true
	engine.dwellTimer = nil
	engine.mu.Unlock()
	engine.apply([]effect{func() { engine.haptics.Vibrate(armPulse) }})
}

func (engine *Engine) resetDropZoneLocked() {
	engine.stopDwellLocked()
	engine.dropHovered = false
	engine.dropArmed = false
}

func (engine *Engine) stopDwellLocked() {
	engine.dwellGen++
	if engine.dwellTimer != nil {
		engine.dwellTimer.Stop()
		engine.dwellTimer = nil
	}
}

func (engine *Engine) setUndoLocked(kind UndoKind, amount int) {
	engine.clearUndoLocked()
	window := engine.config.UndoWindow
	engine.undo = undoSlot{kind: kind, amount: amount, expiresAt: engine.clock.Now().Add(window)}
	expiresAt := engine.undo.expiresAt
	engine.undo.timer = engine.clock.AfterFunc(window, func() { engine.expireUndo(expiresAt) })
}

func (engine *Engine) clearUndoLocked() {
	if engine.undo.timer != nil {
		engine.undo.timer.Stop()
	}
	engine.undo = undoSlot{}
}

func (engine *Engine) expireUndo(expiresAt time.Time) {
	engine.mu.Lock()
	if engine.closed || engine.undo.kind == UndoNone || !engine.undo.expiresAt.Equal(expiresAt) {
		engine.mu.Unlock()
		return
	}
	engine.undo = undoSlot{}
	engine.mu.Unlock()
	engine.apply(nil)
}

// pressDisabledLocked reports whether the long-press button for action is disabled.
func (engine *Engine) pressDisabledLocked(action Action, snapshot timekeeper.Snapshot) bool {
	switch action {
	case ActionUndo:
		return engine.undo.kind == UndoNone
	case ActionStartBreak:
		return snapshot.Mode != model.ModeWork || snapshot.Elapsed < engine.config.GoalMinutes*60
	default:
		return true
	}
}

func (engine *Engine) firePress(gen uint64) {
	engine.mu.Lock()
	if engine.closed || gen != engine.pressGen || engine.pressing == "" {
		engine.mu.Unlock()
		return
	}
	action := engine.pressing
	engine.pressing = ""
	engine.pressTimer = nil
	engine.mu.Unlock()

	switch action {
	case ActionUndo:
		engine.Undo()
	case ActionStartBreak:
		engine.StartBreak()
	}
}

func (engine *Engine) cancelPressLocked() {
	engine.pressGen++
	engine.pressing = ""
	if engine.pressTimer != nil {
		engine.pressTimer.Stop()
		engine.pressTimer = nil
	}
}

func (engine *Engine) feedbackContext() model.FeedbackContext {
	engine.mu.Lock()
	level := engine.level
	engine.mu.Unlock()
	return engine.feedbackContextFor(level)
}

func (engine *Engine) feedbackContextFor(level model.InterferenceLevel) model.FeedbackContext {
	return model.FeedbackContext{Level: level, Permission: engine.permissions.Permission()}
}

func (engine *Engine) stateLocked(snapshot timekeeper.Snapshot) State {
	displayed := snapshot.Elapsed
	if engine.knob != KnobClosed {
		displayed = snapshot.Elapsed + engine.pendingDelta
		if displayed < 0 {
			displayed = 0
		}
	}
	offset := float64(engine.pendingDelta)
	if engine.knob == KnobDragging {
		offset = engine.drag.smoothOffset
	}

	return State{
		Knob:                    engine.knob,
		PendingDelta:            engine.pendingDelta,
		DisplayedTime:           displayed,
		DeltaMinuteHandRotation: (float64(snapshot.Elapsed) + offset) * 0.1,
		TextureOffset:           engine.textureOffset,
		DropZoneHovered:         engine.dropHovered,
		DropZoneArmed:           engine.dropArmed,
		Undo:                    engine.undo.kind,
		UndoExpiresAt:           engine.undo.expiresAt,
		Pressing:                engine.pressing,
		Interference:            engine.level,
	}
}

// apply runs timer effects outside the engine lock, then notifies the observer.
func (engine *Engine) apply(effects []effect) {
	for _, run := range effects {
		run()
	}

	engine.mu.Lock()
	fn := engine.onChange
	engine.mu.Unlock()
	if fn != nil {
		fn(engine.State())
	}
}

func textureFor(totalPx float64) float64 {
	return math.Atan(totalPx/dragScale) * dragScale * dragExpansion
}

func signed(positive bool, step int) int {
	if positive {
		return step
	}
	return -step
}

func nextLevel(level model.InterferenceLevel) model.InterferenceLevel {
	switch level {
	case model.InterferenceZero:
		return model.InterferenceWeak
	case model.InterferenceWeak:
		return model.InterferenceStrong
	default:
		return model.InterferenceZero
	}
}

type noHaptics struct{}

func (noHaptics) Vibrate(...time.Duration) {}

type deniedPermissions struct{}

func (deniedPermissions) Permission() model.NotificationPermission {
	return model.PermissionDenied
}

func (deniedPermissions) RequestPermission() model.NotificationPermission {
	return model.PermissionDenied
}
