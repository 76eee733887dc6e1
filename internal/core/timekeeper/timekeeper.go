package timekeeper

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"focusflow/internal/core/clock"
	"focusflow/internal/core/model"
	"focusflow/internal/core/session"
	applog "focusflow/internal/log"

	"github.com/rs/zerolog"
)

// tickCushion is added to the first tick after the wall-clock second boundary.
const tickCushion = 10 * time.Millisecond

// Config contains runtime options for Keeper.
type Config struct {
	TickInterval time.Duration
	Clock        clock.Clock
}

// tracking holds per-work-period bookkeeping that ends up in the session record.
type tracking struct {
	pauseCount     int
	pausedFor      time.Duration
	pauseStartedAt time.Time
	adjustments    []session.Adjustment
	actual         time.Duration
}

func (track tracking) clone() tracking {
	track.adjustments = append([]session.Adjustment(nil), track.adjustments...)
	return track
}

// breakUndo remembers what a break start replaced so it can be reverted.
type breakUndo struct {
	elapsed     int
	startedAt   time.Time
	recordID    int64
	tracking    tracking
	displayMode model.DisplayMode
}

// Keeper is the timer/session state machine. It is the only writer of the
// timer state and of the session log.
type Keeper struct {
	mu      sync.Mutex
	config  model.TimerConfig
	options Config
	clock   clock.Clock
	logger  zerolog.Logger

	elapsed       int
	active        bool
	mode          model.Mode
	displayMode   model.DisplayMode
	startedAt     time.Time
	fired         []int
	breakTotal    int
	interference  model.FeedbackContext
	breakFeedback model.FeedbackContext
	tracking      tracking
	lastTick      time.Time
	undo          *breakUndo

	sessions   []session.Record
	sessionLog session.Log
	journal    []func()
	persistMu  sync.Mutex
	feedback   FeedbackSink
	events     []chan Event

	tickTimer  clock.Timer
	tickGen    uint64
	nextTickAt time.Time
	stopped    bool
}

// New creates a Keeper in the paused work state.
func New(config model.TimerConfig, options Config) *Keeper {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Clock == nil {
		options.Clock = clock.NewRealClock()
	}
	if config.DefaultDisplayMode == "" {
		config.DefaultDisplayMode = model.DisplayCountUp
	}

	return &Keeper{
		config:      config,
		options:     options,
		clock:       options.Clock,
		logger:      applog.WithComponent("timekeeper"),
		mode:        model.ModeWork,
		displayMode: config.DefaultDisplayMode,
		interference: model.FeedbackContext{
			Level:      model.InterferenceWeak,
			Permission: model.PermissionDefault,
		},
		sessionLog: session.NewMemoryLog(),
	}
}

// SetFeedback injects the feedback collaborator.
func (keeper *Keeper) SetFeedback(sink FeedbackSink) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	keeper.feedback = sink
}

// SetSessionLog injects the persisted session log and loads its records.
func (keeper *Keeper) SetSessionLog(log session.Log) {
	records, err := log.List(context.Background())
	if err != nil {
		keeper.logger.Warn().Err(err).Str("event", "sessions.load_failed").Msg("session log unreadable, starting empty")
		records = nil
	}

	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	keeper.sessionLog = log
	keeper.sessions = records
}

// SetInterference records the interference settings used for goal-marker feedback.
func (keeper *Keeper) SetInterference(feedback model.FeedbackContext) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	keeper.interference = feedback
	keeper.emitLocked(Event{Type: EventStateChange, At: keeper.clock.Now()})
}

// Subscribe registers a new observer channel.
func (keeper *Keeper) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	keeper.mu.Lock()
	keeper.events = append(keeper.events, ch)
	keeper.mu.Unlock()
	return ch
}

// Stop cancels the pending tick and closes observers. The Keeper ignores all
// further calls.
func (keeper *Keeper) Stop() {
	keeper.mu.Lock()
	if keeper.stopped {
		keeper.mu.Unlock()
		return
	}
	keeper.stopped = true
	if keeper.active {
		keeper.accrueLocked(keeper.clock.Now())
		keeper.active = false
	}
	keeper.stopTickerLocked()
	events := keeper.events
	keeper.events = nil
	keeper.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
	keeper.flush()
}

// UpdateConfig replaces the runtime configuration.
func (keeper *Keeper) UpdateConfig(config model.TimerConfig) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if config.DefaultDisplayMode == "" {
		config.DefaultDisplayMode = model.DisplayCountUp
	}
	keeper.config = config
	if keeper.mode == model.ModeWork {
		keeper.retractMarkersLocked()
	}
	keeper.emitLocked(Event{Type: EventStateChange, At: keeper.clock.Now()})
}

// Snapshot returns a copy of the current timer state.
func (keeper *Keeper) Snapshot() Snapshot {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.snapshotLocked()
}

// Sessions returns a copy of the session log.
func (keeper *Keeper) Sessions() []session.Record {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return append([]session.Record(nil), keeper.sessions...)
}

// ReplaceSessions overwrites the session log, e.g. after an import.
func (keeper *Keeper) ReplaceSessions(records []session.Record) {
	keeper.mu.Lock()
	keeper.sessions = append([]session.Record(nil), records...)
	log, replaced := keeper.sessionLog, append([]session.Record(nil), records...)
	keeper.journalLocked(func() {
		if err := log.Replace(context.Background(), replaced); err != nil {
			keeper.logger.Error().Err(err).Str("event", "sessions.replace_failed").Msg("failed to persist session log")
		}
	})
	keeper.undo = nil
	keeper.mu.Unlock()

	keeper.flush()
}

// ToggleRun starts or pauses the work timer. It does nothing during a break.
func (keeper *Keeper) ToggleRun() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.stopped || keeper.mode != model.ModeWork {
		return
	}

	now := keeper.clock.Now()
	if !keeper.active && keeper.elapsed == 0 {
		keeper.startedAt = now
	}

	if keeper.active {
		keeper.accrueLocked(now)
		keeper.tracking.pauseCount++
		keeper.tracking.pauseStartedAt = now
		keeper.active = false
		keeper.stopTickerLocked()
		keeper.logger.Debug().Str("event", "timer.paused").Int("elapsed", keeper.elapsed).Msg("timer paused")
	} else {
		if !keeper.tracking.pauseStartedAt.IsZero() {
			keeper.tracking.pausedFor += now.Sub(keeper.tracking.pauseStartedAt)
			keeper.tracking.pauseStartedAt = time.Time{}
		}
		keeper.active = true
		keeper.lastTick = now
		keeper.startTickerLocked(now)
		keeper.logger.Debug().Str("event", "timer.resumed").Int("elapsed", keeper.elapsed).Msg("timer resumed")
	}

	keeper.emitLocked(Event{Type: EventStateChange, At: now})
}

// SetActive holds or releases the timer without pause bookkeeping. The
// adjustment knob uses it while open.
func (keeper *Keeper) SetActive(active bool) {
	keeper.mu.Lock()
	if keeper.stopped || keeper.active == active {
		keeper.mu.Unlock()
		return
	}

	now := keeper.clock.Now()
	var requests []FeedbackRequest
	if active {
		keeper.active = true
		keeper.lastTick = now
		keeper.startTickerLocked(now)
		requests = keeper.maybeFinishBreakLocked(now)
	} else {
		keeper.accrueLocked(now)
		keeper.active = false
		keeper.stopTickerLocked()
	}
	keeper.emitLocked(Event{Type: EventStateChange, At: now})
	keeper.mu.Unlock()

	keeper.deliver(requests)
}

// ToggleDisplayMode flips between count-up and countdown presentation.
func (keeper *Keeper) ToggleDisplayMode() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.displayMode == model.DisplayCountUp {
		keeper.displayMode = model.DisplayCountdown
	} else {
		keeper.displayMode = model.DisplayCountUp
	}
	keeper.emitLocked(Event{Type: EventStateChange, At: keeper.clock.Now()})
}

// StartBreak closes the current work period into a session record and starts
// a break lasting a fifth of the recorded time.
func (keeper *Keeper) StartBreak(feedback model.FeedbackContext) {
	keeper.mu.Lock()
	if keeper.stopped || keeper.mode != model.ModeWork {
		keeper.mu.Unlock()
		return
	}

	now := keeper.clock.Now()
	recorded := keeper.elapsed
	record := keeper.closeSessionLocked(now, recorded, keeper.tracking.actual, keeper.config.GoalMinutes)
	requests := []FeedbackRequest{{
		Kind:    FeedbackBreakStarted,
		Title:   "Break started",
		Body:    fmt.Sprintf("Take a %d-minute break.", recorded/5/60),
		Context: feedback,
		At:      now,
	}}
	requests = append(requests, keeper.enterBreakLocked(now, recorded, record, feedback)...)
	keeper.mu.Unlock()

	keeper.deliver(requests)
}

// SetGoalAndStartBreak closes the work period as if exactly goalSeconds had
// been recorded and starts the matching break. During a break it first ends
// the break and credits a fresh work period.
func (keeper *Keeper) SetGoalAndStartBreak(goalSeconds int, feedback model.FeedbackContext) {
	if goalSeconds < 0 {
		return
	}

	keeper.mu.Lock()
	if keeper.stopped {
		keeper.mu.Unlock()
		return
	}

	now := keeper.clock.Now()
	if keeper.mode == model.ModeBreak {
		keeper.resetToWorkLocked(now)
		keeper.startedAt = now.Add(-time.Duration(goalSeconds) * time.Second)
	}

	breakSeconds := goalSeconds / 5
	requests := []FeedbackRequest{{
		Kind:          FeedbackMainGoal,
		Title:         "Goal set, break started",
		Body:          fmt.Sprintf("Enjoy a %d-minute break.", breakSeconds/60),
		MarkerMinutes: goalSeconds / 60,
		Context:       feedback,
		At:            now,
	}}

	// The credit is clamped at zero, so a goal below the elapsed time never
	// reduces the actual duration.
	pausedFor := keeper.pausedForLocked(now)
	credit := time.Duration(goalSeconds-keeper.elapsed)*time.Second - pausedFor
	if credit < 0 {
		credit = 0
	}
	preBreak := keeper.elapsed
	record := keeper.closeSessionLocked(now, goalSeconds, keeper.tracking.actual+credit, goalSeconds/60)
	requests = append(requests, keeper.enterBreakLocked(now, preBreak, record, feedback)...)
	keeper.mu.Unlock()

	keeper.deliver(requests)
}

// EndBreakAndStartNext ends the break early and starts the next work period running.
func (keeper *Keeper) EndBreakAndStartNext(feedback model.FeedbackContext) {
	keeper.mu.Lock()
	if keeper.stopped || keeper.mode != model.ModeBreak {
		keeper.mu.Unlock()
		return
	}

	now := keeper.clock.Now()
	keeper.resetToWorkLocked(now)
	keeper.active = true
	keeper.startedAt = now
	keeper.lastTick = now
	keeper.startTickerLocked(now)
	keeper.emitLocked(Event{Type: EventStateChange, At: now})
	keeper.logger.Info().Str("event", "break.ended_early").Msg("break ended, next session started")
	keeper.mu.Unlock()

	keeper.deliver([]FeedbackRequest{breakOverRequest(feedback, now)})
}

// UndoLastBreak reverts the most recent break start while that break is
// still running. It removes exactly one session record.
func (keeper *Keeper) UndoLastBreak() {
	keeper.mu.Lock()
	if keeper.stopped || keeper.mode != model.ModeBreak || keeper.undo == nil {
		keeper.mu.Unlock()
		return
	}

	now := keeper.clock.Now()
	undo := keeper.undo
	keeper.undo = nil

	var removed *session.Record
	for index := len(keeper.sessions) - 1; index >= 0; index-- {
		if keeper.sessions[index].ID == undo.recordID {
			record := keeper.sessions[index]
			removed = &record
			keeper.sessions = append(keeper.sessions[:index], keeper.sessions[index+1:]...)
			break
		}
	}
	if removed != nil {
		log, id := keeper.sessionLog, removed.ID
		keeper.journalLocked(func() {
			if err := log.Remove(context.Background(), id); err != nil {
				keeper.logger.Error().Err(err).Str("event", "sessions.remove_failed").Int64("id", id).Msg("failed to remove session")
			}
		})
	}

	keeper.mode = model.ModeWork
	keeper.elapsed = undo.elapsed
	keeper.startedAt = undo.startedAt
	keeper.displayMode = undo.displayMode
	keeper.breakTotal = 0
	keeper.tracking = undo.tracking
	keeper.tracking.pauseStartedAt = time.Time{}
	keeper.fired = passedMarkers(keeper.markersLocked(), keeper.elapsed)
	keeper.active = true
	keeper.lastTick = now
	keeper.startTickerLocked(now)

	if removed != nil {
		keeper.emitLocked(Event{Type: EventSessionRemoved, Session: removed, At: now})
	}
	keeper.emitLocked(Event{Type: EventStateChange, At: now})
	keeper.logger.Info().Str("event", "break.undone").Int("elapsed", keeper.elapsed).Msg("break start undone")
	keeper.mu.Unlock()

	keeper.flush()
}

// AdjustTime commits delta seconds to the elapsed time, clamping at zero.
// During work the applied amount is logged on the open session.
func (keeper *Keeper) AdjustTime(delta int) {
	if delta == 0 {
		return
	}

	keeper.mu.Lock()
	if keeper.stopped {
		keeper.mu.Unlock()
		return
	}

	now := keeper.clock.Now()
	next := keeper.elapsed + delta
	if next < 0 {
		next = 0
	}
	applied := next - keeper.elapsed
	if applied == 0 {
		keeper.mu.Unlock()
		return
	}
	keeper.elapsed = next

	if keeper.mode == model.ModeWork {
		keeper.tracking.adjustments = append(keeper.tracking.adjustments, session.Adjustment{Amount: applied, Timestamp: now})
		keeper.retractMarkersLocked()
	}
	keeper.emitLocked(Event{Type: EventAdjusted, At: now})
	requests := keeper.maybeFinishBreakLocked(now)
	keeper.mu.Unlock()

	keeper.deliver(requests)
}

// UndoAdjustment reverses a previously committed adjustment of amount seconds.
func (keeper *Keeper) UndoAdjustment(amount int) {
	if amount == 0 {
		return
	}

	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.stopped {
		return
	}

	now := keeper.clock.Now()
	keeper.elapsed -= amount
	if keeper.elapsed < 0 {
		keeper.elapsed = 0
	}
	if keeper.mode == model.ModeWork {
		adjustments := keeper.tracking.adjustments
		for index := len(adjustments) - 1; index >= 0; index-- {
			if adjustments[index].Amount == amount {
				keeper.tracking.adjustments = append(adjustments[:index], adjustments[index+1:]...)
				break
			}
		}
		keeper.retractMarkersLocked()
	}
	keeper.emitLocked(Event{Type: EventAdjusted, At: now})
}

// TestFeedback fires the test alert with the given interference settings.
func (keeper *Keeper) TestFeedback(feedback model.FeedbackContext) {
	keeper.deliver([]FeedbackRequest{{
		Kind:    FeedbackTest,
		Title:   "Test notification",
		Body:    "This is how alerts will feel.",
		Context: feedback,
		At:      keeper.clock.Now(),
	}})
}

func (keeper *Keeper) onTick(gen uint64) {
	keeper.mu.Lock()
	if keeper.stopped || !keeper.active || gen != keeper.tickGen {
		keeper.mu.Unlock()
		return
	}

	now := keeper.clock.Now()
	requests := keeper.tickLocked(now)
	if keeper.active && gen == keeper.tickGen {
		keeper.scheduleNextTickLocked(now, gen)
	}
	keeper.mu.Unlock()

	keeper.deliver(requests)
}

// tickLocked advances one second: elapsed first, then actual duration, then
// goal markers or break completion.
func (keeper *Keeper) tickLocked(now time.Time) []FeedbackRequest {
	if keeper.mode == model.ModeWork {
		keeper.elapsed++
		keeper.accrueLocked(now)
		keeper.emitLocked(Event{Type: EventTick, At: now})
		return keeper.detectGoalMarkersLocked(now)
	}

	if keeper.elapsed > 0 {
		keeper.elapsed--
	}
	keeper.emitLocked(Event{Type: EventTick, At: now})
	return keeper.maybeFinishBreakLocked(now)
}

func (keeper *Keeper) detectGoalMarkersLocked(now time.Time) []FeedbackRequest {
	markers := keeper.markersLocked()
	if len(markers) == 0 {
		keeper.fired = nil
		return nil
	}

	passed := passedMarkers(markers, keeper.elapsed)
	mainGoal := markers[len(markers)-1]
	var requests []FeedbackRequest
	for _, marker := range passed {
		if containsMarker(keeper.fired, marker) {
			continue
		}
		if marker == mainGoal {
			requests = append(requests, FeedbackRequest{
				Kind:          FeedbackMainGoal,
				Title:         "Goal reached!",
				Body:          fmt.Sprintf("You have focused for %d minutes.", marker),
				MarkerMinutes: marker,
				Context:       keeper.interference,
				At:            now,
			})
		} else {
			requests = append(requests, FeedbackRequest{
				Kind:          FeedbackSubGoal,
				Title:         fmt.Sprintf("%d minutes done", marker),
				Body:          fmt.Sprintf("%d minutes done, keep going.", marker),
				MarkerMinutes: marker,
				Context:       keeper.interference,
				At:            now,
			})
		}
		keeper.logger.Info().Str("event", "goal.marker_reached").Int("marker", marker).Bool("main", marker == mainGoal).Msg("goal marker reached")
	}
	keeper.fired = passed
	return requests
}

func (keeper *Keeper) maybeFinishBreakLocked(now time.Time) []FeedbackRequest {
	if keeper.mode != model.ModeBreak || !keeper.active || keeper.elapsed > 0 {
		return nil
	}

	feedback := keeper.breakFeedback
	keeper.resetToWorkLocked(now)
	keeper.active = false
	keeper.stopTickerLocked()
	keeper.emitLocked(Event{Type: EventStateChange, At: now})
	keeper.logger.Info().Str("event", "break.finished").Msg("break finished")
	return []FeedbackRequest{breakOverRequest(feedback, now)}
}

// enterBreakLocked logs the closed record and switches to the break countdown.
func (keeper *Keeper) enterBreakLocked(now time.Time, preBreakElapsed int, record session.Record, feedback model.FeedbackContext) []FeedbackRequest {
	keeper.sessions = append(keeper.sessions, record)
	log := keeper.sessionLog
	keeper.journalLocked(func() {
		if err := log.Append(context.Background(), record); err != nil {
			keeper.logger.Error().Err(err).Str("event", "sessions.append_failed").Int64("id", record.ID).Msg("failed to persist session")
		}
	})
	keeper.undo = &breakUndo{
		elapsed:     preBreakElapsed,
		startedAt:   keeper.startedAt,
		recordID:    record.ID,
		tracking:    keeper.tracking.clone(),
		displayMode: keeper.displayMode,
	}

	breakSeconds := record.RecordedDuration / 5
	keeper.mode = model.ModeBreak
	keeper.elapsed = breakSeconds
	keeper.breakTotal = breakSeconds
	keeper.active = true
	keeper.startedAt = time.Time{}
	keeper.breakFeedback = feedback
	keeper.fired = keeper.markersLocked()
	keeper.tracking = tracking{}
	keeper.lastTick = now
	keeper.startTickerLocked(now)

	logged := record
	keeper.emitLocked(Event{Type: EventSessionLogged, Session: &logged, At: now})
	keeper.emitLocked(Event{Type: EventStateChange, At: now})
	keeper.logger.Info().
		Str("event", "break.started").
		Int64("session", record.ID).
		Int("recorded", record.RecordedDuration).
		Int("break", breakSeconds).
		Msg("break started")

	return keeper.maybeFinishBreakLocked(now)
}

func (keeper *Keeper) closeSessionLocked(now time.Time, recorded int, actual time.Duration, goalMinutes int) session.Record {
	pausedFor := keeper.pausedForLocked(now)
	start := keeper.startedAt
	if start.IsZero() {
		start = now.Add(-time.Duration(keeper.elapsed) * time.Second)
	}
	date := session.StatisticalDate(start, keeper.config.DayCrossoverHour)
	adjustments := append([]session.Adjustment(nil), keeper.tracking.adjustments...)

	return session.Record{
		ID:                keeper.nextSessionIDLocked(now),
		Title:             session.Title(date, keeper.config.FirstDayOfWeek),
		StartTime:         start,
		StatisticalDateID: session.DateID(date),
		EndTime:           now,
		RecordedDuration:  recorded,
		ActualDuration:    roundSeconds(actual),
		NetDuration:       roundSeconds(actual - pausedFor),
		GoalMinutes:       goalMinutes,
		PauseCount:        keeper.tracking.pauseCount,
		Adjustments:       adjustments,
		TotalAdjustment:   session.TotalOf(adjustments),
	}
}

func (keeper *Keeper) nextSessionIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	if count := len(keeper.sessions); count > 0 && id <= keeper.sessions[count-1].ID {
		id = keeper.sessions[count-1].ID + 1
	}
	return id
}

func (keeper *Keeper) resetToWorkLocked(now time.Time) {
	keeper.mode = model.ModeWork
	keeper.elapsed = 0
	keeper.breakTotal = 0
	keeper.startedAt = time.Time{}
	keeper.displayMode = keeper.config.DefaultDisplayMode
	keeper.fired = nil
	keeper.tracking = tracking{}
	keeper.undo = nil
	keeper.lastTick = now
}

func (keeper *Keeper) pausedForLocked(now time.Time) time.Duration {
	pausedFor := keeper.tracking.pausedFor
	if !keeper.tracking.pauseStartedAt.IsZero() {
		pausedFor += now.Sub(keeper.tracking.pauseStartedAt)
	}
	return pausedFor
}

func (keeper *Keeper) accrueLocked(now time.Time) {
	if keeper.mode == model.ModeWork && !keeper.lastTick.IsZero() {
		if delta := now.Sub(keeper.lastTick); delta > 0 {
			keeper.tracking.actual += delta
		}
	}
	keeper.lastTick = now
}

func (keeper *Keeper) markersLocked() []int {
	return GoalMarkers(keeper.config.GoalMinutes, keeper.config.MarkerDivision)
}

// retractMarkersLocked drops fired markers that elapsed no longer reaches.
func (keeper *Keeper) retractMarkersLocked() {
	passed := passedMarkers(keeper.markersLocked(), keeper.elapsed)
	kept := keeper.fired[:0:0]
	for _, marker := range keeper.fired {
		if containsMarker(passed, marker) {
			kept = append(kept, marker)
		}
	}
	keeper.fired = kept
}

// startTickerLocked aligns the first tick to the next wall-clock boundary.
func (keeper *Keeper) startTickerLocked(now time.Time) {
	keeper.stopTickerLocked()
	interval := keeper.options.TickInterval
	delay := interval - time.Duration(now.UnixNano()%int64(interval)) + tickCushion
	keeper.nextTickAt = now.Add(delay)
	gen := keeper.tickGen
	keeper.tickTimer = keeper.clock.AfterFunc(delay, func() { keeper.onTick(gen) })
}

func (keeper *Keeper) scheduleNextTickLocked(now time.Time, gen uint64) {
	interval := keeper.options.TickInterval
	next := keeper.nextTickAt.Add(interval)
	if !next.After(now) {
		next = now.Add(interval)
	}
	keeper.nextTickAt = next
	keeper.tickTimer = keeper.clock.AfterFunc(next.Sub(now), func() { keeper.onTick(gen) })
}

func (keeper *Keeper) stopTickerLocked() {
	keeper.tickGen++
	if keeper.tickTimer != nil {
		keeper.tickTimer.Stop()
		keeper.tickTimer = nil
	}
}

func (keeper *Keeper) snapshotLocked() Snapshot {
	return Snapshot{
		Elapsed:            keeper.elapsed,
		Active:             keeper.active,
		Mode:               keeper.mode,
		DisplayMode:        keeper.displayMode,
		StartedAt:          keeper.startedAt,
		FiredGoalMarkers:   append([]int(nil), keeper.fired...),
		GoalMarkers:        keeper.markersLocked(),
		BreakTotal:         keeper.breakTotal,
		Interference:       keeper.interference,
		UndoBreakAvailable: keeper.mode == model.ModeBreak && keeper.undo != nil,
	}
}

// journalLocked queues a session-log write. Writes run outside mu, in the
// order they were queued.
func (keeper *Keeper) journalLocked(write func()) {
	keeper.journal = append(keeper.journal, write)
}

// flush runs queued session-log writes. persistMu is taken before the journal
// is drained, so concurrent flushes cannot reorder writes.
func (keeper *Keeper) flush() {
	keeper.persistMu.Lock()
	defer keeper.persistMu.Unlock()

	keeper.mu.Lock()
	writes := keeper.journal
	keeper.journal = nil
	keeper.mu.Unlock()

	for _, write := range writes {
		write()
	}
}

// deliver flushes pending session-log writes, then hands requests to the
// feedback sink.
func (keeper *Keeper) deliver(requests []FeedbackRequest) {
	keeper.flush()
	if len(requests) == 0 {
		return
	}
	keeper.mu.Lock()
	sink := keeper.feedback
	keeper.mu.Unlock()
	if sink == nil {
		return
	}
	for _, request := range requests {
		sink.Deliver(request)
	}
}

func (keeper *Keeper) emitLocked(event Event) {
	event.State = keeper.snapshotLocked()
	events := append([]chan Event(nil), keeper.events...)
	for _, ch := range events {
		select {
		case ch <- event:
		default:
		}
	}
}

func breakOverRequest(feedback model.FeedbackContext, now time.Time) FeedbackRequest {
	return FeedbackRequest{
		Kind:    FeedbackBreakOver,
		Title:   "Break is over",
		Body:    "Time to start the next focus session.",
		Context: feedback,
		At:      now,
	}
}

func containsMarker(markers []int, marker int) bool {
	for _, candidate := range markers {
		if candidate == marker {
			return true
		}
	}
	return false
}

func roundSeconds(duration time.Duration) int {
	return int(math.Round(duration.Seconds()))
}
