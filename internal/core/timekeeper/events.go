package timekeeper

import (
	"time"

	"focusflow/internal/core/model"
	"focusflow/internal/core/session"
)

// EventType defines the type of Keeper event.
type EventType string

const (
	EventStateChange    EventType = "state_change"
	EventTick           EventType = "tick"
	EventAdjusted       EventType = "adjusted"
	EventSessionLogged  EventType = "session_logged"
	EventSessionRemoved EventType = "session_removed"
)

// Event represents a Keeper update for observers.
type Event struct {
	Type    EventType
	State   Snapshot
	Session *session.Record
	At      time.Time
}

// FeedbackKind identifies which alert a transition asks for.
type FeedbackKind string

const (
	FeedbackSubGoal      FeedbackKind = "sub_goal"
	FeedbackMainGoal     FeedbackKind = "main_goal"
	FeedbackBreakStarted FeedbackKind = "break_started"
	FeedbackBreakOver    FeedbackKind = "break_over"
	FeedbackTest         FeedbackKind = "test"
)

// FeedbackRequest asks the feedback collaborator to alert the user.
type FeedbackRequest struct {
	Kind          FeedbackKind
	Title         string
	Body          string
	MarkerMinutes int
	Context       model.FeedbackContext
	At            time.Time
}

// FeedbackSink receives feedback requests after the state they describe has
// been committed.
type FeedbackSink interface {
	Deliver(request FeedbackRequest)
}

// Snapshot is a read-only copy of the timer state.
type Snapshot struct {
	Elapsed            int
	Active             bool
	Mode               model.Mode
	DisplayMode        model.DisplayMode
	StartedAt          time.Time
	FiredGoalMarkers   []int
	GoalMarkers        []int
	BreakTotal         int
	Interference       model.FeedbackContext
	UndoBreakAvailable bool
}

// Remaining returns the seconds left until the goal (work) or until the break ends.
func (snapshot Snapshot) Remaining(goalMinutes int) int {
	if snapshot.Mode == model.ModeBreak {
		return snapshot.Elapsed
	}
	remaining := goalMinutes*60 - snapshot.Elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
