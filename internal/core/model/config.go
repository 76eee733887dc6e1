package model

import "time"

// Mode is the phase of the focus cycle.
type Mode string

const (
	ModeWork  Mode = "work"
	ModeBreak Mode = "break"
)

// DisplayMode selects how elapsed time is presented.
type DisplayMode string

const (
	DisplayCountUp   DisplayMode = "count up"
	DisplayCountdown DisplayMode = "countdown"
)

// InterferenceLevel controls how insistent feedback is.
type InterferenceLevel string

const (
	InterferenceZero   InterferenceLevel = "zero"
	InterferenceWeak   InterferenceLevel = "weak"
	InterferenceStrong InterferenceLevel = "strong"
)

// NotificationPermission mirrors the platform notification permission state.
type NotificationPermission string

const (
	PermissionDefault NotificationPermission = "default"
	PermissionGranted NotificationPermission = "granted"
	PermissionDenied  NotificationPermission = "denied"
)

// FeedbackContext carries the interference settings a transition was requested with.
type FeedbackContext struct {
	Level      InterferenceLevel
	Permission NotificationPermission
}

// SecondHandStyle selects how the seconds hand moves and ticks.
type SecondHandStyle string

const (
	SecondHandQuartzTick            SecondHandStyle = "quartz_tick"
	SecondHandQuartzSweep           SecondHandStyle = "quartz_sweep"
	SecondHandTraditionalEscapement SecondHandStyle = "traditional_escapement"
	SecondHandHighFreqEscapement    SecondHandStyle = "high_freq_escapement"
)

// StepsPerSecond returns how many discrete steps the seconds hand makes per
// second. Zero means continuous movement. The audio escapement loop and the
// visual hand both derive their rate from this value.
func (style SecondHandStyle) StepsPerSecond() int {
	switch style {
	case SecondHandQuartzSweep:
		return 0
	case SecondHandTraditionalEscapement:
		return 2
	case SecondHandHighFreqEscapement:
		return 8
	default:
		return 1
	}
}

// IsEscapement reports whether the style uses the escapement beat sound.
func (style SecondHandStyle) IsEscapement() bool {
	return style == SecondHandTraditionalEscapement || style == SecondHandHighFreqEscapement
}

// KnobScrollMode maps wheel direction to time direction.
type KnobScrollMode string

const (
	ScrollNatural        KnobScrollMode = "natural"
	ScrollUpIsIncrease   KnobScrollMode = "up_is_increase"
	ScrollDownIsIncrease KnobScrollMode = "down_is_increase"
)

// FirstDayOfWeek anchors week numbering in session titles.
type FirstDayOfWeek string

const (
	WeekStartsSunday FirstDayOfWeek = "sunday"
	WeekStartsMonday FirstDayOfWeek = "monday"
)

// GoalMarkerDivision splits the goal into sub-goals. Zero disables markers.
type GoalMarkerDivision int

const (
	DivisionNone     GoalMarkerDivision = 0
	DivisionThirds   GoalMarkerDivision = 3
	DivisionQuarters GoalMarkerDivision = 4
	DivisionSixths   GoalMarkerDivision = 6
)

// TimerConfig contains runtime settings for the timer state machine.
type TimerConfig struct {
	GoalMinutes        int
	MarkerDivision     GoalMarkerDivision
	DayCrossoverHour   int
	FirstDayOfWeek     FirstDayOfWeek
	DefaultDisplayMode DisplayMode
}

// InteractionConfig contains runtime settings for the interaction engine.
type InteractionConfig struct {
	GoalMinutes        int
	ScrollMode         KnobScrollMode
	DropZoneDwell      time.Duration
	UndoWindow         time.Duration
	LongPressThreshold time.Duration
}
