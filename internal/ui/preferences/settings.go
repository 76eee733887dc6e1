package preferences

import (
	"time"

	"focusflow/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	GoalMinutes        int
	MarkerDivision     model.GoalMarkerDivision
	DefaultDisplayMode model.DisplayMode
	ScrollMode         model.KnobScrollMode
	SecondHandStyle    model.SecondHandStyle
	FirstDayOfWeek     model.FirstDayOfWeek
	DayCrossoverHour   int

	LongPressThreshold time.Duration
	DropZoneDwell      time.Duration
	UndoWindow         time.Duration

	Interference model.InterferenceLevel
}

// DefaultSettings returns default settings for FocusFlow.
func DefaultSettings() Settings {
	return Settings{
		GoalMinutes:        25,
		MarkerDivision:     model.DivisionQuarters,
		DefaultDisplayMode: model.DisplayCountUp,
		ScrollMode:         model.ScrollNatural,
		SecondHandStyle:    model.SecondHandQuartzTick,
		FirstDayOfWeek:     model.WeekStartsMonday,
		DayCrossoverHour:   4,
		LongPressThreshold: 700 * time.Millisecond,
		DropZoneDwell:      time.Second,
		UndoWindow:         10 * time.Second,
		Interference:       model.InterferenceWeak,
	}
}

// TimerConfig converts settings to the timer configuration.
func (settings Settings) TimerConfig() model.TimerConfig {
	return model.TimerConfig{
		GoalMinutes:        settings.GoalMinutes,
		MarkerDivision:     settings.MarkerDivision,
		DayCrossoverHour:   settings.DayCrossoverHour,
		FirstDayOfWeek:     settings.FirstDayOfWeek,
		DefaultDisplayMode: settings.DefaultDisplayMode,
	}
}

// InteractionConfig converts settings to the interaction configuration.
func (settings Settings) InteractionConfig() model.InteractionConfig {
	return model.InteractionConfig{
		GoalMinutes:        settings.GoalMinutes,
		ScrollMode:         settings.ScrollMode,
		DropZoneDwell:      settings.DropZoneDwell,
		UndoWindow:         settings.UndoWindow,
		LongPressThreshold: settings.LongPressThreshold,
	}
}
