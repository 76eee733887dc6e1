package preferences

import (
	"testing"
	"time"

	"focusflow/internal/core/model"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConversions(t *testing.T) {
	settings := DefaultSettings()

	assert.Equal(t, model.TimerConfig{
		GoalMinutes:        25,
		MarkerDivision:     model.DivisionQuarters,
		DayCrossoverHour:   4,
		FirstDayOfWeek:     model.WeekStartsMonday,
		DefaultDisplayMode: model.DisplayCountUp,
	}, settings.TimerConfig())

	assert.Equal(t, model.InteractionConfig{
		GoalMinutes:        25,
		ScrollMode:         model.ScrollNatural,
		DropZoneDwell:      time.Second,
		UndoWindow:         10 * time.Second,
		LongPressThreshold: 700 * time.Millisecond,
	}, settings.InteractionConfig())
}

func TestWindowSave(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	var saved []Settings
	prefs := New(app, DefaultSettings(), func(settings Settings) { saved = append(saved, settings) })

	assert.Equal(t, "25", prefs.goal.Text)
	assert.Equal(t, "Quarters", prefs.division.Selected)
	assert.Equal(t, "Quartz tick", prefs.style.Selected)

	prefs.goal.SetText("45")
	prefs.crossover.SetText("30")
	prefs.undo.SetText("abc")
	prefs.division.SetSelected("Sixths")
	prefs.style.SetSelected("High-frequency escapement")
	prefs.week.SetSelected("Sunday")
	prefs.countdown.SetChecked(true)
	prefs.handleSave()

	require.Len(t, saved, 1)
	want := DefaultSettings()
	want.GoalMinutes = 45
	want.MarkerDivision = model.DivisionSixths
	want.SecondHandStyle = model.SecondHandHighFreqEscapement
	want.FirstDayOfWeek = model.WeekStartsSunday
	want.DefaultDisplayMode = model.DisplayCountdown
	assert.Equal(t, want, saved[0])
}

func TestWindowUpdateSettings(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	prefs := New(app, DefaultSettings(), nil)
	updated := DefaultSettings()
	updated.ScrollMode = model.ScrollDownIsIncrease
	updated.DropZoneDwell = 1500 * time.Millisecond
	prefs.UpdateSettings(updated)

	assert.Equal(t, "Down increases", prefs.scroll.Selected)
	assert.Equal(t, "1500", prefs.dwell.Text)
}
