package preferences

import (
	"fmt"
	"strconv"
	"time"

	"focusflow/internal/core/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

var (
	divisionOptions = map[string]model.GoalMarkerDivision{
		"None":     model.DivisionNone,
		"Thirds":   model.DivisionThirds,
		"Quarters": model.DivisionQuarters,
		"Sixths":   model.DivisionSixths,
	}
	styleOptions = map[string]model.SecondHandStyle{
		"Quartz tick":               model.SecondHandQuartzTick,
		"Quartz sweep":              model.SecondHandQuartzSweep,
		"Traditional escapement":    model.SecondHandTraditionalEscapement,
		"High-frequency escapement": model.SecondHandHighFreqEscapement,
	}
	scrollOptions = map[string]model.KnobScrollMode{
		"Natural":        model.ScrollNatural,
		"Up increases":   model.ScrollUpIsIncrease,
		"Down increases": model.ScrollDownIsIncrease,
	}
	weekOptions = map[string]model.FirstDayOfWeek{
		"Monday": model.WeekStartsMonday,
		"Sunday": model.WeekStartsSunday,
	}

	divisionLabels = []string{"None", "Thirds", "Quarters", "Sixths"}
	styleLabels    = []string{"Quartz tick", "Quartz sweep", "Traditional escapement", "High-frequency escapement"}
	scrollLabels   = []string{"Natural", "Up increases", "Down increases"}
	weekLabels     = []string{"Monday", "Sunday"}
)

// Window handles the preferences UI.
type Window struct {
	window   fyne.Window
	settings Settings
	onSave   func(Settings)
	onCancel func()

	goal      *widget.Entry
	crossover *widget.Entry
	undo      *widget.Entry
	longPress *widget.Entry
	dwell     *widget.Entry
	division  *widget.Select
	style     *widget.Select
	scroll    *widget.Select
	week      *widget.Select
	countdown *widget.Check
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("FocusFlow Settings")

	prefs := &Window{
		window:    window,
		onSave:    onSave,
		goal:      widget.NewEntry(),
		crossover: widget.NewEntry(),
		undo:      widget.NewEntry(),
		longPress: widget.NewEntry(),
		dwell:     widget.NewEntry(),
		division:  widget.NewSelect(divisionLabels, nil),
		style:     widget.NewSelect(styleLabels, nil),
		scroll:    widget.NewSelect(scrollLabels, nil),
		week:      widget.NewSelect(weekLabels, nil),
		countdown: widget.NewCheck("Count down by default", nil),
	}

	form := container.NewVBox(
		widget.NewLabelWithStyle("Focus", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Goal"), prefs.goal, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Sub-goals"), prefs.division),
		prefs.countdown,
		widget.NewLabelWithStyle("Clock", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Second hand"), prefs.style),
		container.NewHBox(widget.NewLabel("Week starts on"), prefs.week),
		container.NewHBox(widget.NewLabel("New day starts at"), prefs.crossover, widget.NewLabel("h")),
		widget.NewLabelWithStyle("Controls", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Knob scrolling"), prefs.scroll),
		container.NewHBox(widget.NewLabel("Undo window"), prefs.undo, widget.NewLabel("sec")),
		container.NewHBox(widget.NewLabel("Long press"), prefs.longPress, widget.NewLabel("ms")),
		container.NewHBox(widget.NewLabel("Drop zone dwell"), prefs.dwell, widget.NewLabel("ms")),
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", func() {
		window.Hide()
		if prefs.onCancel != nil {
			prefs.onCancel()
		}
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(440, 520))
	window.SetCloseIntercept(window.Hide)

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.goal.SetText(strconv.Itoa(settings.GoalMinutes))
	prefs.crossover.SetText(strconv.Itoa(settings.DayCrossoverHour))
	prefs.undo.SetText(fmt.Sprintf("%d", int(settings.UndoWindow.Seconds())))
	prefs.longPress.SetText(fmt.Sprintf("%d", settings.LongPressThreshold.Milliseconds()))
	prefs.dwell.SetText(fmt.Sprintf("%d", settings.DropZoneDwell.Milliseconds()))
	prefs.division.SetSelected(labelFor(divisionOptions, settings.MarkerDivision))
	prefs.style.SetSelected(labelFor(styleOptions, settings.SecondHandStyle))
	prefs.scroll.SetSelected(labelFor(scrollOptions, settings.ScrollMode))
	prefs.week.SetSelected(labelFor(weekOptions, settings.FirstDayOfWeek))
	prefs.countdown.SetChecked(settings.DefaultDisplayMode == model.DisplayCountdown)
}

func (prefs *Window) handleSave() {
	settings := prefs.settings

	if minutes, ok := parsePositiveInt(prefs.goal.Text); ok {
		settings.GoalMinutes = minutes
	}
	if hour, err := strconv.Atoi(prefs.crossover.Text); err == nil && hour >= 0 && hour <= 23 {
		settings.DayCrossoverHour = hour
	}
	if seconds, ok := parsePositiveInt(prefs.undo.Text); ok {
		settings.UndoWindow = time.Duration(seconds) * time.Second
	}
	if millis, ok := parsePositiveInt(prefs.longPress.Text); ok {
		settings.LongPressThreshold = time.Duration(millis) * time.Millisecond
	}
	if millis, ok := parsePositiveInt(prefs.dwell.Text); ok {
		settings.DropZoneDwell = time.Duration(millis) * time.Millisecond
	}
	if division, ok := divisionOptions[prefs.division.Selected]; ok {
		settings.MarkerDivision = division
	}
	if style, ok := styleOptions[prefs.style.Selected]; ok {
		settings.SecondHandStyle = style
	}
	if mode, ok := scrollOptions[prefs.scroll.Selected]; ok {
		settings.ScrollMode = mode
	}
	if day, ok := weekOptions[prefs.week.Selected]; ok {
		settings.FirstDayOfWeek = day
	}
	if prefs.countdown.Checked {
		settings.DefaultDisplayMode = model.DisplayCountdown
	} else {
		settings.DefaultDisplayMode = model.DisplayCountUp
	}

	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func labelFor[V comparable](options map[string]V, value V) string {
	for label, candidate := range options {
		if candidate == value {
			return label
		}
	}
	return ""
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
