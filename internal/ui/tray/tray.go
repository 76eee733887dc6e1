package tray

import (
	"fmt"

	"focusflow/internal/core/model"
	"focusflow/internal/core/timekeeper"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnToggleRun         func()
	OnStartBreak        func()
	OnSetGoalAndBreak   func()
	OnEndBreak          func()
	OnUndo              func()
	OnAdjust            func(seconds int)
	OnCycleInterference func()
	OnToggleDisplay     func()
	OnPreferences       func()
	OnQuit              func()
}

// Status is what the tray menu reflects.
type Status struct {
	Snapshot      timekeeper.Snapshot
	GoalMinutes   int
	UndoAvailable bool
	Interference  model.InterferenceLevel
}

// Manager handles system tray state.
type Manager struct {
	app       desktop.App
	callbacks Callbacks
	status    Status

	statusItem       *fyne.MenuItem
	runItem          *fyne.MenuItem
	startBreakItem   *fyne.MenuItem
	goalBreakItem    *fyne.MenuItem
	endBreakItem     *fyne.MenuItem
	undoItem         *fyne.MenuItem
	adjustItem       *fyne.MenuItem
	interferenceItem *fyne.MenuItem
	displayItem      *fyne.MenuItem
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.runItem = fyne.NewMenuItem("Start", invoke(callbacks.OnToggleRun))
	manager.startBreakItem = fyne.NewMenuItem("Start break", invoke(callbacks.OnStartBreak))
	manager.goalBreakItem = fyne.NewMenuItem("Set goal & break", invoke(callbacks.OnSetGoalAndBreak))
	manager.endBreakItem = fyne.NewMenuItem("End break & start next", invoke(callbacks.OnEndBreak))
	manager.undoItem = fyne.NewMenuItem("Undo", invoke(callbacks.OnUndo))

	manager.adjustItem = fyne.NewMenuItem("Adjust time", nil)
	manager.adjustItem.ChildMenu = fyne.NewMenu("",
		manager.adjustEntry("+5 minutes", 300),
		manager.adjustEntry("+1 minute", 60),
		manager.adjustEntry("-1 minute", -60),
		manager.adjustEntry("-5 minutes", -300),
	)

	manager.interferenceItem = fyne.NewMenuItem("Interference", invoke(callbacks.OnCycleInterference))
	manager.displayItem = fyne.NewMenuItem("Show countdown", invoke(callbacks.OnToggleDisplay))

	manager.Update(Status{Snapshot: timekeeper.Snapshot{Mode: model.ModeWork, DisplayMode: model.DisplayCountUp}})
	return manager
}

// Update reflects status in the menu.
func (manager *Manager) Update(status Status) {
	manager.status = status
	snapshot := status.Snapshot
	inBreak := snapshot.Mode == model.ModeBreak

	manager.statusItem.Label = "Status: " + StatusLine(status)

	if snapshot.Active {
		manager.runItem.Label = "Pause"
	} else {
		manager.runItem.Label = "Start"
	}
	manager.runItem.Disabled = inBreak
	manager.startBreakItem.Disabled = inBreak
	manager.goalBreakItem.Disabled = inBreak
	manager.endBreakItem.Disabled = !inBreak
	manager.undoItem.Disabled = !status.UndoAvailable
	manager.adjustItem.Disabled = false

	level := status.Interference
	if level == "" {
		level = snapshot.Interference.Level
	}
	manager.interferenceItem.Label = fmt.Sprintf("Interference: %s", level)

	if snapshot.DisplayMode == model.DisplayCountdown {
		manager.displayItem.Label = "Show count up"
	} else {
		manager.displayItem.Label = "Show countdown"
	}

	manager.refreshMenu()
}

// Menu returns the current tray menu.
func (manager *Manager) Menu() *fyne.Menu {
	return fyne.NewMenu("FocusFlow",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.runItem,
		manager.startBreakItem,
		manager.goalBreakItem,
		manager.endBreakItem,
		manager.undoItem,
		manager.adjustItem,
		fyne.NewMenuItemSeparator(),
		manager.interferenceItem,
		manager.displayItem,
		fyne.NewMenuItem("Preferences", invoke(manager.callbacks.OnPreferences)),
		fyne.NewMenuItem("Quit", invoke(manager.callbacks.OnQuit)),
	)
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.Menu())
	}
}

func (manager *Manager) adjustEntry(label string, seconds int) *fyne.MenuItem {
	return fyne.NewMenuItem(label, func() {
		if manager.callbacks.OnAdjust != nil {
			manager.callbacks.OnAdjust(seconds)
		}
	})
}

func invoke(callback func()) func() {
	return func() {
		if callback != nil {
			callback()
		}
	}
}

// StatusLine renders the timer as shown in the tray, e.g. "focus 12:05 / 25:00".
func StatusLine(status Status) string {
	snapshot := status.Snapshot
	if snapshot.Mode == model.ModeBreak {
		return "break " + FormatSeconds(snapshot.Elapsed) + " left"
	}

	shown := snapshot.Elapsed
	if snapshot.DisplayMode == model.DisplayCountdown {
		shown = snapshot.Remaining(status.GoalMinutes)
	}
	line := fmt.Sprintf("focus %s / %s", FormatSeconds(shown), FormatSeconds(status.GoalMinutes*60))
	if !snapshot.Active && snapshot.Elapsed > 0 {
		line += " (paused)"
	}
	return line
}

// FormatSeconds formats seconds as mm:ss, or h:mm:ss from one hour up.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := seconds / 60 % 60
	seconds %= 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
