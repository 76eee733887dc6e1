package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"focusflow/internal/audio"
	"focusflow/internal/core/interaction"
	"focusflow/internal/core/model"
	"focusflow/internal/core/session"
	"focusflow/internal/core/timekeeper"
	"focusflow/internal/core/wallclock"
	"focusflow/internal/feedback"
	applog "focusflow/internal/log"
	"focusflow/internal/platform"
	"focusflow/internal/storage"
	"focusflow/internal/ui/clockface"
	"focusflow/internal/ui/notify"
	"focusflow/internal/ui/preferences"
	"focusflow/internal/ui/tray"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"
)

const appName = "FocusFlow"

// CLI represents the command-line flags.
type CLI struct {
	Settings   string `help:"Path to the settings YAML file." type:"path" env:"FOCUSFLOW_SETTINGS"`
	SessionsDB string `name:"sessions-db" help:"Path to the SQLite session log." type:"path" env:"FOCUSFLOW_SESSIONS_DB"`
	LogLevel   string `name:"log-level" help:"Log level (trace, debug, info, warn, error)." default:"info" enum:"trace,debug,info,warn,error"`
}

// settingsHolder guards the live settings shared by the UI and the watcher.
type settingsHolder struct {
	mu       sync.Mutex
	settings preferences.Settings
}

func (holder *settingsHolder) get() preferences.Settings {
	holder.mu.Lock()
	defer holder.mu.Unlock()
	return holder.settings
}

func (holder *settingsHolder) set(settings preferences.Settings) {
	holder.mu.Lock()
	defer holder.mu.Unlock()
	holder.settings = settings
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("focusflow"),
		kong.Description("A focus timer with goal markers, breaks and a mechanical clock."),
		kong.UsageOnError(),
	)

	applog.Configure(applog.Config{Level: cli.LogLevel})
	logger := applog.WithComponent("app")

	if err := run(cli); err != nil {
		logger.Error().Err(err).Str("event", "app.failed").Msg("focusflow stopped with an error")
		os.Exit(1)
	}
}

func run(cli CLI) error {
	logger := applog.WithComponent("app")

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			logger.Info().Str("event", "app.already_running").Msg("activating running instance")
			return platform.ActivateRunning(appName)
		}
		return fmt.Errorf("single instance: %w", err)
	}
	defer func() {
		_ = guard.Release()
	}()

	settingsPath := cli.Settings
	if settingsPath == "" {
		if settingsPath, err = storage.SettingsPath(appName); err != nil {
			return err
		}
	}
	loaded, err := storage.LoadSettingsFile(settingsPath)
	if err != nil {
		logger.Warn().Err(err).Str("event", "settings.load_failed").Msg("using default settings")
	}
	holder := &settingsHolder{settings: loaded}

	sessionLog, closeLog := openSessionLog(cli.SessionsDB)
	defer closeLog()

	fyneApp := app.NewWithID("com.focusflow.app")
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		return errors.New("system tray unsupported on this platform")
	}

	notifier := notify.NewNotifier(fyneApp)
	haptics := notify.NewHaptics()

	player := audio.NewEngine(audio.Config{})
	defer func() {
		_ = player.Close()
	}()

	settings := holder.get()
	keeper := timekeeper.New(settings.TimerConfig(), timekeeper.Config{})
	dispatcher := feedback.New(feedback.Config{
		Player:          player,
		Notifier:        notifier,
		Haptics:         haptics,
		SecondHandStyle: settings.SecondHandStyle,
	})
	keeper.SetFeedback(dispatcher)
	keeper.SetSessionLog(sessionLog)
	permission := notifier.Permission()
	if settings.Interference == model.InterferenceStrong {
		permission = notifier.RequestPermission()
	}
	keeper.SetInterference(model.FeedbackContext{Level: settings.Interference, Permission: permission})

	engine := interaction.New(keeper, settings.InteractionConfig(), interaction.Config{
		Haptics:      haptics,
		Permissions:  notifier,
		Interference: settings.Interference,
	})
	defer engine.Close()

	clockWindow := clockface.New(fyneApp, engine, clockface.Callbacks{
		OnToggleRun: keeper.ToggleRun,
	})

	sampler := wallclock.NewSampler(settings.SecondHandStyle, wallclock.Config{}, clockWindow.SetHands)

	apply := func(updated preferences.Settings) {
		holder.set(updated)
		keeper.UpdateConfig(updated.TimerConfig())
		engine.UpdateConfig(updated.InteractionConfig())
		dispatcher.SetSecondHandStyle(updated.SecondHandStyle)
		sampler.SetStyle(updated.SecondHandStyle)
	}
	save := func(updated preferences.Settings) {
		apply(updated)
		if err := storage.SaveSettingsFile(settingsPath, updated); err != nil {
			logger.Error().Err(err).Str("event", "settings.save_failed").Msg("failed to save settings")
		}
	}

	prefsWindow := preferences.New(fyneApp, settings, save)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var trayManager *tray.Manager
	refresh := func() {
		snapshot := keeper.Snapshot()
		state := engine.State()
		goal := holder.get().GoalMinutes
		status := tray.Status{
			Snapshot:      snapshot,
			GoalMinutes:   goal,
			UndoAvailable: state.Undo != interaction.UndoNone,
			Interference:  state.Interference,
		}
		clockWindow.SetView(viewFor(status, state))
		fyne.Do(func() { trayManager.Update(status) })
	}

	trayManager = tray.New(desktopApp, tray.Callbacks{
		OnToggleRun:       keeper.ToggleRun,
		OnStartBreak:      engine.StartBreak,
		OnSetGoalAndBreak: engine.SetGoalAndBreak,
		OnEndBreak:        engine.SetGoalAndBreak,
		OnUndo:            engine.Undo,
		OnAdjust: func(seconds int) {
			nudge(engine, seconds)
		},
		OnCycleInterference: func() {
			level := engine.CycleInterference()
			updated := holder.get()
			updated.Interference = level
			save(updated)
		},
		OnToggleDisplay: keeper.ToggleDisplayMode,
		OnPreferences:   prefsWindow.Show,
		OnQuit: func() {
			cancel()
			keeper.Stop()
			fyneApp.Quit()
		},
	})
	engine.SetOnChange(func(interaction.State) { refresh() })

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return sampler.Run(groupCtx)
	})
	group.Go(func() error {
		return dispatcher.Run(groupCtx, keeper.Subscribe(64))
	})
	uiEvents := keeper.Subscribe(16)
	group.Go(func() error {
		refresh()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case _, ok := <-uiEvents:
				if !ok {
					return nil
				}
				refresh()
			}
		}
	})
	group.Go(func() error {
		if err := storage.WatchSettings(groupCtx, settingsPath, func(updated preferences.Settings) {
			apply(updated)
			fyne.Do(func() { prefsWindow.UpdateSettings(updated) })
			refresh()
		}); err != nil {
			logger.Warn().Err(err).Str("event", "settings.watcher_start_failed").Msg("settings hot reload disabled")
		}
		return nil
	})
	group.Go(func() error {
		return guard.Serve(groupCtx, func() { fyne.Do(clockWindow.Show) })
	})

	clockWindow.Show()
	logger.Info().
		Str("event", "app.started").
		Str("settings", settingsPath).
		Int("sessions", len(keeper.Sessions())).
		Msg("focusflow started")

	fyneApp.Run()

	cancel()
	keeper.Stop()
	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info().Str("event", "app.stopped").Msg("focusflow stopped")
	return nil
}

// openSessionLog opens the SQLite session log, falling back to memory.
func openSessionLog(path string) (session.Log, func()) {
	logger := applog.WithComponent("app")
	if path == "" {
		resolved, err := storage.SessionsPath(appName)
		if err != nil {
			logger.Warn().Err(err).Str("event", "sessions.path_failed").Msg("keeping sessions in memory")
			return session.NewMemoryLog(), func() {}
		}
		path = resolved
	}

	store, err := storage.OpenSessionStore(path)
	if err != nil {
		logger.Warn().Err(err).Str("event", "sessions.open_failed").Str("path", path).Msg("keeping sessions in memory")
		return session.NewMemoryLog(), func() {}
	}
	return store, func() { _ = store.Close() }
}

// nudge adjusts elapsed time the way the knob does, so the change can be undone.
func nudge(engine *interaction.Engine, seconds int) {
	key := interaction.KeyUp
	if seconds < 0 {
		key = interaction.KeyDown
		seconds = -seconds
	}
	engine.KnobClick()
	for ; seconds >= 300; seconds -= 300 {
		engine.KnobKey(key, true)
	}
	for ; seconds >= 60; seconds -= 60 {
		engine.KnobKey(key, false)
	}
	engine.KnobClick()
}

func viewFor(status tray.Status, state interaction.State) clockface.View {
	snapshot := status.Snapshot
	subtitle := fmt.Sprintf("goal %d min · %s", status.GoalMinutes, state.Interference)
	if snapshot.Mode == model.ModeBreak {
		subtitle = "break · " + string(state.Interference)
	}

	timer := tray.FormatSeconds(snapshot.Elapsed)
	if snapshot.Mode == model.ModeWork && snapshot.DisplayMode == model.DisplayCountdown {
		timer = tray.FormatSeconds(snapshot.Remaining(status.GoalMinutes))
	}
	if state.Knob != interaction.KnobClosed {
		timer = tray.FormatSeconds(state.DisplayedTime)
	}

	view := clockface.View{
		Timer:       timer,
		Subtitle:    subtitle,
		Undo:        status.UndoAvailable,
		Running:     snapshot.Active,
		InBreak:     snapshot.Mode == model.ModeBreak,
		KnobOpen:    state.Knob != interaction.KnobClosed,
		Texture:     state.TextureOffset,
		DropHovered: state.DropZoneHovered,
		DropArmed:   state.DropZoneArmed,
		Pressing:    state.Pressing,
	}
	if view.KnobOpen {
		view.KnobLabel = pendingLabel(state.PendingDelta)
	}
	return view
}

// pendingLabel renders the knob's uncommitted change, e.g. "+05:00".
func pendingLabel(delta int) string {
	if delta < 0 {
		return "-" + tray.FormatSeconds(-delta)
	}
	return "+" + tray.FormatSeconds(delta)
}
