package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"focusflow/internal/core/model"
	"focusflow/internal/ui/preferences"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	GoalMinutes         int    `yaml:"goal_minutes"`
	MarkerDivision      *int   `yaml:"marker_division,omitempty"`
	DefaultDisplayMode  string `yaml:"default_display_mode"`
	ScrollMode          string `yaml:"knob_scroll_mode"`
	SecondHandStyle     string `yaml:"second_hand_style"`
	FirstDayOfWeek      string `yaml:"first_day_of_week"`
	DayCrossoverHour    *int   `yaml:"day_crossover_hour,omitempty"`
	LongPressMillis     int    `yaml:"long_press_ms"`
	DropZoneDwellMillis int    `yaml:"drop_zone_dwell_ms"`
	UndoWindowSeconds   int    `yaml:"undo_window_seconds"`
	InterferenceLevel   string `yaml:"interference_level"`
}

// SettingsPath returns the default settings file location for appName.
func SettingsPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettingsFile reads user preferences from YAML at path.
// If the file does not exist, default settings are returned. Invalid values
// keep their defaults.
func LoadSettingsFile(path string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettingsFile atomically writes user preferences to YAML at path.
func SaveSettingsFile(path string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	division := int(settings.MarkerDivision)
	crossover := settings.DayCrossoverHour
	fileData := yamlSettings{
		GoalMinutes:         settings.GoalMinutes,
		MarkerDivision:      &division,
		DefaultDisplayMode:  string(settings.DefaultDisplayMode),
		ScrollMode:          string(settings.ScrollMode),
		SecondHandStyle:     string(settings.SecondHandStyle),
		FirstDayOfWeek:      string(settings.FirstDayOfWeek),
		DayCrossoverHour:    &crossover,
		LongPressMillis:     int(settings.LongPressThreshold / time.Millisecond),
		DropZoneDwellMillis: int(settings.DropZoneDwell / time.Millisecond),
		UndoWindowSeconds:   int(settings.UndoWindow / time.Second),
		InterferenceLevel:   string(settings.Interference),
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := renameio.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.GoalMinutes > 0 {
		settings.GoalMinutes = fileData.GoalMinutes
	}
	if fileData.MarkerDivision != nil {
		switch division := model.GoalMarkerDivision(*fileData.MarkerDivision); division {
		case model.DivisionNone, model.DivisionThirds, model.DivisionQuarters, model.DivisionSixths:
			settings.MarkerDivision = division
		}
	}
	if fileData.DayCrossoverHour != nil && *fileData.DayCrossoverHour >= 0 && *fileData.DayCrossoverHour <= 23 {
		settings.DayCrossoverHour = *fileData.DayCrossoverHour
	}

	switch mode := model.DisplayMode(fileData.DefaultDisplayMode); mode {
	case model.DisplayCountUp, model.DisplayCountdown:
		settings.DefaultDisplayMode = mode
	}
	switch mode := model.KnobScrollMode(fileData.ScrollMode); mode {
	case model.ScrollNatural, model.ScrollUpIsIncrease, model.ScrollDownIsIncrease:
		settings.ScrollMode = mode
	}
	switch style := model.SecondHandStyle(fileData.SecondHandStyle); style {
	case model.SecondHandQuartzTick, model.SecondHandQuartzSweep,
		model.SecondHandTraditionalEscapement, model.SecondHandHighFreqEscapement:
		settings.SecondHandStyle = style
	}
	switch day := model.FirstDayOfWeek(fileData.FirstDayOfWeek); day {
	case model.WeekStartsSunday, model.WeekStartsMonday:
		settings.FirstDayOfWeek = day
	}
	switch level := model.InterferenceLevel(fileData.InterferenceLevel); level {
	case model.InterferenceZero, model.InterferenceWeak, model.InterferenceStrong:
		settings.Interference = level
	}

	if fileData.LongPressMillis > 0 {
		settings.LongPressThreshold = time.Duration(fileData.LongPressMillis) * time.Millisecond
	}
	if fileData.DropZoneDwellMillis > 0 {
		settings.DropZoneDwell = time.Duration(fileData.DropZoneDwellMillis) * time.Millisecond
	}
	if fileData.UndoWindowSeconds > 0 {
		settings.UndoWindow = time.Duration(fileData.UndoWindowSeconds) * time.Second
	}
}
