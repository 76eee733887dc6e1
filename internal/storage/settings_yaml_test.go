package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"focusflow/internal/core/model"
	"focusflow/internal/ui/preferences"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	settings, err := LoadSettingsFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, preferences.DefaultSettings(), settings)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", settingsFileName)
	want := preferences.DefaultSettings()
	want.GoalMinutes = 50
	want.MarkerDivision = model.DivisionNone
	want.DefaultDisplayMode = model.DisplayCountdown
	want.ScrollMode = model.ScrollDownIsIncrease
	want.SecondHandStyle = model.SecondHandHighFreqEscapement
	want.FirstDayOfWeek = model.WeekStartsSunday
	want.DayCrossoverHour = 0
	want.LongPressThreshold = 900 * time.Millisecond
	want.DropZoneDwell = 1500 * time.Millisecond
	want.UndoWindow = 20 * time.Second
	want.Interference = model.InterferenceZero

	require.NoError(t, SaveSettingsFile(path, want))
	got, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInvalidValuesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	raw := `
goal_minutes: -5
marker_division: 5
default_display_mode: sideways
knob_scroll_mode: natural
second_hand_style: pendulum
first_day_of_week: friday
day_crossover_hour: 24
long_press_ms: 0
interference_level: loud
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	settings, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, preferences.DefaultSettings(), settings)
}

func TestPartialFileOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	require.NoError(t, os.WriteFile(path, []byte("goal_minutes: 40\nmarker_division: 0\n"), 0o644))

	settings, err := LoadSettingsFile(path)
	require.NoError(t, err)

	want := preferences.DefaultSettings()
	want.GoalMinutes = 40
	want.MarkerDivision = model.DivisionNone
	assert.Equal(t, want, settings)
}

func TestMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	require.NoError(t, os.WriteFile(path, []byte("goal_minutes: [\n"), 0o644))

	settings, err := LoadSettingsFile(path)
	require.Error(t, err)
	assert.Equal(t, preferences.DefaultSettings(), settings)
}
