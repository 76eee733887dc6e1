package clockface

import (
	"fmt"
	"testing"

	"focusflow/internal/core/interaction"
	"focusflow/internal/core/wallclock"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

type recordingInput struct {
	calls []string
}

func (input *recordingInput) record(format string, args ...any) {
	input.calls = append(input.calls, fmt.Sprintf(format, args...))
}

func (input *recordingInput) take() []string {
	calls := input.calls
	input.calls = nil
	return calls
}

func (input *recordingInput) KnobClick() { input.record("click") }
func (input *recordingInput) KnobKey(key interaction.Key, shift bool) {
	input.record("key(%s,%t)", key, shift)
}
func (input *recordingInput) KnobWheel(deltaY float64, overKnob bool) {
	input.record("wheel(%g,%t)", deltaY, overKnob)
}
func (input *recordingInput) KnobPress(y float64)   { input.record("press(%g)", y) }
func (input *recordingInput) PointerMove(y float64) { input.record("move(%g)", y) }
func (input *recordingInput) KnobRelease()          { input.record("release") }
func (input *recordingInput) CancelKnob()           { input.record("cancel") }
func (input *recordingInput) DropZoneEnter()        { input.record("dropEnter") }
func (input *recordingInput) DropZoneLeave()        { input.record("dropLeave") }
func (input *recordingInput) SetGoalAndBreak()      { input.record("goal") }
func (input *recordingInput) Undo()                 { input.record("undo") }
func (input *recordingInput) PressStart(action interaction.Action) {
	input.record("pressStart(%s)", action)
}
func (input *recordingInput) PressEnd() { input.record("pressEnd") }

var _ Input = (*interaction.Engine)(nil)

func newTestWindow(t *testing.T) (*Window, *recordingInput, *[]string) {
	t.Helper()
	app := test.NewApp()
	t.Cleanup(app.Quit)

	input := &recordingInput{}
	var toggles []string
	clock := New(app, input, Callbacks{OnToggleRun: func() { toggles = append(toggles, "run") }})
	clock.window.Resize(fyne.NewSize(440, 520))
	return clock, input, &toggles
}

func TestHandEnd(t *testing.T) {
	center := fyne.NewPos(100, 100)

	cases := []struct {
		degrees float64
		want    fyne.Position
	}{
		{0, fyne.NewPos(100, 50)},
		{90, fyne.NewPos(150, 100)},
		{180, fyne.NewPos(100, 150)},
		{270, fyne.NewPos(50, 100)},
	}
	for _, tc := range cases {
		got := HandEnd(center, 50, tc.degrees)
		assert.InDelta(t, tc.want.X, got.X, 1e-3, "degrees=%v", tc.degrees)
		assert.InDelta(t, tc.want.Y, got.Y, 1e-3, "degrees=%v", tc.degrees)
	}
}

func TestKeyFor(t *testing.T) {
	key, ok := KeyFor(fyne.KeyUp)
	assert.True(t, ok)
	assert.Equal(t, interaction.KeyUp, key)

	key, ok = KeyFor(fyne.KeyReturn)
	assert.True(t, ok)
	assert.Equal(t, interaction.KeyEnter, key)

	_, ok = KeyFor(fyne.KeyA)
	assert.False(t, ok)
}

func TestWindowButtons(t *testing.T) {
	clock, input, toggles := newTestWindow(t)

	clock.setViewUnsafe(View{Timer: "12:05", Subtitle: "focus", Running: true, Undo: true})
	assert.Equal(t, "12:05", clock.timerLabel.Text)
	assert.Equal(t, "Pause", clock.runButton.Text)
	assert.False(t, clock.undoButton.Disabled())

	test.Tap(clock.runButton)
	test.Tap(clock.goalButton)
	test.Tap(clock.undoButton)
	assert.Equal(t, []string{"run"}, *toggles)
	assert.Equal(t, []string{"goal", "undo"}, input.take())

	clock.setViewUnsafe(View{Timer: "04:59", InBreak: true})
	assert.True(t, clock.runButton.Disabled())
	assert.True(t, clock.undoButton.Disabled())
	assert.True(t, clock.breakButton.Disabled())
	assert.Equal(t, "End break & start next", clock.goalButton.Text)
}

func TestTypedKeysCarryShift(t *testing.T) {
	clock, input, _ := newTestWindow(t)

	clock.keyDown(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	clock.window.Canvas().OnTypedKey()(&fyne.KeyEvent{Name: fyne.KeyUp})
	clock.keyUp(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	clock.window.Canvas().OnTypedKey()(&fyne.KeyEvent{Name: fyne.KeyDown})
	clock.window.Canvas().OnTypedKey()(&fyne.KeyEvent{Name: fyne.KeyB})

	assert.Equal(t, []string{"key(up,true)", "key(down,false)"}, input.take())
}

func TestKnobGestures(t *testing.T) {
	clock, input, _ := newTestWindow(t)

	clock.knob.Tapped(&fyne.PointEvent{})
	clock.knob.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 1}})
	clock.knob.MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonSecondary})
	clock.knob.MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonPrimary})
	newWheelArea(clock.wheel).Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: -1}})

	assert.Equal(t, []string{"click", "wheel(-1,true)", "cancel", "wheel(1,false)"}, input.take())
}

func TestKnobDragOntoDropTarget(t *testing.T) {
	clock, input, _ := newTestWindow(t)
	clock.drop.Resize(fyne.NewSize(200, 40))
	clock.knob.locate = func(fyne.CanvasObject) fyne.Position { return fyne.NewPos(0, 400) }

	drag := func(y float32, delta float32) {
		clock.knob.Dragged(&fyne.DragEvent{
			PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, y), AbsolutePosition: fyne.NewPos(30, 300+y)},
			Dragged:    fyne.Delta{DY: delta},
		})
	}

	drag(70, -30)
	assert.Equal(t, []string{"press(100)", "move(70)"}, input.take())

	drag(110, 40)
	assert.Equal(t, []string{"move(110)", "dropEnter"}, input.take())

	// Hover events are ignored while the knob drives the drop zone.
	clock.drop.MouseOut()
	drag(120, 10)
	assert.Equal(t, []string{"move(120)"}, input.take())

	clock.knob.DragEnd()
	clock.knob.DragEnd()
	assert.Equal(t, []string{"release", "dropLeave"}, input.take())

	clock.drop.MouseIn(&desktop.MouseEvent{})
	clock.drop.MouseOut()
	assert.Equal(t, []string{"dropEnter", "dropLeave"}, input.take())
}

func TestHoldButtonReportsPress(t *testing.T) {
	clock, input, _ := newTestWindow(t)

	clock.breakButton.MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonPrimary})
	clock.breakButton.MouseUp(&desktop.MouseEvent{})
	test.Tap(clock.breakButton)
	assert.Equal(t, []string{"pressStart(start_break)", "pressEnd"}, input.take())

	clock.setViewUnsafe(View{Pressing: interaction.ActionStartBreak})
	assert.Equal(t, "Keep holding", clock.breakButton.Text)

	clock.setViewUnsafe(View{InBreak: true})
	clock.breakButton.MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonPrimary})
	assert.Empty(t, input.take(), "disabled button ignores presses")
}

func TestViewDrivesKnobAndDropTarget(t *testing.T) {
	clock, _, _ := newTestWindow(t)

	clock.setViewUnsafe(View{KnobOpen: true, KnobLabel: "+05:00", Texture: 12, DropHovered: true, DropArmed: true})
	assert.True(t, clock.knob.open)
	assert.Equal(t, "+05:00", clock.knob.label)
	assert.InDelta(t, 12, clock.knob.texture, 1e-9)
	assert.Equal(t, "Release: set goal & break", clock.drop.label.Text)

	clock.setViewUnsafe(View{})
	assert.False(t, clock.knob.open)
	assert.Equal(t, "adjust", clock.knob.label)
	assert.Equal(t, "Drop here: set goal & break", clock.drop.label.Text)
}

func TestRidgeOffsetWraps(t *testing.T) {
	assert.InDelta(t, 10, RidgeOffset(10, 100), 1e-9)
	assert.InDelta(t, 5, RidgeOffset(105, 100), 1e-9)
	assert.InDelta(t, 90, RidgeOffset(-10, 100), 1e-9)
	assert.Zero(t, RidgeOffset(10, 0))
}

func TestHandsFollowLayout(t *testing.T) {
	clock, _, _ := newTestWindow(t)

	clock.layout.radius = 100
	clock.layout.center = fyne.NewPos(150, 150)
	clock.setHandsUnsafe(wallclock.Hands{Hours: 90, Minutes: 180, Seconds: 0})
	assert.InDelta(t, 200, clock.hourHand.Position2.X, 1e-3)
	assert.InDelta(t, 225, clock.minuteHand.Position2.Y, 1e-3)
	assert.InDelta(t, 65, clock.secondHand.Position2.Y, 1e-3)
}
