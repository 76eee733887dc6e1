// Package clockface renders the wall clock and the focus timer in a window
// and forwards keyboard and button input to the interaction engine.
package clockface

import (
	"image/color"
	"math"

	"focusflow/internal/core/interaction"
	"focusflow/internal/core/wallclock"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Input receives the window's gestures. *interaction.Engine satisfies it.
type Input interface {
	KnobClick()
	KnobKey(key interaction.Key, shift bool)
	KnobWheel(deltaY float64, overKnob bool)
	KnobPress(y float64)
	PointerMove(y float64)
	KnobRelease()
	CancelKnob()
	DropZoneEnter()
	DropZoneLeave()
	SetGoalAndBreak()
	Undo()
	PressStart(action interaction.Action)
	PressEnd()
}

// Callbacks defines handlers that bypass the interaction engine.
type Callbacks struct {
	OnToggleRun func()
}

// View is what the window shows besides the hands.
type View struct {
	Timer    string
	Subtitle string
	Undo     bool
	Running  bool
	InBreak  bool

	KnobOpen    bool
	KnobLabel   string
	Texture     float64
	DropHovered bool
	DropArmed   bool
	Pressing    interaction.Action
}

const (
	hourHandLength   = float32(0.5)
	minuteHandLength = float32(0.75)
	secondHandLength = float32(0.85)
)

var (
	faceColor   = color.NRGBA{R: 24, G: 24, B: 28, A: 255}
	handColor   = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
	secondColor = color.NRGBA{R: 232, G: 190, B: 66, A: 255}
)

// Window manages the clock window.
type Window struct {
	window    fyne.Window
	input     Input
	callbacks Callbacks
	shift     bool

	face       *canvas.Circle
	hourHand   *canvas.Line
	minuteHand *canvas.Line
	secondHand *canvas.Line
	layout     *faceLayout

	timerLabel    *canvas.Text
	subtitleLabel *canvas.Text
	runButton     *widget.Button
	goalButton    *widget.Button
	undoButton    *holdButton
	breakButton   *holdButton

	knob *knob
	drop *dropTarget
}

// New creates the clock window.
func New(app fyne.App, input Input, callbacks Callbacks) *Window {
	window := app.NewWindow("FocusFlow")
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	face := canvas.NewCircle(faceColor)
	face.StrokeColor = handColor
	face.StrokeWidth = 2

	hourHand := canvas.NewLine(handColor)
	hourHand.StrokeWidth = 5
	minuteHand := canvas.NewLine(handColor)
	minuteHand.StrokeWidth = 3
	secondHand := canvas.NewLine(secondColor)
	secondHand.StrokeWidth = 1

	timerLabel := canvas.NewText("00:00", secondColor)
	timerLabel.Alignment = fyne.TextAlignCenter
	timerLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	timerLabel.TextSize = 28

	subtitleLabel := canvas.NewText("", handColor)
	subtitleLabel.Alignment = fyne.TextAlignCenter
	subtitleLabel.TextSize = 14

	clock := &Window{
		window:        window,
		input:         input,
		callbacks:     callbacks,
		face:          face,
		hourHand:      hourHand,
		minuteHand:    minuteHand,
		secondHand:    secondHand,
		layout:        &faceLayout{},
		timerLabel:    timerLabel,
		subtitleLabel: subtitleLabel,
	}

	clock.runButton = widget.NewButton("Start", invoke(callbacks.OnToggleRun))
	clock.goalButton = widget.NewButton("Set goal & break", input.SetGoalAndBreak)
	clock.undoButton = newHoldButton("Undo", interaction.ActionUndo, input, input.Undo)
	clock.undoButton.Disable()
	clock.breakButton = newHoldButton("Hold for break", interaction.ActionStartBreak, input, nil)
	clock.drop = newDropTarget(clock.hoverDrop)
	clock.knob = newKnob(input, clock.drop)

	dial := container.New(clock.layout, face, hourHand, minuteHand, secondHand)
	buttons := container.NewGridWithColumns(4, clock.runButton, clock.goalButton, clock.undoButton, clock.breakButton)
	labels := container.NewVBox(timerLabel, subtitleLabel)
	bottom := container.NewVBox(labels, clock.drop, buttons)
	content := container.NewBorder(nil, bottom, nil, clock.knob, dial)
	window.SetContent(container.NewStack(newWheelArea(clock.wheel), content))
	window.Resize(fyne.NewSize(440, 520))
	window.SetCloseIntercept(window.Hide)

	window.Canvas().SetOnTypedKey(clock.typedKey)
	if keys, ok := window.Canvas().(desktop.Canvas); ok {
		keys.SetOnKeyDown(clock.keyDown)
		keys.SetOnKeyUp(clock.keyUp)
	}

	return clock
}

// Show displays the window.
func (clock *Window) Show() {
	clock.window.Show()
	clock.window.RequestFocus()
}

// SetHands moves the clock hands. Safe to call from any goroutine.
func (clock *Window) SetHands(hands wallclock.Hands) {
	fyne.Do(func() {
		clock.setHandsUnsafe(hands)
	})
}

// SetView updates the timer text and buttons. Safe to call from any goroutine.
func (clock *Window) SetView(view View) {
	fyne.Do(func() {
		clock.setViewUnsafe(view)
	})
}

func (clock *Window) setHandsUnsafe(hands wallclock.Hands) {
	clock.layout.hands = hands
	clock.layout.placeHands(clock.hourHand, clock.minuteHand, clock.secondHand)
	canvas.Refresh(clock.hourHand)
	canvas.Refresh(clock.minuteHand)
	canvas.Refresh(clock.secondHand)
}

func (clock *Window) setViewUnsafe(view View) {
	clock.timerLabel.Text = view.Timer
	clock.timerLabel.Refresh()
	clock.subtitleLabel.Text = view.Subtitle
	clock.subtitleLabel.Refresh()

	if view.Running {
		clock.runButton.SetText("Pause")
	} else {
		clock.runButton.SetText("Start")
	}
	if view.InBreak {
		clock.runButton.Disable()
		clock.breakButton.Disable()
		clock.goalButton.SetText("End break & start next")
	} else {
		clock.runButton.Enable()
		clock.breakButton.Enable()
		clock.goalButton.SetText("Set goal & break")
	}
	if view.Pressing == interaction.ActionStartBreak {
		clock.breakButton.SetText("Keep holding")
	} else {
		clock.breakButton.SetText("Hold for break")
	}
	if view.Undo {
		clock.undoButton.Enable()
	} else {
		clock.undoButton.Disable()
	}

	label := view.KnobLabel
	if label == "" {
		label = "adjust"
	}
	clock.knob.setState(view.KnobOpen, label, view.Texture)
	clock.drop.setState(view.DropHovered, view.DropArmed)
}

func (clock *Window) typedKey(event *fyne.KeyEvent) {
	if key, ok := KeyFor(event.Name); ok {
		clock.input.KnobKey(key, clock.shift)
	}
}

func (clock *Window) keyDown(event *fyne.KeyEvent) {
	if event.Name == desktop.KeyShiftLeft || event.Name == desktop.KeyShiftRight {
		clock.shift = true
	}
}

func (clock *Window) keyUp(event *fyne.KeyEvent) {
	if event.Name == desktop.KeyShiftLeft || event.Name == desktop.KeyShiftRight {
		clock.shift = false
	}
}

// hoverDrop forwards pointer hover over the drop target. During a knob drag
// the knob reports the drop zone itself.
func (clock *Window) hoverDrop(inside bool) {
	if clock.knob == nil || clock.knob.dragging {
		return
	}
	if inside {
		clock.input.DropZoneEnter()
	} else {
		clock.input.DropZoneLeave()
	}
}

func (clock *Window) wheel(deltaY float64) {
	clock.input.KnobWheel(deltaY, false)
}

// KeyFor maps a fyne key to a knob key.
func KeyFor(name fyne.KeyName) (interaction.Key, bool) {
	switch name {
	case fyne.KeyUp:
		return interaction.KeyUp, true
	case fyne.KeyDown:
		return interaction.KeyDown, true
	case fyne.KeyLeft:
		return interaction.KeyLeft, true
	case fyne.KeyRight:
		return interaction.KeyRight, true
	case fyne.KeyReturn, fyne.KeyEnter:
		return interaction.KeyEnter, true
	case fyne.KeySpace:
		return interaction.KeySpace, true
	case fyne.KeyEscape:
		return interaction.KeyEscape, true
	default:
		return "", false
	}
}

// HandEnd returns the tip of a hand of the given length rotated degrees
// clockwise from twelve o'clock.
func HandEnd(center fyne.Position, length float32, degrees float64) fyne.Position {
	radians := degrees * math.Pi / 180
	return fyne.NewPos(
		center.X+length*float32(math.Sin(radians)),
		center.Y-length*float32(math.Cos(radians)),
	)
}

func invoke(callback func()) func() {
	return func() {
		if callback != nil {
			callback()
		}
	}
}

// faceLayout keeps the dial square and centred and places the hands.
type faceLayout struct {
	hands  wallclock.Hands
	center fyne.Position
	radius float32
}

func (layout *faceLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 4 {
		return
	}
	side := size.Width
	if size.Height < side {
		side = size.Height
	}
	side *= 0.9
	layout.radius = side / 2
	layout.center = fyne.NewPos(size.Width/2, size.Height/2)

	face := objects[0]
	face.Move(fyne.NewPos(layout.center.X-layout.radius, layout.center.Y-layout.radius))
	face.Resize(fyne.NewSize(side, side))

	hour, hourOK := objects[1].(*canvas.Line)
	minute, minuteOK := objects[2].(*canvas.Line)
	second, secondOK := objects[3].(*canvas.Line)
	if hourOK && minuteOK && secondOK {
		layout.placeHands(hour, minute, second)
	}
}

func (layout *faceLayout) MinSize([]fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(200, 200)
}

func (layout *faceLayout) placeHands(hour, minute, second *canvas.Line) {
	place := func(line *canvas.Line, fraction float32, degrees float64) {
		line.Position1 = layout.center
		line.Position2 = HandEnd(layout.center, layout.radius*fraction, degrees)
	}
	place(hour, hourHandLength, layout.hands.Hours)
	place(minute, minuteHandLength, layout.hands.Minutes)
	place(second, secondHandLength, layout.hands.Seconds)
}
