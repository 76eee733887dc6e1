package clockface

import (
	"image/color"
	"math"

	"focusflow/internal/core/interaction"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const ridgeCount = 12

var (
	knobClosedColor = color.NRGBA{R: 52, G: 52, B: 60, A: 255}
	knobOpenColor   = color.NRGBA{R: 78, G: 70, B: 40, A: 255}
	dropIdleColor   = color.NRGBA{R: 40, G: 40, B: 46, A: 255}
	dropHoverColor  = color.NRGBA{R: 90, G: 80, B: 40, A: 255}
	dropArmedColor  = color.NRGBA{R: 180, G: 140, B: 40, A: 255}
)

// knob is the ridged adjustment wheel. A tap opens or closes it, a vertical
// drag or the mouse wheel changes time, and a secondary click cancels.
// Dragging onto the drop target arms it.
type knob struct {
	widget.BaseWidget

	input  Input
	target *dropTarget
	locate func(fyne.CanvasObject) fyne.Position

	open     bool
	label    string
	texture  float64
	dragging bool
	overDrop bool
}

func newKnob(input Input, target *dropTarget) *knob {
	item := &knob{
		input:  input,
		target: target,
		label:  "adjust",
		locate: func(object fyne.CanvasObject) fyne.Position {
			return fyne.CurrentApp().Driver().AbsolutePositionForObject(object)
		},
	}
	item.ExtendBaseWidget(item)
	return item
}

func (item *knob) setState(open bool, label string, texture float64) {
	item.open = open
	item.label = label
	item.texture = texture
	item.Refresh()
}

// Tapped implements fyne.Tappable.
func (item *knob) Tapped(*fyne.PointEvent) {
	item.input.KnobClick()
}

// Dragged implements fyne.Draggable. The first event of a drag reports the
// press at the point the pointer started from.
func (item *knob) Dragged(event *fyne.DragEvent) {
	if !item.dragging {
		item.dragging = true
		item.input.KnobPress(float64(event.Position.Y - event.Dragged.DY))
	}
	item.input.PointerMove(float64(event.Position.Y))
	item.trackDrop(event.AbsolutePosition)
}

// DragEnd implements fyne.Draggable.
func (item *knob) DragEnd() {
	if !item.dragging {
		return
	}
	item.dragging = false
	item.input.KnobRelease()
	if item.overDrop {
		item.overDrop = false
		item.input.DropZoneLeave()
	}
}

// Scrolled implements fyne.Scrollable. fyne reports wheel-up as positive DY.
func (item *knob) Scrolled(event *fyne.ScrollEvent) {
	item.input.KnobWheel(float64(-event.Scrolled.DY), true)
}

// MouseDown implements desktop.Mouseable.
func (item *knob) MouseDown(event *desktop.MouseEvent) {
	if event.Button == desktop.MouseButtonSecondary {
		item.input.CancelKnob()
	}
}

// MouseUp implements desktop.Mouseable.
func (item *knob) MouseUp(*desktop.MouseEvent) {}

// trackDrop reports drop-zone enter and leave while dragging; hover events do
// not reach other widgets during a drag.
func (item *knob) trackDrop(absolute fyne.Position) {
	over := item.target != nil && item.target.Visible() && item.contains(item.target, absolute)
	if over == item.overDrop {
		return
	}
	item.overDrop = over
	if over {
		item.input.DropZoneEnter()
	} else {
		item.input.DropZoneLeave()
	}
}

func (item *knob) contains(object fyne.CanvasObject, absolute fyne.Position) bool {
	origin := item.locate(object)
	size := object.Size()
	return absolute.X >= origin.X && absolute.X < origin.X+size.Width &&
		absolute.Y >= origin.Y && absolute.Y < origin.Y+size.Height
}

// CreateRenderer implements fyne.Widget.
func (item *knob) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(knobClosedColor)
	background.CornerRadius = 6
	label := canvas.NewText(item.label, handColor)
	label.Alignment = fyne.TextAlignCenter
	label.TextStyle = fyne.TextStyle{Monospace: true}

	renderer := &knobRenderer{knob: item, background: background, label: label}
	renderer.objects = append(renderer.objects, background)
	for index := 0; index < ridgeCount; index++ {
		ridge := canvas.NewLine(handColor)
		ridge.StrokeWidth = 1
		renderer.ridges = append(renderer.ridges, ridge)
		renderer.objects = append(renderer.objects, ridge)
	}
	renderer.objects = append(renderer.objects, label)
	return renderer
}

type knobRenderer struct {
	knob       *knob
	background *canvas.Rectangle
	ridges     []*canvas.Line
	label      *canvas.Text
	objects    []fyne.CanvasObject
}

func (renderer *knobRenderer) Layout(size fyne.Size) {
	renderer.background.Resize(size)
	spacing := float64(size.Height) / ridgeCount
	for index, ridge := range renderer.ridges {
		y := float32(RidgeOffset(float64(index)*spacing+renderer.knob.texture, float64(size.Height)))
		ridge.Position1 = fyne.NewPos(6, y)
		ridge.Position2 = fyne.NewPos(size.Width-6, y)
	}
	labelHeight := renderer.label.MinSize().Height
	renderer.label.Move(fyne.NewPos(0, (size.Height-labelHeight)/2))
	renderer.label.Resize(fyne.NewSize(size.Width, labelHeight))
}

func (renderer *knobRenderer) MinSize() fyne.Size {
	return fyne.NewSize(72, 180)
}

func (renderer *knobRenderer) Refresh() {
	if renderer.knob.open {
		renderer.background.FillColor = knobOpenColor
	} else {
		renderer.background.FillColor = knobClosedColor
	}
	renderer.label.Text = renderer.knob.label
	renderer.Layout(renderer.knob.Size())
	for _, object := range renderer.objects {
		canvas.Refresh(object)
	}
}

func (renderer *knobRenderer) Objects() []fyne.CanvasObject {
	return renderer.objects
}

func (renderer *knobRenderer) Destroy() {}

// RidgeOffset wraps a ridge position into [0, height).
func RidgeOffset(position, height float64) float64 {
	if height <= 0 {
		return 0
	}
	wrapped := math.Mod(position, height)
	if wrapped < 0 {
		wrapped += height
	}
	return wrapped
}

// dropTarget is the "set goal & break" zone. Hovering with the pointer starts
// the arming dwell the same way a knob drag does.
type dropTarget struct {
	widget.BaseWidget

	onHover    func(inside bool)
	background *canvas.Rectangle
	label      *canvas.Text
}

func newDropTarget(onHover func(inside bool)) *dropTarget {
	background := canvas.NewRectangle(dropIdleColor)
	background.CornerRadius = 6
	label := canvas.NewText("Drop here: set goal & break", handColor)
	label.Alignment = fyne.TextAlignCenter

	target := &dropTarget{onHover: onHover, background: background, label: label}
	target.ExtendBaseWidget(target)
	return target
}

func (target *dropTarget) setState(hovered, armed bool) {
	switch {
	case armed:
		target.background.FillColor = dropArmedColor
		target.label.Text = "Release: set goal & break"
	case hovered:
		target.background.FillColor = dropHoverColor
		target.label.Text = "Hold still to arm"
	default:
		target.background.FillColor = dropIdleColor
		target.label.Text = "Drop here: set goal & break"
	}
	target.background.Refresh()
	target.label.Refresh()
}

// MouseIn implements desktop.Hoverable.
func (target *dropTarget) MouseIn(*desktop.MouseEvent) {
	if target.onHover != nil {
		target.onHover(true)
	}
}

// MouseMoved implements desktop.Hoverable.
func (target *dropTarget) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable.
func (target *dropTarget) MouseOut() {
	if target.onHover != nil {
		target.onHover(false)
	}
}

// CreateRenderer implements fyne.Widget.
func (target *dropTarget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(target.background, container.NewCenter(target.label)))
}

// holdButton is a button that also reports press and release, for actions
// that fire only after a long press.
type holdButton struct {
	widget.Button

	action interaction.Action
	input  Input
}

func newHoldButton(label string, action interaction.Action, input Input, tapped func()) *holdButton {
	button := &holdButton{action: action, input: input}
	button.Text = label
	button.OnTapped = tapped
	button.ExtendBaseWidget(button)
	return button
}

// MouseDown implements desktop.Mouseable.
func (button *holdButton) MouseDown(event *desktop.MouseEvent) {
	if button.Disabled() || event.Button != desktop.MouseButtonPrimary {
		return
	}
	button.input.PressStart(button.action)
}

// MouseUp implements desktop.Mouseable.
func (button *holdButton) MouseUp(*desktop.MouseEvent) {
	button.input.PressEnd()
}

// wheelArea catches wheel events over the window outside the knob.
type wheelArea struct {
	widget.BaseWidget
	onScroll func(deltaY float64)
}

func newWheelArea(onScroll func(deltaY float64)) *wheelArea {
	area := &wheelArea{onScroll: onScroll}
	area.ExtendBaseWidget(area)
	return area
}

// Scrolled implements fyne.Scrollable.
func (area *wheelArea) Scrolled(event *fyne.ScrollEvent) {
	area.onScroll(float64(-event.Scrolled.DY))
}

// CreateRenderer implements fyne.Widget.
func (area *wheelArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}
