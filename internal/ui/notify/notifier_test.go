package notify

import (
	"testing"
	"time"

	"focusflow/internal/core/model"

	"fyne.io/fyne/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []*fyne.Notification
}

func (sender *recordingSender) SendNotification(notification *fyne.Notification) {
	sender.sent = append(sender.sent, notification)
}

func newTestNotifier(sender Sender) *Notifier {
	notifier := NewNotifier(sender)
	notifier.do = func(fn func()) { fn() }
	return notifier
}

func TestPermissionFlow(t *testing.T) {
	notifier := newTestNotifier(&recordingSender{})

	assert.Equal(t, model.PermissionDefault, notifier.Permission())
	assert.Equal(t, model.PermissionGranted, notifier.RequestPermission())
	assert.Equal(t, model.PermissionGranted, notifier.Permission())
}

func TestShowSendsNotification(t *testing.T) {
	sender := &recordingSender{}
	notifier := newTestNotifier(sender)

	notifier.Show("Goal reached!", "25 minutes of focus.")
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Goal reached!", sender.sent[0].Title)
	assert.Equal(t, "25 minutes of focus.", sender.sent[0].Content)
}

func TestWithoutSenderEverythingIsDenied(t *testing.T) {
	notifier := newTestNotifier(nil)

	assert.Equal(t, model.PermissionDenied, notifier.Permission())
	assert.Equal(t, model.PermissionDenied, notifier.RequestPermission())
	assert.NotPanics(t, func() { notifier.Show("t", "b") })
}

func TestHapticsIsNoOp(t *testing.T) {
	assert.NotPanics(t, func() { NewHaptics().Vibrate(200*time.Millisecond, 100*time.Millisecond) })
}
