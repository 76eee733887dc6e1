// Package notify adapts desktop notifications and haptics to the feedback
// interfaces.
package notify

import (
	"sync/atomic"
	"time"

	"focusflow/internal/core/model"
	applog "focusflow/internal/log"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"
)

// Sender is the part of fyne.App used to deliver notifications.
type Sender interface {
	SendNotification(notification *fyne.Notification)
}

// Notifier shows notifications through fyne. Desktop drivers do not gate
// notifications behind a permission prompt, so permission is granted once
// requested.
type Notifier struct {
	sender    Sender
	requested atomic.Bool
	do        func(func())
	logger    zerolog.Logger
}

// NewNotifier creates a Notifier for sender, usually the running fyne.App.
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender, do: fyne.Do, logger: applog.WithComponent("notify")}
}

// Permission reports the current permission state.
func (notifier *Notifier) Permission() model.NotificationPermission {
	if notifier.sender == nil {
		return model.PermissionDenied
	}
	if !notifier.requested.Load() {
		return model.PermissionDefault
	}
	return model.PermissionGranted
}

// RequestPermission asks for permission and returns the result.
func (notifier *Notifier) RequestPermission() model.NotificationPermission {
	if notifier.sender == nil {
		return model.PermissionDenied
	}
	notifier.requested.Store(true)
	return model.PermissionGranted
}

// Show sends a notification.
func (notifier *Notifier) Show(title, body string) {
	if notifier.sender == nil {
		return
	}
	notifier.logger.Debug().Str("event", "notification.show").Str("title", title).Msg("showing notification")
	notifier.do(func() {
		notifier.sender.SendNotification(fyne.NewNotification(title, body))
	})
}

// Haptics logs vibration requests; desktops have no vibration motor.
type Haptics struct {
	logger zerolog.Logger
}

// NewHaptics creates a Haptics.
func NewHaptics() Haptics {
	return Haptics{logger: applog.WithComponent("notify")}
}

// Vibrate records the requested pattern at debug level.
func (haptics Haptics) Vibrate(pattern ...time.Duration) {
	haptics.logger.Debug().Str("event", "haptics.unsupported").Int("steps", len(pattern)).Msg("vibration not available")
}
