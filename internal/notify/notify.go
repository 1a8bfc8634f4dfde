package notify

import (
	"fmt"

	"github.com/riftlabs/healwatch/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	RunID   string // Optional run reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// ForRun builds the notification for a run that reached a terminal state.
func ForRun(runID string, repository string, status domain.RunStatus, score int) Notification {
	switch status {
	case domain.StatusPassed:
		return Notification{
			Title:   "Healing run passed",
			Message: fmt.Sprintf("%s healed, score %d", repository, score),
			Type:    NotifySuccess,
			RunID:   runID,
		}
	default:
		return Notification{
			Title:   "Healing run failed",
			Message: fmt.Sprintf("%s could not be healed", repository),
			Type:    NotifyError,
			RunID:   runID,
		}
	}
}
