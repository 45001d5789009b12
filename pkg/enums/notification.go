package enums

import "fmt"

// NotificationType classifies merchant notifications.
type NotificationType string

const (
	NotificationTypePaymentReceived NotificationType = "payment_received"
	NotificationTypePaymentUnknown  NotificationType = "payment_unknown"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePaymentReceived,
	NotificationTypePaymentUnknown,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
