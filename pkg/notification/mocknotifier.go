package notification

import "fmt"

// MockNotifier records sent notifications for tests.
type MockNotifier struct {
	SentNotifications []NotificationData
	FailSend          bool
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if m.FailSend {
		return fmt.Errorf("mock send failure")
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	return nil
}
