package notification

import (
	"testing"
)

func TestNewNotificationManager(t *testing.T) {
	nm, err := NewNotificationManager()
	if err != nil {
		t.Fatalf("NewNotificationManager returned error: %v", err)
	}
	if nm.notifiers == nil {
		t.Error("notifiers map not initialized")
	}
	if nm.registry == nil {
		t.Error("registry map not initialized")
	}
}

func TestRegisterNotifier(t *testing.T) {
	nm, _ := NewNotificationManager()
	mockNotifier := &MockNotifier{}

	nm.RegisterNotifier(EmailSystem, mockNotifier)
	if n, exists := nm.notifiers[EmailSystem]; !exists {
		t.Error("Notifier not registered")
	} else if n != mockNotifier {
		t.Error("Wrong notifier registered")
	}

	// Overwriting an existing notifier
	newMockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, newMockNotifier)
	if n := nm.notifiers[EmailSystem]; n != newMockNotifier {
		t.Error("Notifier not overwritten")
	}
}

func TestRegisterNotification(t *testing.T) {
	nm, _ := NewNotificationManager()

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:        "Valid registration with both Text and Html",
			noticeType:  OtpCodeNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Code", Text: "Your code is {{.Code}}", Html: "<p>{{.Code}}</p>"},
			shouldError: false,
		},
		{
			name:        "Empty notice type",
			noticeType:  "",
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Code"},
			shouldError: true,
		},
		{
			name:        "Empty system",
			noticeType:  OtpCodeNotice,
			system:      "",
			template:    NoticeTemplate{Subject: "Code"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSend(t *testing.T) {
	nm, _ := NewNotificationManager()
	mockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, mockNotifier)

	// No template registered yet
	err := nm.Send(OtpCodeNotice, NotificationData{To: "member@example.com"})
	if err == nil {
		t.Error("expected error for unregistered notice type")
	}

	err = nm.RegisterNotification(OtpCodeNotice, EmailSystem, NoticeTemplate{Subject: "Code", Text: "{{.Code}}"})
	if err != nil {
		t.Fatalf("RegisterNotification failed: %v", err)
	}

	err = nm.Send(OtpCodeNotice, NotificationData{To: "member@example.com", Data: map[string]string{"Code": "042137"}})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(mockNotifier.SentNotifications) != 1 {
		t.Fatalf("expected 1 sent notification, got %d", len(mockNotifier.SentNotifications))
	}
	if mockNotifier.SentNotifications[0].To != "member@example.com" {
		t.Errorf("wrong recipient: %s", mockNotifier.SentNotifications[0].To)
	}
}

func TestWithDefaultTemplates(t *testing.T) {
	nm, err := NewNotificationManager(
		WithNotifier(EmailSystem, &MockNotifier{}),
		WithDefaultTemplates(),
	)
	if err != nil {
		t.Fatalf("NewNotificationManager failed: %v", err)
	}

	tmpl, ok := nm.registry[OtpCodeNotice][EmailSystem]
	if !ok {
		t.Fatal("otp code template not registered")
	}
	if tmpl.Html == "" {
		t.Error("otp code template is empty")
	}
}
