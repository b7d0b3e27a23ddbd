package notification

// NotificationSystem represents a delivery channel (e.g. email, SMS).
type NotificationSystem string

// NoticeType identifies a kind of notice (e.g. "otp_code").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	// OtpCodeNotice carries a one-time login code to the member's
	// registered email address.
	OtpCodeNotice NoticeType = "otp_code"
)

// NotificationData is the per-send payload handed to a Notifier.
type NotificationData struct {
	To      string            // Recipient identifier (e.g. email address)
	Subject string            // Optional subject override
	Body    string            // Optional raw body, used when no template applies
	Data    map[string]string // Template data
}

// NoticeTemplate holds the rendered-from templates for a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier sends a notice over one delivery channel.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
