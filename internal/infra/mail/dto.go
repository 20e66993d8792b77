package mail

import "time"

// AlertEmailData feeds the operator alert template.
type AlertEmailData struct {
	Subject  string
	Body     string
	Host     string
	SentAt   time.Time
	Instance string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
	Instance string
}
