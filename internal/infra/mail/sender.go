package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

var alertTemplate = template.Must(template.New("alert").Parse(`<h2>⚠️ {{.Subject}}</h2>
<p><b>Instância:</b> {{.Instance}} ({{.Host}})<br>
<b>Horário:</b> {{.SentAt.Format "2006-01-02 15:04:05 MST"}}</p>
<pre>{{.Body}}</pre>
`))

func NewEmailSender(host string, port int, user, password, from string, to []string) *EmailSender {
	instance, _ := os.Hostname()
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
		Instance: instance,
	}
}

// Enabled reports whether SMTP and at least one recipient are configured.
func (s *EmailSender) Enabled() bool {
	return s != nil && s.Host != "" && len(s.To) > 0
}

// SendAlert mails the operators. Used for store verification failures.
func (s *EmailSender) SendAlert(subject, body string) error {
	if !s.Enabled() {
		return fmt.Errorf("alerta por email não configurado")
	}

	html, err := RenderAlert(AlertEmailData{
		Subject:  subject,
		Body:     body,
		Host:     s.Host,
		SentAt:   time.Now(),
		Instance: s.Instance,
	})
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	from := s.From
	if from == "" {
		from = s.User
	}
	m.SetHeader("From", from)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", "[aqar-matcher] "+subject)
	m.SetBody("text/html", html)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}

func RenderAlert(data AlertEmailData) (string, error) {
	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("erro ao processar template: %w", err)
	}
	return body.String(), nil
}

// ParseRecipients splits a comma separated address list.
func ParseRecipients(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
