package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/Dosada05/nations-league/config"
	"github.com/Dosada05/nations-league/models"
)

type EmailService struct {
	cfg config.SMTPConfig
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	if len(to) == 0 {
		return nil
	}
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + s.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	tlsconfig := &tls.Config{ServerName: s.cfg.Host}

	var client *smtp.Client
	if s.cfg.Port == 465 {
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp STARTTLS: %w", err)
		}
	}
	defer client.Quit()

	if s.cfg.Username != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", addr, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close DATA: %w", err)
	}
	return nil
}

var matchResultTemplate = template.Must(template.New("match_result").Parse(`<html>
<body>
<h2>{{.Round}}: {{.Team1}} vs {{.Team2}}</h2>
<p>Final score: <strong>{{.Score}}</strong></p>
<p>{{.Winner}} advance{{if .Final}} and win the Nations League{{end}}.</p>
{{if .Goals}}<h3>Goals</h3>
<ul>
{{range .Goals}}<li>{{.Minute}}' {{.Scorer}} ({{.Team}})</li>
{{end}}</ul>{{end}}
{{if .Commentary}}<h3>Match report</h3>
{{range .Commentary}}<p>{{.}}</p>
{{end}}{{end}}
</body>
</html>`))

// MatchResultEmail renders the subject and HTML body sent to both team
// representatives after a match.
func MatchResultEmail(rec *models.MatchRecord) (string, string, error) {
	res := rec.Result
	winner := res.Winner()
	if winner == nil {
		return "", "", fmt.Errorf("match %s has no winner", rec.Slot)
	}

	data := struct {
		Round      string
		Team1      string
		Team2      string
		Score      string
		Winner     string
		Final      bool
		Goals      []models.GoalEvent
		Commentary []string
	}{
		Round:      res.MatchType.Title(),
		Team1:      res.Team1.Country,
		Team2:      res.Team2.Country,
		Score:      res.ScoreDisplay(),
		Winner:     winner.Country,
		Final:      res.MatchType == models.RoundFinal,
		Goals:      res.GoalEvents,
		Commentary: rec.Commentary,
	}

	var body bytes.Buffer
	if err := matchResultTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render match result email: %w", err)
	}
	subject := fmt.Sprintf("Nations League %s: %s %s %s", data.Round, data.Team1, res.Score(), data.Team2)
	return subject, body.String(), nil
}
