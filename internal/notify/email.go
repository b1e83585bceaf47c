// Package notify dispatches out-of-band question alerts. Failures here are
// always non-fatal to the monitoring flow.
package notify

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/AryaBuddha/iclicker-evade/internal/logging"
	"github.com/AryaBuddha/iclicker-evade/internal/suggest"
)

const (
	gmailHost = "smtp.gmail.com"
	gmailPort = 587
)

// EmailNotifier sends question alerts through Gmail SMTP with an app
// password.
type EmailNotifier struct {
	sender      string
	destination string
	dialer      *gomail.Dialer
	log         *logging.Logger
	now         func() time.Time
}

// NewEmailNotifier builds a notifier sending from sender to destination.
func NewEmailNotifier(sender, appPassword, destination string, log *logging.Logger) *EmailNotifier {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &EmailNotifier{
		sender:      sender,
		destination: destination,
		dialer:      gomail.NewDialer(gmailHost, gmailPort, sender, appPassword),
		log:         log,
		now:         time.Now,
	}
}

// QuestionAlert emails the question text and snapshot, including the
// suggestion block when one exists.
func (n *EmailNotifier) QuestionAlert(questionText, imagePath string, suggestion *suggest.Suggestion) error {
	ts := n.now()

	m := gomail.NewMessage()
	m.SetHeader("From", n.sender)
	m.SetHeader("To", n.destination)
	m.SetHeader("Subject", fmt.Sprintf("🚨 iClicker Question Alert - %s", ts.Format("15:04:05")))
	m.SetBody("text/plain", n.body(questionText, suggestion, ts))
	if imagePath != "" {
		m.Attach(imagePath)
	}

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send alert to %s: %w", n.destination, err)
	}
	n.log.Info("alert sent", "to", n.destination)
	return nil
}

func (n *EmailNotifier) body(questionText string, suggestion *suggest.Suggestion, ts time.Time) string {
	body := fmt.Sprintf("An iClicker question was detected at %s.\n\n", ts.Format("2006-01-02 15:04:05"))
	if questionText != "" {
		body += "Question:\n" + questionText + "\n\n"
	}
	if suggestion != nil {
		body += fmt.Sprintf("🤖 SUGGESTION:\nAnswer: %s (%.1f%%)\nReasoning: %s\n\n",
			suggestion.Choice, suggestion.Confidence*100, suggestion.Reasoning)
	}
	body += "The screenshot is attached.\n"
	return body
}

// TestConnection dials the SMTP server to verify credentials at startup.
func (n *EmailNotifier) TestConnection() error {
	closer, err := n.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp connection test: %w", err)
	}
	return closer.Close()
}
