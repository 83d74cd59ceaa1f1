package service

import (
	"fmt"
	"net/http"

	"quiz_portal_backend/internal/config"
	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailService sends portal notifications through SendGrid. Every send is
// fire and forget: a mail failure is logged and never rolls back or blocks
// the transaction that triggered it.
type EmailService struct {
	cfg  config.MailConfig
	from *sgmail.Email
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		cfg:  cfg.Mail,
		from: sgmail.NewEmail(cfg.Mail.FromName, cfg.Mail.FromAddress),
	}
}

func (s *EmailService) enabled() bool {
	return s.cfg.Enabled && s.cfg.SendgridAPIKey != ""
}

func (s *EmailService) NotifySubmission(student *model.User, attempt *model.TestAttempt) {
	title := ""
	if attempt.Test != nil {
		title = attempt.Test.Title
	}
	subject := "Your test was submitted"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour test %q was submitted. Result: %d/%d (%d%%).\n",
		student.Name, title, attempt.Score, attempt.TotalPoints, attempt.Percentage)
	s.send(student, subject, body)
}

func (s *EmailService) NotifyCertificate(student *model.User, cert *model.Certificate, test *model.Test) {
	subject := "Your certificate is ready"
	body := fmt.Sprintf(
		"Hi %s,\n\nCongratulations! You passed %q with %d%%.\nYour certificate code is %s — anyone can verify it on the portal.\n",
		student.Name, test.Title, cert.Percentage, cert.Code)
	s.send(student, subject, body)
}

func (s *EmailService) send(to *model.User, subject, body string) {
	if !s.enabled() {
		logger.Log.Debug("mail disabled, notification skipped",
			zap.String("subject", subject), zap.String("to", to.Email))
		return
	}

	message := sgmail.NewSingleEmail(s.from, subject,
		sgmail.NewEmail(to.Name, to.Email), body, "")

	go func() {
		client := sendgrid.NewSendClient(s.cfg.SendgridAPIKey)
		resp, err := client.Send(message)
		if err != nil {
			logger.Log.Error("mail send failed",
				zap.String("subject", subject), zap.Error(err))
			return
		}
		if resp.StatusCode >= http.StatusBadRequest {
			logger.Log.Error("mail send rejected",
				zap.String("subject", subject), zap.Int("status", resp.StatusCode))
		}
	}()
}
