package mailer

import (
	"fmt"

	"codepilot-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendWelcome(toEmail, name string) error
	SendPasswordChanged(toEmail, name string) error
}

// Sender is the part of gomail.Dialer the service needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
	appURL      string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName, appURL string, log logger.ILogger) IEmailService {
	return NewEmailServiceWithSender(gomail.NewDialer(host, port, username, password), username, senderName, appURL, log)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName, appURL string, log logger.ILogger) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
		appURL:      appURL,
		logger:      log,
	}
}

func (s *emailService) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) send(kind, toEmail string, m *gomail.Message) error {
	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("Mailer", "Failed to send mail", map[string]interface{}{
			"kind":  kind,
			"to":    toEmail,
			"error": err.Error(),
		})
		return err
	}
	s.logger.Info("Mailer", "Mail sent", map[string]interface{}{"kind": kind, "to": toEmail})
	return nil
}

func (s *emailService) SendWelcome(toEmail, name string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome to CodePilot, %s!</h2>
			<p>Your account is ready. Ask questions, generate code, debug snippets and create images.</p>
			<a href="%s" style="background-color: #6366F1; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Open CodePilot</a>
		</div>
	`, name, s.appURL)

	return s.send("welcome", toEmail, s.newMessage(toEmail, "Welcome to CodePilot", body))
}

func (s *emailService) SendPasswordChanged(toEmail, name string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Password changed</h2>
			<p>Hi %s, the password of your CodePilot account was just changed.</p>
			<p>If this wasn't you, reset your password immediately.</p>
		</div>
	`, name)

	return s.send("password_changed", toEmail, s.newMessage(toEmail, "Your CodePilot password was changed", body))
}
