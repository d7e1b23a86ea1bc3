// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"time"

	"placarcerto-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendPaymentConfirmed(toEmail string, data EmailData) error
	SendPaymentFailed(toEmail string, data EmailData) error
	SendSubscriptionActivated(toEmail string, data EmailData) error
	SendSubscriptionExpired(toEmail string, data EmailData) error
}

// EmailData carries the values rendered into the templates. Unused fields are ignored.
type EmailData struct {
	Name       string
	PlanName   string
	Amount     string
	Currency   string
	Reference  string
	DailyLimit int
	EndDate    *time.Time
	Reason     string
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	frontendURL string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail, frontendURL string, log logger.ILogger) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		frontendURL: frontendURL,
		logger:      log,
	}
}

func (s *emailService) send(toEmail, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send email", map[string]interface{}{
			"to":      toEmail,
			"subject": subject,
			"error":   err.Error(),
		})
		return err
	}

	s.logger.Info("MAILER", "Email sent", map[string]interface{}{"to": toEmail, "subject": subject})
	return nil
}

func (s *emailService) SendPaymentConfirmed(toEmail string, data EmailData) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Payment confirmed</h2>
			<p>Hi %s,</p>
			<p>We received your payment of <strong>%s %s</strong> for the <strong>%s</strong> plan.</p>
			<p>Reference: <code>%s</code></p>
			<p>Thank you for choosing PlacarCerto.</p>
		</div>
	`, data.Name, data.Amount, data.Currency, data.PlanName, data.Reference)

	return s.send(toEmail, "Payment confirmed - PlacarCerto", body)
}

func (s *emailService) SendPaymentFailed(toEmail string, data EmailData) error {
	reason := data.Reason
	if reason == "" {
		reason = "The payment was not completed."
	}
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Payment failed</h2>
			<p>Hi %s,</p>
			<p>Your payment of <strong>%s %s</strong> (reference <code>%s</code>) could not be processed.</p>
			<p>%s</p>
			<a href="%s/premium" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Try again</a>
		</div>
	`, data.Name, data.Amount, data.Currency, data.Reference, reason, s.frontendURL)

	return s.send(toEmail, "Payment failed - PlacarCerto", body)
}

func (s *emailService) SendSubscriptionActivated(toEmail string, data EmailData) error {
	until := "no expiry"
	if data.EndDate != nil {
		until = data.EndDate.Format("02 Jan 2006")
	}
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome to PlacarCerto Premium!</h2>
			<p>Hi %s,</p>
			<p>Your <strong>%s</strong> plan is active until <strong>%s</strong>.</p>
			<p>You can now request up to <strong>%d</strong> analyses per day.</p>
			<a href="%s/dashboard" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Start analysing</a>
		</div>
	`, data.Name, data.PlanName, until, data.DailyLimit, s.frontendURL)

	return s.send(toEmail, "Welcome to PlacarCerto Premium!", body)
}

func (s *emailService) SendSubscriptionExpired(toEmail string, data EmailData) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your subscription has expired</h2>
			<p>Hi %s,</p>
			<p>Your <strong>%s</strong> plan has ended and your account is back on the free tier.</p>
			<a href="%s/premium" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Renew now</a>
		</div>
	`, data.Name, data.PlanName, s.frontendURL)

	return s.send(toEmail, "Your PlacarCerto subscription has expired", body)
}
