package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/elevate-app/elevate-backend/internal/config"
	"github.com/elevate-app/elevate-backend/internal/logging"
)

// Service sends transactional mail over SMTP.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
	logger       *logging.Logger
}

func NewService(cfg config.EmailConfig, logger *logging.Logger) *Service {
	return &Service{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.SMTPUser,
		frontendURL:  cfg.FrontendURL,
		logger:       logger,
	}
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Verify your email address</h2>
  <p>Thanks for signing up. Click the link below to verify your email address:</p>
  <p><a href="{{.Link}}">Verify email</a></p>
  <p>If you did not create an account, you can ignore this message.</p>
</body>
</html>
`))

var passwordResetTemplate = template.Must(template.New("reset").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Reset your password</h2>
  <p>We received a request to reset your password. Click the link below to choose a new one:</p>
  <p><a href="{{.Link}}">Reset password</a></p>
  <p>This link expires in 24 hours. If you did not request a reset, you can ignore this message.</p>
</body>
</html>
`))

// SendVerificationEmail mails a verification link. Designed to run in a
// goroutine; errors are for the caller to log.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", s.frontendURL, token)

	body, err := render(verificationTemplate, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.send(toEmail, "Verify your email address", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("verification email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail mails a password reset link.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	body, err := render(passwordResetTemplate, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.send(toEmail, "Reset your password", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) send(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

func render(tmpl *template.Template, link string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
