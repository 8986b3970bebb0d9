package email

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	baseURL     string
	sendGridKey string
	useSendGrid bool
	logger      *zap.Logger
}

// NewService creates a new email service.
// If sendGridAPIKey is provided, emails are sent via SendGrid;
// otherwise they are only logged (development mode).
func NewService(fromEmail, fromName, baseURL, sendGridAPIKey string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		logger.Info("email service initialized with SendGrid")
	} else {
		logger.Warn("email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		baseURL:     baseURL,
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
		logger:      logger,
	}
}

// SendWelcomeEmail greets a newly registered user
func (s *Service) SendWelcomeEmail(toEmail, toName string) error {
	dashboardURL := fmt.Sprintf("%s/dashboard", s.baseURL)

	subject := "Welcome to RivalScope!"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Welcome to RivalScope!</h2>
			<p>Hi %s,</p>
			<p>Your account is ready. Start your first competitive research to see who you are up against.</p>
			<p><a href="%s" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Go to Dashboard</a></p>
			<p>Thanks,<br>The RivalScope Team</p>
		</body>
		</html>
	`, toName, dashboardURL)

	plainText := fmt.Sprintf(`
Hi %s,

Your account is ready. Start your first competitive research to see who you are up against.

Visit your dashboard: %s

Thanks,
The RivalScope Team
	`, toName, dashboardURL)

	return s.send(toEmail, toName, subject, body, plainText, dashboardURL)
}

// SendReportReadyEmail tells the owner that an auto-generated report finished
func (s *Service) SendReportReadyEmail(toEmail, toName, researchTitle string, reportID int) error {
	reportURL := fmt.Sprintf("%s/reports/%d", s.baseURL, reportID)

	subject := fmt.Sprintf("Your report for %q is ready", researchTitle)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Your competitive report is ready</h2>
			<p>Hi %s,</p>
			<p>We finished analysing the competitors for <strong>%s</strong>.</p>
			<p><a href="%s" style="background-color: #2196F3; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">View Report</a></p>
			<p>Or copy and paste this link into your browser:</p>
			<p><a href="%s">%s</a></p>
			<p>Thanks,<br>The RivalScope Team</p>
		</body>
		</html>
	`, toName, researchTitle, reportURL, reportURL, reportURL)

	plainText := fmt.Sprintf(`
Hi %s,

We finished analysing the competitors for %s.

View the report: %s

Thanks,
The RivalScope Team
	`, toName, researchTitle, reportURL)

	return s.send(toEmail, toName, subject, body, plainText, reportURL)
}

// SendRawEmail sends an email with custom subject and body content
func (s *Service) SendRawEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	return s.send(toEmail, toName, subject, htmlBody, plainTextBody, "")
}

func (s *Service) send(toEmail, toName, subject, htmlBody, plainTextBody, actionURL string) error {
	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody)
	}
	s.logEmail(toEmail, toName, subject, actionURL)
	return nil
}

// sendViaSendGrid sends email using SendGrid API
func (s *Service) sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	message := mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)
	if err != nil {
		s.logger.Error("sendgrid error", zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status",
			zap.Int("status", response.StatusCode),
			zap.String("body", response.Body))
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	s.logger.Info("email sent",
		zap.String("to", toEmail),
		zap.Int("status", response.StatusCode))
	return nil
}

// logEmail records the email instead of sending it (development mode)
func (s *Service) logEmail(toEmail, toName, subject, actionURL string) {
	s.logger.Info("email not sent (development mode)",
		zap.String("subject", subject),
		zap.String("to", fmt.Sprintf("%s <%s>", toName, toEmail)),
		zap.String("from", fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		zap.String("action_url", actionURL))
}
