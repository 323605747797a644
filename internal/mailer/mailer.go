package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"time"

	inquirydomain "github.com/EMe-U/plotsure/internal/inquiry/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const sendTimeout = 15 * time.Second

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseSSL   bool
}

// Mailer sends the service's notification mail over SMTP. With no host
// configured every send is a logged no-op.
type Mailer struct {
	from    string
	enabled bool
	send    func(*gomail.Message) error
	timeout time.Duration
	logger  *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Mailer {
	m := &Mailer{
		from:    cfg.From,
		enabled: cfg.Host != "",
		timeout: sendTimeout,
		logger:  log.Named("Mailer"),
	}
	if !m.enabled {
		return m
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	dialer.SSL = cfg.UseSSL || cfg.Port == 465
	m.send = func(msg *gomail.Message) error { return dialer.DialAndSend(msg) }
	return m
}

func (m *Mailer) SendWelcomeEmail(toEmail, name string) error {
	subject := "Welcome to PlotSure Connect"
	text := fmt.Sprintf("Hello %s,\n\nYour PlotSure Connect account is ready. You can now sign in to the dashboard.\n", name)
	body := fmt.Sprintf("<p>Hello %s,</p><p>Your PlotSure Connect account is ready. You can now sign in to the dashboard.</p>",
		html.EscapeString(name))
	return m.deliver(toEmail, subject, body, text)
}

func (m *Mailer) SendInquiryNotification(toEmail string, inq *inquirydomain.Inquiry) error {
	about := "a general inquiry"
	if inq.ListingTitle != "" {
		about = fmt.Sprintf("your listing %q", inq.ListingTitle)
	}
	subject := fmt.Sprintf("New %s inquiry from %s", humanType(string(inq.InquiryType)), inq.InquirerName)
	text := fmt.Sprintf("%s (%s, %s) sent %s:\n\n%s\n\nPriority: %s\n",
		inq.InquirerName, inq.InquirerEmail, orDash(inq.InquirerPhone), about, inq.Message, inq.Priority)
	body := fmt.Sprintf(`<p><b>%s</b> (%s, %s) sent %s:</p><blockquote>%s</blockquote><p>Priority: %s</p>`,
		html.EscapeString(inq.InquirerName),
		html.EscapeString(inq.InquirerEmail),
		html.EscapeString(orDash(inq.InquirerPhone)),
		html.EscapeString(about),
		html.EscapeString(inq.Message),
		html.EscapeString(string(inq.Priority)),
	)
	return m.deliver(toEmail, subject, body, text)
}

func (m *Mailer) SendContactNotification(toEmail string, c *inquirydomain.Contact) error {
	subject := fmt.Sprintf("Contact form: %s from %s", c.Subject, c.Name)
	text := fmt.Sprintf("%s (%s, %s) wrote:\n\n%s\n", c.Name, c.Email, orDash(c.Phone), c.Message)
	body := fmt.Sprintf(`<p><b>%s</b> (%s, %s) wrote:</p><blockquote>%s</blockquote>`,
		html.EscapeString(c.Name),
		html.EscapeString(c.Email),
		html.EscapeString(orDash(c.Phone)),
		html.EscapeString(c.Message),
	)
	return m.deliver(toEmail, subject, body, text)
}

func (m *Mailer) deliver(to, subject, bodyHTML, bodyText string) error {
	if !m.enabled {
		m.logger.Debug("Mail disabled, message dropped", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	if to == "" {
		return fmt.Errorf("no recipient for %q", subject)
	}

	msg := gomail.NewMessage(gomail.SetEncoding(gomail.Unencoded))
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", bodyHTML)
	msg.AddAlternative("text/plain", bodyText)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.send(msg) }()

	select {
	case <-ctx.Done():
		m.logger.Warn("Mail delivery timed out", zap.String("to", to), zap.String("subject", subject))
		return fmt.Errorf("email sending timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			m.logger.Error("Failed to send mail", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
			return fmt.Errorf("failed to send email: %w", err)
		}
	}
	m.logger.Info("Mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func humanType(t string) string {
	out := []rune(t)
	for i, r := range out {
		if r == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
