package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your password reset token (valid for 10 min)"
	html := fmt.Sprintf(`
		<h2>Forgot your password?</h2>
		<p>Hi %s,</p>
		<p>Submit a new password by clicking the link below:</p>
		<p><a href="%s" style="background-color: #1a73e8; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
		<p>The link expires in 10 minutes.</p>
		<p>If you didn't forget your password, please ignore this email.</p>
	`, toName, resetURL)

	text := fmt.Sprintf("Forgot your password? Submit a new password here: %s\n\nIf you didn't forget your password, please ignore this email.", resetURL)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendMessageReply(toEmail, toName, subject, replyBody string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	html := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>%s</p>
		<p>Regards,<br>BongoExpress Cargo Support</p>
	`, toName, replyBody)

	text := fmt.Sprintf("Hi %s,\n\n%s\n\nRegards,\nBongoExpress Cargo Support", toName, replyBody)

	return m.sendEmail(toEmail, toName, "Re: "+subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
