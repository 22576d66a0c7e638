package mailer

import (
	"fmt"

	"github.com/bongoexpress/cargo-api/pkg/logger"
)

// DevMailer prints emails to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	logger.Info("[DEV MAIL] Password Reset Email",
		"to", toEmail,
		"name", toName,
		"reset_url", resetURL,
	)

	fmt.Printf("\n"+
		"=================================================================\n"+
		"PASSWORD RESET EMAIL (DEV MODE)\n"+
		"=================================================================\n"+
		"To: %s (%s)\n"+
		"Subject: Your password reset token (valid for 10 min)\n"+
		"\n"+
		"Reset URL: %s\n"+
		"=================================================================\n\n",
		toEmail, toName, resetURL)

	return nil
}

func (d *DevMailer) SendMessageReply(toEmail, toName, subject, replyBody string) error {
	logger.Info("[DEV MAIL] Message Reply Email",
		"to", toEmail,
		"name", toName,
		"subject", subject,
	)

	fmt.Printf("\n"+
		"=================================================================\n"+
		"MESSAGE REPLY EMAIL (DEV MODE)\n"+
		"=================================================================\n"+
		"To: %s (%s)\n"+
		"Subject: Re: %s\n"+
		"\n"+
		"%s\n"+
		"=================================================================\n\n",
		toEmail, toName, subject, replyBody)

	return nil
}
