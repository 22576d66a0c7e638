package mailer

// Service sends the transactional emails the API needs. Implementations
// must be safe for concurrent use.
type Service interface {
	// SendPasswordResetEmail delivers the reset link for a forgotten
	// password. The token is only valid for a short window.
	SendPasswordResetEmail(toEmail, toName, resetURL string) error

	// SendMessageReply delivers an admin's reply to a contact-form message.
	SendMessageReply(toEmail, toName, subject, replyBody string) error
}
