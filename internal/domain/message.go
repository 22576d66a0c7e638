package domain

import (
	"strings"
	"time"
)

type MessageStatus string

const (
	MessageUnread  MessageStatus = "Unread"
	MessageReplied MessageStatus = "Replied"
)

type Message struct {
	ID        int64         `json:"id"`
	Sender    string        `json:"sender"`
	Email     string        `json:"email"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body"`
	Status    MessageStatus `json:"status"`
	Reply     string        `json:"reply,omitempty"`
	UserID    *int64        `json:"user,omitempty"`
	UserName  string        `json:"userName,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type CreateMessageRequest struct {
	Sender  string `json:"sender"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (r *CreateMessageRequest) Normalize() {
	r.Sender = strings.TrimSpace(r.Sender)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Subject = strings.TrimSpace(r.Subject)
}

func (r *CreateMessageRequest) Validate() error {
	if r.Sender == "" || r.Email == "" || r.Subject == "" || r.Body == "" {
		return NewValidationError("Please provide name, email, subject and message.")
	}
	if !isValidEmail(r.Email) {
		return NewValidationError("Please provide a valid email")
	}
	return nil
}

type ReplyRequest struct {
	ReplyBody string `json:"replyBody"`
}

func (r *ReplyRequest) Validate() error {
	if strings.TrimSpace(r.ReplyBody) == "" {
		return NewValidationError("Reply body is required")
	}
	return nil
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user"`
	Text      string    `json:"text"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
