package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail      = "email:welcome"
	TaskPasswordReset     = "email:password_reset"
	TaskOrderConfirmed    = "email:order_confirmed"
	TaskOrderDelivered    = "email:order_delivered"
	TaskOrderCompleted    = "email:order_completed"
	TaskOrderCancelled    = "email:order_cancelled"
	TaskRevisionRequested = "email:revision_requested"
	TaskMessageNew        = "email:message_new"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Password reset payload
type PasswordResetPayload struct {
	UserID    string        `json:"user_id"`
	Email     string        `json:"email"`
	ResetURL  string        `json:"reset_url"`
	Envelope  EmailEnvelope `json:"envelope"`
	Requested time.Time     `json:"requested"`
}

// OrderEventPayload covers every order lifecycle notification. Amount is in
// minor units (paise); the mail body formats it as rupees.
type OrderEventPayload struct {
	OrderID      string        `json:"order_id"`
	ClientID     string        `json:"client_id"`
	FreelancerID string        `json:"freelancer_id"`
	Email        string        `json:"email"`
	Amount       int64         `json:"amount"`
	Title        string        `json:"title"`
	Envelope     EmailEnvelope `json:"envelope"`
	SentAt       time.Time     `json:"sent_at"`
}

// Message new payload (sent to recipient on new message)
type MessageNewPayload struct {
	OrderID   string        `json:"order_id"`
	SenderID  string        `json:"sender_id"`
	Recipient string        `json:"recipient"`
	Email     string        `json:"email"`
	Body      string        `json:"body"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}
