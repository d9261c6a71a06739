package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

func rupees(amount int64) string {
	return fmt.Sprintf("₹%.2f", float64(amount)/100)
}

func orderEventTask(taskType string, orderID, clientID, freelancerID, email string, amount int64, title, subject, body string) *asynq.Task {
	env := EmailEnvelope{To: email, Subject: subject, Body: body}
	payload := OrderEventPayload{
		OrderID:      orderID,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Email:        email,
		Amount:       amount,
		Title:        title,
		Envelope:     env,
		SentAt:       time.Now(),
	}
	b, _ := json.Marshal(payload)
	return asynq.NewTask(taskType, b)
}

func enqueueOrderEvent(taskType string, orderID, clientID, freelancerID, email string, amount int64, title, subject, body string) error {
	task := orderEventTask(taskType, orderID, clientID, freelancerID, email, amount, title, subject, body)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueWelcomeEmail schedules a welcome email to the user
func EnqueueWelcomeEmail(userID, email, name string) error {
	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	base = strings.TrimRight(base, "/")

	subject := fmt.Sprintf("Welcome to GigConnect, %s!", name)
	body := fmt.Sprintf("Hi %s, thanks for joining GigConnect.\n\nOpen GigConnect: %s\n\nIf the link doesn’t work, copy and paste the URL above.", name, base)

	env := EmailEnvelope{To: email, Subject: subject, Body: body}
	payload := WelcomeEmailPayload{UserID: userID, Name: name, Email: email, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskWelcomeEmail, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueuePasswordReset schedules a password reset notification
func EnqueuePasswordReset(userID, email, resetURL, name string) error {
	expiry := os.Getenv("PASSWORD_RESET_EXP_MINUTES")
	if expiry == "" {
		expiry = "30"
	}
	subject := "Password reset instructions"
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your GigConnect password.\n\nTo proceed, open the link below:\n%s\n\nThis link expires in %s minutes. If you did not request this, no action is required.\n\nNeed help? Reply to this email.\n\n— GigConnect Team", name, resetURL, expiry)

	env := EmailEnvelope{To: email, Subject: subject, Body: body}
	payload := PasswordResetPayload{UserID: userID, Email: email, ResetURL: resetURL, Envelope: env, Requested: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskPasswordReset, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueOrderConfirmed notifies the freelancer of a new paid order
func EnqueueOrderConfirmed(orderID, clientID, freelancerID, freelancerEmail string, amount int64, title string) error {
	return enqueueOrderEvent(TaskOrderConfirmed, orderID, clientID, freelancerID, freelancerEmail, amount, title,
		"You have a new order",
		fmt.Sprintf("Order %s (%s) is confirmed and paid (%s). You can start work now.", orderID, title, rupees(amount)))
}

// EnqueueOrderDelivered notifies the client that work was submitted for review
func EnqueueOrderDelivered(orderID, clientID, freelancerID, clientEmail string, amount int64, title string) error {
	return enqueueOrderEvent(TaskOrderDelivered, orderID, clientID, freelancerID, clientEmail, amount, title,
		"Your order has been delivered",
		fmt.Sprintf("Work on order %s (%s) was submitted for your review. Approve it or request a revision.", orderID, title))
}

// EnqueueOrderCompleted notifies the freelancer that the client approved the work
func EnqueueOrderCompleted(orderID, clientID, freelancerID, freelancerEmail string, amount int64, title string) error {
	return enqueueOrderEvent(TaskOrderCompleted, orderID, clientID, freelancerID, freelancerEmail, amount, title,
		"Order completed",
		fmt.Sprintf("Order %s (%s) was approved by the client. Amount %s.", orderID, title, rupees(amount)))
}

// EnqueueOrderCancelled notifies the freelancer that the order was cancelled
func EnqueueOrderCancelled(orderID, clientID, freelancerID, freelancerEmail string, amount int64, title string) error {
	return enqueueOrderEvent(TaskOrderCancelled, orderID, clientID, freelancerID, freelancerEmail, amount, title,
		"Order cancelled",
		fmt.Sprintf("Order %s (%s) was cancelled before work started.", orderID, title))
}

// EnqueueRevisionRequested notifies the freelancer that changes were requested
func EnqueueRevisionRequested(orderID, clientID, freelancerID, freelancerEmail, title string) error {
	return enqueueOrderEvent(TaskRevisionRequested, orderID, clientID, freelancerID, freelancerEmail, 0, title,
		"Changes requested on your delivery",
		fmt.Sprintf("The client requested changes on order %s (%s). The order is back in progress.", orderID, title))
}

// messagePreview trims a message body to at most n runes for the email
// notification. Counting runes keeps multi-byte text intact.
func messagePreview(body string, n int) string {
	if utf8.RuneCountInString(body) <= n {
		return body
	}
	return string([]rune(body)[:n]) + "…"
}

// EnqueueMessageNew notifies the recipient of a new message on an order
func EnqueueMessageNew(orderID, senderID, recipientID, recipientEmail, body string) error {
	preview := messagePreview(body, 120)
	env := EmailEnvelope{
		To:      recipientEmail,
		Subject: "New message on your order",
		Body:    fmt.Sprintf("You have a new message on order %s:\n\n%s", orderID, preview),
	}
	payload := MessageNewPayload{OrderID: orderID, SenderID: senderID, Recipient: recipientID, Email: recipientEmail, Body: body, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskMessageNew, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}
