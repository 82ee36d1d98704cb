package mail

import (
	"context"
	"encoding/json"
	"fmt"
)

// Job kinds.
const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

// Message represents a broker-agnostic payload delivered to consumers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic queue operations used for mail
// delivery.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Job is a queued outbound email. Token links are composed at enqueue
// time so the worker needs no application state.
type Job struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Enqueuer is what the auth handlers depend on. Implemented by Queue;
// tests substitute a capture.
type Enqueuer interface {
	EnqueueVerification(ctx context.Context, to, name, verificationToken string) error
	EnqueueReset(ctx context.Context, to, name, resetToken string) error
}

// Queue publishes mail jobs to the configured channel.
type Queue struct {
	backend Backend
	channel string
	from    string
	baseURL string
}

func NewQueue(backend Backend, channel, from, baseURL string) *Queue {
	if channel == "" {
		channel = "mail.outbound"
	}
	return &Queue{
		backend: backend,
		channel: channel,
		from:    from,
		baseURL: baseURL,
	}
}

// EnqueueVerification queues the account verification email.
func (q *Queue) EnqueueVerification(ctx context.Context, to, name, verificationToken string) error {
	return q.enqueue(ctx, Job{
		Kind:    KindVerification,
		To:      to,
		Name:    name,
		Subject: "Verify your Hepta Travel account",
		Body: fmt.Sprintf(
			"Hi %s,\n\nPlease verify your email address by visiting:\n%s/verify-email/%s\n\nThe link expires in 24 hours.",
			name, q.baseURL, verificationToken,
		),
	})
}

// EnqueueReset queues the password reset email.
func (q *Queue) EnqueueReset(ctx context.Context, to, name, resetToken string) error {
	return q.enqueue(ctx, Job{
		Kind:    KindPasswordReset,
		To:      to,
		Name:    name,
		Subject: "Reset your Hepta Travel password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nReset your password by visiting:\n%s/reset-password/%s\n\nThe link expires in 10 minutes. If you did not request this, ignore this email.",
			name, q.baseURL, resetToken,
		),
	})
}

func (q *Queue) enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = q.backend.Publish(ctx, q.channel, data, map[string]string{
		"kind": job.Kind,
		"from": q.from,
	})
	return err
}

// Close closes the underlying backend.
func (q *Queue) Close() error {
	return q.backend.Close()
}
