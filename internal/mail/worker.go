package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sender performs the actual delivery. The SMTP relay is an external
// collaborator; LogSender stands in where none is configured.
type Sender interface {
	Send(ctx context.Context, job Job) error
}

// Worker consumes mail jobs and hands them to the sender.
type Worker struct {
	backend Backend
	channel string
	sender  Sender
	log     *logrus.Logger
}

func NewWorker(backend Backend, channel string, sender Sender, log *logrus.Logger) *Worker {
	if channel == "" {
		channel = "mail.outbound"
	}
	return &Worker{
		backend: backend,
		channel: channel,
		sender:  sender,
		log:     log,
	}
}

// Run blocks consuming jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.backend.Subscribe(ctx, w.channel, func(ctx context.Context, msg Message) error {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			// Undecodable jobs are dropped, not retried.
			w.log.WithError(err).WithField("messageId", msg.ID).Error("dropping malformed mail job")
			return nil
		}

		if err := w.sender.Send(ctx, job); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"kind": job.Kind,
				"to":   job.To,
			}).Error("mail delivery failed")
			return fmt.Errorf("send %s mail: %w", job.Kind, err)
		}

		w.log.WithFields(logrus.Fields{
			"kind": job.Kind,
			"to":   job.To,
		}).Info("mail delivered")
		return nil
	})
}

// LogSender logs deliveries instead of sending them.
type LogSender struct {
	Log *logrus.Logger
}

func (s LogSender) Send(_ context.Context, job Job) error {
	s.Log.WithFields(logrus.Fields{
		"kind":    job.Kind,
		"to":      job.To,
		"subject": job.Subject,
	}).Info("mail (log sender)")
	return nil
}
