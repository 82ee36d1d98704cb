package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// fakeBackend records published payloads and replays them to a
// subscriber.
type fakeBackend struct {
	channel   string
	published []Message
	nextID    int
}

func (b *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.channel = channel
	b.nextID++
	id := fmt.Sprintf("msg-%d", b.nextID)
	b.published = append(b.published, Message{ID: id, Data: data, Attributes: attrs})
	return id, nil
}

func (b *fakeBackend) Subscribe(ctx context.Context, _ string, handler Handler) error {
	for _, msg := range b.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBackend) Close() error { return nil }

func TestQueueComposesVerificationLink(t *testing.T) {
	backend := &fakeBackend{}
	queue := NewQueue(backend, "mail.outbound", "noreply@heptatravel.example", "https://app.heptatravel.example")

	if err := queue.EnqueueVerification(context.Background(), "alice@example.com", "Alice Traveler", "tok123"); err != nil {
		t.Fatalf("EnqueueVerification: %v", err)
	}

	if backend.channel != "mail.outbound" {
		t.Errorf("channel = %q, want mail.outbound", backend.channel)
	}
	if len(backend.published) != 1 {
		t.Fatalf("published = %d messages, want 1", len(backend.published))
	}

	var job Job
	if err := json.Unmarshal(backend.published[0].Data, &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Kind != KindVerification {
		t.Errorf("kind = %q, want %q", job.Kind, KindVerification)
	}
	if job.To != "alice@example.com" {
		t.Errorf("to = %q", job.To)
	}
	if want := "https://app.heptatravel.example/verify-email/tok123"; !strings.Contains(job.Body, want) {
		t.Errorf("body missing link %q:\n%s", want, job.Body)
	}
	if backend.published[0].Attributes["kind"] != KindVerification {
		t.Errorf("attributes = %v", backend.published[0].Attributes)
	}
}

func TestQueueComposesResetLink(t *testing.T) {
	backend := &fakeBackend{}
	queue := NewQueue(backend, "", "noreply@heptatravel.example", "https://app.heptatravel.example")

	if err := queue.EnqueueReset(context.Background(), "alice@example.com", "Alice Traveler", "tok456"); err != nil {
		t.Fatalf("EnqueueReset: %v", err)
	}

	// An empty channel falls back to the default.
	if backend.channel != "mail.outbound" {
		t.Errorf("channel = %q, want mail.outbound", backend.channel)
	}

	var job Job
	if err := json.Unmarshal(backend.published[0].Data, &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Kind != KindPasswordReset {
		t.Errorf("kind = %q, want %q", job.Kind, KindPasswordReset)
	}
	if want := "https://app.heptatravel.example/reset-password/tok456"; !strings.Contains(job.Body, want) {
		t.Errorf("body missing link %q:\n%s", want, job.Body)
	}
}

type recordingSender struct {
	sent []Job
	fail bool
}

func (s *recordingSender) Send(_ context.Context, job Job) error {
	if s.fail {
		return fmt.Errorf("smtp unreachable")
	}
	s.sent = append(s.sent, job)
	return nil
}

func TestWorkerDeliversJobs(t *testing.T) {
	backend := &fakeBackend{}
	queue := NewQueue(backend, "mail.outbound", "noreply@heptatravel.example", "https://app.heptatravel.example")
	_ = queue.EnqueueVerification(context.Background(), "alice@example.com", "Alice", "tok1")
	_ = queue.EnqueueReset(context.Background(), "bob@example.com", "Bob", "tok2")

	sender := &recordingSender{}
	worker := NewWorker(backend, "mail.outbound", sender, logrus.New())
	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent = %d jobs, want 2", len(sender.sent))
	}
	if sender.sent[0].To != "alice@example.com" || sender.sent[1].To != "bob@example.com" {
		t.Errorf("delivery order: %v", sender.sent)
	}
}

func TestWorkerDropsMalformedJobs(t *testing.T) {
	backend := &fakeBackend{}
	backend.published = append(backend.published, Message{ID: "msg-bad", Data: []byte("not json")})

	sender := &recordingSender{}
	worker := NewWorker(backend, "mail.outbound", sender, logrus.New())

	// A malformed payload is dropped, not retried and not fatal.
	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %d jobs, want 0", len(sender.sent))
	}
}

func TestWorkerPropagatesSendFailure(t *testing.T) {
	backend := &fakeBackend{}
	queue := NewQueue(backend, "mail.outbound", "noreply@heptatravel.example", "https://app.heptatravel.example")
	_ = queue.EnqueueVerification(context.Background(), "alice@example.com", "Alice", "tok1")

	worker := NewWorker(backend, "mail.outbound", &recordingSender{fail: true}, logrus.New())
	if err := worker.Run(context.Background()); err == nil {
		t.Fatal("expected delivery failure to propagate for redelivery")
	}
}
