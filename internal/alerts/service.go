package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// Service owns the task queue client, the worker and the mailer. Both sides
// share one Redis connection config so the server and its worker stay in one
// process.
type Service struct {
	client *asynq.Client
	server *asynq.Server
	mailer *Mailer
	to     string
}

// NewService builds the queue around the given Redis address. feedbackTo is
// the inbox feedback reports are forwarded to.
func NewService(redisAddr string, mailer *Mailer, feedbackTo string) *Service {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &Service{
		client: asynq.NewClient(opts),
		server: asynq.NewServer(opts, asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"emails": 10,
			},
		}),
		mailer: mailer,
		to:     feedbackTo,
	}
}

// Start runs the worker in the background.
func (s *Service) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskFeedbackEmail, s.handleFeedbackEmail)

	go func() {
		if err := s.server.Run(mux); err != nil {
			log.Printf("asynq server stopped: %v", err)
		}
	}()
}

// Close releases the client and stops the worker.
func (s *Service) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.server != nil {
		s.server.Shutdown()
	}
}

// EnqueueFeedback schedules a feedback report for email delivery.
func (s *Service) EnqueueFeedback(feedbackType, page, contact, message string) error {
	if feedbackType == "" {
		feedbackType = "other"
	}
	subject := fmt.Sprintf("[Acad Swap Feedback] %s", titleCase(feedbackType))
	body := strings.Join([]string{
		"Type: " + feedbackType,
		"Page: " + orNA(page),
		"Contact: " + orNA(contact),
		"",
		"Message:",
		message,
	}, "\n")

	payload := FeedbackPayload{
		Type:     feedbackType,
		Page:     page,
		Contact:  contact,
		Message:  message,
		Envelope: EmailEnvelope{To: s.to, Subject: subject, Body: body},
		SentAt:   time.Now(),
	}
	b, _ := json.Marshal(payload)
	_, err := s.client.Enqueue(asynq.NewTask(TaskFeedbackEmail, b), asynq.Queue("emails"))
	return err
}

func (s *Service) handleFeedbackEmail(_ context.Context, t *asynq.Task) error {
	var p FeedbackPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := s.mailer.Send(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] Feedback send failed: %v", err)
		return err
	}
	log.Printf("[notify] Feedback sent -> to=%s type=%s", p.Envelope.To, p.Type)
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
