package alerts

import "time"

// Task type names registered on the asynq mux.
const (
	TaskFeedbackEmail = "email:feedback"
)

// EmailEnvelope is the rendered mail carried inside every email task payload.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FeedbackPayload carries a user feedback report to the worker.
type FeedbackPayload struct {
	Type     string        `json:"type"`
	Page     string        `json:"page"`
	Contact  string        `json:"contact"`
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
