package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	// EventSubmissionGraded is published after a submission is persisted.
	EventSubmissionGraded = "submission.graded"
	// EventPaperChecked is published after a paper check is persisted.
	EventPaperChecked = "paper.checked"
)

// GradedEvent is the payload published for graded scripts.
type GradedEvent struct {
	Type         string    `json:"type"`
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	OwnerID      string    `json:"owner_id"`
	TotalMarks   float64   `json:"total_marks"`
	MaxMarks     float64   `json:"max_marks"`
	Grade        string    `json:"grade"`
	Late         bool      `json:"late,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventPublisher announces pipeline results to other services.
type EventPublisher interface {
	Publish(ctx context.Context, event GradedEvent) error
}

type natsPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher publishes events on <subject>.<event type>. It returns nil
// when conn is nil so callers can skip publishing.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if conn == nil {
		return nil
	}
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "grader"
	}

	return &natsPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(ctx context.Context, event GradedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := p.subject + "." + event.Type
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}

	p.logger.Debug().Str("subject", subject).Str("id", event.ID).Msg("event published")
	return nil
}
