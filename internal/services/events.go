package services

import (
	"context"
	"strconv"
	"time"

	"github.com/jjudge-oj/catalog/internal/logger"
	"github.com/jjudge-oj/catalog/internal/mq"
)

// Problem event kinds.
const (
	ProblemEventSaved    = "saved"
	ProblemEventArchived = "archived"
	ProblemEventRestored = "restored"
	ProblemEventDeleted  = "deleted"
)

// ProblemEvent is published after a problem write commits.
type ProblemEvent struct {
	ProblemID  int       `json:"problem_id"`
	Event      string    `json:"event"`
	Version    int       `json:"version,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher sends JSON payloads to a broker channel. *mq.MQ implements it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, v any, attrs map[string]string) (string, error)
}

// publishEvent is best effort: failures are logged and never reach the caller.
func (s *ProblemService) publishEvent(ctx context.Context, problemID, version int, event string) {
	if s.events == nil {
		return
	}
	payload := ProblemEvent{
		ProblemID:  problemID,
		Event:      event,
		Version:    version,
		OccurredAt: time.Now().UTC(),
	}
	attrs := map[string]string{mq.AttrOrderingKey: strconv.Itoa(problemID)}
	if _, err := s.events.PublishJSON(context.WithoutCancel(ctx), s.eventsChannel, payload, attrs); err != nil {
		logger.FromContext(ctx).Warn("failed to publish problem event",
			"problem_id", problemID, "event", event, "error", err)
	}
}
