package notify

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/logging"
)

// LogTransport writes messages to the log. Development only: the body
// contains the code or link in clear.
type LogTransport struct {
	logger logging.Logger
}

func NewLogTransport(logger logging.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(ctx context.Context, msg Message) error {
	t.logger.Info(ctx, "notification", "id", msg.ID, "kind", msg.Kind, "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
