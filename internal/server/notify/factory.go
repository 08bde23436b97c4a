package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/timex"
)

// New picks the transport named by cfg.Notifier.
func New(ctx context.Context, cfg *config.Config, clock timex.Clock, logger logging.Logger) (*Dispatcher, error) {
	var t Transport

	switch cfg.Notifier {
	case config.NotifierLog, "":
		t = NewLogTransport(logger.With("module", "notify"))
	case config.NotifierSMTP:
		t = NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	case config.NotifierKafka:
		t = NewKafkaTransport(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.NotifierS3:
		outbox, err := NewS3Outbox(ctx, S3Options{
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 outbox: %w", err)
		}
		t = outbox
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}

	return NewDispatcher(t, cfg.PublicBaseURL, clock), nil
}
