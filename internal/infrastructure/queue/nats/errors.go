package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/infrastructure/resilience"
)

func classifyNATSError(err error) resilience.Outcome {
	switch {
	case err == nil:
		return resilience.Outcome{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Outcome{Retry: false, Trip: false}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Outcome{Retry: true, Trip: true}
	default:
		return resilience.Outcome{Retry: false, Trip: true}
	}
}

// wrapTemporaryIfNeeded marks broker outages so the HTTP layer answers 503.
func wrapTemporaryIfNeeded(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retry || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
