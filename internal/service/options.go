package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultExpiryWarningDays = 7
	scopeAllWarehouses       = "all"
)

type options struct {
	now               func() time.Time
	expiryWarningDays int
}

type Option func(*options)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithExpiryWarningDays(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.expiryWarningDays = days
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, expiryWarningDays: defaultExpiryWarningDays}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish: best effort: событие теряется, операция не откатывается.
func publish(ctx context.Context, bus EventBus, log *zap.Logger, e DomainEvent) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, e); err != nil {
		log.Warn("publish event failed",
			zap.String("event", e.EventType()),
			zap.String("aggregate_id", e.AggregateID()),
			zap.Error(err))
	}
}
