package router

import (
	"context"
	"time"
)

type TimeoutConfig struct {
	Classify time.Duration
	Forward  time.Duration
}

func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Classify: 45 * time.Second,
		Forward:  90 * time.Second,
	}
}

func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
