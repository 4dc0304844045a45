package testutil

import (
	"context"
	"time"

	"qidscan/pkg/requestcontext"
)

// FixedNow is the clock most service tests pin requests to.
var FixedNow = time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC)

// Context returns a context carrying a fixed request time and request ID,
// mirroring what the HTTP middleware chain would set.
func Context(now time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	return requestcontext.WithRequestID(ctx, "req-test")
}

// WithDevice adds client metadata as the metadata middleware would.
func WithDevice(ctx context.Context, userAgent, deviceClass string) context.Context {
	return requestcontext.WithClientMetadata(ctx, "192.0.2.10", userAgent, deviceClass)
}
