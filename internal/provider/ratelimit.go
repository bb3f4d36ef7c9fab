package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/mrz1836/testament/internal/metrics"
)

// unthrottled methods submit something the user just confirmed. They skip
// the bucket so a mint or check-in is never queued behind a will scan.
var unthrottled = map[string]bool{
	"eth_sendRawTransaction": true,
	"eth_sendTransaction":    true,
}

// RateLimiter paces read calls to one node with a token bucket. It delays
// requests and never drops them.
type RateLimiter struct {
	bucket  *rate.Limiter
	metrics *metrics.Metrics
}

// NewRateLimiter allows perSecond read calls with the given burst. A
// non-positive rate turns the limiter off.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		return &RateLimiter{bucket: rate.NewLimiter(rate.Inf, 0), metrics: metrics.Global}
	}
	return &RateLimiter{
		bucket:  rate.NewLimiter(rate.Limit(perSecond), max(burst, 1)),
		metrics: metrics.Global,
	}
}

// Wait blocks until method may be sent, or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, method string) error {
	if unthrottled[method] || r.bucket.Allow() {
		return nil
	}
	r.metrics.RecordRateWait()
	return r.bucket.Wait(ctx)
}
